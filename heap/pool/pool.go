package pool

import (
	"fmt"
	"iter"
	"math/rand"

	"github.com/joshuapare/brkit/heap/block"
	"github.com/joshuapare/brkit/internal/assert"
	"github.com/joshuapare/brkit/internal/logger"
)

// Pool is the skip list of free blocks. The zero value is not usable; call New.
type Pool struct {
	arena  *Arena
	height int    // levels in use, at least 1
	length int    // nodes, head excluded
	gen    uint64 // bumped on every structural change
	rng    *rand.Rand
}

type options struct {
	seed     int64
	seeded   bool
	capacity int
}

// Option configures a Pool.
type Option func(*options)

// WithSeed fixes the source of node heights, making the tower shape
// reproducible.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.seed = seed
		o.seeded = true
	}
}

// WithArenaCapacity bounds the number of nodes the pool may hold.
func WithArenaCapacity(n int) Option {
	return func(o *options) { o.capacity = n }
}

// New creates an empty pool.
func New(opts ...Option) *Pool {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if !o.seeded {
		o.seed = rand.Int63()
	}
	return &Pool{
		arena:  NewArena(o.capacity),
		height: 1,
		rng:    rand.New(rand.NewSource(o.seed)),
	}
}

// Len returns the number of free blocks.
func (p *Pool) Len() int { return p.length }

// Height returns the number of levels in use.
func (p *Pool) Height() int { return p.height }

// Arena returns the arena backing the pool.
func (p *Pool) Arena() *Arena { return p.arena }

func (p *Pool) node(ref NodeRef) *node { return p.arena.get(ref) }

// Search looks up the free block starting at b's address.
func (p *Pool) Search(b block.Block) (Seek, error) {
	logger.Debug("pool: searching for block", "block", b)
	return p.SearchWith(BlockSearcher{Needle: b})
}

// SearchWith runs the search protocol with s. It returns ErrSearchMiss when
// no block matches, including on an empty pool.
func (p *Pool) SearchWith(s Searcher) (Seek, error) {
	if p.length == 0 {
		return Seek{}, ErrSearchMiss
	}
	b, found, rank := p.seek(s)
	if found == nilRef {
		return Seek{}, ErrSearchMiss
	}
	seek, ok := b.build(p, found, rank)
	if !ok {
		return Seek{}, ErrSearchMiss
	}
	return seek, nil
}

// seek performs the descent and the level-0 walk. The builder is filled for
// every level below the pool height whether or not a match is found; found
// is nilRef on a miss.
func (p *Pool) seek(s Searcher) (b seekBuilder, found NodeRef, rank int) {
	trace := logger.Enabled(logger.LevelInternal)
	cur, r := headRef, 0

	for lv := p.height - 1; lv > 0; lv-- {
		for {
			sc := p.node(cur).shortcuts[lv]
			if sc.next == nilRef || s.Refine(p.node(sc.next).blk) {
				break
			}
			cur, r = sc.next, r+sc.skips
		}
		b.record(lv, cur, r)
		if trace {
			logger.Internal("pool: dropping level", "from", lv, "to", lv-1, "rank", r)
		}
	}
	b.record(0, cur, r)

	bounder, bounded := s.(Bounder)
	refined := false
	for next := p.node(cur).shortcuts[0].next; next != nilRef; next = p.node(next).shortcuts[0].next {
		n := p.node(next)
		if assert.Enabled {
			now := s.Refine(n.blk)
			assert.That(!refined || now, "pool: searcher %T stopped refining at %v", s, n.blk)
			refined = refined || now
		}
		if s.IsMatch(n.blk) {
			return b, next, r + 1
		}
		if bounded && bounder.Beyond(n.blk) {
			break
		}
		r++
		for lv := 0; lv < n.height; lv++ {
			b.record(lv, next, r)
		}
	}
	return b, nilRef, 0
}

// randomHeight draws a tower height with P(h > k) = 2^-k.
func (p *Pool) randomHeight() int {
	h := 1
	for h < MaxLevel && p.rng.Int63()&1 == 0 {
		h++
	}
	return h
}

// Insert adds a free block at its address-ordered position. The block must
// be non-empty and must not overlap any block in the pool.
func (p *Pool) Insert(blk block.Block) (Seek, error) {
	if blk.IsEmpty() {
		return Seek{}, ErrEmptyBlock
	}

	b, next, _ := p.seek(LowerBound(blk.Addr()))
	pred := b.pred(0)
	if pred.ref != headRef {
		if prev := p.node(pred.ref).blk; prev.End() > blk.Addr() {
			return Seek{}, fmt.Errorf("%w: %v after %v", ErrOverlap, blk, prev)
		}
	}
	if next != nilRef {
		if succ := p.node(next).blk; blk.End() > succ.Addr() {
			return Seek{}, fmt.Errorf("%w: %v before %v", ErrOverlap, blk, succ)
		}
	}

	height := p.randomHeight()
	ref, err := p.arena.alloc(blk, height)
	if err != nil {
		return Seek{}, err
	}
	for lv := p.height; lv < height; lv++ {
		b.record(lv, headRef, 0)
	}

	rank := pred.rank + 1
	n := p.node(ref)
	for lv := range height {
		lb := b.pred(lv)
		pn := p.node(lb.ref)
		old := pn.shortcuts[lv]
		if old.next != nilRef {
			n.shortcuts[lv] = shortcut{next: old.next, skips: lb.rank + old.skips + 1 - rank}
		}
		pn.shortcuts[lv] = shortcut{next: ref, skips: rank - lb.rank}
	}
	for lv := height; lv < p.height; lv++ {
		if pn := p.node(b.pred(lv).ref); pn.shortcuts[lv].next != nilRef {
			pn.shortcuts[lv].skips++
		}
	}

	p.height = max(p.height, height)
	p.length++
	p.gen++
	logger.Debug("pool: inserted block", "block", blk, "height", height, "index", rank-1)

	seek, _ := b.build(p, ref, rank)
	return seek, nil
}

// Remove unlinks the block matched by s and returns it. s must be a valid
// Seek of this pool.
func (p *Pool) Remove(s Seek) (block.Block, error) {
	if s.pool != p || s.gen != p.gen || s.node == nilRef {
		return block.Block{}, ErrStaleSeek
	}
	if !assert.That(p.backLookConsistent(s), "pool: inconsistent back-look for %v", s.blk) {
		fresh, err := p.SearchWith(AtAddr(s.blk.Addr()))
		if err != nil {
			return block.Block{}, fmt.Errorf("%w: %v vanished", ErrCorrupt, s.blk)
		}
		s = fresh
	}

	x := p.node(s.node)
	for lv := range p.height {
		pn := p.node(s.backLook[lv])
		sc := pn.shortcuts[lv]
		switch {
		case sc.next == s.node && x.shortcuts[lv].next != nilRef:
			pn.shortcuts[lv] = shortcut{next: x.shortcuts[lv].next, skips: sc.skips + x.shortcuts[lv].skips - 1}
		case sc.next == s.node:
			pn.shortcuts[lv] = shortcut{next: nilRef}
		case sc.next != nilRef:
			pn.shortcuts[lv].skips--
		}
	}

	blk := x.blk
	p.arena.free(s.node)
	head := p.node(headRef)
	for p.height > 1 && head.shortcuts[p.height-1].next == nilRef {
		p.height--
	}
	p.length--
	p.gen++
	logger.Debug("pool: removed block", "block", blk)
	return blk, nil
}

// backLookConsistent checks that s's back-look is the predecessor set of its
// node: levels the node occupies link to it, higher levels pass over it.
func (p *Pool) backLookConsistent(s Seek) bool {
	x := p.node(s.node)
	for lv := range p.height {
		pref := s.backLook[lv]
		if pref != headRef && p.node(pref).blk.Addr() >= x.blk.Addr() {
			return false
		}
		next := p.node(pref).shortcuts[lv].next
		if lv < x.height {
			if next != s.node {
				return false
			}
			continue
		}
		if next != nilRef && p.node(next).blk.Addr() <= x.blk.Addr() {
			return false
		}
	}
	return true
}

// RemoveBlock removes the free block starting at b's address.
func (p *Pool) RemoveBlock(b block.Block) error {
	s, err := p.Search(b)
	if err != nil {
		return err
	}
	_, err = p.Remove(s)
	return err
}

// Replace swaps the payload of the node matched by s for blk, which must keep
// the address order and not overlap either neighbour. The structure is
// unchanged, so s stays valid; the returned Seek carries the new block.
func (p *Pool) Replace(s Seek, blk block.Block) (Seek, error) {
	if s.pool != p || s.gen != p.gen || s.node == nilRef {
		return Seek{}, ErrStaleSeek
	}
	if blk.IsEmpty() {
		return Seek{}, ErrEmptyBlock
	}
	if prev, ok := s.Prev(); ok && prev.End() > blk.Addr() {
		return Seek{}, fmt.Errorf("%w: %v after %v", ErrOverlap, blk, prev)
	}
	if next, ok := s.Next(); ok && blk.End() > next.Addr() {
		return Seek{}, fmt.Errorf("%w: %v before %v", ErrOverlap, blk, next)
	}
	p.node(s.node).blk = blk
	s.blk = blk
	return s, nil
}

// At returns the i-th free block in address order.
func (p *Pool) At(i int) (block.Block, bool) {
	if i < 0 || i >= p.length {
		return block.Block{}, false
	}
	target := i + 1
	cur, r := headRef, 0
	for lv := p.height - 1; lv >= 0; lv-- {
		for {
			sc := p.node(cur).shortcuts[lv]
			if sc.next == nilRef || r+sc.skips > target {
				break
			}
			cur, r = sc.next, r+sc.skips
			if r == target {
				return p.node(cur).blk, true
			}
		}
	}
	return block.Block{}, false
}

// First returns the lowest-addressed free block.
func (p *Pool) First() (block.Block, bool) {
	next := p.node(headRef).shortcuts[0].next
	if next == nilRef {
		return block.Block{}, false
	}
	return p.node(next).blk, true
}

// Last returns the highest-addressed free block.
func (p *Pool) Last() (block.Block, bool) {
	cur := headRef
	for lv := p.height - 1; lv >= 0; lv-- {
		for next := p.node(cur).shortcuts[lv].next; next != nilRef; next = p.node(cur).shortcuts[lv].next {
			cur = next
		}
	}
	if cur == headRef {
		return block.Block{}, false
	}
	return p.node(cur).blk, true
}

// Blocks iterates over the free blocks in address order. The pool must not be
// modified during iteration.
func (p *Pool) Blocks() iter.Seq[block.Block] {
	return func(yield func(block.Block) bool) {
		for next := p.node(headRef).shortcuts[0].next; next != nilRef; next = p.node(next).shortcuts[0].next {
			if !yield(p.node(next).blk) {
				return
			}
		}
	}
}

// Size returns the total number of free bytes.
func (p *Pool) Size() uintptr {
	var total uintptr
	for b := range p.Blocks() {
		total += b.Size()
	}
	return total
}
