package pool

import (
	"github.com/joshuapare/brkit/heap/block"
	"github.com/joshuapare/brkit/internal/assert"
)

// Seek is the result of a successful search: the matched block, its
// position, and its predecessor on every level.
//
// A Seek describes the pool at the moment of the search. Any structural
// change (Insert, Remove) makes it stale.
type Seek struct {
	pool     *Pool
	gen      uint64
	node     NodeRef
	blk      block.Block
	rank     int // 1-based position on level 0
	backLook [MaxLevel]NodeRef
	ranks    [MaxLevel]int
}

// Block returns the matched block as it was when the Seek was taken.
func (s Seek) Block() block.Block { return s.blk }

// Index returns the 0-based position of the matched block in address order.
func (s Seek) Index() int { return s.rank - 1 }

// Valid reports whether the Seek still describes its pool.
func (s Seek) Valid() bool { return s.pool != nil && s.gen == s.pool.gen }

// Predecessor returns the block preceding the match on the given level.
// ok is false when the predecessor is the head sentinel or the level is out
// of range.
func (s Seek) Predecessor(level int) (block.Block, bool) {
	if level < 0 || level >= MaxLevel || !s.Valid() {
		return block.Block{}, false
	}
	ref := s.backLook[level]
	if ref == headRef {
		return block.Block{}, false
	}
	return s.pool.arena.get(ref).blk, true
}

// Prev returns the free block immediately before the match.
func (s Seek) Prev() (block.Block, bool) { return s.Predecessor(0) }

// Next returns the free block immediately after the match.
func (s Seek) Next() (block.Block, bool) {
	if !s.Valid() {
		return block.Block{}, false
	}
	next := s.pool.arena.get(s.node).shortcuts[0].next
	if next == nilRef {
		return block.Block{}, false
	}
	return s.pool.arena.get(next).blk, true
}

// lookback is one level of a back-look under construction. Levels the search
// never visited stay unset.
type lookback struct {
	ref  NodeRef
	rank int
	set  bool
}

// seekBuilder accumulates the back-look during a descent; only build turns
// it into a Seek.
type seekBuilder struct {
	levels [MaxLevel]lookback
}

func (b *seekBuilder) record(level int, ref NodeRef, rank int) {
	b.levels[level] = lookback{ref: ref, rank: rank, set: true}
}

// pred returns the predecessor recorded for level, defaulting to the head
// sentinel for levels above the pool height.
func (b *seekBuilder) pred(level int) lookback {
	if lb := b.levels[level]; lb.set {
		return lb
	}
	return lookback{ref: headRef, rank: 0, set: true}
}

// build completes the Seek for the matched node. Every level below the pool
// height must have been visited.
func (b *seekBuilder) build(p *Pool, found NodeRef, rank int) (Seek, bool) {
	s := Seek{
		pool: p,
		gen:  p.gen,
		node: found,
		blk:  p.arena.get(found).blk,
		rank: rank,
	}
	for lv := range MaxLevel {
		if lv < p.height && !assert.That(b.levels[lv].set, "seek: level %d of %d never visited", lv, p.height) {
			return Seek{}, false
		}
		lb := b.pred(lv)
		s.backLook[lv] = lb.ref
		s.ranks[lv] = lb.rank
	}
	return s, true
}
