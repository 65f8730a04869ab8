package alloc

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/joshuapare/brkit/heap/block"
	"github.com/joshuapare/brkit/heap/brk"
	"github.com/joshuapare/brkit/heap/pool"
	"github.com/joshuapare/brkit/internal/logger"
)

// Allocator serves aligned blocks from a free pool backed by the program
// break.
type Allocator struct {
	mu    sync.Mutex
	pool  *pool.Pool
	brk   *brk.State
	stats Stats
}

// Stats holds allocator counters.
type Stats struct {
	AllocCalls    int // Total Alloc() calls
	AllocFastPath int // Allocations served from the pool
	AllocSlowPath int // Allocations that extended the break
	FreeCalls     int // Total Free() calls

	BytesAllocated uint64 // Bytes handed out
	BytesFreed     uint64 // Bytes given back by callers

	SplitCount       int // Free blocks carved by an allocation
	CoalesceForward  int // Merges with the following free block
	CoalesceBackward int // Merges with the preceding free block

	Releases      int    // Trailing blocks returned to the system
	BytesReleased uint64 // Bytes returned to the system
	BytesLeaked   uint64 // Leftovers dropped because the pool was full

	FreeBlocks int    // Blocks currently in the pool
	FreeBytes  uint64 // Bytes currently in the pool
}

type options struct {
	pool *pool.Pool
}

// Option configures an Allocator.
type Option func(*options)

// WithPool makes the allocator keep its free blocks in p, which must be
// empty. Useful for a seeded or capacity-bounded pool.
func WithPool(p *pool.Pool) Option {
	return func(o *options) { o.pool = p }
}

// New creates an allocator extending the break through st.
func New(st *brk.State, opts ...Option) *Allocator {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.pool == nil {
		o.pool = pool.New()
	}
	return &Allocator{pool: o.pool, brk: st}
}

// Alloc returns a block of exactly size bytes whose address is a multiple of
// align.
func (a *Allocator) Alloc(size, align uintptr) (block.Block, error) {
	if size == 0 {
		return block.Block{}, ErrZeroSize
	}
	if !block.IsPow2(align) {
		return block.Block{}, fmt.Errorf("%w: %d", ErrBadAlign, align)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.AllocCalls++

	res, ok, err := a.allocFromPool(size, align)
	if err != nil {
		return block.Block{}, err
	}
	if !ok {
		res = a.allocFromBreak(size, align)
	}
	a.stats.BytesAllocated += uint64(size)
	return res, nil
}

// allocFromPool carves the request out of the first free block that fits.
// The donor node is reused for one leftover so a full arena only matters
// when both leftovers are non-empty.
func (a *Allocator) allocFromPool(size, align uintptr) (block.Block, bool, error) {
	fit := pool.FirstFit{Size: size, Align: align}
	s, err := a.pool.SearchWith(fit)
	if errors.Is(err, pool.ErrSearchMiss) {
		return block.Block{}, false, nil
	}
	if err != nil {
		return block.Block{}, false, err
	}

	donor := s.Block()
	pre, rest, _ := donor.Align(align)
	res, exc := rest.Split(size)

	switch {
	case pre.IsEmpty() && exc.IsEmpty():
		_, err = a.pool.Remove(s)
	case pre.IsEmpty():
		_, err = a.pool.Replace(s, exc)
	case exc.IsEmpty():
		_, err = a.pool.Replace(s, pre)
	default:
		if s, err = a.pool.Replace(s, pre); err == nil {
			if _, err = a.pool.Insert(exc); err != nil {
				_, _ = a.pool.Replace(s, donor)
			}
		}
	}
	if err != nil {
		return block.Block{}, false, fmt.Errorf("alloc: carving %v: %w", donor, err)
	}

	if !pre.IsEmpty() || !exc.IsEmpty() {
		a.stats.SplitCount++
	}
	a.stats.AllocFastPath++
	logger.Debug("alloc: served from pool", "donor", donor, "result", res)
	return res, true, nil
}

// allocFromBreak extends the break by a canonical chunk and keeps the
// leftovers free.
func (a *Allocator) allocFromBreak(size, align uintptr) block.Block {
	l := a.brk.Lock()
	defer l.Unlock()

	pre, res, exc := l.CanonicalBrk(size, align)
	a.stats.AllocSlowPath++
	logger.Debug("alloc: extended break", "size", humanize.IBytes(uint64(size)), "result", res)

	if !pre.IsEmpty() {
		a.keep(l, pre)
	}
	if !exc.IsEmpty() {
		a.keep(l, exc)
	}
	return res
}

// keep adds a leftover to the pool. If the pool cannot take it, the block is
// given back to the system when it tops the heap and dropped otherwise.
func (a *Allocator) keep(l *brk.Lock, b block.Block) {
	err := a.insertFree(b)
	if err == nil {
		return
	}
	if l.Release(b) == nil {
		a.stats.Releases++
		a.stats.BytesReleased += uint64(b.Size())
		return
	}
	a.stats.BytesLeaked += uint64(b.Size())
	logger.Warn("alloc: dropping free block", "block", b, "error", err)
}

// insertFree adds b to the pool, merging it with adjacent free blocks.
func (a *Allocator) insertFree(b block.Block) error {
	merged := b
	if s, err := a.pool.SearchWith(pool.EndingAt(b.Addr())); err == nil {
		left, err := a.pool.Remove(s)
		if err != nil {
			return err
		}
		merged = left
		if err := merged.MergeRight(b); err != nil {
			return err
		}
		a.stats.CoalesceBackward++
	}
	if s, err := a.pool.SearchWith(pool.AtAddr(b.End())); err == nil {
		right, err := a.pool.Remove(s)
		if err != nil {
			return err
		}
		if err := merged.MergeRight(right); err != nil {
			return err
		}
		a.stats.CoalesceForward++
	}
	_, err := a.pool.Insert(merged)
	return err
}

// Free returns b, previously obtained from Alloc, to the allocator.
func (a *Allocator) Free(b block.Block) error {
	if b.IsEmpty() {
		return ErrZeroSize
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.FreeCalls++

	if s, err := a.pool.SearchWith(pool.LowerBound(b.Addr())); err == nil && s.Block().Overlaps(b) {
		return fmt.Errorf("%w: %v overlaps %v", ErrDoubleFree, b, s.Block())
	}
	if s, err := a.pool.SearchWith(pool.Containing(b.Addr())); err == nil {
		return fmt.Errorf("%w: %v overlaps %v", ErrDoubleFree, b, s.Block())
	}

	if err := a.insertFree(b); err != nil {
		return err
	}
	a.stats.BytesFreed += uint64(b.Size())
	a.releaseTail()
	return nil
}

// releaseTail gives the last free block back to the system when it ends at
// the break and is at least the configured release threshold.
func (a *Allocator) releaseTail() {
	last, ok := a.pool.Last()
	if !ok || last.Size() < a.brk.Config().ReleaseThreshold {
		return
	}

	l := a.brk.Lock()
	defer l.Unlock()
	if last.End() != l.CurrentBrk() {
		return
	}
	s, err := a.pool.SearchWith(pool.AtAddr(last.Addr()))
	if err != nil {
		return
	}
	if err := l.Release(last); err != nil {
		logger.Debug("alloc: tail kept", "block", last, "error", err)
		return
	}
	if _, err := a.pool.Remove(s); err != nil {
		logger.Error("alloc: released block left in pool", "block", last, "error", err)
		return
	}
	a.stats.Releases++
	a.stats.BytesReleased += uint64(last.Size())
	logger.Debug("alloc: released tail", "block", last)
}

// Stats returns a snapshot of the allocator counters.
func (a *Allocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	st := a.stats
	st.FreeBlocks = a.pool.Len()
	st.FreeBytes = uint64(a.pool.Size())
	return st
}

// FreeBlocks returns the free blocks in address order.
func (a *Allocator) FreeBlocks() []block.Block {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Collect(a.pool.Blocks())
}

// Verify checks the pool structure and that free blocks are coalesced and lie
// between the initial and the current break.
func (a *Allocator) Verify() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.pool.Verify(); err != nil {
		return err
	}
	bs := a.brk.Stats()
	var prev block.Block
	first := true
	for b := range a.pool.Blocks() {
		if !first && prev.End() == b.Addr() {
			return fmt.Errorf("alloc: free blocks %v and %v not coalesced", prev, b)
		}
		if b.Addr() < bs.Origin || b.End() > bs.Current {
			return fmt.Errorf("alloc: free block %v outside heap [0x%x, 0x%x)", b, bs.Origin, bs.Current)
		}
		prev, first = b, false
	}
	return nil
}
