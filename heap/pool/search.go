package pool

import (
	"github.com/joshuapare/brkit/heap/block"
)

// Searcher decides how a search moves through the skip list.
//
// Refine reports whether b overshoots the target, i.e. whether the search
// must drop a level instead of following the shortcut to b. It must be
// monotonic in address order.
//
// IsMatch reports, on level 0, whether b is the block being looked for.
type Searcher interface {
	Refine(b block.Block) bool
	IsMatch(b block.Block) bool
}

// Bounder is implemented by searchers that can tell when neither b nor any
// block after it can match, letting a level-0 scan stop before the end.
type Bounder interface {
	Beyond(b block.Block) bool
}

// BlockSearcher finds the free block starting at Needle's address.
type BlockSearcher struct {
	Needle block.Block
}

func (s BlockSearcher) Refine(b block.Block) bool  { return b.Addr() >= s.Needle.Addr() }
func (s BlockSearcher) IsMatch(b block.Block) bool { return b.Addr() == s.Needle.Addr() }
func (s BlockSearcher) Beyond(b block.Block) bool  { return b.Addr() > s.Needle.Addr() }

// AtAddr finds the free block starting exactly at the address.
type AtAddr uintptr

func (a AtAddr) Refine(b block.Block) bool  { return b.Addr() >= uintptr(a) }
func (a AtAddr) IsMatch(b block.Block) bool { return b.Addr() == uintptr(a) }
func (a AtAddr) Beyond(b block.Block) bool  { return b.Addr() > uintptr(a) }

// LowerBound finds the first free block starting at or after the address.
// Its back-look is the insertion point for a block at that address.
type LowerBound uintptr

func (a LowerBound) Refine(b block.Block) bool  { return b.Addr() >= uintptr(a) }
func (a LowerBound) IsMatch(b block.Block) bool { return b.Addr() >= uintptr(a) }

// EndingAt finds the free block whose end is exactly the address, the left
// neighbour a block starting there would merge with.
type EndingAt uintptr

func (a EndingAt) Refine(b block.Block) bool  { return b.End() >= uintptr(a) }
func (a EndingAt) IsMatch(b block.Block) bool { return b.End() == uintptr(a) }
func (a EndingAt) Beyond(b block.Block) bool  { return b.End() > uintptr(a) }

// Containing finds the free block covering the address.
type Containing uintptr

func (a Containing) Refine(b block.Block) bool  { return b.End() > uintptr(a) }
func (a Containing) IsMatch(b block.Block) bool { return b.Contains(uintptr(a)) }
func (a Containing) Beyond(b block.Block) bool  { return b.Addr() > uintptr(a) }

// FirstFit finds the lowest-addressed block able to hold Size bytes aligned
// to Align (1 when zero). Size gives no ordering hint, so it never refines
// early and the match is found by the level-0 walk.
type FirstFit struct {
	Size  uintptr
	Align uintptr
}

func (FirstFit) Refine(block.Block) bool { return true }

func (f FirstFit) IsMatch(b block.Block) bool { return f.Fits(b) }

// Fits reports whether b holds the aligned request.
func (f FirstFit) Fits(b block.Block) bool {
	align := f.Align
	if align == 0 {
		align = 1
	}
	if b.Size() < f.Size {
		return false
	}
	_, rest, ok := b.Align(align)
	return ok && rest.Size() >= f.Size
}

// Funcs adapts a pair of functions to Searcher. A nil RefineFunc always
// refines; a nil MatchFunc never matches.
type Funcs struct {
	RefineFunc func(block.Block) bool
	MatchFunc  func(block.Block) bool
}

func (f Funcs) Refine(b block.Block) bool {
	if f.RefineFunc == nil {
		return true
	}
	return f.RefineFunc(b)
}

func (f Funcs) IsMatch(b block.Block) bool {
	return f.MatchFunc != nil && f.MatchFunc(b)
}

var (
	_ Bounder = BlockSearcher{}
	_ Bounder = AtAddr(0)
	_ Bounder = EndingAt(0)
	_ Bounder = Containing(0)
)
