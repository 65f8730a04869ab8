// Package block provides Block, the value type describing a contiguous
// range of free heap memory.
//
// A Block is only an address and a size. It is copied between the free pool,
// the break arbiter and callers; nothing shares a mutable Block. All address
// arithmetic the allocator core needs (splitting, alignment, adjacency) lives
// here so that callers never compute raw addresses themselves.
package block

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/dustin/go-humanize"

	"github.com/joshuapare/brkit/internal/checked"
)

// ErrNotAdjacent indicates a merge of two blocks that do not touch.
var ErrNotAdjacent = errors.New("block: blocks are not adjacent")

// Block is a contiguous memory range [Addr, Addr+Size).
//
// The zero value is an empty block at address 0. Empty blocks are valid
// placeholders: they mark a position without covering any byte.
type Block struct {
	addr uintptr
	size uintptr
}

// FromRawParts builds a block from its base address and size.
// The range must not wrap around the address space.
func FromRawParts(addr, size uintptr) Block {
	if _, ok := checked.Add(addr, size); !ok {
		panic(fmt.Sprintf("block: range 0x%x+0x%x wraps the address space", addr, size))
	}
	return Block{addr: addr, size: size}
}

// Empty returns a zero-size block at addr.
func Empty(addr uintptr) Block {
	return Block{addr: addr}
}

// Addr returns the base address.
func (b Block) Addr() uintptr { return b.addr }

// Size returns the length in bytes.
func (b Block) Size() uintptr { return b.size }

// End returns the address one past the last byte.
func (b Block) End() uintptr { return b.addr + b.size }

// IsEmpty reports whether the block covers no bytes.
func (b Block) IsEmpty() bool { return b.size == 0 }

// EmptyLeft returns an empty block at the start of b.
func (b Block) EmptyLeft() Block { return Empty(b.addr) }

// EmptyRight returns an empty block at the end of b.
func (b Block) EmptyRight() Block { return Empty(b.End()) }

// AlignedTo reports whether the base address is a multiple of align.
func (b Block) AlignedTo(align uintptr) bool {
	mustPow2(align)
	return b.addr&(align-1) == 0
}

// LeftTo reports whether b ends exactly where right begins.
func (b Block) LeftTo(right Block) bool {
	return b.End() == right.addr
}

// Overlaps reports whether b and o share at least one byte.
// Empty blocks never overlap anything.
func (b Block) Overlaps(o Block) bool {
	if b.IsEmpty() || o.IsEmpty() {
		return false
	}
	return b.addr < o.End() && o.addr < b.End()
}

// Contains reports whether addr lies within b.
func (b Block) Contains(addr uintptr) bool {
	return b.addr <= addr && addr < b.End()
}

// Compare orders blocks by address, then by size.
func (b Block) Compare(o Block) int {
	switch {
	case b.addr < o.addr:
		return -1
	case b.addr > o.addr:
		return 1
	case b.size < o.size:
		return -1
	case b.size > o.size:
		return 1
	}
	return 0
}

// Split cuts b at offset pos, returning [addr, addr+pos) and the rest.
// The union of the two equals b. pos must not exceed the size.
func (b Block) Split(pos uintptr) (Block, Block) {
	if pos > b.size {
		panic(fmt.Sprintf("block: split at %d beyond size %d", pos, b.size))
	}
	return Block{addr: b.addr, size: pos}, Block{addr: b.addr + pos, size: b.size - pos}
}

// Align separates the misaligned head of b. It returns the precursor (the
// bytes before the first address aligned to align, possibly empty) and the
// remainder starting at that address. ok is false when b ends before any
// aligned address, in which case b is returned unchanged as the precursor.
//
// align must be a power of two.
func (b Block) Align(align uintptr) (precursor, rest Block, ok bool) {
	pad := AlignUp(b.addr, align) - b.addr
	if b.addr+pad < b.addr || pad > b.size {
		return b, b.EmptyRight(), false
	}
	precursor, rest = b.Split(pad)
	return precursor, rest, true
}

// MergeRight extends b with right, which must start where b ends.
func (b *Block) MergeRight(right Block) error {
	if !b.LeftTo(right) {
		return fmt.Errorf("%w: %v then %v", ErrNotAdjacent, *b, right)
	}
	b.size += right.size
	return nil
}

// Pop returns the block and leaves an empty block at the same address.
func (b *Block) Pop() Block {
	out := *b
	*b = b.EmptyLeft()
	return out
}

// String renders the range and a human-readable size, e.g.
// "[0x10000000, 0x10000400) 1.0 KiB".
func (b Block) String() string {
	return fmt.Sprintf("[0x%x, 0x%x) %s", b.addr, b.End(), humanize.IBytes(uint64(b.size)))
}

// AlignUp returns n rounded up to the next multiple of align. The result
// wraps to a value below n when no such multiple is representable.
//
// Example:
//
//	AlignUp(1, 8)  = 8
//	AlignUp(8, 8)  = 8
//	AlignUp(9, 16) = 16
func AlignUp(n, align uintptr) uintptr {
	mustPow2(align)
	return (n + align - 1) &^ (align - 1)
}

// IsPow2 reports whether n is a non-zero power of two.
func IsPow2(n uintptr) bool {
	return n != 0 && bits.OnesCount64(uint64(n)) == 1
}

func mustPow2(align uintptr) {
	if !IsPow2(align) {
		panic(fmt.Sprintf("block: alignment %d is not a power of two", align))
	}
}
