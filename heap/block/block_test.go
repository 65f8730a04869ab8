package block

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlock_Accessors(t *testing.T) {
	b := FromRawParts(0x1000, 0x200)

	require.Equal(t, uintptr(0x1000), b.Addr())
	require.Equal(t, uintptr(0x200), b.Size())
	require.Equal(t, uintptr(0x1200), b.End())
	require.False(t, b.IsEmpty())

	require.Equal(t, Empty(0x1000), b.EmptyLeft())
	require.Equal(t, Empty(0x1200), b.EmptyRight())
	require.True(t, b.EmptyRight().IsEmpty())
}

func TestFromRawParts_WrapPanics(t *testing.T) {
	require.Panics(t, func() { FromRawParts(^uintptr(0)-1, 4) })
}

func TestBlock_Split(t *testing.T) {
	b := FromRawParts(0x1000, 100)

	tests := []struct {
		name string
		pos  uintptr
	}{
		{"at start", 0},
		{"middle", 40},
		{"at end", 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, r := b.Split(tt.pos)
			require.Equal(t, b.Addr(), l.Addr())
			require.Equal(t, tt.pos, l.Size())
			require.True(t, l.LeftTo(r))
			require.Equal(t, b.Size(), l.Size()+r.Size())
			require.Equal(t, b.End(), r.End())
		})
	}

	require.Panics(t, func() { b.Split(101) })
}

func TestBlock_Align(t *testing.T) {
	tests := []struct {
		name     string
		blk      Block
		align    uintptr
		wantPre  uintptr
		wantRest uintptr
		wantOK   bool
	}{
		{"already aligned", FromRawParts(0x1000, 64), 16, 0, 64, true},
		{"needs padding", FromRawParts(0x1003, 64), 16, 13, 51, true},
		{"align one", FromRawParts(0x1003, 64), 1, 0, 64, true},
		{"pad equals size", FromRawParts(0x1003, 13), 16, 13, 0, true},
		{"too small", FromRawParts(0x1003, 12), 16, 12, 0, false},
		{"page", FromRawParts(0x1010, 0x2000), 0x1000, 0xff0, 0x1010, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pre, rest, ok := tt.blk.Align(tt.align)
			require.Equal(t, tt.wantOK, ok)
			require.Equal(t, tt.wantPre, pre.Size())
			require.Equal(t, tt.wantRest, rest.Size())
			if ok {
				require.True(t, rest.AlignedTo(tt.align))
				require.True(t, pre.LeftTo(rest))
				require.Equal(t, tt.blk.Addr(), pre.Addr())
			}
		})
	}
}

func TestBlock_AlignRejectsNonPow2(t *testing.T) {
	b := FromRawParts(0x1000, 64)
	require.Panics(t, func() { b.Align(3) })
	require.Panics(t, func() { b.AlignedTo(0) })
}

func TestBlock_Adjacency(t *testing.T) {
	a := FromRawParts(0x1000, 0x100)
	b := FromRawParts(0x1100, 0x100)
	c := FromRawParts(0x1180, 0x100)

	require.True(t, a.LeftTo(b))
	require.False(t, b.LeftTo(a))
	require.False(t, a.Overlaps(b))
	require.True(t, b.Overlaps(c))
	require.False(t, Empty(0x1180).Overlaps(b))
	require.True(t, b.Contains(0x1100))
	require.False(t, b.Contains(0x1200))
}

func TestBlock_MergeRight(t *testing.T) {
	a := FromRawParts(0x1000, 0x100)
	require.NoError(t, a.MergeRight(FromRawParts(0x1100, 0x80)))
	require.Equal(t, FromRawParts(0x1000, 0x180), a)

	err := a.MergeRight(FromRawParts(0x2000, 0x10))
	require.ErrorIs(t, err, ErrNotAdjacent)
	require.Equal(t, uintptr(0x180), a.Size(), "failed merge leaves the block untouched")
}

func TestBlock_Pop(t *testing.T) {
	a := FromRawParts(0x1000, 0x100)
	got := a.Pop()
	require.Equal(t, FromRawParts(0x1000, 0x100), got)
	require.True(t, a.IsEmpty())
	require.Equal(t, uintptr(0x1000), a.Addr())
}

func TestBlock_CompareSorts(t *testing.T) {
	blocks := []Block{
		FromRawParts(0x3000, 1),
		FromRawParts(0x1000, 8),
		FromRawParts(0x1000, 4),
		FromRawParts(0x2000, 2),
	}
	slices.SortFunc(blocks, Block.Compare)
	require.Equal(t, []Block{
		FromRawParts(0x1000, 4),
		FromRawParts(0x1000, 8),
		FromRawParts(0x2000, 2),
		FromRawParts(0x3000, 1),
	}, blocks)
}

func TestBlock_String(t *testing.T) {
	require.Equal(t, "[0x10000000, 0x10000400) 1.0 KiB", FromRawParts(0x10000000, 1024).String())
}

func TestAlignUp(t *testing.T) {
	require.Equal(t, uintptr(8), AlignUp(1, 8))
	require.Equal(t, uintptr(8), AlignUp(8, 8))
	require.Equal(t, uintptr(16), AlignUp(9, 16))
	require.Equal(t, uintptr(0), AlignUp(0, 4096))
	require.True(t, IsPow2(1))
	require.False(t, IsPow2(0))
	require.False(t, IsPow2(12))
}
