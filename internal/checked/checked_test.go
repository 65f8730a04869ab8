package checked

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

const top = ^uintptr(0)

func TestAdd(t *testing.T) {
	sum, ok := Add(10, 5)
	require.True(t, ok)
	require.Equal(t, uintptr(15), sum)

	_, ok = Add(top, 1)
	require.False(t, ok, "expected overflow when adding to the top address")

	sum, ok = Add(top, 0)
	require.True(t, ok)
	require.Equal(t, top, sum)
}

func TestSum(t *testing.T) {
	sum, ok := Sum(1, 2, 3)
	require.True(t, ok)
	require.Equal(t, uintptr(6), sum)

	sum, ok = Sum()
	require.True(t, ok)
	require.Zero(t, sum)

	_, ok = Sum(top-4, 2, 3)
	require.False(t, ok)
}

func TestMul(t *testing.T) {
	tests := []struct {
		a, b uintptr
		want uintptr
		ok   bool
	}{
		{0, top, 0, true},
		{top, 0, 0, true},
		{3, 7, 21, true},
		{top, 1, top, true},
		{top/2 + 1, 2, 0, false},
		{1 << 40, 1 << 30, 0, false},
	}
	for _, tt := range tests {
		got, ok := Mul(tt.a, tt.b)
		require.Equal(t, tt.ok, ok, "%d*%d", tt.a, tt.b)
		if ok {
			require.Equal(t, tt.want, got)
		}
	}
}

func TestOffset(t *testing.T) {
	got, ok := Offset(0x1000, 16)
	require.True(t, ok)
	require.Equal(t, uintptr(0x1010), got)

	got, ok = Offset(0x1000, -16)
	require.True(t, ok)
	require.Equal(t, uintptr(0xff0), got)

	got, ok = Offset(16, -16)
	require.True(t, ok)
	require.Zero(t, got)

	_, ok = Offset(8, -16)
	require.False(t, ok)
	_, ok = Offset(top, 1)
	require.False(t, ok)
	_, ok = Offset(top, math.MinInt)
	require.True(t, ok)
	_, ok = Offset(0, math.MinInt)
	require.False(t, ok)
}

func TestToInt(t *testing.T) {
	n, ok := ToInt(42)
	require.True(t, ok)
	require.Equal(t, 42, n)

	_, ok = ToInt(top)
	require.False(t, ok)
}
