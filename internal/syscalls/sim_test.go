package syscalls

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSim_QueryDoesNotMove(t *testing.T) {
	s := NewSim(0, 1<<20)
	require.Equal(t, DefaultSimBase, s.Brk(0))
	require.Equal(t, DefaultSimBase, s.Current())
	require.Equal(t, 1, s.Calls())
}

func TestSim_GrowAndShrink(t *testing.T) {
	s := NewSim(0x4000, 0x1000)

	require.Equal(t, uintptr(0x4800), s.Brk(0x4800))
	require.Equal(t, uintptr(0x800), s.Used())

	require.Equal(t, uintptr(0x4100), s.Brk(0x4100))
	require.Equal(t, uintptr(0x4100), s.Current())
}

func TestSim_OutOfRangeReportsUnchanged(t *testing.T) {
	s := NewSim(0x4000, 0x1000)

	require.Equal(t, uintptr(0x4000), s.Brk(0x5001), "above limit")
	require.Equal(t, uintptr(0x4000), s.Brk(0x3fff), "below base")
	require.Equal(t, uintptr(0x5000), s.Brk(0x5000), "exactly at limit")
}

func TestSim_FailNext(t *testing.T) {
	s := NewSim(0x4000, 0x1000)
	s.FailNext(2)

	require.Equal(t, uintptr(0x4000), s.Brk(0x4010))
	require.Equal(t, uintptr(0x4000), s.Brk(0), "queries do not consume injected failures")
	require.Equal(t, uintptr(0x4000), s.Brk(0x4010))
	require.Equal(t, uintptr(0x4010), s.Brk(0x4010))
}

func TestSim_CapacityOverflowClamps(t *testing.T) {
	s := NewSim(^uintptr(0)-10, 100)
	require.Equal(t, ^uintptr(0), s.Limit())
}

func TestBreakerFunc(t *testing.T) {
	var got uintptr
	b := BreakerFunc(func(addr uintptr) uintptr {
		got = addr
		return addr + 1
	})
	require.Equal(t, uintptr(8), b.Brk(7))
	require.Equal(t, uintptr(7), got)
}
