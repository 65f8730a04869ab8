package alloc

import (
	"math/rand"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/brkit/heap/block"
	"github.com/joshuapare/brkit/heap/brk"
	"github.com/joshuapare/brkit/heap/config"
	"github.com/joshuapare/brkit/heap/pool"
	"github.com/joshuapare/brkit/internal/syscalls"
)

func newTestAllocator(t *testing.T, cfg config.Config, opts ...Option) (*Allocator, *syscalls.Sim) {
	t.Helper()
	sim := syscalls.NewSim(0, 1<<34)
	st, err := brk.New(sim, brk.WithConfig(cfg))
	require.NoError(t, err)
	return New(st, opts...), sim
}

// requireDisjoint checks that no two blocks overlap.
func requireDisjoint(t *testing.T, blocks []block.Block) {
	t.Helper()
	sorted := slices.Clone(blocks)
	slices.SortFunc(sorted, block.Block.Compare)
	for i := 1; i < len(sorted); i++ {
		require.False(t, sorted[i-1].Overlaps(sorted[i]), "%v overlaps %v", sorted[i-1], sorted[i])
	}
}

func TestAlloc_RejectsBadRequests(t *testing.T) {
	a, sim := newTestAllocator(t, config.Default)

	_, err := a.Alloc(0, 8)
	require.ErrorIs(t, err, ErrZeroSize)
	for _, align := range []uintptr{0, 3, 24} {
		_, err = a.Alloc(16, align)
		require.ErrorIs(t, err, ErrBadAlign, "align %d", align)
	}
	require.Zero(t, sim.Calls(), "rejected requests never touch the break")
	require.ErrorIs(t, a.Free(block.Empty(sim.Base())), ErrZeroSize)
}

func TestAlloc_SlowThenFastPath(t *testing.T) {
	a, sim := newTestAllocator(t, config.ConfigBalanced)
	base := sim.Base()

	first, err := a.Alloc(100, 16)
	require.NoError(t, err)
	require.Equal(t, block.FromRawParts(base, 100), first)

	calls := sim.Calls()
	second, err := a.Alloc(50, 8)
	require.NoError(t, err)
	require.Equal(t, block.FromRawParts(base+104, 50), second)
	require.Equal(t, calls, sim.Calls(), "served without moving the break")

	st := a.Stats()
	assert.Equal(t, 2, st.AllocCalls)
	assert.Equal(t, 1, st.AllocSlowPath)
	assert.Equal(t, 1, st.AllocFastPath)
	assert.Equal(t, 1, st.SplitCount)
	assert.Equal(t, uint64(150), st.BytesAllocated)

	free := a.FreeBlocks()
	require.Len(t, free, 2)
	require.Equal(t, block.FromRawParts(base+100, 4), free[0])
	require.Equal(t, sim.Current(), free[1].End())
	require.NoError(t, a.Verify())
}

func TestFree_CoalescesBothSides(t *testing.T) {
	a, sim := newTestAllocator(t, config.ConfigBalanced)

	first, err := a.Alloc(100, 16)
	require.NoError(t, err)
	second, err := a.Alloc(50, 8)
	require.NoError(t, err)

	require.NoError(t, a.Free(first))
	require.Equal(t, block.FromRawParts(sim.Base(), 104), a.FreeBlocks()[0])

	require.NoError(t, a.Free(second))
	free := a.FreeBlocks()
	require.Len(t, free, 1)
	require.Equal(t, sim.Base(), free[0].Addr())
	require.Equal(t, sim.Current(), free[0].End())

	st := a.Stats()
	assert.Equal(t, 2, st.CoalesceForward)
	assert.Equal(t, 1, st.CoalesceBackward)
	assert.Equal(t, uint64(sim.Used()), st.FreeBytes)
	require.NoError(t, a.Verify())
}

func TestFree_DoubleFree(t *testing.T) {
	a, _ := newTestAllocator(t, config.ConfigBalanced)

	b, err := a.Alloc(64, 8)
	require.NoError(t, err)
	keep, err := a.Alloc(64, 8)
	require.NoError(t, err)
	require.NoError(t, a.Free(b))

	require.ErrorIs(t, a.Free(b), ErrDoubleFree)
	inner := block.FromRawParts(b.Addr()+8, 8)
	require.ErrorIs(t, a.Free(inner), ErrDoubleFree)
	straddle := block.FromRawParts(keep.End()-8, 16)
	require.ErrorIs(t, a.Free(straddle), ErrDoubleFree)
	require.NoError(t, a.Verify())
}

func TestFree_ReleasesTrailingSpace(t *testing.T) {
	a, sim := newTestAllocator(t, config.ConfigCompact)

	b, err := a.Alloc(100<<10, 16)
	require.NoError(t, err)
	require.Greater(t, sim.Used(), uintptr(100<<10))

	require.NoError(t, a.Free(b))
	require.Equal(t, sim.Base(), sim.Current(), "whole heap handed back")
	require.Empty(t, a.FreeBlocks())

	st := a.Stats()
	assert.Equal(t, 1, st.Releases)
	assert.Equal(t, uint64(100<<10+64<<10+16), st.BytesReleased)
	require.NoError(t, a.Verify())
}

func TestFree_KeepsTailBelowThreshold(t *testing.T) {
	a, sim := newTestAllocator(t, config.ConfigGenerous)

	b, err := a.Alloc(1<<10, 8)
	require.NoError(t, err)
	require.NoError(t, a.Free(b))

	require.NotEqual(t, sim.Base(), sim.Current())
	require.Len(t, a.FreeBlocks(), 1)
	require.Zero(t, a.Stats().Releases)
}

func TestAlloc_FullPoolReleasesLeftover(t *testing.T) {
	p := pool.New(pool.WithSeed(1), pool.WithArenaCapacity(1))
	a, sim := newTestAllocator(t, config.Config{Name: "NoSlack"}, WithPool(p))

	_, err := a.Alloc(16, 16)
	require.NoError(t, err)
	require.Len(t, a.FreeBlocks(), 1, "alignment slack is kept")

	_, err = a.Alloc(64, 16)
	require.NoError(t, err)
	require.Len(t, a.FreeBlocks(), 1)

	st := a.Stats()
	assert.Equal(t, 1, st.Releases)
	assert.Zero(t, st.BytesLeaked)
	assert.Equal(t, sim.Base()+16+16+64, sim.Current())
	require.NoError(t, a.Verify())
}

func TestAlloc_RandomWorkload(t *testing.T) {
	for _, cfg := range []config.Config{config.ConfigCompact, config.ConfigBalanced, {Name: "NoSlack"}} {
		t.Run(cfg.String(), func(t *testing.T) {
			a, sim := newTestAllocator(t, cfg, WithPool(pool.New(pool.WithSeed(42))))
			rng := rand.New(rand.NewSource(42))
			var live []block.Block

			for step := range 2000 {
				if rng.Intn(5) < 3 || len(live) == 0 {
					size := uintptr(1 + rng.Intn(4096))
					align := uintptr(1) << rng.Intn(7)
					b, err := a.Alloc(size, align)
					require.NoError(t, err, "step %d", step)
					require.Equal(t, size, b.Size())
					require.True(t, b.AlignedTo(align))
					live = append(live, b)
				} else {
					i := rng.Intn(len(live))
					require.NoError(t, a.Free(live[i]), "step %d", step)
					live = slices.Delete(live, i, i+1)
				}

				if step%25 == 0 {
					require.NoError(t, a.Verify(), "step %d", step)
					requireDisjoint(t, append(slices.Clone(live), a.FreeBlocks()...))
				}
			}

			for _, b := range live {
				require.NoError(t, a.Free(b))
			}
			require.NoError(t, a.Verify())

			// Everything between the origin and the break is free and merged.
			free := a.FreeBlocks()
			if sim.Current() == sim.Base() {
				require.Empty(t, free)
			} else {
				require.Equal(t, []block.Block{block.FromRawParts(sim.Base(), sim.Used())}, free)
			}
		})
	}
}

func TestAllocator_Concurrent(t *testing.T) {
	a, sim := newTestAllocator(t, config.ConfigBalanced)

	const workers = 8
	held := make([][]block.Block, workers)
	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(w)))
			var mine []block.Block
			for range 300 {
				if rng.Intn(2) == 0 || len(mine) == 0 {
					b, err := a.Alloc(uintptr(1+rng.Intn(2048)), 8)
					if err != nil {
						t.Error(err)
						return
					}
					mine = append(mine, b)
				} else {
					i := rng.Intn(len(mine))
					if err := a.Free(mine[i]); err != nil {
						t.Error(err)
						return
					}
					mine = slices.Delete(mine, i, i+1)
				}
			}
			held[w] = mine
		}()
	}
	wg.Wait()

	all := slices.Concat(held...)
	requireDisjoint(t, append(all, a.FreeBlocks()...))
	require.NoError(t, a.Verify())

	for _, b := range all {
		require.NoError(t, a.Free(b))
	}
	require.NoError(t, a.Verify())
	if sim.Current() != sim.Base() {
		require.Len(t, a.FreeBlocks(), 1)
	}
}
