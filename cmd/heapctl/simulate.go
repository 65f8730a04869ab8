package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/brkit/heap/alloc"
	"github.com/joshuapare/brkit/heap/block"
	"github.com/joshuapare/brkit/heap/brk"
	"github.com/joshuapare/brkit/heap/pool"
)

var (
	simOps      int
	simSeed     int64
	simMaxSize  string
	simMaxAlign string
	simFreePct  int
	simVerify   int
)

func init() {
	cmd := newSimulateCmd()
	cmd.Flags().IntVar(&simOps, "ops", 10000, "Number of alloc/free operations")
	cmd.Flags().Int64Var(&simSeed, "seed", 1, "Seed for the workload and the pool")
	cmd.Flags().StringVar(&simMaxSize, "max-size", "4KiB", "Largest allocation")
	cmd.Flags().StringVar(&simMaxAlign, "max-align", "64", "Largest alignment (power of two)")
	cmd.Flags().IntVar(&simFreePct, "free", 40, "Percentage of operations that free a live block")
	cmd.Flags().IntVar(&simVerify, "verify-every", 0, "Verify allocator invariants every N operations (0: only at the end)")
	rootCmd.AddCommand(cmd)
}

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a random workload through the reference allocator",
		Long: `The simulate command drives the allocator with a reproducible random
sequence of allocations and frees, then frees everything and reports
allocator and break statistics. It always runs on a simulated break.

Example:
  heapctl simulate --ops 100000 --seed 7
  heapctl simulate --config compact --max-size 64KiB --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate()
		},
	}
	return cmd
}

// SimulationReport is the output of the simulate command.
type SimulationReport struct {
	Ops       int           `json:"ops"`
	Seed      int64         `json:"seed"`
	Config    string        `json:"config"`
	PeakLive  uint64        `json:"peak_live_bytes"`
	PeakHeap  uint64        `json:"peak_heap_bytes"`
	FinalHeap uint64        `json:"final_heap_bytes"`
	Elapsed   time.Duration `json:"elapsed_ns"`
	Alloc     alloc.Stats   `json:"alloc"`
	Brk       brk.Stats     `json:"brk"`
}

func runSimulate() (err error) {
	maxSize, err := parseSize(simMaxSize)
	if err != nil {
		return err
	}
	maxAlign, err := parseSize(simMaxAlign)
	if err != nil {
		return err
	}
	if maxSize == 0 || !block.IsPow2(maxAlign) {
		return fmt.Errorf("max-size must be positive and max-align a power of two")
	}
	if simFreePct < 0 || simFreePct > 100 {
		return fmt.Errorf("free percentage %d out of range", simFreePct)
	}

	useSim = true
	st, sim, err := newState()
	if err != nil {
		return err
	}
	defer recoverOOM(&err)

	a := alloc.New(st, alloc.WithPool(pool.New(pool.WithSeed(simSeed))))
	rng := rand.New(rand.NewSource(simSeed))
	alignShift := 0
	for uintptr(1)<<alignShift < maxAlign {
		alignShift++
	}

	report := SimulationReport{Ops: simOps, Seed: simSeed, Config: st.Config().String()}
	var live []block.Block
	var liveBytes uint64
	start := time.Now()

	for i := range simOps {
		if len(live) > 0 && rng.Intn(100) < simFreePct {
			j := rng.Intn(len(live))
			if err := a.Free(live[j]); err != nil {
				return fmt.Errorf("op %d: free %v: %w", i, live[j], err)
			}
			liveBytes -= uint64(live[j].Size())
			live[j] = live[len(live)-1]
			live = live[:len(live)-1]
		} else {
			size := 1 + uintptr(rng.Int63n(int64(maxSize)))
			align := uintptr(1) << rng.Intn(alignShift+1)
			b, err := a.Alloc(size, align)
			if err != nil {
				return fmt.Errorf("op %d: alloc %d/%d: %w", i, size, align, err)
			}
			live = append(live, b)
			liveBytes += uint64(size)
		}

		report.PeakLive = max(report.PeakLive, liveBytes)
		report.PeakHeap = max(report.PeakHeap, uint64(sim.Used()))
		if simVerify > 0 && (i+1)%simVerify == 0 {
			if err := a.Verify(); err != nil {
				return fmt.Errorf("op %d: %w", i, err)
			}
		}
	}

	for _, b := range live {
		if err := a.Free(b); err != nil {
			return fmt.Errorf("final free %v: %w", b, err)
		}
	}
	if err := a.Verify(); err != nil {
		return err
	}

	report.Elapsed = time.Since(start)
	report.FinalHeap = uint64(sim.Used())
	report.Alloc = a.Stats()
	report.Brk = st.Stats()

	if jsonOut {
		return printJSON(report)
	}

	s := report.Alloc
	printInfo("\nSimulation (%s ops, seed %d, %s policy):\n", count(report.Ops), report.Seed, report.Config)
	printInfo("  Elapsed:        %v\n", report.Elapsed)
	printInfo("  Peak live:      %s\n", humanize.IBytes(report.PeakLive))
	printInfo("  Peak heap:      %s\n", humanize.IBytes(report.PeakHeap))
	printInfo("  Final heap:     %s\n", humanize.IBytes(report.FinalHeap))
	printInfo("\nAllocator:\n")
	printInfo("  Allocations:    %s (%s from pool, %s from break)\n", count(s.AllocCalls), count(s.AllocFastPath), count(s.AllocSlowPath))
	printInfo("  Frees:          %s\n", count(s.FreeCalls))
	printInfo("  Splits:         %d\n", s.SplitCount)
	printInfo("  Coalesces:      %d forward, %d backward\n", s.CoalesceForward, s.CoalesceBackward)
	printInfo("  Releases:       %d (%s)\n", s.Releases, humanize.IBytes(s.BytesReleased))
	printInfo("  Free blocks:    %d (%s)\n", s.FreeBlocks, humanize.IBytes(s.FreeBytes))
	printInfo("\nBreak:\n  %v\n", report.Brk)
	printInfo("\nInvariants: ✓ verified\n")
	return nil
}
