package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/brkit/heap/block"
	"github.com/joshuapare/brkit/heap/brk"
)

var (
	growAlign   string
	growCount   int
	growRelease bool
)

func init() {
	cmd := newGrowCmd()
	cmd.Flags().StringVarP(&growAlign, "align", "a", "16", "Alignment of the result (power of two)")
	cmd.Flags().IntVarP(&growCount, "count", "n", 1, "Number of consecutive extensions")
	cmd.Flags().BoolVar(&growRelease, "release", false, "Hand every extension back afterwards")
	rootCmd.AddCommand(cmd)
}

func newGrowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grow <size>",
		Short: "Extend the break by canonical chunks",
		Long: `The grow command extends the break for a request of the given size and
shows how the extension splits into alignment precursor, result and
excess. Sizes accept units (4096, 64KiB, 1MB).

Example:
  heapctl grow 20 --align 1 --count 3 --sim
  heapctl grow 64KiB --align 4096 --release
  heapctl grow 1MiB --config compact --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGrow(args)
		},
	}
	return cmd
}

// Extension is one canonical break extension.
type Extension struct {
	Precursor BlockInfo `json:"precursor"`
	Result    BlockInfo `json:"result"`
	Excess    BlockInfo `json:"excess"`
}

// BlockInfo describes a block for output.
type BlockInfo struct {
	Addr string `json:"addr"`
	End  string `json:"end"`
	Size uint64 `json:"size"`
}

func blockInfo(b block.Block) BlockInfo {
	return BlockInfo{Addr: hex(b.Addr()), End: hex(b.End()), Size: uint64(b.Size())}
}

// GrowReport is the output of the grow command.
type GrowReport struct {
	Before     string      `json:"before"`
	After      string      `json:"after"`
	Released   bool        `json:"released"`
	Extensions []Extension `json:"extensions"`
	Stats      brk.Stats   `json:"stats"`
}

func runGrow(args []string) (err error) {
	size, err := parseSize(args[0])
	if err != nil {
		return err
	}
	if size == 0 {
		return fmt.Errorf("size must be positive")
	}
	align, err := parseSize(growAlign)
	if err != nil {
		return err
	}
	if !block.IsPow2(align) {
		return fmt.Errorf("alignment %d is not a power of two", align)
	}
	if growCount < 1 {
		return fmt.Errorf("count must be at least 1")
	}

	st, _, err := newState()
	if err != nil {
		return err
	}
	defer recoverOOM(&err)

	l := st.Lock()
	defer l.Unlock()

	report := GrowReport{Before: hex(l.CurrentBrk())}
	var grown []block.Block
	for i := range growCount {
		pre, res, exc := l.CanonicalBrk(size, align)
		printVerbose("Extension %d: %v | %v | %v\n", i+1, pre, res, exc)
		report.Extensions = append(report.Extensions, Extension{
			Precursor: blockInfo(pre),
			Result:    blockInfo(res),
			Excess:    blockInfo(exc),
		})
		grown = append(grown, pre, res, exc)
	}

	if growRelease {
		for i := len(grown) - 1; i >= 0; i-- {
			if err := l.Release(grown[i]); err != nil {
				return fmt.Errorf("release %v: %w", grown[i], err)
			}
		}
		report.Released = true
	}
	report.After = hex(l.CurrentBrk())
	l.Unlock()
	report.Stats = st.Stats()

	if jsonOut {
		return printJSON(report)
	}

	printInfo("\nBreak: %s -> %s\n", report.Before, report.After)
	for i, ext := range report.Extensions {
		printInfo("\nExtension %d:\n", i+1)
		printInfo("  Precursor: %s..%s  %s\n", ext.Precursor.Addr, ext.Precursor.End, humanize.IBytes(ext.Precursor.Size))
		printInfo("  Result:    %s..%s  %s\n", ext.Result.Addr, ext.Result.End, humanize.IBytes(ext.Result.Size))
		printInfo("  Excess:    %s..%s  %s\n", ext.Excess.Addr, ext.Excess.End, humanize.IBytes(ext.Excess.Size))
	}
	if report.Released {
		printInfo("\nReleased %s back to the system\n", humanize.IBytes(report.Stats.Released))
	}
	printVerbose("\n%v\n", report.Stats)
	return nil
}
