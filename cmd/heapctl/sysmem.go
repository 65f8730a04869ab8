package main

import (
	"fmt"

	sigar "github.com/cloudfoundry/gosigar"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/brkit/heap/config"
)

func init() {
	rootCmd.AddCommand(newSysmemCmd())
}

func newSysmemCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sysmem",
		Short: "Show system memory and the derived heap limit",
		Long: `The sysmem command reports physical memory as seen by the operating
system and the heap limit the "system" break policy derives from it.

Example:
  heapctl sysmem
  heapctl sysmem --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSysmem()
		},
	}
	return cmd
}

// SystemMemory is the output of the sysmem command.
type SystemMemory struct {
	Total      uint64 `json:"total"`
	Used       uint64 `json:"used"`
	Free       uint64 `json:"free"`
	ActualFree uint64 `json:"actual_free"`
	ActualUsed uint64 `json:"actual_used"`
	HeapLimit  uint64 `json:"heap_limit"`
}

func runSysmem() error {
	mem := sigar.Mem{}
	if err := mem.Get(); err != nil {
		return fmt.Errorf("failed to read system memory: %w", err)
	}
	out := SystemMemory{
		Total:      mem.Total,
		Used:       mem.Used,
		Free:       mem.Free,
		ActualFree: mem.ActualFree,
		ActualUsed: mem.ActualUsed,
		HeapLimit:  uint64(config.System().HeapLimit),
	}

	if jsonOut {
		return printJSON(out)
	}

	printInfo("\nSystem Memory:\n")
	printInfo("  Total:       %s\n", humanize.IBytes(out.Total))
	printInfo("  Used:        %s\n", humanize.IBytes(out.Used))
	printInfo("  Free:        %s\n", humanize.IBytes(out.Free))
	printInfo("  Available:   %s\n", humanize.IBytes(out.ActualFree))
	printInfo("\nHeap limit (system policy): %s\n", humanize.IBytes(out.HeapLimit))
	return nil
}
