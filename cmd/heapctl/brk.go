package main

import (
	"fmt"
	"os"

	sigar "github.com/cloudfoundry/gosigar"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newBrkCmd())
}

func newBrkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "brk",
		Short: "Show the program break and process memory",
		Long: `The brk command prints the current program break of heapctl itself (or
of the simulated break with --sim) together with the process memory
counters reported by the operating system.

Example:
  heapctl brk
  heapctl brk --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrk()
		},
	}
	return cmd
}

// BreakInfo is the output of the brk command.
type BreakInfo struct {
	Break     string `json:"break"`
	Simulated bool   `json:"simulated"`
	Config    string `json:"config"`
	HeapLimit uint64 `json:"heap_limit,omitempty"`

	Resident    uint64 `json:"resident,omitempty"`
	VirtualSize uint64 `json:"virtual_size,omitempty"`
	PageFaults  uint64 `json:"page_faults,omitempty"`
}

func runBrk() error {
	st, sim, err := newState()
	if err != nil {
		return err
	}
	l := st.Lock()
	cur := l.CurrentBrk()
	l.Unlock()

	info := BreakInfo{
		Break:     hex(cur),
		Simulated: sim != nil,
		Config:    st.Config().String(),
		HeapLimit: uint64(st.Config().HeapLimit),
	}

	mem := sigar.ProcMem{}
	if err := mem.Get(os.Getpid()); err != nil {
		printVerbose("Process memory unavailable: %v\n", err)
	} else {
		info.Resident = mem.Resident
		info.VirtualSize = mem.Size
		info.PageFaults = mem.PageFaults
	}

	if jsonOut {
		return printJSON(info)
	}

	kind := "process"
	if info.Simulated {
		kind = "simulated"
	}
	printInfo("\nProgram Break:\n")
	printInfo("  Break:  %s (%s)\n", info.Break, kind)
	printInfo("  Config: %s\n", info.Config)
	if info.HeapLimit != 0 {
		printInfo("  Limit:  %s\n", humanize.IBytes(info.HeapLimit))
	}
	if info.Resident != 0 {
		printInfo("\nProcess Memory:\n")
		printInfo("  Resident:    %s\n", humanize.IBytes(info.Resident))
		printInfo("  Virtual:     %s\n", humanize.IBytes(info.VirtualSize))
		printInfo("  Page faults: %s\n", count(info.PageFaults))
	}
	return nil
}

// parseSize accepts plain byte counts and humanized sizes such as "64KiB".
func parseSize(s string) (uintptr, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if uint64(uintptr(n)) != n {
		return 0, fmt.Errorf("size %q exceeds the address space", s)
	}
	return uintptr(n), nil
}
