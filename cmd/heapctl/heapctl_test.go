package main

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/brkit/heap/fail"
	"github.com/joshuapare/brkit/internal/syscalls"
)

func TestBrkCommand(t *testing.T) {
	resetFlags()

	output, err := captureOutput(t, runBrk)
	require.NoError(t, err)
	assertContains(t, output, []string{"Program Break", fmt.Sprintf("0x%x", syscalls.DefaultSimBase), "simulated", "Balanced"})

	jsonOut = true
	output, err = captureOutput(t, runBrk)
	require.NoError(t, err)
	var info BreakInfo
	decodeJSON(t, output, &info)
	require.True(t, info.Simulated)
	require.Equal(t, fmt.Sprintf("0x%x", syscalls.DefaultSimBase), info.Break)
}

func TestGrowCommand(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		align       string
		count       int
		release     bool
		config      string
		wantErr     bool
		wantContain []string
	}{
		{
			name:        "three small extensions",
			args:        []string{"20"},
			align:       "1",
			count:       3,
			wantContain: []string{"Extension 1", "Extension 3", "Result"},
		},
		{
			name:        "aligned and released",
			args:        []string{"64KiB"},
			align:       "4096",
			count:       2,
			release:     true,
			config:      "compact",
			wantContain: []string{"Released", fmt.Sprintf("0x%x -> 0x%x", syscalls.DefaultSimBase, syscalls.DefaultSimBase)},
		},
		{name: "zero size", args: []string{"0"}, align: "16", count: 1, wantErr: true},
		{name: "bad size", args: []string{"lots"}, align: "16", count: 1, wantErr: true},
		{name: "bad alignment", args: []string{"64"}, align: "24", count: 1, wantErr: true},
		{name: "bad config", args: []string{"64"}, align: "16", count: 1, config: "huge", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			growAlign = tt.align
			growCount = tt.count
			growRelease = tt.release
			if tt.config != "" {
				configName = tt.config
			}

			output, err := captureOutput(t, func() error { return runGrow(tt.args) })
			if (err != nil) != tt.wantErr {
				t.Fatalf("runGrow() error = %v, wantErr %v", err, tt.wantErr)
			}
			assertContains(t, output, tt.wantContain)
		})
	}
}

func TestGrowCommand_JSONOrdering(t *testing.T) {
	resetFlags()
	jsonOut = true
	growAlign = "1"
	growCount = 3

	output, err := captureOutput(t, func() error { return runGrow([]string{"20"}) })
	require.NoError(t, err)

	var report GrowReport
	decodeJSON(t, output, &report)
	require.Len(t, report.Extensions, 3)
	for _, ext := range report.Extensions {
		require.Equal(t, uint64(20), ext.Result.Size)
		require.Equal(t, ext.Precursor.End, ext.Result.Addr)
		require.Equal(t, ext.Result.End, ext.Excess.Addr)
	}
	for i := 1; i < len(report.Extensions); i++ {
		require.Equal(t, report.Extensions[i-1].Excess.End, report.Extensions[i].Precursor.Addr)
	}
}

func TestGrowCommand_OutOfMemory(t *testing.T) {
	resetFlags()
	simCapacity = "64KiB"

	_, err := captureOutput(t, func() error { return runGrow([]string{"1MiB"}) })
	require.ErrorIs(t, err, fail.ErrOutOfMemory)

	var oom *fail.OOMError
	require.ErrorAs(t, err, &oom)
	require.Equal(t, uintptr(1<<20), oom.Size)
}

func TestSimulateCommand(t *testing.T) {
	for _, cfg := range []string{"balanced", "compact", "generous"} {
		t.Run(cfg, func(t *testing.T) {
			resetFlags()
			configName = cfg
			simVerify = 100
			jsonOut = true

			output, err := captureOutput(t, runSimulate)
			require.NoError(t, err)

			var report SimulationReport
			decodeJSON(t, output, &report)
			require.Equal(t, 2000, report.Ops)
			require.Equal(t, report.Alloc.AllocCalls, report.Alloc.AllocFastPath+report.Alloc.AllocSlowPath)
			require.LessOrEqual(t, report.Alloc.FreeBlocks, 1, "everything freed coalesces")
			require.Equal(t, report.FinalHeap, report.Alloc.FreeBytes)
			require.LessOrEqual(t, report.PeakLive, report.PeakHeap)
		})
	}
}

func TestSimulateCommand_Text(t *testing.T) {
	resetFlags()
	simOps = 500

	output, err := captureOutput(t, runSimulate)
	require.NoError(t, err)
	assertContains(t, output, []string{"Simulation (500 ops", "Allocator:", "Break:", "verified"})
}

func TestSimulateCommand_BadFlags(t *testing.T) {
	resetFlags()
	simMaxAlign = "48"
	_, err := captureOutput(t, runSimulate)
	require.Error(t, err)

	resetFlags()
	simFreePct = 101
	_, err = captureOutput(t, runSimulate)
	require.Error(t, err)
}

func TestSysmemCommand(t *testing.T) {
	resetFlags()
	jsonOut = true

	output, err := captureOutput(t, runSysmem)
	if err != nil {
		t.Skipf("system memory unavailable: %v", err)
	}
	var mem SystemMemory
	decodeJSON(t, output, &mem)
	require.NotZero(t, mem.Total)
	require.Equal(t, mem.Total, mem.HeapLimit)
}

func TestSetupLogging(t *testing.T) {
	resetFlags()
	logLevel = "chatty"
	require.Error(t, setupLogging(nil, nil))

	resetFlags()
	require.NoError(t, setupLogging(nil, nil))
}

func TestCount(t *testing.T) {
	require.Equal(t, "7", count(7))
	require.Equal(t, "12,345", count(12345))
	require.Equal(t, "1,000,000", count(uint64(1000000)))
}
