package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/brkit/heap/brk"
	"github.com/joshuapare/brkit/heap/config"
	"github.com/joshuapare/brkit/heap/fail"
	"github.com/joshuapare/brkit/internal/logger"
	"github.com/joshuapare/brkit/internal/syscalls"
)

var (
	// Global flags
	verbose     bool
	quiet       bool
	jsonOut     bool
	useSim      bool
	simCapacity string
	configName  string
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:   "heapctl",
	Short: "Inspect and exercise the program break",
	Long: `heapctl reports the program break and system memory, extends the break
in canonical chunks and drives the reference allocator through simulated
workloads. Every command can run against a simulated break (--sim) instead
of the real one.`,
	Version:           "0.1.0",
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().
		BoolVar(&useSim, "sim", false, "Use a simulated break instead of the process break")
	rootCmd.PersistentFlags().
		StringVar(&simCapacity, "sim-capacity", "1GiB", "Address space of the simulated break")
	rootCmd.PersistentFlags().
		StringVarP(&configName, "config", "c", "balanced", "Break policy: balanced, compact, generous or system")
	rootCmd.PersistentFlags().
		StringVar(&logLevel, "log-level", "", "Log library events to stderr: internal, debug, info, warn, error")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogging(*cobra.Command, []string) error {
	if logLevel == "" {
		if !verbose {
			return nil
		}
		logLevel = "debug"
	}
	lvl, ok := logger.ParseLevel(logLevel)
	if !ok {
		return fmt.Errorf("unknown log level %q", logLevel)
	}
	return logger.Init(logger.Options{Enabled: true, Level: lvl, JSON: jsonOut, Writer: os.Stderr})
}

// errOOM is raised by the OOM handler of command break states so the
// command can report the failure instead of crashing.
type errOOM struct{ size uintptr }

// newState builds the break state a command works on. The simulated break is
// used when requested or when the platform has no brk(2).
func newState() (*brk.State, *syscalls.Sim, error) {
	cfg, err := config.Lookup(configName)
	if err != nil {
		return nil, nil, err
	}

	var sys syscalls.Breaker = syscalls.System{}
	var sim *syscalls.Sim
	if useSim || !syscalls.Supported {
		capacity, err := humanize.ParseBytes(simCapacity)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid --sim-capacity: %w", err)
		}
		sim = syscalls.NewSim(0, uintptr(capacity))
		sys = sim
		printVerbose("Using simulated break at 0x%x (%s)\n", sim.Base(), humanize.IBytes(capacity))
	}

	st, err := brk.New(sys, brk.WithConfig(cfg), brk.WithOOMHandler(func(size uintptr) {
		panic(errOOM{size: size})
	}))
	if err != nil {
		return nil, nil, err
	}
	return st, sim, nil
}

// recoverOOM turns an out-of-memory escalation raised by a newState break
// state into an error.
func recoverOOM(err *error) {
	r := recover()
	if r == nil {
		return
	}
	oom, ok := r.(errOOM)
	if !ok {
		panic(r)
	}
	*err = &fail.OOMError{Size: oom.size}
	logger.Debug("heapctl: recovered out-of-memory", "size", oom.size)
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// numbers formats counts with digit grouping.
var numbers = message.NewPrinter(language.English)

// count renders a counter, e.g. 12,345.
func count[T ~int | ~int64 | ~uint64](n T) string { return numbers.Sprintf("%d", n) }

// hex renders an address the way every command prints it.
func hex(addr uintptr) string { return fmt.Sprintf("0x%x", addr) }
