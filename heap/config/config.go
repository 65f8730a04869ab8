// Package config holds the break-extension policy: how much headroom to
// request beyond each allocation so that break system calls stay rare, and
// the limits the break arbiter and allocator front-end honour.
package config

import (
	"errors"
	"fmt"
	"strings"

	sigar "github.com/cloudfoundry/gosigar"

	"github.com/joshuapare/brkit/heap/block"
	"github.com/joshuapare/brkit/internal/checked"
)

// ErrInvalid indicates a configuration that cannot be used.
var ErrInvalid = errors.New("config: invalid configuration")

// Config is the break-extension policy.
type Config struct {
	// Name for this configuration (for logging and tooling)
	Name string

	// Extra slack is Multiplier×size clamped to [MinExtra, MaxExtra]
	MinExtra   uintptr
	MaxExtra   uintptr
	Multiplier uintptr

	// PageSize rounds size+extra up to a page multiple (0 disables rounding)
	PageSize uintptr

	// HeapLimit caps how far the break may move above its origin (0 = no cap)
	HeapLimit uintptr

	// ReleaseThreshold is the smallest trailing free block the allocator
	// front-end hands back to the OS
	ReleaseThreshold uintptr
}

// Predefined configurations.
var (
	// Balanced: moderate headroom, page rounded.
	ConfigBalanced = Config{
		Name:             "Balanced",
		MinExtra:         16 << 10,
		MaxExtra:         1 << 20,
		Multiplier:       2,
		PageSize:         4096,
		ReleaseThreshold: 256 << 10,
	}

	// Compact: small headroom, releases eagerly. Suits short-lived tools.
	ConfigCompact = Config{
		Name:             "Compact",
		MinExtra:         0,
		MaxExtra:         64 << 10,
		Multiplier:       1,
		PageSize:         4096,
		ReleaseThreshold: 16 << 10,
	}

	// Generous: large headroom, rarely releases. Suits allocation-heavy servers.
	ConfigGenerous = Config{
		Name:             "Generous",
		MinExtra:         256 << 10,
		MaxExtra:         16 << 20,
		Multiplier:       4,
		PageSize:         4096,
		ReleaseThreshold: 4 << 20,
	}

	// Default configuration (used if none specified).
	Default = ConfigBalanced
)

// Presets lists the predefined configurations.
var Presets = []Config{ConfigBalanced, ConfigCompact, ConfigGenerous}

// Lookup returns the predefined configuration with the given name, ignoring
// case. "system" selects System().
func Lookup(name string) (Config, error) {
	if strings.EqualFold(name, "system") {
		return System(), nil
	}
	for _, c := range Presets {
		if strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	return Config{}, fmt.Errorf("%w: unknown configuration %q", ErrInvalid, name)
}

// ExtraBrk returns how many bytes to request beyond size when extending the
// break for an allocation of size bytes. The result never shrinks the
// request and is a pure function of c and size.
func (c Config) ExtraBrk(size uintptr) uintptr {
	extra, ok := checked.Mul(size, c.Multiplier)
	if !ok {
		extra = c.MaxExtra
	}
	extra = max(extra, c.MinExtra)
	if c.MaxExtra >= c.MinExtra {
		extra = min(extra, c.MaxExtra)
	}

	if c.PageSize > 1 {
		total, ok := checked.Add(size, extra)
		if !ok {
			return extra
		}
		rounded := block.AlignUp(total, c.PageSize)
		if rounded >= total {
			extra = rounded - size
		}
	}
	return extra
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	if c.PageSize != 0 && !block.IsPow2(c.PageSize) {
		return fmt.Errorf("%w: page size %d is not a power of two", ErrInvalid, c.PageSize)
	}
	if c.MaxExtra < c.MinExtra {
		return fmt.Errorf("%w: max extra %d below min extra %d", ErrInvalid, c.MaxExtra, c.MinExtra)
	}
	return nil
}

// String returns the configuration name.
func (c Config) String() string {
	if c.Name == "" {
		return "Custom"
	}
	return c.Name
}

// System returns Default with HeapLimit set to the total physical memory of
// the machine, so a runaway allocator fails with out-of-memory instead of
// driving the host into swap.
func System() Config {
	c := Default
	c.Name = "System"
	if total, _, _ := getsysmem(); total > 0 && uint64(uintptr(total)) == total {
		c.HeapLimit = uintptr(total)
	}
	return c
}

func getsysmem() (total, used, free uint64) {
	mem := sigar.Mem{}
	if err := mem.Get(); err != nil {
		return 0, 0, 0
	}
	return mem.Total, mem.Used, mem.Free
}
