package brk

import (
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/joshuapare/brkit/heap/config"
	"github.com/joshuapare/brkit/heap/fail"
	"github.com/joshuapare/brkit/internal/logger"
	"github.com/joshuapare/brkit/internal/syscalls"
)

// State is the break cache shared by everything that moves one program
// break. All access goes through a Lock.
type State struct {
	mu sync.Mutex

	sys syscalls.Breaker
	cfg config.Config
	oom fail.Handler

	current uintptr // cached break, valid when known
	known   bool
	origin  uintptr // break observed first; never moved below

	stats Stats
}

// Stats counts what a State did.
type Stats struct {
	Calls     uint64 // shim invocations, queries included
	CacheHits uint64 // break reads served from the cache
	Failures  uint64 // rejected or failed adjustments

	Grown    uint64 // bytes added to the break
	Released uint64 // bytes given back

	Origin  uintptr // first observed break (0 before the first query)
	Current uintptr // cached break (0 before the first query)
}

// Used returns the number of bytes between the origin and the current break.
func (s Stats) Used() uintptr { return s.Current - s.Origin }

func (s Stats) String() string {
	return fmt.Sprintf("break 0x%x (%s above origin 0x%x), %d calls, %d cache hits, %d failures",
		s.Current, humanize.IBytes(uint64(s.Used())), s.Origin, s.Calls, s.CacheHits, s.Failures)
}

type options struct {
	cfg config.Config
	oom fail.Handler
}

// Option configures a State.
type Option func(*options)

// WithConfig sets the break-extension policy. The default is config.Default.
func WithConfig(cfg config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithOOMHandler sets the handler CanonicalBrk escalates to when the break
// cannot be extended. The default is fail.Abort.
func WithOOMHandler(h fail.Handler) Option {
	return func(o *options) { o.oom = h }
}

// New creates a State moving the break through sys. The break is not
// queried until first needed.
func New(sys syscalls.Breaker, opts ...Option) (*State, error) {
	o := options{cfg: config.Default, oom: fail.Abort}
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}
	if o.oom == nil {
		o.oom = fail.Abort
	}
	return &State{sys: sys, cfg: o.cfg, oom: o.oom}, nil
}

// Default returns the process-wide State over the real program break,
// configured with config.System.
var Default = sync.OnceValue(func() *State {
	s, err := New(syscalls.System{}, WithConfig(config.System()))
	if err != nil {
		panic(err)
	}
	return s
})

// Config returns the break-extension policy.
func (s *State) Config() config.Config { return s.cfg }

// Stats returns a snapshot of the counters.
func (s *State) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.Origin, st.Current = s.origin, s.current
	return st
}

// Sbrk is the lock-taking form of Lock.Sbrk for callers that do not hold the
// lock. Like sbrk(2) it returns the previous break, or ^uintptr(0) on
// failure.
func (s *State) Sbrk(delta int) uintptr {
	l := s.Lock()
	defer l.Unlock()

	prev, err := l.Sbrk(delta)
	if err != nil {
		return ^uintptr(0)
	}
	return prev
}

// brk reads the break, querying the shim on first use.
func (s *State) brk() uintptr {
	if s.known {
		s.stats.CacheHits++
		return s.current
	}
	s.stats.Calls++
	s.current = s.sys.Brk(0)
	s.origin = s.current
	s.known = true
	logger.Debug("brk: initial break", "break", fmt.Sprintf("0x%x", s.current))
	return s.current
}
