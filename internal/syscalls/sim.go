package syscalls

import "sync"

// DefaultSimBase is the initial break of a Sim created with a zero base.
// It is page aligned and far from zero so address arithmetic bugs show up
// as obviously wrong values.
const DefaultSimBase uintptr = 0x10000000

// Sim is an in-process Breaker over a simulated data segment
// [base, base+capacity). It never maps memory: addresses it hands out are
// bookkeeping values only, which is what tests, tooling and platforms
// without brk(2) need.
//
// Sim is safe for concurrent use.
type Sim struct {
	mu       sync.Mutex
	base     uintptr
	limit    uintptr
	cur      uintptr
	calls    int
	failNext int
}

var _ Breaker = (*Sim)(nil)

// NewSim returns a Sim whose break starts at base (DefaultSimBase if zero)
// and may grow by at most capacity bytes.
func NewSim(base, capacity uintptr) *Sim {
	if base == 0 {
		base = DefaultSimBase
	}
	limit := base + capacity
	if limit < base {
		limit = ^uintptr(0)
	}
	return &Sim{base: base, limit: limit, cur: base}
}

// Brk follows the brk(2) contract: it moves the break to addr when addr lies
// within the simulated segment and reports the break in effect afterwards.
func (s *Sim) Brk(addr uintptr) uintptr {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if addr == 0 {
		return s.cur
	}
	if s.failNext > 0 {
		s.failNext--
		return s.cur
	}
	if addr < s.base || addr > s.limit {
		return s.cur
	}
	s.cur = addr
	return s.cur
}

// FailNext makes the next n non-query Brk calls fail.
func (s *Sim) FailNext(n int) {
	s.mu.Lock()
	s.failNext = n
	s.mu.Unlock()
}

// Current returns the simulated break without counting a call.
func (s *Sim) Current() uintptr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// Base returns the initial break.
func (s *Sim) Base() uintptr { return s.base }

// Limit returns the highest break the Sim accepts.
func (s *Sim) Limit() uintptr { return s.limit }

// Used returns the number of bytes between the initial and current break.
func (s *Sim) Used() uintptr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur - s.base
}

// Calls returns how many times Brk has been invoked.
func (s *Sim) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
