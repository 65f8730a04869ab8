package brk

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/joshuapare/brkit/heap/block"
	"github.com/joshuapare/brkit/heap/fail"
	"github.com/joshuapare/brkit/internal/assert"
	"github.com/joshuapare/brkit/internal/checked"
	"github.com/joshuapare/brkit/internal/logger"
)

// Lock is exclusive access to a State. It is not safe to share between
// goroutines and must not be used after Unlock.
type Lock struct {
	s    *State
	held bool
}

// Lock blocks until the State is free and returns the handle for it.
func (s *State) Lock() *Lock {
	s.mu.Lock()
	return &Lock{s: s, held: true}
}

// Do runs fn with the lock held and releases it on every path, panics
// included.
func (s *State) Do(fn func(*Lock) error) error {
	l := s.Lock()
	defer l.Unlock()
	return fn(l)
}

// Unlock releases the State. Further calls are no-ops.
func (l *Lock) Unlock() {
	if !l.held {
		return
	}
	l.held = false
	l.s.mu.Unlock()
}

func (l *Lock) state() *State {
	if !l.held {
		panic(ErrReleasedLock)
	}
	return l.s
}

// CurrentBrk returns the current break, querying the system only the first
// time.
func (l *Lock) CurrentBrk() uintptr {
	return l.state().brk()
}

// Sbrk moves the break by delta bytes and returns the previous break.
//
// A zero delta only reads the break. A move that would overflow, go below
// the initial break or past the heap limit fails without reaching the
// system. Any failure returns ErrBrkFailure and leaves the cached break
// unchanged.
func (l *Lock) Sbrk(delta int) (uintptr, error) {
	s := l.state()
	cur := s.brk()
	if delta == 0 {
		return cur, nil
	}

	expected, ok := checked.Offset(cur, delta)
	switch {
	case !ok:
		return 0, s.failed(cur, delta, "address overflow")
	case expected < s.origin:
		return 0, s.failed(cur, delta, "below initial break")
	case s.cfg.HeapLimit != 0 && expected-s.origin > s.cfg.HeapLimit:
		return 0, s.failed(cur, delta, "heap limit "+humanize.IBytes(uint64(s.cfg.HeapLimit)))
	}

	s.stats.Calls++
	if got := s.sys.Brk(expected); got != expected {
		return 0, s.failed(cur, delta, fmt.Sprintf("system left break at 0x%x", got))
	}

	s.current = expected
	if delta > 0 {
		s.stats.Grown += uint64(delta)
	} else {
		s.stats.Released += uint64(cur - expected)
	}
	logger.Debug("brk: moved break",
		"from", fmt.Sprintf("0x%x", cur),
		"to", fmt.Sprintf("0x%x", expected),
		"delta", delta)
	return cur, nil
}

func (s *State) failed(cur uintptr, delta int, why string) error {
	s.stats.Failures++
	logger.Warn("brk: break adjustment failed", "break", fmt.Sprintf("0x%x", cur), "delta", delta, "reason", why)
	return fmt.Errorf("%w: 0x%x%+d: %s", ErrBrkFailure, cur, delta, why)
}

// CanonicalBrk extends the break for a request of size bytes aligned to
// align, a power of two. The extension is size + Config.ExtraBrk(size) +
// align bytes, split into the misaligned precursor, the aligned result of
// exactly size bytes and the trailing excess.
//
// CanonicalBrk has no failure result: when the break cannot be extended it
// escalates to the out-of-memory handler, which does not return.
func (l *Lock) CanonicalBrk(size, align uintptr) (precursor, result, excess block.Block) {
	s := l.state()
	if !block.IsPow2(align) {
		panic(fmt.Sprintf("brk: alignment %d is not a power of two", align))
	}

	extra := s.cfg.ExtraBrk(size)
	oversized, ok := checked.Sum(size, extra, align)
	delta, fits := checked.ToInt(oversized)
	if !ok || !fits {
		logger.Warn("brk: canonical request overflows", "size", size, "align", align)
		fail.Escalate(s.oom, size)
	}

	prev, err := l.Sbrk(delta)
	if err != nil {
		logger.Warn("brk: cannot extend break", "size", humanize.IBytes(uint64(size)), "error", err)
		fail.Escalate(s.oom, size)
	}

	raw := block.FromRawParts(prev, oversized)
	precursor, rest, ok := raw.Align(align)
	assert.That(ok, "brk: no aligned address in %v", raw)
	result, excess = rest.Split(size)

	assert.That(precursor.End() == result.Addr() && result.End() == excess.Addr(),
		"brk: canonical blocks out of order: %v %v %v", precursor, result, excess)
	assert.That(result.AlignedTo(align), "brk: result %v not aligned to %d", result, align)
	assert.That(precursor.Size()+result.Size()+excess.Size() == oversized,
		"brk: canonical blocks do not add up to %d", oversized)

	logger.Internal("brk: canonical extension",
		"precursor", precursor, "result", result, "excess", excess)
	return precursor, result, excess
}

// Release gives b back to the system when it ends exactly at the current
// break, shrinking the break by b's size. Otherwise it returns
// ErrReleaseRejected and the caller keeps b.
func (l *Lock) Release(b block.Block) error {
	s := l.state()
	cur := s.brk()
	if b.End() != cur {
		return fmt.Errorf("%w: %v, break at 0x%x", ErrReleaseRejected, b, cur)
	}
	size, ok := checked.ToInt(b.Size())
	if b.Addr() < s.origin || !ok {
		return fmt.Errorf("%w: %v reaches below initial break 0x%x", ErrReleaseRejected, b, s.origin)
	}
	if b.IsEmpty() {
		return nil
	}

	if _, err := l.Sbrk(-size); err != nil {
		assert.That(false, "brk: releasing %v failed: %v", b, err)
		return err
	}
	logger.Debug("brk: released block", "block", b)
	return nil
}
