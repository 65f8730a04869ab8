// Package syscalls is the break-adjustment shim used by heap/brk.
//
// A Breaker follows the raw brk(2) contract rather than the libc sbrk one:
// Brk(addr) asks the kernel to move the program break to addr and reports
// the break in effect afterwards. On failure the break is left unchanged and
// the unchanged value is reported, so a caller detects failure by comparing
// the result with the address it asked for. Brk(0) never moves the break and
// is the way to query it.
package syscalls

// Breaker moves the program break.
type Breaker interface {
	Brk(addr uintptr) uintptr
}

// BreakerFunc adapts a function to the Breaker interface.
type BreakerFunc func(addr uintptr) uintptr

// Brk calls f(addr).
func (f BreakerFunc) Brk(addr uintptr) uintptr { return f(addr) }

// System is the Breaker backed by the operating system.
type System struct{}

var _ Breaker = System{}
