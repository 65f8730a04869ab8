//go:build !linux

package syscalls

// Supported reports whether System can move the program break on this platform.
const Supported = false

// Brk reports a zero break and never moves it, so every extension request
// is seen as a failure by the caller.
//
// Platforms without a usable brk(2) run the allocator over Sim instead.
func (System) Brk(uintptr) uintptr {
	return 0
}
