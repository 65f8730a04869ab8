//go:build linux

package syscalls

import (
	"golang.org/x/sys/unix"
)

// Supported reports whether System can move the program break on this platform.
const Supported = true

// Brk issues brk(2). The Go runtime allocates with mmap, so the data segment
// break is free for this process to manage.
func (System) Brk(addr uintptr) uintptr {
	r, _, _ := unix.Syscall(unix.SYS_BRK, addr, 0, 0)
	return r
}
