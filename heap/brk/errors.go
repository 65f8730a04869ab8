package brk

import "errors"

var (
	// ErrBrkFailure indicates the system declined to move the break, or
	// that the move would overflow, drop below the initial break or exceed
	// the configured heap limit.
	ErrBrkFailure = errors.New("brk: cannot move program break")

	// ErrReleaseRejected indicates a block that does not end at the current
	// break. The caller keeps the block.
	ErrReleaseRejected = errors.New("brk: block is not adjacent to the break")

	// ErrReleasedLock is the panic value for using a Lock after Unlock.
	ErrReleasedLock = errors.New("brk: lock already released")
)
