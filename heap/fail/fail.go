// Package fail holds the out-of-memory escalation used when the program
// break cannot be extended for a request that has no other memory source.
package fail

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/joshuapare/brkit/internal/logger"
)

// ErrOutOfMemory is the root of every out-of-memory escalation.
var ErrOutOfMemory = errors.New("fail: out of memory")

// OOMError carries the size of the request that could not be served.
type OOMError struct {
	Size uintptr
}

func (e *OOMError) Error() string {
	return fmt.Sprintf("%v: could not obtain %s", ErrOutOfMemory, humanize.IBytes(uint64(e.Size)))
}

func (e *OOMError) Unwrap() error { return ErrOutOfMemory }

// Handler is invoked on out-of-memory. It must not return; Escalate enforces
// that by panicking if it does.
type Handler func(size uintptr)

// Abort is the default handler: it logs the failure and panics with an
// *OOMError.
func Abort(size uintptr) {
	logger.Error("out of memory", "size", size, "human", humanize.IBytes(uint64(size)))
	panic(&OOMError{Size: size})
}

// Escalate runs h (Abort when nil) for a failed request of size bytes and
// never returns.
func Escalate(h Handler, size uintptr) {
	if h == nil {
		h = Abort
	}
	h(size)
	panic(&OOMError{Size: size})
}
