package alloc

import "errors"

var (
	// ErrZeroSize indicates a request for, or a free of, zero bytes.
	ErrZeroSize = errors.New("alloc: zero size")

	// ErrBadAlign indicates an alignment that is not a power of two.
	ErrBadAlign = errors.New("alloc: alignment must be a power of two")

	// ErrDoubleFree indicates a freed block overlapping memory that is
	// already free.
	ErrDoubleFree = errors.New("alloc: block overlaps free memory")
)
