// Package alloc is a reference allocator front-end over the free-block pool
// and the program break.
//
// # Overview
//
// Allocator keeps every free byte of the heap in an address-ordered
// pool.Pool and only moves the break when no free block can hold a request:
//
//   - Alloc(size, align): first-fit search; on a miss the break is extended
//     by a canonical chunk and the leftover precursor and excess become free
//   - Free(b): returns b to the pool, coalescing with both neighbours, and
//     hands trailing space back to the system once it reaches the configured
//     release threshold
//
// # Usage Example
//
//	st, err := brk.New(syscalls.NewSim(0, 1<<30))
//	if err != nil {
//	    return err
//	}
//	a := alloc.New(st)
//
//	b, err := a.Alloc(256, 16)
//	if err != nil {
//	    return err
//	}
//	// use [b.Addr(), b.End())
//	err = a.Free(b)
//
// # Out of Memory
//
// When the break cannot be extended Alloc does not return an error: the
// break state escalates to its out-of-memory handler (fail.Abort unless
// configured with brk.WithOOMHandler), which never returns.
//
// # Thread Safety
//
// Allocator is safe for concurrent use. One allocator-wide mutex guards the
// pool; break adjustments additionally take the break lock, always after the
// allocator mutex.
package alloc
