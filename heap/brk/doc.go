// Package brk arbitrates the program break.
//
// A State caches the current break and serializes every adjustment behind a
// single mutex. Break mutations require a *Lock, obtained with State.Lock or
// State.Do, so no two adjustments can interleave:
//
//	l := st.Lock()
//	defer l.Unlock()
//	pre, res, exc := l.CanonicalBrk(64, 16)
//
// The break grows in "canonical" chunks: an oversized extension (request,
// configured slack and alignment padding) split into an alignment precursor,
// the aligned result and the trailing excess:
//
//	prev break                                           new break
//	|-- precursor --|------ result ------|------ excess ------|
//	                ^ aligned            size bytes
//
// The precursor and excess are free memory the caller is expected to keep in
// its free pool. Release hands a free block back to the system when it ends
// exactly at the break.
//
// Default returns the process-wide State over the real break; tests and
// tooling build their own with New over a syscalls.Sim.
package brk
