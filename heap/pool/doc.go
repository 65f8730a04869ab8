// Package pool keeps the free blocks of the heap in an address-ordered skip
// list and finds blocks matching arbitrary criteria in expected O(log n).
//
// # Structure
//
// Every free block lives in a node owned by the pool's Arena. Nodes are
// linked per level by shortcuts: level 0 links every node in increasing
// address order, each higher level links a random subsequence of the level
// below, and a head sentinel precedes all nodes at every level. A shortcut
// also records how many level-0 steps it covers, which gives positional
// access (At, Seek.Index) without walking the list.
//
//	lv 2  head ---------------------------> [0x60] ---------------------> NIL
//	lv 1  head ----------> [0x30] --------> [0x60] --------> [0x90] ----> NIL
//	lv 0  head -> [0x10] -> [0x30] -> [0x40] -> [0x60] -> [0x70] -> [0x90] -> NIL
//
// Links are arena indices, never pointers, so removing a node cannot leave
// another node holding a dangling reference.
//
// # Searching
//
// A Searcher drives the descent. On every level above 0 the search follows
// shortcuts while Refine reports false for the node ahead, then drops one
// level. On level 0 it walks node by node and stops at the first node for
// which IsMatch reports true. The result is a Seek: the matched block plus
// the predecessor of that block on every level (the back-look), which is
// exactly the set of shortcuts Insert and Remove have to rewrite.
//
// Refine must be monotonic in address order: once it reports true for a
// block it must report true for every later block. Searchers that can also
// tell when no later block can match implement Bounder, which ends a missing
// search early.
//
// # Thread Safety
//
// A Pool is not safe for concurrent use. Searches are read-only and may run
// concurrently with each other, but never with Insert, Remove or Replace.
// Callers serialize access externally (heap/alloc holds one lock around its
// pool).
package pool
