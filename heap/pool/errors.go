package pool

import "errors"

var (
	// ErrSearchMiss indicates that no block satisfied the searcher.
	ErrSearchMiss = errors.New("pool: no matching block")

	// ErrOverlap indicates an inserted block overlapping a block already in the pool.
	ErrOverlap = errors.New("pool: block overlaps a free block")

	// ErrEmptyBlock indicates an attempt to insert a zero-size block.
	ErrEmptyBlock = errors.New("pool: empty block")

	// ErrArenaFull indicates the arena has no room for another node.
	ErrArenaFull = errors.New("pool: arena full")

	// ErrStaleSeek indicates a Seek taken before the pool was last modified,
	// or taken from another pool.
	ErrStaleSeek = errors.New("pool: stale seek")

	// ErrCorrupt indicates a broken structural invariant found by Verify.
	ErrCorrupt = errors.New("pool: corrupt skip list")
)
