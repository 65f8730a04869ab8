package pool

import (
	"math"

	"github.com/joshuapare/brkit/heap/block"
)

// NodeRef is the arena index of a node.
type NodeRef int32

const (
	// nilRef marks the end of a level.
	nilRef NodeRef = -1

	// headRef is the sentinel preceding every node on every level.
	headRef NodeRef = 0
)

// Arena owns the storage of every node of one pool. Slots of removed nodes
// are recycled through a free list; slot 0 always holds the head sentinel.
type Arena struct {
	nodes    []node
	freeList []NodeRef
	live     int
	capacity int
}

// NewArena creates an arena holding at most capacity nodes besides the head
// sentinel. A capacity of zero means unbounded.
func NewArena(capacity int) *Arena {
	a := &Arena{capacity: capacity}
	a.Reset()
	return a
}

// Len returns the number of live nodes, excluding the head sentinel.
func (a *Arena) Len() int { return a.live }

// Cap returns the node capacity (0 when unbounded).
func (a *Arena) Cap() int { return a.capacity }

// Slots returns the number of node slots ever created, live or recycled.
func (a *Arena) Slots() int { return len(a.nodes) - 1 }

// Reset drops every node and reinstalls an empty head sentinel.
func (a *Arena) Reset() {
	a.nodes = append(a.nodes[:0], newNode(block.Block{}, MaxLevel))
	a.freeList = a.freeList[:0]
	a.live = 0
}

func (a *Arena) alloc(blk block.Block, height int) (NodeRef, error) {
	if a.capacity > 0 && a.live >= a.capacity {
		return nilRef, ErrArenaFull
	}

	var ref NodeRef
	if n := len(a.freeList); n > 0 {
		ref = a.freeList[n-1]
		a.freeList = a.freeList[:n-1]
		a.nodes[ref] = newNode(blk, height)
	} else {
		if len(a.nodes) >= math.MaxInt32 {
			return nilRef, ErrArenaFull
		}
		ref = NodeRef(len(a.nodes))
		a.nodes = append(a.nodes, newNode(blk, height))
	}
	a.live++
	return ref, nil
}

func (a *Arena) free(ref NodeRef) {
	a.nodes[ref] = node{height: 0}
	a.freeList = append(a.freeList, ref)
	a.live--
}

// get returns the node at ref. The pointer is invalidated by the next alloc.
func (a *Arena) get(ref NodeRef) *node {
	return &a.nodes[ref]
}
