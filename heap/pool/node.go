package pool

import (
	"github.com/joshuapare/brkit/heap/block"
)

// MaxLevel is the number of levels of the skip list, head sentinel included.
// With promotion probability 1/2 it comfortably indexes millions of blocks.
const MaxLevel = 20

// shortcut is a forward link on one level.
type shortcut struct {
	next  NodeRef // NIL (nilRef) ends the level
	skips int     // level-0 steps covered; 0 when next is NIL
}

// node holds one free block and its tower of shortcuts.
type node struct {
	blk       block.Block
	height    int
	shortcuts [MaxLevel]shortcut
}

func newNode(blk block.Block, height int) node {
	n := node{blk: blk, height: height}
	for i := range n.shortcuts {
		n.shortcuts[i].next = nilRef
	}
	return n
}
