package pool

import "fmt"

// Verify checks every structural invariant of the skip list:
//
//   - level 0 holds Len() non-empty blocks in strictly increasing, non-overlapping order
//   - every level above 0 is a subsequence of the level below
//   - every shortcut's skip count equals the level-0 distance it covers
//   - levels at or above Height() are empty
//
// It returns an error wrapping ErrCorrupt describing the first violation.
func (p *Pool) Verify() error {
	ranks := make(map[NodeRef]int, p.length)

	count := 0
	var prev *node
	for ref := p.node(headRef).shortcuts[0].next; ref != nilRef; ref = p.node(ref).shortcuts[0].next {
		n := p.node(ref)
		count++
		if count > p.length {
			return fmt.Errorf("%w: level 0 longer than length %d (cycle?)", ErrCorrupt, p.length)
		}
		if n.height < 1 || n.height > MaxLevel {
			return fmt.Errorf("%w: node %v has height %d", ErrCorrupt, n.blk, n.height)
		}
		if n.blk.IsEmpty() {
			return fmt.Errorf("%w: empty block at 0x%x", ErrCorrupt, n.blk.Addr())
		}
		if prev != nil && prev.blk.End() > n.blk.Addr() {
			return fmt.Errorf("%w: %v not after %v", ErrCorrupt, n.blk, prev.blk)
		}
		ranks[ref] = count
		prev = n
	}
	if count != p.length {
		return fmt.Errorf("%w: level 0 has %d nodes, length is %d", ErrCorrupt, count, p.length)
	}
	if p.arena.Len() != p.length {
		return fmt.Errorf("%w: arena holds %d nodes, length is %d", ErrCorrupt, p.arena.Len(), p.length)
	}

	for lv := range MaxLevel {
		cur, r := headRef, 0
		for {
			sc := p.node(cur).shortcuts[lv]
			if sc.next == nilRef {
				if sc.skips != 0 {
					return fmt.Errorf("%w: level %d ends with skips %d", ErrCorrupt, lv, sc.skips)
				}
				break
			}
			if lv >= p.height {
				return fmt.Errorf("%w: level %d populated above height %d", ErrCorrupt, lv, p.height)
			}
			nr, ok := ranks[sc.next]
			if !ok {
				return fmt.Errorf("%w: level %d links a node missing from level 0", ErrCorrupt, lv)
			}
			if nr <= r {
				return fmt.Errorf("%w: level %d goes backwards at rank %d", ErrCorrupt, lv, nr)
			}
			if sc.skips != nr-r {
				return fmt.Errorf("%w: level %d shortcut to rank %d skips %d, want %d", ErrCorrupt, lv, nr, sc.skips, nr-r)
			}
			if p.node(sc.next).height <= lv {
				return fmt.Errorf("%w: level %d links a node of height %d", ErrCorrupt, lv, p.node(sc.next).height)
			}
			cur, r = sc.next, nr
		}
	}

	// Every node must appear on each level below its height.
	for lv := 1; lv < p.height; lv++ {
		want := 0
		for ref := range ranks {
			if p.node(ref).height > lv {
				want++
			}
		}
		got := 0
		for ref := p.node(headRef).shortcuts[lv].next; ref != nilRef; ref = p.node(ref).shortcuts[lv].next {
			got++
		}
		if got != want {
			return fmt.Errorf("%w: level %d links %d nodes, %d are tall enough", ErrCorrupt, lv, got, want)
		}
	}
	return nil
}
