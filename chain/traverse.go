package chain

import (
	"fmt"

	"github.com/meikuraledutech/tasktracker"
)

// Chained is anything that carries a tracker.Node.
type Chained interface {
	ChainNode() tracker.Node
}

// Linearize orders items by following their next pointers from the head.
//
// The head is the first item without a previous pointer, or items[0] when
// there is none. The walk stops at a missing or repeated id, so it always
// terminates; items it never reached are appended in input order. The
// result always holds every input item exactly once.
func Linearize[T Chained](items []T) []T {
	out := make([]T, 0, len(items))
	if len(items) == 0 {
		return out
	}

	index := make(map[string]int, len(items))
	head := -1
	for i, it := range items {
		n := it.ChainNode()
		index[n.ID] = i
		if head < 0 && n.Prev == nil {
			head = i
		}
	}
	if head < 0 {
		head = 0
	}

	visited := make([]bool, len(items))
	for cur := head; len(out) < len(items); {
		visited[cur] = true
		out = append(out, items[cur])

		next := items[cur].ChainNode().Next
		if next == nil {
			break
		}
		i, ok := index[*next]
		if !ok || visited[i] {
			break
		}
		cur = i
	}

	for i, it := range items {
		if !visited[i] {
			out = append(out, it)
		}
	}
	return out
}

// Verify checks that nodes form one simple doubly linked chain: a single
// head and tail, reciprocal pointers, a shared parent, and every node
// reachable from the head.
func Verify(nodes []tracker.Node) error {
	if len(nodes) == 0 {
		return nil
	}

	byID := make(map[string]tracker.Node, len(nodes))
	parent := nodes[0].ParentID
	var heads, tails []string
	for _, n := range nodes {
		if _, dup := byID[n.ID]; dup {
			return fmt.Errorf("%w: duplicate node %s", ErrBroken, n.ID)
		}
		if n.ParentID != parent {
			return fmt.Errorf("%w: node %s has parent %s, want %s", ErrBroken, n.ID, n.ParentID, parent)
		}
		byID[n.ID] = n
		if n.Prev == nil {
			heads = append(heads, n.ID)
		}
		if n.Next == nil {
			tails = append(tails, n.ID)
		}
	}
	if len(heads) != 1 {
		return fmt.Errorf("%w: %d heads %v", ErrBroken, len(heads), heads)
	}
	if len(tails) != 1 {
		return fmt.Errorf("%w: %d tails %v", ErrBroken, len(tails), tails)
	}

	for _, n := range nodes {
		if n.Prev != nil {
			p, ok := byID[*n.Prev]
			if !ok {
				return fmt.Errorf("%w: node %s points back to unknown %s", ErrBroken, n.ID, *n.Prev)
			}
			if !sameRef(p.Next, n.ID) {
				return fmt.Errorf("%w: %s.next does not point to %s", ErrBroken, p.ID, n.ID)
			}
		}
		if n.Next != nil {
			nx, ok := byID[*n.Next]
			if !ok {
				return fmt.Errorf("%w: node %s points forward to unknown %s", ErrBroken, n.ID, *n.Next)
			}
			if !sameRef(nx.Prev, n.ID) {
				return fmt.Errorf("%w: %s.previous does not point to %s", ErrBroken, nx.ID, n.ID)
			}
		}
	}

	seen := 0
	for cur, ok := byID[heads[0]]; ok; {
		seen++
		if seen > len(nodes) {
			return fmt.Errorf("%w: cycle reached from head %s", ErrBroken, heads[0])
		}
		if cur.Next == nil {
			break
		}
		cur, ok = byID[*cur.Next]
	}
	if seen != len(nodes) {
		return fmt.Errorf("%w: %d of %d nodes reachable from head %s", ErrBroken, seen, len(nodes), heads[0])
	}
	return nil
}
