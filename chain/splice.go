package chain

import (
	"context"
	"fmt"

	"github.com/meikuraledutech/tasktracker"
)

// Append places n at the end of its parent's chain. insert must persist n
// itself; it runs after n.Prev has been pointed at the current tail and
// before the tail is pointed at n, so n.ID may be assigned inside insert.
func (e *Engine) Append(ctx context.Context, n *tracker.Node, insert func(context.Context) error) error {
	siblings, err := e.nodes.Siblings(ctx, n.ParentID)
	if err != nil {
		return fmt.Errorf("tracker: list %s siblings: %w", e.kind, err)
	}

	tail := tailOf(siblings)
	n.Prev, n.Next = nil, nil
	if tail != nil {
		n.Prev = ref(tail.ID)
	}

	if err := insert(ctx); err != nil {
		return err
	}
	if tail == nil {
		return nil
	}

	tail.Next = ref(n.ID)
	return e.save(ctx, tail)
}

// tailOf returns the sibling without a next pointer. On a corrupt chain with
// no such sibling it falls back to the last node Linearize reaches.
func tailOf(siblings []tracker.Node) *tracker.Node {
	if len(siblings) == 0 {
		return nil
	}
	for i := range siblings {
		if siblings[i].Next == nil {
			return &siblings[i]
		}
	}
	ordered := Linearize(siblings)
	tail := ordered[len(ordered)-1]
	return &tail
}

// Detach reconnects the former neighbors of n to each other and persists
// them. n itself is left untouched; the caller either deletes it or
// re-splices it. Neighbor ids that no longer resolve inside n's parent are
// treated as absent.
func (e *Engine) Detach(ctx context.Context, n *tracker.Node) error {
	prev, err := e.neighbor(ctx, n, n.Prev)
	if err != nil {
		return err
	}
	next, err := e.neighbor(ctx, n, n.Next)
	if err != nil {
		return err
	}

	switch {
	case prev != nil && next != nil:
		prev.Next = ref(next.ID)
		next.Prev = ref(prev.ID)
		if err := e.save(ctx, prev); err != nil {
			return err
		}
		return e.save(ctx, next)
	case prev != nil:
		prev.Next = nil
		return e.save(ctx, prev)
	case next != nil:
		next.Prev = nil
		return e.save(ctx, next)
	}
	return nil
}

func (e *Engine) neighbor(ctx context.Context, n *tracker.Node, id *string) (*tracker.Node, error) {
	if id == nil || *id == n.ID {
		return nil, nil
	}
	nb, err := e.lookup(ctx, *id)
	if err != nil {
		return nil, err
	}
	if nb == nil || nb.ParentID != n.ParentID {
		return nil, nil
	}
	return nb, nil
}

// Reposition moves node id between prevID and nextID. A nil endpoint means
// the respective open end of the chain: with only nextID the node becomes
// the head, with only prevID it becomes the tail.
//
// Every precondition is checked before the first write, so a rejected move
// leaves the chain untouched:
//   - at least one endpoint is given and the two differ;
//   - the node resolves for the owner and is not one of its own endpoints;
//   - both endpoints resolve for the owner and share the node's parent;
//   - once the node is taken out, the endpoints describe a real gap: a lone
//     next is the head, a lone previous is the tail, and a given pair is
//     adjacent.
func (e *Engine) Reposition(ctx context.Context, id string, prevID, nextID *string) (*tracker.Node, error) {
	if prevID == nil && nextID == nil {
		return nil, invalid("previous and next ids are both empty")
	}
	if prevID != nil && nextID != nil && *prevID == *nextID {
		return nil, invalid("previous and next ids must differ")
	}

	n, err := e.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if sameRef(prevID, id) || sameRef(nextID, id) {
		return nil, invalid("%s %s cannot be placed next to itself", e.kind, id)
	}

	prev, err := e.endpoint(ctx, n, prevID)
	if err != nil {
		return nil, err
	}
	next, err := e.endpoint(ctx, n, nextID)
	if err != nil {
		return nil, err
	}
	if err := e.checkGap(n, prev, next); err != nil {
		return nil, err
	}

	if err := e.Detach(ctx, n); err != nil {
		return nil, err
	}

	// Detach may have rewritten the endpoints; splice against fresh copies.
	if prev, err = e.reload(ctx, prev); err != nil {
		return nil, err
	}
	if next, err = e.reload(ctx, next); err != nil {
		return nil, err
	}

	n.Prev, n.Next = nil, nil
	if prev != nil {
		n.Prev = ref(prev.ID)
		prev.Next = ref(n.ID)
		if err := e.save(ctx, prev); err != nil {
			return nil, err
		}
	}
	if next != nil {
		n.Next = ref(next.ID)
		next.Prev = ref(n.ID)
		if err := e.save(ctx, next); err != nil {
			return nil, err
		}
	}
	if err := e.save(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (e *Engine) endpoint(ctx context.Context, n *tracker.Node, id *string) (*tracker.Node, error) {
	if id == nil {
		return nil, nil
	}
	t, err := e.Resolve(ctx, *id)
	if err != nil {
		return nil, err
	}
	if t.ParentID != n.ParentID {
		return nil, invalid("%s %s belongs to a different parent", e.kind, t.ID)
	}
	return t, nil
}

// checkGap validates the target position as it will look once n is detached.
func (e *Engine) checkGap(n, prev, next *tracker.Node) error {
	switch {
	case prev == nil:
		if detachedRef(next.Prev, n, n.Prev) != nil {
			return invalid("%s %s is not the head of the chain", e.kind, next.ID)
		}
	case next == nil:
		if detachedRef(prev.Next, n, n.Next) != nil {
			return invalid("%s %s is not the tail of the chain", e.kind, prev.ID)
		}
	default:
		if !sameRef(detachedRef(prev.Next, n, n.Next), next.ID) {
			return invalid("%s %s and %s are not adjacent", e.kind, prev.ID, next.ID)
		}
	}
	return nil
}

// detachedRef returns what pointer p will hold after n is detached: a
// pointer to n is replaced by n's own pointer in the same direction.
func detachedRef(p *string, n *tracker.Node, replacement *string) *string {
	if sameRef(p, n.ID) {
		return replacement
	}
	return p
}

func (e *Engine) reload(ctx context.Context, n *tracker.Node) (*tracker.Node, error) {
	if n == nil {
		return nil, nil
	}
	fresh, err := e.lookup(ctx, n.ID)
	if err != nil {
		return nil, err
	}
	if fresh == nil {
		return nil, fmt.Errorf("%w: %s %s", tracker.ErrNotFound, e.kind, n.ID)
	}
	return fresh, nil
}
