// Package chain keeps sibling nodes ordered as a doubly linked list stored
// in their previous/next columns.
//
// All pointer surgery goes through ids resolved by a tracker.NodeStore, so an
// Engine never holds on to another node's state across a write. An Engine is
// meant to live for one transaction.
package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/meikuraledutech/tasktracker"
)

// ErrBroken is returned by Verify when a chain violates its invariants.
var ErrBroken = errors.New("chain: broken links")

// Engine applies ordering mutations to one kind of node on behalf of one owner.
type Engine struct {
	kind    string
	nodes   tracker.NodeStore
	ownerID string
}

// New returns an Engine. kind names the node type in error messages,
// e.g. "task state".
func New(kind string, nodes tracker.NodeStore, ownerID string) *Engine {
	return &Engine{kind: kind, nodes: nodes, ownerID: ownerID}
}

// Resolve fetches a node that belongs to the engine's owner. A missing node
// and a node owned by someone else both yield ErrNotFound.
func (e *Engine) Resolve(ctx context.Context, id string) (*tracker.Node, error) {
	n, ownerID, err := e.nodes.Lookup(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("tracker: lookup %s: %w", e.kind, err)
	}
	if n == nil || ownerID != e.ownerID {
		return nil, fmt.Errorf("%w: %s %s", tracker.ErrNotFound, e.kind, id)
	}
	return n, nil
}

// Ordered returns the children of parentID in chain order.
func (e *Engine) Ordered(ctx context.Context, parentID string) ([]tracker.Node, error) {
	siblings, err := e.nodes.Siblings(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("tracker: list %s siblings: %w", e.kind, err)
	}
	return Linearize(siblings), nil
}

// lookup reads a node without the ownership check. Used for nodes already
// reached through a resolved node.
func (e *Engine) lookup(ctx context.Context, id string) (*tracker.Node, error) {
	n, _, err := e.nodes.Lookup(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("tracker: lookup %s: %w", e.kind, err)
	}
	return n, nil
}

func (e *Engine) save(ctx context.Context, n *tracker.Node) error {
	if err := e.nodes.SaveLinks(ctx, n); err != nil {
		return fmt.Errorf("tracker: save %s %s links: %w", e.kind, n.ID, err)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", tracker.ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func ref(id string) *string { return &id }

func sameRef(p *string, id string) bool { return p != nil && *p == id }
