package chain

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/meikuraledutech/tasktracker"
	"github.com/stretchr/testify/require"
)

const owner = "person-1"

// fakeNodes is an in-memory tracker.NodeStore. Parents map to owners.
type fakeNodes struct {
	nodes   map[string]tracker.Node
	owners  map[string]string
	order   []string
	saves   int
	failOn  string
	counter int
}

func newFake() *fakeNodes {
	return &fakeNodes{
		nodes:  make(map[string]tracker.Node),
		owners: make(map[string]string),
	}
}

func (f *fakeNodes) Lookup(_ context.Context, id string) (*tracker.Node, string, error) {
	n, ok := f.nodes[id]
	if !ok {
		return nil, "", nil
	}
	return &n, f.owners[n.ParentID], nil
}

func (f *fakeNodes) Siblings(_ context.Context, parentID string) ([]tracker.Node, error) {
	var out []tracker.Node
	for _, id := range f.order {
		if n, ok := f.nodes[id]; ok && n.ParentID == parentID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeNodes) SaveLinks(_ context.Context, n *tracker.Node) error {
	if n.ID == f.failOn {
		return errors.New("disk on fire")
	}
	if _, ok := f.nodes[n.ID]; !ok {
		return errors.New("no such row")
	}
	f.saves++
	f.nodes[n.ID] = *n
	return nil
}

func (f *fakeNodes) insert(n *tracker.Node) func(context.Context) error {
	return func(context.Context) error {
		if n.ID == "" {
			f.counter++
			n.ID = "n" + strconv.Itoa(f.counter)
		}
		f.nodes[n.ID] = *n
		f.order = append(f.order, n.ID)
		return nil
	}
}

func (f *fakeNodes) remove(id string) {
	delete(f.nodes, id)
}

// build appends ids to parent's chain in order.
func (f *fakeNodes) build(t *testing.T, parent, parentOwner string, ids ...string) {
	t.Helper()
	f.owners[parent] = parentOwner
	e := New("node", f, parentOwner)
	for _, id := range ids {
		n := &tracker.Node{ID: id, ParentID: parent}
		require.NoError(t, e.Append(context.Background(), n, f.insert(n)))
	}
}

// ids returns the linearized ids under parent and checks chain integrity.
func (f *fakeNodes) ids(t *testing.T, parent string) []string {
	t.Helper()
	siblings, err := f.Siblings(context.Background(), parent)
	require.NoError(t, err)
	require.NoError(t, Verify(siblings))
	var out []string
	for _, n := range Linearize(siblings) {
		out = append(out, n.ID)
	}
	return out
}

func (f *fakeNodes) node(id string) tracker.Node {
	return f.nodes[id]
}

func ptr(s string) *string { return &s }
