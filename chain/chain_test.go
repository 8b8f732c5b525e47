package chain

import (
	"context"
	"math/rand"
	"strconv"
	"testing"

	"github.com/meikuraledutech/tasktracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	ctx := context.Background()
	f := newFake()
	f.build(t, "p1", owner, "A")
	f.build(t, "p2", "someone-else", "X")

	e := New("task state", f, owner)

	n, err := e.Resolve(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "p1", n.ParentID)

	_, errMissing := e.Resolve(ctx, "nope")
	assert.ErrorIs(t, errMissing, tracker.ErrNotFound)

	_, errForeign := e.Resolve(ctx, "X")
	assert.ErrorIs(t, errForeign, tracker.ErrNotFound)
	assert.Equal(t, "tracker: not found: task state X", errForeign.Error())
}

func TestAppend(t *testing.T) {
	ctx := context.Background()
	f := newFake()
	f.owners["p1"] = owner
	e := New("node", f, owner)

	first := &tracker.Node{ParentID: "p1"}
	require.NoError(t, e.Append(ctx, first, f.insert(first)))
	assert.Nil(t, first.Prev)
	assert.Nil(t, first.Next)

	f.build(t, "p1", owner, "B", "C")
	assert.Equal(t, []string{first.ID, "B", "C"}, f.ids(t, "p1"))

	fourth := &tracker.Node{ID: "D", ParentID: "p1"}
	require.NoError(t, e.Append(ctx, fourth, f.insert(fourth)))

	assert.Equal(t, []string{first.ID, "B", "C", "D"}, f.ids(t, "p1"))
	assert.Equal(t, ptr("D"), f.node("C").Next)
	assert.Equal(t, ptr("C"), f.node("D").Prev)
	assert.Nil(t, f.node("D").Next)
}

func TestDetach(t *testing.T) {
	tests := []struct {
		name   string
		chain  []string
		remove string
		want   []string
	}{
		{name: "only node", chain: []string{"A"}, remove: "A", want: nil},
		{name: "head", chain: []string{"A", "B", "C"}, remove: "A", want: []string{"B", "C"}},
		{name: "middle", chain: []string{"A", "B", "C"}, remove: "B", want: []string{"A", "C"}},
		{name: "tail", chain: []string{"A", "B", "C"}, remove: "C", want: []string{"A", "B"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFake()
			f.build(t, "p1", owner, tt.chain...)
			e := New("node", f, owner)

			n, err := e.Resolve(ctx, tt.remove)
			require.NoError(t, err)
			before := *n
			require.NoError(t, e.Detach(ctx, n))
			assert.Equal(t, before, f.node(tt.remove), "detached node keeps its own pointers")

			f.remove(tt.remove)
			assert.Equal(t, tt.want, f.ids(t, "p1"))
		})
	}
}

func TestDetachMiddleRelinksNeighbors(t *testing.T) {
	ctx := context.Background()
	f := newFake()
	f.build(t, "p1", owner, "A", "B", "C")
	e := New("node", f, owner)

	n, err := e.Resolve(ctx, "B")
	require.NoError(t, err)
	require.NoError(t, e.Detach(ctx, n))
	f.remove("B")

	assert.Equal(t, ptr("C"), f.node("A").Next)
	assert.Equal(t, ptr("A"), f.node("C").Prev)
	assert.Nil(t, f.node("A").Prev)
	assert.Nil(t, f.node("C").Next)
}

func TestReposition(t *testing.T) {
	tests := []struct {
		name string
		id   string
		prev *string
		next *string
		want []string
	}{
		{name: "head to tail", id: "A", prev: ptr("D"), want: []string{"B", "C", "D", "A"}},
		{name: "tail to head", id: "D", next: ptr("A"), want: []string{"D", "A", "B", "C"}},
		{name: "head into middle", id: "A", prev: ptr("B"), next: ptr("C"), want: []string{"B", "A", "C", "D"}},
		{name: "tail into middle", id: "D", prev: ptr("A"), next: ptr("B"), want: []string{"A", "D", "B", "C"}},
		{name: "swap neighbors forward", id: "B", prev: ptr("C"), next: ptr("D"), want: []string{"A", "C", "B", "D"}},
		{name: "swap neighbors backward", id: "C", prev: ptr("A"), next: ptr("B"), want: []string{"A", "C", "B", "D"}},
		{name: "middle to head", id: "C", next: ptr("A"), want: []string{"C", "A", "B", "D"}},
		{name: "middle to tail", id: "B", prev: ptr("D"), want: []string{"A", "C", "D", "B"}},
		{name: "same place", id: "B", prev: ptr("A"), next: ptr("C"), want: []string{"A", "B", "C", "D"}},
		{name: "head stays head", id: "A", next: ptr("B"), want: []string{"A", "B", "C", "D"}},
		{name: "tail stays tail", id: "D", prev: ptr("C"), want: []string{"A", "B", "C", "D"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFake()
			f.build(t, "p1", owner, "A", "B", "C", "D")
			e := New("node", f, owner)

			n, err := e.Reposition(ctx, tt.id, tt.prev, tt.next)
			require.NoError(t, err)
			assert.Equal(t, tt.id, n.ID)
			assert.Equal(t, tt.want, f.ids(t, "p1"))
			assert.Equal(t, f.node(tt.id), *n)
		})
	}
}

func TestRepositionHeadAfterTail(t *testing.T) {
	ctx := context.Background()
	f := newFake()
	f.build(t, "p1", owner, "A", "B", "C")
	e := New("node", f, owner)

	a, err := e.Reposition(ctx, "A", ptr("C"), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"B", "C", "A"}, f.ids(t, "p1"))
	assert.Equal(t, ptr("C"), a.Prev)
	assert.Nil(t, a.Next)
	assert.Equal(t, ptr("A"), f.node("C").Next)
	assert.Nil(t, f.node("B").Prev)
	assert.Equal(t, ptr("C"), f.node("B").Next)
}

func TestRepositionRepeatable(t *testing.T) {
	ctx := context.Background()
	f := newFake()
	f.build(t, "p1", owner, "A", "B", "C")
	e := New("node", f, owner)

	_, err := e.Reposition(ctx, "A", ptr("B"), ptr("C"))
	require.NoError(t, err)
	first := f.ids(t, "p1")

	_, err = e.Reposition(ctx, "A", ptr("B"), ptr("C"))
	require.NoError(t, err)
	assert.Equal(t, first, f.ids(t, "p1"))
	assert.Equal(t, []string{"B", "A", "C"}, first)
}

func TestRepositionRejected(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		prev    *string
		next    *string
		wantErr error
	}{
		{name: "both endpoints empty", id: "B", wantErr: tracker.ErrInvalidArgument},
		{name: "same endpoints", id: "A", prev: ptr("C"), next: ptr("C"), wantErr: tracker.ErrInvalidArgument},
		{name: "next to itself", id: "B", prev: ptr("B"), wantErr: tracker.ErrInvalidArgument},
		{name: "unknown node", id: "Z", prev: ptr("A"), wantErr: tracker.ErrNotFound},
		{name: "unknown node next to itself", id: "Z", prev: ptr("Z"), wantErr: tracker.ErrNotFound},
		{name: "foreign node next to itself", id: "F1", next: ptr("F1"), wantErr: tracker.ErrNotFound},
		{name: "unknown endpoint", id: "A", prev: ptr("Z"), wantErr: tracker.ErrNotFound},
		{name: "foreign owner endpoint", id: "A", prev: ptr("F1"), wantErr: tracker.ErrNotFound},
		{name: "foreign owner node", id: "F1", next: ptr("A"), wantErr: tracker.ErrNotFound},
		{name: "different parent previous", id: "A", prev: ptr("X1"), wantErr: tracker.ErrInvalidArgument},
		{name: "different parent next", id: "A", prev: ptr("C"), next: ptr("X1"), wantErr: tracker.ErrInvalidArgument},
		{name: "endpoints not adjacent", id: "A", prev: ptr("B"), next: ptr("D"), wantErr: tracker.ErrInvalidArgument},
		{name: "endpoints reversed", id: "A", prev: ptr("C"), next: ptr("B"), wantErr: tracker.ErrInvalidArgument},
		{name: "lone next is not head", id: "A", next: ptr("C"), wantErr: tracker.ErrInvalidArgument},
		{name: "lone previous is not tail", id: "D", prev: ptr("B"), wantErr: tracker.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFake()
			f.build(t, "p1", owner, "A", "B", "C", "D")
			f.build(t, "p2", owner, "X1", "X2")
			f.build(t, "p3", "intruder", "F1")
			before := f.ids(t, "p1")
			f.saves = 0

			e := New("node", f, owner)
			_, err := e.Reposition(ctx, tt.id, tt.prev, tt.next)
			require.ErrorIs(t, err, tt.wantErr)

			assert.Zero(t, f.saves, "rejected move must not write")
			assert.Equal(t, before, f.ids(t, "p1"))
			assert.Equal(t, []string{"X1", "X2"}, f.ids(t, "p2"))
		})
	}
}

func TestRepositionSaveFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	f := newFake()
	f.build(t, "p1", owner, "A", "B", "C")
	f.failOn = "A"

	_, err := New("node", f, owner).Reposition(ctx, "A", ptr("C"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save node A links")
}

// TestChainIntegrityUnderRandomOperations drives random creates, deletes and
// moves (valid or not) and checks the invariants after every step.
func TestChainIntegrityUnderRandomOperations(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))
	f := newFake()
	f.owners["p1"] = owner
	e := New("node", f, owner)

	var live []string
	pick := func() *string {
		if len(live) == 0 || rng.Intn(4) == 0 {
			return nil
		}
		return ptr(live[rng.Intn(len(live))])
	}

	for step := 0; step < 500; step++ {
		switch op := rng.Intn(10); {
		case op < 3 || len(live) < 2:
			n := &tracker.Node{ID: "n" + strconv.Itoa(step), ParentID: "p1"}
			require.NoError(t, e.Append(ctx, n, f.insert(n)))
			live = append(live, n.ID)
		case op < 5:
			i := rng.Intn(len(live))
			n, err := e.Resolve(ctx, live[i])
			require.NoError(t, err)
			require.NoError(t, e.Detach(ctx, n))
			f.remove(n.ID)
			live = append(live[:i], live[i+1:]...)
		default:
			id := live[rng.Intn(len(live))]
			before := f.ids(t, "p1")
			if _, err := e.Reposition(ctx, id, pick(), pick()); err != nil {
				assert.Equal(t, before, f.ids(t, "p1"), "step %d", step)
			}
		}

		got := f.ids(t, "p1")
		assert.ElementsMatch(t, live, got, "step %d", step)
	}
}
