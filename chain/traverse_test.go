package chain

import (
	"testing"

	"github.com/meikuraledutech/tasktracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(id string, prev, next string) tracker.Node {
	return tracker.Node{ID: id, ParentID: "p", Prev: tracker.StringPtr(prev), Next: tracker.StringPtr(next)}
}

func idsOf(nodes []tracker.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}

func TestLinearize(t *testing.T) {
	tests := []struct {
		name  string
		input []tracker.Node
		want  []string
	}{
		{
			name:  "empty",
			input: nil,
			want:  []string{},
		},
		{
			name:  "single",
			input: []tracker.Node{node("a", "", "")},
			want:  []string{"a"},
		},
		{
			name: "shuffled storage order",
			input: []tracker.Node{
				node("c", "b", ""),
				node("a", "", "b"),
				node("b", "a", "c"),
			},
			want: []string{"a", "b", "c"},
		},
		{
			name: "cycle without head falls back to first input",
			input: []tracker.Node{
				node("b", "a", "a"),
				node("a", "b", "b"),
			},
			want: []string{"b", "a"},
		},
		{
			name: "cycle after head stops at the repeat and keeps the rest",
			input: []tracker.Node{
				node("a", "", "b"),
				node("b", "a", "a"),
				node("c", "x", ""),
			},
			want: []string{"a", "b", "c"},
		},
		{
			name: "dangling next",
			input: []tracker.Node{
				node("a", "", "gone"),
				node("b", "a", ""),
			},
			want: []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Linearize(tt.input)
			assert.Equal(t, tt.want, idsOf(got))
			assert.Len(t, got, len(tt.input))
		})
	}
}

func TestLinearizeEmbedded(t *testing.T) {
	states := []tracker.TaskState{
		{Node: node("done", "todo", ""), Name: "Done"},
		{Node: node("todo", "", "done"), Name: "Todo"},
	}
	got := Linearize(states)
	require.Len(t, got, 2)
	assert.Equal(t, "Todo", got[0].Name)
	assert.Equal(t, "Done", got[1].Name)
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name    string
		input   []tracker.Node
		wantErr bool
	}{
		{name: "empty", input: nil},
		{name: "single", input: []tracker.Node{node("a", "", "")}},
		{
			name:  "healthy",
			input: []tracker.Node{node("a", "", "b"), node("b", "a", "c"), node("c", "b", "")},
		},
		{
			name:    "two heads",
			input:   []tracker.Node{node("a", "", ""), node("b", "", "")},
			wantErr: true,
		},
		{
			name:    "not reciprocal",
			input:   []tracker.Node{node("a", "", "b"), node("b", "c", ""), node("c", "", "b")},
			wantErr: true,
		},
		{
			name:    "detached ring",
			input:   []tracker.Node{node("a", "", ""), node("b", "c", "c"), node("c", "b", "b")},
			wantErr: true,
		},
		{
			name:    "unknown neighbor",
			input:   []tracker.Node{node("a", "", "zzz")},
			wantErr: true,
		},
		{
			name: "mixed parents",
			input: []tracker.Node{
				node("a", "", "b"),
				{ID: "b", ParentID: "other", Prev: ptr("a")},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Verify(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBroken)
				return
			}
			assert.NoError(t, err)
		})
	}
}
