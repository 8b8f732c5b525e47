// Package storetest holds the conformance suite shared by every
// tracker.Store implementation.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/tasktracker"
)

// Run exercises a tracker.Store. newStore must return an empty store whose
// schema already exists.
func Run(t *testing.T, newStore func(t *testing.T) tracker.Store) {
	t.Run("Boards", func(t *testing.T) { testBoards(t, newStore(t)) })
	t.Run("TaskStates", func(t *testing.T) { testTaskStates(t, newStore(t)) })
	t.Run("Tasks", func(t *testing.T) { testTasks(t, newStore(t)) })
	t.Run("NodeLookupOwner", func(t *testing.T) { testNodeLookupOwner(t, newStore(t)) })
	t.Run("SaveLinks", func(t *testing.T) { testSaveLinks(t, newStore(t)) })
	t.Run("DeleteCascades", func(t *testing.T) { testDeleteCascades(t, newStore(t)) })
	t.Run("BulkDelete", func(t *testing.T) { testBulkDelete(t, newStore(t)) })
	t.Run("Rollback", func(t *testing.T) { testRollback(t, newStore(t)) })
}

// inTx runs fn in a transaction and fails the test on error.
func inTx(t *testing.T, s tracker.Store, fn func(tx tracker.Tx) error) {
	t.Helper()
	require.NoError(t, s.RunInTx(context.Background(), fn))
}

func seedBoard(t *testing.T, s tracker.Store, owner, name string) *tracker.Board {
	t.Helper()
	b := &tracker.Board{Name: name, OwnerID: owner}
	inTx(t, s, func(tx tracker.Tx) error { return tx.InsertBoard(context.Background(), b) })
	require.NotEmpty(t, b.ID)
	return b
}

// seedStates inserts states already linked in the given order.
func seedStates(t *testing.T, s tracker.Store, boardID string, names ...string) []tracker.TaskState {
	t.Helper()
	ctx := context.Background()
	var out []tracker.TaskState
	inTx(t, s, func(tx tracker.Tx) error {
		var prev *tracker.TaskState
		for _, name := range names {
			st := &tracker.TaskState{Node: tracker.Node{ParentID: boardID}, Name: name}
			if prev != nil {
				st.Prev = &prev.ID
			}
			if err := tx.InsertTaskState(ctx, st); err != nil {
				return err
			}
			if prev != nil {
				prev.Next = &st.ID
				if err := tx.TaskStateNodes().SaveLinks(ctx, &prev.Node); err != nil {
					return err
				}
			}
			prev = st
			out = append(out, *st)
		}
		return nil
	})
	for i := range out[:max(len(out)-1, 0)] {
		out[i].Next = &out[i+1].ID
	}
	return out
}

func testBoards(t *testing.T, s tracker.Store) {
	ctx := context.Background()
	a := seedBoard(t, s, "alice", "Work")
	seedBoard(t, s, "alice", "Home")
	seedBoard(t, s, "bob", "Garage")

	inTx(t, s, func(tx tracker.Tx) error {
		got, err := tx.GetBoard(ctx, a.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Work", got.Name)
		assert.Equal(t, "alice", got.OwnerID)
		assert.False(t, got.CreatedAt.IsZero())

		missing, err := tx.GetBoard(ctx, "00000000-0000-0000-0000-000000000000")
		require.NoError(t, err)
		assert.Nil(t, missing)

		boards, err := tx.ListBoards(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, boards, 2)
		assert.Equal(t, "Work", boards[0].Name)
		assert.Equal(t, "Home", boards[1].Name)

		require.NoError(t, tx.RenameBoard(ctx, a.ID, "Office"))
		got, err = tx.GetBoard(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "Office", got.Name)

		require.NoError(t, tx.DeleteBoard(ctx, a.ID))
		got, err = tx.GetBoard(ctx, a.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
		return nil
	})
}

func testTaskStates(t *testing.T, s tracker.Store) {
	ctx := context.Background()
	b := seedBoard(t, s, "alice", "Work")
	states := seedStates(t, s, b.ID, "Todo", "Doing", "Done")

	inTx(t, s, func(tx tracker.Tx) error {
		listed, err := tx.ListTaskStates(ctx, b.ID)
		require.NoError(t, err)
		require.Len(t, listed, 3)
		for i, st := range listed {
			assert.Equal(t, states[i].ID, st.ID, "storage order")
			assert.Equal(t, b.ID, st.ParentID)
		}
		assert.Nil(t, listed[0].Prev)
		assert.Equal(t, &states[1].ID, listed[0].Next)
		assert.Equal(t, &states[0].ID, listed[1].Prev)
		assert.Nil(t, listed[2].Next)

		require.NoError(t, tx.RenameTaskState(ctx, states[1].ID, "In progress"))
		got, err := tx.GetTaskState(ctx, states[1].ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "In progress", got.Name)

		siblings, err := tx.TaskStateNodes().Siblings(ctx, b.ID)
		require.NoError(t, err)
		require.Len(t, siblings, 3)
		assert.Equal(t, states[2].ID, siblings[2].ID)
		return nil
	})
}

func testTasks(t *testing.T, s tracker.Store) {
	ctx := context.Background()
	b := seedBoard(t, s, "alice", "Work")
	st := seedStates(t, s, b.ID, "Todo")[0]

	task := &tracker.Task{Node: tracker.Node{ParentID: st.ID}, Name: "write tests", Description: "all of them"}
	inTx(t, s, func(tx tracker.Tx) error { return tx.InsertTask(ctx, task) })
	require.NotEmpty(t, task.ID)

	inTx(t, s, func(tx tracker.Tx) error {
		got, err := tx.GetTask(ctx, task.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "write tests", got.Name)
		assert.Equal(t, "all of them", got.Description)
		assert.Equal(t, st.ID, got.ParentID)
		assert.Nil(t, got.Prev)
		assert.Nil(t, got.Next)

		got.Name = "write more tests"
		got.Description = ""
		require.NoError(t, tx.UpdateTask(ctx, got))

		tasks, err := tx.ListTasks(ctx, st.ID)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, "write more tests", tasks[0].Name)
		assert.Empty(t, tasks[0].Description)

		require.NoError(t, tx.DeleteTask(ctx, task.ID))
		gone, err := tx.GetTask(ctx, task.ID)
		require.NoError(t, err)
		assert.Nil(t, gone)
		return nil
	})
}

func testNodeLookupOwner(t *testing.T, s tracker.Store) {
	ctx := context.Background()
	b := seedBoard(t, s, "alice", "Work")
	st := seedStates(t, s, b.ID, "Todo")[0]
	task := &tracker.Task{Node: tracker.Node{ParentID: st.ID}, Name: "t"}
	inTx(t, s, func(tx tracker.Tx) error { return tx.InsertTask(ctx, task) })

	inTx(t, s, func(tx tracker.Tx) error {
		n, owner, err := tx.TaskStateNodes().Lookup(ctx, st.ID)
		require.NoError(t, err)
		require.NotNil(t, n)
		assert.Equal(t, "alice", owner)
		assert.Equal(t, b.ID, n.ParentID)

		n, owner, err = tx.TaskNodes().Lookup(ctx, task.ID)
		require.NoError(t, err)
		require.NotNil(t, n)
		assert.Equal(t, "alice", owner)
		assert.Equal(t, st.ID, n.ParentID)

		n, _, err = tx.TaskNodes().Lookup(ctx, "00000000-0000-0000-0000-000000000000")
		require.NoError(t, err)
		assert.Nil(t, n)
		return nil
	})
}

func testSaveLinks(t *testing.T, s tracker.Store) {
	ctx := context.Background()
	b := seedBoard(t, s, "alice", "Work")
	states := seedStates(t, s, b.ID, "A", "B")

	inTx(t, s, func(tx tracker.Tx) error {
		nodes := tx.TaskStateNodes()
		a, _, err := nodes.Lookup(ctx, states[0].ID)
		require.NoError(t, err)
		bn, _, err := nodes.Lookup(ctx, states[1].ID)
		require.NoError(t, err)

		a.Prev, a.Next = &bn.ID, nil
		bn.Prev, bn.Next = nil, &a.ID
		require.NoError(t, nodes.SaveLinks(ctx, a))
		require.NoError(t, nodes.SaveLinks(ctx, bn))
		return nil
	})

	inTx(t, s, func(tx tracker.Tx) error {
		a, _, err := tx.TaskStateNodes().Lookup(ctx, states[0].ID)
		require.NoError(t, err)
		assert.Equal(t, &states[1].ID, a.Prev)
		assert.Nil(t, a.Next)
		return nil
	})
}

func testDeleteCascades(t *testing.T, s tracker.Store) {
	ctx := context.Background()
	b := seedBoard(t, s, "alice", "Work")
	states := seedStates(t, s, b.ID, "A", "B")
	task := &tracker.Task{Node: tracker.Node{ParentID: states[0].ID}, Name: "t"}
	inTx(t, s, func(tx tracker.Tx) error { return tx.InsertTask(ctx, task) })

	inTx(t, s, func(tx tracker.Tx) error {
		require.NoError(t, tx.DeleteTaskState(ctx, states[0].ID))

		gone, err := tx.GetTask(ctx, task.ID)
		require.NoError(t, err)
		assert.Nil(t, gone, "tasks go with their state")

		survivor, err := tx.GetTaskState(ctx, states[1].ID)
		require.NoError(t, err)
		require.NotNil(t, survivor)
		assert.Nil(t, survivor.Prev, "links to a deleted row are cleared")
		return nil
	})

	inTx(t, s, func(tx tracker.Tx) error {
		require.NoError(t, tx.DeleteBoard(ctx, b.ID))
		gone, err := tx.GetTaskState(ctx, states[1].ID)
		require.NoError(t, err)
		assert.Nil(t, gone, "states go with their board")
		return nil
	})
}

func testBulkDelete(t *testing.T, s tracker.Store) {
	ctx := context.Background()
	b := seedBoard(t, s, "alice", "Work")
	other := seedBoard(t, s, "alice", "Home")
	states := seedStates(t, s, b.ID, "A", "B", "C")
	keep := seedStates(t, s, other.ID, "X")
	for _, st := range states[:2] {
		task := &tracker.Task{Node: tracker.Node{ParentID: st.ID}, Name: "t"}
		inTx(t, s, func(tx tracker.Tx) error { return tx.InsertTask(ctx, task) })
	}

	inTx(t, s, func(tx tracker.Tx) error {
		require.NoError(t, tx.DeleteTasks(ctx, states[0].ID))
		tasks, err := tx.ListTasks(ctx, states[0].ID)
		require.NoError(t, err)
		assert.Empty(t, tasks)

		require.NoError(t, tx.DeleteTaskStates(ctx, b.ID))
		left, err := tx.ListTaskStates(ctx, b.ID)
		require.NoError(t, err)
		assert.Empty(t, left)

		untouched, err := tx.ListTaskStates(ctx, other.ID)
		require.NoError(t, err)
		require.Len(t, untouched, 1)
		assert.Equal(t, keep[0].ID, untouched[0].ID)
		return nil
	})
}

func testRollback(t *testing.T, s tracker.Store) {
	ctx := context.Background()
	b := seedBoard(t, s, "alice", "Work")
	states := seedStates(t, s, b.ID, "A", "B")
	boom := errors.New("boom")

	err := s.RunInTx(ctx, func(tx tracker.Tx) error {
		a, _, err := tx.TaskStateNodes().Lookup(ctx, states[0].ID)
		if err != nil {
			return err
		}
		a.Next = nil
		if err := tx.TaskStateNodes().SaveLinks(ctx, a); err != nil {
			return err
		}
		if err := tx.RenameBoard(ctx, b.ID, "Renamed"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	inTx(t, s, func(tx tracker.Tx) error {
		a, _, err := tx.TaskStateNodes().Lookup(ctx, states[0].ID)
		require.NoError(t, err)
		assert.Equal(t, &states[1].ID, a.Next)

		got, err := tx.GetBoard(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, "Work", got.Name)
		return nil
	})
}
