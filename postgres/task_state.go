package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/meikuraledutech/tasktracker"
)

const taskStateColumns = `id, board_id, prev_id, next_id, name`

func (t *pgTx) InsertTaskState(ctx context.Context, s *tracker.TaskState) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	_, err := t.tx.Exec(ctx,
		`INSERT INTO task_states (id, board_id, name, prev_id, next_id) VALUES ($1, $2, $3, $4, $5)`,
		s.ID, s.ParentID, s.Name, s.Prev, s.Next,
	)
	if err != nil {
		return fmt.Errorf("tracker: insert task state: %w", err)
	}
	return nil
}

func (t *pgTx) GetTaskState(ctx context.Context, id string) (*tracker.TaskState, error) {
	var s tracker.TaskState
	err := t.tx.QueryRow(ctx,
		`SELECT `+taskStateColumns+` FROM task_states WHERE id = $1`, id,
	).Scan(&s.ID, &s.ParentID, &s.Prev, &s.Next, &s.Name)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("tracker: get task state: %w", err)
	}
	return &s, nil
}

// ListTaskStates returns the states of a board in storage order. Callers
// order them with chain.Linearize.
func (t *pgTx) ListTaskStates(ctx context.Context, boardID string) ([]tracker.TaskState, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+taskStateColumns+` FROM task_states WHERE board_id = $1 ORDER BY seq`, boardID)
	if err != nil {
		return nil, fmt.Errorf("tracker: list task states: %w", err)
	}
	defer rows.Close()

	states := []tracker.TaskState{}
	for rows.Next() {
		var s tracker.TaskState
		if err := rows.Scan(&s.ID, &s.ParentID, &s.Prev, &s.Next, &s.Name); err != nil {
			return nil, fmt.Errorf("tracker: scan task state: %w", err)
		}
		states = append(states, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tracker: rows task states: %w", err)
	}
	return states, nil
}

func (t *pgTx) RenameTaskState(ctx context.Context, id, name string) error {
	ct, err := t.tx.Exec(ctx, `UPDATE task_states SET name = $1 WHERE id = $2`, name, id)
	if err != nil {
		return fmt.Errorf("tracker: rename task state: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return tracker.ErrNotFound
	}
	return nil
}

// DeleteTaskState removes the state and its tasks. Neighbor links pointing
// at it are nulled by the foreign keys.
func (t *pgTx) DeleteTaskState(ctx context.Context, id string) error {
	if _, err := t.tx.Exec(ctx,
		`UPDATE tasks SET prev_id = NULL, next_id = NULL WHERE task_state_id = $1`, id); err != nil {
		return fmt.Errorf("tracker: unlink tasks: %w", err)
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM task_states WHERE id = $1`, id); err != nil {
		return fmt.Errorf("tracker: delete task state: %w", err)
	}
	return nil
}

// DeleteTaskStates removes every state of a board.
func (t *pgTx) DeleteTaskStates(ctx context.Context, boardID string) error {
	if _, err := t.tx.Exec(ctx,
		`UPDATE tasks SET prev_id = NULL, next_id = NULL
		 WHERE task_state_id IN (SELECT id FROM task_states WHERE board_id = $1)`, boardID); err != nil {
		return fmt.Errorf("tracker: unlink tasks: %w", err)
	}
	if _, err := t.tx.Exec(ctx,
		`UPDATE task_states SET prev_id = NULL, next_id = NULL WHERE board_id = $1`, boardID); err != nil {
		return fmt.Errorf("tracker: unlink task states: %w", err)
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM task_states WHERE board_id = $1`, boardID); err != nil {
		return fmt.Errorf("tracker: delete task states: %w", err)
	}
	return nil
}
