package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/meikuraledutech/tasktracker"
)

const taskStateColumns = `id, board_id, prev_id, next_id, name`

func (t *sqliteTx) InsertTaskState(ctx context.Context, s *tracker.TaskState) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO task_states (id, board_id, name, prev_id, next_id) VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.ParentID, s.Name, toNullString(s.Prev), toNullString(s.Next),
	)
	if err != nil {
		return fmt.Errorf("tracker: insert task state: %w", err)
	}
	return nil
}

func scanTaskState(row interface{ Scan(...any) error }) (tracker.TaskState, error) {
	var (
		s          tracker.TaskState
		prev, next sql.NullString
	)
	if err := row.Scan(&s.ID, &s.ParentID, &prev, &next, &s.Name); err != nil {
		return s, err
	}
	s.Prev, s.Next = fromNullString(prev), fromNullString(next)
	return s, nil
}

func (t *sqliteTx) GetTaskState(ctx context.Context, id string) (*tracker.TaskState, error) {
	s, err := scanTaskState(t.tx.QueryRowContext(ctx,
		`SELECT `+taskStateColumns+` FROM task_states WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tracker: get task state: %w", err)
	}
	return &s, nil
}

func (t *sqliteTx) ListTaskStates(ctx context.Context, boardID string) ([]tracker.TaskState, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT `+taskStateColumns+` FROM task_states WHERE board_id = ? ORDER BY rowid`, boardID)
	if err != nil {
		return nil, fmt.Errorf("tracker: list task states: %w", err)
	}
	defer rows.Close()

	states := []tracker.TaskState{}
	for rows.Next() {
		s, err := scanTaskState(rows)
		if err != nil {
			return nil, fmt.Errorf("tracker: scan task state: %w", err)
		}
		states = append(states, s)
	}
	return states, rows.Err()
}

func (t *sqliteTx) RenameTaskState(ctx context.Context, id, name string) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE task_states SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("tracker: rename task state: %w", err)
	}
	return requireRow(res)
}

func (t *sqliteTx) DeleteTaskState(ctx context.Context, id string) error {
	if _, err := t.tx.ExecContext(ctx,
		`UPDATE tasks SET prev_id = NULL, next_id = NULL WHERE task_state_id = ?`, id); err != nil {
		return fmt.Errorf("tracker: unlink tasks: %w", err)
	}
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM task_states WHERE id = ?`, id); err != nil {
		return fmt.Errorf("tracker: delete task state: %w", err)
	}
	return nil
}

func (t *sqliteTx) DeleteTaskStates(ctx context.Context, boardID string) error {
	if err := t.unlinkStates(ctx, boardID); err != nil {
		return err
	}
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM task_states WHERE board_id = ?`, boardID); err != nil {
		return fmt.Errorf("tracker: delete task states: %w", err)
	}
	return nil
}

// unlinkStates clears every link under a board ahead of a bulk delete.
func (t *sqliteTx) unlinkStates(ctx context.Context, boardID string) error {
	if _, err := t.tx.ExecContext(ctx,
		`UPDATE tasks SET prev_id = NULL, next_id = NULL
		 WHERE task_state_id IN (SELECT id FROM task_states WHERE board_id = ?)`, boardID); err != nil {
		return fmt.Errorf("tracker: unlink tasks: %w", err)
	}
	if _, err := t.tx.ExecContext(ctx,
		`UPDATE task_states SET prev_id = NULL, next_id = NULL WHERE board_id = ?`, boardID); err != nil {
		return fmt.Errorf("tracker: unlink task states: %w", err)
	}
	return nil
}
