package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/meikuraledutech/tasktracker"
)

const taskColumns = `id, task_state_id, prev_id, next_id, name, description`

func (t *sqliteTx) InsertTask(ctx context.Context, task *tracker.Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO tasks (id, task_state_id, name, description, prev_id, next_id) VALUES (?, ?, ?, ?, ?, ?)`,
		task.ID, task.ParentID, task.Name, task.Description, toNullString(task.Prev), toNullString(task.Next),
	)
	if err != nil {
		return fmt.Errorf("tracker: insert task: %w", err)
	}
	return nil
}

func scanTask(row interface{ Scan(...any) error }) (tracker.Task, error) {
	var (
		task       tracker.Task
		prev, next sql.NullString
	)
	if err := row.Scan(&task.ID, &task.ParentID, &prev, &next, &task.Name, &task.Description); err != nil {
		return task, err
	}
	task.Prev, task.Next = fromNullString(prev), fromNullString(next)
	return task, nil
}

func (t *sqliteTx) GetTask(ctx context.Context, id string) (*tracker.Task, error) {
	task, err := scanTask(t.tx.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tracker: get task: %w", err)
	}
	return &task, nil
}

func (t *sqliteTx) ListTasks(ctx context.Context, taskStateID string) ([]tracker.Task, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE task_state_id = ? ORDER BY rowid`, taskStateID)
	if err != nil {
		return nil, fmt.Errorf("tracker: list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []tracker.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("tracker: scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func (t *sqliteTx) UpdateTask(ctx context.Context, task *tracker.Task) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE tasks SET name = ?, description = ? WHERE id = ?`,
		task.Name, task.Description, task.ID,
	)
	if err != nil {
		return fmt.Errorf("tracker: update task: %w", err)
	}
	return requireRow(res)
}

func (t *sqliteTx) DeleteTask(ctx context.Context, id string) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("tracker: delete task: %w", err)
	}
	return nil
}

func (t *sqliteTx) DeleteTasks(ctx context.Context, taskStateID string) error {
	if _, err := t.tx.ExecContext(ctx,
		`UPDATE tasks SET prev_id = NULL, next_id = NULL WHERE task_state_id = ?`, taskStateID); err != nil {
		return fmt.Errorf("tracker: unlink tasks: %w", err)
	}
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM tasks WHERE task_state_id = ?`, taskStateID); err != nil {
		return fmt.Errorf("tracker: delete tasks: %w", err)
	}
	return nil
}
