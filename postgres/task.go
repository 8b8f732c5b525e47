package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/meikuraledutech/tasktracker"
)

const taskColumns = `id, task_state_id, prev_id, next_id, name, description`

func (t *pgTx) InsertTask(ctx context.Context, task *tracker.Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	_, err := t.tx.Exec(ctx,
		`INSERT INTO tasks (id, task_state_id, name, description, prev_id, next_id) VALUES ($1, $2, $3, $4, $5, $6)`,
		task.ID, task.ParentID, task.Name, task.Description, task.Prev, task.Next,
	)
	if err != nil {
		return fmt.Errorf("tracker: insert task: %w", err)
	}
	return nil
}

func (t *pgTx) GetTask(ctx context.Context, id string) (*tracker.Task, error) {
	var task tracker.Task
	err := t.tx.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id,
	).Scan(&task.ID, &task.ParentID, &task.Prev, &task.Next, &task.Name, &task.Description)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("tracker: get task: %w", err)
	}
	return &task, nil
}

func (t *pgTx) ListTasks(ctx context.Context, taskStateID string) ([]tracker.Task, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE task_state_id = $1 ORDER BY seq`, taskStateID)
	if err != nil {
		return nil, fmt.Errorf("tracker: list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []tracker.Task{}
	for rows.Next() {
		var task tracker.Task
		if err := rows.Scan(&task.ID, &task.ParentID, &task.Prev, &task.Next, &task.Name, &task.Description); err != nil {
			return nil, fmt.Errorf("tracker: scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tracker: rows tasks: %w", err)
	}
	return tasks, nil
}

// UpdateTask writes the name and description of task.
func (t *pgTx) UpdateTask(ctx context.Context, task *tracker.Task) error {
	ct, err := t.tx.Exec(ctx,
		`UPDATE tasks SET name = $1, description = $2 WHERE id = $3`,
		task.Name, task.Description, task.ID,
	)
	if err != nil {
		return fmt.Errorf("tracker: update task: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return tracker.ErrNotFound
	}
	return nil
}

func (t *pgTx) DeleteTask(ctx context.Context, id string) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id); err != nil {
		return fmt.Errorf("tracker: delete task: %w", err)
	}
	return nil
}

func (t *pgTx) DeleteTasks(ctx context.Context, taskStateID string) error {
	if _, err := t.tx.Exec(ctx,
		`UPDATE tasks SET prev_id = NULL, next_id = NULL WHERE task_state_id = $1`, taskStateID); err != nil {
		return fmt.Errorf("tracker: unlink tasks: %w", err)
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM tasks WHERE task_state_id = $1`, taskStateID); err != nil {
		return fmt.Errorf("tracker: delete tasks: %w", err)
	}
	return nil
}
