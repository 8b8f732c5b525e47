package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/meikuraledutech/tasktracker"
)

// InsertBoard stores b. If b.ID is empty, a UUID is generated.
func (t *pgTx) InsertBoard(ctx context.Context, b *tracker.Board) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	err := t.tx.QueryRow(ctx,
		`INSERT INTO boards (id, owner_id, name) VALUES ($1, $2, $3) RETURNING created_at`,
		b.ID, b.OwnerID, b.Name,
	).Scan(&b.CreatedAt)
	if err != nil {
		return fmt.Errorf("tracker: insert board: %w", err)
	}
	return nil
}

// GetBoard returns nil, nil if the board doesn't exist.
func (t *pgTx) GetBoard(ctx context.Context, id string) (*tracker.Board, error) {
	var b tracker.Board
	err := t.tx.QueryRow(ctx,
		`SELECT id, owner_id, name, created_at FROM boards WHERE id = $1`, id,
	).Scan(&b.ID, &b.OwnerID, &b.Name, &b.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("tracker: get board: %w", err)
	}
	return &b, nil
}

// ListBoards returns the boards of ownerID in creation order.
func (t *pgTx) ListBoards(ctx context.Context, ownerID string) ([]tracker.Board, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT id, owner_id, name, created_at FROM boards WHERE owner_id = $1 ORDER BY seq`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("tracker: list boards: %w", err)
	}
	defer rows.Close()

	boards := []tracker.Board{}
	for rows.Next() {
		var b tracker.Board
		if err := rows.Scan(&b.ID, &b.OwnerID, &b.Name, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("tracker: scan board: %w", err)
		}
		boards = append(boards, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tracker: rows boards: %w", err)
	}
	return boards, nil
}

// RenameBoard returns tracker.ErrNotFound if the board doesn't exist.
func (t *pgTx) RenameBoard(ctx context.Context, id, name string) error {
	ct, err := t.tx.Exec(ctx, `UPDATE boards SET name = $1 WHERE id = $2`, name, id)
	if err != nil {
		return fmt.Errorf("tracker: rename board: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return tracker.ErrNotFound
	}
	return nil
}

// DeleteBoard removes the board with its task states and tasks.
func (t *pgTx) DeleteBoard(ctx context.Context, id string) error {
	// Unlink first so the cascade never has to null a row it is deleting.
	if _, err := t.tx.Exec(ctx,
		`UPDATE tasks SET prev_id = NULL, next_id = NULL
		 WHERE task_state_id IN (SELECT id FROM task_states WHERE board_id = $1)`, id); err != nil {
		return fmt.Errorf("tracker: unlink tasks: %w", err)
	}
	if _, err := t.tx.Exec(ctx,
		`UPDATE task_states SET prev_id = NULL, next_id = NULL WHERE board_id = $1`, id); err != nil {
		return fmt.Errorf("tracker: unlink task states: %w", err)
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM boards WHERE id = $1`, id); err != nil {
		return fmt.Errorf("tracker: delete board: %w", err)
	}
	return nil
}
