package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meikuraledutech/tasktracker"
)

func (t *sqliteTx) InsertBoard(ctx context.Context, b *tracker.Board) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.CreatedAt = time.Now().UTC()
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO boards (id, owner_id, name, created_at) VALUES (?, ?, ?, ?)`,
		b.ID, b.OwnerID, b.Name, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("tracker: insert board: %w", err)
	}
	return nil
}

func (t *sqliteTx) GetBoard(ctx context.Context, id string) (*tracker.Board, error) {
	var b tracker.Board
	err := t.tx.QueryRowContext(ctx,
		`SELECT id, owner_id, name, created_at FROM boards WHERE id = ?`, id,
	).Scan(&b.ID, &b.OwnerID, &b.Name, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tracker: get board: %w", err)
	}
	return &b, nil
}

func (t *sqliteTx) ListBoards(ctx context.Context, ownerID string) ([]tracker.Board, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT id, owner_id, name, created_at FROM boards WHERE owner_id = ? ORDER BY rowid`, ownerID)
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
	return boards, rows.Err()
}

func (t *sqliteTx) RenameBoard(ctx context.Context, id, name string) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE boards SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("tracker: rename board: %w", err)
	}
	return requireRow(res)
}

func (t *sqliteTx) DeleteBoard(ctx context.Context, id string) error {
	if err := t.unlinkStates(ctx, id); err != nil {
		return err
	}
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM boards WHERE id = ?`, id); err != nil {
		return fmt.Errorf("tracker: delete board: %w", err)
	}
	return nil
}

// requireRow maps an update that matched nothing to tracker.ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("tracker: rows affected: %w", err)
	}
	if n == 0 {
		return tracker.ErrNotFound
	}
	return nil
}
