package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/meikuraledutech/tasktracker"
)

const (
	lookupTaskStateSQL = `
SELECT s.id, s.board_id, s.prev_id, s.next_id, b.owner_id
FROM task_states s
JOIN boards b ON b.id = s.board_id
WHERE s.id = ?`

	lookupTaskSQL = `
SELECT t.id, t.task_state_id, t.prev_id, t.next_id, b.owner_id
FROM tasks t
JOIN task_states s ON s.id = t.task_state_id
JOIN boards b ON b.id = s.board_id
WHERE t.id = ?`
)

// nodeStore serves the ordering columns of one table. Transactions begin
// immediate, so no row locking is needed.
type nodeStore struct {
	tx     *sql.Tx
	kind   string
	table  string
	parent string
	lookup string
}

func (s *nodeStore) Lookup(ctx context.Context, id string) (*tracker.Node, string, error) {
	var (
		n          tracker.Node
		prev, next sql.NullString
		owner      string
	)
	err := s.tx.QueryRowContext(ctx, s.lookup, id).Scan(&n.ID, &n.ParentID, &prev, &next, &owner)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("tracker: lookup %s: %w", s.kind, err)
	}
	n.Prev, n.Next = fromNullString(prev), fromNullString(next)
	return &n, owner, nil
}

func (s *nodeStore) Siblings(ctx context.Context, parentID string) ([]tracker.Node, error) {
	rows, err := s.tx.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, %[2]s, prev_id, next_id FROM %[1]s WHERE %[2]s = ? ORDER BY rowid`,
		s.table, s.parent), parentID)
	if err != nil {
		return nil, fmt.Errorf("tracker: list %s siblings: %w", s.kind, err)
	}
	defer rows.Close()

	nodes := []tracker.Node{}
	for rows.Next() {
		var (
			n          tracker.Node
			prev, next sql.NullString
		)
		if err := rows.Scan(&n.ID, &n.ParentID, &prev, &next); err != nil {
			return nil, fmt.Errorf("tracker: scan %s: %w", s.kind, err)
		}
		n.Prev, n.Next = fromNullString(prev), fromNullString(next)
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func (s *nodeStore) SaveLinks(ctx context.Context, n *tracker.Node) error {
	res, err := s.tx.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET prev_id = ?, next_id = ? WHERE id = ?`, s.table),
		toNullString(n.Prev), toNullString(n.Next), n.ID,
	)
	if err != nil {
		return fmt.Errorf("tracker: save %s links: %w", s.kind, err)
	}
	return requireRow(res)
}
