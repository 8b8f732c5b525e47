package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/meikuraledutech/tasktracker"
)

// Lookups join up to the owning board and lock only the node row.
const (
	lookupTaskStateSQL = `
SELECT s.id, s.board_id, s.prev_id, s.next_id, b.owner_id
FROM task_states s
JOIN boards b ON b.id = s.board_id
WHERE s.id = $1
FOR UPDATE OF s`

	lookupTaskSQL = `
SELECT t.id, t.task_state_id, t.prev_id, t.next_id, b.owner_id
FROM tasks t
JOIN task_states s ON s.id = t.task_state_id
JOIN boards b ON b.id = s.board_id
WHERE t.id = $1
FOR UPDATE OF t`
)

// nodeStore serves the ordering columns of one table. The table and column
// names are package constants, never user input.
type nodeStore struct {
	tx          pgx.Tx
	kind        string
	table       string
	parent      string
	parentTable string
	lookup      string
}

func (s *nodeStore) Lookup(ctx context.Context, id string) (*tracker.Node, string, error) {
	var (
		n     tracker.Node
		owner string
	)
	err := s.tx.QueryRow(ctx, s.lookup, id).Scan(&n.ID, &n.ParentID, &n.Prev, &n.Next, &owner)
	if err != nil {
		if isNoRows(err) {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("tracker: lookup %s: %w", s.kind, err)
	}
	return &n, owner, nil
}

// Siblings locks the parent row first, so two transactions appending under
// the same parent see each other's tail. The sibling rows are locked too: a
// concurrent move of the tail commits before they are read, or waits for
// this transaction.
func (s *nodeStore) Siblings(ctx context.Context, parentID string) ([]tracker.Node, error) {
	if _, err := s.tx.Exec(ctx,
		fmt.Sprintf(`SELECT 1 FROM %s WHERE id = $1 FOR UPDATE`, s.parentTable), parentID); err != nil {
		return nil, fmt.Errorf("tracker: lock %s parent: %w", s.kind, err)
	}

	rows, err := s.tx.Query(ctx, fmt.Sprintf(
		`SELECT id, %[2]s, prev_id, next_id FROM %[1]s WHERE %[2]s = $1 ORDER BY seq FOR UPDATE`,
		s.table, s.parent), parentID)
	if err != nil {
		return nil, fmt.Errorf("tracker: list %s siblings: %w", s.kind, err)
	}
	defer rows.Close()

	nodes := []tracker.Node{}
	for rows.Next() {
		var n tracker.Node
		if err := rows.Scan(&n.ID, &n.ParentID, &n.Prev, &n.Next); err != nil {
			return nil, fmt.Errorf("tracker: scan %s: %w", s.kind, err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tracker: rows %s: %w", s.kind, err)
	}
	return nodes, nil
}

func (s *nodeStore) SaveLinks(ctx context.Context, n *tracker.Node) error {
	ct, err := s.tx.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET prev_id = $1, next_id = $2 WHERE id = $3`, s.table),
		n.Prev, n.Next, n.ID,
	)
	if err != nil {
		return fmt.Errorf("tracker: save %s links: %w", s.kind, err)
	}
	if ct.RowsAffected() == 0 {
		return tracker.ErrNotFound
	}
	return nil
}
