// Package postgres implements tracker.Store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meikuraledutech/tasktracker"
)

// PGStore implements tracker.Store using PostgreSQL via pgx.
type PGStore struct {
	db *pgxpool.Pool
}

var _ tracker.Store = (*PGStore)(nil)

// New creates a new PGStore backed by the given pgx connection pool.
func New(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// Open connects to databaseURL and verifies the connection.
func Open(ctx context.Context, databaseURL string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("tracker: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("tracker: ping: %w", err)
	}
	return New(pool), nil
}

// RunInTx executes fn inside a transaction. Nodes looked up through the
// transaction stay locked until it ends.
func (s *PGStore) RunInTx(ctx context.Context, fn func(tx tracker.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("tracker: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("tracker: commit: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *PGStore) Close() error {
	s.db.Close()
	return nil
}

type pgTx struct {
	tx pgx.Tx
}

var _ tracker.Tx = (*pgTx)(nil)

func (t *pgTx) TaskStateNodes() tracker.NodeStore {
	return &nodeStore{tx: t.tx, kind: "task state", table: "task_states", parent: "board_id", parentTable: "boards", lookup: lookupTaskStateSQL}
}

func (t *pgTx) TaskNodes() tracker.NodeStore {
	return &nodeStore{tx: t.tx, kind: "task", table: "tasks", parent: "task_state_id", parentTable: "task_states", lookup: lookupTaskSQL}
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
