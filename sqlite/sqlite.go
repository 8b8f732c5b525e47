// Package sqlite implements tracker.Store on SQLite for single-node and
// local use.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/meikuraledutech/tasktracker"
)

// Store implements tracker.Store with SQLite.
type Store struct {
	db *sql.DB
}

var _ tracker.Store = (*Store)(nil)

// New wraps an open database. Foreign keys must be enabled on it.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open opens the database file at path, or a private in-memory database
// when path is ":memory:". Write transactions take the database lock up
// front.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_txlock=immediate&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("tracker: open sqlite: %w", err)
	}
	// One connection keeps an in-memory database alive and serializes writers.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("tracker: ping sqlite: %w", err)
	}
	return New(db), nil
}

// RunInTx executes fn inside a transaction, committing on success and
// rolling back on error or panic.
func (s *Store) RunInTx(ctx context.Context, fn func(tx tracker.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("tracker: begin tx: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(&sqliteTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tracker: commit: %w", err)
	}
	committed = true
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type sqliteTx struct {
	tx *sql.Tx
}

var _ tracker.Tx = (*sqliteTx)(nil)

func (t *sqliteTx) TaskStateNodes() tracker.NodeStore {
	return &nodeStore{tx: t.tx, kind: "task state", table: "task_states", parent: "board_id", lookup: lookupTaskStateSQL}
}

func (t *sqliteTx) TaskNodes() tracker.NodeStore {
	return &nodeStore{tx: t.tx, kind: "task", table: "tasks", parent: "task_state_id", lookup: lookupTaskSQL}
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
