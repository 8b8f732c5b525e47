package sqlite

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS boards (
    id         TEXT PRIMARY KEY,
    owner_id   TEXT NOT NULL,
    name       TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS task_states (
    id       TEXT PRIMARY KEY,
    board_id TEXT NOT NULL REFERENCES boards(id) ON DELETE CASCADE,
    name     TEXT NOT NULL,
    prev_id  TEXT REFERENCES task_states(id) ON DELETE SET NULL,
    next_id  TEXT REFERENCES task_states(id) ON DELETE SET NULL
);

CREATE TABLE IF NOT EXISTS tasks (
    id            TEXT PRIMARY KEY,
    task_state_id TEXT NOT NULL REFERENCES task_states(id) ON DELETE CASCADE,
    name          TEXT NOT NULL,
    description   TEXT NOT NULL DEFAULT '',
    prev_id       TEXT REFERENCES tasks(id) ON DELETE SET NULL,
    next_id       TEXT REFERENCES tasks(id) ON DELETE SET NULL
);

CREATE INDEX IF NOT EXISTS idx_boards_owner_id      ON boards(owner_id);
CREATE INDEX IF NOT EXISTS idx_task_states_board_id ON task_states(board_id);
CREATE INDEX IF NOT EXISTS idx_tasks_task_state_id  ON tasks(task_state_id);
`

// CreateSchema creates the tables if they don't exist. Storage order is
// rowid order.
func (s *Store) CreateSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schemaSQL)
	return err
}

// DropSchema drops all tracker tables.
func (s *Store) DropSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
DROP TABLE IF EXISTS tasks;
DROP TABLE IF EXISTS task_states;
DROP TABLE IF EXISTS boards;`)
	return err
}
