package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS boards (
    id         TEXT PRIMARY KEY,
    owner_id   TEXT NOT NULL,
    name       TEXT NOT NULL,
    seq        BIGINT GENERATED ALWAYS AS IDENTITY,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS task_states (
    id         TEXT PRIMARY KEY,
    board_id   TEXT NOT NULL REFERENCES boards(id) ON DELETE CASCADE,
    name       TEXT NOT NULL,
    prev_id    TEXT REFERENCES task_states(id) ON DELETE SET NULL,
    next_id    TEXT REFERENCES task_states(id) ON DELETE SET NULL,
    seq        BIGINT GENERATED ALWAYS AS IDENTITY,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS tasks (
    id            TEXT PRIMARY KEY,
    task_state_id TEXT NOT NULL REFERENCES task_states(id) ON DELETE CASCADE,
    name          TEXT NOT NULL,
    description   TEXT NOT NULL DEFAULT '',
    prev_id       TEXT REFERENCES tasks(id) ON DELETE SET NULL,
    next_id       TEXT REFERENCES tasks(id) ON DELETE SET NULL,
    seq           BIGINT GENERATED ALWAYS AS IDENTITY,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_boards_owner_id         ON boards(owner_id);
CREATE INDEX IF NOT EXISTS idx_task_states_board_id    ON task_states(board_id);
CREATE INDEX IF NOT EXISTS idx_tasks_task_state_id     ON tasks(task_state_id);
`

// CreateSchema creates the boards, task_states and tasks tables if they
// don't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops all tracker tables.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS tasks, task_states, boards CASCADE;`)
	return err
}
