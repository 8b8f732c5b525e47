// Package memory implements tracker.Store with in-process maps.
//
// Each transaction works on a private copy of the data which replaces the
// shared copy on commit, so a failed transaction leaves no trace.
// Transactions are serialized by a single mutex.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meikuraledutech/tasktracker"
)

// Store implements tracker.Store in memory.
type Store struct {
	mu   sync.Mutex
	data *dataset
}

// New returns an empty Store.
func New() *Store {
	return &Store{data: newDataset()}
}

type boardRow struct {
	tracker.Board
	seq int64
}

type stateRow struct {
	tracker.TaskState
	seq int64
}

type taskRow struct {
	tracker.Task
	seq int64
}

type dataset struct {
	seq    int64
	boards map[string]boardRow
	states map[string]stateRow
	tasks  map[string]taskRow
}

func newDataset() *dataset {
	return &dataset{
		boards: make(map[string]boardRow),
		states: make(map[string]stateRow),
		tasks:  make(map[string]taskRow),
	}
}

// clone copies the maps. Row values share their *string links, which are
// only ever replaced, never written through.
func (d *dataset) clone() *dataset {
	c := &dataset{
		seq:    d.seq,
		boards: make(map[string]boardRow, len(d.boards)),
		states: make(map[string]stateRow, len(d.states)),
		tasks:  make(map[string]taskRow, len(d.tasks)),
	}
	for k, v := range d.boards {
		c.boards[k] = v
	}
	for k, v := range d.states {
		c.states[k] = v
	}
	for k, v := range d.tasks {
		c.tasks[k] = v
	}
	return c
}

func (d *dataset) next() int64 {
	d.seq++
	return d.seq
}

// CreateSchema is a no-op; the maps exist from New.
func (s *Store) CreateSchema(ctx context.Context) error { return nil }

// DropSchema discards all data.
func (s *Store) DropSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = newDataset()
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// RunInTx runs fn against a copy of the data and keeps the copy only if fn
// succeeds.
func (s *Store) RunInTx(ctx context.Context, fn func(tx tracker.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(&memTx{d: work}); err != nil {
		return err
	}
	s.data = work
	return nil
}

type memTx struct {
	d *dataset
}

var _ tracker.Tx = (*memTx)(nil)

func newID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

// ── Boards ────────────────────────────────────────────────────────

func (t *memTx) InsertBoard(ctx context.Context, b *tracker.Board) error {
	b.ID = newID(b.ID)
	b.CreatedAt = time.Now().UTC()
	t.d.boards[b.ID] = boardRow{Board: *b, seq: t.d.next()}
	return nil
}

func (t *memTx) GetBoard(ctx context.Context, id string) (*tracker.Board, error) {
	r, ok := t.d.boards[id]
	if !ok {
		return nil, nil
	}
	b := r.Board
	return &b, nil
}

func (t *memTx) ListBoards(ctx context.Context, ownerID string) ([]tracker.Board, error) {
	rows := make([]boardRow, 0)
	for _, r := range t.d.boards {
		if r.OwnerID == ownerID {
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	boards := make([]tracker.Board, 0, len(rows))
	for _, r := range rows {
		boards = append(boards, r.Board)
	}
	return boards, nil
}

func (t *memTx) RenameBoard(ctx context.Context, id, name string) error {
	r, ok := t.d.boards[id]
	if !ok {
		return tracker.ErrNotFound
	}
	r.Name = name
	t.d.boards[id] = r
	return nil
}

func (t *memTx) DeleteBoard(ctx context.Context, id string) error {
	delete(t.d.boards, id)
	for sid, s := range t.d.states {
		if s.ParentID == id {
			t.deleteState(sid)
		}
	}
	return nil
}

// ── Task states ───────────────────────────────────────────────────

func (t *memTx) InsertTaskState(ctx context.Context, s *tracker.TaskState) error {
	s.ID = newID(s.ID)
	row := *s
	row.Tasks = nil
	t.d.states[s.ID] = stateRow{TaskState: row, seq: t.d.next()}
	return nil
}

func (t *memTx) GetTaskState(ctx context.Context, id string) (*tracker.TaskState, error) {
	r, ok := t.d.states[id]
	if !ok {
		return nil, nil
	}
	s := r.TaskState
	return &s, nil
}

func (t *memTx) ListTaskStates(ctx context.Context, boardID string) ([]tracker.TaskState, error) {
	rows := make([]stateRow, 0)
	for _, r := range t.d.states {
		if r.ParentID == boardID {
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	states := make([]tracker.TaskState, 0, len(rows))
	for _, r := range rows {
		states = append(states, r.TaskState)
	}
	return states, nil
}

func (t *memTx) RenameTaskState(ctx context.Context, id, name string) error {
	r, ok := t.d.states[id]
	if !ok {
		return tracker.ErrNotFound
	}
	r.Name = name
	t.d.states[id] = r
	return nil
}

func (t *memTx) DeleteTaskState(ctx context.Context, id string) error {
	t.deleteState(id)
	return nil
}

func (t *memTx) DeleteTaskStates(ctx context.Context, boardID string) error {
	for id, s := range t.d.states {
		if s.ParentID == boardID {
			t.deleteState(id)
		}
	}
	return nil
}

// deleteState mirrors the SQL schema: tasks cascade, links to the row are
// set to null.
func (t *memTx) deleteState(id string) {
	delete(t.d.states, id)
	for tid, task := range t.d.tasks {
		if task.ParentID == id {
			t.deleteTask(tid)
		}
	}
	for sid, s := range t.d.states {
		if clearRefs(&s.Node, id) {
			t.d.states[sid] = s
		}
	}
}

// ── Tasks ─────────────────────────────────────────────────────────

func (t *memTx) InsertTask(ctx context.Context, task *tracker.Task) error {
	task.ID = newID(task.ID)
	t.d.tasks[task.ID] = taskRow{Task: *task, seq: t.d.next()}
	return nil
}

func (t *memTx) GetTask(ctx context.Context, id string) (*tracker.Task, error) {
	r, ok := t.d.tasks[id]
	if !ok {
		return nil, nil
	}
	task := r.Task
	return &task, nil
}

func (t *memTx) ListTasks(ctx context.Context, taskStateID string) ([]tracker.Task, error) {
	rows := make([]taskRow, 0)
	for _, r := range t.d.tasks {
		if r.ParentID == taskStateID {
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	tasks := make([]tracker.Task, 0, len(rows))
	for _, r := range rows {
		tasks = append(tasks, r.Task)
	}
	return tasks, nil
}

func (t *memTx) UpdateTask(ctx context.Context, task *tracker.Task) error {
	r, ok := t.d.tasks[task.ID]
	if !ok {
		return tracker.ErrNotFound
	}
	r.Name = task.Name
	r.Description = task.Description
	t.d.tasks[task.ID] = r
	return nil
}

func (t *memTx) DeleteTask(ctx context.Context, id string) error {
	t.deleteTask(id)
	return nil
}

func (t *memTx) DeleteTasks(ctx context.Context, taskStateID string) error {
	for id, task := range t.d.tasks {
		if task.ParentID == taskStateID {
			t.deleteTask(id)
		}
	}
	return nil
}

func (t *memTx) deleteTask(id string) {
	delete(t.d.tasks, id)
	for tid, task := range t.d.tasks {
		if clearRefs(&task.Node, id) {
			t.d.tasks[tid] = task
		}
	}
}

func clearRefs(n *tracker.Node, id string) bool {
	changed := false
	if n.Prev != nil && *n.Prev == id {
		n.Prev = nil
		changed = true
	}
	if n.Next != nil && *n.Next == id {
		n.Next = nil
		changed = true
	}
	return changed
}

// ── Ordering ──────────────────────────────────────────────────────

func (t *memTx) TaskStateNodes() tracker.NodeStore { return stateNodes{t.d} }
func (t *memTx) TaskNodes() tracker.NodeStore      { return taskNodes{t.d} }

type stateNodes struct{ d *dataset }

func (s stateNodes) Lookup(ctx context.Context, id string) (*tracker.Node, string, error) {
	r, ok := s.d.states[id]
	if !ok {
		return nil, "", nil
	}
	n := r.Node
	return &n, s.d.boards[r.ParentID].OwnerID, nil
}

func (s stateNodes) Siblings(ctx context.Context, parentID string) ([]tracker.Node, error) {
	rows := make([]stateRow, 0)
	for _, r := range s.d.states {
		if r.ParentID == parentID {
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	nodes := make([]tracker.Node, 0, len(rows))
	for _, r := range rows {
		nodes = append(nodes, r.Node)
	}
	return nodes, nil
}

func (s stateNodes) SaveLinks(ctx context.Context, n *tracker.Node) error {
	r, ok := s.d.states[n.ID]
	if !ok {
		return tracker.ErrNotFound
	}
	r.Prev, r.Next = n.Prev, n.Next
	s.d.states[n.ID] = r
	return nil
}

type taskNodes struct{ d *dataset }

func (s taskNodes) Lookup(ctx context.Context, id string) (*tracker.Node, string, error) {
	r, ok := s.d.tasks[id]
	if !ok {
		return nil, "", nil
	}
	n := r.Node
	state := s.d.states[r.ParentID]
	return &n, s.d.boards[state.ParentID].OwnerID, nil
}

func (s taskNodes) Siblings(ctx context.Context, parentID string) ([]tracker.Node, error) {
	rows := make([]taskRow, 0)
	for _, r := range s.d.tasks {
		if r.ParentID == parentID {
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	nodes := make([]tracker.Node, 0, len(rows))
	for _, r := range rows {
		nodes = append(nodes, r.Node)
	}
	return nodes, nil
}

func (s taskNodes) SaveLinks(ctx context.Context, n *tracker.Node) error {
	r, ok := s.d.tasks[n.ID]
	if !ok {
		return tracker.ErrNotFound
	}
	r.Prev, r.Next = n.Prev, n.Next
	s.d.tasks[n.ID] = r
	return nil
}
