package tracker

import (
	"context"
	"errors"
)

// Callers are told NotFound both when a record is missing and when it
// belongs to someone else.
var (
	ErrNotFound        = errors.New("tracker: not found")
	ErrInvalidArgument = errors.New("tracker: invalid argument")
	ErrAlreadyExists   = errors.New("tracker: already exists")
)

// Store defines the contract for persisting boards, task states and tasks.
type Store interface {
	// Schema
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error

	// RunInTx executes fn inside a single transaction. The transaction is
	// committed when fn returns nil and rolled back otherwise.
	RunInTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
}

// Tx is the set of row operations available inside a transaction.
// Getters return nil, nil when the row does not exist.
type Tx interface {
	// Boards
	InsertBoard(ctx context.Context, b *Board) error
	GetBoard(ctx context.Context, id string) (*Board, error)
	ListBoards(ctx context.Context, ownerID string) ([]Board, error)
	RenameBoard(ctx context.Context, id, name string) error
	DeleteBoard(ctx context.Context, id string) error

	// Task states
	InsertTaskState(ctx context.Context, s *TaskState) error
	GetTaskState(ctx context.Context, id string) (*TaskState, error)
	ListTaskStates(ctx context.Context, boardID string) ([]TaskState, error)
	RenameTaskState(ctx context.Context, id, name string) error
	DeleteTaskState(ctx context.Context, id string) error
	DeleteTaskStates(ctx context.Context, boardID string) error

	// Tasks
	InsertTask(ctx context.Context, t *Task) error
	GetTask(ctx context.Context, id string) (*Task, error)
	ListTasks(ctx context.Context, taskStateID string) ([]Task, error)
	UpdateTask(ctx context.Context, t *Task) error
	DeleteTask(ctx context.Context, id string) error
	DeleteTasks(ctx context.Context, taskStateID string) error

	// Ordering
	TaskStateNodes() NodeStore
	TaskNodes() NodeStore
}

// NodeStore exposes the ordering columns of one kind of node.
type NodeStore interface {
	// Lookup returns the node and the id of the person owning its board,
	// or a nil node when it does not exist. Implementations backed by a
	// server database lock the row for the rest of the transaction.
	Lookup(ctx context.Context, id string) (*Node, string, error)

	// Siblings returns every node under parentID in storage order. Server
	// backed implementations lock the parent row and the returned rows for
	// the transaction.
	Siblings(ctx context.Context, parentID string) ([]Node, error)

	// SaveLinks persists n.Prev and n.Next.
	SaveLinks(ctx context.Context, n *Node) error
}
