package tracker

import "time"

// Board is the top-level aggregate. Everything nested under it belongs to OwnerID.
type Board struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Node is one position in a chain of siblings.
// Prev and Next are weak references by id; nil marks the head and the tail.
type Node struct {
	ID       string  `json:"id"`
	ParentID string  `json:"parent_id"`
	Prev     *string `json:"previous_id"`
	Next     *string `json:"next_id"`
}

// ChainNode returns the ordering fields. Types embedding Node inherit it,
// which lets chain.Linearize order them directly.
func (n Node) ChainNode() Node { return n }

// TaskState is a column of a board. ParentID is the board id.
// Tasks is only filled when the whole board is listed.
type TaskState struct {
	Node
	Name  string `json:"name"`
	Tasks []Task `json:"tasks,omitempty"`
}

// Task is an item of a task state. ParentID is the task state id.
type Task struct {
	Node
	Name        string `json:"name"`
	Description string `json:"description"`
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
