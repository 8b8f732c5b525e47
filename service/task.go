package service

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/meikuraledutech/tasktracker"
	"github.com/meikuraledutech/tasktracker/chain"
)

func tasks(tx tracker.Tx, owner string) *chain.Engine {
	return chain.New(kindTask, tx.TaskNodes(), owner)
}

// CreateTask appends a new task to the end of a task state.
func (s *Service) CreateTask(ctx context.Context, owner, taskStateID, name, description string) (*tracker.Task, error) {
	name, err := checkName(kindTask, name)
	if err != nil {
		return nil, err
	}

	task := &tracker.Task{Node: tracker.Node{ParentID: taskStateID}, Name: name, Description: description}
	err = s.update(ctx, func(tx tracker.Tx, evict func(...string)) error {
		parent, err := taskStates(tx, owner).Resolve(ctx, taskStateID)
		if err != nil {
			return err
		}
		if err := taskNameFree(ctx, tx, taskStateID, name, ""); err != nil {
			return err
		}
		err = tasks(tx, owner).Append(ctx, &task.Node, func(ctx context.Context) error {
			return tx.InsertTask(ctx, task)
		})
		if err != nil {
			return err
		}
		evict(taskStateKey(taskStateID), boardKey(parent.ParentID))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(log.Fields{"owner": owner, "node": task.ID, "parent": taskStateID}).Debug("task created")
	return task, nil
}

// ListTasks returns the tasks of a task state in chain order.
func (s *Service) ListTasks(ctx context.Context, owner, taskStateID string) ([]tracker.Task, error) {
	var list []tracker.Task
	check := func(tx tracker.Tx) error {
		_, err := taskStates(tx, owner).Resolve(ctx, taskStateID)
		return err
	}
	fill := func(tx tracker.Tx) (err error) {
		list, err = s.orderedTasks(ctx, tx, taskStateID)
		return err
	}
	if err := cachedList(ctx, s, taskStateKey(taskStateID), check, fill, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *Service) orderedTasks(ctx context.Context, tx tracker.Tx, taskStateID string) ([]tracker.Task, error) {
	rows, err := tx.ListTasks(ctx, taskStateID)
	if err != nil {
		return nil, err
	}
	s.warnIfBroken(kindTask, taskStateID, nodesOf(rows))
	return chain.Linearize(rows), nil
}

// TaskPatch holds the fields UpdateTask may change. Nil fields are kept.
type TaskPatch struct {
	Name        *string
	Description *string
}

// UpdateTask applies patch to a task. A new name must be non-blank and
// unique among the tasks of the same state, ignoring case.
func (s *Service) UpdateTask(ctx context.Context, owner, id string, patch TaskPatch) (*tracker.Task, error) {
	var task *tracker.Task
	err := s.update(ctx, func(tx tracker.Tx, evict func(...string)) error {
		n, err := tasks(tx, owner).Resolve(ctx, id)
		if err != nil {
			return err
		}
		if task, err = tx.GetTask(ctx, id); err != nil {
			return err
		}
		if task == nil {
			return fmt.Errorf("%w: task %s", tracker.ErrNotFound, id)
		}

		if patch.Name != nil {
			name, err := checkName(kindTask, *patch.Name)
			if err != nil {
				return err
			}
			if err := taskNameFree(ctx, tx, n.ParentID, name, id); err != nil {
				return err
			}
			task.Name = name
		}
		if patch.Description != nil {
			task.Description = *patch.Description
		}
		if err := tx.UpdateTask(ctx, task); err != nil {
			return err
		}

		keys, err := taskKeys(ctx, tx, n.ParentID)
		if err != nil {
			return err
		}
		evict(keys...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(log.Fields{"owner": owner, "node": id}).Debug("task updated")
	return task, nil
}

// DeleteTask removes a task, relinking its neighbors. With deleteAll every
// task of the same state is removed.
func (s *Service) DeleteTask(ctx context.Context, owner, id string, deleteAll bool) error {
	var parentID string
	err := s.update(ctx, func(tx tracker.Tx, evict func(...string)) error {
		engine := tasks(tx, owner)
		n, err := engine.Resolve(ctx, id)
		if err != nil {
			return err
		}
		parentID = n.ParentID

		keys, err := taskKeys(ctx, tx, parentID)
		if err != nil {
			return err
		}
		evict(keys...)

		if deleteAll {
			return tx.DeleteTasks(ctx, parentID)
		}
		if err := engine.Detach(ctx, n); err != nil {
			return err
		}
		return tx.DeleteTask(ctx, id)
	})
	if err != nil {
		return err
	}

	s.log.WithFields(log.Fields{"owner": owner, "node": id, "parent": parentID, "all": deleteAll}).Debug("task deleted")
	return nil
}

// MoveTask repositions a task between prevID and nextID inside its state.
// Either may be nil, not both.
func (s *Service) MoveTask(ctx context.Context, owner, id string, prevID, nextID *string) (*tracker.Task, error) {
	var task *tracker.Task
	err := s.update(ctx, func(tx tracker.Tx, evict func(...string)) error {
		n, err := tasks(tx, owner).Reposition(ctx, id, prevID, nextID)
		if err != nil {
			return err
		}
		keys, err := taskKeys(ctx, tx, n.ParentID)
		if err != nil {
			return err
		}
		evict(keys...)
		task, err = tx.GetTask(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(log.Fields{"owner": owner, "node": id, "parent": task.ParentID}).Debug("task moved")
	return task, nil
}

// taskKeys returns the cache keys showing the tasks of a state.
func taskKeys(ctx context.Context, tx tracker.Tx, taskStateID string) ([]string, error) {
	keys := []string{taskStateKey(taskStateID)}
	st, _, err := tx.TaskStateNodes().Lookup(ctx, taskStateID)
	if err != nil {
		return nil, err
	}
	if st != nil {
		keys = append(keys, boardKey(st.ParentID))
	}
	return keys, nil
}

func taskNameFree(ctx context.Context, tx tracker.Tx, taskStateID, name, selfID string) error {
	list, err := tx.ListTasks(ctx, taskStateID)
	if err != nil {
		return err
	}
	names := make(map[string]string, len(list))
	for _, t := range list {
		names[t.ID] = t.Name
	}
	if taken(names, name, selfID) {
		return duplicate(kindTask, name)
	}
	return nil
}
