package service

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/meikuraledutech/tasktracker"
	"github.com/meikuraledutech/tasktracker/chain"
)

func taskStates(tx tracker.Tx, owner string) *chain.Engine {
	return chain.New(kindTaskState, tx.TaskStateNodes(), owner)
}

// CreateTaskState appends a new task state to the end of a board.
func (s *Service) CreateTaskState(ctx context.Context, owner, boardID, name string) (*tracker.TaskState, error) {
	name, err := checkName(kindTaskState, name)
	if err != nil {
		return nil, err
	}

	st := &tracker.TaskState{Node: tracker.Node{ParentID: boardID}, Name: name}
	err = s.update(ctx, func(tx tracker.Tx, evict func(...string)) error {
		if _, err := board(ctx, tx, owner, boardID); err != nil {
			return err
		}
		if err := taskStateNameFree(ctx, tx, boardID, name, ""); err != nil {
			return err
		}
		err := taskStates(tx, owner).Append(ctx, &st.Node, func(ctx context.Context) error {
			return tx.InsertTaskState(ctx, st)
		})
		if err != nil {
			return err
		}
		evict(boardKey(boardID))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(log.Fields{"owner": owner, "node": st.ID, "parent": boardID}).Debug("task state created")
	return st, nil
}

// ListTaskStates returns the task states of a board in chain order, each
// carrying its tasks in chain order.
func (s *Service) ListTaskStates(ctx context.Context, owner, boardID string) ([]tracker.TaskState, error) {
	var states []tracker.TaskState
	check := func(tx tracker.Tx) error {
		_, err := board(ctx, tx, owner, boardID)
		return err
	}
	fill := func(tx tracker.Tx) error {
		rows, err := tx.ListTaskStates(ctx, boardID)
		if err != nil {
			return err
		}
		s.warnIfBroken(kindTaskState, boardID, nodesOf(rows))
		states = chain.Linearize(rows)

		for i := range states {
			tasks, err := s.orderedTasks(ctx, tx, states[i].ID)
			if err != nil {
				return err
			}
			states[i].Tasks = tasks
		}
		return nil
	}
	if err := cachedList(ctx, s, boardKey(boardID), check, fill, &states); err != nil {
		return nil, err
	}
	return states, nil
}

// RenameTaskState changes the name of a task state. Names are unique among
// the states of a board, ignoring case.
func (s *Service) RenameTaskState(ctx context.Context, owner, id, name string) (*tracker.TaskState, error) {
	name, err := checkName(kindTaskState, name)
	if err != nil {
		return nil, err
	}

	var st *tracker.TaskState
	err = s.update(ctx, func(tx tracker.Tx, evict func(...string)) error {
		n, err := taskStates(tx, owner).Resolve(ctx, id)
		if err != nil {
			return err
		}
		if err := taskStateNameFree(ctx, tx, n.ParentID, name, id); err != nil {
			return err
		}
		if err := tx.RenameTaskState(ctx, id, name); err != nil {
			return err
		}
		evict(boardKey(n.ParentID))
		st, err = tx.GetTaskState(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(log.Fields{"owner": owner, "node": id}).Debug("task state renamed")
	return st, nil
}

// DeleteTaskState removes a task state and its tasks, relinking its
// neighbors. With deleteAll every task state of the same board is removed.
func (s *Service) DeleteTaskState(ctx context.Context, owner, id string, deleteAll bool) error {
	var parentID string
	err := s.update(ctx, func(tx tracker.Tx, evict func(...string)) error {
		engine := taskStates(tx, owner)
		n, err := engine.Resolve(ctx, id)
		if err != nil {
			return err
		}
		parentID = n.ParentID
		evict(boardKey(parentID))

		if !deleteAll {
			evict(taskStateKey(id))
			if err := engine.Detach(ctx, n); err != nil {
				return err
			}
			return tx.DeleteTaskState(ctx, id)
		}

		siblings, err := tx.TaskStateNodes().Siblings(ctx, parentID)
		if err != nil {
			return err
		}
		for _, sib := range siblings {
			evict(taskStateKey(sib.ID))
		}
		return tx.DeleteTaskStates(ctx, parentID)
	})
	if err != nil {
		return err
	}

	s.log.WithFields(log.Fields{"owner": owner, "node": id, "parent": parentID, "all": deleteAll}).Debug("task state deleted")
	return nil
}

// MoveTaskState repositions a task state between prevID and nextID. Either
// may be nil, not both.
func (s *Service) MoveTaskState(ctx context.Context, owner, id string, prevID, nextID *string) (*tracker.TaskState, error) {
	var st *tracker.TaskState
	err := s.update(ctx, func(tx tracker.Tx, evict func(...string)) error {
		n, err := taskStates(tx, owner).Reposition(ctx, id, prevID, nextID)
		if err != nil {
			return err
		}
		evict(boardKey(n.ParentID))
		st, err = tx.GetTaskState(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(log.Fields{"owner": owner, "node": id, "parent": st.ParentID}).Debug("task state moved")
	return st, nil
}

func taskStateNameFree(ctx context.Context, tx tracker.Tx, boardID, name, selfID string) error {
	states, err := tx.ListTaskStates(ctx, boardID)
	if err != nil {
		return err
	}
	names := make(map[string]string, len(states))
	for _, st := range states {
		names[st.ID] = st.Name
	}
	if taken(names, name, selfID) {
		return duplicate(kindTaskState, name)
	}
	return nil
}
