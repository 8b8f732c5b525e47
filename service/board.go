package service

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/meikuraledutech/tasktracker"
)

const kindBoard = "board"

// CreateBoard adds a board for owner. Board names are unique per owner,
// ignoring case.
func (s *Service) CreateBoard(ctx context.Context, owner, name string) (*tracker.Board, error) {
	name, err := checkName(kindBoard, name)
	if err != nil {
		return nil, err
	}

	b := &tracker.Board{Name: name, OwnerID: owner}
	err = s.store.RunInTx(ctx, func(tx tracker.Tx) error {
		if err := s.boardNameFree(ctx, tx, owner, name, ""); err != nil {
			return err
		}
		return tx.InsertBoard(ctx, b)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(log.Fields{"owner": owner, "board": b.ID}).Debug("board created")
	return b, nil
}

// ListBoards returns the boards of owner whose name starts with prefix,
// ignoring case. An empty prefix matches every board.
func (s *Service) ListBoards(ctx context.Context, owner, prefix string) ([]tracker.Board, error) {
	var boards []tracker.Board
	err := s.store.RunInTx(ctx, func(tx tracker.Tx) error {
		all, err := tx.ListBoards(ctx, owner)
		if err != nil {
			return err
		}
		prefix = strings.ToLower(prefix)
		boards = make([]tracker.Board, 0, len(all))
		for _, b := range all {
			if strings.HasPrefix(strings.ToLower(b.Name), prefix) {
				boards = append(boards, b)
			}
		}
		return nil
	})
	return boards, err
}

// RenameBoard changes the name of a board owned by owner.
func (s *Service) RenameBoard(ctx context.Context, owner, id, name string) (*tracker.Board, error) {
	name, err := checkName(kindBoard, name)
	if err != nil {
		return nil, err
	}

	var b *tracker.Board
	err = s.store.RunInTx(ctx, func(tx tracker.Tx) error {
		if b, err = board(ctx, tx, owner, id); err != nil {
			return err
		}
		if err := s.boardNameFree(ctx, tx, owner, name, id); err != nil {
			return err
		}
		if err := tx.RenameBoard(ctx, id, name); err != nil {
			return err
		}
		b.Name = name
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(log.Fields{"owner": owner, "board": id}).Debug("board renamed")
	return b, nil
}

// DeleteBoard removes a board together with its task states and tasks.
func (s *Service) DeleteBoard(ctx context.Context, owner, id string) error {
	err := s.update(ctx, func(tx tracker.Tx, evict func(...string)) error {
		if _, err := board(ctx, tx, owner, id); err != nil {
			return err
		}
		states, err := tx.ListTaskStates(ctx, id)
		if err != nil {
			return err
		}
		evict(boardKey(id))
		for _, st := range states {
			evict(taskStateKey(st.ID))
		}
		return tx.DeleteBoard(ctx, id)
	})
	if err != nil {
		return err
	}

	s.log.WithFields(log.Fields{"owner": owner, "board": id}).Debug("board deleted")
	return nil
}

func (s *Service) boardNameFree(ctx context.Context, tx tracker.Tx, owner, name, selfID string) error {
	boards, err := tx.ListBoards(ctx, owner)
	if err != nil {
		return err
	}
	names := make(map[string]string, len(boards))
	for _, b := range boards {
		names[b.ID] = b.Name
	}
	if taken(names, name, selfID) {
		return duplicate(kindBoard, name)
	}
	return nil
}
