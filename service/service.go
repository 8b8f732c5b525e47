// Package service exposes the tracker operations. Every mutation runs in one
// store transaction and every call is scoped to the calling owner.
package service

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/meikuraledutech/tasktracker"
	"github.com/meikuraledutech/tasktracker/chain"
)

// Cache holds list views between requests. Implementations swallow their
// own failures; a failed Load is a miss.
//
// Load reports a miss together with the key's current generation. Evict
// advances the generation, and Store drops a value whose generation is no
// longer current, so a list read before a mutation cannot outlive it.
type Cache interface {
	Load(ctx context.Context, key string, dest any) (hit bool, gen int64)
	Store(ctx context.Context, key string, gen int64, v any)
	Evict(ctx context.Context, keys ...string)
}

type nopCache struct{}

func (nopCache) Load(context.Context, string, any) (bool, int64) { return false, 0 }
func (nopCache) Store(context.Context, string, int64, any)       {}
func (nopCache) Evict(context.Context, ...string)                {}

// Service implements board, task state and task operations on a Store.
type Service struct {
	store tracker.Store
	cache Cache
	log   log.FieldLogger
}

// Option configures a Service.
type Option func(*Service)

// WithCache enables read-through caching of list views.
func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithLogger replaces the standard logrus logger.
func WithLogger(l log.FieldLogger) Option {
	return func(s *Service) { s.log = l }
}

// New returns a Service backed by store.
func New(store tracker.Store, opts ...Option) *Service {
	s := &Service{store: store, cache: nopCache{}, log: log.StandardLogger()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

const (
	kindTaskState = "task state"
	kindTask      = "task"
)

func boardKey(boardID string) string {
	return "tracker:board:" + boardID + ":task-states"
}

func taskStateKey(taskStateID string) string {
	return "tracker:task-state:" + taskStateID + ":tasks"
}

// update runs fn in a transaction and evicts the keys fn collected once the
// transaction has committed.
func (s *Service) update(ctx context.Context, fn func(tx tracker.Tx, evict func(keys ...string)) error) error {
	var keys []string
	err := s.store.RunInTx(ctx, func(tx tracker.Tx) error {
		keys = keys[:0]
		return fn(tx, func(k ...string) { keys = append(keys, k...) })
	})
	if err != nil {
		return err
	}
	if len(keys) > 0 {
		s.cache.Evict(ctx, keys...)
	}
	return nil
}

// cachedList serves key from the cache once check has passed in its own
// transaction. On a miss fill reads the store in a second transaction and
// the result is cached unless key was evicted in the meantime.
func cachedList[T any](ctx context.Context, s *Service, key string, check, fill func(tx tracker.Tx) error, dest *[]T) error {
	if err := s.store.RunInTx(ctx, check); err != nil {
		return err
	}
	hit, gen := s.cache.Load(ctx, key, dest)
	if hit {
		return nil
	}

	*dest = nil
	err := s.store.RunInTx(ctx, func(tx tracker.Tx) error {
		if err := check(tx); err != nil {
			return err
		}
		return fill(tx)
	})
	if err != nil {
		return err
	}
	s.cache.Store(ctx, key, gen, *dest)
	return nil
}

// board returns the board if it exists and belongs to owner.
func board(ctx context.Context, tx tracker.Tx, owner, id string) (*tracker.Board, error) {
	b, err := tx.GetBoard(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil || b.OwnerID != owner {
		return nil, fmt.Errorf("%w: board %s", tracker.ErrNotFound, id)
	}
	return b, nil
}

// checkName trims name and rejects it when blank.
func checkName(kind, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: %s name is required", tracker.ErrInvalidArgument, kind)
	}
	return name, nil
}

// taken reports whether a sibling other than selfID already uses name.
func taken(names map[string]string, name, selfID string) bool {
	for id, n := range names {
		if id != selfID && strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

func duplicate(kind, name string) error {
	return fmt.Errorf("%w: %s %q", tracker.ErrAlreadyExists, kind, name)
}

// warnIfBroken logs chains that fail verification. Reads still return the
// best-effort order.
func (s *Service) warnIfBroken(kind, parentID string, nodes []tracker.Node) {
	if err := chain.Verify(nodes); err != nil {
		s.log.WithFields(log.Fields{"kind": kind, "parent": parentID}).WithError(err).Warn("corrupt chain")
	}
}

func nodesOf[T chain.Chained](items []T) []tracker.Node {
	nodes := make([]tracker.Node, len(items))
	for i, it := range items {
		nodes[i] = it.ChainNode()
	}
	return nodes
}
