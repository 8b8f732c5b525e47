package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/tasktracker"
	"github.com/meikuraledutech/tasktracker/cache"
	"github.com/meikuraledutech/tasktracker/memory"
	"github.com/meikuraledutech/tasktracker/service"
)

// countingStore counts transactions to tell cache hits from store reads.
type countingStore struct {
	tracker.Store
	lists int
}

func (s *countingStore) RunInTx(ctx context.Context, fn func(tracker.Tx) error) error {
	return s.Store.RunInTx(ctx, func(tx tracker.Tx) error {
		return fn(countingTx{Tx: tx, s: s})
	})
}

type countingTx struct {
	tracker.Tx
	s *countingStore
}

func (tx countingTx) ListTaskStates(ctx context.Context, boardID string) ([]tracker.TaskState, error) {
	tx.s.lists++
	return tx.Tx.ListTaskStates(ctx, boardID)
}

func newRedisCache(t *testing.T) (*cache.Redis, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewRedis(client, time.Minute, nil), mr
}

func newCachedService(t *testing.T) (*service.Service, *countingStore, *miniredis.Miniredis) {
	t.Helper()
	c, mr := newRedisCache(t)
	store := &countingStore{Store: memory.New()}
	return service.New(store, service.WithCache(c)), store, mr
}

// entries lists the cached views, leaving out generation counters.
func entries(mr *miniredis.Miniredis) []string {
	var keys []string
	for _, k := range mr.Keys() {
		if !strings.HasSuffix(k, ":gen") {
			keys = append(keys, k)
		}
	}
	return keys
}

// hookedCache runs before once, ahead of the first Store.
type hookedCache struct {
	service.Cache
	before func()
}

func (c *hookedCache) Store(ctx context.Context, key string, gen int64, v any) {
	if f := c.before; f != nil {
		c.before = nil
		f()
	}
	c.Cache.Store(ctx, key, gen, v)
}

func TestListTaskStatesReadThrough(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newCachedService(t)
	b := newBoard(t, svc, alice, "Work")
	ids := newStates(t, svc, b.ID, "Todo", "Done")
	newTasks(t, svc, ids["Todo"], "a", "b")

	first, err := svc.ListTaskStates(ctx, alice, b.ID)
	require.NoError(t, err)
	before := store.lists

	second, err := svc.ListTaskStates(ctx, alice, b.ID)
	require.NoError(t, err)
	assert.Equal(t, before, store.lists, "second read is served from the cache")
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Node, second[i].Node)
		assert.Len(t, second[i].Tasks, len(first[i].Tasks))
	}

	_, err = svc.ListTaskStates(ctx, mallory, b.ID)
	require.ErrorIs(t, err, tracker.ErrNotFound, "ownership is checked before the cache")
}

func TestMutationsEvictCachedViews(t *testing.T) {
	ctx := context.Background()
	svc, _, mr := newCachedService(t)
	b := newBoard(t, svc, alice, "Work")
	ids := newStates(t, svc, b.ID, "Todo", "Done")
	tasks := newTasks(t, svc, ids["Todo"], "a", "b")

	warm := func() {
		_, err := svc.ListTaskStates(ctx, alice, b.ID)
		require.NoError(t, err)
		_, err = svc.ListTasks(ctx, alice, ids["Todo"])
		require.NoError(t, err)
		require.Len(t, entries(mr), 2)
	}

	warm()
	_, err := svc.MoveTask(ctx, alice, tasks["b"], nil, ptr(tasks["a"]))
	require.NoError(t, err)
	assert.Empty(t, entries(mr))
	assert.Equal(t, []string{"b", "a"}, taskNames(t, svc, ids["Todo"]))

	warm()
	_, err = svc.MoveTaskState(ctx, alice, ids["Done"], nil, ptr(ids["Todo"]))
	require.NoError(t, err)
	assert.Equal(t, []string{"tracker:task-state:" + ids["Todo"] + ":tasks"}, entries(mr))
	assert.Equal(t, []string{"Done", "Todo"}, stateNames(t, svc, b.ID))

	warm()
	require.NoError(t, svc.DeleteTask(ctx, alice, tasks["a"], false))
	assert.Empty(t, entries(mr))
	assert.Equal(t, []string{"b"}, taskNames(t, svc, ids["Todo"]))
}

func TestMoveDuringFillIsNotCached(t *testing.T) {
	ctx := context.Background()
	redisCache, mr := newRedisCache(t)
	hooked := &hookedCache{Cache: redisCache}
	svc := service.New(memory.New(), service.WithCache(hooked))

	b := newBoard(t, svc, alice, "Work")
	ids := newStates(t, svc, b.ID, "A", "B", "C")
	hooked.before = func() {
		_, err := svc.MoveTaskState(ctx, alice, ids["C"], nil, ptr(ids["A"]))
		require.NoError(t, err)
	}

	stale, err := svc.ListTaskStates(ctx, alice, b.ID)
	require.NoError(t, err)
	require.Len(t, stale, 3)
	assert.Equal(t, "A", stale[0].Name, "the fill read the order before the move")
	assert.Empty(t, entries(mr), "the stale fill is dropped")

	assert.Equal(t, []string{"C", "A", "B"}, stateNames(t, svc, b.ID))
	assert.Equal(t, []string{"C", "A", "B"}, stateNames(t, svc, b.ID), "served from the cache")
	assert.Len(t, entries(mr), 1)
}

func TestCacheReadOutsideTransaction(t *testing.T) {
	ctx := context.Background()
	store := &txCounter{Store: memory.New()}
	redisCache, _ := newRedisCache(t)
	watcher := &lockCheckingCache{Cache: redisCache, store: store}
	svc := service.New(store, service.WithCache(watcher))

	b := newBoard(t, svc, alice, "Work")
	ids := newStates(t, svc, b.ID, "Todo")
	newTasks(t, svc, ids["Todo"], "a")

	for i := 0; i < 2; i++ {
		_, err := svc.ListTaskStates(ctx, alice, b.ID)
		require.NoError(t, err)
		_, err = svc.ListTasks(ctx, alice, ids["Todo"])
		require.NoError(t, err)
	}
	assert.Equal(t, 4, watcher.loads)
	assert.Zero(t, watcher.insideTx, "cache calls must not hold a store transaction")
}

// txCounter tracks whether a transaction is in progress.
type txCounter struct {
	tracker.Store
	open int
}

func (s *txCounter) RunInTx(ctx context.Context, fn func(tracker.Tx) error) error {
	return s.Store.RunInTx(ctx, func(tx tracker.Tx) error {
		s.open++
		defer func() { s.open-- }()
		return fn(tx)
	})
}

type lockCheckingCache struct {
	service.Cache
	store    *txCounter
	loads    int
	insideTx int
}

func (c *lockCheckingCache) Load(ctx context.Context, key string, dest any) (bool, int64) {
	c.loads++
	if c.store.open > 0 {
		c.insideTx++
	}
	return c.Cache.Load(ctx, key, dest)
}
