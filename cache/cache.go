// Package cache keeps rendered list views in Redis.
package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Redis caches JSON-encoded values with a fixed TTL. Every failure is logged
// and treated as a miss so callers fall back to the store.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	log    log.FieldLogger
}

// NewRedis returns a cache on client. A zero ttl disables writes.
func NewRedis(client *redis.Client, ttl time.Duration, logger log.FieldLogger) *Redis {
	if ttl < 0 {
		ttl = 0
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Redis{client: client, ttl: ttl, log: logger}
}

// Dial parses a redis:// URL and verifies the server answers.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// genTTL bounds how long a generation counter outlives the last eviction
// of its key. Fills started earlier than that are dropped anyway.
const genTTL = 24 * time.Hour

func genKey(key string) string { return key + ":gen" }

// Load decodes the value under key into dest. On a miss it returns the
// generation of key, which the matching Store must present.
func (c *Redis) Load(ctx context.Context, key string, dest any) (bool, int64) {
	vals, err := c.client.MGet(ctx, key, genKey(key)).Result()
	if err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache read failed")
		return false, 0
	}
	gen := parseGen(vals[1])

	data, ok := vals[0].(string)
	if !ok {
		return false, gen
	}
	if err := sonic.UnmarshalString(data, dest); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache entry undecodable")
		if err := c.client.Del(ctx, key).Err(); err != nil {
			c.log.WithError(err).WithField("key", key).Warn("cache evict failed")
		}
		return false, gen
	}
	return true, gen
}

func parseGen(v any) int64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	gen, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return gen
}

// Store encodes v under key unless key was evicted since the Load that
// returned gen. A dropped fill is not an error.
func (c *Redis) Store(ctx context.Context, key string, gen int64, v any) {
	if c.ttl == 0 {
		return
	}
	data, err := sonic.Marshal(v)
	if err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache encode failed")
		return
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey(key)).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStale
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, data, c.ttl)
			return nil
		})
		return err
	}, genKey(key))

	switch {
	case err == nil:
	case errors.Is(err, errStale), errors.Is(err, redis.TxFailedErr):
		c.log.WithField("key", key).Debug("stale cache fill dropped")
	default:
		c.log.WithError(err).WithField("key", key).Warn("cache write failed")
	}
}

var errStale = errors.New("cache: generation moved")

// Evict removes keys and advances their generations, so fills that read
// the store before the eviction are dropped.
func (c *Redis) Evict(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, k := range keys {
			p.Incr(ctx, genKey(k))
			p.Expire(ctx, genKey(k), genTTL)
		}
		p.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		c.log.WithError(err).WithField("keys", keys).Warn("cache evict failed")
	}
}
