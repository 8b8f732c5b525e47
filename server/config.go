package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meikuraledutech/tasktracker"
	"github.com/meikuraledutech/tasktracker/cache"
	"github.com/meikuraledutech/tasktracker/memory"
	"github.com/meikuraledutech/tasktracker/postgres"
	"github.com/meikuraledutech/tasktracker/sqlite"
)

// Config is read from flags first, then environment variables named after
// the flag in upper snake case (database-url -> DATABASE_URL).
type Config struct {
	Store       string
	DatabaseURL string
	SQLitePath  string
	Addr        string
	RedisURL    string
	CacheTTL    time.Duration
	JWTSecret   string
	JWTIssuer   string
	Debug       bool
}

func addStoreFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("store", "postgres", "storage backend: postgres, sqlite or memory")
	f.String("database-url", "", "PostgreSQL connection string")
	f.String("sqlite-path", "tracker.db", "SQLite database file")
	f.Bool("debug", false, "log at debug level")
}

func addServeFlags(cmd *cobra.Command) {
	addStoreFlags(cmd)
	f := cmd.Flags()
	f.String("addr", ":3000", "listen address")
	f.String("redis-url", "", "redis:// URL for the list cache; empty disables caching")
	f.Duration("cache-ttl", time.Minute, "lifetime of cached lists")
	f.String("jwt-secret", "", "HMAC secret used to verify bearer tokens")
	f.String("jwt-issuer", "authorization-service", "required token issuer")
}

func loadConfig(cmd *cobra.Command) (Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Store:       strings.ToLower(v.GetString("store")),
		DatabaseURL: v.GetString("database-url"),
		SQLitePath:  v.GetString("sqlite-path"),
		Addr:        v.GetString("addr"),
		RedisURL:    v.GetString("redis-url"),
		CacheTTL:    v.GetDuration("cache-ttl"),
		JWTSecret:   v.GetString("jwt-secret"),
		JWTIssuer:   v.GetString("jwt-issuer"),
		Debug:       v.GetBool("debug"),
	}

	switch cfg.Store {
	case "postgres", "sqlite", "memory":
	default:
		return cfg, fmt.Errorf("unknown store %q", cfg.Store)
	}
	return cfg, nil
}

func newLogger(cfg Config) *log.Logger {
	logger := log.New()
	if cfg.Debug {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

func openStore(ctx context.Context, cfg Config) (tracker.Store, error) {
	switch cfg.Store {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is not set")
		}
		return postgres.Open(ctx, cfg.DatabaseURL)
	case "sqlite":
		return sqlite.Open(cfg.SQLitePath)
	default:
		return memory.New(), nil
	}
}

// openCache returns nil when no Redis URL is configured.
func openCache(ctx context.Context, cfg Config, logger log.FieldLogger) (*cache.Redis, *redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil, nil
	}
	client, err := cache.Dial(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	return cache.NewRedis(client, cfg.CacheTTL, logger), client, nil
}
