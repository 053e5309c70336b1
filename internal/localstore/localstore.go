// Package localstore provides the single-key persisted slots the workout log
// keeps its state in.
package localstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("key not found")

type Slot interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	Close() error
}

type Options struct {
	Backend       string
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisPrefix   string
}

// Open returns the slot for the configured backend.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (Slot, error) {
	switch opts.Backend {
	case "", "sqlite":
		logger.Info("Using sqlite storage", slog.String("path", opts.SQLitePath))
		return OpenSQLite(ctx, opts.SQLitePath)
	case "redis":
		logger.Info("Using redis storage", slog.String("addr", opts.RedisAddr))
		client := redis.NewClient(&redis.Options{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("error connecting to redis: %w", err)
		}
		return NewRedis(client, opts.RedisPrefix), nil
	case "memory":
		logger.Warn("Using in-memory storage, workouts will not survive a restart")
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}
