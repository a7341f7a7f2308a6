package store

import (
	"context"
	"fmt"
	"time"

	"studyspot-backend/internal/logger"
)

type Options struct {
	Backend     string // "memory" | "sqlite" | "redis" | "postgres"
	Prefix      string
	Path        string
	DatabaseURL string
	RedisURL    string
	Timeout     time.Duration
}

// Open builds the medium selected by opts.Backend and wraps it in a Store.
func Open(ctx context.Context, opts Options, log *logger.Logger) (*Store, error) {
	var (
		medium Medium
		err    error
	)

	switch opts.Backend {
	case "", "memory":
		medium = NewMemoryMedium(0)
	case "sqlite":
		medium, err = OpenSQLite(opts.Path)
	case "redis":
		client, cerr := NewRedisClient(opts.RedisURL)
		if cerr != nil {
			return nil, cerr
		}
		medium = NewRedisMedium(client)
	case "postgres":
		pool, perr := NewPostgresPool(opts.DatabaseURL)
		if perr != nil {
			return nil, perr
		}
		medium, err = NewPostgresMedium(ctx, pool)
		if err != nil {
			pool.Close()
		}
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", opts.Backend, err)
	}

	return New(medium, opts.Prefix, log, WithTimeout(opts.Timeout)), nil
}
