// Package store is the namespaced, JSON-encoded key-value layer every stateful
// module persists through. It never surfaces medium or serialization failures to
// callers: reads fall back to the caller's default and writes report false, so a
// broken or disabled medium degrades to per-process state instead of errors.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"studyspot-backend/internal/logger"
)

const defaultTimeout = 3 * time.Second

// ErrQuotaExceeded is returned by mediums that enforce a size budget.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Medium is the raw byte storage behind a Store.
type Medium interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

type Store struct {
	medium  Medium
	prefix  string
	timeout time.Duration
	log     *logger.Logger
}

type Option func(*Store)

// WithTimeout bounds every medium call.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func New(medium Medium, prefix string, log *logger.Logger, opts ...Option) *Store {
	if log == nil {
		log = logger.Nop()
	}
	s := &Store{
		medium:  medium,
		prefix:  prefix,
		timeout: defaultTimeout,
		log:     log.With("component", "DurableStore"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Prefix() string {
	if s == nil {
		return ""
	}
	return s.prefix
}

// Set serializes value under key. It reports false on any failure.
func (s *Store) Set(ctx context.Context, key string, value interface{}) bool {
	data, err := json.Marshal(value)
	if err != nil {
		s.logger().Error("store serialize failed", "key", key, "error", err)
		return false
	}
	err = s.call(ctx, func(ctx context.Context, m Medium) error {
		return m.Set(ctx, s.prefix+key, data)
	})
	if err != nil {
		s.logger().Error("store write failed", "key", key, "error", err)
		return false
	}
	return true
}

// Get decodes the value stored under key, or returns def when the key is unset,
// unreadable or corrupt.
func Get[T any](ctx context.Context, s *Store, key string, def T) T {
	data, ok := s.raw(ctx, key)
	if !ok {
		return def
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		s.logger().Warn("store value corrupt, using default", "key", key, "error", err)
		return def
	}
	return v
}

// GetRaw returns the undecoded JSON stored under key.
func (s *Store) GetRaw(ctx context.Context, key string) (json.RawMessage, bool) {
	data, ok := s.raw(ctx, key)
	if !ok {
		return nil, false
	}
	return json.RawMessage(data), true
}

func (s *Store) Has(ctx context.Context, key string) bool {
	_, ok := s.raw(ctx, key)
	return ok
}

func (s *Store) Remove(ctx context.Context, key string) {
	err := s.call(ctx, func(ctx context.Context, m Medium) error {
		return m.Delete(ctx, s.prefix+key)
	})
	if err != nil {
		s.logger().Error("store remove failed", "key", key, "error", err)
	}
}

// Keys lists this store's keys with the namespace prefix stripped.
func (s *Store) Keys(ctx context.Context) []string {
	var keys []string
	err := s.call(ctx, func(ctx context.Context, m Medium) error {
		var err error
		keys, err = m.Keys(ctx, s.prefix)
		return err
	})
	if err != nil {
		s.logger().Error("store list failed", "error", err)
		return nil
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if strings.HasPrefix(k, s.prefix) {
			out = append(out, strings.TrimPrefix(k, s.prefix))
		}
	}
	sort.Strings(out)
	return out
}

// Clear removes every key under this store's prefix and nothing else.
func (s *Store) Clear(ctx context.Context) {
	for _, key := range s.Keys(ctx) {
		s.Remove(ctx, key)
	}
}

func (s *Store) Close() error {
	if s == nil || s.medium == nil {
		return nil
	}
	return s.medium.Close()
}

func (s *Store) raw(ctx context.Context, key string) ([]byte, bool) {
	var (
		data  []byte
		found bool
	)
	err := s.call(ctx, func(ctx context.Context, m Medium) error {
		var err error
		data, found, err = m.Get(ctx, s.prefix+key)
		return err
	})
	if err != nil {
		s.logger().Warn("store read failed, using default", "key", key, "error", err)
		return nil, false
	}
	return data, found
}

// call runs fn against the medium under the store timeout, converting a
// missing medium or a panicking driver into an error.
func (s *Store) call(ctx context.Context, fn func(ctx context.Context, m Medium) error) (err error) {
	if s == nil || s.medium == nil {
		return errors.New("storage medium unavailable")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("storage medium panic: %v", r)
		}
	}()
	return fn(ctx, s.medium)
}

func (s *Store) logger() *logger.Logger {
	if s == nil || s.log == nil {
		return logger.Nop()
	}
	return s.log
}
