package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Get when the key does not exist.
	ErrNotFound = errors.New("key not found")

	// ErrTxConflict is returned by Watch when a watched key was modified
	// between the start of the transaction and its commit.
	ErrTxConflict = errors.New("transaction aborted: watched key modified")
)

// Store is the shared key-value store the booking system runs on. The
// production implementation is Redis; tests use the in-memory implementation.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Del(ctx context.Context, keys ...string) error
	Incr(ctx context.Context, key string) (int64, error)
	Decr(ctx context.Context, key string) (int64, error)

	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)

	// IncrWithTTL increments key and, only when the increment created the
	// key (post-increment value 1), sets its expiry to ttl. The two steps
	// are indivisible: there is no window where the key exists without an
	// expiry, and no window where an expiry check can race the increment.
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Watch runs fn inside an optimistic transaction scoped to keys. Reads
	// through the Tx observe the current state; writes staged via Tx.Exec
	// commit atomically, and the commit is refused with ErrTxConflict if any
	// watched key changed since Watch began. fn may be invoked against a
	// half-open transaction at most once per call; retrying is the caller's
	// responsibility.
	Watch(ctx context.Context, fn func(tx Tx) error, keys ...string) error

	Close() error
}

// Tx is the view of the store inside an optimistic transaction.
type Tx interface {
	Get(ctx context.Context, key string) (string, error)

	// Exec stages writes through the pipeliner and commits them atomically.
	Exec(ctx context.Context, fn func(p Pipeliner) error) error
}

// Pipeliner collects writes to be committed together. Staged operations are
// not visible to reads until the transaction commits.
type Pipeliner interface {
	Set(key, value string)
	Del(keys ...string)
	Incr(key string)
	Decr(key string)
	SAdd(key string, members ...string)
	SRem(key string, members ...string)
}
