package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStoreFromClient(client), mr
}

func TestRedisStoreBasicOps(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestRedisStore(t)

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "k", "v"))
	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	n, err := s.Incr(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = s.Decr(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	require.NoError(t, s.SAdd(ctx, "set", "a", "b"))
	require.NoError(t, s.SRem(ctx, "set", "a"))
	members, err := s.SMembers(ctx, "set")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b"}, members)

	require.NoError(t, s.Del(ctx, "k"))
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreIncrWithTTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisStore(t)

	n, err := s.IncrWithTTL(ctx, "rl", 2*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// The key was created with its expiry in the same server-side step.
	assert.Equal(t, 2*time.Hour, mr.TTL("rl"))

	n, err = s.IncrWithTTL(ctx, "rl", 2*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// A later increment must not refresh the window.
	assert.Equal(t, 2*time.Hour, mr.TTL("rl"))

	mr.FastForward(2*time.Hour + time.Second)

	n, err = s.IncrWithTTL(ctx, "rl", 2*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRedisStoreWatchCommits(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestRedisStore(t)

	err := s.Watch(ctx, func(tx Tx) error {
		return tx.Exec(ctx, func(p Pipeliner) error {
			p.Incr("count")
			p.SAdd("index", "id-1")
			return nil
		})
	}, "count")
	require.NoError(t, err)

	v, err := s.Get(ctx, "count")
	require.NoError(t, err)
	assert.Equal(t, "1", v)
	members, err := s.SMembers(ctx, "index")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"id-1"}, members)
}

func TestRedisStoreWatchConflict(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisStore(t)
	require.NoError(t, s.Set(ctx, "count", "0"))

	// A second connection writes the watched key mid-transaction.
	intruder := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer intruder.Close()

	err := s.Watch(ctx, func(tx Tx) error {
		require.NoError(t, intruder.Incr(ctx, "count").Err())
		return tx.Exec(ctx, func(p Pipeliner) error {
			p.Incr("count")
			return nil
		})
	}, "count")
	assert.ErrorIs(t, err, ErrTxConflict)

	v, err := s.Get(ctx, "count")
	require.NoError(t, err)
	assert.Equal(t, "1", v)
}
