package store

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// MemoryStore is an in-process Store with the same optimistic-transaction
// semantics as the Redis implementation: every committed write bumps a
// per-key version, and a Watch transaction refuses to commit if any watched
// key's version moved since the watch began. Used by tests and for local
// development without a Redis instance.
type MemoryStore struct {
	mu       sync.Mutex
	strings  map[string]string
	sets     map[string]map[string]struct{}
	expiries map[string]time.Time
	versions map[string]uint64
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		strings:  make(map[string]string),
		sets:     make(map[string]map[string]struct{}),
		expiries: make(map[string]time.Time),
		versions: make(map[string]uint64),
		now:      time.Now,
	}
}

// SetNow overrides the store's clock. Tests use it to step past TTL windows.
func (s *MemoryStore) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// expireLocked drops the key if its TTL has elapsed. Callers hold s.mu.
func (s *MemoryStore) expireLocked(key string) {
	deadline, ok := s.expiries[key]
	if !ok || s.now().Before(deadline) {
		return
	}
	delete(s.strings, key)
	delete(s.sets, key)
	delete(s.expiries, key)
	s.versions[key]++
}

func (s *MemoryStore) touchLocked(key string) {
	s.versions[key]++
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(key)
}

func (s *MemoryStore) getLocked(key string) (string, error) {
	s.expireLocked(key)
	v, ok := s.strings[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strings[key] = value
	delete(s.expiries, key)
	s.touchLocked(key)
	return nil
}

func (s *MemoryStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		s.delLocked(key)
	}
	return nil
}

func (s *MemoryStore) delLocked(key string) {
	_, hadString := s.strings[key]
	_, hadSet := s.sets[key]
	if !hadString && !hadSet {
		return
	}
	delete(s.strings, key)
	delete(s.sets, key)
	delete(s.expiries, key)
	s.touchLocked(key)
}

func (s *MemoryStore) Incr(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.incrByLocked(key, 1)
}

func (s *MemoryStore) Decr(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.incrByLocked(key, -1)
}

func (s *MemoryStore) incrByLocked(key string, delta int64) (int64, error) {
	s.expireLocked(key)
	var n int64
	if v, ok := s.strings[key]; ok {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("value at %s is not an integer", key)
		}
		n = parsed
	}
	n += delta
	s.strings[key] = strconv.FormatInt(n, 10)
	s.touchLocked(key)
	return n, nil
}

func (s *MemoryStore) SAdd(ctx context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saddLocked(key, members...)
	return nil
}

func (s *MemoryStore) saddLocked(key string, members ...string) {
	s.expireLocked(key)
	set, ok := s.sets[key]
	if !ok {
		set = make(map[string]struct{})
		s.sets[key] = set
	}
	changed := false
	for _, m := range members {
		if _, exists := set[m]; !exists {
			set[m] = struct{}{}
			changed = true
		}
	}
	if changed {
		s.touchLocked(key)
	}
}

func (s *MemoryStore) SRem(ctx context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sremLocked(key, members...)
	return nil
}

func (s *MemoryStore) sremLocked(key string, members ...string) {
	s.expireLocked(key)
	set, ok := s.sets[key]
	if !ok {
		return
	}
	changed := false
	for _, m := range members {
		if _, exists := set[m]; exists {
			delete(set, m)
			changed = true
		}
	}
	if len(set) == 0 {
		delete(s.sets, key)
	}
	if changed {
		s.touchLocked(key)
	}
}

func (s *MemoryStore) SMembers(ctx context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(key)
	set := s.sets[key]
	members := make([]string, 0, len(set))
	for m := range set {
		members = append(members, m)
	}
	return members, nil
}

func (s *MemoryStore) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.incrByLocked(key, 1)
	if err != nil {
		return 0, err
	}
	if n == 1 {
		s.expiries[key] = s.now().Add(ttl)
	}
	return n, nil
}

func (s *MemoryStore) Watch(ctx context.Context, fn func(tx Tx) error, keys ...string) error {
	s.mu.Lock()
	watched := make(map[string]uint64, len(keys))
	for _, key := range keys {
		s.expireLocked(key)
		watched[key] = s.versions[key]
	}
	s.mu.Unlock()

	return fn(&memoryTx{store: s, watched: watched})
}

func (s *MemoryStore) Close() error {
	return nil
}

type memoryTx struct {
	store    *MemoryStore
	watched  map[string]uint64
	executed bool
}

func (t *memoryTx) Get(ctx context.Context, key string) (string, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	return t.store.getLocked(key)
}

func (t *memoryTx) Exec(ctx context.Context, fn func(p Pipeliner) error) error {
	if t.executed {
		return fmt.Errorf("transaction already executed")
	}
	t.executed = true

	staged := &memoryPipeliner{}
	if err := fn(staged); err != nil {
		return err
	}

	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	for key, version := range t.watched {
		t.store.expireLocked(key)
		if t.store.versions[key] != version {
			return ErrTxConflict
		}
	}

	for _, op := range staged.ops {
		if err := op(t.store); err != nil {
			return err
		}
	}
	return nil
}

type memoryPipeliner struct {
	ops []func(*MemoryStore) error
}

func (p *memoryPipeliner) Set(key, value string) {
	p.ops = append(p.ops, func(s *MemoryStore) error {
		s.strings[key] = value
		delete(s.expiries, key)
		s.touchLocked(key)
		return nil
	})
}

func (p *memoryPipeliner) Del(keys ...string) {
	p.ops = append(p.ops, func(s *MemoryStore) error {
		for _, key := range keys {
			s.delLocked(key)
		}
		return nil
	})
}

func (p *memoryPipeliner) Incr(key string) {
	p.ops = append(p.ops, func(s *MemoryStore) error {
		_, err := s.incrByLocked(key, 1)
		return err
	})
}

func (p *memoryPipeliner) Decr(key string) {
	p.ops = append(p.ops, func(s *MemoryStore) error {
		_, err := s.incrByLocked(key, -1)
		return err
	})
}

func (p *memoryPipeliner) SAdd(key string, members ...string) {
	p.ops = append(p.ops, func(s *MemoryStore) error {
		s.saddLocked(key, members...)
		return nil
	})
}

func (p *memoryPipeliner) SRem(key string, members ...string) {
	p.ops = append(p.ops, func(s *MemoryStore) error {
		s.sremLocked(key, members...)
		return nil
	})
}
