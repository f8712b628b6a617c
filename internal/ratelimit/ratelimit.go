// Package ratelimit gates booking creation per client identifier using the
// store's atomic increment-with-expiry primitive.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/waymaker/tour-booking/internal/store"
)

var ErrRateLimited = errors.New("rate limit exceeded")

type Limiter struct {
	store  store.Store
	max    int64
	window time.Duration
}

func NewLimiter(s store.Store, max int, window time.Duration) *Limiter {
	return &Limiter{store: s, max: int64(max), window: window}
}

// Check counts a creation attempt for identifier and returns ErrRateLimited
// when the attempt exceeds the window's maximum. The counter key is created
// and given its expiry in one indivisible store operation, so the key can
// never exist without a TTL and the window cannot be bypassed by an expiry
// racing the increment.
func (l *Limiter) Check(ctx context.Context, identifier string) (int64, error) {
	key := Key(identifier)
	count, err := l.store.IncrWithTTL(ctx, key, l.window)
	if err != nil {
		return 0, fmt.Errorf("rate limit check: %w", err)
	}
	if count > l.max {
		return count, ErrRateLimited
	}
	return count, nil
}

// Key derives the store key for an identifier. The identifier is hashed so
// attacker-controlled header values cannot inject key separators, and so the
// key length is bounded.
func Key(identifier string) string {
	sum := sha256.Sum256([]byte(identifier))
	return "ratelimit:" + hex.EncodeToString(sum[:])
}
