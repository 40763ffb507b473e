// Package budget persists language model token counters in the KV store.
package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/receiptdex/internal/db"
)

// store is the consumer interface for budget operations (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// TTLs bounds how long counters outlive their period.
type TTLs struct {
	Daily   time.Duration
	Monthly time.Duration
}

// DefaultTTLs keeps a day counter for two days and a month counter for two months.
func DefaultTTLs() TTLs {
	return TTLs{Daily: 48 * time.Hour, Monthly: 62 * 24 * time.Hour}
}

// Store implements the tracker's counter store on top of the KV store (INCRBY + GET with TTL).
type Store struct {
	store store
	ttls  TTLs
}

// New creates a budget store.
func New(s store, ttls TTLs) *Store {
	return &Store{store: s, ttls: ttls}
}

// IncrBy atomically increments the counter and arms its TTL once.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) error {
	if err := s.store.IncrBy(ctx, key, val); err != nil {
		return fmt.Errorf("budget %s %s: %w", db.OpIncrBy, key, err)
	}

	// NX: the first increment of a period sets the TTL, later ones keep it.
	if err := s.store.Expire(ctx, key, s.ttlForKey(key), true); err != nil {
		return fmt.Errorf("budget %s %s: %w", db.OpExpire, key, err)
	}
	return nil
}

// Get returns the counter value. A missing key counts as zero.
func (s *Store) Get(ctx context.Context, key string) (int64, error) {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("budget %s %s: %w", db.OpGet, key, err)
	}

	val, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("budget %s %s: parse counter: %w", db.OpGet, key, err)
	}
	return val, nil
}

// ttlForKey picks the TTL from the period segment of
// receiptdex:budget:{provider}:{daily|monthly}:{date}.
func (s *Store) ttlForKey(key string) time.Duration {
	parts := strings.Split(key, ":")
	if len(parts) >= 2 && parts[len(parts)-2] == "daily" {
		return s.ttls.Daily
	}
	return s.ttls.Monthly
}
