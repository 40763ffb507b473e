package valkey

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/receiptdex/internal/db"
)

// Get returns the value stored at key, or db.ErrKeyNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.do(ctx, s.b().Get().Key(s.key(key)).Build()).AsBytes()
	switch {
	case rueidis.IsRedisNil(err):
		return nil, db.ErrKeyNotFound
	case err != nil:
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	return data, nil
}

// Set stores value at key without expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.set(ctx, key, value, 0)
}

// SetWithTTL stores value at key; cached model replies use this.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.set(ctx, key, value, ttl)
}

// IncrBy adds val to the counter at key. Budget counters use this.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) error {
	if err := s.do(ctx, s.b().Incrby().Key(s.key(key)).Increment(val).Build()).Error(); err != nil {
		return &db.Error{Op: db.OpIncrBy, Err: err}
	}
	return nil
}

// Expire sets a TTL on key. With nx the TTL is only set when the key has none yet,
// so a period counter keeps the expiry it got on its first increment.
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error {
	secs := int64(ttl / time.Second)
	if secs < 1 {
		secs = 1
	}
	base := s.b().Expire().Key(s.key(key)).Seconds(secs)

	var cmd rueidis.Completed
	if nx {
		cmd = base.Nx().Build()
	} else {
		cmd = base.Build()
	}
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpExpire, Err: err}
	}
	return nil
}

func (s *Store) set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	cmd := s.b().Set().Key(s.key(key)).Value(rueidis.BinaryString(value))
	var built rueidis.Completed
	if ttl > 0 {
		built = cmd.Ex(ttl).Build()
	} else {
		built = cmd.Build()
	}
	if err := s.do(ctx, built).Error(); err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}

func (s *Store) key(k string) string {
	return s.prefix + k
}
