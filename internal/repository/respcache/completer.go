// Package respcache caches language model replies in the KV store.
package respcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/receiptdex/internal/db"
	"github.com/kailas-cloud/receiptdex/internal/domain"
)

var cacheKeyPrefix = domain.KeyPrefix + "llm_cache:"

// store is the consumer interface for the response cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type entry struct {
	Model string `json:"model"`
	Text  string `json:"text"`
}

// CachedCompleter caches completions keyed by model and conversation.
// The interpreter prompt carries today's date, so entries never outlive a day
// in practice even with a longer TTL.
type CachedCompleter struct {
	inner      domain.Completer
	store      store
	model      string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner domain.Completer,
	s store,
	model string,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedCompleter {
	return &CachedCompleter{
		inner:      inner,
		store:      s,
		model:      model,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Complete returns a cached reply or calls the inner completer.
// Cache hit: token counts are zero (no real tokens consumed).
func (c *CachedCompleter) Complete(ctx context.Context, messages []domain.Message) (domain.Completion, error) {
	key := c.cacheKey(messages)

	if text, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return domain.Completion{Text: text}, nil
	}

	c.incCache("miss")

	result, err := c.inner.Complete(ctx, messages)
	if err != nil {
		return domain.Completion{}, fmt.Errorf("complete: %w", err)
	}

	c.putToCache(ctx, key, result.Text)
	return result, nil
}

func (c *CachedCompleter) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedCompleter) cacheKey(messages []domain.Message) string {
	h := sha256.New()
	h.Write([]byte(c.model))
	for _, m := range messages {
		h.Write([]byte{0})
		h.Write([]byte(m.Role))
		h.Write([]byte{0})
		h.Write([]byte(m.Content))
	}
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

func (c *CachedCompleter) getFromCache(ctx context.Context, key string) (string, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached completion", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil || e.Model != c.model {
		c.logger.Warn("Discarding unreadable cached completion", zap.String("key", key), zap.Error(err))
		return "", false
	}
	return e.Text, true
}

func (c *CachedCompleter) putToCache(ctx context.Context, key, text string) {
	data, err := json.Marshal(entry{Model: c.model, Text: text})
	if err != nil {
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache completion", zap.String("key", key), zap.Error(err))
	}
}
