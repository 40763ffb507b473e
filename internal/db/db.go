package db

import (
	"context"
	"time"

	"github.com/kailas-cloud/receiptdex/internal/domain/receipt"
	"github.com/kailas-cloud/receiptdex/internal/domain/search/plan"
)

// ReceiptStore is the receipt table facade combining all sub-interfaces.
type ReceiptStore interface {
	Pinger
	PageReader
	ReceiptWriter
	TableManager
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Cursor is an opaque continuation token. The empty cursor means "first page"
// when passed in and "no more pages" when returned.
type Cursor string

// Page is one bounded chunk of a plan's result set.
type Page struct {
	Records []receipt.Record
	Next    Cursor
}

// PageReader reads one page of records matching a compiled plan.
type PageReader interface {
	ReadPage(ctx context.Context, p plan.Plan, cursor Cursor) (Page, error)
}

// ReceiptWriter stores whole records.
type ReceiptWriter interface {
	Put(ctx context.Context, r receipt.Record) error
}

// TableManager provisions the receipt table and its indexes.
type TableManager interface {
	EnsureTable(ctx context.Context) error
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}
