// Package memory is an in-process receipt store for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/kailas-cloud/receiptdex/internal/db"
	"github.com/kailas-cloud/receiptdex/internal/domain/receipt"
	"github.com/kailas-cloud/receiptdex/internal/domain/search/plan"
)

// Compile-time check: Store implements db.ReceiptStore.
var _ db.ReceiptStore = (*Store)(nil)

// DefaultPageSize is used when the configured page size is not positive.
const DefaultPageSize = 100

// Store keeps records ordered by (user_id, receipt_id) and pages through
// matches with an offset cursor.
type Store struct {
	mu       sync.RWMutex
	records  map[string]receipt.Record
	pageSize int
}

// New creates an empty store.
func New(pageSize int) *Store {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Store{records: make(map[string]receipt.Record), pageSize: pageSize}
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

// EnsureTable is a no-op.
func (s *Store) EnsureTable(_ context.Context) error { return nil }

// Put stores the record, replacing any record with the same key.
func (s *Store) Put(ctx context.Context, r receipt.Record) error {
	if err := ctx.Err(); err != nil {
		return &db.Error{Op: db.OpPutItem, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key(r.UserID(), r.ReceiptID())] = r
	return nil
}

// ReadPage returns up to pageSize matching records after cursor.
func (s *Store) ReadPage(ctx context.Context, p plan.Plan, cursor db.Cursor) (db.Page, error) {
	op := db.OpScan
	if p.Mode == plan.ModeQuery {
		op = db.OpQuery
	}
	if err := ctx.Err(); err != nil {
		return db.Page{}, &db.Error{Op: op, Err: err}
	}

	offset := 0
	if cursor != "" {
		n, err := strconv.Atoi(string(cursor))
		if err != nil || n < 0 {
			return db.Page{}, &db.Error{Op: op, Err: fmt.Errorf("%w: %q", db.ErrInvalidCursor, cursor)}
		}
		offset = n
	}

	matches := s.match(p)
	if offset >= len(matches) {
		return db.Page{}, nil
	}
	end := min(offset+s.pageSize, len(matches))

	page := db.Page{Records: matches[offset:end]}
	if end < len(matches) {
		page.Next = db.Cursor(strconv.Itoa(end))
	}
	return page, nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Store) match(p plan.Plan) []receipt.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var out []receipt.Record
	for _, k := range keys {
		if r := s.records[k]; p.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

func key(userID, receiptID string) string {
	return strings.Join([]string{userID, receiptID}, "\x00")
}
