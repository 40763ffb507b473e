package retrieval

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kailas-cloud/receiptdex/internal/db"
	"github.com/kailas-cloud/receiptdex/internal/db/memory"
	"github.com/kailas-cloud/receiptdex/internal/domain"
	"github.com/kailas-cloud/receiptdex/internal/domain/receipt"
	"github.com/kailas-cloud/receiptdex/internal/domain/search/plan"
	"github.com/kailas-cloud/receiptdex/internal/usecase/interpret"
)

// --- Mocks ---

// scriptedPages serves fixed pages and records every call.
type scriptedPages struct {
	pages   []db.Page
	failAt  int // 1-based fetch that fails, 0 = never
	err     error
	cursors []db.Cursor
	plans   []plan.Plan
}

func (s *scriptedPages) ReadPage(_ context.Context, p plan.Plan, cursor db.Cursor) (db.Page, error) {
	s.cursors = append(s.cursors, cursor)
	s.plans = append(s.plans, p)
	n := len(s.cursors)
	if s.failAt == n {
		return db.Page{}, s.err
	}
	if n > len(s.pages) {
		return db.Page{}, fmt.Errorf("unexpected fetch %d", n)
	}
	return s.pages[n-1], nil
}

func (s *scriptedPages) Put(_ context.Context, _ receipt.Record) error { return s.err }

// paged splits records into pages of size n with cursors "c1", "c2", ...
func paged(records []receipt.Record, n int) []db.Page {
	var out []db.Page
	for i := 0; i < len(records); i += n {
		end := min(i+n, len(records))
		page := db.Page{Records: records[i:end]}
		if end < len(records) {
			page.Next = db.Cursor(fmt.Sprintf("c%d", len(out)+1))
		}
		out = append(out, page)
	}
	if len(out) == 0 {
		out = append(out, db.Page{})
	}
	return out
}

type mockInterpreter struct {
	result interpret.Result
	err    error
	calls  int
	today  time.Time
}

func (m *mockInterpreter) Interpret(_ context.Context, _ string, today time.Time) (interpret.Result, error) {
	m.calls++
	m.today = today
	return m.result, m.err
}

// replyCompleter is a language model that always answers with reply.
type replyCompleter struct{ reply string }

func (r replyCompleter) Complete(_ context.Context, _ []domain.Message) (domain.Completion, error) {
	return domain.Completion{Text: r.reply}, nil
}

// --- Fixtures ---

var now = time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

func record(t *testing.T, user, id string, f receipt.Fields) receipt.Record {
	t.Helper()
	r, err := receipt.New(user, id, f)
	if err != nil {
		t.Fatalf("receipt.New: %v", err)
	}
	return r
}

func amount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// seededStore holds two tenants with a page size of 2.
func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	s := memory.New(2)
	for _, r := range []receipt.Record{
		record(t, "alice", "r1", receipt.Fields{VendorName: "Starbucks", TransactionDate: "2024-03-02", TotalAmount: amount("4.50")}),
		record(t, "alice", "r2", receipt.Fields{VendorName: "Starbucks", TransactionDate: "2024-02-28", TotalAmount: amount("5.10")}),
		record(t, "alice", "r3", receipt.Fields{VendorName: "Costa", TransactionDate: "2024-03-15", TotalAmount: amount("3.20")}),
		record(t, "alice", "r4", receipt.Fields{VendorName: "Starbucks", TransactionDate: "2024-03-31",
			Items: []receipt.Item{{Name: "Caffe Latte", Quantity: 1}}}),
		record(t, "alice", "r5", receipt.Fields{RawText: "STARBUCKS STORE #42"}),
		record(t, "bob", "r1", receipt.Fields{VendorName: "Starbucks", TransactionDate: "2024-03-10"}),
	} {
		if err := s.Put(context.Background(), r); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	return s
}

func newInterpreter(t *testing.T, reply string) *interpret.Interpreter {
	t.Helper()
	i, err := interpret.New(replyCompleter{reply: reply}, zap.NewNop())
	if err != nil {
		t.Fatalf("interpret.New: %v", err)
	}
	return i
}

func ids(records []receipt.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.UserID()+"/"+r.ReceiptID())
	}
	return out
}
