package retrieval

import (
	"context"
	"time"

	"github.com/kailas-cloud/receiptdex/internal/db"
	"github.com/kailas-cloud/receiptdex/internal/usecase/interpret"
)

// Interpreter turns free text into a filter spec.
type Interpreter interface {
	Interpret(ctx context.Context, query string, today time.Time) (interpret.Result, error)
}

// Store is the receipt table as seen by retrieval and ingestion.
type Store interface {
	db.PageReader
	db.ReceiptWriter
}
