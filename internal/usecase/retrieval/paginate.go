package retrieval

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/receiptdex/internal/db"
	"github.com/kailas-cloud/receiptdex/internal/domain"
	"github.com/kailas-cloud/receiptdex/internal/domain/receipt"
	"github.com/kailas-cloud/receiptdex/internal/domain/search/plan"
	"github.com/kailas-cloud/receiptdex/internal/logger"
	"github.com/kailas-cloud/receiptdex/internal/metrics"
)

// errCursorLoop guards against a store handing back the cursor it was given.
var errCursorLoop = errors.New("store returned the cursor it was given")

// FetchAll pages the store until it stops returning a cursor and returns every
// record in arrival order. Any failing page aborts the whole fetch; no partial
// result is returned. The result set is materialized in memory and not bounded.
func FetchAll(ctx context.Context, pages db.PageReader, p plan.Plan) ([]receipt.Record, error) {
	log := logger.FromContext(ctx)

	records := []receipt.Record{}
	var cursor db.Cursor
	fetches := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", fetches+1, err)
		}

		page, err := pages.ReadPage(ctx, p, cursor)
		fetches++
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("fetch page %d: %w", fetches, err)
			}
			return nil, fmt.Errorf("fetch page %d: %w: %w", fetches, domain.ErrStoreUnavailable, err)
		}

		records = append(records, page.Records...)
		log.Debug("Fetched page",
			zap.Int("page", fetches),
			zap.Int("records", len(page.Records)),
			zap.Bool("more", page.Next != ""),
		)

		if page.Next == "" {
			break
		}
		if page.Next == cursor {
			return nil, fmt.Errorf("fetch page %d: %w: %w", fetches, domain.ErrStoreUnavailable, errCursorLoop)
		}
		cursor = page.Next
	}

	mode := p.Mode.String()
	metrics.RetrievalPages.WithLabelValues(mode).Observe(float64(fetches))
	metrics.RetrievalRecords.WithLabelValues(mode).Observe(float64(len(records)))

	return records, nil
}
