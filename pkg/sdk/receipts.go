package receiptdex

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kailas-cloud/receiptdex/internal/domain/receipt"
)

// Receipt is a stored receipt. Zero values mean the field was not extracted.
type Receipt struct {
	UserID          string
	ReceiptID       string
	VendorName      string
	TransactionDate string // YYYY-MM-DD
	TotalAmount     *decimal.Decimal
	Items           []Item
	RawText         string
	ImageReference  string
}

// Item is a receipt line.
type Item struct {
	Name     string
	Quantity float64
	Price    *decimal.Decimal
}

// SearchResult is the answer to a natural-language search.
type SearchResult struct {
	Receipts []Receipt
	// Filter is the filter that was applied, in the model's JSON shape.
	Filter map[string]any
	// Degraded is set when the model reply was unusable and every receipt was returned.
	Degraded bool
}

// ReceiptService reads and writes one user's receipts.
type ReceiptService struct {
	userID string
	svc    retrievalUseCase
	obs    *observer
}

// Search answers a free-text question. An empty query lists everything.
func (s *ReceiptService) Search(ctx context.Context, query string) (res SearchResult, err error) {
	start := time.Now()
	defer func() { s.obs.observe("receipts.search", start, err) }()

	out, err := s.svc.Search(ctx, s.userID, query)
	if err != nil {
		return SearchResult{}, fmt.Errorf("search: %w", err)
	}
	s.obs.observeResult("receipts.search", len(out.Records), out.Degraded)
	return SearchResult{
		Receipts: fromRecords(out.Records),
		Filter:   out.Spec.Map(),
		Degraded: out.Degraded,
	}, nil
}

// List returns every receipt of the user.
func (s *ReceiptService) List(ctx context.Context) (receipts []Receipt, err error) {
	start := time.Now()
	defer func() { s.obs.observe("receipts.list", start, err) }()

	records, err := s.svc.ListAll(ctx, s.userID)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	s.obs.observeResult("receipts.list", len(records), false)
	return fromRecords(records), nil
}

// Put validates and stores a whole receipt. r.UserID is ignored.
func (s *ReceiptService) Put(ctx context.Context, r Receipt) (stored Receipt, err error) {
	start := time.Now()
	defer func() { s.obs.observe("receipts.put", start, err) }()

	rec, err := s.svc.Put(ctx, s.userID, r.ReceiptID, toFields(r))
	if err != nil {
		return Receipt{}, fmt.Errorf("put: %w", err)
	}
	return fromRecord(rec), nil
}

func fromRecords(records []receipt.Record) []Receipt {
	out := make([]Receipt, len(records))
	for i, r := range records {
		out[i] = fromRecord(r)
	}
	return out
}

func fromRecord(r receipt.Record) Receipt {
	f := r.Fields()
	var items []Item
	for _, it := range f.Items {
		items = append(items, Item{Name: it.Name, Quantity: it.Quantity, Price: it.Price})
	}
	return Receipt{
		UserID:          r.UserID(),
		ReceiptID:       r.ReceiptID(),
		VendorName:      f.VendorName,
		TransactionDate: f.TransactionDate,
		TotalAmount:     f.TotalAmount,
		Items:           items,
		RawText:         f.RawText,
		ImageReference:  f.ImageReference,
	}
}

func toFields(r Receipt) receipt.Fields {
	var items []receipt.Item
	for _, it := range r.Items {
		items = append(items, receipt.Item{Name: it.Name, Quantity: it.Quantity, Price: it.Price})
	}
	return receipt.Fields{
		VendorName:      r.VendorName,
		TransactionDate: r.TransactionDate,
		TotalAmount:     r.TotalAmount,
		Items:           items,
		RawText:         r.RawText,
		ImageReference:  r.ImageReference,
	}
}
