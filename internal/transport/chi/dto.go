package chi

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kailas-cloud/receiptdex/internal/domain/receipt"
	domusage "github.com/kailas-cloud/receiptdex/internal/domain/usage"
)

// ErrorCode is the machine-readable part of an error response.
type ErrorCode string

// Error codes returned by the API.
const (
	CodeBadRequest       ErrorCode = "bad_request"
	CodeValidationFailed ErrorCode = "validation_failed"
	CodeUnauthenticated  ErrorCode = "unauthenticated"
	CodeQuotaExceeded    ErrorCode = "quota_exceeded"
	CodeModelUnavailable ErrorCode = "model_unavailable"
	CodeStoreUnavailable ErrorCode = "store_unavailable"
	CodeTimeout          ErrorCode = "timeout"
	CodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	Query string `json:"query"`
}

// SearchResponse is the reply of POST /search.
type SearchResponse struct {
	Items []Receipt `json:"items"`
	// Filter is the applied filter in the model's JSON shape, tenant excluded.
	Filter   map[string]any `json:"filter"`
	Degraded bool           `json:"degraded"`
}

// ListResponse is the reply of GET /receipts.
type ListResponse struct {
	Items []Receipt `json:"items"`
}

// Item is a receipt line on the wire.
type Item struct {
	Name     string           `json:"name"`
	Quantity float64          `json:"quantity,omitempty"`
	Price    *decimal.Decimal `json:"price,omitempty"`
}

// Receipt is a receipt on the wire. Unknown fields are omitted.
type Receipt struct {
	UserID          string           `json:"user_id"`
	ReceiptID       string           `json:"receipt_id"`
	VendorName      string           `json:"vendor_name,omitempty"`
	TransactionDate string           `json:"transaction_date,omitempty"`
	TotalAmount     *decimal.Decimal `json:"total_amount,omitempty"`
	Items           []Item           `json:"items,omitempty"`
	RawText         string           `json:"raw_text,omitempty"`
	ImageReference  string           `json:"image_reference,omitempty"`
}

// PutReceiptRequest is the body of PUT /receipts/{receiptID}.
type PutReceiptRequest struct {
	VendorName      string           `json:"vendor_name"`
	TransactionDate string           `json:"transaction_date"`
	TotalAmount     *decimal.Decimal `json:"total_amount"`
	Items           []Item           `json:"items"`
	RawText         string           `json:"raw_text"`
	ImageReference  string           `json:"image_reference"`
}

// UsageResponse is the reply of GET /usage.
type UsageResponse struct {
	Period        string       `json:"period"`
	Provider      string       `json:"provider"`
	PeriodStartAt *time.Time   `json:"period_start_at,omitempty"`
	PeriodEndAt   *time.Time   `json:"period_end_at,omitempty"`
	Usage         UsageMetrics `json:"usage"`
	Budget        BudgetStatus `json:"budget"`
}

// UsageMetrics is the consumption part of a usage reply.
type UsageMetrics struct {
	Completions      int64  `json:"completions"`
	Tokens           int64  `json:"tokens"`
	CostMillidollars *int64 `json:"cost_millidollars,omitempty"`
}

// BudgetStatus is the budget part of a usage reply.
type BudgetStatus struct {
	TokensLimit     int64      `json:"tokens_limit"`
	TokensRemaining int64      `json:"tokens_remaining"`
	IsExhausted     bool       `json:"is_exhausted"`
	ResetsAt        *time.Time `json:"resets_at,omitempty"`
}

// HealthResponse is the reply of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func receiptsToDTO(records []receipt.Record) []Receipt {
	out := make([]Receipt, len(records))
	for i, r := range records {
		out[i] = receiptToDTO(r)
	}
	return out
}

func receiptToDTO(r receipt.Record) Receipt {
	f := r.Fields()
	var items []Item
	if len(f.Items) > 0 {
		items = make([]Item, len(f.Items))
		for i, it := range f.Items {
			items[i] = Item{Name: it.Name, Quantity: it.Quantity, Price: it.Price}
		}
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

func (req PutReceiptRequest) fields() receipt.Fields {
	var items []receipt.Item
	if len(req.Items) > 0 {
		items = make([]receipt.Item, len(req.Items))
		for i, it := range req.Items {
			items[i] = receipt.Item{Name: it.Name, Quantity: it.Quantity, Price: it.Price}
		}
	}
	return receipt.Fields{
		VendorName:      req.VendorName,
		TransactionDate: req.TransactionDate,
		TotalAmount:     req.TotalAmount,
		Items:           items,
		RawText:         req.RawText,
		ImageReference:  req.ImageReference,
	}
}

func usageToDTO(report domusage.Report) UsageResponse {
	b := report.Budget()
	resp := UsageResponse{
		Period:   string(report.Period()),
		Provider: report.Provider(),
		Usage: UsageMetrics{
			Completions: report.Consumption().Completions,
			Tokens:      report.Consumption().Tokens,
		},
		Budget: BudgetStatus{
			TokensLimit:     b.TokensLimit(),
			TokensRemaining: b.TokensRemaining(),
			IsExhausted:     b.IsExhausted(),
		},
	}

	if cost := report.Consumption().CostMillidollars; cost > 0 {
		resp.Usage.CostMillidollars = &cost
	}

	if report.PeriodStart() > 0 {
		start := time.UnixMilli(report.PeriodStart()).UTC()
		end := time.UnixMilli(report.PeriodEnd()).UTC()
		resp.PeriodStartAt = &start
		resp.PeriodEndAt = &end
	}

	if b.ResetsAt() > 0 {
		resetsAt := time.UnixMilli(b.ResetsAt()).UTC()
		resp.Budget.ResetsAt = &resetsAt
	}
	return resp
}
