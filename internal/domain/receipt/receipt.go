package receipt

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the only accepted transaction date format. It sorts lexically
// in chronological order, which range filters rely on.
const DateLayout = "2006-01-02"

// MaxIDLength bounds user and receipt identifiers.
const MaxIDLength = 256

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_.:@-]+$`)

// Item is a single line of a receipt.
type Item struct {
	Name     string
	Quantity float64
	Price    *decimal.Decimal
}

// Fields holds the optional, extracted part of a receipt. Zero values mean unknown.
type Fields struct {
	VendorName      string
	TransactionDate string
	TotalAmount     *decimal.Decimal
	Items           []Item
	RawText         string
	ImageReference  string
}

// Record is one physical receipt owned by a user (immutable value object).
type Record struct {
	userID    string
	receiptID string
	fields    Fields
}

// New validates and creates a Record.
// IDs: 1-256 chars of [a-zA-Z0-9_.:@-]. TransactionDate, when set, must be YYYY-MM-DD.
func New(userID, receiptID string, f Fields) (Record, error) {
	if err := validateID("user ID", userID); err != nil {
		return Record{}, err
	}
	if err := validateID("receipt ID", receiptID); err != nil {
		return Record{}, err
	}
	f.VendorName = strings.TrimSpace(f.VendorName)
	f.TransactionDate = strings.TrimSpace(f.TransactionDate)
	if f.TransactionDate != "" && !IsDate(f.TransactionDate) {
		return Record{}, fmt.Errorf("transaction date %q must be formatted as YYYY-MM-DD", f.TransactionDate)
	}
	for i, it := range f.Items {
		if strings.TrimSpace(it.Name) == "" {
			return Record{}, fmt.Errorf("item %d: name is required", i)
		}
	}
	f.Items = cloneItems(f.Items)
	return Record{userID: userID, receiptID: receiptID, fields: f}, nil
}

// Reconstruct creates a Record without validation (storage hydration).
func Reconstruct(userID, receiptID string, f Fields) Record {
	return Record{userID: userID, receiptID: receiptID, fields: f}
}

// UserID returns the owning tenant.
func (r Record) UserID() string { return r.userID }

// ReceiptID returns the receipt identifier, unique within the tenant.
func (r Record) ReceiptID() string { return r.receiptID }

// VendorName returns the merchant name, empty when unknown.
func (r Record) VendorName() string { return r.fields.VendorName }

// TransactionDate returns the YYYY-MM-DD date, empty when unknown.
func (r Record) TransactionDate() string { return r.fields.TransactionDate }

// TotalAmount returns the total, nil when unknown.
func (r Record) TotalAmount() *decimal.Decimal { return r.fields.TotalAmount }

// Items returns the line items in receipt order.
func (r Record) Items() []Item { return r.fields.Items }

// RawText returns the text recovered from the source image.
func (r Record) RawText() string { return r.fields.RawText }

// ImageReference returns the opaque locator of the source image.
func (r Record) ImageReference() string { return r.fields.ImageReference }

// Fields returns a copy of the optional fields.
func (r Record) Fields() Fields {
	f := r.fields
	f.Items = cloneItems(f.Items)
	return f
}

// ItemsText joins item names with newlines. Stores persist it so that item
// containment can be evaluated store-side.
func (r Record) ItemsText() string {
	if len(r.fields.Items) == 0 {
		return ""
	}
	names := make([]string, len(r.fields.Items))
	for i, it := range r.fields.Items {
		names[i] = it.Name
	}
	return strings.Join(names, "\n")
}

// IsDate reports whether s is a valid YYYY-MM-DD calendar date.
func IsDate(s string) bool {
	if len(s) != len(DateLayout) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

func validateID(what, id string) error {
	if id == "" {
		return fmt.Errorf("%s is required", what)
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("%s too long (max %d)", what, MaxIDLength)
	}
	if !idRegex.MatchString(id) {
		return fmt.Errorf("%s %q contains unsupported characters", what, id)
	}
	return nil
}

func cloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
