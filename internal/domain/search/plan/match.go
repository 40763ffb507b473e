package plan

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kailas-cloud/receiptdex/internal/domain/receipt"
)

// Matches evaluates the plan against a record in-process with the same
// semantics a native store applies: a missing attribute fails every clause.
func (p Plan) Matches(r receipt.Record) bool {
	if p.Mode == ModeQuery && r.UserID() != p.Tenant {
		return false
	}
	if p.SortKey != nil && !p.SortKey.matches(r) {
		return false
	}
	for _, c := range p.Filter {
		if !c.matches(r) {
			return false
		}
	}
	return true
}

func (c Clause) matches(r receipt.Record) bool {
	v, ok := value(r, c.Field)
	if !ok || len(c.Values) == 0 {
		return false
	}
	switch c.Op {
	case OpEqual:
		return compare(v, c.Values[0], c.Numeric) == 0
	case OpContains:
		return strings.Contains(v, c.Values[0])
	case OpBetween:
		if len(c.Values) != 2 {
			return false
		}
		return compare(v, c.Values[0], c.Numeric) >= 0 && compare(v, c.Values[1], c.Numeric) <= 0
	default:
		return false
	}
}

func value(r receipt.Record, field string) (string, bool) {
	var v string
	switch field {
	case FieldUserID:
		v = r.UserID()
	case FieldReceiptID:
		v = r.ReceiptID()
	case FieldVendorName:
		v = r.VendorName()
	case FieldTransactionDate:
		v = r.TransactionDate()
	case FieldTotalAmount:
		if r.TotalAmount() == nil {
			return "", false
		}
		v = r.TotalAmount().String()
	case FieldItemsText:
		v = r.ItemsText()
	case FieldRawText:
		v = r.RawText()
	}
	return v, v != ""
}

func compare(a, b string, numeric bool) int {
	if numeric {
		da, errA := decimal.NewFromString(a)
		db, errB := decimal.NewFromString(b)
		if errA == nil && errB == nil {
			return da.Cmp(db)
		}
	}
	return strings.Compare(a, b)
}
