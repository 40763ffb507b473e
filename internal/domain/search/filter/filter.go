package filter

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kailas-cloud/receiptdex/internal/domain/receipt"
)

// Attribute is a filterable receipt field.
type Attribute string

// Filterable attributes. The tenant (user_id) is deliberately absent: it is
// never part of the model-facing vocabulary.
const (
	VendorName      Attribute = "vendor_name"
	TransactionDate Attribute = "transaction_date"
	TotalAmount     Attribute = "total_amount"
	ItemName        Attribute = "item_name"
	RawText         Attribute = "raw_text"
)

// Attributes lists the vocabulary in a stable order.
var Attributes = []Attribute{VendorName, TransactionDate, TotalAmount, ItemName, RawText}

// Kind is the value domain of an attribute.
type Kind int

// Value kinds.
const (
	KindText Kind = iota
	KindDate
	KindNumber
)

// Kind returns the value domain of the attribute.
func (a Attribute) Kind() Kind {
	switch a {
	case TransactionDate:
		return KindDate
	case TotalAmount:
		return KindNumber
	default:
		return KindText
	}
}

// Known reports whether the attribute belongs to the vocabulary.
func (a Attribute) Known() bool { return slices.Contains(Attributes, a) }

// Supports reports whether the attribute accepts the given operator.
func (a Attribute) Supports(op Op) bool {
	switch op {
	case OpEquals:
		return a.Known()
	case OpContains:
		return a.Kind() == KindText && a.Known()
	case OpBetween:
		return a.Kind() == KindDate || a.Kind() == KindNumber
	default:
		return false
	}
}

// Op is the condition shape.
type Op string

// The three condition shapes. No OR, no negation.
const (
	OpEquals   Op = "equals"
	OpContains Op = "contains"
	OpBetween  Op = "between"
)

// Condition is a single validated clause over one attribute (closed variant).
type Condition struct {
	attr   Attribute
	op     Op
	values []string
}

// NewEquals creates an exact match condition.
func NewEquals(attr Attribute, value string) (Condition, error) {
	v, err := normalize(attr, value)
	if err != nil {
		return Condition{}, err
	}
	if !attr.Supports(OpEquals) {
		return Condition{}, fmt.Errorf("equals is not supported on %q", attr)
	}
	return Condition{attr: attr, op: OpEquals, values: []string{v}}, nil
}

// NewContains creates a case-sensitive substring condition. With several
// keywords every one of them must occur. Repeated keywords collapse.
func NewContains(attr Attribute, substr string, more ...string) (Condition, error) {
	if !attr.Supports(OpContains) {
		return Condition{}, fmt.Errorf("contains is not supported on %q", attr)
	}
	values := make([]string, 0, 1+len(more))
	for _, kw := range append([]string{substr}, more...) {
		v, err := normalize(attr, kw)
		if err != nil {
			return Condition{}, err
		}
		if !slices.Contains(values, v) {
			values = append(values, v)
		}
	}
	return Condition{attr: attr, op: OpContains, values: values}, nil
}

// NewBetween creates an inclusive range condition. Bounds must be ordered.
func NewBetween(attr Attribute, lower, upper string) (Condition, error) {
	if !attr.Supports(OpBetween) {
		return Condition{}, fmt.Errorf("between is not supported on %q", attr)
	}
	lo, err := normalize(attr, lower)
	if err != nil {
		return Condition{}, fmt.Errorf("lower bound: %w", err)
	}
	hi, err := normalize(attr, upper)
	if err != nil {
		return Condition{}, fmt.Errorf("upper bound: %w", err)
	}
	if Compare(attr, lo, hi) > 0 {
		return Condition{}, fmt.Errorf("between bounds for %q are reversed: %s > %s", attr, lo, hi)
	}
	return Condition{attr: attr, op: OpBetween, values: []string{lo, hi}}, nil
}

// Attribute returns the filtered field.
func (c Condition) Attribute() Attribute { return c.attr }

// Op returns the condition shape.
func (c Condition) Op() Op { return c.op }

// Value returns the operand of an equals condition, or the first keyword of a
// contains condition.
func (c Condition) Value() string {
	if len(c.values) == 0 {
		return ""
	}
	return c.values[0]
}

// Keywords returns every substring a contains condition requires.
func (c Condition) Keywords() []string {
	if c.op != OpContains {
		return nil
	}
	return slices.Clone(c.values)
}

// Bounds returns the inclusive bounds of a between condition.
func (c Condition) Bounds() (lower, upper string) {
	if c.op != OpBetween || len(c.values) != 2 {
		return "", ""
	}
	return c.values[0], c.values[1]
}

// Valid reports whether the condition was built by a constructor.
func (c Condition) Valid() bool {
	switch c.op {
	case OpEquals:
		return len(c.values) == 1 && c.attr.Supports(c.op)
	case OpContains:
		return len(c.values) >= 1 && c.attr.Supports(c.op)
	case OpBetween:
		return len(c.values) == 2 && c.attr.Supports(c.op)
	default:
		return false
	}
}

func (c Condition) String() string {
	if c.op == OpBetween {
		return fmt.Sprintf("%s between [%s, %s]", c.attr, c.values[0], c.values[1])
	}
	if c.op == OpContains && len(c.values) > 1 {
		return fmt.Sprintf("%s contains all %q", c.attr, c.values)
	}
	return fmt.Sprintf("%s %s %q", c.attr, c.op, c.Value())
}

// Compare orders two normalized operands of attr: numerically for numbers,
// lexically otherwise (YYYY-MM-DD sorts chronologically).
func Compare(attr Attribute, a, b string) int {
	if attr.Kind() == KindNumber {
		da, errA := decimal.NewFromString(a)
		db, errB := decimal.NewFromString(b)
		if errA == nil && errB == nil {
			return da.Cmp(db)
		}
	}
	return strings.Compare(a, b)
}

func normalize(attr Attribute, value string) (string, error) {
	if !attr.Known() {
		return "", fmt.Errorf("unknown filter attribute %q", attr)
	}
	v := strings.TrimSpace(value)
	if v == "" {
		return "", fmt.Errorf("value for %q is required", attr)
	}
	switch attr.Kind() {
	case KindDate:
		if !receipt.IsDate(v) {
			return "", fmt.Errorf("value %q for %q is not a YYYY-MM-DD date", v, attr)
		}
	case KindNumber:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return "", fmt.Errorf("value %q for %q is not a number", v, attr)
		}
		v = d.String()
	}
	return v, nil
}
