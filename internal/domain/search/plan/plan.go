// Package plan compiles a filter.Spec into a store-neutral query plan:
// which index to read, the key condition and the residual filter clauses.
package plan

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/receiptdex/internal/domain/search/filter"
)

// Mode selects between a partition-keyed query and a full scan.
type Mode int

const (
	// ModeScan reads the whole table (single-tenant mode).
	ModeScan Mode = iota
	// ModeQuery reads one tenant partition.
	ModeQuery
)

func (m Mode) String() string {
	if m == ModeQuery {
		return "query"
	}
	return "scan"
}

// Index is the physical access path. The empty index is the base table.
type Index string

// Secondary indexes, all partitioned by user_id.
const (
	IndexBase            Index = ""
	IndexVendorName      Index = "VendorNameIndex"
	IndexTransactionDate Index = "TransactionDateIndex"
)

// Stored attribute names.
const (
	FieldUserID          = "user_id"
	FieldReceiptID       = "receipt_id"
	FieldVendorName      = "vendor_name"
	FieldTransactionDate = "transaction_date"
	FieldTotalAmount     = "total_amount"
	FieldItemsText       = "items_text"
	FieldRawText         = "raw_text"
)

// Operator is a native comparison.
type Operator string

// Operators every store must render.
const (
	OpEqual    Operator = "="
	OpContains Operator = "contains"
	OpBetween  Operator = "between"
)

// Clause is a single comparison on a stored attribute.
type Clause struct {
	Field   string
	Op      Operator
	Values  []string
	Numeric bool
}

func (c Clause) String() string {
	if c.Op == OpBetween {
		return fmt.Sprintf("%s BETWEEN %s AND %s", c.Field, c.Values[0], c.Values[1])
	}
	if c.Op == OpContains {
		return fmt.Sprintf("contains(%s, %q)", c.Field, c.Values[0])
	}
	return fmt.Sprintf("%s = %q", c.Field, c.Values[0])
}

// Plan is the compiled, store-neutral predicate. Filter clauses are AND-ed and
// ordered by source attribute (keywords keep their order), so equal specs
// compile to equal plans.
type Plan struct {
	Mode    Mode
	Index   Index
	Tenant  string
	SortKey *Clause
	Filter  []Clause
}

// Compile translates a validated spec. It never fails: conditions that are not
// valid for their attribute are skipped.
func Compile(spec filter.Spec) Plan {
	p := Plan{Mode: ModeScan, Tenant: spec.Tenant()}
	if p.Tenant != "" {
		p.Mode = ModeQuery
	}

	var promoted filter.Attribute
	if p.Mode == ModeQuery {
		promoted = p.promote(spec)
	}

	for _, c := range spec.Conditions() {
		if c.Attribute() == promoted || !c.Valid() {
			continue
		}
		if c.Op() == filter.OpContains {
			// One clause per keyword, in the order the keywords were given.
			for _, kw := range c.Keywords() {
				p.Filter = append(p.Filter, Clause{Field: field(c.Attribute()), Op: OpContains, Values: []string{kw}})
			}
			continue
		}
		p.Filter = append(p.Filter, clause(c))
	}
	return p
}

// promote moves the most selective indexable condition into the sort key.
func (p *Plan) promote(spec filter.Spec) filter.Attribute {
	if c, ok := spec.Condition(filter.VendorName); ok && c.Op() == filter.OpEquals {
		sk := clause(c)
		p.Index = IndexVendorName
		p.SortKey = &sk
		return filter.VendorName
	}
	if c, ok := spec.Condition(filter.TransactionDate); ok && (c.Op() == filter.OpEquals || c.Op() == filter.OpBetween) {
		sk := clause(c)
		p.Index = IndexTransactionDate
		p.SortKey = &sk
		return filter.TransactionDate
	}
	return ""
}

func clause(c filter.Condition) Clause {
	attr := c.Attribute()
	cl := Clause{Field: field(attr), Numeric: attr.Kind() == filter.KindNumber}
	switch c.Op() {
	case filter.OpBetween:
		lo, hi := c.Bounds()
		cl.Op = OpBetween
		cl.Values = []string{lo, hi}
	case filter.OpContains:
		cl.Op = OpContains
		cl.Values = []string{c.Value()}
	default:
		cl.Op = OpEqual
		// Item names and raw text are free text: exact match would almost never hit.
		if attr == filter.ItemName || attr == filter.RawText {
			cl.Op = OpContains
		}
		cl.Values = []string{c.Value()}
	}
	return cl
}

func field(attr filter.Attribute) string {
	switch attr {
	case filter.ItemName:
		return FieldItemsText
	default:
		return string(attr)
	}
}

// String renders the plan for logs.
func (p Plan) String() string {
	var b strings.Builder
	b.WriteString(p.Mode.String())
	if p.Index != IndexBase {
		b.WriteString(" index=")
		b.WriteString(string(p.Index))
	}
	if p.Mode == ModeQuery {
		fmt.Fprintf(&b, " key[user_id = %q", p.Tenant)
		if p.SortKey != nil {
			b.WriteString(" AND ")
			b.WriteString(p.SortKey.String())
		}
		b.WriteString("]")
	}
	if len(p.Filter) > 0 {
		parts := make([]string, len(p.Filter))
		for i, c := range p.Filter {
			parts[i] = c.String()
		}
		b.WriteString(" filter[")
		b.WriteString(strings.Join(parts, " AND "))
		b.WriteString("]")
	}
	return b.String()
}
