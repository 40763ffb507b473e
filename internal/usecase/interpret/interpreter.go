// Package interpret turns free-text receipt questions into filter specs with a language model.
package interpret

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/receiptdex/internal/domain"
	"github.com/kailas-cloud/receiptdex/internal/domain/receipt"
	"github.com/kailas-cloud/receiptdex/internal/domain/search/datephrase"
	"github.com/kailas-cloud/receiptdex/internal/domain/search/filter"
	"github.com/kailas-cloud/receiptdex/internal/logger"
	"github.com/kailas-cloud/receiptdex/internal/metrics"
)

// Result is an interpreted query.
type Result struct {
	Spec filter.Spec
	// Degraded is set when the model reply could not be parsed and Spec is empty.
	Degraded bool
}

// Interpreter asks a language model for a filter and validates what comes back.
type Interpreter struct {
	llm    domain.Completer
	schema *jsonschema.Schema
	logger *zap.Logger
}

// New creates an Interpreter.
func New(llm domain.Completer, logger *zap.Logger) (*Interpreter, error) {
	schema, err := compileConditionSchema()
	if err != nil {
		return nil, err
	}
	return &Interpreter{llm: llm, schema: schema, logger: logger}, nil
}

// aliases maps names models use besides the vocabulary.
var aliases = map[string]filter.Attribute{
	"merchant":          filter.VendorName,
	"vendor":            filter.VendorName,
	"date":              filter.TransactionDate,
	"amount":            filter.TotalAmount,
	"total":             filter.TotalAmount,
	"items":             filter.ItemName,
	"item":              filter.ItemName,
	"items[].item_name": filter.ItemName,
	"items.item_name":   filter.ItemName,
}

// Interpret translates query into a Spec without tenant. today is the reference
// day for relative dates, in the caller's time zone.
// A reply that is not a JSON object yields an empty Spec and Degraded; a failing
// completer is returned as an error.
func (i *Interpreter) Interpret(ctx context.Context, query string, today time.Time) (Result, error) {
	log := logger.FromContext(ctx)

	reply, err := i.llm.Complete(ctx, Messages(query, today))
	if err != nil {
		if !errors.Is(err, domain.ErrModelUnavailable) && !errors.Is(err, domain.ErrQuotaExceeded) {
			err = fmt.Errorf("%w: %w", domain.ErrModelUnavailable, err)
		}
		return Result{}, fmt.Errorf("interpret: %w", err)
	}

	obj, err := extractObject(reply.Text)
	if err != nil {
		metrics.InterpretDegradedTotal.Inc()
		log.Warn("Model reply is not a JSON object, searching without filter",
			zap.String("reply", truncate(reply.Text, 200)),
			zap.Error(err),
		)
		return Result{Spec: filter.Empty(), Degraded: true}, nil
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	seen := make(map[filter.Attribute]bool, len(keys))
	conds := make([]filter.Condition, 0, len(keys))
	for _, key := range keys {
		attr, ok := attribute(key)
		if !ok {
			log.Debug("Dropping unknown filter attribute", zap.String("attribute", key))
			continue
		}
		if seen[attr] {
			log.Debug("Dropping duplicate filter attribute", zap.String("attribute", key))
			continue
		}

		v, err := decodeValue(obj[key])
		if err != nil {
			log.Debug("Dropping undecodable filter value", zap.String("attribute", key), zap.Error(err))
			continue
		}
		v = unwrapItems(attr, v)
		if err := i.schema.Validate(v); err != nil {
			log.Debug("Dropping unsupported filter shape", zap.String("attribute", key), zap.Error(err))
			continue
		}

		cond, err := condition(attr, v, today)
		if err != nil {
			log.Debug("Dropping filter condition", zap.String("attribute", key), zap.Error(err))
			continue
		}
		seen[attr] = true
		conds = append(conds, cond)
	}

	spec, err := filter.NewSpec(conds...)
	if err != nil {
		// Unreachable: attributes are deduplicated above.
		return Result{}, fmt.Errorf("interpret: %w", err)
	}

	log.Debug("Query interpreted",
		zap.String("query", query),
		zap.Any("filter", spec.Map()),
		zap.Int("total_tokens", reply.TotalTokens),
	)
	return Result{Spec: spec}, nil
}

func attribute(key string) (filter.Attribute, bool) {
	k := strings.ToLower(strings.TrimSpace(key))
	if a := filter.Attribute(k); a.Known() {
		return a, true
	}
	a, ok := aliases[k]
	return a, ok
}

// unwrapItems accepts {"items": {"item_name": <condition>}}.
func unwrapItems(attr filter.Attribute, v any) any {
	if attr != filter.ItemName {
		return v
	}
	if m, ok := v.(map[string]any); ok && len(m) == 1 {
		if inner, ok := m["item_name"]; ok {
			return inner
		}
	}
	return v
}

// condition builds a validated condition from a schema-checked value.
func condition(attr filter.Attribute, v any, today time.Time) (filter.Condition, error) {
	if s, ok := scalar(v); ok {
		return equals(attr, s, today)
	}

	m := v.(map[string]any) //nolint:forcetypeassert // guaranteed by the schema
	switch {
	case m["equals"] != nil:
		s, _ := scalar(m["equals"])
		return equals(attr, s, today)
	case m["contains"] != nil:
		kws := keywords(m["contains"])
		return filter.NewContains(attr, kws[0], kws[1:]...)
	default:
		bounds := m["between"].([]any) //nolint:forcetypeassert // guaranteed by the schema
		lo, _ := scalar(bounds[0])
		hi, _ := scalar(bounds[1])
		return between(attr, lo, hi, today)
	}
}

// keywords accepts one keyword or a non-empty list of them.
func keywords(v any) []string {
	list, ok := v.([]any)
	if !ok {
		s, _ := scalar(v)
		return []string{s}
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, _ := scalar(item)
		out = append(out, s)
	}
	return out
}

func equals(attr filter.Attribute, value string, today time.Time) (filter.Condition, error) {
	switch attr.Kind() {
	case filter.KindDate:
		v := strings.TrimSpace(value)
		if receipt.IsDate(v) {
			return filter.NewEquals(attr, v)
		}
		from, to, ok := datephrase.Resolve(v, today)
		if !ok {
			return filter.Condition{}, fmt.Errorf("unresolvable date %q", v)
		}
		if from == to {
			return filter.NewEquals(attr, from)
		}
		return filter.NewBetween(attr, from, to)
	case filter.KindNumber:
		return filter.NewEquals(attr, cleanAmount(value))
	default:
		return filter.NewEquals(attr, value)
	}
}

func between(attr filter.Attribute, lower, upper string, today time.Time) (filter.Condition, error) {
	switch attr.Kind() {
	case filter.KindDate:
		lo, err := bound(lower, today, true)
		if err != nil {
			return filter.Condition{}, err
		}
		hi, err := bound(upper, today, false)
		if err != nil {
			return filter.Condition{}, err
		}
		lower, upper = lo, hi
	case filter.KindNumber:
		lower, upper = cleanAmount(lower), cleanAmount(upper)
	default:
		return filter.NewBetween(attr, lower, upper)
	}

	if filter.Compare(attr, lower, upper) > 0 {
		lower, upper = upper, lower
	}
	return filter.NewBetween(attr, lower, upper)
}

// bound resolves one side of a date range; phrases contribute their first or last day.
func bound(value string, today time.Time, lower bool) (string, error) {
	v := strings.TrimSpace(value)
	if receipt.IsDate(v) {
		return v, nil
	}
	from, to, ok := datephrase.Resolve(v, today)
	if !ok {
		return "", fmt.Errorf("unresolvable date %q", v)
	}
	if lower {
		return from, nil
	}
	return to, nil
}

var amountNoise = strings.NewReplacer("$", "", "€", "", "£", "", ",", "", " ", "", "USD", "", "usd", "")

// cleanAmount strips currency symbols and thousands separators.
func cleanAmount(s string) string {
	return amountNoise.Replace(strings.TrimSpace(s))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
