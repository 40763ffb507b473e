package interpret

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/kailas-cloud/receiptdex/internal/domain"
	"github.com/kailas-cloud/receiptdex/internal/domain/search/filter"
)

func mustSpec(t *testing.T, conds ...filter.Condition) filter.Spec {
	t.Helper()
	s, err := filter.NewSpec(conds...)
	if err != nil {
		t.Fatalf("NewSpec: %v", err)
	}
	return s
}

func eq(t *testing.T, attr filter.Attribute, v string) filter.Condition {
	t.Helper()
	c, err := filter.NewEquals(attr, v)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func contains(t *testing.T, attr filter.Attribute, v string) filter.Condition {
	t.Helper()
	c, err := filter.NewContains(attr, v)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func betweenCond(t *testing.T, attr filter.Attribute, lo, hi string) filter.Condition {
	t.Helper()
	c, err := filter.NewBetween(attr, lo, hi)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestInterpret_StarbucksInMarch(t *testing.T) {
	i, _ := newTestInterpreter(t,
		`{"vendor_name":"Starbucks","transaction_date":{"between":["2024-03-01","2024-03-31"]}}`)

	got, err := i.Interpret(context.Background(), "starbucks purchase in march", today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := mustSpec(t,
		eq(t, filter.VendorName, "Starbucks"),
		betweenCond(t, filter.TransactionDate, "2024-03-01", "2024-03-31"),
	)
	if got.Degraded || !reflect.DeepEqual(got.Spec, want) {
		t.Errorf("Interpret() = %+v, want %+v", got.Spec.Map(), want.Map())
	}
	if got.Spec.Tenant() != "" {
		t.Errorf("interpreter must not set the tenant, got %q", got.Spec.Tenant())
	}
}

func TestInterpret_Malformed(t *testing.T) {
	for _, reply := range []string{
		"starbucks, march",
		"",
		"null",
		`["vendor_name","Starbucks"]`,
		`[{"vendor_name":"Starbucks"}]`,
		`{"vendor_name": "Starbucks"`,
		"I could not understand the question.",
		"42",
	} {
		t.Run(reply, func(t *testing.T) {
			i, _ := newTestInterpreter(t, reply)
			got, err := i.Interpret(context.Background(), "starbucks, march", today)
			if err != nil {
				t.Fatalf("malformed output must not fail: %v", err)
			}
			if !got.Degraded || !got.Spec.IsEmpty() {
				t.Errorf("expected empty degraded spec, got %+v", got)
			}
		})
	}
}

func TestInterpret_FencedAndChatty(t *testing.T) {
	for _, reply := range []string{
		"```json\n{\"vendor_name\":\"Costa\"}\n```",
		"```\n{\"vendor_name\":\"Costa\"}\n```",
		"Here is the filter: {\"vendor_name\":\"Costa\"}",
	} {
		i, _ := newTestInterpreter(t, reply)
		got, err := i.Interpret(context.Background(), "costa", today)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c, ok := got.Spec.Condition(filter.VendorName); !ok || c.Value() != "Costa" {
			t.Errorf("reply %q: spec = %v", reply, got.Spec.Map())
		}
	}
}

func TestInterpret_EmptyObject(t *testing.T) {
	i, _ := newTestInterpreter(t, "{}")
	got, err := i.Interpret(context.Background(), "show me everything", today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Degraded || !got.Spec.IsEmpty() {
		t.Errorf("expected empty non-degraded spec, got %+v", got)
	}
}

func TestInterpret_DropsUnsupportedShapes(t *testing.T) {
	i, _ := newTestInterpreter(t, `{
		"vendor_name": {"startsWith": "Star"},
		"user_id": "someone-else",
		"receipt_id": "r1",
		"quantity": 3,
		"raw_text": {"contains": "latte", "equals": "x"},
		"item_name": ["Latte"],
		"total_amount": {"between": ["10", "$20.50"]}
	}`)

	got, err := i.Interpret(context.Background(), "x", today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := mustSpec(t, betweenCond(t, filter.TotalAmount, "10", "20.5"))
	if !reflect.DeepEqual(got.Spec, want) {
		t.Errorf("spec = %v, want %v", got.Spec.Map(), want.Map())
	}
}

func TestInterpret_DropsOperatorsTheAttributeCannotTake(t *testing.T) {
	i, _ := newTestInterpreter(t, `{
		"vendor_name": {"between": ["A", "M"]},
		"transaction_date": {"contains": "2024"},
		"item_name": "  "
	}`)

	got, err := i.Interpret(context.Background(), "x", today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Spec.IsEmpty() || got.Degraded {
		t.Errorf("expected every condition dropped, got %v", got.Spec.Map())
	}
}

func TestInterpret_ResolvesDatePhrases(t *testing.T) {
	tests := []struct {
		reply string
		want  func(t *testing.T) filter.Condition
	}{
		{`{"transaction_date":"last week"}`, func(t *testing.T) filter.Condition {
			return betweenCond(t, filter.TransactionDate, "2024-03-11", "2024-03-17")
		}},
		{`{"transaction_date":"yesterday"}`, func(t *testing.T) filter.Condition {
			return eq(t, filter.TransactionDate, "2024-03-19")
		}},
		{`{"transaction_date":{"equals":"2024-03-05"}}`, func(t *testing.T) filter.Condition {
			return eq(t, filter.TransactionDate, "2024-03-05")
		}},
		{`{"transaction_date":{"between":["early September","late September"]}}`, func(t *testing.T) filter.Condition {
			return betweenCond(t, filter.TransactionDate, "2023-09-01", "2023-09-30")
		}},
		{`{"transaction_date":{"between":["2024-03-31","2024-03-01"]}}`, func(t *testing.T) filter.Condition {
			return betweenCond(t, filter.TransactionDate, "2024-03-01", "2024-03-31")
		}},
		{`{"date":"03/05/2024"}`, func(t *testing.T) filter.Condition {
			return eq(t, filter.TransactionDate, "2024-03-05")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			i, _ := newTestInterpreter(t, tt.reply)
			got, err := i.Interpret(context.Background(), "q", today)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			c, ok := got.Spec.Condition(filter.TransactionDate)
			if !ok || !reflect.DeepEqual(c, tt.want(t)) {
				t.Errorf("condition = %v, want %v", c, tt.want(t))
			}
		})
	}
}

func TestInterpret_UnresolvableDateDropped(t *testing.T) {
	i, _ := newTestInterpreter(t, `{"transaction_date":"when I was on holiday","vendor_name":"Costa"}`)
	got, err := i.Interpret(context.Background(), "q", today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := got.Spec.Condition(filter.TransactionDate); ok {
		t.Error("unresolvable date must be dropped")
	}
	if got.Spec.Len() != 1 {
		t.Errorf("spec = %v", got.Spec.Map())
	}
}

func TestInterpret_Amounts(t *testing.T) {
	tests := []struct {
		reply string
		want  func(t *testing.T) filter.Condition
	}{
		{`{"total_amount": 12.5}`, func(t *testing.T) filter.Condition {
			return eq(t, filter.TotalAmount, "12.5")
		}},
		{`{"total_amount": "$1,024.00"}`, func(t *testing.T) filter.Condition {
			return eq(t, filter.TotalAmount, "1024")
		}},
		{`{"amount": {"between": [100, 20]}}`, func(t *testing.T) filter.Condition {
			return betweenCond(t, filter.TotalAmount, "20", "100")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			i, _ := newTestInterpreter(t, tt.reply)
			got, err := i.Interpret(context.Background(), "q", today)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			c, ok := got.Spec.Condition(filter.TotalAmount)
			if !ok || !reflect.DeepEqual(c, tt.want(t)) {
				t.Errorf("condition = %v, want %v", c, tt.want(t))
			}
		})
	}

	i, _ := newTestInterpreter(t, `{"total_amount": "a lot"}`)
	got, _ := i.Interpret(context.Background(), "q", today)
	if !got.Spec.IsEmpty() {
		t.Errorf("non-numeric amount must be dropped, got %v", got.Spec.Map())
	}
}

func TestInterpret_ItemAliases(t *testing.T) {
	for _, reply := range []string{
		`{"items":{"item_name":{"contains":"Latte"}}}`,
		`{"items[].item_name":{"contains":"Latte"}}`,
		`{"item":{"contains":"Latte"}}`,
		`{"item_name":{"contains":"Latte"}}`,
	} {
		i, _ := newTestInterpreter(t, reply)
		got, err := i.Interpret(context.Background(), "latte", today)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := mustSpec(t, contains(t, filter.ItemName, "Latte"))
		if !reflect.DeepEqual(got.Spec, want) {
			t.Errorf("reply %s: spec = %v", reply, got.Spec.Map())
		}
	}
}

func TestInterpret_DuplicateAliasKeepsFirst(t *testing.T) {
	i, _ := newTestInterpreter(t, `{"vendor":"Costa","merchant":"Starbucks"}`)
	got, err := i.Interpret(context.Background(), "q", today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Keys are visited in sorted order: "merchant" < "vendor".
	if c, _ := got.Spec.Condition(filter.VendorName); c.Value() != "Starbucks" || got.Spec.Len() != 1 {
		t.Errorf("spec = %v", got.Spec.Map())
	}
}

func TestInterpret_PreservesCase(t *testing.T) {
	i, _ := newTestInterpreter(t, `{"raw_text":{"contains":"  OAT Milk "}}`)
	got, _ := i.Interpret(context.Background(), "q", today)
	if c, _ := got.Spec.Condition(filter.RawText); c.Value() != "OAT Milk" {
		t.Errorf("Value = %q", c.Value())
	}
}

func TestInterpret_ContainsKeywordList(t *testing.T) {
	i, _ := newTestInterpreter(t, `{"raw_text":{"contains":["oat milk", "Latte", "oat milk"]}}`)
	got, err := i.Interpret(context.Background(), "q", today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, ok := got.Spec.Condition(filter.RawText)
	if !ok {
		t.Fatalf("raw_text dropped: %v", got.Spec.Map())
	}
	if want := []string{"oat milk", "Latte"}; !reflect.DeepEqual(c.Keywords(), want) {
		t.Errorf("Keywords = %q, want %q", c.Keywords(), want)
	}
}

func TestInterpret_DropsEmptyKeywordList(t *testing.T) {
	for _, reply := range []string{
		`{"raw_text":{"contains":[]}}`,
		`{"raw_text":{"contains":["latte", 3]}}`,
		`{"raw_text":{"contains":["latte", "  "]}}`,
	} {
		i, _ := newTestInterpreter(t, reply)
		got, err := i.Interpret(context.Background(), "q", today)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", reply, err)
		}
		if !got.Spec.IsEmpty() {
			t.Errorf("%s: spec = %v, want empty", reply, got.Spec.Map())
		}
	}
}

func TestInterpret_CompleterError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unavailable", domain.ErrModelUnavailable, domain.ErrModelUnavailable},
		{"quota", domain.ErrQuotaExceeded, domain.ErrQuotaExceeded},
		{"anything else", errors.New("dial tcp: connection refused"), domain.ErrModelUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i, llm := newTestInterpreter(t, "")
			llm.err = tt.err

			got, err := i.Interpret(context.Background(), "q", today)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if got.Degraded {
				t.Error("collaborator failures are not degradations")
			}
		})
	}
}

func TestInterpret_SendsPrompt(t *testing.T) {
	i, llm := newTestInterpreter(t, "{}")
	_, _ = i.Interpret(context.Background(), "  coffee last week ", today)

	if len(llm.messages) != 2 {
		t.Fatalf("messages = %d", len(llm.messages))
	}
	sys, user := llm.messages[0], llm.messages[1]
	if sys.Role != domain.RoleSystem || user.Role != domain.RoleUser {
		t.Errorf("roles = %s/%s", sys.Role, user.Role)
	}
	for _, want := range []string{"2024-03-20 (Wednesday)", "vendor_name", "transaction_date", "total_amount",
		"item_name", `{"contains"`, `{"between"`, "one JSON object only"} {
		if !strings.Contains(sys.Content, want) {
			t.Errorf("system prompt lacks %q", want)
		}
	}
	if user.Content != "coffee last week" {
		t.Errorf("user message = %q", user.Content)
	}
}

func TestMessages_ExampleYear(t *testing.T) {
	jan := today.AddDate(0, -2, 0)
	if !strings.Contains(Messages("q", jan)[0].Content, `"2023-03-01"`) {
		t.Error("example before March must point at last year's March")
	}
}
