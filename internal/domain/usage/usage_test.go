package usage

import "testing"

func TestNewReport(t *testing.T) {
	c := Consumption{Completions: 1542, Tokens: 384200, CostMillidollars: 58}
	b := NewBudget(1000000, 615800, 1700000000000)

	r := NewReport(PeriodMonth, 1700000000, 1702600000, "openai", c, b)

	if r.Period() != PeriodMonth || r.Provider() != "openai" {
		t.Errorf("Period()/Provider() = %q/%q", r.Period(), r.Provider())
	}
	if r.PeriodStart() != 1700000000 || r.PeriodEnd() != 1702600000 {
		t.Errorf("bounds = %d..%d", r.PeriodStart(), r.PeriodEnd())
	}
	if r.Consumption().Completions != 1542 {
		t.Errorf("Completions = %d", r.Consumption().Completions)
	}
	if r.Budget().TokensLimit() != 1000000 || r.Budget().IsExhausted() {
		t.Errorf("Budget() = %+v", r.Budget())
	}
}

func TestBudget(t *testing.T) {
	tests := []struct {
		name      string
		limit     int64
		remaining int64
		exhausted bool
		unlimited bool
	}{
		{"within", 100, 40, false, false},
		{"spent", 100, 0, true, false},
		{"unlimited", 0, 0, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBudget(tt.limit, tt.remaining, 0)
			if b.IsExhausted() != tt.exhausted || b.Unlimited() != tt.unlimited {
				t.Errorf("exhausted=%v unlimited=%v", b.IsExhausted(), b.Unlimited())
			}
		})
	}
	if NewBudget(0, 0, 0).TokensRemaining() != -1 {
		t.Error("unlimited budget must report -1 remaining")
	}
}

func TestParsePeriod(t *testing.T) {
	for in, want := range map[string]Period{"": PeriodDay, "day": PeriodDay, "month": PeriodMonth} {
		got, err := ParsePeriod(in)
		if err != nil || got != want {
			t.Errorf("ParsePeriod(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParsePeriod("year"); err == nil {
		t.Error("expected error for unknown period")
	}
}
