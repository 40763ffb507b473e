package filter

import (
	"fmt"
	"slices"
)

// Spec is a request-scoped, validated search intent: at most one condition per
// attribute, AND-ed, plus the tenant the orchestrator injects. Several keywords
// on one attribute live inside a single contains condition.
type Spec struct {
	tenant     string
	conditions map[Attribute]Condition
}

// Empty returns a Spec without any constraint.
func Empty() Spec { return Spec{} }

// NewSpec validates and creates a Spec. Each attribute may appear once.
func NewSpec(conds ...Condition) (Spec, error) {
	s := Spec{}
	for _, c := range conds {
		if !c.Valid() {
			return Spec{}, fmt.Errorf("invalid condition on %q", c.attr)
		}
		if _, dup := s.conditions[c.attr]; dup {
			return Spec{}, fmt.Errorf("duplicate condition on %q", c.attr)
		}
		if s.conditions == nil {
			s.conditions = make(map[Attribute]Condition, len(conds))
		}
		s.conditions[c.attr] = c
	}
	return s, nil
}

// WithTenant returns a copy scoped to the given user.
func (s Spec) WithTenant(userID string) Spec {
	s.tenant = userID
	return s
}

// Tenant returns the user the filter is scoped to, empty in single-tenant mode.
func (s Spec) Tenant() string { return s.tenant }

// Condition returns the condition on attr, if any.
func (s Spec) Condition(attr Attribute) (Condition, bool) {
	c, ok := s.conditions[attr]
	return c, ok
}

// Conditions returns the conditions ordered by attribute name.
func (s Spec) Conditions() []Condition {
	out := make([]Condition, 0, len(s.conditions))
	for _, c := range s.conditions {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b Condition) int {
		switch {
		case a.attr < b.attr:
			return -1
		case a.attr > b.attr:
			return 1
		default:
			return 0
		}
	})
	return out
}

// Len returns the number of non-tenant conditions.
func (s Spec) Len() int { return len(s.conditions) }

// IsEmpty reports whether the filter has no non-tenant conditions.
func (s Spec) IsEmpty() bool { return len(s.conditions) == 0 }

// Map renders the filter in the JSON shape exchanged with the language model.
func (s Spec) Map() map[string]any {
	out := make(map[string]any, len(s.conditions))
	for attr, c := range s.conditions {
		switch c.op {
		case OpEquals:
			out[string(attr)] = c.Value()
		case OpContains:
			if kws := c.Keywords(); len(kws) > 1 {
				out[string(attr)] = map[string]any{"contains": kws}
			} else {
				out[string(attr)] = map[string]any{"contains": c.Value()}
			}
		case OpBetween:
			lo, hi := c.Bounds()
			out[string(attr)] = map[string]any{"between": []string{lo, hi}}
		}
	}
	return out
}
