package dynamo

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/kailas-cloud/receiptdex/internal/domain/search/plan"
)

// number marshals an already normalized decimal string as a DynamoDB N value.
type number string

func (n number) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return &types.AttributeValueMemberN{Value: string(n)}, nil
}

// buildExpression renders a plan into DynamoDB expressions. It returns nil when
// the plan has neither a key condition nor a filter (unfiltered scan).
// Placeholders are assigned in clause order, so equal plans render identically.
func buildExpression(p plan.Plan) (*expression.Expression, error) {
	b := expression.NewBuilder()
	set := false

	if p.Mode == plan.ModeQuery {
		kc, err := keyCondition(p)
		if err != nil {
			return nil, err
		}
		b = b.WithKeyCondition(kc)
		set = true
	}
	if cond, ok, err := filterCondition(p.Filter); err != nil {
		return nil, err
	} else if ok {
		b = b.WithFilter(cond)
		set = true
	}
	if !set {
		return nil, nil
	}

	expr, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("build expression: %w", err)
	}
	return &expr, nil
}

func keyCondition(p plan.Plan) (expression.KeyConditionBuilder, error) {
	kc := expression.Key(plan.FieldUserID).Equal(expression.Value(p.Tenant))
	if p.SortKey == nil {
		return kc, nil
	}

	sk := *p.SortKey
	switch sk.Op {
	case plan.OpEqual:
		return kc.And(expression.Key(sk.Field).Equal(operand(sk.Values[0], sk.Numeric))), nil
	case plan.OpBetween:
		return kc.And(expression.Key(sk.Field).Between(
			operand(sk.Values[0], sk.Numeric),
			operand(sk.Values[1], sk.Numeric),
		)), nil
	default:
		return expression.KeyConditionBuilder{}, fmt.Errorf("operator %q cannot be a key condition", sk.Op)
	}
}

func filterCondition(clauses []plan.Clause) (expression.ConditionBuilder, bool, error) {
	conds := make([]expression.ConditionBuilder, 0, len(clauses))
	for _, c := range clauses {
		name := expression.Name(c.Field)
		switch c.Op {
		case plan.OpEqual:
			conds = append(conds, name.Equal(operand(c.Values[0], c.Numeric)))
		case plan.OpContains:
			conds = append(conds, name.Contains(c.Values[0]))
		case plan.OpBetween:
			conds = append(conds, name.Between(operand(c.Values[0], c.Numeric), operand(c.Values[1], c.Numeric)))
		default:
			return expression.ConditionBuilder{}, false, fmt.Errorf("unsupported operator %q", c.Op)
		}
	}

	switch len(conds) {
	case 0:
		return expression.ConditionBuilder{}, false, nil
	case 1:
		return conds[0], true, nil
	default:
		return expression.And(conds[0], conds[1], conds[2:]...), true, nil
	}
}

func operand(v string, numeric bool) expression.ValueBuilder {
	if numeric {
		return expression.Value(number(v))
	}
	return expression.Value(v)
}
