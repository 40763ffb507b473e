package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/kailas-cloud/receiptdex/internal/db"
	"github.com/kailas-cloud/receiptdex/internal/domain/receipt"
	"github.com/kailas-cloud/receiptdex/internal/domain/search/plan"
)

// ReadPage runs one Query (tenant plans) or Scan (single-tenant plans) call.
// The page limit counts items evaluated, so a page may be empty while more remain.
func (s *Store) ReadPage(ctx context.Context, p plan.Plan, cursor db.Cursor) (db.Page, error) {
	op := db.OpScan
	if p.Mode == plan.ModeQuery {
		op = db.OpQuery
	}

	start, err := decodeCursor(cursor)
	if err != nil {
		return db.Page{}, &db.Error{Op: op, Err: err}
	}

	var (
		rows []map[string]types.AttributeValue
		lek  map[string]types.AttributeValue
	)
	if p.Mode == plan.ModeQuery {
		in, err := s.queryInput(p, start)
		if err != nil {
			return db.Page{}, &db.Error{Op: op, Err: err}
		}
		out, err := s.api.Query(ctx, in)
		if err != nil {
			return db.Page{}, &db.Error{Op: op, Err: err}
		}
		rows, lek = out.Items, out.LastEvaluatedKey
	} else {
		in, err := s.scanInput(p, start)
		if err != nil {
			return db.Page{}, &db.Error{Op: op, Err: err}
		}
		out, err := s.api.Scan(ctx, in)
		if err != nil {
			return db.Page{}, &db.Error{Op: op, Err: err}
		}
		rows, lek = out.Items, out.LastEvaluatedKey
	}

	var items []item
	if err := attributevalue.UnmarshalListOfMaps(rows, &items); err != nil {
		return db.Page{}, &db.Error{Op: db.OpDecode, Err: err}
	}
	page := db.Page{Records: make([]receipt.Record, len(items))}
	for i := range items {
		page.Records[i] = items[i].toDomain()
	}

	if page.Next, err = encodeCursor(lek); err != nil {
		return db.Page{}, &db.Error{Op: db.OpDecode, Err: err}
	}
	return page, nil
}

// Put writes the whole record in a single PutItem call, replacing any previous version.
func (s *Store) Put(ctx context.Context, r receipt.Record) error {
	av, err := attributevalue.MarshalMap(toItem(r))
	if err != nil {
		return &db.Error{Op: db.OpPutItem, Err: fmt.Errorf("marshal receipt: %w", err)}
	}
	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      av,
	})
	if err != nil {
		return &db.Error{Op: db.OpPutItem, Err: err}
	}
	return nil
}

func (s *Store) queryInput(p plan.Plan, start map[string]types.AttributeValue) (*dynamodb.QueryInput, error) {
	expr, err := buildExpression(p)
	if err != nil {
		return nil, err
	}
	in := &dynamodb.QueryInput{
		TableName:                 aws.String(s.table),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ExclusiveStartKey:         start,
		Limit:                     aws.Int32(s.pageSize),
	}
	if p.Index != plan.IndexBase {
		in.IndexName = aws.String(string(p.Index))
	}
	return in, nil
}

func (s *Store) scanInput(p plan.Plan, start map[string]types.AttributeValue) (*dynamodb.ScanInput, error) {
	expr, err := buildExpression(p)
	if err != nil {
		return nil, err
	}
	in := &dynamodb.ScanInput{
		TableName:         aws.String(s.table),
		ExclusiveStartKey: start,
		Limit:             aws.Int32(s.pageSize),
	}
	if expr != nil {
		in.FilterExpression = expr.Filter()
		in.ExpressionAttributeNames = expr.Names()
		in.ExpressionAttributeValues = expr.Values()
	}
	return in, nil
}
