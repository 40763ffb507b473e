package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/kailas-cloud/receiptdex/internal/db"
	"github.com/kailas-cloud/receiptdex/internal/domain/search/plan"
)

// Layout is the receipt table: user_id/receipt_id with one index per
// promotable sort key.
func Layout(table string) *db.TableDefinition {
	return db.NewTable(table).
		PartitionKey(plan.FieldUserID, db.KeyString).
		SortKey(plan.FieldReceiptID, db.KeyString).
		Index(string(plan.IndexVendorName), plan.FieldUserID, plan.FieldVendorName).
		Index(string(plan.IndexTransactionDate), plan.FieldUserID, plan.FieldTransactionDate).
		MustBuild()
}

// EnsureTable creates the table with its indexes when it does not exist and
// waits until it is active.
func (s *Store) EnsureTable(ctx context.Context) error {
	_, err := s.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)})
	if err == nil {
		return nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return &db.Error{Op: db.OpDescribeTable, Err: err}
	}

	if _, err := s.api.CreateTable(ctx, createTableInput(s.layout)); err != nil {
		var inUse *types.ResourceInUseException
		if !errors.As(err, &inUse) {
			return &db.Error{Op: db.OpCreateTable, Err: err}
		}
	}

	waiter := dynamodb.NewTableExistsWaiter(s.api)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)}, s.createWait); err != nil {
		return &db.Error{Op: db.OpDescribeTable, Err: fmt.Errorf("wait for table %s: %w", s.table, err)}
	}
	return nil
}

func createTableInput(def *db.TableDefinition) *dynamodb.CreateTableInput {
	attrs := def.Attributes()
	defs := make([]types.AttributeDefinition, len(attrs))
	for i, a := range attrs {
		defs[i] = types.AttributeDefinition{
			AttributeName: aws.String(a.Name),
			AttributeType: types.ScalarAttributeType(a.Type),
		}
	}

	gsis := make([]types.GlobalSecondaryIndex, len(def.Indexes))
	for i, idx := range def.Indexes {
		gsis[i] = types.GlobalSecondaryIndex{
			IndexName:  aws.String(idx.Name),
			KeySchema:  keySchema(idx.PartitionKey, idx.SortKey),
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		}
	}

	in := &dynamodb.CreateTableInput{
		TableName:            aws.String(def.Name),
		AttributeDefinitions: defs,
		KeySchema:            keySchema(def.PartitionKey, def.SortKey),
		BillingMode:          types.BillingModePayPerRequest,
	}
	if len(gsis) > 0 {
		in.GlobalSecondaryIndexes = gsis
	}
	return in
}

func keySchema(pk, sk db.KeyAttribute) []types.KeySchemaElement {
	out := []types.KeySchemaElement{{AttributeName: aws.String(pk.Name), KeyType: types.KeyTypeHash}}
	if sk.Name != "" {
		out = append(out, types.KeySchemaElement{AttributeName: aws.String(sk.Name), KeyType: types.KeyTypeRange})
	}
	return out
}
