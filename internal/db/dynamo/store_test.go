package dynamo

import (
	"context"
	"errors"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"

	"github.com/kailas-cloud/receiptdex/internal/db"
	"github.com/kailas-cloud/receiptdex/internal/domain/receipt"
	"github.com/kailas-cloud/receiptdex/internal/domain/search/filter"
	"github.com/kailas-cloud/receiptdex/internal/domain/search/plan"
)

// --- fake API ---

type fakeAPI struct {
	queries  []*dynamodb.QueryInput
	scans    []*dynamodb.ScanInput
	puts     []*dynamodb.PutItemInput
	creates  []*dynamodb.CreateTableInput
	describe []error // consumed per DescribeTable call; nil means active

	queryPages []*dynamodb.QueryOutput
	scanPages  []*dynamodb.ScanOutput
	err        error
}

func (f *fakeAPI) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.queries = append(f.queries, in)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.queryPages) == 0 {
		return &dynamodb.QueryOutput{}, nil
	}
	out := f.queryPages[0]
	f.queryPages = f.queryPages[1:]
	return out, nil
}

func (f *fakeAPI) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.scans = append(f.scans, in)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.scanPages) == 0 {
		return &dynamodb.ScanOutput{}, nil
	}
	out := f.scanPages[0]
	f.scanPages = f.scanPages[1:]
	return out, nil
}

func (f *fakeAPI) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.puts = append(f.puts, in)
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeAPI) DescribeTable(_ context.Context, _ *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if len(f.describe) > 0 {
		err := f.describe[0]
		f.describe = f.describe[1:]
		if err != nil {
			return nil, err
		}
	}
	return &dynamodb.DescribeTableOutput{
		Table: &types.TableDescription{TableStatus: types.TableStatusActive},
	}, nil
}

func (f *fakeAPI) CreateTable(_ context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.creates = append(f.creates, in)
	return &dynamodb.CreateTableOutput{}, nil
}

// --- helpers ---

func starbucksInMarch(t *testing.T, tenant string) plan.Plan {
	t.Helper()
	v, err := filter.NewEquals(filter.VendorName, "Starbucks")
	if err != nil {
		t.Fatal(err)
	}
	d, err := filter.NewBetween(filter.TransactionDate, "2024-03-01", "2024-03-31")
	if err != nil {
		t.Fatal(err)
	}
	spec, err := filter.NewSpec(v, d)
	if err != nil {
		t.Fatal(err)
	}
	return plan.Compile(spec.WithTenant(tenant))
}

// readable substitutes placeholders so assertions don't depend on their numbering.
func readable(expr *string, names map[string]string, values map[string]types.AttributeValue) string {
	if expr == nil {
		return ""
	}
	out := *expr
	var keys []string
	for k := range names {
		keys = append(keys, k)
	}
	for k := range values {
		keys = append(keys, k)
	}
	// Longest first so #1 never clobbers #10.
	slices.SortFunc(keys, func(a, b string) int { return len(b) - len(a) })
	for _, k := range keys {
		if n, ok := names[k]; ok {
			out = strings.ReplaceAll(out, k, n)
			continue
		}
		switch v := values[k].(type) {
		case *types.AttributeValueMemberS:
			out = strings.ReplaceAll(out, k, `"`+v.Value+`"`)
		case *types.AttributeValueMemberN:
			out = strings.ReplaceAll(out, k, v.Value)
		}
	}
	return out
}

func mustAmount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// --- ReadPage ---

func TestReadPage_StarbucksInMarch(t *testing.T) {
	api := &fakeAPI{}
	s := NewStoreForTest(api, "receipts", 25)

	if _, err := s.ReadPage(context.Background(), starbucksInMarch(t, "u1"), ""); err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	if len(api.queries) != 1 || len(api.scans) != 0 {
		t.Fatalf("queries=%d scans=%d", len(api.queries), len(api.scans))
	}
	in := api.queries[0]

	if *in.TableName != "receipts" || in.IndexName == nil || *in.IndexName != "VendorNameIndex" {
		t.Errorf("table/index = %v/%v", in.TableName, in.IndexName)
	}
	if *in.Limit != 25 {
		t.Errorf("Limit = %d", *in.Limit)
	}
	key := readable(in.KeyConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if !strings.Contains(key, `user_id = "u1"`) || !strings.Contains(key, `vendor_name = "Starbucks"`) {
		t.Errorf("key condition = %s", key)
	}
	f := readable(in.FilterExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if f != `transaction_date BETWEEN "2024-03-01" AND "2024-03-31"` {
		t.Errorf("filter = %s", f)
	}
}

func TestReadPage_RenderingIsDeterministic(t *testing.T) {
	api := &fakeAPI{}
	s := NewStoreForTest(api, "receipts", 25)

	for range 10 {
		if _, err := s.ReadPage(context.Background(), starbucksInMarch(t, "u1"), ""); err != nil {
			t.Fatalf("ReadPage: %v", err)
		}
	}
	for i := 1; i < len(api.queries); i++ {
		if !reflect.DeepEqual(api.queries[0], api.queries[i]) {
			t.Fatalf("query %d differs from query 0", i)
		}
	}
}

func TestReadPage_NumericBetweenUsesNumbers(t *testing.T) {
	c, _ := filter.NewBetween(filter.TotalAmount, "10", "20.50")
	i, _ := filter.NewContains(filter.ItemName, "Latte")
	spec, _ := filter.NewSpec(c, i)

	api := &fakeAPI{}
	s := NewStoreForTest(api, "receipts", 25)
	if _, err := s.ReadPage(context.Background(), plan.Compile(spec.WithTenant("u1")), ""); err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	in := api.queries[0]
	if in.IndexName != nil {
		t.Errorf("expected base table, got %s", *in.IndexName)
	}
	f := readable(in.FilterExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if !strings.Contains(f, "total_amount BETWEEN 10 AND 20.5") {
		t.Errorf("filter = %s", f)
	}
	if !strings.Contains(f, "contains") || !strings.Contains(f, `items_text, "Latte"`) {
		t.Errorf("filter = %s", f)
	}
}

func TestReadPage_KeywordsAreAnded(t *testing.T) {
	c, _ := filter.NewContains(filter.RawText, "OAT", "LATTE")
	spec, _ := filter.NewSpec(c)

	api := &fakeAPI{}
	s := NewStoreForTest(api, "receipts", 25)
	if _, err := s.ReadPage(context.Background(), plan.Compile(spec.WithTenant("u1")), ""); err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	in := api.queries[0]
	f := readable(in.FilterExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if !strings.Contains(f, `raw_text, "OAT"`) || !strings.Contains(f, `raw_text, "LATTE"`) || !strings.Contains(f, "AND") {
		t.Errorf("filter = %s", f)
	}
}

func TestReadPage_ScanWithoutFilter(t *testing.T) {
	api := &fakeAPI{}
	s := NewStoreForTest(api, "receipts", 25)

	if _, err := s.ReadPage(context.Background(), plan.Compile(filter.Empty()), ""); err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	if len(api.scans) != 1 {
		t.Fatalf("scans = %d", len(api.scans))
	}
	in := api.scans[0]
	if in.FilterExpression != nil || in.ExpressionAttributeNames != nil {
		t.Errorf("unfiltered scan carries an expression: %v", in.FilterExpression)
	}
}

func TestReadPage_DecodesRecordsAndCursor(t *testing.T) {
	stored, err := attributevalue.MarshalMap(toItem(receipt.Reconstruct("u1", "r1", receipt.Fields{
		VendorName:      "Starbucks",
		TransactionDate: "2024-03-14",
		TotalAmount:     mustAmount("12.40"),
		Items:           []receipt.Item{{Name: "Latte", Quantity: 2, Price: mustAmount("6.20")}},
		RawText:         "STARBUCKS #123",
		ImageReference:  "receipts/u1/r1.jpg",
	})))
	if err != nil {
		t.Fatal(err)
	}
	lek := map[string]types.AttributeValue{
		"user_id":     &types.AttributeValueMemberS{Value: "u1"},
		"receipt_id":  &types.AttributeValueMemberS{Value: "r1"},
		"vendor_name": &types.AttributeValueMemberS{Value: "Starbucks"},
	}
	api := &fakeAPI{queryPages: []*dynamodb.QueryOutput{
		{Items: []map[string]types.AttributeValue{stored}, LastEvaluatedKey: lek},
		{},
	}}
	s := NewStoreForTest(api, "receipts", 1)
	p := starbucksInMarch(t, "u1")

	page, err := s.ReadPage(context.Background(), p, "")
	if err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	if len(page.Records) != 1 {
		t.Fatalf("records = %d", len(page.Records))
	}
	r := page.Records[0]
	if r.ReceiptID() != "r1" || r.VendorName() != "Starbucks" || r.TotalAmount().String() != "12.4" {
		t.Errorf("record = %+v", r.Fields())
	}
	if len(r.Items()) != 1 || r.Items()[0].Price.String() != "6.2" || r.Items()[0].Quantity != 2 {
		t.Errorf("items = %+v", r.Items())
	}
	if page.Next == "" {
		t.Fatal("expected a cursor")
	}

	last, err := s.ReadPage(context.Background(), p, page.Next)
	if err != nil {
		t.Fatalf("ReadPage(next): %v", err)
	}
	if last.Next != "" {
		t.Errorf("expected end of results, got %q", last.Next)
	}
	if !reflect.DeepEqual(api.queries[1].ExclusiveStartKey, lek) {
		t.Errorf("ExclusiveStartKey = %v", api.queries[1].ExclusiveStartKey)
	}
}

func TestReadPage_InvalidCursor(t *testing.T) {
	s := NewStoreForTest(&fakeAPI{}, "receipts", 25)
	_, err := s.ReadPage(context.Background(), starbucksInMarch(t, "u1"), "%%%")
	if !errors.Is(err, db.ErrInvalidCursor) {
		t.Errorf("expected ErrInvalidCursor, got %v", err)
	}
}

func TestReadPage_APIError(t *testing.T) {
	api := &fakeAPI{err: errors.New("ProvisionedThroughputExceededException")}
	s := NewStoreForTest(api, "receipts", 25)

	_, err := s.ReadPage(context.Background(), starbucksInMarch(t, "u1"), "")
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpQuery {
		t.Errorf("expected db.Error{Query}, got %v", err)
	}
}

// --- Put ---

func TestPut_OmitsUnknownFields(t *testing.T) {
	api := &fakeAPI{}
	s := NewStoreForTest(api, "receipts", 25)

	r, err := receipt.New("u1", "r1", receipt.Fields{
		Items: []receipt.Item{{Name: "Bagel", Quantity: 1}, {Name: "Latte", Quantity: 1}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put(context.Background(), r); err != nil {
		t.Fatalf("Put: %v", err)
	}

	av := api.puts[0].Item
	for _, absent := range []string{"vendor_name", "transaction_date", "total_amount", "raw_text"} {
		if _, ok := av[absent]; ok {
			t.Errorf("attribute %s must be omitted when unknown", absent)
		}
	}
	text, ok := av["items_text"].(*types.AttributeValueMemberS)
	if !ok || text.Value != "Bagel\nLatte" {
		t.Errorf("items_text = %v", av["items_text"])
	}
}

func TestPut_AmountIsNumber(t *testing.T) {
	api := &fakeAPI{}
	s := NewStoreForTest(api, "receipts", 25)

	r, _ := receipt.New("u1", "r1", receipt.Fields{TotalAmount: mustAmount("19.99")})
	if err := s.Put(context.Background(), r); err != nil {
		t.Fatalf("Put: %v", err)
	}
	n, ok := api.puts[0].Item["total_amount"].(*types.AttributeValueMemberN)
	if !ok || n.Value != "19.99" {
		t.Errorf("total_amount = %#v", api.puts[0].Item["total_amount"])
	}
}

// --- EnsureTable ---

func TestEnsureTable_CreatesMissingTable(t *testing.T) {
	api := &fakeAPI{describe: []error{&types.ResourceNotFoundException{Message: new(string)}}}
	s := NewStoreForTest(api, "receipts", 25)

	if err := s.EnsureTable(context.Background()); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	if len(api.creates) != 1 {
		t.Fatalf("creates = %d", len(api.creates))
	}
	in := api.creates[0]
	if len(in.GlobalSecondaryIndexes) != 2 {
		t.Fatalf("indexes = %d", len(in.GlobalSecondaryIndexes))
	}
	if *in.GlobalSecondaryIndexes[0].IndexName != "VendorNameIndex" ||
		*in.GlobalSecondaryIndexes[1].IndexName != "TransactionDateIndex" {
		t.Errorf("unexpected index names")
	}
	if len(in.AttributeDefinitions) != 4 {
		t.Errorf("attribute definitions = %d, want 4", len(in.AttributeDefinitions))
	}
	if in.BillingMode != types.BillingModePayPerRequest {
		t.Errorf("BillingMode = %s", in.BillingMode)
	}
}

func TestEnsureTable_ExistingTable(t *testing.T) {
	api := &fakeAPI{}
	s := NewStoreForTest(api, "receipts", 25)

	if err := s.EnsureTable(context.Background()); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	if len(api.creates) != 0 {
		t.Errorf("table must not be recreated")
	}
}

func TestEnsureTable_DescribeFailure(t *testing.T) {
	api := &fakeAPI{describe: []error{errors.New("access denied")}}
	s := NewStoreForTest(api, "receipts", 25)

	err := s.EnsureTable(context.Background())
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpDescribeTable {
		t.Errorf("expected db.Error{DescribeTable}, got %v", err)
	}
}
