// Package dynamo implements the receipt store on Amazon DynamoDB.
package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/kailas-cloud/receiptdex/internal/db"
)

// Compile-time check: Store implements db.ReceiptStore.
var _ db.ReceiptStore = (*Store)(nil)

// API is the subset of the DynamoDB client the store uses.
type API interface {
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// Config holds connection parameters for the receipt table.
type Config struct {
	Table           string
	Region          string
	Endpoint        string // DynamoDB Local / LocalStack; empty uses AWS
	AccessKeyID     string // optional; the default credential chain is used when empty
	SecretAccessKey string
	PageSize        int32
}

// Store implements db.ReceiptStore on a single DynamoDB table.
type Store struct {
	api        API
	table      string
	pageSize   int32
	createWait time.Duration
	layout     *db.TableDefinition
}

// NewStore creates a DynamoDB-backed store. The SDK retryer is limited to a
// single attempt: callers see the first failure.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Table == "" {
		return nil, fmt.Errorf("table is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("region is required")
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
		config.WithRetryMaxAttempts(1),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return newStore(client, cfg.Table, cfg.PageSize), nil
}

func newStore(api API, table string, pageSize int32) *Store {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Store{
		api:        api,
		table:      table,
		pageSize:   pageSize,
		createWait: 2 * time.Minute,
		layout:     Layout(table),
	}
}

// Ping checks that the table is reachable.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)})
	if err != nil {
		return &db.Error{Op: db.OpDescribeTable, Err: err}
	}
	return nil
}

// WaitForReady polls Ping until the table responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for table %s: %w", s.table, ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}
