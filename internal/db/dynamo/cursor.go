package dynamo

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/kailas-cloud/receiptdex/internal/db"
)

// encodeCursor turns LastEvaluatedKey into an opaque token. Every key
// attribute of the table and its indexes is a string.
func encodeCursor(lek map[string]types.AttributeValue) (db.Cursor, error) {
	if len(lek) == 0 {
		return "", nil
	}
	var keys map[string]string
	if err := attributevalue.UnmarshalMap(lek, &keys); err != nil {
		return "", fmt.Errorf("decode last evaluated key: %w", err)
	}
	data, err := json.Marshal(keys)
	if err != nil {
		return "", fmt.Errorf("encode cursor: %w", err)
	}
	return db.Cursor(base64.RawURLEncoding.EncodeToString(data)), nil
}

func decodeCursor(c db.Cursor) (map[string]types.AttributeValue, error) {
	if c == "" {
		return nil, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(string(c))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", db.ErrInvalidCursor, err)
	}
	var keys map[string]string
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("%w: %w", db.ErrInvalidCursor, err)
	}
	if len(keys) == 0 {
		return nil, db.ErrInvalidCursor
	}
	start, err := attributevalue.MarshalMap(keys)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", db.ErrInvalidCursor, err)
	}
	return start, nil
}
