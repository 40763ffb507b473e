package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound   = errors.New("db: key not found")
	ErrInvalidCursor = errors.New("db: invalid cursor")
	ErrTableNotFound = errors.New("db: table not found")
)

// Op constants name the failing store call for error context.
const (
	OpQuery         = "Query"
	OpScan          = "Scan"
	OpPutItem       = "PutItem"
	OpDescribeTable = "DescribeTable"
	OpCreateTable   = "CreateTable"
	OpDecode        = "Decode"
	OpPing          = "PING"
	OpGet           = "GET"
	OpSet           = "SET"
	OpIncrBy        = "INCRBY"
	OpExpire        = "EXPIRE"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
