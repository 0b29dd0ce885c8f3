package db

import "errors"

// Sentinel errors for index and store operations.
var (
	ErrKeyNotFound       = errors.New("db: key not found")
	ErrDocumentNotFound  = errors.New("db: document not found")
	ErrIndexNotFound     = errors.New("db: index not found")
	ErrIndexExists       = errors.New("db: index already exists")
	ErrDimensionMismatch = errors.New("db: vector dimension mismatch")
	ErrUnsupportedQuery  = errors.New("db: unsupported query clause")
)

// Op constants name backend operations for error context.
const (
	OpCreateIndex = "indices.create"
	OpIndexExists = "indices.exists"
	OpIndex       = "index"
	OpGetDoc      = "get"
	OpSearch      = "search"
	OpPing        = "ping"
	OpGet         = "GET"
	OpSet         = "SET"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
