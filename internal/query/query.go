package query

import (
	"context"
	"fmt"
	"time"
)

// Request carries one validated read-only statement to an executor. RowLimit
// caps the returned rows; zero means the executor default applies.
type Request struct {
	SQL      string
	RowLimit int
}

type Result struct {
	Columns  []string
	Rows     [][]any
	RowCount int
	Duration time.Duration
}

// Executor runs a single already-validated statement. Implementations must
// never be handed anything that did not pass the validator; they may still
// reject non-SELECT text as defense in depth.
type Executor interface {
	Execute(ctx context.Context, request Request) (Result, error)
}

// ExecutionError wraps a collaborator failure so callers can distinguish it
// from upstream (completion) failures.
type ExecutionError struct {
	Cause error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("query execution failed: %v", e.Cause)
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}
