package tasks

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSkipRow is the sentinel a row handler returns to drop the current
// row silently: no fault-log entry, no output.
var ErrSkipRow = errors.New("skip row")

// RowError is a soft per-row fault a handler returns to flag specific
// fields without stopping the run.
type RowError struct {
	Fields  []string
	Comment string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row fault on [%s]: %s", strings.Join(e.Fields, ", "), e.Comment)
}

// NewRowError flags the named fields with an explanatory comment
func NewRowError(comment string, fields ...string) *RowError {
	return &RowError{Fields: fields, Comment: comment}
}
