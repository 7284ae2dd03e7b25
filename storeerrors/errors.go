// Package storeerrors is the store's error taxonomy: which failures
// propagate to the caller unchanged, which are fatal programmer-error
// assertions, and which are recovered per-row into storage.
package storeerrors

import (
	"fmt"
	"reflect"

	"github.com/pingcap/errors"
)

// TypeName is the taxonomy's notion of "runtime class name": the bare type
// name of an error value, stripped of its package qualifier and any pointer
// indirection. It is the string stored in a computed column's errortype
// field.
func TypeName(err error) string {
	if err == nil {
		return ""
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if name := t.Name(); name != "" {
		return name
	}
	return t.String()
}

// StorageError wraps a backend DDL/DML failure. It propagates to the
// caller unchanged; the caller is expected to roll back the surrounding
// transaction. The wrapped error carries a stack trace captured at the
// point of failure (via pingcap/errors), since by the time a caller logs
// this it is usually several frames removed from the failing Exec/Query.
type StorageError struct {
	Op  string
	Err error
}

func NewStorageError(op string, err error) *StorageError {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: errors.Trace(err)}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Stack renders the captured stack trace for diagnostics, when available.
func (e *StorageError) Stack() string {
	return errors.ErrorStack(e.Err)
}

// InvariantViolation signals an internal assertion failure — e.g. a pk
// tuple whose length doesn't match pk_columns, or an embedding slot that
// unexpectedly carries an exception. It is fatal: callers should let it
// propagate (typically via panic, recovered only at the top of a
// worker-pool goroutine, never inside the store itself).
type InvariantViolation struct {
	Msg string
}

func (e *InvariantViolation) Error() string { return "invariant violation: " + e.Msg }

// Raise panics with an InvariantViolation carrying msg. It exists so call
// sites read as an assertion rather than a manual panic() call.
func Raise(format string, args ...any) {
	panic(&InvariantViolation{Msg: fmt.Sprintf(format, args...)})
}

// RowComputeError is a per-row failure in a computed column. It is captured
// into the column's error storage and counted; it never aborts the
// surrounding insert or load.
type RowComputeError struct {
	ColumnID int32
	Err      error
}

func (e *RowComputeError) Error() string {
	return fmt.Sprintf("column %d: %v", e.ColumnID, e.Err)
}

func (e *RowComputeError) Unwrap() error { return e.Err }

// TypeName is the errortype string recorded for this failure.
func (e *RowComputeError) TypeName() string {
	return TypeName(e.Err)
}

// SchemaEvolutionError signals that AddColumn/DropColumn was attempted
// against a relation whose descriptor disagrees with the backend (e.g. a
// storage-name collision). It propagates.
type SchemaEvolutionError struct {
	Table string
	Err   error
}

func (e *SchemaEvolutionError) Error() string {
	return fmt.Sprintf("schema evolution error on %s: %v", e.Table, e.Err)
}

func (e *SchemaEvolutionError) Unwrap() error { return e.Err }

const truncationMarker = "...[truncated]"

// TruncateMessage bounds an error message to maxBytes (marker included),
// appending a marker when truncation occurs so a reader can tell the message
// is incomplete. When maxBytes is smaller than the marker itself, the result
// is the marker alone and so exceeds maxBytes.
func TruncateMessage(msg string, maxBytes int) string {
	if maxBytes <= 0 || len(msg) <= maxBytes {
		return msg
	}
	cut := maxBytes - len(truncationMarker)
	if cut < 0 {
		cut = 0
	}
	return msg[:cut] + truncationMarker
}
