package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound is returned by storage lookups when no row matches.
var ErrNotFound = errors.New("not found")

// ErrorCode identifies a failure mode.
type ErrorCode string

const (
	// ErrCodeMalformedRange indicates run range text that cannot be parsed.
	ErrCodeMalformedRange ErrorCode = "MALFORMED_RANGE"

	// ErrCodeSourceUnreadable indicates the ingest text could not be obtained.
	ErrCodeSourceUnreadable ErrorCode = "SOURCE_UNREADABLE"

	// ErrCodeUnknownTypeTable indicates the table path does not name a type table.
	ErrCodeUnknownTypeTable ErrorCode = "UNKNOWN_TYPE_TABLE"

	// ErrCodeInvalidPath indicates a table path that is empty or not absolute.
	ErrCodeInvalidPath ErrorCode = "INVALID_PATH"

	// ErrCodeInconsistentColumns indicates rows with differing cell counts.
	ErrCodeInconsistentColumns ErrorCode = "INCONSISTENT_COLUMNS"

	// ErrCodeSchemaMismatch indicates a row width that differs from the table's column count.
	ErrCodeSchemaMismatch ErrorCode = "SCHEMA_MISMATCH"

	// ErrCodeCellType indicates a cell that does not parse as its column's declared type.
	ErrCodeCellType ErrorCode = "CELL_TYPE"

	// ErrCodeCyclicVariation indicates a parent assignment that would close a cycle.
	ErrCodeCyclicVariation ErrorCode = "CYCLIC_VARIATION"

	// ErrCodeBackend indicates a storage failure; the backend's error is wrapped verbatim.
	ErrCodeBackend ErrorCode = "BACKEND"

	// ErrCodeNoApplicableAssignment indicates no assignment covers the query.
	ErrCodeNoApplicableAssignment ErrorCode = "NO_APPLICABLE_ASSIGNMENT"
)

// Category groups error codes by how callers should react.
type Category string

const (
	CategoryParse      Category = "parse"
	CategoryValidation Category = "validation"
	CategoryBackend    Category = "backend"
	CategoryResolution Category = "resolution"
)

// Error is the single error type surfaced by ccdb operations.
//
// Parse and validation errors are fatal to one call and are always raised
// before storage is touched. Backend errors wrap whatever the store reported.
// Resolution errors are a normal "no data" outcome, not a fault.
type Error struct {
	// Code identifies the failure mode.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Details carries the context needed to fix the input (token, line, table...).
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%s", k, e.Details[k])
		}
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Category maps the code to its error category.
func (e *Error) Category() Category {
	switch e.Code {
	case ErrCodeMalformedRange, ErrCodeSourceUnreadable:
		return CategoryParse
	case ErrCodeBackend:
		return CategoryBackend
	case ErrCodeNoApplicableAssignment:
		return CategoryResolution
	default:
		return CategoryValidation
	}
}

// HasCode reports whether err (or anything it wraps) is an *Error with code.
func HasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CategoryOf returns the category of err, or "" if err is not an *Error.
func CategoryOf(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.Category()
	}
	return ""
}

// IsNoApplicable reports whether err means "no assignment covers this query".
func IsNoApplicable(err error) bool {
	return HasCode(err, ErrCodeNoApplicableAssignment)
}

// NewMalformedRangeError reports unparseable run range text.
func NewMalformedRangeError(text, reason string) *Error {
	return &Error{
		Code:    ErrCodeMalformedRange,
		Message: "run range should be in form of min-max, min- or -max: " + reason,
		Details: map[string]string{"range": text},
	}
}

// NewSourceUnreadableError reports ingest text that could not be read.
func NewSourceUnreadableError(source string, err error) *Error {
	return &Error{
		Code:    ErrCodeSourceUnreadable,
		Message: "unable to read source",
		Details: map[string]string{"source": source},
		Err:     err,
	}
}

// NewUnknownTypeTableError reports a table path with no type table behind it.
func NewUnknownTypeTableError(path string) *Error {
	return &Error{
		Code:    ErrCodeUnknownTypeTable,
		Message: "type table not found",
		Details: map[string]string{"table": path},
	}
}

// NewInvalidPathError reports a malformed table path.
func NewInvalidPathError(path, reason string) *Error {
	return &Error{
		Code:    ErrCodeInvalidPath,
		Message: reason,
		Details: map[string]string{"path": path},
	}
}

// NewCyclicVariationError reports a parent link that would close a cycle.
func NewCyclicVariationError(name, parent string) *Error {
	return &Error{
		Code:    ErrCodeCyclicVariation,
		Message: "parent assignment would create a variation cycle",
		Details: map[string]string{"variation": name, "parent": parent},
	}
}

// NewBackendError wraps a storage failure without rewording it.
func NewBackendError(op string, err error) *Error {
	return &Error{
		Code:    ErrCodeBackend,
		Message: op,
		Err:     err,
	}
}

// NewNoApplicableError reports that no assignment covers (table, run, variation).
func NewNoApplicableError(path string, run int64, variation string) *Error {
	return &Error{
		Code:    ErrCodeNoApplicableAssignment,
		Message: "no assignment covers the requested run",
		Details: map[string]string{
			"table":     path,
			"run":       fmt.Sprintf("%d", run),
			"variation": variation,
		},
	}
}
