// Package errors provides structured error handling for partsync
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeInternal represents internal system errors
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeConnection represents source connection errors (unreachable
	// host, authentication failure, missing file); fatal to a sync run
	ErrorTypeConnection ErrorType = "connection"
	// ErrorTypeConfig represents invalid connector configuration or a
	// missing field mapping; raised before any I/O is attempted
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeValidation represents per-record mapping/validation errors;
	// the record is skipped, the run continues
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypePersistence represents per-record persistence errors
	// (constraint violation, unresolvable reference); the record is
	// dropped, the run continues
	ErrorTypePersistence ErrorType = "persistence"
	// ErrorTypeCommit represents a transaction-level failure during the
	// final commit of an import batch; fatal to that batch only
	ErrorTypeCommit ErrorType = "commit"
	// ErrorTypeQuery represents query execution errors
	ErrorTypeQuery ErrorType = "query"
	// ErrorTypeData represents data processing errors
	ErrorTypeData ErrorType = "data"
)

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error with the given type and message
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates a new error with a formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsType checks if the error is of the given type
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// TypeOf returns the error type, or ErrorTypeInternal for foreign errors
func TypeOf(err error) ErrorType {
	var e *Error
	if !errors.As(err, &e) {
		return ErrorTypeInternal
	}
	return e.Type
}

// IsFatal returns true for run-level errors that must drive a sync run
// to FAILED. Validation and persistence errors are record-scoped: they are
// accumulated into result structures and never abort a run.
func IsFatal(err error) bool {
	switch TypeOf(err) {
	case ErrorTypeValidation, ErrorTypePersistence:
		return false
	default:
		return true
	}
}

// captureStack captures the current call stack
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
