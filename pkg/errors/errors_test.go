package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndIsType(t *testing.T) {
	err := New(ErrorTypeValidation, "bad value")
	assert.True(t, IsType(err, ErrorTypeValidation))
	assert.False(t, IsType(err, ErrorTypeConnection))
	assert.Equal(t, "validation: bad value", err.Error())
	assert.NotEmpty(t, err.Stack)
}

func TestWrapPreservesCauseChain(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(cause, ErrorTypePersistence, "insert failed")

	assert.True(t, IsType(err, ErrorTypePersistence))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "disk full")
}

func TestWrapNilIsNil(t *testing.T) {
	var err *Error = Wrap(nil, ErrorTypeInternal, "x")
	assert.Nil(t, err)
}

func TestWrapOurErrorKeepsOriginalStack(t *testing.T) {
	inner := New(ErrorTypeQuery, "bad filter")
	outer := Wrap(inner, ErrorTypeConnection, "extract failed")

	require.NotEmpty(t, outer.Stack)
	assert.Equal(t, inner.Stack, outer.Stack)
	// The outer type wins for classification.
	assert.True(t, IsType(outer, ErrorTypeConnection))
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, ErrorTypeCommit, TypeOf(New(ErrorTypeCommit, "x")))
	assert.Equal(t, ErrorTypeInternal, TypeOf(fmt.Errorf("plain")))
	// Wrapped foreign errors still classify through errors.As.
	wrapped := fmt.Errorf("outer: %w", New(ErrorTypeData, "x"))
	assert.Equal(t, ErrorTypeData, TypeOf(wrapped))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(New(ErrorTypeConnection, "x")))
	assert.True(t, IsFatal(New(ErrorTypeConfig, "x")))
	assert.True(t, IsFatal(New(ErrorTypeCommit, "x")))
	assert.True(t, IsFatal(New(ErrorTypeQuery, "x")))
	assert.True(t, IsFatal(New(ErrorTypeData, "x")))
	assert.True(t, IsFatal(fmt.Errorf("foreign errors are run-level")))
	assert.False(t, IsFatal(New(ErrorTypeValidation, "x")))
	assert.False(t, IsFatal(New(ErrorTypePersistence, "x")))
}

func TestWithDetail(t *testing.T) {
	err := New(ErrorTypeQuery, "bad filter").
		WithDetail("query", "brand=").
		WithDetail("source", "catalog")
	assert.Equal(t, "brand=", err.Details["query"])
	assert.Equal(t, "catalog", err.Details["source"])
}
