package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		category ErrorCategory
		status   int
	}{
		{"not found", NewNotFoundError("student", "s1"), CategoryNotFound, http.StatusNotFound},
		{"invalid argument", NewInvalidArgumentError("type", "unknown intervention type"), CategoryInvalidArgument, http.StatusBadRequest},
		{"computation", NewComputationError("s1", "academic", "non-finite value", nil), CategoryComputation, http.StatusUnprocessableEntity},
		{"conflict", NewConflictError("intervention", "rec-1", "already completed"), CategoryConflict, http.StatusConflict},
		{"internal", NewInternalError("boom", nil), CategoryInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.category, tt.err.Category)
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestPredicates(t *testing.T) {
	assert.True(t, IsNotFound(NewNotFoundError("student", "s1")))
	assert.True(t, IsInvalidArgument(NewInvalidArgumentError("field", "bad")))
	assert.True(t, IsComputation(NewComputationError("s1", "academic", "bad", nil)))
	assert.True(t, IsConflict(NewConflictError("intervention", "r1", "terminal")))

	assert.False(t, IsNotFound(NewConflictError("intervention", "r1", "terminal")))
	assert.False(t, IsConflict(stderrors.New("plain")))
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	inner := NewNotFoundError("readiness profile", "s1")
	wrapped := fmt.Errorf("reading baseline: %w", inner)

	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsConflict(wrapped))
}

func TestWrapErrorPreservesCategory(t *testing.T) {
	inner := NewComputationError("s1", "attendance", "out of range", nil)
	wrapped := WrapError(inner, "recompute for subject %s", "s1")

	require.Error(t, wrapped)
	assert.True(t, IsComputation(wrapped))
	assert.Contains(t, wrapped.Error(), "recompute for subject s1")

	assert.Nil(t, WrapError(nil, "ignored"))
}

func TestToAppError(t *testing.T) {
	original := NewNotFoundError("student", "s1")
	assert.Same(t, original, ToAppError(original))

	wrapped := fmt.Errorf("context: %w", original)
	assert.Same(t, original, ToAppError(wrapped))

	plain := ToAppError(stderrors.New("boom"))
	require.NotNil(t, plain)
	assert.Equal(t, CategoryInternal, plain.Category)
	assert.Equal(t, http.StatusInternalServerError, plain.HTTPStatus)

	assert.Nil(t, ToAppError(nil))
}

func TestComputationErrorCarriesCause(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := NewComputationError("s1", "academic", "failed to fetch term scores", cause)

	assert.ErrorIs(t, err, cause)
}
