package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/buildfast/internal/store"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{Unauthorized(), http.StatusUnauthorized},
		{Invalid("name", "too_small", "Project name is required"), http.StatusBadRequest},
		{NotFound("Project not found"), http.StatusNotFound},
		{RateLimited("slow down"), http.StatusTooManyRequests},
		{Internal(errors.New("boom")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.err.Kind), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Status())
		})
	}
}

func TestInternalHidesCause(t *testing.T) {
	cause := errors.New("sql: connection refused")
	err := Internal(cause)

	assert.Equal(t, "Internal server error", err.Message)
	assert.ErrorIs(t, err, cause)
}

func TestAsThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("loading section: %w", NotFound("Section not found"))

	ae, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, KindNotFound, ae.Kind)
	assert.True(t, IsKind(wrapped, KindNotFound))
	assert.False(t, IsKind(errors.New("plain"), KindNotFound))
}

func TestValidationUsesFirstIssueMessage(t *testing.T) {
	err := Validation(
		Issue{Code: "invalid_type", Path: []any{"name"}, Message: "Required"},
		Issue{Code: "invalid_string", Path: []any{"target_deadline"}, Message: "Invalid datetime"},
	)
	assert.Equal(t, "Required", err.Message)
	assert.Len(t, err.Issues, 2)
}

func TestFrom(t *testing.T) {
	missing := fmt.Errorf("getting project 4: %w", store.ErrNotFound)
	nf := From(missing, "Project not found")
	assert.Equal(t, KindNotFound, nf.Kind)
	assert.Equal(t, "Project not found", nf.Message)

	already := Invalid("title", "too_small", "Title is required")
	assert.Same(t, already, From(fmt.Errorf("wrapped: %w", already), "unused"))

	internal := From(errors.New("disk full"), "unused")
	assert.Equal(t, KindInternal, internal.Kind)
	assert.Equal(t, "Internal server error", internal.Message)
}
