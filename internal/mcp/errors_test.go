package mcp

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nmerrors "github.com/Aman-CERP/nearmatch/internal/errors"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"invalid text", nmerrors.InvalidTextError("a1", 1), ErrCodeInvalidParams},
		{"invalid input", nmerrors.ValidationError("missing text", nil), ErrCodeInvalidParams},
		{"wrapped invalid text", fmt.Errorf("analyze: %w", nmerrors.InvalidTextError("", -1)), ErrCodeInvalidParams},
		{"not ready", nmerrors.New(nmerrors.ErrCodeNotReady, "warming up", nil), ErrCodeNotReady},
		{"storage", nmerrors.StorageError(nmerrors.ErrCodeStoreWrite, "disk full", nil), ErrCodeStorage},
		{"internal", nmerrors.InternalError("boom", nil), ErrCodeInternalError},
		{"deadline", context.DeadlineExceeded, ErrCodeTimeout},
		{"canceled", fmt.Errorf("wrap: %w", context.Canceled), ErrCodeTimeout},
		{"tool not found", ErrToolNotFound, ErrCodeMethodNotFound},
		{"unknown", fmt.Errorf("something"), ErrCodeInternalError},
		{"already mapped", NewInvalidParamsError("bad"), ErrCodeInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)

			require.NotNil(t, got)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.NotEmpty(t, got.Message)
		})
	}

	assert.Nil(t, MapError(nil))
}

func TestMapError_IncludesSuggestion(t *testing.T) {
	got := MapError(nmerrors.InvalidTextError("a1", 1))

	assert.Contains(t, got.Message, "non-letter")
	assert.Contains(t, got.Message, "Only the letters a-z and A-Z are accepted")
}

func TestMCPError_Error(t *testing.T) {
	err := NewMethodNotFoundError("search")

	assert.Equal(t, "MCP error -32601: Tool 'search' not found.", err.Error())
}
