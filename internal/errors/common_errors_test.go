package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorType_Constants(t *testing.T) {
	tests := []struct {
		name     string
		errType  ErrorType
		expected string
	}{
		{
			name:     "network error type",
			errType:  ErrTypeNetwork,
			expected: "NETWORK",
		},
		{
			name:     "parsing error type",
			errType:  ErrTypeParsing,
			expected: "PARSING",
		},
		{
			name:     "config error type",
			errType:  ErrTypeConfig,
			expected: "CONFIG",
		},
		{
			name:     "storage error type",
			errType:  ErrTypeStorage,
			expected: "STORAGE",
		},
		{
			name:     "validation error type",
			errType:  ErrTypeValidation,
			expected: "VALIDATION",
		},
		{
			name:     "not found error type",
			errType:  ErrTypeNotFound,
			expected: "NOT_FOUND",
		},
		{
			name:     "no data error type",
			errType:  ErrTypeNoData,
			expected: "NO_DATA",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.errType))
		})
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "message only",
			err:      NewAppError(ErrTypeNetwork, "connection refused", nil),
			expected: "[NETWORK] connection refused",
		},
		{
			name:     "message with cause",
			err:      NewAppError(ErrTypeParsing, "bad payload", fmt.Errorf("unexpected EOF")),
			expected: "[PARSING] bad payload: unexpected EOF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := NewStorageError("write failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestAppError_WithContext(t *testing.T) {
	err := NewNetworkError("fetch failed", nil).
		WithContext("series_id", "UNRATE").
		WithContext("attempt", 3)

	require.NotNil(t, err.Context)
	assert.Equal(t, "UNRATE", err.Context["series_id"])
	assert.Equal(t, 3, err.Context["attempt"])
}

func TestIsType(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		errType ErrorType
		want    bool
	}{
		{
			name:    "matching type",
			err:     NewNoDataError("nothing to write"),
			errType: ErrTypeNoData,
			want:    true,
		},
		{
			name:    "mismatched type",
			err:     NewNetworkError("timeout", nil),
			errType: ErrTypeNoData,
			want:    false,
		},
		{
			name:    "wrapped app error",
			err:     fmt.Errorf("run failed: %w", NewConfigError("bad config", nil)),
			errType: ErrTypeConfig,
			want:    true,
		},
		{
			name:    "plain error",
			err:     fmt.Errorf("plain"),
			errType: ErrTypeNetwork,
			want:    false,
		},
		{
			name:    "nil error",
			err:     nil,
			errType: ErrTypeNetwork,
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsType(tt.err, tt.errType))
		})
	}
}

func TestConstructors(t *testing.T) {
	assert.Equal(t, ErrTypeNetwork, NewNetworkError("x", nil).Type)
	assert.Equal(t, ErrTypeParsing, NewParsingError("x", nil).Type)
	assert.Equal(t, ErrTypeConfig, NewConfigError("x", nil).Type)
	assert.Equal(t, ErrTypeStorage, NewStorageError("x", nil).Type)
	assert.Equal(t, ErrTypeValidation, NewValidationError("x").Type)
	assert.Equal(t, ErrTypeNoData, NewNoDataError("x").Type)

	notFound := NewNotFoundError("series UNRATE")
	assert.Equal(t, ErrTypeNotFound, notFound.Type)
	assert.Contains(t, notFound.Message, "not found")
}
