package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "without cause",
			err:      NewValidationError(ErrCodeUnknownSection, "unknown section", nil),
			expected: "UNKNOWN_SECTION: unknown section",
		},
		{
			name:     "with cause",
			err:      NewRenderError(ErrCodeRenderFailed, "preview failed", fmt.Errorf("boom")),
			expected: "RENDER_FAILED: preview failed (caused by: boom)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestAsAppError_Wrapped(t *testing.T) {
	inner := NewValidationError(ErrCodeSchemaViolation, "bad document", nil).WithContext("field", "email")
	wrapped := fmt.Errorf("loading: %w", inner)

	appErr, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, "email", appErr.ContextString("field"))
	assert.Equal(t, "", appErr.ContextString("missing"))
	assert.True(t, IsType(wrapped, ErrorTypeValidation))
	assert.False(t, IsType(wrapped, ErrorTypeNetwork))
	assert.False(t, IsType(fmt.Errorf("plain"), ErrorTypeValidation))
}

func TestLogger_LogErrorExpandsAppError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, slog.LevelDebug)

	err := NewNetworkError(ErrCodeNetworkTimeout, "renderer unreachable", fmt.Errorf("dial tcp")).
		WithContext("endpoint", "/api/preview")
	logger.LogError(err, "Preview failed", "seq", 3)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "Preview failed", record["msg"])
	assert.Equal(t, "network", record["error_type"])
	assert.Equal(t, ErrCodeNetworkTimeout, record["error_code"])
	assert.Equal(t, "/api/preview", record["endpoint"])
	assert.Equal(t, "dial tcp", record["cause"])
	assert.EqualValues(t, 3, record["seq"])
}

func TestNew_Levels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		logger, err := New(level)
		require.NoError(t, err, level)
		require.NotNil(t, logger)
	}

	_, err := New("verbose")
	assert.Error(t, err)
}
