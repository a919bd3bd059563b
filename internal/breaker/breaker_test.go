package breaker

import (
	"fmt"
	"testing"
	"time"

	"cvstudio/internal/config"
	"cvstudio/internal/errors"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.CircuitBreakerConfig {
	return config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		MinRequests:      2,
		FailureThreshold: 0.5,
	}
}

func TestBreakerDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	b := New[string]("render", cfg, nil)
	if b != nil {
		t.Fatalf("Expected nil breaker when disabled")
	}

	result, err := b.Execute(func() (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.True(t, b.IsHealthy())
	assert.Equal(t, false, b.Stats()["enabled"])
}

func TestBreakerTrips(t *testing.T) {
	b := New[int]("render", testConfig(), errors.NewNopLogger())
	require.NotNil(t, b)

	failing := func() (int, error) { return 0, fmt.Errorf("upstream down") }
	_, _ = b.Execute(failing)
	assert.True(t, b.IsHealthy())
	_, _ = b.Execute(failing)
	assert.False(t, b.IsHealthy())

	_, err := b.Execute(func() (int, error) { return 1, nil })
	require.Error(t, err)
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeCircuitOpen, appErr.Code)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)

	stats := b.Stats()
	assert.Equal(t, "render", stats["name"])
	assert.Equal(t, "open", stats["state"])
}

func TestBreakerSuccessCheck(t *testing.T) {
	clientErr := fmt.Errorf("422 unprocessable")
	b := New[int]("render", testConfig(), nil, WithSuccessCheck(func(err error) bool {
		return err == nil || err == clientErr
	}))

	for i := 0; i < 5; i++ {
		_, err := b.Execute(func() (int, error) { return 0, clientErr })
		assert.Equal(t, clientErr, err)
	}
	assert.True(t, b.IsHealthy())
}
