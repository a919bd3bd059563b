package retry

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = fmt.Errorf("transient")

func fastPolicy(maxRetries int) Policy {
	return Policy{
		MaxRetries: maxRetries,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
		Retryable:  func(err error) bool { return err == errTransient },
	}
}

func TestDo_SucceedsAfterRetry(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), fastPolicy(3), "test", func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errTransient
		}
		return "done", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "done", result)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnNonRetryable(t *testing.T) {
	permanent := fmt.Errorf("bad request")
	calls := 0
	_, err := Do(context.Background(), fastPolicy(3), "test", func(context.Context) (int, error) {
		calls++
		return 0, permanent
	})

	assert.Equal(t, permanent, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustsRetries(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(2), "test", func(context.Context) (int, error) {
		calls++
		return 0, errTransient
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, calls)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := fastPolicy(5)
	policy.BaseDelay = time.Hour
	policy.MaxDelay = time.Hour

	_, err := Do(ctx, policy, "test", func(context.Context) (int, error) {
		cancel()
		return 0, errTransient
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		min     time.Duration
		max     time.Duration
	}{
		{attempt: 1, min: time.Second, max: 1100 * time.Millisecond},
		{attempt: 2, min: 2 * time.Second, max: 2200 * time.Millisecond},
		{attempt: 3, min: 4 * time.Second, max: 4400 * time.Millisecond},
		{attempt: 10, min: 30 * time.Second, max: 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt %d", tt.attempt), func(t *testing.T) {
			got := Backoff(tt.attempt, 0, 0)
			if got < tt.min || got > tt.max {
				t.Errorf("Expected backoff in [%s, %s], got %s", tt.min, tt.max, got)
			}
		})
	}
}

func TestIsNetworkError(t *testing.T) {
	assert.True(t, IsNetworkError(&net.OpError{Op: "dial", Err: fmt.Errorf("refused")}))
	assert.True(t, IsNetworkError(fmt.Errorf("wrapped: %w", &net.DNSError{Err: "no such host"})))
	assert.False(t, IsNetworkError(fmt.Errorf("plain")))
}
