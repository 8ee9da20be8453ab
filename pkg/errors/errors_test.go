package errors

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "basic error",
			err:      New(ErrCodeConnectionFailed, "Connection failed"),
			expected: "[MART4001] ERROR: Connection failed",
		},
		{
			name: "error with suggestions",
			err: New(ErrCodeConnectionFailed, "Connection failed").
				WithSuggestions("Check network", "Verify credentials"),
			expected: "[MART4001] ERROR: Connection failed\nSuggestions:\n  1. Check network\n  2. Verify credentials",
		},
		{
			name: "error with context is rendered in key order",
			err: New(ErrCodeConnectionFailed, "Connection failed").
				WithContext("port", 443).
				WithContext("host", "example.com"),
			expected: "[MART4001] ERROR: Connection failed (host=example.com, port=443)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestErrorWrapping(t *testing.T) {
	baseErr := fmt.Errorf("strconv.Atoi: parsing \"two\": invalid syntax")

	appErr := CastError("stg_orders", "quantity", "1007", "two", baseErr)

	assert.Equal(t, baseErr, appErr.Cause)
	assert.Equal(t, ErrCodeCastFailed, appErr.Code)
	assert.Equal(t, SeverityCritical, appErr.Severity)
	assert.Equal(t, "1007", appErr.Context["record"])
	assert.Contains(t, appErr.Error(), "stg_orders.quantity")

	outer := Wrap(appErr, ErrCodeInternal, "pipeline failed")
	assert.True(t, IsCode(outer, ErrCodeCastFailed))
	assert.Equal(t, "quantity", outer.Context["column"])
	assert.Equal(t, ErrCodeInternal, GetErrorCode(outer))
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "nothing"))
}

func TestGetErrorCodeForPlainErrors(t *testing.T) {
	assert.Equal(t, ErrCodeInternal, GetErrorCode(fmt.Errorf("plain")))
	assert.False(t, IsRecoverable(fmt.Errorf("plain")))
	assert.True(t, IsRecoverable(New(ErrCodeTimeout, "slow").AsRecoverable()))
}

func TestRetryLogic(t *testing.T) {
	attempts := 0
	maxAttempts := 3
	var notified []int

	config := &RetryConfig{
		MaxRetries:   maxAttempts - 1,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		Multiplier:   2.0,
		RetryableError: func(err error) bool {
			return true
		},
		OnRetry: func(attempt int, _ time.Duration, _ error) {
			notified = append(notified, attempt)
		},
	}

	err := Retry(context.Background(), config, func(ctx context.Context) error {
		attempts++
		if attempts < maxAttempts {
			return New(ErrCodeTimeout, "Timeout").AsRecoverable()
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, maxAttempts, attempts)
	assert.Equal(t, []int{1, 2}, notified)
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	attempts := 0
	cfg := DefaultRetryConfig()
	cfg.InitialDelay = time.Millisecond

	err := Retry(context.Background(), cfg, func(ctx context.Context) error {
		attempts++
		return New(ErrCodeAuthenticationFailed, "bad password")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, ErrCodeAuthenticationFailed, GetErrorCode(err))
}

func TestRetryExhausted(t *testing.T) {
	cfg := &RetryConfig{
		MaxRetries:     1,
		InitialDelay:   time.Millisecond,
		MaxDelay:       time.Millisecond,
		Multiplier:     1,
		RetryableError: func(error) bool { return true },
	}

	err := Retry(context.Background(), cfg, func(ctx context.Context) error {
		return fmt.Errorf("still down")
	})

	assert.Equal(t, ErrCodeMaxRetriesExceeded, GetErrorCode(err))
}

func TestRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := &RetryConfig{
		MaxRetries:     5,
		InitialDelay:   time.Second,
		MaxDelay:       time.Second,
		Multiplier:     1,
		RetryableError: func(error) bool { return true },
	}

	err := Retry(ctx, cfg, func(ctx context.Context) error {
		return fmt.Errorf("down")
	})
	assert.Equal(t, ErrCodeCanceled, GetErrorCode(err))
}

func TestCalculateDelayCapsAtMax(t *testing.T) {
	cfg := &RetryConfig{InitialDelay: time.Second, MaxDelay: 3 * time.Second, Multiplier: 2}
	assert.Equal(t, time.Second, calculateDelay(0, cfg))
	assert.Equal(t, 2*time.Second, calculateDelay(1, cfg))
	assert.Equal(t, 3*time.Second, calculateDelay(5, cfg))
}
