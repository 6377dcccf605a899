package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	etlerrors "github.com/kbukum/etlkit/errors"
)

func fastRetry() RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 2 * time.Millisecond
	return cfg
}

func TestRetry_SucceedsAfterRetry(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), fastRetry(), func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestRetry_ExceedsMaxAttempts(t *testing.T) {
	calls := 0
	want := errors.New("always")
	err := RetryFunc(context.Background(), fastRetry(), func() error {
		calls++
		return want
	})
	assert.ErrorIs(t, err, want)
	assert.Equal(t, 3, calls)
}

func TestRetry_RespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := RetryFunc(ctx, fastRetry(), func() error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestWriteRetryConfig_OnlyRetryable(t *testing.T) {
	cfg := WriteRetryConfig()
	cfg.InitialBackoff = time.Millisecond

	calls := 0
	err := RetryFunc(context.Background(), cfg, func() error {
		calls++
		return etlerrors.WriteFailed("create", errors.New("constraint"))
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "non-retryable write errors must not be retried")

	calls = 0
	err = RetryFunc(context.Background(), cfg, func() error {
		calls++
		if calls == 1 {
			return etlerrors.ConnectorFailed("d_db", errors.New("reset"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetry_OnRetryCallback(t *testing.T) {
	cfg := fastRetry()
	var attempts []int
	cfg.OnRetry = func(attempt int, _ error, _ time.Duration) { attempts = append(attempts, attempt) }
	_ = RetryFunc(context.Background(), cfg, func() error { return errors.New("x") })
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestCalculateBackoff(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: 10 * time.Millisecond, MaxBackoff: 50 * time.Millisecond, BackoffFactor: 2}
	assert.Equal(t, 10*time.Millisecond, calculateBackoff(1, cfg))
	assert.Equal(t, 20*time.Millisecond, calculateBackoff(2, cfg))
	assert.Equal(t, 50*time.Millisecond, calculateBackoff(5, cfg))
}
