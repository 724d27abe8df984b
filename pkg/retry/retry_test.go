package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts:   attempts,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2,
		MaxJitter:     time.Millisecond,
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(5), func() error {
		calls++
		if calls < 3 {
			return errors.New("temporary")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsAtMaxAttempts(t *testing.T) {
	calls := 0
	sentinel := errors.New("quota exceeded")
	err := Do(context.Background(), fastConfig(3), func() error {
		calls++
		return sentinel
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, sentinel)
	assert.Contains(t, err.Error(), "max retry attempts (3) exceeded")
}

func TestDo_AbortsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, fastConfig(3), func() error {
		calls++
		return nil
	})

	require.Error(t, err)
	assert.Equal(t, 0, calls)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoWithLog_ReportsEachRetry(t *testing.T) {
	var attempts []int
	_ = DoWithLog(context.Background(), fastConfig(4), "embedding", func() error {
		return errors.New("boom")
	}, func(attempt int, err error, nextDelay time.Duration) {
		attempts = append(attempts, attempt)
		assert.LessOrEqual(t, nextDelay, 5*time.Millisecond)
	})

	assert.Equal(t, []int{1, 2, 3}, attempts)
}

func TestDelay_JitterBoundedAndCapped(t *testing.T) {
	cfg := Config{MaxJitter: time.Second, MaxDelay: 5 * time.Second}
	for i := 0; i < 50; i++ {
		d := cfg.Delay(2 * time.Second)
		assert.GreaterOrEqual(t, d, 2*time.Second)
		assert.Less(t, d, 3*time.Second)
	}

	for i := 0; i < 50; i++ {
		assert.Equal(t, 5*time.Second, cfg.Delay(8*time.Second))
	}
}

func TestPresets(t *testing.T) {
	report := ReportGenerationPolicy()
	assert.Equal(t, 5, report.MaxAttempts)
	assert.Equal(t, 2*time.Second, report.InitialDelay)
	assert.Equal(t, time.Second, report.MaxJitter)

	embed := EmbeddingPolicy()
	assert.Equal(t, 3, embed.MaxAttempts)
	assert.Equal(t, 5*time.Second, embed.MaxDelay)
}
