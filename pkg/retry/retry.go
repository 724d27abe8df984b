package retry

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// Config holds retry configuration
type Config struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	MaxJitter       time.Duration
	MaxTotalTimeout time.Duration
}

// DefaultConfig returns the policy used when connecting to infrastructure at startup.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     10,
		InitialDelay:    100 * time.Millisecond,
		MaxDelay:        10 * time.Second,
		BackoffFactor:   2.0,
		MaxTotalTimeout: 60 * time.Second, // 1 minute max
	}
}

// ReportGenerationPolicy bounds generative calls made while building insight reports:
// 5 attempts, 2s doubling backoff plus up to 1s of jitter.
func ReportGenerationPolicy() Config {
	return Config{
		MaxAttempts:   5,
		InitialDelay:  2 * time.Second,
		MaxDelay:      time.Minute,
		BackoffFactor: 2.0,
		MaxJitter:     time.Second,
	}
}

// EmbeddingPolicy bounds embedding calls: 3 attempts, backoff capped at 5s.
func EmbeddingPolicy() Config {
	return Config{
		MaxAttempts:   3,
		InitialDelay:  time.Second,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		MaxJitter:     time.Second,
	}
}

// Delay returns the wait before attempt+1 given the base delay for this attempt.
// The result never exceeds MaxDelay when MaxDelay is set.
func (c Config) Delay(base time.Duration) time.Duration {
	d := base
	if c.MaxJitter > 0 {
		d += rand.N(c.MaxJitter)
	}
	if c.MaxDelay > 0 && d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}

func (c Config) next(delay time.Duration) time.Duration {
	factor := c.BackoffFactor
	if factor <= 0 {
		factor = 1
	}
	delay = time.Duration(float64(delay) * factor)
	if c.MaxDelay > 0 && delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	return delay
}

// Do executes the given function with exponential backoff retry logic
func Do(ctx context.Context, cfg Config, fn func() error) error {
	return DoWithLog(ctx, cfg, "", fn, nil)
}

// DoWithLog executes the function with retry and reports each failed attempt to logFn
func DoWithLog(ctx context.Context, cfg Config, serviceName string, fn func() error, logFn func(attempt int, err error, nextDelay time.Duration)) error {
	if cfg.MaxTotalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.MaxTotalTimeout)
		defer cancel()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	prefix := ""
	if serviceName != "" {
		prefix = serviceName + ": "
	}

	var lastErr error
	base := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			if lastErr != nil {
				return fmt.Errorf("%sretry aborted after %d attempts: %w (last error: %v)", prefix, attempt-1, ctx.Err(), lastErr)
			}
			return fmt.Errorf("%sretry aborted: %w", prefix, ctx.Err())
		default:
		}

		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if attempt == cfg.MaxAttempts {
			return fmt.Errorf("%smax retry attempts (%d) exceeded: %w", prefix, cfg.MaxAttempts, lastErr)
		}

		wait := cfg.Delay(base)
		if logFn != nil {
			logFn(attempt, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%sretry aborted after %d attempts: %w (last error: %v)", prefix, attempt, ctx.Err(), lastErr)
		case <-timer.C:
		}

		base = cfg.next(base)
	}

	return fmt.Errorf("%smax retry attempts exceeded: %w", prefix, lastErr)
}
