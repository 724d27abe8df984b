package tasks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunner(workers int, hook func(TaskError)) *Runner {
	return NewRunner(workers, WithLogger(zerolog.Nop()), WithErrorHook(hook))
}

func TestRunner_GoDoesNotBlockCaller(t *testing.T) {
	r := newTestRunner(1, nil)
	release := make(chan struct{})

	start := time.Now()
	require.NoError(t, r.Go("slow", func(ctx context.Context) error {
		<-release
		return nil
	}))
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	close(release)
	require.NoError(t, r.Shutdown(context.Background()))
}

func TestRunner_ErrorsAndPanicsReachHook(t *testing.T) {
	var mu sync.Mutex
	var got []TaskError
	r := newTestRunner(2, func(te TaskError) {
		mu.Lock()
		got = append(got, te)
		mu.Unlock()
	})

	require.NoError(t, r.Go("fails", func(ctx context.Context) error { return errors.New("boom") }))
	require.NoError(t, r.Go("panics", func(ctx context.Context) error { panic("kaboom") }))
	require.NoError(t, r.Go("ok", func(ctx context.Context) error { return nil }))

	require.NoError(t, r.Shutdown(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	names := []string{got[0].Name, got[1].Name}
	assert.ElementsMatch(t, []string{"fails", "panics"}, names)
	for _, te := range got {
		if te.Name == "panics" {
			assert.Contains(t, te.Err.Error(), "kaboom")
		}
	}
}

func TestRunner_BoundsConcurrency(t *testing.T) {
	r := newTestRunner(2, nil)
	var running, peak int32

	for i := 0; i < 8; i++ {
		require.NoError(t, r.Go("work", func(ctx context.Context) error {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return nil
		}))
	}

	require.NoError(t, r.Shutdown(context.Background()))
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestRunner_RejectsAfterShutdown(t *testing.T) {
	r := newTestRunner(1, nil)
	require.NoError(t, r.Shutdown(context.Background()))

	err := r.Go("late", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrRunnerClosed)
}

func TestRunner_ShutdownCancelsOnDeadline(t *testing.T) {
	r := newTestRunner(1, nil)
	require.NoError(t, r.Go("blocked", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := r.Shutdown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
