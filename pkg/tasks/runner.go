package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrRunnerClosed is returned by Go once Shutdown has been called.
var ErrRunnerClosed = errors.New("task runner is shut down")

// TaskError is delivered on the runner's error channel when a task fails or panics.
type TaskError struct {
	Name string
	Err  error
}

func (e TaskError) Error() string {
	return fmt.Sprintf("task %s: %v", e.Name, e.Err)
}

// Runner executes detached background work on a bounded pool. Callers never wait on
// the tasks they submit; failures surface only on the error channel, which is drained
// by a logging goroutine unless an OnError hook replaces it.
type Runner struct {
	ctx    context.Context
	cancel context.CancelFunc
	slots  chan struct{}
	errs   chan TaskError
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	logger  zerolog.Logger
	onError func(TaskError)
	drained chan struct{}
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger overrides the logger used for task failures.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithErrorHook receives every task failure in addition to logging it.
func WithErrorHook(fn func(TaskError)) Option {
	return func(r *Runner) { r.onError = fn }
}

// NewRunner creates a runner with at most workers concurrent tasks.
func NewRunner(workers int, opts ...Option) *Runner {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		ctx:     ctx,
		cancel:  cancel,
		slots:   make(chan struct{}, workers),
		errs:    make(chan TaskError, workers*4),
		logger:  log.Logger,
		drained: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	go r.drain()
	return r
}

// Go schedules fn in the background and returns immediately. The task context is
// detached from any request context and is cancelled only by Shutdown.
func (r *Runner) Go(name string, fn func(ctx context.Context) error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrRunnerClosed
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		select {
		case r.slots <- struct{}{}:
		case <-r.ctx.Done():
			r.report(name, r.ctx.Err())
			return
		}
		defer func() { <-r.slots }()

		r.report(name, r.run(fn))
	}()
	return nil
}

func (r *Runner) run(fn func(ctx context.Context) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return fn(r.ctx)
}

func (r *Runner) report(name string, err error) {
	if err == nil {
		return
	}
	r.errs <- TaskError{Name: name, Err: err}
}

func (r *Runner) drain() {
	defer close(r.drained)
	for te := range r.errs {
		r.logger.Warn().Err(te.Err).Str("task", te.Name).Msg("background task failed")
		if r.onError != nil {
			r.onError(te)
		}
	}
}

// Shutdown stops accepting tasks and waits for in-flight ones until ctx expires, at which
// point the remaining tasks are cancelled.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		r.cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
		}
		err = ctx.Err()
	}

	r.cancel()
	select {
	case <-done:
		close(r.errs)
		<-r.drained
	default:
	}
	return err
}
