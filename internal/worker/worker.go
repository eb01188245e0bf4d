// Package worker runs user actions off the UI goroutine. Each action kind
// (model load, recording, transcription) has at most one task in flight.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrBusy is returned when a task of the same kind is still running.
	ErrBusy = errors.New("task already in progress")
	// ErrPanic wraps a panic recovered from a task.
	ErrPanic = errors.New("task panicked")
	// ErrClosed is returned after Shutdown.
	ErrClosed = errors.New("worker pool closed")
)

// Func is the body of a task. It should return promptly once ctx is done.
type Func func(ctx context.Context) error

// Task is a handle on a running action.
type Task struct {
	Kind string

	done    chan struct{}
	err     error
	cancel  context.CancelFunc
	started time.Time
}

// Done is closed when the task finishes.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes and returns its error.
func (t *Task) Wait() error {
	<-t.done
	return t.err
}

// Err returns the task's error, or nil while it is still running.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Cancel asks the task to stop. Cancellation is best effort: blocking calls
// that ignore their context run to completion.
func (t *Task) Cancel() {
	t.cancel()
}

// Stats reports pool activity.
type Stats struct {
	InFlight  int
	Completed int64
	Failed    int64
}

// Pool tracks in-flight tasks by kind.
type Pool struct {
	log    zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	inflight map[string]*Task
	closed   bool

	completed atomic.Int64
	failed    atomic.Int64
}

func New(log zerolog.Logger) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		log:      log.With().Str("component", "worker").Logger(),
		ctx:      ctx,
		cancel:   cancel,
		inflight: make(map[string]*Task),
	}
}

// Go starts fn on its own goroutine. It returns ErrBusy if a task of the
// same kind has not finished yet.
func (p *Pool) Go(kind string, fn Func) (*Task, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}
	if _, ok := p.inflight[kind]; ok {
		return nil, fmt.Errorf("%w: %s", ErrBusy, kind)
	}

	ctx, cancel := context.WithCancel(p.ctx)
	t := &Task{
		Kind:    kind,
		done:    make(chan struct{}),
		cancel:  cancel,
		started: time.Now(),
	}
	p.inflight[kind] = t

	p.wg.Add(1)
	go p.run(ctx, t, fn)
	return t, nil
}

func (p *Pool) run(ctx context.Context, t *Task, fn Func) {
	defer p.wg.Done()
	defer t.cancel()

	err := safeCall(ctx, fn)

	// Release the kind before waking waiters so a follow-up Go can start
	p.mu.Lock()
	delete(p.inflight, t.Kind)
	p.mu.Unlock()

	log := p.log.With().Str("task", t.Kind).Dur("elapsed", time.Since(t.started)).Logger()
	if err != nil {
		p.failed.Add(1)
		log.Warn().Err(err).Msg("Task failed")
	} else {
		p.completed.Add(1)
		log.Debug().Msg("Task finished")
	}

	t.err = err
	close(t.done)
}

func safeCall(ctx context.Context, fn Func) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v\n%s", ErrPanic, r, debug.Stack())
		}
	}()
	return fn(ctx)
}

// Stats returns current pool statistics.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	inflight := len(p.inflight)
	p.mu.Unlock()
	return Stats{
		InFlight:  inflight,
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
	}
}

// Shutdown cancels every task and waits for them until ctx is done.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.log.Info().
			Int64("completed", p.completed.Load()).
			Int64("failed", p.failed.Load()).
			Msg("Worker pool stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
