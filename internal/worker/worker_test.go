package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoReturnsResult(t *testing.T) {
	p := New(zerolog.Nop())

	task, err := p.Go("transcribe", func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	require.NoError(t, task.Wait())

	boom := errors.New("boom")
	task, err = p.Go("transcribe", func(ctx context.Context) error { return boom })
	require.NoError(t, err)
	assert.ErrorIs(t, task.Wait(), boom)
	assert.ErrorIs(t, task.Err(), boom)

	stats := p.Stats()
	assert.Equal(t, int64(1), stats.Completed)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, 0, stats.InFlight)
}

func TestGoRejectsSecondTaskOfSameKind(t *testing.T) {
	p := New(zerolog.Nop())
	release := make(chan struct{})

	first, err := p.Go("model", func(ctx context.Context) error {
		<-release
		return nil
	})
	require.NoError(t, err)
	assert.Nil(t, first.Err())
	assert.Equal(t, 1, p.Stats().InFlight)

	_, err = p.Go("model", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrBusy)

	// a different kind is independent
	other, err := p.Go("record", func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	require.NoError(t, other.Wait())

	close(release)
	require.NoError(t, first.Wait())
	assert.Equal(t, 0, p.Stats().InFlight)

	again, err := p.Go("model", func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	require.NoError(t, again.Wait())
}

func TestGoRecoversPanics(t *testing.T) {
	p := New(zerolog.Nop())

	task, err := p.Go("transcribe", func(ctx context.Context) error {
		panic("model exploded")
	})
	require.NoError(t, err)

	err = task.Wait()
	assert.ErrorIs(t, err, ErrPanic)
	assert.Contains(t, err.Error(), "model exploded")
	assert.Equal(t, int64(1), p.Stats().Failed)

	// the kind is released after a panic
	next, err := p.Go("transcribe", func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	require.NoError(t, next.Wait())
}

func TestTaskCancel(t *testing.T) {
	p := New(zerolog.Nop())

	task, err := p.Go("record", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)

	task.Cancel()
	select {
	case <-task.Done():
	case <-time.After(time.Second):
		t.Fatal("task did not stop after Cancel")
	}
	assert.ErrorIs(t, task.Err(), context.Canceled)
}

func TestShutdownCancelsAndRejects(t *testing.T) {
	p := New(zerolog.Nop())

	task, err := p.Go("model", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(ctx))
	assert.ErrorIs(t, task.Wait(), context.Canceled)

	_, err = p.Go("model", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrClosed)
}

func TestShutdownTimesOut(t *testing.T) {
	p := New(zerolog.Nop())
	release := make(chan struct{})
	defer close(release)

	_, err := p.Go("transcribe", func(ctx context.Context) error {
		<-release // ignores ctx, like a blocking model call
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Shutdown(ctx), context.DeadlineExceeded)
}
