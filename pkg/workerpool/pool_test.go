package workerpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit_ReturnsTaskError(t *testing.T) {
	p := New(nil, nil)
	defer p.Shutdown(context.Background())

	sentinel := errors.New("failed")
	err := p.Submit(context.Background(), "t", func(ctx context.Context) error { return sentinel })
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, int64(1), p.GetMetrics().FailedCount)
}

func TestSubmit_PanicBecomesError(t *testing.T) {
	p := New(nil, nil)
	defer p.Shutdown(context.Background())

	err := p.Submit(context.Background(), "panicky", func(ctx context.Context) error { panic("x") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicky")
}

func TestSubmitAsync_RunsAndShutdownWaits(t *testing.T) {
	p := New(&Config{MaxWorkers: 2, QueueSize: 10}, nil)

	var count atomic.Int32
	for i := 0; i < 5; i++ {
		require.NoError(t, p.SubmitAsync(context.Background(), "inc", func(ctx context.Context) error {
			time.Sleep(5 * time.Millisecond)
			count.Add(1)
			return nil
		}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(ctx))
	assert.Equal(t, int32(5), count.Load())

	err := p.SubmitAsync(context.Background(), "late", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrWorkerPoolClosed)
}

func TestSubmitAsync_QueueFull(t *testing.T) {
	p := New(&Config{MaxWorkers: 1, QueueSize: 1}, nil)
	defer p.Shutdown(context.Background())

	block := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.SubmitAsync(context.Background(), "block", func(ctx context.Context) error {
		close(started)
		<-block
		return nil
	}))
	<-started
	require.NoError(t, p.SubmitAsync(context.Background(), "queued", func(ctx context.Context) error { return nil }))

	err := p.SubmitAsync(context.Background(), "overflow", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrWorkerPoolFull)
	close(block)
}
