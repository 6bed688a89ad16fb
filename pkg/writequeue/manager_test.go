package writequeue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute_SameKeyIsSerialized(t *testing.T) {
	m := New(nil, nil)
	defer m.Shutdown(context.Background())

	var running atomic.Int32
	var maxRunning atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.Execute(context.Background(), "repo-a", func() error {
				n := running.Add(1)
				for {
					cur := maxRunning.Load()
					if n <= cur || maxRunning.CompareAndSwap(cur, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				running.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxRunning.Load())
}

func TestExecute_FIFOOrder(t *testing.T) {
	m := New(nil, nil)
	defer m.Shutdown(context.Background())

	block := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = m.Execute(context.Background(), "repo", func() error {
			close(started)
			<-block
			return nil
		})
	}()
	<-started

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Execute(context.Background(), "repo", func() error {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil
			})
		}()
		// enqueue in a known order
		require.Eventually(t, func() bool { return m.QueuedCount("repo") == i+1 }, time.Second, time.Millisecond)
	}
	close(block)
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestExecute_DifferentKeysRunConcurrently(t *testing.T) {
	m := New(nil, nil)
	defer m.Shutdown(context.Background())

	release := make(chan struct{})
	entered := make(chan string, 2)

	var wg sync.WaitGroup
	for _, key := range []string{"a", "b"} {
		key := key
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Execute(context.Background(), key, func() error {
				entered <- key
				<-release
				return nil
			})
		}()
	}

	// both operations must be inside fn at the same time
	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case k := <-entered:
			got[k] = true
		case <-time.After(2 * time.Second):
			t.Fatal("operations on different keys did not run concurrently")
		}
	}
	close(release)
	wg.Wait()
	assert.Len(t, got, 2)
}

func TestExecute_ReturnsErrorAndRecoversPanic(t *testing.T) {
	m := New(nil, nil)
	defer m.Shutdown(context.Background())

	sentinel := errors.New("boom")
	err := m.Execute(context.Background(), "repo", func() error { return sentinel })
	assert.ErrorIs(t, err, sentinel)

	err = m.Execute(context.Background(), "repo", func() error { panic("bad") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")

	// queue keeps working after a panic
	err = m.Execute(context.Background(), "repo", func() error { return nil })
	assert.NoError(t, err)
}

func TestExecute_AfterShutdown(t *testing.T) {
	m := New(nil, nil)
	require.NoError(t, m.Shutdown(context.Background()))
	assert.True(t, m.IsClosed())

	err := m.Execute(context.Background(), "repo", func() error { return nil })
	assert.ErrorIs(t, err, ErrWriteQueueClosed)
}

func TestExecute_CancelledContext(t *testing.T) {
	m := New(nil, nil)
	defer m.Shutdown(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := m.Execute(ctx, "repo", func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
