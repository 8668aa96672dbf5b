package task

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPoolConfig() PoolConfig {
	return PoolConfig{
		MinWorkers:    2,
		MaxWorkers:    4,
		QueueSize:     8,
		IdleTimeout:   50 * time.Millisecond,
		ShutdownGrace: time.Second,
	}
}

func TestPool_SubmitAndExecute(t *testing.T) {
	t.Parallel()

	pool := NewPool(testPoolConfig(), testLogger())
	defer pool.Stop()

	done := make(chan struct{})
	err := pool.Submit(func(ctx context.Context) {
		close(done)
	})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("unit was never executed")
	}
}

func TestPool_SaturationLosesNoWork(t *testing.T) {
	t.Parallel()

	cfg := testPoolConfig()
	pool := NewPool(cfg, testLogger())

	// Flood the pool with far more units than queue capacity plus the
	// worker cap. The overflow policy runs surplus units on the submitting
	// goroutines, so every submission must still complete.
	submissions := (cfg.QueueSize + cfg.MaxWorkers) * 5

	var completed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < submissions; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pool.Submit(func(ctx context.Context) {
				time.Sleep(time.Millisecond)
				completed.Add(1)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	pool.Stop()

	assert.Equal(t, int64(submissions), completed.Load(),
		"total completions must equal total submissions")
	assert.Equal(t, int64(submissions), pool.Stats().Completed)
}

func TestPool_SubmitRacingStopNeverStrandsWork(t *testing.T) {
	t.Parallel()

	pool := NewPool(testPoolConfig(), testLogger())

	// Race many submissions against shutdown. Every submission that was
	// accepted must execute; the rest must see ErrPoolStopped.
	var accepted, executed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pool.Submit(func(ctx context.Context) {
				executed.Add(1)
			})
			if err == nil {
				accepted.Add(1)
			} else {
				assert.ErrorIs(t, err, ErrPoolStopped)
			}
		}()
	}

	stopped := make(chan struct{})
	go func() {
		pool.Stop()
		close(stopped)
	}()

	wg.Wait()
	<-stopped

	assert.Equal(t, accepted.Load(), executed.Load(),
		"accepted units must run even when submission races shutdown")
}

func TestPool_OverflowRunsOnSubmitter(t *testing.T) {
	t.Parallel()

	cfg := PoolConfig{
		MinWorkers:    1,
		MaxWorkers:    1,
		QueueSize:     1,
		IdleTimeout:   50 * time.Millisecond,
		ShutdownGrace: time.Second,
	}
	pool := NewPool(cfg, testLogger())
	defer pool.Stop()

	// Occupy the single worker, then fill the single queue slot.
	block := make(chan struct{})
	require.NoError(t, pool.Submit(func(ctx context.Context) { <-block }))
	require.Eventually(t, func() bool {
		return pool.Stats().ActiveUnits == 1
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, pool.Submit(func(ctx context.Context) { <-block }))

	// The next submission cannot be queued or handed to a new worker, so
	// Submit itself must run it before returning.
	ran := false
	require.NoError(t, pool.Submit(func(ctx context.Context) { ran = true }))
	assert.True(t, ran, "overflow unit should run synchronously on the submitter")

	close(block)
}

func TestPool_SubmitAfterStop(t *testing.T) {
	t.Parallel()

	pool := NewPool(testPoolConfig(), testLogger())
	pool.Stop()

	err := pool.Submit(func(ctx context.Context) {})
	assert.ErrorIs(t, err, ErrPoolStopped)
}

func TestPool_StopWaitsForInflightUnits(t *testing.T) {
	t.Parallel()

	pool := NewPool(testPoolConfig(), testLogger())

	var finished atomic.Bool
	require.NoError(t, pool.Submit(func(ctx context.Context) {
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
	}))

	pool.Stop()
	assert.True(t, finished.Load(), "Stop should wait out in-flight units within the grace period")
}

func TestPool_StopCancelsAfterGrace(t *testing.T) {
	t.Parallel()

	cfg := testPoolConfig()
	cfg.ShutdownGrace = 20 * time.Millisecond
	pool := NewPool(cfg, testLogger())

	cancelled := make(chan struct{})
	require.NoError(t, pool.Submit(func(ctx context.Context) {
		<-ctx.Done()
		close(cancelled)
	}))

	stopDone := make(chan struct{})
	go func() {
		pool.Stop()
		close(stopDone)
	}()

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("unit context was never cancelled after the grace period")
	}

	select {
	case <-stopDone:
	case <-time.After(time.Second):
		t.Fatal("Stop never returned")
	}
}

func TestPool_Stats(t *testing.T) {
	t.Parallel()

	cfg := testPoolConfig()
	pool := NewPool(cfg, testLogger())
	defer pool.Stop()

	stats := pool.Stats()
	assert.Equal(t, cfg.MinWorkers, stats.Workers)
	assert.Zero(t, stats.ActiveUnits)
	assert.Zero(t, stats.QueueLength)

	block := make(chan struct{})
	require.NoError(t, pool.Submit(func(ctx context.Context) { <-block }))

	// Wait for a worker to pick the unit up.
	assert.Eventually(t, func() bool {
		return pool.Stats().ActiveUnits == 1
	}, time.Second, 5*time.Millisecond)

	close(block)
	assert.Eventually(t, func() bool {
		return pool.Stats().Completed == 1
	}, time.Second, 5*time.Millisecond)
}
