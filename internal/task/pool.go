package task

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrPoolStopped is returned by Submit after Stop has begun.
var ErrPoolStopped = errors.New("worker pool is stopped")

// Unit is one unit of background work. The context is cancelled only when
// the pool force-cancels remaining work at shutdown.
type Unit func(ctx context.Context)

// PoolConfig holds configuration for the worker pool.
type PoolConfig struct {
	// MinWorkers are started immediately and never expire.
	MinWorkers int

	// MaxWorkers caps the surplus workers spawned when the queue fills.
	MaxWorkers int

	// QueueSize is the fixed capacity of the pending-unit queue.
	QueueSize int

	// IdleTimeout is how long a surplus worker waits for work before exiting.
	IdleTimeout time.Duration

	// ShutdownGrace is how long Stop waits for in-flight units before
	// force-cancelling the remainder.
	ShutdownGrace time.Duration
}

// DefaultPoolConfig returns a PoolConfig with the service defaults.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MinWorkers:    5,
		MaxWorkers:    20,
		QueueSize:     100,
		IdleTimeout:   60 * time.Second,
		ShutdownGrace: 60 * time.Second,
	}
}

// PoolStats is a point-in-time snapshot of pool activity.
type PoolStats struct {
	Workers     int   `json:"workers"`
	ActiveUnits int   `json:"active_units"`
	QueueLength int   `json:"queue_length"`
	Completed   int64 `json:"completed"`
}

// Pool is a bounded-queue worker pool. Its overflow policy runs the unit on
// the submitting goroutine when the queue is full and no worker can be
// added, trading a latency spike for zero silent work loss. The pool's queue
// and worker cap are the sole admission-control boundary of the service.
type Pool struct {
	config PoolConfig
	logger *slog.Logger

	queue      chan Unit
	ctx        context.Context
	cancelFunc context.CancelFunc

	mu      sync.Mutex
	workers int

	wg        sync.WaitGroup // running workers
	inflight  sync.WaitGroup // submitted units not yet finished
	accepting atomic.Bool

	active    atomic.Int64
	completed atomic.Int64
}

// NewPool creates a Pool and starts its core workers.
func NewPool(config PoolConfig, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		config:     config,
		logger:     logger.With(slog.String("component", "worker_pool")),
		queue:      make(chan Unit, config.QueueSize),
		ctx:        ctx,
		cancelFunc: cancel,
	}
	p.accepting.Store(true)

	for i := 0; i < config.MinWorkers; i++ {
		p.addWorker(true)
	}

	return p
}

// Submit schedules a unit for execution. It never rejects or drops work
// while the pool is running: when the queue is full it first tries to grow
// the pool, and failing that executes the unit on the calling goroutine
// before returning. Returns ErrPoolStopped once shutdown has begun.
func (p *Pool) Submit(unit Unit) error {
	// Register with inflight before checking the flag: a submission racing
	// Stop either backs out here or is already counted when Stop waits, so
	// no accepted unit can be stranded in the queue.
	p.inflight.Add(1)
	if !p.accepting.Load() {
		p.inflight.Done()
		return ErrPoolStopped
	}
	wrapped := func(ctx context.Context) {
		defer p.inflight.Done()
		defer p.completed.Add(1)

		p.active.Add(1)
		defer p.active.Add(-1)

		unit(ctx)
	}

	select {
	case p.queue <- wrapped:
		return nil
	default:
	}

	// Queue is full: try to add a surplus worker, then try the queue again
	// in case one freed up meanwhile.
	if p.addWorker(false) {
		select {
		case p.queue <- wrapped:
			return nil
		default:
		}
	}

	p.logger.Warn("queue saturated, executing unit on submitting goroutine",
		slog.Int("queue_size", p.config.QueueSize))
	wrapped(p.ctx)
	return nil
}

// Stop shuts the pool down: no new submissions, a bounded grace wait for
// in-flight units, then forced cancellation of whatever remains.
func (p *Pool) Stop() {
	if !p.accepting.CompareAndSwap(true, false) {
		return
	}

	done := make(chan struct{})
	go func() {
		p.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("all in-flight units finished")
	case <-time.After(p.config.ShutdownGrace):
		p.logger.Warn("shutdown grace elapsed, cancelling remaining units",
			slog.Int("queued", len(p.queue)))
	}

	p.cancelFunc()
	p.wg.Wait()
}

// Stats returns a snapshot of current pool activity.
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	workers := p.workers
	p.mu.Unlock()

	return PoolStats{
		Workers:     workers,
		ActiveUnits: int(p.active.Load()),
		QueueLength: len(p.queue),
		Completed:   p.completed.Load(),
	}
}

// addWorker starts a worker goroutine if the cap allows it.
// Core workers never expire; surplus workers exit after IdleTimeout.
func (p *Pool) addWorker(core bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !core && p.workers >= p.config.MaxWorkers {
		return false
	}

	p.workers++
	p.wg.Add(1)
	go p.worker(core)
	return true
}

func (p *Pool) worker(core bool) {
	defer p.wg.Done()
	defer func() {
		p.mu.Lock()
		p.workers--
		p.mu.Unlock()
	}()

	idle := time.NewTimer(p.config.IdleTimeout)
	defer idle.Stop()

	for {
		if !core {
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(p.config.IdleTimeout)
		}

		if core {
			select {
			case <-p.ctx.Done():
				return
			case unit := <-p.queue:
				unit(p.ctx)
			}
		} else {
			select {
			case <-p.ctx.Done():
				return
			case unit := <-p.queue:
				unit(p.ctx)
			case <-idle.C:
				return
			}
		}
	}
}
