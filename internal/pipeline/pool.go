package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"
)

// DefaultAcquireTimeout bounds how long a job waits for a free worker slot.
const DefaultAcquireTimeout = 30 * time.Second

var (
	// ErrPoolClosed is returned by Acquire after Close.
	ErrPoolClosed = errors.New("pool is closed")
	// ErrAcquireTimeout is returned when no slot frees up within the acquire timeout.
	ErrAcquireTimeout = errors.New("timeout waiting for available worker")
)

// Pool bounds the number of pipeline jobs running at once.
type Pool struct {
	slots          chan struct{}
	size           int
	acquireTimeout time.Duration
	mu             sync.Mutex
	closed         bool
	metrics        *poolMetrics
}

type poolMetrics struct {
	mu              sync.RWMutex
	inUse           int
	totalAcquired   int64
	totalReleased   int64
	acquireFailures int64
	waitTime        time.Duration
}

// Metrics is a point-in-time view of the pool counters.
type Metrics struct {
	Size            int     `json:"size"`
	InUse           int     `json:"in_use"`
	TotalAcquired   int64   `json:"total_acquired"`
	TotalReleased   int64   `json:"total_released"`
	AcquireFailures int64   `json:"acquire_failures"`
	AvgWaitMs       float64 `json:"avg_wait_ms"`
}

// NewPool creates a pool with size slots. A non-positive size uses
// runtime.NumCPU(); a non-positive timeout uses DefaultAcquireTimeout.
func NewPool(size int, acquireTimeout time.Duration) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	if acquireTimeout <= 0 {
		acquireTimeout = DefaultAcquireTimeout
	}
	return &Pool{
		slots:          make(chan struct{}, size),
		size:           size,
		acquireTimeout: acquireTimeout,
		metrics:        &poolMetrics{},
	}
}

// Acquire blocks until a slot is free, the acquire timeout elapses or ctx is done.
func (p *Pool) Acquire(ctx context.Context) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrPoolClosed
	}

	start := time.Now()
	defer func() {
		p.metrics.mu.Lock()
		p.metrics.waitTime += time.Since(start)
		p.metrics.mu.Unlock()
	}()

	timer := time.NewTimer(p.acquireTimeout)
	defer timer.Stop()

	select {
	case p.slots <- struct{}{}:
		p.metrics.mu.Lock()
		p.metrics.inUse++
		p.metrics.totalAcquired++
		p.metrics.mu.Unlock()
		return nil
	case <-timer.C:
		p.metrics.mu.Lock()
		p.metrics.acquireFailures++
		p.metrics.mu.Unlock()
		return fmt.Errorf("%w after %s", ErrAcquireTimeout, p.acquireTimeout)
	case <-ctx.Done():
		p.metrics.mu.Lock()
		p.metrics.acquireFailures++
		p.metrics.mu.Unlock()
		return ctx.Err()
	}
}

// Release frees a slot taken by Acquire.
func (p *Pool) Release() {
	p.metrics.mu.Lock()
	p.metrics.inUse--
	p.metrics.totalReleased++
	p.metrics.mu.Unlock()

	<-p.slots
}

// Close stops the pool from handing out new slots. Running jobs finish normally.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

// Run executes fn on a worker slot and waits for it or for ctx to be done.
//
// When ctx ends first, Run returns ctx.Err() immediately; fn keeps its slot
// until it observes the cancellation and returns, and its result is discarded.
func (p *Pool) Run(ctx context.Context, fn func(context.Context) error) error {
	if err := p.Acquire(ctx); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		defer p.Release()
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Metrics returns a snapshot of the pool counters.
func (p *Pool) Metrics() Metrics {
	p.metrics.mu.RLock()
	defer p.metrics.mu.RUnlock()

	m := Metrics{
		Size:            p.size,
		InUse:           p.metrics.inUse,
		TotalAcquired:   p.metrics.totalAcquired,
		TotalReleased:   p.metrics.totalReleased,
		AcquireFailures: p.metrics.acquireFailures,
	}
	if attempts := p.metrics.totalAcquired + p.metrics.acquireFailures; attempts > 0 {
		m.AvgWaitMs = float64(p.metrics.waitTime.Microseconds()) / float64(attempts) / 1000
	}
	return m
}
