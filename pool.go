package realtime

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// workerPool bounds the number of concurrently running offloaded listeners.
// It is released on normal closure of the connection; submissions after
// that are dropped.
type workerPool struct {
	sem    *semaphore.Weighted
	logger *slog.Logger
	closed atomic.Bool
}

func newWorkerPool(size int64, logger *slog.Logger) *workerPool {
	return &workerPool{
		sem:    semaphore.NewWeighted(size),
		logger: logger,
	}
}

// submit schedules fn on the pool. Returns false if the pool is closed.
func (p *workerPool) submit(fn func()) bool {
	if p.closed.Load() {
		return false
	}
	go func() {
		if err := p.sem.Acquire(context.Background(), 1); err != nil {
			return
		}
		defer p.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("async listener panic recovered",
					"panic", r,
					"stack", string(debug.Stack()),
				)
			}
		}()
		fn()
	}()
	return true
}

func (p *workerPool) close() {
	p.closed.Store(true)
}

// Async wraps a listener so its body runs on the client's bounded worker
// pool instead of the frame-delivery goroutine. Use it for handlers that
// block; a slow synchronous listener delays every frame behind it.
func (c *Client) Async(fn Listener) Listener {
	return func(args ...any) {
		if !c.pool.submit(func() { fn(args...) }) {
			c.logger.Warn("worker pool released, dropping async listener invocation")
		}
	}
}
