package services

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Dispatcher runs post-commit side effects (emails, audit writes) in the background.
// Jobs are detached from the caller's cancellation, bounded by their own timeout, and their
// failures are logged and never returned.
type Dispatcher struct {
	logger  *slog.Logger
	timeout time.Duration

	mu      sync.Mutex
	pending int
	idle    chan struct{} // closed whenever pending is zero
	closed  bool
}

func NewDispatcher(logger *slog.Logger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	idle := make(chan struct{})
	close(idle)
	return &Dispatcher{logger: logger, timeout: timeout, idle: idle}
}

// Go starts job in its own goroutine. ctx supplies values (trace span, request logger) but not cancellation.
// After Shutdown the job is dropped and logged.
func (d *Dispatcher) Go(ctx context.Context, name string, job func(ctx context.Context) error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.WarnContext(ctx, "background job dropped after shutdown", "job", name)
		return
	}
	if d.pending == 0 {
		d.idle = make(chan struct{})
	}
	d.pending++
	d.mu.Unlock()

	go func() {
		defer d.done()
		defer func() {
			if p := recover(); p != nil {
				d.logger.Error("background job panicked", "job", name, "panic", p)
			}
		}()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()
		if err := job(ctx); err != nil {
			d.logger.Error("background job failed", "job", name, "err", err)
		}
	}()
}

func (d *Dispatcher) done() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending--
	if d.pending == 0 {
		close(d.idle)
	}
}

// Wait blocks until no job is running or ctx is done. Jobs may keep being started meanwhile.
func (d *Dispatcher) Wait(ctx context.Context) error {
	d.mu.Lock()
	idle := d.idle
	d.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for the running ones like Wait.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return d.Wait(ctx)
}
