// Package workerpool runs blocking storage calls on a bounded set of slots so
// request handlers never block on I/O themselves.
//
// Cancellation is best-effort: once a task has started it runs to completion
// (bounded by TaskTimeout) even if the request that submitted it goes away.
// The submitter is told the work may have been abandoned mid-flight.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"classboard/internal/config"
	"classboard/internal/svcerr"

	"golang.org/x/sync/semaphore"
)

// Limiter is an optional second gate shared across processes.
type Limiter interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type Pool struct {
	sem            *semaphore.Weighted
	size           int
	acquireTimeout time.Duration
	taskTimeout    time.Duration
	limiter        Limiter
	log            *slog.Logger
}

type Option func(*Pool)

// WithLimiter adds a cluster-wide cap on in-flight tasks.
func WithLimiter(l Limiter) Option {
	return func(p *Pool) { p.limiter = l }
}

func New(cfg config.PoolConfig, log *slog.Logger, opts ...Option) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = 2 * time.Second
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	p := &Pool{
		sem:            semaphore.NewWeighted(int64(cfg.Workers)),
		size:           cfg.Workers,
		acquireTimeout: cfg.AcquireTimeout,
		taskTimeout:    cfg.TaskTimeout,
		log:            log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pool) Size() int { return p.size }

type result[T any] struct {
	val T
	err error
}

// Do runs fn on a pool slot and waits for it. Pool failures are returned as
// svcerr Transient errors; errors returned by fn pass through unchanged.
func Do[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if err := p.acquire(ctx); err != nil {
		return zero, err
	}

	done := make(chan result[T], 1)
	taskCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.taskTimeout)
	go func() {
		r := run(taskCtx, fn)
		cancel()
		p.release()
		done <- r
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		p.log.Warn("request cancelled while storage task in flight", "err", ctx.Err())
		return zero, svcerr.Transient("request cancelled; work may have been abandoned mid-flight", ctx.Err())
	}
}

func run[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) (r result[T]) {
	defer func() {
		if rec := recover(); rec != nil {
			r = result[T]{err: svcerr.Internal("worker task panicked", fmt.Errorf("%v", rec))}
		}
	}()
	v, err := fn(ctx)
	return result[T]{val: v, err: err}
}

func (p *Pool) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return svcerr.Transient("request cancelled before dispatch", err)
	}

	acqCtx, cancel := context.WithTimeout(ctx, p.acquireTimeout)
	defer cancel()
	if err := p.sem.Acquire(acqCtx, 1); err != nil {
		if ctx.Err() != nil {
			return svcerr.Transient("request cancelled before dispatch", ctx.Err())
		}
		p.log.Warn("worker pool exhausted", "size", p.size, "wait", p.acquireTimeout)
		return svcerr.Transient("worker pool exhausted", err)
	}

	if p.limiter == nil {
		return nil
	}
	ok, err := p.limiter.Acquire(ctx)
	if err != nil || !ok {
		p.sem.Release(1)
		if err == nil {
			err = errors.New("cluster limit reached")
		}
		p.log.Warn("cluster storage cap rejected task", "err", err)
		return svcerr.Transient("worker pool exhausted", err)
	}
	return nil
}

func (p *Pool) release() {
	if p.limiter != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		if err := p.limiter.Release(ctx); err != nil {
			p.log.Warn("cluster storage cap release failed", "err", err)
		}
		cancel()
	}
	p.sem.Release(1)
}
