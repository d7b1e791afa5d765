// Package connpool provides a fixed-size pool of connections with blocking acquire.
//
// All connections are opened when the pool is built. Acquire waits for an
// idle connection until the context ends or the acquire timeout passes, and
// Release hands the connection to exactly one waiter. The pool never opens
// more connections than its size.
package connpool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KirkDiggler/dogstory-api/internal/errors"
)

// DefaultAcquireTimeout bounds how long Acquire waits when no timeout is configured
const DefaultAcquireTimeout = 5 * time.Second

// Config describes how to build a pool
type Config[T any] struct {
	Size           int
	AcquireTimeout time.Duration
	// Open creates one connection
	Open func(ctx context.Context) (T, error)
	// Close releases one connection, optional
	Close func(T) error
}

// Validate ensures the pool can be built
func (c *Config[T]) Validate() error {
	vb := errors.NewValidationBuilder()
	if c.Size <= 0 {
		vb.Field("Size", "must be positive")
	}
	if c.Open == nil {
		vb.RequiredField("Open")
	}
	errors.ValidateNonNegative("AcquireTimeout", c.AcquireTimeout, vb)
	return vb.Build()
}

// Stats is a point-in-time view of the pool
type Stats struct {
	Size    int
	Idle    int
	Waiting int64
}

// Pool hands out a fixed set of connections
type Pool[T any] struct {
	idle           chan T
	all            []T
	closeConn      func(T) error
	acquireTimeout time.Duration
	waiting        atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// New opens cfg.Size connections. If any fails the ones already opened are closed.
func New[T any](ctx context.Context, cfg *Config[T]) (*Pool[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	timeout := cfg.AcquireTimeout
	if timeout == 0 {
		timeout = DefaultAcquireTimeout
	}

	p := &Pool[T]{
		idle:           make(chan T, cfg.Size),
		all:            make([]T, 0, cfg.Size),
		closeConn:      cfg.Close,
		acquireTimeout: timeout,
	}
	for i := 0; i < cfg.Size; i++ {
		conn, err := cfg.Open(ctx)
		if err != nil {
			_ = p.Close()
			return nil, errors.Persistence(err, "failed to open pooled connection")
		}
		p.all = append(p.all, conn)
		p.idle <- conn
	}
	return p, nil
}

// Acquire blocks until a connection is free, ctx is done or the acquire timeout passes
func (p *Pool[T]) Acquire(ctx context.Context) (T, error) {
	var zero T

	select {
	case conn, ok := <-p.idle:
		return p.checkOut(conn, ok)
	default:
	}

	p.waiting.Add(1)
	defer p.waiting.Add(-1)

	timer := time.NewTimer(p.acquireTimeout)
	defer timer.Stop()

	select {
	case conn, ok := <-p.idle:
		return p.checkOut(conn, ok)
	case <-ctx.Done():
		return zero, errors.WrapWithCode(ctx.Err(), errors.CodeCanceled, "gave up waiting for a connection")
	case <-timer.C:
		return zero, errors.DeadlineExceeded("timed out waiting for a connection")
	}
}

func (p *Pool[T]) checkOut(conn T, ok bool) (T, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !ok || p.closed {
		var zero T
		return zero, errors.Unavailable("connection pool is closed")
	}
	return conn, nil
}

// Release returns a connection to the pool
func (p *Pool[T]) Release(conn T) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.idle <- conn:
	default:
		// more releases than acquires; the pool is already full
	}
}

// With runs fn with a pooled connection and always gives it back,
// whether fn succeeds, fails or panics.
func (p *Pool[T]) With(ctx context.Context, fn func(T) error) error {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.Release(conn)
	return fn(conn)
}

// Stats reports pool usage
func (p *Pool[T]) Stats() Stats {
	return Stats{
		Size:    cap(p.idle),
		Idle:    len(p.idle),
		Waiting: p.waiting.Load(),
	}
}

// Close closes every connection. Waiting and later Acquire calls fail.
func (p *Pool[T]) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.idle)
	for range p.idle {
	}
	p.mu.Unlock()

	if p.closeConn == nil {
		return nil
	}
	var firstErr error
	for _, conn := range p.all {
		if err := p.closeConn(conn); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return errors.Wrap(firstErr, "failed to close pooled connections")
	}
	return nil
}
