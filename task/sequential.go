// SPDX-License-Identifier: MIT

package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Sequential executes every task inline, in submission order.
//
// Thread Safety:
//
//	Safe for concurrent use, but tasks submitted from different goroutines
//	simply run on those goroutines; dependency tracking is not performed.
type Sequential struct {
	ctx    context.Context
	logger *slog.Logger
	mu     sync.Mutex
	err    error
	closed bool
	in     instruments
}

// NewSequential returns an inline runtime. A nil logger uses slog.Default().
func NewSequential(ctx context.Context, logger *slog.Logger) *Sequential {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sequential{ctx: ctx, logger: logger}
	s.in.init(logger, "sequential")

	return s
}

// Register creates a handle. Sequential only checks its lifetime.
func (s *Sequential) Register(name string) *Handle { return newHandle(name) }

// Unregister retires h.
func (s *Sequential) Unregister(h *Handle) {
	if h == nil {
		return
	}
	s.mu.Lock()
	h.released = true
	s.mu.Unlock()
}

// Submit runs fn immediately unless the runtime already failed.
func (s *Sequential) Submit(name string, fn Func, acc ...Access) {
	s.mu.Lock()
	if s.err != nil {
		s.mu.Unlock()
		return
	}
	var pre error
	switch {
	case s.closed:
		pre = ErrClosed
	case s.ctx.Err() != nil:
		pre = s.ctx.Err()
	}
	for _, a := range acc {
		if a.H == nil || a.H.released {
			pre = fmt.Errorf("%w: %s", ErrHandleReleased, name)
		}
	}
	s.mu.Unlock()

	err := pre
	if err == nil {
		err = s.in.observe(s.ctx, func() error { return call(s.ctx, name, fn) })
	}
	if err != nil {
		s.fail(name, err)
	}
}

func (s *Sequential) fail(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = fmt.Errorf("task %s: %w", name, err)
		logFailure(s.logger, "sequential", name, err)
	}
}

// Wait returns the first recorded error; all work is already done.
func (s *Sequential) Wait() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.err
}

// NewGroup returns the runtime itself: inline tasks need no grouping.
func (s *Sequential) NewGroup() Group { return s }

// Workers is always 1.
func (s *Sequential) Workers() int { return 1 }

// Close marks the runtime closed and returns the first error.
func (s *Sequential) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	return s.Wait()
}
