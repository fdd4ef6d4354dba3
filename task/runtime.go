// SPDX-License-Identifier: MIT

package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/katalvlaran/spldlt/config"
)

// Func is a task body. The context is the one the runtime was created with.
type Func func(ctx context.Context) error

// Group is a set of tasks that can be waited on together.
type Group interface {
	// Submit enqueues fn with its declared accesses. It never blocks on
	// other tasks; failures are reported by Wait.
	Submit(name string, fn Func, acc ...Access)
	// Wait blocks until every task submitted to the group has finished and
	// returns the first error recorded by the runtime.
	Wait() error
}

// Runtime is the executor strategy injected into the numeric layer.
type Runtime interface {
	Group
	// Register creates a data handle.
	Register(name string) *Handle
	// Unregister retires a handle; later accesses to it fail the run.
	Unregister(h *Handle)
	// NewGroup opens a sub-group sharing the runtime's workers and handles.
	NewGroup() Group
	// Workers reports the degree of parallelism.
	Workers() int
	// Close waits for outstanding work and stops the workers.
	Close() error
}

// FromOptions builds the runtime selected by o.Executor.
func FromOptions(ctx context.Context, o config.Options) Runtime {
	if o.Executor == config.ExecutorSequential {
		return NewSequential(ctx, o.Log())
	}

	return NewPool(ctx, o.Workers, o.Log())
}

// call runs fn and converts a panic into ErrPanic.
func call(ctx context.Context, name string, fn Func) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrPanic, name, r)
		}
	}()

	return fn(ctx)
}

// logFailure reports the first fatal task error.
func logFailure(l *slog.Logger, kind, name string, err error) {
	l.Error("task failed",
		slog.String("runtime", kind),
		slog.String("task", name),
		slog.String("error", err.Error()),
	)
}
