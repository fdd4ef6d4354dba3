// SPDX-License-Identifier: MIT

package task

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("spldlt.task")

// instruments holds the lazily created task metrics of one runtime.
type instruments struct {
	once      sync.Once
	kind      attribute.KeyValue
	latency   metric.Float64Histogram
	successes metric.Int64Counter
	failures  metric.Int64Counter
	active    metric.Int64UpDownCounter
}

// init creates the instruments, logging but tolerating failures.
func (in *instruments) init(l *slog.Logger, kind string) {
	in.once.Do(func() {
		in.kind = attribute.String("runtime", kind)
		var failed []string
		var err error
		in.latency, err = meter.Float64Histogram("spldlt_task_duration_seconds",
			metric.WithDescription("Time spent executing one task"),
			metric.WithUnit("s"),
		)
		if err != nil {
			failed = append(failed, "latency: "+err.Error())
		}
		in.successes, err = meter.Int64Counter("spldlt_task_success_total",
			metric.WithDescription("Number of tasks that completed"),
		)
		if err != nil {
			failed = append(failed, "successes: "+err.Error())
		}
		in.failures, err = meter.Int64Counter("spldlt_task_failure_total",
			metric.WithDescription("Number of tasks that returned an error"),
		)
		if err != nil {
			failed = append(failed, "failures: "+err.Error())
		}
		in.active, err = meter.Int64UpDownCounter("spldlt_task_active",
			metric.WithDescription("Number of tasks currently executing"),
		)
		if err != nil {
			failed = append(failed, "active: "+err.Error())
		}
		if len(failed) > 0 {
			l.Error("failed to initialize task metrics (observability degraded)",
				slog.Int("failed_count", len(failed)),
				slog.Any("errors", failed),
			)
		}
	})
}

// observe wraps one task execution with the instruments.
func (in *instruments) observe(ctx context.Context, run func() error) error {
	opt := metric.WithAttributes(in.kind)
	if in.active != nil {
		in.active.Add(ctx, 1, opt)
		defer in.active.Add(ctx, -1, opt)
	}
	start := time.Now()
	err := run()
	if in.latency != nil {
		in.latency.Record(ctx, time.Since(start).Seconds(), opt)
	}
	switch {
	case err != nil && in.failures != nil:
		in.failures.Add(ctx, 1, opt)
	case err == nil && in.successes != nil:
		in.successes.Add(ctx, 1, opt)
	}

	return err
}
