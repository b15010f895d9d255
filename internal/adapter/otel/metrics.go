package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "planbridge"

// Metrics holds all planbridge metric instruments. A nil *Metrics is
// valid and records nothing, so callers need no guard when metrics are
// disabled.
type Metrics struct {
	tasksCreated   metric.Int64Counter
	tasksUpdated   metric.Int64Counter
	tasksDeleted   metric.Int64Counter
	tasksCompleted metric.Int64Counter
	conflicts      metric.Int64Counter
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.tasksCreated, err = meter.Int64Counter("planbridge.tasks.created",
		metric.WithDescription("Number of remote tasks created"))
	if err != nil {
		return nil, err
	}

	m.tasksUpdated, err = meter.Int64Counter("planbridge.tasks.updated",
		metric.WithDescription("Number of remote task updates applied"))
	if err != nil {
		return nil, err
	}

	m.tasksDeleted, err = meter.Int64Counter("planbridge.tasks.deleted",
		metric.WithDescription("Number of remote tasks deleted"))
	if err != nil {
		return nil, err
	}

	m.tasksCompleted, err = meter.Int64Counter("planbridge.tasks.completed",
		metric.WithDescription("Number of tasks marked complete"))
	if err != nil {
		return nil, err
	}

	m.conflicts, err = meter.Int64Counter("planbridge.conflicts",
		metric.WithDescription("Number of mutations rejected with a stale version tag"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) TaskCreated(ctx context.Context) {
	if m != nil {
		m.tasksCreated.Add(ctx, 1)
	}
}

func (m *Metrics) TaskUpdated(ctx context.Context) {
	if m != nil {
		m.tasksUpdated.Add(ctx, 1)
	}
}

func (m *Metrics) TaskDeleted(ctx context.Context) {
	if m != nil {
		m.tasksDeleted.Add(ctx, 1)
	}
}

func (m *Metrics) TaskCompleted(ctx context.Context) {
	if m != nil {
		m.tasksCompleted.Add(ctx, 1)
	}
}

func (m *Metrics) Conflict(ctx context.Context) {
	if m != nil {
		m.conflicts.Add(ctx, 1)
	}
}
