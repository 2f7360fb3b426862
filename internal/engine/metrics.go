package engine

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
)

// Metric instrument names.
const (
	MetricWorkflowRuns   = "flowgrid.workflow.runs"
	MetricNodeExecutions = "flowgrid.node.executions"
	MetricNodeDuration   = "flowgrid.node.duration"
)

// WithMeter sets the meter used for run and node metrics.
func WithMeter(m metric.Meter) Option {
	return func(e *Engine) {
		if m != nil {
			e.meter = m
		}
	}
}

type engineMetrics struct {
	runs         metric.Int64Counter
	nodes        metric.Int64Counter
	nodeDuration metric.Float64Histogram
}

func newEngineMetrics(m metric.Meter) *engineMetrics {
	fallback := noopmetric.NewMeterProvider().Meter("flowgridgo/engine")

	runs, err := m.Int64Counter(MetricWorkflowRuns,
		metric.WithDescription("Number of finished workflow runs."))
	if err != nil {
		slog.Warn("Failed to create metric, using noop.", "metric", MetricWorkflowRuns, "error", err)
		runs, _ = fallback.Int64Counter(MetricWorkflowRuns)
	}
	nodes, err := m.Int64Counter(MetricNodeExecutions,
		metric.WithDescription("Number of executed nodes."))
	if err != nil {
		slog.Warn("Failed to create metric, using noop.", "metric", MetricNodeExecutions, "error", err)
		nodes, _ = fallback.Int64Counter(MetricNodeExecutions)
	}
	duration, err := m.Float64Histogram(MetricNodeDuration,
		metric.WithDescription("Executor duration per node."),
		metric.WithUnit("s"))
	if err != nil {
		slog.Warn("Failed to create metric, using noop.", "metric", MetricNodeDuration, "error", err)
		duration, _ = fallback.Float64Histogram(MetricNodeDuration)
	}
	return &engineMetrics{runs: runs, nodes: nodes, nodeDuration: duration}
}

func (m *engineMetrics) recordRun(ctx context.Context, success bool) {
	m.runs.Add(ctx, 1, metric.WithAttributes(attribute.Bool("flowgrid.run.success", success)))
}

func (m *engineMetrics) recordNode(ctx context.Context, nodeType string, success bool, d time.Duration) {
	m.nodes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("flowgrid.node.type", nodeType),
		attribute.Bool("flowgrid.node.success", success),
	))
	m.nodeDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("flowgrid.node.type", nodeType),
	))
}
