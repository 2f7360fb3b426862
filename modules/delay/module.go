// Package delay provides the "delay" node, which waits for a configured
// interval before passing control downstream.
package delay

import (
	"context"
	"math"
	"time"

	"github.com/specialistvlad/flowgridgo/internal/ctxlog"
	"github.com/specialistvlad/flowgridgo/internal/executor"
	"github.com/specialistvlad/flowgridgo/internal/property"
	"github.com/specialistvlad/flowgridgo/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Type is the node type handled by this module.
const Type = "delay"

// DefaultInterval is used when a node has no interval_ms property.
const DefaultInterval = 1000 * time.Millisecond

// MaxIntervalMs is the largest interval_ms a time.Duration can hold.
const MaxIntervalMs = math.MaxInt64 / int64(time.Millisecond)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the executor with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(Type, &Executor{})
}

// Executor sleeps for the node's interval_ms.
type Executor struct{}

// Execute implements executor.Executor.
func (e *Executor) Execute(ctx context.Context, props *property.Bag, in executor.Input) executor.Result {
	start := time.Now()

	ms, err := props.Int("interval_ms", DefaultInterval.Milliseconds())
	if err != nil {
		return executor.Failed(start, "invalid interval_ms: %v", err)
	}
	if ms < 0 {
		return executor.Failed(start, "interval_ms must not be negative, got %d", ms)
	}
	if ms > MaxIntervalMs {
		return executor.Failed(start, "interval_ms must not exceed %d, got %d", MaxIntervalMs, ms)
	}

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Delaying.", "interval_ms", ms)

	timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		return executor.Failed(start, "delay interrupted: %v", ctx.Err())
	}

	return executor.Succeeded(start, executor.Data{
		"timestamp": cty.StringVal(time.Now().UTC().Format(time.RFC3339Nano)),
		"message":   cty.StringVal("Delay elapsed"),
	})
}
