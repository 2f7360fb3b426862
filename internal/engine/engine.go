package engine

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/flowgridgo/internal/executor"
	"github.com/specialistvlad/flowgridgo/internal/registry"
	"github.com/specialistvlad/flowgridgo/internal/workflow"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// WorkflowResult is the outcome of one ExecuteWorkflow call.
type WorkflowResult struct {
	RunID        string
	Success      bool
	ErrorMessage string
	// Err is nil on success and otherwise wraps one of the Err* sentinels.
	Err      error
	Duration time.Duration
	// NodeResults holds the result of every node that ran.
	NodeResults map[*workflow.Node]executor.Result
}

// Option configures an Engine.
type Option func(*Engine)

// WithTracer sets the tracer used for workflow and node spans.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithRunID overrides the run ID generator.
func WithRunID(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newRunID = fn
		}
	}
}

// Engine executes workflow definitions against a registry of executors.
type Engine struct {
	registry *registry.Registry
	tracer   trace.Tracer
	meter    metric.Meter
	metrics  *engineMetrics
	newRunID func() string

	busy atomic.Bool

	mu          sync.Mutex
	debugMode   bool
	breakpoints map[string]struct{}
	state       State
	paused      *workflow.Node
	resume      chan struct{}
	results     map[*workflow.Node]executor.Result

	subMu     sync.RWMutex
	subs      []subscription
	nextSubID int
}

// New creates an engine resolving node types through r.
func New(r *registry.Registry, opts ...Option) *Engine {
	e := &Engine{
		registry:    r,
		tracer:      noop.NewTracerProvider().Tracer("flowgridgo/engine"),
		meter:       noopmetric.NewMeterProvider().Meter("flowgridgo/engine"),
		newRunID:    uuid.NewString,
		breakpoints: make(map[string]struct{}),
		results:     make(map[*workflow.Node]executor.Result),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.metrics = newEngineMetrics(e.meter)
	return e
}

// SetDebugMode turns breakpoint handling on or off.
func (e *Engine) SetDebugMode(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.debugMode = on
}

// DebugMode reports whether breakpoints are honored.
func (e *Engine) DebugMode() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.debugMode
}

// AddBreakpoint sets a breakpoint on the node with the given ID.
func (e *Engine) AddBreakpoint(nodeID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.breakpoints[nodeID] = struct{}{}
}

// RemoveBreakpoint clears the breakpoint on the node with the given ID.
func (e *Engine) RemoveBreakpoint(nodeID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.breakpoints, nodeID)
}

// ToggleBreakpoint flips the breakpoint on the node with the given ID and
// reports whether it is now set.
func (e *Engine) ToggleBreakpoint(nodeID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.breakpoints[nodeID]; ok {
		delete(e.breakpoints, nodeID)
		return false
	}
	e.breakpoints[nodeID] = struct{}{}
	return true
}

// ClearBreakpoints removes every breakpoint.
func (e *Engine) ClearBreakpoints() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.breakpoints = make(map[string]struct{})
}

// HasBreakpoint reports whether the node with the given ID has a breakpoint.
func (e *Engine) HasBreakpoint(nodeID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.breakpoints[nodeID]
	return ok
}

// Breakpoints returns the IDs of every node with a breakpoint, sorted.
func (e *Engine) Breakpoints() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.breakpoints))
	for id := range e.breakpoints {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Continue resumes a run paused at a breakpoint. It is a no-op when the
// engine is not paused.
func (e *Engine) Continue() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.resume != nil {
		close(e.resume)
		e.resume = nil
	}
}

// Step resumes a paused run exactly like Continue.
func (e *Engine) Step() {
	e.Continue()
}

// CurrentPausedNode returns the node the run is paused at, or nil.
func (e *Engine) CurrentPausedNode() *workflow.Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// State returns the engine's lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// ExecutionResults returns a snapshot of the results recorded by the current
// or most recent run.
func (e *Engine) ExecutionResults() map[*workflow.Node]executor.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() map[*workflow.Node]executor.Result {
	out := make(map[*workflow.Node]executor.Result, len(e.results))
	for n, r := range e.results {
		out[n] = r
	}
	return out
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = s
}

func (e *Engine) shouldBreak(node *workflow.Node) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.debugMode {
		return false
	}
	_, ok := e.breakpoints[node.ID]
	return ok
}
