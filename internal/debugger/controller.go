// Package debugger wraps an engine for interactive debugging. It mirrors
// engine events to registered callbacks, reports the paused node, keeps a
// history of completed nodes and forwards debug controls to the engine. It
// contains no execution logic of its own.
package debugger

import (
	"sync"
	"time"

	"github.com/specialistvlad/flowgridgo/internal/engine"
	"github.com/specialistvlad/flowgridgo/internal/executor"
	"github.com/specialistvlad/flowgridgo/internal/workflow"
)

// Step is one completed node in the execution history.
type Step struct {
	Node   *workflow.Node
	Result executor.Result
	At     time.Time
}

// Controller observes an engine and re-exposes its debug state.
type Controller struct {
	engine      *engine.Engine
	unsubscribe func()

	mu        sync.Mutex
	history   []Step
	debugging []func(*workflow.Node, executor.Input)
	inspected []func(*workflow.Node, executor.Result)
	hits      []func(*workflow.Node)
	events    []engine.Handler
}

// New creates a controller subscribed to e. Call Close to detach it.
func New(e *engine.Engine) *Controller {
	c := &Controller{engine: e}
	c.unsubscribe = e.Subscribe(c.handle)
	return c
}

// Engine returns the wrapped engine.
func (c *Controller) Engine() *engine.Engine {
	return c.engine
}

// OnNodeDebugging registers fn to run whenever a node is about to execute.
func (c *Controller) OnNodeDebugging(fn func(node *workflow.Node, in executor.Input)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.debugging = append(c.debugging, fn)
}

// OnNodeInspection registers fn to run whenever a node completes.
func (c *Controller) OnNodeInspection(fn func(node *workflow.Node, res executor.Result)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inspected = append(c.inspected, fn)
}

// OnBreakpointHit registers fn to run whenever the run pauses. fn may call
// Continue or Step directly.
func (c *Controller) OnBreakpointHit(fn func(node *workflow.Node)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hits = append(c.hits, fn)
}

// OnEvent registers fn for every engine event, after the controller has
// updated its own state for it.
func (c *Controller) OnEvent(fn engine.Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, fn)
}

// PausedNode returns the node the run is paused at, or nil. It turns nil as
// soon as the run resumes, before the node executes.
func (c *Controller) PausedNode() *workflow.Node {
	return c.engine.CurrentPausedNode()
}

// IsPaused reports whether the run is waiting at a breakpoint.
func (c *Controller) IsPaused() bool {
	return c.PausedNode() != nil
}

// History returns the nodes completed by the current or most recent run, in
// completion order.
func (c *Controller) History() []Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Step(nil), c.history...)
}

// Continue resumes a paused run.
func (c *Controller) Continue() {
	c.engine.Continue()
}

// Step resumes a paused run. It behaves exactly like Continue.
func (c *Controller) Step() {
	c.engine.Step()
}

// SetDebugMode turns breakpoint handling on or off.
func (c *Controller) SetDebugMode(on bool) {
	c.engine.SetDebugMode(on)
}

// ToggleBreakpoint flips the breakpoint on node and reports whether it is set.
func (c *Controller) ToggleBreakpoint(node *workflow.Node) bool {
	return c.engine.ToggleBreakpoint(node.ID)
}

// SetBreakpoint sets or clears the breakpoint on node.
func (c *Controller) SetBreakpoint(node *workflow.Node, on bool) {
	if on {
		c.engine.AddBreakpoint(node.ID)
	} else {
		c.engine.RemoveBreakpoint(node.ID)
	}
}

// HasBreakpoint reports whether node has a breakpoint.
func (c *Controller) HasBreakpoint(node *workflow.Node) bool {
	return c.engine.HasBreakpoint(node.ID)
}

// Close detaches the controller from the engine.
func (c *Controller) Close() {
	c.unsubscribe()
}

func (c *Controller) handle(ev engine.Event) {
	c.mu.Lock()
	switch ev.Type {
	case engine.WorkflowStarting:
		c.history = nil
	case engine.NodeCompleted:
		if ev.Result != nil {
			c.history = append(c.history, Step{Node: ev.Node, Result: *ev.Result, At: ev.Time})
		}
	}
	debugging := append([]func(*workflow.Node, executor.Input){}, c.debugging...)
	inspected := append([]func(*workflow.Node, executor.Result){}, c.inspected...)
	hits := append([]func(*workflow.Node){}, c.hits...)
	events := append([]engine.Handler{}, c.events...)
	c.mu.Unlock()

	switch ev.Type {
	case engine.NodeStarting:
		var in executor.Input
		if ev.Input != nil {
			in = *ev.Input
		}
		for _, fn := range debugging {
			fn(ev.Node, in)
		}
	case engine.BreakpointHit:
		for _, fn := range hits {
			fn(ev.Node)
		}
	case engine.NodeCompleted:
		if ev.Result != nil {
			for _, fn := range inspected {
				fn(ev.Node, *ev.Result)
			}
		}
	}

	for _, fn := range events {
		fn(ev)
	}
}
