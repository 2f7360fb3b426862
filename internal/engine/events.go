package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/specialistvlad/flowgridgo/internal/ctxlog"
	"github.com/specialistvlad/flowgridgo/internal/executor"
	"github.com/specialistvlad/flowgridgo/internal/workflow"
)

// EventType identifies a point in the execution lifecycle.
type EventType int

const (
	WorkflowStarting EventType = iota
	NodeStarting
	BreakpointHit
	NodeCompleted
	WorkflowCompleted
)

func (t EventType) String() string {
	switch t {
	case WorkflowStarting:
		return "workflow_starting"
	case NodeStarting:
		return "node_starting"
	case BreakpointHit:
		return "breakpoint_hit"
	case NodeCompleted:
		return "node_completed"
	case WorkflowCompleted:
		return "workflow_completed"
	}
	return fmt.Sprintf("EventType(%d)", int(t))
}

// Event is delivered to subscribers. Fields that do not apply to the event
// type are nil.
type Event struct {
	Type       EventType
	RunID      string
	Time       time.Time
	Definition *workflow.Definition
	// Node is set for NodeStarting, BreakpointHit and NodeCompleted.
	Node *workflow.Node
	// Input is set for NodeStarting and BreakpointHit.
	Input *executor.Input
	// Result is set for NodeCompleted.
	Result *executor.Result
	// Workflow is set for WorkflowCompleted.
	Workflow *WorkflowResult
}

// Handler receives events on the engine's goroutine. A handler may call
// Continue or Step, including from a BreakpointHit event.
type Handler func(Event)

type subscription struct {
	id int
	fn Handler
}

// Subscribe registers h for every subsequent event and returns a function
// that removes it. Handlers run in subscription order.
func (e *Engine) Subscribe(h Handler) (unsubscribe func()) {
	e.subMu.Lock()
	id := e.nextSubID
	e.nextSubID++
	e.subs = append(e.subs, subscription{id: id, fn: h})
	e.subMu.Unlock()

	return func() {
		e.subMu.Lock()
		defer e.subMu.Unlock()
		for i, s := range e.subs {
			if s.id == id {
				e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
				return
			}
		}
	}
}

func (e *Engine) emit(ctx context.Context, ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	e.subMu.RLock()
	subs := make([]subscription, len(e.subs))
	copy(subs, e.subs)
	e.subMu.RUnlock()

	for _, s := range subs {
		e.deliver(ctx, s.fn, ev)
	}
}

func (e *Engine) deliver(ctx context.Context, h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			ctxlog.FromContext(ctx).Error("Event handler panicked.", "event", ev.Type.String(), "panic", r)
		}
	}()
	h(ev)
}
