package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/specialistvlad/flowgridgo/internal/ctxlog"
	"github.com/specialistvlad/flowgridgo/internal/executor"
	"github.com/specialistvlad/flowgridgo/internal/workflow"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ExecuteWorkflow runs def to completion and reports the outcome. It never
// panics and never returns nil. Only one call may be in flight per engine; a
// concurrent call fails immediately with ErrBusy.
//
// ctx is passed to every executor and bounds breakpoint waits.
func (e *Engine) ExecuteWorkflow(ctx context.Context, def *workflow.Definition) *WorkflowResult {
	if !e.busy.CompareAndSwap(false, true) {
		return &WorkflowResult{
			ErrorMessage: ErrBusy.Error(),
			Err:          ErrBusy,
			NodeResults:  map[*workflow.Node]executor.Result{},
		}
	}
	defer e.busy.Store(false)

	start := time.Now()
	runID := e.newRunID()
	ctx, logger := ctxlog.With(ctx, "runID", runID)

	ctx, span := e.tracer.Start(ctx, "execute_workflow", trace.WithAttributes(
		attribute.String("flowgrid.run.id", runID),
	))
	defer span.End()

	e.mu.Lock()
	e.results = make(map[*workflow.Node]executor.Result)
	e.state = Running
	e.paused = nil
	e.resume = nil
	e.mu.Unlock()

	logger.Info("Workflow starting.")
	e.emit(ctx, Event{Type: WorkflowStarting, RunID: runID, Definition: def})

	err := e.run(ctx, runID, def)

	e.mu.Lock()
	res := &WorkflowResult{
		RunID:       runID,
		Success:     err == nil,
		Duration:    time.Since(start),
		NodeResults: e.snapshotLocked(),
	}
	e.paused = nil
	e.resume = nil
	if err == nil {
		e.state = Succeeded
	} else {
		e.state = Failed
	}
	e.mu.Unlock()

	if err != nil {
		res.Err = err
		res.ErrorMessage = err.Error()
		span.SetStatus(codes.Error, res.ErrorMessage)
		logger.Error("Workflow failed.", "error", err, "duration", res.Duration)
	} else {
		span.SetStatus(codes.Ok, "")
		logger.Info("Workflow completed.", "nodes", len(res.NodeResults), "duration", res.Duration)
	}

	e.metrics.recordRun(ctx, res.Success)
	e.emit(ctx, Event{Type: WorkflowCompleted, RunID: runID, Definition: def, Workflow: res})
	return res
}

func (e *Engine) run(ctx context.Context, runID string, def *workflow.Definition) (err error) {
	logger := ctxlog.FromContext(ctx)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Recovered from panic during execution.", "panic", r, "stack", string(debug.Stack()))
			err = newError(ErrInternal, nil, fmt.Sprintf("Internal error: %v", r))
		}
	}()

	if def == nil {
		return newError(ErrInvalidDefinition, nil, "Invalid workflow definition: definition is nil")
	}
	if err := def.Validate(); err != nil {
		if errors.Is(err, workflow.ErrCycle) {
			return newError(ErrCycle, nil, fmt.Sprintf("Invalid workflow definition: %v", err))
		}
		return newError(ErrInvalidDefinition, nil, err.Error())
	}

	pending := make(map[*workflow.Node]int, len(def.Nodes))
	for _, n := range def.Nodes {
		pending[n] = len(def.UpstreamNodes(n))
	}
	queue := def.StartingNodes()
	logger.Debug("Found starting nodes.", "count", len(queue))

	completed := 0
	for len(queue) > 0 {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return newError(ErrCanceled, nil, fmt.Sprintf("Workflow canceled: %v", ctxErr))
		}

		node := queue[0]
		queue = queue[1:]

		if err := e.executeNode(ctx, runID, def, node); err != nil {
			return err
		}
		completed++

		for _, next := range def.DownstreamNodes(node) {
			pending[next]--
			if pending[next] == 0 {
				logger.Debug("Unlocking downstream node.", "nodeID", next.ID)
				queue = append(queue, next)
			}
		}
	}

	if completed < len(def.Nodes) {
		return newError(ErrCycle, nil, fmt.Sprintf("Cycle detected: %d node(s) never became ready", len(def.Nodes)-completed))
	}
	return nil
}

func (e *Engine) executeNode(ctx context.Context, runID string, def *workflow.Definition, node *workflow.Node) error {
	ctx, logger := ctxlog.With(ctx, "nodeID", node.ID, "node", node.String(), "type", node.Type)

	in := e.gatherInput(def, node)

	logger.Debug("Node starting.")
	e.emit(ctx, Event{Type: NodeStarting, RunID: runID, Definition: def, Node: node, Input: &in})

	if e.shouldBreak(node) {
		if err := e.waitAtBreakpoint(ctx, runID, def, node, &in); err != nil {
			return err
		}
	}

	exec, ok := e.registry.Lookup(node.Type)
	if !ok {
		return newError(ErrExecutorNotFound, node, fmt.Sprintf("No executor registered for node type '%s' (node %s)", node.Type, node))
	}

	res, err := e.invoke(ctx, exec, node, in)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.results[node] = res
	e.mu.Unlock()

	logger.Debug("Node completed.", "success", res.Success, "duration", res.Duration)
	e.emit(ctx, Event{Type: NodeCompleted, RunID: runID, Definition: def, Node: node, Result: &res})

	if !res.Success {
		if ctx.Err() != nil {
			return newError(ErrCanceled, node, fmt.Sprintf("Node %s canceled: %s", node, res.ErrorMessage))
		}
		return newError(ErrNodeFailed, node, fmt.Sprintf("Node %s failed: %s", node, res.ErrorMessage))
	}
	return nil
}

// gatherInput merges the outputs of the node's completed upstream nodes in
// connector order. Later connectors overwrite earlier keys.
func (e *Engine) gatherInput(def *workflow.Definition, node *workflow.Node) executor.Input {
	in := executor.Input{Data: executor.Data{}}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range def.IncomingConnectors(node) {
		upstream, ok := def.NodeOwningPort(c.Source)
		if !ok {
			continue
		}
		res, ok := e.results[upstream]
		if !ok {
			continue
		}
		for k, v := range res.Output {
			in.Data[k] = v
		}
		in.SourcePort = c.Destination
	}
	return in
}

// waitAtBreakpoint pauses the run until Continue or Step is called or ctx is
// canceled. The resume signal exists before BreakpointHit is emitted, so a
// handler may resume synchronously.
func (e *Engine) waitAtBreakpoint(ctx context.Context, runID string, def *workflow.Definition, node *workflow.Node, in *executor.Input) error {
	logger := ctxlog.FromContext(ctx)

	signal := make(chan struct{})
	e.mu.Lock()
	e.resume = signal
	e.paused = node
	e.state = Paused
	e.mu.Unlock()

	logger.Info("Breakpoint hit, waiting for continue.")
	e.emit(ctx, Event{Type: BreakpointHit, RunID: runID, Definition: def, Node: node, Input: in})

	var err error
	select {
	case <-signal:
		logger.Info("Resuming from breakpoint.")
	case <-ctx.Done():
		err = newError(ErrCanceled, node, fmt.Sprintf("Workflow canceled at breakpoint on node %s: %v", node, ctx.Err()))
	}

	e.mu.Lock()
	if e.resume == signal {
		e.resume = nil
	}
	e.paused = nil
	e.state = Running
	e.mu.Unlock()
	return err
}

// invoke runs the executor under a node span. A panicking executor is
// reported as ErrInternal.
func (e *Engine) invoke(ctx context.Context, exec executor.Executor, node *workflow.Node, in executor.Input) (res executor.Result, err error) {
	ctx, span := e.tracer.Start(ctx, "execute_node "+node.String(), trace.WithAttributes(
		attribute.String("flowgrid.node.id", node.ID),
		attribute.String("flowgrid.node.type", node.Type),
	))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			ctxlog.FromContext(ctx).Error("Executor panicked.", "panic", r, "stack", string(debug.Stack()))
			span.SetStatus(codes.Error, fmt.Sprint(r))
			err = newError(ErrInternal, node, fmt.Sprintf("Internal error in node %s: %v", node, r))
		}
	}()

	res = exec.Execute(ctx, node.Properties, in)
	if res.Output == nil {
		res.Output = executor.Data{}
	}

	e.metrics.recordNode(ctx, node.Type, res.Success, res.Duration)
	span.SetAttributes(attribute.Bool("flowgrid.node.success", res.Success))
	if !res.Success {
		span.SetStatus(codes.Error, res.ErrorMessage)
	}
	return res, nil
}
