// Package debugrelay mirrors a debugging session to a remote socket.io
// server. Engine events are published as JSON-ready payloads; "continue" and
// "step" messages from the server resume a paused run.
package debugrelay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/specialistvlad/flowgridgo/internal/ctxlog"
	"github.com/specialistvlad/flowgridgo/internal/debugger"
	"github.com/specialistvlad/flowgridgo/internal/engine"
	"github.com/specialistvlad/flowgridgo/internal/property"
	"github.com/specialistvlad/flowgridgo/internal/socketconn"
	"github.com/specialistvlad/flowgridgo/internal/workflow"
)

// Names of the inbound control messages.
const (
	CommandContinue = "continue"
	CommandStep     = "step"
)

// Relay publishes a controller's events over a Conn.
type Relay struct {
	conn   socketconn.Conn
	ctrl   *debugger.Controller
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// New attaches a relay to ctrl and starts listening for control messages.
func New(ctx context.Context, conn socketconn.Conn, ctrl *debugger.Controller) *Relay {
	r := &Relay{
		conn:   conn,
		ctrl:   ctrl,
		logger: ctxlog.FromContext(ctx).With("component", "debugrelay"),
	}
	ctrl.OnEvent(r.publish)
	conn.On(CommandContinue, func(...any) {
		r.logger.Info("Remote continue received.")
		ctrl.Continue()
	})
	conn.On(CommandStep, func(...any) {
		r.logger.Info("Remote step received.")
		ctrl.Step()
	})
	return r
}

// Close stops publishing and closes the connection.
func (r *Relay) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.conn.Close()
}

func (r *Relay) publish(ev engine.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	payload := Payload(ev)
	r.logger.Debug("Publishing event.", "event", ev.Type.String())
	r.conn.Emit(ev.Type.String(), payload)
}

// Payload converts an engine event into plain data suitable for JSON.
func Payload(ev engine.Event) map[string]any {
	p := map[string]any{
		"run_id": ev.RunID,
		"time":   ev.Time.UTC().Format(time.RFC3339Nano),
	}
	if ev.Node != nil {
		p["node"] = nodeInfo(ev.Node)
	}
	if ev.Input != nil {
		p["input"] = property.DataToGo(ev.Input.Data)
	}
	if ev.Result != nil {
		p["success"] = ev.Result.Success
		p["output"] = property.DataToGo(ev.Result.Output)
		p["error"] = ev.Result.ErrorMessage
		p["duration_ms"] = ev.Result.Duration.Milliseconds()
	}
	switch ev.Type {
	case engine.WorkflowStarting:
		if ev.Definition != nil {
			nodes := make([]any, 0, len(ev.Definition.Nodes))
			for _, n := range ev.Definition.Nodes {
				nodes = append(nodes, nodeInfo(n))
			}
			p["nodes"] = nodes
		}
	case engine.WorkflowCompleted:
		if w := ev.Workflow; w != nil {
			p["success"] = w.Success
			p["error"] = w.ErrorMessage
			p["duration_ms"] = w.Duration.Milliseconds()
			p["node_count"] = len(w.NodeResults)
		}
	}
	return p
}

func nodeInfo(n *workflow.Node) map[string]any {
	if n == nil {
		return nil
	}
	return map[string]any{
		"id":   n.ID,
		"name": n.Name,
		"type": n.Type,
	}
}
