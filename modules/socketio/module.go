package socketio

import (
	"context"
	"errors"
	"time"

	"github.com/specialistvlad/flowgridgo/internal/ctxlog"
	"github.com/specialistvlad/flowgridgo/internal/executor"
	"github.com/specialistvlad/flowgridgo/internal/property"
	"github.com/specialistvlad/flowgridgo/internal/registry"
	"github.com/specialistvlad/flowgridgo/internal/socketconn"
	"github.com/zclconf/go-cty/cty"
)

// Type is the node type served by this module.
const Type = "socketio"

// DefaultTimeout bounds connecting and waiting for the response event.
const DefaultTimeout = 10 * time.Second

// DialFunc opens a socket.io connection.
type DialFunc func(ctx context.Context, url string, opts socketconn.DialOptions) (socketconn.Conn, error)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Dial defaults to socketconn.Dial.
	Dial DialFunc
}

// Register registers the executor with the registry.
func (m *Module) Register(r *registry.Registry) {
	dial := m.Dial
	if dial == nil {
		dial = socketconn.Dial
	}
	r.Register(Type, &Executor{Dial: dial})
}

// Executor connects to a socket.io server, optionally emits an event and
// optionally waits for a response event. Without an "emit_data" property the
// node's input data is emitted.
type Executor struct {
	Dial DialFunc
}

// Execute implements executor.Executor.
func (e *Executor) Execute(ctx context.Context, props *property.Bag, in executor.Input) executor.Result {
	start := time.Now()

	url, err := props.String("url", "")
	if err != nil || url == "" {
		return executor.Failed(start, "property 'url' is required")
	}
	namespace, _ := props.String("namespace", "/")
	emitEvent, _ := props.String("emit_event", "")
	onEvent, _ := props.String("on_event", "")
	if emitEvent == "" && onEvent == "" {
		return executor.Failed(start, "at least one of 'emit_event' or 'on_event' is required")
	}
	timeoutMS, err := props.Int("timeout_ms", DefaultTimeout.Milliseconds())
	if err != nil || timeoutMS <= 0 {
		return executor.Failed(start, "invalid timeout_ms")
	}
	insecure, err := props.Bool("insecure_skip_verify", false)
	if err != nil {
		return executor.Failed(start, "invalid insecure_skip_verify: %v", err)
	}
	timeout := time.Duration(timeoutMS) * time.Millisecond

	logger := ctxlog.FromContext(ctx).With("runner", "socketio", "url", url, "onEvent", onEvent, "emitEvent", emitEvent)
	logger.Debug("Handler started.")
	defer logger.Debug("Handler finished.")

	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := e.Dial(opCtx, url, socketconn.DialOptions{
		Namespace:          namespace,
		InsecureSkipVerify: insecure,
		ConnectTimeout:     timeout,
	})
	if err != nil {
		return executor.Failed(start, "connection failed: %v", err)
	}
	defer conn.Close()

	done := make(chan any, 1)
	if onEvent != "" {
		conn.Once(onEvent, func(args ...any) {
			var data any
			if len(args) > 0 {
				data = args[0]
			}
			select {
			case done <- data:
			default:
			}
		})
	}

	if emitEvent != "" {
		var payload any = property.DataToGo(in.Data)
		if v, ok := props.Get("emit_data"); ok {
			payload = property.ToGo(v)
		}
		logger.Info("Emitting event.", "event", emitEvent)
		conn.Emit(emitEvent, payload)
	}

	if onEvent == "" {
		return executor.Succeeded(start, executor.Data{
			"emitted":       cty.BoolVal(true),
			"response_data": cty.NullVal(cty.DynamicPseudoType),
		})
	}

	select {
	case data := <-done:
		v, err := property.FromGo(data)
		if err != nil {
			return executor.Failed(start, "invalid response data: %v", err)
		}
		logger.Info("Successfully received response event.", "event", onEvent)
		return executor.Succeeded(start, executor.Data{
			"emitted":       cty.BoolVal(emitEvent != ""),
			"response_data": v,
		})
	case <-opCtx.Done():
		if errors.Is(opCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return executor.Failed(start, "timed out after %s waiting for event '%s'", timeout, onEvent)
		}
		return executor.Failed(start, "canceled while waiting for event '%s': %v", onEvent, ctx.Err())
	}
}
