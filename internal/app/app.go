package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/specialistvlad/flowgridgo/internal/ctxlog"
	"github.com/specialistvlad/flowgridgo/internal/debugger"
	"github.com/specialistvlad/flowgridgo/internal/definition"
	"github.com/specialistvlad/flowgridgo/internal/engine"
	"github.com/specialistvlad/flowgridgo/internal/registry"
	"github.com/specialistvlad/flowgridgo/internal/socketconn"
	"github.com/specialistvlad/flowgridgo/internal/workflow"
	"github.com/specialistvlad/flowgridgo/modules/http_request"
)

// DialFunc opens the connection used by the remote debug relay.
type DialFunc func(ctx context.Context, url string, opts socketconn.DialOptions) (socketconn.Conn, error)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	in       io.Reader
	logger   *slog.Logger
	config   *Config
	client   *http.Client
	registry *registry.Registry
	engine   *engine.Engine
	debugger *debugger.Controller
	loader   *definition.Loader
	dial     DialFunc

	// telemetry is nil unless an OTLP endpoint is configured.
	telemetry *telemetry

	// hits carries breakpoint nodes to the debug console.
	hits chan *workflow.Node

	mu         sync.Mutex
	definition *workflow.Definition
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
// When no modules are given the core modules are registered.
func NewApp(outW io.Writer, cfg *Config, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	client := http_request.NewClient(cfg.RequestTimeout)
	if len(modules) == 0 {
		modules = coreModules(outW, client)
	}
	reg := registry.Load(modules...)
	logger.Debug("All Go modules registered.", "count", len(modules), "types", reg.Types())

	var tel *telemetry
	var engineOpts []engine.Option
	if cfg.OTLPEndpoint != "" {
		var err error
		tel, err = newTelemetry(context.Background(), cfg.OTLPEndpoint)
		if err != nil {
			logger.Warn("Telemetry export disabled.", "error", err)
		} else {
			logger.Debug("Exporting telemetry.", "endpoint", cfg.OTLPEndpoint)
			engineOpts = append(engineOpts, engine.WithTracer(tel.tracer), engine.WithMeter(tel.meter))
		}
	}

	eng := engine.New(reg, engineOpts...)
	eng.SetDebugMode(cfg.debugEnabled())

	a := &App{
		outW:      outW,
		in:        os.Stdin,
		logger:    logger,
		config:    cfg,
		client:    client,
		registry:  reg,
		engine:    eng,
		debugger:  debugger.New(eng),
		loader:    definition.NewLoader(),
		dial:      socketconn.Dial,
		telemetry: tel,
		hits:      make(chan *workflow.Node, 1),
	}
	a.debugger.OnBreakpointHit(a.notifyConsole)
	a.debugger.OnEvent(a.logEvent)
	return a
}

// SetInput replaces the reader the debug console reads commands from.
func (a *App) SetInput(r io.Reader) {
	a.in = r
}

// SetDialer replaces the function used to connect to the debug relay.
func (a *App) SetDialer(fn DialFunc) {
	if fn != nil {
		a.dial = fn
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Engine returns the application's engine.
func (a *App) Engine() *engine.Engine {
	return a.engine
}

// Debugger returns the debug controller attached to the engine.
func (a *App) Debugger() *debugger.Controller {
	return a.debugger
}

// Definition returns the workflow loaded by Run, or nil before loading.
func (a *App) Definition() *workflow.Definition {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.definition
}

func (a *App) logEvent(ev engine.Event) {
	switch ev.Type {
	case engine.NodeCompleted:
		if ev.Result != nil && !ev.Result.Success {
			a.logger.Warn("Node failed.", "node", ev.Node.String(), "error", ev.Result.ErrorMessage)
		}
	case engine.BreakpointHit:
		a.logger.Info("Paused at breakpoint.", "node", ev.Node.String())
	}
}

// context returns ctx carrying the application's logger.
func (a *App) context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}
