package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/flowgridgo/internal/debugrelay"
	"github.com/specialistvlad/flowgridgo/internal/definition"
	"github.com/specialistvlad/flowgridgo/internal/socketconn"
	"github.com/specialistvlad/flowgridgo/modules/http_request"
)

// Run loads the configured workflow and executes it once. It returns an
// error when loading fails or the workflow does not succeed.
func (a *App) Run(ctx context.Context) error {
	ctx = a.context(ctx)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.logger.Debug("App.Run method started.")
	defer http_request.CloseClient(a.client)
	defer a.closeTelemetry()

	if a.config.HealthcheckPort > 0 {
		a.startServer(a.config.HealthcheckPort)
		defer func() { _ = a.closeServer() }()
	}

	loaded, err := a.loader.Load(ctx, a.config.WorkflowPath)
	if err != nil {
		return fmt.Errorf("failed to load workflow: %w", err)
	}
	a.mu.Lock()
	a.definition = loaded.Definition
	a.mu.Unlock()
	a.logger.Info("Workflow loaded.", "nodes", len(loaded.Definition.Nodes), "connectors", len(loaded.Definition.Connectors))

	if err := a.applyBreakpoints(loaded); err != nil {
		return err
	}

	if a.engine.DebugMode() {
		consoleCtx, stopConsole := context.WithCancel(ctx)
		defer stopConsole()
		go a.runConsole(consoleCtx, cancel)

		if a.config.RelayURL != "" {
			conn, err := a.dial(ctx, a.config.RelayURL, socketconn.DialOptions{Namespace: a.config.RelayNamespace})
			if err != nil {
				return fmt.Errorf("failed to connect to debug relay: %w", err)
			}
			relay := debugrelay.New(ctx, conn, a.debugger)
			defer relay.Close()
		}
	}

	a.logger.Info("🚀 Starting workflow execution...")
	res := a.engine.ExecuteWorkflow(ctx, loaded.Definition)
	a.printSummary(loaded.Definition, res)

	if !res.Success {
		return fmt.Errorf("workflow failed: %w", res.Err)
	}
	a.logger.Info("🏁 Execution finished.", "duration", res.Duration)
	a.logger.Debug("App.Run method finished.")
	return nil
}

// applyBreakpoints sets the breakpoints marked in the definition files and
// the ones named in the configuration.
func (a *App) applyBreakpoints(loaded *definition.Loaded) error {
	for _, id := range loaded.Breakpoints {
		a.engine.AddBreakpoint(id)
	}

	var unknown []string
	for _, name := range a.config.Breakpoints {
		node, ok := loaded.Definition.NodeByName(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		a.debugger.SetBreakpoint(node, true)
	}
	if len(unknown) > 0 {
		return fmt.Errorf("breakpoint set on unknown node(s): %s", strings.Join(unknown, ", "))
	}

	if n := len(a.engine.Breakpoints()); n > 0 && !a.engine.DebugMode() {
		a.logger.Warn("Breakpoints are ignored outside debug mode.", "count", n)
	}
	return nil
}
