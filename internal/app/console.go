package app

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/flowgridgo/internal/workflow"
)

// notifyConsole hands a breakpoint hit to the console without blocking the
// engine. An unread hit is stale once the engine pauses again, so it is
// replaced by node.
func (a *App) notifyConsole(node *workflow.Node) {
	for {
		select {
		case a.hits <- node:
			return
		default:
		}
		select {
		case <-a.hits:
		default:
		}
	}
}

// runConsole answers breakpoint hits with commands read line by line from
// the app's input: c/continue, s/step and q/quit. End of input continues
// every later breakpoint. It returns when ctx is done.
func (a *App) runConsole(ctx context.Context, cancelRun context.CancelFunc) {
	scanner := bufio.NewScanner(a.in)
	eof := false

	for {
		var node *workflow.Node
		select {
		case <-ctx.Done():
			return
		case node = <-a.hits:
		}
		if a.engine.CurrentPausedNode() != node {
			continue
		}

		if eof {
			a.debugger.Continue()
			continue
		}

		fmt.Fprintf(a.outW, "⏸  Paused before node %s (%s). [c]ontinue, [s]tep, [q]uit: ", node, node.Type)
		for {
			if !scanner.Scan() {
				a.logger.Debug("Console input closed, continuing.")
				eof = true
				a.debugger.Continue()
				break
			}
			if a.engine.CurrentPausedNode() != node {
				// Resumed elsewhere, e.g. by the relay.
				break
			}
			cmd := strings.ToLower(strings.TrimSpace(scanner.Text()))
			handled := true
			switch cmd {
			case "c", "continue", "":
				a.debugger.Continue()
			case "s", "step":
				a.debugger.Step()
			case "q", "quit":
				a.logger.Info("Quit requested from console.")
				cancelRun()
			default:
				handled = false
				fmt.Fprintf(a.outW, "Unknown command %q. [c]ontinue, [s]tep, [q]uit: ", cmd)
			}
			if handled {
				break
			}
		}
	}
}
