package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/specialistvlad/flowgridgo/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("flowgridgo", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
FlowGridGo - A visual workflow runner with breakpoint debugging.

Usage:
  flowgridgo [options] [WORKFLOW_PATH]

Arguments:
  WORKFLOW_PATH
    Path to a .hcl/.yaml file, a directory of them, or a glob such as "flows/**/*.hcl".

Debugging:
  With --debug (or --break, or --relay-url) the run pauses before every node
  with a breakpoint. Answer the prompt with c (continue), s (step) or q (quit).

Options:
`)
		flagSet.PrintDefaults()
	}

	workflowFlag := flagSet.String("workflow", "", "Path to the workflow file, directory or glob.")
	wFlag := flagSet.String("w", "", "Path to the workflow file, directory or glob (shorthand).")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check and debug API. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	debugFlag := flagSet.Bool("debug", false, "Honor breakpoints and enable the debug console.")
	breakFlag := flagSet.String("break", "", "Comma-separated node names to pause at. Implies --debug.")
	relayURLFlag := flagSet.String("relay-url", "", "socket.io server to publish debug events to. Implies --debug.")
	relayNSFlag := flagSet.String("relay-namespace", "", "socket.io namespace for the debug relay.")
	timeoutFlag := flagSet.Duration("request-timeout", 30*time.Second, "Timeout for every http_request node.")
	otlpFlag := flagSet.String("otlp-endpoint", "", "OTLP/HTTP collector host:port to export traces and metrics to.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *workflowFlag != "" {
		path = *workflowFlag
	} else if *wFlag != "" {
		path = *wFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Workflow path determined.", "path", path)

	if path == "" {
		slog.Debug("No workflow path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		WorkflowPath:    path,
		HealthcheckPort: *healthPortFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		Debug:           *debugFlag,
		Breakpoints:     splitList(*breakFlag),
		RelayURL:        *relayURLFlag,
		RelayNamespace:  *relayNSFlag,
		RequestTimeout:  *timeoutFlag,
		OTLPEndpoint:    *otlpFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

// splitList splits a comma-separated flag value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
