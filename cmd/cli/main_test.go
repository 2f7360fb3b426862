package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/flowgridgo/internal/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))
	return path
}

func TestRun_ExecutesWorkflow(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	path := writeFile(t, "main.hcl", `
node "wait" {
  type       = "delay"
  properties = { interval_ms = 10 }
}

node "square" {
  type       = "evaluate"
  properties = { code = "6 * 7" }
}

node "show" {
  type       = "print"
  properties = { title = "answer" }
}

connector {
  from = "wait.out"
  to   = "square.in"
}

connector {
  from = "square.out"
  to   = "show.in"
}
`)
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, []string{"--log-level", "warn", path})

	// --- Assert ---
	require.NoError(t, err)
	assert.Contains(t, out.String(), "result = 42")
	assert.Contains(t, out.String(), "Workflow succeeded")
}

func TestRun_InvalidWorkflow(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// Missing closing brace.
	path := writeFile(t, "main.hcl", `
		node "a" {
			type = "delay"
	`)
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, []string{path})

	// --- Assert ---
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load workflow")
	assert.Contains(t, err.Error(), "failed to parse HCL file")
}

func TestRun_FailedWorkflowReturnsError(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	path := writeFile(t, "main.yaml", `
nodes:
  - name: broken
    type: evaluate
    properties:
      code: "input.missing +"
`)
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, []string{"--log-level", "error", path})

	// --- Assert ---
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workflow failed")
	var exitErr *cli.ExitError
	assert.NotErrorAs(t, err, &exitErr)
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// The "-h" (help) flag should cause cli.Parse to return `shouldExit=true`.
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, []string{"-h"})

	// --- Assert ---
	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, []string{"--this-is-not-a-valid-flag"})

	// --- Assert ---
	require.Error(t, err, "run() should return an error when argument parsing fails")
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
}
