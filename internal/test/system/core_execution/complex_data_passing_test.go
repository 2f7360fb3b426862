package system

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/flowgridgo/internal/app"
	"github.com/specialistvlad/flowgridgo/internal/test/harness"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test for: data flows from a request through expression and template nodes
func TestCoreExecution_ComplexDataPassing(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"user": {"name": "ada", "langs": ["go", "hcl"]}}`)
	}))
	t.Cleanup(server.Close)

	hcl := fmt.Sprintf(`
node "wait" {
  type       = "delay"
  properties = { interval_ms = 20 }
}

node "fetch" {
  type       = "http_request"
  properties = { url = "%s/users/1" }
}

node "name" {
  type       = "evaluate"
  properties = { code = "upper(jsondecode(input.body).user.name)" }
}

node "greet" {
  type       = "evaluate"
  properties = {
    mode = "template"
    code = "Hello $${input.result}!"
  }
}

node "show" {
  type = "print"
}

connector {
  from = "wait.out"
  to   = "fetch.in"
}

connector {
  from = "fetch.out"
  to   = "name.in"
}

connector {
  from = "name.out"
  to   = "greet.in"
}

connector {
  from = "greet.out"
  to   = "show.in"
}
`, server.URL)
	dir := harness.WriteFiles(t, map[string]string{"main.hcl": hcl})
	testApp, out := harness.SetupApp(t, app.Config{WorkflowPath: filepath.Join(dir, "main.hcl")})

	// --- Act ---
	err := testApp.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Contains(t, out.String(), `result = "Hello ADA!"`)

	def := testApp.Definition()
	results := testApp.Engine().ExecutionResults()
	require.Len(t, results, 5)
	fetch, _ := def.NodeByName("fetch")
	assert.True(t, results[fetch].Output["is_success"].True())
}

// Test for: a node fed by two branches sees the later connector's keys
func TestCoreExecution_FanInMergeOrder(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	yaml := `
nodes:
  - name: root
    type: evaluate
    properties: {code: "{ a = 2 }"}
  - name: left
    type: evaluate
    properties: {code: "input.result.a + 1"}
  - name: right
    type: evaluate
    properties: {code: "input.result.a * 10"}
  - name: join
    type: evaluate
    properties: {code: "input.result"}
connectors:
  - {from: root.out, to: left.in}
  - {from: root.out, to: right.in}
  - {from: left.out, to: join.in}
  - {from: right.out, to: join.in}
`
	dir := harness.WriteFiles(t, map[string]string{"diamond.yaml": yaml})
	testApp, _ := harness.SetupApp(t, app.Config{WorkflowPath: filepath.Join(dir, "diamond.yaml")})

	// --- Act ---
	err := testApp.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	def := testApp.Definition()
	results := testApp.Engine().ExecutionResults()

	join, _ := def.NodeByName("join")
	got, _ := results[join].Output["result"].AsBigFloat().Int64()
	assert.Equal(t, int64(20), got)

	var order []string
	for _, step := range testApp.Debugger().History() {
		order = append(order, step.Node.Name)
	}
	assert.Equal(t, []string{"root", "left", "right", "join"}, order)
}
