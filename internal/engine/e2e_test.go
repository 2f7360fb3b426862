package engine_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/specialistvlad/flowgridgo/internal/engine"
	"github.com/specialistvlad/flowgridgo/internal/registry"
	"github.com/specialistvlad/flowgridgo/internal/testutil"
	"github.com/specialistvlad/flowgridgo/internal/workflow"
	"github.com/specialistvlad/flowgridgo/modules/delay"
	"github.com/specialistvlad/flowgridgo/modules/evaluate"
	"github.com/specialistvlad/flowgridgo/modules/http_request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestEndToEnd_DelayRequestEvaluate(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"greeting":"hello","target":"world"}`))
	}))
	t.Cleanup(srv.Close)

	r := registry.Load(
		&delay.Module{},
		&http_request.Module{Client: http_request.NewClient(2 * time.Second)},
		&evaluate.Module{},
	)
	e := engine.New(r)

	def := &workflow.Definition{}
	wait := workflow.NewNode(delay.Type, "wait")
	wait.Properties.Set("interval_ms", cty.NumberIntVal(100))
	fetch := workflow.NewNode(http_request.Type, "fetch")
	fetch.Properties.Set("url", cty.StringVal(srv.URL))
	render := workflow.NewNode(evaluate.Type, "render")
	render.Properties.Set("code", cty.StringVal(
		`format("%s, %s! (status %d)", jsondecode(input.body).greeting, jsondecode(input.body).target, input.status_code)`,
	))
	def.AddNode(wait, fetch, render)
	def.Connect(wait, "out", fetch, "in")
	def.Connect(fetch, "out", render, "in")

	// --- Act ---
	res := e.ExecuteWorkflow(ctx, def)

	// --- Assert ---
	require.True(t, res.Success, res.ErrorMessage)
	assert.Len(t, res.NodeResults, 3)
	assert.GreaterOrEqual(t, res.NodeResults[wait].Duration, 90*time.Millisecond)

	out := res.NodeResults[render].Output["result"]
	require.Equal(t, cty.String, out.Type())
	assert.Equal(t, "hello, world! (status 200)", out.AsString())
	assert.True(t, strings.Contains(res.NodeResults[fetch].Output["body"].AsString(), "greeting"))
}
