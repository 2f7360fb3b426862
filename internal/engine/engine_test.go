package engine_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/flowgridgo/internal/engine"
	"github.com/specialistvlad/flowgridgo/internal/executor"
	"github.com/specialistvlad/flowgridgo/internal/property"
	"github.com/specialistvlad/flowgridgo/internal/registry"
	"github.com/specialistvlad/flowgridgo/internal/testutil"
	"github.com/specialistvlad/flowgridgo/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

const recordType = "record"

// fixture bundles an engine wired to a recorder module.
type fixture struct {
	engine   *engine.Engine
	recorder *testutil.Recorder
	registry *registry.Registry
	def      *workflow.Definition
}

func newFixture(t *testing.T, opts ...engine.Option) *fixture {
	t.Helper()
	rec := testutil.NewRecorder(recordType)
	r := registry.Load(rec)
	return &fixture{
		engine:   engine.New(r, opts...),
		recorder: rec,
		registry: r,
		def:      &workflow.Definition{},
	}
}

// node adds a recorder node labeled with its name. output, when given, is
// returned by the node as its output data.
func (f *fixture) node(name string, output map[string]cty.Value) *workflow.Node {
	n := workflow.NewNode(recordType, name)
	n.Properties.Set("label", cty.StringVal(name))
	if output != nil {
		n.Properties.Set("output", property.ObjectOf(output))
	}
	f.def.AddNode(n)
	return n
}

func (f *fixture) connect(from, to *workflow.Node) {
	f.def.Connect(from, "out", to, "in")
}

// eventLog collects events delivered by an engine.
type eventLog struct {
	mu     sync.Mutex
	events []engine.Event
}

func (l *eventLog) handle(ev engine.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

// trace renders events as "type" or "type:node" strings.
func (l *eventLog) trace() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.events))
	for _, ev := range l.events {
		if ev.Node != nil {
			out = append(out, fmt.Sprintf("%s:%s", ev.Type, ev.Node.Name))
		} else {
			out = append(out, ev.Type.String())
		}
	}
	return out
}

func resultNames(res map[*workflow.Node]executor.Result) map[string]bool {
	out := make(map[string]bool, len(res))
	for n, r := range res {
		out[n.Name] = r.Success
	}
	return out
}

func TestExecuteWorkflow_NoConnectorsRunsEveryNode(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	f := newFixture(t)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		f.node(name, nil)
	}

	// --- Act ---
	res := f.engine.ExecuteWorkflow(ctx, f.def)

	// --- Assert ---
	require.True(t, res.Success, res.ErrorMessage)
	assert.NoError(t, res.Err)
	assert.Len(t, f.def.StartingNodes(), 5)
	assert.Len(t, res.NodeResults, 5)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, f.recorder.Labels())
	assert.Equal(t, engine.Succeeded, f.engine.State())
	assert.NotEmpty(t, res.RunID)
}

func TestExecuteWorkflow_ChainPassesOutputDownstream(t *testing.T) {
	t.Parallel()

	ctx, _ := testutil.Context(t)
	f := newFixture(t)
	a := f.node("a", map[string]cty.Value{
		"count": cty.NumberIntVal(3),
		"name":  cty.StringVal("upstream"),
	})
	b := f.node("b", nil)
	f.connect(a, b)

	res := f.engine.ExecuteWorkflow(ctx, f.def)

	require.True(t, res.Success, res.ErrorMessage)
	calls := f.recorder.Calls()
	require.Len(t, calls, 2)

	aOut := res.NodeResults[a].Output
	bIn := calls[1].Input
	for k, v := range aOut {
		got, ok := bIn.Data[k]
		require.True(t, ok, "missing key %q", k)
		assert.True(t, v.RawEquals(got), "key %q", k)
	}
	require.NotNil(t, bIn.SourcePort)
	assert.Equal(t, "in", bIn.SourcePort.Name)
	assert.Empty(t, calls[0].Input.Data)
}

func TestExecuteWorkflow_DiamondMergesInConnectorOrder(t *testing.T) {
	t.Parallel()

	ctx, _ := testutil.Context(t)
	f := newFixture(t)
	a := f.node("a", nil)
	b := f.node("b", map[string]cty.Value{"k": cty.StringVal("from b"), "only_b": cty.True})
	c := f.node("c", map[string]cty.Value{"k": cty.StringVal("from c")})
	d := f.node("d", nil)
	f.connect(a, b)
	f.connect(a, c)
	f.connect(b, d)
	f.connect(c, d)

	res := f.engine.ExecuteWorkflow(ctx, f.def)

	require.True(t, res.Success, res.ErrorMessage)
	assert.Equal(t, []string{"a", "b", "c", "d"}, f.recorder.Labels())
	dIn := f.recorder.Calls()[3].Input.Data
	assert.Equal(t, "from c", dIn["k"].AsString())
	assert.True(t, dIn["only_b"].True())
}

func TestExecuteWorkflow_FailFast(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	f := newFixture(t)
	a := f.node("a", nil)
	b := f.node("broken", nil)
	b.Properties.Set("fail", cty.StringVal("boom"))
	c := f.node("c", nil)
	sibling := f.node("sibling", nil)
	f.connect(a, b)
	f.connect(b, c)
	f.connect(a, sibling)

	// --- Act ---
	res := f.engine.ExecuteWorkflow(ctx, f.def)

	// --- Assert ---
	require.False(t, res.Success)
	assert.ErrorIs(t, res.Err, engine.ErrNodeFailed)
	assert.Equal(t, "Node broken failed: boom", res.ErrorMessage)

	var engErr *engine.Error
	require.True(t, errors.As(res.Err, &engErr))
	assert.Same(t, b, engErr.Node)

	_, ranC := res.NodeResults[c]
	assert.False(t, ranC, "downstream of a failed node must not run")
	assert.Equal(t, map[string]bool{"a": true, "broken": false}, resultNames(res.NodeResults))
	assert.Equal(t, engine.Failed, f.engine.State())
}

func TestExecuteWorkflow_MissingExecutorIsDistinctFromNodeFailure(t *testing.T) {
	t.Parallel()

	ctx, _ := testutil.Context(t)
	f := newFixture(t)
	a := f.node("a", nil)
	ghost := workflow.NewNode("ghost", "haunted")
	f.def.AddNode(ghost)
	f.connect(a, ghost)

	res := f.engine.ExecuteWorkflow(ctx, f.def)

	require.False(t, res.Success)
	assert.ErrorIs(t, res.Err, engine.ErrExecutorNotFound)
	assert.NotErrorIs(t, res.Err, engine.ErrNodeFailed)
	assert.Contains(t, res.ErrorMessage, "ghost")
	assert.Contains(t, res.ErrorMessage, "haunted")
	assert.Len(t, res.NodeResults, 1)
}

func TestExecuteWorkflow_RejectsInvalidDefinitions(t *testing.T) {
	t.Parallel()

	t.Run("cycle", func(t *testing.T) {
		ctx, _ := testutil.Context(t)
		f := newFixture(t)
		a, b := f.node("a", nil), f.node("b", nil)
		f.connect(a, b)
		f.connect(b, a)
		log := &eventLog{}
		f.engine.Subscribe(log.handle)

		res := f.engine.ExecuteWorkflow(ctx, f.def)

		require.False(t, res.Success)
		assert.ErrorIs(t, res.Err, engine.ErrCycle)
		assert.Empty(t, f.recorder.Calls())
		assert.Equal(t, []string{"workflow_starting", "workflow_completed"}, log.trace())
	})

	t.Run("direction mismatch", func(t *testing.T) {
		ctx, _ := testutil.Context(t)
		f := newFixture(t)
		a, b := f.node("a", nil), f.node("b", nil)
		f.def.Connectors = append(f.def.Connectors, workflow.Connect(a.AddPort("in", workflow.Input), b.AddPort("in", workflow.Input)))

		res := f.engine.ExecuteWorkflow(ctx, f.def)

		assert.ErrorIs(t, res.Err, engine.ErrInvalidDefinition)
		assert.Empty(t, f.recorder.Calls())
	})

	t.Run("nil definition", func(t *testing.T) {
		ctx, _ := testutil.Context(t)
		f := newFixture(t)

		res := f.engine.ExecuteWorkflow(ctx, nil)

		assert.ErrorIs(t, res.Err, engine.ErrInvalidDefinition)
		require.NotNil(t, res.NodeResults)
	})
}

func TestExecuteWorkflow_EventOrder(t *testing.T) {
	t.Parallel()

	ctx, _ := testutil.Context(t)
	f := newFixture(t)
	a, b := f.node("a", nil), f.node("b", nil)
	f.connect(a, b)
	log := &eventLog{}
	unsubscribe := f.engine.Subscribe(log.handle)

	res := f.engine.ExecuteWorkflow(ctx, f.def)
	require.True(t, res.Success)

	want := []string{
		"workflow_starting",
		"node_starting:a", "node_completed:a",
		"node_starting:b", "node_completed:b",
		"workflow_completed",
	}
	if diff := cmp.Diff(want, log.trace()); diff != "" {
		t.Errorf("event order mismatch (-want +got):\n%s", diff)
	}

	log.mu.Lock()
	last := log.events[len(log.events)-1]
	first := log.events[0]
	log.mu.Unlock()
	assert.Same(t, res, last.Workflow)
	assert.Equal(t, res.RunID, first.RunID)
	assert.Same(t, f.def, first.Definition)

	unsubscribe()
	unsubscribe()
	f.engine.ExecuteWorkflow(ctx, f.def)
	assert.Len(t, log.trace(), len(want))
}

func TestExecuteWorkflow_HandlerPanicIsContained(t *testing.T) {
	t.Parallel()

	ctx, logs := testutil.Context(t)
	f := newFixture(t)
	f.node("a", nil)
	f.engine.Subscribe(func(engine.Event) { panic("bad handler") })
	log := &eventLog{}
	f.engine.Subscribe(log.handle)

	res := f.engine.ExecuteWorkflow(ctx, f.def)

	require.True(t, res.Success, res.ErrorMessage)
	assert.Len(t, log.trace(), 4)
	assert.Contains(t, logs.String(), "Event handler panicked.")
}

func TestExecuteWorkflow_ExecutorPanicBecomesInternalError(t *testing.T) {
	t.Parallel()

	ctx, _ := testutil.Context(t)
	f := newFixture(t)
	f.registry.Register("explode", executor.Func(func(context.Context, *property.Bag, executor.Input) executor.Result {
		panic("kaboom")
	}))
	a := f.node("a", nil)
	bad := workflow.NewNode("explode", "bad")
	f.def.AddNode(bad)
	f.connect(a, bad)
	log := &eventLog{}
	f.engine.Subscribe(log.handle)

	res := f.engine.ExecuteWorkflow(ctx, f.def)

	require.False(t, res.Success)
	assert.ErrorIs(t, res.Err, engine.ErrInternal)
	assert.Contains(t, res.ErrorMessage, "kaboom")
	assert.Equal(t, map[string]bool{"a": true}, resultNames(res.NodeResults))
	trace := log.trace()
	assert.Equal(t, "workflow_completed", trace[len(trace)-1])
}

func TestExecuteWorkflow_CanceledBeforeStart(t *testing.T) {
	t.Parallel()

	base, _ := testutil.Context(t)
	ctx, cancel := context.WithCancel(base)
	cancel()
	f := newFixture(t)
	f.node("a", nil)

	res := f.engine.ExecuteWorkflow(ctx, f.def)

	assert.ErrorIs(t, res.Err, engine.ErrCanceled)
	assert.Empty(t, f.recorder.Calls())
}

func TestExecuteWorkflow_CancelDuringExecutor(t *testing.T) {
	t.Parallel()

	base, _ := testutil.Context(t)
	ctx, cancel := context.WithTimeout(base, 50*time.Millisecond)
	defer cancel()
	f := newFixture(t)
	f.registry.Register("wait", executor.Func(func(ctx context.Context, _ *property.Bag, _ executor.Input) executor.Result {
		start := time.Now()
		<-ctx.Done()
		return executor.Failed(start, "stopped: %v", ctx.Err())
	}))
	slow := workflow.NewNode("wait", "slow")
	f.def.AddNode(slow)

	start := time.Now()
	res := f.engine.ExecuteWorkflow(ctx, f.def)

	assert.ErrorIs(t, res.Err, engine.ErrCanceled)
	assert.Contains(t, res.ErrorMessage, "slow")
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Len(t, res.NodeResults, 1)
}

func TestExecuteWorkflow_RerunClearsResults(t *testing.T) {
	t.Parallel()

	ctx, _ := testutil.Context(t)
	f := newFixture(t)
	a := f.node("a", nil)
	first := f.engine.ExecuteWorkflow(ctx, f.def)
	require.True(t, first.Success)

	other := &workflow.Definition{}
	b := workflow.NewNode(recordType, "b")
	other.AddNode(b)
	second := f.engine.ExecuteWorkflow(ctx, other)

	require.True(t, second.Success)
	_, stale := f.engine.ExecutionResults()[a]
	assert.False(t, stale)
	assert.Len(t, f.engine.ExecutionResults(), 1)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestExecuteWorkflow_RunIDOption(t *testing.T) {
	t.Parallel()

	ctx, _ := testutil.Context(t)
	f := newFixture(t, engine.WithRunID(func() string { return "run-1" }))
	f.node("a", nil)

	res := f.engine.ExecuteWorkflow(ctx, f.def)

	assert.Equal(t, "run-1", res.RunID)
}

func TestBreakpointConfiguration(t *testing.T) {
	t.Parallel()

	e := engine.New(registry.New())
	assert.False(t, e.DebugMode())
	e.SetDebugMode(true)
	assert.True(t, e.DebugMode())

	e.AddBreakpoint("b")
	e.AddBreakpoint("a")
	assert.Equal(t, []string{"a", "b"}, e.Breakpoints())
	assert.True(t, e.HasBreakpoint("a"))

	assert.False(t, e.ToggleBreakpoint("a"))
	assert.True(t, e.ToggleBreakpoint("c"))
	e.RemoveBreakpoint("b")
	assert.Equal(t, []string{"c"}, e.Breakpoints())

	e.ClearBreakpoints()
	assert.Empty(t, e.Breakpoints())
	assert.Equal(t, engine.Idle, e.State())
	assert.Equal(t, "idle", e.State().String())
}
