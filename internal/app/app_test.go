package app

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/flowgridgo/internal/debugrelay"
	"github.com/specialistvlad/flowgridgo/internal/engine"
	"github.com/specialistvlad/flowgridgo/internal/socketconn"
	"github.com/specialistvlad/flowgridgo/internal/testutil"
	"github.com/specialistvlad/flowgridgo/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chainHCL = `
node "a" {
  type       = "record"
  properties = { label = "a", output = { greeting = "hi" } }
}

node "b" {
  type       = "record"
  properties = { label = "b" }
}

connector {
  from = "a.out"
  to   = "b.in"
}
`

// writeWorkflow writes src to a temporary main.hcl and returns its path.
func writeWorkflow(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.hcl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))
	return path
}

// newTestApp creates an app with a recorder module and captures its output.
func newTestApp(t *testing.T, cfg Config) (*App, *testutil.Recorder, *testutil.SafeBuffer) {
	t.Helper()
	out := &testutil.SafeBuffer{}
	cfg.LogLevel = "debug"
	cfg.LogFormat = "text"
	rec := testutil.NewRecorder("record")
	a := NewApp(out, &cfg, rec)
	a.SetInput(strings.NewReader(""))
	t.Cleanup(func() {
		a.Debugger().Close()
		if t.Failed() || os.Getenv("FLOWGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), out.String())
		}
	})
	return a, rec, out
}

func TestNewConfig(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "minimal", cfg: Config{WorkflowPath: "flow.hcl"}},
		{name: "missing path", cfg: Config{}, wantErr: "WorkflowPath is a required"},
		{name: "bad port", cfg: Config{WorkflowPath: "x", HealthcheckPort: 70000}, wantErr: "invalid healthcheck port"},
		{name: "negative timeout", cfg: Config{WorkflowPath: "x", RequestTimeout: -time.Second}, wantErr: "must not be negative"},
		{name: "empty breakpoint", cfg: Config{WorkflowPath: "x", Breakpoints: []string{""}}, wantErr: "cannot be empty"},
		{name: "namespace without url", cfg: Config{WorkflowPath: "x", RelayNamespace: "/debug"}, wantErr: "requires a relay URL"},
		{name: "otlp endpoint with scheme", cfg: Config{WorkflowPath: "x", OTLPEndpoint: "https://collector"}, wantErr: "must be host:port"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := NewConfig(tc.cfg)
			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tc.cfg, *got); diff != "" {
				t.Errorf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConfig_DebugEnabled(t *testing.T) {
	t.Parallel()
	assert.False(t, (&Config{}).debugEnabled())
	assert.True(t, (&Config{Debug: true}).debugEnabled())
	assert.True(t, (&Config{Breakpoints: []string{"a"}}).debugEnabled())
	assert.True(t, (&Config{RelayURL: "http://localhost:1"}).debugEnabled())
}

func TestNewApp_RegistersCoreModules(t *testing.T) {
	t.Parallel()

	// --- Arrange & Act ---
	a := NewApp(&testutil.SafeBuffer{}, &Config{WorkflowPath: "x"})
	t.Cleanup(a.Debugger().Close)

	// --- Assert ---
	assert.Equal(t, []string{"delay", "env_vars", "evaluate", "http_request", "print", "s3", "socketio"}, a.Registry().Types())
	assert.False(t, a.Engine().DebugMode())
}

func TestRun_ExecutesWorkflowAndPrintsSummary(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	a, rec, out := newTestApp(t, Config{WorkflowPath: writeWorkflow(t, chainHCL)})

	// --- Act ---
	err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, rec.Labels())
	assert.Equal(t, "hi", rec.Calls()[1].Input.Data["greeting"].AsString())

	output := out.String()
	assert.Contains(t, output, "NODE")
	assert.Contains(t, output, "Workflow succeeded")
	assert.Equal(t, engine.Succeeded, a.Engine().State())
	require.NotNil(t, a.Definition())
}

func TestRun_FailureReturnsError(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	src := strings.Replace(chainHCL, `label = "a", output`, `label = "a", fail = "upstream exploded", output`, 1)
	a, rec, out := newTestApp(t, Config{WorkflowPath: writeWorkflow(t, src)})

	// --- Act ---
	err := a.Run(context.Background())

	// --- Assert ---
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrNodeFailed), "expected ErrNodeFailed, got %v", err)
	assert.Equal(t, []string{"a"}, rec.Labels())
	output := out.String()
	assert.Contains(t, output, "upstream exploded")
	assert.Contains(t, output, "skipped")
	assert.Contains(t, output, "Workflow failed")
}

func TestRun_LoadErrors(t *testing.T) {
	t.Parallel()

	t.Run("missing path", func(t *testing.T) {
		t.Parallel()
		a, _, _ := newTestApp(t, Config{WorkflowPath: filepath.Join(t.TempDir(), "nope.hcl")})
		assert.ErrorContains(t, a.Run(context.Background()), "failed to load workflow")
	})

	t.Run("unknown breakpoint node", func(t *testing.T) {
		t.Parallel()
		a, rec, _ := newTestApp(t, Config{WorkflowPath: writeWorkflow(t, chainHCL), Breakpoints: []string{"ghost"}})
		assert.ErrorContains(t, a.Run(context.Background()), "unknown node(s): ghost")
		assert.Empty(t, rec.Calls())
	})
}

func TestRun_ConsoleCommands(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		input     string
		wantErr   error
		wantCalls []string
	}{
		{name: "continue", input: "c\n", wantCalls: []string{"a", "b"}},
		{name: "step", input: "step\n", wantCalls: []string{"a", "b"}},
		{name: "unknown then continue", input: "dance\ncontinue\n", wantCalls: []string{"a", "b"}},
		{name: "end of input continues", input: "", wantCalls: []string{"a", "b"}},
		{name: "quit cancels", input: "q\n", wantErr: engine.ErrCanceled, wantCalls: []string{"a"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			a, rec, out := newTestApp(t, Config{WorkflowPath: writeWorkflow(t, chainHCL), Breakpoints: []string{"b"}})
			a.SetInput(strings.NewReader(tc.input))

			// --- Act ---
			err := a.Run(context.Background())

			// --- Assert ---
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tc.wantCalls, rec.Labels())
			assert.Contains(t, out.String(), "Paused before node b")
		})
	}
}

type fakeConn struct {
	mu       sync.Mutex
	events   []string
	handlers map[string]func(args ...any)
	closed   bool
}

func (c *fakeConn) Emit(event string, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *fakeConn) On(event string, fn func(args ...any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handlers == nil {
		c.handlers = make(map[string]func(args ...any))
	}
	c.handlers[event] = fn
}

func (c *fakeConn) Once(event string, fn func(args ...any)) {
	c.On(event, fn)
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func TestRun_RelayPublishesEvents(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	conn := &fakeConn{}
	var gotURL string
	var gotOpts socketconn.DialOptions
	a, _, _ := newTestApp(t, Config{
		WorkflowPath:   writeWorkflow(t, chainHCL),
		RelayURL:       "http://localhost:4000",
		RelayNamespace: "/debug",
	})
	a.SetDialer(func(ctx context.Context, url string, opts socketconn.DialOptions) (socketconn.Conn, error) {
		gotURL, gotOpts = url, opts
		return conn, nil
	})

	// --- Act ---
	err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:4000", gotURL)
	assert.Equal(t, "/debug", gotOpts.Namespace)

	conn.mu.Lock()
	defer conn.mu.Unlock()
	assert.Equal(t, []string{
		"workflow_starting",
		"node_starting", "node_completed",
		"node_starting", "node_completed",
		"workflow_completed",
	}, conn.events)
	assert.Contains(t, conn.handlers, debugrelay.CommandContinue)
	assert.Contains(t, conn.handlers, debugrelay.CommandStep)
	assert.True(t, conn.closed)
}

func TestRun_RelayDialError(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	a, rec, _ := newTestApp(t, Config{WorkflowPath: writeWorkflow(t, chainHCL), RelayURL: "http://localhost:4000"})
	a.SetDialer(func(context.Context, string, socketconn.DialOptions) (socketconn.Conn, error) {
		return nil, errors.New("connection refused")
	})

	// --- Act ---
	err := a.Run(context.Background())

	// --- Assert ---
	assert.ErrorContains(t, err, "failed to connect to debug relay: connection refused")
	assert.Empty(t, rec.Calls())
}

func TestRun_RemoteContinueResumesBreakpoint(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	conn := &fakeConn{}
	a, rec, _ := newTestApp(t, Config{
		WorkflowPath: writeWorkflow(t, chainHCL),
		Breakpoints:  []string{"b"},
		RelayURL:     "http://localhost:4000",
	})
	// Console input never arrives, only the relay can resume.
	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })
	a.SetInput(pr)
	a.SetDialer(func(context.Context, string, socketconn.DialOptions) (socketconn.Conn, error) {
		return conn, nil
	})
	a.Debugger().OnBreakpointHit(func(*workflow.Node) {
		conn.mu.Lock()
		fn := conn.handlers[debugrelay.CommandContinue]
		conn.mu.Unlock()
		go fn()
	})

	// --- Act ---
	err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, rec.Labels())
}
