// Package harness builds applications for system tests from workflow files
// written to a temporary directory.
package harness

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/specialistvlad/flowgridgo/internal/app"
	"github.com/specialistvlad/flowgridgo/internal/registry"
	"github.com/specialistvlad/flowgridgo/internal/testutil"
	"github.com/stretchr/testify/require"
)

// WriteFiles writes every file of files (relative name to content) below a
// fresh temporary directory and returns the directory.
func WriteFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(src), 0o600))
	}
	return dir
}

// SetupApp creates an app for cfg with a debug text logger capturing its
// output. Console input is empty unless replaced with SetInput. With no
// modules the core modules are registered.
func SetupApp(t *testing.T, cfg app.Config, modules ...registry.Module) (*app.App, *testutil.SafeBuffer) {
	t.Helper()

	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	validated, err := app.NewConfig(cfg)
	require.NoError(t, err)

	out := &testutil.SafeBuffer{}
	a := app.NewApp(out, validated, modules...)
	a.SetInput(strings.NewReader(""))

	t.Cleanup(func() {
		a.Debugger().Close()
		if t.Failed() || os.Getenv("FLOWGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), out.String())
		}
	})
	return a, out
}
