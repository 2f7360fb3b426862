package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFiles(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	root := t.TempDir()
	for _, rel := range []string{"b.hcl", "a.YAML", "nested/c.hcl", "notes.txt"} {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}

	// --- Act ---
	files, err := FindFiles(root, ".hcl", ".yaml")

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.YAML"),
		filepath.Join(root, "b.hcl"),
		filepath.Join(root, "nested", "c.hcl"),
	}, files)

	single, err := FindFiles(filepath.Join(root, "b.hcl"), ".hcl")
	require.NoError(t, err)
	assert.Len(t, single, 1)

	_, err = FindFiles(filepath.Join(root, "notes.txt"), ".hcl")
	assert.ErrorContains(t, err, "unsupported file type")

	_, err = FindFiles(filepath.Join(root, "missing"), ".hcl")
	assert.Error(t, err)
}

func TestFindFiles_PanicsWithoutExtensions(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { _, _ = FindFiles(".") })
}

func TestFindFiles_Glob(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	root := t.TempDir()
	for _, rel := range []string{"flows/a.hcl", "flows/deep/b.yml", "flows/deep/c.txt", "other/d.hcl"} {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}

	// --- Act ---
	files, err := FindFiles(filepath.Join(root, "flows", "**", "*"), ".hcl", ".yml")

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "flows", "a.hcl"),
		filepath.Join(root, "flows", "deep", "b.yml"),
	}, files)

	none, err := FindFiles(filepath.Join(root, "missing", "*.hcl"), ".hcl")
	require.NoError(t, err)
	assert.Empty(t, none)

	assert.True(t, IsGlob("flows/*.hcl"))
	assert.False(t, IsGlob("flows/main.hcl"))
}
