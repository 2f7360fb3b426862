package testutil

import (
	"testing"

	"github.com/specialistvlad/flowgridgo/internal/executor"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

// RequireOutput checks that a result carries key with a value raw-equal to want.
func RequireOutput(t *testing.T, res executor.Result, key string, want cty.Value) {
	t.Helper()

	got, ok := res.Output[key]
	require.True(t, ok, "expected output key %q, got keys %v", key, keys(res.Output))
	require.True(t, got.RawEquals(want), "output %q: want %#v, got %#v", key, want, got)
}

func keys(d executor.Data) []string {
	out := make([]string, 0, len(d))
	for k := range d {
		out = append(out, k)
	}
	return out
}
