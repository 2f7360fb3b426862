// Package env_vars provides the "env_vars" node, which exposes the process
// environment to downstream nodes.
package env_vars

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/specialistvlad/flowgridgo/internal/executor"
	"github.com/specialistvlad/flowgridgo/internal/property"
	"github.com/specialistvlad/flowgridgo/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Type is the node type handled by this module.
const Type = "env_vars"

// Module implements the registry.Module interface for this package.
type Module struct {
	// Environ overrides os.Environ, mostly for tests.
	Environ func() []string
}

// Register registers the executor with the registry.
func (m *Module) Register(r *registry.Registry) {
	environ := m.Environ
	if environ == nil {
		environ = os.Environ
	}
	r.Register(Type, executor.Func(func(ctx context.Context, props *property.Bag, in executor.Input) executor.Result {
		return run(environ, props)
	}))
}

// run collects every variable whose name starts with the node's prefix
// property into the "all" output.
func run(environ func() []string, props *property.Bag) executor.Result {
	start := time.Now()

	prefix, err := props.String("prefix", "")
	if err != nil {
		return executor.Failed(start, "invalid prefix: %v", err)
	}

	envMap := make(map[string]cty.Value)
	for _, e := range environ() {
		pair := strings.SplitN(e, "=", 2)
		if len(pair) == 2 && strings.HasPrefix(pair[0], prefix) {
			envMap[pair[0]] = cty.StringVal(pair[1])
		}
	}

	all := cty.MapValEmpty(cty.String)
	if len(envMap) > 0 {
		all = cty.MapVal(envMap)
	}
	return executor.Succeeded(start, executor.Data{"all": all})
}
