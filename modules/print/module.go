// Package print provides the "print" node, which writes its input to the
// application's output and passes it through unchanged.
package print

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/specialistvlad/flowgridgo/internal/ctxlog"
	"github.com/specialistvlad/flowgridgo/internal/executor"
	"github.com/specialistvlad/flowgridgo/internal/property"
	"github.com/specialistvlad/flowgridgo/internal/registry"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Type is the node type handled by this module.
const Type = "print"

// Module implements the registry.Module interface for this package.
type Module struct {
	// Out receives the printed lines. os.Stdout is used when nil.
	Out io.Writer
}

// Register registers the executor with the registry.
func (m *Module) Register(r *registry.Registry) {
	out := m.Out
	if out == nil {
		out = os.Stdout
	}
	r.Register(Type, &Executor{out: out})
}

// Executor prints the sorted input bag.
type Executor struct {
	mu  sync.Mutex
	out io.Writer
}

// Execute implements executor.Executor.
func (e *Executor) Execute(ctx context.Context, props *property.Bag, in executor.Input) executor.Result {
	start := time.Now()
	ctxlog.FromContext(ctx).Info("Printing input.", "keys", len(in.Data))

	title, err := props.String("title", "")
	if err != nil {
		return executor.Failed(start, "invalid title: %v", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if title != "" {
		fmt.Fprintf(e.out, "%s\n", title)
	}
	if len(in.Data) == 0 {
		fmt.Fprintln(e.out, "      (null)")
	}
	out := make(executor.Data, len(in.Data))
	for _, k := range property.SortedKeys(in.Data) {
		v := in.Data[k]
		fmt.Fprintf(e.out, "      %s = %s\n", k, render(v))
		out[k] = v
	}
	return executor.Succeeded(start, out)
}

// render prints strings verbatim-quoted and everything else as JSON.
func render(v cty.Value) string {
	if v.IsKnown() && !v.IsNull() && v.Type() == cty.String {
		return fmt.Sprintf("%q", v.AsString())
	}
	b, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return v.GoString()
	}
	return string(b)
}
