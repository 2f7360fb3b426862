// Package evaluate provides the "evaluate" node, which computes a value from
// its input with a small HCL expression or template.
//
// Evaluated code sees a single variable, input, and a fixed set of pure
// functions (see FunctionNames). It has no access to the host process.
package evaluate

import (
	"context"
	"sync"
	"time"

	"github.com/specialistvlad/flowgridgo/internal/ctxlog"
	"github.com/specialistvlad/flowgridgo/internal/executor"
	"github.com/specialistvlad/flowgridgo/internal/property"
	"github.com/specialistvlad/flowgridgo/internal/registry"
)

// Type is the node type handled by this module.
const Type = "evaluate"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the executor with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(Type, NewExecutor())
}

type cacheKey struct {
	mode Mode
	code string
}

// Executor compiles a node's code once per distinct snippet and evaluates it
// on every execution.
type Executor struct {
	mu       sync.Mutex
	compiled map[cacheKey]*Program
}

// NewExecutor creates an executor with an empty compilation cache.
func NewExecutor() *Executor {
	return &Executor{compiled: make(map[cacheKey]*Program)}
}

// Execute implements executor.Executor. The value is exposed as "result".
func (e *Executor) Execute(ctx context.Context, props *property.Bag, in executor.Input) executor.Result {
	start := time.Now()

	code, err := props.String("code", "")
	if err != nil {
		return executor.Failed(start, "invalid code: %v", err)
	}
	modeStr, err := props.String("mode", string(ModeExpression))
	if err != nil {
		return executor.Failed(start, "invalid mode: %v", err)
	}
	mode, err := ParseMode(modeStr)
	if err != nil {
		return executor.Failed(start, "%v", err)
	}

	prog, err := e.program(mode, code)
	if err != nil {
		return executor.Failed(start, "%v", err)
	}

	v, err := prog.Eval(in.Data)
	if err != nil {
		return executor.Failed(start, "%v", err)
	}

	ctxlog.FromContext(ctx).Debug("Evaluated code.", "mode", mode)
	return executor.Succeeded(start, executor.Data{"result": v})
}

func (e *Executor) program(mode Mode, code string) (*Program, error) {
	key := cacheKey{mode: mode, code: code}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.compiled == nil {
		e.compiled = make(map[cacheKey]*Program)
	}
	if p, ok := e.compiled[key]; ok {
		return p, nil
	}
	p, err := Compile(mode, code)
	if err != nil {
		return nil, err
	}
	e.compiled[key] = p
	return p, nil
}
