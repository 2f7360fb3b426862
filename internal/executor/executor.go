// Package executor defines the contract between the engine and the units of
// work bound to node types.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/specialistvlad/flowgridgo/internal/property"
	"github.com/specialistvlad/flowgridgo/internal/workflow"
	"github.com/zclconf/go-cty/cty"
)

// Data is a key/value data bag passed between nodes.
type Data = map[string]cty.Value

// Input is assembled by the engine for one node invocation.
type Input struct {
	// Data is the merged output of every completed upstream node.
	Data Data
	// SourcePort is the port that triggered the execution, if any.
	SourcePort *workflow.Port
}

// Result is produced by an Executor and owned by the engine afterwards.
type Result struct {
	Success      bool
	Output       Data
	ErrorMessage string
	Duration     time.Duration
}

// Executor is the behavior bound to a node type.
//
// Implementations must never panic and never leak a Go error: every failure
// is reported as a Result with Success set to false, a message, and the
// elapsed time. Execute may block on I/O and must honor ctx.
type Executor interface {
	Execute(ctx context.Context, props *property.Bag, in Input) Result
}

// Func adapts an ordinary function to the Executor interface.
type Func func(ctx context.Context, props *property.Bag, in Input) Result

// Execute calls f.
func (f Func) Execute(ctx context.Context, props *property.Bag, in Input) Result {
	return f(ctx, props, in)
}

// Succeeded builds a successful result timed from start.
func Succeeded(start time.Time, out Data) Result {
	if out == nil {
		out = Data{}
	}
	return Result{
		Success:  true,
		Output:   out,
		Duration: time.Since(start),
	}
}

// Failed builds a failed result timed from start.
func Failed(start time.Time, format string, args ...any) Result {
	return Result{
		Success:      false,
		Output:       Data{},
		ErrorMessage: fmt.Sprintf(format, args...),
		Duration:     time.Since(start),
	}
}
