package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/specialistvlad/flowgridgo/internal/executor"
	"github.com/specialistvlad/flowgridgo/internal/property"
	"github.com/specialistvlad/flowgridgo/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Call is one invocation seen by a Recorder.
type Call struct {
	// Label is the node's "label" property, or "" when unset.
	Label string
	Input executor.Input
	Start time.Time
	End   time.Time
}

// Recorder is a shared, self-contained module for engine tests. It records
// every invocation in order and answers with the node's "output" property
// (an object) merged with {"label": <label>}. A node whose "fail" property
// is set fails with that message.
type Recorder struct {
	Type  string
	Sleep time.Duration

	mu    sync.Mutex
	calls []Call
}

// NewRecorder creates a recorder registered under nodeType.
func NewRecorder(nodeType string) *Recorder {
	return &Recorder{Type: nodeType}
}

// Register registers the recorder's executor.
func (r *Recorder) Register(reg *registry.Registry) {
	reg.Register(r.Type, r)
}

// Execute implements executor.Executor.
func (r *Recorder) Execute(ctx context.Context, props *property.Bag, in executor.Input) executor.Result {
	start := time.Now()
	label, _ := props.String("label", "")

	if r.Sleep > 0 {
		select {
		case <-time.After(r.Sleep):
		case <-ctx.Done():
		}
	}

	r.mu.Lock()
	r.calls = append(r.calls, Call{Label: label, Input: in, Start: start, End: time.Now()})
	r.mu.Unlock()

	if msg, _ := props.String("fail", ""); msg != "" {
		return executor.Failed(start, "%s", msg)
	}

	out := executor.Data{"label": cty.StringVal(label)}
	if v, ok := props.Get("output"); ok && !v.IsNull() && (v.Type().IsObjectType() || v.Type().IsMapType()) {
		for it := v.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			out[k.AsString()] = ev
		}
	}
	return executor.Succeeded(start, out)
}

// Calls returns a copy of the recorded invocations.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Labels returns the labels of the recorded invocations in call order.
func (r *Recorder) Labels() []string {
	calls := r.Calls()
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.Label)
	}
	return out
}
