package engine

import (
	"errors"

	"github.com/specialistvlad/flowgridgo/internal/workflow"
)

// Failure kinds reported in WorkflowResult.Err. Test them with errors.Is.
var (
	ErrExecutorNotFound  = errors.New("executor not found")
	ErrNodeFailed        = errors.New("node failed")
	ErrCycle             = errors.New("cycle detected")
	ErrInvalidDefinition = errors.New("invalid workflow definition")
	ErrInternal          = errors.New("internal engine error")
	ErrCanceled          = errors.New("workflow canceled")
	ErrBusy              = errors.New("engine is already executing a workflow")
)

// Error is the error returned for a failed run. Its message is the
// human-readable text also stored in WorkflowResult.ErrorMessage.
type Error struct {
	// Kind is one of the Err* sentinels.
	Kind error
	// Node is the node being processed when the run stopped, if any.
	Node    *workflow.Node
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, node *workflow.Node, message string) *Error {
	return &Error{Kind: kind, Node: node, Message: message}
}
