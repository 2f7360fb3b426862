// Package exprscan collects HCL expressions and reports what they reference:
// the variable traversals they read and the functions they call. The
// evaluation node uses it to reject snippets that reach outside the
// variables and functions it exposes.
package exprscan

import (
	"sync"

	"github.com/hashicorp/hcl/v2"
)

// Container gathers expressions and caches the references and function
// calls found in them. It is safe for concurrent use.
type Container struct {
	mu    sync.Mutex
	exprs []hcl.Expression
	scan  *scan
}

// scan is the cached analysis of every expression added so far.
type scan struct {
	refs  []hcl.Traversal
	funcs []string
}

// NewContainer returns an empty container.
func NewContainer() *Container {
	return &Container{}
}

// Add queues expressions for analysis. Nil expressions are ignored.
func (c *Container) Add(exprs ...hcl.Expression) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, expr := range exprs {
		if expr != nil {
			c.exprs = append(c.exprs, expr)
		}
	}
	c.scan = nil
}

func (c *Container) analysis() *scan {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.scan == nil {
		refs, funcs := extractReferencesAndFunctions(c.exprs...)
		c.scan = &scan{refs: refs, funcs: funcs}
	}
	return c.scan
}

// References returns the unique variable traversals, sorted by key.
func (c *Container) References() []hcl.Traversal {
	return c.analysis().refs
}

// CalledFunctions returns the unique names of called functions, sorted.
func (c *Container) CalledFunctions() []string {
	return c.analysis().funcs
}
