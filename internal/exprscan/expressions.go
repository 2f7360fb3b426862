package exprscan

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
)

// TraversalKey generates a stable, canonical string representation for an hcl.Traversal,
// suitable for use as a map key.
func TraversalKey(t hcl.Traversal) string {
	// e.g., input.foo[0].bar
	return string(hclwrite.TokensForTraversal(t).Bytes())
}

// Policy lists the root variables and functions an expression may use.
type Policy struct {
	Variables map[string]struct{}
	Functions map[string]struct{}
}

// NewPolicy builds a Policy from plain name lists.
func NewPolicy(variables, functions []string) Policy {
	p := Policy{
		Variables: make(map[string]struct{}, len(variables)),
		Functions: make(map[string]struct{}, len(functions)),
	}
	for _, v := range variables {
		p.Variables[v] = struct{}{}
	}
	for _, f := range functions {
		p.Functions[f] = struct{}{}
	}
	return p
}

// Check reports an error diagnostic for every reference or function call in
// the container that the policy does not allow.
func (c *Container) Check(p Policy) hcl.Diagnostics {
	var diags hcl.Diagnostics
	for _, t := range c.References() {
		if _, ok := p.Variables[t.RootName()]; !ok {
			rng := t.SourceRange()
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Variable not allowed",
				Detail:   fmt.Sprintf("The variable %q is not available here.", TraversalKey(t)),
				Subject:  &rng,
			})
		}
	}
	for _, name := range c.CalledFunctions() {
		if _, ok := p.Functions[name]; !ok {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Function not allowed",
				Detail:   fmt.Sprintf("The function %q is not available here.", name),
			})
		}
	}
	return diags
}

// extractReferencesAndFunctions walks through HCL expressions to find all unique
// variable traversals and function calls. The returned slices are sorted to
// ensure a deterministic order.
func extractReferencesAndFunctions(exprs ...hcl.Expression) ([]hcl.Traversal, []string) {
	traversals := make(map[string]hcl.Traversal)
	functions := make(map[string]struct{})

	for _, expr := range exprs {
		if expr == nil {
			continue
		}

		for _, traversal := range expr.Variables() {
			traversals[TraversalKey(traversal)] = traversal
		}

		// Variables() does not report function calls, so walk the syntax tree for them.
		if syntaxExpr, ok := expr.(hclsyntax.Expression); ok {
			walkForFunctions(syntaxExpr, functions)
		}
	}

	traversalKeys := make([]string, 0, len(traversals))
	for k := range traversals {
		traversalKeys = append(traversalKeys, k)
	}
	sort.Strings(traversalKeys)

	traversalSlice := make([]hcl.Traversal, 0, len(traversals))
	for _, k := range traversalKeys {
		traversalSlice = append(traversalSlice, traversals[k])
	}

	functionSlice := make([]string, 0, len(functions))
	for f := range functions {
		functionSlice = append(functionSlice, f)
	}
	sort.Strings(functionSlice)

	return traversalSlice, functionSlice
}

// walkForFunctions recursively walks the AST, looking only for function calls.
func walkForFunctions(expr hclsyntax.Expression, functions map[string]struct{}) {
	if expr == nil {
		return
	}
	switch e := expr.(type) {
	case *hclsyntax.FunctionCallExpr:
		functions[e.Name] = struct{}{}
		for _, arg := range e.Args {
			walkForFunctions(arg, functions)
		}
	case *hclsyntax.BinaryOpExpr:
		walkForFunctions(e.LHS, functions)
		walkForFunctions(e.RHS, functions)
	case *hclsyntax.ConditionalExpr:
		walkForFunctions(e.Condition, functions)
		walkForFunctions(e.TrueResult, functions)
		walkForFunctions(e.FalseResult, functions)
	case *hclsyntax.UnaryOpExpr:
		walkForFunctions(e.Val, functions)
	case *hclsyntax.TemplateExpr:
		for _, part := range e.Parts {
			walkForFunctions(part, functions)
		}
	case *hclsyntax.TemplateWrapExpr:
		walkForFunctions(e.Wrapped, functions)
	case *hclsyntax.TemplateJoinExpr:
		walkForFunctions(e.Tuple, functions)
	case *hclsyntax.TupleConsExpr:
		for _, item := range e.Exprs {
			walkForFunctions(item, functions)
		}
	case *hclsyntax.ObjectConsExpr:
		for _, item := range e.Items {
			walkForFunctions(item.KeyExpr, functions)
			walkForFunctions(item.ValueExpr, functions)
		}
	case *hclsyntax.ObjectConsKeyExpr:
		walkForFunctions(e.Wrapped, functions)
	case *hclsyntax.ForExpr:
		walkForFunctions(e.CollExpr, functions)
		walkForFunctions(e.KeyExpr, functions)
		walkForFunctions(e.ValExpr, functions)
		walkForFunctions(e.CondExpr, functions)
	case *hclsyntax.IndexExpr:
		walkForFunctions(e.Collection, functions)
		walkForFunctions(e.Key, functions)
	case *hclsyntax.RelativeTraversalExpr:
		walkForFunctions(e.Source, functions)
	case *hclsyntax.SplatExpr:
		walkForFunctions(e.Source, functions)
		walkForFunctions(e.Each, functions)
	case *hclsyntax.ParenthesesExpr:
		walkForFunctions(e.Expression, functions)
	}
}
