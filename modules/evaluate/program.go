package evaluate

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/flowgridgo/internal/executor"
	"github.com/specialistvlad/flowgridgo/internal/exprscan"
	"github.com/specialistvlad/flowgridgo/internal/property"
	"github.com/zclconf/go-cty/cty"
)

// Mode selects how the code property is parsed.
type Mode string

const (
	// ModeExpression parses the code as a single HCL expression.
	ModeExpression Mode = "expression"
	// ModeTemplate parses the code as an HCL string template.
	ModeTemplate Mode = "template"
)

// ParseMode converts a mode property into a Mode. The empty string selects
// ModeExpression.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeExpression:
		return ModeExpression, nil
	case ModeTemplate:
		return ModeTemplate, nil
	}
	return "", fmt.Errorf("unknown mode %q, expected %q or %q", s, ModeExpression, ModeTemplate)
}

var policy = exprscan.NewPolicy([]string{InputVariable}, FunctionNames())

// Program is compiled code, ready to be evaluated any number of times.
type Program struct {
	mode Mode
	expr hcl.Expression
}

// Compile parses code and checks that it only uses the input variable and
// the available functions.
func Compile(mode Mode, code string) (*Program, error) {
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("property 'code' is required")
	}

	var (
		expr  hcl.Expression
		diags hcl.Diagnostics
	)
	start := hcl.Pos{Line: 1, Column: 1}
	switch mode {
	case ModeTemplate:
		expr, diags = hclsyntax.ParseTemplate([]byte(code), "code", start)
	default:
		expr, diags = hclsyntax.ParseExpression([]byte(code), "code", start)
	}
	if diags.HasErrors() {
		return nil, fmt.Errorf("compilation failed: %s", diags.Error())
	}

	c := exprscan.NewContainer()
	c.Add(expr)
	if diags := c.Check(policy); diags.HasErrors() {
		return nil, fmt.Errorf("compilation failed: %s", diags.Error())
	}
	return &Program{mode: mode, expr: expr}, nil
}

// Eval evaluates the program against an input data bag.
func (p *Program) Eval(data executor.Data) (cty.Value, error) {
	ctx := &hcl.EvalContext{
		Variables: map[string]cty.Value{InputVariable: property.ObjectOf(data)},
		Functions: functions,
	}
	v, diags := p.expr.Value(ctx)
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("evaluation failed: %s", diags.Error())
	}
	return v, nil
}
