package evaluate

import (
	"sort"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// InputVariable is the only variable visible to evaluated code. It holds the
// merged output of the node's upstream nodes.
const InputVariable = "input"

// functions is the fixed set of pure functions available to evaluated code.
// None of them touch the filesystem, the network or the process.
var functions = map[string]function.Function{
	"upper":      stdlib.UpperFunc,
	"lower":      stdlib.LowerFunc,
	"format":     stdlib.FormatFunc,
	"join":       stdlib.JoinFunc,
	"split":      stdlib.SplitFunc,
	"trimspace":  stdlib.TrimSpaceFunc,
	"replace":    stdlib.ReplaceFunc,
	"substr":     stdlib.SubstrFunc,
	"strlen":     stdlib.StrlenFunc,
	"length":     stdlib.LengthFunc,
	"concat":     stdlib.ConcatFunc,
	"keys":       stdlib.KeysFunc,
	"values":     stdlib.ValuesFunc,
	"lookup":     stdlib.LookupFunc,
	"merge":      stdlib.MergeFunc,
	"coalesce":   stdlib.CoalesceFunc,
	"abs":        stdlib.AbsoluteFunc,
	"max":        stdlib.MaxFunc,
	"min":        stdlib.MinFunc,
	"jsonencode": stdlib.JSONEncodeFunc,
	"jsondecode": stdlib.JSONDecodeFunc,
	"tostring":   stdlib.MakeToFunc(cty.String),
	"tonumber":   stdlib.MakeToFunc(cty.Number),
	"tobool":     stdlib.MakeToFunc(cty.Bool),
}

// FunctionNames returns the names of the available functions, sorted.
func FunctionNames() []string {
	names := make([]string, 0, len(functions))
	for name := range functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
