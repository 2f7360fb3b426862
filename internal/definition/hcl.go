package definition

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/flowgridgo/internal/workflow"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// hclRoot decodes every top-level block of a definition file.
type hclRoot struct {
	Nodes      []*hclNode      `hcl:"node,block"`
	Connectors []*hclConnector `hcl:"connector,block"`
	Remain     hcl.Body        `hcl:",remain"`
}

type hclNode struct {
	Name       string     `hcl:"name,label"`
	Type       string     `hcl:"type"`
	ID         string     `hcl:"id,optional"`
	Position   cty.Value  `hcl:"position,optional"`
	Breakpoint bool       `hcl:"breakpoint,optional"`
	Properties cty.Value  `hcl:"properties,optional"`
	Ports      []*hclPort `hcl:"port,block"`
}

type hclPort struct {
	Name      string `hcl:"name,label"`
	ID        string `hcl:"id,optional"`
	Direction string `hcl:"direction"`
}

type hclConnector struct {
	ID   string `hcl:"id,optional"`
	From string `hcl:"from"`
	To   string `hcl:"to"`
}

// decodeHCL parses one HCL definition file. Template sequences inside
// property strings are interpolated at load time; write "$${" to keep a
// literal "${" for an evaluate node.
func decodeHCL(parser *hclparse.Parser, filename string, src []byte) (*document, error) {
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	var root hclRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	doc := &document{}
	for _, n := range root.Nodes {
		spec := nodeSpec{
			Name:       n.Name,
			Type:       n.Type,
			ID:         n.ID,
			Breakpoint: n.Breakpoint,
			Source:     filename,
		}

		pos, err := decodePosition(n.Position)
		if err != nil {
			return nil, fmt.Errorf("%s: node '%s': %w", filename, n.Name, err)
		}
		spec.Position = pos

		props, err := decodeProperties(n.Properties)
		if err != nil {
			return nil, fmt.Errorf("%s: node '%s': %w", filename, n.Name, err)
		}
		spec.Properties = props

		for _, p := range n.Ports {
			spec.Ports = append(spec.Ports, portSpec{Name: p.Name, ID: p.ID, Direction: p.Direction})
		}
		doc.Nodes = append(doc.Nodes, spec)
	}
	for _, c := range root.Connectors {
		doc.Connectors = append(doc.Connectors, connectorSpec{ID: c.ID, From: c.From, To: c.To, Source: filename})
	}
	return doc, nil
}

func isUnset(v cty.Value) bool {
	return v == cty.NilVal || v.IsNull()
}

func decodePosition(v cty.Value) (workflow.Position, error) {
	var pos workflow.Position
	if isUnset(v) {
		return pos, nil
	}
	ty := v.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return pos, fmt.Errorf("position must be an object with x and y")
	}
	for it := v.ElementIterator(); it.Next(); {
		k, ev := it.Element()
		var f float64
		if err := gocty.FromCtyValue(ev, &f); err != nil {
			return pos, fmt.Errorf("position.%s: %w", k.AsString(), err)
		}
		switch k.AsString() {
		case "x":
			pos.X = f
		case "y":
			pos.Y = f
		default:
			return pos, fmt.Errorf("unsupported position attribute %q", k.AsString())
		}
	}
	return pos, nil
}

func decodeProperties(v cty.Value) (map[string]cty.Value, error) {
	if isUnset(v) {
		return nil, nil
	}
	ty := v.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, fmt.Errorf("properties must be an object")
	}
	out := make(map[string]cty.Value, v.LengthInt())
	for it := v.ElementIterator(); it.Next(); {
		k, ev := it.Element()
		out[k.AsString()] = ev
	}
	return out, nil
}
