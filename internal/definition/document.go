package definition

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/flowgridgo/internal/workflow"
	"github.com/zclconf/go-cty/cty"
)

// Loaded is the result of loading one or more definition files.
type Loaded struct {
	Definition *workflow.Definition
	// Breakpoints holds the IDs of the nodes marked with a breakpoint.
	Breakpoints []string
}

// nodeSpec, portSpec and connectorSpec are the format-neutral form both
// decoders produce.
type nodeSpec struct {
	Name       string
	Type       string
	ID         string
	Position   workflow.Position
	Breakpoint bool
	Properties map[string]cty.Value
	Ports      []portSpec
	Source     string
}

type portSpec struct {
	Name      string
	ID        string
	Direction string
}

type connectorSpec struct {
	ID     string
	From   string
	To     string
	Source string
}

type document struct {
	Nodes      []nodeSpec
	Connectors []connectorSpec
}

func (d *document) merge(other *document) {
	d.Nodes = append(d.Nodes, other.Nodes...)
	d.Connectors = append(d.Connectors, other.Connectors...)
}

// build turns a document into a workflow definition. Connectors are resolved
// by node name; ports they reference but that were not declared are created
// with the direction implied by their side of the connector.
func (d *document) build() (*Loaded, error) {
	def := &workflow.Definition{}
	loaded := &Loaded{Definition: def}
	byName := make(map[string]*workflow.Node, len(d.Nodes))

	for _, spec := range d.Nodes {
		if spec.Name == "" {
			return nil, fmt.Errorf("%s: node without a name", spec.Source)
		}
		if spec.Type == "" {
			return nil, fmt.Errorf("%s: node '%s' has no type", spec.Source, spec.Name)
		}
		if _, dup := byName[spec.Name]; dup {
			return nil, fmt.Errorf("%s: duplicate node name '%s'", spec.Source, spec.Name)
		}

		n := workflow.NewNode(spec.Type, spec.Name)
		if spec.ID != "" {
			n.ID = spec.ID
		}
		n.Position = spec.Position
		for k, v := range spec.Properties {
			n.Properties.Set(k, v)
		}
		for _, ps := range spec.Ports {
			dir, err := workflow.ParseDirection(ps.Direction)
			if err != nil {
				return nil, fmt.Errorf("%s: node '%s' port '%s': %w", spec.Source, spec.Name, ps.Name, err)
			}
			if _, exists := n.Port(ps.Name); exists {
				return nil, fmt.Errorf("%s: node '%s' declares port '%s' twice", spec.Source, spec.Name, ps.Name)
			}
			p := n.AddPort(ps.Name, dir)
			if ps.ID != "" {
				p.ID = ps.ID
			}
		}

		byName[spec.Name] = n
		def.AddNode(n)
		if spec.Breakpoint {
			loaded.Breakpoints = append(loaded.Breakpoints, n.ID)
		}
	}

	for _, spec := range d.Connectors {
		srcNode, srcPort, err := resolveRef(byName, spec.From)
		if err != nil {
			return nil, fmt.Errorf("%s: connector 'from': %w", spec.Source, err)
		}
		dstNode, dstPort, err := resolveRef(byName, spec.To)
		if err != nil {
			return nil, fmt.Errorf("%s: connector 'to': %w", spec.Source, err)
		}
		c := def.Connect(srcNode, srcPort, dstNode, dstPort)
		if spec.ID != "" {
			c.ID = spec.ID
		}
	}

	return loaded, nil
}

// resolveRef splits "node.port" and finds the named node.
func resolveRef(byName map[string]*workflow.Node, ref string) (*workflow.Node, string, error) {
	i := strings.LastIndex(ref, ".")
	if i <= 0 || i == len(ref)-1 {
		return nil, "", fmt.Errorf("invalid reference %q, expected \"node.port\"", ref)
	}
	name, port := ref[:i], ref[i+1:]
	n, ok := byName[name]
	if !ok {
		return nil, "", fmt.Errorf("reference %q names unknown node '%s'", ref, name)
	}
	return n, port, nil
}
