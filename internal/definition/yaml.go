package definition

import (
	"fmt"

	"github.com/specialistvlad/flowgridgo/internal/property"
	"github.com/specialistvlad/flowgridgo/internal/workflow"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

type yamlRoot struct {
	Nodes      []yamlNode      `yaml:"nodes"`
	Connectors []yamlConnector `yaml:"connectors"`
}

type yamlNode struct {
	Name       string         `yaml:"name"`
	Type       string         `yaml:"type"`
	ID         string         `yaml:"id"`
	Position   *yamlPosition  `yaml:"position"`
	Breakpoint bool           `yaml:"breakpoint"`
	Properties map[string]any `yaml:"properties"`
	Ports      []yamlPort     `yaml:"ports"`
}

type yamlPosition struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

type yamlPort struct {
	Name      string `yaml:"name"`
	ID        string `yaml:"id"`
	Direction string `yaml:"direction"`
}

type yamlConnector struct {
	ID   string `yaml:"id"`
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

func decodeYAML(filename string, src []byte) (*document, error) {
	var root yamlRoot
	if err := yaml.Unmarshal(src, &root); err != nil {
		return nil, fmt.Errorf("failed to decode YAML file %s: %w", filename, err)
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
		if n.Position != nil {
			spec.Position = workflow.Position{X: n.Position.X, Y: n.Position.Y}
		}
		if len(n.Properties) > 0 {
			spec.Properties = make(map[string]cty.Value, len(n.Properties))
			for k, raw := range n.Properties {
				v, err := property.FromGo(raw)
				if err != nil {
					return nil, fmt.Errorf("%s: node '%s' property %q: %w", filename, n.Name, k, err)
				}
				spec.Properties[k] = v
			}
		}
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
