package workflow

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/specialistvlad/flowgridgo/internal/property"
)

// PortDirection tells whether a port receives data or emits it.
type PortDirection int

const (
	// Input ports are the destination side of a connector.
	Input PortDirection = iota
	// Output ports are the source side of a connector.
	Output
)

// String returns the lower-case name used in definition files.
func (d PortDirection) String() string {
	switch d {
	case Input:
		return "input"
	case Output:
		return "output"
	}
	return fmt.Sprintf("PortDirection(%d)", int(d))
}

// ParseDirection converts "input" or "output" (case-insensitive) into a
// PortDirection.
func ParseDirection(s string) (PortDirection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "input", "in":
		return Input, nil
	case "output", "out":
		return Output, nil
	}
	return Input, fmt.Errorf("unknown port direction %q", s)
}

// Position is the canvas location of a node. The engine never reads it.
type Position struct {
	X float64
	Y float64
}

// Port is an attachment point on a node. Node is a back-reference to the
// owning node; the node owns the port.
type Port struct {
	ID        string
	Name      string
	Direction PortDirection
	Node      *Node
}

// String returns "node.port", the reference form used in definition files.
func (p *Port) String() string {
	if p == nil {
		return "<nil>"
	}
	if p.Node == nil {
		return p.Name
	}
	return p.Node.Name + "." + p.Name
}

// Node is a single unit of work in a workflow, typed by a string tag and
// configured by its property bag.
type Node struct {
	ID         string
	Type       string
	Name       string
	Position   Position
	Ports      []*Port
	Properties *property.Bag
}

// NewNode creates a node with a fresh identity and an empty property bag.
func NewNode(nodeType, name string) *Node {
	return &Node{
		ID:         uuid.NewString(),
		Type:       nodeType,
		Name:       name,
		Properties: property.NewBag(),
	}
}

// AddPort creates a port with the given name and direction and attaches it
// to the node.
func (n *Node) AddPort(name string, dir PortDirection) *Port {
	p := &Port{
		ID:        uuid.NewString(),
		Name:      name,
		Direction: dir,
		Node:      n,
	}
	n.Ports = append(n.Ports, p)
	return p
}

// Port returns the first port with the given name.
func (n *Node) Port(name string) (*Port, bool) {
	for _, p := range n.Ports {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// InputPorts returns the node's input ports in declaration order.
func (n *Node) InputPorts() []*Port {
	return n.portsByDirection(Input)
}

// OutputPorts returns the node's output ports in declaration order.
func (n *Node) OutputPorts() []*Port {
	return n.portsByDirection(Output)
}

func (n *Node) portsByDirection(dir PortDirection) []*Port {
	var out []*Port
	for _, p := range n.Ports {
		if p.Direction == dir {
			out = append(out, p)
		}
	}
	return out
}

// HasPort reports whether p is one of the node's ports.
func (n *Node) HasPort(p *Port) bool {
	for _, own := range n.Ports {
		if own == p {
			return true
		}
	}
	return false
}

// String returns the node's display name, falling back to its ID.
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	if n.Name != "" {
		return n.Name
	}
	return n.ID
}

// Connector is a directed edge from an output port to an input port. It
// never owns its ports.
type Connector struct {
	ID          string
	Source      *Port
	Destination *Port
}

// Connect creates a connector from src to dst.
func Connect(src, dst *Port) *Connector {
	return &Connector{
		ID:          uuid.NewString(),
		Source:      src,
		Destination: dst,
	}
}

// Definition is a complete workflow graph. It is owned by the caller for the
// duration of an execution.
type Definition struct {
	Nodes      []*Node
	Connectors []*Connector
}

// AddNode appends nodes to the definition.
func (d *Definition) AddNode(nodes ...*Node) {
	d.Nodes = append(d.Nodes, nodes...)
}

// Connect links srcNode.srcPort to dstNode.dstPort, creating either port when
// the node does not have it yet.
func (d *Definition) Connect(srcNode *Node, srcPort string, dstNode *Node, dstPort string) *Connector {
	src, ok := srcNode.Port(srcPort)
	if !ok {
		src = srcNode.AddPort(srcPort, Output)
	}
	dst, ok := dstNode.Port(dstPort)
	if !ok {
		dst = dstNode.AddPort(dstPort, Input)
	}
	c := Connect(src, dst)
	d.Connectors = append(d.Connectors, c)
	return c
}

// NodeByID returns the node with the given ID.
func (d *Definition) NodeByID(id string) (*Node, bool) {
	for _, n := range d.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}

// NodeByName returns the first node with the given display name.
func (d *Definition) NodeByName(name string) (*Node, bool) {
	for _, n := range d.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return nil, false
}
