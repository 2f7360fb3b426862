package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalid is wrapped by every structural validation error.
	ErrInvalid = errors.New("invalid workflow definition")
	// ErrCycle is wrapped when the definition contains a dependency cycle.
	ErrCycle = errors.New("cycle detected")
)

// NodeOwningPort returns the node whose port set contains port.
func (d *Definition) NodeOwningPort(port *Port) (*Node, bool) {
	if port == nil {
		return nil, false
	}
	for _, n := range d.Nodes {
		if n.HasPort(port) {
			return n, true
		}
	}
	return nil, false
}

// edge is a connector resolved to the nodes that own its two ports.
type edge struct {
	conn *Connector
	from *Node
	to   *Node
}

// edges resolves every connector whose two ports belong to nodes of the
// definition, in connector order. Connectors with an unowned endpoint are
// skipped.
func (d *Definition) edges() []edge {
	owner := make(map[*Port]*Node)
	for _, n := range d.Nodes {
		for _, p := range n.Ports {
			if _, seen := owner[p]; !seen {
				owner[p] = n
			}
		}
	}
	out := make([]edge, 0, len(d.Connectors))
	for _, c := range d.Connectors {
		if c == nil {
			continue
		}
		from, okFrom := owner[c.Source]
		to, okTo := owner[c.Destination]
		if !okFrom || !okTo {
			continue
		}
		out = append(out, edge{conn: c, from: from, to: to})
	}
	return out
}

// StartingNodes returns the nodes that are never the destination side of a
// connector, in definition order. These seed an execution.
func (d *Definition) StartingNodes() []*Node {
	hasIncoming := make(map[*Node]bool)
	for _, e := range d.edges() {
		hasIncoming[e.to] = true
	}
	var out []*Node
	for _, n := range d.Nodes {
		if !hasIncoming[n] {
			out = append(out, n)
		}
	}
	return out
}

// DownstreamNodes returns the unique nodes reached by following connectors
// whose source port belongs to node, in connector order.
func (d *Definition) DownstreamNodes(node *Node) []*Node {
	var out []*Node
	seen := make(map[*Node]bool)
	for _, e := range d.edges() {
		if e.from == node && !seen[e.to] {
			seen[e.to] = true
			out = append(out, e.to)
		}
	}
	return out
}

// UpstreamNodes returns the unique nodes owning the source port of every
// connector that feeds node, in connector order. These are the node's
// dependencies.
func (d *Definition) UpstreamNodes(node *Node) []*Node {
	var out []*Node
	seen := make(map[*Node]bool)
	for _, e := range d.edges() {
		if e.to == node && !seen[e.from] {
			seen[e.from] = true
			out = append(out, e.from)
		}
	}
	return out
}

// IncomingConnectors returns the connectors feeding node, in connector order.
func (d *Definition) IncomingConnectors(node *Node) []*Connector {
	var out []*Connector
	for _, e := range d.edges() {
		if e.to == node {
			out = append(out, e.conn)
		}
	}
	return out
}

// Validate checks the structural invariants of the definition: unique node
// identities, every port owned by exactly one node, connectors running from
// an output port to an input port of known nodes, and no cycles.
func (d *Definition) Validate() error {
	ids := make(map[string]bool)
	owner := make(map[*Port]*Node)
	for i, n := range d.Nodes {
		if n == nil {
			return fmt.Errorf("%w: node at index %d is nil", ErrInvalid, i)
		}
		if ids[n.ID] {
			return fmt.Errorf("%w: duplicate node id '%s'", ErrInvalid, n.ID)
		}
		ids[n.ID] = true
		for _, p := range n.Ports {
			if prev, ok := owner[p]; ok {
				return fmt.Errorf("%w: port '%s' belongs to both '%s' and '%s'", ErrInvalid, p.Name, prev, n)
			}
			owner[p] = n
		}
	}

	for i, c := range d.Connectors {
		if c == nil || c.Source == nil || c.Destination == nil {
			return fmt.Errorf("%w: connector at index %d has a missing endpoint", ErrInvalid, i)
		}
		if _, ok := owner[c.Source]; !ok {
			return fmt.Errorf("%w: connector '%s' source port '%s' belongs to no node", ErrInvalid, c.ID, c.Source)
		}
		if _, ok := owner[c.Destination]; !ok {
			return fmt.Errorf("%w: connector '%s' destination port '%s' belongs to no node", ErrInvalid, c.ID, c.Destination)
		}
		if c.Source.Direction != Output {
			return fmt.Errorf("%w: connector '%s' source port '%s' is not an output", ErrInvalid, c.ID, c.Source)
		}
		if c.Destination.Direction != Input {
			return fmt.Errorf("%w: connector '%s' destination port '%s' is not an input", ErrInvalid, c.ID, c.Destination)
		}
	}

	return d.DetectCycles()
}

// DetectCycles checks the graph for any cycles, including self-loops. It
// returns an error wrapping ErrCycle naming the first node found on a cycle.
func (d *Definition) DetectCycles() error {
	dependents := make(map[*Node][]*Node)
	for _, e := range d.edges() {
		dependents[e.from] = append(dependents[e.from], e.to)
	}

	// permanent: fully visited and not part of a cycle.
	// temporary: on the current recursion stack.
	permanent := make(map[*Node]bool)
	temporary := make(map[*Node]bool)

	var visit func(n *Node) error
	visit = func(n *Node) error {
		if permanent[n] {
			return nil
		}
		if temporary[n] {
			return fmt.Errorf("%w involving node '%s'", ErrCycle, n)
		}
		temporary[n] = true
		for _, next := range dependents[n] {
			if err := visit(next); err != nil {
				return err
			}
		}
		delete(temporary, n)
		permanent[n] = true
		return nil
	}

	for _, n := range d.Nodes {
		if !permanent[n] {
			if err := visit(n); err != nil {
				return err
			}
		}
	}
	return nil
}
