package refgraph

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"
)

// ToMermaid renders the graph as a Mermaid flowchart. Unreachable objects are
// styled as removable.
func (g *Graph) ToMermaid() string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	for _, n := range g.Nodes {
		fmt.Fprintf(&sb, "    %s[\"%s %s\"]\n", sanitizeMermaidID(n.ID), n.Kind, n.Name)
	}
	for _, e := range g.Edges {
		fmt.Fprintf(&sb, "    %s --> %s\n", sanitizeMermaidID(e.From), sanitizeMermaidID(e.To))
	}

	var dead []string
	for _, n := range g.Nodes {
		if !n.Reachable {
			dead = append(dead, sanitizeMermaidID(n.ID))
		}
	}
	if len(dead) > 0 {
		sb.WriteString("    classDef unused stroke-dasharray: 5 5,stroke:#c00\n")
		fmt.Fprintf(&sb, "    class %s unused\n", strings.Join(dead, ","))
	}

	return sb.String()
}

// sanitizeMermaidID makes an ID safe for Mermaid.
func sanitizeMermaidID(id string) string {
	var sb strings.Builder
	for _, c := range id {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			sb.WriteRune(c)
		} else {
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

// dotNode carries display attributes for DOT encoding.
type dotNode struct {
	id   int64
	node Node
}

func (n dotNode) ID() int64 { return n.id }

func (n dotNode) DOTID() string { return n.node.ID }

func (n dotNode) Attributes() []encoding.Attribute {
	attrs := []encoding.Attribute{
		{Key: "label", Value: fmt.Sprintf("%q", string(n.node.Kind)+"\n"+n.node.Name)},
		{Key: "shape", Value: shapeFor(n.node)},
	}
	if !n.node.Reachable {
		attrs = append(attrs, encoding.Attribute{Key: "style", Value: "dashed"})
	}
	return attrs
}

func shapeFor(n Node) string {
	switch n.Kind {
	case "group_policy":
		return "hexagon"
	case "access_list":
		return "box"
	case "object_group":
		return "folder"
	default:
		return "ellipse"
	}
}

// ToDOT renders the graph in Graphviz DOT.
func (g *Graph) ToDOT() (string, error) {
	dg := simple.NewDirectedGraph()
	nodes := make(map[string]dotNode, len(g.Nodes))
	for i, n := range g.Nodes {
		dn := dotNode{id: int64(i), node: n}
		nodes[n.ID] = dn
		dg.AddNode(dn)
	}
	for _, e := range g.Edges {
		dg.SetEdge(dg.NewEdge(nodes[e.From], nodes[e.To]))
	}

	out, err := dot.Marshal(dg, "references", "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode dot: %w", err)
	}
	return string(out), nil
}
