package refgraph

import "github.com/panbanda/asaclean/pkg/analyzer/cleanup"

// Node is a declared configuration object.
type Node struct {
	ID   string       `json:"id" toon:"id"`
	Kind cleanup.Kind `json:"kind" toon:"kind"`
	Name string       `json:"name" toon:"name"`
	// Line is the first declaration line.
	Line int `json:"line" toon:"line"`
	// External counts lines outside every declaration that mention the
	// object, such as access-group or default-group-policy bindings.
	External int `json:"external" toon:"external"`
	// Reachable is true when a chain of references leads to the object
	// from an externally referenced one.
	Reachable bool `json:"reachable" toon:"reachable"`
}

// Edge records that a line of From's declaration mentions To.
type Edge struct {
	From string `json:"from" toon:"from"`
	To   string `json:"to" toon:"to"`
	Line int    `json:"line" toon:"line"`
}

// Graph is the reference graph between declared objects.
type Graph struct {
	MatchMode cleanup.MatchMode `json:"match_mode" toon:"match_mode"`
	Nodes     []Node            `json:"nodes" toon:"nodes"`
	Edges     []Edge            `json:"edges" toon:"edges"`
}

// NodeID returns the graph identifier of a declared object.
func NodeID(kind cleanup.Kind, name string) string {
	return string(kind) + ":" + name
}

// Node returns the node with the given ID.
func (g *Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Unreachable returns the IDs of nodes no external reference leads to, in
// node order. These are the objects a fixpoint cleanup run removes.
func (g *Graph) Unreachable() []string {
	var out []string
	for _, n := range g.Nodes {
		if !n.Reachable {
			out = append(out, n.ID)
		}
	}
	return out
}
