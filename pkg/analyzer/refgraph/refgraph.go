// Package refgraph builds the graph of references between declared objects
// of a firewall configuration.
package refgraph

import (
	"github.com/panbanda/asaclean/pkg/analyzer/cleanup"
	"github.com/panbanda/asaclean/pkg/conftree"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"
)

// Builder builds reference graphs.
type Builder struct {
	categories []cleanup.Category
	mode       cleanup.MatchMode
	protected  []string
}

// Option is a functional option for configuring Builder.
type Option func(*Builder)

// WithMatchMode sets how a line is recognized as mentioning a name.
func WithMatchMode(mode cleanup.MatchMode) Option {
	return func(b *Builder) {
		b.mode = mode
	}
}

// WithProtected excludes names from the graph.
func WithProtected(names ...string) Option {
	return func(b *Builder) {
		b.protected = append(b.protected, names...)
	}
}

// New creates a builder over the default categories.
func New(opts ...Option) *Builder {
	b := &Builder{
		categories: cleanup.DefaultCategories(),
		mode:       cleanup.MatchToken,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build parses lines and links every declared object to the objects its
// declaration lines mention.
func (b *Builder) Build(lines []string) *Graph {
	tree := conftree.Parse(lines)
	decls, _ := cleanup.Extract(lines, b.categories, b.protected...)

	g := &Graph{MatchMode: b.mode, Nodes: []Node{}, Edges: []Edge{}}
	index := make(map[string]int)
	owner := make(map[int]string) // line number -> owning node ID

	for _, cat := range b.categories {
		for _, name := range decls.Names(cat.Kind) {
			id := NodeID(cat.Kind, name)
			node := Node{ID: id, Kind: cat.Kind, Name: name}
			for _, stmt := range tree.Find(cat.Keyword, name) {
				if node.Line == 0 {
					node.Line = stmt.Number
				}
				for _, s := range stmt.Subtree() {
					if _, taken := owner[s.Number]; !taken {
						owner[s.Number] = id
					}
				}
			}
			index[id] = len(g.Nodes)
			g.Nodes = append(g.Nodes, node)
		}
	}

	seen := make(map[[2]string]bool)
	for i, raw := range tree.Lines() {
		number := i + 1
		from, declared := owner[number]
		for j := range g.Nodes {
			to := &g.Nodes[j]
			if to.ID == from || !cleanup.Mentions(raw, to.Name, b.mode) {
				continue
			}
			if !declared {
				to.External++
				continue
			}
			key := [2]string{from, to.ID}
			if seen[key] {
				continue
			}
			seen[key] = true
			g.Edges = append(g.Edges, Edge{From: from, To: to.ID, Line: number})
		}
	}

	markReachable(g, index)
	return g
}

// markReachable walks the graph from every externally referenced node.
func markReachable(g *Graph, index map[string]int) {
	dg := simple.NewDirectedGraph()
	for i := range g.Nodes {
		dg.AddNode(simple.Node(int64(i)))
	}
	for _, e := range g.Edges {
		dg.SetEdge(simple.Edge{F: simple.Node(int64(index[e.From])), T: simple.Node(int64(index[e.To]))})
	}

	var bfs traverse.BreadthFirst
	for i, n := range g.Nodes {
		if n.External == 0 {
			continue
		}
		bfs.Walk(dg, simple.Node(int64(i)), func(node graph.Node, _ int) bool {
			g.Nodes[node.ID()].Reachable = true
			return false
		})
	}
}
