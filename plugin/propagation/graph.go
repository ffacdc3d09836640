package propagation

import (
	"sort"

	"github.com/pkg/errors"
)

type edge struct {
	to       int
	strength float64
}

// Graph is an in-memory undirected weighted graph keyed by participant id.
type Graph struct {
	ids   []string
	index map[string]int
	base  []float64
	adj   [][]edge
}

func NewGraph() *Graph {
	return &Graph{index: map[string]int{}}
}

// AddNode adds id with the given base value. Adding an existing id updates its base.
func (g *Graph) AddNode(id string, base float64) {
	if i, ok := g.index[id]; ok {
		g.base[i] = base
		return
	}
	g.index[id] = len(g.ids)
	g.ids = append(g.ids, id)
	g.base = append(g.base, base)
	g.adj = append(g.adj, nil)
}

// AddEdge connects a and b. Both nodes must exist.
func (g *Graph) AddEdge(a, b string, strength float64) error {
	if a == b {
		return errors.Errorf("self edge on %s", a)
	}
	i, ok := g.index[a]
	if !ok {
		return errors.Errorf("unknown node %s", a)
	}
	j, ok := g.index[b]
	if !ok {
		return errors.Errorf("unknown node %s", b)
	}
	g.adj[i] = append(g.adj[i], edge{to: j, strength: strength})
	g.adj[j] = append(g.adj[j], edge{to: i, strength: strength})
	return nil
}

func (g *Graph) Len() int {
	return len(g.ids)
}

// IDs returns the node ids in sorted order.
func (g *Graph) IDs() []string {
	ids := make([]string, len(g.ids))
	copy(ids, g.ids)
	sort.Strings(ids)
	return ids
}

// compact returns a copy of the graph with nodes and adjacency lists sorted by id,
// so iteration order does not depend on insertion order.
func (g *Graph) compact() *Graph {
	ids := g.IDs()
	out := &Graph{
		ids:   ids,
		index: make(map[string]int, len(ids)),
		base:  make([]float64, len(ids)),
		adj:   make([][]edge, len(ids)),
	}
	for i, id := range ids {
		out.index[id] = i
	}
	for i, id := range ids {
		old := g.index[id]
		out.base[i] = g.base[old]
		edges := make([]edge, 0, len(g.adj[old]))
		for _, e := range g.adj[old] {
			edges = append(edges, edge{to: out.index[g.ids[e.to]], strength: e.strength})
		}
		sort.SliceStable(edges, func(a, b int) bool { return edges[a].to < edges[b].to })
		out.adj[i] = edges
	}
	return out
}
