package coloring

import (
	"fmt"
	"sort"
)

// Graph is an immutable undirected graph over vertices 0..V-1.
//
// Every neighbour list is sorted ascending, holds no duplicates and no
// self-loop, and the relation is symmetric. A Graph is safe for concurrent
// reads by any number of goroutines.
type Graph struct {
	adj   [][]int
	edges int
}

// Edge is an undirected edge with U < V.
type Edge struct {
	U int
	V int
}

// NewGraph validates adjacency and returns a Graph holding a private copy of it.
// Any violation of the Graph invariants is reported as ErrInvalidGraph.
func NewGraph(adjacency [][]int) (*Graph, error) {
	n := len(adjacency)
	adj := make([][]int, n)
	total := 0

	for v, nbrs := range adjacency {
		for i, u := range nbrs {
			if u < 0 || u >= n {
				return nil, fmt.Errorf("%w: vertex %d lists neighbour %d outside [0, %d)", ErrInvalidGraph, v, u, n)
			}
			if u == v {
				return nil, fmt.Errorf("%w: self-loop on vertex %d", ErrInvalidGraph, v)
			}
			if i > 0 && nbrs[i-1] >= u {
				return nil, fmt.Errorf("%w: neighbours of vertex %d are not strictly ascending at %d", ErrInvalidGraph, v, u)
			}
		}
		adj[v] = append([]int(nil), nbrs...)
		total += len(nbrs)
	}

	for v, nbrs := range adj {
		for _, u := range nbrs {
			if !contains(adj[u], v) {
				return nil, fmt.Errorf("%w: edge %d->%d has no reverse %d->%d", ErrInvalidGraph, v, u, u, v)
			}
		}
	}

	return &Graph{adj: adj, edges: total / 2}, nil
}

// NewGraphFromEdges builds a Graph with numVertices vertices from an
// undirected edge list. Both orientations of an edge and repeated edges
// collapse into one. Self-loops and endpoints outside [0, numVertices) are
// ErrInvalidGraph.
func NewGraphFromEdges(numVertices int, edges [][2]int) (*Graph, error) {
	if numVertices < 0 {
		return nil, fmt.Errorf("%w: negative vertex count %d", ErrInvalidGraph, numVertices)
	}

	adj := make([][]int, numVertices)
	for _, e := range edges {
		u, v := e[0], e[1]
		if u < 0 || u >= numVertices || v < 0 || v >= numVertices {
			return nil, fmt.Errorf("%w: edge (%d, %d) outside [0, %d)", ErrInvalidGraph, u, v, numVertices)
		}
		if u == v {
			return nil, fmt.Errorf("%w: self-loop on vertex %d", ErrInvalidGraph, u)
		}
		adj[u] = append(adj[u], v)
		adj[v] = append(adj[v], u)
	}

	total := 0
	for v := range adj {
		adj[v] = sortUnique(adj[v])
		total += len(adj[v])
	}

	return &Graph{adj: adj, edges: total / 2}, nil
}

// NumVertices returns V.
func (g *Graph) NumVertices() int { return len(g.adj) }

// NumEdges returns the number of undirected edges.
func (g *Graph) NumEdges() int { return g.edges }

// Neighbors returns the sorted neighbour list of v. The slice is shared with
// the Graph and must not be modified.
func (g *Graph) Neighbors(v int) []int { return g.adj[v] }

// Degree returns the number of neighbours of v.
func (g *Graph) Degree(v int) int { return len(g.adj[v]) }

// MaxDegree returns the largest degree in the graph, or 0 for an empty graph.
func (g *Graph) MaxDegree() int {
	max := 0
	for _, nbrs := range g.adj {
		if len(nbrs) > max {
			max = len(nbrs)
		}
	}
	return max
}

// Edges returns every undirected edge once, ordered by (U, V).
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, g.edges)
	for v, nbrs := range g.adj {
		for _, u := range nbrs {
			if v < u {
				out = append(out, Edge{U: v, V: u})
			}
		}
	}
	return out
}

func contains(sorted []int, x int) bool {
	i := sort.SearchInts(sorted, x)
	return i < len(sorted) && sorted[i] == x
}

func sortUnique(xs []int) []int {
	if len(xs) < 2 {
		return xs
	}
	sort.Ints(xs)
	out := xs[:1]
	for _, x := range xs[1:] {
		if x != out[len(out)-1] {
			out = append(out, x)
		}
	}
	return out
}
