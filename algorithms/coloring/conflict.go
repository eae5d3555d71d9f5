package coloring

// DetectConflicts scans the vertices in ascending order and records v the
// first time a lower-indexed neighbour shares its color. Each vertex is
// recorded at most once, and every same-colored edge has its higher endpoint
// recorded, so the list is enough for ResolveConflicts to repair the coloring.
func DetectConflicts(g *Graph, colors Coloring) ([]int, bool) {
	var conflicts []int
	for v := 0; v < g.NumVertices(); v++ {
		for _, u := range g.Neighbors(v) {
			if colors[u] == colors[v] && v > u {
				conflicts = append(conflicts, v)
				break
			}
		}
	}
	return conflicts, len(conflicts) > 0
}

// ResolveConflicts recolors every vertex of conflicts once, in list order,
// with the smallest color not held by any of its neighbours at that moment.
// Colors assigned earlier in the same pass are visible to later vertices.
// The pass is not repeated.
func ResolveConflicts(g *Graph, colors Coloring, conflicts []int) {
	p := newPalette(g.NumVertices())
	for _, v := range conflicts {
		for _, u := range g.Neighbors(v) {
			if colors[u] != Uncolored {
				p.mark(colors[u])
			}
		}
		colors[v] = p.take()
	}
}

// Verify returns every edge whose endpoints share a color or are left
// Uncolored. An empty result means colors is a proper coloring of g.
func Verify(g *Graph, colors Coloring) []Edge {
	var bad []Edge
	for _, e := range g.Edges() {
		if colors[e.U] == colors[e.V] || colors[e.U] == Uncolored || colors[e.V] == Uncolored {
			bad = append(bad, e)
		}
	}
	return bad
}

// ColorCount returns the number of colors used, max(color)+1, relying on
// colors being assigned densely from 0. An empty coloring uses 0 colors.
func ColorCount(colors Coloring) int {
	max := Uncolored
	for _, c := range colors {
		if c > max {
			max = c
		}
	}
	return max + 1
}
