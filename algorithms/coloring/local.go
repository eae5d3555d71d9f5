package coloring

// Uncolored marks a vertex that has not been assigned a color yet.
const Uncolored = -1

// Coloring maps vertex index to color. Entries are Uncolored until assigned.
type Coloring []int

// NewColoring returns a Coloring of length n with every entry Uncolored.
func NewColoring(n int) Coloring {
	c := make(Coloring, n)
	for i := range c {
		c[i] = Uncolored
	}
	return c
}

// Clone returns an independent copy of c.
func (c Coloring) Clone() Coloring {
	return append(Coloring(nil), c...)
}

// PartialColoring is one worker's private result: Colors[i] is the color of
// vertex Range.Start+i.
type PartialColoring struct {
	Range  Range
	Colors []int
}

// palette tracks the colors taken by the neighbours of one vertex. It is
// sized to V, which bounds the chromatic number, and is reset after each
// vertex by clearing only the entries that were marked.
type palette struct {
	used   []bool
	marked []int
}

func newPalette(n int) *palette {
	return &palette{used: make([]bool, n)}
}

func (p *palette) mark(c int) {
	if c < 0 || c >= len(p.used) || p.used[c] {
		return
	}
	p.used[c] = true
	p.marked = append(p.marked, c)
}

// take returns the smallest unmarked color and clears all marks.
func (p *palette) take() int {
	c := 0
	for c < len(p.used) && p.used[c] {
		c++
	}
	for _, m := range p.marked {
		p.used[m] = false
	}
	p.marked = p.marked[:0]
	return c
}

// ColorRange greedily colors the vertices of r in ascending order, writing
// into colors. A neighbour contributes its current entry in colors, wherever
// it lies, unless that entry is Uncolored. Entries outside r are read but
// never written.
func ColorRange(g *Graph, colors Coloring, r Range) {
	p := newPalette(g.NumVertices())
	for v := r.Start; v < r.End; v++ {
		for _, u := range g.Neighbors(v) {
			p.mark(colors[u])
		}
		colors[v] = p.take()
	}
}

// ColorPartition colors r from a private buffer that only covers r. Every
// neighbour outside r reads as Uncolored, exactly as it would for a worker
// that cannot see any other worker's progress.
func ColorPartition(g *Graph, r Range) *PartialColoring {
	local := make([]int, r.Len())
	for i := range local {
		local[i] = Uncolored
	}

	p := newPalette(g.NumVertices())
	for v := r.Start; v < r.End; v++ {
		for _, u := range g.Neighbors(v) {
			if r.Contains(u) {
				p.mark(local[u-r.Start])
			}
		}
		local[v-r.Start] = p.take()
	}

	return &PartialColoring{Range: r, Colors: local}
}

// FirstFit colors the whole graph sequentially in vertex order. It is the
// single-worker reference result and never produces conflicts.
func FirstFit(g *Graph) Coloring {
	colors := NewColoring(g.NumVertices())
	ColorRange(g, colors, Range{Start: 0, End: g.NumVertices()})
	return colors
}
