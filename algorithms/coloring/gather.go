package coloring

import (
	"fmt"
	"sort"
)

// Gather merges partial colorings into one global Coloring of length
// numVertices. The parts may arrive in any order but must tile 0..V-1
// exactly: an overlap, a gap, a range outside the vertex space or a Colors
// slice of the wrong length is ErrIncompleteGather. Empty ranges are allowed.
func Gather(numVertices int, parts []*PartialColoring) (Coloring, error) {
	ordered := make([]*PartialColoring, 0, len(parts))
	for i, p := range parts {
		if p == nil {
			return nil, fmt.Errorf("%w: part %d is nil", ErrIncompleteGather, i)
		}
		if p.Range.Start < 0 || p.Range.End > numVertices || p.Range.Start > p.Range.End {
			return nil, fmt.Errorf("%w: range %s outside [0, %d)", ErrIncompleteGather, p.Range, numVertices)
		}
		if len(p.Colors) != p.Range.Len() {
			return nil, fmt.Errorf("%w: range %s carries %d colors", ErrIncompleteGather, p.Range, len(p.Colors))
		}
		if p.Range.Len() > 0 {
			ordered = append(ordered, p)
		}
	}

	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Range.Start < ordered[j].Range.Start })

	global := NewColoring(numVertices)
	next := 0
	for _, p := range ordered {
		if p.Range.Start != next {
			if p.Range.Start < next {
				return nil, fmt.Errorf("%w: range %s overlaps vertices below %d", ErrIncompleteGather, p.Range, next)
			}
			return nil, fmt.Errorf("%w: vertices [%d, %d) missing", ErrIncompleteGather, next, p.Range.Start)
		}
		copy(global[p.Range.Start:p.Range.End], p.Colors)
		next = p.Range.End
	}
	if next != numVertices {
		return nil, fmt.Errorf("%w: vertices [%d, %d) missing", ErrIncompleteGather, next, numVertices)
	}

	return global, nil
}
