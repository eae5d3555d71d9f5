package coloring

import "errors"

// Sentinel errors for coloring operations.
var (
	// ErrInvalidGraph indicates a malformed adjacency structure: an index out
	// of range, a self-loop, a duplicate or unsorted neighbour, or an
	// asymmetric edge.
	ErrInvalidGraph = errors.New("coloring: invalid graph")

	// ErrInvalidConfiguration indicates a non-positive worker count or a
	// worker index outside [0, workers).
	ErrInvalidConfiguration = errors.New("coloring: invalid configuration")

	// ErrIncompleteGather indicates partial colorings that do not tile 0..V-1.
	ErrIncompleteGather = errors.New("coloring: incomplete gather")
)
