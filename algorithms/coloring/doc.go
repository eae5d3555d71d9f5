// Package coloring computes proper vertex colorings of undirected graphs with
// greedy first-fit, either sequentially or split across workers.
//
// The parallel form partitions 0..V-1 into contiguous blocks, colors every
// block independently from a private buffer, gathers the blocks into one
// global coloring and then repairs the coloring in a single serialized pass:
//
//	ranges, _ := coloring.Partition(g.NumVertices(), workers)
//	parts := coloring.ColorPartition(g, ranges[i])   // one per worker
//	global, _ := coloring.Gather(g.NumVertices(), parts)
//	conflicts, _ := coloring.DetectConflicts(g, global)
//	coloring.ResolveConflicts(g, global, conflicts)
//
// ColorGraph runs the whole pipeline. A worker never observes the colors
// chosen by other workers, so adjacent vertices on different sides of a block
// boundary may collide; the detector blames the higher-indexed endpoint of
// every colliding edge and the resolver recolors each blamed vertex once,
// against the current global state.
//
// All colors are dense integers starting at 0. Uncolored is -1.
package coloring
