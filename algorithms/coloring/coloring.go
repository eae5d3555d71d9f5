package coloring

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Timings records the wall-clock duration of each phase of ColorGraph.
type Timings struct {
	Local   time.Duration // fork/join of all local colorers
	Gather  time.Duration
	Detect  time.Duration
	Resolve time.Duration
}

// Result is the outcome of ColorGraph.
type Result struct {
	// Coloring is the final, resolved global coloring.
	Coloring Coloring

	// Conflicts lists the vertices flagged by DetectConflicts, in detection
	// order, before resolution.
	Conflicts []int

	// ConflictsFound reports whether the gathered coloring had any conflict.
	ConflictsFound bool

	// ColorCount is ColorCount(Coloring).
	ColorCount int

	// Partitions holds the block owned by each worker.
	Partitions []Range

	Timings Timings
}

// ColorGraph colors g with workers concurrent local colorers followed by a
// serialized conflict check and repair.
//
// Each worker colors its block from a private buffer, so the outcome depends
// only on g and workers. Gather runs once every worker has returned. ctx is
// checked between phases; the phases themselves always run to completion.
func ColorGraph(ctx context.Context, g *Graph, workers int) (*Result, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: nil graph", ErrInvalidGraph)
	}

	ranges, err := Partition(g.NumVertices(), workers)
	if err != nil {
		return nil, err
	}

	res := &Result{Partitions: ranges}

	start := time.Now()
	parts := make([]*PartialColoring, len(ranges))
	eg, egCtx := errgroup.WithContext(ctx)
	for w, r := range ranges {
		w, r := w, r
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			parts[w] = ColorPartition(g, r)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("local coloring: %w", err)
	}
	res.Timings.Local = time.Since(start)

	start = time.Now()
	global, err := Gather(g.NumVertices(), parts)
	if err != nil {
		return nil, err
	}
	res.Timings.Gather = time.Since(start)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start = time.Now()
	res.Conflicts, res.ConflictsFound = DetectConflicts(g, global)
	res.Timings.Detect = time.Since(start)

	start = time.Now()
	ResolveConflicts(g, global, res.Conflicts)
	res.Timings.Resolve = time.Since(start)

	res.Coloring = global
	res.ColorCount = ColorCount(global)
	return res, nil
}
