package coloring

import "fmt"

// Range is the half-open vertex interval [Start, End) owned by one worker.
type Range struct {
	Start int
	End   int
}

// Len returns the number of vertices in the range.
func (r Range) Len() int { return r.End - r.Start }

// Contains reports whether v lies in [Start, End).
func (r Range) Contains(v int) bool { return v >= r.Start && v < r.End }

func (r Range) String() string { return fmt.Sprintf("[%d, %d)", r.Start, r.End) }

// Partition splits 0..numVertices-1 into numWorkers contiguous blocks.
//
// The first numVertices%numWorkers workers receive one extra vertex, so block
// lengths differ by at most one. Workers beyond numVertices get empty ranges.
func Partition(numVertices, numWorkers int) ([]Range, error) {
	if numWorkers <= 0 {
		return nil, fmt.Errorf("%w: worker count must be > 0, got %d", ErrInvalidConfiguration, numWorkers)
	}
	if numVertices < 0 {
		return nil, fmt.Errorf("%w: negative vertex count %d", ErrInvalidConfiguration, numVertices)
	}

	ranges := make([]Range, numWorkers)
	for w := range ranges {
		ranges[w] = blockFor(numVertices, numWorkers, w)
	}
	return ranges, nil
}

// PartitionFor returns the block owned by worker in a numWorkers-way split.
func PartitionFor(numVertices, numWorkers, worker int) (Range, error) {
	if numWorkers <= 0 {
		return Range{}, fmt.Errorf("%w: worker count must be > 0, got %d", ErrInvalidConfiguration, numWorkers)
	}
	if worker < 0 || worker >= numWorkers {
		return Range{}, fmt.Errorf("%w: worker %d outside [0, %d)", ErrInvalidConfiguration, worker, numWorkers)
	}
	if numVertices < 0 {
		return Range{}, fmt.Errorf("%w: negative vertex count %d", ErrInvalidConfiguration, numVertices)
	}
	return blockFor(numVertices, numWorkers, worker), nil
}

func blockFor(numVertices, numWorkers, worker int) Range {
	blockSize := numVertices / numWorkers
	remainder := numVertices % numWorkers

	if worker < remainder {
		start := worker * (blockSize + 1)
		return Range{Start: start, End: start + blockSize + 1}
	}
	start := worker*blockSize + remainder
	return Range{Start: start, End: start + blockSize}
}
