package exact

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mundrapranay/silhouette-coloring/algorithms/coloring"
	"github.com/mundrapranay/silhouette-coloring/algorithms/common"
)

// BlockPartitionColoring is the 2-round distributed form of ColorGraph.
// Round 1: each worker colors its contiguous block from a private buffer and
// publishes it.
// Round 2: worker-0 gathers every block, repairs conflicts and publishes the
// final coloring; every worker reads it back.
type BlockPartitionColoring struct {
	graph  *coloring.Graph
	params *common.WorkerParams
	block  coloring.Range

	mu     sync.Mutex
	result *coloring.Result
}

// NewBlockPartitionColoring creates a new block-partition coloring instance
func NewBlockPartitionColoring() common.GraphAlgorithm {
	return &BlockPartitionColoring{}
}

func (a *BlockPartitionColoring) Name() string {
	return "block-partition-coloring"
}

func (a *BlockPartitionColoring) Type() common.AlgorithmType {
	return common.AlgorithmTypeExact
}

func (a *BlockPartitionColoring) Initialize(ctx context.Context, graph *coloring.Graph, config map[string]interface{}) error {
	if graph == nil {
		return fmt.Errorf("%w: nil graph", coloring.ErrInvalidGraph)
	}
	params, err := common.ParseWorkerParams(config)
	if err != nil {
		return err
	}
	block, err := coloring.PartitionFor(graph.NumVertices(), params.NumWorkers, params.WorkerIndex)
	if err != nil {
		return err
	}

	a.graph = graph
	a.params = params
	a.block = block
	return nil
}

func (a *BlockPartitionColoring) Execute(ctx context.Context, coord common.RoundCoordinator, numRounds int) (*common.AlgorithmResult, error) {
	if a.graph == nil {
		return nil, fmt.Errorf("%s: not initialized", a.Name())
	}
	if numRounds < 2 {
		return nil, fmt.Errorf("%s requires at least 2 rounds", a.Name())
	}

	res := &coloring.Result{}

	if err := a.executeRound1(ctx, coord, res); err != nil {
		return nil, fmt.Errorf("round 1 failed: %w", err)
	}
	if err := a.executeRound2(ctx, coord, res); err != nil {
		return nil, fmt.Errorf("round 2 failed: %w", err)
	}

	a.mu.Lock()
	a.result = res
	a.mu.Unlock()

	if a.params.ResultFile != "" {
		if err := common.WriteColoring(a.params.ResultFile, a.Name(), a.params.WorkerID, res.Coloring); err != nil {
			return nil, fmt.Errorf("failed to write results: %w", err)
		}
	}

	return a.GetResult(), nil
}

// executeRound1 colors this worker's block and publishes it.
func (a *BlockPartitionColoring) executeRound1(ctx context.Context, coord common.RoundCoordinator, res *coloring.Result) error {
	roundID := a.params.Round(1)
	if err := coord.StartRound(ctx, roundID, int32(a.params.NumWorkers)); err != nil {
		return fmt.Errorf("failed to start round %d: %w", roundID, err)
	}

	start := time.Now()
	local := coloring.ColorPartition(a.graph, a.block)
	res.Timings.Local = time.Since(start)
	a.params.Logger.Info("colored block", "block", a.block, "elapsed", res.Timings.Local)

	pairs := map[string][]byte{
		common.BlockKey(a.params.WorkerIndex): common.EncodeBlock(local),
	}
	if err := coord.PublishValues(ctx, roundID, a.params.WorkerID, pairs); err != nil {
		return fmt.Errorf("failed to publish block: %w", err)
	}
	return nil
}

// executeRound2 runs the centralized repair on worker-0 and distributes the
// final coloring to everyone.
func (a *BlockPartitionColoring) executeRound2(ctx context.Context, coord common.RoundCoordinator, res *coloring.Result) error {
	roundID := a.params.Round(2)
	if err := coord.StartRound(ctx, roundID, 1); err != nil {
		return fmt.Errorf("failed to start round %d: %w", roundID, err)
	}

	if a.params.IsCoordinator() {
		if err := a.coordinate(ctx, coord, res); err != nil {
			return err
		}
	}

	pairs, err := coord.WaitForRound(ctx, roundID, a.params.PollInterval)
	if err != nil {
		return err
	}
	colors, conflicts, err := common.DecodeResult(pairs[common.ResultKey])
	if err != nil {
		return fmt.Errorf("invalid result payload: %w", err)
	}
	if len(colors) != a.graph.NumVertices() {
		return fmt.Errorf("result covers %d vertices, graph has %d", len(colors), a.graph.NumVertices())
	}

	res.Coloring = colors
	res.Conflicts = conflicts
	res.ConflictsFound = len(conflicts) > 0
	res.ColorCount = coloring.ColorCount(colors)
	res.Partitions, err = coloring.Partition(a.graph.NumVertices(), a.params.NumWorkers)
	return err
}

// coordinate waits for every block, gathers, detects, resolves and publishes.
func (a *BlockPartitionColoring) coordinate(ctx context.Context, coord common.RoundCoordinator, res *coloring.Result) error {
	blocks, err := coord.WaitForRound(ctx, a.params.Round(1), a.params.PollInterval)
	if err != nil {
		return err
	}

	start := time.Now()
	numVertices := a.graph.NumVertices()
	parts := make([]*coloring.PartialColoring, a.params.NumWorkers)
	for w := range parts {
		payload, ok := blocks[common.BlockKey(w)]
		if !ok {
			return fmt.Errorf("%w: no block from worker %d", coloring.ErrIncompleteGather, w)
		}
		part, err := common.DecodeBlock(payload)
		if err != nil {
			return fmt.Errorf("block from worker %d: %w", w, err)
		}
		want, err := coloring.PartitionFor(numVertices, a.params.NumWorkers, w)
		if err != nil {
			return err
		}
		if part.Range != want {
			return fmt.Errorf("%w: worker %d sent %s, owns %s", coloring.ErrIncompleteGather, w, part.Range, want)
		}
		parts[w] = part
	}
	global, err := coloring.Gather(numVertices, parts)
	if err != nil {
		return err
	}
	res.Timings.Gather = time.Since(start)

	start = time.Now()
	conflicts, found := coloring.DetectConflicts(a.graph, global)
	res.Timings.Detect = time.Since(start)

	start = time.Now()
	coloring.ResolveConflicts(a.graph, global, conflicts)
	res.Timings.Resolve = time.Since(start)

	if found {
		a.params.Logger.Info("resolved conflicts", "conflicts", len(conflicts), "elapsed", res.Timings.Detect+res.Timings.Resolve)
	} else {
		a.params.Logger.Info("no conflicts found")
	}

	pairs := map[string][]byte{common.ResultKey: common.EncodeResult(global, conflicts)}
	if err := coord.PublishValues(ctx, a.params.Round(2), a.params.WorkerID, pairs); err != nil {
		return fmt.Errorf("failed to publish result: %w", err)
	}
	return nil
}

func (a *BlockPartitionColoring) GetResult() *common.AlgorithmResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	return coloringResult(a.Name(), 2, a.params, a.result, map[string]interface{}{
		"block": a.block,
	})
}

// coloringResult packages a coloring.Result the way both exact algorithms
// report it.
func coloringResult(name string, rounds int, params *common.WorkerParams, res *coloring.Result, extra map[string]interface{}) *common.AlgorithmResult {
	out := &common.AlgorithmResult{
		AlgorithmName: name,
		NumRounds:     rounds,
		Results:       make(map[string]interface{}),
		Metadata:      make(map[string]interface{}),
	}
	if params != nil {
		out.Metadata["worker_id"] = params.WorkerID
		out.Metadata["num_workers"] = params.NumWorkers
	}
	for k, v := range extra {
		out.Metadata[k] = v
	}
	if res == nil {
		return out
	}

	out.Converged = true
	out.ConvergenceRound = rounds
	out.Results["coloring"] = res.Coloring
	out.Results["color_count"] = res.ColorCount
	out.Results["conflicts"] = res.Conflicts
	out.Results["conflicts_found"] = res.ConflictsFound
	out.Results["result"] = res
	out.Metadata["timings"] = res.Timings
	return out
}

// Register the algorithm
func init() {
	Register("block-partition-coloring", NewBlockPartitionColoring)
}
