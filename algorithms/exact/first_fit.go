package exact

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mundrapranay/silhouette-coloring/algorithms/coloring"
	"github.com/mundrapranay/silhouette-coloring/algorithms/common"
)

// FirstFitColoring is the sequential baseline: worker-0 colors the whole
// graph in one pass and publishes it; the other workers only read it back.
type FirstFitColoring struct {
	graph  *coloring.Graph
	params *common.WorkerParams

	mu     sync.Mutex
	result *coloring.Result
}

// NewFirstFitColoring creates a new first-fit coloring instance
func NewFirstFitColoring() common.GraphAlgorithm {
	return &FirstFitColoring{}
}

func (a *FirstFitColoring) Name() string {
	return "first-fit-coloring"
}

func (a *FirstFitColoring) Type() common.AlgorithmType {
	return common.AlgorithmTypeExact
}

func (a *FirstFitColoring) Initialize(ctx context.Context, graph *coloring.Graph, config map[string]interface{}) error {
	if graph == nil {
		return fmt.Errorf("%w: nil graph", coloring.ErrInvalidGraph)
	}
	params, err := common.ParseWorkerParams(config)
	if err != nil {
		return err
	}
	a.graph = graph
	a.params = params
	return nil
}

func (a *FirstFitColoring) Execute(ctx context.Context, coord common.RoundCoordinator, numRounds int) (*common.AlgorithmResult, error) {
	if a.graph == nil {
		return nil, fmt.Errorf("%s: not initialized", a.Name())
	}
	if numRounds < 1 {
		return nil, fmt.Errorf("%s requires at least 1 round", a.Name())
	}

	roundID := a.params.Round(1)
	if err := coord.StartRound(ctx, roundID, 1); err != nil {
		return nil, fmt.Errorf("failed to start round %d: %w", roundID, err)
	}

	res := &coloring.Result{
		Partitions: []coloring.Range{{Start: 0, End: a.graph.NumVertices()}},
	}

	if a.params.IsCoordinator() {
		start := time.Now()
		colors := coloring.FirstFit(a.graph)
		res.Timings.Local = time.Since(start)
		a.params.Logger.Info("colored graph", "vertices", a.graph.NumVertices(), "elapsed", res.Timings.Local)

		pairs := map[string][]byte{common.ResultKey: common.EncodeResult(colors, nil)}
		if err := coord.PublishValues(ctx, roundID, a.params.WorkerID, pairs); err != nil {
			return nil, fmt.Errorf("failed to publish result: %w", err)
		}
	}

	pairs, err := coord.WaitForRound(ctx, roundID, a.params.PollInterval)
	if err != nil {
		return nil, err
	}
	colors, _, err := common.DecodeResult(pairs[common.ResultKey])
	if err != nil {
		return nil, fmt.Errorf("invalid result payload: %w", err)
	}
	if len(colors) != a.graph.NumVertices() {
		return nil, fmt.Errorf("result covers %d vertices, graph has %d", len(colors), a.graph.NumVertices())
	}
	res.Coloring = colors
	res.ColorCount = coloring.ColorCount(colors)

	a.mu.Lock()
	a.result = res
	a.mu.Unlock()

	if a.params.ResultFile != "" {
		if err := common.WriteColoring(a.params.ResultFile, a.Name(), a.params.WorkerID, colors); err != nil {
			return nil, fmt.Errorf("failed to write results: %w", err)
		}
	}

	return a.GetResult(), nil
}

func (a *FirstFitColoring) GetResult() *common.AlgorithmResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	return coloringResult(a.Name(), 1, a.params, a.result, nil)
}

// Register the algorithm
func init() {
	Register("first-fit-coloring", NewFirstFitColoring)
}
