package ledp

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"sync"

	"github.com/mundrapranay/silhouette-coloring/algorithms/coloring"
	"github.com/mundrapranay/silhouette-coloring/algorithms/common"
	"github.com/mundrapranay/silhouette-coloring/algorithms/noise"
)

// countKeyPrefix prefixes each worker's noisy local count in round 1.
const countKeyPrefix = "count-"

// releaseKey holds the released estimate in round 2.
const releaseKey = "noisy-color-count"

// NoisyColorCount releases an estimate of the number of colors block-partition
// coloring needs without revealing any worker's exact local count.
// Round 1: each worker colors its block and publishes its local color count
// plus two-sided geometric noise with λ = epsilon / sensitivity.
// Round 2: worker-0 releases the largest noisy count, clamped to [0, V].
type NoisyColorCount struct {
	graph  *coloring.Graph
	params *common.WorkerParams
	block  coloring.Range

	epsilon     float64
	sensitivity float64
	noise       bool
	geom        *noise.GeomDistribution

	mu          sync.Mutex
	localCount  int
	noisyCounts []int64
	released    int64
	done        bool
}

// NewNoisyColorCount creates a new noisy color count instance
func NewNoisyColorCount() common.GraphAlgorithm {
	return &NoisyColorCount{}
}

func (a *NoisyColorCount) Name() string {
	return "noisy-color-count"
}

func (a *NoisyColorCount) Type() common.AlgorithmType {
	return common.AlgorithmTypeLEDP
}

func (a *NoisyColorCount) Initialize(ctx context.Context, graph *coloring.Graph, config map[string]interface{}) error {
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

	if a.epsilon, err = common.FloatParam(config, "epsilon", 1.0); err != nil {
		return err
	}
	if a.sensitivity, err = common.FloatParam(config, "sensitivity", 1.0); err != nil {
		return err
	}
	a.noise = true
	if v, ok := config["noise"].(bool); ok {
		a.noise = v
	}
	if a.noise {
		a.geom, err = noise.NewGeomDistribution(a.epsilon, a.sensitivity)
		if err != nil {
			return err
		}
	}

	a.graph = graph
	a.params = params
	a.block = block
	return nil
}

func (a *NoisyColorCount) Execute(ctx context.Context, coord common.RoundCoordinator, numRounds int) (*common.AlgorithmResult, error) {
	if a.graph == nil {
		return nil, fmt.Errorf("%s: not initialized", a.Name())
	}
	if numRounds < 2 {
		return nil, fmt.Errorf("%s requires at least 2 rounds", a.Name())
	}

	if err := a.executeRound1(ctx, coord); err != nil {
		return nil, fmt.Errorf("round 1 failed: %w", err)
	}
	if err := a.executeRound2(ctx, coord); err != nil {
		return nil, fmt.Errorf("round 2 failed: %w", err)
	}

	if a.params.ResultFile != "" {
		if err := a.writeResults(); err != nil {
			return nil, fmt.Errorf("failed to write results: %w", err)
		}
	}
	return a.GetResult(), nil
}

// executeRound1 publishes this worker's perturbed local color count.
func (a *NoisyColorCount) executeRound1(ctx context.Context, coord common.RoundCoordinator) error {
	roundID := a.params.Round(1)
	if err := coord.StartRound(ctx, roundID, int32(a.params.NumWorkers)); err != nil {
		return fmt.Errorf("failed to start round %d: %w", roundID, err)
	}

	local := coloring.ColorPartition(a.graph, a.block)
	count := int64(coloring.ColorCount(local.Colors))
	noisy := count
	if a.noise {
		noisy = a.geom.AddNoise(count)
	}

	a.mu.Lock()
	a.localCount = int(count)
	a.mu.Unlock()
	a.params.Logger.Debug("local color count", "block", a.block, "count", count)

	pairs := map[string][]byte{countKey(a.params.WorkerIndex): encodeCount(noisy)}
	if err := coord.PublishValues(ctx, roundID, a.params.WorkerID, pairs); err != nil {
		return fmt.Errorf("failed to publish count: %w", err)
	}
	return nil
}

// executeRound2 has worker-0 release the estimate; every worker reads it.
func (a *NoisyColorCount) executeRound2(ctx context.Context, coord common.RoundCoordinator) error {
	roundID := a.params.Round(2)
	if err := coord.StartRound(ctx, roundID, 1); err != nil {
		return fmt.Errorf("failed to start round %d: %w", roundID, err)
	}

	counts, err := coord.WaitForRound(ctx, a.params.Round(1), a.params.PollInterval)
	if err != nil {
		return err
	}
	noisyCounts := make([]int64, a.params.NumWorkers)
	for w := range noisyCounts {
		payload, ok := counts[countKey(w)]
		if !ok {
			return fmt.Errorf("no count from worker %d", w)
		}
		if noisyCounts[w], err = decodeCount(payload); err != nil {
			return fmt.Errorf("count from worker %d: %w", w, err)
		}
	}

	if a.params.IsCoordinator() {
		estimate := releaseEstimate(noisyCounts, a.graph.NumVertices())
		a.params.Logger.Info("releasing noisy color count", "estimate", estimate, "epsilon", a.epsilon)
		if err := coord.PublishValues(ctx, roundID, a.params.WorkerID, map[string][]byte{releaseKey: encodeCount(estimate)}); err != nil {
			return fmt.Errorf("failed to publish estimate: %w", err)
		}
	}

	released, err := coord.WaitForRound(ctx, roundID, a.params.PollInterval)
	if err != nil {
		return err
	}
	estimate, err := decodeCount(released[releaseKey])
	if err != nil {
		return fmt.Errorf("invalid estimate: %w", err)
	}

	a.mu.Lock()
	a.noisyCounts = noisyCounts
	a.released = estimate
	a.done = true
	a.mu.Unlock()
	return nil
}

// releaseEstimate is the largest noisy count clamped to [0, numVertices].
func releaseEstimate(noisyCounts []int64, numVertices int) int64 {
	var best int64
	for _, c := range noisyCounts {
		if c > best {
			best = c
		}
	}
	if best > int64(numVertices) {
		best = int64(numVertices)
	}
	return best
}

func countKey(worker int) string {
	return fmt.Sprintf("%s%d", countKeyPrefix, worker)
}

// Counts travel as 8-byte little-endian two's complement.
func encodeCount(c int64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(c))
	return b
}

func decodeCount(b []byte) (int64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("expected 8 bytes, got %d", len(b))
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

func (a *NoisyColorCount) writeResults() error {
	file, err := os.Create(a.params.ResultFile)
	if err != nil {
		return fmt.Errorf("failed to create result file: %w", err)
	}
	defer file.Close()

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := fmt.Fprintf(file, "# Noisy Color Count Results (Worker: %s)\n", a.params.WorkerID); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(file, "epsilon %g\nsensitivity %g\nestimate %d\n", a.epsilon, a.sensitivity, a.released); err != nil {
		return err
	}
	for w, c := range a.noisyCounts {
		if _, err := fmt.Fprintf(file, "worker-%d %d\n", w, c); err != nil {
			return err
		}
	}
	return file.Close()
}

func (a *NoisyColorCount) GetResult() *common.AlgorithmResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := &common.AlgorithmResult{
		AlgorithmName: a.Name(),
		NumRounds:     2,
		Results:       make(map[string]interface{}),
		Metadata: map[string]interface{}{
			"epsilon":     a.epsilon,
			"sensitivity": a.sensitivity,
			"noise":       a.noise,
		},
	}
	if a.params != nil {
		out.Metadata["worker_id"] = a.params.WorkerID
		out.Metadata["num_workers"] = a.params.NumWorkers
	}
	if !a.done {
		return out
	}

	out.Converged = true
	out.ConvergenceRound = 2
	out.Results["noisy_color_count"] = a.released
	out.Results["noisy_counts"] = append([]int64(nil), a.noisyCounts...)
	// The exact count never leaves the worker; it is reported locally only.
	out.Results["local_color_count"] = a.localCount
	return out
}

// Register the algorithm
func init() {
	Register("noisy-color-count", NewNoisyColorCount)
}
