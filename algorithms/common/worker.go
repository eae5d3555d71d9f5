package common

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/mundrapranay/silhouette-coloring/algorithms/coloring"
	"github.com/mundrapranay/silhouette-coloring/internal/logging"
)

// DefaultPollInterval is how often a worker polls for round completion.
const DefaultPollInterval = 50 * time.Millisecond

// WorkerParams are the settings every distributed algorithm reads from the
// map passed to Initialize.
type WorkerParams struct {
	WorkerID    string
	WorkerIndex int
	NumWorkers  int

	// RoundOffset shifts every round ID so that several runs can share one
	// server. Round r of a run is RoundOffset+r.
	RoundOffset uint64

	PollInterval time.Duration

	// ResultFile, when set, receives the final coloring.
	ResultFile string

	Logger hclog.Logger
}

// ParseWorkerParams reads worker_id, num_workers, round_offset,
// poll_interval_ms, result_file and an optional hclog "logger".
func ParseWorkerParams(config map[string]interface{}) (*WorkerParams, error) {
	workerID, ok := config["worker_id"].(string)
	if !ok || workerID == "" {
		return nil, fmt.Errorf("worker_id not found in config")
	}
	index, err := extractWorkerIndex(workerID)
	if err != nil {
		return nil, err
	}

	numWorkers, err := IntParam(config, "num_workers", 0)
	if err != nil {
		return nil, err
	}
	if numWorkers <= 0 {
		return nil, fmt.Errorf("num_workers not found in config")
	}
	if index >= numWorkers {
		return nil, fmt.Errorf("%w: worker %d of %d", coloring.ErrInvalidConfiguration, index, numWorkers)
	}

	offset, err := IntParam(config, "round_offset", 0)
	if err != nil {
		return nil, err
	}
	if offset < 0 {
		return nil, fmt.Errorf("round_offset must be >= 0, got %d", offset)
	}

	pollMs, err := IntParam(config, "poll_interval_ms", int(DefaultPollInterval/time.Millisecond))
	if err != nil {
		return nil, err
	}
	if pollMs <= 0 {
		return nil, fmt.Errorf("poll_interval_ms must be > 0, got %d", pollMs)
	}

	resultFile, err := StringParam(config, "result_file", "")
	if err != nil {
		return nil, err
	}

	logger, _ := config["logger"].(hclog.Logger)

	return &WorkerParams{
		WorkerID:     workerID,
		WorkerIndex:  index,
		NumWorkers:   numWorkers,
		RoundOffset:  uint64(offset),
		PollInterval: time.Duration(pollMs) * time.Millisecond,
		ResultFile:   resultFile,
		Logger:       logging.OrNull(logger).With("worker", workerID),
	}, nil
}

// Round maps a run-local round number to the server's round ID.
func (p *WorkerParams) Round(r int) uint64 {
	return p.RoundOffset + uint64(r)
}

// IsCoordinator reports whether this worker gathers and resolves.
func (p *WorkerParams) IsCoordinator() bool {
	return p.WorkerIndex == 0
}

// WriteColoring writes one "vertex_id color" line per vertex.
func WriteColoring(path, algorithm, workerID string, colors coloring.Coloring) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create result file: %w", err)
	}
	defer file.Close()

	if _, err := fmt.Fprintf(file, "# %s results (worker: %s, colors: %d)\n", algorithm, workerID, coloring.ColorCount(colors)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(file, "# Format: vertex_id color\n"); err != nil {
		return err
	}
	for v, c := range colors {
		if _, err := fmt.Fprintf(file, "%d %d\n", v, c); err != nil {
			return err
		}
	}
	return file.Close()
}
