package common

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mundrapranay/silhouette-coloring/algorithms/coloring"
)

// AlgorithmType represents the type of algorithm
type AlgorithmType string

const (
	AlgorithmTypeExact AlgorithmType = "exact"
	AlgorithmTypeLEDP  AlgorithmType = "ledp"
)

// RoundCoordinator is the round-synchronous exchange workers coordinate
// through. *client.Client implements it against a silhouette server.
type RoundCoordinator interface {
	StartRound(ctx context.Context, roundID uint64, expectedWorkers int32) error
	PublishValues(ctx context.Context, roundID uint64, workerID string, pairs map[string][]byte) error
	GetValue(ctx context.Context, roundID uint64, key string) ([]byte, error)
	WaitForRound(ctx context.Context, roundID uint64, poll time.Duration) (map[string][]byte, error)
}

// GraphAlgorithm is the interface that all graph algorithms must implement.
// Algorithms are round-based and synchronous, using the coordination server
// as their only channel between workers.
type GraphAlgorithm interface {
	// Name returns the name of the algorithm
	Name() string

	// Type returns the algorithm type (exact or LEDP)
	Type() AlgorithmType

	// Initialize prepares the algorithm with the input graph and
	// configuration. Every worker receives the whole graph.
	Initialize(ctx context.Context, graph *coloring.Graph, config map[string]interface{}) error

	// Execute runs the algorithm for the given number of rounds.
	Execute(ctx context.Context, coord RoundCoordinator, numRounds int) (*AlgorithmResult, error)

	// GetResult returns the final algorithm result after execution completes.
	GetResult() *AlgorithmResult
}

// GraphData represents the input graph as loaded from disk or config.
type GraphData struct {
	NumVertices int
	NumEdges    int

	// Edges as read, before symmetrisation and deduplication.
	Edges []Edge

	// SelfLoops counts dropped u == v entries.
	SelfLoops int
}

// Edge represents a single edge in the graph
type Edge struct {
	U int
	V int
}

// AlgorithmResult represents the final output of an algorithm execution
type AlgorithmResult struct {
	AlgorithmName    string
	NumRounds        int
	Converged        bool
	ConvergenceRound int

	// Results: algorithm-specific data, e.g. "coloring" and "color_count".
	Results map[string]interface{}

	// Metadata: execution statistics, timing, etc.
	Metadata map[string]interface{}
}

// AlgorithmConfig represents the configuration for an algorithm
type AlgorithmConfig struct {
	// Algorithm name (must match an available algorithm)
	AlgorithmName string `yaml:"algorithm_name" json:"algorithm_name"`

	// Algorithm type
	AlgorithmType AlgorithmType `yaml:"algorithm_type" json:"algorithm_type"`

	// Silhouette server address
	ServerAddress string `yaml:"server_address" json:"server_address"`

	// LogLevel is an hclog level name; empty means info.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// Worker configuration
	WorkerConfig WorkerConfig `yaml:"worker_config" json:"worker_config"`

	// Algorithm-specific parameters
	Parameters map[string]interface{} `yaml:"parameters" json:"parameters"`

	// Graph input configuration
	GraphConfig GraphInputConfig `yaml:"graph_config" json:"graph_config"`
}

// WorkerConfig specifies how workers participate in the algorithm
type WorkerConfig struct {
	// Number of workers
	NumWorkers int `yaml:"num_workers" json:"num_workers"`

	// Worker ID in the form worker-N, 0 <= N < NumWorkers
	WorkerID string `yaml:"worker_id" json:"worker_id"`
}

// GraphInputConfig specifies how to load the graph
type GraphInputConfig struct {
	// Input format: "edgelist" (0-based) or "matrix" (1-based coordinate triples)
	Format string `yaml:"format" json:"format"`

	// Input file path (if loading from file). Every worker loads the whole graph.
	FilePath string `yaml:"file_path" json:"file_path"`

	// Or: edges given inline in the config
	Edges []ConfigEdge `yaml:"edges" json:"edges"`

	// Number of vertices; derived from the largest vertex index when zero
	NumVertices int `yaml:"num_vertices" json:"num_vertices"`

	// Directed graphs are not supported and rejected by Validate.
	Directed bool `yaml:"directed" json:"directed"`
}

// ConfigEdge is an inline edge in a config file.
type ConfigEdge struct {
	U int     `yaml:"u" json:"u"`
	V int     `yaml:"v" json:"v"`
	W float64 `yaml:"w,omitempty" json:"w,omitempty"` // Accepted for compatibility, ignored
}

// Validate checks if the algorithm config is valid
func (c *AlgorithmConfig) Validate() error {
	if c.AlgorithmName == "" {
		return fmt.Errorf("algorithm_name is required")
	}

	if c.AlgorithmType != AlgorithmTypeExact && c.AlgorithmType != AlgorithmTypeLEDP {
		return fmt.Errorf("algorithm_type must be 'exact' or 'ledp', got: %s", c.AlgorithmType)
	}

	if c.ServerAddress == "" {
		return fmt.Errorf("server_address is required")
	}

	if c.WorkerConfig.NumWorkers <= 0 {
		return fmt.Errorf("num_workers must be > 0, got: %d", c.WorkerConfig.NumWorkers)
	}

	if c.WorkerConfig.WorkerID == "" {
		return fmt.Errorf("worker_id is required")
	}

	index, err := extractWorkerIndex(c.WorkerConfig.WorkerID)
	if err != nil {
		return err
	}
	if index >= c.WorkerConfig.NumWorkers {
		return fmt.Errorf("worker_id %s out of range for %d workers", c.WorkerConfig.WorkerID, c.WorkerConfig.NumWorkers)
	}

	return c.GraphConfig.Validate()
}

// Validate checks the graph input section.
func (g *GraphInputConfig) Validate() error {
	if g.Directed {
		return fmt.Errorf("directed graphs are not supported")
	}
	if g.NumVertices < 0 {
		return fmt.Errorf("num_vertices must be >= 0, got: %d", g.NumVertices)
	}
	if g.FilePath == "" && len(g.Edges) == 0 && g.NumVertices == 0 {
		return fmt.Errorf("no graph data provided: specify file_path, edges or num_vertices")
	}
	if g.FilePath != "" {
		switch strings.ToLower(g.Format) {
		case "edgelist", "edge_list", "matrix", "mtx":
		default:
			return fmt.Errorf("unsupported graph format: %q", g.Format)
		}
	}
	return nil
}

// WorkerIndex returns N for a worker_id of the form worker-N.
func (c *AlgorithmConfig) WorkerIndex() (int, error) {
	return extractWorkerIndex(c.WorkerConfig.WorkerID)
}

// AlgorithmParams flattens the config into the map passed to
// GraphAlgorithm.Initialize: the algorithm parameters plus worker_id,
// num_workers and worker_index.
func (c *AlgorithmConfig) AlgorithmParams() (map[string]interface{}, error) {
	index, err := c.WorkerIndex()
	if err != nil {
		return nil, err
	}
	params := make(map[string]interface{}, len(c.Parameters)+3)
	for k, v := range c.Parameters {
		params[k] = v
	}
	params["worker_id"] = c.WorkerConfig.WorkerID
	params["num_workers"] = c.WorkerConfig.NumWorkers
	params["worker_index"] = index
	return params, nil
}
