package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/mundrapranay/silhouette-coloring/algorithms"
	"github.com/mundrapranay/silhouette-coloring/algorithms/coloring"
	"github.com/mundrapranay/silhouette-coloring/algorithms/common"
	"github.com/mundrapranay/silhouette-coloring/internal/logging"
	"github.com/mundrapranay/silhouette-coloring/internal/metrics"
	"github.com/mundrapranay/silhouette-coloring/pkg/client"
)

// defaultRounds covers the publish and result rounds of every registered
// algorithm.
const defaultRounds = 2

var configFile string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one worker described by a YAML config",
	Long: `Run one worker of a distributed algorithm. Start one process per
worker_id (worker-0 .. worker-{W-1}); all of them must point at the same
server and graph.

Example config:
` + exampleConfig,
	RunE: runWorker,
}

func init() {
	runCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to algorithm configuration file")
	_ = runCmd.MarkFlagRequired("config")
}

func runWorker(cmd *cobra.Command, _ []string) error {
	config, err := common.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level := config.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	logger := logging.New("algorithm-runner", level).With("worker", config.WorkerConfig.WorkerID)

	logger.Debug("loaded configuration",
		"algorithm", config.AlgorithmName,
		"type", config.AlgorithmType,
		"server", config.ServerAddress,
		"workers", config.WorkerConfig.NumWorkers)

	algorithm, err := algorithms.GetAlgorithm(config.AlgorithmType, config.AlgorithmName)
	if err != nil {
		return err
	}

	g, err := common.LoadGraph(&config.GraphConfig)
	if err != nil {
		return fmt.Errorf("failed to load graph: %w", err)
	}
	logger.Info("loaded graph", "vertices", g.NumVertices(), "edges", g.NumEdges())

	params, err := config.AlgorithmParams()
	if err != nil {
		return err
	}
	params["logger"] = logger

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := algorithm.Initialize(ctx, g, params); err != nil {
		return fmt.Errorf("failed to initialize algorithm: %w", err)
	}

	dbClient, err := client.NewClient(config.ServerAddress)
	if err != nil {
		return err
	}
	defer dbClient.Close()

	numRounds, err := common.IntParam(config.Parameters, "num_rounds", defaultRounds)
	if err != nil {
		return err
	}

	logger.Info("executing algorithm", "algorithm", config.AlgorithmName, "rounds", numRounds)
	result, err := algorithm.Execute(ctx, dbClient, numRounds)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("interrupted: %w", err)
		}
		return fmt.Errorf("algorithm execution failed: %w", err)
	}

	if res, ok := result.Results["result"].(*coloring.Result); ok {
		metrics.ObserveColoring(config.AlgorithmName, res)
	}
	pushMetrics(cmd.Context(), logger, config.WorkerConfig.WorkerID)
	printResults(result)
	logger.Info("algorithm execution completed")
	return nil
}

// pushMetrics hands this process's metrics to the Pushgateway, if one is
// configured. A failed push is logged, not fatal.
func pushMetrics(ctx context.Context, logger hclog.Logger, worker string) {
	if pushGateway == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := metrics.Push(ctx, pushGateway, "algorithm-runner", map[string]string{"worker": worker}); err != nil {
		logger.Warn("metrics push failed", "error", err)
		return
	}
	logger.Debug("pushed metrics", "gateway", pushGateway)
}

func printResults(result *common.AlgorithmResult) {
	fmt.Println()
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("Algorithm Results: %s\n", result.AlgorithmName)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("  Rounds executed:    %d\n", result.NumRounds)
	fmt.Printf("  Converged:          %v\n", result.Converged)
	if result.Converged {
		fmt.Printf("  Convergence round:  %d\n", result.ConvergenceRound)
	}

	if len(result.Results) > 0 {
		fmt.Println()
		fmt.Println("  Results:")
		for _, key := range sortedKeys(result.Results) {
			switch v := result.Results[key].(type) {
			case *coloring.Result:
				// summarized by the other keys
			case coloring.Coloring:
				fmt.Printf("    %s: %d vertices\n", key, len(v))
			default:
				fmt.Printf("    %s: %v\n", key, v)
			}
		}
	}

	if len(result.Metadata) > 0 {
		fmt.Println()
		fmt.Println("  Metadata:")
		for _, key := range sortedKeys(result.Metadata) {
			fmt.Printf("    %s: %+v\n", key, result.Metadata[key])
		}
	}
	fmt.Println()
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

const exampleConfig = `  algorithm_name: block-partition-coloring
  algorithm_type: exact  # or 'ledp' with noisy-color-count
  server_address: "127.0.0.1:9090"
  log_level: info

  worker_config:
    num_workers: 4
    worker_id: "worker-0"

  graph_config:
    format: "matrix"  # or "edgelist"
    file_path: "/path/to/graph.mtx"
    # OR specify edges directly:
    # edges:
    #   - u: 0
    #     v: 1
    # num_vertices: 6

  parameters:
    round_offset: 0
    poll_interval_ms: 50
    result_file: "/tmp/coloring.txt"
    # ledp only:
    # epsilon: 1.0
    # sensitivity: 1.0
`
