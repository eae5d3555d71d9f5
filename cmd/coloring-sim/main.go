package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"reflect"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/mundrapranay/silhouette-coloring/algorithms"
	"github.com/mundrapranay/silhouette-coloring/algorithms/coloring"
	"github.com/mundrapranay/silhouette-coloring/algorithms/common"
	"github.com/mundrapranay/silhouette-coloring/internal/logging"
	"github.com/mundrapranay/silhouette-coloring/pkg/client"

	_ "github.com/mundrapranay/silhouette-coloring/algorithms/exact"
	_ "github.com/mundrapranay/silhouette-coloring/algorithms/ledp"
)

var (
	serverAddr  = flag.String("server", "127.0.0.1:9090", "Server address (host:port)")
	local       = flag.Bool("local", false, "Coordinate workers in process instead of through a server")
	numWorkers  = flag.Int("workers", 4, "Number of concurrent workers")
	graphFile   = flag.String("graph", "", "Path to the graph file (required)")
	graphFormat = flag.String("format", "matrix", "Graph format: matrix or edgelist")
	algType     = flag.String("type", "exact", "Algorithm type: exact or ledp")
	algName     = flag.String("algorithm", "block-partition-coloring", "Algorithm name")
	roundOffset = flag.Uint64("round-offset", 0, "Added to every round ID so runs can share a server")
	epsilon     = flag.Float64("epsilon", 1.0, "Privacy budget for ledp algorithms")
	timeout     = flag.Duration("timeout", 5*time.Minute, "Abort the run after this long")
	logLevel    = flag.String("log-level", "info", "Log level: trace, debug, info, warn, error")
)

func main() {
	flag.Parse()
	logger := logging.New("coloring-sim", *logLevel)

	if err := run(logger); err != nil {
		logger.Error("simulation failed", "error", err)
		os.Exit(1)
	}
}

func run(logger hclog.Logger) error {
	if *graphFile == "" {
		return fmt.Errorf("-graph is required")
	}
	if *numWorkers <= 0 {
		return fmt.Errorf("-workers must be > 0, got %d", *numWorkers)
	}

	cfg := &common.GraphInputConfig{Format: *graphFormat, FilePath: *graphFile}
	if err := cfg.Validate(); err != nil {
		return err
	}
	g, err := common.LoadGraph(cfg)
	if err != nil {
		return fmt.Errorf("failed to load graph: %w", err)
	}
	logger.Info("loaded graph", "vertices", g.NumVertices(), "edges", g.NumEdges())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	// One coordinator per worker when going through a server, so each worker
	// has its own connection like a separate process would.
	var shared common.RoundCoordinator
	if *local {
		shared = common.NewMemoryCoordinator()
		logger.Info("coordinating in process")
	} else {
		logger.Info("coordinating through server", "addr", *serverAddr)
	}

	results := make([]*common.AlgorithmResult, *numWorkers)
	start := time.Now()

	eg, egCtx := errgroup.WithContext(ctx)
	for i := 0; i < *numWorkers; i++ {
		i := i
		eg.Go(func() error {
			coord := shared
			if coord == nil {
				c, err := client.NewClient(*serverAddr)
				if err != nil {
					return err
				}
				defer c.Close()
				coord = c
			}

			res, err := runWorker(egCtx, g, coord, i, logger)
			if err != nil {
				return fmt.Errorf("%s: %w", common.WorkerID(i), err)
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	if err := checkAgreement(results); err != nil {
		return err
	}

	printSummary(g, results[0], elapsed)

	if common.AlgorithmType(*algType) == common.AlgorithmTypeExact {
		return verifyExact(ctx, g, results[0])
	}
	return nil
}

func runWorker(ctx context.Context, g *coloring.Graph, coord common.RoundCoordinator, index int, logger hclog.Logger) (*common.AlgorithmResult, error) {
	alg, err := algorithms.GetAlgorithm(common.AlgorithmType(*algType), *algName)
	if err != nil {
		return nil, err
	}

	workerID := common.WorkerID(index)
	params := map[string]interface{}{
		"worker_id":    workerID,
		"num_workers":  *numWorkers,
		"round_offset": int(*roundOffset),
		"epsilon":      *epsilon,
		"logger":       logger.With("worker", workerID),
	}
	if err := alg.Initialize(ctx, g, params); err != nil {
		return nil, err
	}
	return alg.Execute(ctx, coord, 2)
}

// checkAgreement requires every worker to report the same outcome.
func checkAgreement(results []*common.AlgorithmResult) error {
	keys := []string{"coloring", "color_count", "noisy_color_count"}
	for i := 1; i < len(results); i++ {
		for _, key := range keys {
			want, ok := results[0].Results[key]
			if !ok {
				continue
			}
			if got := results[i].Results[key]; !reflect.DeepEqual(want, got) {
				return fmt.Errorf("%s disagrees with %s on %s", common.WorkerID(i), common.WorkerID(0), key)
			}
		}
	}
	return nil
}

// verifyExact checks the distributed coloring against a proper in-process
// run with the same number of workers.
func verifyExact(ctx context.Context, g *coloring.Graph, result *common.AlgorithmResult) error {
	colors, ok := result.Results["coloring"].(coloring.Coloring)
	if !ok {
		return fmt.Errorf("result has no coloring")
	}
	if bad := coloring.Verify(g, colors); len(bad) > 0 {
		return fmt.Errorf("coloring is not proper: %d monochromatic edges", len(bad))
	}

	if *algName != "block-partition-coloring" {
		return nil
	}
	want, err := coloring.ColorGraph(ctx, g, *numWorkers)
	if err != nil {
		return err
	}
	if !reflect.DeepEqual(want.Coloring, colors) {
		return fmt.Errorf("distributed coloring differs from in-process coloring")
	}
	fmt.Printf("✅ Matches in-process coloring with %d workers\n", *numWorkers)
	return nil
}

func printSummary(g *coloring.Graph, result *common.AlgorithmResult, elapsed time.Duration) {
	fmt.Println()
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Printf("📋 Summary\n")
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Printf("  Algorithm:          %s (%s)\n", result.AlgorithmName, *algType)
	fmt.Printf("  G(V,E):             (%d,%d)\n", g.NumVertices(), g.NumEdges())
	fmt.Printf("  Number of workers:  %d\n", *numWorkers)
	fmt.Printf("  Rounds:             %d\n", result.NumRounds)
	if v, ok := result.Results["color_count"]; ok {
		fmt.Printf("  Colors used:        %v\n", v)
	}
	if v, ok := result.Results["conflicts"].([]int); ok {
		fmt.Printf("  Conflicts:          %d\n", len(v))
	}
	if v, ok := result.Results["noisy_color_count"]; ok {
		fmt.Printf("  Noisy color count:  %v\n", v)
	}
	fmt.Printf("  Duration:           %v\n", elapsed)
	fmt.Println()
}
