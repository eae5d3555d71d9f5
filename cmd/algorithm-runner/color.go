package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mundrapranay/silhouette-coloring/algorithms/coloring"
	"github.com/mundrapranay/silhouette-coloring/algorithms/common"
	"github.com/mundrapranay/silhouette-coloring/internal/logging"
	"github.com/mundrapranay/silhouette-coloring/internal/metrics"
)

var (
	colorGraphFile string
	colorFormat    string
	colorWorkers   int
	colorOutput    string
)

var colorCmd = &cobra.Command{
	Use:   "color",
	Short: "Color a graph file in process",
	Long: `Color a graph with W concurrent local colorers, then detect and resolve
conflicts serially. No server is involved.

Examples:
  algorithm-runner color --graph road.mtx --workers 8
  algorithm-runner color --graph edges.txt --format edgelist --workers 4 --output colors.txt`,
	RunE: runColor,
}

func init() {
	colorCmd.Flags().StringVarP(&colorGraphFile, "graph", "g", "", "Path to the graph file")
	colorCmd.Flags().StringVarP(&colorFormat, "format", "f", "matrix", "Graph format: matrix or edgelist")
	colorCmd.Flags().IntVarP(&colorWorkers, "workers", "w", 1, "Number of local colorers")
	colorCmd.Flags().StringVarP(&colorOutput, "output", "o", "", "Write the coloring to this file")
	_ = colorCmd.MarkFlagRequired("graph")
}

func runColor(cmd *cobra.Command, _ []string) error {
	logger := logging.New("algorithm-runner", logLevel)

	cfg := &common.GraphInputConfig{Format: colorFormat, FilePath: colorGraphFile}
	if err := cfg.Validate(); err != nil {
		return err
	}
	g, err := common.LoadGraph(cfg)
	if err != nil {
		return fmt.Errorf("failed to load graph: %w", err)
	}
	logger.Info("loaded graph", "vertices", g.NumVertices(), "edges", g.NumEdges(), "max_degree", g.MaxDegree())

	res, err := coloring.ColorGraph(cmd.Context(), g, colorWorkers)
	if err != nil {
		return err
	}
	metrics.ObserveColoring("color", res)
	defer pushMetrics(cmd.Context(), logger, "local")

	fmt.Printf("G(V,E) = (%d,%d)\n", g.NumVertices(), g.NumEdges())
	fmt.Printf("Workers: %d\n", colorWorkers)
	fmt.Printf("Conflicts found: %v (%d vertices)\n", res.ConflictsFound, len(res.Conflicts))
	fmt.Printf("Colors used: %d\n", res.ColorCount)
	fmt.Printf("Timings: local=%s gather=%s detect=%s resolve=%s\n",
		res.Timings.Local, res.Timings.Gather, res.Timings.Detect, res.Timings.Resolve)

	if bad := coloring.Verify(g, res.Coloring); len(bad) > 0 {
		return fmt.Errorf("coloring is not proper: %d monochromatic edges", len(bad))
	}

	if colorOutput != "" {
		if err := common.WriteColoring(colorOutput, "color", "local", res.Coloring); err != nil {
			return err
		}
		logger.Info("wrote coloring", "path", colorOutput)
	}
	return nil
}
