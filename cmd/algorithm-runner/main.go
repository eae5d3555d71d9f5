package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	// Import algorithm registries to register algorithms
	_ "github.com/mundrapranay/silhouette-coloring/algorithms/exact"
	_ "github.com/mundrapranay/silhouette-coloring/algorithms/ledp"
)

var (
	logLevel    string
	pushGateway string
)

var rootCmd = &cobra.Command{
	Use:   "algorithm-runner",
	Short: "Run graph coloring workers against a silhouette server",
	Long: `algorithm-runner executes one worker of a distributed coloring algorithm,
or colors a graph in process.

Subcommands:
  run    - Run one worker described by a YAML config
  color  - Color a graph file in process with W local colorers
  list   - List registered algorithms`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level: trace, debug, info, warn, error (overrides the config)")
	rootCmd.PersistentFlags().StringVar(&pushGateway, "pushgateway", "",
		"Prometheus Pushgateway URL to push run metrics to before exiting")

	rootCmd.AddCommand(runCmd, colorCmd, listCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
