package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mundrapranay/silhouette-coloring/algorithms"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered algorithms",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		exactAlgs, ledpAlgs := algorithms.ListAllAlgorithms()
		fmt.Println("exact:")
		for _, name := range exactAlgs {
			fmt.Printf("  %s\n", name)
		}
		fmt.Println("ledp:")
		for _, name := range ledpAlgs {
			fmt.Printf("  %s\n", name)
		}
	},
}
