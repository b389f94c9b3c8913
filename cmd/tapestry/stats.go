package tapestry

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	tapestrykg "github.com/tapestry-kg/tapestry"
	"github.com/tapestry-kg/tapestry/pkg/config"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print statistics for the stored graph",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	engine, err := tapestrykg.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}
	defer engine.Close()

	stats, err := engine.Statistics(context.Background())
	if err != nil {
		return fmt.Errorf("failed to compute statistics: %w", err)
	}

	fmt.Printf("Nodes:             %d\n", stats.Nodes)
	fmt.Printf("Edges:             %d\n", stats.Edges)
	fmt.Printf("Density:           %.4f\n", stats.Density)
	fmt.Printf("Avg degree:        %.2f\n", stats.AvgDegree)
	fmt.Printf("Max degree:        %d\n", stats.MaxDegree)
	fmt.Printf("Components:        %d\n", stats.Components)
	fmt.Printf("Largest component: %d\n", stats.LargestComponent)
	fmt.Printf("Avg clustering:    %.4f\n", stats.AvgClustering)

	if len(stats.NodeTypeCounts) > 0 {
		fmt.Println("\nNodes by type:")
		printTypeCounts(stats.NodeTypeCounts)
	}
	if len(stats.EdgeTypeCounts) > 0 {
		fmt.Println("\nEdges by type:")
		printTypeCounts(stats.EdgeTypeCounts)
	}
	return nil
}

func printTypeCounts[K ~string](counts map[K]int) {
	keys := make([]K, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, k := range keys {
		fmt.Printf("  %-20s %d\n", string(k), counts[k])
	}
}
