package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/caioniehues/obsidian-money-manager/internal/anomaly"
	"github.com/caioniehues/obsidian-money-manager/internal/recurrence"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show what the engines have learned",
		Args:  cobra.NoArgs,
		RunE:  runStats,
	}
}

func runStats(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	history, err := loadHistory(ctx, store)
	if err != nil {
		return err
	}

	fmt.Printf("Transactions: %d\n\n", len(history))
	if len(history) == 0 {
		return nil
	}

	c, err := loadCategorizer(ctx, store, history)
	if err != nil {
		return err
	}
	catStats := c.GetStatistics()
	fmt.Println("Categorizer:")
	fmt.Printf("  categories learned:   %d\n", catStats.CategoriesLearned)
	fmt.Printf("  merchants recognized: %d\n", catStats.MerchantsRecognized)
	fmt.Printf("  patterns learned:     %d\n", catStats.TotalPatternsLearned)
	fmt.Printf("  average confidence:   %.2f\n\n", catStats.AvgConfidence)

	detector := anomaly.NewDetector()
	detector.BuildProfiles(ctx, history)
	anomalyStats := detector.GetStatistics()
	fmt.Println("Anomaly profiles:")
	fmt.Printf("  categories profiled: %d", anomalyStats.ProfilesBuilt)
	if len(anomalyStats.CategoriesCovered) > 0 {
		fmt.Printf(" (%s)", strings.Join(anomalyStats.CategoriesCovered, ", "))
	}
	fmt.Println()
	fmt.Printf("  merchants known:     %d\n\n", anomalyStats.KnownMerchants)

	patterns := recurrence.NewDetector().DetectPatterns(ctx, history)
	fmt.Printf("Recurring patterns: %d\n", len(patterns))

	return nil
}
