package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/caioniehues/obsidian-money-manager/internal/categorizer"
	"github.com/caioniehues/obsidian-money-manager/internal/common"
)

func trainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "train",
		Short: "Rebuild the categorizer from the full history",
		Long: `Replay every categorized transaction through the categorizer and
persist the resulting profile snapshot.

Run this after bulk imports or manual recategorization so suggestions
reflect the whole history.`,
		Args: cobra.NoArgs,
		RunE: runTrain,
	}
}

func runTrain(cmd *cobra.Command, _ []string) error {
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
	if len(history) == 0 {
		return common.NewUserError("No transactions imported yet", common.ErrNoTransactions)
	}

	bar := progressbar.NewOptions(len(history),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Learning transactions..."),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)

	c := categorizer.NewCategorizer(nil)
	learned := 0
	for _, txn := range history {
		if learnErr := c.LearnFromTransaction(ctx, txn); learnErr != nil {
			slog.Debug("Skipping transaction during training", "id", txn.ID, "error", learnErr)
		} else if txn.IsExpense() && txn.Category != "" {
			learned++
		}
		_ = bar.Add(1)
	}

	if err := store.SaveCategorizerSnapshot(ctx, c.ExportProfiles()); err != nil {
		return fmt.Errorf("failed to save categorizer snapshot: %w", err)
	}

	stats := c.GetStatistics()
	fmt.Printf("Learned from %d of %d transactions: %d categories, %d merchants, %d patterns\n",
		learned, len(history), stats.CategoriesLearned, stats.MerchantsRecognized, stats.TotalPatternsLearned)

	return nil
}
