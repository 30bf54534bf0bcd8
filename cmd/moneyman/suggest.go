package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func suggestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest [description] [amount]",
		Short: "Suggest an expense category for a transaction",
		Long: `Suggest an expense category for a transaction based on the learned
transaction history.

Examples:
  moneyman suggest "UBER TRIP 5X2K3" 12.50
  moneyman suggest "NETFLIX.COM" 15.99 --date 2024-03-01`,
		Args: cobra.ExactArgs(2),
		RunE: runSuggest,
	}

	cmd.Flags().String("date", "", "Transaction date (YYYY-MM-DD, default today)")

	return cmd
}

func runSuggest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	description := args[0]
	amount, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", args[1], err)
	}

	dateFlag, _ := cmd.Flags().GetString("date")
	date, err := parseDateFlag(dateFlag)
	if err != nil {
		return err
	}
	if date.IsZero() {
		date = time.Now()
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	history, err := loadHistory(ctx, store)
	if err != nil {
		return err
	}

	c, err := loadCategorizer(ctx, store, history)
	if err != nil {
		return err
	}

	suggestion, err := c.SuggestCategory(ctx, description, amount, date)
	if err != nil {
		return err
	}
	if suggestion == nil {
		fmt.Println("No confident suggestion. Categorize this one manually and it will be learned.")
		return nil
	}

	fmt.Printf("Suggested category: %s (%.0f%% confident)\n", suggestion.Category, suggestion.Confidence*100)
	if len(suggestion.Reasons) > 0 {
		fmt.Printf("  Because: %s\n", strings.Join(suggestion.Reasons, "; "))
	}
	for _, alt := range suggestion.Alternatives {
		fmt.Printf("  Also possible: %s (%.0f%%)\n", alt.Category, alt.Confidence*100)
	}

	return nil
}
