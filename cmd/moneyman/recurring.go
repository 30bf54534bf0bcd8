package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caioniehues/obsidian-money-manager/internal/recurrence"
)

func recurringCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recurring",
		Short: "List detected recurring payments",
		Long: `Detect recurring payments (subscriptions, rent, payroll deductions)
in the transaction history.

With --predict, also forecast the occurrences expected within the next
N days.`,
		Args: cobra.NoArgs,
		RunE: runRecurring,
	}

	cmd.Flags().Bool("predict", false, "Forecast upcoming occurrences")
	cmd.Flags().Int("days", 30, "Forecast horizon in days (with --predict)")

	return cmd
}

func runRecurring(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	predict, _ := cmd.Flags().GetBool("predict")
	days, _ := cmd.Flags().GetInt("days")

	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	history, err := loadHistory(ctx, store)
	if err != nil {
		return err
	}

	detector := recurrence.NewDetector()
	patterns := detector.DetectPatterns(ctx, history)

	if len(patterns) == 0 {
		fmt.Println("No recurring payments detected yet.")
		return nil
	}

	fmt.Printf("Detected %d recurring payment(s):\n\n", len(patterns))
	for _, p := range patterns {
		fmt.Printf("  %-10s every %3d days  ~$%.2f (±$%.2f)  next %s  %.0f%% confident\n",
			p.Type, p.IntervalDays, p.ExpectedAmount, p.AmountVariance,
			p.NextExpectedDate.Format("2006-01-02"), p.Confidence*100)
	}

	if !predict {
		return nil
	}

	predictions := detector.PredictUpcoming(ctx, patterns, days)
	fmt.Printf("\nExpected within the next %d days:\n\n", days)
	if len(predictions) == 0 {
		fmt.Println("  (nothing due)")
		return nil
	}
	for _, pr := range predictions {
		fmt.Printf("  %s  %-28s $%.2f  %.0f%% confident\n",
			pr.Date.Format("2006-01-02"), pr.Description, pr.Amount, pr.Confidence*100)
	}

	return nil
}
