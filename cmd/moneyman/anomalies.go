package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/caioniehues/obsidian-money-manager/internal/anomaly"
	"github.com/caioniehues/obsidian-money-manager/internal/common"
	"github.com/caioniehues/obsidian-money-manager/internal/model"
)

func anomaliesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "anomalies",
		Short: "Scan recent transactions for anomalies",
		Long: `Scan recent transactions for anomalies: unusual amounts, unknown or
suspicious merchants, odd timing, possible duplicates, and spending
velocity spikes.

Profiles are built from the full history; by default the last 7 days of
transactions are checked.`,
		Args: cobra.NoArgs,
		RunE: runAnomalies,
	}

	cmd.Flags().Int("days", 7, "How many days back to check")
	cmd.Flags().String("id", "", "Check a single transaction by ID")

	return cmd
}

func runAnomalies(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	days, _ := cmd.Flags().GetInt("days")
	id, _ := cmd.Flags().GetString("id")

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

	detector := anomaly.NewDetector()
	detector.BuildProfiles(ctx, history)

	var candidates []model.Transaction
	if id != "" {
		txn, lookupErr := store.GetTransactionByID(ctx, id)
		if lookupErr != nil {
			return common.NewUserError(fmt.Sprintf("Transaction %s not found", id), lookupErr)
		}
		candidates = []model.Transaction{*txn}
	} else {
		cutoff := time.Now().AddDate(0, 0, -days)
		for _, txn := range history {
			if !txn.Date.Before(cutoff) {
				candidates = append(candidates, txn)
			}
		}
	}

	flagged := 0
	for _, txn := range candidates {
		alerts, detectErr := detector.DetectAnomalies(ctx, txn, history)
		if detectErr != nil {
			return detectErr
		}
		if len(alerts) == 0 {
			continue
		}
		flagged++

		fmt.Printf("%s  %s  $%.2f (%s)\n",
			txn.Date.Format("2006-01-02"), txn.Description, txn.Amount, txn.Category)
		for _, alert := range alerts {
			fmt.Printf("  [%s] %s: %s\n", alert.Severity, alert.Type, alert.Message)
			if alert.Details.Expected != "" {
				fmt.Printf("         expected %s, got %s\n", alert.Details.Expected, alert.Details.Actual)
			}
		}
	}

	if flagged == 0 {
		fmt.Printf("No anomalies among %d checked transaction(s).\n", len(candidates))
	} else {
		fmt.Printf("\n%d of %d transaction(s) flagged.\n", flagged, len(candidates))
	}

	return nil
}
