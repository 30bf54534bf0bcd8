package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/caioniehues/obsidian-money-manager/internal/model"
	"github.com/caioniehues/obsidian-money-manager/internal/ofx"
)

func importOFXCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-ofx [files...]",
		Short: "Import transactions from OFX/QFX files",
		Long: `Import transactions from OFX or QFX (Quicken) files exported from
your bank.

Examples:
  moneyman import-ofx ~/Downloads/chase_jan_2024.qfx
  moneyman import-ofx ~/Downloads/*.qfx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImportOFX,
	}

	cmd.Flags().BoolP("dry-run", "d", false, "Preview import without saving")

	return cmd
}

func runImportOFX(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	ctx := cmd.Context()

	files, err := expandGlobs(args)
	if err != nil {
		return err
	}

	parser := ofx.NewParser()
	seen := make(map[string]bool)
	var all []model.Transaction

	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}

		transactions, err := parser.ParseFile(ctx, f)
		_ = f.Close()
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}

		added := 0
		for _, txn := range transactions {
			if txn.ID != "" && seen[txn.ID] {
				continue
			}
			seen[txn.ID] = true
			all = append(all, txn)
			added++
		}

		slog.Info("Parsed OFX statement",
			"file", filepath.Base(path),
			"transactions", added,
			"duplicates", len(transactions)-added)
	}

	if dryRun {
		fmt.Printf("Dry run: %d transactions parsed, nothing saved\n", len(all))
		return nil
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.SaveTransactions(ctx, all); err != nil {
		return fmt.Errorf("failed to save transactions: %w", err)
	}

	fmt.Printf("Imported %d transactions\n", len(all))
	return nil
}
