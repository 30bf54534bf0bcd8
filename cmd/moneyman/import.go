package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/caioniehues/obsidian-money-manager/internal/importer"
	"github.com/caioniehues/obsidian-money-manager/internal/model"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Import transactions from CSV statements",
		Long: `Import transactions from CSV bank statements into the ledger.

The first row must be a header naming at least date, description, and
amount columns; id, category, type, and status columns are honored when
present.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImport,
	}

	cmd.Flags().BoolP("dry-run", "d", false, "Preview import without saving")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	ctx := cmd.Context()

	files, err := expandGlobs(args)
	if err != nil {
		return err
	}

	reader := importer.NewCSVReader()
	var all []model.Transaction
	skipped := 0

	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}

		result, err := reader.Parse(ctx, f)
		_ = f.Close()
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}

		slog.Info("Parsed CSV statement",
			"file", filepath.Base(path),
			"transactions", len(result.Transactions),
			"skipped", result.Skipped)
		all = append(all, result.Transactions...)
		skipped += result.Skipped
	}

	if dryRun {
		fmt.Printf("Dry run: %d transactions parsed (%d rows skipped), nothing saved\n", len(all), skipped)
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

	fmt.Printf("Imported %d transactions (%d rows skipped)\n", len(all), skipped)
	return nil
}

// expandGlobs resolves glob patterns and literal paths into file names.
func expandGlobs(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			if _, statErr := os.Stat(pattern); statErr == nil {
				files = append(files, pattern)
			} else {
				slog.Warn("No files found matching pattern", "pattern", pattern)
			}
			continue
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files found to import")
	}
	return files, nil
}
