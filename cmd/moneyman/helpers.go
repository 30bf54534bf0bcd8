package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/caioniehues/obsidian-money-manager/internal/categorizer"
	"github.com/caioniehues/obsidian-money-manager/internal/common"
	"github.com/caioniehues/obsidian-money-manager/internal/model"
	"github.com/caioniehues/obsidian-money-manager/internal/service"
	"github.com/caioniehues/obsidian-money-manager/internal/storage"
)

func openStore() (*storage.SQLiteStore, error) {
	store, err := storage.NewSQLiteStore(databasePath())
	if err != nil {
		return nil, common.NewUserError("Could not open the ledger database", err)
	}
	return store, nil
}

func loadHistory(ctx context.Context, store service.Storage) ([]model.Transaction, error) {
	transactions, err := store.GetTransactions(ctx, service.TransactionFilter{})
	if err != nil {
		return nil, common.NewUserError("Could not load transaction history", err)
	}
	return transactions, nil
}

// loadCategorizer restores the persisted categorizer snapshot when one
// exists, otherwise replays the full history.
func loadCategorizer(ctx context.Context, store service.Storage, history []model.Transaction) (*categorizer.Categorizer, error) {
	snapshot, err := store.GetLatestCategorizerSnapshot(ctx)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}
	if snapshot != nil {
		return categorizer.NewCategorizer(snapshot), nil
	}

	c := categorizer.NewCategorizer(nil)
	for _, txn := range history {
		if learnErr := c.LearnFromTransaction(ctx, txn); learnErr != nil {
			common.LogDebug("skipping transaction during replay", common.Fields{
				"id":    txn.ID,
				"error": learnErr.Error(),
			})
		}
	}
	return c, nil
}

func parseDateFlag(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02"} {
		if date, err := time.Parse(layout, value); err == nil {
			return date, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q (use YYYY-MM-DD)", value)
}
