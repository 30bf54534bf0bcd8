// Package service defines the interfaces between the CLI and its
// collaborators. The engines themselves are consumed as concrete types;
// only the persistence boundary is abstracted.
package service

import (
	"context"
	"time"

	"github.com/caioniehues/obsidian-money-manager/internal/categorizer"
	"github.com/caioniehues/obsidian-money-manager/internal/model"
)

// TransactionFilter defines filtering options for ledger queries.
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
}

// Storage defines the contract for the ledger persistence layer.
type Storage interface {
	// Transaction operations.
	SaveTransactions(ctx context.Context, transactions []model.Transaction) error
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)

	// Categorizer snapshot persistence. Snapshots are opaque to the
	// store; the categorizer defines their shape.
	SaveCategorizerSnapshot(ctx context.Context, snapshot *categorizer.Snapshot) error
	GetLatestCategorizerSnapshot(ctx context.Context) (*categorizer.Snapshot, error)

	Close() error
}
