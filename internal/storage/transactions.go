package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caioniehues/obsidian-money-manager/internal/common"
	"github.com/caioniehues/obsidian-money-manager/internal/model"
	"github.com/caioniehues/obsidian-money-manager/internal/service"
)

// SaveTransactions upserts transactions into the ledger by ID.
func (s *SQLiteStore) SaveTransactions(ctx context.Context, transactions []model.Transaction) error {
	if len(transactions) == 0 {
		return nil
	}
	for i := range transactions {
		if err := transactions[i].Validate(); err != nil {
			return err
		}
		if transactions[i].ID == "" {
			return &model.InvalidTransactionError{Field: "id", Reason: "must not be empty"}
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (id, date, description, amount, category, type, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			description = excluded.description,
			amount = excluded.amount,
			category = excluded.category,
			type = excluded.type,
			status = excluded.status
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, txn := range transactions {
		if _, err := stmt.ExecContext(ctx,
			txn.ID,
			txn.Date.UTC(),
			txn.Description,
			txn.Amount,
			txn.Category,
			string(txn.Type),
			string(txn.Status),
		); err != nil {
			return fmt.Errorf("failed to save transaction %s: %w", txn.ID, err)
		}
	}

	return tx.Commit()
}

// GetTransactions returns ledger entries matching the filter in ascending
// date order.
func (s *SQLiteStore) GetTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	query := `SELECT id, date, description, amount, category, type, status FROM transactions`
	var conditions []string
	var args []any

	if filter.StartDate != nil {
		conditions = append(conditions, "date >= ?")
		args = append(args, filter.StartDate.UTC())
	}
	if filter.EndDate != nil {
		conditions = append(conditions, "date <= ?")
		args = append(args, filter.EndDate.UTC())
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date ASC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return transactions, nil
}

// GetTransactionByID returns a single ledger entry, or ErrNotFound.
func (s *SQLiteStore) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, date, description, amount, category, type, status FROM transactions WHERE id = ?`, id)

	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (model.Transaction, error) {
	var txn model.Transaction
	var date time.Time
	var category sql.NullString
	var txnType, status string

	if err := row.Scan(&txn.ID, &date, &txn.Description, &txn.Amount, &category, &txnType, &status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Transaction{}, err
		}
		return model.Transaction{}, fmt.Errorf("failed to scan transaction: %w", err)
	}

	txn.Date = date
	txn.Category = category.String
	txn.Type = model.TransactionType(txnType)
	txn.Status = model.TransactionStatus(status)

	return txn, nil
}
