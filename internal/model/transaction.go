// Package model defines the core data structures for the money manager engines.
package model

import (
	"fmt"
	"math"
	"time"
)

// TransactionType distinguishes money coming in from money going out.
type TransactionType string

const (
	// TypeIncome represents incoming funds.
	TypeIncome TransactionType = "income"
	// TypeExpense represents outgoing funds.
	TypeExpense TransactionType = "expense"
)

// TransactionStatus indicates whether a transaction has settled.
type TransactionStatus string

const (
	// StatusPending represents a transaction that has not settled yet.
	StatusPending TransactionStatus = "pending"
	// StatusPaid represents a settled transaction.
	StatusPaid TransactionStatus = "paid"
)

// Transaction is a single ledger entry. The engines treat it as read-only
// input; amounts are always positive magnitudes with Type carrying the sign.
type Transaction struct {
	Date        time.Time         `json:"date"`
	ID          string            `json:"id"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	Type        TransactionType   `json:"type"`
	Status      TransactionStatus `json:"status"`
	Amount      float64           `json:"amount"`
}

// InvalidTransactionError reports a caller-side data integrity violation.
// Heuristic misses never produce this; only malformed input does.
type InvalidTransactionError struct {
	ID     string
	Field  string
	Reason string
}

func (e *InvalidTransactionError) Error() string {
	return fmt.Sprintf("invalid transaction %s: %s %s", e.ID, e.Field, e.Reason)
}

// Validate checks the caller contract: positive, finite amount and a
// non-empty description.
func (t *Transaction) Validate() error {
	if math.IsNaN(t.Amount) || math.IsInf(t.Amount, 0) {
		return &InvalidTransactionError{ID: t.ID, Field: "amount", Reason: "must be finite"}
	}
	if t.Amount <= 0 {
		return &InvalidTransactionError{ID: t.ID, Field: "amount", Reason: "must be positive"}
	}
	if t.Description == "" {
		return &InvalidTransactionError{ID: t.ID, Field: "description", Reason: "must not be empty"}
	}
	return nil
}

// IsExpense reports whether the transaction is an expense.
func (t *Transaction) IsExpense() bool {
	return t.Type == TypeExpense
}
