package model

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionValidate(t *testing.T) {
	valid := Transaction{
		ID:          "t-1",
		Date:        time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
		Description: "WHOLE FOODS",
		Amount:      42.50,
		Type:        TypeExpense,
		Status:      StatusPaid,
	}

	tests := []struct {
		name      string
		mutate    func(*Transaction)
		wantField string
	}{
		{name: "valid", mutate: func(*Transaction) {}},
		{name: "zero amount", mutate: func(txn *Transaction) { txn.Amount = 0 }, wantField: "amount"},
		{name: "negative amount", mutate: func(txn *Transaction) { txn.Amount = -5 }, wantField: "amount"},
		{name: "nan amount", mutate: func(txn *Transaction) { txn.Amount = math.NaN() }, wantField: "amount"},
		{name: "infinite amount", mutate: func(txn *Transaction) { txn.Amount = math.Inf(1) }, wantField: "amount"},
		{name: "empty description", mutate: func(txn *Transaction) { txn.Description = "" }, wantField: "description"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := valid
			tt.mutate(&txn)

			err := txn.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			var invalidErr *InvalidTransactionError
			require.ErrorAs(t, err, &invalidErr)
			assert.Equal(t, tt.wantField, invalidErr.Field)
			assert.Equal(t, txn.ID, invalidErr.ID)
		})
	}
}

func TestIsExpense(t *testing.T) {
	expense := Transaction{Type: TypeExpense}
	income := Transaction{Type: TypeIncome}

	assert.True(t, expense.IsExpense())
	assert.False(t, income.IsExpense())
}
