package importer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caioniehues/obsidian-money-manager/internal/model"
)

func TestParse(t *testing.T) {
	input := `date,description,amount,category,type,status
2024-06-01,WHOLE FOODS,-42.50,Groceries,,paid
2024-06-02,ACME PAYROLL,2500.00,Salary,,paid
06/03/2024,NETFLIX.COM,-15.99,Subscriptions,expense,pending
`

	result, err := NewCSVReader().Parse(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, result.Transactions, 3)
	assert.Equal(t, 0, result.Skipped)

	groceries := result.Transactions[0]
	assert.Equal(t, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC), groceries.Date)
	assert.Equal(t, "WHOLE FOODS", groceries.Description)
	assert.InDelta(t, 42.50, groceries.Amount, 0.001)
	assert.Equal(t, model.TypeExpense, groceries.Type)
	assert.Equal(t, model.StatusPaid, groceries.Status)
	assert.Equal(t, "Groceries", groceries.Category)
	assert.NotEmpty(t, groceries.ID)

	payroll := result.Transactions[1]
	assert.Equal(t, model.TypeIncome, payroll.Type)
	assert.InDelta(t, 2500.00, payroll.Amount, 0.001)

	netflix := result.Transactions[2]
	assert.Equal(t, time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC), netflix.Date)
	assert.Equal(t, model.StatusPending, netflix.Status)
}

func TestParse_ExplicitIDAndTypeOverride(t *testing.T) {
	input := `id,date,description,amount,type
txn-77,2024-06-01,REFUND FROM STORE,25.00,expense
`

	result, err := NewCSVReader().Parse(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, result.Transactions, 1)

	txn := result.Transactions[0]
	assert.Equal(t, "txn-77", txn.ID)
	// The type column wins over the amount sign.
	assert.Equal(t, model.TypeExpense, txn.Type)
}

func TestParse_SkipsMalformedRows(t *testing.T) {
	input := `date,description,amount
2024-06-01,WHOLE FOODS,-42.50
not-a-date,BAD ROW,-10.00
2024-06-03,,-10.00
2024-06-04,ZERO AMOUNT,0
2024-06-05,BAD AMOUNT,abc
2024-06-06,TRADER JOES,-13.25
`

	result, err := NewCSVReader().Parse(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, result.Transactions, 2)
	assert.Equal(t, 4, result.Skipped)
	assert.Equal(t, "WHOLE FOODS", result.Transactions[0].Description)
	assert.Equal(t, "TRADER JOES", result.Transactions[1].Description)
}

func TestParse_MissingRequiredColumn(t *testing.T) {
	input := `date,description
2024-06-01,WHOLE FOODS
`

	result, err := NewCSVReader().Parse(context.Background(), strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amount")
	assert.Nil(t, result)
}

func TestParse_GeneratedIDsAreStable(t *testing.T) {
	input := `date,description,amount
2024-06-01,COFFEE CART,-4.50
2024-06-01,COFFEE CART,-4.50
`

	first, err := NewCSVReader().Parse(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	second, err := NewCSVReader().Parse(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, first.Transactions, 2)
	// Same-day duplicates on different lines get distinct IDs, but the
	// same file always produces the same ones.
	assert.NotEqual(t, first.Transactions[0].ID, first.Transactions[1].ID)
	assert.Equal(t, first.Transactions[0].ID, second.Transactions[0].ID)
	assert.Equal(t, first.Transactions[1].ID, second.Transactions[1].ID)
}
