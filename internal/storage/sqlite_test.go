package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caioniehues/obsidian-money-manager/internal/categorizer"
	"github.com/caioniehues/obsidian-money-manager/internal/common"
	"github.com/caioniehues/obsidian-money-manager/internal/model"
	"github.com/caioniehues/obsidian-money-manager/internal/service"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testTxn(id string, day int, amount float64) model.Transaction {
	return model.Transaction{
		ID:          id,
		Date:        time.Date(2024, time.June, day, 12, 0, 0, 0, time.UTC),
		Description: "WHOLE FOODS",
		Category:    "Groceries",
		Amount:      amount,
		Type:        model.TypeExpense,
		Status:      model.StatusPaid,
	}
}

func TestSaveTransactions_Roundtrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	want := []model.Transaction{testTxn("t-1", 1, 42.50), testTxn("t-2", 2, 13.99)}
	require.NoError(t, store.SaveTransactions(ctx, want))

	got, err := store.GetTransactions(ctx, service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "t-1", got[0].ID)
	assert.Equal(t, "WHOLE FOODS", got[0].Description)
	assert.Equal(t, "Groceries", got[0].Category)
	assert.InDelta(t, 42.50, got[0].Amount, 0.001)
	assert.Equal(t, model.TypeExpense, got[0].Type)
	assert.Equal(t, model.StatusPaid, got[0].Status)
	assert.True(t, got[0].Date.Equal(want[0].Date))
}

func TestSaveTransactions_UpsertByID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	original := testTxn("t-1", 1, 42.50)
	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{original}))

	updated := original
	updated.Category = "Dining"
	updated.Status = model.StatusPending
	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{updated}))

	got, err := store.GetTransactions(ctx, service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Dining", got[0].Category)
	assert.Equal(t, model.StatusPending, got[0].Status)
}

func TestSaveTransactions_Validation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		txn  model.Transaction
	}{
		{name: "missing id", txn: model.Transaction{Date: time.Now(), Description: "X", Amount: 5, Type: model.TypeExpense}},
		{name: "zero amount", txn: testTxnWithAmount("t-1", 0)},
		{name: "empty description", txn: testTxnWithDescription("t-1", "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.SaveTransactions(ctx, []model.Transaction{tt.txn})
			require.Error(t, err)
			var invalidErr *model.InvalidTransactionError
			assert.ErrorAs(t, err, &invalidErr)
		})
	}
}

func testTxnWithAmount(id string, amount float64) model.Transaction {
	txn := testTxn(id, 1, 10)
	txn.Amount = amount
	return txn
}

func testTxnWithDescription(id, description string) model.Transaction {
	txn := testTxn(id, 1, 10)
	txn.Description = description
	return txn
}

func TestGetTransactions_Filter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var txns []model.Transaction
	for day := 1; day <= 10; day++ {
		txns = append(txns, testTxn(string(rune('a'+day-1)), day, float64(day)))
	}
	require.NoError(t, store.SaveTransactions(ctx, txns))

	start := time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.June, 7, 23, 0, 0, 0, time.UTC)

	got, err := store.GetTransactions(ctx, service.TransactionFilter{StartDate: &start, EndDate: &end})
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, 3, got[0].Date.Day())
	assert.Equal(t, 7, got[4].Date.Day())

	limited, err := store.GetTransactions(ctx, service.TransactionFilter{StartDate: &start, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestGetTransactionByID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{testTxn("t-1", 1, 42.50)}))

	got, err := store.GetTransactionByID(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, "t-1", got.ID)

	_, err = store.GetTransactionByID(ctx, "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCategorizerSnapshots(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.GetLatestCategorizerSnapshot(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)

	first := categorizerSnapshotFixture(t, 3)
	require.NoError(t, store.SaveCategorizerSnapshot(ctx, first))

	second := categorizerSnapshotFixture(t, 7)
	require.NoError(t, store.SaveCategorizerSnapshot(ctx, second))

	got, err := store.GetLatestCategorizerSnapshot(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 7, got.Categories["Transportation"].TotalTransactions)
}

// categorizerSnapshotFixture builds a snapshot by learning n identical
// transactions, so the persisted payload matches real engine output.
func categorizerSnapshotFixture(t *testing.T, n int) *categorizer.Snapshot {
	t.Helper()
	c := categorizer.NewCategorizer(nil)
	for i := 0; i < n; i++ {
		txn := model.Transaction{
			ID:          "ride",
			Date:        time.Date(2024, time.March, 5, 14, 0, 0, 0, time.UTC),
			Description: "UBER TRIP",
			Category:    "Transportation",
			Amount:      12.50,
			Type:        model.TypeExpense,
			Status:      model.StatusPaid,
		}
		require.NoError(t, c.LearnFromTransaction(context.Background(), txn))
	}
	return c.ExportProfiles()
}
