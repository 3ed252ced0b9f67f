package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marroweth/vigil/internal/common"
	"github.com/marroweth/vigil/internal/model"
	"github.com/marroweth/vigil/internal/service"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func sampleUser(id string) model.User {
	return model.User{
		ID:              id,
		Name:            "Test User",
		Email:           id + "@example.com",
		AddressState:    "CA",
		CreditLimit:     1000,
		CreditBalance:   250,
		LocationConsent: true,
	}
}

func sampleTransaction(id, userID string, amount float64, date time.Time) model.Transaction {
	txn := model.Transaction{
		ID:               id,
		UserID:           userID,
		Date:             date,
		MerchantName:     "Grocer",
		MerchantCategory: "groceries",
		MerchantState:    "CA",
		Amount:           amount,
	}
	txn.Hash = txn.GenerateHash()
	return txn
}

func TestMigrateIdempotent(t *testing.T) {
	store := newTestStorage(t)
	// Running migrations again is a no-op
	require.NoError(t, store.Migrate(context.Background()))
}

func TestUserRoundTrip(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	want := sampleUser("u1")
	require.NoError(t, store.SaveUsers(ctx, []model.User{want}))

	got, err := store.GetUser(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.Email, got.Email)
	assert.Equal(t, want.AddressState, got.AddressState)
	assert.Equal(t, want.CreditLimit, got.CreditLimit)
	assert.Equal(t, want.CreditBalance, got.CreditBalance)
	assert.True(t, got.LocationConsent)
}

func TestSaveUsersUpsert(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	user := sampleUser("u1")
	require.NoError(t, store.SaveUsers(ctx, []model.User{user}))

	user.CreditBalance = 900
	user.LocationConsent = false
	require.NoError(t, store.SaveUsers(ctx, []model.User{user}))

	got, err := store.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 900.0, got.CreditBalance)
	assert.False(t, got.LocationConsent)

	users, err := store.GetUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestGetUserNotFound(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.GetUser(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestTransactionRoundTripAndDedup(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveUsers(ctx, []model.User{sampleUser("u1")}))

	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	first := sampleTransaction("t1", "u1", 42.50, date)
	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{first}))

	// Same user, date, amount, merchant: same hash, silently ignored
	duplicate := sampleTransaction("t2", "u1", 42.50, date)
	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{duplicate}))

	count, err := store.GetTransactionCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := store.GetTransactionsByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, "t1", got[0].ID)
	assert.Equal(t, "u1", got[0].UserID)
	assert.Equal(t, 42.50, got[0].Amount)
	assert.Equal(t, "Grocer", got[0].MerchantName)
	assert.Equal(t, "groceries", got[0].MerchantCategory)
	assert.Equal(t, "CA", got[0].MerchantState)
	assert.Equal(t, first.Hash, got[0].Hash)
	assert.True(t, got[0].Date.Equal(date))
}

func TestGetTransactionsFilter(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	day := func(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }
	transactions := []model.Transaction{
		sampleTransaction("t1", "u1", 10, day(1)),
		sampleTransaction("t2", "u1", 20, day(10)),
		sampleTransaction("t3", "u2", 30, day(20)),
	}
	require.NoError(t, store.SaveTransactions(ctx, transactions))

	byUser, err := store.GetTransactions(ctx, service.TransactionFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, byUser, 2)

	start := day(5)
	end := day(15)
	windowed, err := store.GetTransactions(ctx, service.TransactionFilter{
		StartDate: &start,
		EndDate:   &end,
	})
	require.NoError(t, err)
	require.Len(t, windowed, 1)
	assert.Equal(t, "t2", windowed[0].ID)

	limited, err := store.GetTransactions(ctx, service.TransactionFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, limited, 2)
	// Oldest first
	assert.Equal(t, "t1", limited[0].ID)

	paged, err := store.GetTransactions(ctx, service.TransactionFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "t3", paged[0].ID)
}

func TestSaveTransactionsValidation(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	assert.Error(t, store.SaveTransactions(ctx, nil))
	assert.Error(t, store.SaveTransactions(ctx, []model.Transaction{}))

	missingDate := model.Transaction{ID: "t1", UserID: "u1"}
	assert.Error(t, store.SaveTransactions(ctx, []model.Transaction{missingDate}))
}

func TestAlertRuleRoundTrip(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	rule := &model.AlertRule{
		ID:                   "r1",
		UserID:               "u1",
		Name:                 "Spending watch",
		NaturalLanguageQuery: "Notify me when my total spend exceeds $500",
		Description:          "watches total spend",
		IsActive:             true,
	}
	require.NoError(t, store.SaveAlertRule(ctx, rule))

	inactive := &model.AlertRule{
		ID:                   "r2",
		UserID:               "u1",
		NaturalLanguageQuery: "old rule",
		IsActive:             false,
	}
	require.NoError(t, store.SaveAlertRule(ctx, inactive))

	other := &model.AlertRule{
		ID:                   "r3",
		UserID:               "u2",
		NaturalLanguageQuery: "Notify me about subscriptions",
		IsActive:             true,
	}
	require.NoError(t, store.SaveAlertRule(ctx, other))

	// Only active rules for the requested user
	rules, err := store.GetActiveAlertRulesByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "r1", rules[0].ID)
	assert.Equal(t, "Spending watch", rules[0].Name)
	assert.True(t, rules[0].IsActive)

	// Active rules across every user
	all, err := store.GetActiveAlertRules(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSaveAlertRuleUpsert(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	rule := &model.AlertRule{
		ID:                   "r1",
		UserID:               "u1",
		NaturalLanguageQuery: "original query",
		IsActive:             true,
	}
	require.NoError(t, store.SaveAlertRule(ctx, rule))

	rule.NaturalLanguageQuery = "updated query"
	rule.IsActive = false
	require.NoError(t, store.SaveAlertRule(ctx, rule))

	rules, err := store.GetActiveAlertRulesByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestTransactionSnapshotReads(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveUsers(ctx, []model.User{sampleUser("u1")}))
	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{
		sampleTransaction("t1", "u1", 10, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)),
	}))

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	users, err := tx.GetUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	transactions, err := tx.GetTransactions(ctx, service.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, transactions, 1)

	count, err := tx.GetTransactionCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Transactions reject operations that make no sense inside them
	_, err = tx.BeginTx(ctx)
	assert.Error(t, err)
	assert.Error(t, tx.Migrate(ctx))
	assert.Error(t, tx.Close())

	require.NoError(t, tx.Rollback())
}
