package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marroweth/vigil/internal/model"
	"github.com/marroweth/vigil/internal/storage"
)

func newTestStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func seedPopulation(t *testing.T, store *storage.SQLiteStorage) {
	t.Helper()
	ctx := context.Background()

	users := []model.User{
		{ID: "u1", AddressState: "CA", CreditLimit: 1000, CreditBalance: 500},
		{ID: "u2", AddressState: "CA", CreditLimit: 1000, CreditBalance: 600},
		{ID: "u3", AddressState: "NY", CreditLimit: 10000, CreditBalance: 9000},
		{ID: "fresh", AddressState: "WA", CreditLimit: 2000, LocationConsent: true},
	}
	require.NoError(t, store.SaveUsers(ctx, users))

	var transactions []model.Transaction
	add := func(userID string, day int, amount float64, merchant string) {
		txn := model.Transaction{
			ID:               fmt.Sprintf("%s-%d", userID, day),
			UserID:           userID,
			Date:             time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC),
			MerchantName:     merchant,
			MerchantCategory: "retail",
			MerchantState:    "CA",
			Amount:           amount,
		}
		txn.Hash = txn.GenerateHash()
		transactions = append(transactions, txn)
	}

	for d := 1; d <= 5; d++ {
		add("u1", d, float64(20+d), "Grocer")
		add("u2", d, float64(25+d), "Grocer")
		add("u3", d, float64(900+d*100), "Jeweler")
	}
	require.NoError(t, store.SaveTransactions(ctx, transactions))

	// u2 and u3 watch their total spend; u1 has no rules yet
	for i, userID := range []string{"u2", "u3"} {
		require.NoError(t, store.SaveAlertRule(ctx, &model.AlertRule{
			ID:                   fmt.Sprintf("rule-%d", i),
			UserID:               userID,
			NaturalLanguageQuery: "Watch my total spend each month",
			IsActive:             true,
		}))
	}
}

func newTestEngine(t *testing.T, store *storage.SQLiteStorage) *Engine {
	t.Helper()
	return New(store, Config{
		ModelPath: filepath.Join(t.TempDir(), "model.gob"),
		K:         2,
		Threshold: 0.4,
	})
}

func TestGetRecommendationsUnknownUser(t *testing.T) {
	store := newTestStore(t)
	eng := newTestEngine(t, store)

	_, err := eng.GetRecommendations(context.Background(), "nobody")
	assert.Error(t, err)
}

func TestGetRecommendationsCombinesSources(t *testing.T) {
	store := newTestStore(t)
	seedPopulation(t, store)
	eng := newTestEngine(t, store)

	result, err := eng.GetRecommendations(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, "u1", result.UserID)
	assert.False(t, result.GeneratedAt.IsZero())
	require.NotEmpty(t, result.Recommendations)
	assert.LessOrEqual(t, len(result.Recommendations), 6)

	// Both of u1's neighbors watch their spending, so collaborative
	// filtering contributes alongside the transaction-based candidates.
	sources := make(map[model.RecommendationSource]bool)
	for _, rec := range result.Recommendations {
		sources[rec.Source] = true
		assert.NotEmpty(t, rec.ID)
		assert.NotEmpty(t, rec.Title)
	}
	assert.True(t, sources[model.SourceTransactionAnalysis])
	assert.True(t, sources[model.SourceCollaborativeFiltering])

	assert.Equal(t, 2, result.TotalSimilarUsers)

	// Ranked by final score
	for i := 1; i < len(result.Recommendations); i++ {
		assert.GreaterOrEqual(t,
			result.Recommendations[i-1].FinalScore,
			result.Recommendations[i].FinalScore)
	}
}

func TestGetRecommendationsNewUser(t *testing.T) {
	store := newTestStore(t)
	seedPopulation(t, store)
	eng := newTestEngine(t, store)

	// "fresh" has no transactions: transaction analysis yields the default
	// set and collaborative filtering cannot place the user.
	result, err := eng.GetRecommendations(context.Background(), "fresh")
	require.NoError(t, err)

	require.NotEmpty(t, result.Recommendations)
	for _, rec := range result.Recommendations {
		assert.Equal(t, model.SourceTransactionAnalysis, rec.Source)
	}
}

func TestEnsureModelTrainsAndSwaps(t *testing.T) {
	store := newTestStore(t)
	seedPopulation(t, store)
	eng := newTestEngine(t, store)

	assert.Nil(t, eng.Model())
	require.NoError(t, eng.EnsureModel(context.Background()))
	require.NotNil(t, eng.Model())
	assert.True(t, eng.Model().IsTrained())

	// A second call with a fresh snapshot keeps the loaded model
	first := eng.Model()
	require.NoError(t, eng.EnsureModel(context.Background()))
	assert.Same(t, first, eng.Model())
}

func TestEnsureModelFailsWithEmptyStore(t *testing.T) {
	store := newTestStore(t)
	eng := newTestEngine(t, store)

	err := eng.EnsureModel(context.Background())
	assert.Error(t, err)
	assert.Nil(t, eng.Model())
}

func TestEnsureModelKeepsCurrentOnFailedRetrain(t *testing.T) {
	store := newTestStore(t)
	seedPopulation(t, store)

	// Use a model path that never exists so every call wants a retrain
	eng := New(store, Config{
		ModelPath: filepath.Join(t.TempDir(), "absent", "model.gob"),
		K:         2,
	})
	ctx := context.Background()

	require.NoError(t, eng.EnsureModel(ctx))
	current := eng.Model()
	require.NotNil(t, current)

	// Empty the population: the next retrain fails but the engine keeps
	// serving the model it already has.
	empty := newTestStore(t)
	failing := New(empty, Config{ModelPath: filepath.Join(t.TempDir(), "missing.gob"), K: 2})
	failing.SwapModel(current)

	require.NoError(t, failing.EnsureModel(ctx))
	assert.Same(t, current, failing.Model())
}

func TestAnalyzeUser(t *testing.T) {
	store := newTestStore(t)
	seedPopulation(t, store)
	eng := newTestEngine(t, store)

	analysis, err := eng.AnalyzeUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 5, analysis.TotalTransactions)
	assert.Equal(t, "CA", analysis.Locations.HomeState)
}
