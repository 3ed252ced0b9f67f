package training

import (
	"context"
	"os"
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

func seedStore(t *testing.T, store *storage.SQLiteStorage) {
	t.Helper()
	ctx := context.Background()

	users := []model.User{
		{ID: "u1", CreditLimit: 1000, CreditBalance: 500},
		{ID: "u2", CreditLimit: 1000, CreditBalance: 900},
		{ID: "u3", CreditLimit: 5000, CreditBalance: 4500},
	}
	require.NoError(t, store.SaveUsers(ctx, users))

	var transactions []model.Transaction
	for i, userID := range []string{"u1", "u2", "u3"} {
		for d := 1; d <= 4; d++ {
			txn := model.Transaction{
				ID:               userID + "-" + time.Date(2024, 2, d, 0, 0, 0, 0, time.UTC).Format("20060102"),
				UserID:           userID,
				Date:             time.Date(2024, 2, d, 0, 0, 0, 0, time.UTC),
				MerchantName:     "Merchant",
				MerchantCategory: "retail",
				Amount:           float64((i + 1) * 25 * d),
			}
			txn.Hash = txn.GenerateHash()
			transactions = append(transactions, txn)
		}
	}
	require.NoError(t, store.SaveTransactions(ctx, transactions))
}

func TestShouldRetrain(t *testing.T) {
	dir := t.TempDir()

	// Missing snapshot always retrains
	assert.True(t, ShouldRetrain(filepath.Join(dir, "missing.gob"), 7))

	path := filepath.Join(dir, "model.gob")
	require.NoError(t, os.WriteFile(path, []byte("snapshot"), 0o600))

	// Three days old with a seven-day threshold: fresh
	threeDays := time.Now().Add(-3 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(path, threeDays, threeDays))
	assert.False(t, ShouldRetrain(path, 7))

	// Ten days old: stale
	tenDays := time.Now().Add(-10 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(path, tenDays, tenDays))
	assert.True(t, ShouldRetrain(path, 7))

	// Non-positive threshold falls back to the default
	assert.True(t, ShouldRetrain(path, 0))
}

func TestTrainHeuristicLabels(t *testing.T) {
	store := newTestStore(t)
	seedStore(t, store)

	path := filepath.Join(t.TempDir(), "model.gob")
	trainer := NewTrainer(store)

	m, err := trainer.Train(context.Background(), Options{
		ModelPath: path,
		K:         2,
	})
	require.NoError(t, err)

	assert.True(t, m.IsTrained())
	assert.Equal(t, 3, m.UniverseSize())
	assert.FileExists(t, path)
}

func TestTrainRealLabelsFallBackWithoutRules(t *testing.T) {
	// With UseRealAlerts set but no rules stored, training falls back to
	// heuristic labels rather than failing.
	store := newTestStore(t)
	seedStore(t, store)

	trainer := NewTrainer(store)
	m, err := trainer.Train(context.Background(), Options{K: 2, UseRealAlerts: true})
	require.NoError(t, err)
	assert.True(t, m.IsTrained())
}

func TestTrainEmptyStore(t *testing.T) {
	store := newTestStore(t)
	trainer := NewTrainer(store)

	_, err := trainer.Train(context.Background(), Options{K: 2})
	assert.Error(t, err)
}

func TestTrainFailureLeavesSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.gob")

	// Produce a valid snapshot first
	store := newTestStore(t)
	seedStore(t, store)
	trainer := NewTrainer(store)
	_, err := trainer.Train(context.Background(), Options{ModelPath: path, K: 2})
	require.NoError(t, err)

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	// Training against an empty store fails before touching the artifact
	empty := newTestStore(t)
	_, err = NewTrainer(empty).Train(context.Background(), Options{ModelPath: path, K: 2})
	require.Error(t, err)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestBuildServingRowsUsesRuleBits(t *testing.T) {
	store := newTestStore(t)
	seedStore(t, store)

	ctx := context.Background()
	require.NoError(t, store.SaveAlertRule(ctx, &model.AlertRule{
		ID:                   "r1",
		UserID:               "u1",
		NaturalLanguageQuery: "alert me about recurring subscription charges",
		IsActive:             true,
	}))

	rows, err := NewTrainer(store).BuildServingRows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	byID := make(map[string]model.UserFeatures)
	for _, row := range rows {
		byID[row.UserID] = row
	}

	u1, u2, u3 := byID["u1"], byID["u2"], byID["u3"]
	assert.Equal(t, 1, u1.AlertBit("alert_subscription_monitoring"))
	assert.Equal(t, 0, u2.AlertBit("alert_subscription_monitoring"))

	// Serving rows never use heuristic labels
	assert.Equal(t, 0, u3.AlertBit("alert_high_spender"))
}

func TestRetrainIfStale(t *testing.T) {
	store := newTestStore(t)
	seedStore(t, store)

	dir := t.TempDir()
	path := filepath.Join(dir, "model.gob")
	trainer := NewTrainer(store)
	opts := Options{ModelPath: path, K: 2}

	// Missing snapshot: trains
	result := trainer.RetrainIfStale(context.Background(), opts, 7, false)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.FileExists(t, path)

	// Fresh snapshot: skipped
	result = trainer.RetrainIfStale(context.Background(), opts, 7, false)
	assert.Equal(t, StatusSkipped, result.Status)

	// Force overrides freshness
	result = trainer.RetrainIfStale(context.Background(), opts, 7, true)
	assert.Equal(t, StatusSuccess, result.Status)
}

func TestRetrainIfStaleReportsErrors(t *testing.T) {
	empty := newTestStore(t)
	trainer := NewTrainer(empty)

	result := trainer.RetrainIfStale(context.Background(),
		Options{ModelPath: filepath.Join(t.TempDir(), "model.gob"), K: 2}, 7, true)
	assert.Equal(t, StatusError, result.Status)
	assert.NotEmpty(t, result.Message)
}
