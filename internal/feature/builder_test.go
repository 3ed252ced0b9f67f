package feature

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marroweth/vigil/internal/model"
)

func txn(userID, merchant, category string, amount float64, day int) model.Transaction {
	return model.Transaction{
		ID:               userID + merchant + string(rune('0'+day)),
		UserID:           userID,
		Date:             time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC),
		MerchantName:     merchant,
		MerchantCategory: category,
		Amount:           amount,
	}
}

func TestBuildUserFeatures(t *testing.T) {
	users := []model.User{
		{ID: "u1", CreditLimit: 1000, CreditBalance: 800},
		{ID: "u2", CreditLimit: 5000, CreditBalance: 500},
	}
	transactions := []model.Transaction{
		txn("u1", "Coffee Co", "dining", 10, 1),
		txn("u1", "Coffee Co", "dining", 20, 2),
		txn("u1", "Grocer", "groceries", 30, 3),
		txn("u2", "Grocer", "groceries", 100, 1),
	}

	rows := BuildUserFeatures(users, transactions)
	require.Len(t, rows, 2)

	// Rows come back ordered by user ID
	assert.Equal(t, "u1", rows[0].UserID)
	assert.Equal(t, "u2", rows[1].UserID)

	u1 := rows[0]
	assert.Equal(t, 3.0, u1.AmountCount)
	assert.Equal(t, 20.0, u1.AmountMean)
	assert.InDelta(t, 10.0, u1.AmountStd, 1e-9) // sample stdev of 10,20,30
	assert.Equal(t, 30.0, u1.AmountMax)
	assert.Equal(t, 60.0, u1.AmountSum)
	assert.Equal(t, 2.0, u1.MerchantNameNunique)
	assert.Equal(t, 2.0, u1.MerchantCategoryNunique)
	assert.Equal(t, 1000.0, u1.CreditLimit)
	assert.Equal(t, 800.0, u1.CreditBalance)
	assert.InDelta(t, 0.8, u1.CreditUtilization, 1e-9)

	u2 := rows[1]
	assert.Equal(t, 1.0, u2.AmountCount)
	assert.Equal(t, 0.0, u2.AmountStd) // single observation
	assert.InDelta(t, 0.1, u2.CreditUtilization, 1e-9)
}

func TestBuildUserFeaturesOnlyUsersWithTransactions(t *testing.T) {
	users := []model.User{
		{ID: "u1", CreditLimit: 1000},
		{ID: "u2", CreditLimit: 2000},
	}
	transactions := []model.Transaction{
		txn("u1", "Shop", "retail", 50, 1),
	}

	rows := BuildUserFeatures(users, transactions)
	require.Len(t, rows, 1)
	assert.Equal(t, "u1", rows[0].UserID)
}

func TestBuildUserFeaturesUnknownUser(t *testing.T) {
	// Transactions for a user missing from the user table still produce a
	// row, with zero credit fields.
	transactions := []model.Transaction{
		txn("ghost", "Shop", "retail", 50, 1),
	}

	rows := BuildUserFeatures(nil, transactions)
	require.Len(t, rows, 1)
	assert.Equal(t, "ghost", rows[0].UserID)
	assert.Equal(t, 0.0, rows[0].CreditLimit)
	assert.Equal(t, 0.0, rows[0].CreditUtilization)
}

func TestBuildUserFeaturesNoTransactions(t *testing.T) {
	users := []model.User{
		{ID: "u1", CreditLimit: 1000, CreditBalance: 250},
		{ID: "u2"},
	}

	rows := BuildUserFeatures(users, nil)
	require.Len(t, rows, 2)

	assert.Equal(t, 0.0, rows[0].AmountCount)
	assert.Equal(t, 0.0, rows[0].AmountSum)
	assert.InDelta(t, 0.25, rows[0].CreditUtilization, 1e-9)

	// Zero credit limit never divides
	assert.Equal(t, 0.0, rows[1].CreditUtilization)
}

func TestBuildUserFeaturesExcludesNaNAmounts(t *testing.T) {
	bad := txn("u1", "Shop", "retail", math.NaN(), 1)
	good := txn("u1", "Shop", "retail", 40, 2)

	rows := BuildUserFeatures(nil, []model.Transaction{bad, good})
	require.Len(t, rows, 1)
	assert.Equal(t, 1.0, rows[0].AmountCount)
	assert.Equal(t, 40.0, rows[0].AmountSum)
	assert.False(t, math.IsNaN(rows[0].AmountMean))
}

func TestQuantileInterpolates(t *testing.T) {
	// Matches linear interpolation: p75 of [10,20,30,40] is 32.5
	assert.InDelta(t, 32.5, quantile([]float64{10, 20, 30, 40}, 0.75), 1e-9)
	assert.Equal(t, 40.0, quantile([]float64{10, 20, 30, 40}, 1.0))
	assert.Equal(t, 10.0, quantile([]float64{10, 20, 30, 40}, 0.0))
	assert.Equal(t, 0.0, quantile(nil, 0.75))
}
