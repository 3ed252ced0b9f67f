// Package feature builds per-user behavioral feature vectors and alert
// label bits from raw user and transaction records.
package feature

import (
	"math"
	"sort"

	"github.com/marroweth/vigil/internal/model"
)

// BuildUserFeatures aggregates transactions into one feature row per user.
// When transactions exist, one row is produced for each user ID seen in
// the transaction list, left-joined onto the user table for credit fields.
// With no transactions at all, every known user gets a basic all-zero
// behavioral row instead.
func BuildUserFeatures(users []model.User, transactions []model.Transaction) []model.UserFeatures {
	if len(transactions) == 0 {
		return buildBasicUserFeatures(users)
	}

	usersByID := make(map[string]model.User, len(users))
	for _, u := range users {
		usersByID[u.ID] = u
	}

	amounts := make(map[string][]float64)
	merchants := make(map[string]map[string]struct{})
	categories := make(map[string]map[string]struct{})

	for _, txn := range transactions {
		id := txn.UserID
		if merchants[id] == nil {
			merchants[id] = make(map[string]struct{})
			categories[id] = make(map[string]struct{})
		}
		// Non-numeric source amounts surface as NaN; exclude them.
		if !math.IsNaN(txn.Amount) && !math.IsInf(txn.Amount, 0) {
			amounts[id] = append(amounts[id], txn.Amount)
		}
		merchants[id][txn.MerchantName] = struct{}{}
		categories[id][txn.MerchantCategory] = struct{}{}
	}

	userIDs := make([]string, 0, len(merchants))
	for id := range merchants {
		userIDs = append(userIDs, id)
	}
	sort.Strings(userIDs)

	rows := make([]model.UserFeatures, 0, len(userIDs))
	for _, id := range userIDs {
		row := model.UserFeatures{UserID: id}

		vals := amounts[id]
		row.AmountCount = float64(len(vals))
		row.AmountMean = mean(vals)
		row.AmountStd = sampleStdev(vals)
		row.AmountMax = maxOf(vals)
		row.AmountSum = sum(vals)
		row.MerchantNameNunique = float64(len(merchants[id]))
		row.MerchantCategoryNunique = float64(len(categories[id]))

		if u, ok := usersByID[id]; ok {
			row.CreditLimit = sanitize(u.CreditLimit)
			row.CreditBalance = sanitize(u.CreditBalance)
		}
		row.CreditUtilization = creditUtilization(row.CreditLimit, row.CreditBalance)

		rows = append(rows, row)
	}

	return rows
}

// buildBasicUserFeatures produces all-zero behavioral rows, keeping only
// the credit fields from the user table.
func buildBasicUserFeatures(users []model.User) []model.UserFeatures {
	rows := make([]model.UserFeatures, 0, len(users))
	for _, u := range users {
		row := model.UserFeatures{
			UserID:        u.ID,
			CreditLimit:   sanitize(u.CreditLimit),
			CreditBalance: sanitize(u.CreditBalance),
		}
		row.CreditUtilization = creditUtilization(row.CreditLimit, row.CreditBalance)
		rows = append(rows, row)
	}
	return rows
}

func creditUtilization(limit, balance float64) float64 {
	if limit > 0 {
		return balance / limit
	}
	return 0
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func sum(vals []float64) float64 {
	var total float64
	for _, v := range vals {
		total += v
	}
	return total
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	return sum(vals) / float64(len(vals))
}

// sampleStdev is the n-1 standard deviation, 0 with fewer than two points.
func sampleStdev(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	m := mean(vals)
	var ss float64
	for _, v := range vals {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(vals)-1))
}

func maxOf(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// quantile computes the linearly interpolated q-quantile of vals, matching
// the behavior the heuristic labels were tuned against.
func quantile(vals []float64, q float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)

	h := float64(len(sorted)-1) * q
	lo := int(math.Floor(h))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
