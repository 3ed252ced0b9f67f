package feature

import (
	"github.com/marroweth/vigil/internal/model"
)

// UserAlertRow is one long-format label observation: a user has (or has
// not) a given alert type enabled.
type UserAlertRow struct {
	UserID    string
	AlertType string
	Enabled   int
}

// GenerateInitialAlertLabels adds heuristic alert label bits to every
// feature row, derived from population quantiles. Used when no real user
// alert rules exist yet. The population basis must be non-trivial: an
// all-zero column never produces positive labels.
func GenerateInitialAlertLabels(rows []model.UserFeatures) []model.UserFeatures {
	labeled := make([]model.UserFeatures, len(rows))
	copy(labeled, rows)

	sums := make([]float64, len(rows))
	counts := make([]float64, len(rows))
	nuniques := make([]float64, len(rows))
	maxes := make([]float64, len(rows))
	for i, row := range rows {
		sums[i] = row.AmountSum
		counts[i] = row.AmountCount
		nuniques[i] = row.MerchantNameNunique
		maxes[i] = row.AmountMax
	}

	sumCutoff, useSum := percentileCutoff(sums)
	countCutoff, useCount := percentileCutoff(counts)
	nuniqueCutoff, useNunique := percentileCutoff(nuniques)
	maxCutoff, useMax := percentileCutoff(maxes)

	for i := range labeled {
		row := &labeled[i]

		row.SetAlertBit(model.AlertColumnPrefix+model.AlertHighSpender,
			boolBit(useSum && row.AmountSum >= sumCutoff))
		row.SetAlertBit(model.AlertColumnPrefix+model.AlertHighTxVolume,
			boolBit(useCount && row.AmountCount >= countCutoff))
		row.SetAlertBit(model.AlertColumnPrefix+model.AlertHighMerchantDiversity,
			boolBit(useNunique && row.MerchantNameNunique >= nuniqueCutoff))
		row.SetAlertBit(model.AlertColumnPrefix+model.AlertNearCreditLimit,
			boolBit(row.CreditUtilization >= 0.7))
		row.SetAlertBit(model.AlertColumnPrefix+model.AlertLargeTransaction,
			boolBit(useMax && row.AmountMax >= maxCutoff))

		// Not derivable from this feature set; only real rules set these.
		row.SetAlertBit(model.AlertColumnPrefix+model.AlertNewMerchant, 0)
		row.SetAlertBit(model.AlertColumnPrefix+model.AlertLocationBased, 0)
		row.SetAlertBit(model.AlertColumnPrefix+model.AlertSubscriptionMonitoring, 0)
	}

	return labeled
}

// percentileCutoff returns the population p75 of vals and whether the
// column is usable as a cutoff basis (any positive value present).
func percentileCutoff(vals []float64) (float64, bool) {
	if maxOf(vals) <= 0 {
		return 0, false
	}
	return quantile(vals, 0.75), true
}

func boolBit(b bool) int {
	if b {
		return 1
	}
	return 0
}

// MergeRealAlertLabels pivots long-format alert observations into wide
// 0/1 label bits on the feature rows. Duplicate (user, alert type) pairs
// collapse via max; alert type names are normalized to carry the alert_
// prefix; users with no observations get 0 for every pivoted column.
func MergeRealAlertLabels(rows []model.UserFeatures, alerts []UserAlertRow) []model.UserFeatures {
	pivot := make(map[string]map[string]int)
	pivotCols := make(map[string]struct{})

	for _, a := range alerts {
		col := model.NormalizeAlertColumn(a.AlertType)
		pivotCols[col] = struct{}{}

		if pivot[a.UserID] == nil {
			pivot[a.UserID] = make(map[string]int)
		}
		bit := 0
		if a.Enabled != 0 {
			bit = 1
		}
		if bit > pivot[a.UserID][col] {
			pivot[a.UserID][col] = bit
		}
	}

	merged := make([]model.UserFeatures, len(rows))
	copy(merged, rows)

	for i := range merged {
		row := &merged[i]
		bits := pivot[row.UserID]
		for col := range pivotCols {
			row.SetAlertBit(col, bits[col])
		}
	}

	return merged
}

// EnsureAlertColumns guarantees every canonical alert column exists on
// every row, creating absent columns as all-zero.
func EnsureAlertColumns(rows []model.UserFeatures) []model.UserFeatures {
	out := make([]model.UserFeatures, len(rows))
	copy(out, rows)
	for i := range out {
		for _, col := range model.AlertColumns() {
			out[i].SetAlertBit(col, out[i].AlertBit(col))
		}
	}
	return out
}
