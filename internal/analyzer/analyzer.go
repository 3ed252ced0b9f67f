// Package analyzer computes statistical descriptors and anomaly
// thresholds from a single user's transaction history. All results are
// request-scoped; nothing here is persisted or compared across users.
package analyzer

import (
	"fmt"
	"math"
	"sort"

	"github.com/marroweth/vigil/internal/model"
)

// SpendingPatterns holds overall amount statistics.
type SpendingPatterns struct {
	Mean         float64 `json:"mean"`
	Median       float64 `json:"median"`
	Std          float64 `json:"std"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Total        float64 `json:"total"`
	Percentile75 float64 `json:"percentile_75"`
	Percentile90 float64 `json:"percentile_90"`
	Percentile95 float64 `json:"percentile_95"`
}

// CategoryStats describes one merchant category's spending.
type CategoryStats struct {
	Count     int     `json:"count"`
	Total     float64 `json:"total"`
	Mean      float64 `json:"mean"`
	Max       float64 `json:"max"`
	Frequency float64 `json:"frequency"`
}

// CategoryBehavior groups spending by merchant category.
type CategoryBehavior struct {
	Stats map[string]CategoryStats `json:"stats"`
	// TopCategories lists up to five categories by total spend descending.
	TopCategories []string `json:"top_categories"`
}

// MerchantStats describes a recurring merchant (3+ transactions).
type MerchantStats struct {
	Amounts              []float64 `json:"amounts"`
	Frequency            int       `json:"frequency"`
	TypicalAmount        float64   `json:"typical_amount"`
	AmountVariability    float64   `json:"amount_variability"`
	IsLikelySubscription bool      `json:"is_likely_subscription"`
}

// MerchantPatterns describes merchant-level behavior.
type MerchantPatterns struct {
	Recurring         map[string]MerchantStats `json:"recurring"`
	UniqueMerchants   int                      `json:"unique_merchants"`
	MerchantDiversity float64                  `json:"merchant_diversity"`
}

// LocationPatterns describes geographic spending behavior.
type LocationPatterns struct {
	StateDistribution   map[string]int `json:"state_distribution"`
	HomeState           string         `json:"home_state"`
	StatesVisited       []string       `json:"states_visited"`
	OutOfStateFrequency float64        `json:"out_of_state_frequency"`
	TravelsFrequently   bool           `json:"travels_frequently"`
}

// TemporalPatterns describes time-bucketed spending. Averages cover only
// buckets that have data; empty weeks or months are not zero samples.
type TemporalPatterns struct {
	AvgWeeklySpending  float64 `json:"avg_weekly_spending"`
	AvgMonthlySpending float64 `json:"avg_monthly_spending"`
	WeeksWithData      int     `json:"weeks_with_data"`
	MonthsWithData     int     `json:"months_with_data"`
}

// AnomalyThresholds are the derived alert cutoffs.
type AnomalyThresholds struct {
	CategoryThresholds map[string]float64 `json:"category_thresholds"`
	SingleTransaction  float64            `json:"single_transaction"`
	WeeklySpending     float64            `json:"weekly_spending"`
	MonthlySpending    float64            `json:"monthly_spending"`
}

// Analysis is the full per-user transaction analysis.
type Analysis struct {
	Categories        CategoryBehavior  `json:"categories"`
	Merchants         MerchantPatterns  `json:"merchants"`
	Locations         LocationPatterns  `json:"locations"`
	Thresholds        AnomalyThresholds `json:"thresholds"`
	Spending          SpendingPatterns  `json:"spending"`
	Temporal          TemporalPatterns  `json:"temporal"`
	TotalTransactions int               `json:"total_transactions"`
}

// AnalyzeTransactions analyzes one user's transaction history. An empty
// history is not an error; it yields a defined all-zero analysis.
func AnalyzeTransactions(transactions []model.Transaction) Analysis {
	if len(transactions) == 0 {
		return emptyAnalysis()
	}

	spending := analyzeSpendingPatterns(transactions)
	categories := analyzeCategoryBehavior(transactions)
	merchants := analyzeMerchantPatterns(transactions)
	locations := analyzeLocationPatterns(transactions)
	temporal := analyzeTemporalPatterns(transactions)
	thresholds := calculateAnomalyThresholds(spending, categories, temporal)

	return Analysis{
		TotalTransactions: len(transactions),
		Spending:          spending,
		Categories:        categories,
		Merchants:         merchants,
		Locations:         locations,
		Temporal:          temporal,
		Thresholds:        thresholds,
	}
}

func analyzeSpendingPatterns(transactions []model.Transaction) SpendingPatterns {
	amounts := make([]float64, len(transactions))
	for i, t := range transactions {
		amounts[i] = t.Amount
	}

	sorted := append([]float64(nil), amounts...)
	sort.Float64s(sorted)

	return SpendingPatterns{
		Mean:         mean(amounts),
		Median:       median(sorted),
		Std:          sampleStdev(amounts),
		Min:          sorted[0],
		Max:          sorted[len(sorted)-1],
		Total:        sum(amounts),
		Percentile75: nearestRank(sorted, 0.75),
		Percentile90: nearestRank(sorted, 0.90),
		Percentile95: nearestRank(sorted, 0.95),
	}
}

func analyzeCategoryBehavior(transactions []model.Transaction) CategoryBehavior {
	byCategory := make(map[string][]float64)
	var order []string

	for _, t := range transactions {
		if t.MerchantCategory == "" {
			continue
		}
		if _, seen := byCategory[t.MerchantCategory]; !seen {
			order = append(order, t.MerchantCategory)
		}
		byCategory[t.MerchantCategory] = append(byCategory[t.MerchantCategory], t.Amount)
	}

	stats := make(map[string]CategoryStats, len(byCategory))
	for category, amounts := range byCategory {
		stats[category] = CategoryStats{
			Count:     len(amounts),
			Total:     sum(amounts),
			Mean:      mean(amounts),
			Max:       maxOf(amounts),
			Frequency: float64(len(amounts)) / float64(len(transactions)),
		}
	}

	// Top categories by total spend, first-seen order on ties.
	top := append([]string(nil), order...)
	sort.SliceStable(top, func(i, j int) bool {
		return stats[top[i]].Total > stats[top[j]].Total
	})
	if len(top) > 5 {
		top = top[:5]
	}

	return CategoryBehavior{Stats: stats, TopCategories: top}
}

func analyzeMerchantPatterns(transactions []model.Transaction) MerchantPatterns {
	byMerchant := make(map[string][]float64)

	for _, t := range transactions {
		if t.MerchantName == "" {
			continue
		}
		byMerchant[t.MerchantName] = append(byMerchant[t.MerchantName], t.Amount)
	}

	recurring := make(map[string]MerchantStats)
	for merchant, amounts := range byMerchant {
		if len(amounts) < 3 {
			continue
		}

		std := sampleStdev(amounts)
		m := mean(amounts)

		// Consistent amounts from the same merchant look like a
		// subscription: coefficient of variation below 0.1.
		isSubscription := false
		if m > 0 {
			isSubscription = std/m < 0.1
		}

		recurring[merchant] = MerchantStats{
			Frequency:            len(amounts),
			TypicalAmount:        m,
			AmountVariability:    std,
			IsLikelySubscription: isSubscription,
			Amounts:              amounts,
		}
	}

	return MerchantPatterns{
		UniqueMerchants:   len(byMerchant),
		Recurring:         recurring,
		MerchantDiversity: float64(len(byMerchant)) / float64(len(transactions)),
	}
}

func analyzeLocationPatterns(transactions []model.Transaction) LocationPatterns {
	counts := make(map[string]int)
	var order []string
	total := 0

	for _, t := range transactions {
		if t.MerchantState == "" {
			continue
		}
		if counts[t.MerchantState] == 0 {
			order = append(order, t.MerchantState)
		}
		counts[t.MerchantState]++
		total++
	}

	if total == 0 {
		return LocationPatterns{StateDistribution: map[string]int{}}
	}

	homeState := order[0]
	for _, state := range order {
		if counts[state] > counts[homeState] {
			homeState = state
		}
	}

	outOfState := total - counts[homeState]

	return LocationPatterns{
		HomeState:           homeState,
		StatesVisited:       order,
		StateDistribution:   counts,
		OutOfStateFrequency: float64(outOfState) / float64(total),
		TravelsFrequently:   len(counts) > 3,
	}
}

func analyzeTemporalPatterns(transactions []model.Transaction) TemporalPatterns {
	weekly := make(map[string]float64)
	monthly := make(map[string]float64)

	for _, t := range transactions {
		if t.Date.IsZero() {
			continue
		}
		_, week := t.Date.ISOWeek()
		weekKey := fmt.Sprintf("%d-W%d", t.Date.Year(), week)
		monthKey := fmt.Sprintf("%d-%02d", t.Date.Year(), int(t.Date.Month()))

		weekly[weekKey] += t.Amount
		monthly[monthKey] += t.Amount
	}

	return TemporalPatterns{
		AvgWeeklySpending:  mean(mapValues(weekly)),
		AvgMonthlySpending: mean(mapValues(monthly)),
		WeeksWithData:      len(weekly),
		MonthsWithData:     len(monthly),
	}
}

func calculateAnomalyThresholds(spending SpendingPatterns, categories CategoryBehavior, temporal TemporalPatterns) AnomalyThresholds {
	single := math.Max(spending.Mean+2*spending.Std,
		math.Max(spending.Percentile95, spending.Mean*1.5))

	var weekly float64
	if temporal.AvgWeeklySpending > 0 {
		weekly = temporal.AvgWeeklySpending * 1.5
	}

	var monthly float64
	if temporal.AvgMonthlySpending > 0 {
		monthly = temporal.AvgMonthlySpending * 1.3
	}

	categoryThresholds := make(map[string]float64, len(categories.TopCategories))
	for _, category := range categories.TopCategories {
		stats := categories.Stats[category]
		categoryThresholds[category] = roundCents(math.Max(stats.Mean*2, stats.Max*0.8))
	}

	return AnomalyThresholds{
		SingleTransaction:  roundCents(single),
		WeeklySpending:     roundCents(weekly),
		MonthlySpending:    roundCents(monthly),
		CategoryThresholds: categoryThresholds,
	}
}

func emptyAnalysis() Analysis {
	return Analysis{
		Categories: CategoryBehavior{Stats: map[string]CategoryStats{}},
		Merchants:  MerchantPatterns{Recurring: map[string]MerchantStats{}},
		Locations:  LocationPatterns{StateDistribution: map[string]int{}},
		Thresholds: AnomalyThresholds{CategoryThresholds: map[string]float64{}},
	}
}

// nearestRank indexes a sorted slice at floor(n*p) without interpolating:
// for [10,20,30,40] the p75 is element 3, i.e. 40.
func nearestRank(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)) * p)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
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

func mapValues(m map[string]float64) []float64 {
	vals := make([]float64, 0, len(m))
	for _, v := range m {
		vals = append(vals, v)
	}
	return vals
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
