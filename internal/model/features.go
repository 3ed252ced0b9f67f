package model

// Feature column names for user similarity, in canonical order. Training
// and serving must use this single list; do not derive a second one.
const (
	FeatureAmountCount             = "amount_count"
	FeatureAmountMean              = "amount_mean"
	FeatureAmountStd               = "amount_std"
	FeatureAmountMax               = "amount_max"
	FeatureAmountSum               = "amount_sum"
	FeatureMerchantNameNunique     = "merchant_name_nunique"
	FeatureMerchantCategoryNunique = "merchant_category_nunique"
	FeatureCreditLimit             = "credit_limit"
	FeatureCreditBalance           = "credit_balance"
	FeatureCreditUtilization       = "credit_utilization"
)

// FeatureColumns returns the canonical similarity feature columns.
func FeatureColumns() []string {
	return []string{
		FeatureAmountCount,
		FeatureAmountMean,
		FeatureAmountStd,
		FeatureAmountMax,
		FeatureAmountSum,
		FeatureMerchantNameNunique,
		FeatureMerchantCategoryNunique,
		FeatureCreditLimit,
		FeatureCreditBalance,
		FeatureCreditUtilization,
	}
}

// UserFeatures is one user's behavioral feature vector plus alert label
// bits. Numeric fields are never NaN; missing source data becomes 0.
type UserFeatures struct {
	Alerts                  map[string]int
	UserID                  string
	AmountCount             float64
	AmountMean              float64
	AmountStd               float64
	AmountMax               float64
	AmountSum               float64
	MerchantNameNunique     float64
	MerchantCategoryNunique float64
	CreditLimit             float64
	CreditBalance           float64
	CreditUtilization       float64
}

// Feature returns the named feature value. Unknown columns are 0.
func (f *UserFeatures) Feature(col string) float64 {
	switch col {
	case FeatureAmountCount:
		return f.AmountCount
	case FeatureAmountMean:
		return f.AmountMean
	case FeatureAmountStd:
		return f.AmountStd
	case FeatureAmountMax:
		return f.AmountMax
	case FeatureAmountSum:
		return f.AmountSum
	case FeatureMerchantNameNunique:
		return f.MerchantNameNunique
	case FeatureMerchantCategoryNunique:
		return f.MerchantCategoryNunique
	case FeatureCreditLimit:
		return f.CreditLimit
	case FeatureCreditBalance:
		return f.CreditBalance
	case FeatureCreditUtilization:
		return f.CreditUtilization
	default:
		return 0
	}
}

// Vector materializes the feature values for the given columns.
func (f *UserFeatures) Vector(cols []string) []float64 {
	vec := make([]float64, len(cols))
	for i, col := range cols {
		vec[i] = f.Feature(col)
	}
	return vec
}

// AlertBit reports the label bit for an alert column; absent columns are 0.
func (f *UserFeatures) AlertBit(col string) int {
	if f.Alerts == nil {
		return 0
	}
	if f.Alerts[col] != 0 {
		return 1
	}
	return 0
}

// SetAlertBit sets the label bit for an alert column.
func (f *UserFeatures) SetAlertBit(col string, bit int) {
	if f.Alerts == nil {
		f.Alerts = make(map[string]int)
	}
	if bit != 0 {
		bit = 1
	}
	f.Alerts[col] = bit
}

// EnabledAlertTypes lists the alert types this user has enabled, in
// canonical order and without the alert_ prefix.
func (f *UserFeatures) EnabledAlertTypes() []string {
	var enabled []string
	for _, col := range AlertColumns() {
		if f.AlertBit(col) == 1 {
			enabled = append(enabled, AlertTypeFromColumn(col))
		}
	}
	return enabled
}
