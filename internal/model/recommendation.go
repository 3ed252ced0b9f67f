package model

// RecommendationSource identifies which scorer produced a recommendation.
type RecommendationSource string

// Recommendation sources.
const (
	SourceTransactionAnalysis    RecommendationSource = "transaction_analysis"
	SourceCollaborativeFiltering RecommendationSource = "collaborative_filtering"
)

// Recommendation categories used by the alert rule UI.
const (
	CategoryFraudProtection        = "fraud_protection"
	CategorySpendingThreshold      = "spending_threshold"
	CategoryMerchantMonitoring     = "merchant_monitoring"
	CategoryLocationBased          = "location_based"
	CategorySubscriptionMonitoring = "subscription_monitoring"
)

// Recommendation priorities.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Recommendation is one suggested alert, constructed per request and
// ordered by FinalScore descending in combined results.
type Recommendation struct {
	ID                   string               `json:"id"`
	AlertType            string               `json:"alert_type"`
	Title                string               `json:"title"`
	Description          string               `json:"description"`
	NaturalLanguageQuery string               `json:"natural_language_query"`
	Category             string               `json:"category"`
	Priority             string               `json:"priority"`
	Reasoning            string               `json:"reasoning"`
	Source               RecommendationSource `json:"source"`
	ThresholdAmount      float64              `json:"threshold_amount,omitempty"`
	Confidence           float64              `json:"confidence,omitempty"`
	Probability          float64              `json:"probability,omitempty"`
	FinalScore           float64              `json:"final_score"`
}

// Score returns the raw score appropriate to the recommendation's source:
// confidence for transaction-based items, neighbor probability for
// collaborative ones.
func (r *Recommendation) Score() float64 {
	if r.Source == SourceCollaborativeFiltering {
		return r.Probability
	}
	return r.Confidence
}
