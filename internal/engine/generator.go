// Package engine turns analysis output and collaborative-filtering
// output into ranked alert recommendations and merges them into the
// single list most collaborators consume.
package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/marroweth/vigil/internal/analyzer"
	"github.com/marroweth/vigil/internal/model"
	"github.com/marroweth/vigil/internal/recommender"
)

// GenerateTransactionBased converts one user's transaction analysis into
// threshold-based alert candidates, each with a fixed confidence. Up to
// seven candidates are considered; the top five by confidence are kept.
func GenerateTransactionBased(user *model.User, analysis analyzer.Analysis) []model.Recommendation {
	if analysis.TotalTransactions == 0 {
		return NewUserRecommendations(user)
	}

	var recs []model.Recommendation

	// Large transaction alert, from the user's own spending distribution.
	if analysis.Spending.Mean > 0 {
		threshold := analysis.Thresholds.SingleTransaction
		recs = append(recs, model.Recommendation{
			ID:                   uuid.NewString(),
			AlertType:            model.AlertLargeTransaction,
			Title:                "Large Transaction Alert",
			Description:          fmt.Sprintf("Get notified when a single transaction exceeds $%.2f", threshold),
			NaturalLanguageQuery: fmt.Sprintf("Notify me when a single transaction exceeds $%.2f", threshold),
			Category:             model.CategoryFraudProtection,
			Priority:             model.PriorityHigh,
			Reasoning: fmt.Sprintf("Based on your spending history (avg: $%.2f), transactions over $%.2f are unusual",
				analysis.Spending.Mean, threshold),
			ThresholdAmount: threshold,
			Confidence:      0.9,
			Source:          model.SourceTransactionAnalysis,
		})
	}

	// Weekly spending threshold.
	if analysis.Temporal.AvgWeeklySpending > 0 {
		threshold := analysis.Thresholds.WeeklySpending
		recs = append(recs, model.Recommendation{
			ID:                   uuid.NewString(),
			AlertType:            model.AlertHighSpender,
			Title:                "Weekly Spending Limit Alert",
			Description:          fmt.Sprintf("Get alerted when weekly spending exceeds $%.2f", threshold),
			NaturalLanguageQuery: fmt.Sprintf("Notify me when my weekly spending exceeds $%.2f", threshold),
			Category:             model.CategorySpendingThreshold,
			Priority:             model.PriorityHigh,
			Reasoning: fmt.Sprintf("You typically spend $%.2f/week. This helps catch unusual spending spikes.",
				analysis.Temporal.AvgWeeklySpending),
			ThresholdAmount: threshold,
			Confidence:      0.85,
			Source:          model.SourceTransactionAnalysis,
		})
	}

	// Category alerts for the top two spending categories.
	for idx, category := range topN(analysis.Categories.TopCategories, 2) {
		threshold, ok := analysis.Thresholds.CategoryThresholds[category]
		if !ok {
			continue
		}
		priority := model.PriorityHigh
		if idx > 0 {
			priority = model.PriorityMedium
		}
		stats := analysis.Categories.Stats[category]

		recs = append(recs, model.Recommendation{
			ID:                   uuid.NewString(),
			AlertType:            model.AlertHighMerchantDiversity,
			Title:                fmt.Sprintf("%s Spending Alert", category),
			Description:          fmt.Sprintf("Get notified for %s transactions over $%.2f", category, threshold),
			NaturalLanguageQuery: fmt.Sprintf("Notify me when a %s transaction exceeds $%.2f", category, threshold),
			Category:             model.CategoryMerchantMonitoring,
			Priority:             priority,
			Reasoning: fmt.Sprintf("You spend frequently in %s (avg: $%.2f). This catches unusual purchases.",
				category, stats.Mean),
			ThresholdAmount: threshold,
			Confidence:      0.8,
			Source:          model.SourceTransactionAnalysis,
		})
	}

	// Subscription monitoring when recurring charges look like subscriptions.
	if subscriptions := subscriptionMerchants(analysis.Merchants); len(subscriptions) > 0 {
		recs = append(recs, model.Recommendation{
			ID:                   uuid.NewString(),
			AlertType:            model.AlertSubscriptionMonitoring,
			Title:                "Subscription Price Change Alert",
			Description:          "Monitor subscription charges for unexpected price increases",
			NaturalLanguageQuery: "Notify me if subscription charges change significantly",
			Category:             model.CategorySubscriptionMonitoring,
			Priority:             model.PriorityMedium,
			Reasoning: fmt.Sprintf("Detected recurring charges from %s. Monitor for price changes.",
				strings.Join(topN(subscriptions, 3), ", ")),
			Confidence: 0.75,
			Source:     model.SourceTransactionAnalysis,
		})
	}

	// Out-of-state alert for users who travel.
	if analysis.Locations.TravelsFrequently || analysis.Locations.OutOfStateFrequency > 0.1 {
		homeState := analysis.Locations.HomeState
		if homeState == "" {
			homeState = "your home state"
		}
		recs = append(recs, model.Recommendation{
			ID:                   uuid.NewString(),
			AlertType:            model.AlertLocationBased,
			Title:                "Out-of-State Transaction Alert",
			Description:          fmt.Sprintf("Get notified of transactions outside %s", homeState),
			NaturalLanguageQuery: fmt.Sprintf("Notify me of transactions outside of %s", homeState),
			Category:             model.CategoryLocationBased,
			Priority:             model.PriorityMedium,
			Reasoning:            "You occasionally travel. This helps detect fraudulent out-of-state charges.",
			Confidence:           0.7,
			Source:               model.SourceTransactionAnalysis,
		})
	}

	// New merchant alert for users who shop widely.
	if analysis.Merchants.MerchantDiversity > 0.3 {
		recs = append(recs, model.Recommendation{
			ID:                   uuid.NewString(),
			AlertType:            model.AlertNewMerchant,
			Title:                "New Merchant Alert",
			Description:          "Get notified when making purchases from new merchants",
			NaturalLanguageQuery: "Notify me when I make a purchase from a merchant I have not used before",
			Category:             model.CategoryFraudProtection,
			Priority:             model.PriorityMedium,
			Reasoning:            "You shop at various merchants. This helps detect fraudulent new merchant charges.",
			Confidence:           0.65,
			Source:               model.SourceTransactionAnalysis,
		})
	}

	// High transaction frequency alert.
	weeks := analysis.Temporal.WeeksWithData
	if weeks < 1 {
		weeks = 1
	}
	if float64(analysis.TotalTransactions)/float64(weeks) > 10 {
		recs = append(recs, model.Recommendation{
			ID:                   uuid.NewString(),
			AlertType:            model.AlertHighTxVolume,
			Title:                "Unusual Transaction Volume Alert",
			Description:          "Get notified when you have an unusually high number of transactions in a day",
			NaturalLanguageQuery: "Notify me when I have more than 10 transactions in a single day",
			Category:             model.CategoryFraudProtection,
			Priority:             model.PriorityLow,
			Reasoning:            "High transaction frequency can indicate card compromise.",
			Confidence:           0.6,
			Source:               model.SourceTransactionAnalysis,
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Confidence > recs[j].Confidence
	})
	if len(recs) > 5 {
		recs = recs[:5]
	}
	return recs
}

// NewUserRecommendations is the fixed default set for users with no
// transaction history. An out-of-state recommendation is added only when
// the user has granted location consent.
func NewUserRecommendations(user *model.User) []model.Recommendation {
	recs := []model.Recommendation{
		{
			ID:                   uuid.NewString(),
			AlertType:            model.AlertLargeTransaction,
			Title:                "Large Transaction Alert",
			Description:          "Get notified when a single transaction exceeds $500",
			NaturalLanguageQuery: "Notify me when a single transaction exceeds $500",
			Category:             model.CategoryFraudProtection,
			Priority:             model.PriorityHigh,
			Reasoning:            "Protect against unauthorized large purchases",
			ThresholdAmount:      500,
			Confidence:           0.8,
			Source:               model.SourceTransactionAnalysis,
		},
		{
			ID:                   uuid.NewString(),
			AlertType:            model.AlertNewMerchant,
			Title:                "New Merchant Alert",
			Description:          "Get notified when making purchases from new merchants",
			NaturalLanguageQuery: "Notify me when I make a purchase from a new merchant",
			Category:             model.CategoryFraudProtection,
			Priority:             model.PriorityHigh,
			Reasoning:            "Detect potentially fraudulent charges from unfamiliar merchants",
			Confidence:           0.75,
			Source:               model.SourceTransactionAnalysis,
		},
		{
			ID:                   uuid.NewString(),
			AlertType:            model.AlertSubscriptionMonitoring,
			Title:                "Subscription Price Increase Alert",
			Description:          "Monitor recurring charges for unexpected price increases",
			NaturalLanguageQuery: "Notify me if any recurring charge increases by more than 10%",
			Category:             model.CategorySubscriptionMonitoring,
			Priority:             model.PriorityMedium,
			Reasoning:            "Catch unexpected subscription price hikes",
			Confidence:           0.7,
			Source:               model.SourceTransactionAnalysis,
		},
	}

	if user != nil && user.LocationConsent {
		state := user.AddressState
		if state == "" {
			state = "your home state"
		}
		recs = append(recs, model.Recommendation{
			ID:                   uuid.NewString(),
			AlertType:            model.AlertLocationBased,
			Title:                "Out-of-State Transaction Alert",
			Description:          fmt.Sprintf("Get notified of transactions outside %s", state),
			NaturalLanguageQuery: fmt.Sprintf("Notify me of transactions outside of %s", state),
			Category:             model.CategoryLocationBased,
			Priority:             model.PriorityMedium,
			Reasoning:            "Detect potentially fraudulent out-of-state transactions",
			Confidence:           0.65,
			Source:               model.SourceTransactionAnalysis,
		})
	}

	return recs
}

// FormatCollaborative maps collaborative-filtering candidates onto full
// recommendations using the fixed per-alert-type template table. Query
// amounts scale with the user's credit limit where one exists.
func FormatCollaborative(result *recommender.Result, user *model.User) []model.Recommendation {
	if result == nil {
		return nil
	}

	recs := make([]model.Recommendation, 0, len(result.Recommendations))
	for _, cf := range result.Recommendations {
		tmpl, ok := collaborativeTemplates[cf.AlertType]
		if !ok {
			alertType := cf.AlertType
			tmpl = collaborativeTemplate{
				title:       titleCase(strings.ReplaceAll(alertType, "_", " ")),
				description: fmt.Sprintf("Alert for %s", alertType),
				query:       func(*model.User) string { return fmt.Sprintf("Alert for %s", alertType) },
				category:    model.CategoryFraudProtection,
			}
		}

		recs = append(recs, model.Recommendation{
			ID:                   uuid.NewString(),
			AlertType:            cf.AlertType,
			Title:                tmpl.title,
			Description:          tmpl.description,
			NaturalLanguageQuery: tmpl.query(user),
			Category:             tmpl.category,
			Priority:             cf.Confidence,
			Reasoning:            cf.Reason,
			Probability:          cf.Probability,
			Source:               model.SourceCollaborativeFiltering,
		})
	}
	return recs
}

type collaborativeTemplate struct {
	query       func(*model.User) string
	title       string
	description string
	category    string
}

var collaborativeTemplates = map[string]collaborativeTemplate{
	model.AlertHighSpender: {
		title:       "High Spending Alert",
		description: "Monitor when your total spending exceeds a threshold",
		category:    model.CategorySpendingThreshold,
		query: func(u *model.User) string {
			amount := 1000.0
			if u != nil && u.CreditLimit > 0 {
				amount = u.CreditLimit * 0.5
			}
			return fmt.Sprintf("Notify me when my total spending exceeds $%.0f", amount)
		},
	},
	model.AlertHighTxVolume: {
		title:       "Frequent Transaction Alert",
		description: "Get notified when you have many transactions in a short period",
		category:    model.CategoryFraudProtection,
		query: func(*model.User) string {
			return "Notify me when I have more than 10 transactions in a day"
		},
	},
	model.AlertHighMerchantDiversity: {
		title:       "New Merchant Diversity Alert",
		description: "Track when you visit multiple different merchants in a day",
		category:    model.CategoryMerchantMonitoring,
		query: func(*model.User) string {
			return "Notify me when I visit more than 5 different merchants in a day"
		},
	},
	model.AlertNearCreditLimit: {
		title:       "Credit Limit Alert",
		description: "Get warned when approaching your credit limit",
		category:    model.CategorySpendingThreshold,
		query: func(*model.User) string {
			return "Notify me when my credit utilization exceeds 70%"
		},
	},
	model.AlertLargeTransaction: {
		title:       "Large Transaction Alert",
		description: "Monitor unusually large purchases",
		category:    model.CategoryFraudProtection,
		query: func(u *model.User) string {
			amount := 500.0
			if u != nil && u.CreditLimit > 0 {
				amount = u.CreditLimit * 0.2
			}
			return fmt.Sprintf("Notify me when a single transaction exceeds $%.0f", amount)
		},
	},
	model.AlertNewMerchant: {
		title:       "New Merchant Alert",
		description: "Track purchases from merchants you haven't used before",
		category:    model.CategoryFraudProtection,
		query: func(*model.User) string {
			return "Notify me when I make a purchase from a new merchant"
		},
	},
	model.AlertLocationBased: {
		title:       "Location-Based Alert",
		description: "Detect transactions in unusual locations",
		category:    model.CategoryLocationBased,
		query: func(*model.User) string {
			return "Notify me of transactions in unusual locations"
		},
	},
	model.AlertSubscriptionMonitoring: {
		title:       "Subscription Monitoring",
		description: "Track recurring subscription charges",
		category:    model.CategorySubscriptionMonitoring,
		query: func(*model.User) string {
			return "Notify me of recurring subscription charges"
		},
	},
}

// subscriptionMerchants lists detected subscription merchants sorted by
// name so output is stable across runs.
func subscriptionMerchants(merchants analyzer.MerchantPatterns) []string {
	var names []string
	for name, stats := range merchants.Recurring {
		if stats.IsLikelySubscription {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// titleCase capitalizes each space-separated word. Alert type names are
// plain ASCII.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func topN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
