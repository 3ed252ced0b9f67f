package feature

import (
	"strings"

	"github.com/marroweth/vigil/internal/model"
)

// alertKeywords maps each canonical alert type to the case-insensitive
// substrings that identify it in a rule's natural language query. The
// table is evaluated independently per type: any match sets the bit, and
// a single rule may trigger multiple types.
var alertKeywords = []struct {
	alertType string
	keywords  []string
}{
	{model.AlertHighSpender, []string{"spending", "spent", "spend over", "total spend"}},
	{model.AlertHighTxVolume, []string{"transaction count", "number of transactions", "frequent"}},
	{model.AlertHighMerchantDiversity, []string{"different merchant", "variety", "diverse"}},
	{model.AlertNearCreditLimit, []string{"credit limit", "balance", "utilization"}},
	{model.AlertLargeTransaction, []string{"large", "big purchase", "amount over", "exceeds"}},
	{model.AlertNewMerchant, []string{"new merchant", "unfamiliar", "first time"}},
	{model.AlertLocationBased, []string{"location", "out of state", "international", "travel"}},
	{model.AlertSubscriptionMonitoring, []string{"subscription", "recurring", "monthly charge"}},
}

// ExtractAlertTypesFromRules classifies a user's active alert rules into
// canonical alert type bits by keyword matching on the query text. The
// result always contains every alert column.
func ExtractAlertTypesFromRules(rules []model.AlertRule) map[string]int {
	bits := make(map[string]int, len(alertKeywords))
	for _, entry := range alertKeywords {
		bits[model.AlertColumnPrefix+entry.alertType] = 0
	}

	for _, rule := range rules {
		query := strings.ToLower(rule.NaturalLanguageQuery)

		for _, entry := range alertKeywords {
			for _, keyword := range entry.keywords {
				if strings.Contains(query, keyword) {
					bits[model.AlertColumnPrefix+entry.alertType] = 1
					break
				}
			}
		}
	}

	return bits
}
