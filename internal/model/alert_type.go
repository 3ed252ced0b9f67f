package model

import "strings"

// AlertColumnPrefix is prepended to alert type names wherever alert bits
// are carried alongside feature columns.
const AlertColumnPrefix = "alert_"

// Canonical alert types. The set is closed and the declaration order is
// meaningful: probability ties during recommendation are broken by it.
const (
	AlertHighSpender            = "high_spender"
	AlertHighTxVolume           = "high_tx_volume"
	AlertHighMerchantDiversity  = "high_merchant_diversity"
	AlertNearCreditLimit        = "near_credit_limit"
	AlertLargeTransaction       = "large_transaction"
	AlertNewMerchant            = "new_merchant"
	AlertLocationBased          = "location_based"
	AlertSubscriptionMonitoring = "subscription_monitoring"
)

// AlertTypes returns the canonical alert types in declaration order.
func AlertTypes() []string {
	return []string{
		AlertHighSpender,
		AlertHighTxVolume,
		AlertHighMerchantDiversity,
		AlertNearCreditLimit,
		AlertLargeTransaction,
		AlertNewMerchant,
		AlertLocationBased,
		AlertSubscriptionMonitoring,
	}
}

// AlertColumns returns the canonical alert label column names, one per
// alert type, each carrying the alert_ prefix.
func AlertColumns() []string {
	types := AlertTypes()
	cols := make([]string, len(types))
	for i, t := range types {
		cols[i] = AlertColumnPrefix + t
	}
	return cols
}

// NormalizeAlertColumn ensures a column name carries the alert_ prefix.
func NormalizeAlertColumn(name string) string {
	if strings.HasPrefix(name, AlertColumnPrefix) {
		return name
	}
	return AlertColumnPrefix + name
}

// AlertTypeFromColumn strips the alert_ prefix from a column name.
func AlertTypeFromColumn(col string) string {
	return strings.TrimPrefix(col, AlertColumnPrefix)
}
