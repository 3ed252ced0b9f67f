package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// Transaction represents a single financial transaction belonging to a user.
type Transaction struct {
	Date             time.Time
	ID               string
	UserID           string
	MerchantName     string
	MerchantCategory string
	MerchantState    string
	Hash             string
	Amount           float64
}

// GenerateHash creates a unique hash for duplicate detection.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%s:%.2f:%s",
		t.UserID,
		t.Date.Format("2006-01-02"),
		t.Amount,
		t.MerchantName)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
