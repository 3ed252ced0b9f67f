package model

import "time"

// User represents an account holder whose transactions are monitored.
type User struct {
	CreatedAt       time.Time
	ID              string
	Name            string
	Email           string
	AddressState    string
	CreditLimit     float64
	CreditBalance   float64
	LocationConsent bool
}
