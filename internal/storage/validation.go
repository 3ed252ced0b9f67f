// Package storage provides the data persistence layer for the vigil application.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/marroweth/vigil/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrEmptySlice         = errors.New("slice cannot be empty")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidUser        = errors.New("invalid user")
	ErrInvalidAlertRule   = errors.New("invalid alert rule")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateTransactions validates a slice of transactions.
func validateTransactions(transactions []model.Transaction) error {
	if transactions == nil {
		return fmt.Errorf("%w: transactions", ErrNilParameter)
	}
	if len(transactions) == 0 {
		return fmt.Errorf("%w: transactions", ErrEmptySlice)
	}

	for i, txn := range transactions {
		if err := validateTransaction(&txn); err != nil {
			return fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}
	return nil
}

// validateTransaction validates a single transaction.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidTransaction)
	}
	if txn.UserID == "" {
		return fmt.Errorf("%w: missing user ID", ErrInvalidTransaction)
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	return nil
}

// validateUsers validates a slice of users.
func validateUsers(users []model.User) error {
	if users == nil {
		return fmt.Errorf("%w: users", ErrNilParameter)
	}
	if len(users) == 0 {
		return fmt.Errorf("%w: users", ErrEmptySlice)
	}

	for i, u := range users {
		if u.ID == "" {
			return fmt.Errorf("user at index %d: %w: missing ID", i, ErrInvalidUser)
		}
	}
	return nil
}

// validateAlertRule validates an alert rule.
func validateAlertRule(rule *model.AlertRule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}
	if rule.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidAlertRule)
	}
	if rule.UserID == "" {
		return fmt.Errorf("%w: missing user ID", ErrInvalidAlertRule)
	}
	if rule.NaturalLanguageQuery == "" {
		return fmt.Errorf("%w: missing natural language query", ErrInvalidAlertRule)
	}
	return nil
}
