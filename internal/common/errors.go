// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Database errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Recommender errors.
	ErrModelNotReady     = errors.New("model not trained or loaded")
	ErrUserNotFound      = errors.New("user not found in feature set")
	ErrInvalidFeatureSet = errors.New("feature columns do not match trained model")
	ErrTrainingDataEmpty = errors.New("no training data")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(err error, userMessage string) *UserError {
	return &UserError{
		Err:         err,
		UserMessage: userMessage,
	}
}

// ValidationError indicates invalid input parameters.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

// CheckContext returns the context's error if it has been canceled.
func CheckContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("operation canceled: %w", ctx.Err())
	default:
		return nil
	}
}
