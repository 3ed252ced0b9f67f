// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/marroweth/vigil/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	UserID    string
	Limit     int
	Offset    int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// User operations
	SaveUsers(ctx context.Context, users []model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUsers(ctx context.Context) ([]model.User, error)

	// Transaction operations
	SaveTransactions(ctx context.Context, transactions []model.Transaction) error
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	GetTransactionsByUser(ctx context.Context, userID string) ([]model.Transaction, error)
	GetTransactionCount(ctx context.Context) (int, error)

	// Alert rule operations
	SaveAlertRule(ctx context.Context, rule *model.AlertRule) error
	GetActiveAlertRulesByUser(ctx context.Context, userID string) ([]model.AlertRule, error)
	GetActiveAlertRules(ctx context.Context) ([]model.AlertRule, error)

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction. Training reads all of
// its inputs through one of these so features and labels come from a
// single consistent snapshot.
type Transaction interface {
	Commit() error
	Rollback() error
	// Include all Storage methods for use within transaction
	Storage
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
