package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/marroweth/vigil/internal/model"
	"github.com/marroweth/vigil/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	// Ensure directory exists (skip for in-memory databases)
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new database transaction. Training reads all of its
// inputs through one of these so features and labels come from a single
// consistent snapshot.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (service.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &sqliteTransaction{
		tx:      tx,
		storage: s,
	}, nil
}

// sqliteTransaction wraps sql.Tx to implement service.Transaction.
type sqliteTransaction struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTransaction) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTransaction) Rollback() error {
	return t.tx.Rollback()
}

// Transaction methods delegate to the main storage with the transaction.
func (t *sqliteTransaction) SaveUsers(ctx context.Context, users []model.User) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateUsers(users); err != nil {
		return err
	}
	return t.storage.saveUsersTx(ctx, t.tx, users)
}

func (t *sqliteTransaction) GetUser(ctx context.Context, id string) (*model.User, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return t.storage.getUserTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) GetUsers(ctx context.Context) ([]model.User, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getUsersTx(ctx, t.tx)
}

func (t *sqliteTransaction) SaveTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}
	return t.storage.saveTransactionsTx(ctx, t.tx, transactions)
}

func (t *sqliteTransaction) GetTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getTransactionsTx(ctx, t.tx, filter)
}

func (t *sqliteTransaction) GetTransactionsByUser(ctx context.Context, userID string) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	return t.storage.getTransactionsTx(ctx, t.tx, service.TransactionFilter{UserID: userID})
}

func (t *sqliteTransaction) GetTransactionCount(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	return t.storage.getTransactionCountTx(ctx, t.tx)
}

func (t *sqliteTransaction) SaveAlertRule(ctx context.Context, rule *model.AlertRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAlertRule(rule); err != nil {
		return err
	}
	return t.storage.saveAlertRuleTx(ctx, t.tx, rule)
}

func (t *sqliteTransaction) GetActiveAlertRulesByUser(ctx context.Context, userID string) ([]model.AlertRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	return t.storage.getActiveAlertRulesTx(ctx, t.tx, userID)
}

func (t *sqliteTransaction) GetActiveAlertRules(ctx context.Context) ([]model.AlertRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getActiveAlertRulesTx(ctx, t.tx, "")
}

func (t *sqliteTransaction) Migrate(_ context.Context) error {
	// Migrations should not be run within a transaction
	return fmt.Errorf("migrations cannot be run within a transaction")
}

func (t *sqliteTransaction) BeginTx(_ context.Context) (service.Transaction, error) {
	// Nested transactions not supported
	return nil, fmt.Errorf("nested transactions not supported")
}

func (t *sqliteTransaction) Close() error {
	// Transactions should be committed or rolled back, not closed
	return fmt.Errorf("transactions must be committed or rolled back, not closed")
}

// parseTime handles the timestamp formats SQLite may hand back.
func parseTime(raw string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, format := range formats {
		if ts, err := time.Parse(format, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format: %q", raw)
}
