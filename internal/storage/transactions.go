package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/marroweth/vigil/internal/model"
	"github.com/marroweth/vigil/internal/service"
)

// SaveTransactions saves multiple transactions to the database.
// Duplicates (by hash) are silently ignored.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.saveTransactionsTx(ctx, tx, transactions); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStorage) saveTransactionsTx(ctx context.Context, tx *sql.Tx, transactions []model.Transaction) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO transactions (
			id, user_id, hash, transaction_date, amount,
			merchant_name, merchant_category, merchant_state
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, txn := range transactions {
		if txn.Hash == "" {
			txn.Hash = txn.GenerateHash()
		}

		if _, err := stmt.ExecContext(ctx,
			txn.ID, txn.UserID, txn.Hash, txn.Date, txn.Amount,
			txn.MerchantName, txn.MerchantCategory, txn.MerchantState); err != nil {
			return fmt.Errorf("failed to save transaction %s: %w", txn.ID, err)
		}
	}

	return nil
}

// GetTransactions retrieves transactions matching the filter, oldest first.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getTransactionsTx(ctx, nil, filter)
}

// GetTransactionsByUser retrieves all of one user's transactions.
func (s *SQLiteStorage) GetTransactionsByUser(ctx context.Context, userID string) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	return s.getTransactionsTx(ctx, nil, service.TransactionFilter{UserID: userID})
}

func (s *SQLiteStorage) getTransactionsTx(ctx context.Context, tx *sql.Tx, filter service.TransactionFilter) ([]model.Transaction, error) {
	query := `
		SELECT id, user_id, hash, transaction_date, amount,
		       merchant_name, merchant_category, merchant_state
		FROM transactions
	`

	var conditions []string
	var args []any

	if filter.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.StartDate != nil {
		conditions = append(conditions, "transaction_date >= ?")
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		conditions = append(conditions, "transaction_date <= ?")
		args = append(args, *filter.EndDate)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY transaction_date, id"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	var rows *sql.Rows
	var err error
	if tx != nil {
		rows, err = tx.QueryContext(ctx, query, args...)
	} else {
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		var txn model.Transaction
		var merchantName, merchantCategory, merchantState sql.NullString
		var date sql.NullString

		if err := rows.Scan(&txn.ID, &txn.UserID, &txn.Hash, &date, &txn.Amount,
			&merchantName, &merchantCategory, &merchantState); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		txn.MerchantName = merchantName.String
		txn.MerchantCategory = merchantCategory.String
		txn.MerchantState = merchantState.String

		if date.Valid {
			ts, parseErr := parseTime(date.String)
			if parseErr != nil {
				return nil, fmt.Errorf("transaction %s: %w", txn.ID, parseErr)
			}
			txn.Date = ts
		}

		transactions = append(transactions, txn)
	}

	return transactions, rows.Err()
}

// GetTransactionCount returns the total number of stored transactions.
func (s *SQLiteStorage) GetTransactionCount(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	return s.getTransactionCountTx(ctx, nil)
}

func (s *SQLiteStorage) getTransactionCountTx(ctx context.Context, tx *sql.Tx) (int, error) {
	query := "SELECT COUNT(*) FROM transactions"

	var count int
	var err error
	if tx != nil {
		err = tx.QueryRowContext(ctx, query).Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx, query).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}
