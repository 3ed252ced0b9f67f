package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/marroweth/vigil/internal/common"
	"github.com/marroweth/vigil/internal/model"
)

// SaveUsers inserts or updates multiple users.
func (s *SQLiteStorage) SaveUsers(ctx context.Context, users []model.User) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateUsers(users); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.saveUsersTx(ctx, tx, users); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStorage) saveUsersTx(ctx context.Context, tx *sql.Tx, users []model.User) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO users (id, name, email, credit_limit, credit_balance, address_state, location_consent)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			credit_limit = excluded.credit_limit,
			credit_balance = excluded.credit_balance,
			address_state = excluded.address_state,
			location_consent = excluded.location_consent
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, u := range users {
		consent := 0
		if u.LocationConsent {
			consent = 1
		}
		if _, err := stmt.ExecContext(ctx, u.ID, u.Name, u.Email,
			u.CreditLimit, u.CreditBalance, u.AddressState, consent); err != nil {
			return fmt.Errorf("failed to save user %s: %w", u.ID, err)
		}
	}

	return nil
}

// GetUser retrieves a single user by ID.
func (s *SQLiteStorage) GetUser(ctx context.Context, id string) (*model.User, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return s.getUserTx(ctx, nil, id)
}

func (s *SQLiteStorage) getUserTx(ctx context.Context, tx *sql.Tx, id string) (*model.User, error) {
	query := `
		SELECT id, name, email, credit_limit, credit_balance, address_state, location_consent, created_at
		FROM users WHERE id = ?
	`

	var row *sql.Row
	if tx != nil {
		row = tx.QueryRowContext(ctx, query, id)
	} else {
		row = s.db.QueryRowContext(ctx, query, id)
	}

	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUsers retrieves all users ordered by ID.
func (s *SQLiteStorage) GetUsers(ctx context.Context) ([]model.User, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getUsersTx(ctx, nil)
}

func (s *SQLiteStorage) getUsersTx(ctx context.Context, tx *sql.Tx) ([]model.User, error) {
	query := `
		SELECT id, name, email, credit_limit, credit_balance, address_state, location_consent, created_at
		FROM users ORDER BY id
	`

	var rows *sql.Rows
	var err error
	if tx != nil {
		rows, err = tx.QueryContext(ctx, query)
	} else {
		rows, err = s.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []model.User
	for rows.Next() {
		user, scanErr := scanUser(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan user: %w", scanErr)
		}
		users = append(users, *user)
	}

	return users, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanUser(row scannable) (*model.User, error) {
	var u model.User
	var name, email, state sql.NullString
	var limit, balance sql.NullFloat64
	var consent sql.NullInt64
	var createdAt sql.NullString

	if err := row.Scan(&u.ID, &name, &email, &limit, &balance, &state, &consent, &createdAt); err != nil {
		return nil, err
	}

	u.Name = name.String
	u.Email = email.String
	u.AddressState = state.String
	u.CreditLimit = limit.Float64
	u.CreditBalance = balance.Float64
	u.LocationConsent = consent.Int64 != 0

	if createdAt.Valid {
		if ts, err := parseTime(createdAt.String); err == nil {
			u.CreatedAt = ts
		}
	}

	return &u, nil
}
