package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/marroweth/vigil/internal/model"
)

// SaveAlertRule inserts or updates an alert rule.
func (s *SQLiteStorage) SaveAlertRule(ctx context.Context, rule *model.AlertRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAlertRule(rule); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.saveAlertRuleTx(ctx, tx, rule); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStorage) saveAlertRuleTx(ctx context.Context, tx *sql.Tx, rule *model.AlertRule) error {
	active := 0
	if rule.IsActive {
		active = 1
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO alert_rules (id, user_id, name, natural_language_query, description, is_active)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			natural_language_query = excluded.natural_language_query,
			description = excluded.description,
			is_active = excluded.is_active
	`, rule.ID, rule.UserID, rule.Name, rule.NaturalLanguageQuery, rule.Description, active)
	if err != nil {
		return fmt.Errorf("failed to save alert rule %s: %w", rule.ID, err)
	}
	return nil
}

// GetActiveAlertRulesByUser retrieves one user's active alert rules.
func (s *SQLiteStorage) GetActiveAlertRulesByUser(ctx context.Context, userID string) ([]model.AlertRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	return s.getActiveAlertRulesTx(ctx, nil, userID)
}

// GetActiveAlertRules retrieves the active alert rules of every user.
func (s *SQLiteStorage) GetActiveAlertRules(ctx context.Context) ([]model.AlertRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getActiveAlertRulesTx(ctx, nil, "")
}

func (s *SQLiteStorage) getActiveAlertRulesTx(ctx context.Context, tx *sql.Tx, userID string) ([]model.AlertRule, error) {
	query := `
		SELECT id, user_id, name, natural_language_query, description, is_active, created_at
		FROM alert_rules
		WHERE is_active = 1
	`
	var args []any
	if userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}
	query += " ORDER BY user_id, id"

	var rows *sql.Rows
	var err error
	if tx != nil {
		rows, err = tx.QueryContext(ctx, query, args...)
	} else {
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query alert rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.AlertRule
	for rows.Next() {
		var rule model.AlertRule
		var name, description sql.NullString
		var active sql.NullInt64
		var createdAt sql.NullString

		if err := rows.Scan(&rule.ID, &rule.UserID, &name, &rule.NaturalLanguageQuery,
			&description, &active, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert rule: %w", err)
		}

		rule.Name = name.String
		rule.Description = description.String
		rule.IsActive = active.Int64 != 0

		if createdAt.Valid {
			if ts, parseErr := parseTime(createdAt.String); parseErr == nil {
				rule.CreatedAt = ts
			}
		}

		rules = append(rules, rule)
	}

	return rules, rows.Err()
}
