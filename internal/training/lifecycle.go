// Package training owns the model lifecycle: deciding when the trained
// snapshot is stale, building training data from the store, training a
// fresh model, and persisting it atomically. It is the only component
// that mutates persistent model state; serving is read-only.
package training

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/marroweth/vigil/internal/common"
	"github.com/marroweth/vigil/internal/feature"
	"github.com/marroweth/vigil/internal/model"
	"github.com/marroweth/vigil/internal/recommender"
	"github.com/marroweth/vigil/internal/service"
)

// DefaultStaleDays is how old a snapshot may grow before retraining.
const DefaultStaleDays = 7

// Options configures one training run.
type Options struct {
	ModelPath     string
	Metric        string
	K             int
	UseRealAlerts bool
	ShowProgress  bool
}

// Trainer trains and persists recommender models from the data store.
type Trainer struct {
	store service.Storage
}

// NewTrainer creates a trainer backed by the given store.
func NewTrainer(store service.Storage) *Trainer {
	return &Trainer{store: store}
}

// ShouldRetrain reports whether the snapshot at path is missing or older
// than daysThreshold days.
func ShouldRetrain(path string, daysThreshold int) bool {
	if daysThreshold <= 0 {
		daysThreshold = DefaultStaleDays
	}
	age, exists := recommender.SnapshotAge(path)
	if !exists {
		return true
	}
	return age > time.Duration(daysThreshold)*24*time.Hour
}

// Train builds training data from a single consistent store snapshot,
// trains a fresh model, and persists it, atomically replacing any prior
// snapshot. A failure at any point leaves the previously saved snapshot
// untouched.
func (t *Trainer) Train(ctx context.Context, opts Options) (*recommender.Model, error) {
	var rows []model.UserFeatures

	err := common.WithRetry(ctx, func() error {
		var buildErr error
		rows, buildErr = t.buildTrainingRows(ctx, opts)
		return buildErr
	}, service.RetryOptions{MaxAttempts: 3})
	if err != nil {
		return nil, fmt.Errorf("failed to build training data: %w", err)
	}

	m := recommender.New()
	if err := m.Train(rows, opts.K, opts.Metric); err != nil {
		return nil, fmt.Errorf("failed to train model: %w", err)
	}

	if opts.ModelPath != "" {
		if err := m.Save(opts.ModelPath); err != nil {
			return nil, fmt.Errorf("failed to persist model: %w", err)
		}
	}

	slog.Info("Model trained",
		"users", m.UniverseSize(),
		"k", opts.K,
		"metric", m.Metric(),
		"real_labels", opts.UseRealAlerts)

	return m, nil
}

// Retrain trains with real alert labels forced on.
func (t *Trainer) Retrain(ctx context.Context, opts Options) (*recommender.Model, error) {
	opts.UseRealAlerts = true
	return t.Train(ctx, opts)
}

// buildTrainingRows reads users, transactions and alert rules inside one
// read transaction and produces labeled feature rows.
func (t *Trainer) buildTrainingRows(ctx context.Context, opts Options) ([]model.UserFeatures, error) {
	tx, err := t.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin read snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	users, err := tx.GetUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users: %w", err)
	}

	transactions, err := tx.GetTransactions(ctx, service.TransactionFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	rows := feature.BuildUserFeatures(users, transactions)

	if opts.UseRealAlerts {
		alertRows, extractErr := t.extractRealAlertRows(ctx, tx, users, opts.ShowProgress)
		if extractErr != nil {
			return nil, extractErr
		}

		if len(alertRows) > 0 {
			rows = feature.MergeRealAlertLabels(rows, alertRows)
			slog.Info("Using real alert labels", "observations", len(alertRows))
		} else {
			rows = feature.GenerateInitialAlertLabels(rows)
			slog.Info("No real alert labels found, using heuristic labels")
		}
	} else {
		rows = feature.GenerateInitialAlertLabels(rows)
		slog.Info("Using heuristic alert labels")
	}

	return feature.EnsureAlertColumns(rows), nil
}

// extractRealAlertRows classifies each user's active rules into long
// label observations.
func (t *Trainer) extractRealAlertRows(ctx context.Context, tx service.Transaction, users []model.User, showProgress bool) ([]feature.UserAlertRow, error) {
	var bar *progressbar.ProgressBar
	if showProgress {
		bar = progressbar.NewOptions(len(users),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("Extracting alert labels..."),
		)
	}

	var alertRows []feature.UserAlertRow
	for _, user := range users {
		if err := common.CheckContext(ctx); err != nil {
			return nil, err
		}

		rules, err := tx.GetActiveAlertRulesByUser(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch alert rules for user %s: %w", user.ID, err)
		}

		for col, enabled := range feature.ExtractAlertTypesFromRules(rules) {
			if enabled == 1 {
				alertRows = append(alertRows, feature.UserAlertRow{
					UserID:    user.ID,
					AlertType: col,
					Enabled:   1,
				})
			}
		}

		if bar != nil {
			_ = bar.Add(1)
		}
	}

	return alertRows, nil
}

// BuildServingRows builds the current feature rows with real alert bits
// for serving. Unlike training it never falls back to heuristic labels:
// a user with no matching rules simply has every bit at zero.
func (t *Trainer) BuildServingRows(ctx context.Context) ([]model.UserFeatures, error) {
	tx, err := t.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin read snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	users, err := tx.GetUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users: %w", err)
	}

	transactions, err := tx.GetTransactions(ctx, service.TransactionFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	rows := feature.EnsureAlertColumns(feature.BuildUserFeatures(users, transactions))

	for i := range rows {
		rules, rulesErr := tx.GetActiveAlertRulesByUser(ctx, rows[i].UserID)
		if rulesErr != nil {
			return nil, fmt.Errorf("failed to fetch alert rules for user %s: %w", rows[i].UserID, rulesErr)
		}
		for col, enabled := range feature.ExtractAlertTypesFromRules(rules) {
			rows[i].SetAlertBit(col, enabled)
		}
	}

	return rows, nil
}
