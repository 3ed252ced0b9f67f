package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/marroweth/vigil/internal/analyzer"
	"github.com/marroweth/vigil/internal/common"
	"github.com/marroweth/vigil/internal/model"
	"github.com/marroweth/vigil/internal/recommender"
	"github.com/marroweth/vigil/internal/service"
	"github.com/marroweth/vigil/internal/training"
)

// Config holds the engine's serving parameters.
type Config struct {
	ModelPath string
	Metric    string
	K         int
	Threshold float64
	StaleDays int
}

// CombinedResult is the ensemble answer for one user.
type CombinedResult struct {
	GeneratedAt       time.Time                 `json:"generated_at"`
	UserID            string                    `json:"user_id"`
	Recommendations   []model.Recommendation    `json:"recommendations"`
	SimilarUsers      []recommender.SimilarUser `json:"similar_users,omitempty"`
	TotalSimilarUsers int                       `json:"total_similar_users"`
}

// Engine is the top-level recommendation orchestrator. The trained model
// is the only shared mutable state: training builds a complete new
// snapshot and the pointer is swapped atomically, so concurrent serving
// calls always observe either the old or the new model, never a partial
// one.
type Engine struct {
	store   service.Storage
	trainer *training.Trainer
	current atomic.Pointer[recommender.Model]
	config  Config
}

// New creates an engine over the given store.
func New(store service.Storage, config Config) *Engine {
	if config.K <= 0 {
		config.K = recommender.DefaultNeighbors
	}
	if config.Threshold <= 0 {
		config.Threshold = recommender.DefaultThreshold
	}
	if config.StaleDays <= 0 {
		config.StaleDays = training.DefaultStaleDays
	}
	return &Engine{
		store:   store,
		trainer: training.NewTrainer(store),
		config:  config,
	}
}

// Model returns the currently served model, or nil before any load.
func (e *Engine) Model() *recommender.Model {
	return e.current.Load()
}

// SwapModel atomically replaces the served model.
func (e *Engine) SwapModel(m *recommender.Model) {
	e.current.Store(m)
}

// EnsureModel makes a trained model available for serving: it retrains
// when the persisted snapshot is stale or missing, loads from disk when a
// fresh snapshot exists, and otherwise keeps whatever is already loaded.
// A failed retrain leaves the current model serving.
func (e *Engine) EnsureModel(ctx context.Context) error {
	opts := training.Options{
		ModelPath:     e.config.ModelPath,
		K:             e.config.K,
		Metric:        e.config.Metric,
		UseRealAlerts: true,
	}

	if training.ShouldRetrain(e.config.ModelPath, e.config.StaleDays) {
		slog.Info("Model snapshot stale or missing, retraining")
		m, err := e.trainer.Retrain(ctx, opts)
		if err != nil {
			if e.Model() != nil {
				slog.Error("Retraining failed, keeping current model", "error", err)
				return nil
			}
			return fmt.Errorf("failed to train model: %w", err)
		}
		e.SwapModel(m)
		return nil
	}

	if e.Model() != nil {
		return nil
	}

	m, err := recommender.Load(e.config.ModelPath)
	if err != nil {
		slog.Warn("Failed to load model snapshot, training fresh", "error", err)
		m, err = e.trainer.Retrain(ctx, opts)
		if err != nil {
			return fmt.Errorf("failed to train model: %w", err)
		}
	}
	e.SwapModel(m)
	return nil
}

// RecommendForUser runs only the collaborative-filtering side against
// the current feature rows.
func (e *Engine) RecommendForUser(ctx context.Context, userID string) (*recommender.Result, error) {
	m := e.Model()
	if m == nil {
		return nil, common.ErrModelNotReady
	}

	rows, err := e.trainer.BuildServingRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build serving features: %w", err)
	}

	return m.RecommendForUser(userID, rows, e.config.K, e.config.Threshold)
}

// AnalyzeUser analyzes one user's transaction history.
func (e *Engine) AnalyzeUser(ctx context.Context, userID string) (analyzer.Analysis, error) {
	transactions, err := e.store.GetTransactionsByUser(ctx, userID)
	if err != nil {
		return analyzer.Analysis{}, fmt.Errorf("failed to fetch transactions: %w", err)
	}
	return analyzer.AnalyzeTransactions(transactions), nil
}

// GetRecommendations is the single entry point most collaborators call:
// it combines transaction-based candidates with collaborative filtering
// into one ranked, deduplicated list. Recommendations are advisory, so
// serving problems degrade to the static default set instead of
// propagating.
func (e *Engine) GetRecommendations(ctx context.Context, userID string) (*CombinedResult, error) {
	user, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user %s: %w", userID, err)
	}

	analysis, err := e.AnalyzeUser(ctx, userID)
	if err != nil {
		slog.Error("Transaction analysis failed, using defaults", "user", userID, "error", err)
		return e.defaultResult(userID, user), nil
	}
	transactionBased := GenerateTransactionBased(user, analysis)

	var collaborative []model.Recommendation
	var similarUsers []recommender.SimilarUser
	totalSimilar := 0

	if err := e.EnsureModel(ctx); err != nil {
		slog.Error("Model unavailable, serving transaction-based only", "user", userID, "error", err)
	} else if result, cfErr := e.RecommendForUser(ctx, userID); cfErr != nil {
		slog.Error("Collaborative filtering failed, serving transaction-based only",
			"user", userID, "error", cfErr)
	} else {
		collaborative = FormatCollaborative(result, user)
		similarUsers = result.SimilarUsers
		totalSimilar = result.TotalSimilarUsers
	}

	combined := Combine(transactionBased, collaborative,
		DefaultTransactionWeight, DefaultCollaborativeWeight)

	if len(combined) == 0 {
		return e.defaultResult(userID, user), nil
	}

	return &CombinedResult{
		UserID:            userID,
		Recommendations:   combined,
		SimilarUsers:      similarUsers,
		TotalSimilarUsers: totalSimilar,
		GeneratedAt:       time.Now().UTC(),
	}, nil
}

func (e *Engine) defaultResult(userID string, user *model.User) *CombinedResult {
	return &CombinedResult{
		UserID:          userID,
		Recommendations: NewUserRecommendations(user),
		GeneratedAt:     time.Now().UTC(),
	}
}
