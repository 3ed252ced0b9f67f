// Package recommender implements the KNN collaborative-filtering model:
// it answers "what alerts do behaviorally similar users have enabled that
// this user does not?".
package recommender

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/marroweth/vigil/internal/common"
	"github.com/marroweth/vigil/internal/model"
)

// DefaultThreshold is the minimum neighbor probability to recommend an alert.
const DefaultThreshold = 0.4

// DefaultNeighbors is the default number of similar users to consider.
const DefaultNeighbors = 5

// alertDescriptions are the fixed human phrases used in reasoning strings.
var alertDescriptions = map[string]string{
	model.AlertHighSpender:            "monitoring high spending patterns",
	model.AlertHighTxVolume:           "tracking transaction frequency",
	model.AlertHighMerchantDiversity:  "detecting diverse merchant usage",
	model.AlertNearCreditLimit:        "monitoring credit utilization",
	model.AlertLargeTransaction:       "detecting large purchases",
	model.AlertNewMerchant:            "tracking new merchant visits",
	model.AlertLocationBased:          "monitoring location-based activity",
	model.AlertSubscriptionMonitoring: "tracking subscription services",
}

// AlertRecommendation is one collaborative-filtering candidate.
type AlertRecommendation struct {
	AlertType   string  `json:"alert_type"`
	Confidence  string  `json:"confidence"`
	Reason      string  `json:"reason"`
	Probability float64 `json:"probability"`
}

// SimilarUser describes one neighbor used for a recommendation.
type SimilarUser struct {
	UserID        string   `json:"user_id"`
	EnabledAlerts []string `json:"enabled_alerts"`
	Similarity    float64  `json:"similarity"`
}

// Result is the full response for one user.
type Result struct {
	UserID            string                `json:"user_id"`
	Recommendations   []AlertRecommendation `json:"recommendations"`
	SimilarUsers      []SimilarUser         `json:"similar_users"`
	TotalSimilarUsers int                   `json:"total_similar_users"`
}

// Model is the trainable KNN recommender. A Model is either untrained
// (all serving calls fail) or holds a complete immutable snapshot: scaler
// parameters, neighbor index, column lists and the training universe.
type Model struct {
	scaler      *Scaler
	index       *Index
	trainedAt   time.Time
	metric      string
	featureCols []string
	alertCols   []string
	universe    []model.UserFeatures
}

// New returns an untrained model.
func New() *Model {
	return &Model{}
}

// IsTrained reports whether the model holds a scaler and neighbor index.
func (m *Model) IsTrained() bool {
	return m.scaler != nil && m.index != nil
}

// TrainedAt returns when the current snapshot was built.
func (m *Model) TrainedAt() time.Time {
	return m.trainedAt
}

// Metric returns the distance metric of the current snapshot.
func (m *Model) Metric() string {
	return m.metric
}

// UniverseSize returns the number of users in the trained universe.
func (m *Model) UniverseSize() int {
	return len(m.universe)
}

// Train fits the scaler and neighbor index over the given feature rows.
// The index keeps k+1 neighbors because the nearest match to any trained
// row is always that row itself. The rows are copied as the neighbor
// universe served from later.
func (m *Model) Train(rows []model.UserFeatures, k int, metric string) error {
	if len(rows) == 0 {
		return common.ErrTrainingDataEmpty
	}
	if k <= 0 {
		k = DefaultNeighbors
	}
	if metric == "" {
		metric = MetricCosine
	}

	featureCols := model.FeatureColumns()
	alertCols := presentAlertColumns(rows)

	matrix := make([][]float64, len(rows))
	for i := range rows {
		matrix[i] = rows[i].Vector(featureCols)
	}

	scaler := FitScaler(matrix)
	index, err := NewIndex(scaler.TransformAll(matrix), metric)
	if err != nil {
		return fmt.Errorf("failed to build neighbor index: %w", err)
	}

	m.scaler = scaler
	m.index = index
	m.metric = metric
	m.featureCols = featureCols
	m.alertCols = alertCols
	m.universe = copyRows(rows)
	m.trainedAt = time.Now().UTC()

	return nil
}

// RecommendForUser recommends alerts for userID based on its k nearest
// neighbors in the trained universe. The user's row is looked up in the
// given serving rows; alerts the user already has enabled and alerts
// below the probability threshold are excluded.
func (m *Model) RecommendForUser(userID string, rows []model.UserFeatures, k int, threshold float64) (*Result, error) {
	if !m.IsTrained() {
		return nil, common.ErrModelNotReady
	}
	if k <= 0 {
		k = DefaultNeighbors
	}
	if err := m.validateFeatureCols(); err != nil {
		return nil, err
	}

	var userRow *model.UserFeatures
	for i := range rows {
		if rows[i].UserID == userID {
			userRow = &rows[i]
			break
		}
	}
	if userRow == nil {
		return nil, fmt.Errorf("%w: %s", common.ErrUserNotFound, userID)
	}

	currentAlerts := make(map[string]int, len(m.alertCols))
	for _, col := range m.alertCols {
		currentAlerts[col] = userRow.AlertBit(col)
	}

	scaled := m.scaler.Transform(userRow.Vector(m.featureCols))

	// The closest neighbor to a trained row is the row itself; drop it.
	hits := m.index.Query(scaled, k+1)
	if len(hits) > 0 {
		hits = hits[1:]
	}

	recommendations := make([]AlertRecommendation, 0, len(m.alertCols))
	for _, col := range m.alertCols {
		prob := m.neighborProbability(col, hits)

		if currentAlerts[col] == 1 {
			continue
		}
		if prob < threshold {
			continue
		}

		alertType := model.AlertTypeFromColumn(col)
		recommendations = append(recommendations, AlertRecommendation{
			AlertType:   alertType,
			Probability: prob,
			Confidence:  confidenceTier(prob, len(hits)),
			Reason:      reasonFor(alertType, prob, len(hits)),
		})
	}

	// Descending by probability; ties keep alert column declaration order.
	sort.SliceStable(recommendations, func(i, j int) bool {
		return recommendations[i].Probability > recommendations[j].Probability
	})

	return &Result{
		UserID:            userID,
		Recommendations:   recommendations,
		SimilarUsers:      m.formatSimilarUsers(hits),
		TotalSimilarUsers: len(hits),
	}, nil
}

// neighborProbability is the exact fraction of neighbors with the bit set.
func (m *Model) neighborProbability(col string, hits []Neighbor) float64 {
	if len(hits) == 0 {
		return 0
	}
	enabled := 0
	for _, hit := range hits {
		if m.universe[hit.Index].AlertBit(col) == 1 {
			enabled++
		}
	}
	return float64(enabled) / float64(len(hits))
}

func (m *Model) formatSimilarUsers(hits []Neighbor) []SimilarUser {
	similar := make([]SimilarUser, 0, len(hits))
	for _, hit := range hits {
		neighbor := m.universe[hit.Index]

		var enabled []string
		for _, col := range m.alertCols {
			if neighbor.AlertBit(col) == 1 {
				enabled = append(enabled, model.AlertTypeFromColumn(col))
			}
		}

		similar = append(similar, SimilarUser{
			UserID:        neighbor.UserID,
			Similarity:    1 - hit.Distance,
			EnabledAlerts: enabled,
		})
	}
	return similar
}

func (m *Model) validateFeatureCols() error {
	known := make(map[string]struct{})
	for _, col := range model.FeatureColumns() {
		known[col] = struct{}{}
	}
	for _, col := range m.featureCols {
		if _, ok := known[col]; !ok {
			return fmt.Errorf("%w: unknown column %q", common.ErrInvalidFeatureSet, col)
		}
	}
	return nil
}

// confidenceTier buckets a probability, dropping to low when too few
// neighbors were available to trust the fraction.
func confidenceTier(probability float64, neighbors int) string {
	switch {
	case neighbors < 3:
		return "low"
	case probability >= 0.7:
		return "high"
	case probability >= 0.5:
		return "medium"
	default:
		return "low"
	}
}

func reasonFor(alertType string, probability float64, neighbors int) string {
	description, ok := alertDescriptions[alertType]
	if !ok {
		description = "this type of monitoring"
	}
	percentage := int(math.Round(probability * 100))
	return fmt.Sprintf("%d%% of similar users have enabled %s. Based on analysis of %d users with similar spending patterns.",
		percentage, description, neighbors)
}

// presentAlertColumns lists the alert columns seen in the rows: canonical
// columns first in declaration order, then any extras sorted by name.
func presentAlertColumns(rows []model.UserFeatures) []string {
	seen := make(map[string]struct{})
	for i := range rows {
		for col := range rows[i].Alerts {
			seen[col] = struct{}{}
		}
	}

	var cols []string
	for _, col := range model.AlertColumns() {
		if _, ok := seen[col]; ok {
			cols = append(cols, col)
			delete(seen, col)
		}
	}

	var extras []string
	for col := range seen {
		if strings.HasPrefix(col, model.AlertColumnPrefix) {
			extras = append(extras, col)
		}
	}
	sort.Strings(extras)

	return append(cols, extras...)
}

func copyRows(rows []model.UserFeatures) []model.UserFeatures {
	out := make([]model.UserFeatures, len(rows))
	copy(out, rows)
	for i := range out {
		if rows[i].Alerts != nil {
			alerts := make(map[string]int, len(rows[i].Alerts))
			for k, v := range rows[i].Alerts {
				alerts[k] = v
			}
			out[i].Alerts = alerts
		}
	}
	return out
}
