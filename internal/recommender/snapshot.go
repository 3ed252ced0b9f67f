package recommender

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/marroweth/vigil/internal/model"
)

// snapshot is the on-disk form of a trained model. It is produced and
// consumed by the same binary, so the encoding is not a wire format.
type snapshot struct {
	TrainedAt   time.Time
	Metric      string
	FeatureCols []string
	AlertCols   []string
	Means       []float64
	Stds        []float64
	Matrix      [][]float64
	Universe    []model.UserFeatures
}

// Save persists the trained model atomically: the snapshot is written to
// a temp file in the target directory and renamed over any prior one, so
// readers only ever observe a complete artifact.
func (m *Model) Save(path string) error {
	if !m.IsTrained() {
		return fmt.Errorf("cannot save untrained model")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".model-*.gob")
	if err != nil {
		return fmt.Errorf("failed to create temp model file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	snap := snapshot{
		TrainedAt:   m.trainedAt,
		Metric:      m.metric,
		FeatureCols: m.featureCols,
		AlertCols:   m.alertCols,
		Means:       m.scaler.Means,
		Stds:        m.scaler.Stds,
		Matrix:      m.index.Matrix,
		Universe:    m.universe,
	}

	if err := gob.NewEncoder(tmp).Encode(&snap); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to encode model snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp model file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace model snapshot: %w", err)
	}

	return nil
}

// Load reads a previously saved model snapshot.
func Load(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model snapshot: %w", err)
	}
	defer func() { _ = f.Close() }()

	var snap snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode model snapshot: %w", err)
	}

	index, err := NewIndex(snap.Matrix, snap.Metric)
	if err != nil {
		return nil, fmt.Errorf("invalid model snapshot: %w", err)
	}

	return &Model{
		scaler:      &Scaler{Means: snap.Means, Stds: snap.Stds},
		index:       index,
		metric:      snap.Metric,
		featureCols: snap.FeatureCols,
		alertCols:   snap.AlertCols,
		universe:    snap.Universe,
		trainedAt:   snap.TrainedAt,
	}, nil
}

// SnapshotAge returns how old the artifact at path is, and whether it
// exists at all.
func SnapshotAge(path string) (time.Duration, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, false
	}
	return time.Since(info.ModTime()), true
}
