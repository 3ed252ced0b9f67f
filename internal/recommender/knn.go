package recommender

import (
	"fmt"
	"math"
	"sort"
)

// Supported distance metrics.
const (
	MetricCosine    = "cosine"
	MetricEuclidean = "euclidean"
)

// Scaler is a z-score feature scaler fitted with population statistics.
type Scaler struct {
	Means []float64
	Stds  []float64
}

// FitScaler computes per-column mean and population standard deviation.
// Constant columns scale by 1 so they map to zero rather than NaN.
func FitScaler(matrix [][]float64) *Scaler {
	if len(matrix) == 0 {
		return &Scaler{}
	}

	cols := len(matrix[0])
	means := make([]float64, cols)
	stds := make([]float64, cols)

	for c := 0; c < cols; c++ {
		var total float64
		for _, row := range matrix {
			total += row[c]
		}
		means[c] = total / float64(len(matrix))

		var ss float64
		for _, row := range matrix {
			d := row[c] - means[c]
			ss += d * d
		}
		stds[c] = math.Sqrt(ss / float64(len(matrix)))
		if stds[c] == 0 {
			stds[c] = 1
		}
	}

	return &Scaler{Means: means, Stds: stds}
}

// Transform scales a vector with the stored parameters.
func (s *Scaler) Transform(vec []float64) []float64 {
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = (v - s.Means[i]) / s.Stds[i]
	}
	return out
}

// TransformAll scales every row of a matrix.
func (s *Scaler) TransformAll(matrix [][]float64) [][]float64 {
	out := make([][]float64, len(matrix))
	for i, row := range matrix {
		out[i] = s.Transform(row)
	}
	return out
}

// Neighbor is one nearest-neighbor hit: the row index into the fitted
// matrix and its distance from the query.
type Neighbor struct {
	Index    int
	Distance float64
}

// Index is a brute-force nearest-neighbor index over scaled vectors. The
// universe is one row per user, so a linear scan is cheap and keeps the
// ordering fully deterministic: ties break on original row order.
type Index struct {
	Matrix [][]float64
	Metric string
}

// NewIndex fits a nearest-neighbor index over the given matrix.
func NewIndex(matrix [][]float64, metric string) (*Index, error) {
	switch metric {
	case MetricCosine, MetricEuclidean:
	default:
		return nil, fmt.Errorf("unsupported distance metric: %q", metric)
	}
	return &Index{Matrix: matrix, Metric: metric}, nil
}

// Query returns the n nearest rows to the query vector, closest first.
// Fewer rows are returned when the fitted matrix is smaller than n.
func (ix *Index) Query(query []float64, n int) []Neighbor {
	neighbors := make([]Neighbor, len(ix.Matrix))
	for i, row := range ix.Matrix {
		neighbors[i] = Neighbor{Index: i, Distance: ix.distance(query, row)}
	}

	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].Distance < neighbors[j].Distance
	})

	if n < len(neighbors) {
		neighbors = neighbors[:n]
	}
	return neighbors
}

func (ix *Index) distance(a, b []float64) float64 {
	if ix.Metric == MetricEuclidean {
		var ss float64
		for i := range a {
			d := a[i] - b[i]
			ss += d * d
		}
		return math.Sqrt(ss)
	}
	return cosineDistance(a, b)
}

// cosineDistance is 1 - cosine similarity. Zero-norm vectors have no
// direction and are treated as maximally distant.
func cosineDistance(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
