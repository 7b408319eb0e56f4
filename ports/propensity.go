package ports

import (
	"context"

	"gonum.org/v1/gonum/mat"
)

// PropensityModel maps confounder rows to a distribution over treatment levels.
// Levels are dense codes 0..k-1.
type PropensityModel interface {
	// Fit trains on design matrix X (n×p) and observed levels
	Fit(ctx context.Context, X mat.Matrix, levels []int, k int) error

	// PredictProba returns the n×k matrix of level probabilities
	PredictProba(X mat.Matrix) (*mat.Dense, error)

	// OwnLevelProba returns, per row, the probability of that row's observed level
	OwnLevelProba(X mat.Matrix, levels []int) ([]float64, error)

	// Params returns a copy of the fitted coefficients
	Params() []float64

	// Reset discards fitted state
	Reset()
}

// PropensityModelFactory creates an unfitted model; samplers fit a fresh one per disrupt stage
type PropensityModelFactory func() PropensityModel
