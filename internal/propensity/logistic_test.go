package propensity

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"gocausal/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

// binaryDesign draws z ~ U(0,1) and d ~ Bernoulli(sigmoid(b0 + b1*z))
func binaryDesign(n int, b0, b1 float64, seed uint64) (*mat.Dense, []int) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	X := mat.NewDense(n, 2, nil)
	levels := make([]int, n)
	for i := 0; i < n; i++ {
		z := rng.Float64()
		X.Set(i, 0, 1)
		X.Set(i, 1, z)
		if rng.Float64() < sigmoid(b0+b1*z) {
			levels[i] = 1
		}
	}
	return X, levels
}

func TestLogistic_RecoversBinaryCoefficients(t *testing.T) {
	X, levels := binaryDesign(5000, -1, 3, 7)

	model := NewLogistic(Options{})
	require.NoError(t, model.Fit(context.Background(), X, levels, 2))

	params := model.Params()
	require.Len(t, params, 2)
	assert.InDelta(t, -1.0, params[0], 0.5, "intercept")
	assert.InDelta(t, 3.0, params[1], 0.5, "slope")

	scores, err := model.OwnLevelProba(X, levels)
	require.NoError(t, err)
	for i, s := range scores {
		if s <= 0 || s >= 1 {
			t.Fatalf("row %d: score %v outside (0,1)", i, s)
		}
	}
}

func TestLogistic_FitIsDeterministic(t *testing.T) {
	X, levels := binaryDesign(1000, 0.5, -2, 11)

	first := NewLogistic(Options{})
	second := NewLogistic(Options{})
	require.NoError(t, first.Fit(context.Background(), X, levels, 2))
	require.NoError(t, second.Fit(context.Background(), X, levels, 2))

	assert.InDeltaSlice(t, first.Params(), second.Params(), 1e-12)
}

func TestLogistic_MultinomialMatchesMarginals(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	n := 3000
	X := mat.NewDense(n, 2, nil)
	levels := make([]int, n)
	counts := make([]float64, 3)
	for i := 0; i < n; i++ {
		z := rng.Float64()
		X.Set(i, 0, 1)
		X.Set(i, 1, z)
		u := rng.Float64()
		switch {
		case u < 0.2+0.3*z:
			levels[i] = 0
		case u < 0.7:
			levels[i] = 1
		default:
			levels[i] = 2
		}
		counts[levels[i]]++
	}

	model := NewLogistic(Options{})
	require.NoError(t, model.Fit(context.Background(), X, levels, 3))

	probs, err := model.PredictProba(X)
	require.NoError(t, err)
	r, c := probs.Dims()
	require.Equal(t, n, r)
	require.Equal(t, 3, c)

	sums := make([]float64, 3)
	for i := 0; i < n; i++ {
		rowSum := 0.0
		for k := 0; k < 3; k++ {
			sums[k] += probs.At(i, k)
			rowSum += probs.At(i, k)
		}
		assert.InDelta(t, 1.0, rowSum, 1e-9)
	}
	// with an intercept the likelihood equations force predicted totals to match observed counts
	for k := range counts {
		assert.InDelta(t, counts[k], sums[k], 1.0, "level %d", k)
	}
}

func TestLogistic_DegenerateDesigns(t *testing.T) {
	ctx := context.Background()

	t.Run("fewer rows than parameters", func(t *testing.T) {
		X := mat.NewDense(2, 2, []float64{1, 0.1, 1, 0.9})
		err := NewLogistic(Options{}).Fit(ctx, X, []int{0, 1}, 2)
		assert.ErrorIs(t, err, core.ErrDegenerateDesign)
		assert.True(t, core.IsModelFitError(err))
	})

	t.Run("level without rows", func(t *testing.T) {
		X, levels := binaryDesign(200, 0, 1, 1)
		err := NewLogistic(Options{}).Fit(ctx, X, levels, 3)
		assert.ErrorIs(t, err, core.ErrDegenerateDesign)
	})

	t.Run("collinear columns", func(t *testing.T) {
		X, levels := binaryDesign(200, 0, 1, 2)
		wide := mat.NewDense(200, 3, nil)
		for i := 0; i < 200; i++ {
			wide.Set(i, 0, 1)
			wide.Set(i, 1, X.At(i, 1))
			wide.Set(i, 2, 2*X.At(i, 1))
		}
		err := NewLogistic(Options{}).Fit(ctx, wide, levels, 2)
		assert.ErrorIs(t, err, core.ErrDegenerateDesign)
	})

	t.Run("single level", func(t *testing.T) {
		X, _ := binaryDesign(50, 0, 1, 3)
		err := NewLogistic(Options{}).Fit(ctx, X, make([]int, 50), 1)
		assert.ErrorIs(t, err, core.ErrDegenerateDesign)
	})
}

func TestLogistic_PredictBeforeFit(t *testing.T) {
	model := NewLogistic(Options{})
	_, err := model.PredictProba(mat.NewDense(1, 1, []float64{1}))
	assert.ErrorIs(t, err, core.ErrNotFitted)
	assert.Nil(t, model.Params())
}

func TestLogistic_ResetDiscardsFit(t *testing.T) {
	X, levels := binaryDesign(300, 0, 1, 4)
	model := NewLogistic(Options{})
	require.NoError(t, model.Fit(context.Background(), X, levels, 2))
	model.Reset()
	assert.Nil(t, model.Params())
	assert.Equal(t, 0, model.Levels())
}

func TestLogistic_RidgeShrinksSlope(t *testing.T) {
	X, levels := binaryDesign(2000, 0, 4, 9)

	plain := NewLogistic(Options{})
	ridge := NewLogistic(Options{L2: 1.0})
	require.NoError(t, plain.Fit(context.Background(), X, levels, 2))
	require.NoError(t, ridge.Fit(context.Background(), X, levels, 2))

	assert.Less(t, math.Abs(ridge.Params()[1]), math.Abs(plain.Params()[1]))
}
