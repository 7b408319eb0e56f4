package propensity

import (
	"context"
	"fmt"
	"math"

	"gocausal/domain/core"
	"gocausal/ports"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

const (
	defaultMaxIterations = 200
	defaultGradTolerance = 1e-7
	acceptTolerance      = 1e-5
	rankTolerance        = 1e-10
)

// Options configures the logistic propensity model
type Options struct {
	MaxIterations int     // BFGS major iterations; 0 uses the default
	L2            float64 // ridge penalty on non-intercept coefficients
}

// Logistic is a multinomial logistic regression with level 0 as reference.
// With two levels it is ordinary logistic regression. Fitting is
// deterministic: BFGS from a zero start, no random initialization.
type Logistic struct {
	opts Options

	k      int
	p      int
	coef   *mat.Dense // p×(k-1)
	fitted bool
}

var _ ports.PropensityModel = (*Logistic)(nil)

// NewLogistic creates an unfitted model
func NewLogistic(opts Options) *Logistic {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = defaultMaxIterations
	}
	return &Logistic{opts: opts}
}

// Factory returns a ports.PropensityModelFactory producing models with opts
func Factory(opts Options) ports.PropensityModelFactory {
	return func() ports.PropensityModel { return NewLogistic(opts) }
}

// Fit estimates coefficients by penalized maximum likelihood
func (m *Logistic) Fit(ctx context.Context, X mat.Matrix, levels []int, k int) error {
	n, p := X.Dims()
	if len(levels) != n {
		return fmt.Errorf("design has %d rows but %d levels were given", n, len(levels))
	}
	if k < 2 {
		return core.NewModelFitError(core.ErrDegenerateDesign, fmt.Sprintf("treatment has %d level(s), need at least 2", k))
	}
	if err := checkDesign(X, levels, k); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	design := mat.DenseCopyOf(X)
	obj := &objective{X: design, levels: levels, k: k, l2: m.opts.L2}

	problem := optimize.Problem{
		Func: obj.value,
		Grad: obj.gradient,
	}
	settings := &optimize.Settings{
		GradientThreshold: defaultGradTolerance,
		MajorIterations:   m.opts.MaxIterations,
	}

	init := make([]float64, p*(k-1))
	result, err := optimize.Minimize(problem, init, settings, &optimize.BFGS{})
	if result == nil {
		return core.NewModelFitError(core.ErrNotConverged, err.Error())
	}
	for _, v := range result.X {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return core.NewModelFitError(core.ErrNotConverged, "non-finite coefficient")
		}
	}
	// Line searches can stall a hair short of the gradient threshold; a
	// stationary point is accepted whatever status the optimizer reports.
	grad := make([]float64, len(result.X))
	obj.gradient(grad, result.X)
	stationary := floats.Norm(grad, math.Inf(1)) < acceptTolerance
	if !stationary {
		if err != nil {
			return core.NewModelFitError(core.ErrNotConverged, err.Error())
		}
		switch result.Status {
		case optimize.GradientThreshold, optimize.FunctionConvergence:
		default:
			return core.NewModelFitError(core.ErrNotConverged,
				fmt.Sprintf("status %v after %d iterations", result.Status, result.Stats.MajorIterations))
		}
	}

	m.k = k
	m.p = p
	m.coef = mat.NewDense(p, k-1, append([]float64(nil), result.X...))
	m.fitted = true
	return nil
}

// PredictProba returns the n×k probability matrix
func (m *Logistic) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	if !m.fitted {
		return nil, core.ErrNotFitted
	}
	n, p := X.Dims()
	if p != m.p {
		return nil, fmt.Errorf("design has %d columns, model was fitted on %d", p, m.p)
	}
	return softmax(X, m.coef, n, m.k), nil
}

// OwnLevelProba returns the probability of each row's observed level
func (m *Logistic) OwnLevelProba(X mat.Matrix, levels []int) ([]float64, error) {
	probs, err := m.PredictProba(X)
	if err != nil {
		return nil, err
	}
	n, _ := probs.Dims()
	if len(levels) != n {
		return nil, fmt.Errorf("design has %d rows but %d levels were given", n, len(levels))
	}
	out := make([]float64, n)
	for i, lv := range levels {
		if lv < 0 || lv >= m.k {
			return nil, fmt.Errorf("row %d has level %d outside [0,%d)", i, lv, m.k)
		}
		out[i] = probs.At(i, lv)
	}
	return out, nil
}

// Params returns the coefficients row-major: one row per design column, one entry per non-reference level
func (m *Logistic) Params() []float64 {
	if !m.fitted {
		return nil
	}
	return append([]float64(nil), m.coef.RawMatrix().Data...)
}

// Levels returns the number of treatment levels seen at fit
func (m *Logistic) Levels() int { return m.k }

// Reset discards fitted state
func (m *Logistic) Reset() {
	m.k, m.p, m.coef, m.fitted = 0, 0, nil, false
}

// checkDesign rejects designs with fewer effective degrees of freedom than parameters
func checkDesign(X mat.Matrix, levels []int, k int) error {
	n, p := X.Dims()
	params := p * (k - 1)
	if n <= params {
		return core.NewModelFitError(core.ErrDegenerateDesign,
			fmt.Sprintf("%d rows for %d parameters", n, params))
	}

	counts := make([]int, k)
	for _, lv := range levels {
		if lv < 0 || lv >= k {
			return fmt.Errorf("level %d outside [0,%d)", lv, k)
		}
		counts[lv]++
	}
	for lv, c := range counts {
		if c == 0 {
			return core.NewModelFitError(core.ErrDegenerateDesign, fmt.Sprintf("treatment level %d has no rows", lv))
		}
	}

	var svd mat.SVD
	if !svd.Factorize(X, mat.SVDNone) {
		return core.NewModelFitError(core.ErrDegenerateDesign, "design factorization failed")
	}
	if rank := svd.Rank(rankTolerance); rank < p {
		return core.NewModelFitError(core.ErrDegenerateDesign,
			fmt.Sprintf("design rank %d below %d columns (collinear confounders)", rank, p))
	}
	return nil
}

// objective is the mean negative log-likelihood plus the ridge term
type objective struct {
	X      *mat.Dense
	levels []int
	k      int
	l2     float64
}

func (o *objective) value(beta []float64) float64 {
	n, p := o.X.Dims()
	B := mat.NewDense(p, o.k-1, beta)
	probs := softmax(o.X, B, n, o.k)

	nll := 0.0
	for i, lv := range o.levels {
		nll -= math.Log(math.Max(probs.At(i, lv), math.SmallestNonzeroFloat64))
	}
	return nll/float64(n) + o.penalty(beta, p)
}

func (o *objective) gradient(grad, beta []float64) {
	n, p := o.X.Dims()
	B := mat.NewDense(p, o.k-1, beta)
	probs := softmax(o.X, B, n, o.k)

	// residual R[i][c-1] = p_ic - 1{y_i = c} for non-reference levels
	R := mat.NewDense(n, o.k-1, nil)
	for i, lv := range o.levels {
		for c := 1; c < o.k; c++ {
			r := probs.At(i, c)
			if lv == c {
				r--
			}
			R.Set(i, c-1, r)
		}
	}

	G := mat.NewDense(p, o.k-1, grad)
	G.Mul(o.X.T(), R)
	floats.Scale(1/float64(n), grad)

	if o.l2 > 0 {
		for j := 1; j < p; j++ {
			for c := 0; c < o.k-1; c++ {
				idx := j*(o.k-1) + c
				grad[idx] += o.l2 * beta[idx]
			}
		}
	}
}

func (o *objective) penalty(beta []float64, p int) float64 {
	if o.l2 <= 0 {
		return 0
	}
	sum := 0.0
	for j := 1; j < p; j++ {
		for c := 0; c < o.k-1; c++ {
			v := beta[j*(o.k-1)+c]
			sum += v * v
		}
	}
	return 0.5 * o.l2 * sum
}

// softmax returns the n×k probability matrix for linear predictors X·B,
// with an implicit zero predictor for level 0
func softmax(X mat.Matrix, B *mat.Dense, n, k int) *mat.Dense {
	var eta mat.Dense
	eta.Mul(X, B)

	probs := mat.NewDense(n, k, nil)
	row := make([]float64, k)
	for i := 0; i < n; i++ {
		row[0] = 0
		for c := 1; c < k; c++ {
			row[c] = eta.At(i, c-1)
		}
		lse := floats.LogSumExp(row)
		for c := 0; c < k; c++ {
			probs.Set(i, c, math.Exp(row[c]-lse))
		}
	}
	return probs
}
