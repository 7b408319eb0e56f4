package dosampler

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"gocausal/domain/causal"
	"gocausal/domain/core"
	"gocausal/domain/dataset"
	"gocausal/internal"
	"gocausal/internal/propensity"
	"gocausal/ports"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// WeightingName identifies the inverse-propensity strategy
const WeightingName = "weighting"

// WeightingOptions configures a WeightingSampler
type WeightingOptions struct {
	// Model builds a fresh propensity model per fit; nil uses logistic regression
	Model   ports.PropensityModelFactory
	Policy  propensity.ExtremePolicy
	Epsilon float64
	Logger  *internal.Logger
}

// WeightingSampler removes confounding by resampling rows with probability
// proportional to 1/P(observed treatment | confounders). Treatments must be
// discrete; several treatments are treated as one variable over their joint
// observed levels.
type WeightingSampler struct {
	newModel ports.PropensityModelFactory
	policy   propensity.ExtremePolicy
	eps      float64
	logger   *internal.Logger
}

var _ Strategy = (*WeightingSampler)(nil)

// NewWeightingSampler creates the strategy
func NewWeightingSampler(opts WeightingOptions) *WeightingSampler {
	if opts.Model == nil {
		opts.Model = propensity.Factory(propensity.Options{})
	}
	if opts.Policy == "" {
		opts.Policy = propensity.ExtremeClip
	}
	if opts.Epsilon <= 0 {
		opts.Epsilon = propensity.DefaultEpsilon
	}
	if opts.Logger == nil {
		opts.Logger = internal.DefaultLogger
	}
	return &WeightingSampler{
		newModel: opts.Model,
		policy:   opts.Policy,
		eps:      opts.Epsilon,
		logger:   opts.Logger.With("WeightingSampler"),
	}
}

func (s *WeightingSampler) Name() string { return WeightingName }

// Supports rejects continuous treatments
func (s *WeightingSampler) Supports(spec *Spec) error {
	for _, t := range spec.Treatments {
		if typ := spec.Types[t]; !typ.IsDiscrete() {
			return core.NewConfigurationError("treatment",
				fmt.Sprintf("%q is %s; weighting needs a binary or categorical treatment", t, typ))
		}
	}
	return nil
}

// DisruptCauses fits the propensity model and computes inverse weights
func (s *WeightingSampler) DisruptCauses(ctx context.Context, w *WorkingSet) error {
	spec := w.Spec
	codec, err := propensity.NewLevelCodec(w.Data, spec.Treatments)
	if err != nil {
		return err
	}
	levels, err := codec.Encode(w.Data)
	if err != nil {
		return err
	}

	enc := propensity.NewEncoder(spec.Confounders.Names(), spec.Types)
	if err := enc.Fit(w.Data); err != nil {
		return err
	}
	X, err := enc.Transform(w.Data)
	if err != nil {
		return err
	}

	model := s.newModel()
	if err := model.Fit(ctx, X, levels, codec.K()); err != nil {
		return err
	}
	raw, err := model.OwnLevelProba(X, levels)
	if err != nil {
		return err
	}

	scores, report, err := propensity.ApplyPolicy(raw, s.policy, s.eps)
	if err != nil {
		return err
	}
	if report.Dropped > 0 {
		if err := w.Keep(report.Kept); err != nil {
			return err
		}
	}

	weights := make([]float64, len(scores))
	for i, p := range scores {
		weights[i] = 1 / p
	}
	w.Scores = scores
	w.Weights = weights
	w.Model = model

	w.Diagnostics = Diagnostics{
		Strategy:      WeightingName,
		Rows:          len(scores),
		Levels:        codec.K(),
		Features:      enc.FeatureNames(),
		Params:        model.Params(),
		Policy:        string(report.Policy),
		Clipped:       report.Clipped,
		Dropped:       report.Dropped,
		MinScore:      floats.Min(scores),
		MaxScore:      floats.Max(scores),
		MeanScore:     stat.Mean(scores, nil),
		EffectiveSize: effectiveSize(weights),
	}

	if report.Clipped > 0 {
		s.logger.Warn("clipped %d propensity score(s) to [%g, %g]", report.Clipped, report.Epsilon, 1-report.Epsilon)
	}
	if report.Dropped > 0 {
		s.logger.Warn("dropped %d row(s) with propensity outside [%g, %g]", report.Dropped, report.Epsilon, 1-report.Epsilon)
	}
	s.logger.Debug("fitted %d levels on %d rows with %s, ESS %.1f",
		codec.K(), len(scores), enc, w.Diagnostics.EffectiveSize)
	return nil
}

// MakeEffective keeps the rows whose observed treatment equals the assigned value
func (s *WeightingSampler) MakeEffective(ctx context.Context, w *WorkingSet, iv causal.Intervention) error {
	spec := w.Spec
	observed := make([][]float64, len(spec.Treatments))
	assigned := make([][]float64, len(spec.Treatments))
	for j, t := range spec.Treatments {
		values, ok := w.Data.Column(t)
		if !ok {
			return core.NewColumnNotFoundError("treatment", t)
		}
		observed[j] = values
		assigned[j] = iv.Values(t, spec.Treatments, spec.OriginalRows)
		if assigned[j] == nil {
			return core.NewInterventionError(fmt.Sprintf("no value for treatment %q", t))
		}
	}

	keep := make([]int, 0, w.Data.RowCount())
	for i, row := range w.Rows {
		match := true
		for j := range spec.Treatments {
			if observed[j][i] != assigned[j][row] {
				match = false
				break
			}
		}
		if match {
			keep = append(keep, i)
		}
	}
	if len(keep) == 0 {
		return fmt.Errorf("%w: no rows observed at %s", core.ErrInsufficientData, iv)
	}
	s.logger.Trace("%d of %d rows match %s", len(keep), w.Data.RowCount(), iv)
	return w.Keep(keep)
}

// MakeOutcomeDataset draws size rows with replacement, proportional to weight
func (s *WeightingSampler) MakeOutcomeDataset(ctx context.Context, w *WorkingSet, size int, rng *rand.Rand) (*dataset.Dataset, error) {
	n := w.Data.RowCount()
	if n == 0 {
		return nil, core.ErrInsufficientData
	}
	weights := w.Weights
	if weights == nil {
		weights = make([]float64, n)
		floats.AddConst(1, weights)
	}
	if len(weights) != n {
		return nil, fmt.Errorf("%d weights for %d rows", len(weights), n)
	}

	dist := distuv.NewCategorical(weights, rng)
	indices := make([]int, size)
	for i := range indices {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		indices[i] = int(dist.Rand())
	}
	return w.Data.Take(indices)
}

// effectiveSize is Kish's (Σw)² / Σw²
func effectiveSize(weights []float64) float64 {
	sum := floats.Sum(weights)
	sq := floats.Dot(weights, weights)
	if sq == 0 {
		return 0
	}
	ess := sum * sum / sq
	if math.IsNaN(ess) {
		return 0
	}
	return ess
}
