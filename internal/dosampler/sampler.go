// Package dosampler draws samples from interventional distributions.
//
// A DoSampler runs the three-stage protocol over a private copy of a dataset:
//
//  1. disrupt causes: fit a model that severs treatment from its confounders
//  2. make effective: restrict the working rows so the intervention holds,
//     then write the assigned values into the treatment columns
//  3. propagate and sample: draw the output rows
//
// Stages 2 and 3 are delegated to a Strategy. A sampler may persist the
// stage-1 fit between calls (stateful mode); nothing else survives a call.
//
// A DoSampler is not safe for concurrent use. Run parallel draws on
// independent samplers obtained from Fork.
package dosampler

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"gocausal/domain/causal"
	"gocausal/domain/core"
	"gocausal/domain/dataset"
	"gocausal/internal"
	"gocausal/ports"
)

// State is the position of a sampler in the stage protocol
type State int

const (
	StateUnfit State = iota
	StateFit
	StateEffective
	StateSampled
)

func (s State) String() string {
	switch s {
	case StateUnfit:
		return "unfit"
	case StateFit:
		return "fit"
	case StateEffective:
		return "effective"
	case StateSampled:
		return "sampled"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Config describes the sampling problem and the sampler's policies
type Config struct {
	Treatments []string
	Outcomes   []string

	// Confounders is the backdoor set. Ignored when Identifier is set.
	Confounders []string
	// Identifier derives the backdoor set at construction
	Identifier ports.IdentifierPort

	// VariableTypes declares every treatment, outcome and confounder type.
	// Columns missing from the map fall back to the dataset's own type.
	VariableTypes dataset.VariableTypes

	// KeepOriginalTreatment propagates observed treatment and ignores
	// supplied intervention values
	KeepOriginalTreatment bool

	// SampleSize is the number of output rows; 0 means the input row count
	SampleSize int

	// Seed initializes the resampling source when Rand is nil
	Seed uint64
	Rand *rand.Rand

	Logger   *internal.Logger
	Observer Observer
}

// DoSampler orchestrates the stage protocol over a Strategy
type DoSampler struct {
	spec     *Spec
	original *dataset.Dataset
	strategy Strategy
	keep     bool
	size     int
	rng      *rand.Rand
	logger   *internal.Logger
	observer Observer

	state State
	fit   *WorkingSet // persisted stage-1 state, stateful mode only
}

// New validates cfg against data and returns an unfit sampler.
// The dataset is copied; the caller's value is never modified.
func New(ctx context.Context, data *dataset.Dataset, cfg Config, strategy Strategy) (*DoSampler, error) {
	if data == nil {
		return nil, core.NewConfigurationError("dataset", "is nil")
	}
	if strategy == nil {
		return nil, core.NewConfigurationError("strategy", "is nil")
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = internal.DefaultLogger
	}
	logger = logger.With("DoSampler")

	treatments := causal.NewTreatmentSpec(cfg.Treatments...)
	outcomes := causal.NewOutcomeSpec(cfg.Outcomes...)
	if len(treatments) == 0 {
		return nil, core.NewConfigurationError("treatments", "at least one treatment is required")
	}
	if len(outcomes) == 0 {
		return nil, core.NewConfigurationError("outcomes", "at least one outcome is required")
	}
	for _, t := range treatments {
		if outcomes.Contains(t) {
			return nil, core.NewConfigurationError("outcomes", fmt.Sprintf("%q is both treatment and outcome", t))
		}
	}

	confounders := causal.NewConfounderSet(cfg.Confounders...)
	if cfg.Identifier != nil {
		set, err := cfg.Identifier.Identify(ctx, treatments, outcomes, data.Names())
		if err != nil {
			return nil, err
		}
		confounders = set
		logger.Info("identified backdoor set %s for %v -> %v", confounders, []string(treatments), []string(outcomes))
	}
	for _, c := range confounders.Names() {
		if treatments.Contains(c) || outcomes.Contains(c) {
			return nil, core.NewConfigurationError("confounders", fmt.Sprintf("%q is also a treatment or outcome", c))
		}
	}

	types, err := resolveTypes(data, cfg.VariableTypes, treatments, outcomes, confounders)
	if err != nil {
		return nil, err
	}

	spec := &Spec{
		Treatments:   treatments,
		Outcomes:     outcomes,
		Confounders:  confounders,
		Types:        types,
		OriginalRows: data.RowCount(),
	}
	if err := strategy.Supports(spec); err != nil {
		return nil, err
	}

	if cfg.SampleSize < 0 {
		return nil, core.NewConfigurationError("sample_size", "cannot be negative")
	}
	size := cfg.SampleSize
	if size == 0 {
		size = data.RowCount()
	}

	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0xda3e39cb94b95bdb))
	}
	observer := cfg.Observer
	if observer == nil {
		observer = nopObserver{}
	}

	return &DoSampler{
		spec:     spec,
		original: data.Clone(),
		strategy: strategy,
		keep:     cfg.KeepOriginalTreatment,
		size:     size,
		rng:      rng,
		logger:   logger,
		observer: observer,
		state:    StateUnfit,
	}, nil
}

// resolveTypes checks every role column exists and its declared type fits its values
func resolveTypes(data *dataset.Dataset, declared dataset.VariableTypes, treatments causal.TreatmentSpec, outcomes causal.OutcomeSpec, confounders causal.ConfounderSet) (dataset.VariableTypes, error) {
	types := make(dataset.VariableTypes)
	check := func(role, name string) error {
		if !data.Has(name) {
			return core.NewColumnNotFoundError(role, name)
		}
		typ, ok := declared[name]
		if !ok {
			typ, _ = data.Type(name)
		}
		if err := data.CheckType(name, typ); err != nil {
			return err
		}
		types[name] = typ
		return nil
	}

	for _, t := range treatments {
		if err := check("treatment", t); err != nil {
			return nil, err
		}
	}
	for _, o := range outcomes {
		if err := check("outcome", o); err != nil {
			return nil, err
		}
	}
	for _, c := range confounders.Names() {
		if err := check("confounder", c); err != nil {
			return nil, err
		}
	}
	for name := range declared {
		if !data.Has(name) {
			return nil, core.NewColumnNotFoundError("declared", name)
		}
	}
	return types, nil
}

// DoSample draws one sample from the interventional distribution.
//
// With stateful set, a previously persisted fit is reused and the fit made by
// this call is persisted. Without it the call fits from scratch and leaves
// the sampler exactly as it found it. A failed call never changes persisted
// state.
func (s *DoSampler) DoSample(ctx context.Context, iv causal.Intervention, stateful bool) (*dataset.Dataset, error) {
	return s.DoSampleRun(ctx, core.NewRunID(), iv, stateful)
}

// DoSampleRun is DoSample with the caller's run ID tagging every log line
func (s *DoSampler) DoSampleRun(ctx context.Context, runID core.RunID, iv causal.Intervention, stateful bool) (*dataset.Dataset, error) {
	if runID.IsEmpty() {
		runID = core.NewRunID()
	}
	start := time.Now()
	before := s.state

	out, err := s.doSample(ctx, runID, iv, stateful)
	s.observer.SampleCompleted(s.strategy.Name(), time.Since(start), rowsOf(out), err)
	if err != nil {
		s.state = before
		s.logger.Debug("run %s failed: %v", runID, err)
		return nil, err
	}
	return out, nil
}

func (s *DoSampler) doSample(ctx context.Context, runID core.RunID, iv causal.Intervention, stateful bool) (*dataset.Dataset, error) {
	if s.keep {
		if !iv.IsEmpty() && !iv.KeepsOriginal() {
			s.logger.Info("run %s: keeping original treatment, ignoring %s", runID, iv)
		}
		iv = causal.KeepOriginal()
	} else if iv.IsEmpty() {
		return nil, core.ErrInterventionRequired
	}
	if err := iv.Validate(s.spec.Treatments, s.spec.OriginalRows); err != nil {
		return nil, err
	}

	// Stage 1
	fit := s.fit
	if fit == nil || !stateful {
		var err error
		if fit, err = s.disrupt(ctx); err != nil {
			return nil, err
		}
	} else {
		s.logger.Trace("run %s: reusing persisted fit", runID)
	}
	s.state = StateFit

	// Stage 2
	work := fit.Clone()
	if !iv.KeepsOriginal() {
		if err := s.strategy.MakeEffective(ctx, work, iv); err != nil {
			return nil, err
		}
		if err := s.assign(work, iv); err != nil {
			return nil, err
		}
	}
	s.state = StateEffective

	// Stage 3
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := s.strategy.MakeOutcomeDataset(ctx, work, s.size, s.rng)
	if err != nil {
		return nil, err
	}
	s.state = StateSampled
	s.logger.Debug("run %s: %s drew %d rows from %d eligible under %s", runID, s.strategy.Name(), out.RowCount(), work.Data.RowCount(), iv)

	if stateful {
		s.fit = fit
		s.state = StateFit
	} else if s.fit != nil {
		s.state = StateFit
	} else {
		s.state = StateUnfit
	}
	return out, nil
}

// Fit runs stage 1 and persists the result, replacing any earlier fit only on success
func (s *DoSampler) Fit(ctx context.Context) error {
	fit, err := s.disrupt(ctx)
	if err != nil {
		return err
	}
	s.fit = fit
	s.state = StateFit
	return nil
}

func (s *DoSampler) disrupt(ctx context.Context) (*WorkingSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	work := newWorkingSet(s.spec, s.original)
	err := s.strategy.DisruptCauses(ctx, work)
	s.observer.FitCompleted(s.strategy.Name(), time.Since(start), work.Diagnostics, err)
	if err != nil {
		return nil, err
	}
	return work, nil
}

// assign writes the intervention's values into the treatment columns of the
// working rows, mapping each row back to its original position
func (s *DoSampler) assign(work *WorkingSet, iv causal.Intervention) error {
	for _, t := range s.spec.Treatments {
		assigned := iv.Values(t, s.spec.Treatments, s.spec.OriginalRows)
		if assigned == nil {
			return core.NewInterventionError(fmt.Sprintf("no value for treatment %q", t))
		}
		values := make([]float64, work.Data.RowCount())
		for j, row := range work.Rows {
			values[j] = assigned[row]
		}
		if err := work.Data.SetValues(t, values); err != nil {
			return err
		}
	}
	return nil
}

// Reset discards the persisted fit and working copy. On a sampler holding no
// state it does nothing. Forks keep their reference to the discarded fit.
func (s *DoSampler) Reset() {
	s.fit = nil
	s.state = StateUnfit
}

// State returns the current protocol state
func (s *DoSampler) State() State { return s.state }

// Fitted reports whether a stage-1 fit is persisted
func (s *DoSampler) Fitted() bool { return s.fit != nil }

// Spec returns the resolved sampling problem
func (s *DoSampler) Spec() Spec {
	spec := *s.spec
	spec.Types = s.spec.Types.Clone()
	return spec
}

// Confounders returns the backdoor set in use
func (s *DoSampler) Confounders() causal.ConfounderSet { return s.spec.Confounders }

// Propensities returns the persisted per-row scores, aligned with PropensityRows
func (s *DoSampler) Propensities() []float64 {
	if s.fit == nil {
		return nil
	}
	return append([]float64(nil), s.fit.Scores...)
}

// PropensityRows returns the original row index of each persisted score
func (s *DoSampler) PropensityRows() []int {
	if s.fit == nil {
		return nil
	}
	return append([]int(nil), s.fit.Rows...)
}

// Diagnostics returns the persisted fit's diagnostics
func (s *DoSampler) Diagnostics() (Diagnostics, bool) {
	if s.fit == nil {
		return Diagnostics{}, false
	}
	d := s.fit.Diagnostics
	d.Params = append([]float64(nil), d.Params...)
	d.Features = append([]string(nil), d.Features...)
	return d, true
}

// Clone returns a fresh, unfit sampler over the same read-only original data,
// drawing from rng
func (s *DoSampler) Clone(rng *rand.Rand) *DoSampler {
	clone := s.Fork(rng)
	clone.fit = nil
	clone.state = StateUnfit
	return clone
}

// Fork returns an independent sampler over the same problem, drawing from rng.
// A persisted fit is shared read-only, so forks of a fitted sampler can draw
// in parallel with stateful calls without refitting.
func (s *DoSampler) Fork(rng *rand.Rand) *DoSampler {
	fork := *s
	fork.rng = rng
	if fork.fit == nil {
		fork.state = StateUnfit
	} else {
		fork.state = StateFit
	}
	return &fork
}

func rowsOf(ds *dataset.Dataset) int {
	if ds == nil {
		return 0
	}
	return ds.RowCount()
}
