package dosampler

import (
	"context"
	"math/rand/v2"
	"time"

	"gocausal/domain/causal"
	"gocausal/domain/dataset"
	"gocausal/ports"
)

// Strategy is the capability set a do-sampler variant provides. The
// orchestrator drives the three stages and never inspects the concrete type.
type Strategy interface {
	// Name identifies the strategy in logs and metrics
	Name() string

	// Supports rejects treatment types the strategy cannot intervene on
	Supports(spec *Spec) error

	// DisruptCauses severs treatment from its causes, conditioned on the
	// confounders. Called on a fresh working set; must be idempotent for
	// identical input.
	DisruptCauses(ctx context.Context, w *WorkingSet) error

	// MakeEffective restricts or relabels the working set so the intervention
	// holds. Not called when original treatment is kept.
	MakeEffective(ctx context.Context, w *WorkingSet, iv causal.Intervention) error

	// MakeOutcomeDataset draws the interventional sample
	MakeOutcomeDataset(ctx context.Context, w *WorkingSet, size int, rng *rand.Rand) (*dataset.Dataset, error)
}

// Spec is the immutable description of one sampling problem
type Spec struct {
	Treatments   causal.TreatmentSpec
	Outcomes     causal.OutcomeSpec
	Confounders  causal.ConfounderSet
	Types        dataset.VariableTypes
	OriginalRows int
}

// WorkingSet is the mutable state of one pass through the stages. Once
// persisted by a stateful sampler it is treated as read-only; later stages
// always operate on a Clone.
type WorkingSet struct {
	Spec *Spec

	// Data is a private copy of the original rows
	Data *dataset.Dataset
	// Rows maps each working row to its row in the original dataset
	Rows []int

	// Scores holds each row's propensity of its own observed level
	Scores []float64
	// Weights are the resampling weights; nil means uniform
	Weights []float64

	Model       ports.PropensityModel
	Diagnostics Diagnostics
}

func newWorkingSet(spec *Spec, original *dataset.Dataset) *WorkingSet {
	rows := make([]int, original.RowCount())
	for i := range rows {
		rows[i] = i
	}
	return &WorkingSet{
		Spec: spec,
		Data: original.Clone(),
		Rows: rows,
	}
}

// Clone copies everything a later stage may mutate; the fitted model is shared read-only
func (w *WorkingSet) Clone() *WorkingSet {
	out := *w
	out.Data = w.Data.Clone()
	out.Rows = append([]int(nil), w.Rows...)
	out.Scores = append([]float64(nil), w.Scores...)
	out.Weights = append([]float64(nil), w.Weights...)
	out.Diagnostics.Params = append([]float64(nil), w.Diagnostics.Params...)
	return &out
}

// Keep restricts the working set to the given working-row indices
func (w *WorkingSet) Keep(indices []int) error {
	data, err := w.Data.Take(indices)
	if err != nil {
		return err
	}
	rows := make([]int, len(indices))
	var scores, weights []float64
	if w.Scores != nil {
		scores = make([]float64, len(indices))
	}
	if w.Weights != nil {
		weights = make([]float64, len(indices))
	}
	for j, idx := range indices {
		rows[j] = w.Rows[idx]
		if scores != nil {
			scores[j] = w.Scores[idx]
		}
		if weights != nil {
			weights[j] = w.Weights[idx]
		}
	}
	w.Data, w.Rows, w.Scores, w.Weights = data, rows, scores, weights
	return nil
}

// Diagnostics summarizes a disrupt stage
type Diagnostics struct {
	Strategy      string
	Rows          int
	Levels        int
	Features      []string
	Params        []float64
	Policy        string
	Clipped       int
	Dropped       int
	MinScore      float64
	MaxScore      float64
	MeanScore     float64
	EffectiveSize float64 // Kish effective sample size of the weights
}

// Observer receives stage timings; internal/metrics provides a prometheus implementation
type Observer interface {
	FitCompleted(strategy string, elapsed time.Duration, diag Diagnostics, err error)
	SampleCompleted(strategy string, elapsed time.Duration, rows int, err error)
}

type nopObserver struct{}

func (nopObserver) FitCompleted(string, time.Duration, Diagnostics, error) {}
func (nopObserver) SampleCompleted(string, time.Duration, int, error)      {}
