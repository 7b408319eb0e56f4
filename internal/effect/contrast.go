// Package effect turns do-samples into effect estimates.
package effect

import (
	"context"
	"fmt"

	"gocausal/domain/causal"
	"gocausal/domain/core"
	"gocausal/domain/dataset"

	"github.com/montanaflynn/stats"
)

// Sampler is the part of a do-sampler an estimate needs
type Sampler interface {
	DoSample(ctx context.Context, iv causal.Intervention, stateful bool) (*dataset.Dataset, error)
}

// MeanOutcome returns the mean of the outcome column
func MeanOutcome(ds *dataset.Dataset, outcome string) (float64, error) {
	values, ok := ds.Column(outcome)
	if !ok {
		return 0, core.NewColumnNotFoundError("outcome", outcome)
	}
	if len(values) == 0 {
		return 0, core.ErrInsufficientData
	}
	return stats.Mean(values)
}

// NaiveDifference is mean(outcome | treatment=1) - mean(outcome | treatment=0)
// on observed data, with no adjustment
func NaiveDifference(ds *dataset.Dataset, treatment, outcome string) (float64, error) {
	return GroupDifference(ds, treatment, outcome, 1, 0)
}

// GroupDifference is mean(outcome | treatment=a) - mean(outcome | treatment=b)
func GroupDifference(ds *dataset.Dataset, treatment, outcome string, a, b float64) (float64, error) {
	ya, yb, err := splitGroups(ds, treatment, outcome, a, b)
	if err != nil {
		return 0, err
	}

	ma, err := ya.Mean()
	if err != nil {
		return 0, err
	}
	mb, err := yb.Mean()
	if err != nil {
		return 0, err
	}
	return ma - mb, nil
}

// InterventionalContrast is E[outcome | do(treatment=a)] - E[outcome | do(treatment=b)],
// each arm estimated from one do-sample. Both draws are stateful, so the arms
// share one fit and s keeps it afterwards.
func InterventionalContrast(ctx context.Context, s Sampler, treatment, outcome string, a, b float64) (float64, error) {
	armA, err := s.DoSample(ctx, causal.AssignEach(map[string]float64{treatment: a}), true)
	if err != nil {
		return 0, fmt.Errorf("do(%s=%v): %w", treatment, a, err)
	}
	armB, err := s.DoSample(ctx, causal.AssignEach(map[string]float64{treatment: b}), true)
	if err != nil {
		return 0, fmt.Errorf("do(%s=%v): %w", treatment, b, err)
	}

	ma, err := MeanOutcome(armA, outcome)
	if err != nil {
		return 0, err
	}
	mb, err := MeanOutcome(armB, outcome)
	if err != nil {
		return 0, err
	}
	return ma - mb, nil
}

// KeepOriginalDifference draws one keep-original do-sample and returns its
// group difference: the confounding-free analogue of NaiveDifference
func KeepOriginalDifference(ctx context.Context, s Sampler, treatment, outcome string) (float64, error) {
	out, err := s.DoSample(ctx, causal.KeepOriginal(), false)
	if err != nil {
		return 0, err
	}
	return NaiveDifference(out, treatment, outcome)
}

// splitGroups returns column's values in the rows where treatment is a, and where it is b
func splitGroups(ds *dataset.Dataset, treatment, column string, a, b float64) (stats.Float64Data, stats.Float64Data, error) {
	d, ok := ds.Column(treatment)
	if !ok {
		return nil, nil, core.NewColumnNotFoundError("treatment", treatment)
	}
	y, ok := ds.Column(column)
	if !ok {
		return nil, nil, core.NewColumnNotFoundError("variable", column)
	}

	var ya, yb stats.Float64Data
	for i := range d {
		switch d[i] {
		case a:
			ya = append(ya, y[i])
		case b:
			yb = append(yb, y[i])
		}
	}
	if len(ya) == 0 || len(yb) == 0 {
		return nil, nil, fmt.Errorf("%w: %s=%v has %d rows, %s=%v has %d rows",
			core.ErrInsufficientData, treatment, a, len(ya), treatment, b, len(yb))
	}
	return ya, yb, nil
}
