package propensity

import (
	"fmt"
	"math"
	"strings"

	"gocausal/domain/core"
)

// DefaultEpsilon bounds clipped scores to [eps, 1-eps]
const DefaultEpsilon = 1e-6

// ExtremePolicy decides what happens to rows whose propensity score sits on
// (or within epsilon of) 0 or 1, where the inverse weight is unbounded.
type ExtremePolicy string

const (
	// ExtremeClip moves scores to [eps, 1-eps] and counts them
	ExtremeClip ExtremePolicy = "clip"
	// ExtremeDrop removes the rows and counts them
	ExtremeDrop ExtremePolicy = "drop"
	// ExtremeFail returns core.ErrExtremePropensity
	ExtremeFail ExtremePolicy = "fail"
)

// ParseExtremePolicy accepts clip, drop or fail; empty means clip
func ParseExtremePolicy(s string) (ExtremePolicy, error) {
	switch ExtremePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", ExtremeClip:
		return ExtremeClip, nil
	case ExtremeDrop:
		return ExtremeDrop, nil
	case ExtremeFail:
		return ExtremeFail, nil
	}
	return "", core.NewConfigurationError("extreme_policy", fmt.Sprintf("unknown policy %q", s))
}

// ScoreReport records what a policy did
type ScoreReport struct {
	Policy  ExtremePolicy
	Epsilon float64
	Clipped int
	Dropped int
	Kept    []int // indices into the scored rows that survive
}

// ApplyPolicy enforces scores in the open interval (0,1).
// The returned scores align with report.Kept.
func ApplyPolicy(scores []float64, policy ExtremePolicy, eps float64) ([]float64, ScoreReport, error) {
	if eps <= 0 || eps >= 0.5 {
		eps = DefaultEpsilon
	}
	report := ScoreReport{Policy: policy, Epsilon: eps, Kept: make([]int, 0, len(scores))}
	out := make([]float64, 0, len(scores))

	for i, s := range scores {
		if math.IsNaN(s) {
			return nil, report, core.NewModelFitError(core.ErrExtremePropensity, fmt.Sprintf("row %d has NaN score", i))
		}
		extreme := s < eps || s > 1-eps
		if !extreme {
			out = append(out, s)
			report.Kept = append(report.Kept, i)
			continue
		}
		switch policy {
		case ExtremeDrop:
			report.Dropped++
		case ExtremeFail:
			return nil, report, core.NewModelFitError(core.ErrExtremePropensity,
				fmt.Sprintf("row %d has score %g outside [%g, %g]", i, s, eps, 1-eps))
		default:
			report.Clipped++
			out = append(out, math.Min(math.Max(s, eps), 1-eps))
			report.Kept = append(report.Kept, i)
		}
	}

	if len(out) == 0 {
		return nil, report, core.NewModelFitError(core.ErrExtremePropensity, "every row was dropped")
	}
	return out, report, nil
}
