package effect

import (
	"math"

	"gocausal/domain/dataset"
)

// Balance compares one covariate across treatment groups before and after adjustment
type Balance struct {
	Covariate string  `json:"covariate"`
	Observed  float64 `json:"observed_smd"`
	Adjusted  float64 `json:"adjusted_smd"`
}

// StandardizedDifference is Cohen's d of column between treatment=a and
// treatment=b: the mean difference over the pooled standard deviation.
// Zero spread in both groups gives 0.
func StandardizedDifference(ds *dataset.Dataset, treatment, column string, a, b float64) (float64, error) {
	xa, xb, err := splitGroups(ds, treatment, column, a, b)
	if err != nil {
		return 0, err
	}
	ma, err := xa.Mean()
	if err != nil {
		return 0, err
	}
	mb, err := xb.Mean()
	if err != nil {
		return 0, err
	}
	va, err := xa.PopulationVariance()
	if err != nil {
		return 0, err
	}
	vb, err := xb.PopulationVariance()
	if err != nil {
		return 0, err
	}
	pooled := math.Sqrt((va + vb) / 2)
	if pooled == 0 {
		return 0, nil
	}
	return (ma - mb) / pooled, nil
}

// CovariateBalance reports the standardized difference of each covariate in
// the observed data and in a keep-original do-sample of it. Weighting that
// removes confounding drives the adjusted differences towards zero.
func CovariateBalance(observed, adjusted *dataset.Dataset, treatment string, covariates []string) ([]Balance, error) {
	out := make([]Balance, 0, len(covariates))
	for _, c := range covariates {
		before, err := StandardizedDifference(observed, treatment, c, 1, 0)
		if err != nil {
			return nil, err
		}
		after, err := StandardizedDifference(adjusted, treatment, c, 1, 0)
		if err != nil {
			return nil, err
		}
		out = append(out, Balance{Covariate: c, Observed: before, Adjusted: after})
	}
	return out, nil
}
