package effect

import (
	"math"

	"gocausal/domain/core"
	"gocausal/domain/dataset"

	"gonum.org/v1/gonum/stat/distuv"
)

// WelchTest is a two-sided Welch t-test of a group mean difference
type WelchTest struct {
	Difference float64 `json:"difference"`
	T          float64 `json:"t"`
	DF         float64 `json:"df"`
	PValue     float64 `json:"p_value"`
	NA         int     `json:"n_a"`
	NB         int     `json:"n_b"`
}

// WelchDifference tests mean(column | treatment=a) = mean(column | treatment=b)
// without assuming equal variances. On a keep-original do-sample it tests
// the adjusted effect; on observed data it tests the naive one.
func WelchDifference(ds *dataset.Dataset, treatment, column string, a, b float64) (WelchTest, error) {
	xa, xb, err := splitGroups(ds, treatment, column, a, b)
	if err != nil {
		return WelchTest{}, err
	}
	na, nb := float64(len(xa)), float64(len(xb))
	if na < 2 || nb < 2 {
		return WelchTest{}, core.ErrInsufficientData
	}

	ma, _ := xa.Mean()
	mb, _ := xb.Mean()
	va, _ := xa.SampleVariance()
	vb, _ := xb.SampleVariance()

	res := WelchTest{Difference: ma - mb, NA: len(xa), NB: len(xb)}
	sa, sb := va/na, vb/nb
	se := math.Sqrt(sa + sb)
	if se == 0 {
		// both groups constant: T stays 0 so the result stays JSON-encodable
		res.DF = na + nb - 2
		if res.Difference == 0 {
			res.PValue = 1
		}
		return res, nil
	}

	res.T = res.Difference / se
	// Welch-Satterthwaite
	res.DF = (sa + sb) * (sa + sb) / (sa*sa/(na-1) + sb*sb/(nb-1))
	tdist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: res.DF}
	res.PValue = 2 * tdist.Survival(math.Abs(res.T))
	return res, nil
}
