package propensity

import (
	"fmt"
	"strconv"
	"strings"

	"gocausal/domain/core"
	"gocausal/domain/dataset"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Encoder turns confounder columns into a design matrix:
// an intercept, standardized continuous columns, binary columns as 0/1,
// and categorical columns one-hot encoded against their first level.
type Encoder struct {
	columns []string
	types   dataset.VariableTypes

	// learned at Fit
	means  map[string]float64
	scales map[string]float64
	levels map[string][]float64
	names  []string
	fitted bool
}

// NewEncoder creates an encoder over the given confounder columns
func NewEncoder(columns []string, types dataset.VariableTypes) *Encoder {
	return &Encoder{
		columns: append([]string(nil), columns...),
		types:   types.Clone(),
	}
}

// Fit learns scaling and level tables from ds
func (e *Encoder) Fit(ds *dataset.Dataset) error {
	e.means = make(map[string]float64)
	e.scales = make(map[string]float64)
	e.levels = make(map[string][]float64)
	e.names = []string{"(intercept)"}

	for _, name := range e.columns {
		values, ok := ds.Column(name)
		if !ok {
			return core.NewColumnNotFoundError("confounder", name)
		}
		switch e.types[name] {
		case dataset.TypeContinuous:
			mean, sd := stat.MeanStdDev(values, nil)
			if sd == 0 {
				return core.NewModelFitError(core.ErrDegenerateDesign, fmt.Sprintf("confounder %q is constant", name))
			}
			e.means[name] = mean
			e.scales[name] = sd
			e.names = append(e.names, name)
		case dataset.TypeBinary:
			if len(ds.DistinctValues(name)) < 2 {
				return core.NewModelFitError(core.ErrDegenerateDesign, fmt.Sprintf("confounder %q is constant", name))
			}
			e.names = append(e.names, name)
		case dataset.TypeCategorical:
			lv := ds.DistinctValues(name)
			if len(lv) < 2 {
				return core.NewModelFitError(core.ErrDegenerateDesign, fmt.Sprintf("confounder %q has a single level", name))
			}
			e.levels[name] = lv
			for _, v := range lv[1:] {
				e.names = append(e.names, name+"="+strconv.FormatFloat(v, 'g', -1, 64))
			}
		default:
			return core.NewTypeMismatchError(name, "confounder has no declared type")
		}
	}
	e.fitted = true
	return nil
}

// Width returns the number of design-matrix columns
func (e *Encoder) Width() int { return len(e.names) }

// FeatureNames labels each design-matrix column
func (e *Encoder) FeatureNames() []string { return append([]string(nil), e.names...) }

// Transform builds the n×p design matrix for ds
func (e *Encoder) Transform(ds *dataset.Dataset) (*mat.Dense, error) {
	if !e.fitted {
		return nil, core.ErrNotFitted
	}
	n := ds.RowCount()
	X := mat.NewDense(n, len(e.names), nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, 1)
	}

	col := 1
	for _, name := range e.columns {
		values, ok := ds.Column(name)
		if !ok {
			return nil, core.NewColumnNotFoundError("confounder", name)
		}
		switch e.types[name] {
		case dataset.TypeContinuous:
			mean, scale := e.means[name], e.scales[name]
			for i, v := range values {
				X.Set(i, col, (v-mean)/scale)
			}
			col++
		case dataset.TypeBinary:
			for i, v := range values {
				X.Set(i, col, v)
			}
			col++
		case dataset.TypeCategorical:
			lv := e.levels[name]
			for i, v := range values {
				idx := levelIndex(lv, v)
				if idx < 0 {
					return nil, core.NewConfigurationError("confounder",
						fmt.Sprintf("%q has level %v unseen at fit", name, v))
				}
				if idx > 0 {
					X.Set(i, col+idx-1, 1)
				}
			}
			col += len(lv) - 1
		}
	}
	return X, nil
}

func (e *Encoder) String() string {
	return "Encoder[" + strings.Join(e.names, ", ") + "]"
}

func levelIndex(levels []float64, v float64) int {
	for i, l := range levels {
		if l == v {
			return i
		}
	}
	return -1
}
