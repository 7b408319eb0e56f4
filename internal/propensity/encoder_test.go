package propensity

import (
	"testing"

	"gocausal/domain/core"
	"gocausal/domain/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encoderDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.FromColumns(
		dataset.Column{Name: "z", Type: dataset.TypeContinuous, Values: []float64{1, 2, 3, 4}},
		dataset.Column{Name: "b", Type: dataset.TypeBinary, Values: []float64{0, 1, 0, 1}},
		dataset.Column{Name: "g", Type: dataset.TypeCategorical, Values: []float64{0, 1, 2, 1}},
		dataset.Column{Name: "d", Type: dataset.TypeBinary, Values: []float64{0, 0, 1, 1}},
	)
	require.NoError(t, err)
	return ds
}

func TestEncoder_BuildsDesign(t *testing.T) {
	ds := encoderDataset(t)
	enc := NewEncoder([]string{"z", "b", "g"}, ds.VariableTypes())
	require.NoError(t, enc.Fit(ds))

	assert.Equal(t, []string{"(intercept)", "z", "b", "g=1", "g=2"}, enc.FeatureNames())

	X, err := enc.Transform(ds)
	require.NoError(t, err)
	r, c := X.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 5, c)

	// standardized z has zero mean
	sum := 0.0
	for i := 0; i < r; i++ {
		assert.Equal(t, 1.0, X.At(i, 0))
		sum += X.At(i, 1)
	}
	assert.InDelta(t, 0, sum, 1e-12)

	// row 2 has g=2: only the g=2 indicator is set
	assert.Equal(t, 0.0, X.At(2, 3))
	assert.Equal(t, 1.0, X.At(2, 4))
	// row 0 has the reference level
	assert.Equal(t, 0.0, X.At(0, 3))
	assert.Equal(t, 0.0, X.At(0, 4))
}

func TestEncoder_NoConfoundersIsInterceptOnly(t *testing.T) {
	ds := encoderDataset(t)
	enc := NewEncoder(nil, ds.VariableTypes())
	require.NoError(t, enc.Fit(ds))
	assert.Equal(t, 1, enc.Width())
}

func TestEncoder_RejectsConstantColumns(t *testing.T) {
	ds, err := dataset.FromColumns(
		dataset.Column{Name: "z", Type: dataset.TypeContinuous, Values: []float64{2, 2, 2}},
	)
	require.NoError(t, err)

	enc := NewEncoder([]string{"z"}, ds.VariableTypes())
	assert.ErrorIs(t, enc.Fit(ds), core.ErrDegenerateDesign)
}

func TestEncoder_TransformBeforeFit(t *testing.T) {
	ds := encoderDataset(t)
	_, err := NewEncoder([]string{"z"}, ds.VariableTypes()).Transform(ds)
	assert.ErrorIs(t, err, core.ErrNotFitted)
}

func TestLevelCodec_JointLevels(t *testing.T) {
	ds, err := dataset.FromColumns(
		dataset.Column{Name: "d1", Type: dataset.TypeBinary, Values: []float64{1, 0, 1, 0, 1}},
		dataset.Column{Name: "d2", Type: dataset.TypeCategorical, Values: []float64{2, 0, 2, 1, 0}},
	)
	require.NoError(t, err)

	codec, err := NewLevelCodec(ds, []string{"d1", "d2"})
	require.NoError(t, err)
	assert.Equal(t, 4, codec.K())
	assert.Equal(t, []float64{0, 0}, codec.Tuple(0))
	assert.Equal(t, []float64{1, 2}, codec.Tuple(3))

	codes, err := codec.Encode(ds)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 0, 3, 1, 2}, codes)

	_, ok := codec.Code([]float64{0, 2})
	assert.False(t, ok)
}

func TestApplyPolicy(t *testing.T) {
	scores := []float64{0.5, 0, 1, 0.2}

	clipped, report, err := ApplyPolicy(scores, ExtremeClip, 0.01)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.01, 0.99, 0.2}, clipped)
	assert.Equal(t, 2, report.Clipped)
	assert.Equal(t, []int{0, 1, 2, 3}, report.Kept)

	kept, report, err := ApplyPolicy(scores, ExtremeDrop, 0.01)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.2}, kept)
	assert.Equal(t, 2, report.Dropped)
	assert.Equal(t, []int{0, 3}, report.Kept)

	_, _, err = ApplyPolicy(scores, ExtremeFail, 0.01)
	assert.ErrorIs(t, err, core.ErrExtremePropensity)

	_, _, err = ApplyPolicy([]float64{0, 1}, ExtremeDrop, 0.01)
	assert.ErrorIs(t, err, core.ErrExtremePropensity)
}

func TestParseExtremePolicy(t *testing.T) {
	p, err := ParseExtremePolicy("")
	require.NoError(t, err)
	assert.Equal(t, ExtremeClip, p)

	p, err = ParseExtremePolicy("DROP")
	require.NoError(t, err)
	assert.Equal(t, ExtremeDrop, p)

	_, err = ParseExtremePolicy("trim")
	assert.ErrorIs(t, err, core.ErrConfiguration)
}
