package dosampler

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"gocausal/domain/causal"
	"gocausal/domain/core"
	"gocausal/domain/dataset"
	"gocausal/internal/propensity"
	"gocausal/internal/testkit"
	"gocausal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

func scenarioConfig(seed uint64) Config {
	return Config{
		Treatments:  []string{"D"},
		Outcomes:    []string{"Y"},
		Confounders: []string{"Z"},
		VariableTypes: dataset.VariableTypes{
			"Z": dataset.TypeContinuous,
			"D": dataset.TypeBinary,
			"Y": dataset.TypeContinuous,
		},
		Seed: seed,
	}
}

func newScenarioSampler(t *testing.T, n int, mutate func(*Config)) (*DoSampler, *dataset.Dataset) {
	t.Helper()
	data := testkit.ConfoundedScenario(n, 42)
	cfg := scenarioConfig(7)
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := New(context.Background(), data, cfg, NewWeightingSampler(WeightingOptions{}))
	require.NoError(t, err)
	return s, data
}

// meanDiff returns mean(outcome | treatment=1) - mean(outcome | treatment=0)
func meanDiff(t *testing.T, ds *dataset.Dataset, treatment, outcome string) float64 {
	t.Helper()
	d, ok := ds.Column(treatment)
	require.True(t, ok)
	y, ok := ds.Column(outcome)
	require.True(t, ok)

	var s1, n1, s0, n0 float64
	for i := range d {
		if d[i] == 1 {
			s1 += y[i]
			n1++
		} else {
			s0 += y[i]
			n0++
		}
	}
	require.NotZero(t, n1)
	require.NotZero(t, n0)
	return s1/n1 - s0/n0
}

func mean(t *testing.T, ds *dataset.Dataset, column string) float64 {
	t.Helper()
	values, ok := ds.Column(column)
	require.True(t, ok)
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func TestDoSample_RemovesConfounding(t *testing.T) {
	s, data := newScenarioSampler(t, 5000, func(c *Config) { c.KeepOriginalTreatment = true })

	naive := meanDiff(t, data, "D", "Y")
	assert.InDelta(t, 1.6, naive, 0.25, "naive difference is confounded upward")

	out, err := s.DoSample(context.Background(), causal.Intervention{}, false)
	require.NoError(t, err)
	assert.Equal(t, data.RowCount(), out.RowCount())
	assert.Equal(t, data.Names(), out.Names())

	assert.InDelta(t, 1.0, meanDiff(t, out, "D", "Y"), 0.3)
}

func TestDoSample_OriginalUnchanged(t *testing.T) {
	data := testkit.ConfoundedScenario(1000, 42)
	before := data.Fingerprint()

	s, err := New(context.Background(), data, scenarioConfig(1), NewWeightingSampler(WeightingOptions{}))
	require.NoError(t, err)

	_, err = s.DoSample(context.Background(), causal.Assign(1), false)
	require.NoError(t, err)
	_, err = s.DoSample(context.Background(), causal.Assign(0), true)
	require.NoError(t, err)

	assert.Equal(t, before, data.Fingerprint())
}

func TestDoSample_AssignsTreatment(t *testing.T) {
	s, _ := newScenarioSampler(t, 5000, nil)

	treated, err := s.DoSample(context.Background(), causal.Assign(1), false)
	require.NoError(t, err)
	control, err := s.DoSample(context.Background(), causal.Assign(0), false)
	require.NoError(t, err)

	assert.Equal(t, []float64{1}, treated.DistinctValues("D"))
	assert.Equal(t, []float64{0}, control.DistinctValues("D"))

	// E[Y|do(D=1)] = 2·E[Z] + 1, E[Y|do(D=0)] = 2·E[Z]
	assert.InDelta(t, 2.0, mean(t, treated, "Y"), 0.15)
	assert.InDelta(t, 1.0, mean(t, control, "Y"), 0.15)
}

func TestDoSample_PerUnitIntervention(t *testing.T) {
	s, data := newScenarioSampler(t, 2000, nil)

	assigned := make([]float64, data.RowCount())
	for i := range assigned {
		assigned[i] = float64(i % 2)
	}
	out, err := s.DoSample(context.Background(), causal.AssignPerUnit(map[string][]float64{"D": assigned}), false)
	require.NoError(t, err)
	assert.Equal(t, data.RowCount(), out.RowCount())

	_, err = s.DoSample(context.Background(), causal.AssignPerUnit(map[string][]float64{"D": {1, 0}}), false)
	assert.ErrorIs(t, err, core.ErrInvalidIntervention)
}

func TestDoSample_InterventionRequired(t *testing.T) {
	s, _ := newScenarioSampler(t, 500, nil)

	_, err := s.DoSample(context.Background(), causal.Intervention{}, false)
	assert.ErrorIs(t, err, core.ErrInterventionRequired)
	assert.True(t, core.IsInterventionRequired(err))
	assert.Equal(t, StateUnfit, s.State())
}

func TestDoSample_KeepOriginalIgnoresValue(t *testing.T) {
	withValue, _ := newScenarioSampler(t, 1000, func(c *Config) { c.KeepOriginalTreatment = true })
	withoutValue, _ := newScenarioSampler(t, 1000, func(c *Config) { c.KeepOriginalTreatment = true })

	a, err := withValue.DoSample(context.Background(), causal.Assign(1), false)
	require.NoError(t, err)
	b, err := withoutValue.DoSample(context.Background(), causal.Intervention{}, false)
	require.NoError(t, err)

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.Equal(t, []float64{0, 1}, a.DistinctValues("D"))
}

func TestDoSample_SeededRunsAreReproducible(t *testing.T) {
	a, _ := newScenarioSampler(t, 1000, nil)
	b, _ := newScenarioSampler(t, 1000, nil)

	outA, err := a.DoSample(context.Background(), causal.Assign(1), false)
	require.NoError(t, err)
	outB, err := b.DoSample(context.Background(), causal.Assign(1), false)
	require.NoError(t, err)
	assert.Equal(t, outA.Fingerprint(), outB.Fingerprint())
}

func TestDoSample_SampleSize(t *testing.T) {
	s, _ := newScenarioSampler(t, 1000, func(c *Config) { c.SampleSize = 250 })
	out, err := s.DoSample(context.Background(), causal.Assign(0), false)
	require.NoError(t, err)
	assert.Equal(t, 250, out.RowCount())
}

func TestDoSample_StatefulReusesFit(t *testing.T) {
	s, _ := newScenarioSampler(t, 5000, func(c *Config) { c.KeepOriginalTreatment = true })
	ctx := context.Background()

	first, err := s.DoSample(ctx, causal.KeepOriginal(), true)
	require.NoError(t, err)
	assert.Equal(t, StateFit, s.State())
	scores := s.Propensities()
	require.Len(t, scores, 5000)

	second, err := s.DoSample(ctx, causal.KeepOriginal(), true)
	require.NoError(t, err)
	assert.Equal(t, scores, s.Propensities(), "stateful draws share one fit")

	assert.NotEqual(t, first.Fingerprint(), second.Fingerprint(), "draws differ")
	assert.InDelta(t, meanDiff(t, first, "D", "Y"), meanDiff(t, second, "D", "Y"), 0.3)
}

func TestDoSample_StatelessLeavesNoState(t *testing.T) {
	s, _ := newScenarioSampler(t, 500, nil)

	_, err := s.DoSample(context.Background(), causal.Assign(1), false)
	require.NoError(t, err)
	assert.Equal(t, StateUnfit, s.State())
	assert.False(t, s.Fitted())
	assert.Nil(t, s.Propensities())

	require.NoError(t, s.Fit(context.Background()))
	scores := s.Propensities()
	_, err = s.DoSample(context.Background(), causal.Assign(0), false)
	require.NoError(t, err)
	assert.Equal(t, StateFit, s.State())
	assert.Equal(t, scores, s.Propensities(), "stateless call leaves persisted fit alone")
}

func TestFit_PropensitiesInOpenInterval(t *testing.T) {
	s, data := newScenarioSampler(t, 2000, nil)
	require.NoError(t, s.Fit(context.Background()))

	scores := s.Propensities()
	require.Len(t, scores, data.RowCount())
	for i, p := range scores {
		if p <= 0 || p >= 1 {
			t.Fatalf("row %d: propensity %v outside (0,1)", i, p)
		}
	}

	diag, ok := s.Diagnostics()
	require.True(t, ok)
	assert.Equal(t, WeightingName, diag.Strategy)
	assert.Equal(t, 2, diag.Levels)
	assert.Equal(t, []string{"(intercept)", "Z"}, diag.Features)
	assert.Greater(t, diag.EffectiveSize, 0.0)
	assert.LessOrEqual(t, diag.EffectiveSize, float64(data.RowCount()))
}

func TestFit_Idempotent(t *testing.T) {
	s, _ := newScenarioSampler(t, 2000, nil)
	ctx := context.Background()

	require.NoError(t, s.Fit(ctx))
	first, _ := s.Diagnostics()
	scores := s.Propensities()

	require.NoError(t, s.Fit(ctx))
	second, _ := s.Diagnostics()

	assert.InDeltaSlice(t, first.Params, second.Params, 1e-12)
	assert.InDeltaSlice(t, scores, s.Propensities(), 1e-12)
}

func TestReset(t *testing.T) {
	s, _ := newScenarioSampler(t, 500, nil)

	s.Reset() // nothing held
	assert.Equal(t, StateUnfit, s.State())

	require.NoError(t, s.Fit(context.Background()))
	s.Reset()
	assert.Equal(t, StateUnfit, s.State())
	assert.Nil(t, s.Propensities())
	_, ok := s.Diagnostics()
	assert.False(t, ok)
}

// mockModel is a ports.PropensityModel whose Fit can be scripted
type mockModel struct {
	mock.Mock
}

func (m *mockModel) Fit(ctx context.Context, X mat.Matrix, levels []int, k int) error {
	args := m.Called(ctx, X, levels, k)
	return args.Error(0)
}

func (m *mockModel) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	args := m.Called(X)
	return args.Get(0).(*mat.Dense), args.Error(1)
}

func (m *mockModel) OwnLevelProba(X mat.Matrix, levels []int) ([]float64, error) {
	args := m.Called(X, levels)
	return args.Get(0).([]float64), args.Error(1)
}

func (m *mockModel) Params() []float64 { return nil }
func (m *mockModel) Reset()            { m.Called() }

func TestFit_FailureKeepsPriorState(t *testing.T) {
	failing := new(mockModel)
	failing.On("Fit", mock.Anything, mock.Anything, mock.Anything, 2).
		Return(core.NewModelFitError(core.ErrNotConverged, "scripted"))

	calls := 0
	factory := func() ports.PropensityModel {
		calls++
		if calls == 1 {
			return propensity.NewLogistic(propensity.Options{})
		}
		return failing
	}

	data := testkit.ConfoundedScenario(1000, 42)
	s, err := New(context.Background(), data, scenarioConfig(3), NewWeightingSampler(WeightingOptions{Model: factory}))
	require.NoError(t, err)

	require.NoError(t, s.Fit(context.Background()))
	scores := s.Propensities()
	diag, _ := s.Diagnostics()

	err = s.Fit(context.Background())
	assert.ErrorIs(t, err, core.ErrNotConverged)
	assert.True(t, core.IsModelFitError(err))

	assert.Equal(t, StateFit, s.State())
	assert.Equal(t, scores, s.Propensities())
	after, _ := s.Diagnostics()
	assert.Equal(t, diag.Params, after.Params)

	// a failing stateful draw also leaves the persisted fit alone
	_, err = s.DoSample(context.Background(), causal.Assign(1), false)
	assert.ErrorIs(t, err, core.ErrModelFit)
	assert.Equal(t, StateFit, s.State())
	assert.Equal(t, scores, s.Propensities())

	failing.AssertExpectations(t)
}

func TestCloneAndFork(t *testing.T) {
	s, _ := newScenarioSampler(t, 1000, nil)
	require.NoError(t, s.Fit(context.Background()))

	fork := s.Fork(rand.New(rand.NewPCG(1, 2)))
	assert.Equal(t, StateFit, fork.State())
	assert.Equal(t, s.Propensities(), fork.Propensities())

	clone := s.Clone(rand.New(rand.NewPCG(1, 2)))
	assert.Equal(t, StateUnfit, clone.State())
	assert.Nil(t, clone.Propensities())

	out, err := clone.DoSample(context.Background(), causal.Assign(1), false)
	require.NoError(t, err)
	assert.Equal(t, 1000, out.RowCount())
	assert.True(t, s.Fitted(), "clone does not disturb the source")
}

func TestDoSample_CanceledContext(t *testing.T) {
	s, _ := newScenarioSampler(t, 500, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.DoSample(ctx, causal.Assign(1), false)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_ConfigurationErrors(t *testing.T) {
	data := testkit.ConfoundedScenario(200, 1)

	tests := []struct {
		name   string
		mutate func(*Config)
		target error
	}{
		{"missing treatment column", func(c *Config) { c.Treatments = []string{"T"} }, core.ErrColumnNotFound},
		{"missing outcome column", func(c *Config) { c.Outcomes = []string{"W"} }, core.ErrColumnNotFound},
		{"missing confounder column", func(c *Config) { c.Confounders = []string{"Z", "U"} }, core.ErrColumnNotFound},
		{"no treatments", func(c *Config) { c.Treatments = nil }, core.ErrConfiguration},
		{"no outcomes", func(c *Config) { c.Outcomes = nil }, core.ErrConfiguration},
		{"treatment is outcome", func(c *Config) { c.Outcomes = []string{"Y", "D"} }, core.ErrConfiguration},
		{"confounder is outcome", func(c *Config) { c.Confounders = []string{"Y"} }, core.ErrConfiguration},
		{"outcome declared binary", func(c *Config) { c.VariableTypes["Y"] = dataset.TypeBinary }, core.ErrTypeMismatch},
		{"continuous treatment", func(c *Config) { c.VariableTypes["D"] = dataset.TypeContinuous }, core.ErrConfiguration},
		{"declared column absent", func(c *Config) { c.VariableTypes["Q"] = dataset.TypeBinary }, core.ErrColumnNotFound},
		{"negative sample size", func(c *Config) { c.SampleSize = -1 }, core.ErrConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := scenarioConfig(1)
			cfg.VariableTypes = cfg.VariableTypes.Clone()
			tt.mutate(&cfg)

			_, err := New(context.Background(), data, cfg, NewWeightingSampler(WeightingOptions{}))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
			assert.True(t, core.IsConfigurationError(err))
		})
	}
}

type staticIdentifier struct{ set causal.ConfounderSet }

func (s staticIdentifier) Identify(context.Context, []string, []string, []string) (causal.ConfounderSet, error) {
	return s.set, nil
}

func TestNew_UsesIdentifier(t *testing.T) {
	s, _ := newScenarioSampler(t, 200, func(c *Config) {
		c.Confounders = nil
		c.Identifier = staticIdentifier{set: causal.NewConfounderSet("Z")}
	})
	assert.Equal(t, []string{"Z"}, s.Confounders().Names())
}

// threeArmScenario draws Z ~ U(0,1), D in {0,1,2} with logits (0, 2Z, 4Z)
// and Y = 2Z + D + 0.1·N(0,1), so E[Y|do(D=a)] = 1 + a.
func threeArmScenario(t *testing.T, n int, seed uint64) *dataset.Dataset {
	t.Helper()
	src := rand.New(rand.NewPCG(seed, seed+1))
	uniform := distuv.Uniform{Min: 0, Max: 1, Src: src}
	noise := distuv.Normal{Mu: 0, Sigma: 1, Src: src}

	z := make([]float64, n)
	d := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		z[i] = uniform.Rand()
		arm := distuv.NewCategorical([]float64{1, math.Exp(2 * z[i]), math.Exp(4 * z[i])}, src)
		d[i] = arm.Rand()
		y[i] = 2*z[i] + d[i] + 0.1*noise.Rand()
	}
	ds, err := dataset.FromColumns(
		dataset.Column{Name: "Z", Type: dataset.TypeContinuous, Values: z},
		dataset.Column{Name: "D", Type: dataset.TypeCategorical, Values: d, Levels: []string{"low", "mid", "high"}},
		dataset.Column{Name: "Y", Type: dataset.TypeContinuous, Values: y},
	)
	require.NoError(t, err)
	return ds
}

// twoTreatmentScenario draws D1 ~ Bernoulli(sigmoid(3Z-1.5)),
// D2 ~ Bernoulli(sigmoid(1.5-3Z)) and Y = 2Z + D1 + 0.5·D2 + 0.1·N(0,1).
func twoTreatmentScenario(t *testing.T, n int, seed uint64) *dataset.Dataset {
	t.Helper()
	src := rand.New(rand.NewPCG(seed, seed+1))
	uniform := distuv.Uniform{Min: 0, Max: 1, Src: src}
	noise := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	sigmoid := func(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

	z := make([]float64, n)
	d1 := make([]float64, n)
	d2 := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		z[i] = uniform.Rand()
		d1[i] = distuv.Bernoulli{P: sigmoid(3*z[i] - 1.5), Src: src}.Rand()
		d2[i] = distuv.Bernoulli{P: sigmoid(1.5 - 3*z[i]), Src: src}.Rand()
		y[i] = 2*z[i] + d1[i] + 0.5*d2[i] + 0.1*noise.Rand()
	}
	ds, err := dataset.FromColumns(
		dataset.Column{Name: "Z", Type: dataset.TypeContinuous, Values: z},
		dataset.Column{Name: "D1", Type: dataset.TypeBinary, Values: d1},
		dataset.Column{Name: "D2", Type: dataset.TypeBinary, Values: d2},
		dataset.Column{Name: "Y", Type: dataset.TypeContinuous, Values: y},
	)
	require.NoError(t, err)
	return ds
}

func TestDoSample_CategoricalTreatment(t *testing.T) {
	data := threeArmScenario(t, 6000, 21)
	naive, err := data.Take(rowsWhere(t, data, "D", 2))
	require.NoError(t, err)
	assert.Greater(t, mean(t, naive, "Y"), 3.07, "top arm is confounded upward")

	tests := []struct {
		name   string
		policy propensity.ExtremePolicy
		arm    float64
		want   float64
	}{
		{"clip do(D=0)", propensity.ExtremeClip, 0, 1},
		{"clip do(D=1)", propensity.ExtremeClip, 1, 2},
		{"clip do(D=2)", propensity.ExtremeClip, 2, 3},
		{"drop do(D=0)", propensity.ExtremeDrop, 0, 1},
		{"drop do(D=1)", propensity.ExtremeDrop, 1, 2},
		{"drop do(D=2)", propensity.ExtremeDrop, 2, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{
				Treatments:  []string{"D"},
				Outcomes:    []string{"Y"},
				Confounders: []string{"Z"},
				Seed:        3,
			}
			s, err := New(context.Background(), data, cfg, NewWeightingSampler(WeightingOptions{Policy: tt.policy}))
			require.NoError(t, err)

			out, err := s.DoSample(context.Background(), causal.Assign(tt.arm), true)
			require.NoError(t, err)
			assert.Equal(t, []float64{tt.arm}, out.DistinctValues("D"))
			assert.InDelta(t, tt.want, mean(t, out, "Y"), 0.15)

			diag, ok := s.Diagnostics()
			require.True(t, ok)
			assert.Equal(t, 3, diag.Levels)
			assert.Equal(t, string(tt.policy), diag.Policy)
			for _, p := range s.Propensities() {
				assert.True(t, p > 0 && p < 1)
			}
		})
	}
}

func TestDoSample_JointTreatments(t *testing.T) {
	data := twoTreatmentScenario(t, 6000, 8)
	s, err := New(context.Background(), data, Config{
		Treatments:  []string{"D1", "D2"},
		Outcomes:    []string{"Y"},
		Confounders: []string{"Z"},
		Seed:        4,
	}, NewWeightingSampler(WeightingOptions{}))
	require.NoError(t, err)

	tests := []struct {
		d1, d2 float64
		want   float64
	}{
		{0, 0, 1},
		{1, 0, 2},
		{0, 1, 1.5},
		{1, 1, 2.5},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("do(D1=%g,D2=%g)", tt.d1, tt.d2), func(t *testing.T) {
			out, err := s.DoSample(context.Background(), causal.AssignEach(map[string]float64{"D1": tt.d1, "D2": tt.d2}), true)
			require.NoError(t, err)
			assert.Equal(t, []float64{tt.d1}, out.DistinctValues("D1"))
			assert.Equal(t, []float64{tt.d2}, out.DistinctValues("D2"))
			assert.InDelta(t, tt.want, mean(t, out, "Y"), 0.15)
		})
	}

	diag, ok := s.Diagnostics()
	require.True(t, ok)
	assert.Equal(t, 4, diag.Levels, "joint levels of two binary treatments")

	_, err = s.DoSample(context.Background(), causal.Assign(1), false)
	assert.ErrorIs(t, err, core.ErrInvalidIntervention, "a single value is ambiguous over two treatments")
}

func TestDoSample_DropKeepsRowMapping(t *testing.T) {
	data := threeArmScenario(t, 6000, 33)
	z, _ := data.Column("Z")
	origin := make(map[float64]int, len(z))
	for i, v := range z {
		origin[v] = i
	}

	tests := []struct {
		name   string
		assign func(row int) float64
	}{
		{"cycling arms", func(row int) float64 { return float64(row % 3) }},
		{"reversed blocks", func(row int) float64 { return float64(2 - (3*row)/len(z)) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(context.Background(), data, Config{
				Treatments:  []string{"D"},
				Outcomes:    []string{"Y"},
				Confounders: []string{"Z"},
				Seed:        5,
			}, NewWeightingSampler(WeightingOptions{Policy: propensity.ExtremeDrop, Epsilon: 0.05}))
			require.NoError(t, err)

			assigned := make([]float64, len(z))
			for i := range assigned {
				assigned[i] = tt.assign(i)
			}
			out, err := s.DoSample(context.Background(), causal.AssignPerUnit(map[string][]float64{"D": assigned}), true)
			require.NoError(t, err)
			assert.Equal(t, data.RowCount(), out.RowCount())

			diag, _ := s.Diagnostics()
			require.Positive(t, diag.Dropped, "scenario has scores below epsilon")
			kept := s.PropensityRows()
			assert.Len(t, kept, data.RowCount()-diag.Dropped)
			survivors := make(map[int]bool, len(kept))
			for _, row := range kept {
				survivors[row] = true
			}

			outZ, _ := out.Column("Z")
			outD, _ := out.Column("D")
			for i := range outZ {
				row, ok := origin[outZ[i]]
				require.True(t, ok, "output row %d has no source row", i)
				require.True(t, survivors[row], "output row %d comes from dropped row %d", i, row)
				require.Equal(t, assigned[row], outD[i], "output row %d carries another unit's assignment", i)
			}
		})
	}
}

func TestDoSampleRun_TagsRun(t *testing.T) {
	s, _ := newScenarioSampler(t, 300, nil)

	out, err := s.DoSampleRun(context.Background(), core.NewRunID(), causal.Assign(1), false)
	require.NoError(t, err)
	assert.Equal(t, 300, out.RowCount())

	// an empty ID gets a fresh one
	_, err = s.DoSampleRun(context.Background(), "", causal.Assign(0), false)
	require.NoError(t, err)
}

func rowsWhere(t *testing.T, ds *dataset.Dataset, column string, value float64) []int {
	t.Helper()
	values, ok := ds.Column(column)
	require.True(t, ok)
	var rows []int
	for i, v := range values {
		if v == value {
			rows = append(rows, i)
		}
	}
	return rows
}
