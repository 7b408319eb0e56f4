package testkit

import (
	"math"
	"math/rand/v2"

	"gocausal/domain/dataset"

	"gonum.org/v1/gonum/stat/distuv"
)

// ScenarioConfig parameterizes the confounded demonstration data:
//
//	Z ~ U(0,1)
//	D ~ Bernoulli(sigmoid(Strength·Z))
//	Y = ConfounderEffect·Z + TreatmentEffect·D + Noise·N(0,1)
type ScenarioConfig struct {
	Rows             int
	Seed             uint64
	Strength         float64
	ConfounderEffect float64
	TreatmentEffect  float64
	Noise            float64
}

// DefaultScenarioConfig returns the demonstration parameters
func DefaultScenarioConfig() ScenarioConfig {
	return ScenarioConfig{
		Rows:             5000,
		Seed:             42,
		Strength:         5,
		ConfounderEffect: 2,
		TreatmentEffect:  1,
		Noise:            0.1,
	}
}

// Scenario column names
const (
	ColumnConfounder = "Z"
	ColumnTreatment  = "D"
	ColumnOutcome    = "Y"
)

// ScenarioGraph is the causal DAG that generated the data, in DOT
const ScenarioGraph = `digraph scenario {
	Z -> D;
	Z -> Y;
	D -> Y;
}`

// ConfoundedScenario generates n rows with the default effects from seed
func ConfoundedScenario(n int, seed uint64) *dataset.Dataset {
	cfg := DefaultScenarioConfig()
	cfg.Rows = n
	cfg.Seed = seed
	return GenerateScenario(cfg)
}

// GenerateScenario draws the dataset described by cfg. Identical configs
// produce identical datasets.
func GenerateScenario(cfg ScenarioConfig) *dataset.Dataset {
	src := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x5851f42d4c957f2d))
	uniform := distuv.Uniform{Min: 0, Max: 1, Src: src}
	noise := distuv.Normal{Mu: 0, Sigma: 1, Src: src}

	z := make([]float64, cfg.Rows)
	d := make([]float64, cfg.Rows)
	y := make([]float64, cfg.Rows)
	for i := 0; i < cfg.Rows; i++ {
		z[i] = uniform.Rand()
		treat := distuv.Bernoulli{P: sigmoid(cfg.Strength * z[i]), Src: src}
		d[i] = treat.Rand()
		y[i] = cfg.ConfounderEffect*z[i] + cfg.TreatmentEffect*d[i] + cfg.Noise*noise.Rand()
	}

	ds, err := dataset.FromColumns(
		dataset.Column{Name: ColumnConfounder, Type: dataset.TypeContinuous, Values: z},
		dataset.Column{Name: ColumnTreatment, Type: dataset.TypeBinary, Values: d},
		dataset.Column{Name: ColumnOutcome, Type: dataset.TypeContinuous, Values: y},
	)
	if err != nil {
		// columns are equal length and finite by construction
		panic(err)
	}
	return ds
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }
