package app

import (
	"context"
	"fmt"
	"time"

	"gocausal/adapters/identify"
	"gocausal/domain/causal"
	"gocausal/domain/core"
	"gocausal/internal"
	"gocausal/internal/config"
	"gocausal/internal/dosampler"
	"gocausal/internal/effect"
	"gocausal/internal/propensity"
	"gocausal/internal/testkit"
	"gocausal/ports"
)

// DemoService runs the confounded-scenario walkthrough: generate data,
// identify the backdoor set from the known graph, compare the naive
// difference with do-sampled estimates.
type DemoService struct {
	sampler   config.SamplerConfig
	model     propensity.Options
	bootstrap config.BootstrapConfig
	rngPort   ports.RNGPort
	observer  dosampler.Observer
	logger    *internal.Logger
}

// DemoRequest defines the inputs of one demonstration run. Zero fields take
// the scenario defaults.
type DemoRequest struct {
	Rows  int
	Seed  uint64
	Draws int
	RunID core.RunID // optional, will be generated if empty
}

// DemoResult contains everything the report renders
type DemoResult struct {
	RunID       core.RunID              `json:"run_id"`
	Scenario    testkit.ScenarioConfig  `json:"scenario"`
	Graph       string                  `json:"graph"`
	Confounders []string                `json:"confounders"`
	Naive       float64                 `json:"naive_difference"`
	KeepOrig    float64                 `json:"keep_original_difference"`
	KeepTest    effect.WelchTest        `json:"keep_original_test"`
	Balance     []effect.Balance        `json:"balance"`
	Contrast    float64                 `json:"interventional_contrast"`
	Bootstrap   *effect.BootstrapResult `json:"bootstrap"`
	Diagnostics dosampler.Diagnostics   `json:"diagnostics"`
	RuntimeMs   int64                   `json:"runtime_ms"`
}

// NewDemoService creates a demo service from application configuration.
// observer may be nil.
func NewDemoService(cfg *config.Config, rngPort ports.RNGPort, observer dosampler.Observer, logger *internal.Logger) *DemoService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &DemoService{
		sampler:   cfg.Sampler,
		model:     cfg.Propensity.Options(),
		bootstrap: cfg.Bootstrap,
		rngPort:   rngPort,
		observer:  observer,
		logger:    logger.With("DemoService"),
	}
}

// Run executes the walkthrough
func (s *DemoService) Run(ctx context.Context, req DemoRequest) (*DemoResult, error) {
	startTime := time.Now()

	runID := req.RunID
	if runID == "" {
		runID = core.NewRunID()
	}
	scenario := testkit.DefaultScenarioConfig()
	if req.Rows > 0 {
		scenario.Rows = req.Rows
	}
	if req.Seed != 0 {
		scenario.Seed = req.Seed
	}
	draws := s.bootstrap.Draws
	if req.Draws > 0 {
		draws = req.Draws
	}
	s.logger.Info("run %s: %d rows, seed %d, %d bootstrap draws", runID, scenario.Rows, scenario.Seed, draws)

	data := testkit.GenerateScenario(scenario)

	identifier, err := identify.ParseDOT(testkit.ScenarioGraph, identify.GraphOptions{Logger: s.logger})
	if err != nil {
		return nil, fmt.Errorf("failed to parse scenario graph: %w", err)
	}
	graph, err := identifier.DOT()
	if err != nil {
		return nil, err
	}

	naive, err := effect.NaiveDifference(data, testkit.ColumnTreatment, testkit.ColumnOutcome)
	if err != nil {
		return nil, fmt.Errorf("naive difference: %w", err)
	}

	strategy := dosampler.NewWeightingSampler(dosampler.WeightingOptions{
		Model:   propensity.Factory(s.model),
		Policy:  s.sampler.Policy(),
		Epsilon: s.sampler.Epsilon,
		Logger:  s.logger,
	})
	sampler, err := dosampler.New(ctx, data, dosampler.Config{
		Treatments: []string{testkit.ColumnTreatment},
		Outcomes:   []string{testkit.ColumnOutcome},
		Identifier: identifier,
		SampleSize: s.sampler.SampleSize,
		Seed:       scenario.Seed,
		Logger:     s.logger,
		Observer:   s.observer,
	}, strategy)
	if err != nil {
		return nil, err
	}

	reweighted, err := sampler.DoSample(ctx, causal.KeepOriginal(), false)
	if err != nil {
		return nil, fmt.Errorf("keep-original sample: %w", err)
	}
	keepTest, err := effect.WelchDifference(reweighted, testkit.ColumnTreatment, testkit.ColumnOutcome, 1, 0)
	if err != nil {
		return nil, fmt.Errorf("keep-original difference: %w", err)
	}
	balance, err := effect.CovariateBalance(data, reweighted, testkit.ColumnTreatment, sampler.Confounders().Names())
	if err != nil {
		return nil, fmt.Errorf("covariate balance: %w", err)
	}
	contrast, err := effect.InterventionalContrast(ctx, sampler, testkit.ColumnTreatment, testkit.ColumnOutcome, 1, 0)
	if err != nil {
		return nil, fmt.Errorf("interventional contrast: %w", err)
	}
	diag, _ := sampler.Diagnostics()

	boot, err := effect.Bootstrap(ctx, sampler, effect.BootstrapConfig{
		Draws:   draws,
		Workers: s.bootstrap.Workers,
		Seed:    scenario.Seed,
		RNG:     s.rngPort,
	}, func(ctx context.Context, replica effect.Sampler) (float64, error) {
		return effect.InterventionalContrast(ctx, replica, testkit.ColumnTreatment, testkit.ColumnOutcome, 1, 0)
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	result := &DemoResult{
		RunID:       runID,
		Scenario:    scenario,
		Graph:       graph,
		Confounders: sampler.Confounders().Names(),
		Naive:       naive,
		KeepOrig:    keepTest.Difference,
		KeepTest:    keepTest,
		Balance:     balance,
		Contrast:    contrast,
		Bootstrap:   boot,
		Diagnostics: diag,
		RuntimeMs:   time.Since(startTime).Milliseconds(),
	}
	s.logger.Info("run %s: naive %.3f, do-sampled %.3f [%.3f, %.3f] in %dms",
		runID, naive, contrast, boot.Lower, boot.Upper, result.RuntimeMs)
	return result, nil
}
