package app

import (
	"context"
	"time"

	"gocausal/adapters/identify"
	"gocausal/domain/causal"
	"gocausal/domain/core"
	"gocausal/domain/dataset"
	"gocausal/domain/run"
	"gocausal/internal"
	"gocausal/internal/config"
	"gocausal/internal/dosampler"
	"gocausal/internal/propensity"
	"gocausal/ports"
)

// SamplingService answers one-shot do-sampling requests
type SamplingService struct {
	sampler  config.SamplerConfig
	model    propensity.Options
	observer dosampler.Observer
	ledger   ports.RunLedger
	logger   *internal.Logger
}

// SampleRequest describes one do-sample over an already loaded dataset.
// Either Confounders or Graph names the adjustment set.
type SampleRequest struct {
	Data        *dataset.Dataset
	Types       dataset.VariableTypes
	Treatments  []string
	Outcomes    []string
	Confounders []string
	// Graph is a DOT digraph to identify the backdoor set from
	Graph                     string
	ProceedWhenUnidentifiable bool

	Intervention          causal.Intervention
	KeepOriginalTreatment bool

	SampleSize    int
	Seed          *uint64
	ExtremePolicy string
}

// SampleResult is the interventional sample plus what produced it
type SampleResult struct {
	RunID       core.RunID
	Sample      *dataset.Dataset
	Confounders []string
	Diagnostics dosampler.Diagnostics
	Manifest    *run.Manifest
	RuntimeMs   int64
}

// NewSamplingService creates a sampling service from application configuration
func NewSamplingService(cfg *config.Config, observer dosampler.Observer, logger *internal.Logger) *SamplingService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &SamplingService{
		sampler:  cfg.Sampler,
		model:    cfg.Propensity.Options(),
		observer: observer,
		logger:   logger.With("SamplingService"),
	}
}

// SetLedger records a manifest of every successful run in ledger
func (s *SamplingService) SetLedger(ledger ports.RunLedger) {
	s.ledger = ledger
}

// Sample builds a stateful sampler for req, draws once and returns the
// sample. Request fields override the configured defaults.
func (s *SamplingService) Sample(ctx context.Context, req SampleRequest) (*SampleResult, error) {
	startTime := time.Now()
	runID := core.NewRunID()

	var identifier ports.IdentifierPort
	if req.Graph != "" {
		if len(req.Confounders) > 0 {
			return nil, core.NewConfigurationError("confounders", "give either confounders or a graph, not both")
		}
		gi, err := identify.ParseDOT(req.Graph, identify.GraphOptions{
			ProceedWhenUnidentifiable: req.ProceedWhenUnidentifiable,
			Logger:                    s.logger,
		})
		if err != nil {
			return nil, err
		}
		identifier = gi
	}

	policy := s.sampler.Policy()
	if req.ExtremePolicy != "" {
		p, err := propensity.ParseExtremePolicy(req.ExtremePolicy)
		if err != nil {
			return nil, err
		}
		policy = p
	}
	size := s.sampler.SampleSize
	if req.SampleSize > 0 {
		size = req.SampleSize
	}
	seed := s.sampler.Seed
	if req.Seed != nil {
		seed = *req.Seed
	}

	strategy := dosampler.NewWeightingSampler(dosampler.WeightingOptions{
		Model:   propensity.Factory(s.model),
		Policy:  policy,
		Epsilon: s.sampler.Epsilon,
		Logger:  s.logger,
	})
	sampler, err := dosampler.New(ctx, req.Data, dosampler.Config{
		Treatments:            req.Treatments,
		Outcomes:              req.Outcomes,
		Confounders:           req.Confounders,
		Identifier:            identifier,
		VariableTypes:         req.Types,
		KeepOriginalTreatment: req.KeepOriginalTreatment,
		SampleSize:            size,
		Seed:                  seed,
		Logger:                s.logger,
		Observer:              s.observer,
	}, strategy)
	if err != nil {
		return nil, err
	}

	out, err := sampler.DoSampleRun(ctx, runID, req.Intervention, true)
	if err != nil {
		return nil, err
	}
	diag, _ := sampler.Diagnostics()

	result := &SampleResult{
		RunID:       runID,
		Sample:      out,
		Confounders: sampler.Confounders().Names(),
		Diagnostics: diag,
		RuntimeMs:   time.Since(startTime).Milliseconds(),
	}
	result.Manifest = &run.Manifest{
		RunID:             runID,
		Strategy:          diag.Strategy,
		Treatments:        append([]string(nil), req.Treatments...),
		Outcomes:          append([]string(nil), req.Outcomes...),
		Confounders:       result.Confounders,
		Intervention:      req.Intervention.String(),
		InterventionHash:  req.Intervention.Fingerprint(),
		KeepOriginal:      req.KeepOriginalTreatment,
		Seed:              seed,
		SampleSize:        size,
		Policy:            string(policy),
		InputRows:         req.Data.RowCount(),
		OutputRows:        out.RowCount(),
		DataFingerprint:   req.Data.Fingerprint(),
		SampleFingerprint: out.Fingerprint(),
		EffectiveSize:     diag.EffectiveSize,
		Clipped:           diag.Clipped,
		Dropped:           diag.Dropped,
		RuntimeMs:         result.RuntimeMs,
		CreatedAt:         startTime.UTC(),
	}
	if s.ledger != nil {
		// the sample is still returned when the ledger is unavailable
		if err := s.ledger.Record(ctx, result.Manifest); err != nil {
			s.logger.Warn("run %s: ledger record failed: %v", runID, err)
		}
	}

	s.logger.Debug("run %s: %d rows under %s in %dms", runID, out.RowCount(), req.Intervention, result.RuntimeMs)
	return result, nil
}
