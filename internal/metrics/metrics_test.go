package metrics

import (
	"context"
	"testing"

	"gocausal/domain/causal"
	"gocausal/internal/dosampler"
	"gocausal/internal/testkit"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSamplerMetrics_RecordsCalls(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSamplerMetrics(reg)

	s, err := dosampler.New(context.Background(), testkit.ConfoundedScenario(500, 1), dosampler.Config{
		Treatments:  []string{"D"},
		Outcomes:    []string{"Y"},
		Confounders: []string{"Z"},
		Observer:    m,
	}, dosampler.NewWeightingSampler(dosampler.WeightingOptions{}))
	require.NoError(t, err)

	_, err = s.DoSample(context.Background(), causal.Assign(1), false)
	require.NoError(t, err)
	_, err = s.DoSample(context.Background(), causal.Intervention{}, false)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.samples.WithLabelValues(dosampler.WeightingName, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.samples.WithLabelValues(dosampler.WeightingName, "intervention_required")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fits.WithLabelValues(dosampler.WeightingName, "ok")))
	assert.Greater(t, testutil.ToFloat64(m.ess.WithLabelValues(dosampler.WeightingName)), 0.0)

	count, err := testutil.GatherAndCount(reg, "gocausal_propensity_fit_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
