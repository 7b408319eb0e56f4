// Package metrics exports do-sampler activity to Prometheus.
package metrics

import (
	"strings"
	"time"

	"gocausal/internal/dosampler"
	"gocausal/internal/errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SamplerMetrics implements dosampler.Observer
type SamplerMetrics struct {
	samples    *prometheus.CounterVec
	sampleTime *prometheus.HistogramVec
	fitTime    *prometheus.HistogramVec
	fits       *prometheus.CounterVec
	clipped    *prometheus.CounterVec
	dropped    *prometheus.CounterVec
	ess        *prometheus.GaugeVec
}

var _ dosampler.Observer = (*SamplerMetrics)(nil)

// NewSamplerMetrics registers the collectors on reg
func NewSamplerMetrics(reg prometheus.Registerer) *SamplerMetrics {
	factory := promauto.With(reg)
	return &SamplerMetrics{
		// outcome is "ok" or the lower-cased application error code
		samples: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gocausal",
			Name:      "do_sample_total",
			Help:      "Do-sample calls by strategy and outcome",
		}, []string{"strategy", "outcome"}),

		sampleTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gocausal",
			Name:      "do_sample_seconds",
			Help:      "Do-sample call latency in seconds, fit included",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"strategy"}),

		fitTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gocausal",
			Name:      "propensity_fit_seconds",
			Help:      "Disrupt-stage latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"strategy"}),

		fits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gocausal",
			Name:      "propensity_fit_total",
			Help:      "Propensity fits by strategy and outcome",
		}, []string{"strategy", "outcome"}),

		clipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gocausal",
			Name:      "propensity_clipped_total",
			Help:      "Propensity scores moved inside [eps, 1-eps]",
		}, []string{"strategy"}),

		dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gocausal",
			Name:      "propensity_dropped_total",
			Help:      "Rows dropped for extreme propensity scores",
		}, []string{"strategy"}),

		ess: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "gocausal",
			Name:      "effective_sample_size",
			Help:      "Kish effective sample size of the latest fit",
		}, []string{"strategy"}),
	}
}

// FitCompleted records one disrupt stage
func (m *SamplerMetrics) FitCompleted(strategy string, elapsed time.Duration, diag dosampler.Diagnostics, err error) {
	m.fitTime.WithLabelValues(strategy).Observe(elapsed.Seconds())
	m.fits.WithLabelValues(strategy, outcome(err)).Inc()
	if err != nil {
		return
	}
	m.clipped.WithLabelValues(strategy).Add(float64(diag.Clipped))
	m.dropped.WithLabelValues(strategy).Add(float64(diag.Dropped))
	m.ess.WithLabelValues(strategy).Set(diag.EffectiveSize)
}

// SampleCompleted records one do-sample call
func (m *SamplerMetrics) SampleCompleted(strategy string, elapsed time.Duration, rows int, err error) {
	m.sampleTime.WithLabelValues(strategy).Observe(elapsed.Seconds())
	m.samples.WithLabelValues(strategy, outcome(err)).Inc()
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return strings.ToLower(errors.GetCode(err))
}
