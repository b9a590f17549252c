// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics exports orchestrator progress as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pdiddy/company-research/internal/orchestrator"
	"github.com/pdiddy/company-research/pkg/types"
)

const namespace = "company_research"

// Collector implements orchestrator.Observer. Metrics live on the collector's
// own registry rather than the global default.
type Collector struct {
	registry *prometheus.Registry

	invocations  *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	fieldsFilled *prometheus.CounterVec
	newSources   *prometheus.CounterVec
	confidence   *prometheus.GaugeVec
	rounds       *prometheus.CounterVec
	gapsFilled   prometheus.Counter
	runs         *prometheus.CounterVec
	remaining    *prometheus.GaugeVec
}

var _ orchestrator.Observer = (*Collector)(nil)

// NewCollector registers the research metrics on a fresh registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_invocations_total",
			Help:      "Agent calls by topic, phase, and outcome.",
		}, []string{"topic", "phase", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "agent_invocation_duration_seconds",
			Help:      "Agent call latency by topic.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"topic"}),
		fieldsFilled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fields_filled_total",
			Help:      "Fields that went from absent or empty to present.",
		}, []string{"topic"}),
		newSources: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "new_sources_total",
			Help:      "Source identifiers first seen in a run.",
		}, []string{"topic"}),
		confidence: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "topic_confidence",
			Help:      "Latest merged confidence by topic.",
		}, []string{"topic"}),
		rounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_total",
			Help:      "Rounds executed by phase.",
		}, []string{"phase"}),
		gapsFilled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gaps_filled_total",
			Help:      "Gaps closed across all rounds.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished runs by terminal state and cause.",
		}, []string{"state", "cause"}),
		remaining: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gaps_remaining",
			Help:      "Gaps open at the end of the latest run, by priority.",
		}, []string{"priority"}),
	}
	c.registry.MustRegister(
		c.invocations, c.duration, c.fieldsFilled, c.newSources, c.confidence,
		c.rounds, c.gapsFilled, c.runs, c.remaining,
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the collector's metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// TopicCompleted implements orchestrator.Observer.
func (c *Collector) TopicCompleted(ev orchestrator.TopicEvent) {
	topic := string(ev.Topic)
	phase := string(types.PhaseInitial)
	if ev.Refinement {
		phase = string(types.PhaseRefinement)
	}

	outcome := "success"
	if ev.Err != nil {
		outcome = "failure"
	}
	c.invocations.WithLabelValues(topic, phase, outcome).Inc()
	c.duration.WithLabelValues(topic).Observe(ev.Duration.Seconds())
	if ev.Err != nil {
		return
	}
	c.fieldsFilled.WithLabelValues(topic).Add(float64(ev.FieldsFilled))
	c.newSources.WithLabelValues(topic).Add(float64(ev.NewSources))
	c.confidence.WithLabelValues(topic).Set(ev.Confidence)
}

// RoundCompleted implements orchestrator.Observer.
func (c *Collector) RoundCompleted(_ string, meta types.RoundMetadata) {
	c.rounds.WithLabelValues(string(meta.Phase)).Inc()
	c.gapsFilled.Add(float64(meta.GapsFilled))
}

// RunCompleted implements orchestrator.Observer.
func (c *Collector) RunCompleted(agg *types.Aggregate) {
	cause := string(agg.Termination.Cause)
	if cause == "" {
		cause = "none"
	}
	c.runs.WithLabelValues(string(agg.Termination.State), cause).Inc()

	s := agg.Summary()
	for p, n := range map[types.Priority]int{
		types.PriorityCritical: s.RemainingBy.Critical,
		types.PriorityHigh:     s.RemainingBy.High,
		types.PriorityMedium:   s.RemainingBy.Medium,
		types.PriorityLow:      s.RemainingBy.Low,
	} {
		c.remaining.WithLabelValues(p.String()).Set(float64(n))
	}
}
