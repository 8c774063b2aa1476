// Package metrics exposes prometheus collectors for repair outcomes and score distributions.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/jonathan/credit-quality/internal/types"
)

const namespace = "credit_quality"

// Score labels used on the score histogram.
const (
	ScoreAccuracy   = "accuracy"
	ScoreStructural = "structural"
	ScoreEmptiness  = "emptiness"
	ScoreConsensus  = "consensus"
)

// Recorder owns a private registry. A nil *Recorder discards every observation.
type Recorder struct {
	registry *prometheus.Registry

	repairTotal       *prometheus.CounterVec
	regenerationTotal *prometheus.CounterVec
	degradedTotal     prometheus.Counter
	scores            *prometheus.HistogramVec
	thresholdTotal    *prometheus.CounterVec
	processDuration   prometheus.Histogram
}

// NewRecorder registers all collectors on registry. A nil registry gets a fresh one.
func NewRecorder(registry *prometheus.Registry) *Recorder {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	repairTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "repair",
			Name:      "outcomes_total",
			Help:      "Repaired documents by the tier that produced parseable JSON.",
		},
		[]string{"tier"},
	)
	regenerationTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "repair",
			Name:      "regenerations_total",
			Help:      "Escalations to the upstream generator by outcome.",
		},
		[]string{"outcome"},
	)
	degradedTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "repair",
			Name:      "degraded_total",
			Help:      "Documents that degraded to an empty record.",
		},
	)
	scores := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "score",
			Name:      "value",
			Help:      "Score distribution by scorer, in percent.",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		},
		[]string{"scorer"},
	)
	thresholdTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "score",
			Name:      "threshold_total",
			Help:      "Documents by whether they met the accuracy threshold.",
		},
		[]string{"result"},
	)
	processDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "process_duration_seconds",
			Help:      "End-to-end processing duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	registry.MustRegister(repairTotal, regenerationTotal, degradedTotal, scores, thresholdTotal, processDuration)

	return &Recorder{
		registry:          registry,
		repairTotal:       repairTotal,
		regenerationTotal: regenerationTotal,
		degradedTotal:     degradedTotal,
		scores:            scores,
		thresholdTotal:    thresholdTotal,
		processDuration:   processDuration,
	}
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Push replaces the metrics of job on the Pushgateway at url with the current registry.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}

// WriteTextfile writes the current metrics to path for the node exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

// ObserveRepair counts a cascade outcome.
func (r *Recorder) ObserveRepair(info *types.RepairInfo) {
	if r == nil || info == nil {
		return
	}
	r.repairTotal.WithLabelValues(info.Tier).Inc()
	if info.Regenerated {
		outcome := "recovered"
		if info.Degraded {
			outcome = "failed"
		}
		r.regenerationTotal.WithLabelValues(outcome).Inc()
	}
	if info.Degraded {
		r.degradedTotal.Inc()
	}
}

// ObserveReport records every score carried by meta.
func (r *Recorder) ObserveReport(meta *types.Metadata) {
	if r == nil || meta == nil {
		return
	}
	r.scores.WithLabelValues(ScoreAccuracy).Observe(meta.Accuracy.Score)
	if meta.Structural != nil {
		r.scores.WithLabelValues(ScoreStructural).Observe(meta.Structural.StructuralScore)
	}
	if meta.Emptiness != nil {
		r.scores.WithLabelValues(ScoreEmptiness).Observe(meta.Emptiness.Percentage)
	}
	if meta.Consensus != nil && meta.Consensus.ConsensusSource != types.ConsensusSourceNone {
		r.scores.WithLabelValues(ScoreConsensus).Observe(meta.Consensus.Score)
	}
	for strategy, score := range meta.Completeness {
		r.scores.WithLabelValues(strategy).Observe(score.Score)
	}

	result := "fail"
	if meta.MeetsThreshold {
		result = "pass"
	}
	r.thresholdTotal.WithLabelValues(result).Inc()
}

// ObserveDuration records one end-to-end processing time.
func (r *Recorder) ObserveDuration(d time.Duration) {
	if r == nil {
		return
	}
	r.processDuration.Observe(d.Seconds())
}
