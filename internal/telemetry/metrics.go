// Package telemetry provides Prometheus metrics for difficulty decisions and
// training runs.
package telemetry

import (
	"fmt"
	"io"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"

	"github.com/abhisek/mathadapt/internal/adapt"
	"github.com/abhisek/mathadapt/internal/training"
)

const namespace = "mathadapt"

// Collector records decision and training metrics on a registry.
// It satisfies training.Observer and the replay decision observer.
type Collector struct {
	// Labels: strategy (rule, statistical), transition, fallback (true, false)
	decisions *prometheus.CounterVec

	// Labels: from, to
	levelChanges *prometheus.CounterVec

	confidence prometheus.Histogram

	// Labels: result (clean, warned)
	trainingRuns *prometheus.CounterVec

	// Labels: kind
	trainingWarnings *prometheus.CounterVec

	trainingSamples  prometheus.Gauge
	heldOutAccuracy  prometheus.Gauge
	heldOutF1        prometheus.Gauge
	skippedSessions  prometheus.Gauge
	trainingIterated prometheus.Gauge
}

// NewCollector registers all metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		decisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "adapt",
				Name:      "decisions_total",
				Help:      "Total number of difficulty decisions",
			},
			[]string{"strategy", "transition", "fallback"},
		),
		levelChanges: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "adapt",
				Name:      "level_changes_total",
				Help:      "Total number of decisions that changed the level",
			},
			[]string{"from", "to"},
		),
		confidence: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "adapt",
				Name:      "success_probability",
				Help:      "Predicted success probability of statistical decisions",
				Buckets:   prometheus.LinearBuckets(0.1, 0.1, 9),
			},
		),
		trainingRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "training",
				Name:      "runs_total",
				Help:      "Total number of completed training runs",
			},
			[]string{"result"},
		),
		trainingWarnings: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "training",
				Name:      "warnings_total",
				Help:      "Total number of training warnings by kind",
			},
			[]string{"kind"},
		),
		trainingSamples: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "training",
				Name:      "samples",
				Help:      "Labeled samples in the most recent training run",
			},
		),
		heldOutAccuracy: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "training",
				Name:      "held_out_accuracy",
				Help:      "Held-out accuracy of the most recent model",
			},
		),
		heldOutF1: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "training",
				Name:      "held_out_f1",
				Help:      "Held-out F1 score of the most recent model",
			},
		),
		skippedSessions: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "training",
				Name:      "skipped_sessions",
				Help:      "Sessions skipped by the most recent training run",
			},
		),
		trainingIterated: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "training",
				Name:      "iterations",
				Help:      "Optimizer iterations used by the most recent training run",
			},
		),
	}
}

// ObserveDecision records one difficulty decision.
func (c *Collector) ObserveDecision(d adapt.Decision) {
	c.decisions.WithLabelValues(
		string(d.Strategy),
		string(d.Transition),
		strconv.FormatBool(d.Fallback),
	).Inc()

	if next := d.Next(); next != d.From {
		c.levelChanges.WithLabelValues(d.From.String(), next.String()).Inc()
	}
	if d.Confidence != nil {
		c.confidence.Observe(*d.Confidence)
	}
}

// ObserveTraining records a completed training run.
func (c *Collector) ObserveTraining(r *training.Report) {
	if r == nil {
		return
	}
	result := "clean"
	if len(r.Warnings) > 0 {
		result = "warned"
	}
	c.trainingRuns.WithLabelValues(result).Inc()
	for _, w := range r.Warnings {
		c.trainingWarnings.WithLabelValues(string(w.Kind)).Inc()
	}
	c.trainingSamples.Set(float64(r.Samples))
	c.heldOutAccuracy.Set(r.HeldOut.Accuracy)
	c.heldOutF1.Set(r.HeldOut.F1)
	c.skippedSessions.Set(float64(len(r.Skipped)))
	c.trainingIterated.Set(float64(r.Iterations))
}

// WriteText writes every metric family gathered from g in the Prometheus
// text exposition format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
