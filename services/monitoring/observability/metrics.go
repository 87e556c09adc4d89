// Copyright (C) 2025 Driftwatch Contributors (maintainers@driftwatch.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides metrics and instrumentation for the
// monitoring engine itself.
//
// # Description
//
// This is self-instrumentation: counters and histograms describing how
// the engine is being used (evaluations run, triggers raised, latency),
// as opposed to the model measurements the engine publishes through its
// sink. Exposed via the /metrics endpoint for Prometheus scraping.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal
// locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "driftwatch"

const engineSubsystem = "engine"

// EngineMetrics holds the Prometheus metrics describing engine activity.
//
// # Fields
//
//   - EvaluationsTotal: evaluations by kind and outcome
//   - TriggersTotal: retraining triggers by type and severity
//   - EvaluationDurationSeconds: evaluation latency by kind
//   - SinkFailuresTotal: best-effort sink publishes that failed
//   - HistorySize: current entries per history collection
type EngineMetrics struct {
	// EvaluationsTotal counts monitoring evaluations.
	// Labels: kind (prediction_drift, target_drift, feature_drift,
	// regression, ranking), status (ok, error).
	EvaluationsTotal *prometheus.CounterVec

	// TriggersTotal counts retraining triggers raised.
	// Labels: trigger_type, severity.
	TriggersTotal *prometheus.CounterVec

	// EvaluationDurationSeconds measures evaluation latency.
	// Labels: kind.
	EvaluationDurationSeconds *prometheus.HistogramVec

	// SinkFailuresTotal counts publish failures that were swallowed.
	// Labels: kind.
	SinkFailuresTotal *prometheus.CounterVec

	// HistorySize tracks in-memory history sizes.
	// Labels: collection (drift, performance, triggers).
	HistorySize *prometheus.GaugeVec
}

// DefaultEngineMetrics is the singleton initialized by InitMetrics().
var DefaultEngineMetrics *EngineMetrics

// InitMetrics creates and registers the engine metrics against the
// default registry. Call once at startup; a second call panics on
// duplicate registration.
func InitMetrics() *EngineMetrics {
	DefaultEngineMetrics = &EngineMetrics{
		EvaluationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: engineSubsystem,
				Name:      "evaluations_total",
				Help:      "Monitoring evaluations by kind and status",
			},
			[]string{"kind", "status"},
		),

		TriggersTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: engineSubsystem,
				Name:      "triggers_total",
				Help:      "Retraining triggers raised by type and severity",
			},
			[]string{"trigger_type", "severity"},
		),

		EvaluationDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: engineSubsystem,
				Name:      "evaluation_duration_seconds",
				Help:      "Evaluation latency by kind",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"kind"},
		),

		SinkFailuresTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: engineSubsystem,
				Name:      "sink_failures_total",
				Help:      "Best-effort sink publishes that failed",
			},
			[]string{"kind"},
		),

		HistorySize: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: engineSubsystem,
				Name:      "history_size",
				Help:      "Entries currently held per in-memory history collection",
			},
			[]string{"collection"},
		),
	}

	return DefaultEngineMetrics
}

// RecordEvaluation records a completed evaluation. Safe on a nil
// receiver so callers can treat metrics as optional.
func (m *EngineMetrics) RecordEvaluation(kind string, err error, seconds float64) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.EvaluationsTotal.WithLabelValues(kind, status).Inc()
	m.EvaluationDurationSeconds.WithLabelValues(kind).Observe(seconds)
}

// RecordTrigger records a raised retraining trigger.
func (m *EngineMetrics) RecordTrigger(triggerType, severity string) {
	if m == nil {
		return
	}
	m.TriggersTotal.WithLabelValues(triggerType, severity).Inc()
}

// RecordSinkFailure records a swallowed sink publish failure.
func (m *EngineMetrics) RecordSinkFailure(kind string) {
	if m == nil {
		return
	}
	m.SinkFailuresTotal.WithLabelValues(kind).Inc()
}

// SetHistorySize updates the gauge for one history collection.
func (m *EngineMetrics) SetHistorySize(collection string, n int) {
	if m == nil {
		return
	}
	m.HistorySize.WithLabelValues(collection).Set(float64(n))
}
