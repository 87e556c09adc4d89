// Copyright (C) 2025 Driftwatch Contributors (maintainers@driftwatch.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sink

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "driftwatch"

// PrometheusSink exposes published measurements as Prometheus gauges.
//
// # Description
//
// Scalar measurements land in one GaugeVec labeled by model, version,
// and metric name; drift scores and detection flags get dedicated
// vectors so alert rules can key off them directly. Publishing never
// fails: Prometheus gauges are process-local.
//
// # Thread Safety
//
// Safe for concurrent use via Prometheus's internal locking.
type PrometheusSink struct {
	metricValue   *prometheus.GaugeVec
	driftScore    *prometheus.GaugeVec
	driftDetected *prometheus.GaugeVec
	publishes     *prometheus.CounterVec
}

// NewPrometheusSink creates a sink registered against reg. Pass
// prometheus.DefaultRegisterer for the process-wide registry or a fresh
// registry in tests.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{
		metricValue: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: "model",
				Name:      "metric_value",
				Help:      "Latest published value per model performance metric",
			},
			[]string{"model", "version", "metric"},
		),
		driftScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: "model",
				Name:      "drift_score",
				Help:      "Latest drift score per model version",
			},
			[]string{"model", "version"},
		),
		driftDetected: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: "model",
				Name:      "drift_detected",
				Help:      "1 when the latest drift check flagged drift, else 0",
			},
			[]string{"model", "version"},
		),
		publishes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "sink",
				Name:      "publishes_total",
				Help:      "Measurements published to the Prometheus sink",
			},
			[]string{"kind"},
		),
	}

	reg.MustRegister(s.metricValue, s.driftScore, s.driftDetected, s.publishes)
	return s
}

// PublishScalar sets the gauge for the named metric.
func (s *PrometheusSink) PublishScalar(ctx context.Context, model, version, name string, value float64, unit string, extraDims map[string]string) error {
	s.metricValue.WithLabelValues(model, version, name).Set(value)
	s.publishes.WithLabelValues("scalar").Inc()
	return nil
}

// PublishBatch sets one gauge per metric in the batch.
func (s *PrometheusSink) PublishBatch(ctx context.Context, model, version string, metrics map[string]float64, unit string) (int, error) {
	for name, value := range metrics {
		s.metricValue.WithLabelValues(model, version, name).Set(value)
	}
	s.publishes.WithLabelValues("batch").Inc()
	return len(metrics), nil
}

// PublishDrift sets the drift score and detection gauges.
func (s *PrometheusSink) PublishDrift(ctx context.Context, model, version string, driftScore float64, driftDetected bool) error {
	s.driftScore.WithLabelValues(model, version).Set(driftScore)
	detected := 0.0
	if driftDetected {
		detected = 1.0
	}
	s.driftDetected.WithLabelValues(model, version).Set(detected)
	s.publishes.WithLabelValues("drift").Inc()
	return nil
}

var _ Sink = (*PrometheusSink)(nil)
