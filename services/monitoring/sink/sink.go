// Copyright (C) 2025 Driftwatch Contributors (maintainers@driftwatch.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package sink defines the metrics publishing capability consumed by the
// monitoring engine, together with the production adapters (Prometheus,
// InfluxDB) and the test doubles.
//
// # Description
//
// The engine treats every publish as fire-and-forget: a failed publish
// is logged by the caller and never aborts the monitoring call that
// produced the measurement. Local history remains the source of truth
// for reporting.
//
// The Alerter capability is separate on purpose: threshold alarms are
// created by an operator-facing setup routine (the CLI), never
// automatically by the engine.
package sink

import (
	"context"
	"sync"
)

// Sink receives scalar measurements produced by monitoring evaluations.
//
// Implementations must be safe for concurrent use; the engine may be
// driven by multiple monitoring workers at once.
type Sink interface {
	// PublishScalar publishes one named measurement for a model version.
	// extraDims carries optional additional dimensions (may be nil).
	PublishScalar(ctx context.Context, model, version, name string, value float64, unit string, extraDims map[string]string) error

	// PublishBatch publishes a set of named measurements and reports how
	// many were accepted.
	PublishBatch(ctx context.Context, model, version string, metrics map[string]float64, unit string) (int, error)

	// PublishDrift publishes a drift score together with the boolean
	// detection outcome.
	PublishDrift(ctx context.Context, model, version string, driftScore float64, driftDetected bool) error
}

// Alerter creates threshold alarms in an external alerting backend.
type Alerter interface {
	// CreateThresholdAlarm registers an alarm that fires when the named
	// metric crosses threshold in the given direction. comparison is
	// "greater_than" or "less_than". Returns the backend's alarm id.
	CreateThresholdAlarm(ctx context.Context, model, version, metricName, comparison string, threshold float64, notificationTarget string) (string, error)
}

// =============================================================================
// Test Doubles
// =============================================================================

// NopSink discards everything. Useful when monitoring runs without a
// metrics backend.
type NopSink struct{}

// PublishScalar discards the measurement.
func (NopSink) PublishScalar(ctx context.Context, model, version, name string, value float64, unit string, extraDims map[string]string) error {
	return nil
}

// PublishBatch discards the batch and reports full acceptance.
func (NopSink) PublishBatch(ctx context.Context, model, version string, metrics map[string]float64, unit string) (int, error) {
	return len(metrics), nil
}

// PublishDrift discards the measurement.
func (NopSink) PublishDrift(ctx context.Context, model, version string, driftScore float64, driftDetected bool) error {
	return nil
}

var _ Sink = NopSink{}

// Published is one measurement captured by BufferedSink.
type Published struct {
	Model         string
	Version       string
	Name          string
	Value         float64
	Unit          string
	Dims          map[string]string
	DriftDetected bool
}

// BufferedSink collects measurements in memory so tests can assert on
// what the engine published.
type BufferedSink struct {
	mu      sync.Mutex
	scalars []Published
	drifts  []Published
}

// NewBufferedSink creates an empty BufferedSink.
func NewBufferedSink() *BufferedSink {
	return &BufferedSink{}
}

// PublishScalar records the measurement.
func (s *BufferedSink) PublishScalar(ctx context.Context, model, version, name string, value float64, unit string, extraDims map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scalars = append(s.scalars, Published{
		Model: model, Version: version, Name: name, Value: value, Unit: unit, Dims: extraDims,
	})
	return nil
}

// PublishBatch records every measurement in the batch.
func (s *BufferedSink) PublishBatch(ctx context.Context, model, version string, metrics map[string]float64, unit string) (int, error) {
	for name, value := range metrics {
		if err := s.PublishScalar(ctx, model, version, name, value, unit, nil); err != nil {
			return 0, err
		}
	}
	return len(metrics), nil
}

// PublishDrift records the drift measurement.
func (s *BufferedSink) PublishDrift(ctx context.Context, model, version string, driftScore float64, driftDetected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drifts = append(s.drifts, Published{
		Model: model, Version: version, Name: "drift_score", Value: driftScore,
		DriftDetected: driftDetected,
	})
	return nil
}

// Scalars returns a copy of the captured scalar measurements.
func (s *BufferedSink) Scalars() []Published {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Published, len(s.scalars))
	copy(out, s.scalars)
	return out
}

// Drifts returns a copy of the captured drift measurements.
func (s *BufferedSink) Drifts() []Published {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Published, len(s.drifts))
	copy(out, s.drifts)
	return out
}

var _ Sink = (*BufferedSink)(nil)
