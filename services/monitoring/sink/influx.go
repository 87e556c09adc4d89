// Copyright (C) 2025 Driftwatch Contributors (maintainers@driftwatch.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/driftwatch/driftwatch/pkg/validation"
)

// Measurement names written to InfluxDB.
const (
	measurementPerformance = "model_performance"
	measurementDrift       = "model_drift"
	measurementAlarm       = "alarm_definitions"
)

// InfluxSink publishes measurements to an InfluxDB 2.x bucket and
// doubles as the Alerter backend by recording alarm definitions.
//
// # Description
//
// Every publish becomes one point tagged with model and version. Tag
// values are sanitized before writing so a caller-supplied model name
// cannot smuggle Flux into downstream queries.
type InfluxSink struct {
	writeAPI api.WriteAPIBlocking
}

// NewInfluxSink creates a sink over an existing blocking write API.
// The caller owns the underlying client and its Close().
func NewInfluxSink(writeAPI api.WriteAPIBlocking) *InfluxSink {
	return &InfluxSink{writeAPI: writeAPI}
}

// Connect builds an InfluxDB client, verifies connectivity, and returns
// a sink plus a close function.
//
// # Inputs
//
//   - ctx: bounds the health probe.
//   - url, token, org, bucket: standard InfluxDB 2.x connection settings.
//
// # Outputs
//
//   - *InfluxSink: ready to publish.
//   - func(): closes the underlying client.
//   - error: non-nil when the health probe fails.
func Connect(ctx context.Context, url, token, org, bucket string) (*InfluxSink, func(), error) {
	client := influxdb2.NewClient(url, token)

	health, err := client.Health(ctx)
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("influxdb health check: %w", err)
	}
	if health.Status != "pass" {
		client.Close()
		return nil, nil, fmt.Errorf("influxdb not healthy: %s", health.Status)
	}

	return NewInfluxSink(client.WriteAPIBlocking(org, bucket)), client.Close, nil
}

// PublishScalar writes one point to the performance measurement.
func (s *InfluxSink) PublishScalar(ctx context.Context, model, version, name string, value float64, unit string, extraDims map[string]string) error {
	model, version, err := sanitizeIdentity(model, version)
	if err != nil {
		return err
	}

	tags := map[string]string{
		"model":   model,
		"version": version,
		"unit":    unit,
	}
	for k, v := range extraDims {
		tags[k] = v
	}

	point := influxdb2.NewPoint(
		measurementPerformance,
		tags,
		map[string]interface{}{name: value},
		time.Now(),
	)
	return s.writeAPI.WritePoint(ctx, point)
}

// PublishBatch writes one point per metric and reports how many were
// accepted before the first failure.
func (s *InfluxSink) PublishBatch(ctx context.Context, model, version string, metrics map[string]float64, unit string) (int, error) {
	written := 0
	for name, value := range metrics {
		if err := s.PublishScalar(ctx, model, version, name, value, unit, nil); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// PublishDrift writes the drift score and detection flag as one point.
func (s *InfluxSink) PublishDrift(ctx context.Context, model, version string, driftScore float64, driftDetected bool) error {
	model, version, err := sanitizeIdentity(model, version)
	if err != nil {
		return err
	}

	point := influxdb2.NewPoint(
		measurementDrift,
		map[string]string{"model": model, "version": version},
		map[string]interface{}{
			"drift_score":    driftScore,
			"drift_detected": driftDetected,
		},
		time.Now(),
	)
	return s.writeAPI.WritePoint(ctx, point)
}

// CreateThresholdAlarm records an alarm definition point and returns a
// generated alarm id. Downstream tooling (Grafana provisioning, a tasks
// runner) materializes the actual alert rule from these definitions.
func (s *InfluxSink) CreateThresholdAlarm(ctx context.Context, model, version, metricName, comparison string, threshold float64, notificationTarget string) (string, error) {
	model, version, err := sanitizeIdentity(model, version)
	if err != nil {
		return "", err
	}
	if comparison != "greater_than" && comparison != "less_than" {
		return "", fmt.Errorf("invalid comparison %q", comparison)
	}

	alarmID := uuid.NewString()
	point := influxdb2.NewPoint(
		measurementAlarm,
		map[string]string{
			"model":   model,
			"version": version,
			"metric":  metricName,
		},
		map[string]interface{}{
			"alarm_id":   alarmID,
			"comparison": comparison,
			"threshold":  threshold,
			"target":     notificationTarget,
		},
		time.Now(),
	)
	if err := s.writeAPI.WritePoint(ctx, point); err != nil {
		return "", fmt.Errorf("write alarm definition: %w", err)
	}
	return alarmID, nil
}

func sanitizeIdentity(model, version string) (string, string, error) {
	safeModel, err := validation.SanitizeModelName(model)
	if err != nil {
		return "", "", fmt.Errorf("model name: %w", err)
	}
	safeVersion, err := validation.SanitizeVersion(version)
	if err != nil {
		return "", "", fmt.Errorf("model version: %w", err)
	}
	return safeModel, safeVersion, nil
}

var (
	_ Sink    = (*InfluxSink)(nil)
	_ Alerter = (*InfluxSink)(nil)
)
