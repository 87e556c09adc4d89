// Copyright (C) 2025 Driftwatch Contributors (maintainers@driftwatch.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"time"
)

// Method names a statistical drift detection routine.
type Method string

const (
	// MethodPSI selects the Population Stability Index comparison.
	MethodPSI Method = "psi"

	// MethodKSTest selects the two-sample Kolmogorov-Smirnov test.
	MethodKSTest Method = "ks_test"

	// MethodChiSquare selects the chi-square goodness-of-fit test.
	MethodChiSquare Method = "chi_square"
)

// TriggerType categorizes a retraining trigger.
type TriggerType string

const (
	// TriggerDrift marks triggers raised by distribution drift.
	TriggerDrift TriggerType = "drift"

	// TriggerPerformanceDegradation marks triggers raised by metric
	// degradation against a baseline.
	TriggerPerformanceDegradation TriggerType = "performance_degradation"

	// TriggerScheduled marks operator-created periodic triggers.
	TriggerScheduled TriggerType = "scheduled"
)

// Severity grades a retraining trigger.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Drift categories. Feature drift uses "feature:<name>".
const (
	CategoryPrediction = "prediction"
	CategoryTarget     = "target"
	featureCategory    = "feature:"
)

// DriftResult is one statistical comparison outcome. Immutable once
// created; DriftDetected is always derived from the score or p-value
// versus the threshold for the chosen test, never set independently.
type DriftResult struct {
	ModelName      string    `json:"model_name"`
	ModelVersion   string    `json:"model_version"`
	DriftCategory  string    `json:"drift_category"`
	DriftDetected  bool      `json:"drift_detected"`
	DriftScore     float64   `json:"drift_score"`
	Method         Method    `json:"method"`
	PValue         *float64  `json:"p_value,omitempty"`
	Threshold      float64   `json:"threshold"`
	BaselinePeriod string    `json:"baseline_period"`
	CurrentPeriod  string    `json:"current_period"`
	Timestamp      time.Time `json:"timestamp"`
}

// PerformanceMetricResult is one scalar performance observation.
// ThresholdBreached is always recomputed from MetricValue versus
// Threshold using the metric's direction rule.
type PerformanceMetricResult struct {
	ModelName         string    `json:"model_name"`
	ModelVersion      string    `json:"model_version"`
	MetricName        string    `json:"metric_name"`
	MetricValue       float64   `json:"metric_value"`
	Threshold         *float64  `json:"threshold,omitempty"`
	ThresholdBreached bool      `json:"threshold_breached"`
	SampleCount       int       `json:"sample_count"`
	Period            string    `json:"period"`
	Timestamp         time.Time `json:"timestamp"`
}

// RetrainingTrigger is an escalation record. Append-only: once created
// it is never mutated, only read back for reporting.
type RetrainingTrigger struct {
	TriggerID           string             `json:"trigger_id"`
	ModelName           string             `json:"model_name"`
	ModelVersion        string             `json:"model_version"`
	Reason              string             `json:"reason"`
	TriggerType         TriggerType        `json:"trigger_type"`
	Severity            Severity           `json:"severity"`
	Metrics             map[string]float64 `json:"metrics,omitempty"`
	CreatedAt           time.Time          `json:"created_at"`
	RecommendRetraining bool               `json:"recommend_retraining"`
}

// Report is a read-mostly snapshot of monitoring state for one model
// version, suitable for a dashboard or a scheduled digest.
type Report struct {
	ModelName              string                    `json:"model_name"`
	ModelVersion           string                    `json:"model_version"`
	GeneratedAt            time.Time                 `json:"generated_at"`
	TotalDriftChecks       int                       `json:"total_drift_checks"`
	DriftDetectedCount     int                       `json:"drift_detected_count"`
	DriftRate              float64                   `json:"drift_rate"`
	TotalPerformanceChecks int                       `json:"total_performance_checks"`
	ThresholdBreachCount   int                       `json:"threshold_breach_count"`
	TriggerCount           int                       `json:"trigger_count"`
	RecentDrift            []DriftResult             `json:"recent_drift"`
	RecentPerformance      []PerformanceMetricResult `json:"recent_performance"`
	Triggers               []RetrainingTrigger       `json:"triggers"`
}
