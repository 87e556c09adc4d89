// Copyright (C) 2025 Driftwatch Contributors (maintainers@driftwatch.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"strings"

	"github.com/driftwatch/driftwatch/services/monitoring/drift"
	"github.com/driftwatch/driftwatch/services/monitoring/perf"
)

// Thresholds holds every configurable limit the engine applies. The
// strongly-typed fields replace the loosely-keyed threshold dictionary
// of earlier designs: a typo in an override is a compile or config
// validation error, not a silently ignored key.
type Thresholds struct {
	// PSIThreshold flags drift when the PSI meets or exceeds it.
	PSIThreshold float64

	// SignificanceLevel is the p-value cutoff for KS and chi-square.
	SignificanceLevel float64

	// NumBins is the bin count for PSI and chi-square binning.
	NumBins int

	// Percentage-degradation limits per regression metric.
	MAEDegradationPct  float64
	RMSEDegradationPct float64
	R2DegradationPct   float64

	// Percentage-degradation limits per ranking metric.
	PrecisionDegradationPct float64
	RecallDegradationPct    float64
	MAPDegradationPct       float64

	// FeatureDriftAlertRatio raises an aggregate trigger when at least
	// this fraction of checked features drift.
	FeatureDriftAlertRatio float64

	// HistoryCapacity bounds each in-memory history collection; the
	// oldest entries are evicted on append.
	HistoryCapacity int
}

// ThresholdOverrides carries optional per-field overrides. Nil fields
// keep the default; set fields replace it. Overrides merge over
// defaults field by field, never wholesale.
type ThresholdOverrides struct {
	PSIThreshold            *float64 `yaml:"psi_threshold"`
	SignificanceLevel       *float64 `yaml:"significance_level"`
	NumBins                 *int     `yaml:"num_bins"`
	MAEDegradationPct       *float64 `yaml:"mae_degradation_pct"`
	RMSEDegradationPct      *float64 `yaml:"rmse_degradation_pct"`
	R2DegradationPct        *float64 `yaml:"r2_degradation_pct"`
	PrecisionDegradationPct *float64 `yaml:"precision_degradation_pct"`
	RecallDegradationPct    *float64 `yaml:"recall_degradation_pct"`
	MAPDegradationPct       *float64 `yaml:"map_degradation_pct"`
	FeatureDriftAlertRatio  *float64 `yaml:"feature_drift_alert_ratio"`
	HistoryCapacity         *int     `yaml:"history_capacity"`
}

// DefaultThresholds returns the engine defaults. Every key has a
// default; callers only override what they need.
func DefaultThresholds() Thresholds {
	return Thresholds{
		PSIThreshold:            drift.DefaultPSIThreshold,
		SignificanceLevel:       drift.DefaultSignificanceLevel,
		NumBins:                 drift.DefaultNumBins,
		MAEDegradationPct:       10,
		RMSEDegradationPct:      10,
		R2DegradationPct:        5,
		PrecisionDegradationPct: 10,
		RecallDegradationPct:    10,
		MAPDegradationPct:       10,
		FeatureDriftAlertRatio:  0.30,
		HistoryCapacity:         10000,
	}
}

// Merge applies non-nil override fields over t and returns the result.
func (t Thresholds) Merge(o *ThresholdOverrides) Thresholds {
	if o == nil {
		return t
	}
	if o.PSIThreshold != nil {
		t.PSIThreshold = *o.PSIThreshold
	}
	if o.SignificanceLevel != nil {
		t.SignificanceLevel = *o.SignificanceLevel
	}
	if o.NumBins != nil {
		t.NumBins = *o.NumBins
	}
	if o.MAEDegradationPct != nil {
		t.MAEDegradationPct = *o.MAEDegradationPct
	}
	if o.RMSEDegradationPct != nil {
		t.RMSEDegradationPct = *o.RMSEDegradationPct
	}
	if o.R2DegradationPct != nil {
		t.R2DegradationPct = *o.R2DegradationPct
	}
	if o.PrecisionDegradationPct != nil {
		t.PrecisionDegradationPct = *o.PrecisionDegradationPct
	}
	if o.RecallDegradationPct != nil {
		t.RecallDegradationPct = *o.RecallDegradationPct
	}
	if o.MAPDegradationPct != nil {
		t.MAPDegradationPct = *o.MAPDegradationPct
	}
	if o.FeatureDriftAlertRatio != nil {
		t.FeatureDriftAlertRatio = *o.FeatureDriftAlertRatio
	}
	if o.HistoryCapacity != nil {
		t.HistoryCapacity = *o.HistoryCapacity
	}
	return t
}

// metricDirection says which way a metric degrades.
type metricDirection int

const (
	// higherIsWorse applies to error metrics: a rise is degradation.
	higherIsWorse metricDirection = iota

	// lowerIsWorse applies to quality metrics (R², precision, recall,
	// MAP): a drop is degradation.
	lowerIsWorse
)

// degradationLimit returns the configured percentage limit and direction
// for a metric name, or ok=false when the metric has no configured limit
// (it is then published but never compared).
func (t Thresholds) degradationLimit(metric string) (limit float64, dir metricDirection, ok bool) {
	switch {
	case metric == perf.MetricMAE:
		return t.MAEDegradationPct, higherIsWorse, true
	case metric == perf.MetricRMSE:
		return t.RMSEDegradationPct, higherIsWorse, true
	case metric == perf.MetricR2:
		return t.R2DegradationPct, lowerIsWorse, true
	case metric == perf.MetricMAP:
		return t.MAPDegradationPct, lowerIsWorse, true
	case strings.HasPrefix(metric, "precision_at_"):
		return t.PrecisionDegradationPct, lowerIsWorse, true
	case strings.HasPrefix(metric, "recall_at_"):
		return t.RecallDegradationPct, lowerIsWorse, true
	default:
		return 0, higherIsWorse, false
	}
}
