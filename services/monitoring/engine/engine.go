// Copyright (C) 2025 Driftwatch Contributors (maintainers@driftwatch.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/driftwatch/driftwatch/pkg/logging"
	"github.com/driftwatch/driftwatch/pkg/validation"
	"github.com/driftwatch/driftwatch/services/monitoring/drift"
	"github.com/driftwatch/driftwatch/services/monitoring/observability"
	"github.com/driftwatch/driftwatch/services/monitoring/perf"
	"github.com/driftwatch/driftwatch/services/monitoring/sink"
)

// ErrUnknownMethod is returned when a drift check names a detection
// method the engine does not implement.
var ErrUnknownMethod = errors.New("unknown drift detection method")

// featureDriftConcurrency bounds the per-feature workers in
// DetectFeatureDrift.
const featureDriftConcurrency = 8

// defaultReportRecent is the recent-entry count for reports when the
// caller passes zero.
const defaultReportRecent = 10

// =============================================================================
// Engine
// =============================================================================

// Options configures a new Engine. Every field is optional: nil
// overrides keep the defaults, a nil sink discards publishes, a nil
// archive disables long-term retention.
type Options struct {
	Thresholds *ThresholdOverrides
	Sink       sink.Sink
	Archive    Archive
	Logger     *logging.Logger
	Metrics    *observability.EngineMetrics
}

// Engine runs statistical drift checks and performance comparisons for
// deployed models, keeps bounded in-memory histories, and raises
// retraining triggers when thresholds are crossed.
//
// # Thread Safety
//
// All methods are safe for concurrent use. The statistical work runs
// outside the lock; only history and trigger bookkeeping is serialized.
type Engine struct {
	thresholds Thresholds
	sink       sink.Sink
	archive    Archive
	logger     *logging.Logger
	metrics    *observability.EngineMetrics

	mu           sync.Mutex
	driftHistory ring[DriftResult]
	perfHistory  ring[PerformanceMetricResult]
	triggers     ring[RetrainingTrigger]
}

// New builds an Engine from opts, filling in defaults for every unset
// field.
func New(opts Options) *Engine {
	thresholds := DefaultThresholds().Merge(opts.Thresholds)

	s := opts.Sink
	if s == nil {
		s = sink.NopSink{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}

	return &Engine{
		thresholds:   thresholds,
		sink:         s,
		archive:      opts.Archive,
		logger:       logger,
		metrics:      opts.Metrics,
		driftHistory: newRing[DriftResult](thresholds.HistoryCapacity),
		perfHistory:  newRing[PerformanceMetricResult](thresholds.HistoryCapacity),
		triggers:     newRing[RetrainingTrigger](thresholds.HistoryCapacity),
	}
}

// Thresholds returns the merged limits the engine is running with.
func (e *Engine) Thresholds() Thresholds {
	return e.limits()
}

// UpdateThresholds replaces the engine's limits with the defaults
// merged with o. Intended for config hot-reload. HistoryCapacity
// changes only apply to a new engine; existing rings keep their size.
func (e *Engine) UpdateThresholds(o *ThresholdOverrides) {
	e.mu.Lock()
	e.thresholds = DefaultThresholds().Merge(o)
	e.mu.Unlock()
}

func (e *Engine) limits() Thresholds {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.thresholds
}

// =============================================================================
// Drift detection
// =============================================================================

// DriftCheck describes one distribution comparison. BaselinePeriod and
// CurrentPeriod are free-form labels carried into the result; they
// default to "baseline" and "current" when empty.
type DriftCheck struct {
	ModelName      string
	ModelVersion   string
	Baseline       []float64
	Current        []float64
	Method         Method
	BaselinePeriod string
	CurrentPeriod  string
}

// DetectPredictionDrift compares the model's baseline prediction
// distribution against the current one using the requested method.
//
// # Description
//
// A detected drift is recorded in history, published to the sink, and
// raises a retraining trigger. The result's DriftDetected flag is
// derived from the statistic versus the method's threshold; callers
// never set it.
//
// # Outputs
//
//   - DriftResult: the recorded comparison outcome.
//   - error: validation failure, empty input, or an unknown method.
func (e *Engine) DetectPredictionDrift(ctx context.Context, check DriftCheck) (DriftResult, error) {
	return e.detectDrift(ctx, check, CategoryPrediction)
}

// DetectTargetDrift compares the observed label distribution against
// the training baseline. Identical mechanics to prediction drift under
// the "target" category, so concept drift shows up separately in
// history and reports.
func (e *Engine) DetectTargetDrift(ctx context.Context, check DriftCheck) (DriftResult, error) {
	return e.detectDrift(ctx, check, CategoryTarget)
}

func (e *Engine) detectDrift(ctx context.Context, check DriftCheck, category string) (DriftResult, error) {
	start := time.Now()

	if err := validation.ValidateModelName(check.ModelName); err != nil {
		return DriftResult{}, err
	}
	if err := validation.ValidateVersion(check.ModelVersion); err != nil {
		return DriftResult{}, err
	}

	result, err := e.runDetection(check)
	e.metrics.RecordEvaluation(category+"_drift", err, time.Since(start).Seconds())
	if err != nil {
		return DriftResult{}, err
	}
	result.DriftCategory = category

	e.recordDrift(ctx, result)
	return result, nil
}

// runDetection dispatches to the statistical kit and maps the outcome
// into a DriftResult without category or bookkeeping fields.
func (e *Engine) runDetection(check DriftCheck) (DriftResult, error) {
	t := e.limits()
	result := DriftResult{
		ModelName:      check.ModelName,
		ModelVersion:   check.ModelVersion,
		Method:         check.Method,
		BaselinePeriod: check.BaselinePeriod,
		CurrentPeriod:  check.CurrentPeriod,
		Timestamp:      time.Now().UTC(),
	}
	if result.BaselinePeriod == "" {
		result.BaselinePeriod = "baseline"
	}
	if result.CurrentPeriod == "" {
		result.CurrentPeriod = "current"
	}

	switch check.Method {
	case MethodPSI:
		res, err := drift.PopulationStability(check.Baseline, check.Current, t.NumBins, t.PSIThreshold)
		if err != nil {
			return DriftResult{}, err
		}
		result.DriftScore = res.PSI
		result.Threshold = t.PSIThreshold
		result.DriftDetected = res.DriftDetected

	case MethodKSTest:
		res, err := drift.KolmogorovSmirnov(check.Baseline, check.Current, t.SignificanceLevel)
		if err != nil {
			return DriftResult{}, err
		}
		p := res.PValue
		result.DriftScore = res.Statistic
		result.PValue = &p
		result.Threshold = t.SignificanceLevel
		result.DriftDetected = res.DriftDetected

	case MethodChiSquare:
		res, err := drift.ChiSquare(check.Baseline, check.Current, t.NumBins, t.SignificanceLevel)
		if err != nil {
			return DriftResult{}, err
		}
		p := res.PValue
		result.DriftScore = res.Statistic
		result.PValue = &p
		result.Threshold = t.SignificanceLevel
		result.DriftDetected = res.DriftDetected

	default:
		return DriftResult{}, fmt.Errorf("%w: %q", ErrUnknownMethod, check.Method)
	}

	return result, nil
}

// recordDrift appends the result to history, raises a trigger when
// drift was detected, and publishes best-effort.
func (e *Engine) recordDrift(ctx context.Context, result DriftResult) {
	e.mu.Lock()
	e.driftHistory.append(result)
	e.metrics.SetHistorySize("drift", e.driftHistory.len())
	var trigger *RetrainingTrigger
	if result.DriftDetected {
		t := e.newDriftTrigger(result)
		e.triggers.append(t)
		e.metrics.SetHistorySize("triggers", e.triggers.len())
		trigger = &t
	}
	e.mu.Unlock()

	if trigger != nil {
		e.metrics.RecordTrigger(string(trigger.TriggerType), string(trigger.Severity))
		e.logger.Warn("drift detected, retraining trigger raised",
			"model", result.ModelName,
			"version", result.ModelVersion,
			"category", result.DriftCategory,
			"method", string(result.Method),
			"drift_score", result.DriftScore,
			"trigger_id", trigger.TriggerID,
		)
	}

	if err := e.sink.PublishDrift(ctx, result.ModelName, result.ModelVersion, result.DriftScore, result.DriftDetected); err != nil {
		e.metrics.RecordSinkFailure("drift")
		e.logger.Warn("drift publish failed",
			"model", result.ModelName, "version", result.ModelVersion, "error", err)
	}
	if e.archive != nil {
		if err := e.archive.AppendDrift(ctx, result); err != nil {
			e.logger.Warn("drift archive append failed",
				"model", result.ModelName, "version", result.ModelVersion, "error", err)
		}
		if trigger != nil {
			if err := e.archive.AppendTrigger(ctx, *trigger); err != nil {
				e.logger.Warn("trigger archive append failed",
					"trigger_id", trigger.TriggerID, "error", err)
			}
		}
	}
}

func (e *Engine) newDriftTrigger(result DriftResult) RetrainingTrigger {
	metrics := map[string]float64{"drift_score": result.DriftScore}
	if result.PValue != nil {
		metrics["p_value"] = *result.PValue
	}
	return RetrainingTrigger{
		TriggerID:    uuid.NewString(),
		ModelName:    result.ModelName,
		ModelVersion: result.ModelVersion,
		Reason: fmt.Sprintf("%s drift detected by %s (score=%.4f, threshold=%.4f)",
			result.DriftCategory, result.Method, result.DriftScore, result.Threshold),
		TriggerType:         TriggerDrift,
		Severity:            e.severityFor(result),
		Metrics:             metrics,
		CreatedAt:           time.Now().UTC(),
		RecommendRetraining: true,
	}
}

// severityFor grades a detected drift. Currently every confirmed drift
// is high severity; graded severities keyed on how far the score
// overshoots the threshold plug in here.
func (e *Engine) severityFor(DriftResult) Severity {
	return SeverityHigh
}

// =============================================================================
// Feature drift
// =============================================================================

// DetectFeatureDrift runs the requested drift test per feature,
// comparing baseline and current sample sets feature by feature.
//
// # Description
//
// featureNames selects the columns to check and fixes the output
// order; an empty list means every baseline feature, sorted by name.
// Features are checked concurrently. A named feature missing from
// either table, or left empty after dropping non-finite values, is
// skipped with a warning rather than failing the whole pass. Each
// drifted feature raises its own trigger; when at least the
// configured fraction of checked features drift, one aggregate
// trigger is raised on top.
//
// # Outputs
//
//   - []DriftResult: one entry per checked feature, category
//     "feature:<name>".
//   - error: validation failure, unknown method, or no checkable
//     features.
func (e *Engine) DetectFeatureDrift(ctx context.Context, model, version string, baseline, current map[string][]float64, featureNames []string, method Method) ([]DriftResult, error) {
	start := time.Now()

	if err := validation.ValidateModelName(model); err != nil {
		return nil, err
	}
	if err := validation.ValidateVersion(version); err != nil {
		return nil, err
	}
	switch method {
	case MethodPSI, MethodKSTest, MethodChiSquare:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
	if len(baseline) == 0 {
		return nil, fmt.Errorf("feature drift: %w", drift.ErrEmptyInput)
	}

	names := featureNames
	if len(names) == 0 {
		names = make([]string, 0, len(baseline))
		for name := range baseline {
			names = append(names, name)
		}
		sort.Strings(names)
	}

	// One slot per feature keeps the output ordering independent of
	// worker completion order. Skipped features leave their slot nil.
	slots := make([]*DriftResult, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(featureDriftConcurrency)
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			base, ok := baseline[name]
			if !ok {
				e.logger.Warn("feature missing from baseline window, skipping",
					"model", model, "version", version, "feature", name)
				return nil
			}
			cur, ok := current[name]
			if !ok {
				e.logger.Warn("feature missing from current window, skipping",
					"model", model, "version", version, "feature", name)
				return nil
			}
			base = dropNonFinite(base)
			cur = dropNonFinite(cur)
			if len(base) == 0 || len(cur) == 0 {
				e.logger.Warn("feature has no finite samples, skipping",
					"model", model, "version", version, "feature", name)
				return nil
			}

			result, err := e.runDetection(DriftCheck{
				ModelName:    model,
				ModelVersion: version,
				Baseline:     base,
				Current:      cur,
				Method:       method,
			})
			if err != nil {
				e.logger.Warn("feature drift check failed, skipping",
					"model", model, "version", version, "feature", name, "error", err)
				return nil
			}
			result.DriftCategory = featureCategory + name
			slots[i] = &result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.metrics.RecordEvaluation("feature_drift", err, time.Since(start).Seconds())
		return nil, err
	}

	results := make([]DriftResult, 0, len(slots))
	drifted := 0
	for _, r := range slots {
		if r == nil {
			continue
		}
		results = append(results, *r)
		if r.DriftDetected {
			drifted++
		}
	}
	e.metrics.RecordEvaluation("feature_drift", nil, time.Since(start).Seconds())
	if len(results) == 0 {
		return nil, fmt.Errorf("feature drift: no checkable features: %w", drift.ErrEmptyInput)
	}

	for _, r := range results {
		e.recordDrift(ctx, r)
	}

	ratio := float64(drifted) / float64(len(results))
	if ratio >= e.limits().FeatureDriftAlertRatio {
		e.raiseAggregateFeatureTrigger(ctx, model, version, drifted, len(results), ratio)
	}

	return results, nil
}

func (e *Engine) raiseAggregateFeatureTrigger(ctx context.Context, model, version string, drifted, checked int, ratio float64) {
	trigger := RetrainingTrigger{
		TriggerID:    uuid.NewString(),
		ModelName:    model,
		ModelVersion: version,
		Reason: fmt.Sprintf("widespread feature drift: %d of %d features drifted (%.0f%%)",
			drifted, checked, ratio*100),
		TriggerType: TriggerDrift,
		Severity:    SeverityHigh,
		Metrics: map[string]float64{
			"drifted_features": float64(drifted),
			"checked_features": float64(checked),
			"drift_ratio":      ratio,
		},
		CreatedAt:           time.Now().UTC(),
		RecommendRetraining: true,
	}

	e.mu.Lock()
	e.triggers.append(trigger)
	e.metrics.SetHistorySize("triggers", e.triggers.len())
	e.mu.Unlock()

	e.metrics.RecordTrigger(string(trigger.TriggerType), string(trigger.Severity))
	e.logger.Error("widespread feature drift",
		"model", model, "version", version,
		"drifted", drifted, "checked", checked, "ratio", ratio,
		"trigger_id", trigger.TriggerID,
	)
	if e.archive != nil {
		if err := e.archive.AppendTrigger(ctx, trigger); err != nil {
			e.logger.Warn("trigger archive append failed",
				"trigger_id", trigger.TriggerID, "error", err)
		}
	}
}

// dropNonFinite copies values with NaN and infinities removed.
func dropNonFinite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// =============================================================================
// Performance monitoring
// =============================================================================

// MonitorRegressionPerformance computes regression error metrics over a
// prediction window and compares each against its baseline.
//
// # Description
//
// Every computed metric is recorded and published whether or not it
// breaches. A metric breaches when it degrades past its configured
// percentage limit relative to the baseline value; metrics without a
// baseline, with a zero baseline, or without a configured limit are
// published uncompared. Any breach raises one combined
// performance-degradation trigger.
func (e *Engine) MonitorRegressionPerformance(ctx context.Context, model, version string, predictions, actuals []float64, baselineMetrics map[string]float64, period string) ([]PerformanceMetricResult, error) {
	start := time.Now()
	metrics, err := perf.RegressionMetrics(predictions, actuals)
	e.metrics.RecordEvaluation("regression", err, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	return e.recordPerformanceWithBaseline(ctx, model, version, metrics, baselineMetrics, len(predictions), period)
}

// MonitorRankingPerformance computes ranking quality metrics over a
// recommendation window and compares each against its baseline. The
// same recording, publishing, and trigger rules as regression apply.
func (e *Engine) MonitorRankingPerformance(ctx context.Context, model, version string, recommendations, groundTruth map[string][]string, kValues []int, baselineMetrics map[string]float64, period string) ([]PerformanceMetricResult, error) {
	start := time.Now()
	metrics, err := perf.RankingMetrics(recommendations, groundTruth, kValues)
	e.metrics.RecordEvaluation("ranking", err, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	return e.recordPerformanceWithBaseline(ctx, model, version, metrics, baselineMetrics, len(recommendations), period)
}

func (e *Engine) recordPerformanceWithBaseline(ctx context.Context, model, version string, metrics, baselineMetrics map[string]float64, sampleCount int, period string) ([]PerformanceMetricResult, error) {
	if err := validation.ValidateModelName(model); err != nil {
		return nil, err
	}
	if err := validation.ValidateVersion(version); err != nil {
		return nil, err
	}
	if period == "" {
		period = "current"
	}

	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	now := time.Now().UTC()
	results := make([]PerformanceMetricResult, 0, len(names))
	var breached []PerformanceMetricResult
	for _, name := range names {
		r := PerformanceMetricResult{
			ModelName:    model,
			ModelVersion: version,
			MetricName:   name,
			MetricValue:  metrics[name],
			SampleCount:  sampleCount,
			Period:       period,
			Timestamp:    now,
		}
		if thr, ok := e.breachThreshold(name, baselineMetrics); ok {
			r.Threshold = &thr.value
			r.ThresholdBreached = thr.breached(metrics[name])
		}
		results = append(results, r)
		if r.ThresholdBreached {
			breached = append(breached, r)
		}
	}

	e.mu.Lock()
	for _, r := range results {
		e.perfHistory.append(r)
	}
	e.metrics.SetHistorySize("performance", e.perfHistory.len())
	var trigger *RetrainingTrigger
	if len(breached) > 0 {
		t := e.newDegradationTrigger(model, version, breached)
		e.triggers.append(t)
		e.metrics.SetHistorySize("triggers", e.triggers.len())
		trigger = &t
	}
	e.mu.Unlock()

	if trigger != nil {
		e.metrics.RecordTrigger(string(trigger.TriggerType), string(trigger.Severity))
		e.logger.Warn("performance degradation, retraining trigger raised",
			"model", model, "version", version,
			"breached_metrics", len(breached),
			"trigger_id", trigger.TriggerID,
		)
	}

	if _, err := e.sink.PublishBatch(ctx, model, version, metrics, "none"); err != nil {
		e.metrics.RecordSinkFailure("performance")
		e.logger.Warn("performance publish failed",
			"model", model, "version", version, "error", err)
	}
	if e.archive != nil {
		for _, r := range results {
			if err := e.archive.AppendPerformance(ctx, r); err != nil {
				e.logger.Warn("performance archive append failed",
					"model", model, "version", version, "metric", r.MetricName, "error", err)
				break
			}
		}
		if trigger != nil {
			if err := e.archive.AppendTrigger(ctx, *trigger); err != nil {
				e.logger.Warn("trigger archive append failed",
					"trigger_id", trigger.TriggerID, "error", err)
			}
		}
	}

	return results, nil
}

// breach captures a resolved comparison threshold for one metric.
type breach struct {
	value float64
	dir   metricDirection
}

func (b breach) breached(value float64) bool {
	if b.dir == higherIsWorse {
		return value > b.value
	}
	return value < b.value
}

// breachThreshold resolves the comparison threshold for a metric, or
// ok=false when the metric cannot be compared: no configured limit, no
// baseline entry, or a zero baseline that would make the percentage
// degenerate.
func (e *Engine) breachThreshold(metric string, baselineMetrics map[string]float64) (breach, bool) {
	limit, dir, ok := e.limits().degradationLimit(metric)
	if !ok {
		return breach{}, false
	}
	base, ok := baselineMetrics[metric]
	if !ok || base == 0 {
		return breach{}, false
	}
	margin := limit * math.Abs(base) / 100
	if dir == higherIsWorse {
		return breach{value: base + margin, dir: dir}, true
	}
	return breach{value: base - margin, dir: dir}, true
}

func (e *Engine) newDegradationTrigger(model, version string, breached []PerformanceMetricResult) RetrainingTrigger {
	names := make([]string, 0, len(breached))
	metrics := make(map[string]float64, len(breached))
	for _, r := range breached {
		names = append(names, r.MetricName)
		metrics[r.MetricName] = r.MetricValue
	}
	return RetrainingTrigger{
		TriggerID:    uuid.NewString(),
		ModelName:    model,
		ModelVersion: version,
		Reason: fmt.Sprintf("performance degradation on %s",
			strings.Join(names, ", ")),
		TriggerType:         TriggerPerformanceDegradation,
		Severity:            SeverityHigh,
		Metrics:             metrics,
		CreatedAt:           time.Now().UTC(),
		RecommendRetraining: true,
	}
}

// =============================================================================
// History and reporting
// =============================================================================

// GetDriftHistory returns recorded drift results newest first. Empty
// model, version, or category match everything; limit <= 0 means no
// truncation. The returned slice is a copy.
func (e *Engine) GetDriftHistory(model, version, category string, limit int) []DriftResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.driftHistory.filtered(func(r DriftResult) bool {
		return (model == "" || r.ModelName == model) &&
			(version == "" || r.ModelVersion == version) &&
			(category == "" || r.DriftCategory == category)
	}, limit)
}

// GetPerformanceHistory returns recorded performance results newest
// first, with the same empty-means-any filter semantics as
// GetDriftHistory.
func (e *Engine) GetPerformanceHistory(model, version, metric string, limit int) []PerformanceMetricResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.perfHistory.filtered(func(r PerformanceMetricResult) bool {
		return (model == "" || r.ModelName == model) &&
			(version == "" || r.ModelVersion == version) &&
			(metric == "" || r.MetricName == metric)
	}, limit)
}

// GetRetrainingTriggers returns raised triggers newest first, filtered
// the same way, with an optional severity filter on top.
func (e *Engine) GetRetrainingTriggers(model, version string, severity Severity, limit int) []RetrainingTrigger {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.triggers.filtered(func(t RetrainingTrigger) bool {
		return (model == "" || t.ModelName == model) &&
			(version == "" || t.ModelVersion == version) &&
			(severity == "" || t.Severity == severity)
	}, limit)
}

// GenerateMonitoringReport summarizes one model version: check counts,
// drift rate, breach and trigger counts, and the most recent entries
// from each history. recent bounds the recent drift and performance
// slices and defaults to 10; Triggers always carries every trigger for
// the model version.
func (e *Engine) GenerateMonitoringReport(model, version string, recent int) Report {
	if recent <= 0 {
		recent = defaultReportRecent
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	matchDrift := func(r DriftResult) bool {
		return r.ModelName == model && r.ModelVersion == version
	}
	matchPerf := func(r PerformanceMetricResult) bool {
		return r.ModelName == model && r.ModelVersion == version
	}
	matchTrigger := func(t RetrainingTrigger) bool {
		return t.ModelName == model && t.ModelVersion == version
	}

	allDrift := e.driftHistory.filtered(matchDrift, 0)
	allPerf := e.perfHistory.filtered(matchPerf, 0)
	allTriggers := e.triggers.filtered(matchTrigger, 0)

	report := Report{
		ModelName:              model,
		ModelVersion:           version,
		GeneratedAt:            time.Now().UTC(),
		TotalDriftChecks:       len(allDrift),
		TotalPerformanceChecks: len(allPerf),
		TriggerCount:           len(allTriggers),
		RecentDrift:            truncate(allDrift, recent),
		RecentPerformance:      truncate(allPerf, recent),
		Triggers:               allTriggers,
	}
	for _, r := range allDrift {
		if r.DriftDetected {
			report.DriftDetectedCount++
		}
	}
	for _, r := range allPerf {
		if r.ThresholdBreached {
			report.ThresholdBreachCount++
		}
	}
	if report.TotalDriftChecks > 0 {
		report.DriftRate = float64(report.DriftDetectedCount) / float64(report.TotalDriftChecks)
	}
	return report
}

// ClearHistory drops recorded results and triggers. An empty model
// clears everything; otherwise only entries for that model (and, when
// version is set, that version) are removed.
func (e *Engine) ClearHistory(model, version string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if model == "" {
		e.driftHistory.clear()
		e.perfHistory.clear()
		e.triggers.clear()
	} else {
		match := func(m, v string) bool {
			return m == model && (version == "" || v == version)
		}
		e.driftHistory.items = discard(e.driftHistory.items, func(r DriftResult) bool {
			return match(r.ModelName, r.ModelVersion)
		})
		e.perfHistory.items = discard(e.perfHistory.items, func(r PerformanceMetricResult) bool {
			return match(r.ModelName, r.ModelVersion)
		})
		e.triggers.items = discard(e.triggers.items, func(t RetrainingTrigger) bool {
			return match(t.ModelName, t.ModelVersion)
		})
	}

	e.metrics.SetHistorySize("drift", e.driftHistory.len())
	e.metrics.SetHistorySize("performance", e.perfHistory.len())
	e.metrics.SetHistorySize("triggers", e.triggers.len())
}

// truncate returns at most n leading entries of s as-is. The filtered
// inputs are already newest first.
func truncate[T any](s []T, n int) []T {
	if len(s) > n {
		s = s[:n]
	}
	return s
}

// discard removes entries matching drop, in place, preserving order.
func discard[T any](s []T, drop func(T) bool) []T {
	out := s[:0]
	for _, item := range s {
		if !drop(item) {
			out = append(out, item)
		}
	}
	return out
}
