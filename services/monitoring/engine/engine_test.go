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
	"math/rand"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwatch/driftwatch/services/monitoring/observability"
	"github.com/driftwatch/driftwatch/services/monitoring/sink"
)

func normalSample(rng *rand.Rand, n int, mean, stddev float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = mean + stddev*rng.NormFloat64()
	}
	return out
}

func newTestEngine(t *testing.T) (*Engine, *sink.BufferedSink) {
	t.Helper()
	buf := sink.NewBufferedSink()
	return New(Options{Sink: buf}), buf
}

// failingSink errors on every publish.
type failingSink struct{}

func (failingSink) PublishScalar(context.Context, string, string, string, float64, string, map[string]string) error {
	return errors.New("publish refused")
}

func (failingSink) PublishBatch(context.Context, string, string, map[string]float64, string) (int, error) {
	return 0, errors.New("publish refused")
}

func (failingSink) PublishDrift(context.Context, string, string, float64, bool) error {
	return errors.New("publish refused")
}

func TestDetectPredictionDrift_ShiftedDistribution(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	baseline := normalSample(rng, 1000, 100, 15)
	current := normalSample(rng, 500, 150, 30)

	for _, method := range []Method{MethodPSI, MethodKSTest, MethodChiSquare} {
		t.Run(string(method), func(t *testing.T) {
			eng, buf := newTestEngine(t)

			result, err := eng.DetectPredictionDrift(context.Background(), DriftCheck{
				ModelName:    "churn",
				ModelVersion: "v1",
				Baseline:     baseline,
				Current:      current,
				Method:       method,
			})
			require.NoError(t, err)

			assert.True(t, result.DriftDetected)
			assert.Equal(t, CategoryPrediction, result.DriftCategory)
			assert.Equal(t, method, result.Method)
			assert.Equal(t, "baseline", result.BaselinePeriod)
			assert.Equal(t, "current", result.CurrentPeriod)

			// The result carries the configured cutoff it was judged
			// against.
			wantThreshold := DefaultThresholds().SignificanceLevel
			if method == MethodPSI {
				wantThreshold = DefaultThresholds().PSIThreshold
			}
			assert.Equal(t, wantThreshold, result.Threshold)

			triggers := eng.GetRetrainingTriggers("churn", "v1", "", 0)
			require.Len(t, triggers, 1)
			assert.Equal(t, TriggerDrift, triggers[0].TriggerType)
			assert.Equal(t, SeverityHigh, triggers[0].Severity)
			assert.True(t, triggers[0].RecommendRetraining)
			assert.NotEmpty(t, triggers[0].TriggerID)

			drifts := buf.Drifts()
			require.Len(t, drifts, 1)
			assert.True(t, drifts[0].DriftDetected)
		})
	}
}

func TestDetectPredictionDrift_StableDistribution(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	baseline := normalSample(rng, 1000, 100, 15)
	current := normalSample(rng, 800, 100, 15)

	eng, _ := newTestEngine(t)
	result, err := eng.DetectPredictionDrift(context.Background(), DriftCheck{
		ModelName:    "churn",
		ModelVersion: "v1",
		Baseline:     baseline,
		Current:      current,
		Method:       MethodPSI,
	})
	require.NoError(t, err)

	assert.False(t, result.DriftDetected)
	assert.Empty(t, eng.GetRetrainingTriggers("churn", "v1", "", 0))
	assert.Len(t, eng.GetDriftHistory("churn", "v1", "", 0), 1)
}

func TestDetectDrift_EvaluationKinds(t *testing.T) {
	rng := rand.New(rand.NewSource(19))
	samples := normalSample(rng, 300, 0, 1)
	samples2 := normalSample(rng, 300, 0, 1)

	// Registers against the default registry; once per test binary.
	metrics := observability.InitMetrics()
	eng := New(Options{Sink: sink.NewBufferedSink(), Metrics: metrics})

	check := DriftCheck{
		ModelName:    "churn",
		ModelVersion: "v1",
		Baseline:     samples,
		Current:      samples2,
		Method:       MethodPSI,
	}
	_, err := eng.DetectPredictionDrift(context.Background(), check)
	require.NoError(t, err)
	_, err = eng.DetectTargetDrift(context.Background(), check)
	require.NoError(t, err)

	// The two drift categories count under distinct kinds.
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EvaluationsTotal.WithLabelValues("prediction_drift", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EvaluationsTotal.WithLabelValues("target_drift", "ok")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.EvaluationsTotal.WithLabelValues("drift", "ok")))
}

func TestDetectTargetDrift_Category(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	eng, _ := newTestEngine(t)

	result, err := eng.DetectTargetDrift(context.Background(), DriftCheck{
		ModelName:    "churn",
		ModelVersion: "v1",
		Baseline:     normalSample(rng, 400, 0, 1),
		Current:      normalSample(rng, 400, 0, 1),
		Method:       MethodKSTest,
	})
	require.NoError(t, err)
	assert.Equal(t, CategoryTarget, result.DriftCategory)
	require.NotNil(t, result.PValue)

	history := eng.GetDriftHistory("churn", "v1", CategoryTarget, 0)
	assert.Len(t, history, 1)
	assert.Empty(t, eng.GetDriftHistory("churn", "v1", CategoryPrediction, 0))
}

func TestDetectPredictionDrift_InputErrors(t *testing.T) {
	eng, _ := newTestEngine(t)
	samples := []float64{1, 2, 3}

	tests := []struct {
		name  string
		check DriftCheck
		want  error
	}{
		{
			name: "unknown method",
			check: DriftCheck{
				ModelName: "churn", ModelVersion: "v1",
				Baseline: samples, Current: samples,
				Method: Method("wasserstein"),
			},
			want: ErrUnknownMethod,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := eng.DetectPredictionDrift(context.Background(), tt.check)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("invalid model name", func(t *testing.T) {
		_, err := eng.DetectPredictionDrift(context.Background(), DriftCheck{
			ModelName: "bad name with spaces", ModelVersion: "v1",
			Baseline: samples, Current: samples, Method: MethodPSI,
		})
		assert.Error(t, err)
	})

	assert.Empty(t, eng.GetDriftHistory("", "", "", 0), "failed checks must not be recorded")
}

func TestDetectFeatureDrift(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	baseline := map[string][]float64{
		"age":    normalSample(rng, 500, 40, 8),
		"income": normalSample(rng, 500, 60000, 12000),
		"tenure": normalSample(rng, 500, 24, 6),
	}
	current := map[string][]float64{
		"age":    normalSample(rng, 500, 40, 8),
		// Strong shift.
		"income": normalSample(rng, 500, 95000, 25000),
		"tenure": {math.NaN(), math.Inf(1)},
	}

	eng, _ := newTestEngine(t)
	results, err := eng.DetectFeatureDrift(context.Background(), "churn", "v1", baseline, current, nil, MethodPSI)
	require.NoError(t, err)

	// tenure has no finite current samples and is skipped.
	require.Len(t, results, 2)
	assert.Equal(t, "feature:age", results[0].DriftCategory)
	assert.Equal(t, "feature:income", results[1].DriftCategory)
	assert.False(t, results[0].DriftDetected)
	assert.True(t, results[1].DriftDetected)

	// 1 of 2 checked features drifted (50% >= 30%): one per-feature
	// trigger plus the aggregate one, newest first.
	triggers := eng.GetRetrainingTriggers("churn", "v1", "", 0)
	require.Len(t, triggers, 2)
	assert.Equal(t, SeverityHigh, triggers[0].Severity)
	assert.Equal(t, float64(2), triggers[0].Metrics["checked_features"])
	assert.Equal(t, float64(1), triggers[0].Metrics["drifted_features"])
	assert.Equal(t, SeverityHigh, triggers[1].Severity)
	assert.Contains(t, triggers[1].Reason, "feature:income")

	assert.Len(t, eng.GetRetrainingTriggers("churn", "v1", SeverityHigh, 0), 2)
	assert.Empty(t, eng.GetRetrainingTriggers("churn", "v1", SeverityCritical, 0))
}

func TestDetectFeatureDrift_NamedFeatures(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	baseline := map[string][]float64{
		"age":    normalSample(rng, 500, 40, 8),
		"income": normalSample(rng, 500, 60000, 12000),
	}
	current := map[string][]float64{
		"age":    normalSample(rng, 500, 40, 8),
		"income": normalSample(rng, 500, 60000, 12000),
	}

	eng, _ := newTestEngine(t)
	results, err := eng.DetectFeatureDrift(context.Background(), "churn", "v1",
		baseline, current, []string{"income", "age", "missing"}, MethodPSI)
	require.NoError(t, err)

	// The name list fixes the output order; unknown names are skipped.
	require.Len(t, results, 2)
	assert.Equal(t, "feature:income", results[0].DriftCategory)
	assert.Equal(t, "feature:age", results[1].DriftCategory)
}

func TestDetectFeatureDrift_NoCheckableFeatures(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.DetectFeatureDrift(context.Background(), "churn", "v1",
		map[string][]float64{}, map[string][]float64{}, nil, MethodPSI)
	assert.Error(t, err)

	_, err = eng.DetectFeatureDrift(context.Background(), "churn", "v1",
		map[string][]float64{"age": {1, 2, 3}},
		map[string][]float64{"other": {1, 2, 3}},
		nil, MethodPSI)
	assert.Error(t, err, "all features skipped must surface as an error")
}

func TestMonitorRegressionPerformance_Breaches(t *testing.T) {
	eng, buf := newTestEngine(t)

	actuals := []float64{100, 100, 100, 100}
	predictions := []float64{110, 110, 110, 110}
	baseline := map[string]float64{"mae": 5, "rmse": 5, "r2": 0.9, "mape": 4}

	results, err := eng.MonitorRegressionPerformance(context.Background(),
		"prices", "v2", predictions, actuals, baseline, "2026-08")
	require.NoError(t, err)
	require.Len(t, results, 4)

	byName := make(map[string]PerformanceMetricResult, len(results))
	for _, r := range results {
		byName[r.MetricName] = r
		assert.Equal(t, "2026-08", r.Period)
		assert.Equal(t, 4, r.SampleCount)
	}

	// MAE 10 vs baseline 5 with a 10% limit: threshold 5.5, breached.
	require.NotNil(t, byName["mae"].Threshold)
	assert.InDelta(t, 5.5, *byName["mae"].Threshold, 1e-9)
	assert.True(t, byName["mae"].ThresholdBreached)
	assert.True(t, byName["rmse"].ThresholdBreached)

	// Constant actuals make R² degenerate (0.0), below 0.9 - 5%.
	assert.True(t, byName["r2"].ThresholdBreached)

	// MAPE is published but never compared, baseline entry or not.
	assert.Nil(t, byName["mape"].Threshold)
	assert.False(t, byName["mape"].ThresholdBreached)

	triggers := eng.GetRetrainingTriggers("prices", "v2", "", 0)
	require.Len(t, triggers, 1)
	assert.Equal(t, TriggerPerformanceDegradation, triggers[0].TriggerType)
	assert.Contains(t, triggers[0].Metrics, "mae")
	assert.Contains(t, triggers[0].Metrics, "r2")
	assert.NotContains(t, triggers[0].Metrics, "mape")

	assert.NotEmpty(t, buf.Scalars())
}

func TestMonitorRegressionPerformance_NoBaseline(t *testing.T) {
	eng, _ := newTestEngine(t)

	results, err := eng.MonitorRegressionPerformance(context.Background(),
		"prices", "v2", []float64{1, 2, 3}, []float64{1, 2, 3}, nil, "")
	require.NoError(t, err)

	for _, r := range results {
		assert.Nil(t, r.Threshold, r.MetricName)
		assert.False(t, r.ThresholdBreached, r.MetricName)
		assert.Equal(t, "current", r.Period)
	}
	assert.Empty(t, eng.GetRetrainingTriggers("prices", "v2", "", 0))
}

func TestMonitorRegressionPerformance_BreachMonotonicity(t *testing.T) {
	// A worse prediction set must never flip a breached metric back to
	// unbreached.
	eng, _ := newTestEngine(t)
	actuals := []float64{100, 200, 300, 400}
	baseline := map[string]float64{"mae": 5}

	var prevBreached bool
	for i, offset := range []float64{0, 10, 50, 200} {
		predictions := make([]float64, len(actuals))
		for j, a := range actuals {
			predictions[j] = a + offset
		}
		results, err := eng.MonitorRegressionPerformance(context.Background(),
			"prices", "v2", predictions, actuals, baseline, "current")
		require.NoError(t, err)

		var mae PerformanceMetricResult
		for _, r := range results {
			if r.MetricName == "mae" {
				mae = r
			}
		}
		if prevBreached {
			assert.True(t, mae.ThresholdBreached, "step %d", i)
		}
		prevBreached = mae.ThresholdBreached
	}
	assert.True(t, prevBreached)
}

func TestMonitorRankingPerformance(t *testing.T) {
	eng, _ := newTestEngine(t)

	recommendations := map[string][]string{"u1": {"a", "b", "c", "d", "e"}}
	groundTruth := map[string][]string{"u1": {"a", "b"}}
	baseline := map[string]float64{"precision_at_5": 0.8, "map": 1.0}

	results, err := eng.MonitorRankingPerformance(context.Background(),
		"recs", "v1", recommendations, groundTruth, []int{5}, baseline, "current")
	require.NoError(t, err)

	byName := make(map[string]PerformanceMetricResult, len(results))
	for _, r := range results {
		byName[r.MetricName] = r
	}

	require.Contains(t, byName, "precision_at_5")
	assert.InDelta(t, 0.4, byName["precision_at_5"].MetricValue, 1e-9)
	assert.True(t, byName["precision_at_5"].ThresholdBreached)

	// Both relevant items sit at the top: AP is exactly 1.0.
	assert.InDelta(t, 1.0, byName["map"].MetricValue, 1e-9)
	assert.False(t, byName["map"].ThresholdBreached)

	// recall_at_5 has no baseline entry.
	assert.Nil(t, byName["recall_at_5"].Threshold)
}

func TestEngine_SinkFailuresAreSwallowed(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	eng := New(Options{Sink: failingSink{}})

	_, err := eng.DetectPredictionDrift(context.Background(), DriftCheck{
		ModelName:    "churn",
		ModelVersion: "v1",
		Baseline:     normalSample(rng, 300, 0, 1),
		Current:      normalSample(rng, 300, 5, 1),
		Method:       MethodKSTest,
	})
	require.NoError(t, err)

	_, err = eng.MonitorRegressionPerformance(context.Background(),
		"churn", "v1", []float64{1, 2}, []float64{1, 2}, nil, "")
	require.NoError(t, err)

	// Local history stays authoritative even when every publish fails.
	assert.Len(t, eng.GetDriftHistory("churn", "v1", "", 0), 1)
	assert.NotEmpty(t, eng.GetPerformanceHistory("churn", "v1", "", 0))
}

func TestEngine_ConcurrentChecks(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	baseline := normalSample(rng, 200, 10, 2)
	current := normalSample(rng, 200, 10, 2)

	eng, _ := newTestEngine(t)
	const workers = 16

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := eng.DetectPredictionDrift(context.Background(), DriftCheck{
				ModelName:    fmt.Sprintf("model-%d", i),
				ModelVersion: "v1",
				Baseline:     baseline,
				Current:      current,
				Method:       MethodPSI,
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Len(t, eng.GetDriftHistory("", "", "", 0), workers)
	assert.Len(t, eng.GetDriftHistory("model-3", "v1", "", 0), 1)
}

func TestGetDriftHistory_OrderAndLimit(t *testing.T) {
	eng, _ := newTestEngine(t)
	samples := []float64{1, 2, 3, 4, 5}

	for _, period := range []string{"p1", "p2", "p3"} {
		_, err := eng.DetectPredictionDrift(context.Background(), DriftCheck{
			ModelName:     "churn",
			ModelVersion:  "v1",
			Baseline:      samples,
			Current:       samples,
			Method:        MethodPSI,
			CurrentPeriod: period,
		})
		require.NoError(t, err)
	}

	history := eng.GetDriftHistory("churn", "v1", "", 0)
	require.Len(t, history, 3)
	assert.Equal(t, "p3", history[0].CurrentPeriod, "newest first")
	assert.Equal(t, "p1", history[2].CurrentPeriod)

	limited := eng.GetDriftHistory("churn", "v1", "", 2)
	require.Len(t, limited, 2)
	assert.Equal(t, "p3", limited[0].CurrentPeriod)
}

func TestHistoryCapacityEviction(t *testing.T) {
	capacity := 5
	eng := New(Options{Thresholds: &ThresholdOverrides{HistoryCapacity: &capacity}})
	samples := []float64{1, 2, 3, 4, 5}

	for i := 0; i < 8; i++ {
		_, err := eng.DetectPredictionDrift(context.Background(), DriftCheck{
			ModelName:     "churn",
			ModelVersion:  "v1",
			Baseline:      samples,
			Current:       samples,
			Method:        MethodPSI,
			CurrentPeriod: fmt.Sprintf("p%d", i),
		})
		require.NoError(t, err)
	}

	history := eng.GetDriftHistory("churn", "v1", "", 0)
	require.Len(t, history, capacity)
	assert.Equal(t, "p7", history[0].CurrentPeriod)
	assert.Equal(t, "p3", history[len(history)-1].CurrentPeriod, "oldest entries evicted")
}

func TestGenerateMonitoringReport(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	eng, _ := newTestEngine(t)

	stable := normalSample(rng, 400, 50, 5)
	stable2 := normalSample(rng, 400, 50, 5)
	shifted := normalSample(rng, 400, 90, 20)

	for _, current := range [][]float64{stable2, shifted} {
		_, err := eng.DetectPredictionDrift(context.Background(), DriftCheck{
			ModelName:    "churn",
			ModelVersion: "v1",
			Baseline:     stable,
			Current:      current,
			Method:       MethodPSI,
		})
		require.NoError(t, err)
	}
	_, err := eng.MonitorRegressionPerformance(context.Background(),
		"churn", "v1", []float64{1, 2, 3}, []float64{1, 2, 3}, nil, "")
	require.NoError(t, err)

	report := eng.GenerateMonitoringReport("churn", "v1", 0)
	assert.Equal(t, "churn", report.ModelName)
	assert.Equal(t, 2, report.TotalDriftChecks)
	assert.Equal(t, 1, report.DriftDetectedCount)
	assert.InDelta(t, 0.5, report.DriftRate, 1e-9)
	assert.Equal(t, 4, report.TotalPerformanceChecks)
	assert.Equal(t, 0, report.ThresholdBreachCount)
	assert.Equal(t, 1, report.TriggerCount)
	assert.Len(t, report.RecentDrift, 2)
	assert.Len(t, report.Triggers, 1)

	// A model with no history still gets a well-formed report.
	empty := eng.GenerateMonitoringReport("unknown", "v9", 0)
	assert.Zero(t, empty.TotalDriftChecks)
	assert.Zero(t, empty.DriftRate)
}

func TestGenerateMonitoringReport_AllTriggers(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	eng, _ := newTestEngine(t)

	baseline := normalSample(rng, 400, 50, 5)
	shifted := normalSample(rng, 400, 120, 30)

	const checks = 15
	for i := 0; i < checks; i++ {
		_, err := eng.DetectPredictionDrift(context.Background(), DriftCheck{
			ModelName:    "churn",
			ModelVersion: "v1",
			Baseline:     baseline,
			Current:      shifted,
			Method:       MethodPSI,
		})
		require.NoError(t, err)
	}

	// The recent slices stay capped, but the report carries every
	// trigger for the model version.
	report := eng.GenerateMonitoringReport("churn", "v1", 0)
	assert.Equal(t, checks, report.TotalDriftChecks)
	assert.Equal(t, checks, report.TriggerCount)
	assert.Len(t, report.RecentDrift, 10)
	assert.Len(t, report.Triggers, checks)
}

func TestClearHistory(t *testing.T) {
	eng, _ := newTestEngine(t)
	samples := []float64{1, 2, 3, 4, 5}

	for _, model := range []string{"alpha", "beta"} {
		_, err := eng.DetectPredictionDrift(context.Background(), DriftCheck{
			ModelName:    model,
			ModelVersion: "v1",
			Baseline:     samples,
			Current:      samples,
			Method:       MethodPSI,
		})
		require.NoError(t, err)
	}

	eng.ClearHistory("alpha", "")
	assert.Empty(t, eng.GetDriftHistory("alpha", "", "", 0))
	assert.Len(t, eng.GetDriftHistory("beta", "", "", 0), 1)

	eng.ClearHistory("", "")
	assert.Empty(t, eng.GetDriftHistory("", "", "", 0))
}
