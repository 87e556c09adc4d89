// Copyright (C) 2025 Driftwatch Contributors (maintainers@driftwatch.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package perf computes model performance metrics from raw prediction
// and ground-truth collections.
//
// Regression metrics (MAE, RMSE, MAPE, R²) operate on parallel float
// slices; ranking metrics (precision@k, recall@k, MAP) operate on
// per-user ranked recommendation lists and relevance sets. All functions
// are pure and safe for concurrent use.
package perf

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Metric name keys used in metric maps and result records.
const (
	MetricMAE  = "mae"
	MetricRMSE = "rmse"
	MetricMAPE = "mape"
	MetricR2   = "r2"
	MetricMAP  = "map"
)

var (
	// ErrEmptyInput is returned when a prediction/actual collection is empty.
	ErrEmptyInput = errors.New("empty input")

	// ErrLengthMismatch is returned when predictions and actuals differ
	// in length.
	ErrLengthMismatch = errors.New("predictions and actuals length mismatch")
)

// RegressionMetrics computes MAE, RMSE, MAPE, and R² for parallel
// prediction/actual slices.
//
// # Description
//
// MAPE is averaged over entries with a non-zero actual and reported in
// percent; it is +Inf when every actual is zero. R² is defined as 0.0
// when the actuals have zero variance (SS_tot == 0) instead of dividing
// by zero.
//
// # Inputs
//
//   - predictions, actuals: equal-length, non-empty parallel slices.
//
// # Outputs
//
//   - map[string]float64 keyed by MetricMAE, MetricRMSE, MetricMAPE,
//     MetricR2.
//   - error: ErrEmptyInput or ErrLengthMismatch.
func RegressionMetrics(predictions, actuals []float64) (map[string]float64, error) {
	if len(predictions) == 0 || len(actuals) == 0 {
		return nil, fmt.Errorf("regression metrics: %w", ErrEmptyInput)
	}
	if len(predictions) != len(actuals) {
		return nil, fmt.Errorf("regression metrics: %w (%d vs %d)",
			ErrLengthMismatch, len(predictions), len(actuals))
	}

	n := float64(len(predictions))

	var absSum, sqSum float64
	var apeSum float64
	apeCount := 0
	for i, pred := range predictions {
		diff := pred - actuals[i]
		absSum += math.Abs(diff)
		sqSum += diff * diff
		if actuals[i] != 0 {
			apeSum += math.Abs(diff / actuals[i])
			apeCount++
		}
	}

	mape := math.Inf(1)
	if apeCount > 0 {
		mape = apeSum / float64(apeCount) * 100
	}

	return map[string]float64{
		MetricMAE:  absSum / n,
		MetricRMSE: math.Sqrt(sqSum / n),
		MetricMAPE: mape,
		MetricR2:   rSquared(predictions, actuals),
	}, nil
}

// rSquared computes the coefficient of determination 1 - SS_res/SS_tot,
// with the degenerate zero-variance case pinned to 0.0.
func rSquared(predictions, actuals []float64) float64 {
	mean := stat.Mean(actuals, nil)

	var ssRes, ssTot float64
	for i, actual := range actuals {
		res := actual - predictions[i]
		ssRes += res * res
		dev := actual - mean
		ssTot += dev * dev
	}

	if ssTot == 0 {
		return 0.0
	}
	return 1 - ssRes/ssTot
}
