// Copyright (C) 2025 Driftwatch Contributors (maintainers@driftwatch.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func floatPtr(v float64) *float64 { return &v }

func TestThresholds_Merge(t *testing.T) {
	defaults := DefaultThresholds()

	t.Run("nil overrides keep defaults", func(t *testing.T) {
		assert.Equal(t, defaults, defaults.Merge(nil))
	})

	t.Run("partial override is field by field", func(t *testing.T) {
		bins := 20
		merged := defaults.Merge(&ThresholdOverrides{
			PSIThreshold:      floatPtr(0.1),
			NumBins:           &bins,
			MAEDegradationPct: floatPtr(25),
		})

		assert.InDelta(t, 0.1, merged.PSIThreshold, 1e-9)
		assert.Equal(t, 20, merged.NumBins)
		assert.InDelta(t, 25, merged.MAEDegradationPct, 1e-9)

		// Untouched fields keep their defaults.
		assert.InDelta(t, defaults.SignificanceLevel, merged.SignificanceLevel, 1e-9)
		assert.Equal(t, defaults.HistoryCapacity, merged.HistoryCapacity)
	})
}

func TestThresholds_DegradationLimit(t *testing.T) {
	thresholds := DefaultThresholds()

	tests := []struct {
		metric    string
		wantLimit float64
		wantDir   metricDirection
		wantOK    bool
	}{
		{"mae", thresholds.MAEDegradationPct, higherIsWorse, true},
		{"rmse", thresholds.RMSEDegradationPct, higherIsWorse, true},
		{"r2", thresholds.R2DegradationPct, lowerIsWorse, true},
		{"map", thresholds.MAPDegradationPct, lowerIsWorse, true},
		{"precision_at_5", thresholds.PrecisionDegradationPct, lowerIsWorse, true},
		{"recall_at_20", thresholds.RecallDegradationPct, lowerIsWorse, true},
		{"mape", 0, higherIsWorse, false},
		{"accuracy", 0, higherIsWorse, false},
	}
	for _, tt := range tests {
		t.Run(tt.metric, func(t *testing.T) {
			limit, dir, ok := thresholds.degradationLimit(tt.metric)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.wantLimit, limit, 1e-9)
				assert.Equal(t, tt.wantDir, dir)
			}
		})
	}
}

func TestEngine_UpdateThresholds(t *testing.T) {
	eng := New(Options{})
	assert.InDelta(t, DefaultThresholds().PSIThreshold, eng.Thresholds().PSIThreshold, 1e-9)

	eng.UpdateThresholds(&ThresholdOverrides{PSIThreshold: floatPtr(0.05)})
	assert.InDelta(t, 0.05, eng.Thresholds().PSIThreshold, 1e-9)

	// A later update without the override reverts to the default.
	eng.UpdateThresholds(nil)
	assert.InDelta(t, DefaultThresholds().PSIThreshold, eng.Thresholds().PSIThreshold, 1e-9)
}

func TestRing_AppendAndFilter(t *testing.T) {
	r := newRing[int](3)
	for i := 1; i <= 5; i++ {
		r.append(i)
	}

	assert.Equal(t, 3, r.len())

	all := r.filtered(func(int) bool { return true }, 0)
	assert.Equal(t, []int{5, 4, 3}, all, "newest first, oldest evicted")

	even := r.filtered(func(v int) bool { return v%2 == 0 }, 0)
	assert.Equal(t, []int{4}, even)

	limited := r.filtered(func(int) bool { return true }, 2)
	assert.Equal(t, []int{5, 4}, limited)

	r.clear()
	assert.Zero(t, r.len())
}
