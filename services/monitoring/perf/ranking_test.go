// Copyright (C) 2025 Driftwatch Contributors (maintainers@driftwatch.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package perf

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankingMetrics_AllRelevantInTopK(t *testing.T) {
	// Top 5 contains every relevant item and nothing else relevant:
	// precision@5 == |relevant|/5, recall@5 == 1.0.
	recs := map[string][]string{
		"u1": {"a", "b", "c", "x", "y", "z"},
	}
	truth := map[string][]string{
		"u1": {"a", "b", "c"},
	}

	metrics, err := RankingMetrics(recs, truth, []int{5})
	require.NoError(t, err)

	assert.InDelta(t, 3.0/5.0, metrics["precision_at_5"], 1e-12)
	assert.InDelta(t, 1.0, metrics["recall_at_5"], 1e-12)
	// All three hits lead the list, so AP is perfect.
	assert.InDelta(t, 1.0, metrics[MetricMAP], 1e-12)
}

func TestRankingMetrics_AveragePrecision(t *testing.T) {
	// Hits at positions 1 and 3: AP = (1/1 + 2/3) / 2.
	recs := map[string][]string{
		"u1": {"a", "x", "b", "y"},
	}
	truth := map[string][]string{
		"u1": {"a", "b"},
	}

	metrics, err := RankingMetrics(recs, truth, []int{2})
	require.NoError(t, err)

	assert.InDelta(t, (1.0+2.0/3.0)/2.0, metrics[MetricMAP], 1e-12)
	assert.InDelta(t, 0.5, metrics["precision_at_2"], 1e-12)
	assert.InDelta(t, 0.5, metrics["recall_at_2"], 1e-12)
}

func TestRankingMetrics_ExcludesUsersWithoutGroundTruth(t *testing.T) {
	recs := map[string][]string{
		"u1": {"a", "b"},
		"u2": {"c", "d"}, // no ground truth; must not drag aggregates down
	}
	truth := map[string][]string{
		"u1": {"a", "b"},
	}

	metrics, err := RankingMetrics(recs, truth, []int{2})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, metrics["precision_at_2"], 1e-12)
	assert.InDelta(t, 1.0, metrics["recall_at_2"], 1e-12)
	assert.InDelta(t, 1.0, metrics[MetricMAP], 1e-12)
}

func TestRankingMetrics_ShortListUsesKAsDenominator(t *testing.T) {
	recs := map[string][]string{
		"u1": {"a"},
	}
	truth := map[string][]string{
		"u1": {"a"},
	}

	metrics, err := RankingMetrics(recs, truth, []int{5})
	require.NoError(t, err)

	assert.InDelta(t, 1.0/5.0, metrics["precision_at_5"], 1e-12)
	assert.InDelta(t, 1.0, metrics["recall_at_5"], 1e-12)
}

func TestRankingMetrics_DefaultKValues(t *testing.T) {
	recs := map[string][]string{"u1": {"a", "b"}}
	truth := map[string][]string{"u1": {"a"}}

	metrics, err := RankingMetrics(recs, truth, nil)
	require.NoError(t, err)

	for _, k := range DefaultKValues {
		assert.Contains(t, metrics, "precision_at_"+strconv.Itoa(k))
		assert.Contains(t, metrics, "recall_at_"+strconv.Itoa(k))
	}
	assert.Contains(t, metrics, MetricMAP)
}

func TestRankingMetrics_Errors(t *testing.T) {
	t.Run("empty recommendations", func(t *testing.T) {
		_, err := RankingMetrics(nil, map[string][]string{"u1": {"a"}}, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrEmptyInput)
	})

	t.Run("no user has ground truth", func(t *testing.T) {
		_, err := RankingMetrics(map[string][]string{"u1": {"a"}}, nil, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrEmptyInput)
	})
}
