// Copyright (C) 2025 Driftwatch Contributors (maintainers@driftwatch.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sink

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// refusingSink fails every publish.
type refusingSink struct{}

func (refusingSink) PublishScalar(context.Context, string, string, string, float64, string, map[string]string) error {
	return errors.New("refused")
}

func (refusingSink) PublishBatch(context.Context, string, string, map[string]float64, string) (int, error) {
	return 0, errors.New("refused")
}

func (refusingSink) PublishDrift(context.Context, string, string, float64, bool) error {
	return errors.New("refused")
}

func TestFanout_PublishesToAllSinks(t *testing.T) {
	reg := prometheus.NewRegistry()
	prom := NewPrometheusSink(reg)
	buf := NewBufferedSink()
	f := Fanout(prom, nil, buf)
	ctx := context.Background()

	require.NoError(t, f.PublishScalar(ctx, "churn", "v1", "mae", 4.2, "none", nil))
	require.NoError(t, f.PublishDrift(ctx, "churn", "v1", 0.31, true))
	n, err := f.PublishBatch(ctx, "churn", "v1", map[string]float64{"rmse": 5.0, "r2": 0.9}, "none")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Both destinations saw every publish.
	assert.InDelta(t, 4.2, testutil.ToFloat64(prom.metricValue.WithLabelValues("churn", "v1", "mae")), 1e-9)
	assert.InDelta(t, 0.31, testutil.ToFloat64(prom.driftScore.WithLabelValues("churn", "v1")), 1e-9)
	assert.Len(t, buf.Scalars(), 3)
	assert.Len(t, buf.Drifts(), 1)
}

func TestFanout_FailureDoesNotStarveOtherSinks(t *testing.T) {
	buf := NewBufferedSink()
	f := Fanout(refusingSink{}, buf)
	ctx := context.Background()

	assert.Error(t, f.PublishScalar(ctx, "churn", "v1", "mae", 1.0, "none", nil))
	assert.Error(t, f.PublishDrift(ctx, "churn", "v1", 0.5, true))
	n, err := f.PublishBatch(ctx, "churn", "v1", map[string]float64{"mae": 1}, "none")
	assert.Error(t, err)
	assert.Zero(t, n, "batch count reflects the weakest destination")

	// The healthy sink still received everything.
	assert.Len(t, buf.Scalars(), 2)
	assert.Len(t, buf.Drifts(), 1)
}

func TestFanout_EmptyBehavesLikeNop(t *testing.T) {
	f := Fanout()
	ctx := context.Background()

	assert.NoError(t, f.PublishScalar(ctx, "churn", "v1", "mae", 1.0, "none", nil))
	n, err := f.PublishBatch(ctx, "churn", "v1", map[string]float64{"mae": 1, "rmse": 2}, "none")
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
}
