// Copyright (C) 2025 Driftwatch Contributors (maintainers@driftwatch.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateModelName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "price-forecaster", false},
		{"with version suffix", "recommender_v2", false},
		{"dotted", "team.recommender", false},
		{"single char", "m", false},
		{"empty", "", true},
		{"leading dash", "-model", true},
		{"flux injection attempt", `m") |> yield()`, true},
		{"whitespace", "my model", true},
		{"too long", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateModelName(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateVersion(t *testing.T) {
	assert.NoError(t, ValidateVersion("v3"))
	assert.NoError(t, ValidateVersion("1.4.2"))
	assert.NoError(t, ValidateVersion("2024-06-01"))
	assert.Error(t, ValidateVersion(""))
	assert.Error(t, ValidateVersion("v3;drop"))
}

func TestValidateMetricName(t *testing.T) {
	assert.NoError(t, ValidateMetricName("mae"))
	assert.NoError(t, ValidateMetricName("precision_at_10"))
	assert.Error(t, ValidateMetricName(""))
	assert.Error(t, ValidateMetricName("MAE"))
	assert.Error(t, ValidateMetricName("1mae"))
}

func TestSanitizeModelName(t *testing.T) {
	got, err := SanitizeModelName("  churn-model  ")
	require.NoError(t, err)
	assert.Equal(t, "churn-model", got)

	_, err = SanitizeModelName("  bad name  ")
	assert.Error(t, err)
}
