// Copyright (C) 2025 Driftwatch Contributors (maintainers@driftwatch.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/driftwatch/driftwatch/services/monitoring/engine"
)

// DriftRequest is the body for the prediction and target drift routes.
type DriftRequest struct {
	ModelName      string    `json:"model_name" binding:"required"`
	ModelVersion   string    `json:"model_version" binding:"required"`
	Baseline       []float64 `json:"baseline" binding:"required"`
	Current        []float64 `json:"current" binding:"required"`
	Method         string    `json:"method" binding:"required"`
	BaselinePeriod string    `json:"baseline_period"`
	CurrentPeriod  string    `json:"current_period"`
}

func (r DriftRequest) toCheck() engine.DriftCheck {
	return engine.DriftCheck{
		ModelName:      r.ModelName,
		ModelVersion:   r.ModelVersion,
		Baseline:       r.Baseline,
		Current:        r.Current,
		Method:         engine.Method(r.Method),
		BaselinePeriod: r.BaselinePeriod,
		CurrentPeriod:  r.CurrentPeriod,
	}
}

// FeatureDriftRequest is the body for the per-feature drift route. An
// empty features list checks every baseline feature.
type FeatureDriftRequest struct {
	ModelName    string               `json:"model_name" binding:"required"`
	ModelVersion string               `json:"model_version" binding:"required"`
	Baseline     map[string][]float64 `json:"baseline" binding:"required"`
	Current      map[string][]float64 `json:"current" binding:"required"`
	Features     []string             `json:"features"`
	Method       string               `json:"method" binding:"required"`
}

// DetectPredictionDrift handles POST /v1/drift/prediction.
func DetectPredictionDrift(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req DriftRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := deps.Engine.DetectPredictionDrift(c.Request.Context(), req.toCheck())
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// DetectTargetDrift handles POST /v1/drift/target.
func DetectTargetDrift(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req DriftRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := deps.Engine.DetectTargetDrift(c.Request.Context(), req.toCheck())
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// DetectFeatureDrift handles POST /v1/drift/feature.
func DetectFeatureDrift(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req FeatureDriftRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		results, err := deps.Engine.DetectFeatureDrift(c.Request.Context(),
			req.ModelName, req.ModelVersion, req.Baseline, req.Current,
			req.Features, engine.Method(req.Method))
		if err != nil {
			abortWithError(c, err)
			return
		}

		drifted := 0
		for _, r := range results {
			if r.DriftDetected {
				drifted++
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"results":          results,
			"checked_features": len(results),
			"drifted_features": drifted,
		})
	}
}
