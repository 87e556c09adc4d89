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
)

// RegressionRequest is the body for POST /v1/performance/regression.
type RegressionRequest struct {
	ModelName       string             `json:"model_name" binding:"required"`
	ModelVersion    string             `json:"model_version" binding:"required"`
	Predictions     []float64          `json:"predictions" binding:"required"`
	Actuals         []float64          `json:"actuals" binding:"required"`
	BaselineMetrics map[string]float64 `json:"baseline_metrics"`
	Period          string             `json:"period"`
}

// RankingRequest is the body for POST /v1/performance/ranking.
type RankingRequest struct {
	ModelName       string              `json:"model_name" binding:"required"`
	ModelVersion    string              `json:"model_version" binding:"required"`
	Recommendations map[string][]string `json:"recommendations" binding:"required"`
	GroundTruth     map[string][]string `json:"ground_truth" binding:"required"`
	KValues         []int               `json:"k_values"`
	BaselineMetrics map[string]float64  `json:"baseline_metrics"`
	Period          string              `json:"period"`
}

// MonitorRegression handles POST /v1/performance/regression.
func MonitorRegression(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegressionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		results, err := deps.Engine.MonitorRegressionPerformance(c.Request.Context(),
			req.ModelName, req.ModelVersion, req.Predictions, req.Actuals,
			req.BaselineMetrics, req.Period)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": results})
	}
}

// MonitorRanking handles POST /v1/performance/ranking.
func MonitorRanking(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RankingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		results, err := deps.Engine.MonitorRankingPerformance(c.Request.Context(),
			req.ModelName, req.ModelVersion, req.Recommendations, req.GroundTruth,
			req.KValues, req.BaselineMetrics, req.Period)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": results})
	}
}
