// Copyright (C) 2025 Driftwatch Contributors (maintainers@driftwatch.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/driftwatch/driftwatch/services/monitoring/engine"
)

// limitQuery parses the "limit" query parameter; 0 means unlimited.
func limitQuery(c *gin.Context) (int, bool) {
	raw := c.DefaultQuery("limit", "0")
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
		return 0, false
	}
	return limit, true
}

// ListDriftHistory handles GET /v1/history/drift. Filters: model,
// version, category, limit.
func ListDriftHistory(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, ok := limitQuery(c)
		if !ok {
			return
		}
		results := deps.Engine.GetDriftHistory(
			c.Query("model"), c.Query("version"), c.Query("category"), limit)
		c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
	}
}

// ListPerformanceHistory handles GET /v1/history/performance. Filters:
// model, version, metric, limit.
func ListPerformanceHistory(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, ok := limitQuery(c)
		if !ok {
			return
		}
		results := deps.Engine.GetPerformanceHistory(
			c.Query("model"), c.Query("version"), c.Query("metric"), limit)
		c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
	}
}

// ListTriggers handles GET /v1/triggers. Filters: model, version,
// severity, limit.
func ListTriggers(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, ok := limitQuery(c)
		if !ok {
			return
		}
		triggers := deps.Engine.GetRetrainingTriggers(
			c.Query("model"), c.Query("version"),
			engine.Severity(c.Query("severity")), limit)
		c.JSON(http.StatusOK, gin.H{"triggers": triggers, "count": len(triggers)})
	}
}

// GetReport handles GET /v1/reports/:model/:version.
func GetReport(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		recent, err := strconv.Atoi(c.DefaultQuery("recent", "0"))
		if err != nil || recent < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "recent must be a non-negative integer"})
			return
		}
		report := deps.Engine.GenerateMonitoringReport(
			c.Param("model"), c.Param("version"), recent)
		c.JSON(http.StatusOK, report)
	}
}

// ClearHistory handles DELETE /v1/history. An empty model query clears
// everything.
func ClearHistory(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		model := c.Query("model")
		version := c.Query("version")
		deps.Engine.ClearHistory(model, version)
		deps.Logger.Info("history cleared", "model", model, "version", version)
		c.JSON(http.StatusOK, gin.H{"status": "cleared"})
	}
}
