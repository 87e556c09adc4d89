// Copyright (C) 2025 Driftwatch Contributors (maintainers@driftwatch.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers exposes the monitoring engine over HTTP.
//
// The API is JSON over gin. Drift and performance checks are POSTs
// carrying the sample windows; history, triggers, and reports are GETs
// over the engine's in-memory state.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/driftwatch/driftwatch/pkg/logging"
	"github.com/driftwatch/driftwatch/pkg/validation"
	"github.com/driftwatch/driftwatch/services/monitoring/drift"
	"github.com/driftwatch/driftwatch/services/monitoring/engine"
	"github.com/driftwatch/driftwatch/services/monitoring/perf"
)

// Deps carries everything the handlers need.
type Deps struct {
	Engine *engine.Engine
	Logger *logging.Logger
}

// NewRouter builds the gin engine with all monitoring routes, tracing
// middleware, /health, and /metrics.
func NewRouter(deps Deps) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("driftwatch"))

	router.GET("/health", Health())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		v1.POST("/drift/prediction", DetectPredictionDrift(deps))
		v1.POST("/drift/target", DetectTargetDrift(deps))
		v1.POST("/drift/feature", DetectFeatureDrift(deps))
		v1.POST("/performance/regression", MonitorRegression(deps))
		v1.POST("/performance/ranking", MonitorRanking(deps))
		v1.GET("/triggers", ListTriggers(deps))
		v1.GET("/history/drift", ListDriftHistory(deps))
		v1.GET("/history/performance", ListPerformanceHistory(deps))
		v1.GET("/reports/:model/:version", GetReport(deps))
		v1.DELETE("/history", ClearHistory(deps))
	}

	return router
}

// Health reports liveness.
func Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// abortWithError maps engine errors onto HTTP status codes. Bad input
// is the caller's problem; everything else is ours.
func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrUnknownMethod),
		errors.Is(err, drift.ErrEmptyInput),
		errors.Is(err, perf.ErrEmptyInput),
		errors.Is(err, perf.ErrLengthMismatch),
		errors.Is(err, validation.ErrInvalid):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
