// Copyright (C) 2025 Driftwatch Contributors (maintainers@driftwatch.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/driftwatch/driftwatch/services/monitoring/config"
	"github.com/driftwatch/driftwatch/services/monitoring/engine"
	"github.com/driftwatch/driftwatch/services/monitoring/handlers"
	"github.com/driftwatch/driftwatch/services/monitoring/observability"
	"github.com/driftwatch/driftwatch/services/monitoring/sink"
	"github.com/driftwatch/driftwatch/services/monitoring/storage/badgerstore"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the monitoring HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func serve(parent context.Context, cfg config.Config) error {
	logger := newLogger(cfg.Logging)
	defer logger.Close()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing("driftwatch")
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	metrics := observability.InitMetrics()

	// Model gauges always land on /metrics; Influx stacks on top when
	// configured.
	var metricsSink sink.Sink = sink.NewPrometheusSink(prometheus.DefaultRegisterer)
	if cfg.Influx.Enabled {
		influxSink, closeInflux, err := sink.Connect(ctx,
			cfg.Influx.URL, cfg.Influx.Token, cfg.Influx.Org, cfg.Influx.Bucket)
		if err != nil {
			return fmt.Errorf("connect influx: %w", err)
		}
		defer closeInflux()
		metricsSink = sink.Fanout(metricsSink, influxSink)
		logger.Info("influx sink connected", "url", cfg.Influx.URL, "bucket", cfg.Influx.Bucket)
	}

	var archive engine.Archive
	if cfg.Archive.Enabled {
		storeCfg := badgerstore.DefaultConfig(cfg.Archive.Path)
		storeCfg.Retention = cfg.Archive.Retention
		storeCfg.Logger = logger.Slog()
		store, err := badgerstore.Open(storeCfg)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer store.Close()
		archive = store
		logger.Info("history archive opened", "path", cfg.Archive.Path)
	}

	eng := engine.New(engine.Options{
		Thresholds: cfg.Thresholds,
		Sink:       metricsSink,
		Archive:    archive,
		Logger:     logger,
		Metrics:    metrics,
	})

	// Threshold changes in the config file apply without a restart.
	watcher := config.NewWatcher(configPath, func(next config.Config) {
		eng.UpdateThresholds(next.Thresholds)
		logger.Info("thresholds updated from config")
	}, logger)
	go func() {
		if err := watcher.Run(ctx); err != nil {
			logger.Warn("config watcher stopped", "error", err)
		}
	}()

	gin.SetMode(cfg.Server.Mode)
	router := handlers.NewRouter(handlers.Deps{Engine: eng, Logger: logger})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("monitoring server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
