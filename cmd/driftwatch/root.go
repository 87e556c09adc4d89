// Copyright (C) 2025 Driftwatch Contributors (maintainers@driftwatch.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"github.com/spf13/cobra"

	"github.com/driftwatch/driftwatch/pkg/logging"
	"github.com/driftwatch/driftwatch/services/monitoring/config"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:           "driftwatch",
		Short:         "Model drift detection and performance monitoring",
		Long:          "driftwatch watches deployed ML models for distribution drift and metric degradation, and raises retraining triggers when thresholds are crossed.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "driftwatch.yaml",
		"path to the configuration file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(alarmCmd)
}

// loadConfig loads the configured file; a missing file yields defaults.
func loadConfig() (config.Config, error) {
	return config.Load(configPath)
}

// newLogger builds the process logger from the logging section.
func newLogger(cfg config.LoggingConfig) *logging.Logger {
	level := logging.LevelInfo
	switch cfg.Level {
	case "debug":
		level = logging.LevelDebug
	case "warn":
		level = logging.LevelWarn
	case "error":
		level = logging.LevelError
	}
	return logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Dir,
		Service: "driftwatch",
		Format:  cfg.Format,
		Quiet:   cfg.Quiet,
	})
}
