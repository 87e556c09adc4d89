// Copyright (C) 2025 Driftwatch Contributors (maintainers@driftwatch.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads and validates the driftwatch YAML configuration.
//
// A missing config file is not an error: Load falls back to defaults so
// the server runs out of the box. Validation uses struct tags, so a
// malformed file fails fast with a field-level error instead of
// surfacing later as a bad connection string.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/driftwatch/driftwatch/services/monitoring/engine"
)

// Config is the root configuration document.
type Config struct {
	Server     ServerConfig               `yaml:"server"`
	Influx     InfluxConfig               `yaml:"influx"`
	Archive    ArchiveConfig              `yaml:"archive"`
	Logging    LoggingConfig              `yaml:"logging"`
	Thresholds *engine.ThresholdOverrides `yaml:"thresholds"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	// Host to bind. Empty binds all interfaces.
	Host string `yaml:"host"`

	// Port to listen on.
	Port int `yaml:"port" validate:"min=1,max=65535"`

	// Mode is gin's run mode: "debug", "release", or "test".
	Mode string `yaml:"mode" validate:"oneof=debug release test"`

	// ReadTimeout and WriteTimeout guard slow clients.
	ReadTimeout  time.Duration `yaml:"read_timeout" validate:"min=0"`
	WriteTimeout time.Duration `yaml:"write_timeout" validate:"min=0"`
}

// InfluxConfig configures the InfluxDB metrics sink. Disabled means
// metrics are only exposed on /metrics via Prometheus.
type InfluxConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url" validate:"required_if=Enabled true,omitempty,url"`
	Token   string `yaml:"token" validate:"required_if=Enabled true"`
	Org     string `yaml:"org" validate:"required_if=Enabled true"`
	Bucket  string `yaml:"bucket" validate:"required_if=Enabled true"`
}

// ArchiveConfig configures the embedded history archive. Disabled
// keeps history in memory only.
type ArchiveConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Path      string        `yaml:"path" validate:"required_if=Enabled true"`
	Retention time.Duration `yaml:"retention" validate:"min=0"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is "debug", "info", "warn", or "error".
	Level string `yaml:"level" validate:"oneof=debug info warn error"`

	// Dir enables file logging when set.
	Dir string `yaml:"dir"`

	// Format is "json", "text", or "" for terminal autodetection.
	Format string `yaml:"format" validate:"omitempty,oneof=json text"`

	Quiet bool `yaml:"quiet"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:         8087,
			Mode:         "release",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Archive: ArchiveConfig{
			Retention: 90 * 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads and validates the config at path. A missing file returns
// defaults; any other read, parse, or validation failure is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the struct-tag constraints.
func (c Config) Validate() error {
	return validator.New().Struct(c)
}
