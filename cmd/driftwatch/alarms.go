// Copyright (C) 2025 Driftwatch Contributors (maintainers@driftwatch.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftwatch/driftwatch/services/monitoring/sink"
)

var (
	alarmMetric     string
	alarmThreshold  float64
	alarmComparison string
	alarmTarget     string

	alarmCmd = &cobra.Command{
		Use:   "alarm",
		Short: "Manage threshold alarms in the metrics backend",
	}

	alarmCreateCmd = &cobra.Command{
		Use:   "create",
		Short: "Create a threshold alarm for a model metric",
		Long:  "Registers an alarm definition in InfluxDB that fires when the metric crosses the threshold. Requires the influx section of the config to be enabled.",
		RunE:  runAlarmCreate,
	}
)

func init() {
	alarmCreateCmd.Flags().StringVar(&checkModel, "model", "", "model name (required)")
	alarmCreateCmd.Flags().StringVar(&checkVersion, "version", "", "model version (required)")
	alarmCreateCmd.Flags().StringVar(&alarmMetric, "metric", "", "metric name, e.g. mae (required)")
	alarmCreateCmd.Flags().Float64Var(&alarmThreshold, "threshold", 0, "threshold value (required)")
	alarmCreateCmd.Flags().StringVar(&alarmComparison, "comparison", "greater_than",
		"comparison direction: greater_than or less_than")
	alarmCreateCmd.Flags().StringVar(&alarmTarget, "notify", "", "notification target, e.g. a webhook or channel name")
	for _, flag := range []string{"model", "version", "metric", "threshold"} {
		_ = alarmCreateCmd.MarkFlagRequired(flag)
	}
	alarmCmd.AddCommand(alarmCreateCmd)
}

func runAlarmCreate(cmd *cobra.Command, args []string) error {
	if alarmComparison != "greater_than" && alarmComparison != "less_than" {
		return errors.New("comparison must be greater_than or less_than")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Influx.Enabled {
		return errors.New("alarm creation requires the influx sink; enable it in the config")
	}

	influxSink, closeInflux, err := sink.Connect(cmd.Context(),
		cfg.Influx.URL, cfg.Influx.Token, cfg.Influx.Org, cfg.Influx.Bucket)
	if err != nil {
		return fmt.Errorf("connect influx: %w", err)
	}
	defer closeInflux()

	id, err := influxSink.CreateThresholdAlarm(cmd.Context(),
		checkModel, checkVersion, alarmMetric, alarmComparison, alarmThreshold, alarmTarget)
	if err != nil {
		return fmt.Errorf("create alarm: %w", err)
	}

	fmt.Printf("alarm created: %s\n", id)
	return nil
}
