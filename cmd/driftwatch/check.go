// Copyright (C) 2025 Driftwatch Contributors (maintainers@driftwatch.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/driftwatch/driftwatch/services/monitoring/engine"
	"github.com/driftwatch/driftwatch/services/monitoring/sink"
)

var (
	checkModel    string
	checkVersion  string
	checkMethod   string
	baselinePath  string
	currentPath   string
	ratioBaseline string

	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Run one-shot checks against sample files",
	}

	checkDriftCmd = &cobra.Command{
		Use:   "drift",
		Short: "Compare two sample windows for distribution drift",
		Long:  "Reads baseline and current samples from JSON files (arrays of numbers), runs the selected test, and prints the result as JSON.",
		RunE:  runCheckDrift,
	}

	checkRegressionCmd = &cobra.Command{
		Use:   "regression",
		Short: "Compute regression metrics for a prediction window",
		Long:  "Reads predictions and actuals from JSON files (arrays of numbers, same length) and prints the computed metrics as JSON. With --baseline-metrics, also flags degraded metrics.",
		RunE:  runCheckRegression,
	}
)

func init() {
	for _, cmd := range []*cobra.Command{checkDriftCmd, checkRegressionCmd} {
		cmd.Flags().StringVar(&checkModel, "model", "", "model name (required)")
		cmd.Flags().StringVar(&checkVersion, "version", "", "model version (required)")
		_ = cmd.MarkFlagRequired("model")
		_ = cmd.MarkFlagRequired("version")
	}
	checkDriftCmd.Flags().StringVar(&checkMethod, "method", "psi",
		"detection method: psi, ks_test, or chi_square")
	checkDriftCmd.Flags().StringVar(&baselinePath, "baseline", "", "baseline samples JSON file (required)")
	checkDriftCmd.Flags().StringVar(&currentPath, "current", "", "current samples JSON file (required)")
	_ = checkDriftCmd.MarkFlagRequired("baseline")
	_ = checkDriftCmd.MarkFlagRequired("current")

	checkRegressionCmd.Flags().StringVar(&baselinePath, "predictions", "", "predictions JSON file (required)")
	checkRegressionCmd.Flags().StringVar(&currentPath, "actuals", "", "actuals JSON file (required)")
	checkRegressionCmd.Flags().StringVar(&ratioBaseline, "baseline-metrics", "",
		"JSON file with baseline metric values to compare against")
	_ = checkRegressionCmd.MarkFlagRequired("predictions")
	_ = checkRegressionCmd.MarkFlagRequired("actuals")

	checkCmd.AddCommand(checkDriftCmd)
	checkCmd.AddCommand(checkRegressionCmd)
}

func readSamples(path string) ([]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read samples %s: %w", path, err)
	}
	var samples []float64
	if err := json.Unmarshal(data, &samples); err != nil {
		return nil, fmt.Errorf("parse samples %s: %w", path, err)
	}
	return samples, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// checkEngine builds an offline engine: no sink, no archive, config
// thresholds when a config file is present.
func checkEngine() (*engine.Engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return engine.New(engine.Options{
		Thresholds: cfg.Thresholds,
		Sink:       sink.NopSink{},
		Logger:     newLogger(cfg.Logging),
	}), nil
}

func runCheckDrift(cmd *cobra.Command, args []string) error {
	baseline, err := readSamples(baselinePath)
	if err != nil {
		return err
	}
	current, err := readSamples(currentPath)
	if err != nil {
		return err
	}

	eng, err := checkEngine()
	if err != nil {
		return err
	}
	result, err := eng.DetectPredictionDrift(cmd.Context(), engine.DriftCheck{
		ModelName:    checkModel,
		ModelVersion: checkVersion,
		Baseline:     baseline,
		Current:      current,
		Method:       engine.Method(checkMethod),
	})
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runCheckRegression(cmd *cobra.Command, args []string) error {
	predictions, err := readSamples(baselinePath)
	if err != nil {
		return err
	}
	actuals, err := readSamples(currentPath)
	if err != nil {
		return err
	}

	var baselineMetrics map[string]float64
	if ratioBaseline != "" {
		data, err := os.ReadFile(ratioBaseline)
		if err != nil {
			return fmt.Errorf("read baseline metrics %s: %w", ratioBaseline, err)
		}
		if err := json.Unmarshal(data, &baselineMetrics); err != nil {
			return fmt.Errorf("parse baseline metrics %s: %w", ratioBaseline, err)
		}
	}

	eng, err := checkEngine()
	if err != nil {
		return err
	}
	results, err := eng.MonitorRegressionPerformance(cmd.Context(),
		checkModel, checkVersion, predictions, actuals, baselineMetrics, "")
	if err != nil {
		return err
	}
	return printJSON(results)
}
