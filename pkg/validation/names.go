// Copyright (C) 2025 Driftwatch Contributors (maintainers@driftwatch.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation provides input validation for security-critical
// identifiers.
//
// Model names, versions, and metric names flow into metric labels and
// Flux queries. Validating them at the boundary prevents label
// cardinality abuse and Flux injection.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalid is wrapped by every validation failure in this package.
var ErrInvalid = errors.New("invalid identifier")

// modelNamePattern matches valid model identifiers: letters, digits,
// underscores, dots, and hyphens, starting alphanumeric, max 64 chars.
var modelNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._\-]{0,63}$`)

// versionPattern matches model version strings like "v3", "1.4.2", or
// "2024-06-01". Max 32 chars.
var versionPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9.\-]{0,31}$`)

// metricNamePattern matches metric keys like "mae" or "precision_at_10".
var metricNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

// ValidateModelName validates a model identifier.
//
// Returns an error when the name is empty or contains characters outside
// [a-zA-Z0-9._-].
func ValidateModelName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: model name cannot be empty", ErrInvalid)
	}
	if !modelNamePattern.MatchString(name) {
		return fmt.Errorf("%w: model name %q (must be 1-64 alphanumeric chars, dots, underscores, or hyphens)", ErrInvalid, name)
	}
	return nil
}

// ValidateVersion validates a model version string.
func ValidateVersion(version string) error {
	if version == "" {
		return fmt.Errorf("%w: model version cannot be empty", ErrInvalid)
	}
	if !versionPattern.MatchString(version) {
		return fmt.Errorf("%w: model version %q (must be 1-32 alphanumeric chars, dots, or hyphens)", ErrInvalid, version)
	}
	return nil
}

// ValidateMetricName validates a metric key.
func ValidateMetricName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: metric name cannot be empty", ErrInvalid)
	}
	if !metricNamePattern.MatchString(name) {
		return fmt.Errorf("%w: metric name %q (must be lowercase alphanumeric with underscores)", ErrInvalid, name)
	}
	return nil
}

// SanitizeModelName trims and validates a model identifier.
//
// Use this before interpolating a model name into a Flux query or a
// metric label:
//
//	safe, err := validation.SanitizeModelName(userInput)
//	if err != nil {
//	    return err
//	}
func SanitizeModelName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if err := ValidateModelName(trimmed); err != nil {
		return "", err
	}
	return trimmed, nil
}

// SanitizeVersion trims and validates a model version string.
func SanitizeVersion(version string) (string, error) {
	trimmed := strings.TrimSpace(version)
	if err := ValidateVersion(trimmed); err != nil {
		return "", err
	}
	return trimmed, nil
}
