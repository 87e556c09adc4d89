// Copyright (C) 2025 Driftwatch Contributors (maintainers@driftwatch.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package drift implements the two-sample distribution tests used for
// model drift detection.
//
// # Description
//
// Three tests are provided, all pure functions over a baseline sample and
// a current sample:
//
//   - Kolmogorov-Smirnov: maximum distance between empirical CDFs with an
//     asymptotic p-value.
//   - Population Stability Index: binned divergence; >= 0.2 conventionally
//     indicates significant distribution change.
//   - Chi-square goodness-of-fit: binned frequencies of the current sample
//     tested against baseline-derived expected frequencies.
//
// All functions fail fast with ErrEmptyInput on empty samples, never
// mutate their inputs, and are deterministic for identical inputs and
// bin counts.
//
// # Thread Safety
//
// All functions are stateless and safe for concurrent use.
package drift

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrEmptyInput is returned when either compared sample has zero length.
// No score is mathematically defined for an empty sample, so the tests
// fail before anything is recorded.
var ErrEmptyInput = errors.New("empty input sample")

const (
	// DefaultNumBins is the bin count for PSI and chi-square binning.
	DefaultNumBins = 10

	// DefaultSignificanceLevel is the p-value cutoff for KS and chi-square.
	DefaultSignificanceLevel = 0.05

	// DefaultPSIThreshold is the conventional "significant change" PSI
	// cutoff. Values in [0.1, 0.2) indicate moderate change and are
	// intentionally not flagged.
	DefaultPSIThreshold = 0.2

	// binEpsilon floors bin proportions so that ratios and logs stay
	// finite when a bin is empty on one side.
	binEpsilon = 1e-6
)

// KSResult holds the outcome of a two-sample Kolmogorov-Smirnov test.
type KSResult struct {
	DriftDetected bool
	Statistic     float64
	PValue        float64
}

// PSIResult holds the outcome of a Population Stability Index comparison.
type PSIResult struct {
	DriftDetected bool
	PSI           float64
}

// ChiSquareResult holds the outcome of a chi-square goodness-of-fit test.
type ChiSquareResult struct {
	DriftDetected bool
	Statistic     float64
	PValue        float64
}

// KolmogorovSmirnov runs a two-sample KS test.
//
// # Description
//
// Computes the maximum distance between the baseline and current
// empirical CDFs and derives a p-value under the asymptotic KS
// distribution. Drift is flagged when pValue < alpha.
//
// # Inputs
//
//   - baseline: reference period sample. Must be non-empty.
//   - current: comparison period sample. Must be non-empty.
//   - alpha: significance level, e.g. 0.05.
//
// # Outputs
//
//   - KSResult: statistic, p-value, and the drift flag.
//   - error: ErrEmptyInput if either sample is empty.
func KolmogorovSmirnov(baseline, current []float64, alpha float64) (KSResult, error) {
	if len(baseline) == 0 || len(current) == 0 {
		return KSResult{}, fmt.Errorf("ks test: %w", ErrEmptyInput)
	}

	base := sortedCopy(baseline)
	cur := sortedCopy(current)

	d := stat.KolmogorovSmirnov(base, nil, cur, nil)
	p := ksPValue(d, len(base), len(cur))

	return KSResult{
		DriftDetected: p < alpha,
		Statistic:     d,
		PValue:        p,
	}, nil
}

// PopulationStability computes the Population Stability Index.
//
// # Description
//
// Bins both samples into numBins equal-width bins spanning the joint
// range [min(baseline, current), max(baseline, current)], converts bin
// counts to epsilon-floored proportions, and sums
// (cur_i - base_i) * ln(cur_i / base_i). Drift is flagged when the PSI
// meets or exceeds threshold.
//
// The joint-range binning matches the behavior of the system this was
// ported from: bin boundaries move with the current sample's own range,
// so PSI values are only comparable across runs that share a baseline
// and a stable current window.
//
// # Inputs
//
//   - baseline, current: non-empty samples.
//   - numBins: bin count; values < 2 fall back to DefaultNumBins.
//   - threshold: PSI cutoff, conventionally 0.2.
//
// # Outputs
//
//   - PSIResult: the PSI value and the drift flag.
//   - error: ErrEmptyInput if either sample is empty.
func PopulationStability(baseline, current []float64, numBins int, threshold float64) (PSIResult, error) {
	if len(baseline) == 0 || len(current) == 0 {
		return PSIResult{}, fmt.Errorf("psi: %w", ErrEmptyInput)
	}
	if numBins < 2 {
		numBins = DefaultNumBins
	}

	baseProps := binProportions(baseline, current, baseline, numBins)
	curProps := binProportions(baseline, current, current, numBins)

	psi := 0.0
	for i := range baseProps {
		psi += (curProps[i] - baseProps[i]) * math.Log(curProps[i]/baseProps[i])
	}

	return PSIResult{
		DriftDetected: psi >= threshold,
		PSI:           psi,
	}, nil
}

// ChiSquare runs a chi-square goodness-of-fit test on binned samples.
//
// # Description
//
// Bins both samples the same way as PopulationStability, rescales the
// baseline bin counts to the current sample's total to form expected
// frequencies, smooths empty expected bins with an epsilon count, and
// tests the current counts against that expectation with numBins-1
// degrees of freedom. Drift is flagged when pValue < alpha.
//
// # Inputs
//
//   - baseline, current: non-empty samples.
//   - numBins: bin count; values < 2 fall back to DefaultNumBins.
//   - alpha: significance level, e.g. 0.05.
//
// # Outputs
//
//   - ChiSquareResult: statistic, p-value, and the drift flag.
//   - error: ErrEmptyInput if either sample is empty.
func ChiSquare(baseline, current []float64, numBins int, alpha float64) (ChiSquareResult, error) {
	if len(baseline) == 0 || len(current) == 0 {
		return ChiSquareResult{}, fmt.Errorf("chi-square: %w", ErrEmptyInput)
	}
	if numBins < 2 {
		numBins = DefaultNumBins
	}

	baseCounts := binCounts(baseline, current, baseline, numBins)
	curCounts := binCounts(baseline, current, current, numBins)

	scale := float64(len(current)) / float64(len(baseline))

	statistic := 0.0
	for i := range curCounts {
		expected := float64(baseCounts[i]) * scale
		if expected <= 0 {
			expected = binEpsilon
		}
		diff := float64(curCounts[i]) - expected
		statistic += diff * diff / expected
	}

	dist := distuv.ChiSquared{K: float64(numBins - 1)}
	p := 1 - dist.CDF(statistic)

	return ChiSquareResult{
		DriftDetected: p < alpha,
		Statistic:     statistic,
		PValue:        p,
	}, nil
}

// =============================================================================
// Internals
// =============================================================================

// sortedCopy returns an ascending copy, leaving the input untouched.
func sortedCopy(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	sort.Float64s(out)
	return out
}

// jointRange returns the min and max across both samples.
func jointRange(baseline, current []float64) (float64, float64) {
	lo := baseline[0]
	hi := baseline[0]
	for _, v := range baseline {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	for _, v := range current {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// binCounts histograms data into numBins equal-width bins spanning the
// joint range of baseline and current. A degenerate range (all values
// equal) puts everything in the first bin, which keeps identical samples
// comparing as identical.
func binCounts(baseline, current, data []float64, numBins int) []int {
	lo, hi := jointRange(baseline, current)
	counts := make([]int, numBins)

	width := (hi - lo) / float64(numBins)
	if width == 0 {
		counts[0] = len(data)
		return counts
	}

	for _, v := range data {
		idx := int((v - lo) / width)
		if idx >= numBins {
			idx = numBins - 1
		}
		if idx < 0 {
			idx = 0
		}
		counts[idx]++
	}
	return counts
}

// binProportions converts bin counts for data to proportions floored at
// binEpsilon.
func binProportions(baseline, current, data []float64, numBins int) []float64 {
	counts := binCounts(baseline, current, data, numBins)
	total := float64(len(data))
	props := make([]float64, numBins)
	for i, c := range counts {
		p := float64(c) / total
		if p < binEpsilon {
			p = binEpsilon
		}
		props[i] = p
	}
	return props
}

// ksPValue computes the asymptotic two-sample KS p-value.
//
// Uses the Kolmogorov distribution series
// Q(lambda) = 2 * sum_{k=1..inf} (-1)^(k-1) * exp(-2 k^2 lambda^2)
// with the small-sample correction lambda = (sqrt(ne)+0.12+0.11/sqrt(ne))*d
// where ne = n*m/(n+m). The series is truncated once terms stop
// contributing; if it fails to converge the conservative value 1.0 is
// returned.
func ksPValue(d float64, n, m int) float64 {
	if d <= 0 {
		return 1.0
	}

	ne := float64(n) * float64(m) / float64(n+m)
	sqrtNe := math.Sqrt(ne)
	lambda := (sqrtNe + 0.12 + 0.11/sqrtNe) * d

	a2 := -2 * lambda * lambda
	sum := 0.0
	termBF := 0.0
	sign := 1.0
	for k := 1; k <= 100; k++ {
		term := sign * math.Exp(a2*float64(k)*float64(k))
		sum += term
		if math.Abs(term) <= 1e-12 || math.Abs(term) <= 1e-10*termBF {
			p := 2 * sum
			if p < 0 {
				return 0
			}
			if p > 1 {
				return 1
			}
			return p
		}
		termBF = math.Abs(term)
		sign = -sign
	}
	return 1.0
}
