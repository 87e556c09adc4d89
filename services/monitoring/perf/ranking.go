// Copyright (C) 2025 Driftwatch Contributors (maintainers@driftwatch.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package perf

import (
	"fmt"
)

// DefaultKValues are the cutoffs used for precision@k and recall@k when
// the caller does not supply any.
var DefaultKValues = []int{5, 10, 20}

// RankingMetrics computes precision@k, recall@k, and mean average
// precision over per-user ranked recommendation lists.
//
// # Description
//
// recommendations maps user id to a ranked list of item ids (best
// first); groundTruth maps user id to the set of relevant item ids.
// Users with an empty (or absent) relevant set are excluded from every
// per-user aggregate: they have no defined recall or average precision,
// and including them would only penalize users with no ground truth.
//
// Precision@k uses k as the denominator even when fewer than k items
// were recommended, matching the cutoff semantics of the upstream
// evaluation. Average Precision sums hits-so-far/position over hit
// positions in the full list, divided by the relevant-set size.
//
// # Inputs
//
//   - recommendations: user id -> ranked item ids. Must be non-empty.
//   - groundTruth: user id -> relevant item ids.
//   - kValues: cutoffs; nil or empty falls back to DefaultKValues.
//
// # Outputs
//
//   - map[string]float64 with keys "precision_at_<k>", "recall_at_<k>"
//     per cutoff, and MetricMAP.
//   - error: ErrEmptyInput when recommendations is empty or no user has
//     ground truth to evaluate against.
func RankingMetrics(recommendations map[string][]string, groundTruth map[string][]string, kValues []int) (map[string]float64, error) {
	if len(recommendations) == 0 {
		return nil, fmt.Errorf("ranking metrics: %w", ErrEmptyInput)
	}
	if len(kValues) == 0 {
		kValues = DefaultKValues
	}

	precisionSums := make(map[int]float64, len(kValues))
	recallSums := make(map[int]float64, len(kValues))
	apSum := 0.0
	evaluated := 0

	for user, recs := range recommendations {
		relevant := toSet(groundTruth[user])
		if len(relevant) == 0 {
			continue
		}
		evaluated++

		for _, k := range kValues {
			hits := hitsAtK(recs, relevant, k)
			precisionSums[k] += float64(hits) / float64(k)
			recallSums[k] += float64(hits) / float64(len(relevant))
		}
		apSum += averagePrecision(recs, relevant)
	}

	if evaluated == 0 {
		return nil, fmt.Errorf("ranking metrics: no users with ground truth: %w", ErrEmptyInput)
	}

	out := make(map[string]float64, 2*len(kValues)+1)
	for _, k := range kValues {
		out[fmt.Sprintf("precision_at_%d", k)] = precisionSums[k] / float64(evaluated)
		out[fmt.Sprintf("recall_at_%d", k)] = recallSums[k] / float64(evaluated)
	}
	out[MetricMAP] = apSum / float64(evaluated)

	return out, nil
}

// averagePrecision computes a single user's AP over the full ranked list.
func averagePrecision(recs []string, relevant map[string]struct{}) float64 {
	hits := 0
	sum := 0.0
	for i, item := range recs {
		if _, ok := relevant[item]; ok {
			hits++
			sum += float64(hits) / float64(i+1)
		}
	}
	return sum / float64(len(relevant))
}

// hitsAtK counts relevant items in the top k positions.
func hitsAtK(recs []string, relevant map[string]struct{}, k int) int {
	if k > len(recs) {
		k = len(recs)
	}
	hits := 0
	for _, item := range recs[:k] {
		if _, ok := relevant[item]; ok {
			hits++
		}
	}
	return hits
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}
