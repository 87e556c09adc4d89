// Copyright (C) 2025 Driftwatch Contributors (maintainers@driftwatch.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import "context"

// Archive receives every history append for external retention. The
// in-memory history is bounded, so long-term storage lives behind this
// interface (see the badgerstore package). Archive failures are logged
// and ignored: local history stays authoritative for reporting.
type Archive interface {
	AppendDrift(ctx context.Context, result DriftResult) error
	AppendPerformance(ctx context.Context, result PerformanceMetricResult) error
	AppendTrigger(ctx context.Context, trigger RetrainingTrigger) error
}

// ring is a bounded append-only log. Appending beyond capacity evicts
// the oldest entry. Not safe for concurrent use on its own; the engine
// serializes access under its mutex.
type ring[T any] struct {
	items    []T
	capacity int
}

func newRing[T any](capacity int) ring[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return ring[T]{capacity: capacity}
}

func (r *ring[T]) append(item T) {
	if len(r.items) >= r.capacity {
		// Shift instead of reslicing so the backing array is reused and
		// evicted entries become collectable.
		copy(r.items, r.items[1:])
		r.items[len(r.items)-1] = item
		return
	}
	r.items = append(r.items, item)
}

func (r *ring[T]) len() int {
	return len(r.items)
}

func (r *ring[T]) clear() {
	r.items = r.items[:0]
}

// filtered returns entries matching keep, newest first, truncated to
// limit (limit <= 0 means no truncation). The result is always a copy.
func (r *ring[T]) filtered(keep func(T) bool, limit int) []T {
	var out []T
	for i := len(r.items) - 1; i >= 0; i-- {
		if keep(r.items[i]) {
			out = append(out, r.items[i])
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out
}
