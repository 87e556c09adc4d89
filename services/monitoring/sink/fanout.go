// Copyright (C) 2025 Driftwatch Contributors (maintainers@driftwatch.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sink

import (
	"context"
	"errors"
)

// FanoutSink publishes every measurement to each wrapped sink.
//
// # Description
//
// Every sink sees every publish even when an earlier one fails; errors
// are joined so the caller's failure log names all broken
// destinations. PublishBatch reports the smallest per-sink success
// count, since a metric only counts as published once every
// destination has it.
type FanoutSink struct {
	sinks []Sink
}

// Fanout combines sinks into one. Nil entries are dropped; an empty
// result behaves like NopSink.
func Fanout(sinks ...Sink) *FanoutSink {
	kept := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &FanoutSink{sinks: kept}
}

// PublishScalar forwards to every sink.
func (f *FanoutSink) PublishScalar(ctx context.Context, model, version, name string, value float64, unit string, extraDims map[string]string) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.PublishScalar(ctx, model, version, name, value, unit, extraDims); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishBatch forwards to every sink and reports the smallest success
// count.
func (f *FanoutSink) PublishBatch(ctx context.Context, model, version string, metrics map[string]float64, unit string) (int, error) {
	if len(f.sinks) == 0 {
		return len(metrics), nil
	}
	min := len(metrics)
	var errs []error
	for _, s := range f.sinks {
		n, err := s.PublishBatch(ctx, model, version, metrics, unit)
		if err != nil {
			errs = append(errs, err)
		}
		if n < min {
			min = n
		}
	}
	return min, errors.Join(errs...)
}

// PublishDrift forwards to every sink.
func (f *FanoutSink) PublishDrift(ctx context.Context, model, version string, driftScore float64, driftDetected bool) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.PublishDrift(ctx, model, version, driftScore, driftDetected); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ Sink = (*FanoutSink)(nil)
