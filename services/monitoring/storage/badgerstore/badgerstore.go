// Copyright (C) 2025 Driftwatch Contributors (maintainers@driftwatch.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package badgerstore persists monitoring history in an embedded
// BadgerDB.
//
// The engine keeps a bounded in-memory history; this store is the
// durable tier behind it, receiving every drift result, performance
// result, and retraining trigger through the engine's Archive
// interface. Entries carry an optional TTL so old history ages out
// without manual cleanup.
//
// License: BadgerDB is Apache 2.0 licensed (github.com/dgraph-io/badger).
package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/driftwatch/driftwatch/services/monitoring/engine"
)

// Key prefixes. Model and version names cannot contain '/', so it is a
// safe separator.
const (
	driftPrefix   = "drift/"
	perfPrefix    = "perf/"
	triggerPrefix = "trigger/"
)

// Config holds configuration for the archive store.
type Config struct {
	// Path is the directory for database files. Required unless
	// InMemory is true; created with 0750 if missing.
	Path string

	// InMemory keeps everything in RAM. For tests.
	InMemory bool

	// SyncWrites makes every write durable before returning.
	SyncWrites bool

	// Retention expires archived entries after this duration. Zero
	// keeps them forever.
	Retention time.Duration

	// GCInterval is how often to run value log garbage collection.
	// Zero disables GC.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum garbage ratio before a value log
	// file is rewritten.
	GCDiscardRatio float64

	// Logger receives BadgerDB's internal logging. Nil disables it.
	Logger *slog.Logger
}

// DefaultConfig returns production defaults: durable writes, 90-day
// retention, hourly GC.
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		SyncWrites:     true,
		Retention:      90 * 24 * time.Hour,
		GCInterval:     time.Hour,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns a test configuration with no disk I/O, no
// retention, and no GC.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts slog to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Store is a BadgerDB-backed engine.Archive with read-back queries.
//
// # Thread Safety
//
// Safe for concurrent use; BadgerDB transactions provide isolation.
type Store struct {
	db        *badger.DB
	retention time.Duration
	stopGC    chan struct{}
	doneGC    chan struct{}
}

var _ engine.Archive = (*Store)(nil)

// Open opens the store described by cfg. The caller must Close it.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent archive")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create archive directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open archive database: %w", err)
	}

	s := &Store{db: db, retention: cfg.Retention}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		ratio := cfg.GCDiscardRatio
		if ratio <= 0 || ratio > 1 {
			ratio = 0.5
		}
		s.stopGC = make(chan struct{})
		s.doneGC = make(chan struct{})
		go s.runGC(cfg.GCInterval, ratio)
	}
	return s, nil
}

// Close stops GC and closes the database.
func (s *Store) Close() error {
	if s.stopGC != nil {
		close(s.stopGC)
		<-s.doneGC
	}
	return s.db.Close()
}

func (s *Store) runGC(interval time.Duration, ratio float64) {
	defer close(s.doneGC)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			// ErrNoRewrite just means there was nothing to collect.
			for {
				if err := s.db.RunValueLogGC(ratio); err != nil {
					break
				}
			}
		}
	}
}

// =============================================================================
// Archive writes
// =============================================================================

// AppendDrift persists one drift result.
func (s *Store) AppendDrift(ctx context.Context, result engine.DriftResult) error {
	key := historyKey(driftPrefix, result.ModelName, result.ModelVersion, result.Timestamp)
	return s.put(ctx, key, result)
}

// AppendPerformance persists one performance result.
func (s *Store) AppendPerformance(ctx context.Context, result engine.PerformanceMetricResult) error {
	key := historyKey(perfPrefix, result.ModelName, result.ModelVersion, result.Timestamp)
	return s.put(ctx, key, result)
}

// AppendTrigger persists one retraining trigger.
func (s *Store) AppendTrigger(ctx context.Context, trigger engine.RetrainingTrigger) error {
	key := historyKey(triggerPrefix, trigger.ModelName, trigger.ModelVersion, trigger.CreatedAt)
	return s.put(ctx, key, trigger)
}

// historyKey builds "<prefix><model>/<version>/<nanos>/<nonce>". The
// zero-padded timestamp keeps lexical order equal to time order; the
// nonce disambiguates same-nanosecond appends.
func historyKey(prefix, model, version string, ts time.Time) []byte {
	return []byte(fmt.Sprintf("%s%s/%s/%020d/%s", prefix, model, version, ts.UnixNano(), uuid.NewString()[:8]))
}

func (s *Store) put(ctx context.Context, key []byte, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode archive entry: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key, data)
		if s.retention > 0 {
			entry = entry.WithTTL(s.retention)
		}
		return txn.SetEntry(entry)
	})
}

// =============================================================================
// Archive reads
// =============================================================================

// ListDrift returns archived drift results for a model version, newest
// first. limit <= 0 returns everything.
func (s *Store) ListDrift(ctx context.Context, model, version string, limit int) ([]engine.DriftResult, error) {
	return list[engine.DriftResult](ctx, s, driftPrefix, model, version, limit)
}

// ListPerformance returns archived performance results, newest first.
func (s *Store) ListPerformance(ctx context.Context, model, version string, limit int) ([]engine.PerformanceMetricResult, error) {
	return list[engine.PerformanceMetricResult](ctx, s, perfPrefix, model, version, limit)
}

// ListTriggers returns archived retraining triggers, newest first.
func (s *Store) ListTriggers(ctx context.Context, model, version string, limit int) ([]engine.RetrainingTrigger, error) {
	return list[engine.RetrainingTrigger](ctx, s, triggerPrefix, model, version, limit)
}

func list[T any](ctx context.Context, s *Store, kind, model, version string, limit int) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := []byte(fmt.Sprintf("%s%s/%s/", kind, model, version))

	var out []T
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts past the last key under the prefix.
		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			var entry T
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			})
			if err != nil {
				return fmt.Errorf("decode archive entry %s: %w", it.Item().Key(), err)
			}
			out = append(out, entry)
			if limit > 0 && len(out) == limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
