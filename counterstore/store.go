/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package counterstore implements the sharded, thread-safe
// (dimension-key, day-id) -> (metric -> value) map that backs every
// cumulative aggregate in the risk engine.
//
// HOT PATH: Add is called once or more per ingested event and must stay
// O(1). The store is partitioned into a power-of-two number of shards,
// each guarded by its own mutex, so that concurrent events hashing to
// different shards never contend with each other.
//
// Concurrency model:
//   - One mutex per shard, held only for the duration of the map
//     mutation. No rule callback ever runs while a shard lock is held.
//   - Hashing is internal to the store; callers never see or depend on
//     shard assignment, and cross-shard ordering is never guaranteed.
package counterstore

import (
	"errors"
	"fmt"
	"sync"

	"prime-risk-engine/riskevents"
)

// ErrMetricTypeMismatch is returned when a metric that was first written
// as an integer is later written as a float, or vice versa, for the same
// (dimension key, day, metric) triple. A metric is effectively typed on
// first write; mixing kinds on one metric is a caller error.
var ErrMetricTypeMismatch = errors.New("counterstore: metric type mismatch")

const defaultShardCount = 64

type valueKind uint8

const (
	kindUnset valueKind = iota
	kindInt
	kindFloat
)

type metricValue struct {
	kind valueKind
	iv   int64
	fv   float64
}

func (v metricValue) asFloat() float64 {
	if v.kind == kindInt {
		return float64(v.iv)
	}
	return v.fv
}

// compositeKey is the shard map key: a resolved dimension key plus the
// day it falls on. Both fields are plain comparable values, so
// compositeKey itself is directly usable as a Go map key.
type compositeKey struct {
	dim riskevents.DimKey
	day int64
}

type row map[riskevents.Metric]*metricValue

type shard struct {
	mu sync.Mutex
	m  map[compositeKey]row
}

// Store is the sharded counter store backing all cumulative aggregates.
type Store struct {
	shards []*shard
	mask   uint64
}

// Option configures a Store at construction time.
type Option func(*storeConfig)

type storeConfig struct {
	shardCount int
}

// WithShardCount overrides the default shard count (64). n is rounded up
// to the next power of two if it is not already one.
func WithShardCount(n int) Option {
	return func(c *storeConfig) { c.shardCount = n }
}

// New builds a Store. With no options, it uses 64 shards, a sensible
// default for account/product/day cardinalities in the
// hundreds-of-thousands range.
func New(opts ...Option) *Store {
	cfg := storeConfig{shardCount: defaultShardCount}
	for _, opt := range opts {
		opt(&cfg)
	}
	n := nextPowerOfTwo(cfg.shardCount)

	s := &Store{
		shards: make([]*shard, n),
		mask:   uint64(n - 1),
	}
	for i := range s.shards {
		s.shards[i] = &shard{m: make(map[compositeKey]row)}
	}
	return s
}

func nextPowerOfTwo(n int) int {
	if n < 1 {
		n = 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func (s *Store) shardFor(key compositeKey) *shard {
	return s.shards[hashCompositeKey(key)&s.mask]
}

// AddInt adds an integer delta to metric at (key, day-derived-from-tsNs).
// It returns the post-increment total. If metric was previously written
// as a float for this (key, day), it returns ErrMetricTypeMismatch and
// leaves the stored value unchanged.
func (s *Store) AddInt(key riskevents.DimKey, metric riskevents.Metric, delta int64, tsNs uint64) (int64, error) {
	ck := compositeKey{dim: key, day: riskevents.DayID(tsNs)}
	sh := s.shardFor(ck)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	r, ok := sh.m[ck]
	if !ok {
		r = make(row)
		sh.m[ck] = r
	}
	mv, ok := r[metric]
	if !ok {
		mv = &metricValue{kind: kindInt}
		r[metric] = mv
	}
	if mv.kind == kindUnset {
		mv.kind = kindInt
	}
	if mv.kind != kindInt {
		return 0, fmt.Errorf("%w: metric %s already written as float", ErrMetricTypeMismatch, metric)
	}
	mv.iv += delta
	return mv.iv, nil
}

// AddFloat is AddInt's float-valued counterpart, used for notional-style
// metrics (price * volume).
func (s *Store) AddFloat(key riskevents.DimKey, metric riskevents.Metric, delta float64, tsNs uint64) (float64, error) {
	ck := compositeKey{dim: key, day: riskevents.DayID(tsNs)}
	sh := s.shardFor(ck)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	r, ok := sh.m[ck]
	if !ok {
		r = make(row)
		sh.m[ck] = r
	}
	mv, ok := r[metric]
	if !ok {
		mv = &metricValue{kind: kindFloat}
		r[metric] = mv
	}
	if mv.kind == kindUnset {
		mv.kind = kindFloat
	}
	if mv.kind != kindFloat {
		return 0, fmt.Errorf("%w: metric %s already written as int", ErrMetricTypeMismatch, metric)
	}
	mv.fv += delta
	return mv.fv, nil
}

// Get returns the current value for (key, metric) on the day derived
// from tsNs, or zero if the entry has never been written.
func (s *Store) Get(key riskevents.DimKey, metric riskevents.Metric, tsNs uint64) float64 {
	ck := compositeKey{dim: key, day: riskevents.DayID(tsNs)}
	sh := s.shardFor(ck)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	r, ok := sh.m[ck]
	if !ok {
		return 0
	}
	mv, ok := r[metric]
	if !ok {
		return 0
	}
	return mv.asFloat()
}

// Entry is one row of a Snapshot: a fully-qualified (dimension key, day,
// metric) -> value reading.
type Entry struct {
	Key     riskevents.DimKey
	DayID   int64
	Metric  riskevents.Metric
	IsFloat bool
	IntVal  int64
	FltVal  float64
}

// Snapshot returns every entry in the store. Each shard is read
// consistently (locked for the duration of its own iteration), but the
// result as a whole is not a consistent point-in-time view across
// shards — it is intended for diagnostics and persistence, not for rule
// evaluation.
func (s *Store) Snapshot() []Entry {
	var out []Entry
	for _, sh := range s.shards {
		sh.mu.Lock()
		for ck, r := range sh.m {
			for metric, mv := range r {
				e := Entry{Key: ck.dim, DayID: ck.day, Metric: metric}
				if mv.kind == kindFloat {
					e.IsFloat = true
					e.FltVal = mv.fv
				} else {
					e.IntVal = mv.iv
				}
				out = append(out, e)
			}
		}
		sh.mu.Unlock()
	}
	return out
}

// Restore repopulates the store from a previously captured Snapshot. It
// is parameter-tolerant: it simply overwrites whatever entries are
// given and leaves everything else at zero.
func (s *Store) Restore(entries []Entry) {
	for _, e := range entries {
		ck := compositeKey{dim: e.Key, day: e.DayID}
		sh := s.shardFor(ck)

		sh.mu.Lock()
		r, ok := sh.m[ck]
		if !ok {
			r = make(row)
			sh.m[ck] = r
		}
		mv := &metricValue{}
		if e.IsFloat {
			mv.kind = kindFloat
			mv.fv = e.FltVal
		} else {
			mv.kind = kindInt
			mv.iv = e.IntVal
		}
		r[e.Metric] = mv
		sh.mu.Unlock()
	}
}
