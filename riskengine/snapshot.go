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

package riskengine

import (
	"prime-risk-engine/counterstore"
	"prime-risk-engine/riskevents"
	"prime-risk-engine/riskrules"
	"prime-risk-engine/window"
)

// RuleState is one active rule's serializable internal state, present
// only for rule kinds that have any (RateLimit's suspended flags and
// its rolling window, the engine-registered shared one). CumulativeMetricLimit has no internal state beyond
// what's already in the counter store.
type RuleState struct {
	RuleID    string
	Suspended []riskrules.SuspendedEntry
	Window    []window.Entry[riskevents.DimKey]
}

// Snapshot is the structurally-versioned serializable form of an
// Engine's aggregate state, covering the counter store and every active
// rule's own internal state.
type Snapshot struct {
	SchemaVersion int
	Counters      []counterstore.Entry
	Rules         []RuleState
}

// CurrentSchemaVersion is bumped whenever Snapshot's shape changes in a
// way LoadSnapshot callers need to know about.
const CurrentSchemaVersion = 1

// Snapshot captures the engine's counter store and every active
// RateLimit rule's suspended flags and (shared) rolling window. It is not a
// single atomic point-in-time view across all of these (the counter
// store itself is only consistent per shard); it is intended for warm
// restarts, not for rule evaluation.
func (e *Engine) Snapshot() Snapshot {
	snap := Snapshot{
		SchemaVersion: CurrentSchemaVersion,
		Counters:      e.store.Snapshot(),
	}
	for _, r := range e.Rules() {
		rl, ok := r.(*riskrules.RateLimit)
		if !ok {
			continue
		}
		snap.Rules = append(snap.Rules, RuleState{
			RuleID:    r.RuleID(),
			Suspended: rl.SnapshotSuspended(),
			Window:    rl.SnapshotWindow(),
		})
	}
	return snap
}

// Restore repopulates the counter store and any matching active
// RateLimit rules' internal state from a previously captured Snapshot.
// Restoration is parameter-tolerant: a RuleState naming a rule id not
// currently active is silently skipped. The operator is expected to
// load rules before restoring state, but a mismatch is not fatal.
func (e *Engine) Restore(snap Snapshot) {
	e.store.Restore(snap.Counters)

	byID := make(map[string]*riskrules.RateLimit)
	for _, r := range e.Rules() {
		if rl, ok := r.(*riskrules.RateLimit); ok {
			byID[r.RuleID()] = rl
		}
	}
	for _, rs := range snap.Rules {
		rl, ok := byID[rs.RuleID]
		if !ok {
			continue
		}
		rl.RestoreSuspended(rs.Suspended)
		rl.RestoreWindow(rs.Window)
	}
}
