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

package riskrules

import (
	"prime-risk-engine/riskevents"
	"prime-risk-engine/window"
)

// SuspendedEntry is one row of a RateLimit's suspended-flag snapshot.
type SuspendedEntry struct {
	Key       riskevents.DimKey
	Suspended bool
}

// SnapshotSuspended captures every aggregation key's current suspended
// flag, for inclusion in an engine-wide snapshot.
func (r *RateLimit) SnapshotSuspended() []SuspendedEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]SuspendedEntry, 0, len(r.suspended))
	for k, v := range r.suspended {
		out = append(out, SuspendedEntry{Key: k, Suspended: v})
	}
	return out
}

// RestoreSuspended repopulates the suspended-flag map from a previously
// captured snapshot. It does not itself emit resume/suspend actions:
// a warm-started engine simply resumes in whatever state it was saved.
func (r *RateLimit) RestoreSuspended(entries []SuspendedEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range entries {
		r.suspended[e.Key] = e.Suspended
	}
}

// SnapshotWindow captures the state of the rule's current rolling-window
// counter (the engine-registered shared one once attached).
func (r *RateLimit) SnapshotWindow() []window.Entry[riskevents.DimKey] {
	return r.win.Snapshot()
}

// RestoreWindow repopulates the rule's current rolling-window counter.
func (r *RateLimit) RestoreWindow(entries []window.Entry[riskevents.DimKey]) {
	r.win.Restore(entries)
}
