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

// Package window implements the per-key sliding-window integer counter
// used by rate-limit style rules: a ring of W one-second buckets per
// key, so the total-over-the-last-W-seconds query stays O(W) regardless
// of how long the key has been live.
//
// HOT PATH: Add is called once per ingested order/cancel for rate-limit
// rules and must stay allocation-light. Each ring slot holds at most one
// live (second, count) pair rather than a growing map, since a new
// second at a given slot always supersedes whatever stale second (one
// window-length earlier) was recorded there.
//
// Concurrency: reuses the same per-shard-mutex discipline as
// counterstore, keyed by (logical key, ring slot), so concurrent writers
// to different slots of the same key's ring usually take different shard
// locks, though two slots can hash to the same shard.
package window

import "sync"

const defaultShardCount = 64

// ringKey addresses one slot of one logical key's ring. Counter does
// not care what K is beyond requiring it to be comparable and hashable
// via the caller-supplied hash function.
type ringKey[K comparable] struct {
	key  K
	slot int64
}

type bucket struct {
	second int64
	count  int64
}

type shard[K comparable] struct {
	mu sync.Mutex
	m  map[ringKey[K]]*bucket
}

// HashFunc produces a shard-selection hash for a logical key. Counter
// does not need cryptographic quality, only a reasonably even spread
// across shards.
type HashFunc[K comparable] func(K) uint64

// Counter is a sliding-window counter over W whole seconds, per key.
type Counter[K comparable] struct {
	w      int64
	shards []*shard[K]
	mask   uint64
	hash   HashFunc[K]
}

// New builds a Counter with the given window size in whole seconds and
// a hash function for the key type. Panics if w < 1: a zero-width
// window is a construction-time misconfiguration, not a runtime state.
func New[K comparable](w int, hash HashFunc[K]) *Counter[K] {
	if w < 1 {
		panic("window: W must be >= 1")
	}
	n := defaultShardCount
	return &Counter[K]{
		w:      int64(w),
		shards: makeShards[K](n),
		mask:   uint64(n - 1),
		hash:   hash,
	}
}

func makeShards[K comparable](n int) []*shard[K] {
	shards := make([]*shard[K], n)
	for i := range shards {
		shards[i] = &shard[K]{m: make(map[ringKey[K]]*bucket)}
	}
	return shards
}

func (c *Counter[K]) shardFor(rk ringKey[K]) *shard[K] {
	h := c.hash(rk.key)
	h ^= uint64(rk.slot) * 1099511628211
	return c.shards[h&c.mask]
}

func (c *Counter[K]) slotFor(second int64) int64 {
	s := second % c.w
	if s < 0 {
		s += c.w
	}
	return s
}

// Add records one event for key at tsNs and returns the count observed
// for key within the current second (not the window total). If the ring
// slot for the current second holds an older second's count, that stale
// entry is reset first; a write for a second older than the one the slot
// holds is ignored, and the slot's recorded count is returned.
func (c *Counter[K]) Add(key K, tsNs uint64, delta int64) int64 {
	second := int64(tsNs / 1_000_000_000)
	rk := ringKey[K]{key: key, slot: c.slotFor(second)}
	sh := c.shardFor(rk)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	b, ok := sh.m[rk]
	if !ok {
		b = &bucket{second: second}
		sh.m[rk] = b
	}
	if b.second != second {
		// A write for an older second than what's live in this slot
		// is only meaningful if it's still within the current window;
		// anything older than that would already have been evicted,
		// so the simplest correct behavior is to treat the newest
		// second seen for this slot as authoritative and reset on it.
		if second > b.second {
			b.second = second
			b.count = 0
		} else {
			// Write for a second strictly older than the slot's
			// current second: the ingest-ordering contract only
			// tolerates out-of-order jitter within the same second,
			// so anything mapping to an earlier second than what's
			// already recorded here is stale and is silently ignored
			// for the bucket, though the caller still gets back the
			// authoritative count.
			return b.count
		}
	}
	b.count += delta
	return b.count
}

// Total sums the counts recorded for key across the last W seconds up
// to and including the second derived from tsNs.
func (c *Counter[K]) Total(key K, tsNs uint64) int64 {
	second := int64(tsNs / 1_000_000_000)
	var total int64
	for i := int64(0); i < c.w; i++ {
		sec := second - i
		rk := ringKey[K]{key: key, slot: c.slotFor(sec)}
		sh := c.shardFor(rk)

		sh.mu.Lock()
		b, ok := sh.m[rk]
		if ok && b.second == sec {
			total += b.count
		}
		sh.mu.Unlock()
	}
	return total
}

// Snapshot captures every live (key, slot) -> (second, count) entry, for
// persistence of rate-limit rule state across a warm restart.
type Entry[K comparable] struct {
	Key    K
	Slot   int64
	Second int64
	Count  int64
}

func (c *Counter[K]) Snapshot() []Entry[K] {
	var out []Entry[K]
	for _, sh := range c.shards {
		sh.mu.Lock()
		for rk, b := range sh.m {
			out = append(out, Entry[K]{Key: rk.key, Slot: rk.slot, Second: b.second, Count: b.count})
		}
		sh.mu.Unlock()
	}
	return out
}

// Restore repopulates the ring from a previously captured Snapshot.
func (c *Counter[K]) Restore(entries []Entry[K]) {
	for _, e := range entries {
		rk := ringKey[K]{key: e.Key, slot: e.Slot}
		sh := c.shardFor(rk)
		sh.mu.Lock()
		sh.m[rk] = &bucket{second: e.Second, count: e.Count}
		sh.mu.Unlock()
	}
}
