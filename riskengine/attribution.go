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
	"container/list"
	"sync"
)

// attribution is what OnOrder records for a later trade/cancel that
// omits its own account/contract.
type attribution struct {
	AccountID  string
	ContractID string
}

// attributionShard is one bucket of the sharded bounded LRU: a doubly
// linked list for recency plus a map for O(1) lookup, guarded by its
// own mutex.
type attributionShard struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	index    map[uint64]*list.Element
}

type attributionEntry struct {
	orderID uint64
	attr    attribution
}

func newAttributionShard(capacity int) *attributionShard {
	return &attributionShard{
		capacity: capacity,
		ll:       list.New(),
		index:    make(map[uint64]*list.Element),
	}
}

func (s *attributionShard) put(orderID uint64, attr attribution) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.index[orderID]; ok {
		el.Value.(*attributionEntry).attr = attr
		s.ll.MoveToFront(el)
		return
	}
	el := s.ll.PushFront(&attributionEntry{orderID: orderID, attr: attr})
	s.index[orderID] = el

	for s.ll.Len() > s.capacity {
		oldest := s.ll.Back()
		if oldest == nil {
			break
		}
		s.ll.Remove(oldest)
		delete(s.index, oldest.Value.(*attributionEntry).orderID)
	}
}

func (s *attributionShard) get(orderID uint64) (attribution, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.index[orderID]
	if !ok {
		return attribution{}, false
	}
	s.ll.MoveToFront(el)
	return el.Value.(*attributionEntry).attr, true
}

// attributionTable is the sharded, order-id-keyed LRU the engine
// consults to fill in missing account/contract fields on trade and
// cancel events.
type attributionTable struct {
	shards []*attributionShard
	mask   uint64
}

const attributionShardCount = 32

// defaultAttributionCapacity is a conservative default: peak order rate
// (assume up to ~5k orders/sec system-wide) times a generous
// order-to-fill latency bound (a few minutes), spread across shards.
const defaultAttributionCapacity = 1 << 20

func newAttributionTable(totalCapacity int) *attributionTable {
	if totalCapacity < attributionShardCount {
		totalCapacity = attributionShardCount
	}
	perShard := totalCapacity / attributionShardCount
	t := &attributionTable{
		shards: make([]*attributionShard, attributionShardCount),
		mask:   attributionShardCount - 1,
	}
	for i := range t.shards {
		t.shards[i] = newAttributionShard(perShard)
	}
	return t
}

func (t *attributionTable) shardFor(orderID uint64) *attributionShard {
	h := orderID * 2654435761 // Knuth multiplicative hash, fixed-point
	return t.shards[(h>>32)&t.mask]
}

func (t *attributionTable) record(orderID uint64, accountID, contractID string) {
	t.shardFor(orderID).put(orderID, attribution{AccountID: accountID, ContractID: contractID})
}

func (t *attributionTable) lookup(orderID uint64) (attribution, bool) {
	return t.shardFor(orderID).get(orderID)
}
