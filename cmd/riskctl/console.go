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

// Package main implements riskctl, an operator console for a running
// riskengine.Engine: inspecting counter-store snapshots, listing and
// hot-swapping the active rule list, and tailing emitted actions. It
// sits entirely on the engine's public surface.
package main

import (
	"fmt"
	"sync"

	"prime-risk-engine/persistence"
	"prime-risk-engine/riskengine"
	"prime-risk-engine/riskevents"
)

const tailBufferCapacity = 200

// Console holds the engine an operator session is driving plus a
// bounded ring buffer of recently emitted actions for the tail command:
// one struct owning everything the REPL handlers touch.
type Console struct {
	Engine *riskengine.Engine

	mu      sync.Mutex
	ring    []riskevents.ActionRecord
	nextIdx int
}

func NewConsole(eng *riskengine.Engine) *Console {
	c := &Console{Engine: eng}
	eng.SetActionSink(c.recordAction)
	return c
}

func (c *Console) recordAction(record riskevents.ActionRecord, _ any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.ring) < tailBufferCapacity {
		c.ring = append(c.ring, record)
		return
	}
	c.ring[c.nextIdx%tailBufferCapacity] = record
	c.nextIdx++
}

// drainRecentActions returns the buffered actions oldest-first and empties
// the buffer, so the next tail only shows what's arrived since.
func (c *Console) drainRecentActions() []riskevents.ActionRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []riskevents.ActionRecord
	if len(c.ring) < tailBufferCapacity {
		out = make([]riskevents.ActionRecord, len(c.ring))
		copy(out, c.ring)
	} else {
		out = make([]riskevents.ActionRecord, tailBufferCapacity)
		for i := 0; i < tailBufferCapacity; i++ {
			out[i] = c.ring[(c.nextIdx+i)%tailBufferCapacity]
		}
	}

	c.ring = c.ring[:0]
	c.nextIdx = 0
	return out
}

// restoreFromPath loads a snapshot from a SQLite database at path and
// applies it to c's engine, used for the -restore startup flag.
func restoreFromPath(c *Console, path string) error {
	store, err := persistence.Open(path)
	if err != nil {
		return fmt.Errorf("opening restore snapshot: %w", err)
	}
	defer store.Close()

	snap, err := store.LoadSnapshot()
	if err != nil {
		return fmt.Errorf("loading restore snapshot: %w", err)
	}
	c.Engine.Restore(snap)
	return nil
}
