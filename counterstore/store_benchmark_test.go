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

// Benchmarks for Store operations.
// Run with: go test -bench=. -benchmem ./counterstore/
package counterstore

import (
	"fmt"
	"sync"
	"testing"

	"prime-risk-engine/riskevents"
)

func BenchmarkAddInt(b *testing.B) {
	benchCases := []struct {
		name       string
		numKeys    int
		shardCount int
	}{
		{"1Key_64Shards", 1, 64},
		{"1000Keys_64Shards", 1000, 64},
		{"1000Keys_256Shards", 1000, 256},
	}

	for _, bc := range benchCases {
		b.Run(bc.name, func(b *testing.B) {
			s := New(WithShardCount(bc.shardCount))
			keys := make([]riskevents.DimKey, bc.numKeys)
			for i := range keys {
				keys[i] = riskevents.NewDimKey(riskevents.DimComponent{
					Name: riskevents.DimAccount, Value: fmt.Sprintf("acct-%d", i),
				})
			}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, _ = s.AddInt(keys[i%len(keys)], riskevents.MetricOrderCount, 1, 0)
			}
		})
	}
}

func BenchmarkSnapshot(b *testing.B) {
	benchCases := []int{100, 1000, 10000}

	for _, n := range benchCases {
		b.Run(fmt.Sprintf("%dEntries", n), func(b *testing.B) {
			s := New()
			for i := 0; i < n; i++ {
				k := riskevents.NewDimKey(riskevents.DimComponent{
					Name: riskevents.DimAccount, Value: fmt.Sprintf("acct-%d", i),
				})
				_, _ = s.AddInt(k, riskevents.MetricOrderCount, 1, 0)
			}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = s.Snapshot()
			}
		})
	}
}

func BenchmarkConcurrentAddAcrossShards(b *testing.B) {
	benchCases := []int{1, 4, 16, 64}

	for _, numGoroutines := range benchCases {
		b.Run(fmt.Sprintf("%dGoroutines", numGoroutines), func(b *testing.B) {
			s := New()
			keys := make([]riskevents.DimKey, numGoroutines)
			for i := range keys {
				keys[i] = riskevents.NewDimKey(riskevents.DimComponent{
					Name: riskevents.DimAccount, Value: fmt.Sprintf("acct-%d", i),
				})
			}

			b.ReportAllocs()
			b.ResetTimer()

			var wg sync.WaitGroup
			perGoroutine := b.N / numGoroutines
			if perGoroutine < 1 {
				perGoroutine = 1
			}
			for g := 0; g < numGoroutines; g++ {
				wg.Add(1)
				go func(idx int) {
					defer wg.Done()
					for i := 0; i < perGoroutine; i++ {
						_, _ = s.AddInt(keys[idx], riskevents.MetricOrderCount, 1, 0)
					}
				}(g)
			}
			wg.Wait()
		})
	}
}
