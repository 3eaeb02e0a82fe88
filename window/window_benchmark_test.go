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

// Benchmarks for Counter operations.
// Run with: go test -bench=. -benchmem ./window/
package window

import (
	"fmt"
	"sync"
	"testing"
)

func BenchmarkAdd(b *testing.B) {
	benchCases := []struct {
		name    string
		numKeys int
		w       int
	}{
		{"1Key_W10", 1, 10},
		{"1000Keys_W10", 1000, 10},
		{"1000Keys_W300", 1000, 300},
	}

	for _, bc := range benchCases {
		b.Run(bc.name, func(b *testing.B) {
			c := New(bc.w, fnvString)
			keys := make([]string, bc.numKeys)
			for i := range keys {
				keys[i] = fmt.Sprintf("acct-%d", i)
			}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				c.Add(keys[i%len(keys)], uint64(i)*1_000_000, 1)
			}
		})
	}
}

func BenchmarkTotal(b *testing.B) {
	c := New(60, fnvString)
	for s := 0; s < 60; s++ {
		c.Add("acct-A", uint64(s)*nsPerSec, 1)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Total("acct-A", 59*nsPerSec)
	}
}

func BenchmarkConcurrentAddAcrossKeys(b *testing.B) {
	benchCases := []int{1, 4, 16, 64}

	for _, numGoroutines := range benchCases {
		b.Run(fmt.Sprintf("%dGoroutines", numGoroutines), func(b *testing.B) {
			c := New(10, fnvString)
			keys := make([]string, numGoroutines)
			for i := range keys {
				keys[i] = fmt.Sprintf("acct-%d", i)
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
						c.Add(keys[idx], 0, 1)
					}
				}(g)
			}
			wg.Wait()
		})
	}
}
