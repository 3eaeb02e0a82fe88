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

package counterstore

import (
	"errors"
	"sync"
	"testing"

	"prime-risk-engine/riskevents"
)

const nsPerDay = 86_400 * 1_000_000_000

func key(t *testing.T, account string) riskevents.DimKey {
	t.Helper()
	return riskevents.NewDimKey(riskevents.DimComponent{Name: riskevents.DimAccount, Value: account})
}

func TestStore_AddInt_Monotonic(t *testing.T) {
	s := New()
	k := key(t, "A")

	var last int64
	for i := 0; i < 100; i++ {
		total, err := s.AddInt(k, riskevents.MetricOrderCount, 1, uint64(i)*1_000_000)
		if err != nil {
			t.Fatalf("AddInt: %v", err)
		}
		if total < last {
			t.Fatalf("counter decreased: %d -> %d", last, total)
		}
		last = total
	}
	if last != 100 {
		t.Errorf("expected total=100, got %d", last)
	}
}

func TestStore_DayReset(t *testing.T) {
	s := New()
	k := key(t, "A")

	if _, err := s.AddInt(k, riskevents.MetricOrderCount, 5, 0); err != nil {
		t.Fatal(err)
	}
	total, err := s.AddInt(k, riskevents.MetricOrderCount, 3, nsPerDay)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 {
		t.Errorf("expected a fresh day to start at the write's own delta (3), got %d", total)
	}
}

func TestStore_Get_MissingReturnsZero(t *testing.T) {
	s := New()
	k := key(t, "nobody")
	if v := s.Get(k, riskevents.MetricTradeVolume, 0); v != 0 {
		t.Errorf("expected 0 for unwritten key, got %v", v)
	}
}

func TestStore_MetricTypeMismatch(t *testing.T) {
	s := New()
	k := key(t, "A")

	if _, err := s.AddInt(k, riskevents.MetricOrderCount, 1, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddFloat(k, riskevents.MetricOrderCount, 1.5, 0); !errors.Is(err, ErrMetricTypeMismatch) {
		t.Errorf("expected ErrMetricTypeMismatch, got %v", err)
	}
}

func TestStore_SnapshotRestoreRoundTrip(t *testing.T) {
	s := New()
	k := key(t, "A")
	if _, err := s.AddInt(k, riskevents.MetricOrderCount, 7, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddFloat(k, riskevents.MetricTradeNotional, 12.5, 0); err != nil {
		t.Fatal(err)
	}

	snap := s.Snapshot()

	restored := New()
	restored.Restore(snap)

	if got := restored.Get(k, riskevents.MetricOrderCount, 0); got != 7 {
		t.Errorf("expected restored order_count=7, got %v", got)
	}
	if got := restored.Get(k, riskevents.MetricTradeNotional, 0); got != 12.5 {
		t.Errorf("expected restored trade_notional=12.5, got %v", got)
	}
}

func TestStore_ConcurrentAddIsSerializedPerKey(t *testing.T) {
	s := New()
	k := key(t, "A")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = s.AddInt(k, riskevents.MetricOrderCount, 1, 0)
			}
		}()
	}
	wg.Wait()

	if got := s.Get(k, riskevents.MetricOrderCount, 0); got != 2000 {
		t.Errorf("expected 2000 after concurrent increments, got %v", got)
	}
}

func TestNextPowerOfTwo(t *testing.T) {
	cases := map[int]int{0: 1, 1: 1, 2: 2, 3: 4, 63: 64, 64: 64, 65: 128}
	for in, want := range cases {
		if got := nextPowerOfTwo(in); got != want {
			t.Errorf("nextPowerOfTwo(%d) = %d, want %d", in, got, want)
		}
	}
}
