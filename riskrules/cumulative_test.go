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
	"errors"
	"testing"

	"prime-risk-engine/counterstore"
	"prime-risk-engine/riskevents"
)

func testDim(account string) riskevents.DimKey {
	return riskevents.NewDimKey(riskevents.DimComponent{Name: riskevents.DimAccount, Value: account})
}

func TestNewCumulativeMetricLimit_RejectsBadParams(t *testing.T) {
	if _, err := NewCumulativeMetricLimit("r1", riskevents.MetricTradeVolume, 0, []riskevents.DimName{riskevents.DimAccount}, []riskevents.Action{riskevents.BlockOrder}); err == nil {
		t.Error("expected error for non-positive threshold")
	}
	if _, err := NewCumulativeMetricLimit("r1", riskevents.MetricTradeVolume, 100, nil, []riskevents.Action{riskevents.BlockOrder}); err == nil {
		t.Error("expected error for empty dims")
	}
	if _, err := NewCumulativeMetricLimit("r1", riskevents.MetricTradeVolume, 100, []riskevents.DimName{riskevents.DimAccount}, nil); err == nil {
		t.Error("expected error for empty actions")
	}
}

func TestCumulativeMetricLimit_TriggersAtThreshold(t *testing.T) {
	rule, err := NewCumulativeMetricLimit("vol-limit", riskevents.MetricTradeVolume, 100,
		[]riskevents.DimName{riskevents.DimAccount}, []riskevents.Action{riskevents.BlockOrder})
	if err != nil {
		t.Fatal(err)
	}

	store := counterstore.New()
	ctx := &Context{Dim: testDim("A"), Store: store, TsNs: 0}

	trade := &riskevents.Trade{Volume: 60, Price: 10}
	if res, err := rule.OnTrade(ctx, trade); err != nil || res != nil {
		t.Fatalf("expected no trigger below threshold, got %+v (err %v)", res, err)
	}

	trade2 := &riskevents.Trade{Volume: 40, Price: 10}
	res, err := rule.OnTrade(ctx, trade2)
	if err != nil {
		t.Fatal(err)
	}
	if res == nil {
		t.Fatal("expected trigger at threshold (60+40=100 >= 100)")
	}
	if len(res.Actions) != 1 || res.Actions[0] != riskevents.BlockOrder {
		t.Errorf("unexpected actions: %+v", res.Actions)
	}
}

func TestCumulativeMetricLimit_InapplicableWhenDimMissing(t *testing.T) {
	rule, err := NewCumulativeMetricLimit("vol-limit", riskevents.MetricTradeVolume, 1,
		[]riskevents.DimName{riskevents.DimProduct}, []riskevents.Action{riskevents.BlockOrder})
	if err != nil {
		t.Fatal(err)
	}

	store := counterstore.New()
	ctx := &Context{Dim: testDim("A"), Store: store, TsNs: 0} // has no product_id component

	if res, err := rule.OnTrade(ctx, &riskevents.Trade{Volume: 1000, Price: 10}); err != nil || res != nil {
		t.Errorf("expected nil when aggregation dimension is absent, got %+v (err %v)", res, err)
	}
}

func TestCumulativeMetricLimit_NotionalMultipliesPriceVolume(t *testing.T) {
	rule, err := NewCumulativeMetricLimit("notional-limit", riskevents.MetricTradeNotional, 500,
		[]riskevents.DimName{riskevents.DimAccount}, []riskevents.Action{riskevents.BlockOrder})
	if err != nil {
		t.Fatal(err)
	}

	store := counterstore.New()
	ctx := &Context{Dim: testDim("A"), Store: store, TsNs: 0}

	// 10 * 40 = 400, below threshold
	if res, err := rule.OnTrade(ctx, &riskevents.Trade{Volume: 10, Price: 40}); err != nil || res != nil {
		t.Fatalf("expected no trigger, got %+v (err %v)", res, err)
	}
	// +10*20=200, total 600 >= 500
	if res, err := rule.OnTrade(ctx, &riskevents.Trade{Volume: 10, Price: 20}); err != nil || res == nil {
		t.Fatalf("expected trigger once notional crosses threshold (err %v)", err)
	}
}

func TestCumulativeMetricLimit_MetricTypeMismatchIsAnError(t *testing.T) {
	rule, err := NewCumulativeMetricLimit("vol-limit", riskevents.MetricTradeVolume, 100,
		[]riskevents.DimName{riskevents.DimAccount}, []riskevents.Action{riskevents.BlockOrder})
	if err != nil {
		t.Fatal(err)
	}

	store := counterstore.New()
	dim := testDim("A")
	// poison the slot with a float so the rule's integer add conflicts
	if _, err := store.AddFloat(dim, riskevents.MetricTradeVolume, 1.5, 0); err != nil {
		t.Fatal(err)
	}
	ctx := &Context{Dim: dim, Store: store, TsNs: 0}

	if _, err := rule.OnTrade(ctx, &riskevents.Trade{Volume: 5, Price: 1}); !errors.Is(err, counterstore.ErrMetricTypeMismatch) {
		t.Fatalf("expected ErrMetricTypeMismatch, got %v", err)
	}
}

func TestCumulativeMetricLimit_IgnoresUnrelatedEventKind(t *testing.T) {
	rule, err := NewCumulativeMetricLimit("order-count-limit", riskevents.MetricOrderCount, 1,
		[]riskevents.DimName{riskevents.DimAccount}, []riskevents.Action{riskevents.BlockOrder})
	if err != nil {
		t.Fatal(err)
	}
	store := counterstore.New()
	ctx := &Context{Dim: testDim("A"), Store: store, TsNs: 0}

	if res, err := rule.OnTrade(ctx, &riskevents.Trade{Volume: 10, Price: 1}); err != nil || res != nil {
		t.Errorf("order-count rule should ignore trades, got %+v (err %v)", res, err)
	}
	if res, err := rule.OnCancel(ctx, &riskevents.Cancel{Volume: 10}); err != nil || res != nil {
		t.Errorf("order-count rule should ignore cancels, got %+v (err %v)", res, err)
	}
}
