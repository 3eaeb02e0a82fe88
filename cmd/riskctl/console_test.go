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

package main

import (
	"fmt"
	"testing"

	"prime-risk-engine/catalog"
	"prime-risk-engine/riskengine"
	"prime-risk-engine/riskevents"
	"prime-risk-engine/riskrules"
)

func newTestConsole() *Console {
	eng := riskengine.New(catalog.New(nil, nil, nil))
	return NewConsole(eng)
}

func mustAlwaysAlertRule(t *testing.T) riskrules.Rule {
	t.Helper()
	r, err := riskrules.NewCumulativeMetricLimit(
		"always-alert", riskevents.MetricOrderCount, 1,
		[]riskevents.DimName{riskevents.DimAccount}, []riskevents.Action{riskevents.Alert})
	if err != nil {
		t.Fatalf("building test rule: %v", err)
	}
	return r
}

func TestConsole_DrainRecentActions_ReturnsInOrderAndEmpties(t *testing.T) {
	c := newTestConsole()
	for i := 0; i < 3; i++ {
		c.recordAction(riskevents.ActionRecord{RuleID: fmt.Sprintf("rule-%d", i)}, nil)
	}

	got := c.drainRecentActions()
	if len(got) != 3 {
		t.Fatalf("expected 3 actions, got %d", len(got))
	}
	for i, a := range got {
		want := fmt.Sprintf("rule-%d", i)
		if a.RuleID != want {
			t.Errorf("action %d: got RuleID %q, want %q", i, a.RuleID, want)
		}
	}

	if drained := c.drainRecentActions(); len(drained) != 0 {
		t.Errorf("expected second drain to be empty, got %d entries", len(drained))
	}
}

func TestConsole_DrainRecentActions_WrapsAroundCapacity(t *testing.T) {
	c := newTestConsole()
	total := tailBufferCapacity + 10
	for i := 0; i < total; i++ {
		c.recordAction(riskevents.ActionRecord{RuleID: fmt.Sprintf("rule-%d", i)}, nil)
	}

	got := c.drainRecentActions()
	if len(got) != tailBufferCapacity {
		t.Fatalf("expected %d buffered actions, got %d", tailBufferCapacity, len(got))
	}
	// The oldest total-tailBufferCapacity (10) entries were evicted; the buffer should
	// hold the most recent tailBufferCapacity in arrival order.
	firstWant := total - tailBufferCapacity
	if got[0].RuleID != fmt.Sprintf("rule-%d", firstWant) {
		t.Errorf("expected oldest surviving action to be rule-%d, got %s", firstWant, got[0].RuleID)
	}
	lastWant := total - 1
	if got[len(got)-1].RuleID != fmt.Sprintf("rule-%d", lastWant) {
		t.Errorf("expected newest action to be rule-%d, got %s", lastWant, got[len(got)-1].RuleID)
	}
}

func TestConsole_SinkWiredToEngine(t *testing.T) {
	c := newTestConsole()
	if err := c.Engine.AddRule(mustAlwaysAlertRule(t)); err != nil {
		t.Fatalf("AddRule: %v", err)
	}

	c.Engine.OnOrder(&riskevents.Order{ID: 1, AccountID: "acct-A", ContractID: "T1", Volume: 1, Price: 1})

	got := c.drainRecentActions()
	if len(got) == 0 {
		t.Fatal("expected the console's sink to have recorded the rule's action")
	}
}
