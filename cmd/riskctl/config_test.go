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
	"os"
	"path/filepath"
	"testing"

	"prime-risk-engine/riskrules"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	return path
}

func TestLoadCatalogConfig_PopulatesAllThreeMappings(t *testing.T) {
	path := writeTempFile(t, "catalog.json", `{
		"contract_to_product": {"T2303": "TREASURY"},
		"contract_to_exchange": {"T2303": "CME"},
		"account_to_group": {"acct-A": "desk-1"}
	}`)

	cfg, err := loadCatalogConfig(path)
	if err != nil {
		t.Fatalf("loadCatalogConfig: %v", err)
	}
	if cfg.ContractToProduct["T2303"] != "TREASURY" {
		t.Errorf("unexpected contract_to_product: %+v", cfg.ContractToProduct)
	}
	if cfg.ContractToExchange["T2303"] != "CME" {
		t.Errorf("unexpected contract_to_exchange: %+v", cfg.ContractToExchange)
	}
	if cfg.AccountToGroup["acct-A"] != "desk-1" {
		t.Errorf("unexpected account_to_group: %+v", cfg.AccountToGroup)
	}
}

func TestLoadCatalogConfig_EmptyPathYieldsZeroValue(t *testing.T) {
	cfg, err := loadCatalogConfig("")
	if err != nil {
		t.Fatalf("loadCatalogConfig: %v", err)
	}
	if len(cfg.ContractToProduct) != 0 || len(cfg.ContractToExchange) != 0 || len(cfg.AccountToGroup) != 0 {
		t.Errorf("expected empty config, got %+v", cfg)
	}
}

func TestLoadRuleList_BuildsCumulativeAndRateLimitRules(t *testing.T) {
	path := writeTempFile(t, "rules.json", `{"rules": [
		{"kind": "cumulative_limit", "id": "acct-notional", "metric": "trade_notional",
		 "threshold": 1000000, "dims": ["account_id"], "actions": ["alert"]},
		{"kind": "rate_limit", "id": "order-burst", "threshold": 50, "window_seconds": 10,
		 "counted": "orders", "dims": ["account_id"],
		 "suspend_actions": ["suspend_ordering"], "resume_actions": ["resume_ordering"]}
	]}`)

	rules, err := loadRuleList(path)
	if err != nil {
		t.Fatalf("loadRuleList: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(rules))
	}
	if _, ok := rules[0].(*riskrules.CumulativeMetricLimit); !ok {
		t.Errorf("expected first rule to be a CumulativeMetricLimit, got %T", rules[0])
	}
	if _, ok := rules[1].(*riskrules.RateLimit); !ok {
		t.Errorf("expected second rule to be a RateLimit, got %T", rules[1])
	}
}

func TestLoadRuleList_UnknownKindFails(t *testing.T) {
	path := writeTempFile(t, "rules.json", `{"rules": [{"kind": "bogus", "id": "x"}]}`)
	if _, err := loadRuleList(path); err == nil {
		t.Fatal("expected an error for an unknown rule kind")
	}
}

func TestParseMetric_RoundTripsKnownNames(t *testing.T) {
	cases := []string{"trade_volume", "trade_notional", "order_count", "cancel_rate", "margin_used"}
	for _, name := range cases {
		m, err := parseMetric(name)
		if err != nil {
			t.Errorf("parseMetric(%q): %v", name, err)
			continue
		}
		if m.String() != name {
			t.Errorf("parseMetric(%q) round-tripped to %q", name, m.String())
		}
	}
}

func TestParseAction_RoundTripsKnownNames(t *testing.T) {
	cases := map[string]string{
		"suspend_account_trading": "SUSPEND_ACCOUNT_TRADING",
		"block_order":             "BLOCK_ORDER",
		"alert":                   "ALERT",
		"block_cancel":            "BLOCK_CANCEL",
	}
	for name, want := range cases {
		a, err := parseAction(name)
		if err != nil {
			t.Errorf("parseAction(%q): %v", name, err)
			continue
		}
		if a.String() != want {
			t.Errorf("parseAction(%q) = %s, want %s", name, a.String(), want)
		}
	}
}

func TestParseAction_UnknownNameFails(t *testing.T) {
	if _, err := parseAction("not_a_real_action"); err == nil {
		t.Fatal("expected an error for an unknown action name")
	}
}
