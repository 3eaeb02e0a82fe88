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

package catalog

import (
	"testing"

	"prime-risk-engine/riskevents"
)

func TestResolve_FillsProductAndExchangeFromContract(t *testing.T) {
	c := New(
		map[string]string{"T2303": "T10Y", "T2306": "T10Y"},
		map[string]string{"T2303": "CFFEX", "T2306": "CFFEX"},
		nil,
	)

	key := c.Resolve("", "T2303", "", "")

	product, ok := key.Get(riskevents.DimProduct)
	if !ok || product != "T10Y" {
		t.Errorf("expected product_id=T10Y, got %q (ok=%v)", product, ok)
	}
	exchange, ok := key.Get(riskevents.DimExchange)
	if !ok || exchange != "CFFEX" {
		t.Errorf("expected exchange_id=CFFEX, got %q (ok=%v)", exchange, ok)
	}
}

func TestResolve_ExplicitExchangeOverridesCatalog(t *testing.T) {
	c := New(nil, map[string]string{"T2303": "CFFEX"}, nil)

	key := c.Resolve("", "T2303", "SHFE", "")

	exchange, _ := key.Get(riskevents.DimExchange)
	if exchange != "SHFE" {
		t.Errorf("expected explicit exchange to win, got %q", exchange)
	}
}

func TestResolve_FillsGroupFromAccount(t *testing.T) {
	c := New(nil, nil, map[string]string{"A": "GROUP1"})

	key := c.Resolve("A", "", "", "")

	group, ok := key.Get(riskevents.DimAccountGroup)
	if !ok || group != "GROUP1" {
		t.Errorf("expected account_group_id=GROUP1, got %q (ok=%v)", group, ok)
	}
}

func TestResolve_UnmappedContractYieldsFewerDimensions(t *testing.T) {
	c := New(nil, nil, nil)

	key := c.Resolve("", "UNKNOWN", "", "")

	if _, ok := key.Get(riskevents.DimProduct); ok {
		t.Error("expected no product_id for unmapped contract")
	}
	if _, ok := key.Get(riskevents.DimContract); !ok {
		t.Error("expected contract_id to still be present")
	}
}

func TestResolve_ExtensionDimensionRequiresRegistration(t *testing.T) {
	c := New(nil, nil, nil)

	key := c.Resolve("A", "", "", "", Extra{Name: "strategy_id", Value: "S1"})
	if _, ok := key.Get("strategy_id"); ok {
		t.Error("expected unregistered extension dimension to be dropped")
	}

	c.RegisterDimension("strategy_id")
	key = c.Resolve("A", "", "", "", Extra{Name: "strategy_id", Value: "S1"})
	if v, ok := key.Get("strategy_id"); !ok || v != "S1" {
		t.Errorf("expected registered extension dimension to carry through, got %q (ok=%v)", v, ok)
	}
}

func TestResolve_SameComponentsProduceEqualKeys(t *testing.T) {
	c := New(map[string]string{"T2303": "T10Y"}, nil, nil)

	k1 := c.Resolve("A", "T2303", "", "")
	k2 := c.Resolve("A", "T2303", "", "")

	if k1 != k2 {
		t.Error("expected two resolutions of the same event shape to compare equal")
	}
}

func TestResolve_NeverFails(t *testing.T) {
	c := New(nil, nil, nil)
	// No panics, no errors, regardless of how sparse the inputs are.
	_ = c.Resolve("", "", "", "")
}
