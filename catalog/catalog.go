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

// Package catalog resolves an event's account/contract/exchange/group
// fields into a canonical dimension key. It is built once from three
// static mappings and is safe for concurrent read access; the only
// mutation after construction is registering new extension dimension
// names, which is expected to happen during setup, not on the hot path.
package catalog

import (
	"sort"
	"sync"

	"prime-risk-engine/riskevents"
)

// Catalog resolves dimension keys from contract/account identifiers.
// Unmapped contracts and accounts never produce an error: they simply
// yield a key with fewer components. Resolution never fails.
type Catalog struct {
	mu sync.RWMutex

	contractToProduct  map[string]string
	contractToExchange map[string]string
	accountToGroup     map[string]string

	// registered extension dimension names, append-only
	extensions map[riskevents.DimName]bool
}

// New builds a Catalog from three caller-supplied mappings. Any of them
// may be nil, which is equivalent to an empty mapping.
func New(contractToProduct, contractToExchange, accountToGroup map[string]string) *Catalog {
	c := &Catalog{
		contractToProduct:  copyMap(contractToProduct),
		contractToExchange: copyMap(contractToExchange),
		accountToGroup:     copyMap(accountToGroup),
		extensions:         make(map[riskevents.DimName]bool),
	}
	return c
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// RegisterDimension declares a new extension dimension name ahead of
// first use. Registration is append-only: a name can never be removed,
// since removing one mid-flight would make previously resolved keys
// inconsistent with newly resolved ones.
func (c *Catalog) RegisterDimension(name riskevents.DimName) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.extensions[name] = true
}

// Extra is one (name, value) extension dimension supplied by the caller
// for a single Resolve call.
type Extra struct {
	Name  riskevents.DimName
	Value string
}

// Resolve derives the canonical dimension key for an event's identifying
// fields. account, contract, exchange and group may be empty, meaning
// "not supplied by the event" — the catalog then tries to fill exchange
// and product from contract, and group from account.
func (c *Catalog) Resolve(account, contract, exchange, group string, extras ...Extra) riskevents.DimKey {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var comps []riskevents.DimComponent

	if account != "" {
		comps = append(comps, riskevents.DimComponent{Name: riskevents.DimAccount, Value: account})
		if group == "" {
			if g, ok := c.accountToGroup[account]; ok && g != "" {
				group = g
			}
		}
	}

	if contract != "" {
		comps = append(comps, riskevents.DimComponent{Name: riskevents.DimContract, Value: contract})
		if exchange == "" {
			if ex, ok := c.contractToExchange[contract]; ok && ex != "" {
				exchange = ex
			}
		}
		if p, ok := c.contractToProduct[contract]; ok && p != "" {
			comps = append(comps, riskevents.DimComponent{Name: riskevents.DimProduct, Value: p})
		}
	}

	if exchange != "" {
		comps = append(comps, riskevents.DimComponent{Name: riskevents.DimExchange, Value: exchange})
	}
	if group != "" {
		comps = append(comps, riskevents.DimComponent{Name: riskevents.DimAccountGroup, Value: group})
	}

	for _, e := range extras {
		if e.Value == "" || !c.extensions[e.Name] {
			continue
		}
		comps = append(comps, riskevents.DimComponent{Name: e.Name, Value: e.Value})
	}

	sort.Slice(comps, func(i, j int) bool { return comps[i].Name < comps[j].Name })

	return riskevents.NewDimKey(comps...)
}
