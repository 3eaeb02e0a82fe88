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
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"prime-risk-engine/riskevents"
	"prime-risk-engine/riskrules"
)

// catalogConfig is the on-disk description of the three static mappings
// catalog.New wants. Every field is optional; an absent one is an empty
// mapping.
type catalogConfig struct {
	ContractToProduct  map[string]string `json:"contract_to_product"`
	ContractToExchange map[string]string `json:"contract_to_exchange"`
	AccountToGroup     map[string]string `json:"account_to_group"`
}

func loadCatalogConfig(path string) (catalogConfig, error) {
	var cfg catalogConfig
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("riskctl: reading catalog config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("riskctl: parsing catalog config: %w", err)
	}
	return cfg, nil
}

// ruleSpec is one rule's JSON description accepted by replace-rules. Kind
// selects which constructor builds it; the remaining fields are a union
// of what CumulativeMetricLimit and RateLimit each need.
type ruleSpec struct {
	Kind      string   `json:"kind"`
	ID        string   `json:"id"`
	Metric    string   `json:"metric,omitempty"`
	Threshold float64  `json:"threshold"`
	Dims      []string `json:"dims"`
	Actions   []string `json:"actions,omitempty"`

	WindowSeconds  int      `json:"window_seconds,omitempty"`
	Counted        string   `json:"counted,omitempty"`
	SuspendActions []string `json:"suspend_actions,omitempty"`
	ResumeActions  []string `json:"resume_actions,omitempty"`
}

type ruleListFile struct {
	Rules []ruleSpec `json:"rules"`
}

func loadRuleList(path string) ([]riskrules.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("riskctl: reading rule list: %w", err)
	}
	var file ruleListFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("riskctl: parsing rule list: %w", err)
	}

	rules := make([]riskrules.Rule, 0, len(file.Rules))
	for _, spec := range file.Rules {
		r, err := buildRule(spec)
		if err != nil {
			return nil, fmt.Errorf("riskctl: rule %q: %w", spec.ID, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func buildRule(spec ruleSpec) (riskrules.Rule, error) {
	dims, err := parseDimNames(spec.Dims)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(spec.Kind) {
	case "cumulative_limit":
		metric, err := parseMetric(spec.Metric)
		if err != nil {
			return nil, err
		}
		actions, err := parseActions(spec.Actions)
		if err != nil {
			return nil, err
		}
		return riskrules.NewCumulativeMetricLimit(spec.ID, metric, spec.Threshold, dims, actions)

	case "rate_limit":
		counted, err := parseCountedEvent(spec.Counted)
		if err != nil {
			return nil, err
		}
		suspend, err := parseActions(spec.SuspendActions)
		if err != nil {
			return nil, err
		}
		resume, err := parseActions(spec.ResumeActions)
		if err != nil {
			return nil, err
		}
		return riskrules.NewRateLimit(spec.ID, int64(spec.Threshold), spec.WindowSeconds, counted, dims, suspend, resume)

	default:
		return nil, fmt.Errorf("unknown rule kind %q", spec.Kind)
	}
}

func parseDimNames(names []string) ([]riskevents.DimName, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("dims must be non-empty")
	}
	out := make([]riskevents.DimName, len(names))
	for i, n := range names {
		out[i] = riskevents.DimName(n)
	}
	return out, nil
}

var metricByName = buildMetricIndex()

func buildMetricIndex() map[string]riskevents.Metric {
	idx := make(map[string]riskevents.Metric)
	for m := riskevents.MetricTradeVolume; m.String() != "unknown_metric"; m++ {
		idx[m.String()] = m
		if int(m) == 255 {
			break // Metric is a uint8; avoid wrapping past the zero value forever
		}
	}
	return idx
}

func parseMetric(name string) (riskevents.Metric, error) {
	m, ok := metricByName[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("unknown metric %q", name)
	}
	return m, nil
}

var actionByName = buildActionIndex()

func buildActionIndex() map[string]riskevents.Action {
	idx := make(map[string]riskevents.Action)
	for a := riskevents.SuspendAccountTrading; a.String() != "UNKNOWN_ACTION"; a++ {
		idx[strings.ToLower(a.String())] = a
		if int(a) == 255 {
			break
		}
	}
	return idx
}

func parseAction(name string) (riskevents.Action, error) {
	a, ok := actionByName[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("unknown action %q", name)
	}
	return a, nil
}

func parseActions(names []string) ([]riskevents.Action, error) {
	out := make([]riskevents.Action, 0, len(names))
	for _, n := range names {
		a, err := parseAction(n)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func parseCountedEvent(name string) (riskrules.CountedEvent, error) {
	switch strings.ToLower(name) {
	case "orders", "order", "":
		return riskrules.CountOrders, nil
	case "cancels", "cancel":
		return riskrules.CountCancels, nil
	default:
		return 0, fmt.Errorf("unknown counted event %q", name)
	}
}
