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
	"fmt"

	"prime-risk-engine/riskevents"
)

// ErrInvalidThreshold is returned by NewCumulativeMetricLimit and
// UpdateThreshold when threshold is not strictly positive.
var ErrInvalidThreshold = errors.New("riskrules: threshold must be > 0")

// ErrInvalidDimensions is returned when the by-X dimension selection for
// an aggregation key is empty.
var ErrInvalidDimensions = errors.New("riskrules: dimension selection must be non-empty")

// CumulativeMetricLimit fires its configured actions on every matching
// event after which a cumulative counter-store metric is at or above a
// threshold within a day, aggregated over a caller-chosen subset of dimension components
// (account, contract, product, exchange, group, or a registered
// extension). The rule always writes its delta first and evaluates the
// >= test against the freshly written total, so once a key is over
// threshold it keeps firing on every matching event until the day rolls
// over and the counter resets; suppressing the repeats is the engine's
// dedup concern, not this rule's.
type CumulativeMetricLimit struct {
	id        string
	metric    riskevents.Metric
	threshold float64
	dims      []riskevents.DimName
	actions   []riskevents.Action
}

// NewCumulativeMetricLimit validates its parameters the way
// UpdateThreshold must re-validate them later.
func NewCumulativeMetricLimit(id string, metric riskevents.Metric, threshold float64, dims []riskevents.DimName, actions []riskevents.Action) (*CumulativeMetricLimit, error) {
	if threshold <= 0 {
		return nil, ErrInvalidThreshold
	}
	if len(dims) == 0 {
		return nil, ErrInvalidDimensions
	}
	if len(actions) == 0 {
		return nil, fmt.Errorf("riskrules: %s requires at least one action", id)
	}
	return &CumulativeMetricLimit{
		id:        id,
		metric:    metric,
		threshold: threshold,
		dims:      append([]riskevents.DimName(nil), dims...),
		actions:   append([]riskevents.Action(nil), actions...),
	}, nil
}

func (r *CumulativeMetricLimit) RuleID() string { return r.id }

// UpdateThreshold re-validates and swaps the threshold. The field is
// only ever read, never mutated, by OnOrder/OnTrade/OnCancel under the
// engine's copy-on-write rule-list discipline.
func (r *CumulativeMetricLimit) UpdateThreshold(threshold float64) error {
	if threshold <= 0 {
		return ErrInvalidThreshold
	}
	r.threshold = threshold
	return nil
}

func (r *CumulativeMetricLimit) aggKey(dim riskevents.DimKey) (riskevents.DimKey, bool) {
	return dim.Project(r.dims...)
}

func (r *CumulativeMetricLimit) evaluate(ctx *Context, agg riskevents.DimKey, volume int32, price float64) (*Result, error) {
	var (
		total float64
		err   error
	)
	switch r.metric {
	case riskevents.MetricTradeVolume, riskevents.MetricOrderVolume, riskevents.MetricCancelVolume,
		riskevents.MetricTradeCount, riskevents.MetricOrderCount, riskevents.MetricCancelCount:
		delta := int64(volume)
		switch r.metric {
		case riskevents.MetricTradeCount, riskevents.MetricOrderCount, riskevents.MetricCancelCount:
			delta = 1
		}
		var iv int64
		iv, err = ctx.Store.AddInt(agg, r.metric, delta, ctx.TsNs)
		total = float64(iv)
	case riskevents.MetricTradeNotional, riskevents.MetricOrderNotional:
		var fv float64
		fv, err = ctx.Store.AddFloat(agg, r.metric, float64(volume)*price, ctx.TsNs)
		total = fv
	default:
		// Reserved extension slot: built-in CumulativeMetricLimit never
		// writes these; only custom rules populate them.
		return nil, nil
	}
	if err != nil {
		// A metric type mismatch is a misconfiguration, not a rule
		// failure: surface it to the caller instead of swallowing it.
		return nil, fmt.Errorf("%s: adding %s: %w", r.id, r.metric, err)
	}
	if total < r.threshold {
		return nil, nil
	}
	return &Result{
		Actions: r.actions,
		Reasons: []string{fmt.Sprintf("%s reached %.4g (threshold %.4g) for %s", r.metric, total, r.threshold, agg)},
		Subject: agg,
	}, nil
}

func (r *CumulativeMetricLimit) OnOrder(ctx *Context, o *riskevents.Order) (*Result, error) {
	if r.metric != riskevents.MetricOrderCount && r.metric != riskevents.MetricOrderVolume && r.metric != riskevents.MetricOrderNotional {
		return nil, nil
	}
	agg, ok := r.aggKey(ctx.Dim)
	if !ok {
		return nil, nil
	}
	return r.evaluate(ctx, agg, o.Volume, o.Price)
}

func (r *CumulativeMetricLimit) OnTrade(ctx *Context, t *riskevents.Trade) (*Result, error) {
	if r.metric != riskevents.MetricTradeCount && r.metric != riskevents.MetricTradeVolume && r.metric != riskevents.MetricTradeNotional {
		return nil, nil
	}
	agg, ok := r.aggKey(ctx.Dim)
	if !ok {
		return nil, nil
	}
	return r.evaluate(ctx, agg, t.Volume, t.Price)
}

func (r *CumulativeMetricLimit) OnCancel(ctx *Context, c *riskevents.Cancel) (*Result, error) {
	if r.metric != riskevents.MetricCancelCount && r.metric != riskevents.MetricCancelVolume {
		return nil, nil
	}
	agg, ok := r.aggKey(ctx.Dim)
	if !ok {
		return nil, nil
	}
	return r.evaluate(ctx, agg, c.Volume, 0)
}
