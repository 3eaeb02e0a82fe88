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

// Package riskrules defines the Rule contract the risk engine evaluates
// against every ingested order, trade, and cancel, plus the two built-in
// rule families: CumulativeMetricLimit and RateLimit.
package riskrules

import (
	"prime-risk-engine/counterstore"
	"prime-risk-engine/riskevents"
	"prime-risk-engine/window"
)

// Result is what a Rule callback returns when it has something to say
// about the event it just saw. A nil Result with a nil error means
// "no opinion".
type Result struct {
	Actions  []riskevents.Action
	Reasons  []string
	Metadata map[string]any

	// Subject is the aggregation key the rule evaluated against. The
	// engine uses it, paired with each action, as the deduplication key
	// within one event.
	Subject riskevents.DimKey
}

// Rule is the callback contract every built-in and custom rule
// implements. Any callback may be a no-op; embedding NoopRule gives a
// custom rule that behavior for free (see noop.go).
//
// A non-nil error is a hard, caller-facing failure — a counter-store
// invariant violation such as a metric type mismatch on write — and the
// engine returns it to the caller of On*. It is not the way to say
// "this event is fine": return (nil, nil) for that. A panic inside a
// callback is a rule bug, which the engine recovers, logs, and skips.
type Rule interface {
	RuleID() string
	OnOrder(ctx *Context, o *riskevents.Order) (*Result, error)
	OnTrade(ctx *Context, t *riskevents.Trade) (*Result, error)
	OnCancel(ctx *Context, c *riskevents.Cancel) (*Result, error)
}

// WindowLookup resolves a named rolling-window counter registered with
// the engine. The built-in RateLimit does not use it: the engine binds
// its shared counter through AttachWindow instead.
type WindowLookup func(name string) *window.Counter[riskevents.DimKey]

// Context is built fresh by the engine for each event and handed to
// every rule in the active list. It is cheap enough to be
// stack-allocated: no rule should retain a Context past the callback
// that received it.
type Context struct {
	Dim     riskevents.DimKey
	Store   *counterstore.Store
	Windows WindowLookup
	TsNs    uint64
}

// Window looks up a named rolling-window counter, or nil if none is
// registered under that name.
func (c *Context) Window(name string) *window.Counter[riskevents.DimKey] {
	if c.Windows == nil {
		return nil
	}
	return c.Windows(name)
}
