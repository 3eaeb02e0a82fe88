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

// Package riskengine implements the orchestrator that ties the
// instrument catalog, sharded counter store, rolling-window counters,
// and the rule set together: one Engine per trading venue / risk book,
// fed an ordered, non-decreasing-timestamp stream of orders, trades,
// and cancels.
package riskengine

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"prime-risk-engine/catalog"
	"prime-risk-engine/counterstore"
	"prime-risk-engine/riskevents"
	"prime-risk-engine/riskrules"
	"prime-risk-engine/window"
)

// ErrRuleNotFound is returned by RemoveRule and UpdateRuleParameter when
// no rule with the given id is in the active list.
var ErrRuleNotFound = errors.New("riskengine: rule not found")

// ErrDuplicateRuleID is returned by AddRule when a rule with the same id
// is already active.
var ErrDuplicateRuleID = errors.New("riskengine: duplicate rule id")

// Engine is the risk engine orchestrator. It is safe for concurrent
// use: On* methods may be called from multiple goroutines as long as
// events for the same logical key arrive in non-decreasing timestamp
// order.
type Engine struct {
	catalog *catalog.Catalog
	store   *counterstore.Store

	windowsMu sync.RWMutex
	windows   map[string]namedWindow

	rules atomic.Pointer[[]riskrules.Rule]

	attrib *attributionTable

	sinkMu sync.RWMutex
	sink   riskevents.Sink

	dedupEnabled bool
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithAttributionCapacity overrides the default total capacity of the
// order-attribution table (spread evenly across its shards).
func WithAttributionCapacity(capacity int) Option {
	return func(e *Engine) { e.attrib = newAttributionTable(capacity) }
}

// WithDedup toggles the per-event (Action, subject-key) dedup pass.
// Enabled by default.
func WithDedup(enabled bool) Option {
	return func(e *Engine) { e.dedupEnabled = enabled }
}

// New builds an Engine around an already-constructed Catalog. The
// counter store and window registry are owned by the Engine from here
// on.
func New(cat *catalog.Catalog, opts ...Option) *Engine {
	empty := make([]riskrules.Rule, 0)
	e := &Engine{
		catalog:      cat,
		store:        counterstore.New(),
		windows:      make(map[string]namedWindow),
		attrib:       newAttributionTable(defaultAttributionCapacity),
		dedupEnabled: true,
	}
	e.rules.Store(&empty)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store exposes the underlying counter store, e.g. for a persistence
// layer's snapshot/restore.
func (e *Engine) Store() *counterstore.Store { return e.store }

// Catalog exposes the instrument catalog, e.g. to register new
// extension dimension names on a running engine.
func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

// namedWindow pairs a registered rolling-window counter with the window
// size it was created for, so a re-registration can tell "reuse" apart
// from "resize".
type namedWindow struct {
	seconds int
	counter *window.Counter[riskevents.DimKey]
}

// RegisterWindow returns the rolling-window counter registered under
// name, creating it if absent. An existing registration is reused only
// when its window size matches; a size change replaces the counter and
// discards the accumulated counts, since a ring cannot be resized in
// place. Built-in RateLimit rules bind here under their rule id (see
// SharedWindowRule), which is what lets a rule-list swap that keeps the
// id and window size inherit the old instance's window state.
func (e *Engine) RegisterWindow(name string, seconds int) *window.Counter[riskevents.DimKey] {
	e.windowsMu.Lock()
	defer e.windowsMu.Unlock()
	if nw, ok := e.windows[name]; ok && nw.seconds == seconds {
		return nw.counter
	}
	w := window.New(seconds, riskevents.DimKey.Hash)
	e.windows[name] = namedWindow{seconds: seconds, counter: w}
	return w
}

func (e *Engine) lookupWindow(name string) *window.Counter[riskevents.DimKey] {
	e.windowsMu.RLock()
	defer e.windowsMu.RUnlock()
	return e.windows[name].counter
}

// SharedWindowRule is implemented by rules whose rolling-window state
// belongs in the engine's named-window registry rather than in the rule
// instance itself. The engine binds such a rule on AddRule and
// ReplaceRules, so replacing an instance (say, to tighten a threshold)
// keeps the counts its predecessor accumulated.
type SharedWindowRule interface {
	WindowName() string
	WindowSeconds() int
	AttachWindow(*window.Counter[riskevents.DimKey])
}

func (e *Engine) bindSharedWindow(r riskrules.Rule) {
	if sw, ok := r.(SharedWindowRule); ok {
		sw.AttachWindow(e.RegisterWindow(sw.WindowName(), sw.WindowSeconds()))
	}
}

// SetActionSink installs the callable invoked synchronously for every
// surviving action triple. A nil sink silently discards actions.
func (e *Engine) SetActionSink(sink riskevents.Sink) {
	e.sinkMu.Lock()
	e.sink = sink
	e.sinkMu.Unlock()
}

// AddRule appends a rule to the active list via copy-on-write atomic
// swap: in-flight readers of the old slice are unaffected.
func (e *Engine) AddRule(r riskrules.Rule) error {
	e.bindSharedWindow(r)
	for {
		oldPtr := e.rules.Load()
		old := *oldPtr
		for _, existing := range old {
			if existing.RuleID() == r.RuleID() {
				return fmt.Errorf("%w: %s", ErrDuplicateRuleID, r.RuleID())
			}
		}
		next := make([]riskrules.Rule, len(old)+1)
		copy(next, old)
		next[len(old)] = r
		if e.rules.CompareAndSwap(oldPtr, &next) {
			return nil
		}
	}
}

// RemoveRule drops the rule with the given id from the active list.
func (e *Engine) RemoveRule(ruleID string) error {
	for {
		oldPtr := e.rules.Load()
		old := *oldPtr
		idx := -1
		for i, r := range old {
			if r.RuleID() == ruleID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrRuleNotFound, ruleID)
		}
		next := make([]riskrules.Rule, 0, len(old)-1)
		next = append(next, old[:idx]...)
		next = append(next, old[idx+1:]...)
		if e.rules.CompareAndSwap(oldPtr, &next) {
			return nil
		}
	}
}

// ReplaceRules atomically swaps the entire active rule list. Readers
// mid-event always see either the pre- or post-swap list in full.
func (e *Engine) ReplaceRules(rules []riskrules.Rule) {
	next := append([]riskrules.Rule(nil), rules...)
	for _, r := range next {
		e.bindSharedWindow(r)
	}
	e.rules.Store(&next)
}

// Rules returns a snapshot copy of the currently active rule list.
func (e *Engine) Rules() []riskrules.Rule {
	cur := *e.rules.Load()
	return append([]riskrules.Rule(nil), cur...)
}

// RuleParameterUpdater is implemented by built-in rules that support
// UpdateRuleParameter. Custom rules may implement it too.
type RuleParameterUpdater interface {
	UpdateThreshold(newValue float64) error
}

// UpdateRuleParameter mutates a named parameter of an already-active
// rule in place. Only "threshold" is generically supported across rule
// families here; riskrules.CumulativeMetricLimit and riskrules.RateLimit
// each validate the new value with the same invariants
// NewCumulativeMetricLimit/NewRateLimit enforce at construction
// (threshold > 0). Changing window_seconds requires replacing the rule
// instance via ReplaceRules, since the rolling window's ring size is
// fixed at construction — still a hot swap, just at whole-rule
// granularity instead of in place.
func (e *Engine) UpdateRuleParameter(ruleID, parameterName string, newValue float64) error {
	cur := *e.rules.Load()
	for _, r := range cur {
		if r.RuleID() != ruleID {
			continue
		}
		if parameterName != "threshold" {
			return fmt.Errorf("riskengine: unsupported parameter %q for rule %s", parameterName, ruleID)
		}
		switch rule := r.(type) {
		case *riskrules.CumulativeMetricLimit:
			return rule.UpdateThreshold(newValue)
		case *riskrules.RateLimit:
			return rule.UpdateThreshold(int64(newValue))
		default:
			if updater, ok := r.(RuleParameterUpdater); ok {
				return updater.UpdateThreshold(newValue)
			}
			return fmt.Errorf("riskengine: rule %s does not support parameter updates", ruleID)
		}
	}
	return fmt.Errorf("%w: %s", ErrRuleNotFound, ruleID)
}

func (e *Engine) emit(triples []riskevents.ActionTriple) {
	e.sinkMu.RLock()
	sink := e.sink
	e.sinkMu.RUnlock()
	if sink == nil {
		return
	}
	for _, triple := range triples {
		e.callSink(sink, triple)
	}
}

func (e *Engine) callSink(sink riskevents.Sink, triple riskevents.ActionTriple) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("riskengine: action sink panicked: %v", r)
		}
	}()
	sink(triple.Record, triple.SubjectEvent)
}

type dedupKey struct {
	action  riskevents.Action
	subject riskevents.DimKey
}

// runRules is the shared per-event procedure used by
// OnOrder/OnTrade/OnCancel, parameterized over which callback to
// invoke: build the context, snapshot the rule list, collect results,
// dedup, flatten to triples.
//
// A non-nil error from a rule callback is a hard, caller-facing failure
// (a counter-store invariant violation such as a metric type mismatch);
// it stops the rule walk and is returned alongside whatever triples
// earlier rules already produced. A panicking rule, by contrast, is
// recovered, logged, and skipped.
func (e *Engine) runRules(dim riskevents.DimKey, tsNs uint64, subjectEvent any, invoke func(*riskrules.Context, riskrules.Rule) (*riskrules.Result, error)) ([]riskevents.ActionTriple, error) {
	ctx := &riskrules.Context{
		Dim:     dim,
		Store:   e.store,
		Windows: e.lookupWindow,
		TsNs:    tsNs,
	}

	active := *e.rules.Load()
	var triples []riskevents.ActionTriple
	var seen map[dedupKey]bool
	if e.dedupEnabled {
		seen = make(map[dedupKey]bool)
	}

	for _, rule := range active {
		res, err := e.invokeRule(ctx, rule, invoke)
		if err != nil {
			return triples, fmt.Errorf("riskengine: rule %s: %w", rule.RuleID(), err)
		}
		if res == nil {
			continue
		}
		reason := ""
		if len(res.Reasons) > 0 {
			reason = res.Reasons[0]
		}
		for _, action := range res.Actions {
			if e.dedupEnabled {
				k := dedupKey{action: action, subject: res.Subject}
				if seen[k] {
					continue
				}
				seen[k] = true
			}
			triples = append(triples, riskevents.ActionTriple{
				Record: riskevents.ActionRecord{
					Action:      action,
					Subject:     res.Subject.String(),
					RuleID:      rule.RuleID(),
					Reason:      reason,
					TimestampNs: tsNs,
					Metadata:    res.Metadata,
				},
				SubjectEvent: subjectEvent,
			})
		}
	}
	return triples, nil
}

func (e *Engine) invokeRule(ctx *riskrules.Context, rule riskrules.Rule, invoke func(*riskrules.Context, riskrules.Rule) (*riskrules.Result, error)) (res *riskrules.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("riskengine: rule %s panicked: %v", rule.RuleID(), r)
			res, err = nil, nil
		}
	}()
	return invoke(ctx, rule)
}

// OnOrder ingests an order event: records its attribution, resolves its
// dimension key, evaluates the active rule list, and returns the
// surviving (deduplicated) action triples after calling the sink for
// each. The error is non-nil only for hard misconfiguration failures
// (e.g. a metric type mismatch on a counter write); triples collected
// before the failure are still returned and forwarded to the sink.
func (e *Engine) OnOrder(o *riskevents.Order) ([]riskevents.ActionTriple, error) {
	e.attrib.record(o.ID, o.AccountID, o.ContractID)

	dim := e.catalog.Resolve(o.AccountID, o.ContractID, o.ExchangeID, o.GroupID)
	triples, err := e.runRules(dim, o.TimestampNs, o, func(ctx *riskrules.Context, r riskrules.Rule) (*riskrules.Result, error) {
		return r.OnOrder(ctx, o)
	})
	e.emit(triples)
	return triples, err
}

// OnTrade ingests a trade event, attributing account/contract from the
// originating order when the event itself omits them.
func (e *Engine) OnTrade(t *riskevents.Trade) ([]riskevents.ActionTriple, error) {
	account, contract := t.AccountID, t.ContractID
	if account == "" || contract == "" {
		if attr, ok := e.attrib.lookup(t.OrderID); ok {
			if account == "" {
				account = attr.AccountID
			}
			if contract == "" {
				contract = attr.ContractID
			}
		}
	}

	dim := e.catalog.Resolve(account, contract, "", "")
	triples, err := e.runRules(dim, t.TimestampNs, t, func(ctx *riskrules.Context, r riskrules.Rule) (*riskrules.Result, error) {
		return r.OnTrade(ctx, t)
	})
	e.emit(triples)
	return triples, err
}

// OnCancel ingests a cancel event, attributing account/contract from the
// cancelled order when the event itself omits them.
func (e *Engine) OnCancel(c *riskevents.Cancel) ([]riskevents.ActionTriple, error) {
	account, contract := c.AccountID, c.ContractID
	if account == "" || contract == "" {
		if attr, ok := e.attrib.lookup(c.CancelledOrder); ok {
			if account == "" {
				account = attr.AccountID
			}
			if contract == "" {
				contract = attr.ContractID
			}
		}
	}

	dim := e.catalog.Resolve(account, contract, "", "")
	triples, err := e.runRules(dim, c.TimestampNs, c, func(ctx *riskrules.Context, r riskrules.Rule) (*riskrules.Result, error) {
		return r.OnCancel(ctx, c)
	})
	e.emit(triples)
	return triples, err
}
