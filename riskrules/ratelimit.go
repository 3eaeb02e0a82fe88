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
	"sync"

	"prime-risk-engine/riskevents"
	"prime-risk-engine/window"
)

// ErrInvalidWindow is returned when window_seconds is not >= 1.
var ErrInvalidWindow = errors.New("riskrules: window_seconds must be >= 1")

// CountedEvent selects which callback RateLimit counts against its
// rolling window.
type CountedEvent uint8

const (
	CountOrders CountedEvent = iota
	CountCancels
)

// RateLimit suspends an aggregation key once its rolling count of
// orders or cancels reaches a threshold within a window, and
// auto-resumes it on the first counted event whose window total is back
// below threshold.
// The suspended flag is per-aggregation-key and is
// the only thing this rule emits transitions on; it never re-emits
// suspend_actions while already suspended, nor resume_actions while
// already resumed.
//
// The rolling-window counter is named by the rule id and, when the rule
// runs under an engine, lives in the engine's named-window registry
// (via AttachWindow): replacing the rule instance with a same-id,
// same-window-size successor — say, to tighten the threshold — keeps
// the already-accumulated counts, so the very next event can trip the
// new threshold. A standalone RateLimit falls back to a private window.
type RateLimit struct {
	id             string
	threshold      int64
	windowSeconds  int
	counted        CountedEvent
	dims           []riskevents.DimName
	suspendActions []riskevents.Action
	resumeActions  []riskevents.Action

	win *window.Counter[riskevents.DimKey]

	mu        sync.Mutex
	suspended map[riskevents.DimKey]bool
}

// NewRateLimit validates threshold > 0, windowSeconds >= 1, and a
// non-empty dimension selection, and at least one suspend action;
// UpdateThreshold later re-checks only threshold > 0.
func NewRateLimit(id string, threshold int64, windowSeconds int, counted CountedEvent, dims []riskevents.DimName, suspendActions, resumeActions []riskevents.Action) (*RateLimit, error) {
	if threshold <= 0 {
		return nil, ErrInvalidThreshold
	}
	if windowSeconds < 1 {
		return nil, ErrInvalidWindow
	}
	if len(dims) == 0 {
		return nil, ErrInvalidDimensions
	}
	if len(suspendActions) == 0 {
		return nil, fmt.Errorf("riskrules: %s requires at least one suspend action", id)
	}
	return &RateLimit{
		id:             id,
		threshold:      threshold,
		windowSeconds:  windowSeconds,
		counted:        counted,
		dims:           append([]riskevents.DimName(nil), dims...),
		suspendActions: append([]riskevents.Action(nil), suspendActions...),
		resumeActions:  append([]riskevents.Action(nil), resumeActions...),
		win:            window.New(windowSeconds, riskevents.DimKey.Hash),
		suspended:      make(map[riskevents.DimKey]bool),
	}, nil
}

func (r *RateLimit) RuleID() string { return r.id }

// WindowName identifies the shared rolling-window counter this rule
// reads and writes: the rule id, so a replacement instance with the
// same id binds to the same accumulated state.
func (r *RateLimit) WindowName() string { return r.id }

// WindowSeconds reports the window size the shared counter must have.
func (r *RateLimit) WindowSeconds() int { return r.windowSeconds }

// AttachWindow swaps the rule's window for an engine-registered shared
// one. Called by the engine when the rule is added or swapped in,
// before the rule is live; never during evaluation.
func (r *RateLimit) AttachWindow(w *window.Counter[riskevents.DimKey]) { r.win = w }

// UpdateThreshold re-validates and swaps the threshold in place. Unlike
// the window size, the threshold can change without discarding
// in-flight window state.
func (r *RateLimit) UpdateThreshold(threshold int64) error {
	if threshold <= 0 {
		return ErrInvalidThreshold
	}
	r.mu.Lock()
	r.threshold = threshold
	r.mu.Unlock()
	return nil
}

func (r *RateLimit) evaluate(ctx *Context, agg riskevents.DimKey) *Result {
	r.win.Add(agg, ctx.TsNs, 1)
	total := r.win.Total(agg, ctx.TsNs)

	r.mu.Lock()
	defer r.mu.Unlock()

	wasSuspended := r.suspended[agg]
	switch {
	case total >= r.threshold && !wasSuspended:
		r.suspended[agg] = true
		return &Result{
			Actions: r.suspendActions,
			Reasons: []string{fmt.Sprintf("rate %d over %ds window (threshold %d) for %s", total, r.windowSeconds, r.threshold, agg)},
			Subject: agg,
		}
	case total < r.threshold && wasSuspended:
		r.suspended[agg] = false
		return &Result{
			Actions: r.resumeActions,
			Reasons: []string{fmt.Sprintf("rate %d fell below threshold %d for %s", total, r.threshold, agg)},
			Subject: agg,
		}
	default:
		return nil
	}
}

func (r *RateLimit) OnOrder(ctx *Context, o *riskevents.Order) (*Result, error) {
	if r.counted != CountOrders {
		return nil, nil
	}
	agg, ok := ctx.Dim.Project(r.dims...)
	if !ok {
		return nil, nil
	}
	return r.evaluate(ctx, agg), nil
}

func (r *RateLimit) OnCancel(ctx *Context, c *riskevents.Cancel) (*Result, error) {
	if r.counted != CountCancels {
		return nil, nil
	}
	agg, ok := ctx.Dim.Project(r.dims...)
	if !ok {
		return nil, nil
	}
	return r.evaluate(ctx, agg), nil
}

func (r *RateLimit) OnTrade(*Context, *riskevents.Trade) (*Result, error) { return nil, nil }
