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

package riskevents

// Action is the closed set of remediation kinds a rule can request. The
// core never enforces any of these itself — it only emits records; the
// surrounding trading platform is responsible for carrying them out.
type Action uint8

const (
	SuspendAccountTrading Action = iota
	ResumeAccountTrading
	SuspendOrdering
	ResumeOrdering
	BlockOrder
	Alert
	ReducePosition
	IncreaseMargin
	SuspendContract
	SuspendProduct
	SuspendExchange
	SuspendAccountGroup
	ForceClose
	BlockCancel
)

func (a Action) String() string {
	names := [...]string{
		"SUSPEND_ACCOUNT_TRADING", "RESUME_ACCOUNT_TRADING",
		"SUSPEND_ORDERING", "RESUME_ORDERING",
		"BLOCK_ORDER", "ALERT", "REDUCE_POSITION", "INCREASE_MARGIN",
		"SUSPEND_CONTRACT", "SUSPEND_PRODUCT", "SUSPEND_EXCHANGE",
		"SUSPEND_ACCOUNT_GROUP", "FORCE_CLOSE", "BLOCK_CANCEL",
	}
	if int(a) < len(names) {
		return names[a]
	}
	return "UNKNOWN_ACTION"
}

// ActionRecord is a single emitted action, fully self-describing for
// downstream routing and traceability.
type ActionRecord struct {
	Action      Action
	Subject     string // stringified aggregation key
	RuleID      string
	Reason      string
	TimestampNs uint64
	Metadata    map[string]any
}

// ActionTriple is what Engine.On* returns to the caller: the action, the
// rule that produced it, and the originating event for traceability.
type ActionTriple struct {
	Record       ActionRecord
	SubjectEvent any
}

// Sink is the caller-supplied callable invoked for every emitted action.
// It must be thread-safe and must not block; slow sinks are the caller's
// responsibility to buffer externally.
type Sink func(record ActionRecord, subjectEvent any)
