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

import "prime-risk-engine/riskevents"

// NoopRule is embedded by custom rules that only care about one or two
// of the three callbacks; the embedding Go idiom stands in for the
// abstract-base-class pattern other languages reach for here.
type NoopRule struct{}

func (NoopRule) OnOrder(*Context, *riskevents.Order) (*Result, error)   { return nil, nil }
func (NoopRule) OnTrade(*Context, *riskevents.Trade) (*Result, error)   { return nil, nil }
func (NoopRule) OnCancel(*Context, *riskevents.Cancel) (*Result, error) { return nil, nil }
