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

// Package riskevents defines the immutable event and dimension-key value
// types shared by every component of the risk engine: Order, Trade, Cancel
// on the ingest side, DimKey and Metric on the aggregation side, and the
// closed Action taxonomy emitted by rules.
package riskevents

// Side is the order side. The zero value, SideUnspecified, marks an
// order whose side was not given; the engine does not reject such orders.
type Side uint8

const (
	SideUnspecified Side = iota
	SideBid
	SideAsk
)

// Order is an immutable value record for a single order event.
// Time-like and 8-byte fields first, strings next, small scalars last.
type Order struct {
	TimestampNs uint64
	ID          uint64
	AccountID   string
	ContractID  string
	ExchangeID  string // optional override of the catalog lookup
	GroupID     string // optional override of the catalog lookup
	Price       float64
	Volume      int32
	Side        Side
}

// Trade is an immutable value record for a single trade (fill) event.
// AccountID/ContractID are optional on the wire: if empty, the engine
// attributes them from the originating order (see riskengine's
// order-attribution table).
type Trade struct {
	TimestampNs uint64
	ID          uint64
	OrderID     uint64
	AccountID   string
	ContractID  string
	Price       float64
	Volume      int32
}

// Cancel is an immutable value record for a single cancel event.
type Cancel struct {
	TimestampNs    uint64
	ID             uint64
	CancelledOrder uint64
	AccountID      string
	ContractID     string
	Volume         int32
}

// DimName identifies one component of a DimKey.
type DimName string

const (
	DimAccount      DimName = "account_id"
	DimContract     DimName = "contract_id"
	DimProduct      DimName = "product_id"
	DimExchange     DimName = "exchange_id"
	DimAccountGroup DimName = "account_group_id"
)

// DimComponent is one (name, value) pair of a resolved dimension key.
type DimComponent struct {
	Name  DimName
	Value string
}

// DimKey is the sorted, immutable tuple of active dimension components
// resolved for an event by the Instrument Catalog. Two DimKeys with the
// same active names and values compare equal with ==, since the backing
// array is a fixed-size value type and Go compares arrays element-wise.
//
// maxDimComponents bounds the number of simultaneously active dimensions
// (5 built-in + a handful of registered extensions); this keeps DimKey a
// plain comparable value usable directly as a map key, which the counter
// store's O(1) lookups depend on.
const maxDimComponents = 12

type DimKey struct {
	components [maxDimComponents]DimComponent
	n          int
}

// NewDimKey builds a DimKey from already-sorted, non-null components.
// Callers (the catalog) are responsible for sorting by Name and omitting
// nil values; NewDimKey itself does not re-sort, to keep it allocation-free
// on the hot resolve path.
func NewDimKey(components ...DimComponent) DimKey {
	var k DimKey
	n := len(components)
	if n > maxDimComponents {
		n = maxDimComponents
	}
	copy(k.components[:n], components[:n])
	k.n = n
	return k
}

// Components returns the active (name, value) pairs in sorted order.
func (k DimKey) Components() []DimComponent {
	return append([]DimComponent(nil), k.components[:k.n]...)
}

// Get returns the value for name and whether it was present.
func (k DimKey) Get(name DimName) (string, bool) {
	for i := 0; i < k.n; i++ {
		if k.components[i].Name == name {
			return k.components[i].Value, true
		}
	}
	return "", false
}

// Project returns a new DimKey containing only the requested names, in
// the same relative order they appeared in k. If any requested name is
// absent from k, ok is false and the aggregation rule using this key
// should treat itself as inapplicable for the event.
func (k DimKey) Project(names ...DimName) (DimKey, bool) {
	var out DimKey
	for i := 0; i < k.n; i++ {
		c := k.components[i]
		for _, name := range names {
			if c.Name == name {
				out.components[out.n] = c
				out.n++
				break
			}
		}
	}
	if out.n != len(names) {
		return DimKey{}, false
	}
	return out, true
}

// String renders a stable, human-readable subject string for an action
// record, e.g. "account_id=A,product_id=T10Y".
func (k DimKey) String() string {
	if k.n == 0 {
		return ""
	}
	out := make([]byte, 0, 16*k.n)
	for i := 0; i < k.n; i++ {
		if i > 0 {
			out = append(out, ',')
		}
		out = append(out, k.components[i].Name...)
		out = append(out, '=')
		out = append(out, k.components[i].Value...)
	}
	return string(out)
}

// DayID is the UTC whole-day index derived from an event timestamp.
// Plain integer division on a Unix-nanosecond timestamp already yields a
// UTC day index; no time.Time conversion is needed or correct here, since
// time.Time would imply a local-time interpretation we don't want.
func DayID(tsNs uint64) int64 {
	const nsPerDay = 86_400 * 1_000_000_000
	return int64(tsNs / nsPerDay)
}

// Metric is the closed enumeration of counter-store slots.
type Metric uint8

const (
	MetricTradeVolume Metric = iota
	MetricTradeNotional
	MetricTradeCount
	MetricOrderCount
	MetricOrderVolume
	MetricOrderNotional
	MetricCancelCount
	MetricCancelVolume
	MetricCancelRate     // reserved: no built-in rule defines its delta
	MetricPositionVolume // reserved extension slot
	MetricPositionNotional
	MetricPnLRealized
	MetricPnLUnrealized
	MetricMarginUsed

	metricCount
)

func (m Metric) String() string {
	names := [...]string{
		"trade_volume", "trade_notional", "trade_count",
		"order_count", "order_volume", "order_notional",
		"cancel_count", "cancel_volume", "cancel_rate",
		"position_volume", "position_notional",
		"pnl_realized", "pnl_unrealized", "margin_used",
	}
	if int(m) < len(names) {
		return names[m]
	}
	return "unknown_metric"
}
