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

// Package fixgateway adapts a FIX order-entry session to the risk
// engine's ingest API. It is a transport adapter, not part of the
// engine core: nothing in riskengine, riskrules, counterstore or
// window imports this package, only the reverse.
//
// HOT PATH: FromApp is called by quickfix for every inbound application
// message. The dispatch itself is a handful of string compares; the
// cost that matters is the engine's On* call each handler makes
// afterward.
package fixgateway

import (
	"log"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quickfixgo/quickfix"

	"prime-risk-engine/fixgateway/fixconstants"
	"prime-risk-engine/riskengine"
	"prime-risk-engine/riskevents"
)

// Engine is the subset of *riskengine.Engine the gateway depends on,
// narrowed to the three ingest methods so tests can supply a fake.
type Engine interface {
	OnOrder(*riskevents.Order) ([]riskevents.ActionTriple, error)
	OnTrade(*riskevents.Trade) ([]riskevents.ActionTriple, error)
	OnCancel(*riskevents.Cancel) ([]riskevents.ActionTriple, error)
}

var _ Engine = (*riskengine.Engine)(nil)

// Gateway implements quickfix.Application, translating NewOrderSingle
// (D), OrderCancelRequest (F), and ExecutionReport (8) messages into
// riskevents values and feeding them to the wired Engine.
type Gateway struct {
	Engine       Engine
	SenderCompID string
	TargetCompID string

	sessionID quickfix.SessionID

	nextOrderID uint64 // atomic

	mu          sync.Mutex
	orderIDByCl map[string]uint64 // ClOrdID -> engine order id
	accountByCl map[string]string
	symbolByCl  map[string]string

	shouldExit bool
}

// New builds a Gateway around an already-constructed Engine.
// senderCompID and targetCompID populate outgoing message headers.
func New(engine Engine, senderCompID, targetCompID string) *Gateway {
	return &Gateway{
		Engine:       engine,
		SenderCompID: senderCompID,
		TargetCompID: targetCompID,
		orderIDByCl:  make(map[string]uint64),
		accountByCl:  make(map[string]string),
		symbolByCl:   make(map[string]string),
	}
}

func (g *Gateway) OnCreate(sid quickfix.SessionID) {
	g.sessionID = sid
}

func (g *Gateway) OnLogon(sid quickfix.SessionID) {
	g.sessionID = sid
	log.Println("fixgateway: logon", sid)
}

func (g *Gateway) OnLogout(sid quickfix.SessionID) {
	log.Println("fixgateway: logout", sid)
}

func (g *Gateway) FromAdmin(_ *quickfix.Message, _ quickfix.SessionID) quickfix.MessageRejectError {
	return nil
}

func (g *Gateway) ToAdmin(_ *quickfix.Message, _ quickfix.SessionID) {}

func (g *Gateway) ToApp(_ *quickfix.Message, _ quickfix.SessionID) error {
	return nil
}

// ShouldExit reports whether the session loop driving this gateway
// should stop reconnecting. The gateway itself never sets it; the flag
// exists for a session supervisor to consult.
func (g *Gateway) ShouldExit() bool { return g.shouldExit }

// FromApp is the entry point for all application-level FIX messages.
// HOT PATH: routes on the MsgType header field, then calls straight
// into the wired engine.
func (g *Gateway) FromApp(msg *quickfix.Message, sid quickfix.SessionID) quickfix.MessageRejectError {
	msgType, _ := msg.Header.GetString(fixconstants.TagMsgType)
	switch msgType {
	case fixconstants.MsgTypeNewOrderSingle:
		g.handleNewOrderSingle(msg, sid)
	case fixconstants.MsgTypeOrderCancelRequest:
		g.handleOrderCancelRequest(msg, sid)
	case fixconstants.MsgTypeExecutionReport:
		g.handleExecutionReport(msg, sid)
	default:
		log.Printf("fixgateway: received unhandled application message type %s", msgType)
	}
	return nil
}

// fieldGetter is the read-side slice of quickfix.FieldMap that
// quickfix.Body and quickfix.Header both satisfy through embedding.
// Narrowing to this keeps the helpers below testable without a live
// quickfix.Message.
type fieldGetter interface {
	GetString(tag quickfix.Tag) (string, quickfix.MessageRejectError)
}

func getString(fm fieldGetter, tag quickfix.Tag) string {
	v, _ := fm.GetString(tag)
	return v
}

func getInt32(fm fieldGetter, tag quickfix.Tag) int32 {
	s := getString(fm, tag)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int32(f)
}

func getFloat(fm fieldGetter, tag quickfix.Tag) float64 {
	s := getString(fm, tag)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// transactTimeNs parses tag 60 into Unix nanoseconds, falling back to
// wall-clock time if the field is absent or malformed. Rules never read
// wall time themselves, but something has to turn a wire timestamp
// string into the uint64 nanosecond clock the engine uses uniformly,
// and this is the one place in the system that does.
func transactTimeNs(fm fieldGetter) uint64 {
	s := getString(fm, fixconstants.TagTransactTime)
	if s != "" {
		if t, err := time.Parse(fixconstants.FixTimeFormat, s); err == nil {
			return uint64(t.UnixNano())
		}
	}
	return uint64(time.Now().UnixNano())
}

func sideFromFix(s string) riskevents.Side {
	switch s {
	case fixconstants.SideBuy:
		return riskevents.SideBid
	case fixconstants.SideSell:
		return riskevents.SideAsk
	default:
		return riskevents.SideUnspecified
	}
}

// handleNewOrderSingle translates a NewOrderSingle (D) into a
// riskevents.Order, assigns it a gateway-local engine order id (FIX
// ClOrdIDs are strings; the engine's attribution table is keyed on
// uint64), and reacts to any blocking action the engine returns by
// rejecting the order back to the originating session.
func (g *Gateway) handleNewOrderSingle(msg *quickfix.Message, sid quickfix.SessionID) {
	clOrdID := getString(&msg.Body, fixconstants.TagClOrdID)
	account := getString(&msg.Body, fixconstants.TagAccount)
	symbol := getString(&msg.Body, fixconstants.TagSymbol)
	side := sideFromFix(getString(&msg.Body, fixconstants.TagSide))
	qty := getInt32(&msg.Body, fixconstants.TagOrderQty)
	price := getFloat(&msg.Body, fixconstants.TagPrice)

	orderID := atomic.AddUint64(&g.nextOrderID, 1)

	g.mu.Lock()
	g.orderIDByCl[clOrdID] = orderID
	g.accountByCl[clOrdID] = account
	g.symbolByCl[clOrdID] = symbol
	g.mu.Unlock()

	order := &riskevents.Order{
		TimestampNs: transactTimeNs(&msg.Body),
		ID:          orderID,
		AccountID:   account,
		ContractID:  symbol,
		Price:       price,
		Volume:      qty,
		Side:        side,
	}

	triples, err := g.Engine.OnOrder(order)
	if err != nil {
		log.Printf("fixgateway: engine error on order %s: %v", clOrdID, err)
	}
	g.rejectIfBlocked(triples, clOrdID, account, symbol, side, sid)
}

// handleOrderCancelRequest translates an OrderCancelRequest (F) into a
// riskevents.Cancel. The cancelled order's engine id is recovered from
// the ClOrdID -> order id map populated by handleNewOrderSingle; a
// cancel for an order this gateway never saw a NewOrderSingle for (e.g.
// a warm-started session) is still forwarded with CancelledOrder == 0;
// no gateway-issued order id is 0, so the engine attributes it from the
// account and symbol carried on the request itself.
func (g *Gateway) handleOrderCancelRequest(msg *quickfix.Message, sid quickfix.SessionID) {
	clOrdID := getString(&msg.Body, fixconstants.TagClOrdID)
	origClOrdID := getString(&msg.Body, fixconstants.TagOrigClOrdID)
	account := getString(&msg.Body, fixconstants.TagAccount)
	symbol := getString(&msg.Body, fixconstants.TagSymbol)
	qty := getInt32(&msg.Body, fixconstants.TagOrderQty)

	g.mu.Lock()
	cancelledOrder := g.orderIDByCl[origClOrdID]
	g.mu.Unlock()

	cancel := &riskevents.Cancel{
		TimestampNs:    transactTimeNs(&msg.Body),
		ID:             atomic.AddUint64(&g.nextOrderID, 1),
		CancelledOrder: cancelledOrder,
		AccountID:      account,
		ContractID:     symbol,
		Volume:         qty,
	}

	triples, err := g.Engine.OnCancel(cancel)
	if err != nil {
		log.Printf("fixgateway: engine error on cancel %s: %v", clOrdID, err)
	}
	g.rejectCancelIfBlocked(triples, clOrdID, sid)
}

// handleExecutionReport translates a fill (ExecType New/PartialFill/
// Filled carries tag 31/32 last-price/last-qty) into a riskevents.Trade.
// Non-fill execution reports (e.g. pending-new acks) carry zero
// LastShares and are not forwarded to the engine, so they never count
// as trades.
func (g *Gateway) handleExecutionReport(msg *quickfix.Message, _ quickfix.SessionID) {
	clOrdID := getString(&msg.Body, fixconstants.TagClOrdID)
	lastPx := getFloat(&msg.Body, fixconstants.TagLastPx)
	lastQty := getInt32(&msg.Body, fixconstants.TagLastShares)
	if lastQty == 0 {
		// Not a fill: nothing traded.
		return
	}

	execID := getString(&msg.Body, fixconstants.TagExecID)
	tradeID := hashExecID(execID)

	g.mu.Lock()
	orderID := g.orderIDByCl[clOrdID]
	account := g.accountByCl[clOrdID]
	symbol := g.symbolByCl[clOrdID]
	g.mu.Unlock()

	trade := &riskevents.Trade{
		TimestampNs: transactTimeNs(&msg.Body),
		ID:          tradeID,
		OrderID:     orderID,
		AccountID:   account,
		ContractID:  symbol,
		Price:       lastPx,
		Volume:      lastQty,
	}

	if _, err := g.Engine.OnTrade(trade); err != nil {
		log.Printf("fixgateway: engine error on execution %s: %v", execID, err)
	}
}

func hashExecID(s string) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return h
}

// isBlocking reports whether a is in the subset of the action taxonomy that the gateway
// reacts to by rejecting the originating order/cancel at the session
// level, rather than merely logging. Every other action (alerts,
// margin/position remediation, exchange/product/group-wide suspends) is
// the surrounding platform's concern, not this one order's.
func isBlocking(a riskevents.Action) bool {
	switch a {
	case riskevents.BlockOrder, riskevents.SuspendOrdering, riskevents.SuspendAccountTrading:
		return true
	default:
		return false
	}
}

func isBlockingCancel(a riskevents.Action) bool {
	return a == riskevents.BlockCancel
}

// rejectIfBlocked sends an ExecutionReport(OrdStatus=Rejected) back to
// the originating session for the first blocking action in triples —
// one outbound response per inbound message, never a queue of them.
func (g *Gateway) rejectIfBlocked(triples []riskevents.ActionTriple, clOrdID, account, symbol string, side riskevents.Side, sid quickfix.SessionID) {
	for _, t := range triples {
		if !isBlocking(t.Record.Action) {
			continue
		}
		msg := buildOrderReject(clOrdID, account, symbol, side, t.Record.Reason, g.SenderCompID, g.TargetCompID)
		if err := quickfix.SendToTarget(msg, sid); err != nil {
			log.Printf("fixgateway: failed to send order reject: %v", err)
		}
		return
	}
}

// rejectCancelIfBlocked mirrors rejectIfBlocked for BLOCK_CANCEL,
// sending an OrderCancelReject (9) instead of an execution report.
func (g *Gateway) rejectCancelIfBlocked(triples []riskevents.ActionTriple, clOrdID string, sid quickfix.SessionID) {
	for _, t := range triples {
		if !isBlockingCancel(t.Record.Action) {
			continue
		}
		msg := buildCancelReject(clOrdID, t.Record.Reason, g.SenderCompID, g.TargetCompID)
		if err := quickfix.SendToTarget(msg, sid); err != nil {
			log.Printf("fixgateway: failed to send cancel reject: %v", err)
		}
		return
	}
}

// FieldSetter is the write-side slice of quickfix.FieldMap satisfied by
// both *quickfix.Header and *quickfix.Body through embedding.
type FieldSetter interface {
	SetField(tag quickfix.Tag, field quickfix.FieldValueWriter) *quickfix.FieldMap
}

func setString(fs FieldSetter, tag quickfix.Tag, value string) {
	fs.SetField(tag, quickfix.FIXString(value))
}

func buildHeader(header *quickfix.Header, msgType, senderCompID, targetCompID string) {
	setString(header, fixconstants.TagBeginString, fixconstants.FixBeginString)
	setString(header, fixconstants.TagMsgType, msgType)
	setString(header, fixconstants.TagSenderCompId, senderCompID)
	setString(header, fixconstants.TagTargetCompId, targetCompID)
	setString(header, fixconstants.TagSendingTime, time.Now().UTC().Format(fixconstants.FixTimeFormat))
}

// buildOrderReject builds a session-level ExecutionReport communicating
// that the risk engine blocked this order.
func buildOrderReject(clOrdID, account, symbol string, side riskevents.Side, reason, senderCompID, targetCompID string) *quickfix.Message {
	m := quickfix.NewMessage()
	buildHeader(&m.Header, fixconstants.MsgTypeExecutionReport, senderCompID, targetCompID)

	setString(&m.Body, fixconstants.TagClOrdID, clOrdID)
	setString(&m.Body, fixconstants.TagAccount, account)
	setString(&m.Body, fixconstants.TagSymbol, symbol)
	setString(&m.Body, fixconstants.TagOrdStatus, fixconstants.OrdStatusRejected)
	setString(&m.Body, fixconstants.TagExecType, fixconstants.ExecTypeRejected)
	setString(&m.Body, fixconstants.TagOrdRejReason, fixconstants.OrdRejReasonExceedsLimit)
	setString(&m.Body, fixconstants.TagText, reason)
	if side == riskevents.SideBid {
		setString(&m.Body, fixconstants.TagSide, fixconstants.SideBuy)
	} else if side == riskevents.SideAsk {
		setString(&m.Body, fixconstants.TagSide, fixconstants.SideSell)
	}
	setString(&m.Body, fixconstants.TagTransactTime, time.Now().UTC().Format(fixconstants.FixTimeFormat))

	return m
}

// buildCancelReject builds an OrderCancelReject (9) for a cancel the
// risk engine blocked.
func buildCancelReject(clOrdID, reason, senderCompID, targetCompID string) *quickfix.Message {
	m := quickfix.NewMessage()
	buildHeader(&m.Header, fixconstants.MsgTypeOrderCancelReject, senderCompID, targetCompID)

	setString(&m.Body, fixconstants.TagClOrdID, clOrdID)
	setString(&m.Body, fixconstants.TagOrdStatus, fixconstants.OrdStatusRejected)
	setString(&m.Body, fixconstants.TagOrdRejReason, fixconstants.OrdRejReasonExceedsLimit)
	setString(&m.Body, fixconstants.TagText, reason)

	return m
}
