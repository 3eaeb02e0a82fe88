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

// Package fixconstants holds the FIX tag and enum constants the gateway
// needs for order entry and execution reports.
package fixconstants

import "github.com/quickfixgo/quickfix"

// --- Message Types ---
const (
	MsgTypeLogon          = "A"
	MsgTypeReject         = "3"
	MsgTypeBusinessReject = "j"

	MsgTypeNewOrderSingle     = "D"
	MsgTypeOrderCancelRequest = "F"
	MsgTypeExecutionReport    = "8"
	MsgTypeOrderCancelReject  = "9"
)

// --- Protocol Constants ---
const (
	FixTimeFormat   = "20060102-15:04:05.000"
	FixBeginString  = "FIXT.1.1"
	HeartBtInterval = "30"
)

// --- Side (Tag 54) ---
const (
	SideBuy  = "1"
	SideSell = "2"
)

// --- Order Status (Tag 39) ---
const (
	OrdStatusNew             = "0"
	OrdStatusPartiallyFilled = "1"
	OrdStatusFilled          = "2"
	OrdStatusCanceled        = "4"
	OrdStatusRejected        = "8"
)

// --- Execution Type (Tag 150) ---
const (
	ExecTypeNew      = "0"
	ExecTypeFilled   = "2"
	ExecTypeCanceled = "4"
	ExecTypeRejected = "8"
)

// --- Business Reject Reason (Tag 380) ---
const (
	BusinessRejectReasonOther              = "0"
	BusinessRejectReasonUnsupportedMsgType = "3"
	BusinessRejectReasonNotAuthorized      = "6"
)

// --- Order Reject Reason (Tag 103) ---
const (
	OrdRejReasonExceedsLimit = "3"
	OrdRejReasonOther        = "99"
)

// --- Standard FIX Tags ---
var (
	TagBeginString  = quickfix.Tag(8)
	TagAccount      = quickfix.Tag(1)
	TagClOrdID      = quickfix.Tag(11)
	TagOrigClOrdID  = quickfix.Tag(41)
	TagOrderID      = quickfix.Tag(37)
	TagOrderQty     = quickfix.Tag(38)
	TagOrdStatus    = quickfix.Tag(39)
	TagPrice        = quickfix.Tag(44)
	TagMsgSeqNum    = quickfix.Tag(34)
	TagMsgType      = quickfix.Tag(35)
	TagSenderCompId = quickfix.Tag(49)
	TagTargetCompId = quickfix.Tag(56)
	TagSendingTime  = quickfix.Tag(52)
	TagSide         = quickfix.Tag(54)
	TagSymbol       = quickfix.Tag(55)
	TagText         = quickfix.Tag(58)
	TagTransactTime = quickfix.Tag(60)
	TagExecID       = quickfix.Tag(17)
	TagExecType     = quickfix.Tag(150)
	TagLastPx       = quickfix.Tag(31)
	TagLastShares   = quickfix.Tag(32)
	TagCumQty       = quickfix.Tag(14)
	TagLeavesQty    = quickfix.Tag(151)
	TagOrdRejReason = quickfix.Tag(103)

	TagRefSeqNum            = quickfix.Tag(45)
	TagRefTagID             = quickfix.Tag(371)
	TagRefMsgType           = quickfix.Tag(372)
	TagSessionRejectReason  = quickfix.Tag(373)
	TagBusinessRejectReason = quickfix.Tag(380)
)
