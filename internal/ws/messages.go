// Package ws holds WebSocket message types and the Hub implementation.
// messages.go defines all message structs broadcast to connected clients.
package ws

import (
	"time"

	"github.com/Decycle-IO/stakeledger/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MsgType identifies the kind of WS message so clients can switch on it.
type MsgType string

const (
	MsgTypeLedgerEvent   MsgType = "ledger_event"
	MsgTypeTargetUpdate  MsgType = "target_update"
	MsgTypeFundingClosed MsgType = "funding_closed"
	MsgTypeError         MsgType = "error"
)

// ──────────────────────────────────────────────────────────────────────────────
// LedgerEventMessage — broadcast for every ledger mutation.
// ──────────────────────────────────────────────────────────────────────────────

// LedgerEventMessage mirrors the audit stream onto connected clients so
// dashboards can follow mints, splits, merges, distributions, and claims live.
type LedgerEventMessage struct {
	Type       MsgType          `json:"type"`
	Event      domain.EventType `json:"event"`
	TargetID   uuid.UUID        `json:"target_id"`
	PositionID *int64           `json:"position_id,omitempty"`
	Amount     int64            `json:"amount"`
	AmountTRY  decimal.Decimal  `json:"amount_try"`
	Detail     string           `json:"detail"`
	Timestamp  time.Time        `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// TargetUpdateMessage — broadcast when a target's funding progress changes.
// ──────────────────────────────────────────────────────────────────────────────

// TargetUpdateMessage carries the refreshed funding state of one target.
type TargetUpdateMessage struct {
	Type          MsgType         `json:"type"`
	TargetID      uuid.UUID       `json:"target_id"`
	Funded        int64           `json:"funded"`
	FundingGoal   int64           `json:"funding_goal"`
	FundedPercent decimal.Decimal `json:"funded_percent"`
	Timestamp     time.Time       `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// FundingClosedMessage — broadcast when a target leaves the funding phase.
// ──────────────────────────────────────────────────────────────────────────────

// FundingClosedMessage tells clients that no further positions can be minted
// against the target.
type FundingClosedMessage struct {
	Type      MsgType   `json:"type"`
	TargetID  uuid.UUID `json:"target_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// ErrorMessage — sent to a single client on a non-fatal error.
// ──────────────────────────────────────────────────────────────────────────────

// ErrorMessage is sent directly to one client (not broadcast).
type ErrorMessage struct {
	Type    MsgType `json:"type"`
	Code    string  `json:"code"`
	Message string  `json:"message"`
}
