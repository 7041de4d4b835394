package domain

import (
	"time"

	"github.com/google/uuid"
)

// ──────────────────────────────────────────────────────────────────────────────
// EventType
// ──────────────────────────────────────────────────────────────────────────────

// EventType enumerates ledger mutations for the audit stream.
type EventType string

const (
	EventPositionMinted      EventType = "position_minted"
	EventPositionSplit       EventType = "position_split"
	EventPositionsMerged     EventType = "positions_merged"
	EventPositionTransferred EventType = "position_transferred"
	EventRewardsDistributed  EventType = "rewards_distributed"
	EventRewardsClaimed      EventType = "rewards_claimed"
)

// ──────────────────────────────────────────────────────────────────────────────
// LedgerEvent
// ──────────────────────────────────────────────────────────────────────────────

// LedgerEvent is an immutable audit record written for every ledger mutation.
// Amount carries the staked amount for mints, the proceeds for distributions,
// and the claimed value for claims. PositionID is nil for target-wide events.
type LedgerEvent struct {
	ID         uuid.UUID `json:"id"          db:"id"`
	Type       EventType `json:"type"        db:"type"`
	TargetID   uuid.UUID `json:"target_id"   db:"target_id"`
	PositionID *int64    `json:"position_id" db:"position_id"`
	Actor      uuid.UUID `json:"actor"       db:"actor"`
	Amount     int64     `json:"amount"      db:"amount"`
	Detail     string    `json:"detail"      db:"detail"`
	CreatedAt  time.Time `json:"created_at"  db:"created_at"`
}

// ──────────────────────────────────────────────────────────────────────────────
// Settlement
// ──────────────────────────────────────────────────────────────────────────────

// SettlementStatus represents the processing state of a recorded settlement.
type SettlementStatus string

const (
	SettlementPending   SettlementStatus = "pending"
	SettlementProcessed SettlementStatus = "processed"
	SettlementFailed    SettlementStatus = "failed"
)

// Settlement is a queued proceeds-distribution request: collected material was
// converted to value and the result should be spread over a target's positions.
// The scheduler drains pending settlements through the distribution engine.
type Settlement struct {
	ID          uuid.UUID        `json:"id"           db:"id"`
	TargetID    uuid.UUID        `json:"target_id"    db:"target_id"`
	Proceeds    int64            `json:"proceeds"     db:"proceeds"` // smallest units
	Status      SettlementStatus `json:"status"       db:"status"`
	RecordedBy  uuid.UUID        `json:"recorded_by"  db:"recorded_by"`
	Note        string           `json:"note"         db:"note"`
	Distributed int64            `json:"distributed"  db:"distributed"` // total actually credited
	CreatedAt   time.Time        `json:"created_at"   db:"created_at"`
	ProcessedAt *time.Time       `json:"processed_at" db:"processed_at"`
}
