// Package domain defines the core business entities and types for the
// Decycle stake ledger: ownership positions on collection-point funding
// targets and the proportional reward arithmetic between them.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// PositionStatus represents the lifecycle state of a position.
//
// A position leaves StatusActive only through retirement by split or merge;
// claims and distributions touch the accrued balance but never the status.
type PositionStatus string

const (
	PositionActive  PositionStatus = "active"  // live, counted in distributions
	PositionRetired PositionStatus = "retired" // consumed by split/merge; tombstone, id never reused
)

// ──────────────────────────────────────────────────────────────────────────────
// Position
// ──────────────────────────────────────────────────────────────────────────────

// Position is the unit of ownership: a proportional claim on one funding
// target's future settlement proceeds.
//
// All monetary fields are integers in the smallest currency unit (kuruş);
// ShareBps is the ownership share in basis points of the target's funding
// goal. ShareBps values for one target are NOT guaranteed to sum to 10 000 —
// overfunding is possible — so distribution always works off the live sum.
type Position struct {
	ID             int64          `json:"id"              db:"id"`
	Owner          uuid.UUID      `json:"owner"           db:"owner"`
	TargetID       uuid.UUID      `json:"target_id"       db:"target_id"`
	StakedAmount   int64          `json:"staked_amount"   db:"staked_amount"`
	ShareBps       int64          `json:"share_bps"       db:"share_bps"`
	AccruedRewards int64          `json:"accrued_rewards" db:"accrued_rewards"`
	StakedAt       time.Time      `json:"staked_at"       db:"staked_at"`
	ParentID       *int64         `json:"parent_id"       db:"parent_id"` // lineage only, not load-bearing
	IsSplitResult  bool           `json:"is_split_result" db:"is_split_result"`
	Status         PositionStatus `json:"status"          db:"status"`
	CreatedAt      time.Time      `json:"created_at"      db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"      db:"updated_at"`
}

// IsActive returns true while the position participates in distributions.
func (p *Position) IsActive() bool {
	return p.Status == PositionActive
}

// SharePercent returns the ownership share as a display percentage
// (e.g. 2 500 bps → 25). Presentation only — ledger arithmetic stays in bps.
func (p *Position) SharePercent() decimal.Decimal {
	return decimal.NewFromInt(p.ShareBps).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(BpsDenominator))
}

// StakedTRY returns the staked amount in display units.
func (p *Position) StakedTRY() decimal.Decimal {
	return decimal.NewFromInt(p.StakedAmount).Div(decimal.NewFromInt(CurrencyScale))
}

// RewardsTRY returns the unclaimed reward balance in display units.
func (p *Position) RewardsTRY() decimal.Decimal {
	return decimal.NewFromInt(p.AccruedRewards).Div(decimal.NewFromInt(CurrencyScale))
}

// ──────────────────────────────────────────────────────────────────────────────
// PositionResponse — API read model
// ──────────────────────────────────────────────────────────────────────────────

// PositionResponse is the API-safe view of a position with display conversions.
type PositionResponse struct {
	ID             int64           `json:"id"`
	Owner          uuid.UUID       `json:"owner"`
	TargetID       uuid.UUID       `json:"target_id"`
	StakedAmount   int64           `json:"staked_amount"`
	StakedTRY      decimal.Decimal `json:"staked_try"`
	ShareBps       int64           `json:"share_bps"`
	SharePercent   decimal.Decimal `json:"share_percent"`
	AccruedRewards int64           `json:"accrued_rewards"`
	RewardsTRY     decimal.Decimal `json:"rewards_try"`
	StakedAt       time.Time       `json:"staked_at"`
	ParentID       *int64          `json:"parent_id,omitempty"`
	IsSplitResult  bool            `json:"is_split_result"`
}

// ToResponse converts a Position to its API response form.
func (p *Position) ToResponse() PositionResponse {
	return PositionResponse{
		ID:             p.ID,
		Owner:          p.Owner,
		TargetID:       p.TargetID,
		StakedAmount:   p.StakedAmount,
		StakedTRY:      p.StakedTRY(),
		ShareBps:       p.ShareBps,
		SharePercent:   p.SharePercent(),
		AccruedRewards: p.AccruedRewards,
		RewardsTRY:     p.RewardsTRY(),
		StakedAt:       p.StakedAt,
		ParentID:       p.ParentID,
		IsSplitResult:  p.IsSplitResult,
	}
}
