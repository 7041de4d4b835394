package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// TargetStatus
// ──────────────────────────────────────────────────────────────────────────────

// TargetStatus represents the funding lifecycle of a collection target.
// The physical deployment lifecycle (pending → active → locked) lives in the
// operations system; the ledger only cares whether minting is still open.
type TargetStatus string

const (
	TargetFunding TargetStatus = "funding" // accepting stakes; positions may be minted
	TargetActive  TargetStatus = "active"  // funding closed; share total is fixed up to splits/merges
)

// ──────────────────────────────────────────────────────────────────────────────
// Target
// ──────────────────────────────────────────────────────────────────────────────

// Target is a collection point being funded. The ledger reads its funding
// goal to price shares at mint time and its status to gate minting; everything
// else about the physical container is someone else's problem.
type Target struct {
	ID          uuid.UUID    `json:"id"           db:"id"`
	Name        string       `json:"name"         db:"name"`
	Location    string       `json:"location"     db:"location"`
	FundingGoal int64        `json:"funding_goal" db:"funding_goal"` // smallest units
	Funded      int64        `json:"funded"       db:"funded"`       // may exceed the goal
	Status      TargetStatus `json:"status"       db:"status"`
	CreatedAt   time.Time    `json:"created_at"   db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"   db:"updated_at"`
}

// IsFunding returns true while positions may still be minted against the target.
func (t *Target) IsFunding() bool {
	return t.Status == TargetFunding
}

// FundedPercent returns funding progress as a display percentage. Can exceed
// 100 when the target is overfunded. Returns zero for a zero goal.
func (t *Target) FundedPercent() decimal.Decimal {
	if t.FundingGoal == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(t.Funded).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(t.FundingGoal))
}
