// Package repository defines persistence interfaces for the stake ledger and
// provides two implementations: PostgreSQL (production) and in-memory
// (tests and development mode).
package repository

import (
	"context"

	"github.com/Decycle-IO/stakeledger/internal/domain"
	"github.com/google/uuid"
)

// PositionStore owns the authoritative position table plus its owner and
// target secondary indexes. Retired positions are tombstones: every query
// path filters them out, and Replace is the only way to retire.
//
// Replace must be atomic — the retirements, the creations, and the index
// updates all commit together or not at all.
type PositionStore interface {
	// Create inserts a new active position and assigns its monotonically
	// increasing id (never reused).
	Create(ctx context.Context, p *domain.Position) error

	// CreateFunded inserts a new active position and adds its staked amount to
	// the target's funded total in the same atomic step. Fails with
	// ErrTargetNotFound when the target is unknown, in which case neither
	// write happens.
	CreateFunded(ctx context.Context, p *domain.Position) error

	// GetByID returns an active position, or ErrPositionNotFound when the id
	// is unknown or retired.
	GetByID(ctx context.Context, id int64) (*domain.Position, error)

	// GetByOwner returns all active positions held by an owner.
	GetByOwner(ctx context.Context, owner uuid.UUID) ([]*domain.Position, error)

	// GetByTarget returns a page of active positions for a target, ordered by id.
	GetByTarget(ctx context.Context, target uuid.UUID, limit, offset int) ([]*domain.Position, error)

	// ActiveByTarget returns every active position for a target (the
	// distribution engine's enumeration path).
	ActiveByTarget(ctx context.Context, target uuid.UUID) ([]*domain.Position, error)

	// Replace atomically retires the given ids and creates the successors,
	// assigning fresh ids to each new position in order.
	Replace(ctx context.Context, retire []int64, create []*domain.Position) error

	// AddRewards credits amount to a position's accrued balance. Fails with
	// ErrRewardOverflow when the addition would wrap, ErrPositionNotFound for
	// unknown or retired ids.
	AddRewards(ctx context.Context, id int64, amount int64) error

	// SetAccruedRewards overwrites the accrued balance (claim zeroing and its
	// rollback path).
	SetAccruedRewards(ctx context.Context, id int64, amount int64) error

	// UpdateOwner reassigns a position to a new owner; amounts are untouched.
	UpdateOwner(ctx context.Context, id int64, newOwner uuid.UUID) error
}

// TargetStore persists the minimal funding-target registry the ledger needs:
// the goal that prices shares at mint time and the status that gates minting.
type TargetStore interface {
	Create(ctx context.Context, t *domain.Target) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Target, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Target, error)
	SetStatus(ctx context.Context, id uuid.UUID, status domain.TargetStatus) error
}

// UserStore persists accounts and their roles.
type UserStore interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role domain.Role) error
}

// EventStore persists the append-only audit stream of ledger mutations.
type EventStore interface {
	Insert(ctx context.Context, e *domain.LedgerEvent) error
	ByTarget(ctx context.Context, target uuid.UUID, limit, offset int) ([]*domain.LedgerEvent, error)
}

// SettlementStore persists the queue of recorded proceeds awaiting distribution.
type SettlementStore interface {
	Create(ctx context.Context, s *domain.Settlement) error
	Pending(ctx context.Context) ([]*domain.Settlement, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, distributed int64) error
	MarkFailed(ctx context.Context, id uuid.UUID, note string) error
}
