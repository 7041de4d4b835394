package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Decycle-IO/stakeledger/internal/domain"
	"github.com/Decycle-IO/stakeledger/internal/repository"
	"github.com/google/uuid"
)

// ──────────────────────────────────────────────────────────────────────────────
// Interfaces injected into the ledger services to avoid import cycles
// ──────────────────────────────────────────────────────────────────────────────

// Authorizer is the minimal role-check interface the ledger needs from
// AuthService.
type Authorizer interface {
	IsAuthorized(ctx context.Context, who uuid.UUID, required domain.Role) bool
}

// RewardToken is the external token collaborator. The ledger depends only on
// this three-operation surface.
type RewardToken interface {
	Mint(ctx context.Context, to uuid.UUID, amount int64) error
	Transfer(ctx context.Context, to uuid.UUID, amount int64) error
	BalanceOf(ctx context.Context, who uuid.UUID) (int64, error)
}

// Broadcaster is the minimal interface the ledger needs from the WS hub.
type Broadcaster interface {
	BroadcastLedgerEvent(e *domain.LedgerEvent)
}

// ──────────────────────────────────────────────────────────────────────────────
// LedgerService
// ──────────────────────────────────────────────────────────────────────────────

// LedgerService owns the authoritative position table: mint, split, merge,
// claim, ownership transfer, and the query surface.
//
// Every mutating entry point runs under the shared Guard, so operations are
// serial and a collaborator calling back into the ledger mid-operation is
// rejected instead of observing half-applied state.
type LedgerService struct {
	positions   repository.PositionStore
	targets     repository.TargetStore
	events      repository.EventStore
	auth        Authorizer
	token       RewardToken
	guard       *Guard
	broadcaster Broadcaster // injected after the WS hub is built
}

// NewLedgerService creates a LedgerService.
func NewLedgerService(
	positions repository.PositionStore,
	targets repository.TargetStore,
	events repository.EventStore,
	auth Authorizer,
	token RewardToken,
	guard *Guard,
) *LedgerService {
	return &LedgerService{
		positions: positions,
		targets:   targets,
		events:    events,
		auth:      auth,
		token:     token,
		guard:     guard,
	}
}

// SetBroadcaster injects the WS hub dependency post-construction.
func (s *LedgerService) SetBroadcaster(b Broadcaster) { s.broadcaster = b }

// ──────────────────────────────────────────────────────────────────────────────
// Mint
// ──────────────────────────────────────────────────────────────────────────────

// Mint creates a new position against a funding target. Caller must hold the
// minter role. The staked amount is added to the target's funded total, so
// overfunding past the goal simply pushes the live share sum past 10 000 bps.
func (s *LedgerService) Mint(ctx context.Context, caller, owner, targetID uuid.UUID, amount, shareBps int64) (*domain.Position, error) {
	if !s.auth.IsAuthorized(ctx, caller, domain.RoleMinter) {
		return nil, domain.ErrUnauthorized
	}
	if err := s.guard.enter(); err != nil {
		return nil, err
	}
	defer s.guard.exit()

	if owner == uuid.Nil {
		return nil, domain.ErrZeroAddress
	}
	if amount <= 0 {
		return nil, domain.ErrZeroAmount
	}
	if shareBps < 0 {
		return nil, domain.ErrZeroAmount
	}

	target, err := s.targets.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if !target.IsFunding() {
		return nil, domain.ErrTargetNotFunding
	}

	now := time.Now().UTC()
	pos := &domain.Position{
		Owner:          owner,
		TargetID:       targetID,
		StakedAmount:   amount,
		ShareBps:       shareBps,
		AccruedRewards: 0,
		StakedAt:       now,
		Status:         domain.PositionActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.positions.CreateFunded(ctx, pos); err != nil {
		return nil, fmt.Errorf("ledger_service.Mint: create: %w", err)
	}

	s.emit(ctx, domain.EventPositionMinted, targetID, &pos.ID, caller, amount,
		fmt.Sprintf("minted %d bps for %s", shareBps, owner))
	return pos, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Split
// ──────────────────────────────────────────────────────────────────────────────

// Split divides a position into parts. Each successor receives the floor-
// proportional cut of the share and accrued balances; the final part absorbs
// the rounding remainder so both sums are conserved exactly. The original
// position is retired and its id never reused.
func (s *LedgerService) Split(ctx context.Context, caller uuid.UUID, positionID int64, parts []int64) ([]*domain.Position, error) {
	if err := s.guard.enter(); err != nil {
		return nil, err
	}
	defer s.guard.exit()

	pos, err := s.positions.GetByID(ctx, positionID)
	if err != nil {
		return nil, err
	}
	if pos.Owner != caller {
		return nil, domain.ErrNotOwner
	}
	if err := domain.ValidateSplit(pos.StakedAmount, parts); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	parentID := pos.ID
	successors := make([]*domain.Position, len(parts))
	var shareUsed, rewardsUsed int64
	for i, part := range parts {
		share := domain.Proportional(pos.ShareBps, part, pos.StakedAmount)
		rewards := domain.Proportional(pos.AccruedRewards, part, pos.StakedAmount)
		if i == len(parts)-1 {
			// Last part takes the remainder; floor rounding on the earlier
			// parts must not destroy share or rewards.
			share = pos.ShareBps - shareUsed
			rewards = pos.AccruedRewards - rewardsUsed
		}
		shareUsed += share
		rewardsUsed += rewards

		successors[i] = &domain.Position{
			Owner:          pos.Owner,
			TargetID:       pos.TargetID,
			StakedAmount:   part,
			ShareBps:       share,
			AccruedRewards: rewards,
			StakedAt:       pos.StakedAt,
			ParentID:       &parentID,
			IsSplitResult:  true,
			Status:         domain.PositionActive,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
	}

	if err := s.positions.Replace(ctx, []int64{pos.ID}, successors); err != nil {
		return nil, fmt.Errorf("ledger_service.Split: replace: %w", err)
	}

	s.emit(ctx, domain.EventPositionSplit, pos.TargetID, &parentID, caller, pos.StakedAmount,
		fmt.Sprintf("split into %d parts", len(parts)))
	return successors, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Merge
// ──────────────────────────────────────────────────────────────────────────────

// Merge combines positions into one. All inputs must belong to the caller and
// reference the same target; the successor carries the exact sums of stake,
// share, and accrued rewards and the earliest staking timestamp. All input
// positions are retired.
func (s *LedgerService) Merge(ctx context.Context, caller uuid.UUID, positionIDs []int64) (*domain.Position, error) {
	if err := s.guard.enter(); err != nil {
		return nil, err
	}
	defer s.guard.exit()

	if len(positionIDs) < 2 {
		return nil, domain.ErrInsufficientCount
	}
	seen := make(map[int64]struct{}, len(positionIDs))
	for _, id := range positionIDs {
		if _, dup := seen[id]; dup {
			return nil, domain.ErrDuplicatePosition
		}
		seen[id] = struct{}{}
	}
	inputs := make([]*domain.Position, len(positionIDs))
	for i, id := range positionIDs {
		pos, err := s.positions.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		inputs[i] = pos
	}
	if err := domain.ValidateMerge(inputs); err != nil {
		return nil, err
	}
	for _, pos := range inputs {
		if pos.Owner != caller {
			return nil, domain.ErrOwnerMismatch
		}
	}

	var staked, share, rewards int64
	stakedAt := inputs[0].StakedAt
	var err error
	for _, pos := range inputs {
		if staked, err = domain.SafeAdd(staked, pos.StakedAmount); err != nil {
			return nil, err
		}
		if share, err = domain.SafeAdd(share, pos.ShareBps); err != nil {
			return nil, err
		}
		if rewards, err = domain.SafeAdd(rewards, pos.AccruedRewards); err != nil {
			return nil, domain.ErrRewardOverflow
		}
		if pos.StakedAt.Before(stakedAt) {
			stakedAt = pos.StakedAt
		}
	}

	now := time.Now().UTC()
	merged := &domain.Position{
		Owner:          caller,
		TargetID:       inputs[0].TargetID,
		StakedAmount:   staked,
		ShareBps:       share,
		AccruedRewards: rewards,
		StakedAt:       stakedAt,
		Status:         domain.PositionActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.positions.Replace(ctx, positionIDs, []*domain.Position{merged}); err != nil {
		return nil, fmt.Errorf("ledger_service.Merge: replace: %w", err)
	}

	s.emit(ctx, domain.EventPositionsMerged, merged.TargetID, &merged.ID, caller, staked,
		fmt.Sprintf("merged %d positions", len(positionIDs)))
	return merged, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Claim
// ──────────────────────────────────────────────────────────────────────────────

// Claim realizes a position's accrued rewards as a token transfer from the
// treasury to the owner. All-or-nothing: if the token transfer fails, the
// accrued balance is restored and the claim reports the failure.
func (s *LedgerService) Claim(ctx context.Context, caller uuid.UUID, positionID int64) (int64, error) {
	if err := s.guard.enter(); err != nil {
		return 0, err
	}
	defer s.guard.exit()

	pos, err := s.positions.GetByID(ctx, positionID)
	if err != nil {
		return 0, err
	}
	if pos.Owner != caller {
		return 0, domain.ErrNotOwner
	}
	if pos.AccruedRewards == 0 {
		return 0, domain.ErrNoRewardsToClaim
	}

	amount := pos.AccruedRewards
	if err := s.positions.SetAccruedRewards(ctx, positionID, 0); err != nil {
		return 0, fmt.Errorf("ledger_service.Claim: zero rewards: %w", err)
	}
	if err := s.token.Transfer(ctx, pos.Owner, amount); err != nil {
		// Roll the claim back so no value is lost on a failed transfer.
		if restoreErr := s.positions.SetAccruedRewards(ctx, positionID, amount); restoreErr != nil {
			return 0, fmt.Errorf("ledger_service.Claim: restore after failed transfer: %w", restoreErr)
		}
		return 0, fmt.Errorf("ledger_service.Claim: transfer: %w", err)
	}

	s.emit(ctx, domain.EventRewardsClaimed, pos.TargetID, &positionID, caller, amount, "rewards claimed")
	return amount, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Transfer
// ──────────────────────────────────────────────────────────────────────────────

// TransferPosition reassigns a position to a new owner. Amounts, share, and
// accrued rewards travel with the position untouched.
func (s *LedgerService) TransferPosition(ctx context.Context, caller uuid.UUID, positionID int64, newOwner uuid.UUID) error {
	if err := s.guard.enter(); err != nil {
		return err
	}
	defer s.guard.exit()

	if newOwner == uuid.Nil {
		return domain.ErrZeroAddress
	}
	pos, err := s.positions.GetByID(ctx, positionID)
	if err != nil {
		return err
	}
	if pos.Owner != caller {
		return domain.ErrNotOwner
	}
	if err := s.positions.UpdateOwner(ctx, positionID, newOwner); err != nil {
		return fmt.Errorf("ledger_service.TransferPosition: %w", err)
	}

	s.emit(ctx, domain.EventPositionTransferred, pos.TargetID, &positionID, caller, pos.StakedAmount,
		fmt.Sprintf("transferred to %s", newOwner))
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Query surface
// ──────────────────────────────────────────────────────────────────────────────

// GetPosition returns one active position.
func (s *LedgerService) GetPosition(ctx context.Context, id int64) (*domain.Position, error) {
	return s.positions.GetByID(ctx, id)
}

// PositionsByOwner returns all active positions held by an owner.
func (s *LedgerService) PositionsByOwner(ctx context.Context, owner uuid.UUID) ([]*domain.Position, error) {
	return s.positions.GetByOwner(ctx, owner)
}

// PositionsByTarget returns a page of active positions for a target.
func (s *LedgerService) PositionsByTarget(ctx context.Context, target uuid.UUID, limit, offset int) ([]*domain.Position, error) {
	return s.positions.GetByTarget(ctx, target, limit, offset)
}

// EventsByTarget returns a page of the target's audit stream, newest first.
func (s *LedgerService) EventsByTarget(ctx context.Context, target uuid.UUID, limit, offset int) ([]*domain.LedgerEvent, error) {
	return s.events.ByTarget(ctx, target, limit, offset)
}

// TokenBalance returns an account's reward token balance.
func (s *LedgerService) TokenBalance(ctx context.Context, who uuid.UUID) (int64, error) {
	return s.token.BalanceOf(ctx, who)
}

// ──────────────────────────────────────────────────────────────────────────────
// Event emission
// ──────────────────────────────────────────────────────────────────────────────

// emit writes an audit record and pushes it to WS subscribers. Audit failures
// do not abort the committed operation; the mutation already happened.
func (s *LedgerService) emit(ctx context.Context, typ domain.EventType, target uuid.UUID, positionID *int64, actor uuid.UUID, amount int64, detail string) {
	e := &domain.LedgerEvent{
		ID:         uuid.New(),
		Type:       typ,
		TargetID:   target,
		PositionID: positionID,
		Actor:      actor,
		Amount:     amount,
		Detail:     detail,
		CreatedAt:  time.Now().UTC(),
	}
	_ = s.events.Insert(ctx, e)
	if s.broadcaster != nil {
		s.broadcaster.BroadcastLedgerEvent(e)
	}
}
