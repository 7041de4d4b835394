package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Decycle-IO/stakeledger/internal/domain"
	"github.com/Decycle-IO/stakeledger/internal/repository"
	"github.com/Decycle-IO/stakeledger/internal/token"
	"github.com/google/uuid"
)

// ──────────────────────────────────────────────────────────────────────────────
// DistributionService
// ──────────────────────────────────────────────────────────────────────────────

// DistributionService spreads settlement proceeds over a target's active
// positions in proportion to their live share sum. It shares the mutation
// Guard with LedgerService, so a distribution can never interleave with a
// split, merge, or claim.
type DistributionService struct {
	positions   repository.PositionStore
	targets     repository.TargetStore
	settlements repository.SettlementStore
	events      repository.EventStore
	auth        Authorizer
	token       RewardToken
	guard       *Guard
	broadcaster Broadcaster
}

// NewDistributionService creates a DistributionService.
func NewDistributionService(
	positions repository.PositionStore,
	targets repository.TargetStore,
	settlements repository.SettlementStore,
	events repository.EventStore,
	auth Authorizer,
	token RewardToken,
	guard *Guard,
) *DistributionService {
	return &DistributionService{
		positions:   positions,
		targets:     targets,
		settlements: settlements,
		events:      events,
		auth:        auth,
		token:       token,
		guard:       guard,
	}
}

// SetBroadcaster injects the WS hub dependency post-construction.
func (s *DistributionService) SetBroadcaster(b Broadcaster) { s.broadcaster = b }

// ──────────────────────────────────────────────────────────────────────────────
// Distribute
// ──────────────────────────────────────────────────────────────────────────────

// Distribute credits proceeds to every active position of the target,
// weighted by each position's share of the live share sum. Returns the total
// actually credited.
//
// Floor division under-credits by up to (positionCount - 1) smallest units;
// the difference stays in the token treasury and is never swept. A target
// with no active positions or a zero share sum is a no-op, not an error.
func (s *DistributionService) Distribute(ctx context.Context, caller, targetID uuid.UUID, proceeds int64) (int64, error) {
	if !s.auth.IsAuthorized(ctx, caller, domain.RoleDistributor) {
		return 0, domain.ErrUnauthorized
	}
	if proceeds <= 0 {
		return 0, domain.ErrZeroAmount
	}
	if err := s.guard.enter(); err != nil {
		return 0, err
	}
	defer s.guard.exit()

	positions, err := s.positions.ActiveByTarget(ctx, targetID)
	if err != nil {
		return 0, fmt.Errorf("distribution_service.Distribute: enumerate: %w", err)
	}
	if len(positions) == 0 {
		return 0, nil
	}

	// Live sum, never the nominal 10 000: overfunded targets carry more.
	var totalShare int64
	for _, pos := range positions {
		if totalShare, err = domain.SafeAdd(totalShare, pos.ShareBps); err != nil {
			return 0, err
		}
	}
	if totalShare == 0 {
		return 0, nil
	}

	// Compute and headroom-check every credit before writing anything. The
	// guard serializes mutations, so the snapshot cannot go stale under us;
	// a position that cannot absorb its credit fails the whole distribution
	// with no partial state.
	rewards := make([]int64, len(positions))
	for i, pos := range positions {
		reward := domain.DistributionAmount(pos.ShareBps, totalShare, proceeds)
		if _, err := domain.SafeAdd(pos.AccruedRewards, reward); err != nil {
			return 0, domain.ErrRewardOverflow
		}
		rewards[i] = reward
	}

	// Back the credits with real token supply before writing any of them.
	if err := s.token.Mint(ctx, token.Treasury, proceeds); err != nil {
		return 0, fmt.Errorf("distribution_service.Distribute: back proceeds: %w", err)
	}

	var distributed int64
	for i, pos := range positions {
		if rewards[i] == 0 {
			continue
		}
		if err := s.positions.AddRewards(ctx, pos.ID, rewards[i]); err != nil {
			return distributed, fmt.Errorf("distribution_service.Distribute: credit position %d: %w", pos.ID, err)
		}
		distributed += rewards[i]
	}

	s.emit(ctx, targetID, caller, proceeds,
		fmt.Sprintf("distributed %d of %d over %d positions", distributed, proceeds, len(positions)))
	return distributed, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Settlement queue
// ──────────────────────────────────────────────────────────────────────────────

// RecordSettlement enqueues proceeds for asynchronous distribution by the
// scheduler. Caller must hold the distributor role and the target must exist.
func (s *DistributionService) RecordSettlement(ctx context.Context, caller, targetID uuid.UUID, proceeds int64, note string) (*domain.Settlement, error) {
	if !s.auth.IsAuthorized(ctx, caller, domain.RoleDistributor) {
		return nil, domain.ErrUnauthorized
	}
	if proceeds <= 0 {
		return nil, domain.ErrZeroAmount
	}
	if _, err := s.targets.GetByID(ctx, targetID); err != nil {
		return nil, err
	}

	settlement := &domain.Settlement{
		ID:         uuid.New(),
		TargetID:   targetID,
		Proceeds:   proceeds,
		Status:     domain.SettlementPending,
		RecordedBy: caller,
		Note:       note,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.settlements.Create(ctx, settlement); err != nil {
		return nil, fmt.Errorf("distribution_service.RecordSettlement: %w", err)
	}
	return settlement, nil
}

// ProcessPendingSettlements drains the settlement queue, oldest first.
// Each settlement is distributed on behalf of the account that recorded it.
// Returns how many settlements were processed successfully.
func (s *DistributionService) ProcessPendingSettlements(ctx context.Context) (int, error) {
	pending, err := s.settlements.Pending(ctx)
	if err != nil {
		return 0, fmt.Errorf("distribution_service.ProcessPendingSettlements: %w", err)
	}

	processed := 0
	for _, settlement := range pending {
		distributed, err := s.Distribute(ctx, settlement.RecordedBy, settlement.TargetID, settlement.Proceeds)
		if err != nil {
			slog.Error("settlement distribution failed",
				"settlement_id", settlement.ID, "target_id", settlement.TargetID, "error", err)
			if markErr := s.settlements.MarkFailed(ctx, settlement.ID, err.Error()); markErr != nil {
				return processed, fmt.Errorf("distribution_service.ProcessPendingSettlements: mark failed: %w", markErr)
			}
			continue
		}
		if err := s.settlements.MarkProcessed(ctx, settlement.ID, distributed); err != nil {
			return processed, fmt.Errorf("distribution_service.ProcessPendingSettlements: mark processed: %w", err)
		}
		processed++
	}
	return processed, nil
}

// emit writes the distribution audit record and pushes it to WS subscribers.
func (s *DistributionService) emit(ctx context.Context, target, actor uuid.UUID, amount int64, detail string) {
	e := &domain.LedgerEvent{
		ID:        uuid.New(),
		Type:      domain.EventRewardsDistributed,
		TargetID:  target,
		Actor:     actor,
		Amount:    amount,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}
	_ = s.events.Insert(ctx, e)
	if s.broadcaster != nil {
		s.broadcaster.BroadcastLedgerEvent(e)
	}
}
