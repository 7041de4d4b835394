package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Decycle-IO/stakeledger/internal/domain"
	"github.com/Decycle-IO/stakeledger/internal/repository"
	"github.com/google/uuid"
)

// TargetService manages the funding-target registry: creation, the funding
// cutover, and the share-pricing entry point used while funding is open.
type TargetService struct {
	targets repository.TargetStore
	auth    Authorizer
	ledger  *LedgerService
}

// NewTargetService creates a TargetService.
func NewTargetService(targets repository.TargetStore, auth Authorizer, ledger *LedgerService) *TargetService {
	return &TargetService{targets: targets, auth: auth, ledger: ledger}
}

// CreateTarget registers a new collection target open for funding.
// Caller must be an admin.
func (s *TargetService) CreateTarget(ctx context.Context, caller uuid.UUID, name, location string, fundingGoal int64) (*domain.Target, error) {
	if !s.auth.IsAuthorized(ctx, caller, domain.RoleAdmin) {
		return nil, domain.ErrUnauthorized
	}
	if fundingGoal <= 0 {
		return nil, domain.ErrZeroAmount
	}

	now := time.Now().UTC()
	target := &domain.Target{
		ID:          uuid.New(),
		Name:        name,
		Location:    location,
		FundingGoal: fundingGoal,
		Status:      domain.TargetFunding,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.targets.Create(ctx, target); err != nil {
		return nil, fmt.Errorf("target_service.CreateTarget: %w", err)
	}
	return target, nil
}

// CloseFunding moves a target out of the funding phase. After this no new
// positions can be minted against it, so its live share sum only changes
// through holder splits and merges, which conserve it. Caller must be an admin.
func (s *TargetService) CloseFunding(ctx context.Context, caller, targetID uuid.UUID) error {
	if !s.auth.IsAuthorized(ctx, caller, domain.RoleAdmin) {
		return domain.ErrUnauthorized
	}
	target, err := s.targets.GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	if !target.IsFunding() {
		return domain.ErrTargetNotFunding
	}
	if err := s.targets.SetStatus(ctx, targetID, domain.TargetActive); err != nil {
		return fmt.Errorf("target_service.CloseFunding: %w", err)
	}
	return nil
}

// Fund prices a contribution against the target's funding goal and mints the
// resulting position: shareBps = amount * 10000 / fundingGoal, floor division.
// Contributions past the goal are accepted; they push the live share sum past
// 10 000 bps and dilute nobody's stake-to-share ratio.
func (s *TargetService) Fund(ctx context.Context, caller, owner, targetID uuid.UUID, amount int64) (*domain.Position, error) {
	target, err := s.targets.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	shareBps := domain.Proportional(amount, domain.BpsDenominator, target.FundingGoal)
	return s.ledger.Mint(ctx, caller, owner, targetID, amount, shareBps)
}

// GetTarget returns one target.
func (s *TargetService) GetTarget(ctx context.Context, id uuid.UUID) (*domain.Target, error) {
	return s.targets.GetByID(ctx, id)
}

// ListTargets returns a page of targets, oldest first.
func (s *TargetService) ListTargets(ctx context.Context, limit, offset int) ([]*domain.Target, error) {
	return s.targets.List(ctx, limit, offset)
}
