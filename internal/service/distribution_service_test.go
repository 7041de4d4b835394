package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/Decycle-IO/stakeledger/internal/domain"
	"github.com/Decycle-IO/stakeledger/internal/token"
	"github.com/google/uuid"
)

// Scenario: positions with shares 2500/5000/2500 receive P/4, P/2, P/4 of the
// proceeds, the total credited never exceeds P, and the shortfall is below
// the position count.
func TestDistributionProportionality(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tgt := f.newTarget(t, 100_000)

	owners := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	shares := []int64{2_500, 5_000, 2_500}
	ids := make([]int64, 3)
	for i := range owners {
		pos, err := f.ledger.Mint(ctx, f.minter, owners[i], tgt.ID, 25_000, shares[i])
		if err != nil {
			t.Fatalf("mint %d: %v", i, err)
		}
		ids[i] = pos.ID
	}

	const proceeds = 100
	distributed, err := f.dist.Distribute(ctx, f.distributor, tgt.ID, proceeds)
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	want := []int64{25, 50, 25}
	for i, id := range ids {
		pos, _ := f.ledger.GetPosition(ctx, id)
		if pos.AccruedRewards != want[i] {
			t.Fatalf("position %d credited %d, want %d", i, pos.AccruedRewards, want[i])
		}
	}
	if distributed != 100 {
		t.Fatalf("distributed = %d, want 100", distributed)
	}

	// An amount that does not divide cleanly leaves a bounded shortfall.
	distributed, err = f.dist.Distribute(ctx, f.distributor, tgt.ID, 101)
	if err != nil {
		t.Fatalf("distribute odd: %v", err)
	}
	if distributed > 101 {
		t.Fatalf("over-distribution: %d > 101", distributed)
	}
	if shortfall := int64(101) - distributed; shortfall >= int64(len(ids)) {
		t.Fatalf("shortfall %d should be below the position count %d", shortfall, len(ids))
	}
}

// Scenario: distribution requires the distributor role and a positive amount.
func TestDistributeAuthorization(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tgt := f.newTarget(t, 100_000)

	if _, err := f.dist.Distribute(ctx, f.holder, tgt.ID, 100); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("holder: expected ErrUnauthorized, got %v", err)
	}
	if _, err := f.dist.Distribute(ctx, f.distributor, tgt.ID, 0); !errors.Is(err, domain.ErrZeroAmount) {
		t.Fatalf("zero proceeds: expected ErrZeroAmount, got %v", err)
	}
	// Admin passes the distributor gate.
	if _, err := f.dist.Distribute(ctx, f.admin, tgt.ID, 100); err != nil {
		t.Fatalf("admin distribute (no positions, no-op): %v", err)
	}
}

// Scenario: a target with no active positions, or one whose live share sum is
// zero, is a silent no-op and mints nothing into the treasury.
func TestDistributeNoopCases(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tgt := f.newTarget(t, 100_000)

	distributed, err := f.dist.Distribute(ctx, f.distributor, tgt.ID, 500)
	if err != nil {
		t.Fatalf("empty target: %v", err)
	}
	if distributed != 0 {
		t.Fatalf("empty target distributed %d, want 0", distributed)
	}

	// A dust contribution below goal/10000 prices at zero share.
	if _, err := f.ledger.Mint(ctx, f.minter, f.holder, tgt.ID, 5, 0); err != nil {
		t.Fatalf("mint zero-share: %v", err)
	}
	distributed, err = f.dist.Distribute(ctx, f.distributor, tgt.ID, 500)
	if err != nil {
		t.Fatalf("zero share sum: %v", err)
	}
	if distributed != 0 {
		t.Fatalf("zero share sum distributed %d, want 0", distributed)
	}

	supply, _ := f.token.TotalSupply(ctx)
	if supply != 0 {
		t.Fatalf("no-op distributions must not mint, supply = %d", supply)
	}
}

// Scenario: the same proceeds distributed before and after a holder split
// credit the same total, because splits conserve the live share sum.
func TestDistributionStableAcrossSplit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tgt := f.newTarget(t, 100_000)

	pos, err := f.ledger.Mint(ctx, f.minter, f.holder, tgt.ID, 10_000, 1_000)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := f.ledger.Mint(ctx, f.minter, uuid.New(), tgt.ID, 90_000, 9_000); err != nil {
		t.Fatalf("mint other: %v", err)
	}

	const proceeds = 10_000
	first, err := f.dist.Distribute(ctx, f.distributor, tgt.ID, proceeds)
	if err != nil {
		t.Fatalf("first distribute: %v", err)
	}

	parts, err := f.ledger.Split(ctx, f.holder, pos.ID, []int64{3_000, 7_000})
	if err != nil {
		t.Fatalf("split: %v", err)
	}

	second, err := f.dist.Distribute(ctx, f.distributor, tgt.ID, proceeds)
	if err != nil {
		t.Fatalf("second distribute: %v", err)
	}

	// Floor rounding may cost at most one extra unit per extra position.
	if diff := first - second; diff < 0 || diff > int64(len(parts)-1) {
		t.Fatalf("distribution drifted across split: first=%d second=%d", first, second)
	}
}

// Scenario: distribution shortfall accumulates in the token treasury and is
// never swept; claims drain only what was actually credited.
func TestTreasuryKeepsRoundingDust(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tgt := f.newTarget(t, 100_000)

	ids := make([]int64, 3)
	for i := range ids {
		pos, err := f.ledger.Mint(ctx, f.minter, f.holder, tgt.ID, 10_000, 1_000)
		if err != nil {
			t.Fatalf("mint %d: %v", i, err)
		}
		ids[i] = pos.ID
	}

	// 100 over an even 3-way split credits 33+33+33, leaving 1 in treasury.
	distributed, err := f.dist.Distribute(ctx, f.distributor, tgt.ID, 100)
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if distributed != 99 {
		t.Fatalf("distributed = %d, want 99", distributed)
	}

	for _, id := range ids {
		if _, err := f.ledger.Claim(ctx, f.holder, id); err != nil {
			t.Fatalf("claim %d: %v", id, err)
		}
	}

	dust, _ := f.token.BalanceOf(ctx, token.Treasury)
	if dust != 1 {
		t.Fatalf("treasury dust = %d, want 1", dust)
	}
	bal, _ := f.token.BalanceOf(ctx, f.holder)
	if bal != 99 {
		t.Fatalf("holder balance = %d, want 99", bal)
	}
}

// Scenario: when any position cannot absorb its credit, the whole
// distribution fails before the treasury mint — no position keeps a partial
// credit and no supply is created.
func TestDistributeOverflowLeavesNoPartialState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tgt := f.newTarget(t, 100_000)

	posA, err := f.ledger.Mint(ctx, f.minter, f.holder, tgt.ID, 50_000, 5_000)
	if err != nil {
		t.Fatalf("mint A: %v", err)
	}
	posB, err := f.ledger.Mint(ctx, f.minter, f.holder, tgt.ID, 50_000, 5_000)
	if err != nil {
		t.Fatalf("mint B: %v", err)
	}

	// Park B one unit below the ceiling so its next credit must overflow.
	if err := f.mem.Positions().SetAccruedRewards(ctx, posB.ID, math.MaxInt64-1); err != nil {
		t.Fatalf("prime accrued: %v", err)
	}

	if _, err := f.dist.Distribute(ctx, f.distributor, tgt.ID, 1_000); !errors.Is(err, domain.ErrRewardOverflow) {
		t.Fatalf("expected ErrRewardOverflow, got %v", err)
	}

	got, _ := f.ledger.GetPosition(ctx, posA.ID)
	if got.AccruedRewards != 0 {
		t.Fatalf("sibling kept a partial credit: %d, want 0", got.AccruedRewards)
	}
	supply, _ := f.token.TotalSupply(ctx)
	if supply != 0 {
		t.Fatalf("failed distribution must not mint, supply = %d", supply)
	}
}

// Scenario: recorded settlements are drained oldest first; a settlement whose
// recorder lost the distributor role is parked as failed and the rest still
// process.
func TestSettlementQueue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tgt := f.newTarget(t, 100_000)

	if _, err := f.ledger.Mint(ctx, f.minter, f.holder, tgt.ID, 100_000, domain.BpsDenominator); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if _, err := f.dist.RecordSettlement(ctx, f.distributor, tgt.ID, 400, "cam satışı"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := f.dist.RecordSettlement(ctx, f.distributor, tgt.ID, 200, "metal satışı"); err != nil {
		t.Fatalf("record second: %v", err)
	}

	// Unknown recorder cannot enqueue at all.
	if _, err := f.dist.RecordSettlement(ctx, uuid.New(), tgt.ID, 100, ""); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	// Revoke the distributor between recording and processing the second one.
	// Processing re-checks the recorder's role, so it fails and is parked.
	delete(f.auth, f.distributor)
	processed, err := f.dist.ProcessPendingSettlements(ctx)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if processed != 0 {
		t.Fatalf("revoked recorder: processed = %d, want 0", processed)
	}

	// Restore the role; the failed settlements stay failed, new ones process.
	f.auth[f.distributor] = domain.RoleDistributor
	if _, err := f.dist.RecordSettlement(ctx, f.distributor, tgt.ID, 300, ""); err != nil {
		t.Fatalf("record third: %v", err)
	}
	processed, err = f.dist.ProcessPendingSettlements(ctx)
	if err != nil {
		t.Fatalf("process again: %v", err)
	}
	if processed != 1 {
		t.Fatalf("processed = %d, want 1", processed)
	}

	pos, _ := f.ledger.PositionsByTarget(ctx, tgt.ID, 10, 0)
	if pos[0].AccruedRewards != 300 {
		t.Fatalf("only the third settlement should have credited, got %d", pos[0].AccruedRewards)
	}
	pending, _ := f.mem.Settlements().Pending(ctx)
	if len(pending) != 0 {
		t.Fatalf("queue should be drained, %d left", len(pending))
	}
}
