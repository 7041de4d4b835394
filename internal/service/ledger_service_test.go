package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Decycle-IO/stakeledger/internal/domain"
	"github.com/Decycle-IO/stakeledger/internal/repository"
	"github.com/Decycle-IO/stakeledger/internal/token"
	"github.com/google/uuid"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fixtures
// ──────────────────────────────────────────────────────────────────────────────

// staticAuth is a role table standing in for AuthService in tests.
type staticAuth map[uuid.UUID]domain.Role

func (a staticAuth) IsAuthorized(_ context.Context, who uuid.UUID, required domain.Role) bool {
	role, ok := a[who]
	return ok && role.Allows(required)
}

// fixture wires a full in-memory ledger stack.
type fixture struct {
	mem    *repository.Memory
	auth   staticAuth
	token  *token.Ledger
	guard  *Guard
	ledger *LedgerService
	dist   *DistributionService
	target *TargetService

	admin       uuid.UUID
	minter      uuid.UUID
	distributor uuid.UUID
	holder      uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		mem:         repository.NewMemory(),
		guard:       NewGuard(),
		admin:       uuid.New(),
		minter:      uuid.New(),
		distributor: uuid.New(),
		holder:      uuid.New(),
	}
	f.auth = staticAuth{
		f.admin:       domain.RoleAdmin,
		f.minter:      domain.RoleMinter,
		f.distributor: domain.RoleDistributor,
		f.holder:      domain.RoleHolder,
	}
	f.token = token.NewLedger(f.mem, 1_000_000_000_000)
	f.ledger = NewLedgerService(f.mem.Positions(), f.mem.Targets(), f.mem.Events(), f.auth, f.token, f.guard)
	f.dist = NewDistributionService(f.mem.Positions(), f.mem.Targets(), f.mem.Settlements(), f.mem.Events(), f.auth, f.token, f.guard)
	f.target = NewTargetService(f.mem.Targets(), f.auth, f.ledger)
	return f
}

// newTarget creates a funding target directly in the store.
func (f *fixture) newTarget(t *testing.T, goal int64) *domain.Target {
	t.Helper()
	now := time.Now().UTC()
	tgt := &domain.Target{
		ID:          uuid.New(),
		Name:        "Kadıköy istasyonu",
		Location:    "Kadıköy",
		FundingGoal: goal,
		Status:      domain.TargetFunding,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := f.mem.Targets().Create(context.Background(), tgt); err != nil {
		t.Fatalf("create target: %v", err)
	}
	return tgt
}

// ──────────────────────────────────────────────────────────────────────────────
// End-to-end
// ──────────────────────────────────────────────────────────────────────────────

// Scenario: mint a full-share position, distribute proceeds onto it, split it
// 40/60, claim both halves. Rewards follow the stake proportions exactly and
// the token balances end up with the claimed amounts.
func TestLedgerEndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tgt := f.newTarget(t, 100_000)

	pos, err := f.ledger.Mint(ctx, f.minter, f.holder, tgt.ID, 100_000, domain.BpsDenominator)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	distributed, err := f.dist.Distribute(ctx, f.distributor, tgt.ID, 10_000)
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if distributed != 10_000 {
		t.Fatalf("sole position should receive everything, got %d", distributed)
	}

	parts, err := f.ledger.Split(ctx, f.holder, pos.ID, []int64{40_000, 60_000})
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if parts[0].AccruedRewards != 4_000 || parts[1].AccruedRewards != 6_000 {
		t.Fatalf("rewards should split 40/60, got %d and %d",
			parts[0].AccruedRewards, parts[1].AccruedRewards)
	}

	for i, want := range []int64{4_000, 6_000} {
		got, err := f.ledger.Claim(ctx, f.holder, parts[i].ID)
		if err != nil {
			t.Fatalf("claim part %d: %v", i, err)
		}
		if got != want {
			t.Fatalf("claim part %d = %d, want %d", i, got, want)
		}
		refreshed, _ := f.ledger.GetPosition(ctx, parts[i].ID)
		if refreshed.AccruedRewards != 0 {
			t.Fatalf("claim must zero the balance, got %d", refreshed.AccruedRewards)
		}
	}

	bal, err := f.token.BalanceOf(ctx, f.holder)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal != 10_000 {
		t.Fatalf("holder token balance = %d, want 10000", bal)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Mint
// ──────────────────────────────────────────────────────────────────────────────

// Scenario: only minters (and admins) may mint, and validation fires after
// the role gate.
func TestMintAuthorizationAndValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tgt := f.newTarget(t, 100_000)

	if _, err := f.ledger.Mint(ctx, f.holder, f.holder, tgt.ID, 1_000, 100); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("holder mint: expected ErrUnauthorized, got %v", err)
	}
	if _, err := f.ledger.Mint(ctx, f.minter, uuid.Nil, tgt.ID, 1_000, 100); !errors.Is(err, domain.ErrZeroAddress) {
		t.Fatalf("nil owner: expected ErrZeroAddress, got %v", err)
	}
	if _, err := f.ledger.Mint(ctx, f.minter, f.holder, tgt.ID, 0, 100); !errors.Is(err, domain.ErrZeroAmount) {
		t.Fatalf("zero amount: expected ErrZeroAmount, got %v", err)
	}
	if _, err := f.ledger.Mint(ctx, f.minter, f.holder, uuid.New(), 1_000, 100); !errors.Is(err, domain.ErrTargetNotFound) {
		t.Fatalf("unknown target: expected ErrTargetNotFound, got %v", err)
	}

	// Admin passes the minter gate.
	if _, err := f.ledger.Mint(ctx, f.admin, f.holder, tgt.ID, 1_000, 100); err != nil {
		t.Fatalf("admin mint: %v", err)
	}

	// Closed funding rejects further mints.
	if err := f.target.CloseFunding(ctx, f.admin, tgt.ID); err != nil {
		t.Fatalf("close funding: %v", err)
	}
	if _, err := f.ledger.Mint(ctx, f.minter, f.holder, tgt.ID, 1_000, 100); !errors.Is(err, domain.ErrTargetNotFunding) {
		t.Fatalf("closed target: expected ErrTargetNotFunding, got %v", err)
	}
}

// Scenario: Fund prices shares off the funding goal with floor division, and
// contributions past the goal keep minting shares (live sum exceeds 10 000).
func TestFundPricesShares(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tgt := f.newTarget(t, 100_000)

	pos, err := f.target.Fund(ctx, f.minter, f.holder, tgt.ID, 25_000)
	if err != nil {
		t.Fatalf("fund: %v", err)
	}
	if pos.ShareBps != 2_500 {
		t.Fatalf("25%% contribution should price at 2500 bps, got %d", pos.ShareBps)
	}

	// Overfund: 100% more after the quarter above.
	if _, err := f.target.Fund(ctx, f.minter, f.holder, tgt.ID, 100_000); err != nil {
		t.Fatalf("overfund: %v", err)
	}
	got, _ := f.target.GetTarget(ctx, tgt.ID)
	if got.Funded != 125_000 {
		t.Fatalf("funded total = %d, want 125000", got.Funded)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Split / merge conservation
// ──────────────────────────────────────────────────────────────────────────────

// Scenario: splitting conserves staked amount, share, and accrued rewards
// exactly, even when the proportions do not divide evenly.
func TestSplitConservation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tgt := f.newTarget(t, 1_000_000)

	// 7000 kuruş stake with an odd share and odd rewards forces rounding.
	pos, err := f.ledger.Mint(ctx, f.minter, f.holder, tgt.ID, 7_000, 3_333)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := f.dist.Distribute(ctx, f.distributor, tgt.ID, 101); err != nil {
		t.Fatalf("distribute: %v", err)
	}
	before, _ := f.ledger.GetPosition(ctx, pos.ID)

	parts, err := f.ledger.Split(ctx, f.holder, pos.ID, []int64{1_000, 2_000, 4_000})
	if err != nil {
		t.Fatalf("split: %v", err)
	}

	var staked, share, rewards int64
	for _, p := range parts {
		staked += p.StakedAmount
		share += p.ShareBps
		rewards += p.AccruedRewards
		if p.ParentID == nil || *p.ParentID != pos.ID || !p.IsSplitResult {
			t.Fatalf("successor lineage not recorded: %+v", p)
		}
	}
	if staked != before.StakedAmount {
		t.Fatalf("staked amount not conserved: %d != %d", staked, before.StakedAmount)
	}
	if share != before.ShareBps {
		t.Fatalf("share not conserved: %d != %d", share, before.ShareBps)
	}
	if rewards != before.AccruedRewards {
		t.Fatalf("rewards not conserved: %d != %d", rewards, before.AccruedRewards)
	}

	// The original id is retired for good.
	if _, err := f.ledger.GetPosition(ctx, pos.ID); !errors.Is(err, domain.ErrPositionNotFound) {
		t.Fatalf("retired original should be gone, got %v", err)
	}
}

// Scenario: split into two then merge back. The result is value-identical to
// the original position and keeps the original staking timestamp.
func TestSplitMergeRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tgt := f.newTarget(t, 1_000_000)

	pos, err := f.ledger.Mint(ctx, f.minter, f.holder, tgt.ID, 10_000, 2_500)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := f.dist.Distribute(ctx, f.distributor, tgt.ID, 777); err != nil {
		t.Fatalf("distribute: %v", err)
	}
	original, _ := f.ledger.GetPosition(ctx, pos.ID)

	parts, err := f.ledger.Split(ctx, f.holder, pos.ID, []int64{3_000, 7_000})
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	merged, err := f.ledger.Merge(ctx, f.holder, []int64{parts[0].ID, parts[1].ID})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	if merged.StakedAmount != original.StakedAmount ||
		merged.ShareBps != original.ShareBps ||
		merged.AccruedRewards != original.AccruedRewards {
		t.Fatalf("round trip changed values: got (%d, %d, %d), want (%d, %d, %d)",
			merged.StakedAmount, merged.ShareBps, merged.AccruedRewards,
			original.StakedAmount, original.ShareBps, original.AccruedRewards)
	}
	if !merged.StakedAt.Equal(original.StakedAt) {
		t.Fatalf("merge should keep the earliest staking timestamp")
	}

	// Both intermediate ids are now unfindable.
	for _, p := range parts {
		if _, err := f.ledger.GetPosition(ctx, p.ID); !errors.Is(err, domain.ErrPositionNotFound) {
			t.Fatalf("merged input %d should be retired, got %v", p.ID, err)
		}
	}
}

// Scenario: merge rejects foreign positions and mixed targets.
func TestMergeRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tgtA := f.newTarget(t, 100_000)
	tgtB := f.newTarget(t, 100_000)

	mine, _ := f.ledger.Mint(ctx, f.minter, f.holder, tgtA.ID, 5_000, 500)
	other := uuid.New()
	theirs, _ := f.ledger.Mint(ctx, f.minter, other, tgtA.ID, 5_000, 500)
	elsewhere, _ := f.ledger.Mint(ctx, f.minter, f.holder, tgtB.ID, 5_000, 500)

	if _, err := f.ledger.Merge(ctx, f.holder, []int64{mine.ID}); !errors.Is(err, domain.ErrInsufficientCount) {
		t.Fatalf("single input: expected ErrInsufficientCount, got %v", err)
	}
	if _, err := f.ledger.Merge(ctx, f.holder, []int64{mine.ID, theirs.ID}); !errors.Is(err, domain.ErrOwnerMismatch) {
		t.Fatalf("foreign position: expected ErrOwnerMismatch, got %v", err)
	}
	if _, err := f.ledger.Merge(ctx, f.holder, []int64{mine.ID, elsewhere.ID}); !errors.Is(err, domain.ErrMixedTargets) {
		t.Fatalf("mixed targets: expected ErrMixedTargets, got %v", err)
	}
}

// Scenario: passing the same position twice must not double its value into a
// merged successor. The merge is rejected and the original stays untouched.
func TestMergeRejectsDuplicateIDs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tgt := f.newTarget(t, 100_000)

	pos, err := f.ledger.Mint(ctx, f.minter, f.holder, tgt.ID, 50_000, 5_000)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	if _, err := f.ledger.Merge(ctx, f.holder, []int64{pos.ID, pos.ID}); !errors.Is(err, domain.ErrDuplicatePosition) {
		t.Fatalf("duplicate input: expected ErrDuplicatePosition, got %v", err)
	}

	got, err := f.ledger.GetPosition(ctx, pos.ID)
	if err != nil {
		t.Fatalf("position should still be active: %v", err)
	}
	if got.StakedAmount != 50_000 || got.ShareBps != 5_000 {
		t.Fatalf("position mutated: staked=%d share=%d, want 50000/5000",
			got.StakedAmount, got.ShareBps)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Claim
// ──────────────────────────────────────────────────────────────────────────────

/// Scenario: a claim zeroes the balance, and an immediate second claim fails
// with NoRewardsToClaim.
func TestClaimZeroesBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tgt := f.newTarget(t, 100_000)

	pos, _ := f.ledger.Mint(ctx, f.minter, f.holder, tgt.ID, 100_000, domain.BpsDenominator)
	if _, err := f.dist.Distribute(ctx, f.distributor, tgt.ID, 500); err != nil {
		t.Fatalf("distribute: %v", err)
	}

	amount, err := f.ledger.Claim(ctx, f.holder, pos.ID)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if amount != 500 {
		t.Fatalf("claim = %d, want 500", amount)
	}
	if _, err := f.ledger.Claim(ctx, f.holder, pos.ID); !errors.Is(err, domain.ErrNoRewardsToClaim) {
		t.Fatalf("second claim: expected ErrNoRewardsToClaim, got %v", err)
	}

	// Only the owner may claim.
	if _, err := f.dist.Distribute(ctx, f.distributor, tgt.ID, 100); err != nil {
		t.Fatalf("distribute again: %v", err)
	}
	if _, err := f.ledger.Claim(ctx, f.distributor, pos.ID); !errors.Is(err, domain.ErrNotOwner) {
		t.Fatalf("foreign claim: expected ErrNotOwner, got %v", err)
	}
}

// failingToken wraps the real token but refuses transfers.
type failingToken struct {
	*token.Ledger
}

func (f *failingToken) Transfer(ctx context.Context, to uuid.UUID, amount int64) error {
	return domain.ErrInsufficientBalance
}

// Scenario: when the token transfer fails, the claim rolls back entirely and
// the accrued balance is restored.
func TestClaimRollsBackOnTransferFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tgt := f.newTarget(t, 100_000)

	pos, _ := f.ledger.Mint(ctx, f.minter, f.holder, tgt.ID, 100_000, domain.BpsDenominator)
	if _, err := f.dist.Distribute(ctx, f.distributor, tgt.ID, 500); err != nil {
		t.Fatalf("distribute: %v", err)
	}

	// Swap in a ledger whose token refuses the transfer.
	broken := NewLedgerService(f.mem.Positions(), f.mem.Targets(), f.mem.Events(), f.auth,
		&failingToken{f.token}, f.guard)

	if _, err := broken.Claim(ctx, f.holder, pos.ID); !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("expected the transfer failure to surface, got %v", err)
	}
	refreshed, _ := f.ledger.GetPosition(ctx, pos.ID)
	if refreshed.AccruedRewards != 500 {
		t.Fatalf("failed claim must restore rewards, got %d", refreshed.AccruedRewards)
	}
	bal, _ := f.token.BalanceOf(ctx, f.holder)
	if bal != 0 {
		t.Fatalf("no tokens should move on a failed claim, got %d", bal)
	}
}

// reentrantToken calls back into the ledger mid-transfer.
type reentrantToken struct {
	*token.Ledger
	ledger *LedgerService
	owner  uuid.UUID
	posID  int64
	seen   error
}

func (r *reentrantToken) Transfer(ctx context.Context, to uuid.UUID, amount int64) error {
	_, r.seen = r.ledger.Split(ctx, r.owner, r.posID, []int64{1_000, 1_000})
	return r.seen
}

// Scenario: a collaborator that re-enters the ledger during a claim is
// rejected with ErrReentrantCall instead of deadlocking, and the outer claim
// rolls back.
func TestReentrantCallRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tgt := f.newTarget(t, 100_000)

	pos, _ := f.ledger.Mint(ctx, f.minter, f.holder, tgt.ID, 2_000, 200)
	if _, err := f.dist.Distribute(ctx, f.distributor, tgt.ID, 100); err != nil {
		t.Fatalf("distribute: %v", err)
	}

	hostile := &reentrantToken{Ledger: f.token, owner: f.holder, posID: pos.ID}
	victim := NewLedgerService(f.mem.Positions(), f.mem.Targets(), f.mem.Events(), f.auth, hostile, f.guard)
	hostile.ledger = victim

	_, err := victim.Claim(ctx, f.holder, pos.ID)
	if !errors.Is(err, domain.ErrReentrantCall) {
		t.Fatalf("expected ErrReentrantCall to surface, got %v", err)
	}
	if !errors.Is(hostile.seen, domain.ErrReentrantCall) {
		t.Fatalf("nested call should have been rejected, got %v", hostile.seen)
	}

	// Rollback held: rewards restored, position not split.
	refreshed, err := f.ledger.GetPosition(ctx, pos.ID)
	if err != nil {
		t.Fatalf("position should survive: %v", err)
	}
	if refreshed.AccruedRewards == 0 {
		t.Fatalf("rewards should be restored after the rejected claim")
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Transfer
// ──────────────────────────────────────────────────────────────────────────────

// Scenario: ownership transfer changes only the owner field; amounts, share,
// and rewards travel with the position.
func TestTransferPosition(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tgt := f.newTarget(t, 100_000)

	pos, _ := f.ledger.Mint(ctx, f.minter, f.holder, tgt.ID, 5_000, 500)
	if _, err := f.dist.Distribute(ctx, f.distributor, tgt.ID, 100); err != nil {
		t.Fatalf("distribute: %v", err)
	}

	recipient := uuid.New()
	if err := f.ledger.TransferPosition(ctx, f.holder, pos.ID, uuid.Nil); !errors.Is(err, domain.ErrZeroAddress) {
		t.Fatalf("nil recipient: expected ErrZeroAddress, got %v", err)
	}
	if err := f.ledger.TransferPosition(ctx, recipient, pos.ID, recipient); !errors.Is(err, domain.ErrNotOwner) {
		t.Fatalf("foreign transfer: expected ErrNotOwner, got %v", err)
	}
	if err := f.ledger.TransferPosition(ctx, f.holder, pos.ID, recipient); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	got, _ := f.ledger.GetPosition(ctx, pos.ID)
	if got.Owner != recipient {
		t.Fatalf("owner not updated")
	}
	if got.StakedAmount != 5_000 || got.ShareBps != 500 || got.AccruedRewards != 100 {
		t.Fatalf("transfer must not touch amounts: %+v", got)
	}

	mine, _ := f.ledger.PositionsByOwner(ctx, f.holder)
	if len(mine) != 0 {
		t.Fatalf("old owner should hold nothing, got %d positions", len(mine))
	}
}
