// Package token implements the DCY reward token as a capped in-process
// balance ledger. The position ledger depends only on the three-operation
// surface (mint / transfer / balanceOf); everything else about the token —
// pricing, off-ramp, exchange listing — lives outside this service.
package token

import (
	"context"
	"fmt"

	"github.com/Decycle-IO/stakeledger/internal/domain"
	"github.com/google/uuid"
)

// Treasury is the escrow account backing unclaimed rewards. Distribution tops
// it up; claims drain it. Floor-division drift from distributions accumulates
// here and is never swept.
var Treasury = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// ──────────────────────────────────────────────────────────────────────────────
// BalanceStore
// ──────────────────────────────────────────────────────────────────────────────

// BalanceStore persists token account balances. Move must be atomic: either
// both sides change or neither does.
type BalanceStore interface {
	Balance(ctx context.Context, who uuid.UUID) (int64, error)
	TotalSupply(ctx context.Context) (int64, error)
	Credit(ctx context.Context, who uuid.UUID, amount int64) error
	Move(ctx context.Context, from, to uuid.UUID, amount int64) error
}

// ──────────────────────────────────────────────────────────────────────────────
// Ledger
// ──────────────────────────────────────────────────────────────────────────────

// Ledger is the capped reward-token ledger.
type Ledger struct {
	store BalanceStore
	cap   int64 // maximum total supply, smallest units
}

// NewLedger creates a token ledger with the given supply cap.
func NewLedger(store BalanceStore, supplyCap int64) *Ledger {
	return &Ledger{store: store, cap: supplyCap}
}

// Mint creates amount new tokens on the `to` account. Fails with
// ErrSupplyCapExceeded when the cap would be breached; the supply check and
// the credit are safe against interleaving because all ledger mutations run
// under the service entry guard.
func (l *Ledger) Mint(ctx context.Context, to uuid.UUID, amount int64) error {
	if to == uuid.Nil {
		return domain.ErrZeroAddress
	}
	if amount == 0 {
		return domain.ErrZeroAmount
	}
	supply, err := l.store.TotalSupply(ctx)
	if err != nil {
		return fmt.Errorf("token.Mint: supply: %w", err)
	}
	newSupply, err := domain.SafeAdd(supply, amount)
	if err != nil {
		return domain.ErrSupplyCapExceeded
	}
	if newSupply > l.cap {
		return domain.ErrSupplyCapExceeded
	}
	if err := l.store.Credit(ctx, to, amount); err != nil {
		return fmt.Errorf("token.Mint: credit: %w", err)
	}
	return nil
}

// Transfer moves amount from the treasury to the given account. Fails with
// ErrInsufficientBalance when the treasury cannot cover it — which would mean
// rewards were credited without backing value and must abort the caller.
func (l *Ledger) Transfer(ctx context.Context, to uuid.UUID, amount int64) error {
	if to == uuid.Nil {
		return domain.ErrZeroAddress
	}
	if err := l.store.Move(ctx, Treasury, to, amount); err != nil {
		return fmt.Errorf("token.Transfer: %w", err)
	}
	return nil
}

// BalanceOf returns the token balance of an account (0 for unknown accounts).
func (l *Ledger) BalanceOf(ctx context.Context, who uuid.UUID) (int64, error) {
	bal, err := l.store.Balance(ctx, who)
	if err != nil {
		return 0, fmt.Errorf("token.BalanceOf: %w", err)
	}
	return bal, nil
}

// TotalSupply returns the minted supply (treasury included).
func (l *Ledger) TotalSupply(ctx context.Context) (int64, error) {
	supply, err := l.store.TotalSupply(ctx)
	if err != nil {
		return 0, fmt.Errorf("token.TotalSupply: %w", err)
	}
	return supply, nil
}
