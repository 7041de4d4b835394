package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Decycle-IO/stakeledger/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// TokenAccountRepository is the PostgreSQL implementation of
// token.BalanceStore. Accounts are created lazily on first credit.
type TokenAccountRepository struct {
	db *sqlx.DB
}

// NewTokenAccountRepository creates a new TokenAccountRepository.
func NewTokenAccountRepository(db *sqlx.DB) *TokenAccountRepository {
	return &TokenAccountRepository{db: db}
}

// Balance returns an account's balance, 0 when the account has never been
// credited.
func (r *TokenAccountRepository) Balance(ctx context.Context, who uuid.UUID) (int64, error) {
	var balance int64
	err := r.db.GetContext(ctx, &balance,
		`SELECT balance FROM token_accounts WHERE account = $1`, who)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("token_repo.Balance: %w", err)
	}
	return balance, nil
}

// TotalSupply returns the sum of all account balances.
func (r *TokenAccountRepository) TotalSupply(ctx context.Context) (int64, error) {
	var supply int64
	err := r.db.GetContext(ctx, &supply,
		`SELECT COALESCE(SUM(balance), 0) FROM token_accounts`)
	if err != nil {
		return 0, fmt.Errorf("token_repo.TotalSupply: %w", err)
	}
	return supply, nil
}

// Credit adds amount to an account, creating the row on first use.
func (r *TokenAccountRepository) Credit(ctx context.Context, who uuid.UUID, amount int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO token_accounts (account, balance, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (account)
		DO UPDATE SET balance = token_accounts.balance + $2, updated_at = now()`,
		who, amount)
	if err != nil {
		return fmt.Errorf("token_repo.Credit: %w", err)
	}
	return nil
}

// Move transfers amount between accounts inside a single transaction.
// Fails with ErrInsufficientBalance when the source cannot cover it;
// the row lock prevents concurrent over-draws.
func (r *TokenAccountRepository) Move(ctx context.Context, from, to uuid.UUID, amount int64) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("token_repo.Move: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var available int64
	err = tx.GetContext(ctx, &available,
		`SELECT balance FROM token_accounts WHERE account = $1 FOR UPDATE`, from)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = domain.ErrInsufficientBalance
			return err
		}
		return fmt.Errorf("token_repo.Move: lock: %w", err)
	}
	if available < amount {
		err = domain.ErrInsufficientBalance
		return err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE token_accounts SET balance = balance - $1, updated_at = now() WHERE account = $2`,
		amount, from); err != nil {
		return fmt.Errorf("token_repo.Move: debit: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO token_accounts (account, balance, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (account)
		DO UPDATE SET balance = token_accounts.balance + $2, updated_at = now()`,
		to, amount); err != nil {
		return fmt.Errorf("token_repo.Move: credit: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("token_repo.Move: commit: %w", err)
	}
	return nil
}
