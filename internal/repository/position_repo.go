package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/Decycle-IO/stakeledger/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// PositionRepository is the PostgreSQL implementation of PositionStore.
// Position ids come from a BIGSERIAL sequence, so they are monotonic and
// never reused even after retirement.
type PositionRepository struct {
	db *sqlx.DB
}

// NewPositionRepository creates a new PositionRepository.
func NewPositionRepository(db *sqlx.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// Create inserts a new active position and reads back its assigned id.
func (r *PositionRepository) Create(ctx context.Context, p *domain.Position) error {
	query := `
		INSERT INTO positions
			(owner, target_id, staked_amount, share_bps, accrued_rewards,
			 staked_at, parent_id, is_split_result, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		RETURNING id`
	err := r.db.QueryRowxContext(ctx, query,
		p.Owner, p.TargetID, p.StakedAmount, p.ShareBps, p.AccruedRewards,
		p.StakedAt, p.ParentID, p.IsSplitResult, p.Status, p.CreatedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("position_repo.Create: %w", err)
	}
	return nil
}

// CreateFunded inserts a new active position and bumps the target's funded
// total inside a single transaction, so a crash between the two writes cannot
// leave a position the target never accounted for.
func (r *PositionRepository) CreateFunded(ctx context.Context, p *domain.Position) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("position_repo.CreateFunded: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		UPDATE targets SET funded = funded + $1, updated_at = now()
		WHERE id = $2`, p.StakedAmount, p.TargetID)
	if err != nil {
		return fmt.Errorf("position_repo.CreateFunded: add funded: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = domain.ErrTargetNotFound
		return err
	}

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO positions
			(owner, target_id, staked_amount, share_bps, accrued_rewards,
			 staked_at, parent_id, is_split_result, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		RETURNING id`,
		p.Owner, p.TargetID, p.StakedAmount, p.ShareBps, p.AccruedRewards,
		p.StakedAt, p.ParentID, p.IsSplitResult, p.Status, p.CreatedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("position_repo.CreateFunded: insert: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("position_repo.CreateFunded: commit: %w", err)
	}
	return nil
}

// GetByID fetches an active position. Retired tombstones and unknown ids are
// both reported as ErrPositionNotFound.
func (r *PositionRepository) GetByID(ctx context.Context, id int64) (*domain.Position, error) {
	var p domain.Position
	err := r.db.GetContext(ctx, &p,
		`SELECT * FROM positions WHERE id = $1 AND status = 'active'`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPositionNotFound
		}
		return nil, fmt.Errorf("position_repo.GetByID: %w", err)
	}
	return &p, nil
}

// GetByOwner returns all active positions held by an owner, newest first.
func (r *PositionRepository) GetByOwner(ctx context.Context, owner uuid.UUID) ([]*domain.Position, error) {
	var positions []*domain.Position
	err := r.db.SelectContext(ctx, &positions, `
		SELECT * FROM positions
		WHERE owner = $1 AND status = 'active'
		ORDER BY id DESC`, owner)
	if err != nil {
		return nil, fmt.Errorf("position_repo.GetByOwner: %w", err)
	}
	return positions, nil
}

// GetByTarget returns a page of active positions for a target, ordered by id.
func (r *PositionRepository) GetByTarget(ctx context.Context, target uuid.UUID, limit, offset int) ([]*domain.Position, error) {
	var positions []*domain.Position
	err := r.db.SelectContext(ctx, &positions, `
		SELECT * FROM positions
		WHERE target_id = $1 AND status = 'active'
		ORDER BY id ASC
		LIMIT $2 OFFSET $3`, target, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("position_repo.GetByTarget: %w", err)
	}
	return positions, nil
}

// ActiveByTarget returns every active position for a target. Used by the
// distribution engine, which needs the full live set in one pass.
func (r *PositionRepository) ActiveByTarget(ctx context.Context, target uuid.UUID) ([]*domain.Position, error) {
	var positions []*domain.Position
	err := r.db.SelectContext(ctx, &positions, `
		SELECT * FROM positions
		WHERE target_id = $1 AND status = 'active'
		ORDER BY id ASC`, target)
	if err != nil {
		return nil, fmt.Errorf("position_repo.ActiveByTarget: %w", err)
	}
	return positions, nil
}

// Replace retires the given ids and inserts their successors inside a single
// transaction. A retirement that matches no active row aborts the whole
// operation — the caller validated against stale state.
func (r *PositionRepository) Replace(ctx context.Context, retire []int64, create []*domain.Position) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("position_repo.Replace: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, id := range retire {
		res, execErr := tx.ExecContext(ctx, `
			UPDATE positions SET status = 'retired', updated_at = now()
			WHERE id = $1 AND status = 'active'`, id)
		if execErr != nil {
			err = fmt.Errorf("position_repo.Replace: retire %d: %w", id, execErr)
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			err = domain.ErrPositionNotFound
			return err
		}
	}

	for _, p := range create {
		scanErr := tx.QueryRowxContext(ctx, `
			INSERT INTO positions
				(owner, target_id, staked_amount, share_bps, accrued_rewards,
				 staked_at, parent_id, is_split_result, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
			RETURNING id`,
			p.Owner, p.TargetID, p.StakedAmount, p.ShareBps, p.AccruedRewards,
			p.StakedAt, p.ParentID, p.IsSplitResult, p.Status, p.CreatedAt,
		).Scan(&p.ID)
		if scanErr != nil {
			err = fmt.Errorf("position_repo.Replace: create: %w", scanErr)
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("position_repo.Replace: commit: %w", err)
	}
	return nil
}

// AddRewards credits a position's accrued balance. The WHERE clause doubles as
// the overflow guard: a row that exists but cannot absorb the credit leaves
// zero rows affected, which we disambiguate with a follow-up existence check.
func (r *PositionRepository) AddRewards(ctx context.Context, id int64, amount int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE positions
		SET accrued_rewards = accrued_rewards + $1, updated_at = now()
		WHERE id = $2 AND status = 'active' AND accrued_rewards <= $3`,
		amount, id, math.MaxInt64-amount)
	if err != nil {
		return fmt.Errorf("position_repo.AddRewards: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return domain.ErrRewardOverflow
	}
	return nil
}

// SetAccruedRewards overwrites the accrued balance of an active position.
func (r *PositionRepository) SetAccruedRewards(ctx context.Context, id int64, amount int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE positions SET accrued_rewards = $1, updated_at = now()
		WHERE id = $2 AND status = 'active'`, amount, id)
	if err != nil {
		return fmt.Errorf("position_repo.SetAccruedRewards: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrPositionNotFound
	}
	return nil
}

// UpdateOwner reassigns an active position. Amounts and shares are untouched.
func (r *PositionRepository) UpdateOwner(ctx context.Context, id int64, newOwner uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE positions SET owner = $1, updated_at = now()
		WHERE id = $2 AND status = 'active'`, newOwner, id)
	if err != nil {
		return fmt.Errorf("position_repo.UpdateOwner: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrPositionNotFound
	}
	return nil
}
