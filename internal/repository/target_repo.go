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

// TargetRepository is the PostgreSQL implementation of TargetStore.
type TargetRepository struct {
	db *sqlx.DB
}

// NewTargetRepository creates a new TargetRepository.
func NewTargetRepository(db *sqlx.DB) *TargetRepository {
	return &TargetRepository{db: db}
}

// Create inserts a new target row.
func (r *TargetRepository) Create(ctx context.Context, t *domain.Target) error {
	query := `
		INSERT INTO targets
			(id, name, location, funding_goal, funded, status, created_at, updated_at)
		VALUES
			(:id, :name, :location, :funding_goal, :funded, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, t); err != nil {
		return fmt.Errorf("target_repo.Create: %w", err)
	}
	return nil
}

// GetByID fetches a target by primary key.
func (r *TargetRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Target, error) {
	var t domain.Target
	err := r.db.GetContext(ctx, &t, `SELECT * FROM targets WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTargetNotFound
		}
		return nil, fmt.Errorf("target_repo.GetByID: %w", err)
	}
	return &t, nil
}

// List returns a page of targets, newest first.
func (r *TargetRepository) List(ctx context.Context, limit, offset int) ([]*domain.Target, error) {
	var targets []*domain.Target
	err := r.db.SelectContext(ctx, &targets, `
		SELECT * FROM targets
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("target_repo.List: %w", err)
	}
	return targets, nil
}

// SetStatus moves a target between funding phases.
func (r *TargetRepository) SetStatus(ctx context.Context, id uuid.UUID, status domain.TargetStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE targets SET status = $1, updated_at = now()
		WHERE id = $2`, string(status), id)
	if err != nil {
		return fmt.Errorf("target_repo.SetStatus: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrTargetNotFound
	}
	return nil
}
