package repository

import (
	"context"
	"fmt"

	"github.com/Decycle-IO/stakeledger/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// EventRepository is the PostgreSQL implementation of EventStore.
// ledger_events is append-only; rows are never updated or deleted.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Insert appends an audit record.
func (r *EventRepository) Insert(ctx context.Context, e *domain.LedgerEvent) error {
	query := `
		INSERT INTO ledger_events
			(id, type, target_id, position_id, actor, amount, detail, created_at)
		VALUES
			(:id, :type, :target_id, :position_id, :actor, :amount, :detail, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, e); err != nil {
		return fmt.Errorf("event_repo.Insert: %w", err)
	}
	return nil
}

// ByTarget returns a page of audit records for one target, newest first.
func (r *EventRepository) ByTarget(ctx context.Context, target uuid.UUID, limit, offset int) ([]*domain.LedgerEvent, error) {
	var events []*domain.LedgerEvent
	err := r.db.SelectContext(ctx, &events, `
		SELECT * FROM ledger_events
		WHERE target_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, target, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("event_repo.ByTarget: %w", err)
	}
	return events, nil
}
