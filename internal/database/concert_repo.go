package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mka142/ccw-platform-sub001/internal/domain"
)

// ConcertRepo implements domain.ConcertStore.
type ConcertRepo struct {
	pool *pgxpool.Pool
}

func NewConcertRepo(pool *pgxpool.Pool) *ConcertRepo {
	return &ConcertRepo{pool: pool}
}

func (r *ConcertRepo) FindActiveConcert(ctx context.Context) (*domain.Concert, error) {
	concert, err := r.scanConcert(r.pool.QueryRow(ctx, `
		SELECT id, name, metadata, active, active_event_id, created_at, updated_at
		FROM concerts
		WHERE active
	`))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active concert: %w", err)
	}
	return concert, nil
}

func (r *ConcertRepo) FindConcertByID(ctx context.Context, id uuid.UUID) (*domain.Concert, error) {
	concert, err := r.scanConcert(r.pool.QueryRow(ctx, `
		SELECT id, name, metadata, active, active_event_id, created_at, updated_at
		FROM concerts
		WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrConcertNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find concert: %w", err)
	}
	return concert, nil
}

// SetActiveEvent points the concert at one of its own events.
func (r *ConcertRepo) SetActiveEvent(ctx context.Context, concertID, eventID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE concerts
		SET active_event_id = $2, updated_at = NOW()
		WHERE id = $1
		  AND EXISTS (SELECT 1 FROM events WHERE id = $2 AND concert_id = $1)
	`, concertID, eventID)
	if err != nil {
		return fmt.Errorf("failed to set active event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

func (r *ConcertRepo) scanConcert(row pgx.Row) (*domain.Concert, error) {
	var concert domain.Concert
	err := row.Scan(
		&concert.ID, &concert.Name, &concert.Metadata, &concert.Active,
		&concert.ActiveEventID, &concert.CreatedAt, &concert.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &concert, nil
}
