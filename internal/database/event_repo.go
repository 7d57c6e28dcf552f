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

// EventRepo implements domain.EventStore. Events are written by the admin
// surfaces; this subsystem only reads them.
type EventRepo struct {
	pool *pgxpool.Pool
}

func NewEventRepo(pool *pgxpool.Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

func (r *EventRepo) FindEventByID(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	var event domain.Event
	err := r.pool.QueryRow(ctx, `
		SELECT id, concert_id, type, label, payload, position, created_at
		FROM events
		WHERE id = $1
	`, id).Scan(&event.ID, &event.ConcertID, &event.Type, &event.Label, &event.Payload, &event.Position, &event.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find event: %w", err)
	}
	return &event, nil
}

// ListEventsForConcert returns the concert's program in position order.
func (r *EventRepo) ListEventsForConcert(ctx context.Context, concertID uuid.UUID) ([]domain.Event, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, concert_id, type, label, payload, position, created_at
		FROM events
		WHERE concert_id = $1
		ORDER BY position
	`, concertID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var event domain.Event
		if err := rows.Scan(&event.ID, &event.ConcertID, &event.Type, &event.Label, &event.Payload, &event.Position, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
