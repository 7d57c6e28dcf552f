package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DeviceStore persists device records. UpdateDeviceStatus with active=true
// also refreshes the last-ping timestamp; each update is an independent,
// idempotent write.
type DeviceStore interface {
	CreateDevice(ctx context.Context, device *Device) error
	FindDeviceByID(ctx context.Context, id uuid.UUID) (*Device, error)
	ListDevicesForConcert(ctx context.Context, concertID uuid.UUID) ([]Device, error)
	UpdateDeviceStatus(ctx context.Context, id uuid.UUID, active bool) error
}

// ConcertStore reads concert records and flips the active event pointer.
type ConcertStore interface {
	// FindActiveConcert returns (nil, nil) when no concert is active.
	FindActiveConcert(ctx context.Context) (*Concert, error)
	FindConcertByID(ctx context.Context, id uuid.UUID) (*Concert, error)
	// SetActiveEvent points the concert at an event of its own program.
	// Returns ErrEventNotFound when the event does not belong to the concert.
	SetActiveEvent(ctx context.Context, concertID, eventID uuid.UUID) error
}

// EventStore reads program events. The liveness subsystem never writes them.
type EventStore interface {
	FindEventByID(ctx context.Context, id uuid.UUID) (*Event, error)
	ListEventsForConcert(ctx context.Context, concertID uuid.UUID) ([]Event, error)
}

// RecordingStore owns re-record session state.
type RecordingStore interface {
	StartRecording(ctx context.Context, token uuid.UUID, pieceDuration time.Duration) error
	Heartbeat(ctx context.Context, token uuid.UUID) error
	FinishRecording(ctx context.Context, token uuid.UUID) error
	GetActiveRecordings(ctx context.Context) ([]Recording, error)
	MarkRecordingDisconnected(ctx context.Context, token uuid.UUID) error
	MarkRecordingTimedOut(ctx context.Context, token uuid.UUID, message string) error
}
