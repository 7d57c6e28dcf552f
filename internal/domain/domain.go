package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DeviceKind distinguishes browser-based clients from dedicated hardware dials.
type DeviceKind string

const (
	DeviceKindBrowser  DeviceKind = "browser"
	DeviceKindHardware DeviceKind = "hardware"
)

// Valid reports whether the kind is one of the known device kinds.
func (k DeviceKind) Valid() bool {
	return k == DeviceKindBrowser || k == DeviceKindHardware
}

// Device is an audience-held client enrolled in a concert. Devices are never
// hard-deleted; liveness is tracked via the Active flag and LastPingAt.
type Device struct {
	ID         uuid.UUID
	ConcertID  uuid.UUID
	Kind       DeviceKind
	Active     bool
	LastPingAt *time.Time
	CreatedAt  time.Time
}

// Concert is a single show. At most one concert is active at a time; when
// ActiveEventID is set it references an event belonging to this concert.
type Concert struct {
	ID            uuid.UUID
	Name          string
	Metadata      json.RawMessage
	Active        bool
	ActiveEventID *uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Event is one entry of a concert's program. Events are created and reordered
// by the admin surfaces; the liveness subsystem only reads them.
type Event struct {
	ID        uuid.UUID
	ConcertID uuid.UUID
	Type      string
	Label     string
	Payload   json.RawMessage
	Position  int
	CreatedAt time.Time
}

// Recording is an in-progress re-record session, keyed by its access token.
// Terminal states are disconnected (heartbeat lost, no error message) and
// timed out (exceeded the absolute duration budget, with an error message).
type Recording struct {
	Token           uuid.UUID
	PieceDuration   time.Duration
	StartedAt       time.Time
	LastHeartbeatAt *time.Time
	Active          bool
	ErrorMessage    string
}
