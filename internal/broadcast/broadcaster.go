// Package broadcast fans the active program event out to connected devices.
package broadcast

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mka142/ccw-platform-sub001/internal/domain"
	"github.com/mka142/ccw-platform-sub001/internal/metrics"
	"github.com/mka142/ccw-platform-sub001/internal/registry"
)

// Broadcaster delivers program events to every reachable device of a concert.
// Delivery is best effort and fire-and-forget: devices without an open
// connection are skipped and converge later via catch-up.
type Broadcaster struct {
	devices  domain.DeviceStore
	concerts domain.ConcertStore
	events   domain.EventStore
	registry *registry.Registry
}

func New(devices domain.DeviceStore, concerts domain.ConcertStore, events domain.EventStore, reg *registry.Registry) *Broadcaster {
	return &Broadcaster{
		devices:  devices,
		concerts: concerts,
		events:   events,
		registry: reg,
	}
}

// Broadcast pushes event to every device of the concert that has an open
// registered connection. A device without one is skipped silently; a failed
// send is logged and does not abort delivery to the remaining devices.
func (b *Broadcaster) Broadcast(ctx context.Context, concertID uuid.UUID, event *domain.Event) error {
	devices, err := b.devices.ListDevicesForConcert(ctx, concertID)
	if err != nil {
		return fmt.Errorf("failed to list devices for concert: %w", err)
	}

	delivered := 0
	for _, device := range devices {
		conn := b.registry.Lookup(device.ID)
		if conn == nil || !conn.IsOpen() {
			metrics.BroadcastsSkippedTotal.Inc()
			continue
		}
		if err := conn.SendJSON(domain.NewEventMessage(event)); err != nil {
			slog.Warn("Broadcast send failed", "device_id", device.ID.String(), "error", err)
			continue
		}
		delivered++
		metrics.BroadcastsSentTotal.Inc()
	}

	slog.Info("Event broadcast",
		"concert_id", concertID.String(),
		"event_id", event.ID.String(),
		"devices", len(devices),
		"delivered", delivered,
	)
	return nil
}

// CatchUp sends the currently active event to a single freshly initialized
// device, so a reconnecting device converges without waiting for the next
// admin-triggered broadcast. No-op unless the device's concert is the active
// concert and has an active event set.
func (b *Broadcaster) CatchUp(ctx context.Context, device *domain.Device, conn registry.Conn) error {
	concert, err := b.concerts.FindActiveConcert(ctx)
	if err != nil {
		return fmt.Errorf("failed to find active concert: %w", err)
	}
	if concert == nil || concert.ID != device.ConcertID || concert.ActiveEventID == nil {
		return nil
	}

	event, err := b.events.FindEventByID(ctx, *concert.ActiveEventID)
	if err != nil {
		return fmt.Errorf("failed to load active event: %w", err)
	}

	if err := conn.SendJSON(domain.NewEventMessage(event)); err != nil {
		return fmt.Errorf("failed to send catch-up event: %w", err)
	}
	metrics.CatchUpSendsTotal.Inc()
	return nil
}
