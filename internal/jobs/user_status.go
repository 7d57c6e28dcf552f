// Package jobs holds the reconciliation passes run by the scheduler.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mka142/ccw-platform-sub001/internal/domain"
	"github.com/mka142/ccw-platform-sub001/internal/metrics"
)

// UserStatusValidator reconciles persisted device liveness for the active
// concert. It is a belt-and-suspenders pass independent of the heartbeat
// sweep: a device still flagged active whose last ping fell outside the
// liveness window is forced inactive, guarding against missed pong events.
type UserStatusValidator struct {
	devices  domain.DeviceStore
	concerts domain.ConcertStore
	window   time.Duration
	clock    clockwork.Clock
}

func NewUserStatusValidator(devices domain.DeviceStore, concerts domain.ConcertStore, window time.Duration, clock clockwork.Clock) *UserStatusValidator {
	return &UserStatusValidator{
		devices:  devices,
		concerts: concerts,
		window:   window,
		clock:    clock,
	}
}

// Run executes one validation pass. No-op when no concert is active.
func (v *UserStatusValidator) Run(ctx context.Context) error {
	concert, err := v.concerts.FindActiveConcert(ctx)
	if err != nil {
		return fmt.Errorf("failed to find active concert: %w", err)
	}
	if concert == nil {
		return nil
	}

	devices, err := v.devices.ListDevicesForConcert(ctx, concert.ID)
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}

	now := v.clock.Now()
	for _, device := range devices {
		if !device.Active {
			continue
		}
		if device.LastPingAt != nil && now.Sub(*device.LastPingAt) <= v.window {
			continue
		}

		if err := v.devices.UpdateDeviceStatus(ctx, device.ID, false); err != nil {
			slog.Warn("User status validation: failed to update device",
				"device_id", device.ID.String(),
				"error", err,
			)
			continue
		}
		metrics.DevicesForcedInactiveTotal.Inc()
		slog.Info("Device forced inactive by validation",
			"device_id", device.ID.String(),
			"concert_id", concert.ID.String(),
		)
	}

	return nil
}
