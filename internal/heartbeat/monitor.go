// Package heartbeat runs the periodic connection liveness sweep.
package heartbeat

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mka142/ccw-platform-sub001/internal/domain"
	"github.com/mka142/ccw-platform-sub001/internal/metrics"
	"github.com/mka142/ccw-platform-sub001/internal/registry"
)

// Monitor pings every registered connection of the active concert on a fixed
// interval. A connection that fails to pong before the next sweep is
// terminated and its device persisted inactive. Per-connection states are
// alive and awaiting-pong, kept on the connection handle itself.
type Monitor struct {
	devices  domain.DeviceStore
	concerts domain.ConcertStore
	registry *registry.Registry
	interval time.Duration
	clock    clockwork.Clock
	stopCh   chan struct{}
}

func NewMonitor(devices domain.DeviceStore, concerts domain.ConcertStore, reg *registry.Registry, interval time.Duration, clock clockwork.Clock) *Monitor {
	return &Monitor{
		devices:  devices,
		concerts: concerts,
		registry: reg,
		interval: interval,
		clock:    clock,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called or ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			m.sweep(ctx)
		case <-m.stopCh:
			slog.Info("Heartbeat monitor stopped")
			return
		case <-ctx.Done():
			slog.Info("Heartbeat monitor context cancelled")
			return
		}
	}
}

// Stop halts the sweep loop.
func (m *Monitor) Stop() {
	close(m.stopCh)
}

// sweep evaluates every device of the active concert. Errors on a single
// connection are logged and never abort the sweep for the remaining devices.
func (m *Monitor) sweep(ctx context.Context) {
	concert, err := m.concerts.FindActiveConcert(ctx)
	if err != nil {
		slog.Error("Heartbeat sweep: failed to find active concert", "error", err)
		return
	}
	if concert == nil {
		return
	}

	devices, err := m.devices.ListDevicesForConcert(ctx, concert.ID)
	if err != nil {
		slog.Error("Heartbeat sweep: failed to list devices", "concert_id", concert.ID.String(), "error", err)
		return
	}

	for _, device := range devices {
		m.sweepDevice(ctx, device)
	}
	metrics.HeartbeatSweepsTotal.Inc()
}

func (m *Monitor) sweepDevice(ctx context.Context, device domain.Device) {
	conn := m.registry.Lookup(device.ID)

	switch {
	case conn == nil:
		m.persistStatus(ctx, device.ID, false)

	case !conn.IsOpen():
		m.persistStatus(ctx, device.ID, false)
		m.registry.Unregister(device.ID)

	case conn.AwaitingPong():
		// No pong arrived since the previous sweep: terminate.
		if err := conn.Close(); err != nil {
			slog.Warn("Heartbeat sweep: terminate failed", "device_id", device.ID.String(), "error", err)
		}
		m.persistStatus(ctx, device.ID, false)
		m.registry.Unregister(device.ID)
		metrics.HeartbeatEvictionsTotal.Inc()
		slog.Info("Device evicted after missed pong", "device_id", device.ID.String())

	default:
		conn.SetAwaitingPong(true)
		if err := conn.Ping(); err != nil {
			slog.Warn("Heartbeat sweep: ping failed", "device_id", device.ID.String(), "error", err)
		}
	}
}

// HandlePong records a pong from a device: the connection's local flag flips
// back to alive and the device is persisted active with a fresh ping time.
func (m *Monitor) HandlePong(ctx context.Context, deviceID uuid.UUID) {
	if conn := m.registry.Lookup(deviceID); conn != nil {
		conn.SetAwaitingPong(false)
	}
	m.persistStatus(ctx, deviceID, true)
}

func (m *Monitor) persistStatus(ctx context.Context, deviceID uuid.UUID, active bool) {
	if err := m.devices.UpdateDeviceStatus(ctx, deviceID, active); err != nil {
		slog.Warn("Heartbeat: failed to persist device status",
			"device_id", deviceID.String(),
			"active", active,
			"error", err,
		)
	}
}
