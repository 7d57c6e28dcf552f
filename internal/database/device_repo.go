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

// DeviceRepo implements domain.DeviceStore.
type DeviceRepo struct {
	pool *pgxpool.Pool
}

func NewDeviceRepo(pool *pgxpool.Pool) *DeviceRepo {
	return &DeviceRepo{pool: pool}
}

func (r *DeviceRepo) CreateDevice(ctx context.Context, device *domain.Device) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO devices (id, concert_id, kind, active)
		VALUES ($1, $2, $3, TRUE)
		RETURNING created_at
	`, device.ID, device.ConcertID, string(device.Kind)).Scan(&device.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create device: %w", err)
	}
	device.Active = true
	return nil
}

func (r *DeviceRepo) FindDeviceByID(ctx context.Context, id uuid.UUID) (*domain.Device, error) {
	var device domain.Device
	var kind string
	err := r.pool.QueryRow(ctx, `
		SELECT id, concert_id, kind, active, last_ping_at, created_at
		FROM devices
		WHERE id = $1
	`, id).Scan(&device.ID, &device.ConcertID, &kind, &device.Active, &device.LastPingAt, &device.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find device: %w", err)
	}
	device.Kind = domain.DeviceKind(kind)
	return &device, nil
}

// ListDevicesForConcert returns the concert's devices in creation order, so
// sweeps process devices in a stable order.
func (r *DeviceRepo) ListDevicesForConcert(ctx context.Context, concertID uuid.UUID) ([]domain.Device, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, concert_id, kind, active, last_ping_at, created_at
		FROM devices
		WHERE concert_id = $1
		ORDER BY created_at
	`, concertID)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()

	var devices []domain.Device
	for rows.Next() {
		var device domain.Device
		var kind string
		if err := rows.Scan(&device.ID, &device.ConcertID, &kind, &device.Active, &device.LastPingAt, &device.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		device.Kind = domain.DeviceKind(kind)
		devices = append(devices, device)
	}
	return devices, rows.Err()
}

// UpdateDeviceStatus flips the liveness flag; marking a device active also
// refreshes its last ping timestamp.
func (r *DeviceRepo) UpdateDeviceStatus(ctx context.Context, id uuid.UUID, active bool) error {
	var err error
	if active {
		_, err = r.pool.Exec(ctx, `
			UPDATE devices SET active = TRUE, last_ping_at = NOW() WHERE id = $1
		`, id)
	} else {
		_, err = r.pool.Exec(ctx, `
			UPDATE devices SET active = FALSE WHERE id = $1
		`, id)
	}
	if err != nil {
		return fmt.Errorf("failed to update device status: %w", err)
	}
	return nil
}
