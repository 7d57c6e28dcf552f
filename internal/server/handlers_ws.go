package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/mka142/ccw-platform-sub001/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleWebSocket upgrades the connection and runs its read loop. The first
// meaningful frame must be an init naming a known device; until then the
// connection is anonymous and not registered.
func (s *Server) handleWebSocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	wc := newWSConn(conn)
	ctx := c.Request().Context()

	var deviceID uuid.UUID
	registered := false

	conn.SetPongHandler(func(string) error {
		if registered {
			s.monitor.HandlePong(ctx, deviceID)
		}
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}

		msg, err := domain.DecodeInbound(data)
		if err != nil {
			if sendErr := wc.SendJSON(domain.NewErrorMessage(err.Error())); sendErr != nil {
				break
			}
			continue
		}

		init, ok := msg.(domain.InitMessage)
		if !ok {
			continue
		}

		device, err := s.initDevice(c, init)
		if err != nil {
			// A connection that cannot identify itself has no business
			// staying open.
			if sendErr := wc.SendJSON(domain.NewErrorMessage(err.Error())); sendErr != nil {
				slog.Debug("Failed to send init rejection", "error", sendErr)
			}
			break
		}

		deviceID = device.ID
		registered = true
		s.registry.Register(deviceID, wc)

		if err := s.devices.UpdateDeviceStatus(ctx, deviceID, true); err != nil {
			slog.Warn("Failed to mark device active on init", "device_id", deviceID.String(), "error", err)
		}
		if err := s.broadcaster.CatchUp(ctx, device, wc); err != nil {
			slog.Warn("Catch-up send failed", "device_id", deviceID.String(), "error", err)
		}

		slog.Info("Device connected", "device_id", deviceID.String(), "remote", c.RealIP())
	}

	if registered {
		s.registry.UnregisterConn(deviceID, wc)
		if err := s.devices.UpdateDeviceStatus(ctx, deviceID, false); err != nil {
			slog.Warn("Failed to mark device inactive on disconnect", "device_id", deviceID.String(), "error", err)
		}
		slog.Info("Device disconnected", "device_id", deviceID.String())
	}
	return wc.Close()
}

// initDevice resolves an init frame to a known device record.
func (s *Server) initDevice(c echo.Context, init domain.InitMessage) (*domain.Device, error) {
	id, err := uuid.Parse(init.UserID)
	if err != nil {
		return nil, errors.New("invalid userId")
	}

	device, err := s.devices.FindDeviceByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrDeviceNotFound) {
			return nil, errors.New("unknown device")
		}
		slog.Error("Failed to look up device on init", "device_id", id.String(), "error", err)
		return nil, errors.New("internal error")
	}
	return device, nil
}
