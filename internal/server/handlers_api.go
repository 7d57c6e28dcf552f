package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mka142/ccw-platform-sub001/internal/domain"
)

const healthPingTimeout = 2 * time.Second

type createDeviceRequest struct {
	Kind string `json:"kind"`
}

type createDeviceResponse struct {
	ID        string `json:"id"`
	ConcertID string `json:"concertId"`
	Kind      string `json:"kind"`
}

// handleCreateDevice enrolls a new device into the currently active concert.
func (s *Server) handleCreateDevice(c echo.Context) error {
	var req createDeviceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	kind := domain.DeviceKind(req.Kind)
	if req.Kind == "" {
		kind = domain.DeviceKindBrowser
	}
	if !kind.Valid() {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unknown device kind"})
	}

	ctx := c.Request().Context()
	concert, err := s.concerts.FindActiveConcert(ctx)
	if err != nil {
		slog.Error("Failed to find active concert", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
	if concert == nil {
		return c.JSON(http.StatusConflict, map[string]string{"error": "no active concert"})
	}

	device := &domain.Device{
		ID:        uuid.New(),
		ConcertID: concert.ID,
		Kind:      kind,
	}
	if err := s.devices.CreateDevice(ctx, device); err != nil {
		slog.Error("Failed to create device", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	slog.Info("Device enrolled", "device_id", device.ID.String(), "concert_id", concert.ID.String(), "kind", string(kind))
	return c.JSON(http.StatusCreated, createDeviceResponse{
		ID:        device.ID.String(),
		ConcertID: device.ConcertID.String(),
		Kind:      string(device.Kind),
	})
}

type activateEventRequest struct {
	EventID string `json:"eventId"`
}

// handleActivateEvent points a concert at one of its program events and fans
// the event out to every connected device.
func (s *Server) handleActivateEvent(c echo.Context) error {
	concertID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid concert id"})
	}

	var req activateEventRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	eventID, err := uuid.Parse(req.EventID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid event id"})
	}

	ctx := c.Request().Context()
	event, err := s.events.FindEventByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "event not found"})
		}
		slog.Error("Failed to load event", "event_id", eventID.String(), "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
	if event.ConcertID != concertID {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "event does not belong to concert"})
	}

	if err := s.concerts.SetActiveEvent(ctx, concertID, eventID); err != nil {
		if errors.Is(err, domain.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "event not found"})
		}
		slog.Error("Failed to set active event", "concert_id", concertID.String(), "event_id", eventID.String(), "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	// Delivery is best effort; the activation itself already succeeded.
	if err := s.broadcaster.Broadcast(ctx, concertID, event); err != nil {
		slog.Error("Broadcast after activation failed", "concert_id", concertID.String(), "error", err)
	}

	return c.JSON(http.StatusOK, map[string]string{"activeEventId": eventID.String()})
}

type startRecordingRequest struct {
	PieceDurationMS int64 `json:"pieceDurationMs"`
}

// handleStartRecording opens a re-record session and hands back its token.
func (s *Server) handleStartRecording(c echo.Context) error {
	var req startRecordingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.PieceDurationMS <= 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "pieceDurationMs must be positive"})
	}

	token := uuid.New()
	pieceDuration := time.Duration(req.PieceDurationMS) * time.Millisecond
	if err := s.recordings.StartRecording(c.Request().Context(), token, pieceDuration); err != nil {
		slog.Error("Failed to start recording", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	slog.Info("Recording started", "token", token.String(), "piece_duration", pieceDuration.String())
	return c.JSON(http.StatusCreated, map[string]string{"token": token.String()})
}

// handleRecordingHeartbeat refreshes the session's heartbeat timestamp.
func (s *Server) handleRecordingHeartbeat(c echo.Context) error {
	token, err := uuid.Parse(c.Param("token"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid token"})
	}

	if err := s.recordings.Heartbeat(c.Request().Context(), token); err != nil {
		if errors.Is(err, domain.ErrRecordingNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "recording not found"})
		}
		slog.Error("Failed to record heartbeat", "token", token.String(), "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
	return c.NoContent(http.StatusNoContent)
}

// handleFinishRecording marks the session finished cleanly.
func (s *Server) handleFinishRecording(c echo.Context) error {
	token, err := uuid.Parse(c.Param("token"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid token"})
	}

	if err := s.recordings.FinishRecording(c.Request().Context(), token); err != nil {
		if errors.Is(err, domain.ErrRecordingNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "recording not found"})
		}
		slog.Error("Failed to finish recording", "token", token.String(), "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	slog.Info("Recording finished", "token", token.String())
	return c.NoContent(http.StatusNoContent)
}

// handleHealth reports readiness of the backing stores.
func (s *Server) handleHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthPingTimeout)
	defer cancel()

	status := map[string]string{"database": "ok", "redis": "ok"}
	healthy := true

	if err := s.dbPing.Ping(ctx); err != nil {
		status["database"] = "unreachable"
		healthy = false
	}
	if err := s.redisPing.Ping(ctx); err != nil {
		status["redis"] = "unreachable"
		healthy = false
	}

	if !healthy {
		return c.JSON(http.StatusServiceUnavailable, status)
	}
	return c.JSON(http.StatusOK, status)
}
