// Package server exposes the websocket endpoint, the admin-facing event
// activation hook and the recording lifecycle API.
package server

import (
	"context"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mka142/ccw-platform-sub001/internal/broadcast"
	"github.com/mka142/ccw-platform-sub001/internal/config"
	"github.com/mka142/ccw-platform-sub001/internal/domain"
	"github.com/mka142/ccw-platform-sub001/internal/heartbeat"
	"github.com/mka142/ccw-platform-sub001/internal/registry"
)

// pinger lets the health handler check infrastructure connectivity without
// depending on the concrete pool/client types.
type pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	echo        *echo.Echo
	config      *config.Config
	devices     domain.DeviceStore
	concerts    domain.ConcertStore
	events      domain.EventStore
	recordings  domain.RecordingStore
	registry    *registry.Registry
	broadcaster *broadcast.Broadcaster
	monitor     *heartbeat.Monitor
	dbPing      pinger
	redisPing   pinger
}

func NewServer(
	cfg *config.Config,
	devices domain.DeviceStore,
	concerts domain.ConcertStore,
	events domain.EventStore,
	recordings domain.RecordingStore,
	reg *registry.Registry,
	broadcaster *broadcast.Broadcaster,
	monitor *heartbeat.Monitor,
	dbPing, redisPing pinger,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())

	srv := &Server{
		echo:        e,
		config:      cfg,
		devices:     devices,
		concerts:    concerts,
		events:      events,
		recordings:  recordings,
		registry:    reg,
		broadcaster: broadcaster,
		monitor:     monitor,
		dbPing:      dbPing,
		redisPing:   redisPing,
	}

	srv.registerRoutes()
	return srv
}

func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
