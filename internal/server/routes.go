package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	s.echo.GET("/ws", s.handleWebSocket, newRateLimiter(s.config.WSConnectRate, s.config.WSConnectBurst))

	api := s.echo.Group("/api")
	api.POST("/devices", s.handleCreateDevice)
	api.POST("/concerts/:id/active-event", s.handleActivateEvent)
	api.POST("/recordings", s.handleStartRecording)
	api.POST("/recordings/:token/heartbeat", s.handleRecordingHeartbeat)
	api.POST("/recordings/:token/finish", s.handleFinishRecording)

	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}
