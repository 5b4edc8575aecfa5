// Package api assembles the Echo server: middleware, the REST surface
// under /api/v1 and the WebSocket endpoint.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	apimw "github.com/swipeclean/swipeclean/internal/api/middleware"
	"github.com/swipeclean/swipeclean/internal/review"
	"github.com/swipeclean/swipeclean/internal/scheduler"
	"github.com/swipeclean/swipeclean/internal/triage"
	"github.com/swipeclean/swipeclean/internal/websocket"
)

// Version is set at build time.
var Version = "dev"

// Server handles HTTP requests for the SwipeClean API.
type Server struct {
	echo   *echo.Echo
	hub    *websocket.Hub
	logger zerolog.Logger

	triageService *triage.Service
	reviewService *review.Service
	scheduler     *scheduler.Scheduler

	startedAt time.Time
}

// NewServer creates a new API server instance.
func NewServer(triageService *triage.Service, reviewService *review.Service, sched *scheduler.Scheduler, hub *websocket.Hub, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:          e,
		hub:           hub,
		logger:        logger.With().Str("component", "api").Logger(),
		triageService: triageService,
		reviewService: reviewService,
		scheduler:     sched,
		startedAt:     time.Now(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())
	s.echo.Use(apimw.SecurityHeaders())
	s.echo.Use(middleware.BodyLimit("1M"))

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogMethod:   true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Err(v.Error).
					Msg("request error")
			} else {
				s.logger.Info().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Msg("request")
			}
			return nil
		},
	}))
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api/v1")

	triageHandlers := triage.NewHandlers(s.triageService)
	triageHandlers.RegisterRoutes(api.Group("/triage"))

	reviewHandlers := review.NewHandlers(s.reviewService)
	reviewHandlers.RegisterRoutes(api.Group("/review"))

	api.GET("/system/status", s.systemStatus)
	api.GET("/system/tasks", s.systemTasks)

	s.echo.GET("/ws", s.hub.HandleWebSocket)
}

// systemStatus reports server health and version.
// GET /api/v1/system/status
func (s *Server) systemStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   Version,
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
		"wsClients": s.hub.ClientCount(),
	})
}

// systemTasks lists the background tasks.
// GET /api/v1/system/tasks
func (s *Server) systemTasks(c echo.Context) error {
	if s.scheduler == nil {
		return c.JSON(http.StatusOK, []scheduler.TaskInfo{})
	}
	return c.JSON(http.StatusOK, s.scheduler.ListTasks())
}

// Start begins listening for HTTP requests.
func (s *Server) Start(address string) error {
	s.logger.Info().Str("address", address).Msg("starting HTTP server")
	return s.echo.Start(address)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}
