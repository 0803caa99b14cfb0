// Package server exposes the detection service over HTTP and WebSocket.
package server

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/teslashibe/go-truesight/internal/log"
	"github.com/teslashibe/go-truesight/pkg/calibration"
	"github.com/teslashibe/go-truesight/pkg/debounce"
	"github.com/teslashibe/go-truesight/pkg/demo"
	"github.com/teslashibe/go-truesight/pkg/hub"
	"github.com/teslashibe/go-truesight/pkg/ingest"
	"github.com/teslashibe/go-truesight/pkg/malpractice"
	"github.com/teslashibe/go-truesight/pkg/metrics"
	"github.com/teslashibe/go-truesight/pkg/report"
)

// Analyzer runs the detection pipelines behind the HTTP routes.
type Analyzer interface {
	DetectOverlay(ctx context.Context, payload string) (report.Result, error)
	DetectHumans(ctx context.Context, room, payload string) (malpractice.Result, error)
	Observe(room string, o debounce.Outcome) []debounce.Alert
	ModelLoaded() bool
}

// AlertHistory lists persisted alerts.
type AlertHistory interface {
	ListByRoom(ctx context.Context, room string, limit int) ([]debounce.Alert, error)
}

// Config holds HTTP settings.
type Config struct {
	Version     string
	Debug       bool
	BodyLimitMB int
}

// Deps are the components the routes are built on. Analyzer and Rooms are
// required; every other field is optional and its routes are skipped when
// nil.
type Deps struct {
	Analyzer   Analyzer
	Rooms      debounce.Store
	History    AlertHistory
	Demo       *demo.Sequencer
	Profile    *calibration.Profile
	Threshold  float64
	Metrics    *metrics.Metrics
	Devices    *ingest.Hub
	Dashboards *hub.Hub
}

// Server is the fiber application for the service
type Server struct {
	app      *fiber.App
	cfg      Config
	deps     Deps
	validate *validator.Validate
	log      *slog.Logger
}

// New builds the fiber app and mounts every route.
func New(cfg Config, deps Deps) *Server {
	if cfg.BodyLimitMB <= 0 {
		cfg.BodyLimitMB = 16
	}
	s := &Server{
		cfg:      cfg,
		deps:     deps,
		validate: validator.New(),
		log:      log.Component("server"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "truesight",
		DisableStartupMessage: true,
		BodyLimit:             cfg.BodyLimitMB * 1024 * 1024,
		ErrorHandler:          errorHandler,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))
	if cfg.Debug {
		app.Use(logger.New())
	}

	// WebSocket routes
	if deps.Devices != nil {
		deps.Devices.RegisterRoutes(app)
	}
	if deps.Dashboards != nil {
		deps.Dashboards.RegisterRoutes(app)
	}

	app.Get("/health", s.handleHealth)
	if deps.Metrics != nil {
		app.Get("/metrics", deps.Metrics.FiberHandler())
	}

	api := app.Group("/api")
	api.Post("/detect-overlay", s.handleDetectOverlay)
	api.Post("/detect-humans", s.handleDetectHumans)
	api.Get("/rooms", s.handleListRooms)
	api.Post("/rooms/:room/observe", s.handleObserve)
	api.Get("/rooms/:room/alerts", s.handleRoomAlerts)
	api.Get("/calibration", s.handleCalibration)
	if deps.Devices != nil {
		deps.Devices.RegisterAPIRoutes(api)
	}
	if deps.Demo != nil {
		api.Post("/demo/:room/tab-switch", s.handleDemoStart)
		api.Post("/demo/:room/check", s.handleDemoCheck)
	}

	s.app = app
	return s
}

// errorHandler renders every error as {"error": "..."}.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// App returns the underlying fiber app
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.log.Info("listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
