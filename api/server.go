package api

import (
	"time"

	"github.com/CristiGvl/picoRing0/internal/cpu"
	"github.com/CristiGvl/picoRing0/internal/disk"
	"github.com/CristiGvl/picoRing0/internal/platform"
	"github.com/CristiGvl/picoRing0/internal/sensor"
	"github.com/CristiGvl/picoRing0/internal/temps"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
)

// Reporter renders a diagnostic text report
type Reporter interface {
	Report() string
}

// Scheduler lists background jobs by their next run time
type Scheduler interface {
	Jobs() map[string]time.Time
}

// Dependencies are the readers the server exposes
type Dependencies struct {
	CPU       cpu.Reader
	Disks     disk.Reader
	Temps     temps.Reader
	Registry  *sensor.Registry
	Reporters []Reporter
	Scheduler Scheduler
	Logger    zerolog.Logger
}

// Server represents the API server
type Server struct {
	app       *fiber.App
	logger    zerolog.Logger
	cpuReader cpu.Reader
	disks     disk.Reader
	temps     temps.Reader
	registry  *sensor.Registry
	reporters []Reporter
	scheduler Scheduler
	started   time.Time
}

// NewServer creates a new API server
func NewServer(deps Dependencies) (*Server, error) {
	if err := platform.ValidateSupport(); err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		IdleTimeout:           120 * time.Second,
		ServerHeader:          "picoRing0",
		AppName:               "picoRing0",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Output: deps.Logger.With().Str("component", "http").Logger(),
		Format: "${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,PUT,OPTIONS",
		AllowHeaders: "*",
		MaxAge:       86400, // 24 hours
	}))

	server := &Server{
		app:       app,
		logger:    deps.Logger,
		cpuReader: deps.CPU,
		disks:     deps.Disks,
		temps:     deps.Temps,
		registry:  deps.Registry,
		reporters: deps.Reporters,
		scheduler: deps.Scheduler,
		started:   time.Now(),
	}

	server.setupRoutes()
	return server, nil
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.app.Group("/api")

	api.Get("/health", s.healthCheck)
	api.Get("/host", s.getHost)

	api.Get("/cpu", s.getCPU)
	api.Get("/cpu/report", s.getCPUReport)
	api.Get("/temps", s.getTemps)
	api.Get("/disk", s.getDisk)

	// Sensor ids contain slashes, so they are matched with a wildcard
	api.Get("/sensors", s.getSensors)
	api.Get("/sensors/parameters/*", s.getSensorParameters)
	api.Put("/sensors/parameters/*", s.setSensorParameter)
}

// Start starts the API server
func (s *Server) Start(address string) error {
	s.logger.Info().Str("address", address).Msg("starting api server")
	return s.app.Listen(address)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// Health check endpoint
func (s *Server) healthCheck(c *fiber.Ctx) error {
	jobs := map[string]int64{}
	if s.scheduler != nil {
		for name, next := range s.scheduler.Jobs() {
			jobs[name] = next.Unix()
		}
	}
	return c.JSON(fiber.Map{
		"status":     "ok",
		"platform":   platform.GetOS(),
		"privileged": platform.IsPrivileged(),
		"sensors":    len(s.registry.Active()),
		"jobs":       jobs,
		"uptime":     time.Since(s.started).Round(time.Second).String(),
		"timestamp":  time.Now().Unix(),
	})
}
