// Package inspect serves the engine's tick reports over HTTP and a websocket feed
package inspect

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/lixenwraith/muffle/engine"
	"github.com/lixenwraith/muffle/status"
)

// Source yields the latest tick report
type Source interface {
	Report() engine.Report
}

// ErrNotRunning is returned by Shutdown before Listen
var ErrNotRunning = errors.New("inspector not running")

// Server is the debug inspector
type Server struct {
	app    *fiber.App
	src    Source
	reg    *status.Registry
	hub    *hub
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewServer wires routes over src; reg may be nil when metrics are not shared
func NewServer(src Source, reg *status.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "inspect")
	s := &Server{
		src:    src,
		reg:    reg,
		hub:    newHub(logger),
		logger: logger,
	}

	app := fiber.New(fiber.Config{
		AppName:               "muffle inspector",
		DisableStartupMessage: true,
	})

	api := app.Group("/api")
	api.Get("/report", s.handleReport)
	api.Get("/channels", s.handleChannels)
	api.Get("/channels/:id", s.handleChannel)
	api.Get("/listener", s.handleListener)
	api.Get("/metrics", s.handleMetrics)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/ticks", websocket.New(s.handleTicks))

	s.app = app
	return s
}

// Listen starts the hub and blocks serving addr
func (s *Server) Listen(addr string) error {
	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	go s.hub.run(ctx)
	s.logger.Info("inspector listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops the hub and the HTTP server
func (s *Server) Shutdown() error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return ErrNotRunning
	}
	cancel()
	return s.app.Shutdown()
}

// Publish pushes a tick report to websocket subscribers without blocking
func (s *Server) Publish(r engine.Report) {
	if err := s.hub.broadcastJSON(r); err != nil {
		s.logger.Warn("report encode failed", "tick", r.Tick, "err", err)
	}
}

// Clients returns the number of websocket subscribers
func (s *Server) Clients() int { return s.hub.count() }

func (s *Server) handleReport(c *fiber.Ctx) error {
	return c.JSON(s.src.Report())
}

func (s *Server) handleChannels(c *fiber.Ctx) error {
	return c.JSON(s.src.Report().Channels)
}

func (s *Server) handleChannel(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid channel id"})
	}
	for _, ch := range s.src.Report().Channels {
		if ch.ID == engine.ChannelID(id) {
			return c.JSON(ch)
		}
	}
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown channel"})
}

func (s *Server) handleListener(c *fiber.Ctx) error {
	return c.JSON(s.src.Report().Listener)
}

func (s *Server) handleMetrics(c *fiber.Ctx) error {
	if s.reg == nil {
		return c.JSON(fiber.Map{})
	}
	return c.JSON(s.reg.Snapshot())
}

// handleTicks registers the connection and blocks until it closes
func (s *Server) handleTicks(conn *websocket.Conn) {
	cl := newClient(s.hub, conn)
	if !s.hub.join(cl) {
		conn.Close()
		return
	}
	go cl.writePump()
	cl.readPump()
}
