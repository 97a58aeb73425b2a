/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package server exposes the moderation webhook over HTTP.
package server

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/suparena/contentguard"
	cgerrors "github.com/suparena/contentguard/errors"
	"github.com/suparena/contentguard/event"
	"github.com/suparena/contentguard/metrics"
)

// BodyLimit caps push deliveries.
const BodyLimit = 1 << 20

// HealthBody is the liveness response.
const HealthBody = "contentguard is running"

// Moderator is satisfied by *contentguard.Moderator.
type Moderator interface {
	Moderate(ctx context.Context, ev event.StorageEvent, deliveryID string) contentguard.Result
}

// Server owns the fiber app.
type Server struct {
	app     *fiber.App
	mod     Moderator
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger; the default discards.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics instruments requests with m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// New builds the app. When gatherer is non-nil its metrics are served on
// GET /metrics.
func New(mod Moderator, gatherer prometheus.Gatherer, opts ...Option) *Server {
	s := &Server{mod: mod, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "contentguard",
		BodyLimit:             BodyLimit,
		DisableStartupMessage: true,
	})
	s.app.Use(recover.New())
	s.app.Use(s.instrument)

	s.app.Get("/", s.health)
	s.app.Post("/moderate", s.moderate)
	if gatherer != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx
// is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.SendString(HealthBody)
}

// moderate answers 400 only for deliveries that cannot be decoded. Every
// decoded delivery is acknowledged whatever the outcome, since redelivery
// would repeat the same classifier and storage calls.
func (s *Server) moderate(c *fiber.Ctx) error {
	d, err := event.Decode(c.Body())
	if err != nil {
		fields := []zap.Field{zap.Error(err), zap.Int("bytes", len(c.Body()))}
		var envErr *cgerrors.EnvelopeError
		if errors.As(err, &envErr) {
			fields = append(fields, zap.String("reason", envErr.Reason))
		}
		s.logger.Warn("rejecting malformed delivery", fields...)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	res := s.mod.Moderate(c.UserContext(), d.Event, d.MessageID)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"outcome": res.Outcome.String(),
		"reason":  res.Reason,
	})
}

func (s *Server) instrument(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		status = fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
	}
	s.metrics.ObserveRequest(c.Route().Path, c.Method(), strconv.Itoa(status), time.Since(start))
	return err
}
