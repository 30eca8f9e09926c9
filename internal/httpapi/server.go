// Package httpapi exposes the book club service over HTTP with fiber.
package httpapi

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"bookclub/docs/openapi"
	"bookclub/internal/config"
	"bookclub/internal/core"
	"bookclub/internal/identity"
	"bookclub/internal/roster"
)

// Server wires the HTTP routes to the service.
type Server struct {
	app      *fiber.App
	svc      *core.Service
	verifier identity.Verifier
	exporter *roster.Exporter
	logger   *slog.Logger
	gatherer prometheus.Gatherer
	tracer   trace.Tracer
	http     config.HTTPConfig
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithExporter enables the roster export routes.
func WithExporter(exporter *roster.Exporter) Option {
	return func(s *Server) { s.exporter = exporter }
}

// WithGatherer sets the registry served on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		if g != nil {
			s.gatherer = g
		}
	}
}

// WithTracerProvider sets the provider used for request spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Server) {
		if tp != nil {
			s.tracer = tp.Tracer("bookclub/internal/httpapi")
		}
	}
}

// WithHTTPConfig applies body limit and timeouts.
func WithHTTPConfig(cfg config.HTTPConfig) Option {
	return func(s *Server) { s.http = cfg }
}

// NewServer builds the fiber application.
func NewServer(svc *core.Service, verifier identity.Verifier, opts ...Option) *Server {
	s := &Server{
		svc:      svc,
		verifier: verifier,
		logger:   slog.New(slog.DiscardHandler),
		gatherer: prometheus.DefaultGatherer,
		tracer:   otel.GetTracerProvider().Tracer("bookclub/internal/httpapi"),
		http:     config.HTTPConfig{BodyLimit: 1 << 20, ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "bookclub",
		DisableStartupMessage: true,
		BodyLimit:             s.http.BodyLimit,
		ReadTimeout:           s.http.ReadTimeout,
		WriteTimeout:          s.http.WriteTimeout,
		ErrorHandler:          s.handleError,
	})
	s.routes()
	return s
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error { return s.app.Listen(addr) }

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error { return s.app.ShutdownWithContext(ctx) }

func (s *Server) routes() {
	s.app.Use(fiberrecover.New())
	s.app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	s.app.Use(s.traceRequests)
	s.app.Use(s.logRequests)

	s.app.Get("/healthz", s.health)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	s.app.Get("/openapi.yaml", s.contract)

	api := s.app.Group("/api/v1", s.authenticate)
	api.Post("/people", s.createPerson)
	api.Get("/people/:userId", s.fetchPerson)
	api.Patch("/people/:userId", s.updatePerson)

	api.Post("/clubs", s.createClub)
	api.Get("/clubs", s.listClubs)
	api.Get("/clubs/:clubId", s.fetchClub)
	api.Patch("/clubs/:clubId", s.updateClub)
	api.Post("/clubs/:clubId/join", s.joinClub)
	api.Post("/clubs/:clubId/leave", s.leaveClub)
	api.Get("/clubs/:clubId/members", s.listMembers)
	if s.exporter != nil {
		api.Post("/clubs/:clubId/roster-exports", s.exportRoster)
		api.Get("/clubs/:clubId/roster-exports", s.listRosterExports)
	}
}

func (s *Server) health(c *fiber.Ctx) error {
	err := s.svc.Store().View(c.UserContext(), func(core.TransactionView) error { return nil })
	if err != nil {
		s.logger.Error("health check failed", "error", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unhealthy"})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) contract(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, openapi.ContentType)
	return c.Send(openapi.Spec())
}
