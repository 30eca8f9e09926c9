package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"bookclub/internal/blob"
	"bookclub/internal/config"
	"bookclub/internal/httpapi"
	"bookclub/internal/identity"
	"bookclub/internal/roster"
)

func newServeCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.serve(cmd.Context())
		},
	}
}

func (c *cli) serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	tp := sdktrace.NewTracerProvider(sdktrace.WithResource(resource.NewSchemaless(
		attribute.String("service.name", "bookclub"),
		attribute.String("deployment.environment", c.cfg.Environment),
	)))
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			c.logger.Warn("tracer shutdown", "error", err)
		}
	}()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	svc, closeStore, err := c.openService(ctx, reg, tp)
	if err != nil {
		return c.fail("open store", err)
	}
	defer closeStore()

	blobs, err := blob.Open(ctx, c.cfg.Blob)
	if err != nil {
		return c.fail("open blob store", err)
	}
	verifier, err := identity.New(c.cfg.Auth)
	if err != nil {
		return c.fail("build token verifier", err)
	}
	if c.cfg.Auth.Mode == config.AuthHMAC && c.cfg.Auth.JWTSecret == "" {
		c.logger.Warn("BOOKCLUB_JWT_SECRET not set, using the development secret")
	}

	server := httpapi.NewServer(svc, verifier,
		httpapi.WithLogger(c.logger),
		httpapi.WithExporter(roster.NewExporter(svc, blobs, roster.WithLogger(c.logger))),
		httpapi.WithGatherer(reg),
		httpapi.WithTracerProvider(tp),
		httpapi.WithHTTPConfig(c.cfg.HTTP),
	)

	errCh := make(chan error, 1)
	go func() {
		c.logger.Info("listening", "addr", c.cfg.HTTP.Addr, "storage", c.cfg.Storage.Driver, "blob", string(blobs.Driver()), "auth", c.cfg.Auth.Mode)
		errCh <- server.Listen(c.cfg.HTTP.Addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return c.fail("http server", err)
		}
		return nil
	case <-ctx.Done():
	}

	c.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return c.fail("shutdown", err)
	}
	return nil
}
