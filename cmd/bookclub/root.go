package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"bookclub/internal/config"
	"bookclub/internal/core"
)

// cli holds state shared by subcommands once configuration is loaded.
type cli struct {
	envFiles []string
	cfg      config.Config
	logger   *slog.Logger
	stdout   io.Writer
	stderr   io.Writer
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:           "bookclub",
		Short:         "Book club membership service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return c.load()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.serve(cmd.Context())
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringSliceVar(&c.envFiles, "env-file", nil, "dotenv files to load before reading the environment (default .env)")
	root.AddCommand(
		newServeCommand(c),
		newMigrateCommand(c),
		newSeedCommand(c),
		newTokenCommand(c),
	)
	return root
}

func (c *cli) load() error {
	cfg, err := config.LoadFiles(c.envFiles...)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = config.NewLogger(cfg, c.stderr)
	return nil
}

func (c *cli) fail(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}

// openService opens the configured store and builds the service on it.
// Metrics and tracing are attached when reg and tp are non-nil.
func (c *cli) openService(ctx context.Context, reg prometheus.Registerer, tp trace.TracerProvider) (*core.Service, func(), error) {
	store, err := core.OpenPersistentStore(ctx, c.cfg.Storage, core.NewDefaultRulesEngine())
	if err != nil {
		return nil, nil, err
	}
	opts := []core.ServiceOption{
		core.WithLogger(c.logger),
		core.WithAuditRecorder(core.NewLogAuditRecorder(c.logger)),
	}
	if reg != nil {
		metrics, err := core.NewPrometheusMetricsRecorder(reg)
		if err != nil {
			_ = core.CloseStore(store)
			return nil, nil, err
		}
		opts = append(opts, core.WithMetricsRecorder(metrics))
	}
	if tp != nil {
		opts = append(opts, core.WithTracer(core.NewOTelTracer(tp)))
	}
	closeStore := func() {
		if err := core.CloseStore(store); err != nil {
			c.logger.Warn("close store", "error", err)
		}
	}
	return core.NewService(store, opts...), closeStore, nil
}
