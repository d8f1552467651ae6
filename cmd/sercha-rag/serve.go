package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve [api|worker|all]",
	Short: "Run the HTTP API, the ingestion worker, or both",
	Long: `Starts sercha-rag. The mode defaults to RUN_MODE (or "all").
  api     HTTP API only
  worker  task worker and maintenance scheduler only
  all     both in one process`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{config.ModeAPI, config.ModeWorker, config.ModeAll},
	RunE:      runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if len(args) > 0 {
		cfg.RunMode = args[0]
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("sercha-rag starting", "mode", cfg.RunMode)

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	switch cfg.RunMode {
	case config.ModeAPI:
		return a.server().Start(ctx)

	case config.ModeWorker:
		return runWorker(ctx, a)

	case config.ModeAll:
		errCh := make(chan error, 1)
		go func() { errCh <- runWorker(ctx, a) }()

		if err := a.server().Start(ctx); err != nil {
			stop()
			<-errCh
			return err
		}
		return <-errCh
	}
	return fmt.Errorf("unknown mode %q", cfg.RunMode)
}

// runWorker processes tasks until ctx is cancelled.
func runWorker(ctx context.Context, a *app) error {
	w := a.worker()
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	a.logger.Info("worker started", "scheduler", a.scheduler != nil)

	<-ctx.Done()

	a.logger.Info("stopping worker")
	w.Stop()
	return nil
}
