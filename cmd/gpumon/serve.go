package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/user/gpumon/internal/api"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline on a schedule and serve metrics, health and reports",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := buildDeps(opts)
			if err != nil {
				return err
			}
			defer d.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
			if _, err := scheduler.AddFunc(d.cfg.Schedule, func() {
				if _, err := d.pipeline.Run(ctx); err != nil {
					d.logger.Warn("scheduled run skipped", zap.Error(err))
				}
			}); err != nil {
				return err
			}
			scheduler.Start()

			server := api.NewServer(ctx, d.cfg.ServerPort, d.pipeline, d.reports, d.sink, d.registry, d.metrics, d.logger)
			go func() {
				if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					d.logger.Error("could not start server", zap.Error(err))
					stop()
				}
			}()
			d.logger.Info("server started", zap.String("port", d.cfg.ServerPort), zap.String("schedule", d.cfg.Schedule))

			<-ctx.Done()
			d.logger.Info("shutting down server...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			<-scheduler.Stop().Done()
			return server.Shutdown(shutdownCtx)
		},
	}
}
