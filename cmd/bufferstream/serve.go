package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/bufferstream/bufferstream"
	"github.com/kbukum/bufferstream/httpapi"
	"github.com/kbukum/bufferstream/logger"
	"github.com/kbukum/bufferstream/observability"
	"github.com/kbukum/bufferstream/version"
)

func newServeCmd(a *app) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve transform chains over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port > 0 {
				a.cfg.Server.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "override server.port")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	shutdown, err := observability.Init(ctx, cfg.Observability, cfg.Base.Name, version.GetShortVersion())
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			a.log.Warn("Telemetry shutdown failed", logger.Fields(logger.FieldError, err.Error()))
		}
	}()

	metrics, err := observability.NewStageMetrics(observability.Meter(cfg.Base.Name))
	if err != nil {
		return err
	}

	srv, err := httpapi.New(cfg.Server, logger.GetGlobalLogger(),
		httpapi.WithServiceName(cfg.Base.Name),
		httpapi.WithChains(cfg.Chains),
		httpapi.WithMetrics(metrics),
		httpapi.WithStageOptions(bufferstream.WithMaxSize(cfg.Stage.MaxSize)),
	)
	if err != nil {
		return err
	}
	if err := srv.Start(ctx); err != nil {
		return err
	}
	a.log.Info("Serving", logger.Fields("addr", srv.Addr(), "version", version.GetShortVersion(), "environment", cfg.Base.Environment))

	<-ctx.Done()
	return srv.Stop(context.Background())
}
