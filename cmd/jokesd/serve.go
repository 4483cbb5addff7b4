package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	httpadapter "github.com/randomtoy/jokes-go/internal/adapters/http"
	"github.com/randomtoy/jokes-go/internal/adapters/metrics"
	"github.com/randomtoy/jokes-go/internal/app"
)

func serveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the joke page, state API and metrics over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
			slog.SetDefault(logger)

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			ctrl := newController(cfg, logger, app.WithObserver(metrics.NewRecorder(reg, cfg.MetricsNamespace)))
			defer ctrl.Close()

			e := echo.New()
			e.HideBanner = true
			e.HidePort = true

			e.Use(httpadapter.RequestIDMiddleware())
			e.Use(httpadapter.TracingMiddleware(otel.Tracer("github.com/randomtoy/jokes-go/internal/adapters/http")))
			e.Use(httpadapter.LoggingMiddleware(logger))

			httpadapter.NewHandler(ctrl, reg, logger).Register(e)

			// Graceful shutdown.
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("starting server", "addr", cfg.HTTPAddr, "endpoint", cfg.JokeAPIURL)
				if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				logger.Error("server error", "error", err)
				return err
			case <-ctx.Done():
			}
			logger.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := e.Shutdown(shutdownCtx); err != nil {
				logger.Error("shutdown error", "error", err)
			}
			return nil
		},
	}
}
