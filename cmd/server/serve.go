package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"octopus/internal/platform/httpserver"
	"octopus/internal/platform/metrics"
	ratelimitmw "octopus/internal/ratelimit/middleware"
	httptransport "octopus/internal/transport/http"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error("shutdown cleanup failed", "error", err)
		}
	}()

	httpMetrics := metrics.New()
	limiter := ratelimitmw.New(a.limiter, log,
		ratelimitmw.WithDisabled(cfg.RateLimit.Disabled),
		ratelimitmw.WithMetrics(httpMetrics),
	)
	router := httptransport.NewRouter(log, httptransport.Options{
		AdminToken:   cfg.Server.AdminToken,
		Metrics:      httpMetrics,
		RateLimit:    limiter.RateLimit,
		HealthChecks: a.health,
		CORSOrigins:  cfg.Server.CORSOrigins,
	}, a.modules()...)

	srv := httpserver.New(cfg.Server.Addr, router)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting octopus",
			"addr", cfg.Server.Addr,
			"environment", cfg.Server.Environment,
			"persistence", a.persistence,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
