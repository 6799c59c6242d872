// Package main serves every endpoint over HTTP, as an Azure Functions custom
// handler or for local development.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/appliedpolicy/project-explorer/internal/bootstrap"
	"github.com/appliedpolicy/project-explorer/internal/config"
	"github.com/appliedpolicy/project-explorer/internal/logger"
	"github.com/appliedpolicy/project-explorer/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	env := config.MustLoad()
	logger.Init(logger.FromEnv("funcserver"))
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := bootstrap.New(ctx, env, metrics.New(prometheus.DefaultRegisterer))
	if err != nil {
		log.Fatal().Err(err).Msg("bootstrap failed")
	}
	router, err := deps.Router(prometheus.DefaultGatherer)
	if err != nil {
		log.Fatal().Err(err).Msg("router init failed")
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort("", env.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("mode", string(env.AccessMode)).
			Str("backend", env.StorageBackend).
			Msg("function server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
