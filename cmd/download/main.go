// Package main is the Lambda entry point for the secure download endpoint.
package main

import (
	"context"

	"github.com/appliedpolicy/project-explorer/internal/bootstrap"
	"github.com/appliedpolicy/project-explorer/internal/config"
	"github.com/appliedpolicy/project-explorer/internal/logger"
	"github.com/appliedpolicy/project-explorer/internal/metrics"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/prometheus/client_golang/prometheus"
)

// main initializes the app and starts the Lambda handler.
func main() {
	env := config.MustLoad()
	logger.Init(logger.FromEnv("secure-download"))
	log := logger.Get()

	deps, err := bootstrap.New(context.Background(), env, metrics.New(prometheus.DefaultRegisterer))
	if err != nil {
		log.Fatal().Err(err).Msg("bootstrap failed")
	}
	app, err := deps.Download()
	if err != nil {
		log.Fatal().Err(err).Msg("download endpoint init failed")
	}

	log.Info().
		Str("mode", string(env.AccessMode)).
		Str("backend", env.StorageBackend).
		Str("container", env.ContainerName()).
		Msg("secure download ready")
	lambda.Start(app.Handle)
}
