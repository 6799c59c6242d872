// Package main is the Lambda entry point for the storage connectivity check.
package main

import (
	"context"

	"github.com/appliedpolicy/project-explorer/internal/bootstrap"
	"github.com/appliedpolicy/project-explorer/internal/config"
	"github.com/appliedpolicy/project-explorer/internal/logger"

	"github.com/aws/aws-lambda-go/lambda"
)

func main() {
	env := config.MustLoad()
	logger.Init(logger.FromEnv("test-storage"))
	log := logger.Get()

	deps, err := bootstrap.New(context.Background(), env, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("bootstrap failed")
	}
	app, err := deps.StorageCheck()
	if err != nil {
		log.Fatal().Err(err).Msg("storage check init failed")
	}
	lambda.Start(app.Handle)
}
