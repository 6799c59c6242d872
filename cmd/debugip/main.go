// Package main is the Lambda entry point for client address diagnostics.
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
	logger.Init(logger.FromEnv("debug-ip"))

	deps, err := bootstrap.New(context.Background(), env, nil)
	if err != nil {
		logger.Get().Fatal().Err(err).Msg("bootstrap failed")
	}
	lambda.Start(deps.Diag().Handle)
}
