package diag

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/appliedpolicy/project-explorer/internal/api"
	"github.com/appliedpolicy/project-explorer/internal/apperr"
	"github.com/appliedpolicy/project-explorer/internal/blobstore"
	"github.com/appliedpolicy/project-explorer/internal/httpx"
	"github.com/appliedpolicy/project-explorer/internal/logger"

	"github.com/aws/aws-lambda-go/events"
)

// StorageApp checks that the configured container is reachable. The body
// names the account and container and never carries credentials.
type StorageApp struct {
	Store   blobstore.Store
	Secrets []string
	Log     *logger.Logger
	Now     func() time.Time
}

// Handle processes one request.
func (a *StorageApp) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	if httpx.Method(req) == http.MethodOptions {
		return httpx.Preflight()
	}
	ctx = logger.WithRequest(ctx, req.RequestContext.RequestID)
	log := logger.C(ctx, a.Log)
	t := a.Store.Target()

	if err := a.Store.Check(ctx); err != nil {
		detail := err.Error()
		for _, s := range a.Secrets {
			if s != "" {
				detail = strings.ReplaceAll(detail, s, "[REDACTED]")
			}
		}
		log.Error().Str("details", detail).Str("container", t.Container).Msg("storage check failed")
		return httpx.Fail(apperr.New(apperr.KindStorage, "Storage test failed").
			With("status", "error").
			With("details", detail).
			With("accountName", t.Account).
			With("containerName", t.Container))
	}

	log.Info().Str("provider", t.Provider).Str("container", t.Container).Msg("storage check ok")
	return httpx.JSON(http.StatusOK, api.StorageStatus{
		Status:          "success",
		Message:         "Storage connection working",
		Provider:        t.Provider,
		AccountName:     t.Account,
		ContainerName:   t.Container,
		ContainerExists: true,
		Timestamp:       a.now().UTC().Format(time.RFC3339),
	})
}

func (a *StorageApp) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}
