// Package download implements the signed-URL download endpoint: authorize
// the caller, resolve the requested object, issue a one-hour read URL.
package download

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/appliedpolicy/project-explorer/internal/api"
	"github.com/appliedpolicy/project-explorer/internal/apperr"
	"github.com/appliedpolicy/project-explorer/internal/authz"
	"github.com/appliedpolicy/project-explorer/internal/blobstore"
	"github.com/appliedpolicy/project-explorer/internal/httpx"
	"github.com/appliedpolicy/project-explorer/internal/logger"
	"github.com/appliedpolicy/project-explorer/internal/metrics"

	"github.com/aws/aws-lambda-go/events"
)

// Issuer mints signed URLs for resolved keys.
type Issuer interface {
	Issue(ctx context.Context, key blobstore.ObjectKey, d authz.Decision) (blobstore.Grant, error)
}

// App holds the endpoint's collaborators. All fields are read-only after
// construction, so one App serves concurrent requests.
type App struct {
	Policy        authz.Policy
	Issuer        Issuer
	Metrics       *metrics.Metrics
	Log           *logger.Logger
	DiagnosticGET bool
	Now           func() time.Time
}

// Handle processes one request.
func (a *App) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (resp events.APIGatewayV2HTTPResponse, err error) {
	ctx = logger.WithRequest(ctx, req.RequestContext.RequestID)
	log := logger.C(ctx, a.Log)
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("panic", fmt.Sprint(r)).Msg("download handler panic")
			resp, err = httpx.Fail(apperr.New(apperr.KindUnexpected, "Internal server error"))
		}
	}()

	method := httpx.Method(req)
	log.Debug().Str("method", method).Msg("secure download request received")

	switch method {
	case http.MethodOptions:
		return httpx.Preflight()
	case http.MethodGet:
		if a.DiagnosticGET {
			return httpx.JSON(http.StatusOK, api.StatusResponse{
				Message:   "Secure download API is working",
				Method:    method,
				Timestamp: a.now().UTC().Format(time.RFC3339),
			})
		}
	case http.MethodPost:
	default:
		return httpx.Fail(apperr.New(apperr.KindMethodNotAllowed, "Method not allowed"))
	}

	decision, err := a.authorize(ctx, req)
	if err != nil {
		return httpx.Fail(err)
	}

	raw, err := fileParam(req)
	if err != nil {
		return httpx.Fail(err)
	}
	key, err := blobstore.Resolve(raw)
	if err != nil {
		log.Warn().Str("file", raw).Str("subject", decision.Subject).Msg("rejected file path")
		return httpx.Fail(err)
	}

	grant, err := a.Issuer.Issue(ctx, key, decision)
	if err != nil {
		return httpx.Fail(err)
	}

	log.Info().
		Str("object_key", string(key)).
		Str("subject", decision.Subject).
		Str("grant_id", grant.GrantID).
		Msg("download url issued")

	return httpx.JSON(http.StatusOK, api.DownloadResponse{
		DownloadURL: grant.URL,
		ExpiresIn:   grant.ExpiresInSeconds,
		Filename:    string(key),
		Subject:     decision.Subject,
	})
}

// authorize runs the configured policy and logs the decision.
func (a *App) authorize(ctx context.Context, req events.APIGatewayV2HTTPRequest) (authz.Decision, error) {
	d, err := a.Policy.Evaluate(ctx, authz.Request{
		Headers:  req.Headers,
		SourceIP: req.RequestContext.HTTP.SourceIP,
	})
	if err == nil && !d.Authorized {
		err = apperr.Denied("Access denied")
	}
	mode := string(a.Policy.Mode())
	a.Metrics.IncDecision(mode, string(d.Reason))

	ev := logger.C(ctx, a.Log).Info()
	if err != nil {
		ev = logger.C(ctx, a.Log).Warn().Str("kind", apperr.KindOf(err).String())
	}
	ev.Str("mode", mode).
		Str("subject", d.Subject).
		Str("reason", string(d.Reason)).
		Bool("authorized", err == nil).
		Msg("access decision")
	return d, err
}

// fileParam reads "file" from the JSON body, falling back to the query string.
func fileParam(req events.APIGatewayV2HTTPRequest) (string, error) {
	query := req.QueryStringParameters["file"]

	body, err := httpx.Body(req)
	if err != nil {
		return "", apperr.Wrap(apperr.KindBadRequest, "Invalid request body", err)
	}
	if strings.TrimSpace(body) == "" {
		return query, nil
	}

	var in api.DownloadRequest
	if err := json.Unmarshal([]byte(body), &in); err != nil {
		if query != "" {
			return query, nil
		}
		return "", apperr.Wrap(apperr.KindBadRequest, "Invalid JSON body", err)
	}
	if in.File != "" {
		return in.File, nil
	}
	return query, nil
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}
