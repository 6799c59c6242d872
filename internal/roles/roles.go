// Package roles reports the caller's directory groups and whether they grant
// download access.
package roles

import (
	"context"
	"net/http"
	"time"

	"github.com/appliedpolicy/project-explorer/internal/api"
	"github.com/appliedpolicy/project-explorer/internal/authz"
	"github.com/appliedpolicy/project-explorer/internal/httpx"
	"github.com/appliedpolicy/project-explorer/internal/logger"

	"github.com/aws/aws-lambda-go/events"
)

// Access levels reported to the client.
const (
	AccessAuthorized = "authorized"
	AccessNone       = "none"
)

// App answers roles requests using the same group rule as downloads.
type App struct {
	Policy *authz.GroupPolicy
	Log    *logger.Logger
}

// Handle processes one request.
func (a *App) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	if httpx.Method(req) == http.MethodOptions {
		return httpx.Preflight()
	}
	ctx = logger.WithRequest(ctx, req.RequestContext.RequestID)
	log := logger.C(ctx, a.Log)

	p, err := authz.ExtractPrincipal(authz.HeaderLookup(req.Headers, authz.HeaderClientPrincipal))
	if err != nil {
		return httpx.Fail(err)
	}

	now := a.Policy.Now()
	d, _ := a.Policy.Decide(p, now)

	var granted []string
	for _, g := range []string{a.Policy.Staff, a.Policy.Community} {
		if p.MemberOf(g) {
			granted = append(granted, g)
		}
	}
	level := AccessNone
	if d.Authorized {
		level = AccessAuthorized
	}

	log.Info().
		Str("subject", p.Subject()).
		Strs("groups", p.GroupList()).
		Str("access_level", level).
		Msg("roles resolved")

	return httpx.JSON(http.StatusOK, api.RolesResponse{
		User: api.User{
			ID:       p.UserID,
			Name:     p.DisplayName,
			Provider: p.IdentityProvider,
		},
		Groups:            p.GroupList(),
		Roles:             nonNil(granted),
		AccessLevel:       level,
		HasDownloadAccess: d.Authorized,
		Timestamp:         now.UTC().Format(time.RFC3339),
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
