// Package diag answers network diagnostic requests: how the caller's address
// was derived and which allow-list blocks it falls in.
package diag

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/appliedpolicy/project-explorer/internal/api"
	"github.com/appliedpolicy/project-explorer/internal/authz"
	"github.com/appliedpolicy/project-explorer/internal/httpx"
	"github.com/appliedpolicy/project-explorer/internal/logger"

	"github.com/aws/aws-lambda-go/events"
)

// App reports address diagnostics against a fixed set of networks.
type App struct {
	Networks []string
	Log      *logger.Logger
	Now      func() time.Time
}

// Handle processes one request.
func (a *App) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	if httpx.Method(req) == http.MethodOptions {
		return httpx.Preflight()
	}
	ctx = logger.WithRequest(ctx, req.RequestContext.RequestID)

	out := a.Report(authz.Request{Headers: req.Headers, SourceIP: req.RequestContext.HTTP.SourceIP})
	logger.C(ctx, a.Log).Info().
		Str("selected_ip", out.SelectedIP).
		Strs("client_ips", out.ClientIPs).
		Msg("ip diagnostics")
	return httpx.JSON(http.StatusOK, out)
}

// Report builds the diagnostic body for req.
func (a *App) Report(req authz.Request) api.DebugIPResponse {
	xff := req.Header(authz.HeaderForwardedFor)
	out := api.DebugIPResponse{
		Timestamp:    a.now().UTC().Format(time.RFC3339),
		ForwardedFor: xff,
		RealIP:       req.Header(authz.HeaderRealIP),
		SourceIP:     req.SourceIP,
		ClientIPs:    []string{},
		SelectedIP:   authz.ClientIP(req),
		Networks:     a.Networks,
		Tests:        map[string]api.NetworkTest{},
	}
	if out.SelectedIP == "" {
		out.SelectedIP = "unknown"
	}
	out.Loopback = authz.IsLoopback(out.SelectedIP)

	if strings.TrimSpace(xff) != "" {
		for _, ip := range strings.Split(xff, ",") {
			out.ClientIPs = append(out.ClientIPs, strings.TrimSpace(ip))
		}
	}

	for _, ip := range append([]string{out.SelectedIP}, out.ClientIPs...) {
		if _, ok := authz.ParseIPv4(ip); !ok {
			continue
		}
		if _, seen := out.Tests[ip]; seen {
			continue
		}
		test := api.NetworkTest{IsValid: true, Ranges: map[string]bool{}}
		for _, cidr := range a.Networks {
			in := authz.InRange(ip, cidr)
			test.Ranges[cidr] = in
			test.InNetwork = test.InNetwork || in
		}
		out.Tests[ip] = test
	}
	return out
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}
