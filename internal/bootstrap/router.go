package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/appliedpolicy/project-explorer/internal/apperr"
	"github.com/appliedpolicy/project-explorer/internal/httpx"
	"github.com/appliedpolicy/project-explorer/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Route paths, matching the function names the front end calls.
const (
	PathDownload    = "/api/secure-download"
	PathRoles       = "/api/getRoles"
	PathDebugIP     = "/api/debug-ip"
	PathTestStorage = "/api/test-storage"
	PathMetrics     = "/metrics"
)

// RequestTimeout bounds each request's context.
const RequestTimeout = 30 * time.Second

// Router mounts every endpoint on a chi router for the Azure Functions
// custom handler and local development. gatherer backs /metrics.
func (d *Deps) Router(gatherer prometheus.Gatherer) (http.Handler, error) {
	dl, err := d.Download()
	if err != nil {
		return nil, err
	}
	check, err := d.StorageCheck()
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(recoverer)
	r.Use(deadline(RequestTimeout))

	r.HandleFunc(PathDownload, httpx.Adapt(dl.Handle))
	r.HandleFunc(PathRoles, httpx.Adapt(d.Roles().Handle))
	r.HandleFunc(PathDebugIP, httpx.Adapt(d.Diag().Handle))
	r.HandleFunc(PathTestStorage, httpx.Adapt(check.Handle))
	r.Method(http.MethodGet, PathMetrics, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r, nil
}

// requestLogger carries chi's request id into the logger context and logs
// each request on completion.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logger.WithRequest(r.Context(), middleware.GetReqID(r.Context()))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r.WithContext(ctx))

		logger.C(ctx, logger.Named("http")).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// deadline cancels the request context after d. Handlers observe the
// cancellation through their storage calls and answer with their own JSON
// error, so no bare timeout response is written here.
func deadline(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// recoverer turns a panic into the JSON 500 every endpoint returns.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.C(r.Context(), logger.Named("http")).Error().
					Str("panic", fmt.Sprint(rec)).
					Str("path", r.URL.Path).
					Msg("handler panic")
				resp, _ := httpx.Fail(apperr.New(apperr.KindUnexpected, "Internal server error"))
				httpx.Write(w, resp)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
