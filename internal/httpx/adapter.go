package httpx

import (
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/appliedpolicy/project-explorer/internal/apperr"
	"github.com/appliedpolicy/project-explorer/internal/logger"

	"github.com/aws/aws-lambda-go/events"
)

// maxBody bounds the request body read by the adapter.
const maxBody = 1 << 20

// Adapt serves h over net/http. It is used by the Azure Functions custom
// handler and local development; Lambda invokes h directly.
func Adapt(h Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := ToEvent(r)
		if err != nil {
			if _, ok := apperr.As(err); !ok {
				err = apperr.Wrap(apperr.KindBadRequest, "Unreadable request body", err)
			}
			resp, _ := Fail(err)
			Write(w, resp)
			return
		}
		resp, err := h(r.Context(), req)
		if err != nil {
			logger.C(r.Context(), nil).Error().Err(err).Str("path", r.URL.Path).Msg("handler error")
			resp, _ = Fail(err)
		}
		Write(w, resp)
	}
}

// ToEvent converts an HTTP request into the API Gateway v2 event shape.
// Header names are lower-cased and multi-valued headers are comma-joined.
// Bodies over maxBody fail with a bad request error.
func ToEvent(r *http.Request) (events.APIGatewayV2HTTPRequest, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
	if err != nil {
		return events.APIGatewayV2HTTPRequest{}, err
	}
	if len(body) > maxBody {
		return events.APIGatewayV2HTTPRequest{}, apperr.New(apperr.KindBadRequest, "Request body too large")
	}

	headers := make(map[string]string, len(r.Header))
	for k, vs := range r.Header {
		headers[strings.ToLower(k)] = strings.Join(vs, ",")
	}
	query := make(map[string]string)
	for k, vs := range r.URL.Query() {
		if len(vs) > 0 {
			query[k] = vs[0]
		}
	}

	sourceIP := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		sourceIP = host
	}

	return events.APIGatewayV2HTTPRequest{
		RawPath:               r.URL.Path,
		RawQueryString:        r.URL.RawQuery,
		Headers:               headers,
		QueryStringParameters: query,
		Body:                  string(body),
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			RequestID: logger.RequestID(r.Context()),
			TimeEpoch: time.Now().UnixMilli(),
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{
				Method:    r.Method,
				Path:      r.URL.Path,
				Protocol:  r.Proto,
				SourceIP:  sourceIP,
				UserAgent: r.UserAgent(),
			},
		},
	}, nil
}

// Write copies an event response onto w.
func Write(w http.ResponseWriter, resp events.APIGatewayV2HTTPResponse) {
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if resp.Body != "" {
		_, _ = io.WriteString(w, resp.Body)
	}
}
