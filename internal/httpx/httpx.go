// Package httpx provides helper functions for creating HTTP responses.
package httpx

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/appliedpolicy/project-explorer/internal/apperr"

	"github.com/aws/aws-lambda-go/events"
)

// Handler is the function shape every endpoint implements.
type Handler func(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error)

// AllowedHeaders lists the request headers browsers may send cross-origin.
var AllowedHeaders = []string{
	"Content-Type",
	"x-ms-client-principal",
	"x-verified-email",
	"x-verification-time",
}

// CORSHeaders returns the permissive CORS headers attached to every response.
func CORSHeaders() map[string]string {
	return map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": "GET,POST,OPTIONS",
		"Access-Control-Allow-Headers": strings.Join(AllowedHeaders, ","),
	}
}

// JSON creates a JSON HTTP response with the given status code and value.
func JSON(status int, v any) (events.APIGatewayV2HTTPResponse, error) {
	b, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		b = []byte(`{"error":"Internal server error"}`)
	}
	h := CORSHeaders()
	h["Content-Type"] = "application/json"
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    h,
		Body:       string(b),
	}, nil
}

// Error creates a JSON HTTP error response with the given status code and message.
func Error(status int, msg string) (events.APIGatewayV2HTTPResponse, error) {
	return JSON(status, map[string]string{"error": msg})
}

// Fail serializes a classified error. Unclassified errors become a generic 500.
func Fail(err error) (events.APIGatewayV2HTTPResponse, error) {
	e := apperr.From(err)
	return JSON(e.Kind.Status(), e.Body())
}

// Preflight answers a CORS preflight: 200, CORS headers, no body.
func Preflight() (events.APIGatewayV2HTTPResponse, error) {
	h := CORSHeaders()
	h["Content-Type"] = "application/json"
	return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusOK, Headers: h}, nil
}

// Method returns the upper-case request method.
func Method(req events.APIGatewayV2HTTPRequest) string {
	return strings.ToUpper(req.RequestContext.HTTP.Method)
}

// Body returns the request body, decoding it when the platform base64-encoded it.
func Body(req events.APIGatewayV2HTTPRequest) (string, error) {
	if !req.IsBase64Encoded {
		return req.Body, nil
	}
	b, err := base64.StdEncoding.DecodeString(req.Body)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
