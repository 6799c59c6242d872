// Package authz extracts the caller's identity and decides whether the caller
// may download files.
package authz

import (
	"strings"
)

// Header names read by the policies.
const (
	HeaderClientPrincipal = "x-ms-client-principal"
	HeaderVerifiedEmail   = "x-verified-email"
	HeaderVerificationAt  = "x-verification-time"
	HeaderForwardedFor    = "x-forwarded-for"
	HeaderRealIP          = "x-real-ip"
)

// Request is the transport-neutral view of an incoming call that the
// policies evaluate.
type Request struct {
	Headers  map[string]string
	SourceIP string // peer address reported by the platform, if any
}

// Header returns a header value in a case-insensitive manner.
func (r Request) Header(key string) string {
	return HeaderLookup(r.Headers, key)
}

// HeaderLookup returns the value of a header key from a map.
func HeaderLookup(h map[string]string, key string) string {
	if len(h) == 0 {
		return ""
	}
	if v, ok := h[key]; ok {
		return v
	}
	lk := strings.ToLower(key)
	for k, v := range h {
		if strings.ToLower(k) == lk {
			return v
		}
	}
	return ""
}
