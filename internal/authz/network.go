package authz

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/appliedpolicy/project-explorer/internal/apperr"
	"github.com/appliedpolicy/project-explorer/internal/config"
)

// NetworkPolicy authorizes callers whose address falls in an allowed block.
//
// The address comes from x-forwarded-for or x-real-ip when present, and
// those headers are whatever the caller sent unless a proxy in front of the
// function overwrites them. A client can claim 127.0.0.1 or an allowed
// address and be authorized. Deploy this mode only behind a proxy that sets
// the forwarded headers itself and strips any supplied by the client.
type NetworkPolicy struct {
	Networks []string
	Now      Clock
}

// Mode implements Policy.
func (p *NetworkPolicy) Mode() config.AccessMode { return config.ModeNetwork }

// Evaluate implements Policy. Malformed input of any kind denies.
func (p *NetworkPolicy) Evaluate(_ context.Context, req Request) (d Decision, err error) {
	now := p.Now()
	ip := ClientIP(req)
	defer func() {
		if r := recover(); r != nil {
			d = denied(ip, now)
			err = p.deny(ip, fmt.Errorf("panic: %v", r))
		}
	}()

	if IsLoopback(ip) || p.Allowed(ip) {
		return Decision{Authorized: true, Reason: ReasonNetworkAllowlist, Subject: ip, EvaluatedAt: now}, nil
	}
	return denied(ip, now), p.deny(ip, nil)
}

// Allowed reports whether ip lies in any configured block.
func (p *NetworkPolicy) Allowed(ip string) bool {
	for _, cidr := range p.Networks {
		if InRange(ip, cidr) {
			return true
		}
	}
	return false
}

func (p *NetworkPolicy) deny(ip string, cause error) error {
	e := apperr.Denied("Access restricted to the institutional network").
		With("clientIP", ip).
		With("allowedNetworks", p.Networks)
	e.Err = cause
	return e
}

// ClientIP picks the caller address: the first x-forwarded-for entry, then
// x-real-ip, then the platform source address.
func ClientIP(req Request) string {
	if xff := req.Header(HeaderForwardedFor); strings.TrimSpace(xff) != "" {
		first, _, _ := strings.Cut(xff, ",")
		return stripPort(strings.TrimSpace(first))
	}
	if xri := strings.TrimSpace(req.Header(HeaderRealIP)); xri != "" {
		return stripPort(xri)
	}
	return stripPort(strings.TrimSpace(req.SourceIP))
}

// stripPort removes a trailing ":port". Bracketed IPv6 ("[::1]:443") yields
// the bracket contents; bare IPv6 is returned unchanged.
func stripPort(s string) string {
	if strings.HasPrefix(s, "[") {
		if end := strings.Index(s, "]"); end > 0 {
			return s[1:end]
		}
		return s
	}
	if strings.Count(s, ":") == 1 {
		host, _, _ := strings.Cut(s, ":")
		return host
	}
	return s
}

// IsLoopback reports whether ip is a loopback address. Loopback callers are
// always allowed so local development works without a forwarded header.
func IsLoopback(ip string) bool {
	switch ip {
	case "localhost", "::1":
		return true
	}
	v, ok := ParseIPv4(ip)
	return ok && v>>24 == 127
}

// ParseIPv4 parses a dotted-quad address with decimal octets 0-255.
func ParseIPv4(ip string) (uint32, bool) {
	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return 0, false
	}
	var v uint32
	for _, part := range parts {
		if len(part) == 0 || len(part) > 3 {
			return 0, false
		}
		for _, c := range part {
			if c < '0' || c > '9' {
				return 0, false
			}
		}
		n, err := strconv.Atoi(part)
		if err != nil || n > 255 {
			return 0, false
		}
		v = v<<8 | uint32(n)
	}
	return v, true
}

// InRange reports whether ip lies inside cidr. Any malformed argument, or a
// prefix length outside 0-32, yields false.
func InRange(ip, cidr string) bool {
	addr, ok := ParseIPv4(ip)
	if !ok {
		return false
	}
	network, bitsStr, found := strings.Cut(cidr, "/")
	if !found {
		return false
	}
	netAddr, ok := ParseIPv4(network)
	if !ok {
		return false
	}
	bits, err := strconv.Atoi(bitsStr)
	if err != nil || bits < 0 || bits > 32 {
		return false
	}
	var mask uint32
	if bits > 0 {
		mask = ^uint32(0) << (32 - bits)
	}
	return addr&mask == netAddr&mask
}
