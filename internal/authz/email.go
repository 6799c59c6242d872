package authz

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/appliedpolicy/project-explorer/internal/apperr"
	"github.com/appliedpolicy/project-explorer/internal/config"
)

// VerificationMaxAge bounds how old a verification timestamp may be.
const VerificationMaxAge = 24 * time.Hour

// EmailPolicy trusts a verified-email header pair issued within MaxAge.
//
// The timestamp is supplied by the client and signed by no one, so a caller
// can present any email at the right domain with a fresh or future time.
// Deployments selecting this mode accept that.
type EmailPolicy struct {
	Domain string // lower-case suffix including "@"
	MaxAge time.Duration
	Now    Clock
}

// Mode implements Policy.
func (p *EmailPolicy) Mode() config.AccessMode { return config.ModeEmail }

// Evaluate implements Policy. The domain is checked before freshness.
func (p *EmailPolicy) Evaluate(_ context.Context, req Request) (Decision, error) {
	now := p.Now()
	email := strings.TrimSpace(req.Header(HeaderVerifiedEmail))
	issued := strings.TrimSpace(req.Header(HeaderVerificationAt))
	if email == "" || issued == "" {
		return denied(email, now), apperr.Unauthenticated("Authentication required")
	}

	if !strings.HasSuffix(strings.ToLower(email), p.Domain) {
		return denied(email, now), apperr.Denied("Access restricted to " + p.Domain + " addresses")
	}

	millis, err := strconv.ParseInt(issued, 10, 64)
	if err != nil {
		return denied(email, now), apperr.Wrap(apperr.KindUnauthenticated,
			"Invalid verification time. Please verify your email again.", err)
	}
	if now.Sub(time.UnixMilli(millis)) > p.MaxAge {
		return denied(email, now), apperr.Unauthenticated("Verification expired. Please verify your email again.")
	}

	return Decision{Authorized: true, Reason: ReasonVerifiedEmail, Subject: email, EvaluatedAt: now}, nil
}
