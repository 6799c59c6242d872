package authz

import (
	"context"
	"fmt"
	"time"

	"github.com/appliedpolicy/project-explorer/internal/config"
)

// Reason records why a decision was reached.
type Reason string

// Possible values for Reason
const (
	ReasonStaffGroup       Reason = "StaffGroup"
	ReasonCommunityGroup   Reason = "CommunityGroup"
	ReasonVerifiedEmail    Reason = "VerifiedEmail"
	ReasonNetworkAllowlist Reason = "NetworkAllowlist"
	ReasonDenied           Reason = "Denied"
)

// Decision is the outcome of evaluating one request.
type Decision struct {
	Authorized  bool
	Reason      Reason
	Subject     string
	EvaluatedAt time.Time
}

// Policy decides whether a request may download files. Implementations
// return a denied Decision together with an *apperr.Error on failure.
type Policy interface {
	Mode() config.AccessMode
	Evaluate(ctx context.Context, req Request) (Decision, error)
}

// Clock returns the current time.
type Clock func() time.Time

// NewPolicy returns the single policy selected by env.AccessMode.
func NewPolicy(env config.Env, now Clock) (Policy, error) {
	if now == nil {
		now = time.Now
	}
	switch env.AccessMode {
	case config.ModeGroups:
		return &GroupPolicy{Staff: env.StaffGroup, Community: env.CommunityGroup, Now: now}, nil
	case config.ModeEmail:
		return &EmailPolicy{Domain: env.EmailDomain, MaxAge: VerificationMaxAge, Now: now}, nil
	case config.ModeNetwork:
		return &NetworkPolicy{Networks: env.AllowedNetworks, Now: now}, nil
	default:
		return nil, fmt.Errorf("authz: unknown access mode %q", env.AccessMode)
	}
}

func denied(subject string, at time.Time) Decision {
	return Decision{Reason: ReasonDenied, Subject: subject, EvaluatedAt: at}
}
