package authz

import (
	"context"
	"fmt"
	"time"

	"github.com/appliedpolicy/project-explorer/internal/apperr"
	"github.com/appliedpolicy/project-explorer/internal/config"
	"github.com/appliedpolicy/project-explorer/internal/logger"
)

// GroupPolicy authorizes members of the staff or community group.
type GroupPolicy struct {
	Staff     string
	Community string
	Now       Clock
}

// Mode implements Policy.
func (p *GroupPolicy) Mode() config.AccessMode { return config.ModeGroups }

// Evaluate implements Policy.
func (p *GroupPolicy) Evaluate(ctx context.Context, req Request) (Decision, error) {
	now := p.Now()
	principal, err := ExtractPrincipal(req.Header(HeaderClientPrincipal))
	if err != nil {
		return denied("", now), err
	}
	logger.C(ctx, logger.Named("authz")).Debug().
		Str("user_id", principal.UserID).
		Str("user", principal.DisplayName).
		Str("provider", principal.IdentityProvider).
		Strs("groups", principal.GroupList()).
		Msg("principal decoded")

	return p.Decide(principal, now)
}

// Decide applies the group rule to an already decoded principal.
func (p *GroupPolicy) Decide(principal Principal, at time.Time) (Decision, error) {
	subject := principal.Subject()
	d := Decision{Authorized: true, Subject: subject, EvaluatedAt: at}
	switch {
	case principal.MemberOf(p.Staff):
		d.Reason = ReasonStaffGroup
		return d, nil
	case principal.MemberOf(p.Community):
		d.Reason = ReasonCommunityGroup
		return d, nil
	}
	msg := fmt.Sprintf("Access denied. You must be a member of %s or %s groups to download files.", p.Staff, p.Community)
	return denied(subject, at), apperr.Denied(msg).
		With("userEmail", subject).
		With("userGroups", principal.GroupList())
}
