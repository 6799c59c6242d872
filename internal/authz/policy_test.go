package authz

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/appliedpolicy/project-explorer/internal/apperr"
	"github.com/appliedpolicy/project-explorer/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func TestNewPolicySelectsMode(t *testing.T) {
	base := config.Env{
		StaffGroup: "FBS_StaffAll", CommunityGroup: "FBS_Community",
		EmailDomain: "@virginia.edu", AllowedNetworks: config.DefaultNetworks,
	}
	for _, mode := range []config.AccessMode{config.ModeGroups, config.ModeEmail, config.ModeNetwork} {
		env := base
		env.AccessMode = mode
		p, err := NewPolicy(env, clock)
		require.NoError(t, err)
		assert.Equal(t, mode, p.Mode())
	}

	base.AccessMode = "hybrid"
	_, err := NewPolicy(base, clock)
	require.Error(t, err)
}

func groupPolicy() *GroupPolicy {
	return &GroupPolicy{Staff: "FBS_StaffAll", Community: "FBS_Community", Now: clock}
}

func principalRequest(body string) Request {
	return Request{Headers: map[string]string{HeaderClientPrincipal: encode(body)}}
}

func TestGroupPolicyStaff(t *testing.T) {
	d, err := groupPolicy().Evaluate(context.Background(), principalRequest(staffPrincipal))
	require.NoError(t, err)
	assert.True(t, d.Authorized)
	assert.Equal(t, ReasonStaffGroup, d.Reason)
	assert.Equal(t, "mst3k@virginia.edu", d.Subject)
	assert.Equal(t, fixedNow, d.EvaluatedAt)
}

func TestGroupPolicyCommunity(t *testing.T) {
	d, err := groupPolicy().Evaluate(context.Background(),
		principalRequest(`{"userId":"u-2","claims":[{"typ":"groups","val":["FBS_Community"]}]}`))
	require.NoError(t, err)
	assert.Equal(t, ReasonCommunityGroup, d.Reason)
	assert.Equal(t, "u-2", d.Subject)
}

func TestGroupPolicyDenied(t *testing.T) {
	d, err := groupPolicy().Evaluate(context.Background(),
		principalRequest(`{"userDetails":"a@b.c","claims":[{"typ":"groups","val":"Other"}]}`))
	require.Error(t, err)
	assert.False(t, d.Authorized)
	assert.Equal(t, ReasonDenied, d.Reason)

	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindDenied, e.Kind)
	assert.Equal(t, []string{"Other"}, e.Fields["userGroups"])
}

func TestGroupPolicyObjectClaimDenied(t *testing.T) {
	d, err := groupPolicy().Evaluate(context.Background(),
		principalRequest(`{"userDetails":"a@b.c","claims":[{"typ":"groups","val":{"note":"not-FBS_StaffAll-member"}}]}`))
	require.Error(t, err)
	assert.False(t, d.Authorized)
	assert.Equal(t, ReasonDenied, d.Reason)
	assert.Equal(t, apperr.KindDenied, apperr.KindOf(err))
}

func TestGroupPolicyMissingHeader(t *testing.T) {
	d, err := groupPolicy().Evaluate(context.Background(), Request{})
	require.Error(t, err)
	assert.False(t, d.Authorized)
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
}

func emailPolicy() *EmailPolicy {
	return &EmailPolicy{Domain: "@virginia.edu", MaxAge: VerificationMaxAge, Now: clock}
}

func emailRequest(email string, issued time.Time) Request {
	return Request{Headers: map[string]string{
		HeaderVerifiedEmail:  email,
		HeaderVerificationAt: strconv.FormatInt(issued.UnixMilli(), 10),
	}}
}

func TestEmailPolicyFresh(t *testing.T) {
	d, err := emailPolicy().Evaluate(context.Background(), emailRequest("MST3K@Virginia.EDU", fixedNow.Add(-time.Hour)))
	require.NoError(t, err)
	assert.True(t, d.Authorized)
	assert.Equal(t, ReasonVerifiedEmail, d.Reason)
	assert.Equal(t, "MST3K@Virginia.EDU", d.Subject)
}

func TestEmailPolicyWrongDomainIgnoresFreshness(t *testing.T) {
	for _, issued := range []time.Time{fixedNow, fixedNow.Add(-48 * time.Hour), fixedNow.Add(time.Hour)} {
		_, err := emailPolicy().Evaluate(context.Background(), emailRequest("user@other.edu", issued))
		require.Error(t, err)
		assert.Equal(t, apperr.KindDenied, apperr.KindOf(err))
	}
}

func TestEmailPolicyExpired(t *testing.T) {
	_, err := emailPolicy().Evaluate(context.Background(), emailRequest("mst3k@virginia.edu", fixedNow.Add(-25*time.Hour)))
	require.Error(t, err)
	e, _ := apperr.As(err)
	assert.Equal(t, apperr.KindUnauthenticated, e.Kind)
	assert.Contains(t, e.Msg, "expired")
}

func TestEmailPolicyBoundary(t *testing.T) {
	_, err := emailPolicy().Evaluate(context.Background(), emailRequest("mst3k@virginia.edu", fixedNow.Add(-24*time.Hour)))
	require.NoError(t, err)
}

func TestEmailPolicyMissingHeaders(t *testing.T) {
	cases := []Request{
		{},
		{Headers: map[string]string{HeaderVerifiedEmail: "mst3k@virginia.edu"}},
		{Headers: map[string]string{HeaderVerificationAt: "1700000000000"}},
	}
	for _, req := range cases {
		_, err := emailPolicy().Evaluate(context.Background(), req)
		assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
	}
}

func TestEmailPolicyGarbageTimestampFailsClosed(t *testing.T) {
	req := Request{Headers: map[string]string{
		HeaderVerifiedEmail:  "mst3k@virginia.edu",
		HeaderVerificationAt: "yesterday",
	}}
	d, err := emailPolicy().Evaluate(context.Background(), req)
	require.Error(t, err)
	assert.False(t, d.Authorized)
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
}
