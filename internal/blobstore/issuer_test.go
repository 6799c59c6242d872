package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/appliedpolicy/project-explorer/internal/apperr"
	"github.com/appliedpolicy/project-explorer/internal/authz"
	"github.com/appliedpolicy/project-explorer/internal/config"
	"github.com/appliedpolicy/project-explorer/internal/logger"
	"github.com/appliedpolicy/project-explorer/internal/metrics"
	"github.com/appliedpolicy/project-explorer/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend signs by hashing the request fields into a query string.
type fakeBackend struct {
	objects   map[ObjectKey]bool
	existsErr error
	signErr   error
	signCalls int
	signed    []SignRequest
}

func (f *fakeBackend) Exists(_ context.Context, key ObjectKey) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.objects[key], nil
}

func (f *fakeBackend) Sign(_ context.Context, req SignRequest) (string, error) {
	f.signCalls++
	f.signed = append(f.signed, req)
	if f.signErr != nil {
		return "", f.signErr
	}
	q := url.Values{}
	q.Set("sp", "r")
	q.Set("st", req.Start.UTC().Format(time.RFC3339))
	q.Set("se", req.Expiry.UTC().Format(time.RFC3339))
	q.Set("sig", fmt.Sprintf("%x", req.GrantID+string(req.Key)))
	return "https://acct.blob.core.windows.net/project-files/" + string(req.Key) + "?" + q.Encode(), nil
}

func (f *fakeBackend) Target() Target {
	return Target{Provider: "fake", Account: "acct", Container: "project-files"}
}

type captureRecorder struct {
	recs []models.DownloadRecord
	err  error
}

func (c *captureRecorder) Record(_ context.Context, rec models.DownloadRecord) error {
	c.recs = append(c.recs, rec)
	return c.err
}

var issueNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func staffDecision() authz.Decision {
	return authz.Decision{Authorized: true, Reason: authz.ReasonStaffGroup, Subject: "mst3k@virginia.edu", EvaluatedAt: issueNow}
}

func newTestIssuer(b Backend, rec *captureRecorder, extra ...Option) *Issuer {
	l := logger.New(logger.Options{Writer: &bytes.Buffer{}})
	opts := []Option{
		WithClock(func() time.Time { return issueNow }),
		WithRecorder(rec),
		WithLogger(&l),
		WithMode(config.ModeGroups),
	}
	return NewIssuer(b, append(opts, extra...)...)
}

func TestIssueExisting(t *testing.T) {
	b := &fakeBackend{objects: map[ObjectKey]bool{"projects/report.pdf": true}}
	rec := &captureRecorder{}
	g, err := newTestIssuer(b, rec).Issue(context.Background(), "projects/report.pdf", staffDecision())
	require.NoError(t, err)

	assert.Contains(t, g.URL, "projects/report.pdf?")
	assert.Contains(t, g.URL, "sig=")
	assert.Equal(t, 3600, g.ExpiresInSeconds)
	assert.Equal(t, PermissionRead, g.Permissions)
	assert.Equal(t, issueNow.Add(time.Hour), g.ExpiresAt)
	assert.NotEmpty(t, g.GrantID)

	require.Len(t, b.signed, 1)
	assert.Equal(t, issueNow, b.signed[0].Start)
	assert.Equal(t, time.Hour, b.signed[0].Expiry.Sub(b.signed[0].Start))

	require.Len(t, rec.recs, 1)
	r := rec.recs[0]
	assert.Equal(t, g.GrantID, r.GrantID)
	assert.Equal(t, "projects/report.pdf", r.ObjectKey)
	assert.Equal(t, "mst3k@virginia.edu", r.Subject)
	assert.Equal(t, "StaffGroup", r.Reason)
	assert.Equal(t, "groups", r.Mode)
	assert.Equal(t, "project-files", r.Container)
	assert.Equal(t, "2025-03-14T13:00:00Z", r.ExpiresAt)
}

func TestIssueMissingNeverSigns(t *testing.T) {
	b := &fakeBackend{objects: map[ObjectKey]bool{}}
	rec := &captureRecorder{}
	_, err := newTestIssuer(b, rec).Issue(context.Background(), "projects/missing.pdf", staffDecision())

	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindNotFound, e.Kind)
	assert.Equal(t, 404, e.Kind.Status())
	assert.Equal(t, "projects/missing.pdf", e.Fields["filePath"])
	assert.Zero(t, b.signCalls)
	assert.Empty(t, rec.recs)
}

func TestIssueStorageErrorRedactsKey(t *testing.T) {
	const key = "c2VjcmV0LWFjY291bnQta2V5"
	b := &fakeBackend{existsErr: errors.New("auth failed for key " + key)}
	_, err := newTestIssuer(b, &captureRecorder{}, WithRedactedSecrets(key, "")).
		Issue(context.Background(), "projects/report.pdf", staffDecision())

	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindStorage, e.Kind)
	assert.Equal(t, "acct", e.Fields["accountName"])
	assert.Equal(t, "project-files", e.Fields["containerName"])
	assert.NotContains(t, e.Fields["details"], key)
	assert.Contains(t, e.Fields["details"], "[REDACTED]")
	assert.NotContains(t, err.Error(), key)
	assert.Zero(t, b.signCalls)
}

func TestIssueSignError(t *testing.T) {
	b := &fakeBackend{objects: map[ObjectKey]bool{"a.pdf": true}, signErr: errors.New("clock skew")}
	_, err := newTestIssuer(b, &captureRecorder{}).Issue(context.Background(), "a.pdf", staffDecision())
	assert.Equal(t, apperr.KindStorage, apperr.KindOf(err))
}

func TestIssueAuditFailureIsNotFatal(t *testing.T) {
	b := &fakeBackend{objects: map[ObjectKey]bool{"a.pdf": true}}
	rec := &captureRecorder{err: errors.New("ddb down")}
	g, err := newTestIssuer(b, rec).Issue(context.Background(), "a.pdf", staffDecision())
	require.NoError(t, err)
	assert.NotEmpty(t, g.URL)
	assert.Len(t, rec.recs, 1)
}

func TestIssueTwiceSameSecondDiffers(t *testing.T) {
	b := &fakeBackend{objects: map[ObjectKey]bool{"projects/report.pdf": true}}
	iss := newTestIssuer(b, &captureRecorder{})

	g1, err := iss.Issue(context.Background(), "projects/report.pdf", staffDecision())
	require.NoError(t, err)
	g2, err := iss.Issue(context.Background(), "projects/report.pdf", staffDecision())
	require.NoError(t, err)

	assert.NotEqual(t, g1.URL, g2.URL)
	assert.NotEqual(t, g1.GrantID, g2.GrantID)
	assert.Equal(t, strings.Split(g1.URL, "?")[0], strings.Split(g2.URL, "?")[0])
}

func TestIssueMetrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	b := &fakeBackend{objects: map[ObjectKey]bool{"a.pdf": true}}
	iss := newTestIssuer(b, &captureRecorder{}, WithMetrics(m))

	_, _ = iss.Issue(context.Background(), "a.pdf", staffDecision())
	_, _ = iss.Issue(context.Background(), "b.pdf", staffDecision())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Grants.WithLabelValues("granted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Grants.WithLabelValues("not_found")))
}
