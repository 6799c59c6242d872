package blobstore

import (
	"context"
	"strings"
	"time"

	"github.com/appliedpolicy/project-explorer/internal/apperr"
	"github.com/appliedpolicy/project-explorer/internal/audit"
	"github.com/appliedpolicy/project-explorer/internal/authz"
	"github.com/appliedpolicy/project-explorer/internal/config"
	"github.com/appliedpolicy/project-explorer/internal/ddb"
	"github.com/appliedpolicy/project-explorer/internal/logger"
	"github.com/appliedpolicy/project-explorer/internal/metrics"
	"github.com/appliedpolicy/project-explorer/internal/models"

	"github.com/oklog/ulid/v2"
)

// PermissionRead is the only permission an issued URL carries.
const PermissionRead = "r"

// Target names the storage location a backend serves. It holds no secrets.
type Target struct {
	Provider  string
	Account   string
	Container string
}

// SignRequest describes one read-only signature.
type SignRequest struct {
	Key     ObjectKey
	Start   time.Time
	Expiry  time.Time
	GrantID string
}

// Backend is the storage the issuer talks to.
type Backend interface {
	// Exists reports whether key is present in the container.
	Exists(ctx context.Context, key ObjectKey) (bool, error)
	// Sign returns the object URL with a read-only signature appended.
	Sign(ctx context.Context, req SignRequest) (string, error)
	Target() Target
}

// Store is a Backend that can also report whether its container is
// reachable with the configured credentials.
type Store interface {
	Backend
	Check(ctx context.Context) error
}

// Grant is an issued download URL.
type Grant struct {
	URL              string
	ExpiresInSeconds int
	ExpiresAt        time.Time
	Permissions      string
	GrantID          string
	Key              ObjectKey
}

// Issuer confirms an object exists and signs a URL for it.
type Issuer struct {
	backend  Backend
	recorder audit.Recorder
	metrics  *metrics.Metrics
	log      *logger.Logger
	mode     config.AccessMode
	ttl      time.Duration
	secrets  []string
	now      func() time.Time
	newID    func() string
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithRecorder sets the audit recorder.
func WithRecorder(r audit.Recorder) Option { return func(i *Issuer) { i.recorder = r } }

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option { return func(i *Issuer) { i.metrics = m } }

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option { return func(i *Issuer) { i.log = l } }

// WithMode tags audit records with the active access mode.
func WithMode(m config.AccessMode) Option { return func(i *Issuer) { i.mode = m } }

// WithRedactedSecrets removes each secret from error details.
func WithRedactedSecrets(secrets ...string) Option {
	return func(i *Issuer) {
		for _, s := range secrets {
			if s != "" {
				i.secrets = append(i.secrets, s)
			}
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option { return func(i *Issuer) { i.now = now } }

// NewIssuer builds an Issuer for backend.
func NewIssuer(backend Backend, opts ...Option) *Issuer {
	i := &Issuer{
		backend: backend,
		ttl:     config.SignedURLTTL,
		now:     time.Now,
		newID:   func() string { return ulid.Make().String() },
	}
	for _, o := range opts {
		o(i)
	}
	if i.log == nil {
		i.log = logger.Named("issuer")
	}
	if i.recorder == nil {
		i.recorder = audit.LogRecorder{Log: i.log}
	}
	return i
}

// Issue confirms key exists, then signs a read-only URL valid for one hour.
// The signer is never called for absent objects.
func (i *Issuer) Issue(ctx context.Context, key ObjectKey, d authz.Decision) (Grant, error) {
	began := time.Now()
	defer func() { i.metrics.ObserveIssue(time.Since(began)) }()
	log := logger.C(ctx, i.log)

	exists, err := i.backend.Exists(ctx, key)
	if err != nil {
		i.metrics.IncGrant("storage_error")
		log.Error().Err(err).Str("object_key", string(key)).Msg("existence check failed")
		return Grant{}, i.storageError("Container access failed", err)
	}
	if !exists {
		i.metrics.IncGrant("not_found")
		log.Info().Str("object_key", string(key)).Str("subject", d.Subject).Msg("object not found")
		return Grant{}, apperr.New(apperr.KindNotFound, "File not found").With("filePath", string(key))
	}

	start := i.now()
	req := SignRequest{Key: key, Start: start, Expiry: start.Add(i.ttl), GrantID: i.newID()}
	url, err := i.backend.Sign(ctx, req)
	if err != nil {
		i.metrics.IncGrant("storage_error")
		log.Error().Err(err).Str("object_key", string(key)).Msg("sign failed")
		return Grant{}, i.storageError("Failed to sign download URL", err)
	}
	i.metrics.IncGrant("granted")

	i.record(ctx, req, d)

	return Grant{
		URL:              url,
		ExpiresInSeconds: int(i.ttl.Seconds()),
		ExpiresAt:        req.Expiry,
		Permissions:      PermissionRead,
		GrantID:          req.GrantID,
		Key:              key,
	}, nil
}

// record writes the audit entry. Failures are logged and dropped.
func (i *Issuer) record(ctx context.Context, req SignRequest, d authz.Decision) {
	rec := models.DownloadRecord{
		GrantID:   req.GrantID,
		ObjectKey: string(req.Key),
		Subject:   d.Subject,
		Reason:    string(d.Reason),
		Mode:      string(i.mode),
		Container: i.backend.Target().Container,
		IssuedAt:  ddb.ISO(req.Start),
		ExpiresAt: ddb.ISO(req.Expiry),
		RequestID: logger.RequestID(ctx),
	}
	if err := i.recorder.Record(ctx, rec); err != nil {
		logger.C(ctx, i.log).Warn().Err(err).Str("grant_id", rec.GrantID).Msg("audit record failed")
	}
}

func (i *Issuer) storageError(msg string, err error) error {
	t := i.backend.Target()
	detail := err.Error()
	for _, s := range i.secrets {
		detail = strings.ReplaceAll(detail, s, "[REDACTED]")
	}
	return apperr.New(apperr.KindStorage, msg).
		With("details", detail).
		With("accountName", t.Account).
		With("containerName", t.Container)
}
