// Package bootstrap builds the handlers shared by the Lambda entry points and
// the function server from a loaded Env.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/appliedpolicy/project-explorer/internal/audit"
	"github.com/appliedpolicy/project-explorer/internal/authz"
	"github.com/appliedpolicy/project-explorer/internal/awsutil"
	"github.com/appliedpolicy/project-explorer/internal/blobstore"
	"github.com/appliedpolicy/project-explorer/internal/config"
	"github.com/appliedpolicy/project-explorer/internal/ddb"
	"github.com/appliedpolicy/project-explorer/internal/diag"
	"github.com/appliedpolicy/project-explorer/internal/download"
	"github.com/appliedpolicy/project-explorer/internal/logger"
	"github.com/appliedpolicy/project-explorer/internal/metrics"
	"github.com/appliedpolicy/project-explorer/internal/roles"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// Deps are the process-wide collaborators. AWS is loaded only when the S3
// backend or the audit table needs it.
type Deps struct {
	Env     config.Env
	Metrics *metrics.Metrics
	AWS     *aws.Config
}

// New loads AWS configuration if env requires it.
func New(ctx context.Context, env config.Env, m *metrics.Metrics) (*Deps, error) {
	d := &Deps{Env: env, Metrics: m}
	if env.StorageBackend == config.BackendS3 || env.AuditTable != "" {
		cfg, err := awsutil.Load(ctx, env.Region, env.AWSEndpoint)
		if err != nil {
			return nil, fmt.Errorf("aws config: %w", err)
		}
		d.AWS = &cfg
	}
	return d, nil
}

// Backend returns the storage backend selected by STORAGE_BACKEND.
func (d *Deps) Backend() (blobstore.Store, error) {
	switch d.Env.StorageBackend {
	case config.BackendAzure:
		return blobstore.NewAzure(d.Env.AccountName, d.Env.AccountKey, d.Env.Container, d.Env.BlobEndpoint)
	case config.BackendS3:
		return blobstore.NewS3(awsutil.S3(*d.AWS, d.Env.AWSEndpoint), d.Env.Bucket, d.Env.Region), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", d.Env.StorageBackend)
	}
}

// Recorder always logs grants and also writes them to DynamoDB when an audit
// table is configured.
func (d *Deps) Recorder() audit.Recorder {
	recs := audit.Multi{audit.LogRecorder{Log: logger.Named("audit")}}
	if d.Env.AuditTable != "" && d.AWS != nil {
		recs = append(recs, &ddb.Repo{DB: awsutil.DynamoDB(*d.AWS), Table: d.Env.AuditTable})
	}
	return recs
}

// Download builds the signed-URL endpoint.
func (d *Deps) Download() (*download.App, error) {
	policy, err := authz.NewPolicy(d.Env, time.Now)
	if err != nil {
		return nil, err
	}
	backend, err := d.Backend()
	if err != nil {
		return nil, err
	}
	issuer := blobstore.NewIssuer(backend,
		blobstore.WithRecorder(d.Recorder()),
		blobstore.WithMetrics(d.Metrics),
		blobstore.WithLogger(logger.Named("issuer")),
		blobstore.WithMode(d.Env.AccessMode),
		blobstore.WithRedactedSecrets(d.Env.AccountKey),
	)
	return &download.App{
		Policy:        policy,
		Issuer:        issuer,
		Metrics:       d.Metrics,
		Log:           logger.Named("download"),
		DiagnosticGET: d.Env.DiagnosticGET,
		Now:           time.Now,
	}, nil
}

// Roles builds the roles endpoint.
func (d *Deps) Roles() *roles.App {
	return &roles.App{
		Policy: &authz.GroupPolicy{Staff: d.Env.StaffGroup, Community: d.Env.CommunityGroup, Now: time.Now},
		Log:    logger.Named("roles"),
	}
}

// StorageCheck builds the storage connectivity endpoint.
func (d *Deps) StorageCheck() (*diag.StorageApp, error) {
	store, err := d.Backend()
	if err != nil {
		return nil, err
	}
	return &diag.StorageApp{
		Store:   store,
		Secrets: []string{d.Env.AccountKey},
		Log:     logger.Named("storage-check"),
		Now:     time.Now,
	}, nil
}

// Diag builds the network diagnostics endpoint.
func (d *Deps) Diag() *diag.App {
	return &diag.App{Networks: d.Env.AllowedNetworks, Log: logger.Named("diag"), Now: time.Now}
}
