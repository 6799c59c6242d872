// Package audit records completed download grants. Recording is best-effort:
// a failed write is logged and never fails the download.
package audit

import (
	"context"
	"errors"

	"github.com/appliedpolicy/project-explorer/internal/logger"
	"github.com/appliedpolicy/project-explorer/internal/models"
)

// Recorder persists a download record.
type Recorder interface {
	Record(ctx context.Context, rec models.DownloadRecord) error
}

// LogRecorder writes each record as a structured log line.
type LogRecorder struct {
	Log *logger.Logger
}

// Record implements Recorder.
func (r LogRecorder) Record(ctx context.Context, rec models.DownloadRecord) error {
	logger.C(ctx, r.Log).Info().
		Str("event", "file_download").
		Str("grant_id", rec.GrantID).
		Str("object_key", rec.ObjectKey).
		Str("subject", rec.Subject).
		Str("reason", rec.Reason).
		Str("mode", rec.Mode).
		Str("container", rec.Container).
		Str("expires_at", rec.ExpiresAt).
		Msg("file download")
	return nil
}

// Multi fans a record out to every recorder and joins their errors.
type Multi []Recorder

// Record implements Recorder.
func (m Multi) Record(ctx context.Context, rec models.DownloadRecord) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Record(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
