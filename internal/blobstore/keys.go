// Package blobstore resolves object keys and issues time-limited, read-only
// signed URLs against Azure Blob Storage or Amazon S3.
package blobstore

import (
	"path"
	"strings"

	"github.com/appliedpolicy/project-explorer/internal/apperr"
)

// ObjectKey is a path relative to the configured container root.
type ObjectKey string

// Resolve validates a caller-supplied file path and returns it unchanged as
// an ObjectKey. Existence is not checked here.
func Resolve(raw string) (ObjectKey, error) {
	if raw == "" {
		return "", apperr.BadRequest("File parameter required")
	}
	if strings.Contains(raw, "../") || strings.Contains(raw, `..\`) {
		return "", invalidPath(raw)
	}
	if !withinRoot(raw) {
		return "", invalidPath(raw)
	}
	return ObjectKey(raw), nil
}

// withinRoot rejects keys that are absolute, contain NUL, or whose cleaned
// form is the root itself or escapes it.
func withinRoot(raw string) bool {
	if strings.ContainsRune(raw, 0) {
		return false
	}
	if strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, `\`) {
		return false
	}
	clean := path.Clean(strings.ReplaceAll(raw, `\`, "/"))
	return clean != "." && clean != ".." && !strings.HasPrefix(clean, "../")
}

func invalidPath(raw string) error {
	return apperr.New(apperr.KindInvalidPath, "Invalid file path").With("filePath", raw)
}
