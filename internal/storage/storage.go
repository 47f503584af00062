// Package storage defines the Storage interface behind the certificate document archive and the
// factory that picks a backend from configuration.
//
// Backends register themselves from an init() function in their own package:
//
//	func init() {
//	    storage.Register("mybackend", func(cfg *config.Config) (storage.Storage, error) {
//	        return NewMyBackend(cfg)
//	    })
//	}
//
// and cmd/server blank-imports each backend package to trigger the registration.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned (wrapped) when an object does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrNoDirectURL is returned by GetURL on backends that cannot hand out a URL the client
	// can fetch directly. Callers stream the object through Download instead.
	ErrNoDirectURL = errors.New("backend does not issue direct download URLs")
)

// Storage is implemented by every archive backend.
type Storage interface {
	// Upload stores the object under key, replacing any existing one, and returns its size
	// and SHA256 checksum.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (*UploadResult, error)

	// Download opens the object. A missing object yields an error wrapping ErrNotFound.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error

	// GetURL returns a download URL valid for ttl, or ErrNoDirectURL.
	GetURL(ctx context.Context, key string, ttl time.Duration) (string, error)

	// Exists reports whether the object exists.
	Exists(ctx context.Context, key string) (bool, error)
}

// UploadResult describes a stored object.
type UploadResult struct {
	Key      string
	Size     int64
	Checksum string
}

// DocumentKey returns a fresh object key for a certificate document. Every upload gets its own
// key so a replaced document can be removed after the certificate points at the new one.
func DocumentKey(certificateID int64) string {
	return fmt.Sprintf("certificates/%d/%s", certificateID, uuid.NewString())
}
