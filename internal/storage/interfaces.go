// Package storage talks directly to the object store backing an event,
// using temporary credentials issued by the platform.
package storage

import (
	"context"
	"io"

	"github.com/hrhgit/loginweb-cli/internal/models"
)

// ProgressCallback receives upload/download progress as a fraction 0.0 to 1.0.
// 1.0 is only reported once the object is confirmed to exist remotely.
type ProgressCallback func(fraction float64)

// stagedFraction reports progress for a chunked upload that still needs a
// final commit call. It stays below 1.0 even when every byte is staged; the
// upload path reports 1.0 after the commit succeeds.
func stagedFraction(uploaded, total int64) float64 {
	if total <= 0 {
		return 0
	}
	frac := float64(uploaded) / float64(total)
	if frac > 0.99 {
		frac = 0.99
	}
	return frac
}

// GrantFunc fetches a fresh storage grant from the platform. Stores call it
// when temporary credentials expire mid-transfer.
type GrantFunc func(ctx context.Context) (*models.StorageGrant, error)

// ObjectStore is the interface both storage backends implement.
type ObjectStore interface {
	// Upload sends the file at localPath to objectPath in one request.
	Upload(ctx context.Context, localPath, objectPath string, progress ProgressCallback) error

	// UploadResumable sends the file in chunks, persisting resume state next
	// to the source file after each chunk so an interrupted transfer can
	// continue where it left off.
	UploadResumable(ctx context.Context, localPath, objectPath string, progress ProgressCallback) error

	// Download streams the object into w. Cancelling ctx aborts the copy.
	Download(ctx context.Context, objectPath string, w io.Writer, progress ProgressCallback) error

	// Delete removes the object. Missing objects are not an error.
	Delete(ctx context.Context, objectPath string) error

	// PublicURL returns the unauthenticated URL for an object, or "" when the
	// storage has no public base configured.
	PublicURL(objectPath string) string
}
