package storage

import (
	"context"
	"errors"
	"fmt"
)

// UploadWithFallback tries the resumable upload first and, when it fails for
// any reason other than cancellation, retries once with a simple single-shot
// upload to the same object path. Both errors are reported if the fallback
// also fails.
func UploadWithFallback(ctx context.Context, store ObjectStore, localPath, objectPath string, progress ProgressCallback) error {
	resumableErr := store.UploadResumable(ctx, localPath, objectPath, progress)
	if resumableErr == nil {
		return nil
	}

	if errors.Is(resumableErr, context.Canceled) || errors.Is(resumableErr, context.DeadlineExceeded) {
		return resumableErr
	}

	if simpleErr := store.Upload(ctx, localPath, objectPath, progress); simpleErr != nil {
		return fmt.Errorf("resumable upload failed (%v); fallback upload failed: %w", resumableErr, simpleErr)
	}

	// The fallback replaced the object wholesale, so any checkpoint from the
	// failed resumable attempt is stale.
	_ = DeleteUploadState(localPath)
	return nil
}
