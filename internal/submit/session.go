package submit

import (
	"context"
	"fmt"
	"path/filepath"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/google/uuid"

	"github.com/hrhgit/loginweb-cli/internal/logging"
	"github.com/hrhgit/loginweb-cli/internal/storage"
	"github.com/hrhgit/loginweb-cli/internal/util/sanitize"
)

// UploadSession tracks the objects uploaded while assembling one submission
// so they can be cleaned up if the submission is never committed.
type UploadSession struct {
	ID        string
	store     storage.ObjectStore
	logger    *logging.Logger
	uploaded  []string
	committed bool
}

// NewUploadSession starts a session against the given store.
func NewUploadSession(store storage.ObjectStore, logger *logging.Logger) *UploadSession {
	return &UploadSession{
		ID:     uuid.NewString(),
		store:  store,
		logger: logger,
	}
}

// Track records an uploaded object for potential cleanup.
func (s *UploadSession) Track(objectPath string) {
	s.uploaded = append(s.uploaded, objectPath)
}

// Commit marks the session's objects as owned by a stored submission.
// Committed objects are never cleaned up.
func (s *UploadSession) Commit() {
	s.committed = true
}

// Abandon deletes every tracked object unless the session was committed.
// Deletion is best effort: failures are logged, not returned, because the
// submission error that triggered the abandon is the one that matters.
func (s *UploadSession) Abandon(ctx context.Context) {
	if s.committed {
		return
	}
	for _, objectPath := range s.uploaded {
		if err := s.store.Delete(ctx, objectPath); err != nil {
			s.logger.Warnf("session %s: failed to clean up %s: %v", s.ID, objectPath, err)
		}
	}
	s.uploaded = nil
}

// ObjectPath builds the storage path for a submission file. A random suffix
// in the directory keeps re-submissions from overwriting each other while the
// filename, extension last, stays intact for later downloads.
func ObjectPath(eventID, teamID, localFile string) (string, error) {
	suffix, err := gonanoid.New(12)
	if err != nil {
		return "", fmt.Errorf("failed to generate path suffix: %w", err)
	}
	name := sanitize.Filename(filepath.Base(localFile))
	return fmt.Sprintf("events/%s/submissions/%s/%s-%s", eventID, teamID, suffix, name), nil
}

// CoverObjectPath builds the storage path for a submission's cover image.
func CoverObjectPath(eventID, teamID, localFile string) (string, error) {
	suffix, err := gonanoid.New(12)
	if err != nil {
		return "", fmt.Errorf("failed to generate path suffix: %w", err)
	}
	name := sanitize.Filename(filepath.Base(localFile))
	return fmt.Sprintf("events/%s/submissions/%s/covers/%s-%s", eventID, teamID, suffix, name), nil
}
