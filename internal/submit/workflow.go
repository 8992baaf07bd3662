package submit

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"time"

	"github.com/hrhgit/loginweb-cli/internal/api"
	"github.com/hrhgit/loginweb-cli/internal/constants"
	"github.com/hrhgit/loginweb-cli/internal/logging"
	"github.com/hrhgit/loginweb-cli/internal/models"
	"github.com/hrhgit/loginweb-cli/internal/storage"
)

// ErrVerifyMismatch is returned when the platform's stored submission does
// not match what was just written.
var ErrVerifyMismatch = errors.New("stored submission does not match submitted data")

// ErrNoChanges is returned when the draft matches the stored submission, so
// nothing was written.
var ErrNoChanges = errors.New("submission unchanged")

// PlatformAPI is the slice of the platform client the workflow needs.
type PlatformAPI interface {
	GetSubmission(ctx context.Context, eventID, teamID string) (*models.Submission, error)
	UpsertSubmission(ctx context.Context, sub *models.Submission) (*models.Submission, error)
	UpdateSubmission(ctx context.Context, id string, sub *models.Submission) (*models.Submission, error)
	DeleteSubmission(ctx context.Context, id string) error
}

// Workflow runs the full submission sequence: validate locally, upload files
// inside a cleanup session, upsert, then read back and verify.
type Workflow struct {
	api    PlatformAPI
	store  storage.ObjectStore
	logger *logging.Logger

	// probeClient checks cover reachability, overridable in tests.
	probeClient *nethttp.Client
}

// NewWorkflow wires the submission workflow.
func NewWorkflow(apiClient PlatformAPI, store storage.ObjectStore, logger *logging.Logger) *Workflow {
	return &Workflow{
		api:    apiClient,
		store:  store,
		logger: logger,
		probeClient: &nethttp.Client{
			Timeout: constants.PreviewTimeout,
		},
	}
}

// Submit applies a draft for the given event. Nothing touches the network
// until the draft validates. Uploaded objects are cleaned up when the final
// write fails, and the stored row is read back to confirm the write landed.
func (w *Workflow) Submit(ctx context.Context, eventID string, draft *Draft, progress storage.ProgressCallback) (*models.Submission, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	existing, err := w.api.GetSubmission(ctx, eventID, draft.TeamID)
	if err != nil && !errors.Is(err, api.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing submission: %w", err)
	}

	if err := draft.CompleteWith(existing); err != nil {
		return nil, err
	}

	if !draft.ChangesExisting(existing) {
		w.logger.Infof("Submission for team %s unchanged, skipping write", draft.TeamID)
		return existing, ErrNoChanges
	}

	session := NewUploadSession(w.store, w.logger)

	sub := buildSubmission(eventID, draft, existing)

	if draft.Mode == models.ModeFile && draft.LocalFile != "" {
		objectPath, err := ObjectPath(eventID, draft.TeamID, draft.LocalFile)
		if err != nil {
			return nil, err
		}
		if err := storage.UploadWithFallback(ctx, w.store, draft.LocalFile, objectPath, progress); err != nil {
			session.Abandon(ctx)
			return nil, fmt.Errorf("failed to upload submission file: %w", err)
		}
		session.Track(objectPath)
		sub.StoragePath = objectPath
	}

	if draft.CoverFile != "" {
		coverPath, err := CoverObjectPath(eventID, draft.TeamID, draft.CoverFile)
		if err != nil {
			session.Abandon(ctx)
			return nil, err
		}
		if err := w.store.Upload(ctx, draft.CoverFile, coverPath, nil); err != nil {
			session.Abandon(ctx)
			return nil, fmt.Errorf("failed to upload cover image: %w", err)
		}
		session.Track(coverPath)
		sub.CoverPath = coverPath

		// A cover that cannot be fetched back renders as a broken image on
		// the event page, so probe it. An unreachable cover is worth a
		// warning but not a failed submission.
		if url := w.store.PublicURL(coverPath); url != "" {
			if err := w.probeCover(ctx, url); err != nil {
				w.logger.Warnf("Cover uploaded but not reachable at %s: %v", url, err)
			}
		}
	}

	if err := sub.CheckContent(); err != nil {
		session.Abandon(ctx)
		return nil, err
	}

	// A known record id is patched in place; first submissions go through
	// the conflict-keyed upsert.
	var saved *models.Submission
	if existing != nil && existing.ID != "" {
		saved, err = w.api.UpdateSubmission(ctx, existing.ID, sub)
	} else {
		saved, err = w.api.UpsertSubmission(ctx, sub)
	}
	if err != nil {
		session.Abandon(ctx)
		return nil, fmt.Errorf("failed to store submission: %w", err)
	}

	stored, err := w.api.GetSubmission(ctx, eventID, draft.TeamID)
	if err != nil {
		session.Abandon(ctx)
		return nil, fmt.Errorf("failed to verify stored submission: %w", err)
	}
	if !matchesDraft(stored, sub) {
		session.Abandon(ctx)
		return nil, ErrVerifyMismatch
	}

	session.Commit()
	return saved, nil
}

// ErrNotDraft is returned when delete-draft targets a finalized submission.
var ErrNotDraft = errors.New("submission is not a draft")

// DeleteDraft removes a team's draft submission: the row first, then its
// stored objects best-effort. Finalized submissions are never deleted.
func (w *Workflow) DeleteDraft(ctx context.Context, eventID, teamID string) error {
	sub, err := w.api.GetSubmission(ctx, eventID, teamID)
	if err != nil {
		return err
	}
	if !sub.IsDraft() {
		return fmt.Errorf("%w: team %s submission is %q", ErrNotDraft, teamID, sub.Status)
	}

	if err := w.api.DeleteSubmission(ctx, sub.ID); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}

	for _, objectPath := range []string{sub.StoragePath, sub.CoverPath} {
		if objectPath == "" {
			continue
		}
		if err := w.store.Delete(ctx, objectPath); err != nil {
			w.logger.Warnf("Draft deleted but object %s was not removed: %v", objectPath, err)
		}
	}
	return nil
}

func buildSubmission(eventID string, draft *Draft, existing *models.Submission) *models.Submission {
	sub := &models.Submission{
		EventID:     eventID,
		TeamID:      draft.TeamID,
		ProjectName: draft.ProjectName,
		Mode:        draft.Mode,
		Status:      models.StatusFinal,
		RepoURL:     draft.RepoURL,
		Password:    draft.Password,
		Intro:       draft.Intro,
	}
	if existing != nil {
		sub.ID = existing.ID
		sub.CreatedAt = existing.CreatedAt
		// Keep files and intro from the previous version unless the draft
		// replaces them.
		sub.StoragePath = existing.StoragePath
		sub.CoverPath = existing.CoverPath
		if sub.Intro == "" {
			sub.Intro = existing.Intro
		}
		if sub.Mode == models.ModeLink && sub.RepoURL == "" {
			sub.RepoURL = existing.RepoURL
		}
	}
	return sub
}

func matchesDraft(stored, want *models.Submission) bool {
	if stored == nil {
		return false
	}
	return stored.ProjectName == want.ProjectName &&
		stored.Mode == want.Mode &&
		stored.RepoURL == want.RepoURL &&
		stored.StoragePath == want.StoragePath
}

func (w *Workflow) probeCover(ctx context.Context, url string) error {
	var lastErr error
	for attempt := 1; attempt <= constants.PreviewRetries; attempt++ {
		req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := w.probeClient.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode < 400 {
				return nil
			}
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
		} else {
			lastErr = err
		}

		if attempt < constants.PreviewRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
		}
	}
	return lastErr
}
