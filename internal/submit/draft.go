// Package submit implements the team project submission workflow: local
// validation, file upload with session cleanup, and verified writes to the
// platform.
package submit

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/hrhgit/loginweb-cli/internal/models"
)

// Validation sentinels.
var (
	ErrMissingTeam    = errors.New("team is required")
	ErrMissingProject = errors.New("project name is required")
	ErrMissingContent = errors.New("submission needs a file or a repository link")
	ErrInvalidRepoURL = errors.New("repository link must be an http or https URL")
	ErrMissingIntro   = errors.New("intro text is required")
	ErrMissingCover   = errors.New("cover image is required")
)

// Draft is a submission as entered by the organizer, before any network
// traffic.
type Draft struct {
	TeamID      string
	ProjectName string
	Mode        string // models.ModeFile or models.ModeLink
	RepoURL     string
	LocalFile   string // path to the project archive (file mode)
	CoverFile   string // optional cover image path
	Password    string
	Intro       string
}

// Validate checks the draft entirely locally: required identity fields and
// the shape of whatever content was actually supplied. Presence of content,
// intro and cover is checked by CompleteWith, since an edit may inherit
// those from the stored submission.
func (d *Draft) Validate() error {
	if strings.TrimSpace(d.TeamID) == "" {
		return ErrMissingTeam
	}
	if strings.TrimSpace(d.ProjectName) == "" {
		return ErrMissingProject
	}

	switch d.Mode {
	case models.ModeFile:
		if d.LocalFile != "" {
			info, err := os.Stat(d.LocalFile)
			if err != nil {
				return fmt.Errorf("submission file: %w", err)
			}
			if info.IsDir() {
				return fmt.Errorf("submission file %s is a directory", d.LocalFile)
			}
		}
	case models.ModeLink:
		if d.RepoURL != "" {
			u, err := url.Parse(d.RepoURL)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return ErrInvalidRepoURL
			}
		}
	default:
		return fmt.Errorf("unknown submission mode %q", d.Mode)
	}

	if d.CoverFile != "" {
		if _, err := os.Stat(d.CoverFile); err != nil {
			return fmt.Errorf("cover image: %w", err)
		}
	}

	return nil
}

// CompleteWith checks the fields an edit may inherit from the stored
// submission: content, intro text and a cover image must be present on
// one side.
func (d *Draft) CompleteWith(existing *models.Submission) error {
	switch d.Mode {
	case models.ModeFile:
		if d.LocalFile == "" && (existing == nil || existing.StoragePath == "") {
			return ErrMissingContent
		}
	case models.ModeLink:
		if d.RepoURL == "" && (existing == nil || existing.RepoURL == "") {
			return ErrMissingContent
		}
	}
	if strings.TrimSpace(d.Intro) == "" && (existing == nil || existing.Intro == "") {
		return ErrMissingIntro
	}
	if d.CoverFile == "" && (existing == nil || existing.CoverPath == "") {
		return ErrMissingCover
	}
	return nil
}

// ChangesExisting reports whether applying the draft would modify the stored
// submission. A new file or cover always counts as a change; an empty intro
// inherits the stored one and so does not.
func (d *Draft) ChangesExisting(existing *models.Submission) bool {
	if existing == nil {
		return true
	}
	if d.LocalFile != "" || d.CoverFile != "" {
		return true
	}
	return d.ProjectName != existing.ProjectName ||
		d.Mode != existing.Mode ||
		(d.RepoURL != "" && d.RepoURL != existing.RepoURL) ||
		d.Password != existing.Password ||
		(d.Intro != "" && d.Intro != existing.Intro)
}
