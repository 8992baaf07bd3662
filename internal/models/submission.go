package models

import (
	"fmt"
	"net/url"
	"time"
)

// Submission modes. A submission is either an externally hosted link or a
// file held in platform storage.
const (
	ModeFile = "file"
	ModeLink = "link"
)

// Submission statuses. Teams save drafts while an event is open; only a
// draft may ever be deleted through this tool.
const (
	StatusDraft = "draft"
	StatusFinal = "final"
)

// Submission represents one team's project entry.
type Submission struct {
	ID          string    `json:"id,omitempty"`
	EventID     string    `json:"event_id"`
	TeamID      string    `json:"team_id"`
	Team        *Team     `json:"team,omitempty"`
	ProjectName string    `json:"project_name"`
	Mode        string    `json:"mode"`             // "file" or "link"
	Status      string    `json:"status,omitempty"` // "draft" or "final"
	RepoURL     string    `json:"repo_url,omitempty"`
	StoragePath string    `json:"storage_path,omitempty"`
	Password    string    `json:"password,omitempty"`
	Intro       string    `json:"intro,omitempty"`
	CoverPath   string    `json:"cover_path,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// TeamName returns the joined team's name, or the team id when the join
// was not requested.
func (s *Submission) TeamName() string {
	if s.Team != nil && s.Team.Name != "" {
		return s.Team.Name
	}
	return s.TeamID
}

// IsDraft reports whether the submission is still a draft. Rows written
// before statuses existed have none and count as final.
func (s *Submission) IsDraft() bool {
	return s.Status == StatusDraft
}

// Downloadable reports whether the submission carries a file this client
// can fetch from storage.
func (s *Submission) Downloadable() bool {
	return s.Mode == ModeFile && s.StoragePath != ""
}

// CheckContent validates the link/file invariant: file mode needs a storage
// path, link mode needs an http(s) URL.
func (s *Submission) CheckContent() error {
	switch s.Mode {
	case ModeFile:
		if s.StoragePath == "" {
			return fmt.Errorf("file-mode submission %s has no storage path", s.ID)
		}
	case ModeLink:
		u, err := url.Parse(s.RepoURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("link-mode submission %s has invalid URL %q", s.ID, s.RepoURL)
		}
	default:
		return fmt.Errorf("submission %s has unknown mode %q", s.ID, s.Mode)
	}
	return nil
}

// Team is the owning group of a submission.
type Team struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	LeaderID string `json:"leader_id,omitempty"`
	Members  int    `json:"members,omitempty"`
}
