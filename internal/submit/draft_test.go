package submit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrhgit/loginweb-cli/internal/models"
)

func tempFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("content"), 0644))
	return path
}

func TestDraftValidate(t *testing.T) {
	archive := tempFile(t, "build.zip")

	tests := []struct {
		name    string
		draft   Draft
		wantErr error
	}{
		{
			name:  "valid file submission",
			draft: Draft{TeamID: "t1", ProjectName: "P", Mode: models.ModeFile, LocalFile: archive},
		},
		{
			name:  "valid link submission",
			draft: Draft{TeamID: "t1", ProjectName: "P", Mode: models.ModeLink, RepoURL: "https://example.com/repo"},
		},
		{
			name:    "missing team",
			draft:   Draft{ProjectName: "P", Mode: models.ModeLink, RepoURL: "https://example.com"},
			wantErr: ErrMissingTeam,
		},
		{
			name:    "missing project",
			draft:   Draft{TeamID: "t1", Mode: models.ModeLink, RepoURL: "https://example.com"},
			wantErr: ErrMissingProject,
		},
		{
			// Content presence is checked against the stored submission,
			// not here.
			name:  "file mode without file",
			draft: Draft{TeamID: "t1", ProjectName: "P", Mode: models.ModeFile},
		},
		{
			name:    "ftp link rejected",
			draft:   Draft{TeamID: "t1", ProjectName: "P", Mode: models.ModeLink, RepoURL: "ftp://example.com/x"},
			wantErr: ErrInvalidRepoURL,
		},
		{
			name:    "schemeless link rejected",
			draft:   Draft{TeamID: "t1", ProjectName: "P", Mode: models.ModeLink, RepoURL: "example.com/repo"},
			wantErr: ErrInvalidRepoURL,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.draft.Validate()
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDraftValidateMissingLocalFile(t *testing.T) {
	draft := Draft{
		TeamID:      "t1",
		ProjectName: "P",
		Mode:        models.ModeFile,
		LocalFile:   filepath.Join(t.TempDir(), "does-not-exist.zip"),
	}
	assert.Error(t, draft.Validate())
}

func TestDraftChangesExisting(t *testing.T) {
	existing := &models.Submission{
		ProjectName: "P",
		Mode:        models.ModeLink,
		RepoURL:     "https://example.com/repo",
	}

	unchanged := Draft{TeamID: "t1", ProjectName: "P", Mode: models.ModeLink, RepoURL: "https://example.com/repo"}
	assert.False(t, unchanged.ChangesExisting(existing))

	renamed := unchanged
	renamed.ProjectName = "Q"
	assert.True(t, renamed.ChangesExisting(existing))

	withFile := unchanged
	withFile.LocalFile = "/tmp/new.zip"
	assert.True(t, withFile.ChangesExisting(existing), "a new file always counts as a change")

	assert.True(t, unchanged.ChangesExisting(nil), "no existing submission means everything changes")

	introKept := unchanged
	existing.Intro = "Flies to the moon"
	assert.False(t, introKept.ChangesExisting(existing), "empty intro inherits the stored one")

	introEdited := unchanged
	introEdited.Intro = "Now with wings"
	assert.True(t, introEdited.ChangesExisting(existing))
}

func TestDraftCompleteWith(t *testing.T) {
	draft := Draft{TeamID: "t1", ProjectName: "P", Mode: models.ModeFile}
	assert.ErrorIs(t, draft.CompleteWith(nil), ErrMissingContent)

	draft.LocalFile = "/tmp/build.zip"
	assert.ErrorIs(t, draft.CompleteWith(nil), ErrMissingIntro)

	draft.Intro = "Flies to the moon"
	assert.ErrorIs(t, draft.CompleteWith(nil), ErrMissingCover)

	draft.CoverFile = "/tmp/cover.png"
	assert.NoError(t, draft.CompleteWith(nil))

	link := Draft{TeamID: "t1", ProjectName: "P", Mode: models.ModeLink, Intro: "x", CoverFile: "/tmp/c.png"}
	assert.ErrorIs(t, link.CompleteWith(nil), ErrMissingContent)

	// Stored values satisfy an otherwise empty edit draft.
	bare := Draft{TeamID: "t1", ProjectName: "P", Mode: models.ModeFile}
	existing := &models.Submission{
		StoragePath: "events/ev1/submissions/t1/abc-build.zip",
		Intro:       "Flies to the moon",
		CoverPath:   "events/ev1/submissions/t1/covers/x.png",
	}
	assert.NoError(t, bare.CompleteWith(existing))
}

func TestObjectPathKeepsExtensionLast(t *testing.T) {
	p, err := ObjectPath("ev1", "t1", "/home/user/My Build.zip")
	require.NoError(t, err)
	assert.Regexp(t, `^events/ev1/submissions/t1/[A-Za-z0-9_-]{12}-My Build\.zip$`, p)
}

func TestObjectPathsAreUnique(t *testing.T) {
	a, err := ObjectPath("ev1", "t1", "x.zip")
	require.NoError(t, err)
	b, err := ObjectPath("ev1", "t1", "x.zip")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
