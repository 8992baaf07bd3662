package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTeamName(t *testing.T) {
	sub := &Submission{TeamID: "t1"}
	assert.Equal(t, "t1", sub.TeamName())

	sub.Team = &Team{ID: "t1", Name: "Rocketeers"}
	assert.Equal(t, "Rocketeers", sub.TeamName())

	sub.Team.Name = ""
	assert.Equal(t, "t1", sub.TeamName())
}

func TestDownloadable(t *testing.T) {
	assert.True(t, (&Submission{Mode: ModeFile, StoragePath: "a.zip"}).Downloadable())
	assert.False(t, (&Submission{Mode: ModeFile}).Downloadable())
	assert.False(t, (&Submission{Mode: ModeLink, RepoURL: "https://example.com"}).Downloadable())
}

func TestCheckContent(t *testing.T) {
	tests := []struct {
		name    string
		sub     Submission
		wantErr bool
	}{
		{"file with path", Submission{Mode: ModeFile, StoragePath: "events/e/a.zip"}, false},
		{"file without path", Submission{Mode: ModeFile}, true},
		{"link with https", Submission{Mode: ModeLink, RepoURL: "https://github.com/x/y"}, false},
		{"link with http", Submission{Mode: ModeLink, RepoURL: "http://example.com"}, false},
		{"link with ftp", Submission{Mode: ModeLink, RepoURL: "ftp://example.com"}, true},
		{"link without host", Submission{Mode: ModeLink, RepoURL: "https://"}, true},
		{"link empty", Submission{Mode: ModeLink}, true},
		{"unknown mode", Submission{Mode: "carrier-pigeon"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sub.CheckContent()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
