package batch

import (
	"fmt"
	"path"
	"strings"

	"github.com/hrhgit/loginweb-cli/internal/constants"
	"github.com/hrhgit/loginweb-cli/internal/models"
	"github.com/hrhgit/loginweb-cli/internal/util/sanitize"
)

// ItemFileName builds the archive entry or output file name for one
// submission: a zero-padded ordinal, the team name, and the project name,
// with the extension taken from the stored object. Ordinals keep entries
// sorted and unique even when two teams sanitize to the same name.
func ItemFileName(ordinal int, sub models.Submission) string {
	team := sanitize.Filename(sub.TeamName())
	if team == "" {
		team = "team"
	}
	project := sanitize.Filename(sub.ProjectName)
	if project == "" {
		project = "project"
	}
	return fmt.Sprintf("%03d-%s-%s.%s", ordinal, team, project, objectExt(sub.StoragePath))
}

// objectExt extracts the extension from a storage path, defaulting when the
// object has none.
func objectExt(storagePath string) string {
	ext := strings.TrimPrefix(path.Ext(storagePath), ".")
	if ext == "" {
		return constants.DefaultArchiveExt
	}
	return ext
}
