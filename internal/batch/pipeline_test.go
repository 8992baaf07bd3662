package batch

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrhgit/loginweb-cli/internal/models"
	"github.com/hrhgit/loginweb-cli/internal/progress"
)

func testItems(n int) []Item {
	subs := make([]models.Submission, 0, n)
	for i := 0; i < n; i++ {
		subs = append(subs, models.Submission{
			TeamID:      string(rune('a' + i)),
			Team:        &models.Team{Name: "Team" + string(rune('A'+i))},
			ProjectName: "Project",
			StoragePath: "obj.zip",
		})
	}
	return BuildItems(subs)
}

// fetcher that fails for the team names listed in fail.
func fakeFetcher(content string, fail map[string]error) ContentFetcher {
	return func(ctx context.Context, sub models.Submission, w io.Writer) error {
		if err, ok := fail[sub.TeamName()]; ok {
			return err
		}
		_, werr := w.Write([]byte(content + sub.TeamName()))
		return werr
	}
}

func TestPackMixedSuccessAndFailure(t *testing.T) {
	items := testItems(3)
	fail := map[string]error{"TeamB": errors.New("object vanished")}

	var out bytes.Buffer
	err := Pack(context.Background(), items, &out, fakeFetcher("data-", fail), nil)
	require.NoError(t, err, "per-item failures must not fail the batch")

	zr, err := zip.NewReader(bytes.NewReader(out.Bytes()), int64(out.Len()))
	require.NoError(t, err)

	names := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		names[f.Name] = string(data)
	}

	assert.Len(t, names, 3)
	assert.Equal(t, "data-TeamA", names["001-TeamA-Project.zip"])
	assert.Equal(t, "data-TeamC", names["003-TeamC-Project.zip"])

	marker, ok := names["002-TeamB-Project.zip.error.txt"]
	require.True(t, ok, "failed item must leave an error marker entry")
	assert.Contains(t, marker, "object vanished")
}

func TestPackProgressMonotoneAndComplete(t *testing.T) {
	items := testItems(4)
	fail := map[string]error{"TeamC": errors.New("boom")}

	var percents []int
	reporter := progress.BatchReporterFunc(func(completed, total int, name string, err error) {
		percents = append(percents, progress.Percent(completed, total))
	})

	var out bytes.Buffer
	require.NoError(t, Pack(context.Background(), items, &out, fakeFetcher("x", fail), reporter))

	require.Len(t, percents, 4, "reporter must fire for every item including failures")
	for i := 1; i < len(percents); i++ {
		assert.GreaterOrEqual(t, percents[i], percents[i-1], "progress must never decrease")
	}
	assert.Equal(t, 100, percents[len(percents)-1], "progress must end at exactly 100")
}

func TestPackCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := Pack(ctx, testItems(2), &out, fakeFetcher("x", nil), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchSpacedWritesFilesAndMarkers(t *testing.T) {
	items := testItems(2)
	fail := map[string]error{"TeamB": errors.New("signed url expired")}
	destDir := filepath.Join(t.TempDir(), "out")

	var done int
	reporter := progress.BatchReporterFunc(func(completed, total int, name string, err error) {
		done = completed
	})

	err := FetchSpaced(context.Background(), items, destDir, fakeFetcher("blob-", fail), reporter)
	require.NoError(t, err)
	assert.Equal(t, 2, done)

	data, err := os.ReadFile(filepath.Join(destDir, "001-TeamA-Project.zip"))
	require.NoError(t, err)
	assert.Equal(t, "blob-TeamA", string(data))

	marker, err := os.ReadFile(filepath.Join(destDir, "002-TeamB-Project.zip.error.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(marker), "signed url expired")

	// No partials should survive a failed item.
	_, err = os.Stat(filepath.Join(destDir, "002-TeamB-Project.zip.part"))
	assert.True(t, os.IsNotExist(err))
}

func TestFetchSpacedCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := FetchSpaced(ctx, testItems(1), t.TempDir(), fakeFetcher("x", nil), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStoreFetcherRejectsSubmissionsWithoutFiles(t *testing.T) {
	fetch := StoreFetcher(nil)

	sub := models.Submission{ID: "s-link", Mode: models.ModeLink, RepoURL: "https://example.com"}
	err := fetch(context.Background(), sub, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no stored file")
}
