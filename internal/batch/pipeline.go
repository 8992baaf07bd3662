package batch

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/hrhgit/loginweb-cli/internal/constants"
	"github.com/hrhgit/loginweb-cli/internal/models"
	"github.com/hrhgit/loginweb-cli/internal/progress"
	"github.com/hrhgit/loginweb-cli/internal/storage"
)

// Item is one submission scheduled for acquisition, with its final name
// already assigned.
type Item struct {
	Name       string
	Submission models.Submission
}

// BuildItems assigns ordinals and file names to the selected submissions.
func BuildItems(subs []models.Submission) []Item {
	items := make([]Item, 0, len(subs))
	for i, sub := range subs {
		items = append(items, Item{
			Name:       ItemFileName(i+1, sub),
			Submission: sub,
		})
	}
	return items
}

// ContentFetcher retrieves the stored content of one submission into w.
type ContentFetcher func(ctx context.Context, sub models.Submission, w io.Writer) error

// StoreFetcher adapts an ObjectStore to a ContentFetcher. Submissions
// without a stored file (link mode, or a missing storage path) fail here,
// so in archive mode they surface as error markers.
func StoreFetcher(store storage.ObjectStore) ContentFetcher {
	return func(ctx context.Context, sub models.Submission, w io.Writer) error {
		if !sub.Downloadable() {
			return fmt.Errorf("submission %s has no stored file (mode %q)", sub.ID, sub.Mode)
		}
		return store.Download(ctx, sub.StoragePath, w, nil)
	}
}

// Pack writes the selected submissions into a single flat zip archive.
// Items that fail to download are replaced by a "<name>.error.txt" entry
// describing the failure, and packing continues with the remaining items.
// The reporter is notified after every item, success or not, so progress
// always reaches 100 percent.
func Pack(ctx context.Context, items []Item, out io.Writer, fetch ContentFetcher, reporter progress.BatchReporter) error {
	zw := zip.NewWriter(out)
	total := len(items)

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			zw.Close()
			return err
		}

		fetchErr := packOne(ctx, zw, item, fetch)
		if reporter != nil {
			reporter.ItemDone(i+1, total, item.Name, fetchErr)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return nil
}

func packOne(ctx context.Context, zw *zip.Writer, item Item, fetch ContentFetcher) error {
	var buf bytes.Buffer
	fetchErr := fetch(ctx, item.Submission, &buf)

	if fetchErr != nil {
		// Failed items leave a marker in the archive instead of aborting
		// the whole batch.
		marker := fmt.Sprintf("failed to acquire %s: %v\n", item.Name, fetchErr)
		w, err := zw.Create(item.Name + ".error.txt")
		if err != nil {
			return fmt.Errorf("failed to create error marker: %w", err)
		}
		if _, err := w.Write([]byte(marker)); err != nil {
			return fmt.Errorf("failed to write error marker: %w", err)
		}
		return fetchErr
	}

	w, err := zw.Create(item.Name)
	if err != nil {
		return fmt.Errorf("failed to create archive entry: %w", err)
	}
	if _, err := io.Copy(w, &buf); err != nil {
		return fmt.Errorf("failed to write archive entry: %w", err)
	}
	return nil
}

// FetchSpaced saves each submission to its own file under destDir, pausing
// between items so the storage backend is not hammered with simultaneous
// requests. Failed items produce a "<name>.error.txt" marker file and the
// batch continues. The reporter is notified after every item.
func FetchSpaced(ctx context.Context, items []Item, destDir string, fetch ContentFetcher, reporter progress.BatchReporter) error {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	total := len(items)
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}

		fetchErr := fetchOne(ctx, destDir, item, fetch)
		if reporter != nil {
			reporter.ItemDone(i+1, total, item.Name, fetchErr)
		}

		if i < total-1 {
			if err := sleepCtx(ctx, constants.FetchSpacing); err != nil {
				return err
			}
		}
	}
	return nil
}

func fetchOne(ctx context.Context, destDir string, item Item, fetch ContentFetcher) error {
	destPath := filepath.Join(destDir, item.Name)
	tmpPath := destPath + ".part"

	f, err := os.Create(tmpPath)
	if err != nil {
		return writeErrorMarker(destDir, item.Name, err)
	}

	fetchErr := fetch(ctx, item.Submission, f)
	closeErr := f.Close()
	if fetchErr == nil {
		fetchErr = closeErr
	}

	if fetchErr != nil {
		os.Remove(tmpPath)
		return writeErrorMarker(destDir, item.Name, fetchErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return writeErrorMarker(destDir, item.Name, err)
	}
	return nil
}

func writeErrorMarker(destDir, name string, cause error) error {
	marker := fmt.Sprintf("failed to acquire %s: %v\n", name, cause)
	markerPath := filepath.Join(destDir, name+".error.txt")
	if err := os.WriteFile(markerPath, []byte(marker), 0644); err != nil {
		return fmt.Errorf("%v (marker write also failed: %v)", cause, err)
	}
	return cause
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
