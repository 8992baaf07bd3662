package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0644))
	return path
}

func TestSaveLoadDeleteUploadState(t *testing.T) {
	localPath := writeTempFile(t, 1024)

	state := &UploadResumeState{
		LocalPath:     localPath,
		ObjectPath:    "events/ev1/submissions/team1/build.zip",
		UploadID:      "upload-123",
		TotalSize:     1024,
		UploadedBytes: 512,
		CompletedParts: []CompletedPart{
			{PartNumber: 1, ETag: `"abc"`},
		},
		StorageType: "S3Storage",
		CreatedAt:   time.Now(),
		LastUpdate:  time.Now(),
	}

	require.NoError(t, SaveUploadState(state, localPath))
	assert.True(t, UploadResumeStateExists(localPath))

	loaded, err := LoadUploadState(localPath)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, state.UploadID, loaded.UploadID)
	assert.Equal(t, state.ObjectPath, loaded.ObjectPath)
	assert.Len(t, loaded.CompletedParts, 1)
	assert.Equal(t, int32(1), loaded.CompletedParts[0].PartNumber)

	require.NoError(t, DeleteUploadState(localPath))
	assert.False(t, UploadResumeStateExists(localPath))

	loaded, err = LoadUploadState(localPath)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestDeleteUploadStateMissingFile(t *testing.T) {
	localPath := filepath.Join(t.TempDir(), "never-existed.bin")
	assert.NoError(t, DeleteUploadState(localPath))
}

func TestValidateUploadState(t *testing.T) {
	localPath := writeTempFile(t, 2048)

	valid := &UploadResumeState{
		LocalPath:     localPath,
		ObjectPath:    "obj",
		TotalSize:     2048,
		UploadedBytes: 1024,
		CreatedAt:     time.Now(),
	}
	assert.NoError(t, ValidateUploadState(valid, localPath))

	t.Run("nil state", func(t *testing.T) {
		assert.Error(t, ValidateUploadState(nil, localPath))
	})

	t.Run("source missing", func(t *testing.T) {
		gone := filepath.Join(t.TempDir(), "gone.bin")
		state := *valid
		state.LocalPath = gone
		assert.ErrorContains(t, ValidateUploadState(&state, gone), "no longer exists")
	})

	t.Run("size changed", func(t *testing.T) {
		state := *valid
		state.TotalSize = 4096
		assert.ErrorContains(t, ValidateUploadState(&state, localPath), "size changed")
	})

	t.Run("expired", func(t *testing.T) {
		state := *valid
		state.CreatedAt = time.Now().Add(-8 * 24 * time.Hour)
		assert.ErrorContains(t, ValidateUploadState(&state, localPath), "expired")
	})

	t.Run("path mismatch", func(t *testing.T) {
		other := writeTempFile(t, 2048)
		state := *valid
		assert.ErrorContains(t, ValidateUploadState(&state, other), "mismatch")
	})

	t.Run("corrupt byte count", func(t *testing.T) {
		state := *valid
		state.UploadedBytes = 99999
		assert.ErrorContains(t, ValidateUploadState(&state, localPath), "corrupted")
	})
}

func TestSaveUploadStateIsAtomic(t *testing.T) {
	localPath := writeTempFile(t, 100)

	state := &UploadResumeState{
		LocalPath: localPath,
		TotalSize: 100,
		CreatedAt: time.Now(),
	}
	require.NoError(t, SaveUploadState(state, localPath))

	// No temp file should be left behind after a successful save.
	_, err := os.Stat(localPath + ".upload.resume.tmp")
	assert.True(t, os.IsNotExist(err))
}
