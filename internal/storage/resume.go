package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/hrhgit/loginweb-cli/internal/constants"
)

// UploadResumeState tracks an in-progress chunked upload so it can be resumed
// after an interruption. It is persisted as a sidecar file next to the source.
type UploadResumeState struct {
	LocalPath      string          `json:"local_path"`
	ObjectPath     string          `json:"object_path"`
	UploadID       string          `json:"upload_id"` // S3 multipart upload ID, empty for Azure
	TotalSize      int64           `json:"total_size"`
	UploadedBytes  int64           `json:"uploaded_bytes"`
	CompletedParts []CompletedPart `json:"completed_parts"`
	BlockIDs       []string        `json:"block_ids"` // Azure uncommitted block IDs
	StorageType    string          `json:"storage_type"`
	CreatedAt      time.Time       `json:"created_at"`
	LastUpdate     time.Time       `json:"last_update"`
}

// CompletedPart records an uploaded S3 part.
type CompletedPart struct {
	PartNumber int32  `json:"part_number"`
	ETag       string `json:"etag"`
}

func resumeStatePath(localPath string) string {
	return localPath + ".upload.resume"
}

// SaveUploadState writes the resume state atomically via a temp file + rename.
func SaveUploadState(state *UploadResumeState, localPath string) error {
	stateFilePath := resumeStatePath(localPath)
	tmpFilePath := stateFilePath + ".tmp"

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal upload state: %w", err)
	}

	if err := os.WriteFile(tmpFilePath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp state file: %w", err)
	}

	if err := os.Rename(tmpFilePath, stateFilePath); err != nil {
		os.Remove(tmpFilePath)
		return fmt.Errorf("failed to rename state file: %w", err)
	}

	return nil
}

// LoadUploadState reads the resume state sidecar. Returns nil without error
// when no state file exists.
func LoadUploadState(localPath string) (*UploadResumeState, error) {
	data, err := os.ReadFile(resumeStatePath(localPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var state UploadResumeState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state file: %w", err)
	}

	return &state, nil
}

// DeleteUploadState removes the resume sidecar, tolerating its absence.
func DeleteUploadState(localPath string) error {
	err := os.Remove(resumeStatePath(localPath))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete state file: %w", err)
	}
	return nil
}

// UploadResumeStateExists reports whether a resume sidecar exists.
func UploadResumeStateExists(localPath string) bool {
	_, err := os.Stat(resumeStatePath(localPath))
	return err == nil
}

// ValidateUploadState checks that a resume state is still usable: the source
// file must exist unchanged and the state must not be expired. S3 multipart
// uploads and Azure uncommitted blocks both expire server-side after 7 days,
// so older state is useless.
func ValidateUploadState(state *UploadResumeState, localPath string) error {
	if state == nil {
		return fmt.Errorf("state is nil")
	}

	fileInfo, err := os.Stat(localPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("source file no longer exists")
		}
		return fmt.Errorf("failed to stat source file: %w", err)
	}

	if fileInfo.Size() != state.TotalSize {
		return fmt.Errorf("source file size changed (was %d, now %d)", state.TotalSize, fileInfo.Size())
	}

	if time.Since(state.CreatedAt) > constants.MaxResumeAge {
		return fmt.Errorf("resume state expired")
	}

	if state.LocalPath != localPath {
		return fmt.Errorf("local path mismatch")
	}

	if state.UploadedBytes > state.TotalSize {
		return fmt.Errorf("uploaded bytes exceeds total size, state corrupted")
	}

	return nil
}
