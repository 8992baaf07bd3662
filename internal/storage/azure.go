package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	nethttp "net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blockblob"

	"github.com/hrhgit/loginweb-cli/internal/config"
	"github.com/hrhgit/loginweb-cli/internal/constants"
	"github.com/hrhgit/loginweb-cli/internal/http"
	"github.com/hrhgit/loginweb-cli/internal/logging"
	"github.com/hrhgit/loginweb-cli/internal/models"
)

// readSeekCloser wraps bytes.Reader to implement io.ReadSeekCloser.
type readSeekCloser struct {
	*bytes.Reader
}

func (rsc *readSeekCloser) Close() error { return nil }

// AzureStore uploads and downloads event files in an Azure blob container
// using a SAS token from the platform. The client is rebuilt when the token
// is refreshed but the HTTP transport is reused for connection pooling.
type AzureStore struct {
	client   *azblob.Client
	info     models.StorageInfo
	grantFn  GrantFunc
	httpCli  *nethttp.Client
	clientMu sync.Mutex
	logger   *logging.Logger
}

// NewAzureStore creates an Azure store from a storage grant.
func NewAzureStore(cfg *config.Config, info models.StorageInfo, creds *models.AzureCredentials, grantFn GrantFunc, logger *logging.Logger) (*AzureStore, error) {
	if creds == nil {
		return nil, fmt.Errorf("grant has no Azure credentials")
	}
	if info.AccountName == "" {
		return nil, fmt.Errorf("Azure storage account name missing from grant")
	}

	httpCli, err := http.CreateOptimizedClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	client, err := newAzureClient(info.AccountName, creds.SASToken, httpCli)
	if err != nil {
		return nil, err
	}

	return &AzureStore{
		client:  client,
		info:    info,
		grantFn: grantFn,
		httpCli: httpCli,
		logger:  logger,
	}, nil
}

func newAzureClient(accountName, sasToken string, httpCli *nethttp.Client) (*azblob.Client, error) {
	sasURL := fmt.Sprintf("https://%s.blob.core.windows.net/?%s", accountName, sasToken)
	client, err := azblob.NewClientWithNoCredential(sasURL, &azblob.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Transport: httpCli,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure client: %w", err)
	}
	return client, nil
}

// ensureFreshCredentials requests a new grant and rebuilds the Azure client
// with the fresh SAS token, reusing the HTTP transport.
func (a *AzureStore) ensureFreshCredentials(ctx context.Context) error {
	if a.grantFn == nil {
		return fmt.Errorf("no grant refresher configured")
	}

	grant, err := a.grantFn(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh storage grant: %w", err)
	}
	if grant.Azure == nil {
		return fmt.Errorf("refreshed grant has no Azure credentials")
	}

	a.clientMu.Lock()
	defer a.clientMu.Unlock()

	client, err := newAzureClient(a.info.AccountName, grant.Azure.SASToken, a.httpCli)
	if err != nil {
		return err
	}
	a.client = client
	return nil
}

func (a *AzureStore) blockClient(objectPath string) *blockblob.Client {
	a.clientMu.Lock()
	client := a.client
	a.clientMu.Unlock()
	return client.ServiceClient().NewContainerClient(a.info.Container).NewBlockBlobClient(objectPath)
}

func (a *AzureStore) retryWithBackoff(ctx context.Context, operation string, fn func() error) error {
	cfg := http.Config{
		MaxRetries:   constants.MaxRetries,
		InitialDelay: constants.RetryInitialDelay,
		MaxDelay:     constants.RetryMaxDelay,
		CredentialRefresh: func(ctx context.Context) error {
			return a.ensureFreshCredentials(ctx)
		},
		OnRetry: func(attempt int, err error, errorType http.ErrorType) {
			a.logger.Debugf("%s: retry %d/%d (%s): %v",
				operation, attempt, constants.MaxRetries, errorType, err)
		},
	}
	return http.ExecuteWithRetry(ctx, cfg, fn)
}

// Upload sends the file as a single blob.
func (a *AzureStore) Upload(ctx context.Context, localPath, objectPath string, progress ProgressCallback) error {
	if progress != nil {
		progress(0.0)
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	err = a.retryWithBackoff(ctx, "Upload", func() error {
		reader := &readSeekCloser{Reader: bytes.NewReader(data)}
		_, err := a.blockClient(objectPath).Upload(ctx, reader, nil)
		return err
	})
	if err != nil {
		return fmt.Errorf("Azure upload failed: %w", err)
	}

	if progress != nil {
		progress(1.0)
	}
	return nil
}

// UploadResumable uploads the file as staged blocks, checkpointing the block
// list after every block. Files at or below the multipart threshold go
// through Upload.
func (a *AzureStore) UploadResumable(ctx context.Context, localPath, objectPath string, progress ProgressCallback) error {
	info, err := os.Stat(localPath)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	if info.Size() <= constants.MultipartThreshold {
		if err := a.Upload(ctx, localPath, objectPath, progress); err != nil {
			return err
		}
		return DeleteUploadState(localPath)
	}

	if err := a.uploadBlockBlob(ctx, localPath, objectPath, info.Size(), progress); err != nil {
		return err
	}

	return DeleteUploadState(localPath)
}

func (a *AzureStore) uploadBlockBlob(ctx context.Context, localPath, objectPath string, totalSize int64, progress ProgressCallback) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	const blockSize = constants.ChunkSize
	numBlocks := (totalSize + blockSize - 1) / blockSize

	var blockIDs []string
	var uploadedBytes int64
	startBlock := int64(0)
	var createdAt time.Time

	// Resume when the checkpoint is valid and the staged blocks still exist
	// server-side. Uncommitted blocks are discarded by Azure after 7 days.
	if existing, _ := LoadUploadState(localPath); existing != nil {
		if verr := ValidateUploadState(existing, localPath); verr == nil && len(existing.BlockIDs) > 0 {
			listResp, listErr := a.blockClient(objectPath).GetBlockList(ctx, blockblob.BlockListTypeUncommitted, nil)
			if listErr == nil && len(listResp.UncommittedBlocks) > 0 {
				blockIDs = existing.BlockIDs
				uploadedBytes = existing.UploadedBytes
				startBlock = int64(len(blockIDs))
				createdAt = existing.CreatedAt
				a.logger.Infof("Resuming upload from block %d/%d (%.1f%%)",
					startBlock+1, numBlocks, float64(uploadedBytes)/float64(totalSize)*100)
			} else {
				a.logger.Infof("Previous staged blocks expired, starting fresh")
				DeleteUploadState(localPath)
			}
		} else {
			DeleteUploadState(localPath)
		}
	}

	if startBlock == 0 {
		blockIDs = make([]string, 0, numBlocks)
		uploadedBytes = 0
		createdAt = time.Now()

		SaveUploadState(&UploadResumeState{
			LocalPath:   localPath,
			ObjectPath:  objectPath,
			TotalSize:   totalSize,
			BlockIDs:    []string{},
			StorageType: models.AzureStorage,
			CreatedAt:   createdAt,
			LastUpdate:  time.Now(),
		}, localPath)
	} else {
		if _, seekErr := file.Seek(startBlock*blockSize, io.SeekStart); seekErr != nil {
			return fmt.Errorf("failed to seek to resume position: %w", seekErr)
		}
	}

	buffer := make([]byte, blockSize)

	for blockNum := startBlock; blockNum < numBlocks; blockNum++ {
		chunkSize := int64(blockSize)
		if blockNum == numBlocks-1 {
			chunkSize = totalSize - blockNum*blockSize
		}

		n, err := io.ReadFull(file, buffer[:chunkSize])
		if err != nil && err != io.ErrUnexpectedEOF {
			return fmt.Errorf("failed to read block %d: %w", blockNum, err)
		}
		blockData := make([]byte, n)
		copy(blockData, buffer[:n])

		// Block IDs must be base64 and equal length, so zero-pad the index.
		blockID := base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("block-%010d", blockNum)))
		blockIDs = append(blockIDs, blockID)

		err = a.retryWithBackoff(ctx, fmt.Sprintf("StageBlock %d/%d", blockNum+1, numBlocks), func() error {
			reader := &readSeekCloser{Reader: bytes.NewReader(blockData)}
			_, err := a.blockClient(objectPath).StageBlock(ctx, blockID, reader, nil)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to stage block %d: %w", blockNum, err)
		}

		uploadedBytes += int64(n)
		if progress != nil {
			progress(stagedFraction(uploadedBytes, totalSize))
		}

		SaveUploadState(&UploadResumeState{
			LocalPath:     localPath,
			ObjectPath:    objectPath,
			TotalSize:     totalSize,
			UploadedBytes: uploadedBytes,
			BlockIDs:      blockIDs,
			StorageType:   models.AzureStorage,
			CreatedAt:     createdAt,
			LastUpdate:    time.Now(),
		}, localPath)
	}

	err = a.retryWithBackoff(ctx, "CommitBlockList", func() error {
		_, err := a.blockClient(objectPath).CommitBlockList(ctx, blockIDs, nil)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to commit block list: %w", err)
	}

	if progress != nil {
		progress(1.0)
	}

	return nil
}

// Download streams the blob into w.
func (a *AzureStore) Download(ctx context.Context, objectPath string, w io.Writer, progress ProgressCallback) error {
	var resp azblob.DownloadStreamResponse
	err := a.retryWithBackoff(ctx, "DownloadStream", func() error {
		a.clientMu.Lock()
		client := a.client
		a.clientMu.Unlock()

		var err error
		resp, err = client.DownloadStream(ctx, a.info.Container, objectPath, nil)
		return err
	})
	if err != nil {
		return fmt.Errorf("Azure download failed: %w", err)
	}
	defer resp.Body.Close()

	var total int64
	if resp.ContentLength != nil {
		total = *resp.ContentLength
	}

	return copyWithProgress(ctx, w, resp.Body, total, progress)
}

// Delete removes the blob. A missing blob is treated as success.
func (a *AzureStore) Delete(ctx context.Context, objectPath string) error {
	err := a.retryWithBackoff(ctx, "DeleteBlob", func() error {
		a.clientMu.Lock()
		client := a.client
		a.clientMu.Unlock()

		_, err := client.DeleteBlob(ctx, a.info.Container, objectPath, nil)
		return err
	})
	if err != nil {
		if strings.Contains(err.Error(), "BlobNotFound") {
			return nil
		}
		return fmt.Errorf("Azure delete failed: %w", err)
	}
	return nil
}

// PublicURL joins the storage's public base with the object path.
func (a *AzureStore) PublicURL(objectPath string) string {
	if a.info.PublicBase == "" {
		return ""
	}
	return strings.TrimRight(a.info.PublicBase, "/") + "/" + strings.TrimLeft(objectPath, "/")
}
