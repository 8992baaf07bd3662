package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	nethttp "net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/hrhgit/loginweb-cli/internal/config"
	"github.com/hrhgit/loginweb-cli/internal/constants"
	"github.com/hrhgit/loginweb-cli/internal/http"
	"github.com/hrhgit/loginweb-cli/internal/logging"
	"github.com/hrhgit/loginweb-cli/internal/models"
)

// S3Store uploads and downloads event files in an S3 bucket using temporary
// credentials issued by the platform. The AWS client is rebuilt on credential
// refresh but the underlying HTTP client is reused to keep the connection pool.
type S3Store struct {
	client   *s3.Client
	info     models.StorageInfo
	grantFn  GrantFunc
	httpCli  *nethttp.Client
	clientMu sync.Mutex
	logger   *logging.Logger
}

// NewS3Store creates an S3 store from a storage grant.
func NewS3Store(cfg *config.Config, info models.StorageInfo, creds *models.S3Credentials, grantFn GrantFunc, logger *logging.Logger) (*S3Store, error) {
	if creds == nil {
		return nil, fmt.Errorf("grant has no S3 credentials")
	}

	httpCli, err := http.CreateOptimizedClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(info.Region),
		awsconfig.WithHTTPClient(httpCli),
		awsconfig.WithCredentialsProvider(awscreds.NewStaticCredentialsProvider(
			creds.AccessKeyID,
			creds.SecretKey,
			creds.SessionToken,
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Store{
		client:  s3.NewFromConfig(awsCfg),
		info:    info,
		grantFn: grantFn,
		httpCli: httpCli,
		logger:  logger,
	}, nil
}

// ensureFreshCredentials requests a new grant and rebuilds the S3 client.
// The existing HTTP client is reused to preserve pooled connections.
func (s *S3Store) ensureFreshCredentials(ctx context.Context) error {
	if s.grantFn == nil {
		return fmt.Errorf("no grant refresher configured")
	}

	grant, err := s.grantFn(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh storage grant: %w", err)
	}
	if grant.S3 == nil {
		return fmt.Errorf("refreshed grant has no S3 credentials")
	}

	s.clientMu.Lock()
	defer s.clientMu.Unlock()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(s.info.Region),
		awsconfig.WithHTTPClient(s.httpCli),
		awsconfig.WithCredentialsProvider(awscreds.NewStaticCredentialsProvider(
			grant.S3.AccessKeyID,
			grant.S3.SecretKey,
			grant.S3.SessionToken,
		)),
	)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	s.client = s3.NewFromConfig(awsCfg)
	return nil
}

func (s *S3Store) getClient() *s3.Client {
	s.clientMu.Lock()
	defer s.clientMu.Unlock()
	return s.client
}

func (s *S3Store) retryWithBackoff(ctx context.Context, operation string, fn func() error) error {
	cfg := http.Config{
		MaxRetries:   constants.MaxRetries,
		InitialDelay: constants.RetryInitialDelay,
		MaxDelay:     constants.RetryMaxDelay,
		CredentialRefresh: func(ctx context.Context) error {
			return s.ensureFreshCredentials(ctx)
		},
		OnRetry: func(attempt int, err error, errorType http.ErrorType) {
			s.logger.Debugf("%s: retry %d/%d (%s): %v",
				operation, attempt, constants.MaxRetries, errorType, err)
		},
	}
	return http.ExecuteWithRetry(ctx, cfg, fn)
}

// Upload sends the file in a single PutObject request.
func (s *S3Store) Upload(ctx context.Context, localPath, objectPath string, progress ProgressCallback) error {
	if progress != nil {
		progress(0.0)
	}

	info, err := os.Stat(localPath)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	err = s.retryWithBackoff(ctx, "PutObject", func() error {
		file, err := os.Open(localPath)
		if err != nil {
			return fmt.Errorf("failed to open file: %w", err)
		}
		defer file.Close()

		_, err = s.getClient().PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(s.info.Container),
			Key:           aws.String(objectPath),
			Body:          file,
			ContentLength: aws.Int64(info.Size()),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("S3 upload failed: %w", err)
	}

	if progress != nil {
		progress(1.0)
	}
	return nil
}

// UploadResumable uploads the file via multipart upload, checkpointing after
// every part. Files at or below the multipart threshold go through Upload.
func (s *S3Store) UploadResumable(ctx context.Context, localPath, objectPath string, progress ProgressCallback) error {
	info, err := os.Stat(localPath)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	if info.Size() <= constants.MultipartThreshold {
		if err := s.Upload(ctx, localPath, objectPath, progress); err != nil {
			return err
		}
		return DeleteUploadState(localPath)
	}

	if err := s.uploadMultipart(ctx, localPath, objectPath, info.Size(), progress); err != nil {
		return err
	}

	return DeleteUploadState(localPath)
}

func (s *S3Store) uploadMultipart(ctx context.Context, localPath, objectPath string, totalSize int64, progress ProgressCallback) (err error) {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	const partSize = constants.ChunkSize
	totalParts := (totalSize + partSize - 1) / partSize

	var uploadID string
	var completedParts []types.CompletedPart
	var uploadedBytes int64
	startPart := int32(1)
	var createdAt time.Time

	// Resume a previous attempt when the checkpoint is valid and the
	// multipart upload still exists server-side.
	if existing, _ := LoadUploadState(localPath); existing != nil {
		if verr := ValidateUploadState(existing, localPath); verr == nil && existing.UploadID != "" {
			_, listErr := s.getClient().ListParts(ctx, &s3.ListPartsInput{
				Bucket:   aws.String(s.info.Container),
				Key:      aws.String(existing.ObjectPath),
				UploadId: aws.String(existing.UploadID),
			})
			if listErr == nil {
				uploadID = existing.UploadID
				objectPath = existing.ObjectPath
				completedParts = toSDKParts(existing.CompletedParts)
				uploadedBytes = existing.UploadedBytes
				startPart = int32(len(existing.CompletedParts)) + 1
				createdAt = existing.CreatedAt
				s.logger.Infof("Resuming upload from part %d/%d (%.1f%%)",
					startPart, totalParts, float64(uploadedBytes)/float64(totalSize)*100)
			} else {
				s.logger.Infof("Previous upload expired, starting fresh")
				DeleteUploadState(localPath)
			}
		} else {
			DeleteUploadState(localPath)
		}
	}

	if uploadID == "" {
		var createResp *s3.CreateMultipartUploadOutput
		err = s.retryWithBackoff(ctx, "CreateMultipartUpload", func() error {
			var err error
			createResp, err = s.getClient().CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
				Bucket: aws.String(s.info.Container),
				Key:    aws.String(objectPath),
			})
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to create multipart upload: %w", err)
		}
		uploadID = *createResp.UploadId
		createdAt = time.Now()

		SaveUploadState(&UploadResumeState{
			LocalPath:      localPath,
			ObjectPath:     objectPath,
			UploadID:       uploadID,
			TotalSize:      totalSize,
			CompletedParts: []CompletedPart{},
			StorageType:    models.S3Storage,
			CreatedAt:      createdAt,
			LastUpdate:     time.Now(),
		}, localPath)
	}

	// Abort on fatal failure but keep the resume state for a later retry.
	defer func() {
		if err != nil {
			s.getClient().AbortMultipartUpload(context.Background(), &s3.AbortMultipartUploadInput{
				Bucket:   aws.String(s.info.Container),
				Key:      aws.String(objectPath),
				UploadId: aws.String(uploadID),
			})
		}
	}()

	if startPart > 1 {
		if _, seekErr := file.Seek(int64(startPart-1)*partSize, io.SeekStart); seekErr != nil {
			return fmt.Errorf("failed to seek to resume position: %w", seekErr)
		}
	}

	buffer := make([]byte, partSize)
	partNumber := startPart

	for {
		n, readErr := io.ReadFull(file, buffer)
		if readErr == io.EOF {
			break
		}
		if readErr != nil && readErr != io.ErrUnexpectedEOF {
			return fmt.Errorf("failed to read file chunk: %w", readErr)
		}
		partData := make([]byte, n)
		copy(partData, buffer[:n])

		currentPart := partNumber
		partCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)

		var uploadResp *s3.UploadPartOutput
		err = s.retryWithBackoff(partCtx, fmt.Sprintf("UploadPart %d/%d", currentPart, totalParts), func() error {
			var err error
			uploadResp, err = s.getClient().UploadPart(partCtx, &s3.UploadPartInput{
				Bucket:        aws.String(s.info.Container),
				Key:           aws.String(objectPath),
				PartNumber:    aws.Int32(currentPart),
				UploadId:      aws.String(uploadID),
				Body:          bytes.NewReader(partData),
				ContentLength: aws.Int64(int64(len(partData))),
			})
			return err
		})
		cancel()
		if err != nil {
			return fmt.Errorf("failed to upload part %d/%d after retries: %w", currentPart, totalParts, err)
		}

		completedParts = append(completedParts, types.CompletedPart{
			ETag:       uploadResp.ETag,
			PartNumber: aws.Int32(currentPart),
		})

		uploadedBytes += int64(n)
		if progress != nil {
			progress(stagedFraction(uploadedBytes, totalSize))
		}

		SaveUploadState(&UploadResumeState{
			LocalPath:      localPath,
			ObjectPath:     objectPath,
			UploadID:       uploadID,
			TotalSize:      totalSize,
			UploadedBytes:  uploadedBytes,
			CompletedParts: fromSDKParts(completedParts),
			StorageType:    models.S3Storage,
			CreatedAt:      createdAt,
			LastUpdate:     time.Now(),
		}, localPath)

		partNumber++
		if int64(n) < partSize {
			break
		}
	}

	err = s.retryWithBackoff(ctx, "CompleteMultipartUpload", func() error {
		_, err := s.getClient().CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
			Bucket:   aws.String(s.info.Container),
			Key:      aws.String(objectPath),
			UploadId: aws.String(uploadID),
			MultipartUpload: &types.CompletedMultipartUpload{
				Parts: completedParts,
			},
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to complete multipart upload: %w", err)
	}

	if progress != nil {
		progress(1.0)
	}

	err = nil
	return nil
}

// Download streams the object into w.
func (s *S3Store) Download(ctx context.Context, objectPath string, w io.Writer, progress ProgressCallback) error {
	var resp *s3.GetObjectOutput
	err := s.retryWithBackoff(ctx, "GetObject", func() error {
		var err error
		resp, err = s.getClient().GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.info.Container),
			Key:    aws.String(objectPath),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("S3 download failed: %w", err)
	}
	defer resp.Body.Close()

	var total int64
	if resp.ContentLength != nil {
		total = *resp.ContentLength
	}

	return copyWithProgress(ctx, w, resp.Body, total, progress)
}

// Delete removes the object. A missing key is treated as success.
func (s *S3Store) Delete(ctx context.Context, objectPath string) error {
	err := s.retryWithBackoff(ctx, "DeleteObject", func() error {
		_, err := s.getClient().DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.info.Container),
			Key:    aws.String(objectPath),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("S3 delete failed: %w", err)
	}
	return nil
}

// PublicURL joins the storage's public base with the object path.
func (s *S3Store) PublicURL(objectPath string) string {
	if s.info.PublicBase == "" {
		return ""
	}
	return strings.TrimRight(s.info.PublicBase, "/") + "/" + strings.TrimLeft(objectPath, "/")
}

func toSDKParts(parts []CompletedPart) []types.CompletedPart {
	out := make([]types.CompletedPart, 0, len(parts))
	for _, p := range parts {
		out = append(out, types.CompletedPart{
			PartNumber: aws.Int32(p.PartNumber),
			ETag:       aws.String(p.ETag),
		})
	}
	return out
}

func fromSDKParts(parts []types.CompletedPart) []CompletedPart {
	out := make([]CompletedPart, 0, len(parts))
	for _, p := range parts {
		cp := CompletedPart{}
		if p.PartNumber != nil {
			cp.PartNumber = *p.PartNumber
		}
		if p.ETag != nil {
			cp.ETag = *p.ETag
		}
		out = append(out, cp)
	}
	return out
}

// copyWithProgress copies src to dst in chunks, checking ctx between reads
// and reporting cumulative progress when the total size is known.
func copyWithProgress(ctx context.Context, dst io.Writer, src io.Reader, total int64, progress ProgressCallback) error {
	buf := make([]byte, 256*1024)
	var copied int64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			if _, writeErr := dst.Write(buf[:n]); writeErr != nil {
				return fmt.Errorf("write failed: %w", writeErr)
			}
			copied += int64(n)
			if progress != nil && total > 0 {
				progress(float64(copied) / float64(total))
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("read failed: %w", readErr)
		}
	}
}
