package constants

import (
	"time"
)

// Application identity
const (
	// AppName is the binary/config directory name.
	AppName = "loginweb"
)

// Storage transfer thresholds
const (
	// MultipartThreshold - files larger than this use multipart/block upload (100 MB).
	// Below the threshold a single PUT is cheaper than the extra round trips.
	MultipartThreshold = 100 * 1024 * 1024

	// ChunkSize - size of each transfer chunk (16 MB).
	// Used as the part size for S3 multipart uploads, the block size for
	// Azure staged uploads, and the read size for downloads.
	//
	// Trade-offs:
	// - Smaller chunks = more HTTP requests but finer progress and resume granularity
	// - Larger chunks = better throughput but coarser progress updates
	ChunkSize = 16 * 1024 * 1024

	// MinPartSize - AWS S3 minimum part size (5 MB, except last part).
	MinPartSize = 5 * 1024 * 1024
)

// Retry configuration
const (
	// MaxRetries - maximum number of retries for transient errors.
	MaxRetries = 10

	// RetryInitialDelay - initial delay before first retry.
	RetryInitialDelay = 200 * time.Millisecond

	// RetryMaxDelay - maximum delay between retries.
	// Exponential backoff with jitter caps at this value.
	RetryMaxDelay = 15 * time.Second
)

// Batch acquisition
const (
	// FetchSpacing - pause between items in spaced sequential download mode.
	// Matches the web client, which spaced triggered downloads one second
	// apart to stay under popup-blocking heuristics.
	FetchSpacing = 1 * time.Second

	// DefaultArchiveExt is used when a storage path carries no extension.
	DefaultArchiveExt = "zip"

	// SignedURLExpiry - lifetime requested for signed download URLs.
	SignedURLExpiry = 15 * time.Minute
)

// Preview / verification
const (
	// PreviewTimeout - per-attempt timeout when probing a cover image.
	PreviewTimeout = 10 * time.Second

	// PreviewRetries - bounded retry count for cover image probes.
	PreviewRetries = 3
)

// Resume state
const (
	// MaxResumeAge - resume state older than this is discarded.
	// Aligned with AWS multipart upload expiry and Azure uncommitted
	// block expiry (both 7 days).
	MaxResumeAge = 7 * 24 * time.Hour
)

// HTTP client tuning
const (
	HTTPDialTimeout           = 30 * time.Second
	HTTPDialKeepAlive         = 30 * time.Second
	HTTPIdleConnTimeout       = 90 * time.Second
	HTTPTLSHandshakeTimeout   = 30 * time.Second
	HTTPExpectContinueTimeout = 5 * time.Second
)
