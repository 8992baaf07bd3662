package models

import "time"

// Storage backend types reported by the platform.
const (
	S3Storage    = "S3Storage"
	AzureStorage = "AzureStorage"
)

// StorageInfo describes the object storage backing an event's files.
type StorageInfo struct {
	ID          string `json:"id"`
	StorageType string `json:"storage_type"` // "S3Storage" or "AzureStorage"
	Region      string `json:"region,omitempty"`
	Container   string `json:"container"` // S3 bucket or Azure container
	AccountName string `json:"account_name,omitempty"`
	PublicBase  string `json:"public_base,omitempty"` // base URL for public object access
}

// S3Credentials are platform-issued temporary credentials scoped to the
// event's bucket prefix.
type S3Credentials struct {
	AccessKeyID  string    `json:"access_key_id"`
	SecretKey    string    `json:"secret_key"`
	SessionToken string    `json:"session_token"`
	Expiration   time.Time `json:"expiration"`
}

// AzureCredentials carry a container-scoped SAS token.
type AzureCredentials struct {
	SASToken   string    `json:"sas_token"`
	Expiration time.Time `json:"expiration"`
}

// StorageGrant is the platform's response to a credential request: which
// storage to talk to plus the matching temporary credentials.
type StorageGrant struct {
	Storage StorageInfo       `json:"storage"`
	S3      *S3Credentials    `json:"s3,omitempty"`
	Azure   *AzureCredentials `json:"azure,omitempty"`
}

// SignedURL is a time-limited capability URL for one storage object,
// optionally overriding the filename the browser saves it under.
type SignedURL struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
