package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/hrhgit/loginweb-cli/internal/config"
	"github.com/hrhgit/loginweb-cli/internal/http"
	"github.com/hrhgit/loginweb-cli/internal/logging"
	"github.com/hrhgit/loginweb-cli/internal/models"
	"github.com/hrhgit/loginweb-cli/internal/version"
)

// retryLogger adapts our logger to the retryablehttp.LeveledLogger interface.
// Info/Debug are dropped; retries themselves are the interesting part.
type retryLogger struct {
	log *logging.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.Errorf("retry: %s %v", msg, keysAndValues)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.Warnf("retry: %s %v", msg, keysAndValues)
}

// Client talks to the loginweb platform: row-filtered reads and writes on
// the record collections, storage credential issuance, and signed URLs.
type Client struct {
	httpClient *nethttp.Client
	config     *config.Config
	baseURL    string
	apiKey     string
}

// NewClient creates a platform API client with proxy support and automatic
// retries on transient failures.
func NewClient(cfg *config.Config, logger *logging.Logger) (*Client, error) {
	if err := cfg.ValidateForConnection(); err != nil {
		return nil, err
	}

	httpClient, err := http.ConfigureHTTPClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = httpClient
	retryClient.RetryMax = 5
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 30 * time.Second
	if logger != nil {
		retryClient.Logger = &retryLogger{log: logger}
	} else {
		retryClient.Logger = nil
	}

	return &Client{
		httpClient: retryClient.StandardClient(),
		config:     cfg,
		baseURL:    strings.TrimSuffix(cfg.PlatformURL, "/"),
		apiKey:     cfg.APIKey,
	}, nil
}

// GetConfig returns the configuration used by this client. The storage
// layer uses it to build its own HTTP clients with the same proxy settings.
func (c *Client) GetConfig() *config.Config {
	return c.config
}

// doRequest performs an authenticated request against the platform.
// extra headers (Prefer, etc.) may be nil.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, headers map[string]string, body interface{}) (*nethttp.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := nethttp.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// getJSON performs a GET and decodes the response body into out.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	resp, err := c.doRequest(ctx, nethttp.MethodGet, path, query, nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK {
		return responseError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// ListRegistrations returns every registration for an event, joined with
// the registering user, in creation order.
func (c *Client) ListRegistrations(ctx context.Context, eventID string) ([]models.Registration, error) {
	q := url.Values{}
	q.Set("event_id", "eq."+eventID)
	q.Set("select", "*,user:users(id,name,email)")
	q.Set("order", "created_at.asc")

	var regs []models.Registration
	if err := c.getJSON(ctx, "/rest/v1/registrations", q, &regs); err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	return regs, nil
}

// ListQuestions returns the event's dynamic form schema in display order.
func (c *Client) ListQuestions(ctx context.Context, eventID string) ([]models.Question, error) {
	q := url.Values{}
	q.Set("event_id", "eq."+eventID)
	q.Set("order", "position.asc")

	var questions []models.Question
	if err := c.getJSON(ctx, "/rest/v1/questions", q, &questions); err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, nil
}

// ListSubmissions returns every submission for an event, joined with the
// owning team, in creation order. This order is what batch downloads use
// for ordinals.
func (c *Client) ListSubmissions(ctx context.Context, eventID string) ([]models.Submission, error) {
	q := url.Values{}
	q.Set("event_id", "eq."+eventID)
	q.Set("select", "*,team:teams(id,name)")
	q.Set("order", "created_at.asc")

	var subs []models.Submission
	if err := c.getJSON(ctx, "/rest/v1/submissions", q, &subs); err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return subs, nil
}

// GetSubmission returns the submission for (eventID, teamID), or
// ErrNotFound when the team has not submitted.
func (c *Client) GetSubmission(ctx context.Context, eventID, teamID string) (*models.Submission, error) {
	q := url.Values{}
	q.Set("event_id", "eq."+eventID)
	q.Set("team_id", "eq."+teamID)
	q.Set("select", "*,team:teams(id,name)")
	q.Set("limit", "1")

	var subs []models.Submission
	if err := c.getJSON(ctx, "/rest/v1/submissions", q, &subs); err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	if len(subs) == 0 {
		return nil, ErrNotFound
	}
	return &subs[0], nil
}

// UpsertSubmission creates or replaces the submission keyed on
// (event_id, team_id) and returns the stored representation.
func (c *Client) UpsertSubmission(ctx context.Context, sub *models.Submission) (*models.Submission, error) {
	q := url.Values{}
	q.Set("on_conflict", "event_id,team_id")

	headers := map[string]string{
		"Prefer": "resolution=merge-duplicates,return=representation",
	}

	resp, err := c.doRequest(ctx, nethttp.MethodPost, "/rest/v1/submissions", q, headers, sub)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK && resp.StatusCode != nethttp.StatusCreated {
		return nil, fmt.Errorf("failed to upsert submission: %w", responseError(resp))
	}

	var stored []models.Submission
	if err := json.NewDecoder(resp.Body).Decode(&stored); err != nil {
		return nil, fmt.Errorf("failed to decode upsert response: %w", err)
	}
	if len(stored) == 0 {
		return nil, fmt.Errorf("upsert returned no representation")
	}
	return &stored[0], nil
}

// UpdateSubmission patches an existing submission by record id (edit mode)
// and returns the stored representation.
func (c *Client) UpdateSubmission(ctx context.Context, id string, sub *models.Submission) (*models.Submission, error) {
	q := url.Values{}
	q.Set("id", "eq."+id)

	headers := map[string]string{
		"Prefer": "return=representation",
	}

	resp, err := c.doRequest(ctx, nethttp.MethodPatch, "/rest/v1/submissions", q, headers, sub)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK {
		return nil, fmt.Errorf("failed to update submission: %w", responseError(resp))
	}

	var stored []models.Submission
	if err := json.NewDecoder(resp.Body).Decode(&stored); err != nil {
		return nil, fmt.Errorf("failed to decode update response: %w", err)
	}
	if len(stored) == 0 {
		return nil, ErrNotFound
	}
	return &stored[0], nil
}

// DeleteSubmission removes a submission row by record id. Only draft rows
// are ever deleted through this client; the caller checks the status.
func (c *Client) DeleteSubmission(ctx context.Context, id string) error {
	q := url.Values{}
	q.Set("id", "eq."+id)

	resp, err := c.doRequest(ctx, nethttp.MethodDelete, "/rest/v1/submissions", q, nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK && resp.StatusCode != nethttp.StatusNoContent {
		return fmt.Errorf("failed to delete submission %s: %w", id, responseError(resp))
	}
	return nil
}

// GetStorageGrant requests temporary scoped credentials for the event's
// object storage. Credentials expire after ~15 minutes; callers refresh
// through the storage layer.
func (c *Client) GetStorageGrant(ctx context.Context) (*models.StorageGrant, error) {
	resp, err := c.doRequest(ctx, nethttp.MethodPost, "/storage/v1/credentials", nil, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK {
		return nil, fmt.Errorf("failed to get storage credentials: %w", responseError(resp))
	}

	var grant models.StorageGrant
	if err := json.NewDecoder(resp.Body).Decode(&grant); err != nil {
		return nil, fmt.Errorf("failed to decode storage grant: %w", err)
	}
	return &grant, nil
}

// signRequest is the body of a signed URL request.
type signRequest struct {
	Path      string `json:"path"`
	ExpiresIn int    `json:"expires_in"` // seconds
	Download  string `json:"download,omitempty"`
}

// CreateSignedURL issues a time-limited download URL for a storage object.
// downloadName, when non-empty, overrides the filename the object is saved
// under on the receiving side.
func (c *Client) CreateSignedURL(ctx context.Context, storagePath string, expiry time.Duration, downloadName string) (*models.SignedURL, error) {
	body := signRequest{
		Path:      storagePath,
		ExpiresIn: int(expiry.Seconds()),
		Download:  downloadName,
	}

	resp, err := c.doRequest(ctx, nethttp.MethodPost, "/storage/v1/sign", nil, nil, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK {
		return nil, fmt.Errorf("failed to sign %s: %w", storagePath, responseError(resp))
	}

	var signed models.SignedURL
	if err := json.NewDecoder(resp.Body).Decode(&signed); err != nil {
		return nil, fmt.Errorf("failed to decode signed URL: %w", err)
	}
	return &signed, nil
}
