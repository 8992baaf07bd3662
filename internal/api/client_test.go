package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrhgit/loginweb-cli/internal/config"
	"github.com/hrhgit/loginweb-cli/internal/models"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.New()
	cfg.PlatformURL = server.URL
	cfg.APIKey = "test-key"
	cfg.EventID = "ev1"

	client, err := NewClient(cfg, nil)
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresConfig(t *testing.T) {
	cfg := config.New() // no API key
	_, err := NewClient(cfg, nil)
	assert.ErrorIs(t, err, config.ErrMissingAPIKey)
}

func TestListSubmissions(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/submissions", r.URL.Path)
		assert.Equal(t, "eq.ev1", r.URL.Query().Get("event_id"))
		assert.Equal(t, "*,team:teams(id,name)", r.URL.Query().Get("select"))
		assert.Equal(t, "created_at.asc", r.URL.Query().Get("order"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode([]models.Submission{
			{ID: "s1", TeamID: "t1", ProjectName: "Rocket", Mode: models.ModeFile, StoragePath: "a.zip"},
			{ID: "s2", TeamID: "t2", ProjectName: "Glider", Mode: models.ModeLink, RepoURL: "https://example.com"},
		})
	}))

	subs, err := client.ListSubmissions(context.Background(), "ev1")
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "Rocket", subs[0].ProjectName)
	assert.True(t, subs[0].Downloadable())
	assert.False(t, subs[1].Downloadable())
}

func TestGetSubmissionNotFound(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]models.Submission{})
	}))

	_, err := client.GetSubmission(context.Background(), "ev1", "t-missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertSubmission(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "event_id,team_id", r.URL.Query().Get("on_conflict"))
		assert.Equal(t, "resolution=merge-duplicates,return=representation", r.Header.Get("Prefer"))

		var sub models.Submission
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sub))
		sub.ID = "row-1"

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode([]models.Submission{sub})
	}))

	sub := &models.Submission{EventID: "ev1", TeamID: "t1", ProjectName: "Rocket", Mode: models.ModeFile, StoragePath: "a.zip"}
	saved, err := client.UpsertSubmission(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, "row-1", saved.ID)
	assert.Equal(t, "Rocket", saved.ProjectName)
}

func TestUpdateSubmissionPatchesByID(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/rest/v1/submissions", r.URL.Path)
		assert.Equal(t, "eq.row-1", r.URL.Query().Get("id"))
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))

		var sub models.Submission
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sub))
		sub.ID = "row-1"
		json.NewEncoder(w).Encode([]models.Submission{sub})
	}))

	sub := &models.Submission{EventID: "ev1", TeamID: "t1", ProjectName: "Rocket v2", Mode: models.ModeFile, StoragePath: "b.zip"}
	saved, err := client.UpdateSubmission(context.Background(), "row-1", sub)
	require.NoError(t, err)
	assert.Equal(t, "row-1", saved.ID)
	assert.Equal(t, "Rocket v2", saved.ProjectName)
}

func TestDeleteSubmission(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/rest/v1/submissions", r.URL.Path)
		assert.Equal(t, "eq.row-1", r.URL.Query().Get("id"))
		w.WriteHeader(http.StatusNoContent)
	}))

	err := client.DeleteSubmission(context.Background(), "row-1")
	require.NoError(t, err)
}

func TestListRegistrationsJoinsUser(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/registrations", r.URL.Path)
		assert.Equal(t, "*,user:users(id,name,email)", r.URL.Query().Get("select"))

		json.NewEncoder(w).Encode([]models.Registration{
			{ID: "r1", Status: "approved", User: &models.User{Name: "Ada", Email: "ada@example.com"},
				Answers: map[string]string{"q1": "M"}},
		})
	}))

	regs, err := client.ListRegistrations(context.Background(), "ev1")
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, "Ada", regs[0].User.Name)
	assert.Equal(t, "M", regs[0].Answer("q1"))
	assert.Equal(t, "", regs[0].Answer("q-unknown"))
}

func TestUnauthorizedMapsToSentinel(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "JWT expired"})
	}))

	_, err := client.ListSubmissions(context.Background(), "ev1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.True(t, IsAuthError(err))
	assert.Contains(t, err.Error(), "JWT expired")
}

func TestGetStorageGrant(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/storage/v1/credentials", r.URL.Path)

		json.NewEncoder(w).Encode(models.StorageGrant{
			Storage: models.StorageInfo{StorageType: models.S3Storage, Region: "us-east-1", Container: "events"},
			S3:      &models.S3Credentials{AccessKeyID: "AKID", SecretKey: "secret", SessionToken: "token"},
		})
	}))

	grant, err := client.GetStorageGrant(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.S3Storage, grant.Storage.StorageType)
	require.NotNil(t, grant.S3)
	assert.Equal(t, "AKID", grant.S3.AccessKeyID)
	assert.Nil(t, grant.Azure)
}

func TestCreateSignedURL(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/storage/v1/sign", r.URL.Path)

		var body struct {
			Path      string `json:"path"`
			ExpiresIn int    `json:"expires_in"`
			Download  string `json:"download"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "events/ev1/a.zip", body.Path)
		assert.Equal(t, 900, body.ExpiresIn)
		assert.Equal(t, "001-Team-Project.zip", body.Download)

		json.NewEncoder(w).Encode(models.SignedURL{URL: "https://cdn.example.com/signed"})
	}))

	signed, err := client.CreateSignedURL(context.Background(), "events/ev1/a.zip", 15*time.Minute, "001-Team-Project.zip")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/signed", signed.URL)
}
