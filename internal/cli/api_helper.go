package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hrhgit/loginweb-cli/internal/api"
	"github.com/hrhgit/loginweb-cli/internal/config"
	"github.com/hrhgit/loginweb-cli/internal/http"
	"github.com/hrhgit/loginweb-cli/internal/storage"
)

// loadConfig loads configuration and applies flag overrides.
// Priority: flags > environment > config file.
func loadConfig() (*config.Config, error) {
	configPath := cfgFile
	if configPath == "" {
		var err error
		configPath, err = config.DefaultConfigPath()
		if err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if apiBaseURL != "" {
		cfg.PlatformURL = apiBaseURL
	}
	if eventID != "" {
		cfg.EventID = eventID
	}
	if tokenFile != "" {
		data, err := os.ReadFile(tokenFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read token file: %w", err)
		}
		cfg.APIKey = strings.TrimSpace(string(data))
	}
	if apiKey != "" {
		cfg.APIKey = apiKey
	}

	if err := cfg.ValidateForConnection(); err != nil {
		return nil, err
	}

	// An authenticated proxy with no password in the environment means we
	// have to ask for it before any connection is attempted.
	if http.NeedsProxyPassword(cfg) {
		password, err := promptSecret(fmt.Sprintf("Proxy password for %s", cfg.ProxyUser))
		if err != nil {
			return nil, err
		}
		cfg.ProxyPassword = password
	}

	return cfg, nil
}

// getAPIClient loads configuration and creates an API client.
// This is the standard way commands get a client.
func getAPIClient() (*api.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	client, err := api.NewClient(cfg, GetLogger())
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	return client, nil
}

// getStore requests a storage grant and builds the matching object store.
// The store refreshes its own credentials through the client when they
// expire mid-transfer.
func getStore(ctx context.Context, client *api.Client) (storage.ObjectStore, error) {
	grant, err := client.GetStorageGrant(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get storage credentials: %w", err)
	}

	grantFn := storage.CachedGrantFunc(client.GetStorageGrant)

	store, err := storage.NewStore(client.GetConfig(), grant, grantFn, GetLogger())
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return store, nil
}
