package storage

import (
	"fmt"

	"github.com/hrhgit/loginweb-cli/internal/config"
	"github.com/hrhgit/loginweb-cli/internal/logging"
	"github.com/hrhgit/loginweb-cli/internal/models"
)

// NewStore builds the ObjectStore matching the grant's storage type.
func NewStore(cfg *config.Config, grant *models.StorageGrant, grantFn GrantFunc, logger *logging.Logger) (ObjectStore, error) {
	if grant == nil {
		return nil, fmt.Errorf("nil storage grant")
	}

	switch grant.Storage.StorageType {
	case models.S3Storage:
		return NewS3Store(cfg, grant.Storage, grant.S3, grantFn, logger)
	case models.AzureStorage:
		return NewAzureStore(cfg, grant.Storage, grant.Azure, grantFn, logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %q", grant.Storage.StorageType)
	}
}
