package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrhgit/loginweb-cli/internal/models"
)

func TestCachedGrantFuncReusesFreshGrant(t *testing.T) {
	calls := 0
	fn := CachedGrantFunc(func(ctx context.Context) (*models.StorageGrant, error) {
		calls++
		return &models.StorageGrant{
			Storage: models.StorageInfo{StorageType: models.S3Storage},
			S3:      &models.S3Credentials{AccessKeyID: "AKID", Expiration: time.Now().Add(time.Hour)},
		}, nil
	})

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		grant, err := fn(ctx)
		require.NoError(t, err)
		assert.Equal(t, "AKID", grant.S3.AccessKeyID)
	}
	assert.Equal(t, 1, calls)
}

func TestCachedGrantFuncRefreshesNearExpiry(t *testing.T) {
	calls := 0
	fn := CachedGrantFunc(func(ctx context.Context) (*models.StorageGrant, error) {
		calls++
		// Inside the refresh window, so every call re-fetches.
		return &models.StorageGrant{
			S3: &models.S3Credentials{Expiration: time.Now().Add(time.Minute)},
		}, nil
	})

	ctx := context.Background()
	_, err := fn(ctx)
	require.NoError(t, err)
	_, err = fn(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCachedGrantFuncDoesNotCacheErrors(t *testing.T) {
	calls := 0
	fn := CachedGrantFunc(func(ctx context.Context) (*models.StorageGrant, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("credential service down")
		}
		return &models.StorageGrant{
			Azure: &models.AzureCredentials{SASToken: "sv=...", Expiration: time.Now().Add(time.Hour)},
		}, nil
	})

	ctx := context.Background()
	_, err := fn(ctx)
	require.Error(t, err)

	grant, err := fn(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sv=...", grant.Azure.SASToken)
	assert.Equal(t, 2, calls)
}
