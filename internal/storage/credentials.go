package storage

import (
	"context"
	"sync"
	"time"

	"github.com/hrhgit/loginweb-cli/internal/models"
)

// refreshWindow is how long before expiry a cached grant is considered stale.
const refreshWindow = 5 * time.Minute

// CachedGrantFunc wraps fn so repeated calls reuse the last grant until it
// nears expiry. Retry loops refresh credentials before every attempt, so
// without this cache each chunk of a transfer would hit the platform.
func CachedGrantFunc(fn GrantFunc) GrantFunc {
	var mu sync.Mutex
	var cached *models.StorageGrant
	var expiry time.Time

	return func(ctx context.Context) (*models.StorageGrant, error) {
		mu.Lock()
		defer mu.Unlock()

		if cached != nil && time.Now().Before(expiry.Add(-refreshWindow)) {
			return cached, nil
		}

		grant, err := fn(ctx)
		if err != nil {
			return nil, err
		}

		cached = grant
		expiry = grantExpiry(grant)
		return grant, nil
	}
}

// grantExpiry picks the earliest credential expiry in the grant. Grants
// without an expiry get a conservative short lifetime.
func grantExpiry(grant *models.StorageGrant) time.Time {
	var expiry time.Time
	if grant.S3 != nil && !grant.S3.Expiration.IsZero() {
		expiry = grant.S3.Expiration
	}
	if grant.Azure != nil && !grant.Azure.Expiration.IsZero() {
		if expiry.IsZero() || grant.Azure.Expiration.Before(expiry) {
			expiry = grant.Azure.Expiration
		}
	}
	if expiry.IsZero() {
		return time.Now().Add(10 * time.Minute)
	}
	return expiry
}
