package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// cachedCatalog memoizes the follow-up flag, which changes only when the
// catalog is edited.
type cachedCatalog struct {
	inner CatalogRepository
	cache *cache.Cache
}

func NewCachedCatalog(inner CatalogRepository, ttl, cleanup time.Duration) CatalogRepository {
	return &cachedCatalog{
		inner: inner,
		cache: cache.New(ttl, cleanup),
	}
}

func (c *cachedCatalog) RequiresFollowUp(ctx context.Context, dentalServiceID uuid.UUID) (bool, error) {
	key := dentalServiceID.String()
	if v, found := c.cache.Get(key); found {
		return v.(bool), nil
	}

	requires, err := c.inner.RequiresFollowUp(ctx, dentalServiceID)
	if err != nil {
		return false, err
	}
	c.cache.Set(key, requires, cache.DefaultExpiration)
	return requires, nil
}
