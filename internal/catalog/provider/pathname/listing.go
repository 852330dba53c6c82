package pathname

import (
	"context"
	"time"

	"github.com/narwhalmedia/catalog/pkg/utils"
)

// ListingTTL is how long a grouped library listing is reused across the
// page requests of one pass.
const ListingTTL = 30 * time.Second

// Listings caches the grouped listing of each library so that paging through
// a library lists the source once. A request at offset zero starts a new pass
// and always lists afresh.
type Listings struct {
	cache *utils.InMemoryCache
	ttl   time.Duration
}

// NewListings creates a listing cache. A non-positive ttl uses ListingTTL.
func NewListings(ttl time.Duration) *Listings {
	if ttl <= 0 {
		ttl = ListingTTL
	}
	return &Listings{cache: utils.NewInMemoryCache(0), ttl: ttl}
}

// Groups returns the cached listing of key, or calls list and caches its
// result. Cached groups are shared and must not be modified.
func (l *Listings) Groups(ctx context.Context, key string, offset int, list func() ([]*Group, error)) ([]*Group, error) {
	if offset > 0 {
		if v, err := l.cache.Get(ctx, key); err == nil {
			return v.([]*Group), nil
		}
	}

	groups, err := list()
	if err != nil {
		_ = l.cache.Delete(ctx, key)
		return nil, err
	}
	_ = l.cache.Set(ctx, key, groups, l.ttl)
	return groups, nil
}
