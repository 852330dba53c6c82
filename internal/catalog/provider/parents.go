package provider

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/narwhalmedia/catalog/internal/catalog/domain"
	"github.com/narwhalmedia/catalog/pkg/interfaces"
)

// ParentInfo is the subset of series metadata copied onto episodes. The
// series' external ids are not part of it: they identify the series, not
// the episode.
type ParentInfo struct {
	ID          string
	Title       string
	Year        int
	PosterURL   string
	BackdropURL string
}

// ParentFetchFunc loads one parent by id.
type ParentFetchFunc func(ctx context.Context, id string) (*ParentInfo, error)

// ParentResolver batch-fetches parent metadata once per unique parent id.
// Fetch failures are logged and the affected items keep what they have.
type ParentResolver struct {
	fetch       ParentFetchFunc
	cache       interfaces.Cache
	ttl         time.Duration
	concurrency int
	logger      interfaces.Logger
}

// NewParentResolver creates a resolver. cache may be nil.
func NewParentResolver(fetch ParentFetchFunc, cache interfaces.Cache, ttl time.Duration, logger interfaces.Logger) *ParentResolver {
	return &ParentResolver{
		fetch:       fetch,
		cache:       cache,
		ttl:         ttl,
		concurrency: 4,
		logger:      logger,
	}
}

func cacheKey(id string) string {
	return "parent:" + id
}

// Resolve returns the parents it could load, keyed by id.
func (r *ParentResolver) Resolve(ctx context.Context, ids []string) map[string]*ParentInfo {
	out := make(map[string]*ParentInfo)
	var missing []string
	seen := make(map[string]bool)

	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		if r.cache != nil {
			if v, err := r.cache.Get(ctx, cacheKey(id)); err == nil {
				if p, ok := v.(*ParentInfo); ok {
					out[id] = p
					continue
				}
			}
		}
		missing = append(missing, id)
	}

	if len(missing) == 0 {
		return out
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, id := range missing {
		g.Go(func() error {
			p, err := r.fetch(gctx, id)
			if err != nil {
				r.logger.Warn("Failed to fetch parent metadata",
					interfaces.String("parent_id", id),
					interfaces.Error(err))
				return nil
			}
			if p == nil {
				return nil
			}
			if r.cache != nil {
				_ = r.cache.Set(gctx, cacheKey(id), p, r.ttl)
			}
			mu.Lock()
			out[id] = p
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return out
}

// Apply resolves the parents of every episode in items and fills the
// fields the episode does not carry itself.
func (r *ParentResolver) Apply(ctx context.Context, items []*domain.MediaMetadata) {
	var ids []string
	for _, item := range items {
		if item.Type == domain.MediaTypeEpisode && item.SeriesID != "" {
			ids = append(ids, item.SeriesID)
		}
	}
	if len(ids) == 0 {
		return
	}

	parents := r.Resolve(ctx, ids)
	for _, item := range items {
		p, ok := parents[item.SeriesID]
		if !ok || item.Type != domain.MediaTypeEpisode {
			continue
		}
		if item.SeriesTitle == "" {
			item.SeriesTitle = p.Title
		}
		if item.Year == 0 {
			item.Year = p.Year
		}
		if item.PosterURL == "" {
			item.PosterURL = p.PosterURL
		}
		if item.BackdropURL == "" {
			item.BackdropURL = p.BackdropURL
		}
	}
}
