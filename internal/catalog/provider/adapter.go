// Package provider defines how the sync engine talks to catalog sources.
// Each source kind lives in its own subpackage and converts its native
// item shape into domain.MediaMetadata.
package provider

import (
	"context"
	"time"

	"github.com/narwhalmedia/catalog/internal/catalog/domain"
)

// PageRequest asks for one page of a library. Offset-paged sources use
// Offset; cursor-paged sources use Token.
type PageRequest struct {
	Offset        int
	Token         string
	Limit         int
	ModifiedSince *time.Time
}

// Page is one page of library items.
type Page struct {
	Items []*domain.MediaMetadata
	// Total is the library size when the source reports it, else 0.
	Total     int
	NextToken string
	Done      bool
}

// Capabilities declares optional source features.
type Capabilities struct {
	// ModifiedSinceFilter is true when the source filters by
	// PageRequest.ModifiedSince itself.
	ModifiedSinceFilter bool
}

// Adapter is implemented once per source kind.
type Adapter interface {
	GetLibraries(ctx context.Context) ([]domain.LibraryInfo, error)
	GetLibraryItems(ctx context.Context, libraryID string, req PageRequest) (*Page, error)
	GetItemMetadata(ctx context.Context, itemID string) (*domain.MediaMetadata, error)
	Capabilities() Capabilities
}

// PageFunc observes paging progress.
type PageFunc func(fetched, total int)

// FetchAll drains every page of a library. The context is checked between
// pages; an in-flight request is never interrupted by the engine.
func FetchAll(ctx context.Context, adapter Adapter, libraryID string, pageSize int, since *time.Time, onPage PageFunc) ([]*domain.MediaMetadata, int, error) {
	req := PageRequest{Limit: pageSize, ModifiedSince: since}
	var (
		items []*domain.MediaMetadata
		total int
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		page, err := adapter.GetLibraryItems(ctx, libraryID, req)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, page.Items...)
		if page.Total > total {
			total = page.Total
		}
		if onPage != nil {
			onPage(len(items), max(total, len(items)))
		}

		if page.Done || len(page.Items) == 0 {
			break
		}
		if page.NextToken != "" {
			req.Token = page.NextToken
			req.Offset += len(page.Items)
			continue
		}
		// Without a cursor, a short page or a reached total ends the library.
		if req.Token != "" || (req.Limit > 0 && len(page.Items) < req.Limit) || (total > 0 && len(items) >= total) {
			break
		}
		req.Offset += len(page.Items)
	}

	return items, max(total, len(items)), nil
}
