// Package mediaserver adapts Jellyfin and Emby servers. The two share an
// item API and differ only in how requests authenticate.
package mediaserver

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/narwhalmedia/catalog/internal/catalog/domain"
	"github.com/narwhalmedia/catalog/internal/catalog/provider"
	"github.com/narwhalmedia/catalog/pkg/config"
	pkgerrors "github.com/narwhalmedia/catalog/pkg/errors"
	"github.com/narwhalmedia/catalog/pkg/interfaces"
	"github.com/narwhalmedia/catalog/pkg/logger"
)

const itemFields = "MediaSources,Path,ProviderIds,DateLastSaved,DateModified,ProductionYear"

// Flavor captures what differs between server products.
type Flavor struct {
	Name       string
	SourceType domain.SourceType
	// AuthHeaders builds the per-request authentication headers.
	AuthHeaders func(src config.SourceConfig) http.Header
}

// Jellyfin authenticates with a MediaBrowser authorization header.
var Jellyfin = Flavor{
	Name:       "Jellyfin",
	SourceType: domain.SourceTypeJellyfin,
	AuthHeaders: func(src config.SourceConfig) http.Header {
		client := src.ClientName
		if client == "" {
			client = "catalog"
		}
		device := src.DeviceID
		if device == "" {
			device = "catalog-" + src.ID
		}
		h := http.Header{}
		h.Set("Authorization", fmt.Sprintf(
			`MediaBrowser Client=%q, Device=%q, DeviceId=%q, Version="1.0", Token=%q`,
			client, client, device, src.APIKey))
		return h
	},
}

// Emby authenticates with an API key header.
var Emby = Flavor{
	Name:       "Emby",
	SourceType: domain.SourceTypeEmby,
	AuthHeaders: func(src config.SourceConfig) http.Header {
		h := http.Header{}
		h.Set("X-Emby-Token", src.APIKey)
		return h
	},
}

// Options carries the shared settings for remote adapters.
type Options struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	ParentCache       interfaces.Cache
	ParentCacheTTL    time.Duration
	Logger            interfaces.Logger
}

// Adapter reads one Jellyfin or Emby server.
type Adapter struct {
	flavor  Flavor
	client  *provider.HTTPClient
	baseURL string
	userID  string
	parents *provider.ParentResolver
	logger  interfaces.Logger
}

// New creates an adapter for src.
func New(flavor Flavor, src config.SourceConfig, opts Options) *Adapter {
	if opts.Logger == nil {
		opts.Logger = logger.NewNoopLogger()
	}
	a := &Adapter{
		flavor:  flavor,
		client:  provider.NewHTTPClient(src.URL, opts.Timeout, opts.RequestsPerSecond, flavor.AuthHeaders(src)),
		baseURL: strings.TrimRight(src.URL, "/"),
		userID:  src.UserID,
		logger:  opts.Logger.WithFields(interfaces.String("source_id", src.ID)),
	}
	a.parents = provider.NewParentResolver(a.fetchSeries, opts.ParentCache, opts.ParentCacheTTL, a.logger)
	return a
}

// Factory returns a provider.Factory for the flavor.
func Factory(flavor Flavor, opts Options) provider.Factory {
	return func(src config.SourceConfig) (provider.Adapter, error) {
		if src.URL == "" {
			return nil, pkgerrors.BadRequest(flavor.Name + " source requires a url")
		}
		return New(flavor, src, opts), nil
	}
}

func (a *Adapter) Capabilities() provider.Capabilities {
	return provider.Capabilities{ModifiedSinceFilter: true}
}

func (a *Adapter) itemsPath() string {
	if a.userID != "" {
		return "/Users/" + url.PathEscape(a.userID) + "/Items"
	}
	return "/Items"
}

// GetLibraries lists the server's virtual folders.
func (a *Adapter) GetLibraries(ctx context.Context) ([]domain.LibraryInfo, error) {
	var folders []virtualFolder
	if err := a.client.GetJSON(ctx, "/Library/VirtualFolders", nil, &folders); err != nil {
		return nil, fmt.Errorf("%s libraries: %w", a.flavor.Name, err)
	}

	libs := make([]domain.LibraryInfo, 0, len(folders))
	for _, f := range folders {
		libs = append(libs, domain.LibraryInfo{ID: f.ItemID, Name: f.Name, Type: f.CollectionType})
	}
	return libs, nil
}

// GetLibraryItems pages movies and episodes under a library.
func (a *Adapter) GetLibraryItems(ctx context.Context, libraryID string, req provider.PageRequest) (*provider.Page, error) {
	q := url.Values{}
	q.Set("ParentId", libraryID)
	q.Set("Recursive", "true")
	q.Set("IncludeItemTypes", "Movie,Episode")
	q.Set("Fields", itemFields)
	q.Set("SortBy", "SortName")
	q.Set("StartIndex", strconv.Itoa(req.Offset))
	if req.Limit > 0 {
		q.Set("Limit", strconv.Itoa(req.Limit))
	}
	if req.ModifiedSince != nil {
		q.Set("MinDateLastSaved", req.ModifiedSince.UTC().Format(time.RFC3339))
	}

	var resp itemsResponse
	if err := a.client.GetJSON(ctx, a.itemsPath(), q, &resp); err != nil {
		return nil, fmt.Errorf("%s items for library %s: %w", a.flavor.Name, libraryID, err)
	}

	items := make([]*domain.MediaMetadata, 0, len(resp.Items))
	for i := range resp.Items {
		items = append(items, a.toMetadata(&resp.Items[i]))
	}
	a.parents.Apply(ctx, items)

	return &provider.Page{
		Items: items,
		Total: resp.TotalRecordCount,
		Done:  len(resp.Items) == 0 || req.Offset+len(resp.Items) >= resp.TotalRecordCount,
	}, nil
}

// GetItemMetadata loads a single item with its media sources.
func (a *Adapter) GetItemMetadata(ctx context.Context, itemID string) (*domain.MediaMetadata, error) {
	it, err := a.getItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	md := a.toMetadata(it)
	a.parents.Apply(ctx, []*domain.MediaMetadata{md})
	return md, nil
}

func (a *Adapter) getItem(ctx context.Context, itemID string) (*item, error) {
	q := url.Values{}
	q.Set("Ids", itemID)
	q.Set("Fields", itemFields)

	var resp itemsResponse
	if err := a.client.GetJSON(ctx, a.itemsPath(), q, &resp); err != nil {
		return nil, fmt.Errorf("%s item %s: %w", a.flavor.Name, itemID, err)
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
	}
	return &resp.Items[0], nil
}

func (a *Adapter) fetchSeries(ctx context.Context, id string) (*provider.ParentInfo, error) {
	it, err := a.getItem(ctx, id)
	if err != nil {
		return nil, err
	}
	return &provider.ParentInfo{
		ID:          it.ID,
		Title:       it.Name,
		Year:        it.ProductionYear,
		PosterURL:   a.imageURL(it, "Primary"),
		BackdropURL: a.backdropURL(it),
	}, nil
}
