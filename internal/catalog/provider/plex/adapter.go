// Package plex adapts a Plex Media Server.
package plex

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/narwhalmedia/catalog/internal/catalog/domain"
	"github.com/narwhalmedia/catalog/internal/catalog/provider"
	"github.com/narwhalmedia/catalog/pkg/config"
	pkgerrors "github.com/narwhalmedia/catalog/pkg/errors"
	"github.com/narwhalmedia/catalog/pkg/interfaces"
	"github.com/narwhalmedia/catalog/pkg/logger"
)

// Plex library item type codes.
const (
	typeMovie   = "1"
	typeEpisode = "4"
)

// Options carries the shared settings for remote adapters.
type Options struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	ParentCache       interfaces.Cache
	ParentCacheTTL    time.Duration
	Logger            interfaces.Logger
}

// Adapter reads one Plex server.
type Adapter struct {
	client  *provider.HTTPClient
	baseURL string
	token   string
	parents *provider.ParentResolver
	logger  interfaces.Logger

	mu           sync.Mutex
	sectionTypes map[string]string
}

// New creates an adapter for src.
func New(src config.SourceConfig, opts Options) *Adapter {
	if opts.Logger == nil {
		opts.Logger = logger.NewNoopLogger()
	}
	headers := http.Header{}
	headers.Set("X-Plex-Token", src.Token)
	client := src.ClientName
	if client == "" {
		client = "catalog"
	}
	headers.Set("X-Plex-Product", client)
	if src.DeviceID != "" {
		headers.Set("X-Plex-Client-Identifier", src.DeviceID)
	}

	a := &Adapter{
		client:       provider.NewHTTPClient(src.URL, opts.Timeout, opts.RequestsPerSecond, headers),
		baseURL:      strings.TrimRight(src.URL, "/"),
		token:        src.Token,
		logger:       opts.Logger.WithFields(interfaces.String("source_id", src.ID)),
		sectionTypes: make(map[string]string),
	}
	a.parents = provider.NewParentResolver(a.fetchShow, opts.ParentCache, opts.ParentCacheTTL, a.logger)
	return a
}

// Factory returns a provider.Factory for Plex sources.
func Factory(opts Options) provider.Factory {
	return func(src config.SourceConfig) (provider.Adapter, error) {
		if src.URL == "" {
			return nil, pkgerrors.BadRequest("plex source requires a url")
		}
		return New(src, opts), nil
	}
}

func (a *Adapter) Capabilities() provider.Capabilities {
	return provider.Capabilities{ModifiedSinceFilter: true}
}

// GetLibraries lists video sections. Music and photo sections are skipped.
func (a *Adapter) GetLibraries(ctx context.Context) ([]domain.LibraryInfo, error) {
	var resp sectionsResponse
	if err := a.client.GetJSON(ctx, "/library/sections", nil, &resp); err != nil {
		return nil, fmt.Errorf("plex libraries: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	var libs []domain.LibraryInfo
	for _, s := range resp.MediaContainer.Directory {
		a.sectionTypes[s.Key] = s.Type
		if s.Type != "movie" && s.Type != "show" {
			continue
		}
		libs = append(libs, domain.LibraryInfo{ID: s.Key, Name: s.Title, Type: s.Type})
	}
	return libs, nil
}

func (a *Adapter) sectionType(ctx context.Context, libraryID string) (string, error) {
	a.mu.Lock()
	t, ok := a.sectionTypes[libraryID]
	a.mu.Unlock()
	if ok {
		return t, nil
	}

	if _, err := a.GetLibraries(ctx); err != nil {
		return "", err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	t, ok = a.sectionTypes[libraryID]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrLibraryNotFound, libraryID)
	}
	return t, nil
}

// GetLibraryItems pages a section. Show sections are listed as episodes.
func (a *Adapter) GetLibraryItems(ctx context.Context, libraryID string, req provider.PageRequest) (*provider.Page, error) {
	sType, err := a.sectionType(ctx, libraryID)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("type", typeMovie)
	if sType == "show" {
		q.Set("type", typeEpisode)
	}
	q.Set("X-Plex-Container-Start", strconv.Itoa(req.Offset))
	if req.Limit > 0 {
		q.Set("X-Plex-Container-Size", strconv.Itoa(req.Limit))
	}
	if req.ModifiedSince != nil {
		q.Set("updatedAt>>", strconv.FormatInt(req.ModifiedSince.Unix(), 10))
	}

	var resp metadataResponse
	path := "/library/sections/" + url.PathEscape(libraryID) + "/all"
	if err := a.client.GetJSON(ctx, path, q, &resp); err != nil {
		return nil, fmt.Errorf("plex items for section %s: %w", libraryID, err)
	}

	mc := resp.MediaContainer
	items := make([]*domain.MediaMetadata, 0, len(mc.Metadata))
	for i := range mc.Metadata {
		items = append(items, a.toMetadata(&mc.Metadata[i]))
	}
	a.parents.Apply(ctx, items)

	total := mc.TotalSize
	return &provider.Page{
		Items: items,
		Total: total,
		Done:  len(mc.Metadata) == 0 || (total > 0 && req.Offset+len(mc.Metadata) >= total) || (total == 0 && len(mc.Metadata) < req.Limit),
	}, nil
}

// GetItemMetadata loads one item including per-stream details.
func (a *Adapter) GetItemMetadata(ctx context.Context, itemID string) (*domain.MediaMetadata, error) {
	m, err := a.getMetadata(ctx, itemID)
	if err != nil {
		return nil, err
	}
	md := a.toMetadata(m)
	a.parents.Apply(ctx, []*domain.MediaMetadata{md})
	return md, nil
}

func (a *Adapter) getMetadata(ctx context.Context, ratingKey string) (*metadata, error) {
	q := url.Values{}
	q.Set("includeGuids", "1")

	var resp metadataResponse
	if err := a.client.GetJSON(ctx, "/library/metadata/"+url.PathEscape(ratingKey), q, &resp); err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrItemNotFound, ratingKey)
		}
		return nil, fmt.Errorf("plex metadata %s: %w", ratingKey, err)
	}
	if len(resp.MediaContainer.Metadata) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrItemNotFound, ratingKey)
	}
	return &resp.MediaContainer.Metadata[0], nil
}

func (a *Adapter) fetchShow(ctx context.Context, ratingKey string) (*provider.ParentInfo, error) {
	m, err := a.getMetadata(ctx, ratingKey)
	if err != nil {
		return nil, err
	}
	return &provider.ParentInfo{
		ID:          m.RatingKey,
		Title:       m.Title,
		Year:        m.Year,
		PosterURL:   a.imageURL(m.Thumb),
		BackdropURL: a.imageURL(m.Art),
	}, nil
}
