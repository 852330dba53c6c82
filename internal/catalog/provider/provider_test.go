package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narwhalmedia/catalog/internal/catalog/domain"
	"github.com/narwhalmedia/catalog/pkg/config"
	pkgerrors "github.com/narwhalmedia/catalog/pkg/errors"
	"github.com/narwhalmedia/catalog/pkg/logger"
	"github.com/narwhalmedia/catalog/pkg/utils"
)

// pagedAdapter serves n items, either offset- or token-paged.
type pagedAdapter struct {
	n        int
	useToken bool
	requests []PageRequest
	onCall   func(call int)
}

func (p *pagedAdapter) GetLibraries(context.Context) ([]domain.LibraryInfo, error) {
	return nil, nil
}

func (p *pagedAdapter) GetLibraryItems(_ context.Context, _ string, req PageRequest) (*Page, error) {
	p.requests = append(p.requests, req)
	if p.onCall != nil {
		p.onCall(len(p.requests))
	}

	start := req.Offset
	if p.useToken {
		start = 0
		if req.Token != "" {
			start = int(req.Token[0] - '0')
		}
	}
	end := min(start+req.Limit, p.n)

	page := &Page{}
	for i := start; i < end; i++ {
		page.Items = append(page.Items, &domain.MediaMetadata{ProviderItemID: string(rune('a' + i))})
	}
	if p.useToken {
		if end < p.n {
			page.NextToken = string(rune('0' + end))
		}
	} else {
		page.Total = p.n
		page.Done = end >= p.n
	}
	return page, nil
}

func (p *pagedAdapter) GetItemMetadata(context.Context, string) (*domain.MediaMetadata, error) {
	return nil, domain.ErrItemNotFound
}

func (p *pagedAdapter) Capabilities() Capabilities { return Capabilities{} }

func TestFetchAllOffsetPaging(t *testing.T) {
	// Arrange
	adapter := &pagedAdapter{n: 5}
	var progress [][2]int

	// Act
	items, total, err := FetchAll(context.Background(), adapter, "lib", 2, nil, func(fetched, total int) {
		progress = append(progress, [2]int{fetched, total})
	})

	// Assert
	require.NoError(t, err)
	assert.Len(t, items, 5)
	assert.Equal(t, 5, total)
	require.Len(t, adapter.requests, 3)
	assert.Equal(t, 4, adapter.requests[2].Offset)
	assert.Equal(t, [][2]int{{2, 5}, {4, 5}, {5, 5}}, progress)
}

func TestFetchAllTokenPaging(t *testing.T) {
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	adapter := &pagedAdapter{n: 3, useToken: true}

	items, total, err := FetchAll(context.Background(), adapter, "lib", 2, &since, nil)

	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.Equal(t, 3, total)
	require.Len(t, adapter.requests, 2)
	assert.Equal(t, "2", adapter.requests[1].Token)
	assert.Equal(t, &since, adapter.requests[1].ModifiedSince)
}

func TestFetchAllStopsBetweenPagesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	adapter := &pagedAdapter{n: 10, onCall: func(call int) {
		if call == 2 {
			cancel()
		}
	}}

	items, _, err := FetchAll(ctx, adapter, "lib", 2, nil, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, items)
	assert.Len(t, adapter.requests, 2)
}

func TestParentResolver(t *testing.T) {
	// Arrange
	var calls atomic.Int32
	fetch := func(_ context.Context, id string) (*ParentInfo, error) {
		calls.Add(1)
		if id == "broken" {
			return nil, errors.New("boom")
		}
		return &ParentInfo{ID: id, Title: "Show " + id, Year: 2008, PosterURL: "/poster/" + id}, nil
	}
	cache := utils.NewInMemoryCache(0)
	defer cache.Close()
	resolver := NewParentResolver(fetch, cache, time.Minute, logger.NewNoopLogger())

	items := []*domain.MediaMetadata{
		{Type: domain.MediaTypeEpisode, SeriesID: "s1"},
		{Type: domain.MediaTypeEpisode, SeriesID: "s1", SeriesTitle: "Own Title", Year: 2010, IMDBID: "tt0959621"},
		{Type: domain.MediaTypeEpisode, SeriesID: "broken"},
		{Type: domain.MediaTypeMovie, Title: "Movie"},
	}

	// Act
	resolver.Apply(context.Background(), items)

	// Assert
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "Show s1", items[0].SeriesTitle)
	assert.Equal(t, 2008, items[0].Year)
	assert.Equal(t, "/poster/s1", items[0].PosterURL)
	assert.Empty(t, items[0].IMDBID)
	assert.Empty(t, items[0].TMDBID)
	assert.Equal(t, "Own Title", items[1].SeriesTitle)
	assert.Equal(t, 2010, items[1].Year)
	assert.Equal(t, "tt0959621", items[1].IMDBID)
	assert.Empty(t, items[2].SeriesTitle)
	assert.Empty(t, items[3].SeriesTitle)

	// A second pass is served from the cache, except for the failed parent.
	resolver.Apply(context.Background(), []*domain.MediaMetadata{
		{Type: domain.MediaTypeEpisode, SeriesID: "s1"},
		{Type: domain.MediaTypeEpisode, SeriesID: "broken"},
	})
	assert.Equal(t, int32(3), calls.Load())
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	var built int
	registry.Register(domain.SourceTypeJellyfin, func(src config.SourceConfig) (Adapter, error) {
		built++
		return &pagedAdapter{}, nil
	})
	registry.Register(domain.SourceTypePlex, func(src config.SourceConfig) (Adapter, error) {
		return nil, pkgerrors.BadRequest("plex source requires a url")
	})

	a1, err := registry.Adapter(config.SourceConfig{ID: "one", Type: "jellyfin"})
	require.NoError(t, err)
	a2, err := registry.Adapter(config.SourceConfig{ID: "one", Type: "jellyfin"})
	require.NoError(t, err)
	assert.Same(t, a1, a2)
	assert.Equal(t, 1, built)

	_, err = registry.Adapter(config.SourceConfig{ID: "two", Type: "plex"})
	assert.True(t, pkgerrors.IsBadRequest(err))

	_, err = registry.Adapter(config.SourceConfig{ID: "three", Type: "ftp"})
	assert.ErrorIs(t, err, domain.ErrUnknownSourceType)
}

func TestHTTPClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			assert.Equal(t, "secret", r.Header.Get("X-Token"))
			assert.Equal(t, "10", r.URL.Query().Get("limit"))
			_, _ = w.Write([]byte(`{"name":"library"}`))
		case "/denied":
			http.Error(w, "bad token", http.StatusUnauthorized)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL+"/", 5*time.Second, 100, http.Header{"X-Token": {"secret"}})

	var out struct {
		Name string `json:"name"`
	}
	require.NoError(t, client.GetJSON(context.Background(), "/ok", url.Values{"limit": {"10"}}, &out))
	assert.Equal(t, "library", out.Name)

	err := client.GetJSON(context.Background(), "/denied", nil, &out)
	assert.True(t, pkgerrors.IsUnauthorized(err))

	err = client.GetJSON(context.Background(), "/missing", nil, &out)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestHTTPClientUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	err := NewHTTPClient(addr, time.Second, 0, nil).GetJSON(context.Background(), "/x", nil, &struct{}{})

	assert.True(t, pkgerrors.IsUnavailable(err))
}
