package plex

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narwhalmedia/catalog/internal/catalog/domain"
	"github.com/narwhalmedia/catalog/internal/catalog/provider"
	"github.com/narwhalmedia/catalog/pkg/config"
)

const sectionsJSON = `{"MediaContainer":{"Directory":[
  {"key":"1","title":"Movies","type":"movie"},
  {"key":"2","title":"TV","type":"show"},
  {"key":"3","title":"Music","type":"artist"}]}}`

const episodesJSON = `{"MediaContainer":{"size":2,"totalSize":2,"offset":0,"Metadata":[
  {"ratingKey":"101","type":"episode","title":"Pilot","grandparentRatingKey":"50","grandparentTitle":"The Show",
   "parentIndex":1,"index":1,"updatedAt":1714564800,
   "Media":[{"duration":2700000,"bitrate":4500,"width":1280,"height":720,"videoCodec":"h264",
     "audioCodec":"aac","audioChannels":2,"container":"mkv",
     "Part":[{"file":"/tv/The Show/S01E01.mkv","size":1500000000}]}]},
  {"ratingKey":"102","type":"episode","title":"Second","grandparentRatingKey":"50","grandparentTitle":"The Show",
   "parentIndex":1,"index":2,
   "Media":[{"duration":2700000,"Part":[{"file":"/tv/The Show/S01E02.mkv","size":1400000000}]}]}]}}`

const movieDetailJSON = `{"MediaContainer":{"Metadata":[
  {"ratingKey":"7","type":"movie","title":"Dune","year":2021,"thumb":"/library/metadata/7/thumb",
   "Guid":[{"id":"imdb://tt1160419"},{"id":"tmdb://438631"}],
   "Media":[{"duration":9300000,"bitrate":60000,"width":3840,"height":2160,"videoCodec":"hevc","container":"mkv",
     "Part":[{"file":"/movies/Dune (2021).mkv","size":70000000000,"Stream":[
       {"streamType":1,"index":0,"codec":"hevc","width":3840,"height":2160,"bitDepth":10,
        "colorTrc":"smpte2084","colorPrimaries":"bt2020","DOVIPresent":true,"frameRate":23.976},
       {"streamType":2,"index":1,"codec":"truehd","channels":8,"bitrate":5200,"languageCode":"eng",
        "extendedDisplayTitle":"English (TrueHD 7.1 Atmos)","default":true},
       {"streamType":2,"index":2,"codec":"ac3","channels":6,"bitrate":640,"languageCode":"eng",
        "title":"Commentary"}]}]}]}]}}`

func newServer(t *testing.T, showCalls *atomic.Int32, lastQuery *atomic.Value) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Plex-Token") != "tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if strings.HasSuffix(r.URL.Path, "/all") {
			lastQuery.Store(r.URL.RawQuery)
		}
		switch {
		case r.URL.Path == "/library/sections":
			w.Write([]byte(sectionsJSON))
		case r.URL.Path == "/library/sections/2/all":
			w.Write([]byte(episodesJSON))
		case r.URL.Path == "/library/sections/1/all":
			w.Write([]byte(`{"MediaContainer":{"size":0,"totalSize":0,"Metadata":[]}}`))
		case r.URL.Path == "/library/metadata/50":
			showCalls.Add(1)
			w.Write([]byte(`{"MediaContainer":{"Metadata":[{"ratingKey":"50","type":"show","title":"The Show",
				"year":2008,"Guid":[{"id":"imdb://tt0903747"}]}]}}`))
		case r.URL.Path == "/library/metadata/7":
			w.Write([]byte(movieDetailJSON))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestPlexAdapter_Libraries(t *testing.T) {
	var calls atomic.Int32
	var q atomic.Value
	server := newServer(t, &calls, &q)
	a := New(config.SourceConfig{ID: "plex", URL: server.URL, Token: "tok"}, Options{Timeout: time.Second})

	libs, err := a.GetLibraries(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []domain.LibraryInfo{
		{ID: "1", Name: "Movies", Type: "movie"},
		{ID: "2", Name: "TV", Type: "show"},
	}, libs)
}

func TestPlexAdapter_EpisodesWithShowBatch(t *testing.T) {
	// Arrange
	var calls atomic.Int32
	var q atomic.Value
	server := newServer(t, &calls, &q)
	a := New(config.SourceConfig{ID: "plex", URL: server.URL, Token: "tok"}, Options{Timeout: time.Second})
	since := time.Unix(1714000000, 0)

	// Act
	items, total, err := provider.FetchAll(context.Background(), a, "2", 50, &since, nil)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, items, 2)
	assert.Equal(t, int32(1), calls.Load())

	query := q.Load().(string)
	assert.Contains(t, query, "type=4")
	assert.Contains(t, query, "X-Plex-Container-Size=50")
	assert.Contains(t, query, "updatedAt%3E%3E=1714000000")

	ep := items[0]
	assert.Equal(t, "101", ep.ProviderItemID)
	assert.Equal(t, domain.MediaTypeEpisode, ep.Type)
	assert.Equal(t, "The Show", ep.SeriesTitle)
	assert.Empty(t, ep.IMDBID)
	assert.Equal(t, 2008, ep.Year)
	assert.Equal(t, time.Unix(1714564800, 0).UTC(), ep.ModifiedAt)

	require.Len(t, ep.Sources, 1)
	src := ep.Sources[0]
	assert.Equal(t, "/tv/The Show/S01E01.mkv", src.FilePath)
	assert.Equal(t, domain.BitrateKbps, src.BitrateUnit)
	require.Len(t, src.Audio, 1)
	assert.Equal(t, "aac", src.Audio[0].Codec)

	assert.True(t, items[1].ModifiedAt.IsZero())
	assert.Empty(t, items[1].Sources[0].Audio)
}

func TestPlexAdapter_ItemMetadataStreams(t *testing.T) {
	var calls atomic.Int32
	var q atomic.Value
	server := newServer(t, &calls, &q)
	a := New(config.SourceConfig{ID: "plex", URL: server.URL, Token: "tok"}, Options{Timeout: time.Second})

	md, err := a.GetItemMetadata(context.Background(), "7")

	require.NoError(t, err)
	assert.Equal(t, "tt1160419", md.IMDBID)
	assert.Equal(t, "438631", md.TMDBID)
	assert.True(t, strings.HasSuffix(md.PosterURL, "/library/metadata/7/thumb"))

	src := md.Sources[0]
	require.NotNil(t, src.Video)
	assert.Equal(t, "DOVI", src.Video.RangeHint)
	assert.Equal(t, "smpte2084", src.Video.ColorTransfer)
	require.Len(t, src.Audio, 2)
	assert.True(t, src.Audio[0].ObjectAudio)
	assert.Equal(t, "Commentary", src.Audio[1].Title)

	_, err = a.GetItemMetadata(context.Background(), "999")
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestPlexAdapter_UnknownSection(t *testing.T) {
	var calls atomic.Int32
	var q atomic.Value
	server := newServer(t, &calls, &q)
	a := New(config.SourceConfig{ID: "plex", URL: server.URL, Token: "tok"}, Options{Timeout: time.Second})

	_, err := a.GetLibraryItems(context.Background(), "42", provider.PageRequest{Limit: 10})

	assert.ErrorIs(t, err, domain.ErrLibraryNotFound)
}
