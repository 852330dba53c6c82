package testutil

import (
	"fmt"
	"time"

	"github.com/narwhalmedia/catalog/internal/catalog/domain"
)

// TestSource is the source used by most fixtures.
var TestSource = domain.Source{ID: "src-1", Type: domain.SourceTypeJellyfin, Name: "Living Room"}

// NewMovieItem builds a stored-shape movie with measured bitrates.
func NewMovieItem(providerItemID, title string) *domain.MediaItem {
	return &domain.MediaItem{
		ProviderItemID:   providerItemID,
		SourceID:         TestSource.ID,
		SourceType:       TestSource.Type,
		LibraryID:        "lib-movies",
		Title:            title,
		Type:             domain.MediaTypeMovie,
		Year:             2010,
		FilePath:         fmt.Sprintf("/media/movies/%s.mkv", title),
		FileSizeBytes:    30_000_000_000,
		DurationMs:       7_200_000,
		Container:        "mkv",
		Resolution:       domain.Resolution1080p,
		Width:            1920,
		Height:           1080,
		VideoCodec:       domain.VideoCodecHEVC,
		VideoBitrateKbps: 28_000,
		AudioCodec:       domain.AudioCodecEAC3,
		AudioChannels:    6,
		AudioBitrateKbps: 640,
		AudioTracks: []domain.AudioTrack{
			{Index: 1, Codec: domain.AudioCodecEAC3, Channels: 6, BitrateKbps: 640, Language: "eng", IsDefault: true},
		},
		Versions: []domain.MediaVersion{{
			FilePath:         fmt.Sprintf("/media/movies/%s.mkv", title),
			FileSizeBytes:    30_000_000_000,
			Resolution:       domain.Resolution1080p,
			VideoCodec:       domain.VideoCodecHEVC,
			VideoBitrateKbps: 28_000,
			Label:            "1080p",
		}},
	}
}

// NewMovieMetadata builds provider metadata for a single-file 1080p movie.
func NewMovieMetadata(providerItemID, title string) *domain.MediaMetadata {
	return &domain.MediaMetadata{
		ProviderItemID: providerItemID,
		Title:          title,
		Type:           domain.MediaTypeMovie,
		Year:           2010,
		ModifiedAt:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Sources: []domain.SourceMetadata{{
			ID:            providerItemID + "-src",
			FilePath:      fmt.Sprintf("/media/movies/%s (2010).mkv", title),
			FileSizeBytes: 9_000_000_000,
			Container:     "mkv",
			Duration:      7_200_000,
			DurationUnit:  domain.DurationMilliseconds,
			Video: &domain.VideoStream{
				Codec:  "h264",
				Width:  1920,
				Height: 1080,
			},
			Audio: []domain.AudioStream{
				{Index: 1, Codec: "ac3", Channels: 6, Language: "eng", IsDefault: true},
			},
		}},
	}
}

// NewEpisodeMetadata builds provider metadata for a 720p episode.
func NewEpisodeMetadata(providerItemID, series string, season, episode int) *domain.MediaMetadata {
	return &domain.MediaMetadata{
		ProviderItemID: providerItemID,
		Title:          fmt.Sprintf("Episode %d", episode),
		Type:           domain.MediaTypeEpisode,
		SeriesID:       series + "-id",
		SeriesTitle:    series,
		SeasonNumber:   season,
		EpisodeNumber:  episode,
		Sources: []domain.SourceMetadata{{
			FilePath:     fmt.Sprintf("/media/tv/%s/S%02dE%02d.mkv", series, season, episode),
			Duration:     2_700_000,
			DurationUnit: domain.DurationMilliseconds,
			Video:        &domain.VideoStream{Codec: "h264", Width: 1280, Height: 720},
			Audio:        []domain.AudioStream{{Index: 1, Codec: "aac", Channels: 2}},
		}},
	}
}
