package plex

import (
	"strings"
	"time"

	"github.com/narwhalmedia/catalog/internal/catalog/domain"
)

func externalIDs(guids []guid) (imdb, tmdb string) {
	for _, g := range guids {
		switch {
		case strings.HasPrefix(g.ID, "imdb://"):
			imdb = strings.TrimPrefix(g.ID, "imdb://")
		case strings.HasPrefix(g.ID, "tmdb://"):
			tmdb = strings.TrimPrefix(g.ID, "tmdb://")
		}
	}
	return imdb, tmdb
}

// imageURL turns a Plex relative image path into an absolute URL.
func (a *Adapter) imageURL(path string) string {
	if path == "" {
		return ""
	}
	return a.baseURL + path
}

func (a *Adapter) toMetadata(m *metadata) *domain.MediaMetadata {
	imdb, tmdb := externalIDs(m.GUIDs)
	md := &domain.MediaMetadata{
		ProviderItemID: m.RatingKey,
		Title:          m.Title,
		Type:           domain.MediaTypeMovie,
		Year:           m.Year,
		IMDBID:         imdb,
		TMDBID:         tmdb,
		PosterURL:      a.imageURL(m.Thumb),
		BackdropURL:    a.imageURL(m.Art),
	}
	if m.UpdatedAt > 0 {
		md.ModifiedAt = time.Unix(m.UpdatedAt, 0).UTC()
	}
	if m.Type == "episode" {
		md.Type = domain.MediaTypeEpisode
		md.SeriesID = m.GrandparentRatingKey
		md.SeriesTitle = m.GrandparentTitle
		md.SeasonNumber = m.ParentIndex
		md.EpisodeNumber = m.Index
		if m.GrandparentThumb != "" {
			md.PosterURL = a.imageURL(m.GrandparentThumb)
		}
	}

	for _, med := range m.Media {
		md.Sources = append(md.Sources, convertMedia(m, med))
	}
	return md
}

// convertMedia maps one Plex Media entry. Multi-part media are summed into
// one source; the first part names the file.
func convertMedia(m *metadata, med media) domain.SourceMetadata {
	duration := med.Duration
	if duration == 0 {
		duration = m.Duration
	}
	src := domain.SourceMetadata{
		Container:    med.Container,
		Duration:     float64(duration),
		DurationUnit: domain.DurationMilliseconds,
		Bitrate:      float64(med.Bitrate),
		BitrateUnit:  domain.BitrateKbps,
	}

	var streams []stream
	for i, p := range med.Parts {
		if i == 0 {
			src.ID = p.File
			src.FilePath = p.File
			streams = p.Streams
		}
		src.FileSizeBytes += p.Size
	}

	src.Video = &domain.VideoStream{
		Codec:     med.VideoCodec,
		Profile:   med.VideoProfile,
		Width:     med.Width,
		Height:    med.Height,
		FrameRate: med.VideoFrameRate,
	}

	var audio []domain.AudioStream
	for _, st := range streams {
		switch st.StreamType {
		case 1:
			src.Video = videoFromStream(st, med)
		case 2:
			title := st.Title
			if title == "" {
				title = st.ExtendedDisplayTitle
			}
			audio = append(audio, domain.AudioStream{
				Index:         st.Index,
				Codec:         st.Codec,
				Profile:       st.Profile,
				Channels:      st.Channels,
				ChannelLayout: st.AudioChannelLayout,
				Bitrate:       float64(st.Bitrate),
				BitrateUnit:   domain.BitrateKbps,
				SampleRate:    st.SamplingRate,
				Language:      st.LanguageCode,
				Title:         title,
				IsDefault:     st.Default,
				ObjectAudio:   strings.Contains(st.ExtendedDisplayTitle, "Atmos") || strings.Contains(st.DisplayTitle, "DTS:X"),
			})
		}
	}

	// Listings carry no streams; fall back to the media-level summary.
	if len(audio) == 0 && med.AudioCodec != "" {
		audio = append(audio, domain.AudioStream{
			Codec:     med.AudioCodec,
			Profile:   med.AudioProfile,
			Channels:  med.AudioChannels,
			IsDefault: true,
		})
	}
	src.Audio = audio
	return src
}

func videoFromStream(st stream, med media) *domain.VideoStream {
	v := &domain.VideoStream{
		Codec:          st.Codec,
		Profile:        st.Profile,
		Width:          st.Width,
		Height:         st.Height,
		Bitrate:        float64(st.Bitrate),
		BitrateUnit:    domain.BitrateKbps,
		FrameRate:      st.FrameRate,
		BitDepth:       st.BitDepth,
		ColorPrimaries: st.ColorPrimaries,
		ColorTransfer:  st.ColorTrc,
	}
	if st.DOVIPresent {
		v.RangeHint = "DOVI"
	}
	if v.Width == 0 {
		v.Width, v.Height = med.Width, med.Height
	}
	if v.FrameRate == 0.0 {
		v.FrameRate = med.VideoFrameRate
	}
	return v
}
