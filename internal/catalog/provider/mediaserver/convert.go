package mediaserver

import (
	"strings"
	"time"

	"github.com/narwhalmedia/catalog/internal/catalog/domain"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.0000000",
	"2006-01-02T15:04:05",
}

// parseTime accepts the server's ISO timestamps, with or without zone.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func providerID(ids map[string]string, key string) string {
	for k, v := range ids {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func (a *Adapter) imageURL(it *item, kind string) string {
	if _, ok := it.ImageTags[kind]; !ok {
		return ""
	}
	return a.baseURL + "/Items/" + it.ID + "/Images/" + kind
}

func (a *Adapter) backdropURL(it *item) string {
	if len(it.BackdropImageTags) == 0 {
		return ""
	}
	return a.baseURL + "/Items/" + it.ID + "/Images/Backdrop/0"
}

func (a *Adapter) toMetadata(it *item) *domain.MediaMetadata {
	md := &domain.MediaMetadata{
		ProviderItemID: it.ID,
		Title:          it.Name,
		Type:           domain.MediaTypeMovie,
		Year:           it.ProductionYear,
		IMDBID:         providerID(it.ProviderIDs, "Imdb"),
		TMDBID:         providerID(it.ProviderIDs, "Tmdb"),
		PosterURL:      a.imageURL(it, "Primary"),
		BackdropURL:    a.backdropURL(it),
		ModifiedAt:     parseTime(it.DateLastSaved),
	}
	if md.ModifiedAt.IsZero() {
		md.ModifiedAt = parseTime(it.DateModified)
	}
	if it.Type == "Episode" {
		md.Type = domain.MediaTypeEpisode
		md.SeriesID = it.SeriesID
		md.SeriesTitle = it.SeriesName
		md.SeasonNumber = it.ParentIndexNumber
		md.EpisodeNumber = it.IndexNumber
	}

	for _, ms := range it.MediaSources {
		md.Sources = append(md.Sources, convertSource(it, ms))
	}
	if len(md.Sources) == 0 && it.Path != "" {
		md.Sources = append(md.Sources, domain.SourceMetadata{
			ID:           it.ID,
			FilePath:     it.Path,
			Container:    it.Container,
			Duration:     float64(it.RunTimeTicks),
			DurationUnit: domain.DurationTicks,
		})
	}
	return md
}

func convertSource(it *item, ms mediaSource) domain.SourceMetadata {
	ticks := ms.RunTimeTicks
	if ticks == 0 {
		ticks = it.RunTimeTicks
	}
	src := domain.SourceMetadata{
		ID:            ms.ID,
		FilePath:      ms.Path,
		FileSizeBytes: ms.Size,
		Container:     ms.Container,
		Duration:      float64(ticks),
		DurationUnit:  domain.DurationTicks,
		Bitrate:       float64(ms.Bitrate),
		BitrateUnit:   domain.BitrateBps,
	}
	if src.FilePath == "" {
		src.FilePath = it.Path
	}

	for _, st := range ms.MediaStreams {
		switch st.Type {
		case "Video":
			if src.Video != nil {
				continue
			}
			rangeHint := st.VideoRangeType
			if rangeHint == "" {
				rangeHint = st.VideoRange
			}
			src.Video = &domain.VideoStream{
				Codec:          st.Codec,
				Profile:        st.Profile,
				Width:          st.Width,
				Height:         st.Height,
				Bitrate:        float64(st.BitRate),
				BitrateUnit:    domain.BitrateBps,
				FrameRate:      st.RealFrameRate,
				BitDepth:       st.BitDepth,
				RangeHint:      rangeHint,
				ColorPrimaries: st.ColorPrimaries,
				ColorTransfer:  st.ColorTransfer,
			}
		case "Audio":
			title := st.Title
			if title == "" {
				title = st.DisplayTitle
			}
			src.Audio = append(src.Audio, domain.AudioStream{
				Index:         st.Index,
				Codec:         st.Codec,
				Profile:       st.Profile,
				Channels:      st.Channels,
				ChannelLayout: st.ChannelLayout,
				Bitrate:       float64(st.BitRate),
				BitrateUnit:   domain.BitrateBps,
				SampleRate:    st.SampleRate,
				Language:      st.Language,
				Title:         title,
				IsDefault:     st.IsDefault,
				ObjectAudio:   strings.Contains(st.DisplayTitle, "Atmos") || strings.Contains(st.DisplayTitle, "DTS:X"),
			})
		}
	}
	return src
}
