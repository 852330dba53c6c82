package domain

import "time"

// DurationUnit tells the normalizer how a raw duration is expressed.
type DurationUnit string

const (
	DurationTicks        DurationUnit = "ticks" // 100ns units
	DurationMilliseconds DurationUnit = "ms"
	DurationSeconds      DurationUnit = "s"
)

// BitrateUnit tells the normalizer how a raw bitrate is expressed.
type BitrateUnit string

const (
	BitrateBps  BitrateUnit = "bps"
	BitrateKbps BitrateUnit = "kbps"
	BitrateMbps BitrateUnit = "mbps"
)

// MediaMetadata is what an adapter hands to the engine before
// normalization. Fields are provider vocabulary; anything may be empty.
type MediaMetadata struct {
	ProviderItemID string
	Title          string
	Type           MediaType
	Year           int

	SeriesID      string
	SeriesTitle   string
	SeasonNumber  int
	EpisodeNumber int

	IMDBID      string
	TMDBID      string
	PosterURL   string
	BackdropURL string

	// ModifiedAt is zero when the source does not report it.
	ModifiedAt time.Time

	// Sources holds one entry per on-disk file. Most items have exactly one.
	Sources []SourceMetadata
}

// SourceMetadata describes one file of an item.
type SourceMetadata struct {
	ID            string
	FilePath      string
	FileSizeBytes int64
	Container     string

	Duration     float64
	DurationUnit DurationUnit

	// Container-level bitrate as reported by the provider.
	Bitrate     float64
	BitrateUnit BitrateUnit

	Video *VideoStream
	Audio []AudioStream
}

// VideoStream carries raw video hints.
type VideoStream struct {
	Codec       string
	Profile     string
	Width       int
	Height      int
	Bitrate     float64
	BitrateUnit BitrateUnit
	// FrameRate may be a number or a string such as "24000/1001".
	FrameRate      interface{}
	BitDepth       int
	RangeHint      string
	ColorPrimaries string
	ColorTransfer  string
}

// AudioStream carries raw audio hints.
type AudioStream struct {
	Index         int
	Codec         string
	Profile       string
	Channels      int
	ChannelLayout string
	Bitrate       float64
	BitrateUnit   BitrateUnit
	SampleRate    interface{}
	Language      string
	Title         string
	IsDefault     bool
	ObjectAudio   bool
}

// Label returns a short human label for progress output.
func (m *MediaMetadata) Label() string {
	if m.Type == MediaTypeEpisode && m.SeriesTitle != "" {
		return m.SeriesTitle + " - " + m.Title
	}
	if m.Title != "" {
		return m.Title
	}
	return m.ProviderItemID
}
