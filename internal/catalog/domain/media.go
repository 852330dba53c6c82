package domain

import "time"

// MediaType is the kind of catalog entry.
type MediaType string

const (
	MediaTypeMovie   MediaType = "movie"
	MediaTypeEpisode MediaType = "episode"
)

// SourceType identifies the adapter family a source is served by.
type SourceType string

const (
	SourceTypeJellyfin SourceType = "jellyfin"
	SourceTypeEmby     SourceType = "emby"
	SourceTypePlex     SourceType = "plex"
	SourceTypeLocal    SourceType = "local"
	SourceTypeS3       SourceType = "s3"
)

// Resolution is the canonical resolution class.
type Resolution string

const (
	ResolutionSD    Resolution = "SD"
	Resolution480p  Resolution = "480p"
	Resolution720p  Resolution = "720p"
	Resolution1080p Resolution = "1080p"
	Resolution4K    Resolution = "4K"
)

// Rank orders resolutions from SD (0) to 4K (4).
func (r Resolution) Rank() int {
	switch r {
	case Resolution4K:
		return 4
	case Resolution1080p:
		return 3
	case Resolution720p:
		return 2
	case Resolution480p:
		return 1
	default:
		return 0
	}
}

// HDRFormat is the canonical dynamic range format.
type HDRFormat string

const (
	HDRNone        HDRFormat = "None"
	HDR10          HDRFormat = "HDR10"
	HDR10Plus      HDRFormat = "HDR10+"
	HDRDolbyVision HDRFormat = "Dolby Vision"
	HDRHLG         HDRFormat = "HLG"
)

// VideoCodec is the canonical video codec name.
type VideoCodec string

const (
	VideoCodecH264    VideoCodec = "H.264"
	VideoCodecHEVC    VideoCodec = "HEVC"
	VideoCodecAV1     VideoCodec = "AV1"
	VideoCodecVP9     VideoCodec = "VP9"
	VideoCodecVP8     VideoCodec = "VP8"
	VideoCodecMPEG2   VideoCodec = "MPEG-2"
	VideoCodecMPEG4   VideoCodec = "MPEG-4"
	VideoCodecVC1     VideoCodec = "VC-1"
	VideoCodecUnknown VideoCodec = "Unknown"
)

// AudioCodec is the canonical audio codec name.
type AudioCodec string

const (
	AudioCodecTrueHD   AudioCodec = "TrueHD"
	AudioCodecDTSHDMA  AudioCodec = "DTS-HD MA"
	AudioCodecDTSHDHRA AudioCodec = "DTS-HD HRA"
	AudioCodecDTS      AudioCodec = "DTS"
	AudioCodecEAC3     AudioCodec = "EAC3"
	AudioCodecAC3      AudioCodec = "AC3"
	AudioCodecAAC      AudioCodec = "AAC"
	AudioCodecFLAC     AudioCodec = "FLAC"
	AudioCodecALAC     AudioCodec = "ALAC"
	AudioCodecPCM      AudioCodec = "PCM"
	AudioCodecMP3      AudioCodec = "MP3"
	AudioCodecOpus     AudioCodec = "Opus"
	AudioCodecVorbis   AudioCodec = "Vorbis"
	AudioCodecWMA      AudioCodec = "WMA"
	AudioCodecUnknown  AudioCodec = "Unknown"
)

// AudioTrack is one audio stream of a media file. Index is the position in
// the source's stream list and is stable across scans.
type AudioTrack struct {
	Index          int        `json:"index"`
	Codec          AudioCodec `json:"codec"`
	Channels       int        `json:"channels"`
	BitrateKbps    int        `json:"bitrate_kbps"`
	Language       string     `json:"language,omitempty"`
	Title          string     `json:"title,omitempty"`
	IsDefault      bool       `json:"is_default,omitempty"`
	HasObjectAudio bool       `json:"has_object_audio,omitempty"`
}

// MediaVersion is one on-disk quality variant of a title.
type MediaVersion struct {
	FilePath         string     `json:"file_path"`
	FileSizeBytes    int64      `json:"file_size_bytes"`
	Resolution       Resolution `json:"resolution"`
	HDRFormat        HDRFormat  `json:"hdr_format"`
	VideoCodec       VideoCodec `json:"video_codec"`
	VideoBitrateKbps int        `json:"video_bitrate_kbps"`
	Edition          string     `json:"edition,omitempty"`
	Label            string     `json:"label"`
}

// ItemKey is the natural key of a MediaItem.
type ItemKey struct {
	SourceID       string
	LibraryID      string
	ProviderItemID string
}

// MediaItem is the canonical, persisted catalog record.
type MediaItem struct {
	ID             string
	ProviderItemID string
	SourceID       string
	SourceType     SourceType
	LibraryID      string

	Title string
	Type  MediaType
	Year  int

	SeriesTitle   string
	SeasonNumber  int
	EpisodeNumber int

	FilePath      string
	FileSizeBytes int64
	DurationMs    int64
	Container     string

	Resolution       Resolution
	Width            int
	Height           int
	VideoCodec       VideoCodec
	VideoBitrateKbps int
	VideoFrameRate   float64
	ColorBitDepth    int
	HDRFormat        HDRFormat

	AudioCodec       AudioCodec
	AudioChannels    int
	AudioBitrateKbps int
	HasObjectAudio   bool
	AudioTracks      []AudioTrack

	Versions []MediaVersion

	IMDBID      string
	TMDBID      string
	PosterURL   string
	BackdropURL string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Key returns the natural key of the item.
func (m *MediaItem) Key() ItemKey {
	return ItemKey{SourceID: m.SourceID, LibraryID: m.LibraryID, ProviderItemID: m.ProviderItemID}
}

// TotalBitrateKbps derives the container bitrate from file size and duration.
// Bytes*8 per millisecond is bits per millisecond, which equals kbps.
func (m *MediaItem) TotalBitrateKbps() int {
	return TotalBitrateKbps(m.FileSizeBytes, m.DurationMs)
}

// TotalBitrateKbps returns 0 when either input is unknown.
func TotalBitrateKbps(fileSizeBytes, durationMs int64) int {
	if fileSizeBytes <= 0 || durationMs <= 0 {
		return 0
	}
	return int(fileSizeBytes * 8 / durationMs)
}

// DisplayLabel is used for progress reporting.
func (m *MediaItem) DisplayLabel() string {
	if m.Type == MediaTypeEpisode && m.SeriesTitle != "" {
		return m.SeriesTitle + " - " + m.Title
	}
	return m.Title
}
