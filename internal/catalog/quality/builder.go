package quality

import (
	"fmt"
	"strings"

	"github.com/narwhalmedia/catalog/internal/catalog/domain"
)

// Builder turns adapter metadata into canonical MediaItems.
type Builder struct {
	reconciler *BitrateReconciler
	versions   *VersionNameExtractor
}

// NewBuilder creates a builder around the given reconciler.
func NewBuilder(reconciler *BitrateReconciler) *Builder {
	if reconciler == nil {
		reconciler = NewBitrateReconciler(DefaultReconcilerConfig())
	}
	return &Builder{
		reconciler: reconciler,
		versions:   NewVersionNameExtractor(),
	}
}

// Reconciler exposes the reconciler used by the builder.
func (b *Builder) Reconciler() *BitrateReconciler {
	return b.reconciler
}

// variant is one normalized file of an item.
type variant struct {
	filePath      string
	fileSizeBytes int64
	durationMs    int64
	container     string
	width         int
	height        int
	resolution    domain.Resolution
	videoCodec    domain.VideoCodec
	videoKbps     int
	frameRate     float64
	bitDepth      int
	hdr           domain.HDRFormat
	tracks        []domain.AudioTrack
}

// Build validates and normalizes md for the given source and library. The
// returned item has no ID and zero timestamps; the store assigns those.
func (b *Builder) Build(source domain.Source, libraryID string, md *domain.MediaMetadata) (*domain.MediaItem, error) {
	if md == nil {
		return nil, fmt.Errorf("nil metadata")
	}
	if strings.TrimSpace(md.ProviderItemID) == "" {
		return nil, domain.ErrMissingItemID
	}
	if strings.TrimSpace(md.Title) == "" {
		return nil, fmt.Errorf("item %s: %w", md.ProviderItemID, domain.ErrMissingTitle)
	}

	itemType := md.Type
	if itemType != domain.MediaTypeEpisode {
		itemType = domain.MediaTypeMovie
	}

	item := &domain.MediaItem{
		ProviderItemID: md.ProviderItemID,
		SourceID:       source.ID,
		SourceType:     source.Type,
		LibraryID:      libraryID,
		Title:          strings.TrimSpace(md.Title),
		Type:           itemType,
		Year:           md.Year,
		IMDBID:         md.IMDBID,
		TMDBID:         md.TMDBID,
		PosterURL:      md.PosterURL,
		BackdropURL:    md.BackdropURL,
		Resolution:     domain.ResolutionSD,
		VideoCodec:     domain.VideoCodecUnknown,
		HDRFormat:      domain.HDRNone,
		AudioCodec:     domain.AudioCodecUnknown,
	}
	if itemType == domain.MediaTypeEpisode {
		item.SeriesTitle = md.SeriesTitle
		item.SeasonNumber = md.SeasonNumber
		item.EpisodeNumber = md.EpisodeNumber
	}

	if len(md.Sources) == 0 {
		return item, nil
	}

	variants := make([]variant, len(md.Sources))
	for i := range md.Sources {
		variants[i] = b.normalizeSource(&md.Sources[i])
	}

	primary := 0
	for i := 1; i < len(variants); i++ {
		if outranks(variants[i], variants[primary]) {
			primary = i
		}
	}
	b.apply(item, variants[primary])

	item.Versions = make([]domain.MediaVersion, len(variants))
	for i, v := range variants {
		item.Versions[i] = domain.MediaVersion{
			FilePath:         v.filePath,
			FileSizeBytes:    v.fileSizeBytes,
			Resolution:       v.resolution,
			HDRFormat:        v.hdr,
			VideoCodec:       v.videoCodec,
			VideoBitrateKbps: v.videoKbps,
		}
	}
	b.versions.Assign(item.Versions)

	return item, nil
}

func outranks(a, b variant) bool {
	if a.resolution.Rank() != b.resolution.Rank() {
		return a.resolution.Rank() > b.resolution.Rank()
	}
	return a.videoKbps > b.videoKbps
}

func (b *Builder) normalizeSource(src *domain.SourceMetadata) variant {
	v := variant{
		filePath:      src.FilePath,
		fileSizeBytes: src.FileSizeBytes,
		durationMs:    NormalizeDuration(src.Duration, src.DurationUnit),
		container:     NormalizeContainer(src.Container),
		resolution:    domain.ResolutionSD,
		videoCodec:    domain.VideoCodecUnknown,
		hdr:           domain.HDRNone,
	}
	if v.container == "" {
		v.container = NormalizeContainer(strings.TrimPrefix(extOf(src.FilePath), "."))
	}

	reportedVideo := 0
	if vs := src.Video; vs != nil {
		v.width, v.height = vs.Width, vs.Height
		v.resolution = NormalizeResolution(vs.Width, vs.Height)
		v.videoCodec = NormalizeVideoCodec(vs.Codec)
		v.frameRate = NormalizeFrameRate(vs.FrameRate)
		v.bitDepth = vs.BitDepth
		v.hdr = NormalizeHDRFormat(vs.RangeHint, vs.ColorPrimaries, vs.ColorTransfer, vs.BitDepth, vs.Profile)
		reportedVideo = NormalizeBitrate(vs.Bitrate, vs.BitrateUnit)
	}

	tracks := make([]domain.AudioTrack, len(src.Audio))
	for i, as := range src.Audio {
		tracks[i] = domain.AudioTrack{
			Index:          as.Index,
			Codec:          NormalizeAudioCodec(as.Codec, as.Profile),
			Channels:       NormalizeAudioChannels(as.Channels, as.ChannelLayout),
			BitrateKbps:    NormalizeBitrate(as.Bitrate, as.BitrateUnit),
			Language:       as.Language,
			Title:          as.Title,
			IsDefault:      as.IsDefault,
			HasObjectAudio: as.ObjectAudio || IsObjectAudio(as.Codec, as.Profile, as.Title),
		}
	}

	total := domain.TotalBitrateKbps(v.fileSizeBytes, v.durationMs)
	if total == 0 {
		total = NormalizeBitrate(src.Bitrate, src.BitrateUnit)
	}

	out := b.reconciler.Reconcile(BitrateInput{
		TotalKbps:  total,
		VideoKbps:  reportedVideo,
		Resolution: v.resolution,
		Tracks:     tracks,
	})
	v.videoKbps = out.VideoKbps
	v.tracks = out.Tracks
	return v
}

func (b *Builder) apply(item *domain.MediaItem, v variant) {
	item.FilePath = v.filePath
	item.FileSizeBytes = v.fileSizeBytes
	item.DurationMs = v.durationMs
	item.Container = v.container
	item.Width, item.Height = v.width, v.height
	item.Resolution = v.resolution
	item.VideoCodec = v.videoCodec
	item.VideoBitrateKbps = v.videoKbps
	item.VideoFrameRate = v.frameRate
	item.ColorBitDepth = v.bitDepth
	item.HDRFormat = v.hdr
	item.AudioTracks = v.tracks
	applyBestAudio(item)
}

// applyBestAudio copies the best track's fields onto the item.
func applyBestAudio(item *domain.MediaItem) {
	item.HasObjectAudio = HasObjectAudio(item.AudioTracks)
	best, ok := SelectBestAudioTrack(item.AudioTracks)
	if !ok {
		item.AudioCodec = domain.AudioCodecUnknown
		item.AudioChannels = 0
		item.AudioBitrateKbps = 0
		return
	}
	item.AudioCodec = best.Codec
	item.AudioChannels = best.Channels
	item.AudioBitrateKbps = best.BitrateKbps
}

func extOf(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 && !strings.ContainsAny(path[i:], `/\`) {
		return path[i:]
	}
	return ""
}
