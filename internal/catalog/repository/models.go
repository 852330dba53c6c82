package repository

import (
	"time"

	"github.com/narwhalmedia/catalog/internal/catalog/domain"
)

// MediaItemModel is the GORM row for a MediaItem. Tracks and versions are
// encoded as JSON columns at this boundary only.
type MediaItemModel struct {
	ID             string `gorm:"type:varchar(36);primaryKey"`
	SourceID       string `gorm:"not null;uniqueIndex:idx_item_key,priority:1"`
	LibraryID      string `gorm:"not null;uniqueIndex:idx_item_key,priority:2"`
	ProviderItemID string `gorm:"not null;uniqueIndex:idx_item_key,priority:3"`
	SourceType     string `gorm:"not null"`

	Title string `gorm:"not null"`
	Type  string `gorm:"not null;index"`
	Year  int

	SeriesTitle   string
	SeasonNumber  int
	EpisodeNumber int

	FilePath      string
	FileSizeBytes int64
	DurationMs    int64
	Container     string

	Resolution       string `gorm:"index"`
	Width            int
	Height           int
	VideoCodec       string
	VideoBitrateKbps int
	VideoFrameRate   float64
	ColorBitDepth    int
	HDRFormat        string

	AudioCodec       string
	AudioChannels    int
	AudioBitrateKbps int
	HasObjectAudio   bool
	AudioTracks      []domain.AudioTrack   `gorm:"serializer:json"`
	Versions         []domain.MediaVersion `gorm:"serializer:json"`

	IMDBID      string
	TMDBID      string
	PosterURL   string
	BackdropURL string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (MediaItemModel) TableName() string {
	return "media_items"
}

// SourceModel tracks per-source scan bookkeeping.
type SourceModel struct {
	ID         string `gorm:"primaryKey"`
	Type       string
	Name       string
	LastScanAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (SourceModel) TableName() string {
	return "sources"
}

func toItemModel(item *domain.MediaItem) *MediaItemModel {
	return &MediaItemModel{
		ID:               item.ID,
		SourceID:         item.SourceID,
		LibraryID:        item.LibraryID,
		ProviderItemID:   item.ProviderItemID,
		SourceType:       string(item.SourceType),
		Title:            item.Title,
		Type:             string(item.Type),
		Year:             item.Year,
		SeriesTitle:      item.SeriesTitle,
		SeasonNumber:     item.SeasonNumber,
		EpisodeNumber:    item.EpisodeNumber,
		FilePath:         item.FilePath,
		FileSizeBytes:    item.FileSizeBytes,
		DurationMs:       item.DurationMs,
		Container:        item.Container,
		Resolution:       string(item.Resolution),
		Width:            item.Width,
		Height:           item.Height,
		VideoCodec:       string(item.VideoCodec),
		VideoBitrateKbps: item.VideoBitrateKbps,
		VideoFrameRate:   item.VideoFrameRate,
		ColorBitDepth:    item.ColorBitDepth,
		HDRFormat:        string(item.HDRFormat),
		AudioCodec:       string(item.AudioCodec),
		AudioChannels:    item.AudioChannels,
		AudioBitrateKbps: item.AudioBitrateKbps,
		HasObjectAudio:   item.HasObjectAudio,
		AudioTracks:      item.AudioTracks,
		Versions:         item.Versions,
		IMDBID:           item.IMDBID,
		TMDBID:           item.TMDBID,
		PosterURL:        item.PosterURL,
		BackdropURL:      item.BackdropURL,
		CreatedAt:        item.CreatedAt,
		UpdatedAt:        item.UpdatedAt,
	}
}

func (m *MediaItemModel) toDomain() *domain.MediaItem {
	return &domain.MediaItem{
		ID:               m.ID,
		ProviderItemID:   m.ProviderItemID,
		SourceID:         m.SourceID,
		SourceType:       domain.SourceType(m.SourceType),
		LibraryID:        m.LibraryID,
		Title:            m.Title,
		Type:             domain.MediaType(m.Type),
		Year:             m.Year,
		SeriesTitle:      m.SeriesTitle,
		SeasonNumber:     m.SeasonNumber,
		EpisodeNumber:    m.EpisodeNumber,
		FilePath:         m.FilePath,
		FileSizeBytes:    m.FileSizeBytes,
		DurationMs:       m.DurationMs,
		Container:        m.Container,
		Resolution:       domain.Resolution(m.Resolution),
		Width:            m.Width,
		Height:           m.Height,
		VideoCodec:       domain.VideoCodec(m.VideoCodec),
		VideoBitrateKbps: m.VideoBitrateKbps,
		VideoFrameRate:   m.VideoFrameRate,
		ColorBitDepth:    m.ColorBitDepth,
		HDRFormat:        domain.HDRFormat(m.HDRFormat),
		AudioCodec:       domain.AudioCodec(m.AudioCodec),
		AudioChannels:    m.AudioChannels,
		AudioBitrateKbps: m.AudioBitrateKbps,
		HasObjectAudio:   m.HasObjectAudio,
		AudioTracks:      m.AudioTracks,
		Versions:         m.Versions,
		IMDBID:           m.IMDBID,
		TMDBID:           m.TMDBID,
		PosterURL:        m.PosterURL,
		BackdropURL:      m.BackdropURL,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func (m *SourceModel) toDomain() *domain.Source {
	return &domain.Source{
		ID:         m.ID,
		Type:       domain.SourceType(m.Type),
		Name:       m.Name,
		LastScanAt: m.LastScanAt,
	}
}
