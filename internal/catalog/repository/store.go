// Package repository persists canonical catalog records.
package repository

import (
	"context"
	"time"

	"github.com/narwhalmedia/catalog/internal/catalog/domain"
)

// ItemFilter selects media items. Empty fields match everything.
type ItemFilter struct {
	SourceID       string
	LibraryID      string
	ProviderItemID string
	Limit          int
}

func (f ItemFilter) matches(item *domain.MediaItem) bool {
	if f.SourceID != "" && item.SourceID != f.SourceID {
		return false
	}
	if f.LibraryID != "" && item.LibraryID != f.LibraryID {
		return false
	}
	if f.ProviderItemID != "" && item.ProviderItemID != f.ProviderItemID {
		return false
	}
	return true
}

// Store is the persistence collaborator of the sync engine.
//
// Upserts are keyed by (SourceID, LibraryID, ProviderItemID). StartBatch and
// EndBatch bracket a scan's item loop and may nest; ForceSave makes the work
// done so far durable without leaving the batch.
type Store interface {
	UpsertMediaItem(ctx context.Context, item *domain.MediaItem) (string, error)
	GetMediaItems(ctx context.Context, filter ItemFilter) ([]*domain.MediaItem, error)
	DeleteMediaItem(ctx context.Context, id string) error

	StartBatch(ctx context.Context) error
	EndBatch(ctx context.Context) error
	ForceSave(ctx context.Context) error

	RegisterSource(ctx context.Context, source domain.Source) error
	GetSource(ctx context.Context, id string) (*domain.Source, error)
	UpdateSourceScanTime(ctx context.Context, sourceID string, scannedAt time.Time) error
}
