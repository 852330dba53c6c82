package service

import (
	"context"
	"fmt"
	"time"

	"github.com/narwhalmedia/catalog/internal/catalog/domain"
	"github.com/narwhalmedia/catalog/internal/catalog/provider"
	"github.com/narwhalmedia/catalog/internal/catalog/quality"
	"github.com/narwhalmedia/catalog/internal/catalog/repository"
	"github.com/narwhalmedia/catalog/pkg/interfaces"
)

// ScanSource scans every library of a source in sequence. A failing
// library does not stop the others; a cancelled context does.
func (s *SyncService) ScanSource(ctx context.Context, adapter provider.Adapter, source domain.Source, opts ScanOptions) []domain.ScanResult {
	libs, err := adapter.GetLibraries(ctx)
	if err != nil {
		s.logger.Error("Failed to list libraries",
			interfaces.String("source_id", source.ID),
			interfaces.Error(err))
		return []domain.ScanResult{{
			SourceID:    source.ID,
			Incremental: opts.Incremental(),
			Errors:      []string{fmt.Sprintf("listing libraries: %v", err)},
			Cancelled:   ctx.Err() != nil,
		}}
	}

	if opts.StartedAt.IsZero() {
		opts.StartedAt = time.Now()
	}
	results := make([]domain.ScanResult, 0, len(libs))
	for _, lib := range libs {
		result := s.Scan(ctx, adapter, source, lib.ID, opts)
		results = append(results, result)
		if result.Cancelled {
			break
		}
	}
	return results
}

// RefreshItem re-reads a single item from its source and stores it. It
// never deletes.
func (s *SyncService) RefreshItem(ctx context.Context, adapter provider.Adapter, source domain.Source, libraryID, providerItemID string) (*domain.MediaItem, error) {
	if providerItemID == "" {
		return nil, domain.ErrMissingItemID
	}

	md, err := adapter.GetItemMetadata(ctx, providerItemID)
	if err != nil {
		return nil, fmt.Errorf("fetching item %s: %w", providerItemID, err)
	}
	item, err := s.builder.Build(source, libraryID, md)
	if err != nil {
		return nil, err
	}

	stored, err := s.store.GetMediaItems(ctx, repository.ItemFilter{
		SourceID:       source.ID,
		LibraryID:      libraryID,
		ProviderItemID: item.ProviderItemID,
		Limit:          1,
	})
	if err != nil {
		return nil, err
	}
	if len(stored) > 0 {
		quality.PreserveMeasured(s.builder.Reconciler().Table(), stored[0], item)
	}

	id, err := s.store.UpsertMediaItem(ctx, item)
	if err != nil {
		return nil, err
	}
	item.ID = id

	s.logger.Info("Item refreshed",
		interfaces.String("source_id", source.ID),
		interfaces.String("library_id", libraryID),
		interfaces.String("provider_item_id", providerItemID),
		interfaces.String("id", id))
	return item, nil
}
