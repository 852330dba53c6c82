// Package service drives catalog scans: fetching from a provider,
// normalizing, persisting and pruning.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/narwhalmedia/catalog/internal/catalog/domain"
	"github.com/narwhalmedia/catalog/internal/catalog/provider"
	"github.com/narwhalmedia/catalog/internal/catalog/quality"
	"github.com/narwhalmedia/catalog/internal/catalog/repository"
	"github.com/narwhalmedia/catalog/pkg/config"
	"github.com/narwhalmedia/catalog/pkg/interfaces"
	pkglogger "github.com/narwhalmedia/catalog/pkg/logger"
)

// ProgressFunc receives scan progress.
type ProgressFunc func(domain.ScanProgress)

// ScanOptions controls one scan.
type ScanOptions struct {
	OnProgress ProgressFunc
	// Since selects an incremental scan unless ForceFull is set.
	Since     *time.Time
	ForceFull bool
	// StartedAt is stored as the source's last scan time on success, so
	// changes made while the scan ran are seen by the next incremental
	// scan. Zero means the start of this library scan.
	StartedAt time.Time
}

// Incremental reports whether the options select an incremental scan.
func (o ScanOptions) Incremental() bool {
	return o.Since != nil && !o.ForceFull
}

// SyncConfig tunes the scan loop.
type SyncConfig struct {
	CheckpointInterval int
	PageSize           int
}

// SyncConfigFrom reads the scan loop settings from the service config.
func SyncConfigFrom(s config.SyncSettings) SyncConfig {
	return SyncConfig{CheckpointInterval: s.CheckpointInterval, PageSize: s.PageSize}
}

// storeError marks a persistence failure, which aborts the scan.
type storeError struct {
	op  string
	err error
}

func (e *storeError) Error() string { return e.op + ": " + e.err.Error() }
func (e *storeError) Unwrap() error { return e.err }

// SyncService scans provider libraries into the store.
type SyncService struct {
	store    repository.Store
	builder  *quality.Builder
	eventBus interfaces.EventBus
	metrics  *Metrics
	logger   interfaces.Logger
	cfg      SyncConfig
}

// NewSyncService creates a sync service. metrics may be nil.
func NewSyncService(
	store repository.Store,
	builder *quality.Builder,
	eventBus interfaces.EventBus,
	metrics *Metrics,
	logger interfaces.Logger,
	cfg SyncConfig,
) *SyncService {
	if cfg.CheckpointInterval <= 0 {
		cfg.CheckpointInterval = config.DefaultCheckpointInterval
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = config.DefaultPageSize
	}
	if builder == nil {
		builder = quality.NewBuilder(nil)
	}
	return &SyncService{
		store:    store,
		builder:  builder,
		eventBus: eventBus,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
	}
}

// scan carries the state of one running scan.
type scan struct {
	*SyncService
	ctx     context.Context
	adapter provider.Adapter
	source  domain.Source
	opts    ScanOptions
	logger  interfaces.Logger
	state   ScanState
	result  domain.ScanResult
	started time.Time
}

func (sc *scan) transition(to ScanState) {
	sc.logger.Debug("Scan state changed",
		interfaces.String("from", sc.state.String()),
		interfaces.String("to", to.String()))
	sc.state = to
}

func (sc *scan) progress(p domain.ScanProgress) {
	if sc.opts.OnProgress == nil {
		return
	}
	if p.Total > 0 {
		p.Percentage = float64(p.Current) / float64(p.Total) * 100
	}
	sc.opts.OnProgress(p)
}

// abort ends the scan after err. An error caused by the scan's own context
// being cancelled is a cancellation, not a failure.
func (sc *scan) abort(err error) {
	if sc.ctx.Err() != nil {
		sc.cancel()
		return
	}
	sc.fail(err)
}

func (sc *scan) fail(err error) {
	sc.result.Success = false
	sc.result.Errors = append(sc.result.Errors, err.Error())
	sc.transition(StateFailed)
}

// Scan runs one library scan. It never returns an error: failures,
// including panics and cancellation, are reported in the result.
func (s *SyncService) Scan(ctx context.Context, adapter provider.Adapter, source domain.Source, libraryID string, opts ScanOptions) domain.ScanResult {
	start := time.Now()
	started := start
	if !opts.StartedAt.IsZero() {
		started = opts.StartedAt
	}
	scanID := uuid.NewString()
	sc := &scan{
		SyncService: s,
		ctx:         pkglogger.WithScanID(ctx, scanID),
		adapter:     adapter,
		source:      source,
		opts:        opts,
		started:     started,
		logger: s.logger.WithFields(
			interfaces.String("scan_id", scanID),
			interfaces.String("source_id", source.ID),
			interfaces.String("library_id", libraryID)),
		result: domain.ScanResult{
			ScanID:      scanID,
			SourceID:    source.ID,
			LibraryID:   libraryID,
			Incremental: opts.Incremental(),
			Errors:      []string{},
		},
	}

	mode := "full"
	if sc.result.Incremental {
		mode = "incremental"
	}
	sc.logger.Info("Starting library scan", interfaces.String("mode", mode))
	s.metrics.scanStarted(source.ID)

	func() {
		defer func() {
			if r := recover(); r != nil {
				sc.fail(fmt.Errorf("scan panicked: %v", r))
			}
		}()
		sc.run()
	}()

	sc.result.DurationMs = time.Since(start).Milliseconds()
	s.metrics.scanFinished(sc.result, time.Since(start))
	s.finish(sc)
	return sc.result
}

func (s *SyncService) finish(sc *scan) {
	r := sc.result
	switch {
	case r.Cancelled:
		sc.logger.Info("Library scan cancelled",
			interfaces.Int("items_scanned", r.ItemsScanned))
	case r.Success:
		sc.logger.Info("Library scan completed",
			interfaces.Int("items_scanned", r.ItemsScanned),
			interfaces.Int("items_added", r.ItemsAdded),
			interfaces.Int("items_updated", r.ItemsUpdated),
			interfaces.Int("items_removed", r.ItemsRemoved),
			interfaces.Int("errors", len(r.Errors)),
			interfaces.Int64("duration_ms", r.DurationMs))
	default:
		sc.logger.Error("Library scan failed",
			interfaces.Any("errors", r.Errors),
			interfaces.Int64("duration_ms", r.DurationMs))
	}

	if s.eventBus != nil {
		if err := s.eventBus.Publish(context.WithoutCancel(sc.ctx), domain.NewScanFinishedEvent(r)); err != nil {
			sc.logger.Warn("Failed to publish scan event", interfaces.Error(err))
		}
	}
}

func (sc *scan) run() {
	ctx := sc.ctx
	libraryID := sc.result.LibraryID

	sc.transition(StateFetching)
	sc.progress(domain.ScanProgress{Phase: domain.PhaseFetching})

	var since *time.Time
	if sc.result.Incremental {
		since = sc.opts.Since
	}
	items, total, err := provider.FetchAll(ctx, sc.adapter, libraryID, sc.cfg.PageSize, since, func(fetched, total int) {
		sc.progress(domain.ScanProgress{Current: fetched, Total: total, Phase: domain.PhaseFetching})
	})
	if err != nil {
		if ctx.Err() != nil {
			sc.cancel()
			return
		}
		sc.fail(fmt.Errorf("fetching library %s: %w", libraryID, err))
		return
	}

	if since != nil && !sc.adapter.Capabilities().ModifiedSinceFilter {
		items = modifiedSince(items, *since)
		sc.logger.Debug("Filtered items locally",
			interfaces.Int("fetched", total),
			interfaces.Int("kept", len(items)))
	}

	existing, err := sc.existing(libraryID)
	if err != nil {
		sc.abort(err)
		return
	}

	if err := sc.store.StartBatch(ctx); err != nil {
		sc.abort(&storeError{op: "starting batch", err: err})
		return
	}
	batchOpen := true
	endBatch := func() error {
		if !batchOpen {
			return nil
		}
		batchOpen = false
		if err := sc.store.EndBatch(context.WithoutCancel(ctx)); err != nil {
			return &storeError{op: "ending batch", err: err}
		}
		return nil
	}
	defer func() {
		if err := endBatch(); err != nil {
			sc.fail(err)
		}
	}()

	sc.transition(StateProcessing)
	seen, ok := sc.process(items, existing)
	if !ok {
		return
	}

	if !sc.result.Incremental {
		sc.transition(StateReconciling)
		sc.progress(domain.ScanProgress{Phase: domain.PhaseReconciling})
		if err := sc.reconcile(libraryID, seen); err != nil {
			sc.abort(err)
			return
		}
	}

	if err := endBatch(); err != nil {
		sc.fail(err)
		return
	}

	sc.result.Success = true
	if err := sc.store.UpdateSourceScanTime(context.WithoutCancel(ctx), sc.source.ID, sc.started); err != nil {
		sc.fail(&storeError{op: "updating source scan time", err: err})
		return
	}
	sc.transition(StateDone)
	sc.progress(domain.ScanProgress{
		Current: sc.result.ItemsScanned,
		Total:   sc.result.ItemsScanned,
		Phase:   domain.PhaseComplete,
	})
}

func (sc *scan) cancel() {
	sc.result.Cancelled = true
	sc.result.Success = false
	sc.transition(StateCancelled)
}

// existing loads the stored items of the library keyed by provider id.
func (sc *scan) existing(libraryID string) (map[string]*domain.MediaItem, error) {
	items, err := sc.store.GetMediaItems(sc.ctx, repository.ItemFilter{
		SourceID:  sc.source.ID,
		LibraryID: libraryID,
	})
	if err != nil {
		return nil, &storeError{op: "loading stored items", err: err}
	}
	byProviderID := make(map[string]*domain.MediaItem, len(items))
	for _, item := range items {
		byProviderID[item.ProviderItemID] = item
	}
	return byProviderID, nil
}

// process runs the item loop. It returns the canonical ids seen and false
// when the scan ended early (cancelled or failed).
func (sc *scan) process(items []*domain.MediaMetadata, existing map[string]*domain.MediaItem) (map[string]bool, bool) {
	seen := make(map[string]bool, len(items))
	total := len(items)

	for i, md := range items {
		if sc.ctx.Err() != nil {
			sc.cancel()
			return nil, false
		}

		item, added, err := sc.processItem(md, existing)
		if err != nil {
			var se *storeError
			if errors.As(err, &se) {
				sc.abort(err)
				return nil, false
			}
			sc.logger.Warn("Failed to process item",
				interfaces.String("provider_item_id", providerID(md)),
				interfaces.Error(err))
			sc.result.Errors = append(sc.result.Errors, err.Error())
			sc.metrics.itemProcessed(sc.source.ID, "failed")
			// The item is still present at the source, so its stored
			// record must survive reconciliation.
			if prev := existing[providerID(md)]; prev != nil {
				seen[prev.ID] = true
			}
		} else {
			sc.result.ItemsScanned++
			if added {
				sc.result.ItemsAdded++
				sc.metrics.itemProcessed(sc.source.ID, "added")
			} else {
				sc.result.ItemsUpdated++
				sc.metrics.itemProcessed(sc.source.ID, "updated")
			}
			seen[item.ID] = true
		}

		label := ""
		if md != nil {
			label = md.Label()
		}
		sc.progress(domain.ScanProgress{
			Current:          i + 1,
			Total:            total,
			Phase:            domain.PhaseProcessing,
			CurrentItemLabel: label,
		})

		if err == nil && sc.result.ItemsScanned%sc.cfg.CheckpointInterval == 0 {
			if err := sc.checkpoint(); err != nil {
				sc.fail(err)
				return nil, false
			}
		}
	}
	return seen, true
}

func (sc *scan) checkpoint() error {
	sc.transition(StateCheckpoint)
	defer sc.transition(StateProcessing)

	if err := sc.store.ForceSave(context.WithoutCancel(sc.ctx)); err != nil {
		return &storeError{op: "checkpoint", err: err}
	}
	sc.logger.Debug("Checkpoint saved", interfaces.Int("items_scanned", sc.result.ItemsScanned))
	return nil
}

// processItem builds and upserts one item. Panics become item errors.
func (sc *scan) processItem(md *domain.MediaMetadata, existing map[string]*domain.MediaItem) (item *domain.MediaItem, added bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			item, added = nil, false
			err = fmt.Errorf("item %s: panic: %v", providerID(md), r)
		}
	}()

	item, err = sc.builder.Build(sc.source, sc.result.LibraryID, md)
	if err != nil {
		return nil, false, err
	}

	prev := existing[item.ProviderItemID]
	quality.PreserveMeasured(sc.builder.Reconciler().Table(), prev, item)

	id, err := sc.store.UpsertMediaItem(sc.ctx, item)
	if err != nil {
		return nil, false, &storeError{op: "saving item " + item.ProviderItemID, err: err}
	}
	item.ID = id
	existing[item.ProviderItemID] = item
	return item, prev == nil, nil
}

// reconcile deletes stored items of the library that were not seen.
func (sc *scan) reconcile(libraryID string, seen map[string]bool) error {
	stored, err := sc.store.GetMediaItems(sc.ctx, repository.ItemFilter{
		SourceID:  sc.source.ID,
		LibraryID: libraryID,
	})
	if err != nil {
		return &storeError{op: "loading items for reconciliation", err: err}
	}

	for _, item := range stored {
		if seen[item.ID] {
			continue
		}
		if err := sc.store.DeleteMediaItem(sc.ctx, item.ID); err != nil {
			if errors.Is(err, domain.ErrItemNotFound) {
				continue
			}
			return &storeError{op: "deleting item " + item.ID, err: err}
		}
		sc.result.ItemsRemoved++
		sc.metrics.itemRemoved(sc.source.ID)
		if sc.eventBus != nil {
			sc.eventBus.PublishAsync(sc.ctx, domain.NewItemRemovedEvent(item))
		}
	}

	if sc.result.ItemsRemoved > 0 {
		sc.logger.Info("Pruned stale items", interfaces.Int("count", sc.result.ItemsRemoved))
	}
	return nil
}

// modifiedSince keeps items changed after since. Items without a
// timestamp are kept.
func modifiedSince(items []*domain.MediaMetadata, since time.Time) []*domain.MediaMetadata {
	kept := make([]*domain.MediaMetadata, 0, len(items))
	for _, md := range items {
		if md == nil || md.ModifiedAt.IsZero() || md.ModifiedAt.After(since) {
			kept = append(kept, md)
		}
	}
	return kept
}

func providerID(md *domain.MediaMetadata) string {
	if md == nil {
		return ""
	}
	return md.ProviderItemID
}
