package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/narwhalmedia/catalog/internal/catalog/domain"
	"github.com/narwhalmedia/catalog/internal/catalog/provider"
	"github.com/narwhalmedia/catalog/internal/catalog/repository"
	"github.com/narwhalmedia/catalog/pkg/config"
	"github.com/narwhalmedia/catalog/pkg/interfaces"
)

// Mode selects how a requested scan picks its since timestamp.
type Mode int

const (
	// ModeFull scans everything and prunes.
	ModeFull Mode = iota
	// ModeIncremental scans changes since the source's last scan, or
	// everything when the source was never scanned.
	ModeIncremental
)

func (m Mode) String() string {
	if m == ModeIncremental {
		return "incremental"
	}
	return "full"
}

// ScanRequest asks the coordinator for a scan.
type ScanRequest struct {
	SourceID string
	// LibraryID limits the scan to one library.
	LibraryID string
	Mode      Mode
	// Since overrides the stored last scan time for incremental scans.
	Since      *time.Time
	OnProgress ProgressFunc
}

// Coordinator resolves configured sources to adapters and runs scans,
// allowing at most one in-flight scan per source.
type Coordinator struct {
	sync     *SyncService
	registry *provider.Registry
	store    repository.Store
	sources  []config.SourceConfig
	logger   interfaces.Logger

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

// NewCoordinator creates a coordinator for the configured sources.
func NewCoordinator(
	syncService *SyncService,
	registry *provider.Registry,
	store repository.Store,
	sources []config.SourceConfig,
	logger interfaces.Logger,
) *Coordinator {
	return &Coordinator{
		sync:     syncService,
		registry: registry,
		store:    store,
		sources:  sources,
		logger:   logger,
		running:  make(map[string]context.CancelFunc),
	}
}

// Sources returns the configured sources.
func (c *Coordinator) Sources() []config.SourceConfig {
	return c.sources
}

func (c *Coordinator) source(id string) (config.SourceConfig, error) {
	for _, src := range c.sources {
		if src.ID == id {
			return src, nil
		}
	}
	return config.SourceConfig{}, fmt.Errorf("%w: %s", domain.ErrSourceNotFound, id)
}

func toDomainSource(src config.SourceConfig) domain.Source {
	name := src.Name
	if name == "" {
		name = src.ID
	}
	return domain.Source{ID: src.ID, Type: domain.SourceType(src.Type), Name: name}
}

// acquire marks the source as scanning and returns a context the scan
// runs under, or ErrScanInProgress.
func (c *Coordinator) acquire(ctx context.Context, sourceID string) (context.Context, func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, busy := c.running[sourceID]; busy {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrScanInProgress, sourceID)
	}
	scanCtx, cancel := context.WithCancel(ctx)
	c.running[sourceID] = cancel
	release := func() {
		c.mu.Lock()
		delete(c.running, sourceID)
		c.mu.Unlock()
		cancel()
	}
	return scanCtx, release, nil
}

// Running reports whether the source has a scan in flight.
func (c *Coordinator) Running(sourceID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.running[sourceID]
	return ok
}

// Run performs the requested scan and returns one result per library.
func (c *Coordinator) Run(ctx context.Context, req ScanRequest) ([]domain.ScanResult, error) {
	src, err := c.source(req.SourceID)
	if err != nil {
		return nil, err
	}

	scanCtx, release, err := c.acquire(ctx, src.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	adapter, err := c.registry.Adapter(src)
	if err != nil {
		return nil, err
	}

	source := toDomainSource(src)
	if err := c.store.RegisterSource(scanCtx, source); err != nil {
		return nil, fmt.Errorf("registering source %s: %w", src.ID, err)
	}

	opts := ScanOptions{OnProgress: req.OnProgress, ForceFull: req.Mode == ModeFull, StartedAt: time.Now()}
	if req.Mode == ModeIncremental {
		opts.Since = req.Since
		if opts.Since == nil {
			stored, err := c.store.GetSource(scanCtx, src.ID)
			if err != nil {
				return nil, err
			}
			opts.Since = stored.LastScanAt
		}
	}

	c.logger.Info("Scan requested",
		interfaces.String("source_id", src.ID),
		interfaces.String("library_id", req.LibraryID),
		interfaces.String("mode", req.Mode.String()),
		interfaces.Bool("incremental", opts.Incremental()))

	if req.LibraryID != "" {
		return []domain.ScanResult{c.sync.Scan(scanCtx, adapter, source, req.LibraryID, opts)}, nil
	}
	return c.sync.ScanSource(scanCtx, adapter, source, opts), nil
}

// RunAll scans every configured source in turn. Sources already being
// scanned are skipped.
func (c *Coordinator) RunAll(ctx context.Context, mode Mode) {
	for _, src := range c.sources {
		if ctx.Err() != nil {
			return
		}
		results, err := c.Run(ctx, ScanRequest{SourceID: src.ID, Mode: mode})
		switch {
		case errors.Is(err, domain.ErrScanInProgress):
			c.logger.Info("Skipping source with scan in progress", interfaces.String("source_id", src.ID))
		case err != nil:
			c.logger.Error("Scan could not start",
				interfaces.String("source_id", src.ID),
				interfaces.Error(err))
		default:
			failed := 0
			for _, r := range results {
				if !r.Success {
					failed++
				}
			}
			c.logger.Info("Source scan finished",
				interfaces.String("source_id", src.ID),
				interfaces.Int("libraries", len(results)),
				interfaces.Int("failed", failed))
		}
	}
}

// Refresh re-reads one item of a source.
func (c *Coordinator) Refresh(ctx context.Context, sourceID, libraryID, providerItemID string) (*domain.MediaItem, error) {
	src, err := c.source(sourceID)
	if err != nil {
		return nil, err
	}
	adapter, err := c.registry.Adapter(src)
	if err != nil {
		return nil, err
	}
	source := toDomainSource(src)
	if err := c.store.RegisterSource(ctx, source); err != nil {
		return nil, err
	}
	return c.sync.RefreshItem(ctx, adapter, source, libraryID, providerItemID)
}

// Libraries lists the libraries of a source.
func (c *Coordinator) Libraries(ctx context.Context, sourceID string) ([]domain.LibraryInfo, error) {
	src, err := c.source(sourceID)
	if err != nil {
		return nil, err
	}
	adapter, err := c.registry.Adapter(src)
	if err != nil {
		return nil, err
	}
	return adapter.GetLibraries(ctx)
}

// CancelAll cancels every running scan.
func (c *Coordinator) CancelAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, cancel := range c.running {
		c.logger.Info("Cancelling scan", interfaces.String("source_id", id))
		cancel()
	}
}
