// Package container assembles the catalog service from configuration.
package container

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/narwhalmedia/catalog/internal/catalog/domain"
	"github.com/narwhalmedia/catalog/internal/catalog/provider"
	"github.com/narwhalmedia/catalog/internal/catalog/provider/local"
	"github.com/narwhalmedia/catalog/internal/catalog/provider/mediaserver"
	"github.com/narwhalmedia/catalog/internal/catalog/provider/plex"
	"github.com/narwhalmedia/catalog/internal/catalog/provider/s3object"
	"github.com/narwhalmedia/catalog/internal/catalog/quality"
	"github.com/narwhalmedia/catalog/internal/catalog/repository"
	"github.com/narwhalmedia/catalog/internal/catalog/service"
	"github.com/narwhalmedia/catalog/internal/infrastructure/events/kafka"
	catalognats "github.com/narwhalmedia/catalog/internal/infrastructure/events/nats"
	"github.com/narwhalmedia/catalog/internal/infrastructure/probe"
	"github.com/narwhalmedia/catalog/pkg/config"
	"github.com/narwhalmedia/catalog/pkg/database"
	"github.com/narwhalmedia/catalog/pkg/events"
	"github.com/narwhalmedia/catalog/pkg/interfaces"
	"github.com/narwhalmedia/catalog/pkg/logger"
	"github.com/narwhalmedia/catalog/pkg/utils"
)

// Container holds the long-lived parts of the catalog service.
type Container struct {
	Config      *config.CatalogConfig
	Logger      interfaces.Logger
	Store       repository.Store
	EventBus    *events.InMemoryEventBus
	Registry    *provider.Registry
	Metrics     *prometheus.Registry
	Coordinator *service.Coordinator
	Scheduler   *service.Scheduler
}

// ProvideLogger builds the zap logger described by the logger section.
func ProvideLogger(cfg *config.CatalogConfig) (interfaces.Logger, func(), error) {
	zl, err := logger.NewFromConfig(cfg.Logger.ToLoggerConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	log := zl.WithFields(
		interfaces.String("service", cfg.Service.Name),
		interfaces.String("version", config.GetServiceVersion(&cfg.Service)),
	)
	return log, func() { _ = zl.Sync() }, nil
}

// ProvideStore opens the configured store. The gorm store is migrated
// before it is handed out.
func ProvideStore(cfg *config.CatalogConfig, log interfaces.Logger) (repository.Store, func(), error) {
	switch cfg.Sync.Store {
	case "snapshot":
		store, err := repository.NewSnapshotStore(cfg.Sync.SnapshotPath, log)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	default:
		db, err := database.Open(cfg.Database.ToDatabaseConfig(), log)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			if err := database.Close(db); err != nil {
				log.Error("Failed to close database", interfaces.Error(err))
			}
		}
		if err := database.NewMigrator(db, log, repository.Migrations()...).Migrate(); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to migrate catalog schema: %w", err)
		}
		return repository.NewGormStore(db, log), cleanup, nil
	}
}

// ProvideEventBus creates the in-process bus and attaches the configured
// broker forwarder to it.
func ProvideEventBus(cfg *config.CatalogConfig, log interfaces.Logger) (*events.InMemoryEventBus, func(), error) {
	bus := events.NewInMemoryEventBus(log)
	closers := []func(){}
	cleanup := func() {
		if err := bus.Stop(); err != nil {
			log.Warn("Failed to stop event bus", interfaces.Error(err))
		}
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.Events.Backend {
	case "nats":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		client, closeNATS, err := catalognats.Connect(ctx, cfg.Events.NATS.URL, cfg.Service.Name, cfg.Events.NATS.StreamName, log)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, closeNATS)
		if err := bus.Subscribe(events.AllEvents, catalognats.NewForwarder(client.JetStream(), log)); err != nil {
			cleanup()
			return nil, nil, err
		}
	case "kafka":
		fwd, err := kafka.NewForwarder(cfg.Events.Kafka.Brokers, cfg.Events.Kafka.Topic, log)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() {
			if err := fwd.Close(); err != nil {
				log.Warn("Failed to close kafka producer", interfaces.Error(err))
			}
		})
		if err := bus.Subscribe(events.AllEvents, fwd); err != nil {
			cleanup()
			return nil, nil, err
		}
	}
	return bus, cleanup, nil
}

// ProvideParentCache creates the cache shared by remote adapters for
// series and season lookups.
func ProvideParentCache() (*utils.InMemoryCache, func()) {
	cache := utils.NewInMemoryCache(time.Minute)
	return cache, func() { _ = cache.Close() }
}

// ProvideAnalyzer locates ffprobe. Without it local sources are still
// scanned from their file names alone.
func ProvideAnalyzer(cfg *config.CatalogConfig, log interfaces.Logger) local.FileAnalyzer {
	ff, err := probe.New(cfg.Sync.FFProbePath, 2, log)
	if err != nil {
		log.Warn("ffprobe unavailable, local files will not be probed", interfaces.Error(err))
		return nil
	}
	return ff
}

// ProvideRegistry registers a factory for every supported source type.
func ProvideRegistry(cfg *config.CatalogConfig, cache *utils.InMemoryCache, analyzer local.FileAnalyzer, log interfaces.Logger) *provider.Registry {
	s := cfg.Sync
	registry := provider.NewRegistry()

	msOpts := mediaserver.Options{
		Timeout:           s.RequestTimeout,
		RequestsPerSecond: s.RequestsPerSecond,
		ParentCache:       cache,
		ParentCacheTTL:    s.ParentCacheTTL,
		Logger:            log,
	}
	registry.Register(domain.SourceTypeJellyfin, mediaserver.Factory(mediaserver.Jellyfin, msOpts))
	registry.Register(domain.SourceTypeEmby, mediaserver.Factory(mediaserver.Emby, msOpts))
	registry.Register(domain.SourceTypePlex, plex.Factory(plex.Options{
		Timeout:           s.RequestTimeout,
		RequestsPerSecond: s.RequestsPerSecond,
		ParentCache:       cache,
		ParentCacheTTL:    s.ParentCacheTTL,
		Logger:            log,
	}))
	registry.Register(domain.SourceTypeLocal, local.Factory(analyzer, log))
	registry.Register(domain.SourceTypeS3, s3object.Factory(log))
	return registry
}

// ProvideBuilder configures the quality pipeline with the audio budget.
func ProvideBuilder(cfg *config.CatalogConfig) *quality.Builder {
	rc := quality.DefaultReconcilerConfig()
	rc.AudioCapRatio = cfg.Sync.AudioCapRatio
	rc.OverheadRatio = cfg.Sync.AudioOverheadRatio
	return quality.NewBuilder(quality.NewBitrateReconciler(rc))
}

// ProvideMetricsRegistry returns a registry with the Go runtime and process
// collectors already registered.
func ProvideMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func ProvideMetrics(reg *prometheus.Registry) *service.Metrics {
	return service.NewMetrics(reg)
}

func ProvideSyncConfig(cfg *config.CatalogConfig) service.SyncConfig {
	return service.SyncConfigFrom(cfg.Sync)
}

func ProvideCoordinator(
	syncService *service.SyncService,
	registry *provider.Registry,
	store repository.Store,
	cfg *config.CatalogConfig,
	log interfaces.Logger,
) *service.Coordinator {
	return service.NewCoordinator(syncService, registry, store, cfg.Sources, log)
}

func ProvideScheduler(coordinator *service.Coordinator, cfg *config.CatalogConfig, log interfaces.Logger) (*service.Scheduler, error) {
	return service.NewScheduler(coordinator, cfg.Sync.FullScanCron, cfg.Sync.IncrementalInterval, log)
}

// NewWatcher watches every local source when watching is enabled. It
// returns nil when there is nothing to watch.
func NewWatcher(c *Container) (*service.Watcher, error) {
	if !c.Config.Sync.WatchLocal {
		return nil, nil
	}
	var roots []config.SourceConfig
	for _, src := range c.Config.Sources {
		if src.Type == string(domain.SourceTypeLocal) {
			roots = append(roots, src)
		}
	}
	if len(roots) == 0 {
		return nil, nil
	}

	trigger := func(ctx context.Context, sourceID string) {
		_, err := c.Coordinator.Run(ctx, service.ScanRequest{SourceID: sourceID, Mode: service.ModeIncremental})
		if err != nil && !errors.Is(err, domain.ErrScanInProgress) {
			c.Logger.Warn("Triggered scan failed", interfaces.String("source_id", sourceID), interfaces.Error(err))
		}
	}
	w, err := service.NewWatcher(c.Config.Sync.WatchDebounce, trigger, c.Logger)
	if err != nil {
		return nil, err
	}
	for _, src := range roots {
		if err := w.Watch(src.ID, src.Root); err != nil {
			c.Logger.Warn("Cannot watch local source",
				interfaces.String("source_id", src.ID),
				interfaces.String("root", src.Root),
				interfaces.Error(err))
		}
	}
	return w, nil
}
