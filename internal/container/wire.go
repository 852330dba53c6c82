//go:build wireinject
// +build wireinject

package container

import (
	"github.com/google/wire"

	"github.com/narwhalmedia/catalog/internal/catalog/service"
	"github.com/narwhalmedia/catalog/pkg/config"
	"github.com/narwhalmedia/catalog/pkg/events"
	"github.com/narwhalmedia/catalog/pkg/interfaces"
)

// Initialize builds the catalog container from cfg.
func Initialize(cfg *config.CatalogConfig) (*Container, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetricsRegistry,
		ProvideMetrics,

		// Persistence and events
		ProvideStore,
		ProvideEventBus,
		wire.Bind(new(interfaces.EventBus), new(*events.InMemoryEventBus)),

		// Sources
		ProvideParentCache,
		ProvideAnalyzer,
		ProvideRegistry,

		// Sync engine
		ProvideBuilder,
		ProvideSyncConfig,
		service.NewSyncService,
		ProvideCoordinator,
		ProvideScheduler,

		wire.Struct(new(Container), "*"),
	)
	return nil, nil, nil
}
