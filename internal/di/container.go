// Package di provides dependency injection configuration for the Playlore server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/playlore/playlore-server/internal/backup"
	"github.com/playlore/playlore-server/internal/browse"
	"github.com/playlore/playlore-server/internal/config"
	"github.com/playlore/playlore-server/internal/di/providers"
	"github.com/playlore/playlore-server/internal/logger"
	"github.com/playlore/playlore-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers. A nil cfg
// loads configuration from the process arguments and environment.
func NewContainer(version string, cfg *config.Config) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.ProvideNamedValue(injector, providers.VersionName, version)
	if cfg != nil {
		do.ProvideValue(injector, cfg)
	} else {
		do.Provide(injector, providers.ProvideConfig)
	}
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideValidator)

	// Database layer
	do.Provide(injector, providers.ProvideStore)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideSearchService)

	// Sync layer
	do.Provide(injector, providers.ProvideSourceLimiter)
	do.Provide(injector, providers.ProvideSourceFactory)
	do.Provide(injector, providers.ProvideSyncEngine)
	do.Provide(injector, providers.ProvideSyncService)

	// Business services
	do.Provide(injector, providers.ProvideCatalogService)
	do.Provide(injector, providers.ProvideTagService)
	do.Provide(injector, providers.ProvidePlatformService)
	do.Provide(injector, providers.ProvideBrowseService)
	do.Provide(injector, providers.ProvideBackupService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and starts the HTTP server.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.SearchIndexHandle](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*service.SearchService](injector)
	if _, err := do.Invoke[*service.SyncService](injector); err != nil {
		return err
	}

	// Business services
	_ = do.MustInvoke[*service.CatalogService](injector)
	_ = do.MustInvoke[*service.TagService](injector)
	_ = do.MustInvoke[*service.PlatformService](injector)
	_ = do.MustInvoke[*browse.Service](injector)
	_ = do.MustInvoke[*backup.BackupService](injector)

	// Server
	if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
		return err
	}

	// Trigger search reindex if needed
	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}

// Shutdown stops every service in reverse dependency order. The container always
// returns a report; only a report carrying service errors is an error.
func Shutdown(injector *do.RootScope) error {
	report := injector.Shutdown()
	if report == nil || len(report.Errors) == 0 {
		return nil
	}
	return report
}
