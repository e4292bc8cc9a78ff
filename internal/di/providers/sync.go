package providers

import (
	"math"

	"github.com/samber/do/v2"

	"github.com/playlore/playlore-server/internal/config"
	"github.com/playlore/playlore-server/internal/domain"
	"github.com/playlore/playlore-server/internal/logger"
	"github.com/playlore/playlore-server/internal/metasync"
	"github.com/playlore/playlore-server/internal/metasync/remote"
	"github.com/playlore/playlore-server/internal/ratelimit"
	"github.com/playlore/playlore-server/internal/service"
)

// SourceLimiterHandle wraps the per-host limiter shared by remote clients.
type SourceLimiterHandle struct {
	*ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *SourceLimiterHandle) Shutdown() error {
	if h.KeyedRateLimiter != nil {
		h.Stop()
	}
	return nil
}

// ProvideSourceLimiter provides the remote request limiter. A zero rate disables it.
func ProvideSourceLimiter(i do.Injector) (*SourceLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	if cfg.Sync.RateLimit <= 0 {
		return &SourceLimiterHandle{}, nil
	}
	burst := max(1, int(math.Ceil(cfg.Sync.RateLimit)))
	return &SourceLimiterHandle{KeyedRateLimiter: ratelimit.New(cfg.Sync.RateLimit, burst)}, nil
}

// ProvideSourceFactory provides the constructor of remote source clients.
func ProvideSourceFactory(i do.Injector) (service.SourceFactory, error) {
	cfg := do.MustInvoke[*config.Config](i)
	limiter := do.MustInvoke[*SourceLimiterHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return func(src domain.MetadataSource) (metasync.Source, error) {
		return remote.New(remote.Config{
			BaseURL:    src.BaseURL,
			Timeout:    cfg.Sync.FetchTimeout,
			MaxRetries: uint64(max(cfg.Sync.MaxRetries, 0)), //#nosec G115 -- clamped non-negative
			Limiter:    limiter.KeyedRateLimiter,
			Logger:     log.Component("remote").With("source", src.Name),
		})
	}, nil
}

// ProvideSyncEngine provides the metadata sync engine.
func ProvideSyncEngine(i do.Injector) (*metasync.Engine, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	return metasync.NewEngine(storeHandle.Store, log.Component("sync"), metasync.WithBatchSize(cfg.Sync.BatchSize)), nil
}

// ProvideSyncService provides the sync service over the sources file.
func ProvideSyncService(i do.Injector) (*service.SyncService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	engine := do.MustInvoke[*metasync.Engine](i)
	factory := do.MustInvoke[service.SourceFactory](i)
	log := do.MustInvoke[*logger.Logger](i)

	sources, err := config.LoadSources(cfg.Data.SourcesFile)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		log.Info("No metadata sources configured", "sources_file", cfg.Data.SourcesFile)
	} else {
		for _, src := range sources {
			log.Info("Metadata source configured", "source", src.Name, "base_url", src.BaseURL)
		}
	}

	return service.NewSyncService(engine, storeHandle.Store, sources, factory, log.Component("sync")), nil
}
