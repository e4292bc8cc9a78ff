package providers

import (
	"fmt"
	"os"

	"github.com/samber/do/v2"

	"github.com/playlore/playlore-server/internal/config"
	"github.com/playlore/playlore-server/internal/logger"
	"github.com/playlore/playlore-server/internal/store/sqlite"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the catalog database.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if err := os.MkdirAll(cfg.Data.Path, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := cfg.Data.DatabasePath()
	opts := []sqlite.Option{}
	if cfg.Query.CacheSize > 0 {
		opts = append(opts, sqlite.WithCacheSize(cfg.Query.CacheSize))
	}
	db, err := sqlite.Open(dbPath, log.Component("store"), opts...)
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "path", dbPath)

	return &StoreHandle{Store: db}, nil
}
