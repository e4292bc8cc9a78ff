package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/playlore/playlore-server/internal/api"
	"github.com/playlore/playlore-server/internal/backup"
	"github.com/playlore/playlore-server/internal/browse"
	"github.com/playlore/playlore-server/internal/config"
	"github.com/playlore/playlore-server/internal/logger"
	"github.com/playlore/playlore-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	api *api.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Server.Shutdown(ctx)
	h.api.Close()
	return err
}

// ProvideHTTPServer provides the HTTP server and starts listening.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	version := do.MustInvokeNamed[string](i, VersionName)

	services := &api.Services{
		Catalog:  do.MustInvoke[*service.CatalogService](i),
		Browse:   do.MustInvoke[*browse.Service](i),
		Tag:      do.MustInvoke[*service.TagService](i),
		Platform: do.MustInvoke[*service.PlatformService](i),
		Sync:     do.MustInvoke[*service.SyncService](i),
		Search:   do.MustInvoke[*service.SearchService](i),
		Backup:   do.MustInvoke[*backup.BackupService](i),
	}

	handler := api.NewServer(storeHandle.Store, services, api.Options{
		Version:               version,
		CORSOrigins:           cfg.Server.CORSOrigins,
		SyncRequestsPerMinute: cfg.Server.SyncRequestsPerMinute,
	}, log.Component("http"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv, api: handler}, nil
}
