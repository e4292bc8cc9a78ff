package api

import (
	"github.com/playlore/playlore-server/internal/backup"
	"github.com/playlore/playlore-server/internal/browse"
	"github.com/playlore/playlore-server/internal/service"
)

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Catalog  *service.CatalogService
	Browse   *browse.Service
	Tag      *service.TagService
	Platform *service.PlatformService
	Sync     *service.SyncService  // nil when no metadata source is configured
	Search   *service.SearchService // nil when search is disabled
	Backup   *backup.BackupService
}
