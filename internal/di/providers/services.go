package providers

import (
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/playlore/playlore-server/internal/backup"
	"github.com/playlore/playlore-server/internal/browse"
	"github.com/playlore/playlore-server/internal/config"
	"github.com/playlore/playlore-server/internal/logger"
	"github.com/playlore/playlore-server/internal/service"
	"github.com/playlore/playlore-server/internal/validation"
)

// ProvideValidator provides the request validator shared by services.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideCatalogService provides the catalog service.
func ProvideCatalogService(i do.Injector) (*service.CatalogService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewCatalogService(storeHandle.Store, v, log.Component("catalog")), nil
}

// ProvideTagService provides the tag service.
func ProvideTagService(i do.Injector) (*service.TagService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewTagService(storeHandle.Store, v, log.Component("tags")), nil
}

// ProvidePlatformService provides the platform service.
func ProvidePlatformService(i do.Injector) (*service.PlatformService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewPlatformService(storeHandle.Store, v, log.Component("platforms")), nil
}

// ProvideBrowseService provides the keyset and range query service.
func ProvideBrowseService(i do.Injector) (*browse.Service, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	return browse.NewService(storeHandle.Store, log.Component("browse")), nil
}

// ProvideBackupService provides the backup service writing under {data}/backups.
func ProvideBackupService(i do.Injector) (*backup.BackupService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	version := do.MustInvokeNamed[string](i, VersionName)

	backupDir := filepath.Join(cfg.Data.Path, "backups")
	return backup.NewBackupService(storeHandle.Store, backupDir, version, log.Component("backup")), nil
}
