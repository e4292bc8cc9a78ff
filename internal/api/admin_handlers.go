package api

import (
	"context"
	"io"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/playlore/playlore-server/internal/backup"
	domainerrors "github.com/playlore/playlore-server/internal/errors"
	"github.com/playlore/playlore-server/internal/store"
)

// Maintenance tasks.
const (
	TaskRebuildCaches     = "rebuild-caches"
	TaskFixPrimaryAliases = "fix-primary-aliases"
	TaskCleanupAliases    = "cleanup-aliases"
	TaskCleanupCommaTags  = "cleanup-comma-tags"
)

func (s *Server) registerAdminRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBackups",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/backups",
		Summary:     "List backups",
		Description: "Returns the backup archives in the backup directory, newest first",
		Tags:        []string{"Admin"},
	}, s.handleListBackups)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createBackup",
		Method:        http.MethodPost,
		Path:          "/api/v1/admin/backups",
		Summary:       "Create backup",
		Description:   "Exports the whole catalog to a backup archive",
		Tags:          []string{"Admin"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateBackup)

	huma.Register(s.api, huma.Operation{
		OperationID: "validateBackup",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/backups/{id}/validate",
		Summary:     "Validate backup",
		Description: "Checks a backup archive's entity files against its manifest",
		Tags:        []string{"Admin"},
	}, s.handleValidateBackup)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteBackup",
		Method:        http.MethodDelete,
		Path:          "/api/v1/admin/backups/{id}",
		Summary:       "Delete backup",
		Description:   "Deletes a backup archive",
		Tags:          []string{"Admin"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteBackup)

	huma.Register(s.api, huma.Operation{
		OperationID: "exportTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/tags/export",
		Summary:     "Export tags",
		Description: "Returns every category and tag with its aliases",
		Tags:        []string{"Admin"},
	}, s.handleExportTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "importTags",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/tags/import",
		Summary:     "Import tags",
		Description: "Folds a tags document into the catalog. Alias collisions are reported unless merge is set",
		Tags:        []string{"Admin"},
	}, s.handleImportTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "runMaintenance",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/maintenance/{task}",
		Summary:     "Run maintenance task",
		Description: "Runs one catalog maintenance task and returns what it changed",
		Tags:        []string{"Admin"},
	}, s.handleMaintenance)

	huma.Register(s.api, huma.Operation{
		OperationID: "nukeTags",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/nuke",
		Summary:     "Delete games by tag",
		Description: "Deletes every game carrying any of the given tags",
		Tags:        []string{"Admin"},
	}, s.handleNukeTags)
}

// BackupListOutput wraps the backup list for Huma.
type BackupListOutput struct {
	Body struct {
		Backups []backup.BackupInfo `json:"backups" doc:"Backups, newest first"`
	}
}

// BackupResultOutput wraps a created backup for Huma.
type BackupResultOutput struct {
	Body *backup.BackupResult
}

// BackupIDInput identifies a backup.
type BackupIDInput struct {
	ID string `path:"id" doc:"Backup ID"`
}

// BackupValidationOutput wraps a validation report for Huma.
type BackupValidationOutput struct {
	Body *backup.ValidationResult
}

// ExportTagsOutput wraps the tags document for Huma.
type ExportTagsOutput struct {
	Body *backup.TagsDocument
}

// ImportTagsInput carries a tags document.
type ImportTagsInput struct {
	Merge bool `query:"merge" doc:"Merge tags whose aliases collide"`
	Body  backup.TagsDocument
}

// ImportTagsOutput wraps the import report for Huma.
type ImportTagsOutput struct {
	Body *backup.TagImportResult
}

// MaintenanceInput selects a maintenance task.
type MaintenanceInput struct {
	Task string `path:"task" enum:"rebuild-caches,fix-primary-aliases,cleanup-aliases,cleanup-comma-tags" doc:"Task name"`
}

// MaintenanceOutput reports a maintenance run.
type MaintenanceOutput struct {
	Body struct {
		Task     string                    `json:"task" doc:"Task name"`
		Affected int                       `json:"affected" doc:"Records changed"`
		Tags     *store.AliasCleanupResult `json:"tags,omitempty" doc:"Tag alias cleanup detail"`
		Platform *store.AliasCleanupResult `json:"platforms,omitempty" doc:"Platform alias cleanup detail"`
	}
}

// NukeTagsInput names the tags whose games are deleted.
type NukeTagsInput struct {
	Body struct {
		Tags []string `json:"tags" minItems:"1" doc:"Tag names"`
	}
}

// NukeTagsOutput reports deleted games.
type NukeTagsOutput struct {
	Body struct {
		Deleted int `json:"deleted" doc:"Games deleted"`
	}
}

func (s *Server) handleListBackups(ctx context.Context, _ *struct{}) (*BackupListOutput, error) {
	backups, err := s.services.Backup.List(ctx)
	if err != nil {
		return nil, s.handlerError("listBackups", err)
	}
	if backups == nil {
		backups = []backup.BackupInfo{}
	}
	out := &BackupListOutput{}
	out.Body.Backups = backups
	return out, nil
}

func (s *Server) handleCreateBackup(ctx context.Context, _ *struct{}) (*BackupResultOutput, error) {
	res, err := s.services.Backup.Create(ctx, backup.BackupOptions{})
	if err != nil {
		return nil, s.handlerError("createBackup", err)
	}
	return &BackupResultOutput{Body: res}, nil
}

func (s *Server) handleValidateBackup(ctx context.Context, input *BackupIDInput) (*BackupValidationOutput, error) {
	res, err := s.services.Backup.Validate(ctx, s.services.Backup.GetPath(input.ID))
	if err != nil {
		return nil, s.handlerError("validateBackup", err)
	}
	return &BackupValidationOutput{Body: res}, nil
}

func (s *Server) handleDeleteBackup(ctx context.Context, input *BackupIDInput) (*struct{}, error) {
	if err := s.services.Backup.Delete(ctx, input.ID); err != nil {
		return nil, s.handlerError("deleteBackup", err)
	}
	return nil, nil
}

func (s *Server) handleExportTags(ctx context.Context, _ *struct{}) (*ExportTagsOutput, error) {
	doc, err := s.services.Backup.ExportTags(ctx, io.Discard)
	if err != nil {
		return nil, s.handlerError("exportTags", err)
	}
	return &ExportTagsOutput{Body: doc}, nil
}

func (s *Server) handleImportTags(ctx context.Context, input *ImportTagsInput) (*ImportTagsOutput, error) {
	res, err := s.services.Backup.ImportTagsDocument(ctx, &input.Body, input.Merge)
	if err != nil {
		return nil, s.handlerError("importTags", err)
	}
	return &ImportTagsOutput{Body: res}, nil
}

func (s *Server) handleMaintenance(ctx context.Context, input *MaintenanceInput) (*MaintenanceOutput, error) {
	out := &MaintenanceOutput{}
	out.Body.Task = input.Task

	var err error
	switch input.Task {
	case TaskRebuildCaches:
		out.Body.Affected, err = s.services.Catalog.RebuildCaches(ctx)
	case TaskFixPrimaryAliases:
		var tags, platforms int
		if tags, err = s.services.Tag.FixPrimaryAliases(ctx); err == nil {
			platforms, err = s.services.Platform.FixPrimaryAliases(ctx)
		}
		out.Body.Affected = tags + platforms
	case TaskCleanupAliases:
		var tags, platforms store.AliasCleanupResult
		if tags, err = s.services.Tag.CleanupAliases(ctx); err == nil {
			platforms, err = s.services.Platform.CleanupAliases(ctx)
		}
		out.Body.Tags, out.Body.Platform = &tags, &platforms
		out.Body.Affected = tags.Renamed + tags.Deleted + platforms.Renamed + platforms.Deleted
	case TaskCleanupCommaTags:
		out.Body.Affected, err = s.services.Tag.CleanupCommaTags(ctx)
	default:
		err = domainerrors.Validationf("unknown maintenance task %q", input.Task)
	}
	if err != nil {
		return nil, s.handlerError("runMaintenance", err)
	}
	return out, nil
}

func (s *Server) handleNukeTags(ctx context.Context, input *NukeTagsInput) (*NukeTagsOutput, error) {
	n, err := s.services.Catalog.NukeTags(ctx, input.Body.Tags)
	if err != nil {
		return nil, s.handlerError("nukeTags", err)
	}
	out := &NukeTagsOutput{}
	out.Body.Deleted = n
	return out, nil
}
