package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/playlore/playlore-server/internal/domain"
	domainerrors "github.com/playlore/playlore-server/internal/errors"
	"github.com/playlore/playlore-server/internal/metasync"
	"github.com/playlore/playlore-server/internal/service"
)

func (s *Server) registerSyncRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listSyncSources",
		Method:      http.MethodGet,
		Path:        "/api/v1/sync",
		Summary:     "List metadata sources",
		Description: "Returns the configured metadata sources with their watermarks",
		Tags:        []string{"Sync"},
	}, s.handleListSyncSources)

	huma.Register(s.api, huma.Operation{
		OperationID: "runSync",
		Method:      http.MethodPost,
		Path:        "/api/v1/sync/{source}",
		Summary:     "Run metadata sync",
		Description: "Pulls platforms, tags and games changed at a source since its watermarks and waits for the run to finish",
		Tags:        []string{"Sync"},
		Middlewares: huma.Middlewares{s.syncRateLimited},
	}, s.handleRunSync)

	huma.Register(s.api, huma.Operation{
		OperationID: "syncInfo",
		Method:      http.MethodGet,
		Path:        "/api/v1/sync/{source}/info",
		Summary:     "Pending sync counts",
		Description: "Asks a source how many records changed since the stored watermarks",
		Tags:        []string{"Sync"},
		Middlewares: huma.Middlewares{s.syncRateLimited},
	}, s.handleSyncInfo)

	huma.Register(s.api, huma.Operation{
		OperationID: "syncStatus",
		Method:      http.MethodGet,
		Path:        "/api/v1/sync/{source}/status",
		Summary:     "Sync status",
		Description: "Returns the progress of a running sync and the last result",
		Tags:        []string{"Sync"},
	}, s.handleSyncStatus)
}

// SyncSourceInput identifies a metadata source.
type SyncSourceInput struct {
	Source string `path:"source" doc:"Metadata source name"`
}

// RunSyncInput contains parameters for a sync run.
type RunSyncInput struct {
	Source string `path:"source" doc:"Metadata source name"`
	Tagged bool   `query:"tagged" doc:"Sync only platforms and tags"`
}

// SyncSourcesOutput wraps the source list for Huma.
type SyncSourcesOutput struct {
	Body struct {
		Sources []domain.MetadataSource `json:"sources" doc:"Configured sources"`
	}
}

// SyncResultOutput wraps a sync result for Huma.
type SyncResultOutput struct {
	Body *metasync.Result
}

// SyncInfoOutput wraps pending counts for Huma.
type SyncInfoOutput struct {
	Body *metasync.UpdateInfo
}

// SyncStatusOutput wraps the sync status for Huma.
type SyncStatusOutput struct {
	Body *service.SyncStatus
}

// syncService returns the sync service, or NotFound when no source is configured.
func (s *Server) syncService() (*service.SyncService, error) {
	if s.services.Sync == nil {
		return nil, s.handlerError("sync", domainerrors.NotFound("no metadata source configured"))
	}
	return s.services.Sync, nil
}

func (s *Server) handleListSyncSources(ctx context.Context, _ *struct{}) (*SyncSourcesOutput, error) {
	out := &SyncSourcesOutput{}
	out.Body.Sources = []domain.MetadataSource{}
	if s.services.Sync == nil {
		return out, nil
	}
	sources, err := s.services.Sync.Sources(ctx)
	if err != nil {
		return nil, s.handlerError("listSyncSources", err)
	}
	out.Body.Sources = sources
	return out, nil
}

func (s *Server) handleRunSync(ctx context.Context, input *RunSyncInput) (*SyncResultOutput, error) {
	svc, err := s.syncService()
	if err != nil {
		return nil, err
	}
	res, err := svc.Run(ctx, input.Source, input.Tagged)
	if err != nil {
		return nil, s.handlerError("runSync", err)
	}
	return &SyncResultOutput{Body: res}, nil
}

func (s *Server) handleSyncInfo(ctx context.Context, input *SyncSourceInput) (*SyncInfoOutput, error) {
	svc, err := s.syncService()
	if err != nil {
		return nil, err
	}
	info, err := svc.Info(ctx, input.Source)
	if err != nil {
		return nil, s.handlerError("syncInfo", err)
	}
	return &SyncInfoOutput{Body: info}, nil
}

func (s *Server) handleSyncStatus(ctx context.Context, input *SyncSourceInput) (*SyncStatusOutput, error) {
	svc, err := s.syncService()
	if err != nil {
		return nil, err
	}
	status, err := svc.Status(ctx, input.Source)
	if err != nil {
		return nil, s.handlerError("syncStatus", err)
	}
	return &SyncStatusOutput{Body: status}, nil
}
