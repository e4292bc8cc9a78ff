package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/playlore/playlore-server/internal/domain"
)

func (s *Server) registerPlatformRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listPlatforms",
		Method:      http.MethodGet,
		Path:        "/api/v1/platforms",
		Summary:     "List platforms",
		Description: "Returns every platform with its aliases and game count",
		Tags:        []string{"Platforms"},
	}, s.handleListPlatforms)

	huma.Register(s.api, huma.Operation{
		OperationID: "getPlatform",
		Method:      http.MethodGet,
		Path:        "/api/v1/platforms/{id}",
		Summary:     "Get platform",
		Description: "Returns a platform by ID",
		Tags:        []string{"Platforms"},
	}, s.handleGetPlatform)

	huma.Register(s.api, huma.Operation{
		OperationID: "resolvePlatform",
		Method:      http.MethodPost,
		Path:        "/api/v1/platforms/resolve",
		Summary:     "Resolve or create platform",
		Description: "Returns the platform owning an alias, creating the platform when no alias matches",
		Tags:        []string{"Platforms"},
	}, s.handleResolvePlatform)

	huma.Register(s.api, huma.Operation{
		OperationID: "updatePlatform",
		Method:      http.MethodPatch,
		Path:        "/api/v1/platforms/{id}",
		Summary:     "Update platform",
		Description: "Sets a platform's description",
		Tags:        []string{"Platforms"},
	}, s.handleUpdatePlatform)

	huma.Register(s.api, huma.Operation{
		OperationID: "mergePlatforms",
		Method:      http.MethodPost,
		Path:        "/api/v1/platforms/merge",
		Summary:     "Merge platforms",
		Description: "Moves every alias and game of the source platform onto the target and deletes the source",
		Tags:        []string{"Platforms"},
	}, s.handleMergePlatforms)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deletePlatform",
		Method:        http.MethodDelete,
		Path:          "/api/v1/platforms/{id}",
		Summary:       "Delete platform",
		Description:   "Deletes a platform. A platform still attached to games requires detach",
		Tags:          []string{"Platforms"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeletePlatform)

	huma.Register(s.api, huma.Operation{
		OperationID:   "addPlatformAlias",
		Method:        http.MethodPost,
		Path:          "/api/v1/platforms/{id}/aliases",
		Summary:       "Add platform alias",
		Description:   "Adds an alias to a platform",
		Tags:          []string{"Platforms"},
		DefaultStatus: http.StatusCreated,
	}, s.handleAddPlatformAlias)

	huma.Register(s.api, huma.Operation{
		OperationID:   "removePlatformAlias",
		Method:        http.MethodDelete,
		Path:          "/api/v1/platforms/{id}/aliases/{aliasId}",
		Summary:       "Remove platform alias",
		Description:   "Removes an alias. A platform keeps at least one alias",
		Tags:          []string{"Platforms"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleRemovePlatformAlias)

	huma.Register(s.api, huma.Operation{
		OperationID:   "setPlatformPrimaryAlias",
		Method:        http.MethodPut,
		Path:          "/api/v1/platforms/{id}/primary-alias",
		Summary:       "Set primary platform alias",
		Description:   "Selects which alias names the platform",
		Tags:          []string{"Platforms"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleSetPlatformPrimaryAlias)
}

// PlatformOutput wraps a platform for Huma.
type PlatformOutput struct {
	Body *domain.Platform
}

// ListPlatformsOutput wraps the platform list for Huma.
type ListPlatformsOutput struct {
	Body struct {
		Platforms []*domain.Platform `json:"platforms" doc:"Platforms ordered by name"`
	}
}

// ResolvePlatformOutput wraps a resolved platform for Huma.
type ResolvePlatformOutput struct {
	Body struct {
		Platform *domain.Platform `json:"platform" doc:"Resolved platform"`
		Created  bool             `json:"created" doc:"Whether the platform was created"`
	}
}

// UpdatePlatformInput wraps the update platform request for Huma.
type UpdatePlatformInput struct {
	ID   int64 `path:"id" doc:"Platform ID"`
	Body struct {
		Description string `json:"description,omitempty" doc:"Description"`
	}
}

func (s *Server) handleListPlatforms(ctx context.Context, _ *struct{}) (*ListPlatformsOutput, error) {
	platforms, err := s.services.Platform.ListPlatforms(ctx)
	if err != nil {
		return nil, s.handlerError("listPlatforms", err)
	}
	if platforms == nil {
		platforms = []*domain.Platform{}
	}
	out := &ListPlatformsOutput{}
	out.Body.Platforms = platforms
	return out, nil
}

func (s *Server) handleGetPlatform(ctx context.Context, input *EntityIDInput) (*PlatformOutput, error) {
	p, err := s.services.Platform.GetPlatform(ctx, input.ID)
	if err != nil {
		return nil, s.handlerError("getPlatform", err)
	}
	return &PlatformOutput{Body: p}, nil
}

func (s *Server) handleResolvePlatform(ctx context.Context, input *ResolveInput) (*ResolvePlatformOutput, error) {
	p, created, err := s.services.Platform.ResolveOrCreate(ctx, input.Body)
	if err != nil {
		return nil, s.handlerError("resolvePlatform", err)
	}
	out := &ResolvePlatformOutput{}
	out.Body.Platform = p
	out.Body.Created = created
	return out, nil
}

func (s *Server) handleUpdatePlatform(ctx context.Context, input *UpdatePlatformInput) (*PlatformOutput, error) {
	p, err := s.services.Platform.Update(ctx, input.ID, input.Body.Description)
	if err != nil {
		return nil, s.handlerError("updatePlatform", err)
	}
	return &PlatformOutput{Body: p}, nil
}

func (s *Server) handleMergePlatforms(ctx context.Context, input *MergeInput) (*PlatformOutput, error) {
	p, err := s.services.Platform.Merge(ctx, input.Body)
	if err != nil {
		return nil, s.handlerError("mergePlatforms", err)
	}
	return &PlatformOutput{Body: p}, nil
}

func (s *Server) handleDeletePlatform(ctx context.Context, input *DeleteEntityInput) (*struct{}, error) {
	if err := s.services.Platform.Delete(ctx, input.ID, input.Detach); err != nil {
		return nil, s.handlerError("deletePlatform", err)
	}
	return nil, nil
}

func (s *Server) handleAddPlatformAlias(ctx context.Context, input *AddAliasInput) (*AliasOutput, error) {
	a, err := s.services.Platform.AddAlias(ctx, input.ID, input.Body.Name)
	if err != nil {
		return nil, s.handlerError("addPlatformAlias", err)
	}
	return &AliasOutput{Body: a}, nil
}

func (s *Server) handleRemovePlatformAlias(ctx context.Context, input *AliasIDInput) (*struct{}, error) {
	if err := s.services.Platform.RemoveAlias(ctx, input.ID, input.AliasID); err != nil {
		return nil, s.handlerError("removePlatformAlias", err)
	}
	return nil, nil
}

func (s *Server) handleSetPlatformPrimaryAlias(ctx context.Context, input *SetPrimaryAliasInput) (*struct{}, error) {
	if err := s.services.Platform.SetPrimaryAlias(ctx, input.ID, input.Body.AliasID); err != nil {
		return nil, s.handlerError("setPlatformPrimaryAlias", err)
	}
	return nil, nil
}
