package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/playlore/playlore-server/internal/domain"
	"github.com/playlore/playlore-server/internal/service"
)

func (s *Server) registerTagRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags",
		Summary:     "List tags",
		Description: "Returns every tag with its aliases and game count",
		Tags:        []string{"Tags"},
	}, s.handleListTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "lookupTag",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/lookup",
		Summary:     "Look up tag",
		Description: "Returns the tag owning an alias name without creating one",
		Tags:        []string{"Tags"},
	}, s.handleLookupTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTag",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/{id}",
		Summary:     "Get tag",
		Description: "Returns a tag by ID",
		Tags:        []string{"Tags"},
	}, s.handleGetTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "resolveTag",
		Method:      http.MethodPost,
		Path:        "/api/v1/tags/resolve",
		Summary:     "Resolve or create tag",
		Description: "Returns the tag owning an alias, creating the tag when no alias matches",
		Tags:        []string{"Tags"},
	}, s.handleResolveTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateTag",
		Method:      http.MethodPatch,
		Path:        "/api/v1/tags/{id}",
		Summary:     "Update tag",
		Description: "Sets a tag's description and category",
		Tags:        []string{"Tags"},
	}, s.handleUpdateTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "mergeTags",
		Method:      http.MethodPost,
		Path:        "/api/v1/tags/merge",
		Summary:     "Merge tags",
		Description: "Moves every alias and game of the source tag onto the target and deletes the source",
		Tags:        []string{"Tags"},
	}, s.handleMergeTags)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteTag",
		Method:        http.MethodDelete,
		Path:          "/api/v1/tags/{id}",
		Summary:       "Delete tag",
		Description:   "Deletes a tag. A tag still attached to games requires detach",
		Tags:          []string{"Tags"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteTag)

	huma.Register(s.api, huma.Operation{
		OperationID:   "addTagAlias",
		Method:        http.MethodPost,
		Path:          "/api/v1/tags/{id}/aliases",
		Summary:       "Add tag alias",
		Description:   "Adds an alias to a tag",
		Tags:          []string{"Tags"},
		DefaultStatus: http.StatusCreated,
	}, s.handleAddTagAlias)

	huma.Register(s.api, huma.Operation{
		OperationID:   "removeTagAlias",
		Method:        http.MethodDelete,
		Path:          "/api/v1/tags/{id}/aliases/{aliasId}",
		Summary:       "Remove tag alias",
		Description:   "Removes an alias. A tag keeps at least one alias",
		Tags:          []string{"Tags"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleRemoveTagAlias)

	huma.Register(s.api, huma.Operation{
		OperationID:   "setTagPrimaryAlias",
		Method:        http.MethodPut,
		Path:          "/api/v1/tags/{id}/primary-alias",
		Summary:       "Set primary tag alias",
		Description:   "Selects which alias names the tag",
		Tags:          []string{"Tags"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleSetTagPrimaryAlias)
}

func (s *Server) registerCategoryRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTagCategories",
		Method:      http.MethodGet,
		Path:        "/api/v1/tag-categories",
		Summary:     "List tag categories",
		Description: "Returns every tag category",
		Tags:        []string{"Tags"},
	}, s.handleListCategories)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createTagCategory",
		Method:        http.MethodPost,
		Path:          "/api/v1/tag-categories",
		Summary:       "Create tag category",
		Description:   "Creates a tag category",
		Tags:          []string{"Tags"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateCategory)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateTagCategory",
		Method:      http.MethodPut,
		Path:        "/api/v1/tag-categories/{id}",
		Summary:     "Update tag category",
		Description: "Replaces a tag category's fields",
		Tags:        []string{"Tags"},
	}, s.handleUpdateCategory)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteTagCategory",
		Method:        http.MethodDelete,
		Path:          "/api/v1/tag-categories/{id}",
		Summary:       "Delete tag category",
		Description:   "Deletes a category no tag references",
		Tags:          []string{"Tags"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteCategory)
}

// === DTOs ===

// EntityIDInput identifies a tag, platform or category by path.
type EntityIDInput struct {
	ID int64 `path:"id" doc:"Entity ID"`
}

// TagOutput wraps a tag for Huma.
type TagOutput struct {
	Body *domain.Tag
}

// ListTagsOutput wraps the tag list for Huma.
type ListTagsOutput struct {
	Body struct {
		Tags []*domain.Tag `json:"tags" doc:"Tags ordered by name"`
	}
}

// LookupInput names an alias to look up.
type LookupInput struct {
	Name string `query:"name" required:"true" minLength:"1" doc:"Alias name, case-insensitive"`
}

// ResolveInput wraps a resolve request for Huma.
type ResolveInput struct {
	Body service.ResolveRequest
}

// ResolveTagOutput wraps a resolved tag for Huma.
type ResolveTagOutput struct {
	Body struct {
		Tag     *domain.Tag `json:"tag" doc:"Resolved tag"`
		Created bool        `json:"created" doc:"Whether the tag was created"`
	}
}

// UpdateTagInput wraps the update tag request for Huma.
type UpdateTagInput struct {
	ID   int64 `path:"id" doc:"Tag ID"`
	Body struct {
		Description string `json:"description,omitempty" doc:"Description"`
		Category    string `json:"category,omitempty" doc:"Category name; created when unknown"`
	}
}

// MergeInput wraps a merge request for Huma.
type MergeInput struct {
	Body service.MergeRequest
}

// DeleteEntityInput contains parameters for deleting a tag or platform.
type DeleteEntityInput struct {
	ID     int64 `path:"id" doc:"Entity ID"`
	Detach bool  `query:"detach" doc:"Detach from every game before deleting"`
}

// AddAliasInput wraps an add alias request for Huma.
type AddAliasInput struct {
	ID   int64 `path:"id" doc:"Entity ID"`
	Body struct {
		Name string `json:"name" minLength:"1" maxLength:"255" doc:"Alias name"`
	}
}

// AliasOutput wraps an alias for Huma.
type AliasOutput struct {
	Body domain.Alias
}

// AliasIDInput identifies one alias of an entity.
type AliasIDInput struct {
	ID      int64 `path:"id" doc:"Entity ID"`
	AliasID int64 `path:"aliasId" doc:"Alias ID"`
}

// SetPrimaryAliasInput selects the primary alias.
type SetPrimaryAliasInput struct {
	ID   int64 `path:"id" doc:"Entity ID"`
	Body struct {
		AliasID int64 `json:"alias_id" doc:"Alias ID"`
	}
}

// CategoryInput wraps a category request for Huma.
type CategoryInput struct {
	Body service.CategoryRequest
}

// UpdateCategoryInput wraps a category update for Huma.
type UpdateCategoryInput struct {
	ID   int64 `path:"id" doc:"Category ID"`
	Body service.CategoryRequest
}

// CategoryOutput wraps a category for Huma.
type CategoryOutput struct {
	Body *domain.TagCategory
}

// ListCategoriesOutput wraps the category list for Huma.
type ListCategoriesOutput struct {
	Body struct {
		Categories []*domain.TagCategory `json:"categories" doc:"Categories ordered by name"`
	}
}

// === Handlers ===

func (s *Server) handleListTags(ctx context.Context, _ *struct{}) (*ListTagsOutput, error) {
	tags, err := s.services.Tag.ListTags(ctx)
	if err != nil {
		return nil, s.handlerError("listTags", err)
	}
	if tags == nil {
		tags = []*domain.Tag{}
	}
	out := &ListTagsOutput{}
	out.Body.Tags = tags
	return out, nil
}

func (s *Server) handleGetTag(ctx context.Context, input *EntityIDInput) (*TagOutput, error) {
	t, err := s.services.Tag.GetTag(ctx, input.ID)
	if err != nil {
		return nil, s.handlerError("getTag", err)
	}
	return &TagOutput{Body: t}, nil
}

func (s *Server) handleLookupTag(ctx context.Context, input *LookupInput) (*TagOutput, error) {
	t, err := s.services.Tag.FindTag(ctx, input.Name)
	if err != nil {
		return nil, s.handlerError("lookupTag", err)
	}
	return &TagOutput{Body: t}, nil
}

func (s *Server) handleResolveTag(ctx context.Context, input *ResolveInput) (*ResolveTagOutput, error) {
	t, created, err := s.services.Tag.ResolveOrCreate(ctx, input.Body)
	if err != nil {
		return nil, s.handlerError("resolveTag", err)
	}
	out := &ResolveTagOutput{}
	out.Body.Tag = t
	out.Body.Created = created
	return out, nil
}

func (s *Server) handleUpdateTag(ctx context.Context, input *UpdateTagInput) (*TagOutput, error) {
	t, err := s.services.Tag.Update(ctx, input.ID, input.Body.Description, input.Body.Category)
	if err != nil {
		return nil, s.handlerError("updateTag", err)
	}
	return &TagOutput{Body: t}, nil
}

func (s *Server) handleMergeTags(ctx context.Context, input *MergeInput) (*TagOutput, error) {
	t, err := s.services.Tag.Merge(ctx, input.Body)
	if err != nil {
		return nil, s.handlerError("mergeTags", err)
	}
	return &TagOutput{Body: t}, nil
}

func (s *Server) handleDeleteTag(ctx context.Context, input *DeleteEntityInput) (*struct{}, error) {
	if err := s.services.Tag.Delete(ctx, input.ID, input.Detach); err != nil {
		return nil, s.handlerError("deleteTag", err)
	}
	return nil, nil
}

func (s *Server) handleAddTagAlias(ctx context.Context, input *AddAliasInput) (*AliasOutput, error) {
	a, err := s.services.Tag.AddAlias(ctx, input.ID, input.Body.Name)
	if err != nil {
		return nil, s.handlerError("addTagAlias", err)
	}
	return &AliasOutput{Body: a}, nil
}

func (s *Server) handleRemoveTagAlias(ctx context.Context, input *AliasIDInput) (*struct{}, error) {
	if err := s.services.Tag.RemoveAlias(ctx, input.ID, input.AliasID); err != nil {
		return nil, s.handlerError("removeTagAlias", err)
	}
	return nil, nil
}

func (s *Server) handleSetTagPrimaryAlias(ctx context.Context, input *SetPrimaryAliasInput) (*struct{}, error) {
	if err := s.services.Tag.SetPrimaryAlias(ctx, input.ID, input.Body.AliasID); err != nil {
		return nil, s.handlerError("setTagPrimaryAlias", err)
	}
	return nil, nil
}

func (s *Server) handleListCategories(ctx context.Context, _ *struct{}) (*ListCategoriesOutput, error) {
	categories, err := s.services.Tag.ListCategories(ctx)
	if err != nil {
		return nil, s.handlerError("listTagCategories", err)
	}
	if categories == nil {
		categories = []*domain.TagCategory{}
	}
	out := &ListCategoriesOutput{}
	out.Body.Categories = categories
	return out, nil
}

func (s *Server) handleCreateCategory(ctx context.Context, input *CategoryInput) (*CategoryOutput, error) {
	c, err := s.services.Tag.CreateCategory(ctx, input.Body)
	if err != nil {
		return nil, s.handlerError("createTagCategory", err)
	}
	return &CategoryOutput{Body: c}, nil
}

func (s *Server) handleUpdateCategory(ctx context.Context, input *UpdateCategoryInput) (*CategoryOutput, error) {
	c, err := s.services.Tag.UpdateCategory(ctx, input.ID, input.Body)
	if err != nil {
		return nil, s.handlerError("updateTagCategory", err)
	}
	return &CategoryOutput{Body: c}, nil
}

func (s *Server) handleDeleteCategory(ctx context.Context, input *EntityIDInput) (*struct{}, error) {
	if err := s.services.Tag.DeleteCategory(ctx, input.ID); err != nil {
		return nil, s.handlerError("deleteTagCategory", err)
	}
	return nil, nil
}
