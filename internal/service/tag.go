package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/playlore/playlore-server/internal/color"
	"github.com/playlore/playlore-server/internal/domain"
	domainerrors "github.com/playlore/playlore-server/internal/errors"
	"github.com/playlore/playlore-server/internal/store"
	"github.com/playlore/playlore-server/internal/validation"
)

// TagService orchestrates tag, alias and category operations.
type TagService struct {
	store     store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewTagService creates a new tag service.
func NewTagService(store store.Store, validator *validation.Validator, logger *slog.Logger) *TagService {
	return &TagService{
		store:     store,
		validator: validator,
		logger:    logger,
	}
}

// ResolveRequest names a tag or platform to resolve, creating it when unknown.
// Category only applies to tags, and only when the tag is created.
type ResolveRequest struct {
	Name     string `json:"name" validate:"notblank,max=255"`
	Category string `json:"category,omitempty" validate:"max=255"`
}

// MergeRequest merges the source entity into the target.
type MergeRequest struct {
	SourceID int64 `json:"source_id" validate:"gt=0"`
	TargetID int64 `json:"target_id" validate:"gt=0"`
}

// ListTags returns every tag ordered by name.
func (s *TagService) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	return s.store.ListTags(ctx)
}

// GetTag returns a tag with its aliases.
func (s *TagService) GetTag(ctx context.Context, tagID int64) (*domain.Tag, error) {
	return s.store.GetTag(ctx, tagID)
}

// FindTag resolves an alias name to its tag.
func (s *TagService) FindTag(ctx context.Context, name string) (*domain.Tag, error) {
	return s.store.ResolveTag(ctx, strings.TrimSpace(name))
}

// ResolveOrCreate returns the tag owning name, creating it (and its category) when no
// alias matches.
func (s *TagService) ResolveOrCreate(ctx context.Context, req ResolveRequest) (*domain.Tag, bool, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, false, err
	}
	tag, created, err := s.store.GetOrCreateTag(ctx, strings.TrimSpace(req.Name), strings.TrimSpace(req.Category))
	if err != nil {
		return nil, false, err
	}
	if created {
		s.logger.Info("tag created",
			"tag_id", tag.ID,
			"name", tag.PrimaryAlias,
			"category", tag.Category,
		)
	}
	return tag, created, nil
}

// Update sets a tag's description and category.
func (s *TagService) Update(ctx context.Context, tagID int64, description, category string) (*domain.Tag, error) {
	return s.store.UpdateTag(ctx, tagID, description, strings.TrimSpace(category))
}

// Merge moves every alias and game of the source tag onto the target and deletes the
// source. Merging a tag into itself is a validation error; merging a source that no
// longer exists is a conflict.
func (s *TagService) Merge(ctx context.Context, req MergeRequest) (*domain.Tag, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if req.SourceID == req.TargetID {
		return nil, domainerrors.Validation("cannot merge a tag into itself")
	}

	tag, err := s.store.MergeTags(ctx, req.SourceID, req.TargetID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("tags merged",
		"source_id", req.SourceID,
		"target_id", req.TargetID,
		"target", tag.PrimaryAlias,
	)
	return tag, nil
}

// Delete deletes a tag. A tag still attached to games is only deleted when detach is
// set, which removes it from those games first.
func (s *TagService) Delete(ctx context.Context, tagID int64, detach bool) error {
	if err := s.store.DeleteTag(ctx, tagID, detach); err != nil {
		return err
	}
	s.logger.Info("tag deleted", "tag_id", tagID, "detach", detach)
	return nil
}

// AddAlias binds another name to a tag.
func (s *TagService) AddAlias(ctx context.Context, tagID int64, name string) (domain.Alias, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Alias{}, domainerrors.Validation("alias name is required")
	}
	return s.store.AddTagAlias(ctx, tagID, name)
}

// RemoveAlias unbinds an alias. The last alias of a tag cannot be removed.
func (s *TagService) RemoveAlias(ctx context.Context, tagID, aliasID int64) error {
	return s.store.RemoveTagAlias(ctx, tagID, aliasID)
}

// SetPrimaryAlias designates one of the tag's aliases as its display name.
func (s *TagService) SetPrimaryAlias(ctx context.Context, tagID, aliasID int64) error {
	return s.store.SetTagPrimaryAlias(ctx, tagID, aliasID)
}

// Suggestions returns tag names starting with prefix.
func (s *TagService) Suggestions(ctx context.Context, prefix string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = defaultSuggestionLimit
	}
	return s.store.TagSuggestions(ctx, prefix, limit)
}

// FixPrimaryAliases repairs tags whose primary alias is missing or foreign.
func (s *TagService) FixPrimaryAliases(ctx context.Context) (int, error) {
	n, err := s.store.FixTagPrimaryAliases(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("fixed tag primary aliases", "count", n)
	}
	return n, nil
}

// CleanupAliases normalizes alias whitespace and drops duplicate aliases.
func (s *TagService) CleanupAliases(ctx context.Context) (store.AliasCleanupResult, error) {
	res, err := s.store.CleanupTagAliases(ctx)
	if err != nil {
		return res, err
	}
	s.logger.Info("cleaned up tag aliases",
		"renamed", res.Renamed,
		"deleted", res.Deleted,
		"skipped", res.Skipped,
	)
	return res, nil
}

// CleanupCommaTags splits legacy tags holding comma-joined names.
func (s *TagService) CleanupCommaTags(ctx context.Context) (int, error) {
	n, err := s.store.CleanupCommaTags(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("split comma separated tags", "count", n)
	}
	return n, nil
}

// CategoryRequest creates or updates a tag category.
type CategoryRequest struct {
	Name        string `json:"name" validate:"notblank,max=255"`
	Color       string `json:"color,omitempty" validate:"omitempty,hexcolor"`
	Description string `json:"description,omitempty"`
}

// ListCategories returns every category.
func (s *TagService) ListCategories(ctx context.Context) ([]*domain.TagCategory, error) {
	return s.store.ListCategories(ctx)
}

// CreateCategory creates a category. The color defaults to white.
func (s *TagService) CreateCategory(ctx context.Context, req CategoryRequest) (*domain.TagCategory, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	c := &domain.TagCategory{
		Name:        strings.TrimSpace(req.Name),
		Color:       req.Color,
		Description: req.Description,
	}
	if c.Color == "" {
		c.Color = color.ForName(c.Name)
	}
	if err := s.store.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateCategory replaces a category's fields.
func (s *TagService) UpdateCategory(ctx context.Context, categoryID int64, req CategoryRequest) (*domain.TagCategory, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	c, err := s.store.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	c.Name = strings.TrimSpace(req.Name)
	c.Description = req.Description
	if req.Color != "" {
		c.Color = req.Color
	}
	if err := s.store.UpdateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCategory deletes a category that no tag references.
func (s *TagService) DeleteCategory(ctx context.Context, categoryID int64) error {
	return s.store.DeleteCategory(ctx, categoryID)
}
