package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/playlore/playlore-server/internal/domain"
	domainerrors "github.com/playlore/playlore-server/internal/errors"
	"github.com/playlore/playlore-server/internal/store"
	"github.com/playlore/playlore-server/internal/validation"
)

// PlatformService orchestrates platform and platform alias operations.
type PlatformService struct {
	store     store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewPlatformService creates a new platform service.
func NewPlatformService(store store.Store, validator *validation.Validator, logger *slog.Logger) *PlatformService {
	return &PlatformService{
		store:     store,
		validator: validator,
		logger:    logger,
	}
}

// ListPlatforms returns every platform ordered by name.
func (s *PlatformService) ListPlatforms(ctx context.Context) ([]*domain.Platform, error) {
	return s.store.ListPlatforms(ctx)
}

// GetPlatform returns a platform with its aliases.
func (s *PlatformService) GetPlatform(ctx context.Context, platformID int64) (*domain.Platform, error) {
	return s.store.GetPlatform(ctx, platformID)
}

// ResolveOrCreate returns the platform owning name, creating it when no alias matches.
func (s *PlatformService) ResolveOrCreate(ctx context.Context, req ResolveRequest) (*domain.Platform, bool, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, false, err
	}
	p, created, err := s.store.GetOrCreatePlatform(ctx, strings.TrimSpace(req.Name))
	if err != nil {
		return nil, false, err
	}
	if created {
		s.logger.Info("platform created", "platform_id", p.ID, "name", p.PrimaryAlias)
	}
	return p, created, nil
}

// Update sets a platform's description.
func (s *PlatformService) Update(ctx context.Context, platformID int64, description string) (*domain.Platform, error) {
	return s.store.UpdatePlatform(ctx, platformID, description)
}

// Merge moves every alias and game of the source platform onto the target.
func (s *PlatformService) Merge(ctx context.Context, req MergeRequest) (*domain.Platform, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if req.SourceID == req.TargetID {
		return nil, domainerrors.Validation("cannot merge a platform into itself")
	}

	p, err := s.store.MergePlatforms(ctx, req.SourceID, req.TargetID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("platforms merged",
		"source_id", req.SourceID,
		"target_id", req.TargetID,
		"target", p.PrimaryAlias,
	)
	return p, nil
}

// Delete deletes a platform, detaching it from its games when detach is set.
func (s *PlatformService) Delete(ctx context.Context, platformID int64, detach bool) error {
	if err := s.store.DeletePlatform(ctx, platformID, detach); err != nil {
		return err
	}
	s.logger.Info("platform deleted", "platform_id", platformID, "detach", detach)
	return nil
}

// AddAlias binds another name to a platform.
func (s *PlatformService) AddAlias(ctx context.Context, platformID int64, name string) (domain.Alias, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Alias{}, domainerrors.Validation("alias name is required")
	}
	return s.store.AddPlatformAlias(ctx, platformID, name)
}

// RemoveAlias unbinds an alias from a platform.
func (s *PlatformService) RemoveAlias(ctx context.Context, platformID, aliasID int64) error {
	return s.store.RemovePlatformAlias(ctx, platformID, aliasID)
}

// SetPrimaryAlias designates one of the platform's aliases as its display name.
func (s *PlatformService) SetPrimaryAlias(ctx context.Context, platformID, aliasID int64) error {
	return s.store.SetPlatformPrimaryAlias(ctx, platformID, aliasID)
}

// FixPrimaryAliases repairs platforms whose primary alias is missing or foreign.
func (s *PlatformService) FixPrimaryAliases(ctx context.Context) (int, error) {
	return s.store.FixPlatformPrimaryAliases(ctx)
}

// CleanupAliases normalizes alias whitespace and drops duplicate aliases.
func (s *PlatformService) CleanupAliases(ctx context.Context) (store.AliasCleanupResult, error) {
	res, err := s.store.CleanupPlatformAliases(ctx)
	if err != nil {
		return res, err
	}
	s.logger.Info("cleaned up platform aliases",
		"renamed", res.Renamed,
		"deleted", res.Deleted,
		"skipped", res.Skipped,
	)
	return res, nil
}
