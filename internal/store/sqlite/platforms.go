package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/playlore/playlore-server/internal/domain"
	"github.com/playlore/playlore-server/internal/store"
)

// GetPlatform retrieves a platform with its aliases.
func (s *Store) GetPlatform(ctx context.Context, id int64) (*domain.Platform, error) {
	i, err := s.loadIdentity(ctx, s.db, platformTable, id)
	if err != nil {
		return nil, err
	}
	return i.toPlatform(), nil
}

// ResolvePlatform finds the platform owning an alias name, case-insensitively.
func (s *Store) ResolvePlatform(ctx context.Context, name string) (*domain.Platform, error) {
	i, err := s.resolveIdentity(ctx, s.db, platformTable, name)
	if err != nil {
		return nil, err
	}
	return i.toPlatform(), nil
}

// ListPlatforms returns every platform ordered by primary alias name.
func (s *Store) ListPlatforms(ctx context.Context) ([]*domain.Platform, error) {
	ids, err := s.listIdentities(ctx, s.db, platformTable)
	if err != nil {
		return nil, err
	}
	platforms := make([]*domain.Platform, len(ids))
	for n, i := range ids {
		platforms[n] = i.toPlatform()
	}
	return platforms, nil
}

// CreatePlatform creates a platform named name.
// Returns a conflict error if the name already resolves to a platform.
func (s *Store) CreatePlatform(ctx context.Context, name string) (*domain.Platform, error) {
	var created *identity
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		created, err = s.createIdentity(ctx, tx, platformTable, name, nil, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	return created.toPlatform(), nil
}

// GetOrCreatePlatform resolves name or creates it.
func (s *Store) GetOrCreatePlatform(ctx context.Context, name string) (*domain.Platform, bool, error) {
	if p, err := s.ResolvePlatform(ctx, name); err == nil {
		return p, false, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}

	p, err := s.CreatePlatform(ctx, name)
	if errors.Is(err, store.ErrAlreadyExists) {
		p, err := s.ResolvePlatform(ctx, name)
		return p, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

// UpdatePlatform sets a platform's description.
func (s *Store) UpdatePlatform(ctx context.Context, id int64, description string) (*domain.Platform, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return s.updateIdentity(ctx, tx, platformTable, id, description, nil)
	})
	if err != nil {
		return nil, err
	}
	return s.GetPlatform(ctx, id)
}

// MergePlatforms merges source into target and returns the updated target.
func (s *Store) MergePlatforms(ctx context.Context, sourceID, targetID int64) (*domain.Platform, error) {
	var affected []string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		affected, err = s.mergeIdentities(ctx, tx, platformTable, sourceID, targetID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.reindexGames(ctx, affected)
	return s.GetPlatform(ctx, targetID)
}

// DeletePlatform deletes a platform. With games attached it fails with a conflict error
// unless detach is set.
func (s *Store) DeletePlatform(ctx context.Context, id int64, detach bool) error {
	var affected []string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		affected, err = s.deleteIdentity(ctx, tx, platformTable, id, detach)
		return err
	})
	if err != nil {
		return err
	}
	s.reindexGames(ctx, affected)
	return nil
}

// AddPlatformAlias binds another name to a platform.
func (s *Store) AddPlatformAlias(ctx context.Context, platformID int64, name string) (domain.Alias, error) {
	var a domain.Alias
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		a, err = s.addAlias(ctx, tx, platformTable, platformID, name)
		return err
	})
	return a, err
}

// RemovePlatformAlias unbinds an alias from a platform.
func (s *Store) RemovePlatformAlias(ctx context.Context, platformID, aliasID int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.removeAlias(ctx, tx, platformTable, platformID, aliasID)
	})
}

// SetPlatformPrimaryAlias designates one of the platform's aliases as primary.
func (s *Store) SetPlatformPrimaryAlias(ctx context.Context, platformID, aliasID int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.setPrimaryAlias(ctx, tx, platformTable, platformID, aliasID)
	})
}

// FixPlatformPrimaryAliases repairs platforms whose primary alias is missing or foreign.
func (s *Store) FixPlatformPrimaryAliases(ctx context.Context) (int, error) {
	var fixed int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		fixed, err = s.fixPrimaryAliases(ctx, tx, platformTable)
		return err
	})
	return fixed, err
}

// CleanupPlatformAliases normalizes platform alias whitespace and drops duplicates.
func (s *Store) CleanupPlatformAliases(ctx context.Context) (store.AliasCleanupResult, error) {
	var res store.AliasCleanupResult
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		res, err = s.cleanupAliases(ctx, tx, platformTable)
		return err
	})
	return res, err
}

// PlatformSuggestions returns platform names with an alias starting with prefix.
func (s *Store) PlatformSuggestions(ctx context.Context, prefix string, limit int) ([]string, error) {
	return s.identitySuggestions(ctx, s.db, platformTable, prefix, limit)
}
