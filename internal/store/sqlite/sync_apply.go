package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/playlore/playlore-server/internal/domain"
	domainerrors "github.com/playlore/playlore-server/internal/errors"
	"github.com/playlore/playlore-server/internal/store"
)

// ApplyPlatformChanges merges one platforms phase into the catalog in a single
// transaction.
func (s *Store) ApplyPlatformChanges(ctx context.Context, ch *domain.IdentityChanges) (domain.ApplyStats, error) {
	return s.applyIdentityChanges(ctx, platformTable, ch)
}

// ApplyTagChanges merges one tags phase into the catalog in a single transaction.
// Categories are applied first and created implicitly when a tag names a missing one.
func (s *Store) ApplyTagChanges(ctx context.Context, ch *domain.IdentityChanges) (domain.ApplyStats, error) {
	return s.applyIdentityChanges(ctx, tagTable, ch)
}

func (s *Store) applyIdentityChanges(ctx context.Context, t identityTable, ch *domain.IdentityChanges) (domain.ApplyStats, error) {
	var stats domain.ApplyStats
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stats = domain.ApplyStats{}

		if t.hasCategory {
			for _, c := range ch.Categories {
				if err := s.applyCategory(ctx, tx, c); err != nil {
					return err
				}
			}
		}

		for i := range ch.Records {
			rec := &ch.Records[i]
			created, skipped, err := s.applyIdentity(ctx, tx, t, rec)
			if err != nil {
				return fmt.Errorf("apply %s %q: %w", t.kind, rec.Name, err)
			}
			if created {
				stats.Created++
			} else {
				stats.Updated++
			}
			stats.SkippedAliases += skipped
		}

		for _, name := range ch.Deletions {
			deleted, flagged, err := s.applyIdentityDeletion(ctx, tx, t, name)
			if err != nil {
				return fmt.Errorf("apply %s deletion %q: %w", t.kind, name, err)
			}
			if deleted {
				stats.Deleted++
			}
			if flagged {
				stats.Flagged++
			}
		}
		return nil
	})
	return stats, err
}

// applyCategory creates a remote category or refreshes its color and description.
func (s *Store) applyCategory(ctx context.Context, q querier, rc domain.RemoteCategory) error {
	c, err := s.categoryByName(ctx, q, rc.Name)
	if errors.Is(err, store.ErrNotFound) {
		return s.createCategory(ctx, q, &domain.TagCategory{
			Name:        rc.Name,
			Color:       rc.Color,
			Description: rc.Description,
		})
	}
	if err != nil {
		return err
	}

	color := rc.Color
	if color == "" {
		color = c.Color
	}
	if _, err := q.ExecContext(ctx,
		`UPDATE tag_category SET color = ?, description = ? WHERE id = ?`,
		color, nullString(rc.Description), c.ID); err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return nil
}

// applyIdentity resolves a remote record by any of its names and merges it into the
// local entity, or creates one. The remote description wins; aliases are unioned.
// Aliases already owned by another local entity are skipped and counted.
func (s *Store) applyIdentity(ctx context.Context, q querier, t identityTable, rec *domain.RemoteIdentity) (bool, int, error) {
	var categoryID *int64
	if t.hasCategory {
		var err error
		if categoryID, err = s.categoryIDForName(ctx, q, rec.Category); err != nil {
			return false, 0, err
		}
	}

	local, err := s.resolveRemoteIdentity(ctx, q, t, rec)
	if err != nil {
		return false, 0, err
	}

	created := false
	if local == nil {
		if local, err = s.createIdentity(ctx, q, t, rec.Name, categoryID, rec.Description); err != nil {
			return false, 0, err
		}
		created = true
	} else {
		if categoryID == nil {
			categoryID = local.CategoryID
		}
		if err := s.updateIdentity(ctx, q, t, local.ID, rec.Description, categoryID); err != nil {
			return false, 0, err
		}
		if local.DeletedUpstream {
			if err := s.setDeletedUpstream(ctx, q, t, local.ID, false); err != nil {
				return false, 0, err
			}
		}
	}

	skipped := 0
	for _, name := range rec.AllNames() {
		_, err := s.addAlias(ctx, q, t, local.ID, name)
		switch {
		case err == nil:
		case errors.Is(err, domainerrors.ErrConflict):
			s.logger.Debug("skipping alias owned by another entity",
				"kind", t.kind, "alias", name, "entity_id", local.ID)
			skipped++
		case errors.Is(err, domainerrors.ErrValidation):
		default:
			return false, 0, err
		}
	}
	return created, skipped, nil
}

// resolveRemoteIdentity returns the local entity owning any of the record's names,
// trying the primary name first. Nil when none resolves.
func (s *Store) resolveRemoteIdentity(ctx context.Context, q querier, t identityTable, rec *domain.RemoteIdentity) (*identity, error) {
	for _, name := range rec.AllNames() {
		i, err := s.resolveIdentity(ctx, q, t, name)
		if err == nil {
			return i, nil
		}
		if !errors.Is(err, store.ErrNotFound) && !errors.Is(err, domainerrors.ErrValidation) {
			return nil, err
		}
	}
	return nil, nil
}

// applyIdentityDeletion deletes an entity removed upstream when no game references it,
// otherwise flags it so game associations survive.
func (s *Store) applyIdentityDeletion(ctx context.Context, q querier, t identityTable, name string) (deleted, flagged bool, err error) {
	entityID, err := s.resolveIdentityID(ctx, q, t, name)
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, domainerrors.ErrValidation) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}

	games, err := s.identityGameIDs(ctx, q, t, entityID)
	if err != nil {
		return false, false, err
	}
	if len(games) > 0 {
		return false, true, s.setDeletedUpstream(ctx, q, t, entityID, true)
	}
	if _, err := s.deleteIdentity(ctx, q, t, entityID, false); err != nil {
		return false, false, err
	}
	return true, false, nil
}

// ApplyGameBatch upserts a batch of remote games by their remote id and removes games
// deleted upstream, in one transaction. Tag and platform names are re-resolved against
// the current identity tables. Local game data paths and presence flags survive.
func (s *Store) ApplyGameBatch(ctx context.Context, b *domain.GameBatch) (domain.ApplyStats, error) {
	var (
		stats   domain.ApplyStats
		removed []string
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stats = domain.ApplyStats{}
		removed = nil

		for _, g := range b.Games {
			created, err := s.applyRemoteGame(ctx, tx, g)
			if err != nil {
				return fmt.Errorf("apply game %s: %w", g.ID, err)
			}
			if created {
				stats.Created++
			} else {
				stats.Updated++
			}
		}

		existing, err := s.existingGameIDs(ctx, tx, b.Deletions)
		if err != nil {
			return err
		}
		if err := s.removeGames(ctx, tx, existing, false); err != nil {
			return err
		}
		removed = existing
		stats.Deleted = len(existing)
		return nil
	})
	if err != nil {
		return domain.ApplyStats{}, err
	}

	s.indexGames(ctx, b.Games)
	s.unindexGames(ctx, removed)
	return stats, nil
}

func (s *Store) applyRemoteGame(ctx context.Context, q querier, g *domain.Game) (bool, error) {
	if g.ID == "" {
		return false, domainerrors.Validation("remote game has no id")
	}

	var localActive sql.NullString
	err := q.QueryRowContext(ctx, `SELECT active_data_id FROM game WHERE id = ?`, g.ID).Scan(&localActive)
	created := errors.Is(err, sql.ErrNoRows)
	if err != nil && !created {
		return false, fmt.Errorf("get game: %w", err)
	}
	if g.ActiveDataID == nil && localActive.Valid {
		v := localActive.String
		g.ActiveDataID = &v
	}

	data := g.Data
	if err := s.saveGame(ctx, q, g); err != nil {
		return false, err
	}
	for i := range data {
		d := &data[i]
		d.GameID = g.ID
		if err := s.writeGameData(ctx, q, d, true); err != nil {
			return false, err
		}
	}
	return created, nil
}

// existingGameIDs returns the subset of ids present in the catalog, in input order.
func (s *Store) existingGameIDs(ctx context.Context, q querier, ids []string) ([]string, error) {
	var out []string
	for _, gameID := range ids {
		var one int
		err := q.QueryRowContext(ctx, `SELECT 1 FROM game WHERE id = ?`, gameID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get game: %w", err)
		}
		out = append(out, gameID)
	}
	return out, nil
}
