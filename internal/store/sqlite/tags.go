package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/playlore/playlore-server/internal/domain"
	domainerrors "github.com/playlore/playlore-server/internal/errors"
	"github.com/playlore/playlore-server/internal/normalize"
	"github.com/playlore/playlore-server/internal/store"
)

// GetTag retrieves a tag with its aliases.
func (s *Store) GetTag(ctx context.Context, id int64) (*domain.Tag, error) {
	i, err := s.loadIdentity(ctx, s.db, tagTable, id)
	if err != nil {
		return nil, err
	}
	return i.toTag(), nil
}

// ResolveTag finds the tag owning an alias name, case-insensitively.
func (s *Store) ResolveTag(ctx context.Context, name string) (*domain.Tag, error) {
	i, err := s.resolveIdentity(ctx, s.db, tagTable, name)
	if err != nil {
		return nil, err
	}
	return i.toTag(), nil
}

// ListTags returns every tag ordered by primary alias name.
func (s *Store) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	ids, err := s.listIdentities(ctx, s.db, tagTable)
	if err != nil {
		return nil, err
	}
	tags := make([]*domain.Tag, len(ids))
	for n, i := range ids {
		tags[n] = i.toTag()
	}
	return tags, nil
}

// CreateTag creates a tag named name, creating the category when missing.
// Returns a conflict error if the name already resolves to a tag.
func (s *Store) CreateTag(ctx context.Context, name, categoryName string) (*domain.Tag, error) {
	var created *identity
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		categoryID, err := s.categoryIDForName(ctx, tx, categoryName)
		if err != nil {
			return err
		}
		created, err = s.createIdentity(ctx, tx, tagTable, name, categoryID, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	return created.toTag(), nil
}

// GetOrCreateTag resolves name or creates it. The category only applies on creation.
func (s *Store) GetOrCreateTag(ctx context.Context, name, categoryName string) (*domain.Tag, bool, error) {
	if t, err := s.ResolveTag(ctx, name); err == nil {
		return t, false, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}

	t, err := s.CreateTag(ctx, name, categoryName)
	if errors.Is(err, store.ErrAlreadyExists) {
		// Created concurrently between resolve and create.
		t, err := s.ResolveTag(ctx, name)
		return t, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return t, true, nil
}

// UpdateTag sets a tag's description and category. An empty category name clears it.
func (s *Store) UpdateTag(ctx context.Context, id int64, description, categoryName string) (*domain.Tag, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		categoryID, err := s.categoryIDForName(ctx, tx, categoryName)
		if err != nil {
			return err
		}
		return s.updateIdentity(ctx, tx, tagTable, id, description, categoryID)
	})
	if err != nil {
		return nil, err
	}
	return s.GetTag(ctx, id)
}

// MergeTags merges source into target and returns the updated target.
// Merging a source that no longer exists returns a conflict error.
func (s *Store) MergeTags(ctx context.Context, sourceID, targetID int64) (*domain.Tag, error) {
	var affected []string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		affected, err = s.mergeIdentities(ctx, tx, tagTable, sourceID, targetID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.reindexGames(ctx, affected)
	return s.GetTag(ctx, targetID)
}

// DeleteTag deletes a tag. With games attached it fails with a conflict error unless
// detach is set.
func (s *Store) DeleteTag(ctx context.Context, id int64, detach bool) error {
	var affected []string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		affected, err = s.deleteIdentity(ctx, tx, tagTable, id, detach)
		return err
	})
	if err != nil {
		return err
	}
	s.reindexGames(ctx, affected)
	return nil
}

// AddTagAlias binds another name to a tag.
func (s *Store) AddTagAlias(ctx context.Context, tagID int64, name string) (domain.Alias, error) {
	var a domain.Alias
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		a, err = s.addAlias(ctx, tx, tagTable, tagID, name)
		return err
	})
	return a, err
}

// RemoveTagAlias unbinds an alias from a tag, electing a new primary alias when needed.
func (s *Store) RemoveTagAlias(ctx context.Context, tagID, aliasID int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.removeAlias(ctx, tx, tagTable, tagID, aliasID)
	})
}

// SetTagPrimaryAlias designates one of the tag's aliases as primary.
func (s *Store) SetTagPrimaryAlias(ctx context.Context, tagID, aliasID int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.setPrimaryAlias(ctx, tx, tagTable, tagID, aliasID)
	})
}

// ElectTagPrimaryAlias makes the tag's lowest alias id its primary alias.
func (s *Store) ElectTagPrimaryAlias(ctx context.Context, tagID int64) (int64, error) {
	var aliasID int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if aliasID, err = s.electPrimaryAlias(ctx, tx, tagTable, tagID); err != nil {
			return err
		}
		return s.rebuildCachesForIdentity(ctx, tx, tagTable, tagID)
	})
	return aliasID, err
}

// FixTagPrimaryAliases repairs tags whose primary alias is missing or foreign.
func (s *Store) FixTagPrimaryAliases(ctx context.Context) (int, error) {
	var fixed int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		fixed, err = s.fixPrimaryAliases(ctx, tx, tagTable)
		return err
	})
	return fixed, err
}

// CleanupTagAliases normalizes tag alias whitespace and drops duplicates.
func (s *Store) CleanupTagAliases(ctx context.Context) (store.AliasCleanupResult, error) {
	var res store.AliasCleanupResult
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		res, err = s.cleanupAliases(ctx, tx, tagTable)
		return err
	})
	return res, err
}

// TagSuggestions returns tag names with an alias starting with prefix.
func (s *Store) TagSuggestions(ctx context.Context, prefix string, limit int) ([]string, error) {
	return s.identitySuggestions(ctx, s.db, tagTable, prefix, limit)
}

// CleanupCommaTags splits legacy tags whose primary alias holds comma-joined names into
// one tag per name, moves their games onto the new tags and deletes the legacy tag.
// Each legacy tag is handled in its own transaction. Returns the number split.
func (s *Store) CleanupCommaTags(ctx context.Context) (int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id FROM tag t JOIN tag_alias a ON a.id = t.primary_alias_id
		WHERE a.name LIKE '%,%' ORDER BY t.id`)
	if err != nil {
		return 0, fmt.Errorf("find comma tags: %w", err)
	}
	var legacy []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan tag: %w", err)
		}
		legacy = append(legacy, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("rows iteration: %w", err)
	}
	rows.Close()

	split := 0
	for _, id := range legacy {
		if err := ctx.Err(); err != nil {
			return split, err
		}

		var affected []string
		err := s.withTx(ctx, func(tx *sql.Tx) error {
			var err error
			affected, err = s.splitCommaTag(ctx, tx, id)
			return err
		})
		if err != nil {
			return split, fmt.Errorf("split tag %d: %w", id, err)
		}
		s.reindexGames(ctx, affected)
		split++
	}
	return split, nil
}

func (s *Store) splitCommaTag(ctx context.Context, q querier, legacyID int64) ([]string, error) {
	legacy, err := s.loadIdentity(ctx, q, tagTable, legacyID)
	if err != nil {
		return nil, err
	}

	names := normalize.SplitList(legacy.PrimaryAlias, ",")
	if len(names) == 0 {
		return nil, domainerrors.Validationf("tag %d has no usable names", legacyID)
	}

	var targets []int64
	for _, name := range names {
		i, err := s.resolveIdentity(ctx, q, tagTable, name)
		switch {
		case err == nil && i.ID == legacyID:
			// The legacy tag also owns this name; release it so it can become its own tag.
			if _, err := q.ExecContext(ctx,
				`DELETE FROM tag_alias WHERE tag_id = ? AND name = ?`, legacyID, name); err != nil {
				return nil, fmt.Errorf("release alias: %w", err)
			}
			i, err = s.createIdentity(ctx, q, tagTable, name, legacy.CategoryID, "")
			if err != nil {
				return nil, err
			}
		case errors.Is(err, store.ErrNotFound):
			i, err = s.createIdentity(ctx, q, tagTable, name, legacy.CategoryID, "")
			if err != nil {
				return nil, err
			}
		case err != nil:
			return nil, err
		}
		if !containsID(targets, i.ID) {
			targets = append(targets, i.ID)
		}
	}

	for _, targetID := range targets {
		if _, err := q.ExecContext(ctx, `
			INSERT OR IGNORE INTO game_tag (game_id, tag_id, position)
			SELECT game_id, ?, position FROM game_tag WHERE tag_id = ?`, targetID, legacyID); err != nil {
			return nil, fmt.Errorf("reassign games: %w", err)
		}
	}

	return s.deleteIdentity(ctx, q, tagTable, legacyID, true)
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// relationNames loads primary alias names of attached entities for each game.
func (s *Store) relationNames(ctx context.Context, q querier, t identityTable, gameIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(gameIDs))
	for start := 0; start < len(gameIDs); start += batchSize {
		end := min(start+batchSize, len(gameIDs))
		chunk := gameIDs[start:end]

		rows, err := q.QueryContext(ctx, fmt.Sprintf(`
			SELECT j.game_id, a.name
			FROM %[1]s j
			JOIN %[2]s e ON e.id = j.%[3]s
			JOIN %[4]s a ON a.id = e.primary_alias_id
			WHERE j.game_id IN (%[5]s)
			ORDER BY j.game_id, j.position, j.%[3]s`,
			t.join, t.entity, t.fk, t.alias, placeholders(len(chunk))), stringArgs(chunk)...)
		if err != nil {
			return nil, fmt.Errorf("query game %ss: %w", t.kind, err)
		}
		for rows.Next() {
			var gameID, name string
			if err := rows.Scan(&gameID, &name); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan game %s: %w", t.kind, err)
			}
			out[gameID] = append(out[gameID], name)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("rows iteration: %w", err)
		}
	}
	return out, nil
}

// setRelations replaces a game's attachments with ids, keeping their order.
func (s *Store) setRelations(ctx context.Context, q querier, t identityTable, gameID string, ids []int64) error {
	if _, err := q.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE game_id = ?`, t.join), gameID); err != nil {
		return fmt.Errorf("clear game %ss: %w", t.kind, err)
	}
	for pos, id := range ids {
		if _, err := q.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %s (game_id, %s, position) VALUES (?, ?, ?)`, t.join, t.fk),
			gameID, id, pos); err != nil {
			if store.IsForeignKeyViolation(err) {
				return domainerrors.Consistencyf("game %s references missing %s %d", gameID, t.kind, id)
			}
			return fmt.Errorf("attach %s: %w", t.kind, err)
		}
	}
	return nil
}
