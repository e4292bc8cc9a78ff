package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playlore/playlore-server/internal/domain"
	domainerrors "github.com/playlore/playlore-server/internal/errors"
	"github.com/playlore/playlore-server/internal/normalize"
	"github.com/playlore/playlore-server/internal/store"
)

// identityTable describes one aliased entity kind. Tags and platforms share the same
// shape in separate tables, so alias namespaces are independent.
type identityTable struct {
	kind        string
	entity      string
	alias       string
	fk          string
	join        string
	cache       string
	hasCategory bool
}

var (
	tagTable = identityTable{
		kind:        "tag",
		entity:      "tag",
		alias:       "tag_alias",
		fk:          "tag_id",
		join:        "game_tag",
		cache:       "tags_str",
		hasCategory: true,
	}
	platformTable = identityTable{
		kind:   "platform",
		entity: "platform",
		alias:  "platform_alias",
		fk:     "platform_id",
		join:   "game_platform",
		cache:  "platforms_str",
	}
)

// identity is the row shape shared by tags and platforms.
type identity struct {
	ID              int64
	CategoryID      *int64
	Category        string
	Description     string
	PrimaryAliasID  int64
	PrimaryAlias    string
	Aliases         []domain.Alias
	DateModified    time.Time
	DeletedUpstream bool
	GameCount       int
}

func (i *identity) toTag() *domain.Tag {
	return &domain.Tag{
		ID:              i.ID,
		CategoryID:      i.CategoryID,
		Category:        i.Category,
		Description:     i.Description,
		PrimaryAliasID:  i.PrimaryAliasID,
		PrimaryAlias:    i.PrimaryAlias,
		Aliases:         i.Aliases,
		DateModified:    i.DateModified,
		DeletedUpstream: i.DeletedUpstream,
		GameCount:       i.GameCount,
	}
}

func (i *identity) toPlatform() *domain.Platform {
	return &domain.Platform{
		ID:              i.ID,
		Description:     i.Description,
		PrimaryAliasID:  i.PrimaryAliasID,
		PrimaryAlias:    i.PrimaryAlias,
		Aliases:         i.Aliases,
		DateModified:    i.DateModified,
		DeletedUpstream: i.DeletedUpstream,
		GameCount:       i.GameCount,
	}
}

// selectSQL returns the entity select list and joins. Must match scanIdentity.
func (t identityTable) selectSQL() string {
	category := `NULL, ''`
	categoryJoin := ""
	if t.hasCategory {
		category = `e.category_id, COALESCE(c.name, '')`
		categoryJoin = ` LEFT JOIN tag_category c ON c.id = e.category_id`
	}
	return fmt.Sprintf(`SELECT e.id, e.description, e.primary_alias_id, COALESCE(pa.name, ''),
		e.date_modified, e.deleted_upstream,
		(SELECT COUNT(*) FROM %[3]s j WHERE j.%[4]s = e.id), %[5]s
		FROM %[1]s e LEFT JOIN %[2]s pa ON pa.id = e.primary_alias_id%[6]s`,
		t.entity, t.alias, t.join, t.fk, category, categoryJoin)
}

func scanIdentity(scanner interface{ Scan(dest ...any) error }) (*identity, error) {
	var (
		i            identity
		dateModified string
		deleted      int
		categoryID   sql.NullInt64
	)
	err := scanner.Scan(
		&i.ID,
		&i.Description,
		&i.PrimaryAliasID,
		&i.PrimaryAlias,
		&dateModified,
		&deleted,
		&i.GameCount,
		&categoryID,
		&i.Category,
	)
	if err != nil {
		return nil, err
	}

	i.DateModified, err = parseTime(dateModified)
	if err != nil {
		return nil, err
	}
	i.DeletedUpstream = deleted != 0
	if categoryID.Valid {
		v := categoryID.Int64
		i.CategoryID = &v
	}
	return &i, nil
}

// loadIdentity returns the entity with its aliases.
func (s *Store) loadIdentity(ctx context.Context, q querier, t identityTable, id int64) (*identity, error) {
	row := q.QueryRowContext(ctx, t.selectSQL()+` WHERE e.id = ?`, id)
	i, err := scanIdentity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerrors.NotFoundf("%s %d not found", t.kind, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", t.kind, err)
	}

	aliases, err := s.loadAliases(ctx, q, t, []int64{id})
	if err != nil {
		return nil, err
	}
	i.Aliases = aliases[id]
	return i, nil
}

// loadAliases returns aliases grouped by entity id, each group ordered by alias id.
// A nil ids slice loads every alias.
func (s *Store) loadAliases(ctx context.Context, q querier, t identityTable, ids []int64) (map[int64][]domain.Alias, error) {
	query := fmt.Sprintf(`SELECT id, %s, name FROM %s`, t.fk, t.alias)
	var args []any
	if ids != nil {
		if len(ids) == 0 {
			return map[int64][]domain.Alias{}, nil
		}
		query += fmt.Sprintf(` WHERE %s IN (%s)`, t.fk, placeholders(len(ids)))
		for _, id := range ids {
			args = append(args, id)
		}
	}
	query += ` ORDER BY id`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s aliases: %w", t.kind, err)
	}
	defer rows.Close()

	out := make(map[int64][]domain.Alias)
	for rows.Next() {
		var a domain.Alias
		if err := rows.Scan(&a.ID, &a.EntityID, &a.Name); err != nil {
			return nil, fmt.Errorf("scan %s alias: %w", t.kind, err)
		}
		out[a.EntityID] = append(out[a.EntityID], a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// listIdentities returns every entity ordered by primary alias name.
func (s *Store) listIdentities(ctx context.Context, q querier, t identityTable) ([]*identity, error) {
	rows, err := q.QueryContext(ctx, t.selectSQL()+` ORDER BY pa.name, e.id`)
	if err != nil {
		return nil, fmt.Errorf("list %ss: %w", t.kind, err)
	}
	defer rows.Close()

	var out []*identity
	for rows.Next() {
		i, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.kind, err)
		}
		out = append(out, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	rows.Close()

	aliases, err := s.loadAliases(ctx, q, t, nil)
	if err != nil {
		return nil, err
	}
	for _, i := range out {
		i.Aliases = aliases[i.ID]
	}
	return out, nil
}

// resolveIdentityID looks up the entity owning an alias name, case-insensitively.
func (s *Store) resolveIdentityID(ctx context.Context, q querier, t identityTable, name string) (int64, error) {
	name = normalize.Name(name)
	if name == "" {
		return 0, domainerrors.Validationf("%s name is required", t.kind)
	}

	var id int64
	err := q.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE name = ?`, t.fk, t.alias), name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domainerrors.NotFoundf("%s %q not found", t.kind, name)
	}
	if err != nil {
		return 0, fmt.Errorf("resolve %s: %w", t.kind, err)
	}
	return id, nil
}

func (s *Store) resolveIdentity(ctx context.Context, q querier, t identityTable, name string) (*identity, error) {
	id, err := s.resolveIdentityID(ctx, q, t, name)
	if err != nil {
		return nil, err
	}
	return s.loadIdentity(ctx, q, t, id)
}

// createIdentity inserts an entity with a single primary alias.
// Returns a conflict error when the name already resolves.
func (s *Store) createIdentity(ctx context.Context, q querier, t identityTable, name string, categoryID *int64, description string) (*identity, error) {
	name = normalize.Name(name)
	if name == "" {
		return nil, domainerrors.Validationf("%s name is required", t.kind)
	}

	_, err := s.resolveIdentityID(ctx, q, t, name)
	if err == nil {
		return nil, domainerrors.Conflictf("%s %q already exists", t.kind, name)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	now := formatTime(s.now())
	var res sql.Result
	if t.hasCategory {
		res, err = q.ExecContext(ctx, fmt.Sprintf(`
			INSERT INTO %s (category_id, description, date_modified) VALUES (?, ?, ?)`, t.entity),
			nullableInt64(categoryID), description, now)
	} else {
		res, err = q.ExecContext(ctx, fmt.Sprintf(`
			INSERT INTO %s (description, date_modified) VALUES (?, ?)`, t.entity),
			description, now)
	}
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", t.kind, err)
	}
	entityID, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	aliasID, err := s.insertAlias(ctx, q, t, entityID, name)
	if err != nil {
		return nil, err
	}
	if _, err := q.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET primary_alias_id = ? WHERE id = ?`, t.entity), aliasID, entityID); err != nil {
		return nil, fmt.Errorf("set primary alias: %w", err)
	}

	return s.loadIdentity(ctx, q, t, entityID)
}

// getOrCreateIdentity resolves name, creating the entity when it does not exist.
func (s *Store) getOrCreateIdentity(ctx context.Context, q querier, t identityTable, name string, categoryID *int64) (*identity, bool, error) {
	i, err := s.resolveIdentity(ctx, q, t, name)
	if err == nil {
		return i, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}

	i, err = s.createIdentity(ctx, q, t, name, categoryID, "")
	if err != nil {
		return nil, false, err
	}
	return i, true, nil
}

// resolveIdentityIDs resolves names to entity ids, creating missing entities.
// Duplicates (including different names of the same entity) collapse to one id.
func (s *Store) resolveIdentityIDs(ctx context.Context, q querier, t identityTable, names []string) ([]int64, error) {
	seen := make(map[int64]bool, len(names))
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		if normalize.Name(name) == "" {
			continue
		}
		i, _, err := s.getOrCreateIdentity(ctx, q, t, name, nil)
		if err != nil {
			return nil, err
		}
		if seen[i.ID] {
			continue
		}
		seen[i.ID] = true
		ids = append(ids, i.ID)
	}
	return ids, nil
}

func (s *Store) insertAlias(ctx context.Context, q querier, t identityTable, entityID int64, name string) (int64, error) {
	res, err := q.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (%s, name) VALUES (?, ?)`, t.alias, t.fk), entityID, name)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return 0, domainerrors.Conflictf("%s alias %q already exists", t.kind, name)
		}
		return 0, fmt.Errorf("insert %s alias: %w", t.kind, err)
	}
	return res.LastInsertId()
}

// addAlias binds name to the entity. Adding a name the entity already owns is a no-op;
// a name owned by another entity is a conflict.
func (s *Store) addAlias(ctx context.Context, q querier, t identityTable, entityID int64, name string) (domain.Alias, error) {
	name = normalize.Name(name)
	if name == "" {
		return domain.Alias{}, domainerrors.Validationf("%s alias name is required", t.kind)
	}
	if err := s.identityExists(ctx, q, t, entityID); err != nil {
		return domain.Alias{}, err
	}

	var existing domain.Alias
	err := q.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT id, %s, name FROM %s WHERE name = ?`, t.fk, t.alias), name).
		Scan(&existing.ID, &existing.EntityID, &existing.Name)
	switch {
	case err == nil && existing.EntityID == entityID:
		return existing, nil
	case err == nil:
		return domain.Alias{}, domainerrors.Conflictf("%s alias %q belongs to %s %d", t.kind, name, t.kind, existing.EntityID)
	case !errors.Is(err, sql.ErrNoRows):
		return domain.Alias{}, fmt.Errorf("lookup %s alias: %w", t.kind, err)
	}

	aliasID, err := s.insertAlias(ctx, q, t, entityID, name)
	if err != nil {
		return domain.Alias{}, err
	}
	if err := s.touchIdentity(ctx, q, t, entityID); err != nil {
		return domain.Alias{}, err
	}
	return domain.Alias{ID: aliasID, EntityID: entityID, Name: name}, nil
}

// removeAlias unbinds an alias. The last alias of an entity cannot be removed; removing
// the primary alias elects a new one.
func (s *Store) removeAlias(ctx context.Context, q querier, t identityTable, entityID, aliasID int64) error {
	i, err := s.loadIdentity(ctx, q, t, entityID)
	if err != nil {
		return err
	}
	if !hasAlias(i.Aliases, aliasID) {
		return domainerrors.Validationf("alias %d does not belong to %s %d", aliasID, t.kind, entityID)
	}
	if len(i.Aliases) == 1 {
		return domainerrors.Validationf("cannot remove the only alias of %s %d", t.kind, entityID)
	}

	if _, err := q.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, t.alias), aliasID); err != nil {
		return fmt.Errorf("delete %s alias: %w", t.kind, err)
	}

	if i.PrimaryAliasID == aliasID {
		if _, err := s.electPrimaryAlias(ctx, q, t, entityID); err != nil {
			return err
		}
		if err := s.rebuildCachesForIdentity(ctx, q, t, entityID); err != nil {
			return err
		}
	}
	return s.touchIdentity(ctx, q, t, entityID)
}

// setPrimaryAlias designates aliasID as the entity's primary alias.
func (s *Store) setPrimaryAlias(ctx context.Context, q querier, t identityTable, entityID, aliasID int64) error {
	i, err := s.loadIdentity(ctx, q, t, entityID)
	if err != nil {
		return err
	}
	if !hasAlias(i.Aliases, aliasID) {
		return domainerrors.Validationf("alias %d does not belong to %s %d", aliasID, t.kind, entityID)
	}
	if i.PrimaryAliasID == aliasID {
		return nil
	}

	if _, err := q.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET primary_alias_id = ?, date_modified = ? WHERE id = ?`, t.entity),
		aliasID, formatTime(s.now()), entityID); err != nil {
		return fmt.Errorf("set primary alias: %w", err)
	}
	return s.rebuildCachesForIdentity(ctx, q, t, entityID)
}

// electPrimaryAlias makes the lowest alias id the primary alias.
func (s *Store) electPrimaryAlias(ctx context.Context, q querier, t identityTable, entityID int64) (int64, error) {
	var aliasID sql.NullInt64
	err := q.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT MIN(id) FROM %s WHERE %s = ?`, t.alias, t.fk), entityID).Scan(&aliasID)
	if err != nil {
		return 0, fmt.Errorf("elect primary alias: %w", err)
	}
	if !aliasID.Valid {
		return 0, domainerrors.Consistencyf("%s %d has no aliases", t.kind, entityID)
	}

	if _, err := q.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET primary_alias_id = ? WHERE id = ?`, t.entity),
		aliasID.Int64, entityID); err != nil {
		return 0, fmt.Errorf("set primary alias: %w", err)
	}
	return aliasID.Int64, nil
}

// mergeIdentities moves every alias and game association of source onto target and
// deletes source. Returns the ids of games whose relations changed.
func (s *Store) mergeIdentities(ctx context.Context, q querier, t identityTable, sourceID, targetID int64) ([]string, error) {
	if sourceID == targetID {
		return nil, domainerrors.Validationf("cannot merge %s %d into itself", t.kind, sourceID)
	}
	if err := s.identityExists(ctx, q, t, sourceID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.Conflictf("%s %d no longer exists; it may already have been merged", t.kind, sourceID)
		}
		return nil, err
	}
	if err := s.identityExists(ctx, q, t, targetID); err != nil {
		return nil, err
	}

	affected, err := s.identityGameIDs(ctx, q, t, sourceID)
	if err != nil {
		return nil, err
	}

	stmts := []string{
		fmt.Sprintf(`UPDATE %s SET %s = ? WHERE %s = ?`, t.alias, t.fk, t.fk),
		fmt.Sprintf(`INSERT OR IGNORE INTO %[1]s (game_id, %[2]s, position)
			SELECT game_id, ?, position FROM %[1]s WHERE %[2]s = ?`, t.join, t.fk),
	}
	for _, stmt := range stmts {
		if _, err := q.ExecContext(ctx, stmt, targetID, sourceID); err != nil {
			return nil, fmt.Errorf("merge %s: %w", t.kind, err)
		}
	}
	if _, err := q.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, t.join, t.fk), sourceID); err != nil {
		return nil, fmt.Errorf("detach merged %s: %w", t.kind, err)
	}
	if _, err := q.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, t.entity), sourceID); err != nil {
		return nil, fmt.Errorf("delete merged %s: %w", t.kind, err)
	}

	if err := s.touchIdentity(ctx, q, t, targetID); err != nil {
		return nil, err
	}
	if err := s.rebuildGameCaches(ctx, q, affected); err != nil {
		return nil, err
	}
	return affected, nil
}

// deleteIdentity deletes an entity. With games attached it fails unless detach is set,
// in which case the games are detached first. Returns the detached game ids.
func (s *Store) deleteIdentity(ctx context.Context, q querier, t identityTable, id int64, detach bool) ([]string, error) {
	if err := s.identityExists(ctx, q, t, id); err != nil {
		return nil, err
	}

	affected, err := s.identityGameIDs(ctx, q, t, id)
	if err != nil {
		return nil, err
	}
	if len(affected) > 0 && !detach {
		return nil, domainerrors.Conflictf("%s %d is attached to %d games", t.kind, id, len(affected))
	}

	if _, err := q.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, t.join, t.fk), id); err != nil {
		return nil, fmt.Errorf("detach %s: %w", t.kind, err)
	}
	if _, err := q.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, t.entity), id); err != nil {
		return nil, fmt.Errorf("delete %s: %w", t.kind, err)
	}

	if err := s.rebuildGameCaches(ctx, q, affected); err != nil {
		return nil, err
	}
	return affected, nil
}

// updateIdentity sets the description and, for tags, the category.
func (s *Store) updateIdentity(ctx context.Context, q querier, t identityTable, id int64, description string, categoryID *int64) error {
	var (
		res sql.Result
		err error
	)
	now := formatTime(s.now())
	if t.hasCategory {
		res, err = q.ExecContext(ctx, fmt.Sprintf(`
			UPDATE %s SET description = ?, category_id = ?, date_modified = ? WHERE id = ?`, t.entity),
			description, nullableInt64(categoryID), now, id)
	} else {
		res, err = q.ExecContext(ctx, fmt.Sprintf(`
			UPDATE %s SET description = ?, date_modified = ? WHERE id = ?`, t.entity),
			description, now, id)
	}
	if err != nil {
		return fmt.Errorf("update %s: %w", t.kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domainerrors.NotFoundf("%s %d not found", t.kind, id)
	}
	return nil
}

func (s *Store) setDeletedUpstream(ctx context.Context, q querier, t identityTable, id int64, deleted bool) error {
	_, err := q.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s SET deleted_upstream = ?, date_modified = ? WHERE id = ?`, t.entity),
		boolToInt(deleted), formatTime(s.now()), id)
	if err != nil {
		return fmt.Errorf("flag %s: %w", t.kind, err)
	}
	return nil
}

func (s *Store) touchIdentity(ctx context.Context, q querier, t identityTable, id int64) error {
	_, err := q.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET date_modified = ? WHERE id = ?`, t.entity), formatTime(s.now()), id)
	if err != nil {
		return fmt.Errorf("touch %s: %w", t.kind, err)
	}
	return nil
}

func (s *Store) identityExists(ctx context.Context, q querier, t identityTable, id int64) error {
	var one int
	err := q.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT 1 FROM %s WHERE id = ?`, t.entity), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return domainerrors.NotFoundf("%s %d not found", t.kind, id)
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", t.kind, err)
	}
	return nil
}

// identityGameIDs returns the ids of games attached to the entity.
func (s *Store) identityGameIDs(ctx context.Context, q querier, t identityTable, id int64) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		fmt.Sprintf(`SELECT game_id FROM %s WHERE %s = ? ORDER BY game_id`, t.join, t.fk), id)
	if err != nil {
		return nil, fmt.Errorf("query %s games: %w", t.kind, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var gameID string
		if err := rows.Scan(&gameID); err != nil {
			return nil, fmt.Errorf("scan %s game: %w", t.kind, err)
		}
		ids = append(ids, gameID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return ids, nil
}

func (s *Store) rebuildCachesForIdentity(ctx context.Context, q querier, t identityTable, id int64) error {
	games, err := s.identityGameIDs(ctx, q, t, id)
	if err != nil {
		return err
	}
	return s.rebuildGameCaches(ctx, q, games)
}

// fixPrimaryAliases re-elects the primary alias of every entity whose primary alias is
// missing or belongs elsewhere. Entities without any alias are reported, not deleted.
func (s *Store) fixPrimaryAliases(ctx context.Context, q querier, t identityTable) (int, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf(`
		SELECT e.id FROM %[1]s e
		WHERE NOT EXISTS (SELECT 1 FROM %[2]s a WHERE a.id = e.primary_alias_id AND a.%[3]s = e.id)`,
		t.entity, t.alias, t.fk))
	if err != nil {
		return 0, fmt.Errorf("find broken primary aliases: %w", err)
	}
	var broken []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan %s: %w", t.kind, err)
		}
		broken = append(broken, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("rows iteration: %w", err)
	}
	rows.Close()

	fixed := 0
	for _, id := range broken {
		if _, err := s.electPrimaryAlias(ctx, q, t, id); err != nil {
			if errors.Is(err, domainerrors.ErrConsistency) {
				s.logger.Warn("entity has no aliases", "kind", t.kind, "id", id)
				continue
			}
			return fixed, err
		}
		if err := s.rebuildCachesForIdentity(ctx, q, t, id); err != nil {
			return fixed, err
		}
		fixed++
	}
	return fixed, nil
}

// cleanupAliases normalizes alias whitespace. Aliases that become empty, or duplicate
// another alias of the same entity, are deleted unless they are the entity's last one.
// Renames colliding with another entity's alias are skipped.
func (s *Store) cleanupAliases(ctx context.Context, q querier, t identityTable) (store.AliasCleanupResult, error) {
	var res store.AliasCleanupResult

	all, err := s.loadAliases(ctx, q, t, nil)
	if err != nil {
		return res, err
	}

	touched := make(map[int64]bool)
	for entityID, aliases := range all {
		clean := make(map[string]bool, len(aliases))
		for _, a := range aliases {
			if a.Name != "" && normalize.Name(a.Name) == a.Name {
				clean[normalize.FoldKey(a.Name)] = true
			}
		}

		remaining := len(aliases)
		for _, a := range aliases {
			name := normalize.Name(a.Name)
			if name == a.Name && name != "" {
				continue
			}

			if name == "" || clean[normalize.FoldKey(name)] {
				if remaining == 1 {
					res.Skipped++
					continue
				}
				if _, err := q.ExecContext(ctx,
					fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, t.alias), a.ID); err != nil {
					return res, fmt.Errorf("delete %s alias: %w", t.kind, err)
				}
				remaining--
				res.Deleted++
				touched[entityID] = true
				continue
			}

			_, err := q.ExecContext(ctx,
				fmt.Sprintf(`UPDATE %s SET name = ? WHERE id = ?`, t.alias), name, a.ID)
			if store.IsUniqueViolation(err) {
				s.logger.Warn("alias cleanup collides with another entity",
					"kind", t.kind, "alias_id", a.ID, "name", name)
				res.Skipped++
				continue
			}
			if err != nil {
				return res, fmt.Errorf("rename %s alias: %w", t.kind, err)
			}
			clean[normalize.FoldKey(name)] = true
			res.Renamed++
			touched[entityID] = true
		}
	}

	if _, err := s.fixPrimaryAliases(ctx, q, t); err != nil {
		return res, err
	}
	for entityID := range touched {
		if err := s.touchIdentity(ctx, q, t, entityID); err != nil {
			return res, err
		}
		if err := s.rebuildCachesForIdentity(ctx, q, t, entityID); err != nil {
			return res, err
		}
	}
	return res, nil
}

// identitySuggestions returns primary names of entities with an alias starting with prefix.
func (s *Store) identitySuggestions(ctx context.Context, q querier, t identityTable, prefix string, limit int) ([]string, error) {
	pattern := escapeLike(normalize.Name(prefix)) + "%"
	rows, err := q.QueryContext(ctx, fmt.Sprintf(`
		SELECT DISTINCT p.name
		FROM %[1]s a
		JOIN %[2]s e ON e.id = a.%[3]s
		JOIN %[1]s p ON p.id = e.primary_alias_id
		WHERE a.name LIKE ? ESCAPE '\'
		ORDER BY p.name
		LIMIT ?`, t.alias, t.entity, t.fk), pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("query %s suggestions: %w", t.kind, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan %s suggestion: %w", t.kind, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return names, nil
}

func hasAlias(aliases []domain.Alias, aliasID int64) bool {
	for _, a := range aliases {
		if a.ID == aliasID {
			return true
		}
	}
	return false
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
