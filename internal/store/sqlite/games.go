package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/playlore/playlore-server/internal/domain"
	domainerrors "github.com/playlore/playlore-server/internal/errors"
	"github.com/playlore/playlore-server/internal/id"
	"github.com/playlore/playlore-server/internal/normalize"
	"github.com/playlore/playlore-server/internal/store"
)

// batchSize bounds IN lists and per-statement work.
const batchSize = 500

// gameColumns is the ordered list of columns selected in game queries.
// Must match the scan order in scanGame.
const gameColumns = `g.id, g.title, g.alternate_titles, g.series, g.developer, g.publisher,
	g.play_mode, g.status, g.notes, g.source, g.application_path, g.launch_command,
	g.release_date, g.version, g.original_description, g.language, g.library, g.order_title,
	g.broken, g.extreme, g.tags_str, g.platforms_str, g.date_added, g.date_modified,
	g.active_data_id, g.active_data_on_disk`

// scanGame scans a sql.Row (or sql.Rows via its Scan method) into a domain.Game.
func scanGame(scanner interface{ Scan(dest ...any) error }) (*domain.Game, error) {
	var g domain.Game

	var (
		broken       int
		extreme      int
		dateAdded    string
		dateModified string
		activeDataID sql.NullString
		onDisk       int
	)

	err := scanner.Scan(
		&g.ID,
		&g.Title,
		&g.AlternateTitles,
		&g.Series,
		&g.Developer,
		&g.Publisher,
		&g.PlayMode,
		&g.Status,
		&g.Notes,
		&g.Source,
		&g.ApplicationPath,
		&g.LaunchCommand,
		&g.ReleaseDate,
		&g.Version,
		&g.OriginalDescription,
		&g.Language,
		&g.Library,
		&g.OrderTitle,
		&broken,
		&extreme,
		&g.TagsStr,
		&g.PlatformsStr,
		&dateAdded,
		&dateModified,
		&activeDataID,
		&onDisk,
	)
	if err != nil {
		return nil, err
	}

	g.DateAdded, err = parseTime(dateAdded)
	if err != nil {
		return nil, err
	}
	g.DateModified, err = parseTime(dateModified)
	if err != nil {
		return nil, err
	}

	if activeDataID.Valid {
		v := activeDataID.String
		g.ActiveDataID = &v
	}

	g.Broken = broken != 0
	g.Extreme = extreme != 0
	g.ActiveDataOnDisk = onDisk != 0

	return &g, nil
}

// relations selects which child records are loaded with games.
type relations uint8

const (
	relNames relations = 1 << iota
	relAddApps
	relData

	relShallow relations = 0
	relAll               = relNames | relAddApps | relData
)

// loadRelations fills the requested child records of games in place.
func (s *Store) loadRelations(ctx context.Context, q querier, games []*domain.Game, rel relations) error {
	if len(games) == 0 || rel == relShallow {
		return nil
	}
	ids := make([]string, len(games))
	for i, g := range games {
		ids[i] = g.ID
	}

	if rel&relNames != 0 {
		tags, err := s.relationNames(ctx, q, tagTable, ids)
		if err != nil {
			return err
		}
		platforms, err := s.relationNames(ctx, q, platformTable, ids)
		if err != nil {
			return err
		}
		for _, g := range games {
			g.Tags = tags[g.ID]
			g.Platforms = platforms[g.ID]
		}
	}
	if rel&relAddApps != 0 {
		apps, err := s.loadAddApps(ctx, q, ids)
		if err != nil {
			return err
		}
		for _, g := range games {
			g.AddApps = apps[g.ID]
		}
	}
	if rel&relData != 0 {
		data, err := s.loadGameData(ctx, q, ids)
		if err != nil {
			return err
		}
		for _, g := range games {
			g.Data = data[g.ID]
		}
	}
	return nil
}

// SaveGame upserts a game by id.
//
// DateAdded is kept from the stored row (or set now for a new game), DateModified is set
// to now and OrderTitle is derived from Title. Tags and Platforms are resolved by name,
// creating missing entities, and replaced by their primary names. AddApps are replaced
// wholesale; GameData is managed separately. The passed game is updated to match the
// stored row once the transaction commits and is left untouched on failure.
func (s *Store) SaveGame(ctx context.Context, g *domain.Game) error {
	staged := stageGame(g)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return s.saveGame(ctx, tx, staged)
	})
	if err != nil {
		return err
	}
	*g = *staged
	s.indexGames(ctx, []*domain.Game{g})
	return nil
}

// stageGame copies g so saveGame can fill derived fields without touching the caller's
// game before commit. AddApps is cloned because saveGame assigns their ids.
func stageGame(g *domain.Game) *domain.Game {
	c := *g
	c.AddApps = slices.Clone(g.AddApps)
	return &c
}

func (s *Store) saveGame(ctx context.Context, q querier, g *domain.Game) error {
	if g.ID == "" {
		g.ID = id.NewGameID()
	}

	now := s.now()
	var stored string
	err := q.QueryRowContext(ctx, `SELECT date_added FROM game WHERE id = ?`, g.ID).Scan(&stored)
	switch {
	case err == nil:
		if g.DateAdded, err = parseTime(stored); err != nil {
			return fmt.Errorf("parse date_added: %w", err)
		}
	case errors.Is(err, sql.ErrNoRows):
		g.InitTimestamps(now)
		g.DateAdded = g.DateAdded.UTC().Truncate(time.Millisecond)
	default:
		return fmt.Errorf("get game: %w", err)
	}
	g.Touch(now)
	g.OrderTitle = normalize.OrderTitle(g.Title)

	tagIDs, err := s.resolveIdentityIDs(ctx, q, tagTable, g.Tags)
	if err != nil {
		return fmt.Errorf("resolve tags: %w", err)
	}
	platformIDs, err := s.resolveIdentityIDs(ctx, q, platformTable, g.Platforms)
	if err != nil {
		return fmt.Errorf("resolve platforms: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO game (
			id, title, alternate_titles, series, developer, publisher, play_mode, status,
			notes, source, application_path, launch_command, release_date, version,
			original_description, language, library, order_title, broken, extreme,
			date_added, date_modified, active_data_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			alternate_titles = excluded.alternate_titles,
			series = excluded.series,
			developer = excluded.developer,
			publisher = excluded.publisher,
			play_mode = excluded.play_mode,
			status = excluded.status,
			notes = excluded.notes,
			source = excluded.source,
			application_path = excluded.application_path,
			launch_command = excluded.launch_command,
			release_date = excluded.release_date,
			version = excluded.version,
			original_description = excluded.original_description,
			language = excluded.language,
			library = excluded.library,
			order_title = excluded.order_title,
			broken = excluded.broken,
			extreme = excluded.extreme,
			date_modified = excluded.date_modified,
			active_data_id = excluded.active_data_id`,
		g.ID,
		g.Title,
		g.AlternateTitles,
		g.Series,
		g.Developer,
		g.Publisher,
		g.PlayMode,
		g.Status,
		g.Notes,
		g.Source,
		g.ApplicationPath,
		g.LaunchCommand,
		g.ReleaseDate,
		g.Version,
		g.OriginalDescription,
		g.Language,
		g.Library,
		g.OrderTitle,
		boolToInt(g.Broken),
		boolToInt(g.Extreme),
		formatTime(g.DateAdded),
		formatTime(g.DateModified),
		nullableString(g.ActiveDataID),
	)
	if err != nil {
		return fmt.Errorf("upsert game: %w", err)
	}

	if err := s.setRelations(ctx, q, tagTable, g.ID, tagIDs); err != nil {
		return err
	}
	if err := s.setRelations(ctx, q, platformTable, g.ID, platformIDs); err != nil {
		return err
	}
	if err := s.replaceAddApps(ctx, q, g); err != nil {
		return err
	}
	if err := s.syncActiveDataMirror(ctx, q, g.ID); err != nil {
		return err
	}
	if err := s.rebuildGameCaches(ctx, q, []string{g.ID}); err != nil {
		return err
	}

	// Reflect the derived columns back onto the caller's struct.
	row := q.QueryRowContext(ctx, `SELECT `+gameColumns+` FROM game g WHERE g.id = ?`, g.ID)
	saved, err := scanGame(row)
	if err != nil {
		return fmt.Errorf("reload game: %w", err)
	}
	g.TagsStr = saved.TagsStr
	g.PlatformsStr = saved.PlatformsStr
	g.ActiveDataOnDisk = saved.ActiveDataOnDisk

	names, err := s.relationNames(ctx, q, tagTable, []string{g.ID})
	if err != nil {
		return err
	}
	g.Tags = names[g.ID]
	names, err = s.relationNames(ctx, q, platformTable, []string{g.ID})
	if err != nil {
		return err
	}
	g.Platforms = names[g.ID]
	return nil
}

// UpdateGames saves every game in one transaction: all persist or none do. Like SaveGame,
// the passed games only change once the transaction commits.
func (s *Store) UpdateGames(ctx context.Context, games []*domain.Game) error {
	staged := make([]*domain.Game, len(games))
	for i, g := range games {
		staged[i] = stageGame(g)
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, g := range staged {
			if err := s.saveGame(ctx, tx, g); err != nil {
				return fmt.Errorf("save game %s: %w", g.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for i, g := range games {
		*g = *staged[i]
	}
	s.indexGames(ctx, games)
	return nil
}

// FindGame retrieves a game with all relations.
func (s *Store) FindGame(ctx context.Context, gameID string) (*domain.Game, error) {
	return s.findGame(ctx, s.db, gameID, relAll)
}

func (s *Store) findGame(ctx context.Context, q querier, gameID string, rel relations) (*domain.Game, error) {
	row := q.QueryRowContext(ctx, `SELECT `+gameColumns+` FROM game g WHERE g.id = ?`, gameID)
	g, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerrors.NotFoundf("game %s not found", gameID)
	}
	if err != nil {
		return nil, fmt.Errorf("get game: %w", err)
	}
	if err := s.loadRelations(ctx, q, []*domain.Game{g}, rel); err != nil {
		return nil, err
	}
	return g, nil
}

// FindGames retrieves games by id in the order given. Missing ids are skipped.
func (s *Store) FindGames(ctx context.Context, ids []string) ([]*domain.Game, error) {
	return s.findGames(ctx, s.db, ids, relAll)
}

func (s *Store) findGames(ctx context.Context, q querier, ids []string, rel relations) ([]*domain.Game, error) {
	byID := make(map[string]*domain.Game, len(ids))
	for start := 0; start < len(ids); start += batchSize {
		end := min(start+batchSize, len(ids))
		chunk := ids[start:end]

		games, err := s.queryGames(ctx, q,
			`SELECT `+gameColumns+` FROM game g WHERE g.id IN (`+placeholders(len(chunk))+`)`,
			stringArgs(chunk)...)
		if err != nil {
			return nil, err
		}
		for _, g := range games {
			byID[g.ID] = g
		}
	}

	out := make([]*domain.Game, 0, len(byID))
	for _, gameID := range ids {
		if g, ok := byID[gameID]; ok {
			out = append(out, g)
			delete(byID, gameID)
		}
	}
	if err := s.loadRelations(ctx, q, out, rel); err != nil {
		return nil, err
	}
	return out, nil
}

// queryGames runs a game select and scans every row.
func (s *Store) queryGames(ctx context.Context, q querier, query string, args ...any) ([]*domain.Game, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query games: %w", err)
	}
	defer rows.Close()

	var games []*domain.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return games, nil
}

// RemoveGame deletes a game with its additional apps, game data and playlist entries,
// and detaches its tags and platforms. Shared tags and platforms are kept.
func (s *Store) RemoveGame(ctx context.Context, gameID string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return s.removeGames(ctx, tx, []string{gameID}, true)
	})
	if err != nil {
		return err
	}
	s.unindexGames(ctx, []string{gameID})
	return nil
}

// removeGames deletes games; relations cascade. With strict set, a missing id is NotFound.
func (s *Store) removeGames(ctx context.Context, q querier, ids []string, strict bool) error {
	for _, gameID := range ids {
		res, err := q.ExecContext(ctx, `DELETE FROM game WHERE id = ?`, gameID)
		if err != nil {
			return fmt.Errorf("delete game: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 && strict {
			return domainerrors.NotFoundf("game %s not found", gameID)
		}
	}
	return nil
}

// CountGames returns the number of games in the catalog.
func (s *Store) CountGames(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM game`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count games: %w", err)
	}
	return n, nil
}

// distinctColumns maps suggestion fields to their column. Multi-valued fields hold
// semicolon separated lists and are split.
var distinctColumns = map[string]struct {
	column string
	multi  bool
}{
	"developer": {"developer", true},
	"publisher": {"publisher", true},
	"series":    {"series", false},
	"library":   {"library", false},
	"status":    {"status", true},
	"playMode":  {"play_mode", true},
	"language":  {"language", true},
	"source":    {"source", false},
	"version":   {"version", false},
}

// DistinctValues returns the distinct values of a game field for suggestion lists.
// Values differing only by case collapse to one, and the result is sorted
// case-insensitively.
func (s *Store) DistinctValues(ctx context.Context, field string, excludeEmpty bool) ([]string, error) {
	def, ok := distinctColumns[field]
	if !ok {
		return nil, domainerrors.Validationf("field %q has no suggestions", field)
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT DISTINCT %[1]s FROM game ORDER BY %[1]s`, def.column))
	if err != nil {
		return nil, fmt.Errorf("query distinct %s: %w", field, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan distinct %s: %w", field, err)
		}
		if def.multi {
			parts := strings.Split(v, ";")
			for _, p := range parts {
				values = append(values, strings.TrimSpace(p))
			}
			continue
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	out := normalize.DistinctFolded(values, excludeEmpty)
	slices.SortStableFunc(out, func(a, b string) int {
		return strings.Compare(normalize.FoldKey(a), normalize.FoldKey(b))
	})
	return out, nil
}

// FindAllGamesPaged returns games in id order after params.AfterID, with all relations.
// Used for full-table dumps independent of the browse ordering.
func (s *Store) FindAllGamesPaged(ctx context.Context, params store.PaginationParams) (*store.PaginatedResult[*domain.Game], error) {
	params.Validate()

	games, err := s.queryGames(ctx, s.db,
		`SELECT `+gameColumns+` FROM game g WHERE g.id > ? ORDER BY g.id LIMIT ?`,
		params.AfterID, params.Limit+1)
	if err != nil {
		return nil, err
	}

	result := &store.PaginatedResult[*domain.Game]{}
	if len(games) > params.Limit {
		result.HasMore = true
		games = games[:params.Limit]
	}
	if err := s.loadRelations(ctx, s.db, games, relAll); err != nil {
		return nil, err
	}
	result.Items = games
	if len(games) > 0 {
		result.LastID = games[len(games)-1].ID
	}
	return result, nil
}

// DuplicateGame copies a game under a new id with new additional app ids. With deep set
// the game data rows are copied too, as not yet downloaded.
func (s *Store) DuplicateGame(ctx context.Context, gameID string, deep bool) (*domain.Game, error) {
	var dup *domain.Game
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		orig, err := s.findGame(ctx, tx, gameID, relAll)
		if err != nil {
			return err
		}

		activeID := ""
		if orig.ActiveDataID != nil {
			activeID = *orig.ActiveDataID
		}

		dup = orig
		dup.ID = id.NewGameID()
		dup.DateAdded = s.now()
		dup.ActiveDataID = nil
		for i := range dup.AddApps {
			dup.AddApps[i].ID = id.NewGameID()
			dup.AddApps[i].GameID = dup.ID
		}
		data := dup.Data
		dup.Data = nil

		if err := s.saveGame(ctx, tx, dup); err != nil {
			return err
		}
		if !deep {
			return nil
		}

		var copied []domain.GameData
		for _, d := range data {
			wasActive := d.ID == activeID
			d.ID = id.MustGenerate(id.PrefixGameData)
			d.GameID = dup.ID
			d.MarkUninstalled()
			if err := s.upsertGameData(ctx, tx, &d); err != nil {
				return err
			}
			if wasActive {
				if err := s.setActiveGameData(ctx, tx, dup.ID, &d.ID); err != nil {
					return err
				}
				dup.ActiveDataID = &d.ID
			}
			copied = append(copied, d)
		}
		dup.Data = copied
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.indexGames(ctx, []*domain.Game{dup})
	return dup, nil
}

// NukeTags deletes every game carrying any of the named tags. Unknown names are ignored.
// Returns the number of games deleted.
func (s *Store) NukeTags(ctx context.Context, tagNames []string) (int, error) {
	var removed []string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var tagIDs []any
		for _, name := range tagNames {
			tagID, err := s.resolveIdentityID(ctx, tx, tagTable, name)
			if errors.Is(err, store.ErrNotFound) || errors.Is(err, domainerrors.ErrValidation) {
				continue
			}
			if err != nil {
				return err
			}
			tagIDs = append(tagIDs, tagID)
		}
		if len(tagIDs) == 0 {
			return nil
		}

		rows, err := tx.QueryContext(ctx,
			`SELECT DISTINCT game_id FROM game_tag WHERE tag_id IN (`+placeholders(len(tagIDs))+`)`,
			tagIDs...)
		if err != nil {
			return fmt.Errorf("query tagged games: %w", err)
		}
		for rows.Next() {
			var gameID string
			if err := rows.Scan(&gameID); err != nil {
				rows.Close()
				return fmt.Errorf("scan game id: %w", err)
			}
			removed = append(removed, gameID)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return fmt.Errorf("rows iteration: %w", err)
		}

		return s.removeGames(ctx, tx, removed, false)
	})
	if err != nil {
		return 0, err
	}
	s.unindexGames(ctx, removed)
	return len(removed), nil
}

// indexGames pushes committed games to the search index. Failures are logged; the
// index can be rebuilt from the store.
func (s *Store) indexGames(ctx context.Context, games []*domain.Game) {
	if len(games) == 0 {
		return
	}
	if err := s.searchIndexer.IndexGames(ctx, games); err != nil {
		s.logger.Warn("failed to index games", "count", len(games), "error", err)
	}
}

func (s *Store) unindexGames(ctx context.Context, ids []string) {
	if len(ids) == 0 {
		return
	}
	if err := s.searchIndexer.DeleteGames(ctx, ids); err != nil {
		s.logger.Warn("failed to remove games from index", "count", len(ids), "error", err)
	}
}

// reindexGames reloads games whose relations changed and re-indexes them.
func (s *Store) reindexGames(ctx context.Context, ids []string) {
	if len(ids) == 0 {
		return
	}
	games, err := s.findGames(ctx, s.db, ids, relNames)
	if err != nil {
		s.logger.Warn("failed to load games for reindex", "count", len(ids), "error", err)
		return
	}
	s.indexGames(ctx, games)
}
