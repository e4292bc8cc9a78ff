package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/playlore/playlore-server/internal/domain"
	domainerrors "github.com/playlore/playlore-server/internal/errors"
	"github.com/playlore/playlore-server/internal/id"
	"github.com/playlore/playlore-server/internal/store"
)

// gameDataColumns must match the scan order in scanGameData.
const gameDataColumns = `id, game_id, title, date_added, sha256, crc32, size, parameters, path, present_on_disk`

func scanGameData(scanner interface{ Scan(dest ...any) error }) (*domain.GameData, error) {
	var (
		d          domain.GameData
		dateAdded  string
		parameters sql.NullString
		path       sql.NullString
		onDisk     int
	)
	err := scanner.Scan(
		&d.ID,
		&d.GameID,
		&d.Title,
		&dateAdded,
		&d.SHA256,
		&d.CRC32,
		&d.Size,
		&parameters,
		&path,
		&onDisk,
	)
	if err != nil {
		return nil, err
	}

	d.DateAdded, err = parseTime(dateAdded)
	if err != nil {
		return nil, err
	}
	if parameters.Valid {
		d.Parameters = parameters.String
	}
	if path.Valid {
		v := path.String
		d.Path = &v
	}
	d.PresentOnDisk = onDisk != 0
	return &d, nil
}

// loadGameData returns game data grouped by game id, oldest first.
func (s *Store) loadGameData(ctx context.Context, q querier, gameIDs []string) (map[string][]domain.GameData, error) {
	out := make(map[string][]domain.GameData)
	for start := 0; start < len(gameIDs); start += batchSize {
		end := min(start+batchSize, len(gameIDs))
		chunk := gameIDs[start:end]

		rows, err := q.QueryContext(ctx, `
			SELECT `+gameDataColumns+` FROM game_data
			WHERE game_id IN (`+placeholders(len(chunk))+`)
			ORDER BY date_added, id`, stringArgs(chunk)...)
		if err != nil {
			return nil, fmt.Errorf("query game data: %w", err)
		}
		for rows.Next() {
			d, err := scanGameData(rows)
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan game data: %w", err)
			}
			out[d.GameID] = append(out[d.GameID], *d)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("rows iteration: %w", err)
		}
	}
	return out, nil
}

// SaveGameData upserts a game data row and refreshes the owning game's on-disk mirror.
// A row claiming to be on disk without a path is rejected.
func (s *Store) SaveGameData(ctx context.Context, d *domain.GameData) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.upsertGameData(ctx, tx, d)
	})
}

func (s *Store) upsertGameData(ctx context.Context, q querier, d *domain.GameData) error {
	return s.writeGameData(ctx, q, d, false)
}

// writeGameData inserts or updates d. With keepLocal set, an existing row keeps its
// path and presence flag, which only the local machine knows.
func (s *Store) writeGameData(ctx context.Context, q querier, d *domain.GameData, keepLocal bool) error {
	if !d.Valid() {
		return domainerrors.Validationf("game data %s is marked present on disk without a path", d.ID)
	}
	if d.ID == "" {
		d.ID = id.MustGenerate(id.PrefixGameData)
	}
	if d.DateAdded.IsZero() {
		d.DateAdded = s.now()
	}

	update := `title = excluded.title,
			sha256 = excluded.sha256,
			crc32 = excluded.crc32,
			size = excluded.size,
			parameters = excluded.parameters`
	if !keepLocal {
		update += `,
			path = excluded.path,
			present_on_disk = excluded.present_on_disk`
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO game_data (`+gameDataColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET `+update,
		d.ID,
		d.GameID,
		d.Title,
		formatTime(d.DateAdded),
		d.SHA256,
		d.CRC32,
		d.Size,
		nullString(d.Parameters),
		nullableString(d.Path),
		boolToInt(d.PresentOnDisk),
	)
	if err != nil {
		if store.IsForeignKeyViolation(err) {
			return domainerrors.NotFoundf("game %s not found", d.GameID)
		}
		return fmt.Errorf("upsert game data: %w", err)
	}
	return s.syncActiveDataMirror(ctx, q, d.GameID)
}

// GetGameData retrieves one game data row.
func (s *Store) GetGameData(ctx context.Context, dataID string) (*domain.GameData, error) {
	return s.getGameData(ctx, s.db, dataID)
}

func (s *Store) getGameData(ctx context.Context, q querier, dataID string) (*domain.GameData, error) {
	row := q.QueryRowContext(ctx, `SELECT `+gameDataColumns+` FROM game_data WHERE id = ?`, dataID)
	d, err := scanGameData(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerrors.NotFoundf("game data %s not found", dataID)
	}
	if err != nil {
		return nil, fmt.Errorf("get game data: %w", err)
	}
	return d, nil
}

// ListGameData returns every game data row of a game, oldest first.
func (s *Store) ListGameData(ctx context.Context, gameID string) ([]domain.GameData, error) {
	data, err := s.loadGameData(ctx, s.db, []string{gameID})
	if err != nil {
		return nil, err
	}
	return data[gameID], nil
}

// SetActiveGameData points the game at one of its data rows, or clears the reference
// when dataID is nil.
func (s *Store) SetActiveGameData(ctx context.Context, gameID string, dataID *string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.setActiveGameData(ctx, tx, gameID, dataID)
	})
}

func (s *Store) setActiveGameData(ctx context.Context, q querier, gameID string, dataID *string) error {
	if dataID != nil {
		d, err := s.getGameData(ctx, q, *dataID)
		if err != nil {
			return err
		}
		if d.GameID != gameID {
			return domainerrors.Validationf("game data %s belongs to game %s", *dataID, d.GameID)
		}
	}

	res, err := q.ExecContext(ctx,
		`UPDATE game SET active_data_id = ?, date_modified = ? WHERE id = ?`,
		nullableString(dataID), formatTime(s.now()), gameID)
	if err != nil {
		return fmt.Errorf("set active game data: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domainerrors.NotFoundf("game %s not found", gameID)
	}
	return s.syncActiveDataMirror(ctx, q, gameID)
}

// InstallGameData records that the payload of a data row is present at path.
func (s *Store) InstallGameData(ctx context.Context, dataID, path string) (*domain.GameData, error) {
	return s.setGameDataPath(ctx, dataID, &path)
}

// UninstallGameData clears the local path of a data row and mirrors the change into
// the owning game.
func (s *Store) UninstallGameData(ctx context.Context, dataID string) (*domain.GameData, error) {
	return s.setGameDataPath(ctx, dataID, nil)
}

func (s *Store) setGameDataPath(ctx context.Context, dataID string, path *string) (*domain.GameData, error) {
	if path != nil && *path == "" {
		return nil, domainerrors.Validation("path is required")
	}

	var d *domain.GameData
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		d, err = s.getGameData(ctx, tx, dataID)
		if err != nil {
			return err
		}
		if path != nil {
			d.MarkInstalled(*path)
		} else {
			d.MarkUninstalled()
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE game_data SET path = ?, present_on_disk = ? WHERE id = ?`,
			nullableString(d.Path), boolToInt(d.PresentOnDisk), dataID); err != nil {
			return fmt.Errorf("update game data: %w", err)
		}
		return s.syncActiveDataMirror(ctx, tx, d.GameID)
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// DeleteGameData deletes a data row, clearing the owning game's active reference when it
// pointed at it.
func (s *Store) DeleteGameData(ctx context.Context, dataID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		d, err := s.getGameData(ctx, tx, dataID)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE game SET active_data_id = NULL, date_modified = ? WHERE id = ? AND active_data_id = ?`,
			formatTime(s.now()), d.GameID, dataID); err != nil {
			return fmt.Errorf("clear active game data: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM game_data WHERE id = ?`, dataID); err != nil {
			return fmt.Errorf("delete game data: %w", err)
		}
		return s.syncActiveDataMirror(ctx, tx, d.GameID)
	})
}

// syncActiveDataMirror sets active_data_on_disk from the active data row.
func (s *Store) syncActiveDataMirror(ctx context.Context, q querier, gameID string) error {
	_, err := q.ExecContext(ctx, `
		UPDATE game SET active_data_on_disk = COALESCE((
			SELECT d.present_on_disk FROM game_data d
			WHERE d.id = game.active_data_id AND d.game_id = game.id), 0)
		WHERE id = ?`, gameID)
	if err != nil {
		return fmt.Errorf("sync active data mirror: %w", err)
	}
	return nil
}
