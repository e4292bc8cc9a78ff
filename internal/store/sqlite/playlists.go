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

// playlistColumns must match the scan order in scanPlaylist.
const playlistColumns = `id, title, description, author, library, extreme`

func scanPlaylist(scanner interface{ Scan(dest ...any) error }) (*domain.Playlist, error) {
	var (
		p       domain.Playlist
		extreme int
	)
	if err := scanner.Scan(&p.ID, &p.Title, &p.Description, &p.Author, &p.Library, &extreme); err != nil {
		return nil, err
	}
	p.Extreme = extreme != 0
	return &p, nil
}

// CreatePlaylist inserts a playlist with its entries. An id is generated when empty.
func (s *Store) CreatePlaylist(ctx context.Context, p *domain.Playlist) error {
	if p.ID == "" {
		playlistID, err := id.Generate(id.PrefixPlaylist)
		if err != nil {
			return fmt.Errorf("generate playlist ID: %w", err)
		}
		p.ID = playlistID
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO playlist (`+playlistColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
			p.ID, p.Title, p.Description, p.Author, p.Library, boolToInt(p.Extreme))
		if err != nil {
			if store.IsUniqueViolation(err) {
				return domainerrors.Conflictf("playlist %s already exists", p.ID)
			}
			return fmt.Errorf("insert playlist: %w", err)
		}
		for i := range p.Games {
			p.Games[i].PlaylistID = p.ID
			if err := s.insertPlaylistGame(ctx, tx, &p.Games[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdatePlaylist updates a playlist's descriptive fields. Entries are left alone.
func (s *Store) UpdatePlaylist(ctx context.Context, p *domain.Playlist) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE playlist SET title = ?, description = ?, author = ?, library = ?, extreme = ?
			WHERE id = ?`,
			p.Title, p.Description, p.Author, p.Library, boolToInt(p.Extreme), p.ID)
		if err != nil {
			return fmt.Errorf("update playlist: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return domainerrors.NotFoundf("playlist %s not found", p.ID)
		}
		return nil
	})
}

// GetPlaylist retrieves a playlist with its entries in order.
func (s *Store) GetPlaylist(ctx context.Context, playlistID string) (*domain.Playlist, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+playlistColumns+` FROM playlist WHERE id = ?`, playlistID)
	p, err := scanPlaylist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerrors.NotFoundf("playlist %s not found", playlistID)
	}
	if err != nil {
		return nil, fmt.Errorf("get playlist: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT playlist_id, game_id, ord, notes FROM playlist_game
		WHERE playlist_id = ? ORDER BY ord, game_id`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("query playlist games: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pg domain.PlaylistGame
		if err := rows.Scan(&pg.PlaylistID, &pg.GameID, &pg.Order, &pg.Notes); err != nil {
			return nil, fmt.Errorf("scan playlist game: %w", err)
		}
		p.Games = append(p.Games, pg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return p, nil
}

// ListPlaylists returns every playlist without entries, ordered by title.
func (s *Store) ListPlaylists(ctx context.Context) ([]*domain.Playlist, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+playlistColumns+` FROM playlist ORDER BY title, id`)
	if err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	defer rows.Close()

	var out []*domain.Playlist
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, fmt.Errorf("scan playlist: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// DeletePlaylist deletes a playlist and its entries.
func (s *Store) DeletePlaylist(ctx context.Context, playlistID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM playlist WHERE id = ?`, playlistID)
		if err != nil {
			return fmt.Errorf("delete playlist: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return domainerrors.NotFoundf("playlist %s not found", playlistID)
		}
		return nil
	})
}

// AddPlaylistGame appends a game to a playlist.
func (s *Store) AddPlaylistGame(ctx context.Context, playlistID, gameID, notes string) (*domain.PlaylistGame, error) {
	pg := &domain.PlaylistGame{PlaylistID: playlistID, GameID: gameID, Notes: notes}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(ord), -1) + 1 FROM playlist_game WHERE playlist_id = ?`,
			playlistID).Scan(&pg.Order); err != nil {
			return fmt.Errorf("next playlist order: %w", err)
		}
		return s.insertPlaylistGame(ctx, tx, pg)
	})
	if err != nil {
		return nil, err
	}
	return pg, nil
}

func (s *Store) insertPlaylistGame(ctx context.Context, q querier, pg *domain.PlaylistGame) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO playlist_game (playlist_id, game_id, ord, notes) VALUES (?, ?, ?, ?)`,
		pg.PlaylistID, pg.GameID, pg.Order, pg.Notes)
	switch {
	case store.IsUniqueViolation(err):
		return domainerrors.Conflictf("game %s is already in playlist %s", pg.GameID, pg.PlaylistID)
	case store.IsForeignKeyViolation(err):
		return domainerrors.NotFoundf("playlist %s or game %s not found", pg.PlaylistID, pg.GameID)
	case err != nil:
		return fmt.Errorf("insert playlist game: %w", err)
	}
	return nil
}

// RemovePlaylistGame removes a game from a playlist.
func (s *Store) RemovePlaylistGame(ctx context.Context, playlistID, gameID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM playlist_game WHERE playlist_id = ? AND game_id = ?`, playlistID, gameID)
		if err != nil {
			return fmt.Errorf("delete playlist game: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return domainerrors.NotFoundf("game %s is not in playlist %s", gameID, playlistID)
		}
		return nil
	})
}

// UpdatePlaylistGameNotes replaces the notes of one playlist entry.
func (s *Store) UpdatePlaylistGameNotes(ctx context.Context, playlistID, gameID, notes string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE playlist_game SET notes = ? WHERE playlist_id = ? AND game_id = ?`,
			notes, playlistID, gameID)
		if err != nil {
			return fmt.Errorf("update playlist game: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return domainerrors.NotFoundf("game %s is not in playlist %s", gameID, playlistID)
		}
		return nil
	})
}
