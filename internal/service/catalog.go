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

// Suggestion fields answered from the identity tables rather than game columns.
const (
	SuggestTags      = "tags"
	SuggestPlatforms = "platforms"

	defaultSuggestionLimit = 50
)

// CatalogService orchestrates game, playlist and game data operations.
type CatalogService struct {
	store     store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(store store.Store, validator *validation.Validator, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		store:     store,
		validator: validator,
		logger:    logger,
	}
}

// SuggestionRequest asks for distinct values of a field.
// Prefix and Limit only apply to tags and platforms.
type SuggestionRequest struct {
	Field        string `json:"field" validate:"notblank"`
	Prefix       string `json:"prefix,omitempty"`
	Limit        int    `json:"limit,omitempty" validate:"gte=0,lte=1000"`
	IncludeEmpty bool   `json:"include_empty,omitempty"`
}

// GetGame returns a game with its additional apps and game data.
func (s *CatalogService) GetGame(ctx context.Context, gameID string) (*domain.Game, error) {
	return s.store.FindGame(ctx, gameID)
}

// SaveGame creates or updates a game. A game without an id gets a new one.
func (s *CatalogService) SaveGame(ctx context.Context, g *domain.Game) error {
	if err := validateGame(g); err != nil {
		return err
	}
	if err := s.store.SaveGame(ctx, g); err != nil {
		return err
	}

	s.logger.Info("game saved",
		"game_id", g.ID,
		"title", g.Title,
	)
	return nil
}

// UpdateGames saves every game in one transaction.
func (s *CatalogService) UpdateGames(ctx context.Context, games []*domain.Game) error {
	for _, g := range games {
		if err := validateGame(g); err != nil {
			return err
		}
	}
	if err := s.store.UpdateGames(ctx, games); err != nil {
		return err
	}
	s.logger.Info("games updated", "count", len(games))
	return nil
}

func validateGame(g *domain.Game) error {
	if g == nil {
		return domainerrors.Validation("game is required")
	}
	if strings.TrimSpace(g.Title) == "" {
		return domainerrors.ValidationWithDetails("validation failed: title is required",
			map[string]string{"title": "is required"})
	}
	for i := range g.Data {
		if !g.Data[i].Valid() {
			return domainerrors.Validationf("game data %s is marked present on disk without a path", g.Data[i].ID)
		}
	}
	return nil
}

// DeleteGame removes a game and everything it owns.
func (s *CatalogService) DeleteGame(ctx context.Context, gameID string) error {
	if err := s.store.RemoveGame(ctx, gameID); err != nil {
		return err
	}
	s.logger.Info("game deleted", "game_id", gameID)
	return nil
}

// DuplicateGame copies a game under a new id. With deep set its game data is copied too.
func (s *CatalogService) DuplicateGame(ctx context.Context, gameID string, deep bool) (*domain.Game, error) {
	g, err := s.store.DuplicateGame(ctx, gameID, deep)
	if err != nil {
		return nil, err
	}
	s.logger.Info("game duplicated",
		"source_game_id", gameID,
		"game_id", g.ID,
		"deep", deep,
	)
	return g, nil
}

// GameListPage is one page of the catalog in id order.
type GameListPage struct {
	Games      []*domain.Game `json:"games"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// ListGames walks the whole catalog in id order, independent of any browse view. An
// empty cursor starts at the beginning; the last page has no NextCursor.
func (s *CatalogService) ListGames(ctx context.Context, cursor string, limit int) (*GameListPage, error) {
	params := store.DefaultPaginationParams()
	if limit > 0 {
		params.Limit = limit
	}
	after, err := store.DecodeCursor(cursor)
	if err != nil {
		return nil, domainerrors.Validation(err.Error())
	}
	if after != nil {
		params.AfterID = after.ID
	}

	res, err := s.store.FindAllGamesPaged(ctx, params)
	if err != nil {
		return nil, err
	}
	page := &GameListPage{Games: res.Items}
	if page.Games == nil {
		page.Games = []*domain.Game{}
	}
	if res.HasMore {
		page.NextCursor = store.EncodeCursor(store.Boundary{ID: res.LastID})
	}
	return page, nil
}

// CountGames returns the size of the catalog.
func (s *CatalogService) CountGames(ctx context.Context) (int, error) {
	return s.store.CountGames(ctx)
}

// Suggestions returns the distinct values of a field for autocompletion.
func (s *CatalogService) Suggestions(ctx context.Context, req SuggestionRequest) ([]string, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit == 0 {
		limit = defaultSuggestionLimit
	}

	switch req.Field {
	case SuggestTags:
		return s.store.TagSuggestions(ctx, req.Prefix, limit)
	case SuggestPlatforms:
		return s.store.PlatformSuggestions(ctx, req.Prefix, limit)
	default:
		return s.store.DistinctValues(ctx, req.Field, !req.IncludeEmpty)
	}
}

// RebuildCaches recomputes the tag and platform caches of every game.
func (s *CatalogService) RebuildCaches(ctx context.Context) (int, error) {
	n, err := s.store.RebuildTaggedFields(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Info("rebuilt tagged fields", "games", n)
	return n, nil
}

// NukeTags deletes every game carrying any of the named tags.
func (s *CatalogService) NukeTags(ctx context.Context, tagNames []string) (int, error) {
	if len(tagNames) == 0 {
		return 0, domainerrors.Validation("at least one tag name is required")
	}
	n, err := s.store.NukeTags(ctx, tagNames)
	if err != nil {
		return 0, err
	}
	s.logger.Warn("nuked games by tag", "tags", tagNames, "deleted", n)
	return n, nil
}

// PlaylistRequest creates or updates a playlist.
type PlaylistRequest struct {
	Title       string `json:"title" validate:"notblank,max=255"`
	Description string `json:"description,omitempty"`
	Author      string `json:"author,omitempty" validate:"max=255"`
	Library     string `json:"library,omitempty"`
	Extreme     bool   `json:"extreme,omitempty"`
}

// ListPlaylists returns every playlist without entries.
func (s *CatalogService) ListPlaylists(ctx context.Context) ([]*domain.Playlist, error) {
	return s.store.ListPlaylists(ctx)
}

// GetPlaylist returns a playlist with its entries in order.
func (s *CatalogService) GetPlaylist(ctx context.Context, playlistID string) (*domain.Playlist, error) {
	return s.store.GetPlaylist(ctx, playlistID)
}

// CreatePlaylist creates an empty playlist.
func (s *CatalogService) CreatePlaylist(ctx context.Context, req PlaylistRequest) (*domain.Playlist, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	p := &domain.Playlist{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Author:      req.Author,
		Library:     req.Library,
		Extreme:     req.Extreme,
	}
	if err := s.store.CreatePlaylist(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("playlist created", "playlist_id", p.ID, "title", p.Title)
	return p, nil
}

// UpdatePlaylist replaces a playlist's descriptive fields.
func (s *CatalogService) UpdatePlaylist(ctx context.Context, playlistID string, req PlaylistRequest) (*domain.Playlist, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	p, err := s.store.GetPlaylist(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	p.Title = strings.TrimSpace(req.Title)
	p.Description = req.Description
	p.Author = req.Author
	p.Library = req.Library
	p.Extreme = req.Extreme
	if err := s.store.UpdatePlaylist(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// DeletePlaylist deletes a playlist. Its games are kept.
func (s *CatalogService) DeletePlaylist(ctx context.Context, playlistID string) error {
	if err := s.store.DeletePlaylist(ctx, playlistID); err != nil {
		return err
	}
	s.logger.Info("playlist deleted", "playlist_id", playlistID)
	return nil
}

// AddPlaylistGame appends a game to a playlist.
func (s *CatalogService) AddPlaylistGame(ctx context.Context, playlistID, gameID, notes string) (*domain.PlaylistGame, error) {
	return s.store.AddPlaylistGame(ctx, playlistID, gameID, notes)
}

// RemovePlaylistGame removes a game from a playlist.
func (s *CatalogService) RemovePlaylistGame(ctx context.Context, playlistID, gameID string) error {
	return s.store.RemovePlaylistGame(ctx, playlistID, gameID)
}

// UpdatePlaylistGameNotes replaces the notes of one playlist entry.
func (s *CatalogService) UpdatePlaylistGameNotes(ctx context.Context, playlistID, gameID, notes string) error {
	return s.store.UpdatePlaylistGameNotes(ctx, playlistID, gameID, notes)
}

// ListGameData returns the game data of a game, oldest first.
func (s *CatalogService) ListGameData(ctx context.Context, gameID string) ([]domain.GameData, error) {
	if _, err := s.store.FindGame(ctx, gameID); err != nil {
		return nil, err
	}
	return s.store.ListGameData(ctx, gameID)
}

// SaveGameData creates or updates a game data row.
func (s *CatalogService) SaveGameData(ctx context.Context, d *domain.GameData) error {
	if d.GameID == "" {
		return domainerrors.ValidationWithDetails("validation failed: game_id is required",
			map[string]string{"game_id": "is required"})
	}
	return s.store.SaveGameData(ctx, d)
}

// SetActiveGameData points a game at one of its data rows; nil clears the reference.
func (s *CatalogService) SetActiveGameData(ctx context.Context, gameID string, dataID *string) error {
	return s.store.SetActiveGameData(ctx, gameID, dataID)
}

// InstallGameData records that a data payload is present at path.
func (s *CatalogService) InstallGameData(ctx context.Context, dataID, path string) (*domain.GameData, error) {
	if strings.TrimSpace(path) == "" {
		return nil, domainerrors.ValidationWithDetails("validation failed: path is required",
			map[string]string{"path": "is required"})
	}
	d, err := s.store.InstallGameData(ctx, dataID, path)
	if err != nil {
		return nil, err
	}
	s.logger.Info("game data installed", "data_id", dataID, "game_id", d.GameID)
	return d, nil
}

// UninstallGameData clears a data row's local payload reference.
func (s *CatalogService) UninstallGameData(ctx context.Context, dataID string) (*domain.GameData, error) {
	d, err := s.store.UninstallGameData(ctx, dataID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("game data uninstalled", "data_id", dataID, "game_id", d.GameID)
	return d, nil
}

// DeleteGameData deletes a data row.
func (s *CatalogService) DeleteGameData(ctx context.Context, dataID string) error {
	return s.store.DeleteGameData(ctx, dataID)
}
