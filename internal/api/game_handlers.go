package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/playlore/playlore-server/internal/domain"
	"github.com/playlore/playlore-server/internal/service"
)

func (s *Server) registerGameRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listGames",
		Method:      http.MethodGet,
		Path:        "/api/v1/games",
		Summary:     "List games",
		Description: "Walks the whole catalog in id order. Pass next_cursor back as cursor for the following page",
		Tags:        []string{"Games"},
	}, s.handleListGames)

	huma.Register(s.api, huma.Operation{
		OperationID: "getGame",
		Method:      http.MethodGet,
		Path:        "/api/v1/games/{id}",
		Summary:     "Get game",
		Description: "Returns a game with its additional apps and game data",
		Tags:        []string{"Games"},
	}, s.handleGetGame)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createGame",
		Method:        http.MethodPost,
		Path:          "/api/v1/games",
		Summary:       "Create game",
		Description:   "Creates a game. Tags and platforms are resolved by name and created when unknown",
		Tags:          []string{"Games"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateGame)

	huma.Register(s.api, huma.Operation{
		OperationID: "saveGame",
		Method:      http.MethodPut,
		Path:        "/api/v1/games/{id}",
		Summary:     "Save game",
		Description: "Inserts or replaces a game and its additional apps",
		Tags:        []string{"Games"},
	}, s.handleSaveGame)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteGame",
		Method:        http.MethodDelete,
		Path:          "/api/v1/games/{id}",
		Summary:       "Delete game",
		Description:   "Deletes a game with its additional apps, game data and playlist entries",
		Tags:          []string{"Games"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteGame)

	huma.Register(s.api, huma.Operation{
		OperationID:   "duplicateGame",
		Method:        http.MethodPost,
		Path:          "/api/v1/games/{id}/duplicate",
		Summary:       "Duplicate game",
		Description:   "Copies a game under a new id. With deep set the game data rows are copied too",
		Tags:          []string{"Games"},
		DefaultStatus: http.StatusCreated,
	}, s.handleDuplicateGame)

	huma.Register(s.api, huma.Operation{
		OperationID: "listGameData",
		Method:      http.MethodGet,
		Path:        "/api/v1/games/{id}/data",
		Summary:     "List game data",
		Description: "Returns the content packages of a game",
		Tags:        []string{"Game Data"},
	}, s.handleListGameData)

	huma.Register(s.api, huma.Operation{
		OperationID:   "saveGameData",
		Method:        http.MethodPost,
		Path:          "/api/v1/games/{id}/data",
		Summary:       "Save game data",
		Description:   "Inserts or updates a content package of a game",
		Tags:          []string{"Game Data"},
		DefaultStatus: http.StatusCreated,
	}, s.handleSaveGameData)

	huma.Register(s.api, huma.Operation{
		OperationID:   "setActiveGameData",
		Method:        http.MethodPut,
		Path:          "/api/v1/games/{id}/data/active",
		Summary:       "Set active game data",
		Description:   "Selects the content package launched for a game, or clears the selection",
		Tags:          []string{"Game Data"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleSetActiveGameData)

	huma.Register(s.api, huma.Operation{
		OperationID: "installGameData",
		Method:      http.MethodPost,
		Path:        "/api/v1/game-data/{id}/install",
		Summary:     "Mark game data installed",
		Description: "Records that a content package is present on disk at a path",
		Tags:        []string{"Game Data"},
	}, s.handleInstallGameData)

	huma.Register(s.api, huma.Operation{
		OperationID: "uninstallGameData",
		Method:      http.MethodPost,
		Path:        "/api/v1/game-data/{id}/uninstall",
		Summary:     "Mark game data uninstalled",
		Description: "Clears the local path of a content package",
		Tags:        []string{"Game Data"},
	}, s.handleUninstallGameData)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteGameData",
		Method:        http.MethodDelete,
		Path:          "/api/v1/game-data/{id}",
		Summary:       "Delete game data",
		Description:   "Deletes a content package",
		Tags:          []string{"Game Data"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteGameData)
}

// === DTOs ===

// ListGamesInput pages through the catalog.
type ListGamesInput struct {
	Cursor string `query:"cursor" doc:"Opaque cursor from a previous page"`
	Limit  int    `query:"limit" minimum:"0" maximum:"5000" doc:"Games per page (default 100)"`
}

// ListGamesOutput wraps one catalog page for Huma.
type ListGamesOutput struct {
	Body *service.GameListPage
}

// GameIDInput identifies a game by path.
type GameIDInput struct {
	ID string `path:"id" doc:"Game ID"`
}

// AddAppRequest is one additional app in a game request.
type AddAppRequest struct {
	ID              string `json:"id,omitempty" doc:"Additional app ID, generated when empty"`
	Name            string `json:"name" doc:"Display name"`
	ApplicationPath string `json:"application_path,omitempty" doc:"Launch target"`
	LaunchCommand   string `json:"launch_command,omitempty" doc:"Launch arguments"`
	AutoRunBefore   bool   `json:"auto_run_before,omitempty" doc:"Run before the game starts"`
	WaitForExit     bool   `json:"wait_for_exit,omitempty" doc:"Wait for the app to exit"`
}

// GameRequest is the request body for creating or saving a game.
type GameRequest struct {
	Title               string          `json:"title" minLength:"1" doc:"Title"`
	AlternateTitles     string          `json:"alternate_titles,omitempty" doc:"Alternate titles"`
	Series              string          `json:"series,omitempty" doc:"Series"`
	Developer           string          `json:"developer,omitempty" doc:"Developer"`
	Publisher           string          `json:"publisher,omitempty" doc:"Publisher"`
	PlayMode            string          `json:"play_mode,omitempty" doc:"Play mode"`
	Status              string          `json:"status,omitempty" doc:"Playability status"`
	Notes               string          `json:"notes,omitempty" doc:"Curator notes"`
	Source              string          `json:"source,omitempty" doc:"Original source URL"`
	ApplicationPath     string          `json:"application_path,omitempty" doc:"Launch target"`
	LaunchCommand       string          `json:"launch_command,omitempty" doc:"Launch arguments"`
	ReleaseDate         string          `json:"release_date,omitempty" doc:"Release date"`
	Version             string          `json:"version,omitempty" doc:"Version"`
	OriginalDescription string          `json:"original_description,omitempty" doc:"Original description"`
	Language            string          `json:"language,omitempty" doc:"Language"`
	Library             string          `json:"library,omitempty" doc:"Library"`
	Broken              bool            `json:"broken,omitempty" doc:"Known broken"`
	Extreme             bool            `json:"extreme,omitempty" doc:"Extreme content"`
	Tags                []string        `json:"tags,omitempty" doc:"Tag names"`
	Platforms           []string        `json:"platforms,omitempty" doc:"Platform names, primary first"`
	AddApps             []AddAppRequest `json:"add_apps,omitempty" doc:"Additional apps, replacing the stored set"`
}

func (r GameRequest) toDomain(id string) *domain.Game {
	g := &domain.Game{
		ID:                  id,
		Title:               r.Title,
		AlternateTitles:     r.AlternateTitles,
		Series:              r.Series,
		Developer:           r.Developer,
		Publisher:           r.Publisher,
		PlayMode:            r.PlayMode,
		Status:              r.Status,
		Notes:               r.Notes,
		Source:              r.Source,
		ApplicationPath:     r.ApplicationPath,
		LaunchCommand:       r.LaunchCommand,
		ReleaseDate:         r.ReleaseDate,
		Version:             r.Version,
		OriginalDescription: r.OriginalDescription,
		Language:            r.Language,
		Library:             r.Library,
		Broken:              r.Broken,
		Extreme:             r.Extreme,
		Tags:                r.Tags,
		Platforms:           r.Platforms,
	}
	for _, a := range r.AddApps {
		g.AddApps = append(g.AddApps, domain.AdditionalApp{
			ID:              a.ID,
			GameID:          id,
			Name:            a.Name,
			ApplicationPath: a.ApplicationPath,
			LaunchCommand:   a.LaunchCommand,
			AutoRunBefore:   a.AutoRunBefore,
			WaitForExit:     a.WaitForExit,
		})
	}
	return g
}

// CreateGameInput wraps the create game request for Huma.
type CreateGameInput struct {
	Body GameRequest
}

// SaveGameInput wraps the save game request for Huma.
type SaveGameInput struct {
	ID   string `path:"id" doc:"Game ID"`
	Body GameRequest
}

// GameOutput wraps a game for Huma.
type GameOutput struct {
	Body *domain.Game
}

// DuplicateGameInput contains parameters for duplicating a game.
type DuplicateGameInput struct {
	ID   string `path:"id" doc:"Game ID"`
	Deep bool   `query:"deep" doc:"Copy game data rows too"`
}

// GameDataListOutput wraps a game's content packages for Huma.
type GameDataListOutput struct {
	Body []domain.GameData
}

// GameDataRequest is the request body for saving a content package.
type GameDataRequest struct {
	ID         string `json:"id,omitempty" doc:"Game data ID, generated when empty"`
	Title      string `json:"title,omitempty" doc:"Title"`
	SHA256     string `json:"sha256,omitempty" doc:"Payload SHA-256"`
	CRC32      int64  `json:"crc32,omitempty" doc:"Payload CRC32"`
	Size       int64  `json:"size,omitempty" doc:"Payload size in bytes"`
	Parameters string `json:"parameters,omitempty" doc:"Launch parameters"`
}

// SaveGameDataInput wraps the save game data request for Huma.
type SaveGameDataInput struct {
	ID   string `path:"id" doc:"Game ID"`
	Body GameDataRequest
}

// GameDataOutput wraps a content package for Huma.
type GameDataOutput struct {
	Body *domain.GameData
}

// SetActiveGameDataInput selects the active content package.
type SetActiveGameDataInput struct {
	ID   string `path:"id" doc:"Game ID"`
	Body struct {
		DataID *string `json:"data_id,omitempty" doc:"Game data ID; omit to clear"`
	}
}

// GameDataIDInput identifies a content package by path.
type GameDataIDInput struct {
	ID string `path:"id" doc:"Game data ID"`
}

// InstallGameDataInput records a content package as installed.
type InstallGameDataInput struct {
	ID   string `path:"id" doc:"Game data ID"`
	Body struct {
		Path string `json:"path" minLength:"1" doc:"Local path of the payload"`
	}
}

// === Handlers ===

func (s *Server) handleListGames(ctx context.Context, input *ListGamesInput) (*ListGamesOutput, error) {
	page, err := s.services.Catalog.ListGames(ctx, input.Cursor, input.Limit)
	if err != nil {
		return nil, s.handlerError("listGames", err)
	}
	return &ListGamesOutput{Body: page}, nil
}

func (s *Server) handleGetGame(ctx context.Context, input *GameIDInput) (*GameOutput, error) {
	g, err := s.services.Catalog.GetGame(ctx, input.ID)
	if err != nil {
		return nil, s.handlerError("getGame", err)
	}
	return &GameOutput{Body: g}, nil
}

func (s *Server) handleCreateGame(ctx context.Context, input *CreateGameInput) (*GameOutput, error) {
	g := input.Body.toDomain("")
	if err := s.services.Catalog.SaveGame(ctx, g); err != nil {
		return nil, s.handlerError("createGame", err)
	}
	return s.reloadGame(ctx, "createGame", g.ID)
}

func (s *Server) handleSaveGame(ctx context.Context, input *SaveGameInput) (*GameOutput, error) {
	g := input.Body.toDomain(input.ID)
	if err := s.services.Catalog.SaveGame(ctx, g); err != nil {
		return nil, s.handlerError("saveGame", err)
	}
	return s.reloadGame(ctx, "saveGame", g.ID)
}

// reloadGame returns the stored form of a game after a write, with generated ids and
// rebuilt caches.
func (s *Server) reloadGame(ctx context.Context, op, id string) (*GameOutput, error) {
	g, err := s.services.Catalog.GetGame(ctx, id)
	if err != nil {
		return nil, s.handlerError(op, err)
	}
	return &GameOutput{Body: g}, nil
}

func (s *Server) handleDeleteGame(ctx context.Context, input *GameIDInput) (*struct{}, error) {
	if err := s.services.Catalog.DeleteGame(ctx, input.ID); err != nil {
		return nil, s.handlerError("deleteGame", err)
	}
	return nil, nil
}

func (s *Server) handleDuplicateGame(ctx context.Context, input *DuplicateGameInput) (*GameOutput, error) {
	g, err := s.services.Catalog.DuplicateGame(ctx, input.ID, input.Deep)
	if err != nil {
		return nil, s.handlerError("duplicateGame", err)
	}
	return &GameOutput{Body: g}, nil
}

func (s *Server) handleListGameData(ctx context.Context, input *GameIDInput) (*GameDataListOutput, error) {
	data, err := s.services.Catalog.ListGameData(ctx, input.ID)
	if err != nil {
		return nil, s.handlerError("listGameData", err)
	}
	if data == nil {
		data = []domain.GameData{}
	}
	return &GameDataListOutput{Body: data}, nil
}

func (s *Server) handleSaveGameData(ctx context.Context, input *SaveGameDataInput) (*GameDataOutput, error) {
	d := &domain.GameData{
		ID:         input.Body.ID,
		GameID:     input.ID,
		Title:      input.Body.Title,
		SHA256:     input.Body.SHA256,
		CRC32:      input.Body.CRC32,
		Size:       input.Body.Size,
		Parameters: input.Body.Parameters,
	}
	if err := s.services.Catalog.SaveGameData(ctx, d); err != nil {
		return nil, s.handlerError("saveGameData", err)
	}
	return &GameDataOutput{Body: d}, nil
}

func (s *Server) handleSetActiveGameData(ctx context.Context, input *SetActiveGameDataInput) (*struct{}, error) {
	if err := s.services.Catalog.SetActiveGameData(ctx, input.ID, input.Body.DataID); err != nil {
		return nil, s.handlerError("setActiveGameData", err)
	}
	return nil, nil
}

func (s *Server) handleInstallGameData(ctx context.Context, input *InstallGameDataInput) (*GameDataOutput, error) {
	d, err := s.services.Catalog.InstallGameData(ctx, input.ID, input.Body.Path)
	if err != nil {
		return nil, s.handlerError("installGameData", err)
	}
	return &GameDataOutput{Body: d}, nil
}

func (s *Server) handleUninstallGameData(ctx context.Context, input *GameDataIDInput) (*GameDataOutput, error) {
	d, err := s.services.Catalog.UninstallGameData(ctx, input.ID)
	if err != nil {
		return nil, s.handlerError("uninstallGameData", err)
	}
	return &GameDataOutput{Body: d}, nil
}

func (s *Server) handleDeleteGameData(ctx context.Context, input *GameDataIDInput) (*struct{}, error) {
	if err := s.services.Catalog.DeleteGameData(ctx, input.ID); err != nil {
		return nil, s.handlerError("deleteGameData", err)
	}
	return nil, nil
}
