package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/playlore/playlore-server/internal/domain"
	"github.com/playlore/playlore-server/internal/service"
)

func (s *Server) registerPlaylistRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listPlaylists",
		Method:      http.MethodGet,
		Path:        "/api/v1/playlists",
		Summary:     "List playlists",
		Description: "Returns every playlist without entries",
		Tags:        []string{"Playlists"},
	}, s.handleListPlaylists)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createPlaylist",
		Method:        http.MethodPost,
		Path:          "/api/v1/playlists",
		Summary:       "Create playlist",
		Description:   "Creates an empty playlist",
		Tags:          []string{"Playlists"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreatePlaylist)

	huma.Register(s.api, huma.Operation{
		OperationID: "getPlaylist",
		Method:      http.MethodGet,
		Path:        "/api/v1/playlists/{id}",
		Summary:     "Get playlist",
		Description: "Returns a playlist with its ordered entries",
		Tags:        []string{"Playlists"},
	}, s.handleGetPlaylist)

	huma.Register(s.api, huma.Operation{
		OperationID: "updatePlaylist",
		Method:      http.MethodPut,
		Path:        "/api/v1/playlists/{id}",
		Summary:     "Update playlist",
		Description: "Replaces a playlist's descriptive fields",
		Tags:        []string{"Playlists"},
	}, s.handleUpdatePlaylist)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deletePlaylist",
		Method:        http.MethodDelete,
		Path:          "/api/v1/playlists/{id}",
		Summary:       "Delete playlist",
		Description:   "Deletes a playlist and its entries",
		Tags:          []string{"Playlists"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeletePlaylist)

	huma.Register(s.api, huma.Operation{
		OperationID:   "addPlaylistGame",
		Method:        http.MethodPost,
		Path:          "/api/v1/playlists/{id}/games",
		Summary:       "Add playlist game",
		Description:   "Appends a game to a playlist",
		Tags:          []string{"Playlists"},
		DefaultStatus: http.StatusCreated,
	}, s.handleAddPlaylistGame)

	huma.Register(s.api, huma.Operation{
		OperationID:   "updatePlaylistGame",
		Method:        http.MethodPatch,
		Path:          "/api/v1/playlists/{id}/games/{gameId}",
		Summary:       "Update playlist game notes",
		Description:   "Replaces the notes of a playlist entry",
		Tags:          []string{"Playlists"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleUpdatePlaylistGame)

	huma.Register(s.api, huma.Operation{
		OperationID:   "removePlaylistGame",
		Method:        http.MethodDelete,
		Path:          "/api/v1/playlists/{id}/games/{gameId}",
		Summary:       "Remove playlist game",
		Description:   "Removes a game from a playlist",
		Tags:          []string{"Playlists"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleRemovePlaylistGame)
}

// PlaylistIDInput identifies a playlist by path.
type PlaylistIDInput struct {
	ID string `path:"id" doc:"Playlist ID"`
}

// PlaylistOutput wraps a playlist for Huma.
type PlaylistOutput struct {
	Body *domain.Playlist
}

// ListPlaylistsOutput wraps the playlist list for Huma.
type ListPlaylistsOutput struct {
	Body struct {
		Playlists []*domain.Playlist `json:"playlists" doc:"Playlists"`
	}
}

// CreatePlaylistInput wraps the create playlist request for Huma.
type CreatePlaylistInput struct {
	Body service.PlaylistRequest
}

// UpdatePlaylistInput wraps the update playlist request for Huma.
type UpdatePlaylistInput struct {
	ID   string `path:"id" doc:"Playlist ID"`
	Body service.PlaylistRequest
}

// AddPlaylistGameInput wraps the add playlist game request for Huma.
type AddPlaylistGameInput struct {
	ID   string `path:"id" doc:"Playlist ID"`
	Body struct {
		GameID string `json:"game_id" minLength:"1" doc:"Game ID"`
		Notes  string `json:"notes,omitempty" doc:"Entry notes"`
	}
}

// PlaylistGameOutput wraps a playlist entry for Huma.
type PlaylistGameOutput struct {
	Body *domain.PlaylistGame
}

// PlaylistGameInput identifies a playlist entry.
type PlaylistGameInput struct {
	ID     string `path:"id" doc:"Playlist ID"`
	GameID string `path:"gameId" doc:"Game ID"`
}

// UpdatePlaylistGameInput wraps the notes update for Huma.
type UpdatePlaylistGameInput struct {
	ID     string `path:"id" doc:"Playlist ID"`
	GameID string `path:"gameId" doc:"Game ID"`
	Body   struct {
		Notes string `json:"notes" doc:"Entry notes"`
	}
}

func (s *Server) handleListPlaylists(ctx context.Context, _ *struct{}) (*ListPlaylistsOutput, error) {
	playlists, err := s.services.Catalog.ListPlaylists(ctx)
	if err != nil {
		return nil, s.handlerError("listPlaylists", err)
	}
	if playlists == nil {
		playlists = []*domain.Playlist{}
	}
	out := &ListPlaylistsOutput{}
	out.Body.Playlists = playlists
	return out, nil
}

func (s *Server) handleCreatePlaylist(ctx context.Context, input *CreatePlaylistInput) (*PlaylistOutput, error) {
	p, err := s.services.Catalog.CreatePlaylist(ctx, input.Body)
	if err != nil {
		return nil, s.handlerError("createPlaylist", err)
	}
	return &PlaylistOutput{Body: p}, nil
}

func (s *Server) handleGetPlaylist(ctx context.Context, input *PlaylistIDInput) (*PlaylistOutput, error) {
	p, err := s.services.Catalog.GetPlaylist(ctx, input.ID)
	if err != nil {
		return nil, s.handlerError("getPlaylist", err)
	}
	return &PlaylistOutput{Body: p}, nil
}

func (s *Server) handleUpdatePlaylist(ctx context.Context, input *UpdatePlaylistInput) (*PlaylistOutput, error) {
	p, err := s.services.Catalog.UpdatePlaylist(ctx, input.ID, input.Body)
	if err != nil {
		return nil, s.handlerError("updatePlaylist", err)
	}
	return &PlaylistOutput{Body: p}, nil
}

func (s *Server) handleDeletePlaylist(ctx context.Context, input *PlaylistIDInput) (*struct{}, error) {
	if err := s.services.Catalog.DeletePlaylist(ctx, input.ID); err != nil {
		return nil, s.handlerError("deletePlaylist", err)
	}
	return nil, nil
}

func (s *Server) handleAddPlaylistGame(ctx context.Context, input *AddPlaylistGameInput) (*PlaylistGameOutput, error) {
	pg, err := s.services.Catalog.AddPlaylistGame(ctx, input.ID, input.Body.GameID, input.Body.Notes)
	if err != nil {
		return nil, s.handlerError("addPlaylistGame", err)
	}
	return &PlaylistGameOutput{Body: pg}, nil
}

func (s *Server) handleUpdatePlaylistGame(ctx context.Context, input *UpdatePlaylistGameInput) (*struct{}, error) {
	if err := s.services.Catalog.UpdatePlaylistGameNotes(ctx, input.ID, input.GameID, input.Body.Notes); err != nil {
		return nil, s.handlerError("updatePlaylistGame", err)
	}
	return nil, nil
}

func (s *Server) handleRemovePlaylistGame(ctx context.Context, input *PlaylistGameInput) (*struct{}, error) {
	if err := s.services.Catalog.RemovePlaylistGame(ctx, input.ID, input.GameID); err != nil {
		return nil, s.handlerError("removePlaylistGame", err)
	}
	return nil, nil
}
