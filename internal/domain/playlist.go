package domain

// Playlist is an ordered, cross-library list of games.
type Playlist struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Author      string         `json:"author"`
	Library     string         `json:"library"`
	Extreme     bool           `json:"extreme"`
	Games       []PlaylistGame `json:"games,omitempty"`
}

// PlaylistGame is one entry of a playlist.
type PlaylistGame struct {
	PlaylistID string `json:"playlist_id"`
	GameID     string `json:"game_id"`
	Order      int    `json:"order"`
	Notes      string `json:"notes"`
}
