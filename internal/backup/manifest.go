package backup

import "time"

// FormatVersion is the backup format version. Increment major on breaking changes.
const FormatVersion = "1.0"

// Archive layout.
const (
	manifestFile   = "manifest.json"
	categoriesFile = "entities/categories.jsonl"
	tagsFile       = "entities/tags.jsonl"
	platformsFile  = "entities/platforms.jsonl"
	gamesFile      = "entities/games.jsonl"
	playlistsFile  = "entities/playlists.jsonl"

	archiveSuffix = ".playlore.zip"
)

// Manifest describes backup contents and metadata.
type Manifest struct {
	Version         string       `json:"version"`
	CreatedAt       time.Time    `json:"created_at"`
	PlayloreVersion string       `json:"playlore_version"`
	Counts          EntityCounts `json:"counts"`
}

// EntityCounts tracks entity counts for validation and progress reporting.
// Additional apps and game data are embedded in their games.
type EntityCounts struct {
	Categories int `json:"categories"`
	Tags       int `json:"tags"`
	Platforms  int `json:"platforms"`
	Games      int `json:"games"`
	AddApps    int `json:"add_apps"`
	GameData   int `json:"game_data"`
	Playlists  int `json:"playlists"`
}
