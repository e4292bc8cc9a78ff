package domain

import "strings"

// CacheSeparator joins names in the denormalized tag and platform caches.
const CacheSeparator = "; "

// Game is one catalog entry.
// Tags and Platforms hold primary alias names; TagsStr and PlatformsStr are the
// flattened copies used for substring search and rebuilt from the relations on write.
type Game struct {
	Timestamps
	ID                  string `json:"id"`
	Title               string `json:"title"`
	AlternateTitles     string `json:"alternate_titles"`
	Series              string `json:"series"`
	Developer           string `json:"developer"`
	Publisher           string `json:"publisher"`
	PlayMode            string `json:"play_mode"`
	Status              string `json:"status"`
	Notes               string `json:"notes"`
	Source              string `json:"source"`
	ApplicationPath     string `json:"application_path"`
	LaunchCommand       string `json:"launch_command"`
	ReleaseDate         string `json:"release_date"`
	Version             string `json:"version"`
	OriginalDescription string `json:"original_description"`
	Language            string `json:"language"`
	Library             string `json:"library"`
	OrderTitle          string `json:"order_title"`
	Broken              bool   `json:"broken"`
	Extreme             bool   `json:"extreme"`

	TagsStr      string   `json:"tags_str"`
	PlatformsStr string   `json:"platforms_str"`
	Tags         []string `json:"tags,omitempty"`
	Platforms    []string `json:"platforms,omitempty"`

	ActiveDataID     *string `json:"active_data_id,omitempty"`
	ActiveDataOnDisk bool    `json:"active_data_on_disk"`

	AddApps []AdditionalApp `json:"add_apps,omitempty"`
	Data    []GameData      `json:"data,omitempty"`
}

// PrimaryPlatform returns the first platform name, or "" when the game has none.
func (g *Game) PrimaryPlatform() string {
	if len(g.Platforms) > 0 {
		return g.Platforms[0]
	}
	if g.PlatformsStr == "" {
		return ""
	}
	first, _, _ := strings.Cut(g.PlatformsStr, CacheSeparator)
	return first
}

// SplitCache splits a denormalized cache string back into names.
func SplitCache(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	return names
}

// AdditionalApp is an auxiliary launch entry owned by a game.
type AdditionalApp struct {
	ID              string `json:"id"`
	GameID          string `json:"game_id"`
	Name            string `json:"name"`
	ApplicationPath string `json:"application_path"`
	LaunchCommand   string `json:"launch_command"`
	AutoRunBefore   bool   `json:"auto_run_before"`
	WaitForExit     bool   `json:"wait_for_exit"`
}
