package remote

import (
	"time"

	"github.com/playlore/playlore-server/internal/domain"
)

// Wire records exchanged with a metadata source. Field names are snake_case.

type countResponse struct {
	Total int `json:"total"`
}

type identityRecord struct {
	Name         string    `json:"name"`
	Aliases      []string  `json:"aliases"`
	Description  string    `json:"description"`
	Category     string    `json:"category,omitempty"`
	DateModified time.Time `json:"date_modified"`
}

type categoryRecord struct {
	Name        string `json:"name"`
	Color       string `json:"color"`
	Description string `json:"description,omitempty"`
}

type platformsResponse struct {
	Platforms []identityRecord `json:"platforms"`
	Deletions []string         `json:"deletions"`
}

type tagsResponse struct {
	Categories []categoryRecord `json:"categories"`
	Tags       []identityRecord `json:"tags"`
	Deletions  []string         `json:"deletions"`
}

type addAppRecord struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	ApplicationPath string `json:"application_path"`
	LaunchCommand   string `json:"launch_command"`
	AutoRunBefore   bool   `json:"auto_run_before"`
	WaitForExit     bool   `json:"wait_for_exit"`
}

type gameDataRecord struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	DateAdded  time.Time `json:"date_added"`
	SHA256     string    `json:"sha256"`
	CRC32      int64     `json:"crc32"`
	Size       int64     `json:"size"`
	Parameters string    `json:"parameters,omitempty"`
}

type gameRecord struct {
	ID                  string           `json:"id"`
	Title               string           `json:"title"`
	AlternateTitles     string           `json:"alternate_titles"`
	Series              string           `json:"series"`
	Developer           string           `json:"developer"`
	Publisher           string           `json:"publisher"`
	PlayMode            string           `json:"play_mode"`
	Status              string           `json:"status"`
	Notes               string           `json:"notes"`
	Source              string           `json:"source"`
	ApplicationPath     string           `json:"application_path"`
	LaunchCommand       string           `json:"launch_command"`
	ReleaseDate         string           `json:"release_date"`
	Version             string           `json:"version"`
	OriginalDescription string           `json:"original_description"`
	Language            string           `json:"language"`
	Library             string           `json:"library"`
	Broken              bool             `json:"broken"`
	Extreme             bool             `json:"extreme"`
	Tags                []string         `json:"tags"`
	Platforms           []string         `json:"platforms"`
	DateAdded           time.Time        `json:"date_added"`
	DateModified        time.Time        `json:"date_modified"`
	ActiveDataID        *string          `json:"active_data_id"`
	AddApps             []addAppRecord   `json:"add_apps"`
	GameData            []gameDataRecord `json:"game_data"`
}

type gamesResponse struct {
	Games      []gameRecord `json:"games"`
	Deletions  []string     `json:"deletions"`
	NextCursor string       `json:"next_cursor"`
}

func (r identityRecord) toDomain() domain.RemoteIdentity {
	return domain.RemoteIdentity{
		Name:         r.Name,
		Aliases:      r.Aliases,
		Description:  r.Description,
		Category:     r.Category,
		DateModified: r.DateModified.UTC(),
	}
}

func identities(records []identityRecord) []domain.RemoteIdentity {
	out := make([]domain.RemoteIdentity, len(records))
	for i, r := range records {
		out[i] = r.toDomain()
	}
	return out
}

func categories(records []categoryRecord) []domain.RemoteCategory {
	out := make([]domain.RemoteCategory, len(records))
	for i, r := range records {
		out[i] = domain.RemoteCategory{Name: r.Name, Color: r.Color, Description: r.Description}
	}
	return out
}

func (r *gameRecord) toDomain() *domain.Game {
	g := &domain.Game{
		ID:                  r.ID,
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
		ActiveDataID:        r.ActiveDataID,
		Timestamps: domain.Timestamps{
			DateAdded:    r.DateAdded.UTC(),
			DateModified: r.DateModified.UTC(),
		},
	}
	for _, a := range r.AddApps {
		g.AddApps = append(g.AddApps, domain.AdditionalApp{
			ID:              a.ID,
			GameID:          r.ID,
			Name:            a.Name,
			ApplicationPath: a.ApplicationPath,
			LaunchCommand:   a.LaunchCommand,
			AutoRunBefore:   a.AutoRunBefore,
			WaitForExit:     a.WaitForExit,
		})
	}
	for _, d := range r.GameData {
		g.Data = append(g.Data, domain.GameData{
			ID:         d.ID,
			GameID:     r.ID,
			Title:      d.Title,
			DateAdded:  d.DateAdded.UTC(),
			SHA256:     d.SHA256,
			CRC32:      d.CRC32,
			Size:       d.Size,
			Parameters: d.Parameters,
		})
	}
	return g
}
