package domain

import "time"

// GameData is one downloadable content package version for a game.
// PresentOnDisk is only ever true while Path is set.
type GameData struct {
	ID            string    `json:"id"`
	GameID        string    `json:"game_id"`
	Title         string    `json:"title"`
	DateAdded     time.Time `json:"date_added"`
	SHA256        string    `json:"sha256"`
	CRC32         int64     `json:"crc32"`
	Size          int64     `json:"size"`
	Parameters    string    `json:"parameters,omitempty"`
	Path          *string   `json:"path,omitempty"`
	PresentOnDisk bool      `json:"present_on_disk"`
}

// Valid reports whether the presence flag agrees with the path.
func (d *GameData) Valid() bool {
	return !d.PresentOnDisk || (d.Path != nil && *d.Path != "")
}

// MarkInstalled records that the payload exists at path.
func (d *GameData) MarkInstalled(path string) {
	d.Path = &path
	d.PresentOnDisk = true
}

// MarkUninstalled clears the local payload reference.
func (d *GameData) MarkUninstalled() {
	d.Path = nil
	d.PresentOnDisk = false
}
