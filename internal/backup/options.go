package backup

import "time"

// BackupOptions configures backup creation.
type BackupOptions struct {
	OutputPath string // Where to write the backup file (default: timestamped in the backup dir)
}

// BackupResult contains the outcome of a backup operation.
type BackupResult struct {
	Path     string        `json:"path"`
	Size     int64         `json:"size"`
	Counts   EntityCounts  `json:"counts"`
	Duration time.Duration `json:"duration"`
	Checksum string        `json:"checksum"`
}

// BackupInfo describes an existing backup.
type BackupInfo struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidationResult describes backup validity.
type ValidationResult struct {
	Valid    bool         `json:"valid"`
	Manifest *Manifest    `json:"manifest,omitempty"`
	Actual   EntityCounts `json:"actual"`
	Errors   []string     `json:"errors,omitempty"`
}

// TagImportResult reports what a tag import changed.
type TagImportResult struct {
	CategoriesCreated int           `json:"categories_created"`
	Created           int           `json:"created"`
	Updated           int           `json:"updated"`
	Merged            int           `json:"merged"`
	AliasesAdded      int           `json:"aliases_added"`
	Unchanged         int           `json:"unchanged"`
	Conflicts         []TagConflict `json:"conflicts,omitempty"`
	Errors            []string      `json:"errors,omitempty"`
}

// TagConflict is an imported tag whose aliases already belong to several local tags.
type TagConflict struct {
	Aliases []string `json:"aliases"`
	Owners  []string `json:"owners"`
}
