package domain

import "time"

// RemoteIdentity is a tag or platform as published by a metadata source.
// Name is the remote primary name; Aliases may repeat it.
type RemoteIdentity struct {
	Name         string    `json:"name"`
	Aliases      []string  `json:"aliases"`
	Description  string    `json:"description"`
	Category     string    `json:"category,omitempty"`
	DateModified time.Time `json:"date_modified"`
}

// AllNames returns Name followed by every alias, in order.
func (r *RemoteIdentity) AllNames() []string {
	names := make([]string, 0, len(r.Aliases)+1)
	names = append(names, r.Name)
	return append(names, r.Aliases...)
}

// RemoteCategory is a tag category as published by a metadata source.
type RemoteCategory struct {
	Name        string `json:"name"`
	Color       string `json:"color"`
	Description string `json:"description,omitempty"`
}

// IdentityChanges is one phase's worth of remote tag or platform changes.
// Deletions name entities removed upstream.
type IdentityChanges struct {
	Categories []RemoteCategory `json:"categories,omitempty"`
	Records    []RemoteIdentity `json:"records"`
	Deletions  []string         `json:"deletions,omitempty"`
}

// LatestModification returns the newest DateModified among the records, or zero.
func (c *IdentityChanges) LatestModification() time.Time {
	var latest time.Time
	for _, r := range c.Records {
		if r.DateModified.After(latest) {
			latest = r.DateModified
		}
	}
	return latest
}

// GameBatch is one page of remote game changes. Games carry their remote id, additional
// apps and game data; Deletions are game ids removed upstream.
type GameBatch struct {
	Games      []*Game  `json:"games"`
	Deletions  []string `json:"deletions,omitempty"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

// LatestModification returns the newest DateModified among the games, or zero.
func (b *GameBatch) LatestModification() time.Time {
	var latest time.Time
	for _, g := range b.Games {
		if g.DateModified.After(latest) {
			latest = g.DateModified
		}
	}
	return latest
}

// ApplyStats counts what applying remote changes did to the local catalog.
type ApplyStats struct {
	Created        int `json:"created"`
	Updated        int `json:"updated"`
	Deleted        int `json:"deleted"`
	Flagged        int `json:"flagged"`
	SkippedAliases int `json:"skipped_aliases"`
}

// Add accumulates o into s.
func (s *ApplyStats) Add(o ApplyStats) {
	s.Created += o.Created
	s.Updated += o.Updated
	s.Deleted += o.Deleted
	s.Flagged += o.Flagged
	s.SkippedAliases += o.SkippedAliases
}
