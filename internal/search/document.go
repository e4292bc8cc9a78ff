// Package search provides full-text search over the game catalog using Bleve.
// The SQL filter engine answers structured browse queries; this index answers free-text
// queries with fuzzy matching, relevance ranking and facets.
package search

import (
	"strconv"

	"github.com/playlore/playlore-server/internal/domain"
)

// GameDocument is the indexed form of a game.
//
// Tags and platforms are denormalized primary names so a single query can match and
// facet on them without touching the database.
type GameDocument struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	AlternateTitles string   `json:"alternate_titles,omitempty"`
	Series          string   `json:"series,omitempty"`
	Developer       string   `json:"developer,omitempty"`
	Publisher       string   `json:"publisher,omitempty"`
	Description     string   `json:"description,omitempty"`
	Library         string   `json:"library"`
	Tags            []string `json:"tags,omitempty"`
	Platforms       []string `json:"platforms,omitempty"`
	Extreme         bool     `json:"extreme"`
	ReleaseYear     int      `json:"release_year,omitempty"`

	DateAdded    int64 `json:"date_added"`    // Unix millis
	DateModified int64 `json:"date_modified"` // Unix millis
}

// ToMap converts the document to a map keyed by the index mapping's field names.
// Bleve would otherwise use Go field names.
func (d *GameDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":            d.ID,
		"title":         d.Title,
		"library":       d.Library,
		"extreme":       d.Extreme,
		"date_added":    d.DateAdded,
		"date_modified": d.DateModified,
	}

	if d.AlternateTitles != "" {
		m["alternate_titles"] = d.AlternateTitles
	}
	if d.Series != "" {
		m["series"] = d.Series
	}
	if d.Developer != "" {
		m["developer"] = d.Developer
	}
	if d.Publisher != "" {
		m["publisher"] = d.Publisher
	}
	if d.Description != "" {
		m["description"] = d.Description
	}
	if len(d.Tags) > 0 {
		m["tags"] = d.Tags
	}
	if len(d.Platforms) > 0 {
		m["platforms"] = d.Platforms
	}
	if d.ReleaseYear > 0 {
		m["release_year"] = d.ReleaseYear
	}

	return m
}

// GameToDocument converts a game to its index document. Relation names come from the
// loaded Tags/Platforms lists, falling back to the denormalized caches.
func GameToDocument(g *domain.Game) *GameDocument {
	doc := &GameDocument{
		ID:              g.ID,
		Title:           g.Title,
		AlternateTitles: g.AlternateTitles,
		Series:          g.Series,
		Developer:       g.Developer,
		Publisher:       g.Publisher,
		Description:     g.OriginalDescription,
		Library:         g.Library,
		Tags:            namesOf(g.Tags, g.TagsStr),
		Platforms:       namesOf(g.Platforms, g.PlatformsStr),
		Extreme:         g.Extreme,
		ReleaseYear:     releaseYear(g.ReleaseDate),
		DateAdded:       g.DateAdded.UnixMilli(),
		DateModified:    g.DateModified.UnixMilli(),
	}
	return doc
}

func namesOf(list []string, joined string) []string {
	if len(list) > 0 {
		return list
	}
	return domain.SplitCache(joined)
}

// releaseYear extracts the leading year of a YYYY[-MM[-DD]] release date.
func releaseYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}
