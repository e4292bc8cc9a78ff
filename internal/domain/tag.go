package domain

import "time"

// Alias is one name bound to exactly one tag or platform.
type Alias struct {
	ID       int64  `json:"id"`
	EntityID int64  `json:"entity_id"`
	Name     string `json:"name"`
}

// Tag is a named descriptor attached to games.
// PrimaryAliasID always references one of Aliases.
type Tag struct {
	ID              int64     `json:"id"`
	CategoryID      *int64    `json:"category_id,omitempty"`
	Category        string    `json:"category,omitempty"`
	Description     string    `json:"description"`
	PrimaryAliasID  int64     `json:"primary_alias_id"`
	PrimaryAlias    string    `json:"primary_alias"`
	Aliases         []Alias   `json:"aliases"`
	DateModified    time.Time `json:"date_modified"`
	DeletedUpstream bool      `json:"deleted_upstream"`
	GameCount       int       `json:"game_count"`
}

// Platform is a named runtime attached to games. Platform aliases are a separate
// namespace from tag aliases.
type Platform struct {
	ID              int64     `json:"id"`
	Description     string    `json:"description"`
	PrimaryAliasID  int64     `json:"primary_alias_id"`
	PrimaryAlias    string    `json:"primary_alias"`
	Aliases         []Alias   `json:"aliases"`
	DateModified    time.Time `json:"date_modified"`
	DeletedUpstream bool      `json:"deleted_upstream"`
	GameCount       int       `json:"game_count"`
}

// AliasNames returns the names of every alias.
func (t *Tag) AliasNames() []string {
	return aliasNames(t.Aliases)
}

// HasAlias reports whether aliasID belongs to the tag.
func (t *Tag) HasAlias(aliasID int64) bool {
	return hasAlias(t.Aliases, aliasID)
}

// AliasNames returns the names of every alias.
func (p *Platform) AliasNames() []string {
	return aliasNames(p.Aliases)
}

// HasAlias reports whether aliasID belongs to the platform.
func (p *Platform) HasAlias(aliasID int64) bool {
	return hasAlias(p.Aliases, aliasID)
}

func aliasNames(aliases []Alias) []string {
	names := make([]string, len(aliases))
	for i, a := range aliases {
		names[i] = a.Name
	}
	return names
}

func hasAlias(aliases []Alias, aliasID int64) bool {
	for _, a := range aliases {
		if a.ID == aliasID {
			return true
		}
	}
	return false
}

// TagCategory groups tags for display.
type TagCategory struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	Description string `json:"description,omitempty"`
}

// DefaultCategoryColor is used for categories created implicitly.
const DefaultCategoryColor = "#FFFFFF"

// TagFilterGroup is a named set of tags (and whole categories) used as a single filter unit.
type TagFilterGroup struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Enabled     bool     `json:"enabled" yaml:"enabled"`
	Extreme     bool     `json:"extreme" yaml:"extreme"`
	Tags        []string `json:"tags" yaml:"tags"`
	Categories  []string `json:"categories,omitempty" yaml:"categories,omitempty"`
}
