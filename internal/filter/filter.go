// Package filter defines the catalog filter language and compiles it to parameterized SQL.
//
// Compilation is pure: the same Filter and Order always produce the same SQL, arguments
// and cache key, and nothing outside the inputs influences the result.
package filter

import (
	"slices"

	"github.com/playlore/playlore-server/internal/domain"
)

// Field names a filterable game attribute.
type Field string

// Filterable fields.
const (
	FieldTitle     Field = "title"
	FieldDeveloper Field = "developer"
	FieldPublisher Field = "publisher"
	FieldSeries    Field = "series"
	FieldNotes     Field = "notes"
	FieldLibrary   Field = "library"
	FieldStatus    Field = "status"
	FieldPlayMode  Field = "playMode"
	FieldLanguage  Field = "language"
	FieldSource    Field = "source"
	FieldVersion   Field = "version"
	FieldTags      Field = "tags"
	FieldPlatforms Field = "platforms"
	FieldBroken    Field = "broken"
	FieldExtreme   Field = "extreme"
	FieldInstalled Field = "installed"
)

// Op is a predicate operator.
type Op string

// Operators.
const (
	// OpEquals is case-insensitive equality.
	OpEquals Op = "equals"
	// OpContains is case-insensitive substring match.
	OpContains Op = "contains"
	// OpHas is set membership: any alias of an attached tag or platform equals the value.
	OpHas Op = "has"
)

// Predicate is one (field, operator, value) test.
type Predicate struct {
	Field Field  `json:"field"`
	Op    Op     `json:"op"`
	Value string `json:"value"`
}

// Filter selects games. Whitelist predicates must all match; blacklist predicates must
// all fail. TagGroup, when set, additionally requires membership in the group.
// Enabled ExcludedTagGroups hide their members.
type Filter struct {
	Whitelist         []Predicate             `json:"whitelist,omitempty"`
	Blacklist         []Predicate             `json:"blacklist,omitempty"`
	TagGroup          *domain.TagFilterGroup  `json:"tag_group,omitempty"`
	ExcludedTagGroups []domain.TagFilterGroup `json:"excluded_tag_groups,omitempty"`
	HideExtreme       bool                    `json:"hide_extreme,omitempty"`
	PlaylistID        string                  `json:"playlist_id,omitempty"`
}

// InPlaylist reports whether the filter is evaluated in a playlist view.
func (f Filter) InPlaylist() bool {
	return f.PlaylistID != ""
}

// AdjustForPlaylist returns a copy of f with every library predicate removed from both
// lists. Playlists span libraries, so a library scope carried over from a browse view
// must not hide playlist entries. Non-playlist filters are returned unchanged.
func AdjustForPlaylist(f Filter) Filter {
	if !f.InPlaylist() {
		return f
	}
	out := f
	out.Whitelist = withoutField(f.Whitelist, FieldLibrary)
	out.Blacklist = withoutField(f.Blacklist, FieldLibrary)
	return out
}

func withoutField(preds []Predicate, field Field) []Predicate {
	if preds == nil {
		return nil
	}
	return slices.DeleteFunc(slices.Clone(preds), func(p Predicate) bool {
		return p.Field == field
	})
}

// Exclusions builds the filter used by random sampling.
func Exclusions(includeBroken bool, excludedLibraries, excludedTagNames []string) Filter {
	var f Filter
	if !includeBroken {
		f.Whitelist = append(f.Whitelist, Predicate{Field: FieldBroken, Op: OpEquals, Value: "false"})
	}
	for _, lib := range excludedLibraries {
		f.Blacklist = append(f.Blacklist, Predicate{Field: FieldLibrary, Op: OpEquals, Value: lib})
	}
	for _, name := range excludedTagNames {
		f.Blacklist = append(f.Blacklist, Predicate{Field: FieldTags, Op: OpHas, Value: name})
	}
	return f
}
