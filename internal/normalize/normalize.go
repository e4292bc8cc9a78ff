// Package normalize provides the text normalization used for alias names, sort keys and suggestions.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Name cleans a user or remote supplied entity name: NUL bytes dropped, surrounding
// whitespace trimmed and inner whitespace runs collapsed to one space.
func Name(raw string) string {
	return strings.Join(strings.Fields(sanitizeString(raw)), " ")
}

// FoldKey returns the case-folded form of s used to compare names case-insensitively.
func FoldKey(s string) string {
	return cases.Fold().String(Name(s))
}

// OrderTitle derives the sort key for a title: diacritics removed, case folded.
// "Élite Beat Agents" -> "elite beat agents".
func OrderTitle(title string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, Name(title))
	if err != nil {
		stripped = Name(title)
	}
	return cases.Fold().String(stripped)
}

// SplitList splits a legacy joined name list on sep, normalizing each part and
// dropping empty parts and case-insensitive duplicates. Order of first appearance is kept.
func SplitList(raw, sep string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, part := range strings.Split(raw, sep) {
		name := Name(part)
		if name == "" {
			continue
		}
		key := FoldKey(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, name)
	}
	return out
}

// DistinctFolded collapses values that differ only by case, keeping the first spelling
// seen. Empty values are dropped when excludeEmpty is set.
func DistinctFolded(values []string, excludeEmpty bool) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if excludeEmpty && strings.TrimSpace(v) == "" {
			continue
		}
		key := cases.Fold().String(v)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}

// sanitizeString removes null bytes, which some metadata dumps carry as terminators.
func sanitizeString(s string) string {
	return strings.Map(func(r rune) rune {
		if r == 0 {
			return -1
		}
		return r
	}, s)
}
