package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/playlore/playlore-server/internal/domain"
	domainerrors "github.com/playlore/playlore-server/internal/errors"
	"github.com/playlore/playlore-server/internal/normalize"
)

// TagsDocument is the portable tag vocabulary: categories plus tags with their aliases.
type TagsDocument struct {
	Categories []CategoryRecord `json:"categories,omitempty"`
	Tags       []TagRecord      `json:"tags"`
}

// CategoryRecord is one exported category.
type CategoryRecord struct {
	Name        string `json:"name"`
	Color       string `json:"color,omitempty"`
	Description string `json:"description,omitempty"`
}

// TagRecord is one exported tag. The first alias is the primary alias.
type TagRecord struct {
	Aliases     []string `json:"aliases"`
	Category    string   `json:"category,omitempty"`
	Description string   `json:"description,omitempty"`
}

// ExportTags writes every category and tag to w as an indented JSON document.
func (s *BackupService) ExportTags(ctx context.Context, w io.Writer) (*TagsDocument, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	tags, err := s.store.ListTags(ctx)
	if err != nil {
		return nil, err
	}

	doc := &TagsDocument{
		Categories: make([]CategoryRecord, len(categories)),
		Tags:       make([]TagRecord, len(tags)),
	}
	for i, c := range categories {
		doc.Categories[i] = CategoryRecord{Name: c.Name, Color: c.Color, Description: c.Description}
	}
	for i, t := range tags {
		aliases := []string{t.PrimaryAlias}
		for _, a := range t.Aliases {
			if a.ID != t.PrimaryAliasID {
				aliases = append(aliases, a.Name)
			}
		}
		doc.Tags[i] = TagRecord{Aliases: aliases, Category: t.Category, Description: t.Description}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}

	s.logger.Info("tags exported", "categories", len(doc.Categories), "tags", len(doc.Tags))
	return doc, nil
}

// ImportTags reads a tags document and folds it into the catalog.
//
// Unknown tags are created. A tag whose aliases all resolve to one local tag gains the
// missing aliases, and an empty description or category is filled in. When the aliases
// resolve to several local tags the record is reported as a conflict, unless merge is
// set, in which case those tags are merged into the owner of the first alias. A record
// that fails is reported and the import continues with the next one.
func (s *BackupService) ImportTags(ctx context.Context, r io.Reader, merge bool) (*TagImportResult, error) {
	var doc TagsDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, domainerrors.Validation("invalid tags document").WithCause(err)
	}
	return s.ImportTagsDocument(ctx, &doc, merge)
}

// ImportTagsDocument folds an already decoded tags document into the catalog, with the
// same rules as ImportTags.
func (s *BackupService) ImportTagsDocument(ctx context.Context, doc *TagsDocument, merge bool) (*TagImportResult, error) {
	result := &TagImportResult{}
	for _, c := range doc.Categories {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		created, err := s.importCategory(ctx, c)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("category %q: %v", c.Name, err))
			continue
		}
		if created {
			result.CategoriesCreated++
		}
	}

	for _, rec := range doc.Tags {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		rec.Aliases = cleanAliases(rec.Aliases)
		if len(rec.Aliases) == 0 {
			continue
		}
		if err := s.importTag(ctx, rec, merge, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("tag %q: %v", rec.Aliases[0], err))
		}
	}

	s.logger.Info("tags imported",
		"created", result.Created,
		"updated", result.Updated,
		"merged", result.Merged,
		"conflicts", len(result.Conflicts),
		"errors", len(result.Errors))
	return result, nil
}

func (s *BackupService) importCategory(ctx context.Context, c CategoryRecord) (bool, error) {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return false, nil
	}
	_, err := s.store.GetCategoryByName(ctx, name)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, domainerrors.ErrNotFound) {
		return false, err
	}

	color := c.Color
	if color == "" {
		color = domain.DefaultCategoryColor
	}
	err = s.store.CreateCategory(ctx, &domain.TagCategory{Name: name, Color: color, Description: c.Description})
	return err == nil, err
}

func (s *BackupService) importTag(ctx context.Context, rec TagRecord, merge bool, result *TagImportResult) error {
	var (
		owners  []*domain.Tag
		missing []string
	)
	for _, name := range rec.Aliases {
		t, err := s.store.ResolveTag(ctx, name)
		switch {
		case err == nil:
			if !containsTag(owners, t.ID) {
				owners = append(owners, t)
			}
		case errors.Is(err, domainerrors.ErrNotFound):
			missing = append(missing, name)
		default:
			return err
		}
	}

	if len(owners) == 0 {
		t, err := s.store.CreateTag(ctx, rec.Aliases[0], rec.Category)
		if err != nil {
			return err
		}
		for _, name := range rec.Aliases[1:] {
			if _, err := s.store.AddTagAlias(ctx, t.ID, name); err != nil {
				return err
			}
		}
		if rec.Description != "" {
			if _, err := s.store.UpdateTag(ctx, t.ID, rec.Description, t.Category); err != nil {
				return err
			}
		}
		result.Created++
		return nil
	}

	target := owners[0]
	changed := false
	if len(owners) > 1 {
		if !merge {
			conflict := TagConflict{Aliases: rec.Aliases}
			for _, o := range owners {
				conflict.Owners = append(conflict.Owners, o.PrimaryAlias)
			}
			result.Conflicts = append(result.Conflicts, conflict)
			return nil
		}
		for _, o := range owners[1:] {
			merged, err := s.store.MergeTags(ctx, o.ID, target.ID)
			if err != nil {
				return err
			}
			target = merged
			result.Merged++
		}
		changed = true
	}

	for _, name := range missing {
		if _, err := s.store.AddTagAlias(ctx, target.ID, name); err != nil {
			return err
		}
		result.AliasesAdded++
		changed = true
	}

	if (target.Description == "" && rec.Description != "") || (target.Category == "" && rec.Category != "") {
		description, category := target.Description, target.Category
		if description == "" {
			description = rec.Description
		}
		if category == "" {
			category = rec.Category
		}
		if _, err := s.store.UpdateTag(ctx, target.ID, description, category); err != nil {
			return err
		}
		changed = true
	}

	if changed {
		result.Updated++
	} else {
		result.Unchanged++
	}
	return nil
}

// cleanAliases trims names and drops empty and case-insensitive duplicate aliases,
// keeping the first spelling.
func cleanAliases(aliases []string) []string {
	seen := make(map[string]bool, len(aliases))
	out := make([]string, 0, len(aliases))
	for _, a := range aliases {
		a = normalize.Name(a)
		key := normalize.FoldKey(a)
		if a == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
	return out
}

func containsTag(tags []*domain.Tag, id int64) bool {
	for _, t := range tags {
		if t.ID == id {
			return true
		}
	}
	return false
}
