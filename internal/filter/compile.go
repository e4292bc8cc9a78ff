package filter

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/playlore/playlore-server/internal/domain"
	domainerrors "github.com/playlore/playlore-server/internal/errors"
)

// Compiled is a filter and ordering lowered to SQL over the games table aliased as g.
// Every value is a bound parameter.
type Compiled struct {
	Where       string
	Args        []any
	OrderColumn string
	Desc        bool
	Key         string
}

// OrderBy returns the ORDER BY expression with the id tie-break.
func (c *Compiled) OrderBy() string {
	dir := "ASC"
	if c.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf("%s %s, g.id %s", c.OrderColumn, dir, dir)
}

// Seek returns the condition selecting records at or after a keyset boundary.
func (c *Compiled) Seek(orderValue, id string) (string, []any) {
	cmp, idCmp := ">", ">="
	if c.Desc {
		cmp, idCmp = "<", "<="
	}
	cond := fmt.Sprintf("(%[1]s %[2]s ? OR (%[1]s = ? AND g.id %[3]s ?))", c.OrderColumn, cmp, idCmp)
	return cond, []any{orderValue, orderValue, id}
}

type fieldKind int

const (
	kindExact fieldKind = iota
	kindText
	kindSet
	kindBool
)

type fieldSpec struct {
	kind    fieldKind
	columns []string
}

var fields = map[Field]fieldSpec{
	FieldTitle:     {kindText, []string{"g.title", "g.alternate_titles"}},
	FieldDeveloper: {kindText, []string{"g.developer"}},
	FieldPublisher: {kindText, []string{"g.publisher"}},
	FieldSeries:    {kindText, []string{"g.series"}},
	FieldNotes:     {kindText, []string{"g.notes"}},
	FieldLibrary:   {kindExact, []string{"g.library"}},
	FieldStatus:    {kindExact, []string{"g.status"}},
	FieldPlayMode:  {kindExact, []string{"g.play_mode"}},
	FieldLanguage:  {kindExact, []string{"g.language"}},
	FieldSource:    {kindExact, []string{"g.source"}},
	FieldVersion:   {kindExact, []string{"g.version"}},
	FieldTags:      {kindSet, []string{"g.tags_str"}},
	FieldPlatforms: {kindSet, []string{"g.platforms_str"}},
	FieldBroken:    {kindBool, []string{"g.broken"}},
	FieldExtreme:   {kindBool, []string{"g.extreme"}},
	FieldInstalled: {kindBool, []string{"g.active_data_on_disk"}},
}

// Membership subqueries. The alias name column is NOCASE so = and IN fold case.
const (
	tagHasSQL = `EXISTS (SELECT 1 FROM game_tag gt JOIN tag_alias ta ON ta.tag_id = gt.tag_id
		WHERE gt.game_id = g.id AND ta.name = ?)`
	platformHasSQL = `EXISTS (SELECT 1 FROM game_platform gp JOIN platform_alias pa ON pa.platform_id = gp.platform_id
		WHERE gp.game_id = g.id AND pa.name = ?)`
	tagInSQL = `EXISTS (SELECT 1 FROM game_tag gt JOIN tag_alias ta ON ta.tag_id = gt.tag_id
		WHERE gt.game_id = g.id AND ta.name IN (%s))`
	categoryInSQL = `EXISTS (SELECT 1 FROM game_tag gt JOIN tag t ON t.id = gt.tag_id
		JOIN tag_category c ON c.id = t.category_id WHERE gt.game_id = g.id AND c.name IN (%s))`
	playlistSQL = `g.id IN (SELECT game_id FROM playlist_game WHERE playlist_id = ?)`
)

// Compile validates f and o and lowers them to SQL. Playlist filters are adjusted with
// AdjustForPlaylist first.
func Compile(f Filter, o Order) (*Compiled, error) {
	order, err := o.normalized()
	if err != nil {
		return nil, err
	}
	f = AdjustForPlaylist(f)

	var (
		conds []string
		args  []any
	)
	add := func(cond string, a ...any) {
		conds = append(conds, cond)
		args = append(args, a...)
	}

	for _, p := range f.Whitelist {
		cond, a, err := compilePredicate(p)
		if err != nil {
			return nil, err
		}
		add(cond, a...)
	}
	for _, p := range f.Blacklist {
		cond, a, err := compilePredicate(p)
		if err != nil {
			return nil, err
		}
		add("NOT "+cond, a...)
	}

	if f.HideExtreme {
		add("g.extreme = 0")
	}

	if f.TagGroup != nil {
		if f.TagGroup.Extreme && f.HideExtreme {
			// An extreme group contributes nothing unless extreme content is permitted.
			add("0")
		} else {
			cond, a := compileGroup(*f.TagGroup)
			add(cond, a...)
		}
	}
	for _, g := range f.ExcludedTagGroups {
		if !g.Enabled {
			continue
		}
		cond, a := compileGroup(g)
		add("NOT "+cond, a...)
	}

	if f.InPlaylist() {
		add(playlistSQL, f.PlaylistID)
	}

	where := "1 = 1"
	if len(conds) > 0 {
		where = strings.Join(conds, " AND ")
	}

	key, err := cacheKey(f, order)
	if err != nil {
		return nil, err
	}

	return &Compiled{
		Where:       where,
		Args:        args,
		OrderColumn: orderColumns[order.Field],
		Desc:        order.Direction == Desc,
		Key:         key,
	}, nil
}

func compilePredicate(p Predicate) (string, []any, error) {
	def, ok := fields[p.Field]
	if !ok {
		return "", nil, domainerrors.Validationf("unknown filter field %q", p.Field)
	}

	switch def.kind {
	case kindExact:
		if p.Op != OpEquals {
			return "", nil, unsupportedOp(p)
		}
		return def.columns[0] + " = ?", []any{p.Value}, nil

	case kindText:
		switch p.Op {
		case OpEquals:
			return def.columns[0] + " = ?", []any{p.Value}, nil
		case OpContains:
			return likeAny(def.columns, p.Value)
		}
		return "", nil, unsupportedOp(p)

	case kindSet:
		switch p.Op {
		case OpHas:
			if p.Field == FieldTags {
				return tagHasSQL, []any{p.Value}, nil
			}
			return platformHasSQL, []any{p.Value}, nil
		case OpContains:
			return likeAny(def.columns, p.Value)
		}
		return "", nil, unsupportedOp(p)

	case kindBool:
		if p.Op != OpEquals {
			return "", nil, unsupportedOp(p)
		}
		b, err := strconv.ParseBool(p.Value)
		if err != nil {
			return "", nil, domainerrors.Validationf("field %q expects a boolean, got %q", p.Field, p.Value)
		}
		v := 0
		if b {
			v = 1
		}
		return def.columns[0] + " = ?", []any{v}, nil
	}

	return "", nil, domainerrors.Validationf("unknown filter field %q", p.Field)
}

func unsupportedOp(p Predicate) error {
	return domainerrors.Validationf("operator %q is not supported on field %q", p.Op, p.Field)
}

// likeAny matches value as a substring of any of the columns.
func likeAny(columns []string, value string) (string, []any, error) {
	pattern := "%" + escapeLike(value) + "%"
	parts := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, col := range columns {
		parts[i] = col + ` LIKE ? ESCAPE '\'`
		args[i] = pattern
	}
	if len(parts) == 1 {
		return parts[0], args, nil
	}
	return "(" + strings.Join(parts, " OR ") + ")", args, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// compileGroup expands a tag group to membership in any of its tags or categories.
// A group naming nothing matches nothing.
func compileGroup(g domain.TagFilterGroup) (string, []any) {
	var (
		parts []string
		args  []any
	)
	if len(g.Tags) > 0 {
		parts = append(parts, fmt.Sprintf(tagInSQL, placeholders(len(g.Tags))))
		for _, t := range g.Tags {
			args = append(args, t)
		}
	}
	if len(g.Categories) > 0 {
		parts = append(parts, fmt.Sprintf(categoryInSQL, placeholders(len(g.Categories))))
		for _, c := range g.Categories {
			args = append(args, c)
		}
	}
	if len(parts) == 0 {
		return "0", nil
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// cacheKey encodes the adjusted filter and ordering canonically.
func cacheKey(f Filter, o Order) (string, error) {
	raw, err := json.Marshal(struct {
		F Filter `json:"f"`
		O Order  `json:"o"`
	}{f, o})
	if err != nil {
		return "", fmt.Errorf("encode filter key: %w", err)
	}
	return string(raw), nil
}
