package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Sort options.
const (
	SortRelevance = "relevance"
	SortTitle     = "title"
	SortRecent    = "recent"
	SortReleased  = "released"
)

// SearchParams configures a search query.
type SearchParams struct {
	Query string

	// Filters. Values within a list are ORed; lists are ANDed.
	Libraries   []string
	Tags        []string
	Platforms   []string
	HideExtreme bool
	MinYear     int
	MaxYear     int

	Limit  int
	Offset int

	SortBy    string // relevance, title, recent, released
	SortOrder string // asc, desc

	IncludeFacets bool
	Highlight     bool
}

// DefaultSearchParams returns sensible defaults.
func DefaultSearchParams() SearchParams {
	return SearchParams{
		Limit:         20,
		SortBy:        SortRelevance,
		SortOrder:     "desc",
		IncludeFacets: true,
		Highlight:     true,
	}
}

// SearchResult is one page of search hits.
type SearchResult struct {
	Query  string       `json:"query"`
	Total  uint64       `json:"total"`
	TookMs int64        `json:"took_ms"`
	Hits   []SearchHit  `json:"hits"`
	Facets SearchFacets `json:"facets,omitzero"`
}

// SearchHit is a single matching game.
type SearchHit struct {
	ID         string            `json:"id"`
	Score      float64           `json:"score"`
	Title      string            `json:"title"`
	Developer  string            `json:"developer,omitempty"`
	Library    string            `json:"library"`
	Platforms  []string          `json:"platforms,omitempty"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// SearchFacets holds facet counts over the whole result set.
type SearchFacets struct {
	Libraries []FacetCount `json:"libraries,omitempty"`
	Tags      []FacetCount `json:"tags,omitempty"`
	Platforms []FacetCount `json:"platforms,omitempty"`
}

// FacetCount is a facet value and its count.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// facetFields maps facet names to index fields.
var facetFields = []string{"library", "tags", "platforms"}

// Search executes a search query.
func (s *SearchIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if params.Limit <= 0 {
		params.Limit = DefaultSearchParams().Limit
	}

	req := bleve.NewSearchRequestOptions(buildSearchQuery(params), params.Limit, params.Offset, false)
	addSorting(req, params)

	if params.IncludeFacets {
		for _, field := range facetFields {
			req.AddFacet(field, bleve.NewFacetRequest(field, 20))
		}
	}
	if params.Highlight {
		req.Highlight = bleve.NewHighlight()
		req.Highlight.AddField("title")
		req.Highlight.AddField("alternate_titles")
		req.Highlight.AddField("series")
	}
	req.Fields = []string{"title", "developer", "library", "platforms"}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		Query:  params.Query,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]SearchHit, 0, len(res.Hits)),
	}
	for _, hit := range res.Hits {
		h := SearchHit{ID: hit.ID, Score: hit.Score}
		h.Title, _ = hit.Fields["title"].(string)
		h.Developer, _ = hit.Fields["developer"].(string)
		h.Library, _ = hit.Fields["library"].(string)
		h.Platforms = stringList(hit.Fields["platforms"])

		if len(hit.Fragments) > 0 {
			h.Highlights = make(map[string]string, len(hit.Fragments))
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					h.Highlights[field] = fragments[0]
				}
			}
		}
		result.Hits = append(result.Hits, h)
	}

	if params.IncludeFacets {
		result.Facets = extractFacets(res)
	}
	return result, nil
}

// stringList normalizes a stored multi-value field, which Bleve returns as a string
// for one value and []any for several.
func stringList(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// buildSearchQuery constructs the Bleve query from params.
func buildSearchQuery(params SearchParams) query.Query {
	var queries []query.Query

	if q := strings.TrimSpace(params.Query); q != "" {
		match := func(field string, boost float64) query.Query {
			mq := bleve.NewMatchQuery(q)
			mq.SetField(field)
			mq.SetBoost(boost)
			return mq
		}
		text := []query.Query{
			match("title", 3.0),
			match("alternate_titles", 2.0),
			match("series", 1.5),
			match("developer", 1.0),
			match("publisher", 0.8),
			match("description", 0.3),
		}

		fuzzy := bleve.NewFuzzyQuery(q)
		fuzzy.SetFuzziness(1)
		fuzzy.SetField("title")
		fuzzy.SetBoost(0.8)
		text = append(text, fuzzy)

		// Prefix for type-ahead (minimum 2 chars).
		if len(q) >= 2 {
			prefix := bleve.NewPrefixQuery(strings.ToLower(q))
			prefix.SetField("title")
			prefix.SetBoost(0.5)
			text = append(text, prefix)
		}

		queries = append(queries, bleve.NewDisjunctionQuery(text...))
	}

	for _, f := range []struct {
		field  string
		values []string
	}{
		{"library", params.Libraries},
		{"tags", params.Tags},
		{"platforms", params.Platforms},
	} {
		if len(f.values) == 0 {
			continue
		}
		terms := make([]query.Query, len(f.values))
		for i, v := range f.values {
			tq := bleve.NewTermQuery(v)
			tq.SetField(f.field)
			terms[i] = tq
		}
		queries = append(queries, bleve.NewDisjunctionQuery(terms...))
	}

	if params.HideExtreme {
		bq := bleve.NewBoolFieldQuery(false)
		bq.SetField("extreme")
		queries = append(queries, bq)
	}

	if params.MinYear > 0 || params.MaxYear > 0 {
		lo := float64(params.MinYear)
		hi := float64(9999)
		if params.MaxYear > 0 {
			hi = float64(params.MaxYear)
		}
		inclusive := true
		rq := bleve.NewNumericRangeInclusiveQuery(&lo, &hi, &inclusive, &inclusive)
		rq.SetField("release_year")
		queries = append(queries, rq)
	}

	switch len(queries) {
	case 0:
		return bleve.NewMatchAllQuery()
	case 1:
		return queries[0]
	default:
		return bleve.NewConjunctionQuery(queries...)
	}
}

// addSorting configures sort order. Relevance ignores SortOrder.
func addSorting(req *bleve.SearchRequest, params SearchParams) {
	desc := params.SortOrder == "desc"
	field := func(name string) string {
		if desc {
			return "-" + name
		}
		return name
	}

	switch params.SortBy {
	case SortTitle:
		req.SortBy([]string{field("title"), "_id"})
	case SortRecent:
		req.SortBy([]string{field("date_added"), "_id"})
	case SortReleased:
		req.SortBy([]string{field("release_year"), "_id"})
	default:
		req.SortBy([]string{"-_score", "_id"})
	}
}

func extractFacets(res *bleve.SearchResult) SearchFacets {
	counts := func(name string) []FacetCount {
		fr, ok := res.Facets[name]
		if !ok || fr.Terms == nil {
			return nil
		}
		var out []FacetCount
		for _, term := range fr.Terms.Terms() {
			out = append(out, FacetCount{Value: term.Term, Count: term.Count})
		}
		return out
	}
	return SearchFacets{
		Libraries: counts("library"),
		Tags:      counts("tags"),
		Platforms: counts("platforms"),
	}
}
