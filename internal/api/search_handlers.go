package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/playlore/playlore-server/internal/errors"
	"github.com/playlore/playlore-server/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "search",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search games",
		Description: "Full-text search over titles, developers, publishers, series, tags and notes",
		Tags:        []string{"Search"},
	}, s.handleSearch)

	huma.Register(s.api, huma.Operation{
		OperationID: "reindexSearch",
		Method:      http.MethodPost,
		Path:        "/api/v1/search/reindex",
		Summary:     "Rebuild search index",
		Description: "Drops the search index and indexes every game again",
		Tags:        []string{"Search"},
	}, s.handleReindex)
}

// SearchInput contains search query parameters.
type SearchInput struct {
	Query       string   `query:"q" doc:"Search query"`
	Libraries   []string `query:"library" doc:"Restrict to libraries"`
	Tags        []string `query:"tag" doc:"Restrict to tags"`
	Platforms   []string `query:"platform" doc:"Restrict to platforms"`
	HideExtreme bool     `query:"hide_extreme" doc:"Leave out extreme games"`
	MinYear     int      `query:"min_year" minimum:"0" doc:"Earliest release year"`
	MaxYear     int      `query:"max_year" minimum:"0" doc:"Latest release year"`
	Limit       int      `query:"limit" minimum:"0" maximum:"100" doc:"Results per page (default 20)"`
	Offset      int      `query:"offset" minimum:"0" doc:"Results to skip"`
	Sort        string   `query:"sort" enum:"relevance,title,recent,released" doc:"Sort field"`
	Order       string   `query:"order" enum:"asc,desc" doc:"Sort direction"`
	NoFacets    bool     `query:"no_facets" doc:"Skip facet counts"`
}

// SearchOutput wraps search results for Huma.
type SearchOutput struct {
	Body *search.SearchResult
}

// ReindexOutput wraps the reindex count for Huma.
type ReindexOutput struct {
	Body struct {
		Indexed int `json:"indexed" doc:"Games indexed"`
	}
}

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	if s.services.Search == nil {
		return nil, s.handlerError("search", domainerrors.NotFound("search is not enabled"))
	}

	params := search.DefaultSearchParams()
	params.Query = input.Query
	params.Libraries = input.Libraries
	params.Tags = input.Tags
	params.Platforms = input.Platforms
	params.HideExtreme = input.HideExtreme
	params.MinYear = input.MinYear
	params.MaxYear = input.MaxYear
	params.Offset = input.Offset
	params.IncludeFacets = !input.NoFacets
	if input.Limit > 0 {
		params.Limit = input.Limit
	}
	if input.Sort != "" {
		params.SortBy = input.Sort
	}
	if input.Order != "" {
		params.SortOrder = input.Order
	}

	res, err := s.services.Search.Search(ctx, params)
	if err != nil {
		return nil, s.handlerError("search", err)
	}
	return &SearchOutput{Body: res}, nil
}

func (s *Server) handleReindex(ctx context.Context, _ *struct{}) (*ReindexOutput, error) {
	if s.services.Search == nil {
		return nil, s.handlerError("reindexSearch", domainerrors.NotFound("search is not enabled"))
	}
	n, err := s.services.Search.Reindex(ctx)
	if err != nil {
		return nil, s.handlerError("reindexSearch", err)
	}
	out := &ReindexOutput{}
	out.Body.Indexed = n
	return out, nil
}
