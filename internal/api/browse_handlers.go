package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/playlore/playlore-server/internal/browse"
	"github.com/playlore/playlore-server/internal/domain"
	"github.com/playlore/playlore-server/internal/filter"
	"github.com/playlore/playlore-server/internal/service"
	"github.com/playlore/playlore-server/internal/store"
)

func (s *Server) registerBrowseRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "queryKeyset",
		Method:      http.MethodPost,
		Path:        "/api/v1/games/keyset",
		Summary:     "Query keyset",
		Description: "Returns the first record of every page of a filtered, ordered view and its total",
		Tags:        []string{"Browse"},
	}, s.handleQueryKeyset)

	huma.Register(s.api, huma.Operation{
		OperationID: "queryPage",
		Method:      http.MethodPost,
		Path:        "/api/v1/games/page",
		Summary:     "Query page",
		Description: "Returns one page of a view starting at a keyset boundary",
		Tags:        []string{"Browse"},
	}, s.handleQueryPage)

	huma.Register(s.api, huma.Operation{
		OperationID: "queryRange",
		Method:      http.MethodPost,
		Path:        "/api/v1/games/range",
		Summary:     "Query ranges",
		Description: "Returns the games at each requested [start, end) window of a view",
		Tags:        []string{"Browse"},
	}, s.handleQueryRange)

	huma.Register(s.api, huma.Operation{
		OperationID: "countGames",
		Method:      http.MethodPost,
		Path:        "/api/v1/games/count",
		Summary:     "Count games",
		Description: "Returns the number of games matching a view's filter",
		Tags:        []string{"Browse"},
	}, s.handleCountGames)

	huma.Register(s.api, huma.Operation{
		OperationID: "queryRowIndex",
		Method:      http.MethodPost,
		Path:        "/api/v1/games/{id}/index",
		Summary:     "Query row index",
		Description: "Returns the 1-based position of a game in a view",
		Tags:        []string{"Browse"},
	}, s.handleQueryRowIndex)

	huma.Register(s.api, huma.Operation{
		OperationID: "randomSample",
		Method:      http.MethodPost,
		Path:        "/api/v1/games/random",
		Summary:     "Random games",
		Description: "Returns up to count games chosen uniformly at random, honoring exclusions",
		Tags:        []string{"Browse"},
	}, s.handleRandomSample)

	huma.Register(s.api, huma.Operation{
		OperationID: "querySuggestions",
		Method:      http.MethodGet,
		Path:        "/api/v1/suggestions",
		Summary:     "Field suggestions",
		Description: "Returns distinct values of a game field, or tag and platform names by prefix",
		Tags:        []string{"Browse"},
	}, s.handleSuggestions)
}

// === DTOs ===

// ViewRequest selects a filtered, ordered view. Omitted parts fall back to no filter and
// title ascending.
type ViewRequest struct {
	Filter filter.Filter `json:"filter,omitempty" doc:"Filter"`
	Order  filter.Order  `json:"order,omitempty" doc:"Ordering"`
}

func (v ViewRequest) view() browse.View {
	return browse.View{Filter: v.Filter, Order: v.Order}
}

// KeysetInput wraps the keyset request for Huma.
type KeysetInput struct {
	Body struct {
		ViewRequest
		PageSize int `json:"page_size" minimum:"1" maximum:"5000" doc:"Records per page"`
	}
}

// KeysetOutput wraps the keyset result for Huma.
type KeysetOutput struct {
	Body *browse.KeysetResult
}

// CountInput wraps the count request for Huma.
type CountInput struct {
	Body ViewRequest
}

// CountOutput wraps a game count for Huma.
type CountOutput struct {
	Body struct {
		Count int `json:"count" doc:"Matching games"`
	}
}

// PageInput wraps the page request for Huma.
type PageInput struct {
	Body struct {
		ViewRequest
		Boundary *store.Boundary `json:"boundary,omitempty" doc:"First record of the page; omit for the first page"`
		PageSize int             `json:"page_size,omitempty" minimum:"0" doc:"Records per page"`
		Shallow  bool            `json:"shallow,omitempty" doc:"Omit additional apps and relation lists"`
	}
}

// PageOutput wraps the page result for Huma.
type PageOutput struct {
	Body *browse.PageResult
}

// RangeInput wraps the range request for Huma.
type RangeInput struct {
	Body struct {
		ViewRequest
		Ranges  []store.Range `json:"ranges" minItems:"1" doc:"Half-open windows of row positions"`
		Shallow bool          `json:"shallow,omitempty" doc:"Omit additional apps and relation lists"`
	}
}

// RangeOutput wraps the range result for Huma.
type RangeOutput struct {
	Body *browse.RangeResult
}

// RowIndexInput wraps the row index request for Huma.
type RowIndexInput struct {
	ID   string `path:"id" doc:"Game ID"`
	Body ViewRequest
}

// RowIndexOutput wraps the row index for Huma.
type RowIndexOutput struct {
	Body struct {
		Index int `json:"index" doc:"1-based position of the game in the view"`
	}
}

// RandomInput wraps the random sample request for Huma.
type RandomInput struct {
	Body struct {
		Count             int      `json:"count" minimum:"0" maximum:"1000" doc:"Number of games"`
		IncludeBroken     bool     `json:"include_broken,omitempty" doc:"Include games marked broken"`
		ExcludedLibraries []string `json:"excluded_libraries,omitempty" doc:"Libraries to leave out"`
		ExcludedTags      []string `json:"excluded_tags,omitempty" doc:"Tags to leave out"`
	}
}

// GamesOutput wraps a list of games for Huma.
type GamesOutput struct {
	Body []*domain.Game
}

// SuggestionsInput contains parameters for field suggestions.
type SuggestionsInput struct {
	Field        string `query:"field" required:"true" doc:"Game field, or tags or platforms"`
	Prefix       string `query:"prefix" doc:"Name prefix (tags and platforms only)"`
	Limit        int    `query:"limit" minimum:"0" maximum:"1000" doc:"Maximum names (tags and platforms only)"`
	IncludeEmpty bool   `query:"include_empty" doc:"Include the empty value"`
}

// SuggestionsOutput wraps suggestions for Huma.
type SuggestionsOutput struct {
	Body struct {
		Values []string `json:"values" doc:"Distinct values"`
	}
}

// === Handlers ===

func (s *Server) handleQueryKeyset(ctx context.Context, input *KeysetInput) (*KeysetOutput, error) {
	res, err := s.services.Browse.QueryKeyset(ctx, input.Body.view(), input.Body.PageSize)
	if err != nil {
		return nil, s.handlerError("queryKeyset", err)
	}
	return &KeysetOutput{Body: res}, nil
}

func (s *Server) handleQueryPage(ctx context.Context, input *PageInput) (*PageOutput, error) {
	res, err := s.services.Browse.QueryPage(ctx, input.Body.view(), input.Body.Boundary,
		store.ClampPageSize(input.Body.PageSize), input.Body.Shallow)
	if err != nil {
		return nil, s.handlerError("queryPage", err)
	}
	return &PageOutput{Body: res}, nil
}

func (s *Server) handleQueryRange(ctx context.Context, input *RangeInput) (*RangeOutput, error) {
	res, err := s.services.Browse.QueryRange(ctx, input.Body.view(), input.Body.Ranges, input.Body.Shallow)
	if err != nil {
		return nil, s.handlerError("queryRange", err)
	}
	return &RangeOutput{Body: res}, nil
}

func (s *Server) handleCountGames(ctx context.Context, input *CountInput) (*CountOutput, error) {
	n, err := s.services.Browse.CountAll(ctx, input.Body.view())
	if err != nil {
		return nil, s.handlerError("countGames", err)
	}
	out := &CountOutput{}
	out.Body.Count = n
	return out, nil
}

func (s *Server) handleQueryRowIndex(ctx context.Context, input *RowIndexInput) (*RowIndexOutput, error) {
	idx, err := s.services.Browse.QueryRowIndex(ctx, input.Body.view(), input.ID)
	if err != nil {
		return nil, s.handlerError("queryRowIndex", err)
	}
	out := &RowIndexOutput{}
	out.Body.Index = idx
	return out, nil
}

func (s *Server) handleRandomSample(ctx context.Context, input *RandomInput) (*GamesOutput, error) {
	games, err := s.services.Browse.RandomSample(ctx, browse.RandomRequest{
		Count:             input.Body.Count,
		IncludeBroken:     input.Body.IncludeBroken,
		ExcludedLibraries: input.Body.ExcludedLibraries,
		ExcludedTags:      input.Body.ExcludedTags,
	})
	if err != nil {
		return nil, s.handlerError("randomSample", err)
	}
	return &GamesOutput{Body: games}, nil
}

func (s *Server) handleSuggestions(ctx context.Context, input *SuggestionsInput) (*SuggestionsOutput, error) {
	values, err := s.services.Catalog.Suggestions(ctx, service.SuggestionRequest{
		Field:        input.Field,
		Prefix:       input.Prefix,
		Limit:        input.Limit,
		IncludeEmpty: input.IncludeEmpty,
	})
	if err != nil {
		return nil, s.handlerError("querySuggestions", err)
	}
	if values == nil {
		values = []string{}
	}
	out := &SuggestionsOutput{}
	out.Body.Values = values
	return out, nil
}
