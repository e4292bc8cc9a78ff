// Package browse serves the paginated, filtered views of the game catalog.
//
// Every operation compiles its filter and ordering once, then asks the store for
// keysets, windows or ranks. The store caches keysets, totals and ranks until the next
// committed mutation, so repeated scrolling over the same view costs one query.
package browse

import (
	"context"
	"log/slog"
	"time"

	"github.com/playlore/playlore-server/internal/domain"
	"github.com/playlore/playlore-server/internal/filter"
	"github.com/playlore/playlore-server/internal/metrics"
	"github.com/playlore/playlore-server/internal/store"
)

// Store is the persistence the browse service reads from.
type Store interface {
	store.QueryStore
	GetPlaylist(ctx context.Context, playlistID string) (*domain.Playlist, error)
}

// View identifies a filtered, ordered view of the catalog.
type View struct {
	Filter filter.Filter `json:"filter"`
	Order  filter.Order  `json:"order"`
}

// KeysetResult is the page index of a view.
type KeysetResult struct {
	Keyset  []store.Boundary `json:"keyset"`
	Total   int              `json:"total"`
	Elapsed time.Duration    `json:"elapsed"`
}

// PageResult is one page of a view starting at a keyset boundary.
type PageResult struct {
	Games   []*domain.Game `json:"games"`
	Elapsed time.Duration  `json:"elapsed"`
}

// RangeGames holds the games of one requested window.
type RangeGames struct {
	Start int            `json:"start"`
	Games []*domain.Game `json:"games"`
}

// RangeResult holds the games of every requested window, in request order.
type RangeResult struct {
	Ranges  []RangeGames  `json:"ranges"`
	Elapsed time.Duration `json:"elapsed"`
}

// RandomRequest selects a random sample of the catalog.
type RandomRequest struct {
	Count             int      `json:"count"`
	IncludeBroken     bool     `json:"include_broken"`
	ExcludedLibraries []string `json:"excluded_libraries,omitempty"`
	ExcludedTags      []string `json:"excluded_tags,omitempty"`
}

// Service answers browse queries.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a browse service over s.
func NewService(s Store, logger *slog.Logger) *Service {
	return &Service{store: s, logger: logger}
}

// compile validates the view and lowers it to SQL. A playlist view whose playlist does
// not exist is NotFound.
func (s *Service) compile(ctx context.Context, v View) (*filter.Compiled, error) {
	if v.Filter.InPlaylist() {
		if _, err := s.store.GetPlaylist(ctx, v.Filter.PlaylistID); err != nil {
			return nil, err
		}
	}
	return filter.Compile(v.Filter, v.Order)
}

// observe records the duration of op and returns it.
func (s *Service) observe(op string, start time.Time, err error) time.Duration {
	elapsed := time.Since(start)
	metrics.ObserveQuery(op, elapsed, err)
	if err != nil {
		s.logger.Debug("browse query failed", "op", op, "error", err)
	}
	return elapsed
}

// QueryKeyset returns the first record of every page of pageSize records in the view,
// with the total number of matches.
func (s *Service) QueryKeyset(ctx context.Context, v View, pageSize int) (_ *KeysetResult, err error) {
	start := time.Now()
	defer func() { s.observe("keyset", start, err) }()

	c, err := s.compile(ctx, v)
	if err != nil {
		return nil, err
	}
	ks, err := s.store.QueryKeyset(ctx, c, pageSize)
	if err != nil {
		return nil, err
	}
	return &KeysetResult{Keyset: ks.Boundaries, Total: ks.Total, Elapsed: time.Since(start)}, nil
}

// QueryPage returns up to pageSize games of the view starting at boundary, inclusive.
// A nil boundary starts at the first record.
func (s *Service) QueryPage(ctx context.Context, v View, boundary *store.Boundary, pageSize int, shallow bool) (_ *PageResult, err error) {
	start := time.Now()
	defer func() { s.observe("page", start, err) }()

	c, err := s.compile(ctx, v)
	if err != nil {
		return nil, err
	}
	if pageSize > store.MaxPageSize {
		pageSize = store.MaxPageSize
	}
	games, err := s.store.QueryPage(ctx, c, boundary, pageSize, shallow)
	if err != nil {
		return nil, err
	}
	return &PageResult{Games: games, Elapsed: time.Since(start)}, nil
}

// QueryRange returns the games at each [start, end) window of the view. All windows
// observe the same snapshot. Shallow results omit additional apps and relation lists.
func (s *Service) QueryRange(ctx context.Context, v View, ranges []store.Range, shallow bool) (_ *RangeResult, err error) {
	start := time.Now()
	defer func() { s.observe("range", start, err) }()

	c, err := s.compile(ctx, v)
	if err != nil {
		return nil, err
	}
	windows, err := s.store.QueryRange(ctx, c, ranges, shallow)
	if err != nil {
		return nil, err
	}

	res := &RangeResult{Ranges: make([]RangeGames, len(ranges))}
	for i, r := range ranges {
		res.Ranges[i] = RangeGames{Start: r.Start, Games: windows[i]}
	}
	res.Elapsed = time.Since(start)
	return res, nil
}

// QueryRowIndex returns the 1-based rank of a game in the view, or NotFound when the
// game is not part of it.
func (s *Service) QueryRowIndex(ctx context.Context, v View, gameID string) (_ int, err error) {
	start := time.Now()
	defer func() { s.observe("row_index", start, err) }()

	c, err := s.compile(ctx, v)
	if err != nil {
		return 0, err
	}
	return s.store.QueryRowIndex(ctx, c, gameID)
}

// CountAll returns the number of games in the view.
func (s *Service) CountAll(ctx context.Context, v View) (_ int, err error) {
	start := time.Now()
	defer func() { s.observe("count", start, err) }()

	c, err := s.compile(ctx, v)
	if err != nil {
		return 0, err
	}
	return s.store.CountFiltered(ctx, c)
}

// RandomSample returns up to req.Count games chosen uniformly from those passing the
// exclusions. The result is never padded.
func (s *Service) RandomSample(ctx context.Context, req RandomRequest) (_ []*domain.Game, err error) {
	start := time.Now()
	defer func() { s.observe("random", start, err) }()

	if req.Count <= 0 {
		return []*domain.Game{}, nil
	}
	f := filter.Exclusions(req.IncludeBroken, req.ExcludedLibraries, req.ExcludedTags)
	c, err := filter.Compile(f, filter.DefaultOrder)
	if err != nil {
		return nil, err
	}
	return s.store.RandomSample(ctx, c, req.Count)
}
