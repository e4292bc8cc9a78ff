package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/playlore/playlore-server/internal/search"
	"github.com/playlore/playlore-server/internal/store"
)

// reindexPageSize is the number of games loaded per page during a reindex.
const reindexPageSize = 1000

// SearchService provides full-text search across the catalog.
// It bridges the search index with the store, which keeps the index current on every
// committed game write.
type SearchService struct {
	index  *search.SearchIndex
	store  store.GameStore
	logger *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(index *search.SearchIndex, store store.GameStore, logger *slog.Logger) *SearchService {
	return &SearchService{
		index:  index,
		store:  store,
		logger: logger,
	}
}

// Search runs a query against the index.
func (s *SearchService) Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error) {
	params.Query = strings.TrimSpace(params.Query)
	return s.index.Search(ctx, params)
}

// Reindex drops the index and rebuilds it from every game in the store.
func (s *SearchService) Reindex(ctx context.Context) (int, error) {
	start := time.Now()
	if err := s.index.Rebuild(); err != nil {
		return 0, fmt.Errorf("rebuild index: %w", err)
	}

	var (
		indexed int
		params  = store.PaginationParams{Limit: reindexPageSize}
	)
	for {
		if err := ctx.Err(); err != nil {
			return indexed, err
		}
		page, err := s.store.FindAllGamesPaged(ctx, params)
		if err != nil {
			return indexed, fmt.Errorf("load games: %w", err)
		}

		docs := make([]*search.GameDocument, len(page.Items))
		for i, g := range page.Items {
			docs[i] = search.GameToDocument(g)
		}
		if err := s.index.IndexDocuments(docs); err != nil {
			return indexed, fmt.Errorf("index games: %w", err)
		}
		indexed += len(docs)

		if !page.HasMore {
			break
		}
		params.AfterID = page.LastID
	}

	s.logger.Info("search index rebuilt",
		"games", indexed,
		"duration", time.Since(start),
	)
	return indexed, nil
}

// EnsureIndexed rebuilds the index when it is empty but the catalog is not, as after a
// mapping change.
func (s *SearchService) EnsureIndexed(ctx context.Context) error {
	docs, err := s.index.DocumentCount()
	if err != nil {
		return fmt.Errorf("count documents: %w", err)
	}
	games, err := s.store.CountGames(ctx)
	if err != nil {
		return err
	}
	if docs > 0 || games == 0 {
		return nil
	}

	s.logger.Info("search index empty, reindexing", "games", games)
	_, err = s.Reindex(ctx)
	return err
}

// DocumentCount returns the number of indexed games.
func (s *SearchService) DocumentCount() (uint64, error) {
	return s.index.DocumentCount()
}
