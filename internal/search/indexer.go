package search

import (
	"context"

	"github.com/playlore/playlore-server/internal/domain"
)

// Indexer adapts a SearchIndex to the catalog store's post-commit hook.
type Indexer struct {
	index *SearchIndex
}

// NewIndexer creates an Indexer writing to index.
func NewIndexer(index *SearchIndex) *Indexer {
	return &Indexer{index: index}
}

// IndexGames upserts the documents of games.
func (i *Indexer) IndexGames(ctx context.Context, games []*domain.Game) error {
	if len(games) == 0 {
		return ctx.Err()
	}
	docs := make([]*GameDocument, len(games))
	for n, g := range games {
		docs[n] = GameToDocument(g)
	}
	return i.index.IndexDocuments(docs)
}

// DeleteGames removes the documents of the given game ids.
func (i *Indexer) DeleteGames(_ context.Context, ids []string) error {
	return i.index.DeleteDocuments(ids)
}
