// Package store holds the persistence-facing abstractions shared by the SQLite catalog
// store and its consumers: the query result cache, keyset cursors, and the hooks the
// store calls after committing writes.
package store

import (
	"context"
	"time"

	"github.com/playlore/playlore-server/internal/domain"
)

// SearchIndexer keeps an external full-text index in step with committed game writes.
type SearchIndexer interface {
	IndexGames(ctx context.Context, games []*domain.Game) error
	DeleteGames(ctx context.Context, ids []string) error
}

// NoopSearchIndexer discards all index updates.
type NoopSearchIndexer struct{}

// NewNoopSearchIndexer returns a SearchIndexer that does nothing.
func NewNoopSearchIndexer() SearchIndexer { return NoopSearchIndexer{} }

// IndexGames implements SearchIndexer.
func (NoopSearchIndexer) IndexGames(context.Context, []*domain.Game) error { return nil }

// DeleteGames implements SearchIndexer.
func (NoopSearchIndexer) DeleteGames(context.Context, []string) error { return nil }

// Clock supplies timestamps for dateModified and watermarks.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns the same instant; tests advance it explicitly.
type FixedClock struct {
	T time.Time
}

// Now implements Clock.
func (c *FixedClock) Now() time.Time { return c.T }

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) { c.T = c.T.Add(d) }

// CatalogCheckpoint summarizes how current the catalog is. Zero times mean never.
type CatalogCheckpoint struct {
	Games        int
	LastModified time.Time // latest change to a game, tag or platform
	LastSynced   time.Time // latest completed sync phase of any source
}
