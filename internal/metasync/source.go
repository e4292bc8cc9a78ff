// Package metasync reconciles the local catalog against a remote metadata source.
//
// A run walks three phases in order: platforms, tags (categories are created on the
// way), then games in batches. Each (source, kind) pair keeps a watermark, so a run only
// asks the remote for records modified after the last successful phase. A failed or
// cancelled run leaves the watermark of the failing phase untouched and the next run
// picks up from there.
package metasync

import (
	"context"
	"time"

	"github.com/playlore/playlore-server/internal/domain"
	"github.com/playlore/playlore-server/internal/store"
)

// Source is a remote metadata authority reachable through list-since endpoints.
type Source interface {
	// CountSince returns how many records of kind changed after the given time.
	CountSince(ctx context.Context, kind domain.SyncKind, after time.Time) (int, error)
	// PlatformsSince returns platforms changed after the given time, and deletions.
	PlatformsSince(ctx context.Context, after time.Time) (*domain.IdentityChanges, error)
	// TagsSince returns categories and tags changed after the given time, and deletions.
	TagsSince(ctx context.Context, after time.Time) (*domain.IdentityChanges, error)
	// GamesSince returns one batch of at most limit games changed after the given
	// time, starting at cursor. An empty NextCursor ends the listing.
	GamesSince(ctx context.Context, after time.Time, cursor string, limit int) (*domain.GameBatch, error)
}

// Store is the persistence a sync run writes to.
type Store interface {
	CountGames(ctx context.Context) (int, error)
	store.SyncStore
}
