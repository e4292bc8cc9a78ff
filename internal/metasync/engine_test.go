package metasync_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playlore/playlore-server/internal/domain"
	domainerrors "github.com/playlore/playlore-server/internal/errors"
	"github.com/playlore/playlore-server/internal/metasync"
	"github.com/playlore/playlore-server/internal/store"
	"github.com/playlore/playlore-server/internal/store/sqlite"
)

var remoteEpoch = time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)

// fakeSource serves in-memory remote changes, filtered by modification time.
type fakeSource struct {
	mu sync.Mutex

	platforms     []domain.RemoteIdentity
	tags          []domain.RemoteIdentity
	categories    []domain.RemoteCategory
	games         []*domain.Game
	gameDeletions []string

	failBatch  int // 1-based batch that fails, 0 for none
	batchCalls int
	gameAfters []time.Time
	tagAfters  []time.Time
}

func (f *fakeSource) CountSince(_ context.Context, kind domain.SyncKind, after time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch kind {
	case domain.SyncPlatforms:
		return len(identitiesAfter(f.platforms, after)), nil
	case domain.SyncTags:
		return len(identitiesAfter(f.tags, after)), nil
	default:
		return len(f.gamesAfter(after)), nil
	}
}

func (f *fakeSource) PlatformsSince(_ context.Context, after time.Time) (*domain.IdentityChanges, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &domain.IdentityChanges{Records: identitiesAfter(f.platforms, after)}, nil
}

func (f *fakeSource) TagsSince(_ context.Context, after time.Time) (*domain.IdentityChanges, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tagAfters = append(f.tagAfters, after)
	return &domain.IdentityChanges{
		Categories: f.categories,
		Records:    identitiesAfter(f.tags, after),
	}, nil
}

func (f *fakeSource) GamesSince(_ context.Context, after time.Time, cursor string, limit int) (*domain.GameBatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.batchCalls++
	if cursor == "" {
		f.gameAfters = append(f.gameAfters, after)
	}
	if f.failBatch > 0 && f.batchCalls == f.failBatch {
		return nil, domainerrors.SyncTransportf(errors.New("connection reset"), "fetch games")
	}

	offset := 0
	if cursor != "" {
		offset, _ = strconv.Atoi(cursor)
	}
	matching := f.gamesAfter(after)
	end := min(offset+limit, len(matching))

	b := &domain.GameBatch{}
	for _, g := range matching[offset:end] {
		c := *g
		c.Tags = slices.Clone(g.Tags)
		c.Platforms = slices.Clone(g.Platforms)
		b.Games = append(b.Games, &c)
	}
	if offset == 0 {
		b.Deletions = f.gameDeletions
	}
	if end < len(matching) {
		b.NextCursor = strconv.Itoa(end)
	}
	return b, nil
}

func (f *fakeSource) gamesAfter(after time.Time) []*domain.Game {
	var out []*domain.Game
	for _, g := range f.games {
		if g.DateModified.After(after) {
			out = append(out, g)
		}
	}
	return out
}

func identitiesAfter(records []domain.RemoteIdentity, after time.Time) []domain.RemoteIdentity {
	var out []domain.RemoteIdentity
	for _, r := range records {
		if r.DateModified.After(after) {
			out = append(out, r)
		}
	}
	return out
}

func gameID(n int) string {
	return fmt.Sprintf("00000000-0000-4000-8000-%012d", n)
}

func remoteGame(n int, modified time.Time, tags ...string) *domain.Game {
	return &domain.Game{
		ID:         gameID(n),
		Title:      fmt.Sprintf("Remote Game %d", n),
		Library:    "arcade",
		Tags:       tags,
		Platforms:  []string{"Flash"},
		Timestamps: domain.Timestamps{DateAdded: modified, DateModified: modified},
	}
}

func newFakeSource(games int) *fakeSource {
	f := &fakeSource{
		platforms: []domain.RemoteIdentity{
			{Name: "Flash", Aliases: []string{"Adobe Flash"}, DateModified: remoteEpoch.Add(time.Hour)},
			{Name: "HTML5", DateModified: remoteEpoch.Add(2 * time.Hour)},
		},
		categories: []domain.RemoteCategory{{Name: "genre", Color: "#ff0000"}},
		tags: []domain.RemoteIdentity{
			{Name: "Action", Category: "genre", DateModified: remoteEpoch.Add(3 * time.Hour)},
			{Name: "Puzzle", Category: "genre", DateModified: remoteEpoch.Add(4 * time.Hour)},
		},
	}
	for i := 1; i <= games; i++ {
		f.games = append(f.games, remoteGame(i, remoteEpoch.Add(time.Duration(i)*24*time.Hour), "Action"))
	}
	return f
}

type harness struct {
	store  *sqlite.Store
	clock  *store.FixedClock
	engine *metasync.Engine
	source domain.MetadataSource
}

func newHarness(t *testing.T, batchSize int) *harness {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	clock := &store.FixedClock{T: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "catalog.db"), logger, sqlite.WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return &harness{
		store:  s,
		clock:  clock,
		engine: metasync.NewEngine(s, logger, metasync.WithBatchSize(batchSize), metasync.WithClock(clock)),
		source: domain.MetadataSource{Name: "main", BaseURL: "https://meta.example.com"},
	}
}

func TestRun_FullSyncOfEmptyCatalog(t *testing.T) {
	h := newHarness(t, 2)
	ctx := context.Background()
	remote := newFakeSource(5)

	var events []metasync.Progress
	res, err := h.engine.Run(ctx, h.source, remote, metasync.RunOptions{
		OnProgress: func(p metasync.Progress) { events = append(events, p) },
	})
	require.NoError(t, err)

	assert.True(t, res.Full)
	assert.Equal(t, 2, res.Platforms.Created)
	assert.Equal(t, 2, res.Tags.Created)
	assert.Equal(t, 5, res.Games.Created)
	assert.Equal(t, 3, res.Batches)
	assert.Nil(t, res.Failure)

	n, err := h.store.CountGames(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	tag, err := h.store.ResolveTag(ctx, "action")
	require.NoError(t, err)
	assert.Equal(t, "genre", tag.Category)

	platform, err := h.store.ResolvePlatform(ctx, "adobe flash")
	require.NoError(t, err)
	assert.Equal(t, "Flash", platform.PrimaryAlias)

	wm := res.Watermarks
	assert.True(t, wm[domain.SyncGames].LatestUpdateTime.Equal(remoteEpoch.Add(5*24*time.Hour)))
	assert.True(t, wm[domain.SyncTags].LatestUpdateTime.Equal(remoteEpoch.Add(4*time.Hour)))
	assert.True(t, wm[domain.SyncPlatforms].LatestUpdateTime.Equal(remoteEpoch.Add(2*time.Hour)))
	assert.True(t, wm[domain.SyncGames].ActualUpdateTime.Equal(h.clock.T))

	require.NotEmpty(t, events)
	for i := 1; i < len(events); i++ {
		assert.GreaterOrEqual(t, events[i].Fraction, events[i-1].Fraction, "progress never decreases")
		assert.GreaterOrEqual(t, events[i].Total, events[i].Completed)
	}
	last := events[len(events)-1]
	assert.True(t, last.Done)
	assert.Equal(t, 1.0, last.Fraction)
	assert.Equal(t, res.RunID, last.RunID)
}

func TestRun_IncrementalStartsAtWatermarks(t *testing.T) {
	h := newHarness(t, 10)
	ctx := context.Background()
	remote := newFakeSource(3)

	_, err := h.engine.Run(ctx, h.source, remote, metasync.RunOptions{})
	require.NoError(t, err)

	updated := remoteGame(2, remoteEpoch.Add(30*24*time.Hour), "Puzzle")
	updated.Title = "Renamed"
	remote.games = append(remote.games, updated, remoteGame(9, remoteEpoch.Add(31*24*time.Hour)))

	h.clock.Advance(time.Hour)
	res, err := h.engine.Run(ctx, h.source, remote, metasync.RunOptions{})
	require.NoError(t, err)

	assert.False(t, res.Full)
	require.Len(t, remote.gameAfters, 2)
	assert.True(t, remote.gameAfters[1].Equal(remoteEpoch.Add(3*24*time.Hour)))
	assert.Equal(t, 1, res.Games.Created)
	assert.Equal(t, 1, res.Games.Updated)

	g, err := h.store.FindGame(ctx, gameID(2))
	require.NoError(t, err)
	assert.Equal(t, "Renamed", g.Title)
	assert.Equal(t, []string{"Puzzle"}, g.Tags)
}

func TestRun_EmptyCatalogForcesEpoch(t *testing.T) {
	h := newHarness(t, 10)
	ctx := context.Background()

	future := domain.Watermark{LatestUpdateTime: remoteEpoch.AddDate(5, 0, 0), ActualUpdateTime: remoteEpoch}
	for _, kind := range domain.SyncKinds {
		require.NoError(t, h.store.SaveWatermark(ctx, h.source.Name, kind, future))
	}

	remote := newFakeSource(2)
	res, err := h.engine.Run(ctx, h.source, remote, metasync.RunOptions{})
	require.NoError(t, err)

	assert.True(t, res.Full)
	assert.True(t, remote.gameAfters[0].Equal(domain.Epoch))
	assert.True(t, remote.tagAfters[0].Equal(domain.Epoch))
	assert.Equal(t, 2, res.Games.Created)
}

func TestRun_FailedBatchKeepsGamesWatermark(t *testing.T) {
	h := newHarness(t, 2)
	ctx := context.Background()
	remote := newFakeSource(5)
	remote.failBatch = 2

	res, err := h.engine.Run(ctx, h.source, remote, metasync.RunOptions{})
	require.Error(t, err)
	assert.True(t, domainerrors.IsRetryable(err))

	require.NotNil(t, res.Failure)
	assert.Equal(t, 2, res.Failure.Batch)
	assert.Equal(t, "2", res.Failure.Cursor)
	assert.Equal(t, "SYNC_TRANSPORT", res.Failure.Code)
	assert.True(t, res.Failure.Retryable)
	assert.Equal(t, 2, res.Games.Created, "the first batch stays applied")

	assert.True(t, res.Watermarks[domain.SyncGames].LatestUpdateTime.Equal(domain.Epoch),
		"games watermark is not advanced")
	assert.Contains(t, res.Watermarks, domain.SyncTags)
	assert.False(t, res.Progress.Done)

	// The next run resumes from the previous games watermark and completes.
	remote.failBatch = 0
	res, err = h.engine.Run(ctx, h.source, remote, metasync.RunOptions{})
	require.NoError(t, err)
	assert.False(t, res.Full)
	assert.Equal(t, 3, res.Games.Created)
	assert.Equal(t, 2, res.Games.Updated)

	n, err := h.store.CountGames(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestRun_FailedBootstrapResumesFromEpoch(t *testing.T) {
	h := newHarness(t, 2)
	ctx := context.Background()

	stale := domain.Watermark{LatestUpdateTime: remoteEpoch.AddDate(5, 0, 0), ActualUpdateTime: remoteEpoch}
	for _, kind := range domain.SyncKinds {
		require.NoError(t, h.store.SaveWatermark(ctx, h.source.Name, kind, stale))
	}

	remote := newFakeSource(5)
	remote.failBatch = 2
	res, err := h.engine.Run(ctx, h.source, remote, metasync.RunOptions{})
	require.Error(t, err)
	assert.True(t, res.Full)
	assert.Equal(t, 2, res.Games.Created)
	assert.True(t, res.Watermarks[domain.SyncGames].LatestUpdateTime.Equal(domain.Epoch))

	// The catalog is no longer empty, so the rerun is incremental from the epoch.
	remote.failBatch = 0
	res, err = h.engine.Run(ctx, h.source, remote, metasync.RunOptions{})
	require.NoError(t, err)
	assert.False(t, res.Full)
	require.Len(t, remote.gameAfters, 2)
	assert.True(t, remote.gameAfters[1].Equal(domain.Epoch))
	assert.Equal(t, 3, res.Games.Created)

	n, err := h.store.CountGames(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestRun_CancelledAtBatchBoundary(t *testing.T) {
	h := newHarness(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	remote := newFakeSource(4)

	res, err := h.engine.Run(ctx, h.source, remote, metasync.RunOptions{
		OnProgress: func(p metasync.Progress) {
			if p.Completed == 1 {
				cancel()
			}
		},
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, res.Cancelled)
	assert.Equal(t, 1, res.Batches)
	assert.True(t, res.Watermarks[domain.SyncGames].LatestUpdateTime.Equal(domain.Epoch))

	n, err := h.store.CountGames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRun_TaggedSkipsGames(t *testing.T) {
	h := newHarness(t, 10)
	remote := newFakeSource(3)

	res, err := h.engine.Run(context.Background(), h.source, remote, metasync.RunOptions{Tagged: true})
	require.NoError(t, err)

	assert.True(t, res.Tagged)
	assert.Equal(t, 2, res.Tags.Created)
	assert.Zero(t, remote.batchCalls)
	assert.NotContains(t, res.Watermarks, domain.SyncGames)
}

func TestRun_RemoteDeletions(t *testing.T) {
	h := newHarness(t, 10)
	ctx := context.Background()
	remote := newFakeSource(3)

	_, err := h.engine.Run(ctx, h.source, remote, metasync.RunOptions{})
	require.NoError(t, err)

	remote.games = append(remote.games, remoteGame(7, remoteEpoch.Add(40*24*time.Hour)))
	remote.gameDeletions = []string{gameID(1), gameID(99)}

	res, err := h.engine.Run(ctx, h.source, remote, metasync.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Games.Deleted, "unknown ids are ignored")

	_, err = h.store.FindGame(ctx, gameID(1))
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestPreUpdateInfo(t *testing.T) {
	h := newHarness(t, 10)
	ctx := context.Background()
	remote := newFakeSource(4)

	info, err := h.engine.PreUpdateInfo(ctx, h.source, remote)
	require.NoError(t, err)
	assert.True(t, info.Full)
	assert.Equal(t, 2, info.Counts[domain.SyncPlatforms])
	assert.Equal(t, 2, info.Counts[domain.SyncTags])
	assert.Equal(t, 4, info.Counts[domain.SyncGames])
	assert.Equal(t, 8, info.Total)

	_, err = h.engine.Run(ctx, h.source, remote, metasync.RunOptions{})
	require.NoError(t, err)

	info, err = h.engine.PreUpdateInfo(ctx, h.source, remote)
	require.NoError(t, err)
	assert.False(t, info.Full)
	assert.Zero(t, info.Total)
}
