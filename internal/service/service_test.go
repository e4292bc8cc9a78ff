package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playlore/playlore-server/internal/color"
	"github.com/playlore/playlore-server/internal/domain"
	domainerrors "github.com/playlore/playlore-server/internal/errors"
	"github.com/playlore/playlore-server/internal/metasync"
	"github.com/playlore/playlore-server/internal/search"
	"github.com/playlore/playlore-server/internal/store"
	"github.com/playlore/playlore-server/internal/store/sqlite"
	"github.com/playlore/playlore-server/internal/validation"
)

type testEnv struct {
	store     *sqlite.Store
	catalog   *CatalogService
	tags      *TagService
	platforms *PlatformService
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "catalog.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	v := validation.New()
	return &testEnv{
		store:     s,
		catalog:   NewCatalogService(s, v, logger),
		tags:      NewTagService(s, v, logger),
		platforms: NewPlatformService(s, v, logger),
	}
}

func TestCatalogService_SaveGameRequiresTitle(t *testing.T) {
	env := setupEnv(t)

	err := env.catalog.SaveGame(context.Background(), &domain.Game{Title: "   "})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestCatalogService_SaveAndGet(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	g := &domain.Game{Title: "Alien Hominid", Library: "arcade", Tags: []string{"Action"}, Platforms: []string{"Flash"}}
	require.NoError(t, env.catalog.SaveGame(ctx, g))
	require.NotEmpty(t, g.ID)

	got, err := env.catalog.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alien Hominid", got.Title)
	assert.Equal(t, []string{"Action"}, got.Tags)

	n, err := env.catalog.CountGames(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, env.catalog.DeleteGame(ctx, g.ID))
	_, err = env.catalog.GetGame(ctx, g.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestCatalogService_ListGames(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	for _, title := range []string{"A", "B", "C", "D", "E"} {
		require.NoError(t, env.catalog.SaveGame(ctx, &domain.Game{Title: title}))
	}

	var ids []string
	cursor := ""
	pages := 0
	for {
		page, err := env.catalog.ListGames(ctx, cursor, 2)
		require.NoError(t, err)
		pages++
		for _, g := range page.Games {
			ids = append(ids, g.ID)
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	assert.Equal(t, 3, pages)
	assert.Len(t, ids, 5)
	assert.IsIncreasing(t, ids)

	_, err := env.catalog.ListGames(ctx, "not base64!", 0)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	empty := setupEnv(t)
	page, err := empty.catalog.ListGames(ctx, "", 0)
	require.NoError(t, err)
	assert.NotNil(t, page.Games)
	assert.Empty(t, page.NextCursor)
}

func TestCatalogService_Suggestions(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	require.NoError(t, env.catalog.SaveGame(ctx, &domain.Game{Title: "A", Developer: "Zeta", Tags: []string{"Action"}}))
	require.NoError(t, env.catalog.SaveGame(ctx, &domain.Game{Title: "B", Developer: "alpha", Tags: []string{"Adventure"}}))

	devs, err := env.catalog.Suggestions(ctx, SuggestionRequest{Field: "developer"})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "Zeta"}, devs)

	tags, err := env.catalog.Suggestions(ctx, SuggestionRequest{Field: SuggestTags, Prefix: "Act"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Action"}, tags)

	_, err = env.catalog.Suggestions(ctx, SuggestionRequest{Field: ""})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestCatalogService_NukeTagsRequiresNames(t *testing.T) {
	env := setupEnv(t)

	_, err := env.catalog.NukeTags(context.Background(), nil)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestCatalogService_Playlists(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	g := &domain.Game{Title: "Alien Hominid", Library: "arcade"}
	require.NoError(t, env.catalog.SaveGame(ctx, g))

	_, err := env.catalog.CreatePlaylist(ctx, PlaylistRequest{Title: ""})
	require.ErrorIs(t, err, domainerrors.ErrValidation)

	p, err := env.catalog.CreatePlaylist(ctx, PlaylistRequest{Title: "Favorites", Author: "me"})
	require.NoError(t, err)
	require.NotEmpty(t, p.ID)

	_, err = env.catalog.AddPlaylistGame(ctx, p.ID, g.ID, "first")
	require.NoError(t, err)

	updated, err := env.catalog.UpdatePlaylist(ctx, p.ID, PlaylistRequest{Title: "Best of"})
	require.NoError(t, err)
	assert.Equal(t, "Best of", updated.Title)

	got, err := env.catalog.GetPlaylist(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got.Games, 1)
	assert.Equal(t, g.ID, got.Games[0].GameID)

	require.NoError(t, env.catalog.DeletePlaylist(ctx, p.ID))
	_, err = env.catalog.GetPlaylist(ctx, p.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestCatalogService_InstallRequiresPath(t *testing.T) {
	env := setupEnv(t)

	_, err := env.catalog.InstallGameData(context.Background(), "gd-1", " ")
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestTagService_ResolveOrCreate(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	tag, created, err := env.tags.ResolveOrCreate(ctx, ResolveRequest{Name: "Action", Category: "genre"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Action", tag.PrimaryAlias)
	assert.Equal(t, "genre", tag.Category)

	again, created, err := env.tags.ResolveOrCreate(ctx, ResolveRequest{Name: "action"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, tag.ID, again.ID)

	_, _, err = env.tags.ResolveOrCreate(ctx, ResolveRequest{Name: ""})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestTagService_Merge(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	g := &domain.Game{Title: "Alien Hominid", Tags: []string{"Shooter"}}
	require.NoError(t, env.catalog.SaveGame(ctx, g))

	source, err := env.tags.FindTag(ctx, "Shooter")
	require.NoError(t, err)
	target, _, err := env.tags.ResolveOrCreate(ctx, ResolveRequest{Name: "Action"})
	require.NoError(t, err)

	_, err = env.tags.Merge(ctx, MergeRequest{SourceID: target.ID, TargetID: target.ID})
	require.ErrorIs(t, err, domainerrors.ErrValidation)

	merged, err := env.tags.Merge(ctx, MergeRequest{SourceID: source.ID, TargetID: target.ID})
	require.NoError(t, err)
	assert.Equal(t, target.ID, merged.ID)
	assert.ElementsMatch(t, []string{"Action", "Shooter"}, merged.AliasNames())

	resolved, err := env.tags.FindTag(ctx, "Shooter")
	require.NoError(t, err)
	assert.Equal(t, target.ID, resolved.ID)

	got, err := env.catalog.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Action"}, got.Tags)

	_, err = env.tags.Merge(ctx, MergeRequest{SourceID: source.ID, TargetID: target.ID})
	assert.ErrorIs(t, err, domainerrors.ErrConflict)
}

func TestTagService_DeleteAttachedTag(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	g := &domain.Game{Title: "Alien Hominid", Tags: []string{"Action"}}
	require.NoError(t, env.catalog.SaveGame(ctx, g))
	tag, err := env.tags.FindTag(ctx, "Action")
	require.NoError(t, err)

	err = env.tags.Delete(ctx, tag.ID, false)
	require.ErrorIs(t, err, domainerrors.ErrConflict)

	require.NoError(t, env.tags.Delete(ctx, tag.ID, true))
	got, err := env.catalog.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Tags)
}

func TestTagService_CategoryColorDefaults(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	c, err := env.tags.CreateCategory(ctx, CategoryRequest{Name: "genre"})
	require.NoError(t, err)
	assert.Equal(t, color.ForName("genre"), c.Color)

	_, err = env.tags.CreateCategory(ctx, CategoryRequest{Name: "theme", Color: "red"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestPlatformService_ResolveAndMerge(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	flash, created, err := env.platforms.ResolveOrCreate(ctx, ResolveRequest{Name: "Flash"})
	require.NoError(t, err)
	assert.True(t, created)
	shockwave, _, err := env.platforms.ResolveOrCreate(ctx, ResolveRequest{Name: "Shockwave"})
	require.NoError(t, err)

	merged, err := env.platforms.Merge(ctx, MergeRequest{SourceID: shockwave.ID, TargetID: flash.ID})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Flash", "Shockwave"}, merged.AliasNames())

	again, created, err := env.platforms.ResolveOrCreate(ctx, ResolveRequest{Name: "Shockwave"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, flash.ID, again.ID)
}

// stubSource serves a fixed remote catalog.
type stubSource struct {
	games []*domain.Game
}

func (s *stubSource) CountSince(_ context.Context, kind domain.SyncKind, _ time.Time) (int, error) {
	if kind == domain.SyncGames {
		return len(s.games), nil
	}
	return 1, nil
}

func (s *stubSource) PlatformsSince(context.Context, time.Time) (*domain.IdentityChanges, error) {
	return &domain.IdentityChanges{Records: []domain.RemoteIdentity{{
		Name: "Flash", Aliases: []string{"Flash"}, DateModified: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}}}, nil
}

func (s *stubSource) TagsSince(context.Context, time.Time) (*domain.IdentityChanges, error) {
	return &domain.IdentityChanges{Records: []domain.RemoteIdentity{{
		Name: "Action", Aliases: []string{"Action"}, DateModified: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}}}, nil
}

func (s *stubSource) GamesSince(context.Context, time.Time, string, int) (*domain.GameBatch, error) {
	return &domain.GameBatch{Games: s.games}, nil
}

func setupSync(t *testing.T, remote metasync.Source) (*SyncService, *sqlite.Store) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "catalog.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	engine := metasync.NewEngine(s, logger, metasync.WithBatchSize(10))
	sources := []domain.MetadataSource{{Name: "main", BaseURL: "https://metadata.example.org"}}
	factory := func(domain.MetadataSource) (metasync.Source, error) { return remote, nil }
	return NewSyncService(engine, s, sources, factory, logger), s
}

func TestSyncService_Run(t *testing.T) {
	modified := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	remote := &stubSource{games: []*domain.Game{{
		ID:         "6f1c2f0e-5b8a-4c1e-9a43-1f3e2d4c5b6a",
		Title:      "Alien Hominid",
		Tags:       []string{"Action"},
		Platforms:  []string{"Flash"},
		Timestamps: domain.Timestamps{DateAdded: modified, DateModified: modified},
	}}}
	svc, s := setupSync(t, remote)
	ctx := context.Background()

	res, err := svc.Run(ctx, "main", false)
	require.NoError(t, err)
	assert.True(t, res.Full)
	assert.Equal(t, 1, res.Games.Created)
	assert.Equal(t, modified, res.Watermarks[domain.SyncGames].LatestUpdateTime.UTC())

	n, err := s.CountGames(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	status, err := svc.Status(ctx, "main")
	require.NoError(t, err)
	assert.False(t, status.Running)
	require.NotNil(t, status.Progress)
	assert.True(t, status.Progress.Done)
	assert.Equal(t, 1.0, status.Progress.Fraction)
	assert.Equal(t, res.RunID, status.LastResult.RunID)
}

func TestSyncService_UnknownSource(t *testing.T) {
	svc, _ := setupSync(t, &stubSource{})

	_, err := svc.Run(context.Background(), "nope", false)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	_, err = svc.Info(context.Background(), "nope")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestSyncService_RefusesOverlappingRuns(t *testing.T) {
	svc, _ := setupSync(t, &stubSource{})

	require.NoError(t, svc.acquire("main", "sync-1"))
	_, err := svc.Run(context.Background(), "main", false)
	assert.ErrorIs(t, err, domainerrors.ErrConflict)

	status, err := svc.Status(context.Background(), "main")
	require.NoError(t, err)
	assert.True(t, status.Running)

	svc.release("main")
	_, err = svc.Run(context.Background(), "main", true)
	assert.NoError(t, err)
}

func TestSyncService_Info(t *testing.T) {
	svc, _ := setupSync(t, &stubSource{games: make([]*domain.Game, 3)})

	info, err := svc.Info(context.Background(), "main")
	require.NoError(t, err)
	assert.True(t, info.Full)
	assert.Equal(t, 3, info.Counts[domain.SyncGames])
	assert.Equal(t, 5, info.Total)
}

func TestSyncService_Sources(t *testing.T) {
	svc, _ := setupSync(t, &stubSource{})
	_, err := svc.Run(context.Background(), "main", true)
	require.NoError(t, err)

	sources, err := svc.Sources(context.Background())
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), sources[0].Watermark(domain.SyncTags).LatestUpdateTime.UTC())
}

func TestSearchService_Reindex(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "catalog.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	index, err := search.NewSearchIndex(search.Options{DataPath: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	ctx := context.Background()
	for _, title := range []string{"Alien Hominid", "Castle Crashers", "Hotel Mystery"} {
		require.NoError(t, s.SaveGame(ctx, &domain.Game{Title: title, Library: "arcade"}))
	}

	svc := NewSearchService(index, s, logger)
	require.NoError(t, svc.EnsureIndexed(ctx))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	params := search.DefaultSearchParams()
	params.Query = " castle "
	res, err := svc.Search(ctx, params)
	require.NoError(t, err)
	require.NotEmpty(t, res.Hits)
	assert.Equal(t, "Castle Crashers", res.Hits[0].Title)

	n, err := svc.Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

var _ store.GameStore = (*sqlite.Store)(nil)
