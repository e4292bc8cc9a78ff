package sqlite

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/playlore/playlore-server/internal/domain"
	"github.com/playlore/playlore-server/internal/store"
)

var testEpoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, _ := newTestStoreWithClock(t)
	return s
}

func newTestStoreWithClock(t *testing.T) (*Store, *store.FixedClock) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	clock := &store.FixedClock{T: testEpoch}
	s, err := Open(dbPath, logger, WithClock(clock))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, clock
}

// mustSaveGame saves a game built from title, library and tags, failing the test on error.
func mustSaveGame(t *testing.T, s *Store, title, library string, tags ...string) *domain.Game {
	t.Helper()
	g := &domain.Game{
		Title:     title,
		Library:   library,
		Tags:      tags,
		Platforms: []string{"Flash"},
	}
	if err := s.SaveGame(context.Background(), g); err != nil {
		t.Fatalf("SaveGame(%q): %v", title, err)
	}
	return g
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	// Verify WAL mode is set.
	var journalMode string
	err := s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode)
	if err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("expected wal, got %s", journalMode)
	}

	// Verify foreign keys are enabled.
	var fk int
	err = s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk)
	if err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("expected foreign_keys=1, got %d", fk)
	}

	// Verify tables exist.
	tables := []string{
		"game", "additional_app", "game_data",
		"tag_category", "tag", "tag_alias", "platform", "platform_alias",
		"game_tag", "game_platform",
		"playlist", "playlist_game", "sync_watermark",
	}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestOpenClose(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	// Re-open should work (schema is idempotent).
	s2, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("re-open store: %v", err)
	}
	defer s2.Close()
}

func TestMutationClearsCache(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	gen := s.Cache().Generation()
	if !s.Cache().Put("k", gen, 1) {
		t.Fatal("expected Put to store value")
	}

	mustSaveGame(t, s, "Alpha", "arcade")

	if _, ok := s.Cache().Get("k"); ok {
		t.Error("expected cache to be cleared by SaveGame")
	}
	if s.Cache().Put("k", gen, 1) {
		t.Error("expected Put with stale generation to be dropped")
	}

	gen = s.Cache().Generation()
	s.Cache().Put("k", gen, 1)
	if err := s.CreateCategory(ctx, &domain.TagCategory{Name: "Genre"}); err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	if _, ok := s.Cache().Get("k"); ok {
		t.Error("expected cache to be cleared by CreateCategory")
	}
}

func TestGetCatalogCheckpoint(t *testing.T) {
	s, clock := newTestStoreWithClock(t)
	ctx := context.Background()

	cp, err := s.GetCatalogCheckpoint(ctx)
	if err != nil {
		t.Fatalf("GetCatalogCheckpoint: %v", err)
	}
	if cp.Games != 0 || !cp.LastModified.IsZero() || !cp.LastSynced.IsZero() {
		t.Errorf("expected an empty checkpoint, got %+v", cp)
	}

	mustSaveGame(t, s, "Alpha", "arcade")
	clock.Advance(time.Minute)
	if _, err := s.CreateTag(ctx, "Puzzle", ""); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}

	// A reset watermark is not a completed sync.
	epoch := domain.Watermark{LatestUpdateTime: domain.Epoch, ActualUpdateTime: domain.Epoch}
	if err := s.SaveWatermark(ctx, "main", domain.SyncGames, epoch); err != nil {
		t.Fatalf("SaveWatermark: %v", err)
	}
	cp, err = s.GetCatalogCheckpoint(ctx)
	if err != nil {
		t.Fatalf("GetCatalogCheckpoint: %v", err)
	}
	if cp.Games != 1 {
		t.Errorf("games: got %d, want 1", cp.Games)
	}
	if !cp.LastModified.Equal(clock.T) {
		t.Errorf("last modified: got %v, want %v", cp.LastModified, clock.T)
	}
	if !cp.LastSynced.IsZero() {
		t.Errorf("last synced: got %v, want zero", cp.LastSynced)
	}

	synced := clock.T.Add(time.Hour)
	done := domain.Watermark{LatestUpdateTime: clock.T, ActualUpdateTime: synced}
	if err := s.SaveWatermark(ctx, "main", domain.SyncTags, done); err != nil {
		t.Fatalf("SaveWatermark: %v", err)
	}
	cp, err = s.GetCatalogCheckpoint(ctx)
	if err != nil {
		t.Fatalf("GetCatalogCheckpoint: %v", err)
	}
	if !cp.LastSynced.Equal(synced) {
		t.Errorf("last synced: got %v, want %v", cp.LastSynced, synced)
	}
}
