package sqlite

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/playlore/playlore-server/internal/domain"
	"github.com/playlore/playlore-server/internal/store"
)

func TestPlaylistLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := mustSaveGame(t, s, "A", "arcade")
	b := mustSaveGame(t, s, "B", "theatre")

	pl := &domain.Playlist{Title: "Mixed", Author: "curator"}
	if err := s.CreatePlaylist(ctx, pl); err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}
	if !strings.HasPrefix(pl.ID, "pl-") {
		t.Errorf("expected generated playlist id, got %q", pl.ID)
	}

	if _, err := s.AddPlaylistGame(ctx, pl.ID, b.ID, "second library"); err != nil {
		t.Fatalf("AddPlaylistGame: %v", err)
	}
	entry, err := s.AddPlaylistGame(ctx, pl.ID, a.ID, "")
	if err != nil {
		t.Fatalf("AddPlaylistGame: %v", err)
	}
	if entry.Order != 1 {
		t.Errorf("Order: got %d, want 1", entry.Order)
	}
	if _, err := s.AddPlaylistGame(ctx, pl.ID, a.ID, ""); !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("expected conflict adding a game twice, got %v", err)
	}
	if _, err := s.AddPlaylistGame(ctx, pl.ID, "missing", ""); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected not found for unknown game, got %v", err)
	}

	if err := s.UpdatePlaylistGameNotes(ctx, pl.ID, a.ID, "favorite"); err != nil {
		t.Fatalf("UpdatePlaylistGameNotes: %v", err)
	}

	got, err := s.GetPlaylist(ctx, pl.ID)
	if err != nil {
		t.Fatalf("GetPlaylist: %v", err)
	}
	if len(got.Games) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got.Games))
	}
	if got.Games[0].GameID != b.ID || got.Games[1].GameID != a.ID {
		t.Errorf("entries out of order: %+v", got.Games)
	}
	if got.Games[1].Notes != "favorite" {
		t.Errorf("Notes: got %q", got.Games[1].Notes)
	}

	if err := s.RemovePlaylistGame(ctx, pl.ID, b.ID); err != nil {
		t.Fatalf("RemovePlaylistGame: %v", err)
	}
	if err := s.RemovePlaylistGame(ctx, pl.ID, b.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected not found removing twice, got %v", err)
	}

	list, err := s.ListPlaylists(ctx)
	if err != nil {
		t.Fatalf("ListPlaylists: %v", err)
	}
	if len(list) != 1 || list[0].Games != nil {
		t.Errorf("expected one playlist without entries, got %+v", list)
	}

	if err := s.DeletePlaylist(ctx, pl.ID); err != nil {
		t.Fatalf("DeletePlaylist: %v", err)
	}
	if _, err := s.GetPlaylist(ctx, pl.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected not found after delete, got %v", err)
	}
}
