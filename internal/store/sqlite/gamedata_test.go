package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/playlore/playlore-server/internal/domain"
	domainerrors "github.com/playlore/playlore-server/internal/errors"
	"github.com/playlore/playlore-server/internal/store"
)

func TestSaveGameData_RejectsOnDiskWithoutPath(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	g := mustSaveGame(t, s, "Alpha", "arcade")
	err := s.SaveGameData(ctx, &domain.GameData{GameID: g.ID, PresentOnDisk: true})
	if !errors.Is(err, domainerrors.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestSaveGameData_UnknownGame(t *testing.T) {
	s := newTestStore(t)

	err := s.SaveGameData(context.Background(), &domain.GameData{GameID: "missing"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestActiveGameDataMirror(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	g := mustSaveGame(t, s, "Alpha", "arcade")
	d := &domain.GameData{GameID: g.ID, Title: "Alpha v1", SHA256: "abc", Size: 42}
	if err := s.SaveGameData(ctx, d); err != nil {
		t.Fatalf("SaveGameData: %v", err)
	}
	if err := s.SetActiveGameData(ctx, g.ID, &d.ID); err != nil {
		t.Fatalf("SetActiveGameData: %v", err)
	}

	onDisk := func() bool {
		t.Helper()
		got, err := s.FindGame(ctx, g.ID)
		if err != nil {
			t.Fatalf("FindGame: %v", err)
		}
		return got.ActiveDataOnDisk
	}

	if onDisk() {
		t.Error("expected not on disk before install")
	}

	installed, err := s.InstallGameData(ctx, d.ID, "Games/alpha.zip")
	if err != nil {
		t.Fatalf("InstallGameData: %v", err)
	}
	if !installed.PresentOnDisk || installed.Path == nil {
		t.Errorf("expected installed data, got %+v", installed)
	}
	if !onDisk() {
		t.Error("expected game to mirror installed active data")
	}

	uninstalled, err := s.UninstallGameData(ctx, d.ID)
	if err != nil {
		t.Fatalf("UninstallGameData: %v", err)
	}
	if uninstalled.PresentOnDisk || uninstalled.Path != nil {
		t.Errorf("expected uninstalled data, got %+v", uninstalled)
	}
	if onDisk() {
		t.Error("expected game to mirror uninstalled active data")
	}
}

func TestSetActiveGameData_ForeignData(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := mustSaveGame(t, s, "A", "arcade")
	b := mustSaveGame(t, s, "B", "arcade")
	d := &domain.GameData{GameID: b.ID}
	if err := s.SaveGameData(ctx, d); err != nil {
		t.Fatalf("SaveGameData: %v", err)
	}

	err := s.SetActiveGameData(ctx, a.ID, &d.ID)
	if !errors.Is(err, domainerrors.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestDeleteGameData_ClearsActiveReference(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	g := mustSaveGame(t, s, "Alpha", "arcade")
	d := &domain.GameData{GameID: g.ID}
	if err := s.SaveGameData(ctx, d); err != nil {
		t.Fatalf("SaveGameData: %v", err)
	}
	if _, err := s.InstallGameData(ctx, d.ID, "Games/alpha.zip"); err != nil {
		t.Fatalf("InstallGameData: %v", err)
	}
	if err := s.SetActiveGameData(ctx, g.ID, &d.ID); err != nil {
		t.Fatalf("SetActiveGameData: %v", err)
	}

	if err := s.DeleteGameData(ctx, d.ID); err != nil {
		t.Fatalf("DeleteGameData: %v", err)
	}

	got, err := s.FindGame(ctx, g.ID)
	if err != nil {
		t.Fatalf("FindGame: %v", err)
	}
	if got.ActiveDataID != nil {
		t.Errorf("expected active data cleared, got %v", *got.ActiveDataID)
	}
	if got.ActiveDataOnDisk {
		t.Error("expected ActiveDataOnDisk false")
	}
	if _, err := s.GetGameData(ctx, d.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected data to be gone, got %v", err)
	}
}
