package sqlite

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/playlore/playlore-server/internal/domain"
	"github.com/playlore/playlore-server/internal/store"
)

func TestApplyTagChanges_CreatesAndMerges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	local, err := s.CreateTag(ctx, "Shmup", "")
	if err != nil {
		t.Fatalf("CreateTag: %v", err)
	}

	ch := &domain.IdentityChanges{
		Categories: []domain.RemoteCategory{{Name: "genre", Color: "#ff0000", Description: "Genres"}},
		Records: []domain.RemoteIdentity{
			{Name: "Shoot 'Em Up", Aliases: []string{"Shmup", "STG"}, Description: "Bullets", Category: "genre"},
			{Name: "Puzzle", Category: "genre"},
		},
	}
	stats, err := s.ApplyTagChanges(ctx, ch)
	if err != nil {
		t.Fatalf("ApplyTagChanges: %v", err)
	}
	if stats.Created != 1 || stats.Updated != 1 {
		t.Errorf("stats: got %+v, want 1 created and 1 updated", stats)
	}

	got, err := s.ResolveTag(ctx, "stg")
	if err != nil {
		t.Fatalf("ResolveTag: %v", err)
	}
	if got.ID != local.ID {
		t.Errorf("expected remote record to merge into local tag %d, got %d", local.ID, got.ID)
	}
	if got.Description != "Bullets" {
		t.Errorf("Description: got %q, want remote description", got.Description)
	}
	if got.Category != "genre" {
		t.Errorf("Category: got %q", got.Category)
	}
	names := got.AliasNames()
	slices.Sort(names)
	if !slices.Equal(names, []string{"STG", "Shmup", "Shoot 'Em Up"}) {
		t.Errorf("aliases: got %v", names)
	}

	c, err := s.GetCategoryByName(ctx, "genre")
	if err != nil {
		t.Fatalf("GetCategoryByName: %v", err)
	}
	if c.Color != "#ff0000" || c.Description != "Genres" {
		t.Errorf("category: got %+v", c)
	}
}

func TestApplyTagChanges_SkipsAliasOwnedElsewhere(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateTag(ctx, "Racing", ""); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	if _, err := s.CreateTag(ctx, "Driving", ""); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}

	stats, err := s.ApplyTagChanges(ctx, &domain.IdentityChanges{
		Records: []domain.RemoteIdentity{{Name: "Racing", Aliases: []string{"Driving", "Cars"}}},
	})
	if err != nil {
		t.Fatalf("ApplyTagChanges: %v", err)
	}
	if stats.SkippedAliases != 1 {
		t.Errorf("SkippedAliases: got %d, want 1", stats.SkippedAliases)
	}

	racing, err := s.ResolveTag(ctx, "cars")
	if err != nil {
		t.Fatalf("ResolveTag: %v", err)
	}
	driving, err := s.ResolveTag(ctx, "Driving")
	if err != nil {
		t.Fatalf("ResolveTag: %v", err)
	}
	if racing.ID == driving.ID {
		t.Error("expected colliding alias to stay with its owner")
	}
}

func TestApplyTagChanges_EmptyCategoryKeepsExisting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateTag(ctx, "Action", "genre"); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	if _, err := s.ApplyTagChanges(ctx, &domain.IdentityChanges{
		Records: []domain.RemoteIdentity{{Name: "Action", Description: "Fast"}},
	}); err != nil {
		t.Fatalf("ApplyTagChanges: %v", err)
	}

	got, err := s.ResolveTag(ctx, "Action")
	if err != nil {
		t.Fatalf("ResolveTag: %v", err)
	}
	if got.Category != "genre" {
		t.Errorf("Category: got %q, want genre", got.Category)
	}
}

func TestApplyPlatformChanges_Deletions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.CreatePlatform(ctx, "Shockwave"); err != nil {
		t.Fatalf("CreatePlatform: %v", err)
	}
	mustSaveGame(t, s, "Alpha", "arcade") // attaches Flash

	stats, err := s.ApplyPlatformChanges(ctx, &domain.IdentityChanges{
		Deletions: []string{"Shockwave", "Flash", "Unknown"},
	})
	if err != nil {
		t.Fatalf("ApplyPlatformChanges: %v", err)
	}
	if stats.Deleted != 1 || stats.Flagged != 1 {
		t.Errorf("stats: got %+v, want 1 deleted and 1 flagged", stats)
	}

	if _, err := s.ResolvePlatform(ctx, "Shockwave"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected unused platform deleted, got %v", err)
	}
	flash, err := s.ResolvePlatform(ctx, "Flash")
	if err != nil {
		t.Fatalf("ResolvePlatform: %v", err)
	}
	if !flash.DeletedUpstream {
		t.Error("expected referenced platform to be flagged")
	}

	// Republishing clears the flag.
	if _, err := s.ApplyPlatformChanges(ctx, &domain.IdentityChanges{
		Records: []domain.RemoteIdentity{{Name: "Flash"}},
	}); err != nil {
		t.Fatalf("ApplyPlatformChanges: %v", err)
	}
	flash, err = s.ResolvePlatform(ctx, "Flash")
	if err != nil {
		t.Fatalf("ResolvePlatform: %v", err)
	}
	if flash.DeletedUpstream {
		t.Error("expected flag cleared after republish")
	}
}

func TestApplyGameBatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	local := makeTestGame("Local")
	if err := s.SaveGame(ctx, local); err != nil {
		t.Fatalf("SaveGame: %v", err)
	}
	data := &domain.GameData{GameID: local.ID, Title: "v1", SHA256: "old"}
	if err := s.SaveGameData(ctx, data); err != nil {
		t.Fatalf("SaveGameData: %v", err)
	}
	if _, err := s.InstallGameData(ctx, data.ID, "Games/local.zip"); err != nil {
		t.Fatalf("InstallGameData: %v", err)
	}
	if err := s.SetActiveGameData(ctx, local.ID, &data.ID); err != nil {
		t.Fatalf("SetActiveGameData: %v", err)
	}
	doomed := mustSaveGame(t, s, "Doomed", "arcade")

	remoteModified := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	updated := makeTestGame("Local Renamed")
	updated.ID = local.ID
	updated.DateModified = remoteModified
	updated.Tags = []string{"Adventure"}
	updated.Data = []domain.GameData{{ID: data.ID, Title: "v2", SHA256: "new"}}

	fresh := makeTestGame("Fresh")
	fresh.ID = "a1b2c3d4-0000-0000-0000-000000000001"
	fresh.DateModified = remoteModified.Add(-time.Hour)

	batch := &domain.GameBatch{
		Games:     []*domain.Game{updated, fresh},
		Deletions: []string{doomed.ID, "never-existed"},
	}
	if latest := batch.LatestModification(); !latest.Equal(remoteModified) {
		t.Errorf("LatestModification: got %v", latest)
	}

	stats, err := s.ApplyGameBatch(ctx, batch)
	if err != nil {
		t.Fatalf("ApplyGameBatch: %v", err)
	}
	if stats.Created != 1 || stats.Updated != 1 || stats.Deleted != 1 {
		t.Errorf("stats: got %+v", stats)
	}

	got, err := s.FindGame(ctx, local.ID)
	if err != nil {
		t.Fatalf("FindGame: %v", err)
	}
	if got.Title != "Local Renamed" {
		t.Errorf("Title: got %q", got.Title)
	}
	if !slices.Equal(got.Tags, []string{"Adventure"}) {
		t.Errorf("Tags: got %v", got.Tags)
	}
	if got.ActiveDataID == nil || *got.ActiveDataID != data.ID {
		t.Errorf("expected local active data kept, got %v", got.ActiveDataID)
	}
	if !got.ActiveDataOnDisk {
		t.Error("expected on-disk mirror kept")
	}

	d, err := s.GetGameData(ctx, data.ID)
	if err != nil {
		t.Fatalf("GetGameData: %v", err)
	}
	if d.SHA256 != "new" || d.Title != "v2" {
		t.Errorf("expected remote metadata applied, got %+v", d)
	}
	if !d.PresentOnDisk || d.Path == nil || *d.Path != "Games/local.zip" {
		t.Errorf("expected local path and presence kept, got %+v", d)
	}

	if _, err := s.FindGame(ctx, fresh.ID); err != nil {
		t.Errorf("expected new remote game created: %v", err)
	}
	if _, err := s.FindGame(ctx, doomed.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected deleted game gone, got %v", err)
	}
}

func TestApplyGameBatch_RollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ok := makeTestGame("Fine")
	ok.ID = "a1b2c3d4-0000-0000-0000-000000000002"
	bad := makeTestGame("No ID")

	_, err := s.ApplyGameBatch(ctx, &domain.GameBatch{Games: []*domain.Game{ok, bad}})
	if err == nil {
		t.Fatal("expected error for game without id")
	}
	if _, err := s.FindGame(ctx, ok.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected batch rolled back, got %v", err)
	}
}
