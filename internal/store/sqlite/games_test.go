package sqlite

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/playlore/playlore-server/internal/domain"
	"github.com/playlore/playlore-server/internal/store"
)

func makeTestGame(title string) *domain.Game {
	return &domain.Game{
		Title:           title,
		AlternateTitles: title + " Alt",
		Series:          "Series",
		Developer:       "Dev Studio",
		Publisher:       "Pub House",
		PlayMode:        "Single Player",
		Status:          "Playable",
		Notes:           "notes",
		Source:          "web",
		ApplicationPath: "FPSoftware\\Flash\\flashplayer.exe",
		LaunchCommand:   "http://example.com/" + title + ".swf",
		ReleaseDate:     "2007-05-01",
		Version:         "1.0",
		Language:        "en",
		Library:         "arcade",
		Extreme:         false,
		Tags:            []string{"Action", "Puzzle"},
		Platforms:       []string{"Flash"},
		AddApps: []domain.AdditionalApp{
			{Name: "Extras", ApplicationPath: ":extras:", LaunchCommand: "extras", WaitForExit: true},
		},
	}
}

func TestSaveAndFindGame_RoundTrip(t *testing.T) {
	s, clock := newTestStoreWithClock(t)
	ctx := context.Background()

	g := makeTestGame("Élite Runner")
	if err := s.SaveGame(ctx, g); err != nil {
		t.Fatalf("SaveGame: %v", err)
	}
	if g.ID == "" {
		t.Fatal("expected SaveGame to assign an id")
	}
	if g.OrderTitle != "elite runner" {
		t.Errorf("OrderTitle: got %q, want %q", g.OrderTitle, "elite runner")
	}
	if g.TagsStr != "Action; Puzzle" {
		t.Errorf("TagsStr: got %q", g.TagsStr)
	}
	if g.PlatformsStr != "Flash" {
		t.Errorf("PlatformsStr: got %q", g.PlatformsStr)
	}

	got, err := s.FindGame(ctx, g.ID)
	if err != nil {
		t.Fatalf("FindGame: %v", err)
	}
	if !got.DateModified.Equal(clock.T) {
		t.Errorf("DateModified: got %v, want %v", got.DateModified, clock.T)
	}
	if !got.DateAdded.Equal(g.DateAdded) {
		t.Errorf("DateAdded: got %v, want %v", got.DateAdded, g.DateAdded)
	}

	want := *g
	have := *got
	want.Timestamps, have.Timestamps = domain.Timestamps{}, domain.Timestamps{}
	if !reflect.DeepEqual(want, have) {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", have, want)
	}
}

func TestSaveGame_KeepsDateAddedAndMovesDateModified(t *testing.T) {
	s, clock := newTestStoreWithClock(t)
	ctx := context.Background()

	g := makeTestGame("Alpha")
	if err := s.SaveGame(ctx, g); err != nil {
		t.Fatalf("SaveGame: %v", err)
	}
	added := g.DateAdded
	before := g.DateModified

	clock.Advance(time.Hour)
	g.Title = "Alpha Remastered"
	g.DateAdded = time.Time{}
	if err := s.SaveGame(ctx, g); err != nil {
		t.Fatalf("SaveGame: %v", err)
	}

	got, err := s.FindGame(ctx, g.ID)
	if err != nil {
		t.Fatalf("FindGame: %v", err)
	}
	if !got.DateAdded.Equal(added) {
		t.Errorf("DateAdded changed: got %v, want %v", got.DateAdded, added)
	}
	if got.DateModified.Before(before) || !got.DateModified.Equal(clock.T) {
		t.Errorf("DateModified: got %v, want %v", got.DateModified, clock.T)
	}
	if got.OrderTitle != "alpha remastered" {
		t.Errorf("OrderTitle: got %q", got.OrderTitle)
	}
}

func TestSaveGame_CollapsesAliasesOfSameTag(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tag, err := s.CreateTag(ctx, "Platformer", "")
	if err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	if _, err := s.AddTagAlias(ctx, tag.ID, "Jump and Run"); err != nil {
		t.Fatalf("AddTagAlias: %v", err)
	}

	g := makeTestGame("Alpha")
	g.Tags = []string{"jump and run", "PLATFORMER"}
	if err := s.SaveGame(ctx, g); err != nil {
		t.Fatalf("SaveGame: %v", err)
	}
	if !reflect.DeepEqual(g.Tags, []string{"Platformer"}) {
		t.Errorf("Tags: got %v, want [Platformer]", g.Tags)
	}
	if g.TagsStr != "Platformer" {
		t.Errorf("TagsStr: got %q", g.TagsStr)
	}
}

func TestFindGame_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.FindGame(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFindGames_KeepsInputOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := mustSaveGame(t, s, "A", "arcade")
	b := mustSaveGame(t, s, "B", "arcade")
	c := mustSaveGame(t, s, "C", "arcade")

	games, err := s.FindGames(ctx, []string{c.ID, "missing", a.ID, b.ID})
	if err != nil {
		t.Fatalf("FindGames: %v", err)
	}
	var ids []string
	for _, g := range games {
		ids = append(ids, g.ID)
	}
	want := []string{c.ID, a.ID, b.ID}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("ids: got %v, want %v", ids, want)
	}
}

func TestUpdateGames_AllOrNothing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	good := makeTestGame("Good")
	bad := makeTestGame("Bad")
	bad.AddApps = []domain.AdditionalApp{
		{ID: "dup", Name: "One"},
		{ID: "dup", Name: "Two"},
	}

	if err := s.UpdateGames(ctx, []*domain.Game{good, bad}); err == nil {
		t.Fatal("expected UpdateGames to fail")
	}

	n, err := s.CountGames(ctx)
	if err != nil {
		t.Fatalf("CountGames: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no games after failed bulk update, got %d", n)
	}
	if _, err := s.ResolveTag(ctx, "Action"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected tag created in failed update to be rolled back, got %v", err)
	}
}

func TestUpdateGames_FailureLeavesCallerGamesUntouched(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	saved := mustSaveGame(t, s, "The Saved One", "arcade", "Action")
	modified, orderTitle := saved.DateModified, saved.OrderTitle
	saved.Title = "A Renamed One"

	bad := makeTestGame("Bad")
	bad.AddApps = []domain.AdditionalApp{
		{Name: "One"},
		{ID: "dup", Name: "Two"},
		{ID: "dup", Name: "Three"},
	}

	if err := s.UpdateGames(ctx, []*domain.Game{saved, bad}); err == nil {
		t.Fatal("expected UpdateGames to fail")
	}

	if !saved.DateModified.Equal(modified) {
		t.Errorf("DateModified changed on rollback: %v -> %v", modified, saved.DateModified)
	}
	if saved.OrderTitle != orderTitle {
		t.Errorf("OrderTitle changed on rollback: %q", saved.OrderTitle)
	}
	if bad.ID != "" {
		t.Errorf("expected no id assigned on rollback, got %q", bad.ID)
	}
	if !bad.DateAdded.IsZero() || !bad.DateModified.IsZero() || bad.OrderTitle != "" {
		t.Errorf("expected no derived fields on rollback, got %+v", bad.Timestamps)
	}
	if bad.AddApps[0].ID != "" {
		t.Errorf("expected add app id untouched, got %q", bad.AddApps[0].ID)
	}

	stored, err := s.FindGame(ctx, saved.ID)
	if err != nil {
		t.Fatalf("FindGame: %v", err)
	}
	if stored.Title != "The Saved One" {
		t.Errorf("stored title: got %q", stored.Title)
	}
}

func TestUpdateGames_RebuildsCaches(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := mustSaveGame(t, s, "A", "arcade", "Action")
	b := mustSaveGame(t, s, "B", "arcade", "Puzzle")

	a.Tags = []string{"Puzzle"}
	b.Tags = []string{"Action", "Puzzle"}
	if err := s.UpdateGames(ctx, []*domain.Game{a, b}); err != nil {
		t.Fatalf("UpdateGames: %v", err)
	}

	games, err := s.FindGames(ctx, []string{a.ID, b.ID})
	if err != nil {
		t.Fatalf("FindGames: %v", err)
	}
	if games[0].TagsStr != "Puzzle" {
		t.Errorf("A TagsStr: got %q", games[0].TagsStr)
	}
	if games[1].TagsStr != "Action; Puzzle" {
		t.Errorf("B TagsStr: got %q", games[1].TagsStr)
	}
}

func TestRemoveGame_CascadesAndKeepsTags(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	g := makeTestGame("Alpha")
	if err := s.SaveGame(ctx, g); err != nil {
		t.Fatalf("SaveGame: %v", err)
	}
	if err := s.SaveGameData(ctx, &domain.GameData{GameID: g.ID, Title: "Alpha"}); err != nil {
		t.Fatalf("SaveGameData: %v", err)
	}
	pl := &domain.Playlist{Title: "Favorites"}
	if err := s.CreatePlaylist(ctx, pl); err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}
	if _, err := s.AddPlaylistGame(ctx, pl.ID, g.ID, ""); err != nil {
		t.Fatalf("AddPlaylistGame: %v", err)
	}

	if err := s.RemoveGame(ctx, g.ID); err != nil {
		t.Fatalf("RemoveGame: %v", err)
	}

	if _, err := s.FindGame(ctx, g.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected game to be gone, got %v", err)
	}
	for _, table := range []string{"additional_app", "game_data", "playlist_game", "game_tag", "game_platform"} {
		var n int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if n != 0 {
			t.Errorf("%s: expected 0 rows, got %d", table, n)
		}
	}
	if _, err := s.ResolveTag(ctx, "Action"); err != nil {
		t.Errorf("expected shared tag to survive: %v", err)
	}

	if err := s.RemoveGame(ctx, g.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound removing twice, got %v", err)
	}
}

func TestDistinctValues(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, dev := range []string{"Alpha Dev; beta dev", "alpha dev", ""} {
		g := makeTestGame("Game " + dev)
		g.Developer = dev
		if err := s.SaveGame(ctx, g); err != nil {
			t.Fatalf("SaveGame: %v", err)
		}
	}

	got, err := s.DistinctValues(ctx, "developer", true)
	if err != nil {
		t.Fatalf("DistinctValues: %v", err)
	}
	want := []string{"alpha dev", "beta dev"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	if _, err := s.DistinctValues(ctx, "launchCommand", true); err == nil {
		t.Error("expected error for field without suggestions")
	}
}

func TestFindAllGamesPaged(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, title := range []string{"A", "B", "C"} {
		mustSaveGame(t, s, title, "arcade")
	}

	first, err := s.FindAllGamesPaged(ctx, store.PaginationParams{Limit: 2})
	if err != nil {
		t.Fatalf("FindAllGamesPaged: %v", err)
	}
	if len(first.Items) != 2 || !first.HasMore {
		t.Fatalf("first page: got %d items, has_more=%v", len(first.Items), first.HasMore)
	}
	if first.Items[0].ID >= first.Items[1].ID {
		t.Error("expected items in id order")
	}

	second, err := s.FindAllGamesPaged(ctx, store.PaginationParams{Limit: 2, AfterID: first.LastID})
	if err != nil {
		t.Fatalf("FindAllGamesPaged: %v", err)
	}
	if len(second.Items) != 1 || second.HasMore {
		t.Fatalf("second page: got %d items, has_more=%v", len(second.Items), second.HasMore)
	}
	if second.Items[0].ID <= first.LastID {
		t.Error("expected second page after the first")
	}
}

func TestDuplicateGame_Deep(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	g := makeTestGame("Alpha")
	if err := s.SaveGame(ctx, g); err != nil {
		t.Fatalf("SaveGame: %v", err)
	}
	d := &domain.GameData{GameID: g.ID, Title: "Alpha"}
	if err := s.SaveGameData(ctx, d); err != nil {
		t.Fatalf("SaveGameData: %v", err)
	}
	if _, err := s.InstallGameData(ctx, d.ID, "Games/alpha.zip"); err != nil {
		t.Fatalf("InstallGameData: %v", err)
	}
	if err := s.SetActiveGameData(ctx, g.ID, &d.ID); err != nil {
		t.Fatalf("SetActiveGameData: %v", err)
	}

	dup, err := s.DuplicateGame(ctx, g.ID, true)
	if err != nil {
		t.Fatalf("DuplicateGame: %v", err)
	}
	if dup.ID == g.ID {
		t.Fatal("expected a new id")
	}
	if dup.AddApps[0].ID == g.AddApps[0].ID {
		t.Error("expected new additional app ids")
	}

	got, err := s.FindGame(ctx, dup.ID)
	if err != nil {
		t.Fatalf("FindGame: %v", err)
	}
	if len(got.Data) != 1 {
		t.Fatalf("expected 1 copied data row, got %d", len(got.Data))
	}
	if got.Data[0].ID == d.ID || got.Data[0].Path != nil || got.Data[0].PresentOnDisk {
		t.Errorf("expected copied data to be a new, uninstalled row: %+v", got.Data[0])
	}
	if got.ActiveDataID == nil || *got.ActiveDataID != got.Data[0].ID {
		t.Errorf("expected active data to point at the copy, got %v", got.ActiveDataID)
	}
	if got.ActiveDataOnDisk {
		t.Error("expected copy not to be on disk")
	}
	if !reflect.DeepEqual(got.Tags, g.Tags) {
		t.Errorf("Tags: got %v, want %v", got.Tags, g.Tags)
	}
}

func TestNukeTags(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustSaveGame(t, s, "A", "arcade", "Gore")
	mustSaveGame(t, s, "B", "arcade", "Puzzle")
	mustSaveGame(t, s, "C", "arcade", "Puzzle", "Gore")

	n, err := s.NukeTags(ctx, []string{"gore", "unknown"})
	if err != nil {
		t.Fatalf("NukeTags: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 games removed, got %d", n)
	}
	count, err := s.CountGames(ctx)
	if err != nil {
		t.Fatalf("CountGames: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 game left, got %d", count)
	}
}

func TestRebuildTaggedFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	g := mustSaveGame(t, s, "A", "arcade", "Action")
	if _, err := s.db.Exec(`UPDATE game SET tags_str = 'stale'`); err != nil {
		t.Fatalf("corrupt cache: %v", err)
	}

	n, err := s.RebuildTaggedFields(ctx)
	if err != nil {
		t.Fatalf("RebuildTaggedFields: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 row, got %d", n)
	}
	got, err := s.FindGame(ctx, g.ID)
	if err != nil {
		t.Fatalf("FindGame: %v", err)
	}
	if got.TagsStr != "Action" {
		t.Errorf("TagsStr: got %q", got.TagsStr)
	}
}
