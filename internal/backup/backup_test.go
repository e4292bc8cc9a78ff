package backup_test

import (
	"archive/zip"
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playlore/playlore-server/internal/backup"
	"github.com/playlore/playlore-server/internal/domain"
	domainerrors "github.com/playlore/playlore-server/internal/errors"
	"github.com/playlore/playlore-server/internal/store/sqlite"
)

// testSetup creates a test store and backup service.
func testSetup(t *testing.T) (*sqlite.Store, *backup.BackupService, string) {
	t.Helper()

	tmpDir := t.TempDir()
	backupDir := filepath.Join(tmpDir, "backups")
	logger := slog.New(slog.DiscardHandler)

	s, err := sqlite.Open(filepath.Join(tmpDir, "catalog.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s, backup.NewBackupService(s, backupDir, "test", logger), backupDir
}

func seedCatalog(t *testing.T, s *sqlite.Store) {
	t.Helper()
	ctx := context.Background()

	for i, title := range []string{"Alien Hominid", "Castle Crashers", "Hotel Mystery"} {
		g := &domain.Game{
			Title:     title,
			Library:   "arcade",
			Tags:      []string{"Action"},
			Platforms: []string{"Flash"},
			AddApps:   []domain.AdditionalApp{{Name: "Manual", ApplicationPath: "manual.pdf"}},
		}
		require.NoError(t, s.SaveGame(ctx, g))
		if i == 0 {
			require.NoError(t, s.SaveGameData(ctx, &domain.GameData{GameID: g.ID, Title: title, Size: 10}))
			p := &domain.Playlist{Title: "Favorites", Games: []domain.PlaylistGame{{GameID: g.ID}}}
			require.NoError(t, s.CreatePlaylist(ctx, p))
		}
	}
}

func TestBackupService_CreateAndValidate(t *testing.T) {
	s, svc, backupDir := testSetup(t)
	seedCatalog(t, s)
	ctx := context.Background()

	result, err := svc.Create(ctx, backup.BackupOptions{})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.Path, backupDir))
	assert.NotEmpty(t, result.Checksum)
	assert.Positive(t, result.Size)
	assert.Equal(t, 3, result.Counts.Games)
	assert.Equal(t, 3, result.Counts.AddApps)
	assert.Equal(t, 1, result.Counts.GameData)
	assert.Equal(t, 1, result.Counts.Tags)
	assert.Equal(t, 1, result.Counts.Platforms)
	assert.Equal(t, 1, result.Counts.Playlists)

	validation, err := svc.Validate(ctx, result.Path)
	require.NoError(t, err)
	assert.True(t, validation.Valid, validation.Errors)
	assert.Equal(t, result.Counts.Games, validation.Actual.Games)

	backups, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Equal(t, result.Path, backups[0].Path)

	require.NoError(t, svc.Delete(ctx, backups[0].ID))
	assert.ErrorIs(t, svc.Delete(ctx, backups[0].ID), domainerrors.ErrNotFound)
}

func TestBackupService_ExportDatabaseLayout(t *testing.T) {
	s, svc, _ := testSetup(t)
	seedCatalog(t, s)

	var buf bytes.Buffer
	manifest, err := svc.ExportDatabase(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, backup.FormatVersion, manifest.Version)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{
		"entities/categories.jsonl",
		"entities/tags.jsonl",
		"entities/platforms.jsonl",
		"entities/games.jsonl",
		"entities/playlists.jsonl",
		"manifest.json",
	}, names)
}

func TestBackupService_ValidateMissing(t *testing.T) {
	_, svc, backupDir := testSetup(t)

	_, err := svc.Validate(context.Background(), filepath.Join(backupDir, "nope.playlore.zip"))
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestBackupService_ValidateWithoutManifest(t *testing.T) {
	_, svc, _ := testSetup(t)

	path := filepath.Join(t.TempDir(), "broken.playlore.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = svc.Validate(context.Background(), path)
	assert.ErrorIs(t, err, backup.ErrInvalidManifest)
}

func TestBackupService_TagsRoundTrip(t *testing.T) {
	src, srcSvc, _ := testSetup(t)
	ctx := context.Background()

	tag, err := src.CreateTag(ctx, "Action", "genre")
	require.NoError(t, err)
	_, err = src.AddTagAlias(ctx, tag.ID, "Shooter")
	require.NoError(t, err)
	_, err = src.UpdateTag(ctx, tag.ID, "Fast paced", "genre")
	require.NoError(t, err)

	var buf bytes.Buffer
	doc, err := srcSvc.ExportTags(ctx, &buf)
	require.NoError(t, err)
	require.Len(t, doc.Tags, 1)
	assert.Equal(t, []string{"Action", "Shooter"}, doc.Tags[0].Aliases)

	dst, dstSvc, _ := testSetup(t)
	result, err := dstSvc.ImportTags(ctx, &buf, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.CategoriesCreated)
	assert.Equal(t, 1, result.Created)
	assert.Empty(t, result.Errors)

	imported, err := dst.ResolveTag(ctx, "shooter")
	require.NoError(t, err)
	assert.Equal(t, "Action", imported.PrimaryAlias)
	assert.Equal(t, "genre", imported.Category)
	assert.Equal(t, "Fast paced", imported.Description)
}

func TestBackupService_ImportTagsAddsAliases(t *testing.T) {
	s, svc, _ := testSetup(t)
	ctx := context.Background()

	existing, err := s.CreateTag(ctx, "Action", "")
	require.NoError(t, err)

	doc := `{"categories": [], "tags": [{"aliases": ["Action", " Shooter ", "shooter"], "category": "genre"}]}`
	result, err := svc.ImportTags(ctx, strings.NewReader(doc), false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.AliasesAdded)

	got, err := s.GetTag(ctx, existing.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Action", "Shooter"}, got.AliasNames())
	assert.Equal(t, "genre", got.Category)

	again, err := svc.ImportTags(ctx, strings.NewReader(doc), false)
	require.NoError(t, err)
	assert.Equal(t, 1, again.Unchanged)
}

func TestBackupService_ImportTagsCollision(t *testing.T) {
	s, svc, _ := testSetup(t)
	ctx := context.Background()

	action, err := s.CreateTag(ctx, "Action", "")
	require.NoError(t, err)
	shooter, err := s.CreateTag(ctx, "Shooter", "")
	require.NoError(t, err)

	doc := `{"categories": [], "tags": [{"aliases": ["Action", "Shooter"]}]}`

	result, err := svc.ImportTags(ctx, strings.NewReader(doc), false)
	require.NoError(t, err)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, []string{"Action", "Shooter"}, result.Conflicts[0].Owners)

	_, err = s.GetTag(ctx, shooter.ID)
	require.NoError(t, err, "conflicting tags are left alone without merge")

	result, err = svc.ImportTags(ctx, strings.NewReader(doc), true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Merged)
	assert.Empty(t, result.Conflicts)

	resolved, err := s.ResolveTag(ctx, "Shooter")
	require.NoError(t, err)
	assert.Equal(t, action.ID, resolved.ID)
}

func TestBackupService_ImportTagsRejectsGarbage(t *testing.T) {
	_, svc, _ := testSetup(t)

	_, err := svc.ImportTags(context.Background(), strings.NewReader("not json"), false)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}
