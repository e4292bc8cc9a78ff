package backup

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/playlore/playlore-server/internal/domain"
	"github.com/playlore/playlore-server/internal/store"
)

// exportPageSize is the number of games loaded per page during an export.
const exportPageSize = 500

// BackupService manages catalog exports and tag vocabularies.
type BackupService struct {
	store     store.Store
	backupDir string
	version   string
	logger    *slog.Logger
}

// NewBackupService creates a BackupService.
func NewBackupService(s store.Store, backupDir, version string, logger *slog.Logger) *BackupService {
	return &BackupService{
		store:     s,
		backupDir: backupDir,
		version:   version,
		logger:    logger,
	}
}

// Create writes a backup archive of the whole catalog.
func (s *BackupService) Create(ctx context.Context, opts BackupOptions) (*BackupResult, error) {
	start := time.Now()

	if err := os.MkdirAll(s.backupDir, 0o750); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}

	outputPath := opts.OutputPath
	if outputPath == "" {
		timestamp := s.store.Now().Format("2006-01-02-150405")
		outputPath = filepath.Join(s.backupDir, "backup-"+timestamp+archiveSuffix)
	}

	s.logger.Info("creating backup", "output", outputPath)

	// Write to temp file, rename on success.
	tmpPath := outputPath + ".tmp"
	f, err := os.Create(tmpPath) //#nosec G304 -- Backup path is operator configuration
	if err != nil {
		return nil, fmt.Errorf("create backup file: %w", err)
	}
	defer os.Remove(tmpPath)
	defer f.Close()

	hash := sha256.New()
	manifest, err := s.ExportDatabase(ctx, io.MultiWriter(f, hash))
	if err != nil {
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		return nil, fmt.Errorf("rename backup: %w", err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return nil, fmt.Errorf("stat backup: %w", err)
	}

	result := &BackupResult{
		Path:     outputPath,
		Size:     info.Size(),
		Counts:   manifest.Counts,
		Duration: time.Since(start),
		Checksum: hex.EncodeToString(hash.Sum(nil)),
	}
	s.logger.Info("backup complete",
		"path", result.Path,
		"size", result.Size,
		"games", result.Counts.Games,
		"duration", result.Duration,
		"checksum", result.Checksum)
	return result, nil
}

// ExportDatabase streams the catalog to w as a zip archive of JSONL files. Games are
// read in id order one page at a time, so memory use does not grow with the catalog.
func (s *BackupService) ExportDatabase(ctx context.Context, w io.Writer) (*Manifest, error) {
	zw := zip.NewWriter(w)

	manifest := &Manifest{
		Version:         FormatVersion,
		CreatedAt:       s.store.Now(),
		PlayloreVersion: s.version,
	}
	counts := &manifest.Counts

	steps := []struct {
		name string
		fn   func(context.Context, *zip.Writer, *EntityCounts) error
	}{
		{"categories", s.exportCategories},
		{"tags", s.exportTags},
		{"platforms", s.exportPlatforms},
		{"games", s.exportGames},
		{"playlists", s.exportPlaylists},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := step.fn(ctx, zw, counts); err != nil {
			return nil, fmt.Errorf("export %s: %w", step.name, err)
		}
	}

	// Manifest last, it carries the final counts.
	mw, err := zw.Create(manifestFile)
	if err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	if err := json.NewEncoder(mw).Encode(manifest); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return manifest, nil
}

func (s *BackupService) exportCategories(ctx context.Context, zw *zip.Writer, counts *EntityCounts) error {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return err
	}
	return writeRecords(zw, categoriesFile, categories, &counts.Categories)
}

func (s *BackupService) exportTags(ctx context.Context, zw *zip.Writer, counts *EntityCounts) error {
	tags, err := s.store.ListTags(ctx)
	if err != nil {
		return err
	}
	return writeRecords(zw, tagsFile, tags, &counts.Tags)
}

func (s *BackupService) exportPlatforms(ctx context.Context, zw *zip.Writer, counts *EntityCounts) error {
	platforms, err := s.store.ListPlatforms(ctx)
	if err != nil {
		return err
	}
	return writeRecords(zw, platformsFile, platforms, &counts.Platforms)
}

func (s *BackupService) exportGames(ctx context.Context, zw *zip.Writer, counts *EntityCounts) error {
	w, err := newRecordWriter[*domain.Game](zw, gamesFile)
	if err != nil {
		return err
	}

	params := store.PaginationParams{Limit: exportPageSize}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := s.store.FindAllGamesPaged(ctx, params)
		if err != nil {
			return err
		}
		for _, g := range page.Items {
			if err := w.write(g); err != nil {
				return err
			}
			counts.AddApps += len(g.AddApps)
			counts.GameData += len(g.Data)
		}
		if !page.HasMore {
			break
		}
		params.AfterID = page.LastID
	}
	counts.Games = w.n
	return nil
}

func (s *BackupService) exportPlaylists(ctx context.Context, zw *zip.Writer, counts *EntityCounts) error {
	summaries, err := s.store.ListPlaylists(ctx)
	if err != nil {
		return err
	}
	playlists := make([]*domain.Playlist, 0, len(summaries))
	for _, p := range summaries {
		full, err := s.store.GetPlaylist(ctx, p.ID)
		if err != nil {
			return err
		}
		playlists = append(playlists, full)
	}
	return writeRecords(zw, playlistsFile, playlists, &counts.Playlists)
}

// Validate reopens a backup archive and checks its entity files against the manifest.
func (s *BackupService) Validate(ctx context.Context, path string) (*ValidationResult, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrBackupNotFound
		}
		return nil, fmt.Errorf("open backup: %w", err)
	}
	defer zr.Close()

	manifest, err := readManifest(zr)
	if err != nil {
		return nil, err
	}

	result := &ValidationResult{Manifest: manifest}
	files := []struct {
		path     string
		expected int
		actual   *int
	}{
		{categoriesFile, manifest.Counts.Categories, &result.Actual.Categories},
		{tagsFile, manifest.Counts.Tags, &result.Actual.Tags},
		{platformsFile, manifest.Counts.Platforms, &result.Actual.Platforms},
		{gamesFile, manifest.Counts.Games, &result.Actual.Games},
		{playlistsFile, manifest.Counts.Playlists, &result.Actual.Playlists},
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := countRecords(zr, f.path)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		*f.actual = n
		if n != f.expected {
			result.Errors = append(result.Errors,
				fmt.Sprintf("%s: manifest lists %d records, archive holds %d", f.path, f.expected, n))
		}
	}
	result.Valid = len(result.Errors) == 0
	return result, nil
}

func readManifest(zr *zip.ReadCloser) (*Manifest, error) {
	rc, err := zr.Open(manifestFile)
	if err != nil {
		return nil, ErrInvalidManifest
	}
	defer rc.Close()

	var m Manifest
	if err := json.NewDecoder(rc).Decode(&m); err != nil {
		return nil, ErrInvalidManifest.WithCause(err)
	}
	major, _, _ := strings.Cut(m.Version, ".")
	wantMajor, _, _ := strings.Cut(FormatVersion, ".")
	if major != wantMajor {
		return nil, ErrVersionMismatch.WithDetails(map[string]string{"version": m.Version})
	}
	return &m, nil
}

// List returns all available backups, newest first.
func (s *BackupService) List(ctx context.Context) ([]BackupInfo, error) {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var backups []BackupInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), archiveSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, BackupInfo{
			ID:        strings.TrimSuffix(entry.Name(), archiveSuffix),
			Path:      filepath.Join(s.backupDir, entry.Name()),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

// Delete removes a backup.
func (s *BackupService) Delete(ctx context.Context, id string) error {
	path := s.GetPath(id)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return ErrBackupNotFound
		}
		return err
	}
	return os.Remove(path)
}

// GetPath returns the file path for a backup ID.
func (s *BackupService) GetPath(id string) string {
	return filepath.Join(s.backupDir, filepath.Base(id)+archiveSuffix)
}
