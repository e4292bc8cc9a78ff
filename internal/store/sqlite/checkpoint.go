package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/playlore/playlore-server/internal/domain"
	"github.com/playlore/playlore-server/internal/store"
)

// GetCatalogCheckpoint reads the game count, the newest local modification and the
// newest sync completion in one statement. Watermarks reset to the epoch by a full sync
// do not count as a completion.
func (s *Store) GetCatalogCheckpoint(ctx context.Context) (store.CatalogCheckpoint, error) {
	var (
		cp               store.CatalogCheckpoint
		modified, synced sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM game),
			MAX(
				COALESCE((SELECT MAX(date_modified) FROM game), ''),
				COALESCE((SELECT MAX(date_modified) FROM tag), ''),
				COALESCE((SELECT MAX(date_modified) FROM platform), '')
			),
			(SELECT MAX(actual_update_time) FROM sync_watermark WHERE actual_update_time > ?)`,
		formatTime(domain.Epoch)).Scan(&cp.Games, &modified, &synced)
	if err != nil {
		return cp, fmt.Errorf("query catalog checkpoint: %w", err)
	}

	if cp.LastModified, err = checkpointTime(modified); err != nil {
		return cp, err
	}
	if cp.LastSynced, err = checkpointTime(synced); err != nil {
		return cp, err
	}
	return cp, nil
}

func checkpointTime(v sql.NullString) (time.Time, error) {
	if !v.Valid || v.String == "" {
		return time.Time{}, nil
	}
	t, err := parseTime(v.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse checkpoint time: %w", err)
	}
	return t, nil
}
