package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/playlore/playlore-server/internal/domain"
)

// GetWatermarks returns the stored watermarks of a metadata source. Kinds never synced
// are absent from the map.
func (s *Store) GetWatermarks(ctx context.Context, source string) (map[domain.SyncKind]domain.Watermark, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, latest_update_time, actual_update_time
		FROM sync_watermark WHERE source = ?`, source)
	if err != nil {
		return nil, fmt.Errorf("query watermarks: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.SyncKind]domain.Watermark)
	for rows.Next() {
		var kind, latest, actual string
		if err := rows.Scan(&kind, &latest, &actual); err != nil {
			return nil, fmt.Errorf("scan watermark: %w", err)
		}
		var w domain.Watermark
		if w.LatestUpdateTime, err = parseTime(latest); err != nil {
			return nil, fmt.Errorf("parse watermark: %w", err)
		}
		if w.ActualUpdateTime, err = parseTime(actual); err != nil {
			return nil, fmt.Errorf("parse watermark: %w", err)
		}
		out[domain.SyncKind(kind)] = w
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// SaveWatermark stores the watermark of one (source, kind) pair.
func (s *Store) SaveWatermark(ctx context.Context, source string, kind domain.SyncKind, w domain.Watermark) error {
	return s.saveWatermark(ctx, s.db, source, kind, w)
}

func (s *Store) saveWatermark(ctx context.Context, q querier, source string, kind domain.SyncKind, w domain.Watermark) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO sync_watermark (source, kind, latest_update_time, actual_update_time)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(source, kind) DO UPDATE SET
			latest_update_time = excluded.latest_update_time,
			actual_update_time = excluded.actual_update_time`,
		source, string(kind), formatTime(w.LatestUpdateTime), formatTime(w.ActualUpdateTime))
	if err != nil {
		return fmt.Errorf("save watermark: %w", err)
	}
	return nil
}

// LoadSource fills the watermarks of a source descriptor from the database.
func (s *Store) LoadSource(ctx context.Context, src *domain.MetadataSource) error {
	w, err := s.GetWatermarks(ctx, src.Name)
	if err != nil {
		return err
	}
	src.Watermarks = w
	return nil
}

// Now returns the store clock's current time.
func (s *Store) Now() time.Time {
	return s.now()
}
