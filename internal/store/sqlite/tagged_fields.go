package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// cacheExprSQL recomputes both denormalized caches of the game row being updated
// from its join tables and current primary aliases.
const cacheExprSQL = `
	tags_str = COALESCE((
		SELECT group_concat(a.name, '; ' ORDER BY gt.position, gt.tag_id)
		FROM game_tag gt
		JOIN tag t ON t.id = gt.tag_id
		JOIN tag_alias a ON a.id = t.primary_alias_id
		WHERE gt.game_id = game.id), ''),
	platforms_str = COALESCE((
		SELECT group_concat(a.name, '; ' ORDER BY gp.position, gp.platform_id)
		FROM game_platform gp
		JOIN platform p ON p.id = gp.platform_id
		JOIN platform_alias a ON a.id = p.primary_alias_id
		WHERE gp.game_id = game.id), '')`

// rebuildGameCaches recomputes tags_str and platforms_str for the given games.
// The caches are derived data, so dateModified is left alone.
func (s *Store) rebuildGameCaches(ctx context.Context, q querier, gameIDs []string) error {
	for start := 0; start < len(gameIDs); start += batchSize {
		end := min(start+batchSize, len(gameIDs))
		chunk := gameIDs[start:end]
		_, err := q.ExecContext(ctx,
			`UPDATE game SET `+cacheExprSQL+` WHERE id IN (`+placeholders(len(chunk))+`)`,
			stringArgs(chunk)...)
		if err != nil {
			return fmt.Errorf("rebuild game caches: %w", err)
		}
	}
	return nil
}

// RebuildTaggedFields recomputes the tag and platform caches of every game.
// Returns the number of rows updated.
func (s *Store) RebuildTaggedFields(ctx context.Context) (int, error) {
	var n int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE game SET `+cacheExprSQL)
		if err != nil {
			return fmt.Errorf("rebuild tagged fields: %w", err)
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("rebuilt tagged fields", "games", n)
	return int(n), nil
}
