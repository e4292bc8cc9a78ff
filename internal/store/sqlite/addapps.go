package sqlite

import (
	"context"
	"fmt"

	"github.com/playlore/playlore-server/internal/domain"
	"github.com/playlore/playlore-server/internal/id"
)

// addAppColumns must match the scan order in loadAddApps.
const addAppColumns = `id, game_id, name, application_path, launch_command, auto_run_before, wait_for_exit`

// replaceAddApps replaces every additional app of g. Apps without an id get one.
func (s *Store) replaceAddApps(ctx context.Context, q querier, g *domain.Game) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM additional_app WHERE game_id = ?`, g.ID); err != nil {
		return fmt.Errorf("clear additional apps: %w", err)
	}

	for i := range g.AddApps {
		app := &g.AddApps[i]
		if app.ID == "" {
			app.ID = id.NewGameID()
		}
		app.GameID = g.ID

		_, err := q.ExecContext(ctx, `
			INSERT INTO additional_app (`+addAppColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			app.ID,
			app.GameID,
			app.Name,
			app.ApplicationPath,
			app.LaunchCommand,
			boolToInt(app.AutoRunBefore),
			boolToInt(app.WaitForExit),
		)
		if err != nil {
			return fmt.Errorf("insert additional app: %w", err)
		}
	}
	return nil
}

// loadAddApps returns additional apps grouped by game id in insertion order.
func (s *Store) loadAddApps(ctx context.Context, q querier, gameIDs []string) (map[string][]domain.AdditionalApp, error) {
	out := make(map[string][]domain.AdditionalApp)
	for start := 0; start < len(gameIDs); start += batchSize {
		end := min(start+batchSize, len(gameIDs))
		chunk := gameIDs[start:end]

		rows, err := q.QueryContext(ctx, `
			SELECT `+addAppColumns+` FROM additional_app
			WHERE game_id IN (`+placeholders(len(chunk))+`)
			ORDER BY rowid`, stringArgs(chunk)...)
		if err != nil {
			return nil, fmt.Errorf("query additional apps: %w", err)
		}
		for rows.Next() {
			var (
				app           domain.AdditionalApp
				autoRunBefore int
				waitForExit   int
			)
			if err := rows.Scan(
				&app.ID,
				&app.GameID,
				&app.Name,
				&app.ApplicationPath,
				&app.LaunchCommand,
				&autoRunBefore,
				&waitForExit,
			); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan additional app: %w", err)
			}
			app.AutoRunBefore = autoRunBefore != 0
			app.WaitForExit = waitForExit != 0
			out[app.GameID] = append(out[app.GameID], app)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("rows iteration: %w", err)
		}
	}
	return out, nil
}
