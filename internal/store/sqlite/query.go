package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/playlore/playlore-server/internal/domain"
	domainerrors "github.com/playlore/playlore-server/internal/errors"
	"github.com/playlore/playlore-server/internal/filter"
	"github.com/playlore/playlore-server/internal/metrics"
	"github.com/playlore/playlore-server/internal/store"
)

// Cache key prefixes. The compiled filter key already encodes filter and ordering.
const (
	cacheKeyset = "keyset:"
	cacheTotal  = "total:"
	cacheRank   = "rank:"
)

// QueryKeyset returns the boundary of every page of pageSize records in the filtered,
// ordered view, plus the total match count. Results are cached until the next mutation.
func (s *Store) QueryKeyset(ctx context.Context, c *filter.Compiled, pageSize int) (*store.Keyset, error) {
	if pageSize <= 0 {
		return nil, domainerrors.Validationf("page size must be positive, got %d", pageSize)
	}

	key := cacheKeyset + c.Key + ":" + strconv.Itoa(pageSize)
	if v, ok := s.cacheGet("keyset", key); ok {
		return cloneKeyset(v.(*store.Keyset)), nil
	}
	gen := s.cache.Generation()

	// Identical keyset requests racing on a cold cache share one query. The query is
	// detached from the caller that started it; each caller stops waiting when its own
	// context ends.
	ch := s.keysets.DoChan(key+"@"+strconv.FormatUint(gen, 10), func() (any, error) {
		if s.beforeKeysetScan != nil {
			s.beforeKeysetScan()
		}
		ks, err := s.scanKeyset(context.WithoutCancel(ctx), c, pageSize)
		if err != nil {
			return nil, err
		}
		s.cache.Put(key, gen, ks)
		s.cache.Put(cacheTotal+c.Key, gen, ks.Total)
		return ks, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return cloneKeyset(res.Val.(*store.Keyset)), nil
	}
}

func (s *Store) scanKeyset(ctx context.Context, c *filter.Compiled, pageSize int) (*store.Keyset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT order_value, id, total FROM (
			SELECT `+c.OrderColumn+` AS order_value, g.id AS id,
				ROW_NUMBER() OVER (ORDER BY `+c.OrderBy()+`) AS rn,
				COUNT(*) OVER () AS total
			FROM game g WHERE `+c.Where+`
		) WHERE (rn - 1) % ? = 0
		ORDER BY rn`, append(slices.Clone(c.Args), pageSize)...)
	if err != nil {
		return nil, fmt.Errorf("query keyset: %w", err)
	}
	defer rows.Close()

	ks := &store.Keyset{Boundaries: []store.Boundary{}}
	for rows.Next() {
		var b store.Boundary
		if err := rows.Scan(&b.OrderValue, &b.ID, &ks.Total); err != nil {
			return nil, fmt.Errorf("scan keyset: %w", err)
		}
		ks.Boundaries = append(ks.Boundaries, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return ks, nil
}

func (s *Store) cacheGet(kind, key string) (any, bool) {
	v, ok := s.cache.Get(key)
	metrics.CacheLookup(kind, ok)
	return v, ok
}

func cloneKeyset(ks *store.Keyset) *store.Keyset {
	return &store.Keyset{Boundaries: slices.Clone(ks.Boundaries), Total: ks.Total}
}

// CountFiltered returns the number of games matching the compiled filter.
func (s *Store) CountFiltered(ctx context.Context, c *filter.Compiled) (int, error) {
	key := cacheTotal + c.Key
	if v, ok := s.cacheGet("total", key); ok {
		return v.(int), nil
	}
	gen := s.cache.Generation()

	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM game g WHERE `+c.Where, c.Args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count games: %w", err)
	}
	s.cache.Put(key, gen, n)
	return n, nil
}

// QueryPage returns up to pageSize games starting at boundary (inclusive) in the
// filtered, ordered view. A nil boundary starts at the first record.
func (s *Store) QueryPage(ctx context.Context, c *filter.Compiled, boundary *store.Boundary, pageSize int, shallow bool) ([]*domain.Game, error) {
	if pageSize <= 0 {
		return nil, domainerrors.Validationf("page size must be positive, got %d", pageSize)
	}

	where := c.Where
	args := slices.Clone(c.Args)
	if boundary != nil {
		cond, seekArgs := c.Seek(boundary.OrderValue, boundary.ID)
		where = "(" + where + ") AND " + cond
		args = append(args, seekArgs...)
	}
	args = append(args, pageSize)

	games, err := s.queryGames(ctx, s.db,
		`SELECT `+gameColumns+` FROM game g WHERE `+where+` ORDER BY `+c.OrderBy()+` LIMIT ?`,
		args...)
	if err != nil {
		return nil, err
	}
	if err := s.loadRelations(ctx, s.db, games, rangeRelations(shallow)); err != nil {
		return nil, err
	}
	return orEmpty(games), nil
}

// QueryRange returns the games at each [start, end) window of the filtered, ordered
// view. All windows are read from one snapshot.
func (s *Store) QueryRange(ctx context.Context, c *filter.Compiled, ranges []store.Range, shallow bool) ([][]*domain.Game, error) {
	for _, r := range ranges {
		if r.Start < 0 || r.End < r.Start {
			return nil, domainerrors.Validationf("invalid range [%d, %d)", r.Start, r.End)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	out := make([][]*domain.Game, len(ranges))
	for i, r := range ranges {
		if r.Len() == 0 {
			out[i] = []*domain.Game{}
			continue
		}
		games, err := s.queryGames(ctx, tx,
			`SELECT `+gameColumns+` FROM game g WHERE `+c.Where+`
			ORDER BY `+c.OrderBy()+` LIMIT ? OFFSET ?`,
			append(slices.Clone(c.Args), r.Len(), r.Start)...)
		if err != nil {
			return nil, err
		}
		if err := s.loadRelations(ctx, tx, games, rangeRelations(shallow)); err != nil {
			return nil, err
		}
		out[i] = orEmpty(games)
	}
	return out, nil
}

// rangeRelations selects the relations loaded for browse results. Game data is only
// loaded on a full fetch.
func rangeRelations(shallow bool) relations {
	if shallow {
		return relShallow
	}
	return relNames | relAddApps
}

// QueryRowIndex returns the 1-based position of a game in the filtered, ordered view.
// NotFound when the game does not match the filter.
func (s *Store) QueryRowIndex(ctx context.Context, c *filter.Compiled, gameID string) (int, error) {
	key := cacheRank + c.Key + ":" + gameID
	if v, ok := s.cacheGet("rank", key); ok {
		return v.(int), nil
	}
	gen := s.cache.Generation()

	var rank int
	err := s.db.QueryRowContext(ctx, `
		SELECT rn FROM (
			SELECT g.id AS id, ROW_NUMBER() OVER (ORDER BY `+c.OrderBy()+`) AS rn
			FROM game g WHERE `+c.Where+`
		) WHERE id = ?`, append(slices.Clone(c.Args), gameID)...).Scan(&rank)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domainerrors.NotFoundf("game %s is not in the view", gameID)
	}
	if err != nil {
		return 0, fmt.Errorf("query row index: %w", err)
	}

	s.cache.Put(key, gen, rank)
	return rank, nil
}

// RandomSample returns up to count games matching the compiled filter, chosen uniformly.
// Fewer matches than count returns them all; count <= 0 returns none.
func (s *Store) RandomSample(ctx context.Context, c *filter.Compiled, count int) ([]*domain.Game, error) {
	if count <= 0 {
		return []*domain.Game{}, nil
	}

	games, err := s.queryGames(ctx, s.db,
		`SELECT `+gameColumns+` FROM game g WHERE `+c.Where+` ORDER BY RANDOM() LIMIT ?`,
		append(slices.Clone(c.Args), count)...)
	if err != nil {
		return nil, err
	}
	if err := s.loadRelations(ctx, s.db, games, relNames); err != nil {
		return nil, err
	}
	return orEmpty(games), nil
}

func orEmpty(games []*domain.Game) []*domain.Game {
	if games == nil {
		return []*domain.Game{}
	}
	return games
}
