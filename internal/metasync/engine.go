package metasync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/playlore/playlore-server/internal/domain"
	domainerrors "github.com/playlore/playlore-server/internal/errors"
	"github.com/playlore/playlore-server/internal/id"
	"github.com/playlore/playlore-server/internal/metrics"
	"github.com/playlore/playlore-server/internal/store"
)

// DefaultBatchSize is the number of games requested per batch.
const DefaultBatchSize = 2500

// Engine runs sync passes against a catalog store.
// An Engine does not serialize runs; callers keep one run per source at a time.
type Engine struct {
	store     Store
	clock     store.Clock
	logger    *slog.Logger
	batchSize int
}

// Option configures an Engine.
type Option func(*Engine)

// WithBatchSize sets the number of games requested per batch.
func WithBatchSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithClock sets the clock used for actual update times.
func WithClock(c store.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// NewEngine creates a sync engine writing to s.
func NewEngine(s Store, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:     s,
		clock:     store.SystemClock{},
		logger:    logger,
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunOptions controls one sync run.
type RunOptions struct {
	// RunID identifies the run in logs and progress; generated when empty.
	RunID string
	// Tagged limits the run to platforms and tags.
	Tagged bool
	// OnProgress receives progress snapshots.
	OnProgress ProgressFunc
}

// BatchFailure describes the game batch that stopped a run.
type BatchFailure struct {
	Batch     int    `json:"batch"`
	Cursor    string `json:"cursor,omitempty"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable"`
	Error     string `json:"error"`
}

// Result summarizes a sync run. Watermarks holds the watermarks as stored after the run.
type Result struct {
	RunID      string                               `json:"run_id"`
	Source     string                               `json:"source"`
	Full       bool                                 `json:"full"`
	Tagged     bool                                 `json:"tagged"`
	Platforms  domain.ApplyStats                    `json:"platforms"`
	Tags       domain.ApplyStats                    `json:"tags"`
	Games      domain.ApplyStats                    `json:"games"`
	Batches    int                                  `json:"batches"`
	Watermarks map[domain.SyncKind]domain.Watermark `json:"watermarks"`
	Failure    *BatchFailure                        `json:"failure,omitempty"`
	Cancelled  bool                                 `json:"cancelled"`
	StartedAt  time.Time                            `json:"started_at"`
	Elapsed    time.Duration                        `json:"elapsed"`
	Progress   Progress                             `json:"progress"`
}

// run carries the state of one pass.
type run struct {
	res      *Result
	src      domain.MetadataSource
	remote   Source
	started  time.Time
	progress *progressTracker
	logger   *slog.Logger
}

// after returns the lower bound for a kind. A full resync starts at the epoch.
func (r *run) after(kind domain.SyncKind) time.Time {
	if r.res.Full {
		return domain.Epoch
	}
	return r.src.Watermark(kind).LatestUpdateTime
}

// Run reconciles the catalog with src. Phases run platforms, tags, then games; with
// opts.Tagged only the first two run. Each phase advances its watermark only after it
// fully succeeded. The result is returned alongside any error, describing what was
// applied before the failure.
func (e *Engine) Run(ctx context.Context, src domain.MetadataSource, remote Source, opts RunOptions) (*Result, error) {
	runID := opts.RunID
	if runID == "" {
		var err error
		if runID, err = id.Generate(id.PrefixSyncRun); err != nil {
			return nil, err
		}
	}

	r := &run{
		res: &Result{
			RunID:  runID,
			Source: src.Name,
			Tagged: opts.Tagged,
		},
		src:      src,
		remote:   remote,
		started:  e.clock.Now(),
		progress: newProgressTracker(runID, src.Name, opts.OnProgress),
		logger:   e.logger.With("run_id", runID, "source", src.Name),
	}
	r.res.StartedAt = r.started

	err := e.run(ctx, r)

	r.res.Elapsed = e.clock.Now().Sub(r.started)
	if wm, werr := e.store.GetWatermarks(context.WithoutCancel(ctx), src.Name); werr == nil {
		r.res.Watermarks = wm
	}
	if err == nil {
		r.progress.finish()
	}
	r.res.Progress = r.progress.snapshot()

	outcome := "success"
	switch {
	case r.res.Cancelled:
		outcome = "cancelled"
	case err != nil:
		outcome = "failed"
	}
	metrics.SyncRun(src.Name, outcome, r.res.Elapsed)

	if err != nil {
		r.logger.Warn("sync run stopped", "outcome", outcome, "error", err)
		return r.res, err
	}
	r.logger.Info("sync run complete",
		"full", r.res.Full,
		"tagged", r.res.Tagged,
		"games_created", r.res.Games.Created,
		"games_updated", r.res.Games.Updated,
		"games_deleted", r.res.Games.Deleted,
		"batches", r.res.Batches,
		"elapsed", r.res.Elapsed)
	return r.res, nil
}

func (e *Engine) run(ctx context.Context, r *run) error {
	if err := e.store.LoadSource(ctx, &r.src); err != nil {
		return fmt.Errorf("load watermarks: %w", err)
	}

	total, err := e.store.CountGames(ctx)
	if err != nil {
		return fmt.Errorf("count games: %w", err)
	}
	r.res.Full = total == 0
	if r.res.Full {
		r.logger.Info("catalog is empty, running a full sync")
		if err := e.resetWatermarks(ctx, r); err != nil {
			return err
		}
	}

	if err := e.syncIdentities(ctx, r, domain.SyncPlatforms); err != nil {
		return err
	}
	if err := e.syncIdentities(ctx, r, domain.SyncTags); err != nil {
		return err
	}
	if r.res.Tagged {
		return nil
	}
	return e.syncGames(ctx, r)
}

// syncIdentities fetches and applies one identity phase in a single transaction.
func (e *Engine) syncIdentities(ctx context.Context, r *run, kind domain.SyncKind) error {
	if err := r.checkCancelled(ctx); err != nil {
		return err
	}
	r.progress.phase(kind)
	after := r.after(kind)

	var (
		changes *domain.IdentityChanges
		err     error
	)
	if kind == domain.SyncPlatforms {
		changes, err = r.remote.PlatformsSince(ctx, after)
	} else {
		changes, err = r.remote.TagsSince(ctx, after)
	}
	if err != nil {
		metrics.SyncBatch(r.src.Name, string(kind), err)
		return fmt.Errorf("fetch %s: %w", kind, err)
	}

	latest := changes.LatestModification()

	var stats domain.ApplyStats
	if kind == domain.SyncPlatforms {
		stats, err = e.store.ApplyPlatformChanges(ctx, changes)
	} else {
		stats, err = e.store.ApplyTagChanges(ctx, changes)
	}
	metrics.SyncBatch(r.src.Name, string(kind), err)
	if err != nil {
		return fmt.Errorf("apply %s: %w", kind, err)
	}

	if kind == domain.SyncPlatforms {
		r.res.Platforms = stats
	} else {
		r.res.Tags = stats
	}
	metrics.SyncRecords(r.src.Name, string(kind), stats.Created, stats.Updated, stats.Deleted, stats.Flagged)

	if err := e.advance(ctx, r, kind, after, latest); err != nil {
		return err
	}
	r.logger.Info("identity phase applied",
		"kind", kind,
		"records", len(changes.Records),
		"deletions", len(changes.Deletions),
		"created", stats.Created,
		"updated", stats.Updated,
		"deleted", stats.Deleted,
		"flagged", stats.Flagged,
		"skipped_aliases", stats.SkippedAliases)
	return nil
}

// syncGames pages through remote game changes, applying each batch in its own
// transaction. The games watermark advances only after every batch succeeded.
func (e *Engine) syncGames(ctx context.Context, r *run) error {
	if err := r.checkCancelled(ctx); err != nil {
		return err
	}
	kind := domain.SyncGames
	r.progress.phase(kind)
	after := r.after(kind)

	count, err := r.remote.CountSince(ctx, kind, after)
	if err != nil {
		return fmt.Errorf("count remote games: %w", err)
	}
	r.progress.expect(expectedBatches(count, e.batchSize))
	r.logger.Info("syncing games", "remote_count", count, "after", after, "batch_size", e.batchSize)

	latest := after
	cursor := ""
	for batch := 1; ; batch++ {
		if err := r.checkCancelled(ctx); err != nil {
			return err
		}

		b, err := r.remote.GamesSince(ctx, after, cursor, e.batchSize)
		if err != nil {
			return r.fail(ctx, batch, cursor, fmt.Errorf("fetch games: %w", err))
		}

		// Applying rewrites dateModified, so read the remote times first.
		if m := b.LatestModification(); m.After(latest) {
			latest = m
		}

		stats, err := e.store.ApplyGameBatch(ctx, b)
		metrics.SyncBatch(r.src.Name, string(kind), err)
		if err != nil {
			return r.fail(ctx, batch, cursor, fmt.Errorf("apply games: %w", err))
		}

		r.res.Games.Add(stats)
		r.res.Batches++
		metrics.SyncRecords(r.src.Name, string(kind), stats.Created, stats.Updated, stats.Deleted, stats.Flagged)
		r.progress.batchDone()
		r.logger.Debug("game batch applied",
			"batch", batch,
			"cursor", cursor,
			"games", len(b.Games),
			"deletions", len(b.Deletions))

		if b.NextCursor == "" {
			break
		}
		cursor = b.NextCursor
	}

	return e.advance(ctx, r, kind, after, latest)
}

// resetWatermarks stores epoch watermarks for every kind the run fetches, so a run that
// fails partway resumes from the epoch instead of from watermarks older than the
// catalog's contents.
func (e *Engine) resetWatermarks(ctx context.Context, r *run) error {
	kinds := domain.SyncKinds
	if r.res.Tagged {
		kinds = []domain.SyncKind{domain.SyncPlatforms, domain.SyncTags}
	}
	w := domain.Watermark{LatestUpdateTime: domain.Epoch, ActualUpdateTime: domain.Epoch}
	for _, kind := range kinds {
		if err := e.store.SaveWatermark(ctx, r.src.Name, kind, w); err != nil {
			return fmt.Errorf("reset %s watermark: %w", kind, err)
		}
		metrics.SyncWatermark(r.src.Name, string(kind), w.LatestUpdateTime)
	}
	return nil
}

// advance stores the watermark of kind after a successful phase.
func (e *Engine) advance(ctx context.Context, r *run, kind domain.SyncKind, after, latest time.Time) error {
	w := domain.Watermark{LatestUpdateTime: after, ActualUpdateTime: r.started}
	if latest.After(w.LatestUpdateTime) {
		w.LatestUpdateTime = latest
	}
	if err := e.store.SaveWatermark(ctx, r.src.Name, kind, w); err != nil {
		return fmt.Errorf("save %s watermark: %w", kind, err)
	}
	metrics.SyncWatermark(r.src.Name, string(kind), w.LatestUpdateTime)
	return nil
}

// checkCancelled reports cancellation observed at a batch boundary.
func (r *run) checkCancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		r.res.Cancelled = true
		return fmt.Errorf("sync cancelled: %w", err)
	}
	return nil
}

// fail records the batch that stopped the run. A fetch aborted by cancellation counts
// as a cancelled run.
func (r *run) fail(ctx context.Context, batch int, cursor string, err error) error {
	if ctx.Err() != nil {
		r.res.Cancelled = true
	}
	r.res.Failure = &BatchFailure{
		Batch:     batch,
		Cursor:    cursor,
		Code:      string(domainerrors.CodeOf(err)),
		Retryable: domainerrors.IsRetryable(err),
		Error:     err.Error(),
	}
	r.logger.Error("game batch failed",
		"batch", batch,
		"cursor", cursor,
		"code", r.res.Failure.Code,
		"retryable", r.res.Failure.Retryable,
		"error", err)
	return fmt.Errorf("batch %d: %w", batch, err)
}

// UpdateInfo reports how many records a sync of a source would fetch per kind.
type UpdateInfo struct {
	Source string                  `json:"source"`
	Full   bool                    `json:"full"`
	Counts map[domain.SyncKind]int `json:"counts"`
	Total  int                     `json:"total"`
}

// PreUpdateInfo asks the remote how many records changed since the stored watermarks.
// The three counts are fetched concurrently.
func (e *Engine) PreUpdateInfo(ctx context.Context, src domain.MetadataSource, remote Source) (*UpdateInfo, error) {
	if err := e.store.LoadSource(ctx, &src); err != nil {
		return nil, fmt.Errorf("load watermarks: %w", err)
	}
	total, err := e.store.CountGames(ctx)
	if err != nil {
		return nil, fmt.Errorf("count games: %w", err)
	}

	info := &UpdateInfo{
		Source: src.Name,
		Full:   total == 0,
		Counts: make(map[domain.SyncKind]int, len(domain.SyncKinds)),
	}

	var (
		p  = pool.New().WithContext(ctx)
		mu sync.Mutex
	)
	for _, kind := range domain.SyncKinds {
		after := src.Watermark(kind).LatestUpdateTime
		if info.Full {
			after = domain.Epoch
		}
		p.Go(func(ctx context.Context) error {
			n, err := remote.CountSince(ctx, kind, after)
			if err != nil {
				return fmt.Errorf("count %s: %w", kind, err)
			}
			mu.Lock()
			info.Counts[kind] = n
			mu.Unlock()
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	for _, n := range info.Counts {
		info.Total += n
	}
	return info, nil
}
