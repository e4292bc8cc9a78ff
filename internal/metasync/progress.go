package metasync

import (
	"sync"

	"github.com/playlore/playlore-server/internal/domain"
)

// Progress is a snapshot of a running sync.
// Completed counts finished game batches; Total is never below Completed, so Fraction
// stays in [0, 1] and never decreases during a run.
type Progress struct {
	RunID     string          `json:"run_id"`
	Source    string          `json:"source"`
	Phase     domain.SyncKind `json:"phase"`
	Completed int             `json:"completed"`
	Total     int             `json:"total"`
	Fraction  float64         `json:"fraction"`
	Done      bool            `json:"done"`
}

// ProgressFunc receives progress snapshots. It is called from the goroutine running the
// sync and must not block for long.
type ProgressFunc func(Progress)

// progressTracker turns batch completions into monotone progress snapshots.
type progressTracker struct {
	mu       sync.Mutex
	current  Progress
	expected int
	notify   ProgressFunc
}

func newProgressTracker(runID, source string, notify ProgressFunc) *progressTracker {
	return &progressTracker{
		current: Progress{RunID: runID, Source: source, Phase: domain.SyncPlatforms},
		notify:  notify,
	}
}

// expectedBatches returns ceil(count / batchSize).
func expectedBatches(count, batchSize int) int {
	if count <= 0 || batchSize <= 0 {
		return 0
	}
	return (count + batchSize - 1) / batchSize
}

// phase records the start of a phase.
func (t *progressTracker) phase(kind domain.SyncKind) {
	t.update(func(p *Progress) { p.Phase = kind })
}

// expect sets the estimated number of game batches.
func (t *progressTracker) expect(batches int) {
	t.update(func(*Progress) { t.expected = batches })
}

// batchDone records one completed game batch.
func (t *progressTracker) batchDone() {
	t.update(func(p *Progress) { p.Completed++ })
}

// finish marks the run complete.
func (t *progressTracker) finish() {
	t.update(func(p *Progress) { p.Done = true })
}

func (t *progressTracker) snapshot() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

func (t *progressTracker) update(fn func(*Progress)) {
	t.mu.Lock()
	fn(&t.current)
	p := &t.current
	p.Total = max(t.expected, p.Completed, p.Total)
	switch {
	case p.Done:
		p.Total = max(p.Total, 1)
		p.Completed = p.Total
		p.Fraction = 1
	case p.Total > 0:
		p.Fraction = float64(p.Completed) / float64(p.Total)
	}
	snap := *p
	t.mu.Unlock()

	if t.notify != nil {
		t.notify(snap)
	}
}
