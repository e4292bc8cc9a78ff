package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/playlore/playlore-server/internal/domain"
	domainerrors "github.com/playlore/playlore-server/internal/errors"
	"github.com/playlore/playlore-server/internal/id"
	"github.com/playlore/playlore-server/internal/metasync"
)

// SourceFactory builds the remote client for a metadata source.
type SourceFactory func(src domain.MetadataSource) (metasync.Source, error)

// SyncStatus is the polling view of one source.
type SyncStatus struct {
	Source     string                               `json:"source"`
	BaseURL    string                               `json:"base_url"`
	Running    bool                                 `json:"running"`
	Progress   *metasync.Progress                   `json:"progress,omitempty"`
	LastResult *metasync.Result                     `json:"last_result,omitempty"`
	Watermarks map[domain.SyncKind]domain.Watermark `json:"watermarks"`
}

// SyncService runs metadata syncs. At most one run per source is active at a time.
type SyncService struct {
	engine  *metasync.Engine
	store   metasync.Store
	sources []domain.MetadataSource
	factory SourceFactory
	logger  *slog.Logger

	mu       sync.Mutex
	running  map[string]bool
	progress map[string]metasync.Progress
	results  map[string]*metasync.Result
}

// NewSyncService creates a new sync service for the configured sources.
func NewSyncService(engine *metasync.Engine, store metasync.Store, sources []domain.MetadataSource, factory SourceFactory, logger *slog.Logger) *SyncService {
	return &SyncService{
		engine:   engine,
		store:    store,
		sources:  sources,
		factory:  factory,
		logger:   logger,
		running:  make(map[string]bool),
		progress: make(map[string]metasync.Progress),
		results:  make(map[string]*metasync.Result),
	}
}

// Sources returns the configured sources with their stored watermarks.
func (s *SyncService) Sources(ctx context.Context) ([]domain.MetadataSource, error) {
	out := make([]domain.MetadataSource, len(s.sources))
	for i, src := range s.sources {
		if err := s.store.LoadSource(ctx, &src); err != nil {
			return nil, err
		}
		out[i] = src
	}
	return out, nil
}

func (s *SyncService) source(name string) (domain.MetadataSource, error) {
	for _, src := range s.sources {
		if src.Name == name {
			return src, nil
		}
	}
	return domain.MetadataSource{}, domainerrors.NotFoundf("metadata source %q not configured", name)
}

// Run syncs the catalog with the named source. With tagged set only platforms and tags
// are synced. A second run for a source that is already syncing is a conflict.
func (s *SyncService) Run(ctx context.Context, name string, tagged bool) (*metasync.Result, error) {
	src, err := s.source(name)
	if err != nil {
		return nil, err
	}
	remote, err := s.factory(src)
	if err != nil {
		return nil, err
	}

	runID, err := id.Generate(id.PrefixSyncRun)
	if err != nil {
		return nil, err
	}
	if err := s.acquire(name, runID); err != nil {
		return nil, err
	}
	defer s.release(name)

	res, err := s.engine.Run(ctx, src, remote, metasync.RunOptions{
		RunID:  runID,
		Tagged: tagged,
		OnProgress: func(p metasync.Progress) {
			s.mu.Lock()
			s.progress[name] = p
			s.mu.Unlock()
		},
	})
	if res != nil {
		s.mu.Lock()
		s.results[name] = res
		s.mu.Unlock()
	}
	return res, err
}

// Info reports how many records a sync of the named source would fetch.
func (s *SyncService) Info(ctx context.Context, name string) (*metasync.UpdateInfo, error) {
	src, err := s.source(name)
	if err != nil {
		return nil, err
	}
	remote, err := s.factory(src)
	if err != nil {
		return nil, err
	}
	return s.engine.PreUpdateInfo(ctx, src, remote)
}

// Status returns the latest progress and result of the named source.
func (s *SyncService) Status(ctx context.Context, name string) (*SyncStatus, error) {
	src, err := s.source(name)
	if err != nil {
		return nil, err
	}
	wm, err := s.store.GetWatermarks(ctx, name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	status := &SyncStatus{
		Source:     src.Name,
		BaseURL:    src.BaseURL,
		Running:    s.running[name],
		LastResult: s.results[name],
		Watermarks: wm,
	}
	if p, ok := s.progress[name]; ok {
		status.Progress = &p
	}
	return status, nil
}

func (s *SyncService) acquire(name, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[name] {
		return domainerrors.Conflictf("sync of %q is already running", name)
	}
	s.running[name] = true
	s.progress[name] = metasync.Progress{RunID: runID, Source: name, Phase: domain.SyncPlatforms}
	return nil
}

func (s *SyncService) release(name string) {
	s.mu.Lock()
	delete(s.running, name)
	s.mu.Unlock()
}
