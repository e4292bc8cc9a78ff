package search

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
)

// SearchIndex wraps a Bleve index of game documents.
//
// All public methods are safe for concurrent use. The mutex guards the index handle
// against Rebuild swapping it out.
type SearchIndex struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
}

// Options configures the search index.
type Options struct {
	DataPath string       // Directory for index storage
	Logger   *slog.Logger // Logger for operations (uses discard if nil)
}

// mappingVersion is bumped whenever buildIndexMapping changes; a mismatch on open
// recreates the index.
const mappingVersion = "1"

// NewSearchIndex opens the index under opts.DataPath or creates it. An index that is
// unreadable or was built with another mapping version is removed and recreated empty;
// callers detect that through DocumentCount and reindex from the catalog.
func NewSearchIndex(opts Options) (*SearchIndex, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := os.MkdirAll(opts.DataPath, 0o750); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	s := &SearchIndex{
		path:   filepath.Join(opts.DataPath, "games.bleve"),
		logger: logger,
	}
	versionPath := filepath.Join(opts.DataPath, "games.version")

	reason := s.tryOpen(versionPath)
	if reason == "" {
		logger.Info("opened search index", "path", s.path)
		return s, nil
	}
	if reason != "missing" {
		logger.Info("recreating search index", "path", s.path, "reason", reason)
	}

	if err := s.create(); err != nil {
		return nil, err
	}
	if err := os.WriteFile(versionPath, []byte(mappingVersion), 0o600); err != nil {
		logger.Warn("write search index version", "error", err)
	}
	logger.Info("created search index", "path", s.path, "mapping_version", mappingVersion)
	return s, nil
}

// tryOpen opens an existing index built with the current mapping. It returns why the
// index could not be used, or "" on success.
func (s *SearchIndex) tryOpen(versionPath string) string {
	if _, err := os.Stat(s.path); err != nil {
		return "missing"
	}
	version, err := os.ReadFile(versionPath)
	if err != nil {
		return "no version file"
	}
	if string(version) != mappingVersion {
		return "mapping version " + string(version) + " is stale"
	}
	index, err := bleve.Open(s.path)
	if err != nil {
		return "open failed: " + err.Error()
	}
	s.index = index
	return ""
}

// create replaces whatever is on disk with an empty index.
func (s *SearchIndex) create() error {
	if err := os.RemoveAll(s.path); err != nil {
		return fmt.Errorf("remove index: %w", err)
	}
	index, err := bleve.New(s.path, buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	s.index = index
	return nil
}

// Close closes the index and releases resources.
func (s *SearchIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexDocuments indexes documents in chunked batches.
func (s *SearchIndex) IndexDocuments(docs []*GameDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	const batchSize = 500

	for i := 0; i < len(docs); i += batchSize {
		end := min(i+batchSize, len(docs))

		batch := s.index.NewBatch()
		for _, doc := range docs[i:end] {
			if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.ID, err)
			}
		}
		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

// DeleteDocuments removes documents from the index. Unknown ids are ignored.
func (s *SearchIndex) DeleteDocuments(ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	batch := s.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	return s.index.Batch(batch)
}

// DocumentCount returns the number of indexed documents.
func (s *SearchIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuild drops every document by recreating the index. It blocks all other
// operations while it runs.
func (s *SearchIndex) Rebuild() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if err := s.create(); err != nil {
		return err
	}
	s.logger.Info("rebuilt search index", "path", s.path)
	return nil
}
