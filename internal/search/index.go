package search

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/google/uuid"

	"github.com/n1k0r/librenotes-server/internal/domain"
	"github.com/n1k0r/librenotes-server/internal/store"
)

// SearchIndex wraps a Bleve index of notes. It is safe for concurrent use;
// Rebuild takes the write lock and blocks everything else while it runs.
type SearchIndex struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
}

var _ store.SearchIndexer = (*SearchIndex)(nil)

// Options configures the search index.
type Options struct {
	DataPath string       // directory holding notes.bleve
	Logger   *slog.Logger // discards when nil
}

// NoteSource yields every live note. Both store engines satisfy it.
type NoteSource interface {
	EachLiveNote(ctx context.Context, fn func(*domain.Note) error) error
}

// mappingVersion changes whenever buildIndexMapping does; a mismatch on
// startup drops the index so it can be refilled from the store.
const mappingVersion = "1"

const batchSize = 500

// NewSearchIndex opens the index under opts.DataPath, creating it when it is
// missing, unreadable or built with an older mapping. The returned bool
// reports whether the index was created empty and needs a Reindex.
func NewSearchIndex(opts Options) (*SearchIndex, bool, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	indexPath := filepath.Join(opts.DataPath, "notes.bleve")
	versionPath := filepath.Join(opts.DataPath, "notes.bleve.version")

	var index bleve.Index
	if _, err := os.Stat(indexPath); err == nil {
		version, readErr := os.ReadFile(versionPath)
		switch {
		case readErr != nil:
			logger.Info("search index has no version file, recreating", "version", mappingVersion)
		case string(version) != mappingVersion:
			logger.Info("search index mapping changed, recreating",
				"old_version", string(version),
				"new_version", mappingVersion,
			)
		default:
			index, err = bleve.Open(indexPath)
			if err != nil {
				logger.Warn("failed to open search index, recreating", "path", indexPath, "error", err)
				index = nil
			}
		}
	}

	if index != nil {
		logger.Info("opened search index", "path", indexPath)
		return &SearchIndex{index: index, path: indexPath, logger: logger}, false, nil
	}

	if err := os.RemoveAll(indexPath); err != nil {
		return nil, false, fmt.Errorf("remove old index: %w", err)
	}
	index, err := bleve.New(indexPath, buildIndexMapping())
	if err != nil {
		return nil, false, fmt.Errorf("create index: %w", err)
	}
	if err := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); err != nil {
		logger.Warn("failed to write search version file", "error", err)
	}
	logger.Info("created search index", "path", indexPath, "mapping_version", mappingVersion)

	return &SearchIndex{index: index, path: indexPath, logger: logger}, true, nil
}

// Close closes the index.
func (s *SearchIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexNote adds or replaces a live note. Tombstones are removed instead.
func (s *SearchIndex) IndexNote(_ context.Context, note *domain.Note) error {
	doc := NoteToDocument(note)
	if doc == nil {
		return s.DeleteDocument(note.UUID.String())
	}
	return s.IndexDocument(doc)
}

// DeleteNote removes a note from the index.
func (s *SearchIndex) DeleteNote(_ context.Context, noteUUID uuid.UUID) error {
	return s.DeleteDocument(noteUUID.String())
}

// IndexDocument indexes a single document.
func (s *SearchIndex) IndexDocument(doc *NoteDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Index(doc.ID, doc.ToMap())
}

// IndexDocuments indexes docs in batches of batchSize.
func (s *SearchIndex) IndexDocuments(docs []*NoteDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexBatches(docs)
}

func (s *SearchIndex) indexBatches(docs []*NoteDocument) error {
	for start := 0; start < len(docs); start += batchSize {
		end := min(start+batchSize, len(docs))

		batch := s.index.NewBatch()
		for _, doc := range docs[start:end] {
			if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.ID, err)
			}
		}
		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", start, end, err)
		}
	}
	return nil
}

// DeleteDocument removes a document. Unknown ids are not an error.
func (s *SearchIndex) DeleteDocument(id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(id)
}

// DocumentCount returns the number of indexed notes.
func (s *SearchIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuild drops the index and refills it from source.
func (s *SearchIndex) Rebuild(ctx context.Context, source NoteSource) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Close(); err != nil {
		return 0, fmt.Errorf("close index: %w", err)
	}
	if err := os.RemoveAll(s.path); err != nil {
		return 0, fmt.Errorf("remove index: %w", err)
	}
	index, err := bleve.New(s.path, buildIndexMapping())
	if err != nil {
		return 0, fmt.Errorf("create index: %w", err)
	}
	s.index = index

	return s.fill(ctx, source)
}

// Reindex indexes every live note from source on top of the current contents.
func (s *SearchIndex) Reindex(ctx context.Context, source NoteSource) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fill(ctx, source)
}

func (s *SearchIndex) fill(ctx context.Context, source NoteSource) (int, error) {
	var docs []*NoteDocument
	if err := source.EachLiveNote(ctx, func(note *domain.Note) error {
		if doc := NoteToDocument(note); doc != nil {
			docs = append(docs, doc)
		}
		return nil
	}); err != nil {
		return 0, fmt.Errorf("load notes: %w", err)
	}

	if err := s.indexBatches(docs); err != nil {
		return 0, err
	}
	s.logger.Info("search index filled", "path", s.path, "notes", len(docs))
	return len(docs), nil
}
