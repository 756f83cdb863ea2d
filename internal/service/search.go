package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/n1k0r/librenotes-server/internal/domain"
	domainerrors "github.com/n1k0r/librenotes-server/internal/errors"
	"github.com/n1k0r/librenotes-server/internal/search"
	"github.com/n1k0r/librenotes-server/internal/store"
	"github.com/n1k0r/librenotes-server/internal/validation"
)

// SearchService bridges the bleve note index with the store. The index
// only answers which uuids match; note content always comes from the store.
type SearchService struct {
	index     *search.SearchIndex
	store     store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewSearchService creates a search service. A nil index means search is
// disabled and every query reports Unavailable.
func NewSearchService(index *search.SearchIndex, st store.Store, logger *slog.Logger) *SearchService {
	return &SearchService{
		index:     index,
		store:     st,
		validator: validation.New(),
		logger:    orDiscard(logger),
	}
}

// SearchNotesRequest is a note search over the caller's live notes.
type SearchNotesRequest struct {
	Query  string `json:"q" validate:"required,max=256"`
	Tag    string `json:"tag,omitempty" validate:"omitempty,uuidstr"`
	Sort   string `json:"sort,omitempty" validate:"omitempty,oneof=relevance recent"`
	Limit  int    `json:"limit,omitempty" validate:"gte=0,lte=100"`
	Offset int    `json:"offset,omitempty" validate:"gte=0"`
}

// NoteHit is a matching note with its score.
type NoteHit struct {
	Note      *domain.Note
	Score     float64
	Highlight string
}

// SearchNotesResult is one page of note hits.
type SearchNotesResult struct {
	Query  string
	Total  uint64
	TookMs int64
	Hits   []NoteHit
}

// Enabled reports whether a search index is attached.
func (s *SearchService) Enabled() bool {
	return s.index != nil
}

// SearchNotes runs req against the owner's notes.
func (s *SearchService) SearchNotes(ctx context.Context, ownerID string, req SearchNotesRequest) (*SearchNotesResult, error) {
	if s.index == nil {
		return nil, domainerrors.Unavailable("search is disabled")
	}
	req.Query = strings.TrimSpace(req.Query)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	params := search.SearchParams{
		OwnerID: ownerID,
		Query:   req.Query,
		Limit:   req.Limit,
		Offset:  req.Offset,
		SortBy:  req.Sort,
	}
	if req.Tag != "" {
		params.TagUUID = uuid.MustParse(req.Tag).String()
	}

	res, err := s.index.Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("search notes: %w", err)
	}

	out := &SearchNotesResult{
		Query:  res.Query,
		Total:  res.Total,
		TookMs: res.TookMs,
		Hits:   make([]NoteHit, 0, len(res.Hits)),
	}
	for _, hit := range res.Hits {
		noteUUID, err := uuid.Parse(hit.ID)
		if err != nil {
			s.logger.Warn("search hit with malformed id", "id", hit.ID)
			continue
		}
		note, err := s.store.GetNote(ctx, ownerID, noteUUID)
		if domainerrors.Is(err, store.ErrNotFound) || (err == nil && note.IsTombstone()) {
			// Index lagging behind the store.
			s.logger.Debug("stale search hit", "note_uuid", noteUUID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get note: %w", err)
		}
		out.Hits = append(out.Hits, NoteHit{Note: note, Score: hit.Score, Highlight: hit.Highlight})
	}
	return out, nil
}

// Reindex rebuilds the index from every live note in the store.
func (s *SearchService) Reindex(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, domainerrors.Unavailable("search is disabled")
	}
	s.logger.Info("starting full reindex")
	n, err := s.index.Rebuild(ctx, s.store)
	if err != nil {
		return 0, fmt.Errorf("rebuild index: %w", err)
	}
	return n, nil
}

// DocumentCount returns the number of indexed notes.
func (s *SearchService) DocumentCount() (uint64, error) {
	if s.index == nil {
		return 0, domainerrors.Unavailable("search is disabled")
	}
	return s.index.DocumentCount()
}
