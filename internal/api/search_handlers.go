package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/n1k0r/librenotes-server/internal/service"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchNotes",
		Method:      http.MethodGet,
		Path:        "/api/v1/notes/search",
		Summary:     "Search notes",
		Description: "Full-text search over the caller's live notes. Returns 503 when search is disabled.",
		Tags:        []string{"Notes", "Search"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSearchNotes)
}

// SearchNotesInput contains parameters for note search.
type SearchNotesInput struct {
	Authorization string `header:"Authorization"`
	Query         string `query:"q" doc:"Search query"`
	Tag           string `query:"tag" doc:"Only notes carrying this tag UUID"`
	Sort          string `query:"sort" enum:"relevance,recent" doc:"Sort order, relevance by default"`
	Limit         int    `query:"limit" minimum:"0" maximum:"100" doc:"Page size, 20 when zero"`
	Offset        int    `query:"offset" minimum:"0" doc:"Hits to skip"`
}

// SearchHitResponse is one matching note.
type SearchHitResponse struct {
	Note      NoteResponse `json:"note" doc:"Matching note"`
	Score     float64      `json:"score" doc:"Relevance score"`
	Highlight string       `json:"highlight,omitempty" doc:"Text fragment with the match marked"`
}

// SearchNotesResponse contains one page of hits.
type SearchNotesResponse struct {
	Query  string              `json:"query" doc:"Normalized query"`
	Total  uint64              `json:"total" doc:"Total matches across all pages"`
	TookMs int64               `json:"took_ms" doc:"Search time in milliseconds"`
	Hits   []SearchHitResponse `json:"hits" doc:"Matching notes"`
}

// SearchNotesOutput wraps the search response for Huma.
type SearchNotesOutput struct {
	Body SearchNotesResponse
}

func (s *Server) handleSearchNotes(ctx context.Context, input *SearchNotesInput) (*SearchNotesOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Search.SearchNotes(ctx, userID, service.SearchNotesRequest{
		Query:  input.Query,
		Tag:    input.Tag,
		Sort:   input.Sort,
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return nil, err
	}

	resp := SearchNotesResponse{
		Query:  result.Query,
		Total:  result.Total,
		TookMs: result.TookMs,
		Hits:   make([]SearchHitResponse, len(result.Hits)),
	}
	for i, hit := range result.Hits {
		resp.Hits[i] = SearchHitResponse{
			Note:      newNoteResponse(hit.Note),
			Score:     hit.Score,
			Highlight: hit.Highlight,
		}
	}
	return &SearchNotesOutput{Body: resp}, nil
}
