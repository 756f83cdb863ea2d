package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// SearchParams configures a note query.
type SearchParams struct {
	OwnerID string // required; results never include other owners' notes
	Query   string
	TagUUID string // optional exact tag filter

	Limit  int
	Offset int

	SortBy string // "relevance" (default) or "recent"
}

// DefaultLimit applies when SearchParams.Limit is not positive.
const DefaultLimit = 20

// SearchResult is one page of matches.
type SearchResult struct {
	Query  string
	Total  uint64
	TookMs int64
	Hits   []SearchHit
}

// SearchHit is one matching note.
type SearchHit struct {
	ID        string // note uuid
	Score     float64
	Highlight string
}

// Search runs params against the index.
func (s *SearchIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	if params.OwnerID == "" {
		return nil, fmt.Errorf("search: owner is required")
	}
	if params.Limit <= 0 {
		params.Limit = DefaultLimit
	}
	if params.Offset < 0 {
		params.Offset = 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(buildSearchQuery(params), params.Limit, params.Offset, false)
	if params.SortBy == "recent" {
		req.SortBy([]string{"-created", "_id"})
	} else {
		req.SortBy([]string{"-_score", "-created"})
	}
	req.Highlight = bleve.NewHighlight()
	req.Highlight.AddField("text")

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		Query:  params.Query,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]SearchHit, 0, len(res.Hits)),
	}
	for _, hit := range res.Hits {
		h := SearchHit{ID: hit.ID, Score: hit.Score}
		if fragments := hit.Fragments["text"]; len(fragments) > 0 {
			h.Highlight = fragments[0]
		}
		result.Hits = append(result.Hits, h)
	}
	return result, nil
}

// buildSearchQuery scopes to the owner and optional tag, then matches text
// by stemmed terms, with fuzzy and prefix fallbacks for typos and typing.
func buildSearchQuery(params SearchParams) query.Query {
	owner := bleve.NewTermQuery(params.OwnerID)
	owner.SetField("owner_id")
	queries := []query.Query{owner}

	if params.TagUUID != "" {
		tag := bleve.NewTermQuery(params.TagUUID)
		tag.SetField("tags")
		queries = append(queries, tag)
	}

	if q := strings.TrimSpace(params.Query); q != "" {
		match := bleve.NewMatchQuery(q)
		match.SetField("text")
		match.SetBoost(3.0)

		text := []query.Query{match}
		if !strings.ContainsAny(q, " \t") {
			fuzzy := bleve.NewFuzzyQuery(strings.ToLower(q))
			fuzzy.SetField("text")
			fuzzy.SetFuzziness(1)
			fuzzy.SetBoost(0.8)
			text = append(text, fuzzy)

			if len(q) >= 2 {
				prefix := bleve.NewPrefixQuery(strings.ToLower(q))
				prefix.SetField("text")
				prefix.SetBoost(0.5)
				text = append(text, prefix)
			}
		}
		queries = append(queries, bleve.NewDisjunctionQuery(text...))
	}

	return bleve.NewConjunctionQuery(queries...)
}
