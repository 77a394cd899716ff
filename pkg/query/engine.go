// Package query parses search requests, executes them against the cached
// index, and assembles responses with filtering, sorting, pagination, and
// highlighting.
package query

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"podcast-search/pkg/domain"
	"podcast-search/pkg/index"
)

// Request defaults.
const (
	DefaultLimit = 10
)

// IndexProvider yields the warm index, loading it on demand. Satisfied by
// indexcache.Cache; tests substitute a stub so Empty/Loading/Warm transitions
// are exercised without a network.
type IndexProvider interface {
	GetOrLoad(ctx context.Context, forceRefresh bool) (*index.Index, error)
}

// Engine answers search requests. All per-request work is a pure function of
// the request and the index, which keeps the engine stateless and
// shard-friendly.
type Engine struct {
	cache IndexProvider
}

func NewEngine(cache IndexProvider) *Engine {
	return &Engine{cache: cache}
}

// Handle runs one request to completion and reports wall-clock processing
// time from receipt to response assembly.
func (e *Engine) Handle(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	start := time.Now()

	// Health checks exist to force the expensive cold start off the critical
	// path of a real user query: warm the cache, return nothing.
	if req.HealthCheckOnly {
		if _, err := e.cache.GetOrLoad(ctx, req.ForceRefresh); err != nil {
			return nil, err
		}
		return &domain.SearchResponse{
			Hits:             []domain.Hit{},
			TotalHits:        0,
			ProcessingTimeMs: time.Since(start).Milliseconds(),
			Query:            req.Query,
		}, nil
	}

	normalized, err := normalize(req)
	if err != nil {
		return nil, err
	}

	ix, err := e.cache.GetOrLoad(ctx, normalized.ForceRefresh)
	if err != nil {
		return nil, err
	}

	hits, total, err := Execute(normalized, ix)
	if err != nil {
		return nil, err
	}

	return &domain.SearchResponse{
		Hits:             hits,
		TotalHits:        total,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		Query:            normalized.Query,
		SortBy:           normalized.SortBy,
		SortOrder:        responseSortOrder(normalized),
	}, nil
}

// Execute runs a normalized request against an index: search, filter, sort,
// paginate, highlight. It is pure, so a future fan-out layer can run it per
// shard and merge.
func Execute(req domain.SearchRequest, ix *index.Index) ([]domain.Hit, int, error) {
	scored, err := ix.Search(req.Query, req.SearchFields)
	if err != nil {
		if errors.Is(err, index.ErrUnknownSearchField) {
			return nil, 0, &ExecutionError{Reason: err.Error()}
		}
		return nil, 0, err
	}

	if len(req.EpisodeIDs) > 0 {
		allowed := make(map[string]bool, len(req.EpisodeIDs))
		for _, id := range req.EpisodeIDs {
			allowed[id] = true
		}
		filtered := scored[:0]
		for _, s := range scored {
			if allowed[s.Entry.EpisodeID] {
				filtered = append(filtered, s)
			}
		}
		scored = filtered
	}

	if req.SortBy != "" {
		if err := sortScored(scored, req.SortBy, req.SortOrder); err != nil {
			return nil, 0, err
		}
	}

	total := len(scored)

	// Pagination after sorting; totalHits counts the pre-pagination set.
	from := req.Offset
	if from > total {
		from = total
	}
	to := from + req.Limit
	if to > total {
		to = total
	}
	page := scored[from:to]

	hits := make([]domain.Hit, 0, len(page))
	for _, s := range page {
		hits = append(hits, domain.Hit{
			SearchEntry: s.Entry,
			Highlight:   Highlight(s.Entry.Text, req.Query),
		})
	}

	return hits, total, nil
}

func normalize(req domain.SearchRequest) (domain.SearchRequest, error) {
	if strings.TrimSpace(req.Query) == "" {
		return req, execErrorf("query is required")
	}
	if req.Limit < 0 {
		return req, execErrorf("limit must not be negative")
	}
	if req.Offset < 0 {
		return req, execErrorf("offset must not be negative")
	}
	if req.Limit == 0 {
		req.Limit = DefaultLimit
	}
	if len(req.SearchFields) == 0 {
		req.SearchFields = []string{domain.FieldText}
	}

	switch strings.ToUpper(req.SortOrder) {
	case "":
		req.SortOrder = domain.SortDesc
	case domain.SortAsc:
		req.SortOrder = domain.SortAsc
	case domain.SortDesc:
		req.SortOrder = domain.SortDesc
	default:
		return req, execErrorf("invalid sort order %q", req.SortOrder)
	}

	return req, nil
}

// sortScored replaces relevance ranking with a stable sort on one entry
// field, ties broken by entry ID so pagination is deterministic.
func sortScored(scored []index.Scored, field, order string) error {
	var less func(a, b index.Scored) bool

	switch field {
	case domain.FieldID:
		less = func(a, b index.Scored) bool { return a.Entry.ID < b.Entry.ID }
	case domain.FieldEpisodeID:
		less = func(a, b index.Scored) bool { return a.Entry.EpisodeID < b.Entry.EpisodeID }
	case domain.FieldStartMs:
		less = func(a, b index.Scored) bool { return a.Entry.StartMs < b.Entry.StartMs }
	case domain.FieldEndMs:
		less = func(a, b index.Scored) bool { return a.Entry.EndMs < b.Entry.EndMs }
	case domain.FieldText:
		less = func(a, b index.Scored) bool { return a.Entry.Text < b.Entry.Text }
	case domain.FieldEpisodePublishedUnixMs:
		less = func(a, b index.Scored) bool { return a.Entry.EpisodePublishedUnixMs < b.Entry.EpisodePublishedUnixMs }
	default:
		return execErrorf("invalid sort field %q", field)
	}

	desc := order == domain.SortDesc
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if less(a, b) != less(b, a) {
			if desc {
				return less(b, a)
			}
			return less(a, b)
		}
		return a.Entry.ID < b.Entry.ID
	})

	return nil
}

func responseSortOrder(req domain.SearchRequest) string {
	if req.SortBy == "" {
		return ""
	}
	return req.SortOrder
}
