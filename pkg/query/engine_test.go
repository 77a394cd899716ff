package query

import (
	"context"
	"errors"
	"strings"
	"testing"

	"podcast-search/pkg/domain"
	"podcast-search/pkg/index"
)

// stubProvider hands out a pre-built index and records how it was asked.
type stubProvider struct {
	ix          *index.Index
	loads       int
	refreshSeen bool
	failWith    error
}

func (s *stubProvider) GetOrLoad(ctx context.Context, forceRefresh bool) (*index.Index, error) {
	s.loads++
	if forceRefresh {
		s.refreshSeen = true
	}
	if s.failWith != nil {
		return nil, s.failWith
	}
	return s.ix, nil
}

func corpus(t *testing.T) *index.Index {
	t.Helper()

	type doc struct {
		episode   string
		published int64
		text      string
	}
	docs := []doc{
		{"ep1", 1000, "the goalkeeper makes a stunning save in the first half"},
		{"ep2", 3000, "goalkeeper error gifts the away side an opening goal"},
		{"ep3", 2000, "a quiet night for either goalkeeper despite the scoreline"},
		{"ep3", 2000, "the midfield pressing was relentless from kickoff"},
		{"ep4", 4000, "late drama as the goalkeeper comes up for a corner"},
	}

	b := index.NewBuilder()
	starts := map[string]int64{}
	for _, d := range docs {
		start := starts[d.episode]
		starts[d.episode] = start + 20000
		if err := b.Add(domain.SearchEntry{
			ID:                     domain.EntryID(d.episode, start),
			EpisodeID:              d.episode,
			StartMs:                start,
			EndMs:                  start + 19999,
			Text:                   d.text,
			EpisodePublishedUnixMs: d.published,
		}); err != nil {
			t.Fatal(err)
		}
	}
	ix, err := b.Commit()
	if err != nil {
		t.Fatal(err)
	}
	return ix
}

func TestHandle_GoalkeeperSortedByPublishedDesc(t *testing.T) {
	engine := NewEngine(&stubProvider{ix: corpus(t)})

	resp, err := engine.Handle(context.Background(), domain.SearchRequest{
		Query:     "goalkeeper",
		SortBy:    domain.FieldEpisodePublishedUnixMs,
		SortOrder: domain.SortDesc,
		Limit:     3,
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(resp.Hits) > 3 {
		t.Fatalf("got %d hits, want at most 3", len(resp.Hits))
	}
	if resp.TotalHits != 4 {
		t.Errorf("totalHits = %d, want 4", resp.TotalHits)
	}
	for i, h := range resp.Hits {
		if !strings.Contains(h.Text, "goalkeeper") {
			t.Errorf("hit %d text %q lacks query term", i, h.Text)
		}
		if i > 0 && resp.Hits[i-1].EpisodePublishedUnixMs < h.EpisodePublishedUnixMs {
			t.Errorf("hits not sorted descending at %d", i)
		}
	}
	if resp.SortBy != domain.FieldEpisodePublishedUnixMs || resp.SortOrder != domain.SortDesc {
		t.Errorf("response echoes sortBy=%q sortOrder=%q", resp.SortBy, resp.SortOrder)
	}
}

func TestHandle_HealthCheckWarmsCacheAndReturnsEmpty(t *testing.T) {
	provider := &stubProvider{ix: corpus(t)}
	engine := NewEngine(provider)

	resp, err := engine.Handle(context.Background(), domain.SearchRequest{HealthCheckOnly: true})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(resp.Hits) != 0 || resp.TotalHits != 0 {
		t.Errorf("health check returned hits=%d totalHits=%d, want empty", len(resp.Hits), resp.TotalHits)
	}
	if resp.ProcessingTimeMs < 0 {
		t.Errorf("processingTimeMs = %d", resp.ProcessingTimeMs)
	}
	if provider.loads != 1 {
		t.Errorf("health check loaded %d times, want 1", provider.loads)
	}

	// The next real query reuses the warmed provider.
	if _, err := engine.Handle(context.Background(), domain.SearchRequest{Query: "goalkeeper"}); err != nil {
		t.Fatalf("query after health check: %v", err)
	}
	if provider.loads != 2 {
		t.Errorf("loads = %d, want 2", provider.loads)
	}
}

func TestHandle_DefaultsApplied(t *testing.T) {
	engine := NewEngine(&stubProvider{ix: corpus(t)})

	resp, err := engine.Handle(context.Background(), domain.SearchRequest{Query: "goalkeeper"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	// Relevance order, default limit 10, no sort echo.
	if resp.SortBy != "" || resp.SortOrder != "" {
		t.Errorf("unsorted response echoes sortBy=%q sortOrder=%q", resp.SortBy, resp.SortOrder)
	}
	if resp.TotalHits != 4 || len(resp.Hits) != 4 {
		t.Errorf("totalHits=%d hits=%d, want 4/4", resp.TotalHits, len(resp.Hits))
	}
}

func TestHandle_EpisodeFilter(t *testing.T) {
	engine := NewEngine(&stubProvider{ix: corpus(t)})

	resp, err := engine.Handle(context.Background(), domain.SearchRequest{
		Query:      "goalkeeper",
		EpisodeIDs: []string{"ep1", "ep3"},
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if resp.TotalHits != 2 {
		t.Fatalf("totalHits = %d, want 2", resp.TotalHits)
	}
	for _, h := range resp.Hits {
		if h.EpisodeID != "ep1" && h.EpisodeID != "ep3" {
			t.Errorf("hit from unexpected episode %q", h.EpisodeID)
		}
	}
}

func TestHandle_PaginationAfterSorting(t *testing.T) {
	engine := NewEngine(&stubProvider{ix: corpus(t)})

	page1, err := engine.Handle(context.Background(), domain.SearchRequest{
		Query: "goalkeeper", SortBy: domain.FieldEpisodePublishedUnixMs, SortOrder: domain.SortAsc, Limit: 2,
	})
	if err != nil {
		t.Fatal(err)
	}
	page2, err := engine.Handle(context.Background(), domain.SearchRequest{
		Query: "goalkeeper", SortBy: domain.FieldEpisodePublishedUnixMs, SortOrder: domain.SortAsc, Limit: 2, Offset: 2,
	})
	if err != nil {
		t.Fatal(err)
	}

	if page1.TotalHits != 4 || page2.TotalHits != 4 {
		t.Errorf("totalHits independent of pagination: %d, %d", page1.TotalHits, page2.TotalHits)
	}
	if len(page1.Hits) != 2 || len(page2.Hits) != 2 {
		t.Fatalf("page sizes = %d, %d", len(page1.Hits), len(page2.Hits))
	}
	if page1.Hits[1].EpisodePublishedUnixMs > page2.Hits[0].EpisodePublishedUnixMs {
		t.Error("pages out of ascending order across the boundary")
	}

	// Offset past the end yields an empty page, not an error.
	empty, err := engine.Handle(context.Background(), domain.SearchRequest{Query: "goalkeeper", Offset: 100})
	if err != nil {
		t.Fatal(err)
	}
	if len(empty.Hits) != 0 || empty.TotalHits != 4 {
		t.Errorf("past-end page: hits=%d totalHits=%d", len(empty.Hits), empty.TotalHits)
	}
}

func TestHandle_ExecutionErrors(t *testing.T) {
	engine := NewEngine(&stubProvider{ix: corpus(t)})
	ctx := context.Background()

	cases := []domain.SearchRequest{
		{Query: ""},
		{Query: "goalkeeper", SortBy: "publishedAt"},
		{Query: "goalkeeper", SortOrder: "sideways"},
		{Query: "goalkeeper", Limit: -1},
		{Query: "goalkeeper", Offset: -5},
		{Query: "goalkeeper", SearchFields: []string{"transcriptUrl"}},
	}
	for i, req := range cases {
		_, err := engine.Handle(ctx, req)
		var execErr *ExecutionError
		if !errors.As(err, &execErr) {
			t.Errorf("case %d: expected ExecutionError, got %v", i, err)
		}
	}
}

func TestHandle_ProviderFailurePropagates(t *testing.T) {
	wantErr := errors.New("remote storage down")
	engine := NewEngine(&stubProvider{failWith: wantErr})

	_, err := engine.Handle(context.Background(), domain.SearchRequest{Query: "goalkeeper"})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestHandle_ForceRefreshReachesProvider(t *testing.T) {
	provider := &stubProvider{ix: corpus(t)}
	engine := NewEngine(provider)

	if _, err := engine.Handle(context.Background(), domain.SearchRequest{Query: "goalkeeper", ForceRefresh: true}); err != nil {
		t.Fatal(err)
	}
	if !provider.refreshSeen {
		t.Error("forceRefresh flag never reached the index provider")
	}
}

func TestHighlight(t *testing.T) {
	cases := []struct {
		text  string
		query string
		want  string
	}{
		{
			"the goalkeeper makes a save",
			"goalkeeper",
			"the <em>goalkeeper</em> makes a save",
		},
		{
			"Goalkeeper! What a stop",
			"goalkeeper",
			"<em>Goalkeeper</em>! What a stop",
		},
		{
			"a goalless draw",
			"goal",
			"a goalless draw", // whole-word only
		},
		{
			"save after save after save",
			"save",
			"<em>save</em> after <em>save</em> after <em>save</em>",
		},
		{
			"nothing matches here",
			"the of",
			"nothing matches here",
		},
	}

	for _, tc := range cases {
		got := Highlight(tc.text, tc.query)
		if got != tc.want {
			t.Errorf("Highlight(%q, %q) = %q, want %q", tc.text, tc.query, got, tc.want)
		}
	}
}

func TestHandle_HighlightDoesNotMutateStoredText(t *testing.T) {
	engine := NewEngine(&stubProvider{ix: corpus(t)})

	resp, err := engine.Handle(context.Background(), domain.SearchRequest{Query: "goalkeeper", Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Hits) == 0 {
		t.Fatal("expected at least one hit")
	}
	h := resp.Hits[0]
	if strings.Contains(h.Text, "<em>") {
		t.Error("stored text was mutated by highlighting")
	}
	if !strings.Contains(h.Highlight, "<em>goalkeeper</em>") {
		t.Errorf("highlight = %q", h.Highlight)
	}
}
