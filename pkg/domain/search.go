package domain

// Sort orders accepted by SearchRequest.SortOrder.
const (
	SortAsc  = "ASC"
	SortDesc = "DESC"
)

// Fields that a SearchRequest may sort on.
const (
	FieldID                     = "id"
	FieldEpisodeID              = "episodeId"
	FieldStartMs                = "startMs"
	FieldEndMs                  = "endMs"
	FieldText                   = "text"
	FieldEpisodePublishedUnixMs = "episodePublishedUnixMs"
)

// SearchRequest is the single internal request type every invocation shape
// (GET query params, POST JSON body, direct call) normalizes into.
type SearchRequest struct {
	Query           string   `json:"query"`
	Limit           int      `json:"limit,omitempty"`
	Offset          int      `json:"offset,omitempty"`
	SearchFields    []string `json:"fields,omitempty"`
	SortBy          string   `json:"sortBy,omitempty"`
	SortOrder       string   `json:"sortOrder,omitempty"`
	EpisodeIDs      []string `json:"episodeIds,omitempty"`
	ForceRefresh    bool     `json:"forceRefreshDBFileDownload,omitempty"`
	HealthCheckOnly bool     `json:"isHealthCheckOnly,omitempty"`
}

// Hit is one search result: the stored entry plus an optional highlighted
// rendering of its text.
type Hit struct {
	SearchEntry
	Highlight string `json:"highlight,omitempty"`
}

// SearchResponse is the wire response shape. Field names are part of the
// client contract and must not change.
type SearchResponse struct {
	Hits             []Hit  `json:"hits"`
	TotalHits        int    `json:"totalHits"`
	ProcessingTimeMs int64  `json:"processingTimeMs"`
	Query            string `json:"query"`
	SortBy           string `json:"sortBy,omitempty"`
	SortOrder        string `json:"sortOrder,omitempty"`
}
