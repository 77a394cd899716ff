// Package request normalizes the three invocation shapes the search service
// accepts — GET query parameters, POST JSON bodies, and direct in-process
// calls — into the single internal SearchRequest type.
package request

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"podcast-search/pkg/domain"
)

// URL parameter names. The long refresh name is part of the public API and
// kept verbatim for client compatibility.
const (
	paramQuery           = "query"
	paramLimit           = "limit"
	paramOffset          = "offset"
	paramFields          = "fields"
	paramSortBy          = "sortBy"
	paramSortOrder       = "sortOrder"
	paramEpisodeIDs      = "episodeIds"
	paramForceRefresh    = "forceRefreshDBFileDownload"
	paramHealthCheckOnly = "isHealthCheckOnly"
)

// FromQueryParams builds a SearchRequest from URL query parameters.
// List-valued fields arrive comma-separated.
func FromQueryParams(values url.Values) (domain.SearchRequest, error) {
	req := domain.SearchRequest{
		Query:     values.Get(paramQuery),
		SortBy:    values.Get(paramSortBy),
		SortOrder: values.Get(paramSortOrder),
	}

	var err error
	if req.Limit, err = intParam(values, paramLimit); err != nil {
		return req, err
	}
	if req.Offset, err = intParam(values, paramOffset); err != nil {
		return req, err
	}
	if req.ForceRefresh, err = boolParam(values, paramForceRefresh); err != nil {
		return req, err
	}
	if req.HealthCheckOnly, err = boolParam(values, paramHealthCheckOnly); err != nil {
		return req, err
	}

	req.SearchFields = splitCSV(values.Get(paramFields))
	req.EpisodeIDs = splitCSV(values.Get(paramEpisodeIDs))

	return req, nil
}

// FromJSONBody builds a SearchRequest from a JSON body carrying the same
// field names as the URL parameters, with native types (real arrays, real
// booleans) instead of comma strings.
func FromJSONBody(r io.Reader) (domain.SearchRequest, error) {
	var req domain.SearchRequest
	dec := json.NewDecoder(r)
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("decode request body: %w", err)
	}
	return req, nil
}

// FromDirect wraps a bare query string for in-process callers that predate
// the richer request shape.
func FromDirect(query string) domain.SearchRequest {
	return domain.SearchRequest{Query: query}
}

func intParam(values url.Values, name string) (int, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parameter %s: %q is not an integer", name, raw)
	}
	return n, nil
}

func boolParam(values url.Values, name string) (bool, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("parameter %s: %q is not a boolean", name, raw)
	}
	return b, nil
}

func splitCSV(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
