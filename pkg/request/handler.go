package request

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"podcast-search/pkg/domain"
	"podcast-search/pkg/indexcache"
	"podcast-search/pkg/query"
)

// Handler exposes the query engine over HTTP. GET and POST carry real
// requests; OPTIONS preflights are answered before any index work happens.
type Handler struct {
	engine *query.Engine
}

func NewHandler(engine *query.Engine) *Handler {
	return &Handler{engine: engine}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	// Preflight carries no query and must never pay for a cold start.
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var (
		req domain.SearchRequest
		err error
	)
	switch r.Method {
	case http.MethodGet:
		req, err = FromQueryParams(r.URL.Query())
	case http.MethodPost:
		req, err = FromJSONBody(r.Body)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.engine.Handle(r.Context(), req)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			log.Printf("search request failed: %v", err)
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// statusFor maps the error taxonomy onto HTTP statuses: request-level
// problems are the caller's fault, everything touching the index artifact is
// the service's.
func statusFor(err error) int {
	var execErr *query.ExecutionError
	if errors.As(err, &execErr) {
		return http.StatusBadRequest
	}
	if errors.Is(err, indexcache.ErrIndexNotFound) {
		return http.StatusInternalServerError
	}
	var loadErr *indexcache.LoadError
	if errors.As(err, &loadErr) {
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
