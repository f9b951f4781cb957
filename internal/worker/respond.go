package worker

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/memkeep/memkeep/pkg/models"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps the error taxonomy onto status codes: a missing
// record is 404, anything else is a storage fault surfaced as 500 and
// logged, never swallowed.
func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, models.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	log.Error().Err(err).Msg("Store operation failed")
	writeError(w, http.StatusInternalServerError, "storage failure")
}

// parseLimit clamps the limit parameter to [1,100]; any absent or
// invalid value falls back to the default.
func parseLimit(r *http.Request) int {
	return parseLimitDefault(r, defaultLimit)
}

// parseLimitDefault is parseLimit with a caller-supplied fallback, for
// routes whose default row count is configurable.
func parseLimitDefault(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if n < 1 {
		return 1
	}
	if n > maxLimit {
		return maxLimit
	}
	return n
}

// parseSince reads the optional since parameter as unix milliseconds.
// Returns 0 (no lower bound) when absent or invalid.
func parseSince(r *http.Request) int64 {
	raw := r.URL.Query().Get("since")
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func decodeBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
