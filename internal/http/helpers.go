package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"prestiti/internal/core"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Kind    core.Kind `json:"kind"`
	Message string    `json:"message"`
}

// writeError maps a domain error to a status code and JSON body. Unclassified
// errors become an opaque InternalError; the cause stays in the logs.
func writeError(w http.ResponseWriter, err error, extra map[string]any) {
	kind := core.KindOf(err)
	body := errorBody{Kind: kind, Message: err.Error()}

	status := http.StatusBadRequest
	switch kind {
	case core.KindNotFound:
		status = http.StatusNotFound
	case core.KindInternal:
		status = http.StatusInternalServerError
		body.Message = "An unexpected error occurred."
	}

	payload := map[string]any{"error": body}
	for k, v := range extra {
		payload[k] = v
	}
	writeJSON(w, status, payload)
}

func parseJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}
