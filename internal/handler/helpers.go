package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/pxr-io/block-gateway/internal/model"
)

// writeJSON serializes v as JSON and writes it to the response with the given
// HTTP status code. The Content-Type header is set to application/json.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes the standard gateway error envelope.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, model.ErrorResponse{Status: status, Message: message})
}

// queryIntPtr extracts an optional integer query parameter. A missing
// parameter yields nil; a present but unparsable one yields an error.
func queryIntPtr(r *http.Request, key string) (*int, error) {
	val := r.URL.Query().Get(key)
	if val == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
