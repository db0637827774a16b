package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hunthq/treasurehunt/internal/hunt"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeEngineError maps engine and store errors to HTTP statuses. Domain
// rejections keep their message — every error here is displayable to the
// invoking surface.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, hunt.ErrBadPayload):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, hunt.ErrHintLimit),
		errors.Is(err, hunt.ErrIndexMismatch),
		errors.Is(err, hunt.ErrAlreadyFinalized),
		errors.Is(err, hunt.ErrGameCompleted):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
