package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/foundline/crucible/internal/approval"
	"github.com/foundline/crucible/internal/boundary"
	"github.com/foundline/crucible/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainErr maps the engine's sentinel errors onto their HTTP statuses.
// Conflict, not-found and access-denied are distinct, recoverable client
// errors; a boundary validation failure is a 422 for the batch.
func writeDomainErr(w http.ResponseWriter, err error) {
	var vErr *boundary.ValidationError
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeErr(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrConflict):
		writeErr(w, http.StatusConflict, "request already decided")
	case errors.Is(err, approval.ErrAccessDenied):
		writeErr(w, http.StatusForbidden, "access denied")
	case errors.Is(err, approval.ErrInvalidAction):
		writeErr(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &vErr):
		writeErr(w, http.StatusUnprocessableEntity, vErr.Error())
	default:
		writeErr(w, http.StatusInternalServerError, err.Error())
	}
}
