package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/iconidentify/tweetframe/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{"ok": false, "error": message})
}

// writeDomainError maps the error taxonomy onto HTTP statuses: reference
// parse failures are the caller's fault, upstream unavailability is a bad
// gateway, everything else is internal.
func writeDomainError(w http.ResponseWriter, err error) {
	var refErr *domain.RefError
	switch {
	case errors.As(err, &refErr):
		writeError(w, http.StatusBadRequest, refErr.Error())
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		writeError(w, http.StatusBadGateway, "upstream resolution failed")
	default:
		writeError(w, http.StatusInternalServerError, "unexpected server error")
	}
}
