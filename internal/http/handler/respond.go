package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"vigil/internal/auth"
	"vigil/internal/jobs"
	"vigil/internal/marketing"
	"vigil/internal/reminder"
	"vigil/internal/translation"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to status codes; anything unknown is a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, auth.ErrInvalidToken):
		status = http.StatusUnauthorized
	case errors.Is(err, marketing.ErrNotFound),
		errors.Is(err, translation.ErrBatchNotFound),
		errors.Is(err, reminder.ErrNotFound),
		errors.Is(err, jobs.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, marketing.ErrNotSendable),
		errors.Is(err, reminder.ErrNotActivatable):
		status = http.StatusConflict
	case errors.Is(err, marketing.ErrNoRecipients),
		errors.Is(err, marketing.ErrMissingTarget),
		errors.Is(err, translation.ErrNoContent),
		errors.Is(err, translation.ErrNoLanguages),
		errors.Is(err, reminder.ErrInvalidSchedule):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		slog.Error("request failed", "path", r.URL.Path, "request_id", chimw.GetReqID(r.Context()), "err", err)
		http.Error(w, "server error", status)
		return
	}
	http.Error(w, err.Error(), status)
}

func idParam(r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}
