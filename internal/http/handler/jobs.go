package handler

import (
	"context"
	"net/http"
	"strings"

	"vigil/internal/jobs"
)

type JobStore interface {
	GetJobStats(ctx context.Context, referenceType, referenceID string) (jobs.Stats, error)
	RetryJob(ctx context.Context, id uint64) (bool, error)
}

type JobsHandler struct {
	Jobs JobStore
}

func (h *JobsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	refType := strings.TrimSpace(q.Get("reference_type"))
	refID := strings.TrimSpace(q.Get("reference_id"))
	if refID != "" && refType == "" {
		http.Error(w, "reference_id needs reference_type", http.StatusBadRequest)
		return
	}

	s, err := h.Jobs.GetJobStats(r.Context(), refType, refID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"pending":    s.Pending,
		"processing": s.Processing,
		"completed":  s.Completed,
		"failed":     s.Failed,
		"cancelled":  s.Cancelled,
		"total":      s.Total(),
	})
}

func (h *JobsHandler) Retry(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	retried, err := h.Jobs.RetryJob(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !retried {
		http.Error(w, "job is not failed or has no attempts left", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": jobs.StatusPending})
}
