package handler

import (
	"context"
	"net/http"
)

type MarketingSender interface {
	Send(ctx context.Context, emailID uint64) (int, error)
}

type MarketingHandler struct {
	Svc MarketingSender
}

func (h *MarketingHandler) Send(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	n, err := h.Svc.Send(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"id": id, "queued": n})
}
