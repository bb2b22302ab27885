package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"vigil/internal/translation"
)

type TranslationService interface {
	CreateBatch(ctx context.Context, req translation.CreateBatchRequest) (*translation.Batch, error)
	Progress(ctx context.Context, batchID uuid.UUID) (translation.Progress, error)
	Cancel(ctx context.Context, batchID uuid.UUID) (int64, error)
}

type TranslationHandler struct {
	Svc TranslationService
}

func (h *TranslationHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req translation.CreateBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.LibraryID == 0 {
		http.Error(w, "library_id required", http.StatusBadRequest)
		return
	}

	b, err := h.Svc.CreateBatch(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *TranslationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	p, err := h.Svc.Progress(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *TranslationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	n, err := h.Svc.Cancel(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "cancelled_jobs": n})
}
