package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"vigil/internal/reminder"
)

type SubscriptionService interface {
	Verify(ctx context.Context, token string) (*reminder.Subscription, error)
	UpdatePreferences(ctx context.Context, token string, p reminder.Preferences) (*reminder.Subscription, error)
	Unsubscribe(ctx context.Context, token string) error
}

// SubscriptionHandler serves the links subscribers follow from e-mail. The
// signed token replaces a session.
type SubscriptionHandler struct {
	Svc SubscriptionService
}

type tokenReq struct {
	Token string `json:"token"`
}

type preferencesReq struct {
	Token string `json:"token"`
	reminder.Preferences
}

func (h *SubscriptionHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req tokenReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		http.Error(w, "token required", http.StatusBadRequest)
		return
	}

	sub, err := h.Svc.Verify(r.Context(), req.Token)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *SubscriptionHandler) Preferences(w http.ResponseWriter, r *http.Request) {
	var req preferencesReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		http.Error(w, "token required", http.StatusBadRequest)
		return
	}

	sub, err := h.Svc.UpdatePreferences(r.Context(), req.Token, req.Preferences)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// Unsubscribe accepts the token as JSON or as ?token= so one-click
// List-Unsubscribe posts work.
func (h *SubscriptionHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		var req tokenReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		token = req.Token
	}
	if strings.TrimSpace(token) == "" {
		http.Error(w, "token required", http.StatusBadRequest)
		return
	}

	if err := h.Svc.Unsubscribe(r.Context(), token); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"unsubscribed": true})
}
