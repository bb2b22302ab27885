package mail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigil/internal/config"
)

func TestHTTPSender_Send(t *testing.T) {
	var got sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := New(config.MailConfig{APIURL: srv.URL, APIKey: "key", From: "pray@example.org"})
	err := s.Send(context.Background(), Message{
		To:      "ana@example.org",
		ToName:  "Ana",
		Subject: "Day 3",
		Text:    "hello",
		Headers: map[string]string{"List-Unsubscribe": "<https://x/u>"},
	})
	require.NoError(t, err)

	assert.Equal(t, "pray@example.org", got.From)
	assert.Equal(t, []address{{Email: "ana@example.org", Name: "Ana"}}, got.To)
	assert.Equal(t, "Day 3", got.Subject)
	assert.Equal(t, "<https://x/u>", got.Headers["List-Unsubscribe"])
}

func TestHTTPSender_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := New(config.MailConfig{APIURL: srv.URL})
	err := s.Send(context.Background(), Message{To: "a@b.c"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestNew_Unconfigured(t *testing.T) {
	s := New(config.MailConfig{})
	assert.ErrorIs(t, s.Send(context.Background(), Message{To: "a@b.c"}), ErrNotConfigured)
}
