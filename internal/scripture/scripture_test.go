package scripture

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigil/internal/config"
)

func TestClient_Verse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/John 3:16", r.URL.Path)
		assert.Equal(t, "almeida", r.URL.Query().Get("translation"))
		_, _ = w.Write([]byte(`{"text":"Porque Deus amou o mundo...\n"}`))
	}))
	defer srv.Close()

	l := New(config.ScriptureConfig{APIURL: srv.URL + "/", Versions: map[string]string{"pt": "almeida"}})
	text, err := l.Verse(context.Background(), "John 3:16", "PT")
	require.NoError(t, err)
	assert.Equal(t, "Porque Deus amou o mundo...", text)
}

func TestClient_UnknownLanguage(t *testing.T) {
	l := New(config.ScriptureConfig{APIURL: "http://unused", Versions: map[string]string{"en": "web"}})
	_, err := l.Verse(context.Background(), "John 3:16", "fr")
	assert.ErrorIs(t, err, ErrNoVersion)
}

func TestClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
	}))
	defer srv.Close()

	l := New(config.ScriptureConfig{APIURL: srv.URL, Versions: map[string]string{"en": "web"}})
	_, err := l.Verse(context.Background(), "Hezekiah 1:1", "en")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
