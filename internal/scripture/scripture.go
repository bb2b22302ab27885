// Package scripture fetches canonical verse text for a reference in a given language.
package scripture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vigil/internal/config"
)

var (
	ErrNotConfigured = errors.New("scripture: not configured")
	ErrNoVersion     = errors.New("scripture: no bible version for language")
)

type Lookup interface {
	// Verse returns the text of reference (e.g. "John 3:16") in lang.
	Verse(ctx context.Context, reference, lang string) (string, error)
}

func New(cfg config.ScriptureConfig) Lookup {
	if cfg.APIURL == "" {
		return Unconfigured{}
	}
	return &Client{
		BaseURL:  strings.TrimRight(cfg.APIURL, "/"),
		Versions: cfg.Versions,
		Client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type Unconfigured struct{}

func (Unconfigured) Verse(context.Context, string, string) (string, error) {
	return "", ErrNotConfigured
}

// Client talks to a bible-api.com style service: GET {base}/{reference}?translation={version}.
type Client struct {
	BaseURL  string
	Versions map[string]string
	Client   *http.Client
}

type verseResponse struct {
	Text  string `json:"text"`
	Error string `json:"error"`
}

func (c *Client) Verse(ctx context.Context, reference, lang string) (string, error) {
	version, ok := c.Versions[strings.ToLower(lang)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoVersion, lang)
	}

	u := c.BaseURL + "/" + url.PathEscape(reference) + "?translation=" + url.QueryEscape(version)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("scripture %s: %w", reference, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return "", fmt.Errorf("scripture %s: status %d: %s", reference, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out verseResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("scripture %s: decode: %w", reference, err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("scripture %s: %s", reference, out.Error)
	}
	return strings.TrimSpace(out.Text), nil
}
