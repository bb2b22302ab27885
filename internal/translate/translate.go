// Package translate is the machine-translation client (DeepL v2 API).
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vigil/internal/config"
)

var ErrNotConfigured = errors.New("translate: not configured")

type Translator interface {
	// Translate returns one translation per input text, in order.
	Translate(ctx context.Context, texts []string, sourceLang, targetLang string) ([]string, error)
}

func New(cfg config.TranslationConfig) Translator {
	if cfg.APIKey == "" {
		return Unconfigured{}
	}
	return &DeepL{
		URL:    cfg.APIURL,
		APIKey: cfg.APIKey,
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

type Unconfigured struct{}

func (Unconfigured) Translate(context.Context, []string, string, string) ([]string, error) {
	return nil, ErrNotConfigured
}

type DeepL struct {
	URL    string
	APIKey string
	Client *http.Client
}

type deeplRequest struct {
	Text       []string `json:"text"`
	TargetLang string   `json:"target_lang"`
	SourceLang string   `json:"source_lang,omitempty"`
}

type deeplResponse struct {
	Translations []struct {
		Text string `json:"text"`
	} `json:"translations"`
}

func (d *DeepL) Translate(ctx context.Context, texts []string, sourceLang, targetLang string) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(deeplRequest{
		Text:       texts,
		TargetLang: strings.ToUpper(targetLang),
		SourceLang: strings.ToUpper(sourceLang),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "DeepL-Auth-Key "+d.APIKey)

	resp, err := d.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("translate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("translate: status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var out deeplResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("translate: decode response: %w", err)
	}
	if len(out.Translations) != len(texts) {
		return nil, fmt.Errorf("translate: got %d translations for %d texts", len(out.Translations), len(texts))
	}

	res := make([]string, len(texts))
	for i, tr := range out.Translations {
		res[i] = tr.Text
	}
	return res, nil
}
