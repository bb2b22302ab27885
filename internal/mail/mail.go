// Package mail delivers transactional and marketing e-mail through a JSON HTTP API.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"vigil/internal/config"
)

var ErrNotConfigured = errors.New("mail: not configured")

type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
	Headers map[string]string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// New returns an HTTP sender, or Unconfigured when no API URL is set.
func New(cfg config.MailConfig) Sender {
	if cfg.APIURL == "" {
		return Unconfigured{}
	}
	return &HTTPSender{
		URL:    cfg.APIURL,
		APIKey: cfg.APIKey,
		From:   cfg.From,
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Unconfigured fails every send so jobs surface the missing setup instead of dropping mail.
type Unconfigured struct{}

func (Unconfigured) Send(context.Context, Message) error { return ErrNotConfigured }

type HTTPSender struct {
	URL    string
	APIKey string
	From   string
	Client *http.Client
}

type address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendRequest struct {
	From    string            `json:"from"`
	To      []address         `json:"to"`
	Subject string            `json:"subject"`
	HTML    string            `json:"html,omitempty"`
	Text    string            `json:"text,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

func (s *HTTPSender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return errors.New("mail: empty recipient")
	}
	body, err := json.Marshal(sendRequest{
		From:    s.From,
		To:      []address{{Email: msg.To, Name: msg.ToName}},
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
		Headers: msg.Headers,
	})
	if err != nil {
		return fmt.Errorf("encode mail: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("send mail: status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	return nil
}
