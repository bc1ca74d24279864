// Package translate is a LibreTranslate client.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jwalitptl/medinfo-api/pkg/errors"
)

const serviceName = "translation"

type Translator interface {
	Translate(ctx context.Context, texts []string, source, target, format string) ([]string, error)
}

type Client struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

func NewClient(url, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{url: url, apiKey: apiKey, httpClient: &http.Client{Timeout: timeout}}
}

type request struct {
	Q      []string `json:"q"`
	Source string   `json:"source"`
	Target string   `json:"target"`
	Format string   `json:"format"`
	APIKey string   `json:"api_key,omitempty"`
}

type response struct {
	// A string for a single q, an array for a batch.
	TranslatedText json.RawMessage `json:"translatedText"`
	Error          string          `json:"error,omitempty"`
}

// Translate sends texts in one batch and returns the translations in order.
func (c *Client) Translate(ctx context.Context, texts []string, source, target, format string) ([]string, error) {
	if len(texts) == 0 {
		return []string{}, nil
	}
	if source == "" {
		source = "auto"
	}
	if format == "" {
		format = "text"
	}

	body, err := json.Marshal(request{Q: texts, Source: source, Target: target, Format: format, APIKey: c.apiKey})
	if err != nil {
		return nil, errors.Internal(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Internal(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.FromUpstream(serviceName, err)
	}
	defer resp.Body.Close()

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Upstream(serviceName, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err))
	}
	if resp.StatusCode >= 400 {
		if resp.StatusCode == http.StatusBadRequest && out.Error != "" {
			return nil, errors.Validation(out.Error)
		}
		return nil, errors.Upstream(serviceName, fmt.Errorf("status %d: %s", resp.StatusCode, out.Error))
	}

	var list []string
	if err := json.Unmarshal(out.TranslatedText, &list); err == nil {
		if len(list) != len(texts) {
			return nil, errors.Upstream(serviceName, fmt.Errorf("got %d translations for %d inputs", len(list), len(texts)))
		}
		return list, nil
	}
	var single string
	if err := json.Unmarshal(out.TranslatedText, &single); err != nil {
		return nil, errors.Upstream(serviceName, fmt.Errorf("unexpected translatedText: %s", out.TranslatedText))
	}
	if len(texts) != 1 {
		return nil, errors.Upstream(serviceName, fmt.Errorf("got 1 translation for %d inputs", len(texts)))
	}
	return []string{single}, nil
}
