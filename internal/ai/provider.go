// Package ai talks to large language model APIs to generate example
// sentences, validate translations and classify meanings.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/example/zeeguu/internal/metrics"
)

// ErrNoProvider is returned when no language model is configured
var ErrNoProvider = errors.New("no language model provider configured")

// ErrBadResponse is returned when a model answer cannot be parsed
var ErrBadResponse = errors.New("unparsable model response")

const maxResponseSize = 1 << 20

// Provider completes a prompt with a language model
type Provider interface {
	Name() string
	Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error)
}

// APIError is a non-2xx answer from a provider
type APIError struct {
	Provider string
	Status   int
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (%d): %s", e.Provider, e.Status, e.Message)
}

// Temporary reports whether retrying could help
func (e *APIError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// ProviderConfig configures an HTTP provider
type ProviderConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	RatePerSec float64
	HTTPClient *http.Client
}

// httpClient is the transport shared by the providers
type httpClient struct {
	name    string
	url     string
	headers map[string]string
	client  *http.Client
	limiter *rate.Limiter
}

func newHTTPClient(name, url string, cfg ProviderConfig, headers map[string]string) *httpClient {
	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &httpClient{
		name:    name,
		url:     url,
		headers: headers,
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// post sends body as JSON and returns the raw response of a 2xx answer
func (c *httpClient) post(ctx context.Context, body interface{}) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.RecordLLMRequest(c.name, time.Since(start), false)
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	ok := err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300
	metrics.RecordLLMRequest(c.name, time.Since(start), ok)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if !ok {
		msg := gjson.GetBytes(data, "error.message").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{Provider: c.name, Status: resp.StatusCode, Message: msg}
	}
	return data, nil
}
