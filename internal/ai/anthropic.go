package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	anthropicURL     = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
)

// Anthropic is a client for the Anthropic Messages API
type Anthropic struct {
	model string
	http  *httpClient
}

// NewAnthropic creates an Anthropic provider
func NewAnthropic(cfg ProviderConfig) *Anthropic {
	base := cfg.BaseURL
	if base == "" {
		base = anthropicURL
	}
	return &Anthropic{
		model: cfg.Model,
		http: newHTTPClient("anthropic", strings.TrimRight(base, "/")+"/v1/messages", cfg, map[string]string{
			"x-api-key":         cfg.APIKey,
			"anthropic-version": anthropicVersion,
		}),
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

func (a *Anthropic) Name() string { return "anthropic" }

// Complete implements Provider
func (a *Anthropic) Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	data, err := a.http.post(ctx, anthropicRequest{
		Model:     a.model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}

	var parts []string
	for _, block := range gjson.GetBytes(data, "content").Array() {
		if block.Get("type").String() == "text" {
			parts = append(parts, block.Get("text").String())
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: no text content returned", ErrBadResponse)
	}
	return strings.TrimSpace(strings.Join(parts, "")), nil
}
