package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

const deepSeekURL = "https://api.deepseek.com"

// DeepSeek is a client for the OpenAI-compatible DeepSeek chat API
type DeepSeek struct {
	model       string
	temperature float64
	http        *httpClient
}

// NewDeepSeek creates a DeepSeek provider
func NewDeepSeek(cfg ProviderConfig) *DeepSeek {
	base := cfg.BaseURL
	if base == "" {
		base = deepSeekURL
	}
	return &DeepSeek{
		model:       cfg.Model,
		temperature: 0.7,
		http: newHTTPClient("deepseek", strings.TrimRight(base, "/")+"/chat/completions", cfg, map[string]string{
			"Authorization": "Bearer " + cfg.APIKey,
		}),
	}
}

// Message represents a message in the chat conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents a request to the chat completions API
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

func (d *DeepSeek) Name() string { return "deepseek" }

// Complete implements Provider
func (d *DeepSeek) Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	messages := []Message{{Role: "user", Content: prompt}}
	if system != "" {
		messages = append([]Message{{Role: "system", Content: system}}, messages...)
	}

	data, err := d.http.post(ctx, ChatRequest{
		Model:       d.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: d.temperature,
	})
	if err != nil {
		return "", err
	}

	content := gjson.GetBytes(data, "choices.0.message.content")
	if !content.Exists() {
		return "", fmt.Errorf("%w: no response choices returned", ErrBadResponse)
	}
	return strings.TrimSpace(content.String()), nil
}
