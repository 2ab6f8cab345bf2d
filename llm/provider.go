// Package llm talks to external text classifiers: chat-completion providers
// prompted for a sentiment label, and Hugging Face text-classification
// endpoints. Every client is rate limited and retries transient failures.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnavailable is returned when the classifier cannot be reached or
	// answers with a non-success status.
	ErrUnavailable = errors.New("llm: classifier unavailable")

	// ErrMalformedOutput is returned when the classifier's answer cannot be
	// decoded into a label and a confidence.
	ErrMalformedOutput = errors.New("llm: malformed classifier output")
)

// Provider sends chat completion requests.
type Provider interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest is a chat completion request.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	// ResponseFormat can be set to "json_object" for JSON mode.
	ResponseFormat string `json:"response_format,omitempty"`
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse is the response from a chat completion.
type ChatResponse struct {
	Content          string `json:"content"`
	Model            string `json:"model"`
	FinishReason     string `json:"finish_reason"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
}

// Config configures a classifier backend.
type Config struct {
	Provider string `json:"provider"` // huggingface, ollama, lmstudio, openrouter, openai, groq, xai, gemini, custom
	Model    string `json:"model"`
	BaseURL  string `json:"base_url"`
	APIKey   string `json:"api_key"`

	// RequestsPerSecond limits outgoing requests; 0 means unlimited.
	RequestsPerSecond float64 `json:"requests_per_second"`
	Burst             int     `json:"burst"`
	// MaxRetries bounds retries of transient failures (default 2).
	MaxRetries int           `json:"max_retries"`
	Timeout    time.Duration `json:"timeout"`
}

// backend describes an OpenAI-compatible chat endpoint.
type backend struct {
	baseURL string
	prefix  string
}

var chatBackends = map[string]backend{
	"ollama":     {baseURL: "http://localhost:11434", prefix: "/v1"},
	"lmstudio":   {baseURL: "http://localhost:1234", prefix: "/v1"},
	"openrouter": {baseURL: "https://openrouter.ai/api", prefix: "/v1"},
	"openai":     {baseURL: "https://api.openai.com", prefix: "/v1"},
	"groq":       {baseURL: "https://api.groq.com/openai", prefix: "/v1"},
	"xai":        {baseURL: "https://api.x.ai", prefix: "/v1"},
	// Gemini's OpenAI-compatible endpoint has no /v1 segment.
	"gemini": {baseURL: "https://generativelanguage.googleapis.com/v1beta/openai", prefix: ""},
	"custom": {prefix: "/v1"},
}

// NewProvider creates a chat provider from configuration.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "":
		return nil, fmt.Errorf("llm provider not specified")
	case "huggingface":
		return nil, fmt.Errorf("huggingface is a classification endpoint, not a chat provider")
	}
	b, ok := chatBackends[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = b.baseURL
	}
	return &chatProvider{name: cfg.Provider, base: newClient(cfg, b.prefix)}, nil
}

// chatProvider implements Provider for OpenAI-compatible APIs.
type chatProvider struct {
	name string
	base *client
}

func (p *chatProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return p.base.chat(ctx, req)
}
