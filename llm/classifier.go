package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/brunobiangulo/gonarrate/sentiment"
)

// DefaultCooldown is how long a classifier reports itself unavailable after
// it could not be reached.
const DefaultCooldown = 30 * time.Second

// maxPromptRunes bounds the passage sent to a chat classifier.
const maxPromptRunes = 4000

const classifyPrompt = `You classify the sentiment of narrative passages.
Answer with a single JSON object and nothing else:
{"label": "POSITIVE" | "NEGATIVE" | "NEUTRAL", "confidence": <number between 0 and 1>}`

// NewClassifier builds the classifier named by cfg.Provider.
func NewClassifier(cfg Config) (sentiment.Classifier, error) {
	if cfg.Provider == "huggingface" {
		return NewHuggingFace(cfg), nil
	}
	p, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	return NewChatClassifier(p, cfg.Model), nil
}

// health marks a backend down for a cooldown after an ErrUnavailable.
type health struct {
	cooldown  time.Duration
	downUntil atomic.Int64 // unix nanos
	now       func() time.Time
}

func (h *health) init() {
	h.cooldown = DefaultCooldown
	h.now = time.Now
}

// Available reports whether the backend is outside its cooldown.
func (h *health) Available() bool {
	return h.now().UnixNano() >= h.downUntil.Load()
}

func (h *health) observe(err error) {
	switch {
	case err == nil:
		h.downUntil.Store(0)
	case errors.Is(err, ErrUnavailable):
		h.downUntil.Store(h.now().Add(h.cooldown).UnixNano())
	}
}

// ChatClassifier prompts a chat provider for a JSON sentiment verdict.
type ChatClassifier struct {
	provider Provider
	model    string
	health
}

// NewChatClassifier wraps p. model may be empty to use the provider default.
func NewChatClassifier(p Provider, model string) *ChatClassifier {
	c := &ChatClassifier{provider: p, model: model}
	c.health.init()
	return c
}

type chatVerdict struct {
	Label      string   `json:"label"`
	Confidence *float64 `json:"confidence"`
}

// Classify asks the provider for the label of text.
func (c *ChatClassifier) Classify(ctx context.Context, text string) (sentiment.Classification, error) {
	resp, err := c.provider.Chat(ctx, ChatRequest{
		Model: c.model,
		Messages: []Message{
			{Role: "system", Content: classifyPrompt},
			{Role: "user", Content: truncateRunes(text, maxPromptRunes)},
		},
		Temperature:    0,
		MaxTokens:      64,
		ResponseFormat: "json_object",
	})
	c.observe(err)
	if err != nil {
		return sentiment.Classification{}, err
	}
	return parseVerdict(resp.Content)
}

func parseVerdict(raw string) (sentiment.Classification, error) {
	obj, err := extractJSON(raw)
	if err != nil {
		return sentiment.Classification{}, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	var v chatVerdict
	if err := json.Unmarshal([]byte(obj), &v); err != nil {
		return sentiment.Classification{}, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if strings.TrimSpace(v.Label) == "" || v.Confidence == nil {
		return sentiment.Classification{}, fmt.Errorf("%w: missing label or confidence in %q", ErrMalformedOutput, obj)
	}
	return sentiment.Classification{Label: v.Label, Confidence: *v.Confidence}, nil
}

var codeBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// extractJSON pulls the JSON object out of a model answer that may wrap it
// in a code fence or surrounding prose.
func extractJSON(raw string) (string, error) {
	if m := codeBlockRe.FindStringSubmatch(raw); len(m) > 1 {
		raw = m[1]
	}
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "{") && strings.HasSuffix(raw, "}") {
		return raw, nil
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1], nil
	}
	return "", fmt.Errorf("no JSON object found in response")
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
