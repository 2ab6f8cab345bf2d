package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/brunobiangulo/gonarrate/sentiment"
)

const (
	huggingFaceBaseURL = "https://api-inference.huggingface.co"
	huggingFaceModel   = "distilbert-base-uncased-finetuned-sst-2-english"
)

// HuggingFace calls a text-classification inference endpoint:
//
//	POST {base}/models/{model}  {"inputs": "..."}
//
// The answer is a list of {label, score} candidates, optionally nested once
// per input; the best-scoring candidate wins.
type HuggingFace struct {
	base  *client
	model string
	health
}

// NewHuggingFace builds a classifier for cfg. Empty BaseURL and Model fall
// back to the public inference API and an SST-2 model.
func NewHuggingFace(cfg Config) *HuggingFace {
	if cfg.BaseURL == "" {
		cfg.BaseURL = huggingFaceBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = huggingFaceModel
	}
	h := &HuggingFace{base: newClient(cfg, ""), model: cfg.Model}
	h.health.init()
	return h
}

type hfRequest struct {
	Inputs any `json:"inputs"`
}

type hfCandidate struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

func (h *HuggingFace) path() string {
	return "/models/" + url.PathEscape(h.model)
}

// Classify scores one text.
func (h *HuggingFace) Classify(ctx context.Context, text string) (sentiment.Classification, error) {
	body, err := h.base.doPost(ctx, h.path(), hfRequest{Inputs: text})
	h.observe(err)
	if err != nil {
		return sentiment.Classification{}, err
	}
	lists, err := decodeCandidates(body)
	if err != nil {
		return sentiment.Classification{}, err
	}
	if len(lists) != 1 {
		return sentiment.Classification{}, fmt.Errorf("%w: %d answers for one input", ErrMalformedOutput, len(lists))
	}
	return best(lists[0])
}

// ClassifyBatch scores texts in one request.
func (h *HuggingFace) ClassifyBatch(ctx context.Context, texts []string) ([]sentiment.Classification, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body, err := h.base.doPost(ctx, h.path(), hfRequest{Inputs: texts})
	h.observe(err)
	if err != nil {
		return nil, err
	}
	lists, err := decodeCandidates(body)
	if err != nil {
		return nil, err
	}
	// A flat list answers a one-element batch.
	if len(lists) != len(texts) {
		return nil, fmt.Errorf("%w: %d answers for %d inputs", ErrMalformedOutput, len(lists), len(texts))
	}
	out := make([]sentiment.Classification, len(lists))
	for i, l := range lists {
		if out[i], err = best(l); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// decodeCandidates accepts [[{label,score}...]...] and [{label,score}...].
func decodeCandidates(body []byte) ([][]hfCandidate, error) {
	var nested [][]hfCandidate
	if err := json.Unmarshal(body, &nested); err == nil {
		return nested, nil
	}
	var flat []hfCandidate
	if err := json.Unmarshal(body, &flat); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedOutput, preview(body))
	}
	return [][]hfCandidate{flat}, nil
}

func best(cands []hfCandidate) (sentiment.Classification, error) {
	if len(cands) == 0 {
		return sentiment.Classification{}, fmt.Errorf("%w: empty candidate list", ErrMalformedOutput)
	}
	top := cands[0]
	for _, c := range cands[1:] {
		if c.Score > top.Score {
			top = c
		}
	}
	if strings.TrimSpace(top.Label) == "" {
		return sentiment.Classification{}, fmt.Errorf("%w: candidate without label", ErrMalformedOutput)
	}
	return sentiment.Classification{Label: top.Label, Confidence: top.Score}, nil
}
