package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brunobiangulo/gonarrate/sentiment"
)

type stubProvider struct {
	content string
	err     error
	last    ChatRequest
}

func (s *stubProvider) Chat(_ context.Context, req ChatRequest) (*ChatResponse, error) {
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	return &ChatResponse{Content: s.content}, nil
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		err  bool
	}{
		{"plain", `{"label":"POSITIVE","confidence":0.9}`, `{"label":"POSITIVE","confidence":0.9}`, false},
		{"fenced", "```json\n{\"label\":\"NEGATIVE\"}\n```", `{"label":"NEGATIVE"}`, false},
		{"prose", `Sure! {"label":"NEUTRAL"} Hope that helps.`, `{"label":"NEUTRAL"}`, false},
		{"none", "positive, probably", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSON(tt.raw)
			if (err != nil) != tt.err {
				t.Fatalf("err = %v, want error %v", err, tt.err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChatClassifier(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		want      sentiment.Classification
		malformed bool
	}{
		{"json", `{"label":"POSITIVE","confidence":0.92}`, sentiment.Classification{Label: "POSITIVE", Confidence: 0.92}, false},
		{"fenced", "```\n{\"label\": \"NEGATIVE\", \"confidence\": 0.7}\n```", sentiment.Classification{Label: "NEGATIVE", Confidence: 0.7}, false},
		{"zero_confidence", `{"label":"NEUTRAL","confidence":0}`, sentiment.Classification{Label: "NEUTRAL"}, false},
		{"missing_confidence", `{"label":"POSITIVE"}`, sentiment.Classification{}, true},
		{"missing_label", `{"confidence":0.5}`, sentiment.Classification{}, true},
		{"not_json", "I'd say it's upbeat.", sentiment.Classification{}, true},
		{"bad_type", `{"label":"POSITIVE","confidence":"high"}`, sentiment.Classification{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &stubProvider{content: tt.content}
			c := NewChatClassifier(p, "m1")
			got, err := c.Classify(context.Background(), "The sun rose over the hills.")
			if tt.malformed {
				if !errors.Is(err, ErrMalformedOutput) {
					t.Fatalf("err = %v, want ErrMalformedOutput", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
			if p.last.Model != "m1" || p.last.ResponseFormat != "json_object" || len(p.last.Messages) != 2 {
				t.Errorf("request = %+v", p.last)
			}
		})
	}
}

func TestHealthCooldown(t *testing.T) {
	now := time.Unix(1000, 0)
	p := &stubProvider{err: fmt.Errorf("%w: connection refused", ErrUnavailable)}
	c := NewChatClassifier(p, "")
	c.now = func() time.Time { return now }

	if !c.Available() {
		t.Fatal("new classifier unavailable")
	}
	if _, err := c.Classify(context.Background(), "x"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if c.Available() {
		t.Error("available right after an outage")
	}
	now = now.Add(DefaultCooldown)
	if !c.Available() {
		t.Error("still unavailable after the cooldown")
	}

	p.err = nil
	p.content = "nonsense"
	if _, err := c.Classify(context.Background(), "x"); !errors.Is(err, ErrMalformedOutput) {
		t.Fatalf("err = %v", err)
	}
	if !c.Available() {
		t.Error("malformed output must not mark the backend down")
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("héllo", 2); got != "hé" {
		t.Errorf("got %q", got)
	}
	if got := truncateRunes("abc", 10); got != "abc" {
		t.Errorf("got %q", got)
	}
}

func hfServer(t *testing.T, handler func(inputs any) any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/sst2" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req hfRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(handler(req.Inputs))
	}))
}

func TestHuggingFaceClassify(t *testing.T) {
	tests := []struct {
		name  string
		reply any
		want  sentiment.Classification
	}{
		{"nested", [][]hfCandidate{{{"NEGATIVE", 0.1}, {"POSITIVE", 0.9}}}, sentiment.Classification{Label: "POSITIVE", Confidence: 0.9}},
		{"flat", []hfCandidate{{"LABEL_0", 0.8}, {"LABEL_2", 0.2}}, sentiment.Classification{Label: "LABEL_0", Confidence: 0.8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := hfServer(t, func(any) any { return tt.reply })
			defer srv.Close()
			h := NewHuggingFace(Config{BaseURL: srv.URL, Model: "sst2"})
			got, err := h.Classify(context.Background(), "A fine day.")
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestHuggingFaceMalformed(t *testing.T) {
	for _, reply := range []any{map[string]string{"error": "loading"}, []hfCandidate{}, [][]hfCandidate{}} {
		srv := hfServer(t, func(any) any { return reply })
		h := NewHuggingFace(Config{BaseURL: srv.URL, Model: "sst2"})
		if _, err := h.Classify(context.Background(), "x"); !errors.Is(err, ErrMalformedOutput) {
			t.Errorf("reply %v: err = %v, want ErrMalformedOutput", reply, err)
		}
		srv.Close()
	}
}

func TestHuggingFaceClassifyBatch(t *testing.T) {
	srv := hfServer(t, func(inputs any) any {
		list, ok := inputs.([]any)
		if !ok {
			t.Errorf("inputs = %T, want list", inputs)
			return nil
		}
		out := make([][]hfCandidate, len(list))
		for i := range list {
			label := "POSITIVE"
			if i%2 == 1 {
				label = "NEGATIVE"
			}
			out[i] = []hfCandidate{{label, 0.95}}
		}
		return out
	})
	defer srv.Close()

	h := NewHuggingFace(Config{BaseURL: srv.URL, Model: "sst2"})
	got, err := h.ClassifyBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("ClassifyBatch: %v", err)
	}
	want := []string{"POSITIVE", "NEGATIVE", "POSITIVE"}
	for i, c := range got {
		if c.Label != want[i] {
			t.Errorf("got[%d] = %+v, want %s", i, c, want[i])
		}
	}
}

func TestHuggingFaceBatchCountMismatch(t *testing.T) {
	srv := hfServer(t, func(any) any { return [][]hfCandidate{{{"POSITIVE", 0.9}}} })
	defer srv.Close()
	h := NewHuggingFace(Config{BaseURL: srv.URL, Model: "sst2"})
	if _, err := h.ClassifyBatch(context.Background(), []string{"a", "b"}); !errors.Is(err, ErrMalformedOutput) {
		t.Errorf("err = %v, want ErrMalformedOutput", err)
	}
}

func TestNewClassifier(t *testing.T) {
	c, err := NewClassifier(Config{Provider: "huggingface"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*HuggingFace); !ok {
		t.Errorf("type = %T, want *HuggingFace", c)
	}
	c, err = NewClassifier(Config{Provider: "ollama", Model: "llama3"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*ChatClassifier); !ok {
		t.Errorf("type = %T, want *ChatClassifier", c)
	}
	if _, err := NewClassifier(Config{Provider: "nope"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestSentimentFallsBackWhenBackendDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	h := NewHuggingFace(Config{BaseURL: srv.URL, Model: "sst2"})
	e := sentiment.New(h)
	r, err := e.Analyze(context.Background(), "I am so happy and overjoyed today!", nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.Source != sentiment.SourceLexicon || r.Label != sentiment.Positive {
		t.Errorf("result = %+v, want lexicon POSITIVE", r)
	}
	if h.Available() {
		t.Error("backend still reported available after a 500")
	}
}

func TestSentimentUsesModel(t *testing.T) {
	srv := hfServer(t, func(any) any { return [][]hfCandidate{{{"NEGATIVE", 0.97}}} })
	defer srv.Close()

	e := sentiment.New(NewHuggingFace(Config{BaseURL: srv.URL, Model: "sst2"}))
	r, err := e.Analyze(context.Background(), "I am so happy and overjoyed today!", nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.Source != sentiment.SourceModel || r.Label != sentiment.Negative || r.Score != 0.97 {
		t.Errorf("result = %+v, want model NEGATIVE 0.97", r)
	}
}
