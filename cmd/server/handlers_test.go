package main

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/brunobiangulo/gonarrate"
	"github.com/brunobiangulo/gonarrate/analysis"
	"github.com/brunobiangulo/gonarrate/sentiment"
)

func newTestHandler(t *testing.T) *handler {
	t.Helper()
	cfg := gonarrate.DefaultConfig()
	cfg.StorageDir = "none"
	e, err := gonarrate.New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return newHandler(e, 2)
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleAnalyze(t *testing.T) {
	mux := newTestHandler(t).routes()

	rec := do(t, mux, "POST", "/analyze", `{"text": "I am so happy and overjoyed today!"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var res analysis.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Degraded || res.Sentiment.Label != sentiment.Positive {
		t.Errorf("result = %+v", res.Sentiment)
	}

	if rec := do(t, mux, "POST", "/analyze", `{"text":`); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid JSON status = %d", rec.Code)
	}
}

func TestHandleAnalyzeBatch(t *testing.T) {
	mux := newTestHandler(t).routes()

	rec := do(t, mux, "POST", "/analyze/batch", `{"texts": ["John loves Mary.", ""]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var body struct {
		Results []analysis.Result `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Results) != 2 || len(body.Results[0].Relationships.Relationships) != 1 {
		t.Errorf("results = %+v", body.Results)
	}

	texts, _ := json.Marshal(map[string][]string{"texts": make([]string, maxBatch+1)})
	if rec := do(t, mux, "POST", "/analyze/batch", string(texts)); rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized batch status = %d", rec.Code)
	}
}

func TestHandleAnalyzeFile(t *testing.T) {
	mux := newTestHandler(t).routes()

	upload := func(name, content string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", name)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(content))
		mw.Close()
		req := httptest.NewRequest("POST", "/analyze/file", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		return rec
	}

	rec := upload("../../story.txt", "Chapter 1\nJohn loves Mary.\n")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var fa gonarrate.FileAnalysis
	if err := json.Unmarshal(rec.Body.Bytes(), &fa); err != nil {
		t.Fatal(err)
	}
	if fa.Path != "story.txt" || len(fa.Passages) != 1 || fa.Passages[0].Heading != "Chapter 1" {
		t.Errorf("file analysis = %+v", fa)
	}

	if rec := upload("notes.docx", "binary"); rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("docx status = %d", rec.Code)
	}
	if rec := do(t, mux, "POST", "/analyze/file", `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("non-multipart status = %d", rec.Code)
	}
}

func TestHandleAnalyzeNarrative(t *testing.T) {
	mux := newTestHandler(t).routes()

	rec := do(t, mux, "POST", "/analyze/narrative", `{"text": "\"Hi,\" said John. Yesterday he left."}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var n gonarrate.Narrative
	if err := json.Unmarshal(rec.Body.Bytes(), &n); err != nil {
		t.Fatal(err)
	}
	if len(n.Dialogue.Lines) != 1 || n.Dialogue.Lines[0].Speaker != "John" {
		t.Errorf("dialogue = %+v", n.Dialogue)
	}
	if len(n.Timeline.Events) != 1 {
		t.Errorf("timeline = %+v", n.Timeline)
	}

	if rec := do(t, mux, "POST", "/analyze/narrative", `{"text":`); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid JSON status = %d", rec.Code)
	}
}

func TestHandleExport(t *testing.T) {
	mux := newTestHandler(t).routes()

	tests := []struct {
		name        string
		target      string
		body        string
		status      int
		contentType string
		contains    string
	}{
		{"cypher default", "/relationships/export", `{"text": "John loves Mary."}`, http.StatusOK, "text/plain; charset=utf-8", "[:ROMANTIC"},
		{"graphml", "/relationships/export?format=graphml", `{"text": "John loves Mary."}`, http.StatusOK, "application/xml", "<graphml"},
		{"bad format", "/relationships/export?format=dot", `{"text": "x"}`, http.StatusBadRequest, "", ""},
		{"no source", "/relationships/export", `{}`, http.StatusBadRequest, "", ""},
		{"document without store", "/relationships/export", `{"document_id": 1}`, http.StatusServiceUnavailable, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, mux, "POST", tt.target, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
			}
			if tt.contentType != "" && rec.Header().Get("Content-Type") != tt.contentType {
				t.Errorf("content type = %q", rec.Header().Get("Content-Type"))
			}
			if !strings.Contains(rec.Body.String(), tt.contains) {
				t.Errorf("body = %s, want %q", rec.Body, tt.contains)
			}
		})
	}
}

func TestHandlersWithoutStore(t *testing.T) {
	mux := newTestHandler(t).routes()

	tests := []struct {
		method, target, body string
		status               int
	}{
		{"POST", "/similar", `{"text": "The storm broke.", "k": 3}`, http.StatusServiceUnavailable},
		{"POST", "/similar", `{}`, http.StatusBadRequest},
		{"GET", "/documents", "", http.StatusServiceUnavailable},
		{"GET", "/documents/1/relationships", "", http.StatusServiceUnavailable},
		{"DELETE", "/documents/1", "", http.StatusServiceUnavailable},
		{"DELETE", "/documents/abc", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			if rec := do(t, mux, tt.method, tt.target, tt.body); rec.Code != tt.status {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body)
			}
		})
	}
}

func TestHandleReloadLexicons(t *testing.T) {
	mux := newTestHandler(t).routes()

	path := filepath.Join(t.TempDir(), "lexicons.json")
	if err := os.WriteFile(path, []byte(`{"polarity": {"positive": ["grand"]}}`), 0644); err != nil {
		t.Fatal(err)
	}
	body, _ := json.Marshal(map[string]string{"path": path})
	rec := do(t, mux, "POST", "/lexicons/reload", string(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var resp map[string]string
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if v := resp["lexicon_version"]; v == "" || v == "builtin" {
		t.Errorf("version = %q", v)
	}

	missing, _ := json.Marshal(map[string]string{"path": filepath.Join(t.TempDir(), "nope.json")})
	if rec := do(t, mux, "POST", "/lexicons/reload", string(missing)); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("missing file status = %d", rec.Code)
	}
	if rec := do(t, mux, "POST", "/lexicons/reload", `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("empty path status = %d", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	rec := do(t, newTestHandler(t).routes(), "GET", "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "ok" || resp["lexicon_version"] != "builtin" {
		t.Errorf("health = %v", resp)
	}
	if _, ok := resp["store"]; ok {
		t.Error("store stats reported with storage disabled")
	}
}

func TestMiddleware(t *testing.T) {
	var handler http.Handler = newTestHandler(t).routes()
	handler = authMiddleware("secret", handler)
	handler = corsMiddleware("https://example.com", handler)

	if rec := do(t, handler, "POST", "/analyze", `{"text": "hi"}`); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d", rec.Code)
	}
	if rec := do(t, handler, "GET", "/health", ""); rec.Code != http.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}

	req := httptest.NewRequest("POST", "/analyze", strings.NewReader(`{"text": "hi"}`))
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("authorised status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://example.com" {
		t.Errorf("cors header = %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}

	if rec := do(t, handler, "OPTIONS", "/analyze", ""); rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", rec.Code)
	}

	panicky := recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	if rec := do(t, panicky, "GET", "/", ""); rec.Code != http.StatusInternalServerError {
		t.Errorf("panic status = %d", rec.Code)
	}
}

func TestServerConfigApply(t *testing.T) {
	t.Setenv("GONARRATE_STORAGE_DIR", "none")
	t.Setenv("GONARRATE_CLASSIFIER_PROVIDER", "openai")
	t.Setenv("GONARRATE_CLASSIFIER_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	sc, err := loadServerConfig()
	if err != nil {
		t.Fatal(err)
	}
	if sc.Addr != ":8080" || sc.StreamWorkers != 4 {
		t.Errorf("defaults = %+v", sc)
	}
	cfg := gonarrate.DefaultConfig()
	sc.apply(&cfg)
	if cfg.StorageDir != "none" || cfg.Classifier.Provider != "openai" || cfg.Classifier.APIKey != "sk-test" {
		t.Errorf("config = %+v", cfg)
	}
}

func TestHandleStream(t *testing.T) {
	// Through the logging and auth middleware, which must allow hijacking.
	srv := httptest.NewServer(authMiddleware("secret", logMiddleware(newTestHandler(t).routes())))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream?access_token=secret"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()

	texts := []string{"John loves Mary.", "I am so happy and overjoyed today!", "The storm broke."}
	for _, text := range texts {
		if err := ws.WriteJSON(streamRequest{Text: text}); err != nil {
			t.Fatal(err)
		}
	}
	if err := ws.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	if err := ws.WriteJSON(streamRequest{Done: true}); err != nil {
		t.Fatal(err)
	}

	ws.SetReadDeadline(time.Now().Add(10 * time.Second))
	for i := 0; i <= len(texts); i++ {
		var resp streamResponse
		if err := ws.ReadJSON(&resp); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if resp.Seq != uint64(i) || resp.Error != "" || resp.Result == nil {
			t.Fatalf("frame %d = %+v", i, resp)
		}
		switch i {
		case 0:
			if len(resp.Result.Relationships.Relationships) != 1 {
				t.Errorf("first relationships = %+v", resp.Result.Relationships)
			}
		case 1:
			if resp.Result.Sentiment.Label != sentiment.Positive {
				t.Errorf("second label = %s", resp.Result.Sentiment.Label)
			}
		case 3:
			if len(resp.Result.SemanticUnits) != 0 {
				t.Errorf("malformed frame result = %+v", resp.Result)
			}
		}
	}

	_, _, err = ws.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("final read err = %v, want normal closure", err)
	}
}
