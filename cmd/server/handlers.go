package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/brunobiangulo/gonarrate"
	"github.com/brunobiangulo/gonarrate/relation"
)

const (
	maxBatch   = 256
	maxSimilar = 50
)

type handler struct {
	engine        gonarrate.Engine
	streamWorkers int
}

func newHandler(e gonarrate.Engine, streamWorkers int) *handler {
	return &handler{engine: e, streamWorkers: streamWorkers}
}

func (h *handler) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /analyze", h.handleAnalyze)
	mux.HandleFunc("POST /analyze/batch", h.handleAnalyzeBatch)
	mux.HandleFunc("POST /analyze/file", h.handleAnalyzeFile)
	mux.HandleFunc("POST /analyze/narrative", h.handleAnalyzeNarrative)
	mux.HandleFunc("POST /similar", h.handleSimilar)
	mux.HandleFunc("POST /relationships/export", h.handleExport)
	mux.HandleFunc("POST /lexicons/reload", h.handleReloadLexicons)
	mux.HandleFunc("GET /documents", h.handleListDocuments)
	mux.HandleFunc("GET /documents/{id}/relationships", h.handleDocumentRelationships)
	mux.HandleFunc("DELETE /documents/{id}", h.handleDeleteDocument)
	mux.HandleFunc("GET /stream", h.handleStream)
	mux.HandleFunc("GET /health", h.handleHealth)
	return mux
}

// POST /analyze
func (h *handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	var req struct {
		Text    string `json:"text"`
		Refresh bool   `json:"refresh,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	opts := []gonarrate.AnalyzeOption{gonarrate.WithSource("api")}
	if req.Refresh {
		opts = append(opts, gonarrate.WithRefresh())
	}
	writeJSON(w, http.StatusOK, h.engine.Analyze(ctx, req.Text, opts...))
}

// POST /analyze/batch
func (h *handler) handleAnalyzeBatch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	var req struct {
		Texts   []string `json:"texts"`
		Refresh bool     `json:"refresh,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.Texts) > maxBatch {
		writeError(w, http.StatusRequestEntityTooLarge, "too many texts (max "+strconv.Itoa(maxBatch)+")")
		return
	}

	opts := []gonarrate.AnalyzeOption{gonarrate.WithSource("batch")}
	if req.Refresh {
		opts = append(opts, gonarrate.WithRefresh())
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": h.engine.AnalyzeBatch(ctx, req.Texts, opts...),
	})
}

// POST /analyze/file
// Accepts a multipart upload in the "file" field.
func (h *handler) handleAnalyzeFile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Minute)
	defer cancel()

	if err := r.ParseMultipartForm(100 << 20); err != nil { // 100MB max
		writeError(w, http.StatusBadRequest, "expected multipart form with a 'file' field")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	// Sanitise filename to prevent path traversal. The temp dir keeps the
	// extension, which selects the parser.
	safeName := filepath.Base(header.Filename)
	tmpDir, err := os.MkdirTemp("", "gonarrate-upload-*")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to process file")
		slog.Error("creating temp dir", "error", err)
		return
	}
	defer os.RemoveAll(tmpDir)

	tmpPath := filepath.Join(tmpDir, safeName)
	dst, err := os.Create(tmpPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to process file")
		slog.Error("creating temp file", "error", err)
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		writeError(w, http.StatusInternalServerError, "failed to save file")
		slog.Error("saving uploaded file", "error", err)
		return
	}
	dst.Close()

	var opts []gonarrate.AnalyzeOption
	if r.FormValue("refresh") == "true" {
		opts = append(opts, gonarrate.WithRefresh())
	}
	fa, err := h.engine.AnalyzeFile(ctx, tmpPath, opts...)
	if err != nil {
		writeEngineError(w, err, "file analysis failed")
		slog.Error("analyze file error", "filename", safeName, "error", err)
		return
	}
	fa.Path = safeName
	writeJSON(w, http.StatusOK, fa)
}

// POST /analyze/narrative
func (h *handler) handleAnalyzeNarrative(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	n, err := h.engine.AnalyzeNarrative(ctx, req.Text)
	if err != nil {
		writeEngineError(w, err, "narrative analysis failed")
		slog.Error("narrative error", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// POST /similar
func (h *handler) handleSimilar(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	var req struct {
		Text string `json:"text"`
		K    int    `json:"k,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	// Bound parameters.
	if req.K <= 0 || req.K > maxSimilar {
		req.K = 5
	}

	matches, err := h.engine.Similar(ctx, req.Text, req.K)
	if err != nil {
		writeEngineError(w, err, "similarity search failed")
		slog.Error("similar error", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"matches": matches,
	})
}

// POST /relationships/export?format=cypher|graphml
// The graph comes from the body's text, or from a stored document.
func (h *handler) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "cypher"
	}
	if format != "cypher" && format != "graphml" {
		writeError(w, http.StatusBadRequest, "format must be cypher or graphml")
		return
	}

	var req struct {
		Text       string `json:"text,omitempty"`
		DocumentID int64  `json:"document_id,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	var graph relation.Result
	switch {
	case req.DocumentID > 0:
		g, err := h.engine.DocumentRelationships(ctx, req.DocumentID)
		if err != nil {
			writeEngineError(w, err, "loading relationships failed")
			slog.Error("export error", "document_id", req.DocumentID, "error", err)
			return
		}
		graph = g
	case req.Text != "":
		graph = h.engine.Analyze(ctx, req.Text, gonarrate.WithSource("api")).Relationships
	default:
		writeError(w, http.StatusBadRequest, "text or document_id is required")
		return
	}

	if format == "graphml" {
		out, err := relation.ToGraphML(graph)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "export failed")
			slog.Error("graphml export error", "error", err)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusOK)
		w.Write(out)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, relation.ToCypher(graph))
}

// POST /lexicons/reload
func (h *handler) handleReloadLexicons(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	if err := h.engine.ReloadLexicons(req.Path); err != nil {
		writeEngineError(w, err, "lexicon reload failed")
		slog.Error("lexicon reload error", "path", req.Path, "error", err)
		return
	}
	slog.Info("lexicons reloaded", "path", req.Path, "version", h.engine.LexiconVersion())
	writeJSON(w, http.StatusOK, map[string]string{
		"lexicon_version": h.engine.LexiconVersion(),
	})
}

// GET /documents/{id}/relationships
func (h *handler) handleDocumentRelationships(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	g, err := h.engine.DocumentRelationships(r.Context(), id)
	if err != nil {
		writeEngineError(w, err, "loading relationships failed")
		slog.Error("document relationships error", "document_id", id, "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"relationships": g,
		"groups":        relation.Groups(g),
	})
}

// DELETE /documents/{id}
func (h *handler) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	if err := h.engine.DeleteDocument(r.Context(), id); err != nil {
		writeEngineError(w, err, "delete failed")
		slog.Error("delete error", "document_id", id, "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GET /documents
func (h *handler) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.engine.ListDocuments(r.Context())
	if err != nil {
		writeEngineError(w, err, "failed to list documents")
		slog.Error("list documents error", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
	})
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":          "ok",
		"lexicon_version": h.engine.LexiconVersion(),
	}
	if s := h.engine.Store(); s != nil {
		stats, err := s.Stats(r.Context())
		if err != nil {
			slog.Warn("health: store stats", "error", err)
			resp["status"] = "degraded"
		} else {
			resp["store"] = stats
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func documentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return 0, false
	}
	return id, true
}

// writeEngineError maps engine sentinel errors onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, gonarrate.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, gonarrate.ErrUnsupportedFormat):
		writeError(w, http.StatusUnsupportedMediaType, "unsupported file format")
	case errors.Is(err, gonarrate.ErrParsingFailed), errors.Is(err, gonarrate.ErrLexiconLoad):
		writeError(w, http.StatusUnprocessableEntity, msg)
	case errors.Is(err, gonarrate.ErrNoStore):
		writeError(w, http.StatusServiceUnavailable, "storage is disabled")
	case errors.Is(err, gonarrate.ErrStoreClosed):
		writeError(w, http.StatusServiceUnavailable, "engine is shutting down")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "request timed out")
	default:
		writeError(w, http.StatusInternalServerError, msg)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
