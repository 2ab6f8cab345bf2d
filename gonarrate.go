// Package gonarrate annotates narrative text with sentiment, tone,
// character relationships and story context, caching results in SQLite and
// indexing them for "similar passage" search.
package gonarrate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/brunobiangulo/gonarrate/analysis"
	"github.com/brunobiangulo/gonarrate/chunker"
	"github.com/brunobiangulo/gonarrate/dialogue"
	"github.com/brunobiangulo/gonarrate/lexicon"
	"github.com/brunobiangulo/gonarrate/llm"
	"github.com/brunobiangulo/gonarrate/parser"
	"github.com/brunobiangulo/gonarrate/relation"
	"github.com/brunobiangulo/gonarrate/sentiment"
	"github.com/brunobiangulo/gonarrate/setting"
	"github.com/brunobiangulo/gonarrate/store"
	"github.com/brunobiangulo/gonarrate/timeline"
	"github.com/brunobiangulo/gonarrate/tone"
)

const tracerName = "github.com/brunobiangulo/gonarrate"

// builtinLexicons is the lexicon version of the compiled-in term lists.
const builtinLexicons = "builtin"

// Engine is the main entry point for narrative analysis.
type Engine interface {
	// Analyze annotates one text. It never fails; see analysis.Orchestrator.
	Analyze(ctx context.Context, text string, opts ...AnalyzeOption) *analysis.Result

	// AnalyzeBatch annotates texts, preserving length and order.
	AnalyzeBatch(ctx context.Context, texts []string, opts ...AnalyzeOption) []*analysis.Result

	// AnalyzeFile parses a txt, md, pdf or xlsx file and annotates each passage.
	AnalyzeFile(ctx context.Context, path string, opts ...AnalyzeOption) (*FileAnalysis, error)

	// AnalyzeNarrative extracts the dialogue and timeline of one text.
	AnalyzeNarrative(ctx context.Context, text string) (*Narrative, error)

	// Similar returns up to k stored passages whose facet vectors are
	// closest to that of text.
	Similar(ctx context.Context, text string, k int) ([]Match, error)

	// DocumentRelationships merges the characters and relationships of
	// every stored passage of a document.
	DocumentRelationships(ctx context.Context, documentID int64) (relation.Result, error)

	// ListDocuments returns all analysed documents.
	ListDocuments(ctx context.Context) ([]store.Document, error)

	// DeleteDocument removes a document and the cached analyses no other
	// document shares.
	DeleteDocument(ctx context.Context, documentID int64) error

	// ReloadLexicons applies a JSON override file to the built-in lexicons
	// of every engine at once. On error nothing changes.
	ReloadLexicons(path string) error

	// LexiconVersion identifies the lexicon set in force.
	LexiconVersion() string

	// Store returns the underlying store, nil when storage is disabled.
	Store() *store.Store

	// Close cleanly shuts down the engine.
	Close() error
}

// FileAnalysis is the outcome of AnalyzeFile.
type FileAnalysis struct {
	DocumentID    int64             `json:"document_id,omitempty"`
	Path          string            `json:"path"`
	Format        string            `json:"format"`
	Passages      []PassageAnalysis `json:"passages"`
	Characters    []string          `json:"characters"`
	Relationships []relation.Edge   `json:"relationships"`
	Groups        []relation.Group  `json:"groups"`
	Dialogue      dialogue.Result   `json:"dialogue"`
	Timeline      timeline.Result   `json:"timeline"`
	Degraded      bool              `json:"degraded"`
}

// Narrative is the dialogue and timeline of a text. Neither is cached.
type Narrative struct {
	Dialogue dialogue.Result `json:"dialogue"`
	Timeline timeline.Result `json:"timeline"`
}

// PassageAnalysis is the annotation of one parsed passage.
type PassageAnalysis struct {
	Position   int              `json:"position"`
	Heading    string           `json:"heading,omitempty"`
	PageNumber int              `json:"page_number,omitempty"`
	Speaker    string           `json:"speaker,omitempty"`
	Result     *analysis.Result `json:"result"`
}

// Match is a stored passage similar to a query, with a short excerpt.
type Match struct {
	store.Match
	Excerpt string `json:"excerpt"`
}

// AnalyzeOption configures a single analysis call.
type AnalyzeOption func(*analyzeOptions)

type analyzeOptions struct {
	refresh bool
	source  string
}

// WithRefresh bypasses the cache lookup; the fresh result still replaces
// the cached one.
func WithRefresh() AnalyzeOption {
	return func(o *analyzeOptions) { o.refresh = true }
}

// WithSource labels the call in the audit log ("api", "batch", "stream").
func WithSource(source string) AnalyzeOption {
	return func(o *analyzeOptions) { o.source = source }
}

// engine is the concrete implementation of Engine.
type engine struct {
	cfg     Config
	store   *store.Store
	parsers *parser.Registry
	chunkr  *chunker.Chunker
	sent    *sentiment.Engine
	tone    *tone.Engine
	rel     *relation.Engine
	setting *setting.Engine
	dialog  *dialogue.Engine
	events  *timeline.Engine
	orch    *analysis.Orchestrator
	tracer  trace.Tracer

	// lexMu is held for reading by every analysis so that a reload swaps
	// the lexicons of all engines between, never during, analyses.
	lexMu   sync.RWMutex
	version string
	closed  atomic.Bool
}

// New creates a new gonarrate engine with the given configuration.
func New(cfg Config) (Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Apply defaults for zero values
	if cfg.RelationWindow == 0 {
		cfg.RelationWindow = relation.DefaultWindow
	}
	if cfg.MaxCharacters == 0 {
		cfg.MaxCharacters = relation.DefaultMaxCharacters
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 4
	}

	var classifier sentiment.Classifier
	if cfg.Classifier.Provider != "" {
		c, err := llm.NewClassifier(cfg.Classifier)
		if err != nil {
			return nil, fmt.Errorf("%w: classifier: %v", ErrInvalidConfig, err)
		}
		classifier = c
	}

	ch := chunker.New(chunker.Config{})
	sent := sentiment.New(classifier,
		sentiment.WithChunker(ch),
		sentiment.WithThreshold(cfg.NeutralThreshold))
	e := &engine{
		cfg:     cfg,
		parsers: parser.NewRegistry(),
		chunkr:  ch,
		sent:    sent,
		tone:    tone.New(sent, tone.WithChunker(ch)),
		rel: relation.New(
			relation.WithChunker(ch),
			relation.WithWindow(cfg.RelationWindow),
			relation.WithMaxCharacters(cfg.MaxCharacters)),
		setting: setting.New(
			setting.WithChunker(ch),
			setting.WithThresholds(cfg.HistoricalThreshold, cfg.FuturisticThreshold)),
		tracer:  otel.Tracer(tracerName),
		version: builtinLexicons,
	}
	e.dialog = dialogue.New(e.rel)
	e.events = timeline.New(e.rel, timeline.WithChunker(ch))
	e.orch = analysis.New(analysis.Components{
		Chunker:   ch,
		Sentiment: e.sent,
		Tone:      e.tone,
		Relations: e.rel,
		Context:   e.setting,
	}, analysis.WithConcurrency(cfg.Concurrency))

	if cfg.LexiconPath != "" {
		if err := e.ReloadLexicons(cfg.LexiconPath); err != nil {
			return nil, err
		}
	}

	if cfg.storeEnabled() {
		s, err := store.New(cfg.resolveDBPath(), analysis.VectorDim)
		if err != nil {
			return nil, fmt.Errorf("opening store: %w", err)
		}
		e.store = s
	}

	slog.Info("gonarrate: engine ready",
		"store", e.store != nil, "classifier", cfg.Classifier.Provider,
		"lexicons", e.version, "concurrency", cfg.Concurrency)
	return e, nil
}

// --- analysis ---

func (e *engine) Analyze(ctx context.Context, text string, opts ...AnalyzeOption) *analysis.Result {
	o := analyzeOpts(opts, "api")
	return e.analyzeItems(ctx, []string{text}, o)[0]
}

func (e *engine) AnalyzeBatch(ctx context.Context, texts []string, opts ...AnalyzeOption) []*analysis.Result {
	return e.analyzeItems(ctx, texts, analyzeOpts(opts, "batch"))
}

func analyzeOpts(opts []AnalyzeOption, source string) analyzeOptions {
	o := analyzeOptions{source: source}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// analyzeItems serves what it can from the cache and runs the rest through
// the orchestrator as one batch.
func (e *engine) analyzeItems(ctx context.Context, texts []string, o analyzeOptions) []*analysis.Result {
	ctx, span := e.tracer.Start(ctx, "gonarrate.analyze",
		trace.WithAttributes(
			attribute.Int("gonarrate.items", len(texts)),
			attribute.String("gonarrate.source", o.source)))
	defer span.End()

	e.lexMu.RLock()
	defer e.lexMu.RUnlock()

	start := time.Now()
	out := make([]*analysis.Result, len(texts))
	hashes := make([]string, len(texts))
	var missIdx []int
	var missTexts []string

	for i, raw := range texts {
		text := chunker.Normalize(raw)
		if strings.TrimSpace(text) == "" {
			out[i] = analysis.Empty()
			continue
		}
		hashes[i] = store.ContentHash(text)
		if !o.refresh {
			if r, ok := e.lookup(ctx, hashes[i]); ok {
				out[i] = r
				e.logRequest(ctx, hashes[i], o.source, true, r, start)
				continue
			}
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	span.SetAttributes(attribute.Int("gonarrate.cache_hits", len(texts)-len(missIdx)))

	var fresh []*analysis.Result
	if len(missTexts) == 1 {
		fresh = []*analysis.Result{e.orch.Analyze(ctx, missTexts[0])}
	} else if len(missTexts) > 1 {
		fresh = e.orch.AnalyzeBatch(ctx, missTexts)
	}
	for j, i := range missIdx {
		r := fresh[j]
		out[i] = r
		e.save(ctx, missTexts[j], hashes[i], r)
		e.logRequest(ctx, hashes[i], o.source, false, r, start)
	}
	return out
}

func (e *engine) usable() bool {
	return e.store != nil && !e.closed.Load()
}

// lookup returns the cached result for hash when it was computed under the
// current lexicons.
func (e *engine) lookup(ctx context.Context, hash string) (*analysis.Result, bool) {
	if !e.usable() {
		return nil, false
	}
	a, err := e.store.GetAnalysisByHash(ctx, hash)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.Warn("cache: lookup failed", "hash", hash, "error", err)
		}
		return nil, false
	}
	if a.LexiconVersion != e.version {
		slog.Debug("cache: stale lexicon version", "hash", hash,
			"cached", a.LexiconVersion, "current", e.version)
		return nil, false
	}
	var r analysis.Result
	if err := json.Unmarshal([]byte(a.Result), &r); err != nil {
		slog.Warn("cache: undecodable entry", "hash", hash, "error", err)
		return nil, false
	}
	return &r, true
}

// save caches a non-degraded result and indexes its facet vector.
func (e *engine) save(ctx context.Context, text, hash string, r *analysis.Result) {
	if !e.usable() || r.Degraded {
		return
	}
	data, err := json.Marshal(r)
	if err != nil {
		slog.Warn("cache: encoding result", "hash", hash, "error", err)
		return
	}
	a := store.Analysis{
		ContentHash:    hash,
		Text:           text,
		Result:         string(data),
		SentimentLabel: string(r.Sentiment.Label),
		PrimaryTone:    string(r.Tone.PrimaryTone),
		Mood:           string(r.Tone.Mood),
		PrimaryPeriod:  string(r.Context.TemporalContext.PrimaryPeriod),
		PrimarySetting: string(r.Context.SpatialContext.PrimarySetting),
		LexiconVersion: e.version,
		Characters:     r.Relationships.Characters,
		Relationships:  make([]store.Relationship, 0, len(r.Relationships.Relationships)),
	}
	for _, edge := range r.Relationships.Relationships {
		a.Relationships = append(a.Relationships, store.Relationship{
			Character1:   edge.Character1,
			Character2:   edge.Character2,
			RelationType: string(edge.Type),
			Indicator:    edge.Indicator,
		})
	}
	if _, err := e.store.SaveAnalysis(ctx, a, r.Vector()); err != nil {
		slog.Warn("cache: saving result", "hash", hash, "error", err)
	}
}

func (e *engine) logRequest(ctx context.Context, hash, source string, hit bool, r *analysis.Result, start time.Time) {
	if !e.usable() {
		return
	}
	var diags string
	if len(r.Diagnostics) > 0 {
		if data, err := json.Marshal(r.Diagnostics); err == nil {
			diags = string(data)
		}
	}
	err := e.store.LogAnalysis(ctx, store.LogEntry{
		ContentHash: hash,
		Source:      source,
		CacheHit:    hit,
		Degraded:    r.Degraded,
		Diagnostics: diags,
		DurationMS:  time.Since(start).Milliseconds(),
	})
	if err != nil {
		slog.Debug("cache: logging request", "error", err)
	}
}

// --- files ---

func (e *engine) AnalyzeFile(ctx context.Context, path string, opts ...AnalyzeOption) (*FileAnalysis, error) {
	o := analyzeOpts(opts, "file")

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	format := parser.FormatOf(absPath)
	p, err := e.parsers.Get(format)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	hash, err := fileHash(absPath)
	if err != nil {
		return nil, fmt.Errorf("hashing file: %w", err)
	}

	filename := filepath.Base(absPath)
	var docID *int64
	if e.usable() {
		id, err := e.store.UpsertDocument(ctx, store.Document{
			Path:        absPath,
			Filename:    filename,
			Format:      format,
			ContentHash: hash,
			Status:      "processing",
		})
		if err != nil {
			return nil, fmt.Errorf("upserting document: %w", err)
		}
		docID = &id
	}

	slog.Info("file: parsing document", "file", filename, "format", format)
	parseStart := time.Now()
	parsed, err := p.Parse(ctx, absPath)
	if err != nil {
		e.setStatus(ctx, docID, "error")
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}
	slog.Info("file: parsing complete",
		"file", filename, "passages", len(parsed.Passages),
		"elapsed", time.Since(parseStart).Round(time.Millisecond))

	texts := make([]string, len(parsed.Passages))
	for i, ps := range parsed.Passages {
		texts[i] = ps.Text
	}
	results := e.analyzeItems(ctx, texts, o)
	if err := e.linkPassages(ctx, docID, parsed.Passages); err != nil {
		e.setStatus(ctx, docID, "error")
		return nil, fmt.Errorf("recording passages: %w", err)
	}

	fa := &FileAnalysis{
		Path:     absPath,
		Format:   format,
		Passages: make([]PassageAnalysis, len(results)),
	}
	if docID != nil {
		fa.DocumentID = *docID
	}
	merged := make([]relation.Result, len(results))
	for i, r := range results {
		ps := parsed.Passages[i]
		fa.Passages[i] = PassageAnalysis{
			Position:   i,
			Heading:    ps.Heading,
			PageNumber: ps.PageNumber,
			Speaker:    ps.Speaker,
			Result:     r,
		}
		merged[i] = r.Relationships
		fa.Degraded = fa.Degraded || r.Degraded
	}
	graph := mergeRelations(merged)
	fa.Characters, fa.Relationships = graph.Characters, graph.Relationships
	fa.Groups = relation.Groups(graph)

	fa.Dialogue, fa.Timeline, err = e.narrate(ctx, texts)
	if err != nil {
		slog.Warn("file: narrative pass interrupted", "file", filename, "error", err)
		fa.Degraded = true
	}

	status := "ready"
	if fa.Degraded {
		status = "degraded"
	}
	e.setStatus(ctx, docID, status)
	slog.Info("file: document analysed",
		"file", filename, "passages", len(results), "characters", len(fa.Characters),
		"degraded", fa.Degraded, "elapsed", time.Since(parseStart).Round(time.Millisecond))
	return fa, nil
}

// AnalyzeNarrative runs the dialogue and timeline passes over one text.
func (e *engine) AnalyzeNarrative(ctx context.Context, text string) (*Narrative, error) {
	d, t, err := e.narrate(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return &Narrative{Dialogue: d, Timeline: t}, nil
}

// narrate runs the dialogue and timeline passes over every passage and
// merges them in passage order.
func (e *engine) narrate(ctx context.Context, texts []string) (dialogue.Result, timeline.Result, error) {
	ctx, span := e.tracer.Start(ctx, "gonarrate.narrate",
		trace.WithAttributes(attribute.Int("gonarrate.items", len(texts))))
	defer span.End()

	e.lexMu.RLock()
	defer e.lexMu.RUnlock()

	dparts := make([]dialogue.Result, len(texts))
	tparts := make([]timeline.Result, len(texts))
	for i, text := range texts {
		text = chunker.Normalize(text)
		units := e.chunkr.Decompose(text)
		d, err := e.dialog.Analyze(ctx, text, units)
		if err != nil {
			return dialogue.Default(), timeline.Default(), err
		}
		t, err := e.events.Analyze(ctx, text, units)
		if err != nil {
			return dialogue.Default(), timeline.Default(), err
		}
		dparts[i], tparts[i] = d, t
	}
	return dialogue.Merge(dparts), timeline.Merge(tparts), nil
}

func (e *engine) setStatus(ctx context.Context, docID *int64, status string) {
	if docID == nil || !e.usable() {
		return
	}
	if err := e.store.UpdateDocumentStatus(ctx, *docID, status); err != nil {
		slog.Warn("file: updating status", "doc_id", *docID, "error", err)
	}
}

// linkPassages records which text sits at each position of the document,
// whether its analysis came from the cache or was computed now.
func (e *engine) linkPassages(ctx context.Context, docID *int64, passages []parser.Passage) error {
	if docID == nil || !e.usable() {
		return nil
	}
	links := make([]store.Passage, 0, len(passages))
	for i, ps := range passages {
		text := chunker.Normalize(ps.Text)
		if strings.TrimSpace(text) == "" {
			continue
		}
		links = append(links, store.Passage{
			Position:    i,
			Heading:     ps.Heading,
			ContentHash: store.ContentHash(text),
		})
	}
	return e.store.SetDocumentPassages(ctx, *docID, links)
}

// mergeRelations unions per-passage results: characters in first-appearance
// order, edges de-duplicated by (character1, character2, type) keeping the
// first indicator seen.
func mergeRelations(parts []relation.Result) relation.Result {
	out := relation.Default()
	seenChar := make(map[string]bool)
	type edgeKey struct {
		a, b string
		t    relation.Type
	}
	seenEdge := make(map[edgeKey]bool)
	for _, p := range parts {
		for _, c := range p.Characters {
			if !seenChar[c] {
				seenChar[c] = true
				out.Characters = append(out.Characters, c)
			}
		}
		for _, edge := range p.Relationships {
			k := edgeKey{edge.Character1, edge.Character2, edge.Type}
			if !seenEdge[k] {
				seenEdge[k] = true
				out.Relationships = append(out.Relationships, edge)
			}
		}
	}
	return out
}

// --- store-backed queries ---

func (e *engine) storeOrErr() (*store.Store, error) {
	if e.store == nil {
		return nil, ErrNoStore
	}
	if e.closed.Load() {
		return nil, ErrStoreClosed
	}
	return e.store, nil
}

func (e *engine) Similar(ctx context.Context, text string, k int) ([]Match, error) {
	s, err := e.storeOrErr()
	if err != nil {
		return nil, err
	}
	r := e.Analyze(ctx, text, WithSource("similar"))
	vec := r.Vector()
	excl := ""
	if norm := chunker.Normalize(text); strings.TrimSpace(norm) != "" {
		excl = store.ContentHash(norm)
	}

	found, err := s.Similar(ctx, vec, k, excl)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	matches := make([]Match, len(found))
	for i, m := range found {
		matches[i] = Match{Match: m, Excerpt: excerpt(e.chunkr, m.Text, text)}
	}
	return matches, nil
}

func (e *engine) DocumentRelationships(ctx context.Context, documentID int64) (relation.Result, error) {
	s, err := e.storeOrErr()
	if err != nil {
		return relation.Default(), err
	}
	if _, err := s.GetDocument(ctx, documentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return relation.Default(), ErrNotFound
		}
		return relation.Default(), err
	}
	chars, rels, err := s.DocumentGraph(ctx, documentID)
	if err != nil {
		return relation.Default(), fmt.Errorf("loading document graph: %w", err)
	}
	out := relation.Default()
	out.Characters = chars
	for _, r := range rels {
		out.Relationships = append(out.Relationships, relation.Edge{
			Character1: r.Character1,
			Character2: r.Character2,
			Type:       relation.Type(r.RelationType),
			Indicator:  r.Indicator,
		})
	}
	if len(out.Relationships) > 0 {
		out.InteractionSummary = fmt.Sprintf("%d relationships among %d characters.",
			len(out.Relationships), len(out.Characters))
	}
	return out, nil
}

func (e *engine) ListDocuments(ctx context.Context) ([]store.Document, error) {
	s, err := e.storeOrErr()
	if err != nil {
		return nil, err
	}
	return s.ListDocuments(ctx)
}

func (e *engine) DeleteDocument(ctx context.Context, documentID int64) error {
	s, err := e.storeOrErr()
	if err != nil {
		return err
	}
	if err := s.DeleteDocument(ctx, documentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// --- lexicons ---

func (e *engine) ReloadLexicons(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLexiconLoad, err)
	}
	o, err := lexicon.Parse(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLexiconLoad, err)
	}

	// Overrides always apply to the built-in lists, so reloading the same
	// file is idempotent.
	sl, err := sentiment.DefaultLexicons().With(o)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLexiconLoad, err)
	}
	tl, err := tone.DefaultLexicons().With(o)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLexiconLoad, err)
	}
	rl, err := relation.DefaultLexicons().With(o)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLexiconLoad, err)
	}
	cl, err := setting.DefaultLexicons().With(o)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLexiconLoad, err)
	}
	dl, err := dialogue.DefaultLexicons().With(o)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLexiconLoad, err)
	}
	el, err := timeline.DefaultLexicons().With(o)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLexiconLoad, err)
	}

	sum := sha256.Sum256(data)
	version := hex.EncodeToString(sum[:8])

	e.lexMu.Lock()
	defer e.lexMu.Unlock()
	e.sent.SetLexicons(sl)
	e.tone.SetLexicons(tl)
	e.rel.SetLexicons(rl)
	e.setting.SetLexicons(cl)
	e.dialog.SetLexicons(dl)
	e.events.SetLexicons(el)
	e.version = version
	slog.Info("gonarrate: lexicons reloaded", "path", path, "version", version)
	return nil
}

func (e *engine) LexiconVersion() string {
	e.lexMu.RLock()
	defer e.lexMu.RUnlock()
	return e.version
}

// --- lifecycle ---

func (e *engine) Store() *store.Store {
	return e.store
}

func (e *engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}

func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
