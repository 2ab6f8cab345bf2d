// Package analysis composes the unit decomposer and the four facet engines
// into a single pass over a text. It owns the degradation policy: a failure
// inside one facet is replaced by that facet's default and recorded as a
// diagnostic, and never aborts the other facets or reaches the caller.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/brunobiangulo/gonarrate/chunker"
	"github.com/brunobiangulo/gonarrate/relation"
	"github.com/brunobiangulo/gonarrate/sentiment"
	"github.com/brunobiangulo/gonarrate/setting"
	"github.com/brunobiangulo/gonarrate/tone"
)

const tracerName = "github.com/brunobiangulo/gonarrate/analysis"

// Facet names one part of a Result. The values match the JSON keys.
type Facet string

const (
	FacetUnits         Facet = "semantic_units"
	FacetSentiment     Facet = "sentiment"
	FacetTone          Facet = "tone"
	FacetRelationships Facet = "relationships"
	FacetContext       Facet = "context"
)

// SentimentAnalyzer scores polarity and emotions. *sentiment.Engine
// implements it.
type SentimentAnalyzer interface {
	Analyze(ctx context.Context, text string, units []chunker.Unit) (sentiment.Result, error)
}

// BatchSentimentAnalyzer is implemented by sentiment analyzers that can
// amortize classifier calls over a whole batch.
type BatchSentimentAnalyzer interface {
	AnalyzeBatch(ctx context.Context, texts []string) []sentiment.Result
}

// ToneAnalyzer scores tones. *tone.Engine implements it.
type ToneAnalyzer interface {
	Analyze(ctx context.Context, text string, units []chunker.Unit) (tone.Result, error)
}

// RelationExtractor finds characters and their relationships.
// *relation.Engine implements it.
type RelationExtractor interface {
	Extract(ctx context.Context, text string, units []chunker.Unit) (relation.Result, error)
}

// ContextAnalyzer scores the story setting. *setting.Engine implements it.
type ContextAnalyzer interface {
	Analyze(ctx context.Context, text string, units []chunker.Unit) (setting.Result, error)
}

// Components are the engines an Orchestrator runs. They are built once by
// the caller and shared by every call; nil fields get the lexicon-only
// default engine.
type Components struct {
	Chunker   *chunker.Chunker
	Sentiment SentimentAnalyzer
	Tone      ToneAnalyzer
	Relations RelationExtractor
	Context   ContextAnalyzer
}

// DefaultComponents builds lexicon-only engines sharing one chunker. The
// tone engine takes its polarity from the sentiment engine so both follow
// lexicon reloads.
func DefaultComponents(classifier sentiment.Classifier) Components {
	ch := chunker.New(chunker.Config{})
	sent := sentiment.New(classifier, sentiment.WithChunker(ch))
	return Components{
		Chunker:   ch,
		Sentiment: sent,
		Tone:      tone.New(sent, tone.WithChunker(ch)),
		Relations: relation.New(relation.WithChunker(ch)),
		Context:   setting.New(setting.WithChunker(ch)),
	}
}

// Diagnostic records why a facet holds its default value.
type Diagnostic struct {
	Facet Facet  `json:"facet"`
	Error string `json:"error"`
}

// Result is the aggregate annotation of one text.
type Result struct {
	SemanticUnits []chunker.Unit   `json:"semantic_units"`
	Sentiment     sentiment.Result `json:"sentiment"`
	Tone          tone.Result      `json:"tone"`
	Relationships relation.Result  `json:"relationships"`
	Context       setting.Result   `json:"context"`
	Degraded      bool             `json:"degraded"`
	Diagnostics   []Diagnostic     `json:"diagnostics"`
}

// Empty returns the all-default result produced for empty input. It is not
// degraded.
func Empty() *Result {
	return &Result{
		SemanticUnits: make([]chunker.Unit, 0),
		Sentiment:     sentiment.Default(),
		Tone:          tone.Default(),
		Relationships: relation.Default(),
		Context:       setting.Default(),
		Diagnostics:   make([]Diagnostic, 0),
	}
}

func (r *Result) degrade(facet Facet, err error) {
	r.Degraded = true
	r.Diagnostics = append(r.Diagnostics, Diagnostic{Facet: facet, Error: err.Error()})
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConcurrency bounds the number of texts AnalyzeBatch processes at once.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithTracer sets the tracer used for facet spans. The global provider is
// used by default.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// Orchestrator runs the engines over texts. It holds no per-call state and
// is safe for concurrent use.
type Orchestrator struct {
	c           Components
	concurrency int
	logger      *slog.Logger
	tracer      trace.Tracer
}

// New builds an Orchestrator over c.
func New(c Components, opts ...Option) *Orchestrator {
	def := DefaultComponents(nil)
	if c.Chunker == nil {
		c.Chunker = def.Chunker
	}
	if c.Sentiment == nil {
		c.Sentiment = def.Sentiment
	}
	if c.Tone == nil {
		c.Tone = def.Tone
	}
	if c.Relations == nil {
		c.Relations = def.Relations
	}
	if c.Context == nil {
		c.Context = def.Context
	}

	o := &Orchestrator{
		c:           c,
		concurrency: runtime.GOMAXPROCS(0),
	}
	for _, fn := range opts {
		fn(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}
	return o
}

// Default builds an Orchestrator over lexicon-only engines.
func Default(opts ...Option) *Orchestrator {
	return New(DefaultComponents(nil), opts...)
}

// Components returns the engines the orchestrator runs.
func (o *Orchestrator) Components() Components {
	return o.c
}

// Analyze annotates text. It never fails: empty input yields Empty(), and a
// facet that errors or panics is replaced by its default with Degraded set.
// A done ctx therefore produces a degraded result.
func (o *Orchestrator) Analyze(ctx context.Context, text string) *Result {
	return o.analyze(ctx, text, nil)
}

// AnalyzeBatch annotates every text. The output has the same length and
// order as texts and each entry equals Analyze of the matching text. When
// the sentiment analyzer supports batches its classifier is called once for
// the whole batch.
func (o *Orchestrator) AnalyzeBatch(ctx context.Context, texts []string) []*Result {
	out := make([]*Result, len(texts))
	if len(texts) == 0 {
		return out
	}
	pre := o.batchSentiment(ctx, texts)

	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for i, text := range texts {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					o.logger.Error("analysis: batch entry panicked", "index", i, "panic", r)
					out[i] = Empty()
					out[i].degrade(FacetUnits, fmt.Errorf("panic: %v", r))
				}
			}()
			var s *sentiment.Result
			if pre != nil {
				s = &pre[i]
			}
			out[i] = o.analyze(ctx, text, s)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// batchSentiment runs the sentiment batch path when available. It returns
// nil when the analyzer has no batch path, the batch fails, or ctx is done.
func (o *Orchestrator) batchSentiment(ctx context.Context, texts []string) (res []sentiment.Result) {
	b, ok := o.c.Sentiment.(BatchSentimentAnalyzer)
	if !ok || ctx.Err() != nil {
		return nil
	}
	ctx, span := o.tracer.Start(ctx, "analysis.sentiment_batch",
		trace.WithAttributes(attribute.Int("analysis.batch_size", len(texts))))
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			o.logger.Warn("analysis: sentiment batch panicked, scoring per text", "panic", r)
			span.SetStatus(codes.Error, "panic")
			res = nil
		}
	}()

	normalized := make([]string, len(texts))
	for i, t := range texts {
		normalized[i] = chunker.Normalize(t)
	}
	res = b.AnalyzeBatch(ctx, normalized)
	if len(res) != len(texts) || ctx.Err() != nil {
		return nil
	}
	return res
}

func (o *Orchestrator) analyze(ctx context.Context, text string, pre *sentiment.Result) *Result {
	if strings.TrimSpace(text) == "" {
		return Empty()
	}
	ctx, span := o.tracer.Start(ctx, "analysis.analyze",
		trace.WithAttributes(attribute.Int("analysis.text_bytes", len(text))))
	defer span.End()

	text = chunker.Normalize(text)
	res := Empty()

	res.SemanticUnits = run(ctx, o, res, FacetUnits, func() []chunker.Unit { return make([]chunker.Unit, 0) },
		func(context.Context) ([]chunker.Unit, error) {
			return o.c.Chunker.Decompose(text), nil
		})
	units := res.SemanticUnits
	span.SetAttributes(attribute.Int("analysis.units", len(units)))

	if pre != nil {
		res.Sentiment = *pre
	} else {
		res.Sentiment = run(ctx, o, res, FacetSentiment, sentiment.Default,
			func(ctx context.Context) (sentiment.Result, error) {
				return o.c.Sentiment.Analyze(ctx, text, units)
			})
	}
	res.Tone = run(ctx, o, res, FacetTone, tone.Default,
		func(ctx context.Context) (tone.Result, error) {
			return o.c.Tone.Analyze(ctx, text, units)
		})
	res.Relationships = run(ctx, o, res, FacetRelationships, relation.Default,
		func(ctx context.Context) (relation.Result, error) {
			return o.c.Relations.Extract(ctx, text, units)
		})
	res.Context = run(ctx, o, res, FacetContext, setting.Default,
		func(ctx context.Context) (setting.Result, error) {
			return o.c.Context.Analyze(ctx, text, units)
		})

	if res.Degraded {
		span.SetAttributes(attribute.Bool("analysis.degraded", true))
	}
	return res
}

// run calls fn inside a span. A returned error or a panic yields def() and
// a diagnostic on res.
func run[T any](ctx context.Context, o *Orchestrator, res *Result, facet Facet, def func() T, fn func(context.Context) (T, error)) (out T) {
	ctx, span := o.tracer.Start(ctx, "analysis."+string(facet))
	defer span.End()

	fail := func(err error) {
		o.logger.Warn("analysis: facet degraded", "facet", facet, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		res.degrade(facet, err)
		out = def()
	}
	defer func() {
		if r := recover(); r != nil {
			fail(fmt.Errorf("panic: %v", r))
		}
	}()

	v, err := fn(ctx)
	if err != nil {
		fail(err)
		return out
	}
	return v
}
