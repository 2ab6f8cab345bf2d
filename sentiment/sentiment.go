// Package sentiment classifies the polarity of narrative text and scores a
// fixed set of emotions. Polarity comes from an external classifier when one
// is configured and healthy, and from a polarity lexicon otherwise; emotions
// always come from the internal emotion lexicon.
package sentiment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/brunobiangulo/gonarrate/chunker"
	"github.com/brunobiangulo/gonarrate/lexicon"
)

// Label is the sentiment polarity label.
type Label string

const (
	Positive Label = "POSITIVE"
	Negative Label = "NEGATIVE"
	Neutral  Label = "NEUTRAL"
)

// Labels lists every label in canonical order.
var Labels = []Label{Positive, Negative, Neutral}

// Emotion is one key of the emotion taxonomy.
type Emotion string

const (
	Joy      Emotion = "joy"
	Sadness  Emotion = "sadness"
	Anger    Emotion = "anger"
	Fear     Emotion = "fear"
	Surprise Emotion = "surprise"
	Love     Emotion = "love"
)

// Emotions is the canonical emotion order.
var Emotions = []Emotion{Joy, Sadness, Anger, Fear, Surprise, Love}

// Source records which path produced a label.
type Source string

const (
	SourceModel   Source = "model"
	SourceLexicon Source = "lexicon"
	SourceDefault Source = "default"
)

// DefaultNeutralThreshold is the confidence below which a polar classifier
// label is reported as NEUTRAL.
const DefaultNeutralThreshold = 0.6

// Result is the sentiment facet of an analysis.
type Result struct {
	Label    Label               `json:"label"`
	Score    float64             `json:"score"`
	Emotions map[Emotion]float64 `json:"emotions"`
	Polarity float64             `json:"polarity"`
	Source   Source              `json:"source"`
}

// Default returns the neutral result used for empty input and as the last
// resort when scoring fails.
func Default() Result {
	return Result{
		Label:    Neutral,
		Score:    0.5,
		Emotions: lexicon.Zero(Emotions),
		Source:   SourceDefault,
	}
}

// Classification is the raw answer of an external classifier.
type Classification struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Classifier is the external classification capability.
type Classifier interface {
	Classify(ctx context.Context, text string) (Classification, error)
}

// BatchClassifier is implemented by classifiers that can score several
// texts in one request.
type BatchClassifier interface {
	ClassifyBatch(ctx context.Context, texts []string) ([]Classification, error)
}

// Availability is the optional health check of a Classifier.
type Availability interface {
	Available() bool
}

// Verdict is a mapped polarity decision.
type Verdict struct {
	Label    Label
	Score    float64
	Polarity float64
	Source   Source
}

func defaultVerdict() Verdict {
	return Verdict{Label: Neutral, Score: 0.5, Source: SourceDefault}
}

// Strategy produces a Verdict for a text. Model and Lexicon are the two
// implementations.
type Strategy interface {
	Verdict(ctx context.Context, text string) (Verdict, error)
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	threshold float64
	lexicons  *Lexicons
	chunker   *chunker.Chunker
	logger    *slog.Logger
}

// WithThreshold overrides DefaultNeutralThreshold.
func WithThreshold(t float64) Option {
	return func(o *options) { o.threshold = t }
}

// WithLexicons replaces the built-in lexicons.
func WithLexicons(l Lexicons) Option {
	return func(o *options) { o.lexicons = &l }
}

// WithChunker sets the decomposer used when Analyze is called without units.
func WithChunker(c *chunker.Chunker) Option {
	return func(o *options) { o.chunker = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Engine is the sentiment analyzer. It is safe for concurrent use.
type Engine struct {
	primary  *Model
	fallback atomic.Pointer[Lexicon]
	chunker  *chunker.Chunker
	logger   *slog.Logger
}

// New builds an Engine. primary may be nil, in which case every call uses
// the lexicon path.
func New(primary Classifier, opts ...Option) *Engine {
	o := options{threshold: DefaultNeutralThreshold}
	for _, fn := range opts {
		fn(&o)
	}
	if o.threshold <= 0 || o.threshold > 1 {
		o.threshold = DefaultNeutralThreshold
	}
	if o.chunker == nil {
		o.chunker = chunker.New(chunker.Config{})
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	lex := DefaultLexicons()
	if o.lexicons != nil {
		lex = *o.lexicons
	}

	e := &Engine{chunker: o.chunker, logger: o.logger}
	if primary != nil {
		e.primary = NewModel(primary, o.threshold)
	}
	e.fallback.Store(NewLexicon(lex))
	return e
}

// SetLexicons atomically replaces the lexicons used by the fallback path
// and the emotion scorer. Calls in flight keep the previous set.
func (e *Engine) SetLexicons(l Lexicons) {
	e.fallback.Store(NewLexicon(l))
}

// Lexicons returns the lexicons in force.
func (e *Engine) Lexicons() Lexicons {
	return e.fallback.Load().Lexicons()
}

// Lexicon returns the fallback strategy in force. Its Polarity method is the
// rule-based polarity other engines rely on.
func (e *Engine) Lexicon() *Lexicon {
	return e.fallback.Load()
}

// Polarity is the lexicon polarity of text under the lexicons in force, so
// a tone engine built on e follows lexicon reloads.
func (e *Engine) Polarity(text string) Label {
	return e.fallback.Load().Polarity(text)
}

// Analyze scores text. units is the decomposition of text; when nil the
// engine decomposes text itself. Analyze only fails when ctx is done, in
// which case the default result is returned with ctx's error.
func (e *Engine) Analyze(ctx context.Context, text string, units []chunker.Unit) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Default(), err
	}
	if strings.TrimSpace(text) == "" {
		return Default(), nil
	}
	if units == nil {
		units = e.chunker.Decompose(text)
	}

	lex := e.fallback.Load()
	v := e.verdict(ctx, lex, text)
	return Result{
		Label:    v.Label,
		Score:    lexicon.Clamp01(v.Score),
		Polarity: v.Polarity,
		Source:   v.Source,
		Emotions: safeEmotions(lex, text, len(units)),
	}, nil
}

// AnalyzeBatch scores each text, preserving order. When the classifier
// accepts batches the texts are sent in one request.
func (e *Engine) AnalyzeBatch(ctx context.Context, texts []string) []Result {
	results := make([]Result, len(texts))
	if len(texts) == 0 {
		return results
	}

	var verdicts []Verdict
	if e.primary != nil && e.primary.Available() {
		vs, err := e.primary.VerdictBatch(ctx, texts)
		if err != nil {
			e.logger.Debug("sentiment: batch classification failed, scoring per text", "error", err)
		} else {
			verdicts = vs
		}
	}

	lex := e.fallback.Load()
	for i, text := range texts {
		if verdicts == nil || strings.TrimSpace(text) == "" || ctx.Err() != nil {
			results[i], _ = e.Analyze(ctx, text, nil)
			continue
		}
		units := e.chunker.Decompose(text)
		results[i] = Result{
			Label:    verdicts[i].Label,
			Score:    lexicon.Clamp01(verdicts[i].Score),
			Polarity: verdicts[i].Polarity,
			Source:   verdicts[i].Source,
			Emotions: safeEmotions(lex, text, len(units)),
		}
	}
	return results
}

// verdict picks the classifier when it reports healthy and falls back to
// the lexicon on any failure.
func (e *Engine) verdict(ctx context.Context, lex *Lexicon, text string) Verdict {
	if e.primary != nil && e.primary.Available() {
		v, err := e.primary.Verdict(ctx, text)
		if err == nil {
			return v
		}
		e.logger.Debug("sentiment: classifier failed, using lexicon", "error", err)
	}
	return safeVerdict(ctx, lex, text)
}

func safeVerdict(ctx context.Context, lex *Lexicon, text string) (v Verdict) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("sentiment: lexicon path panicked", "panic", r)
			v = defaultVerdict()
		}
	}()
	v, err := lex.Verdict(ctx, text)
	if err != nil {
		return defaultVerdict()
	}
	return v
}

func safeEmotions(lex *Lexicon, text string, units int) (scores map[Emotion]float64) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("sentiment: emotion scoring panicked", "panic", r)
			scores = lexicon.Zero(Emotions)
		}
	}()
	return lex.Emotions(text, units)
}

// Model is the classifier-backed strategy.
type Model struct {
	classifier Classifier
	threshold  float64
}

// NewModel wraps c, mapping its labels with the given neutral threshold.
func NewModel(c Classifier, threshold float64) *Model {
	return &Model{classifier: c, threshold: threshold}
}

// Available reports the classifier's health. Classifiers without a health
// check are assumed available.
func (m *Model) Available() bool {
	if a, ok := m.classifier.(Availability); ok {
		return a.Available()
	}
	return true
}

// Verdict classifies text and maps the answer. A panic inside the
// classifier is reported as an error.
func (m *Model) Verdict(ctx context.Context, text string) (v Verdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("classifier panic: %v", r)
		}
	}()
	c, err := m.classifier.Classify(ctx, text)
	if err != nil {
		return Verdict{}, err
	}
	return MapClassification(c, m.threshold)
}

// VerdictBatch classifies texts in one request when the classifier supports
// it, and one by one otherwise. Any failure fails the whole batch.
func (m *Model) VerdictBatch(ctx context.Context, texts []string) (vs []Verdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("classifier panic: %v", r)
		}
	}()
	bc, ok := m.classifier.(BatchClassifier)
	if !ok {
		vs = make([]Verdict, len(texts))
		for i, text := range texts {
			if vs[i], err = m.Verdict(ctx, text); err != nil {
				return nil, err
			}
		}
		return vs, nil
	}

	cs, err := bc.ClassifyBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(cs) != len(texts) {
		return nil, fmt.Errorf("%w: %d answers for %d texts", ErrMalformed, len(cs), len(texts))
	}
	vs = make([]Verdict, len(cs))
	for i, c := range cs {
		if vs[i], err = MapClassification(c, m.threshold); err != nil {
			return nil, err
		}
	}
	return vs, nil
}
