package gonarrate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brunobiangulo/gonarrate/chunker"
	"github.com/brunobiangulo/gonarrate/dialogue"
	"github.com/brunobiangulo/gonarrate/relation"
	"github.com/brunobiangulo/gonarrate/sentiment"
	"github.com/brunobiangulo/gonarrate/timeline"
)

func newMemoryEngine(t *testing.T) Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.StorageDir = "none"
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func writeLexicons(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lexicons.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"storage_dir", func(c *Config) { c.StorageDir = "cloud" }},
		{"threshold", func(c *Config) { c.NeutralThreshold = 1.5 }},
		{"negative_window", func(c *Config) { c.RelationWindow = -1 }},
		{"classifier", func(c *Config) { c.Classifier.Provider = "nope" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.StorageDir = "none"
			tt.mutate(&cfg)
			if _, err := New(cfg); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestResolveDBPath(t *testing.T) {
	c := Config{DBPath: "/tmp/x.db"}
	if got := c.resolveDBPath(); got != "/tmp/x.db" {
		t.Errorf("explicit path = %q", got)
	}
	c = Config{DBName: "novel", StorageDir: "local"}
	if got := c.resolveDBPath(); got != "novel.db" {
		t.Errorf("local path = %q", got)
	}
	c = Config{}
	if got := c.resolveDBPath(); !strings.HasSuffix(got, filepath.Join(".gonarrate", "gonarrate.db")) {
		t.Errorf("home path = %q", got)
	}
	if (&Config{StorageDir: "none"}).storeEnabled() {
		t.Error("store enabled with storage_dir none")
	}
}

func TestAnalyzeWithoutStore(t *testing.T) {
	e := newMemoryEngine(t)
	ctx := context.Background()

	r := e.Analyze(ctx, "I am so happy and overjoyed today!")
	if r.Degraded || r.Sentiment.Label != sentiment.Positive {
		t.Errorf("result = %+v", r.Sentiment)
	}
	if empty := e.Analyze(ctx, "   "); empty.Degraded || len(empty.SemanticUnits) != 0 {
		t.Errorf("empty result = %+v", empty)
	}

	if e.Store() != nil {
		t.Error("store present with storage_dir none")
	}
	if _, err := e.Similar(ctx, "anything", 3); !errors.Is(err, ErrNoStore) {
		t.Errorf("Similar err = %v, want ErrNoStore", err)
	}
	if _, err := e.ListDocuments(ctx); !errors.Is(err, ErrNoStore) {
		t.Errorf("ListDocuments err = %v, want ErrNoStore", err)
	}
}

func TestAnalyzeBatchWithoutStore(t *testing.T) {
	e := newMemoryEngine(t)
	texts := []string{"John loves Mary.", "", "I am so happy and overjoyed today!"}
	got := e.AnalyzeBatch(context.Background(), texts)
	if len(got) != len(texts) {
		t.Fatalf("len = %d", len(got))
	}
	if len(got[0].Relationships.Relationships) != 1 {
		t.Errorf("first = %+v", got[0].Relationships)
	}
	if len(got[1].SemanticUnits) != 0 {
		t.Errorf("empty entry = %+v", got[1])
	}
	if got[2].Sentiment.Label != sentiment.Positive {
		t.Errorf("third label = %s", got[2].Sentiment.Label)
	}
}

func TestReloadLexicons(t *testing.T) {
	e := newMemoryEngine(t)
	ctx := context.Background()
	text := "The day was grand."

	before := e.Analyze(ctx, text).Sentiment.Label
	if e.LexiconVersion() != builtinLexicons {
		t.Fatalf("version = %q", e.LexiconVersion())
	}

	path := writeLexicons(t, `{"polarity": {"positive": ["grand"]}}`)
	if err := e.ReloadLexicons(path); err != nil {
		t.Fatal(err)
	}
	v := e.LexiconVersion()
	if v == builtinLexicons || v == "" {
		t.Errorf("version after reload = %q", v)
	}
	if got := e.Analyze(ctx, text).Sentiment.Label; got != sentiment.Positive {
		t.Errorf("label after reload = %s (before %s)", got, before)
	}

	// Reloading the same file gives the same version.
	if err := e.ReloadLexicons(path); err != nil {
		t.Fatal(err)
	}
	if e.LexiconVersion() != v {
		t.Error("version changed on identical reload")
	}
}

func TestReloadLexiconsRejectsBadFiles(t *testing.T) {
	e := newMemoryEngine(t)
	bad := []string{
		`not json`,
		`{"colours": {"red": ["crimson"]}}`,
		`{"tones": {"sarcastic": ["yeah right"]}}`,
		`{"emotions": {"boredom": ["meh"]}}`,
		`{"dialogue": {"verbs": ["said"]}}`,
		`{"timeline": {"eras": ["bronze age"]}}`,
	}
	for _, content := range bad {
		if err := e.ReloadLexicons(writeLexicons(t, content)); !errors.Is(err, ErrLexiconLoad) {
			t.Errorf("%s: err = %v, want ErrLexiconLoad", content, err)
		}
	}
	if err := e.ReloadLexicons(filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, ErrLexiconLoad) {
		t.Errorf("missing file err = %v", err)
	}
	if e.LexiconVersion() != builtinLexicons {
		t.Errorf("failed reload changed version to %q", e.LexiconVersion())
	}
}

func TestLexiconPathAtStartup(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageDir = "none"
	cfg.LexiconPath = writeLexicons(t, `{"themes": {"mystery": ["riddle"]}}`)
	e, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	r := e.Analyze(context.Background(), "A riddle waited at the door.")
	if r.Context.Themes["mystery"] <= 0 {
		t.Errorf("themes = %v", r.Context.Themes)
	}

	cfg.LexiconPath = writeLexicons(t, `{"themes": {"horror": ["ghost"]}}`)
	if _, err := New(cfg); !errors.Is(err, ErrLexiconLoad) {
		t.Errorf("err = %v, want ErrLexiconLoad", err)
	}
}

func TestAnalyzeFileWithoutStore(t *testing.T) {
	e := newMemoryEngine(t)
	path := filepath.Join(t.TempDir(), "story.txt")
	story := "Chapter 1\nJohn loves Mary.\n\n* * *\nJohn met his brother Tom.\nChapter 2\nMary and her friend Ann laughed.\n"
	if err := os.WriteFile(path, []byte(story), 0644); err != nil {
		t.Fatal(err)
	}

	fa, err := e.AnalyzeFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if fa.DocumentID != 0 || fa.Format != "txt" || len(fa.Passages) != 3 {
		t.Fatalf("file analysis = %+v", fa)
	}
	if fa.Passages[2].Heading != "Chapter 2" {
		t.Errorf("third heading = %q", fa.Passages[2].Heading)
	}
	if len(fa.Characters) == 0 || fa.Characters[0] != "John" {
		t.Errorf("characters = %v", fa.Characters)
	}
	if fa.Groups == nil {
		t.Error("groups is nil")
	}
	if _, err := e.AnalyzeFile(context.Background(), "notes.docx"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("docx err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestAnalyzeFileNarrative(t *testing.T) {
	e := newMemoryEngine(t)
	path := filepath.Join(t.TempDir(), "story.txt")
	story := "\"Where is it?\" asked Tom.\n\n* * *\nYesterday Anna found the map. \"Here,\" said Anna.\n"
	if err := os.WriteFile(path, []byte(story), 0644); err != nil {
		t.Fatal(err)
	}

	fa, err := e.AnalyzeFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	lines := fa.Dialogue.Lines
	if len(lines) != 2 {
		t.Fatalf("dialogue lines = %+v", lines)
	}
	for i, want := range []struct {
		passage int
		speaker string
	}{{0, "Tom"}, {1, "Anna"}} {
		if lines[i].Passage != want.passage || lines[i].Speaker != want.speaker {
			t.Errorf("line %d = %+v, want passage %d speaker %s", i, lines[i], want.passage, want.speaker)
		}
	}
	events := fa.Timeline.Events
	if len(events) != 1 || events[0].Passage != 1 || events[0].Marker != "Yesterday" {
		t.Errorf("timeline events = %+v", events)
	}
	if fa.Degraded {
		t.Error("file analysis degraded")
	}
}

func TestAnalyzeNarrative(t *testing.T) {
	e := newMemoryEngine(t)
	ctx := context.Background()
	text := `«Bonjour,» dit Marie. Then she left.`

	n, err := e.AnalyzeNarrative(ctx, text)
	if err != nil {
		t.Fatal(err)
	}
	if len(n.Dialogue.Lines) != 1 || n.Dialogue.Lines[0].Attribution != dialogue.Proximity {
		t.Errorf("dialogue = %+v", n.Dialogue.Lines)
	}
	if len(n.Timeline.Events) != 1 || n.Timeline.Events[0].Type != timeline.Departure {
		t.Errorf("timeline = %+v", n.Timeline.Events)
	}

	if err := e.ReloadLexicons(writeLexicons(t, `{"dialogue": {"speech_verbs": ["dit"]}}`)); err != nil {
		t.Fatal(err)
	}
	n, err = e.AnalyzeNarrative(ctx, text)
	if err != nil {
		t.Fatal(err)
	}
	if n.Dialogue.Lines[0].Attribution != dialogue.SpeechVerb {
		t.Errorf("attribution after reload = %s", n.Dialogue.Lines[0].Attribution)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := e.AnalyzeNarrative(cancelled, text); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestMergeRelations(t *testing.T) {
	parts := []relation.Result{
		{Characters: []string{"John", "Mary"}, Relationships: []relation.Edge{
			{Character1: "John", Character2: "Mary", Type: relation.Romantic, Indicator: "loves"},
		}},
		relation.Default(),
		{Characters: []string{"Mary", "Tom"}, Relationships: []relation.Edge{
			{Character1: "John", Character2: "Mary", Type: relation.Romantic, Indicator: "kissed"},
			{Character1: "Mary", Character2: "Tom", Type: relation.Friendship, Indicator: "friend"},
		}},
	}
	got := mergeRelations(parts)
	if strings.Join(got.Characters, ",") != "John,Mary,Tom" {
		t.Errorf("characters = %v", got.Characters)
	}
	if len(got.Relationships) != 2 || got.Relationships[0].Indicator != "loves" {
		t.Errorf("relationships = %+v", got.Relationships)
	}
	if empty := mergeRelations(nil); empty.Characters == nil || len(empty.Relationships) != 0 {
		t.Errorf("empty merge = %+v", empty)
	}
}

func TestExcerpt(t *testing.T) {
	c := chunker.New(chunker.Config{})
	passage := "The morning was quiet. The knight polished his sword beside the castle gate. Birds sang. Nothing else happened."
	tests := []struct {
		query string
		want  string
	}{
		{"a knight at the castle", "The knight polished his sword beside the castle gate."},
		{"zzz", "The morning was quiet."},
	}
	for _, tt := range tests {
		if got := excerpt(c, passage, tt.query); got != tt.want {
			t.Errorf("excerpt(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
	if got := excerpt(c, "", "x"); got != "" {
		t.Errorf("empty passage excerpt = %q", got)
	}
}
