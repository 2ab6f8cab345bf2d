package lexicon

import (
	"os"
	"path/filepath"
	"testing"
)

type color string

const (
	red   color = "red"
	green color = "green"
	blue  color = "blue"
)

var colors = []color{red, green, blue}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"simple", "John loves Mary.", []string{"John", "loves", "Mary"}},
		{"contraction", "Don't stop", []string{"Don't", "stop"}},
		{"curly_apostrophe", "Mary’s lamp", []string{"Mary’s", "lamp"}},
		{"hyphenated", "a well-known tale", []string{"a", "well-known", "tale"}},
		{"trailing_hyphen", "so- called", []string{"so", "called"}},
		{"quote_not_joined", "'tis 'here'", []string{"tis", "here"}},
		{"digits", "In 1066 they fought", []string{"In", "1066", "they", "fought"}},
		{"empty", "", nil},
		{"punctuation_only", "...!?", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("Tokenize(%q) = %d tokens, want %d: %+v", tt.text, len(got), len(tt.want), got)
			}
			for i, tok := range got {
				if tok.Text != tt.want[i] {
					t.Errorf("token[%d] = %q, want %q", i, tok.Text, tt.want[i])
				}
				if tt.text[tok.Start:tok.End] != tok.Text {
					t.Errorf("token[%d] offsets %d:%d do not match text", i, tok.Start, tok.End)
				}
			}
		})
	}
}

func TestTableScan(t *testing.T) {
	table := NewTable(colors, map[color][]string{
		red:   {"crimson", "blood red"},
		green: {"emerald"},
		blue:  {"navy", "sky"},
	})

	tokens := Tokenize("A Crimson sky over the emerald sea, blood red at dusk.")
	hits := table.Scan(tokens)

	want := []struct {
		key  color
		term string
	}{
		{red, "crimson"},
		{blue, "sky"},
		{green, "emerald"},
		{red, "blood red"},
	}
	if len(hits) != len(want) {
		t.Fatalf("got %d hits, want %d: %+v", len(hits), len(want), hits)
	}
	for i, w := range want {
		if hits[i].Key != w.key || hits[i].Term != w.term {
			t.Errorf("hit[%d] = %s/%q, want %s/%q", i, hits[i].Key, hits[i].Term, w.key, w.term)
		}
	}
	text := "A Crimson sky over the emerald sea, blood red at dusk."
	if got := text[hits[3].Start:hits[3].End]; got != "blood red" {
		t.Errorf("phrase span = %q, want %q", got, "blood red")
	}
}

func TestTableWholeWordsOnly(t *testing.T) {
	table := NewTable(colors, map[color][]string{red: {"red"}})
	counts := table.Count(Tokenize("He reddened and retired."))
	if counts[red] != 0 {
		t.Errorf("counts[red] = %d, want 0", counts[red])
	}
}

func TestTableCountHasEveryKey(t *testing.T) {
	table := NewTable(colors, map[color][]string{red: {"red"}, "purple": {"violet"}})
	counts := table.Count(Tokenize("red red violet"))
	if len(counts) != len(colors) {
		t.Fatalf("counts has %d keys, want %d", len(counts), len(colors))
	}
	if counts[red] != 2 || counts[green] != 0 || counts[blue] != 0 {
		t.Errorf("unexpected counts %v", counts)
	}
	if _, ok := counts["purple"]; ok {
		t.Error("keys outside the taxonomy must be ignored")
	}
}

func TestTableWith(t *testing.T) {
	base := NewTable(colors, map[color][]string{red: {"red"}, blue: {"blue"}})
	next, err := base.With(map[string][]string{"red": {"scarlet"}})
	if err != nil {
		t.Fatalf("With: %v", err)
	}
	tokens := Tokenize("red scarlet blue")
	if got := next.Count(tokens)[red]; got != 1 {
		t.Errorf("replaced red count = %d, want 1", got)
	}
	if got := next.Count(tokens)[blue]; got != 1 {
		t.Errorf("untouched blue count = %d, want 1", got)
	}
	if got := base.Count(tokens)[red]; got != 1 {
		t.Errorf("base table must be unchanged, red count = %d", got)
	}

	if _, err := base.With(map[string][]string{"purple": {"violet"}}); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestWordSet(t *testing.T) {
	s := NewWordSet("Very", "so")
	if !s.Has("VERY") || !s.Has("so") || s.Has("too") {
		t.Error("WordSet membership is wrong")
	}
	if n := s.CountIn(Tokenize("so very very tired")); n != 3 {
		t.Errorf("CountIn = %d, want 3", n)
	}
}

func TestArticle(t *testing.T) {
	for word, want := range map[string]string{
		"urban":    "an",
		"rural":    "a",
		"enemy":    "an",
		"romantic": "a",
		"":         "a",
	} {
		if got := Article(word); got != want {
			t.Errorf("Article(%q) = %q, want %q", word, got, want)
		}
	}
}

func TestDensity(t *testing.T) {
	tests := []struct {
		hits, units int
		want        float64
	}{
		{0, 5, 0},
		{1, 4, 0.25},
		{4, 4, 1},
		{9, 2, 1},
		{3, 0, 0},
		{-1, 3, 0},
	}
	for _, tt := range tests {
		if got := Density(tt.hits, tt.units); got != tt.want {
			t.Errorf("Density(%d, %d) = %v, want %v", tt.hits, tt.units, got, tt.want)
		}
	}
}

func TestArgmaxTieBreak(t *testing.T) {
	tests := []struct {
		name   string
		scores map[color]float64
		want   color
	}{
		{"all_zero", map[color]float64{}, red},
		{"tie_green_blue", map[color]float64{green: 0.5, blue: 0.5}, green},
		{"unique_max", map[color]float64{red: 0.1, blue: 0.9}, blue},
		{"tie_all", map[color]float64{red: 1, green: 1, blue: 1}, red},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Argmax(colors, tt.scores); got != tt.want {
				t.Errorf("Argmax = %s, want %s", got, tt.want)
			}
		})
	}
	if got := Argmax[color](nil, nil); got != "" {
		t.Errorf("Argmax on empty order = %q, want zero value", got)
	}
}

func TestClamp01(t *testing.T) {
	nan := 0.0
	nan = nan / nan
	for in, want := range map[float64]float64{-2: 0, 0.3: 0.3, 7: 1} {
		if got := Clamp01(in); got != want {
			t.Errorf("Clamp01(%v) = %v, want %v", in, got, want)
		}
	}
	if got := Clamp01(nan); got != 0 {
		t.Errorf("Clamp01(NaN) = %v, want 0", got)
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lexicons.json")
	data := `{"tones": {"dramatic": ["suddenly"]}, "themes": {"mystery": ["clue"]}}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	o, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := o.Section(SectionTones)["dramatic"]; len(got) != 1 || got[0] != "suddenly" {
		t.Errorf("tones.dramatic = %v", got)
	}
	if o.Section(SectionPlaces) != nil {
		t.Error("absent section should be nil")
	}
}

func TestParseOverridesErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad_json", `{"tones": [}`},
		{"unknown_section", `{"colours": {"red": ["scarlet"]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
