package chunker

import (
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// Decompose tests
// ---------------------------------------------------------------------------

func TestDecompose(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		want  []string
		kinds []Kind
	}{
		{
			name:  "single_sentence",
			text:  "John loves Mary.",
			want:  []string{"John loves Mary."},
			kinds: []Kind{KindNarration},
		},
		{
			name:  "two_sentences",
			text:  "The knight rode out. The castle stood silent!",
			want:  []string{"The knight rode out.", "The castle stood silent!"},
			kinds: []Kind{KindNarration, KindNarration},
		},
		{
			name:  "quoted_exclamation",
			text:  `He said, "Run!" Then he left.`,
			want:  []string{`He said, "Run!"`, "Then he left."},
			kinds: []Kind{KindDialogue, KindNarration},
		},
		{
			name:  "curly_quotes",
			text:  "“Stay,” she whispered.",
			want:  []string{"“Stay,” she whispered."},
			kinds: []Kind{KindDialogue},
		},
		{
			name:  "abbreviation",
			text:  "Mr. Smith arrived. He sat down.",
			want:  []string{"Mr. Smith arrived.", "He sat down."},
			kinds: []Kind{KindNarration, KindNarration},
		},
		{
			name:  "initial",
			text:  "J. Watson wrote it.",
			want:  []string{"J. Watson wrote it."},
			kinds: []Kind{KindNarration},
		},
		{
			name:  "middle_initial",
			text:  "She met John F. Kennedy. He smiled.",
			want:  []string{"She met John F. Kennedy.", "He smiled."},
			kinds: []Kind{KindNarration, KindNarration},
		},
		{
			name:  "chained_initials",
			text:  "The letter was from J. R. Smith. It was short.",
			want:  []string{"The letter was from J. R. Smith.", "It was short."},
			kinds: []Kind{KindNarration, KindNarration},
		},
		{
			name:  "pronoun_i_ends_sentence",
			text:  "It was I. Then the door closed.",
			want:  []string{"It was I.", "Then the door closed."},
			kinds: []Kind{KindNarration, KindNarration},
		},
		{
			name:  "lone_capital_ends_sentence",
			text:  "She chose plan A. He chose plan B.",
			want:  []string{"She chose plan A.", "He chose plan B."},
			kinds: []Kind{KindNarration, KindNarration},
		},
		{
			name:  "punctuation_run",
			text:  "Wait... what?! Fine.",
			want:  []string{"Wait...", "what?!", "Fine."},
			kinds: []Kind{KindNarration, KindNarration, KindNarration},
		},
		{
			name:  "blank_line",
			text:  "First line without stop\n\nSecond line",
			want:  []string{"First line without stop", "Second line"},
			kinds: []Kind{KindNarration, KindNarration},
		},
		{
			name:  "no_terminal",
			text:  "  a fragment with no end  ",
			want:  []string{"a fragment with no end"},
			kinds: []Kind{KindNarration},
		},
		{
			name:  "decimal_inside_word",
			text:  "It cost 3.50 coins. Cheap.",
			want:  []string{"It cost 3.50 coins.", "Cheap."},
			kinds: []Kind{KindNarration, KindNarration},
		},
	}

	c := New(Config{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			units := c.Decompose(tt.text)
			if len(units) != len(tt.want) {
				t.Fatalf("Decompose(%q) produced %d units, want %d: %+v", tt.text, len(units), len(tt.want), units)
			}
			for i, u := range units {
				if u.Text != tt.want[i] {
					t.Errorf("unit[%d].Text = %q, want %q", i, u.Text, tt.want[i])
				}
				if u.Kind != tt.kinds[i] {
					t.Errorf("unit[%d].Kind = %q, want %q", i, u.Kind, tt.kinds[i])
				}
				if u.Index != i {
					t.Errorf("unit[%d].Index = %d", i, u.Index)
				}
			}
		})
	}
}

func TestDecomposeEmpty(t *testing.T) {
	c := New(Config{})
	for _, text := range []string{"", "   ", "\n\t \n"} {
		units := c.Decompose(text)
		if units == nil {
			t.Errorf("Decompose(%q) returned nil, want empty slice", text)
		}
		if len(units) != 0 {
			t.Errorf("Decompose(%q) returned %d units, want 0", text, len(units))
		}
	}
}

func TestDecomposeOffsets(t *testing.T) {
	text := "The storm broke. \"Hold fast!\" cried the captain.\n\nDawn came slowly."
	c := New(Config{})
	units := c.Decompose(text)
	if len(units) == 0 {
		t.Fatal("expected units")
	}
	for _, u := range units {
		if got := text[u.Start:u.End]; got != u.Text {
			t.Errorf("text[%d:%d] = %q, want %q", u.Start, u.End, got, u.Text)
		}
	}
	for i := 1; i < len(units); i++ {
		if units[i].Start < units[i-1].End {
			t.Errorf("unit %d starts at %d before previous end %d", i, units[i].Start, units[i-1].End)
		}
	}
}

func TestDecomposeLengthCountsCharacters(t *testing.T) {
	// "e" followed by a combining acute accent normalises to one rune.
	c := New(Config{})
	units := c.Decompose("Cafe\u0301 noir.")
	if len(units) != 1 {
		t.Fatalf("expected 1 unit, got %d", len(units))
	}
	if units[0].Text != "Caf\u00e9 noir." {
		t.Errorf("Text = %q, want NFC form", units[0].Text)
	}
	if units[0].Length != 10 {
		t.Errorf("Length = %d, want 10", units[0].Length)
	}
}

func TestDecomposeMaxUnits(t *testing.T) {
	c := New(Config{MaxUnits: 2})
	units := c.Decompose("One. Two. Three. Four.")
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(units))
	}
	if units[1].Text != "Two." {
		t.Errorf("units[1].Text = %q, want %q", units[1].Text, "Two.")
	}
}

func TestDecomposeDeterministic(t *testing.T) {
	text := strings.Repeat("The night was long. \"Who goes there?\" asked Dr. Reed.\n\n", 5)
	c := New(Config{})
	a := c.Decompose(text)
	b := c.Decompose(text)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("unit %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestNewDefaults(t *testing.T) {
	c := New(Config{MaxUnits: -3})
	cfg := c.Config()
	if cfg.MaxUnits != 0 {
		t.Errorf("MaxUnits = %d, want 0", cfg.MaxUnits)
	}
	if len(cfg.Abbreviations) == 0 {
		t.Error("expected built-in abbreviations")
	}
}

func TestNewCustomAbbreviations(t *testing.T) {
	c := New(Config{Abbreviations: []string{"Sir."}})
	units := c.Decompose("Sir. Galahad knelt. Mr. Brown watched.")
	want := []string{"Sir. Galahad knelt.", "Mr.", "Brown watched."}
	if len(units) != len(want) {
		t.Fatalf("got %d units, want %d: %+v", len(units), len(want), units)
	}
	for i := range want {
		if units[i].Text != want[i] {
			t.Errorf("units[%d] = %q, want %q", i, units[i].Text, want[i])
		}
	}
}

// ---------------------------------------------------------------------------
// Structure helper tests
// ---------------------------------------------------------------------------

func TestIsHeading(t *testing.T) {
	tests := []struct {
		name string
		line string
		want bool
	}{
		{"chapter_number", "Chapter 1", true},
		{"chapter_roman", "CHAPTER IV: The Storm", true},
		{"chapter_word", "Chapter Twelve", true},
		{"part", "Part One", true},
		{"act", "Act 3", true},
		{"prologue", "Prologue", true},
		{"all_caps", "THE LONG NIGHT", true},
		{"markdown_h2", "## Homecoming", true},
		{"regular_text", "This is a normal sentence.", false},
		{"chapter_in_prose", "The chapter ended abruptly.", false},
		{"empty", "", false},
		{"short_caps", "AB", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsHeading(tt.line); got != tt.want {
				t.Errorf("IsHeading(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

func TestIsSceneBreak(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"***", true},
		{"* * *", true},
		{"---", true},
		{"#", true},
		{"  ~~~  ", true},
		{"-", false},
		{"# Heading", false},
		{"", false},
		{"She left.", false},
	}
	for _, tt := range tests {
		if got := IsSceneBreak(tt.line); got != tt.want {
			t.Errorf("IsSceneBreak(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestPassages(t *testing.T) {
	text := "Chapter 1\nIt was dark.\nThe wind howled.\n\n* * *\nMorning came.\nChapter 2\nThe end."
	got := Passages(text)
	want := []Passage{
		{Heading: "Chapter 1", Text: "It was dark.\nThe wind howled."},
		{Heading: "Chapter 1", Text: "Morning came."},
		{Heading: "Chapter 2", Text: "The end."},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d passages, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("passage[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestPassagesNoStructure(t *testing.T) {
	got := Passages("Just one paragraph of prose.")
	if len(got) != 1 || got[0].Heading != "" {
		t.Fatalf("unexpected passages: %+v", got)
	}
}
