package timeline

import (
	"context"
	"errors"
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/brunobiangulo/gonarrate/lexicon"
	"github.com/brunobiangulo/gonarrate/relation"
)

func newEngine(opts ...Option) *Engine {
	return New(relation.New(), opts...)
}

func analyze(t *testing.T, e *Engine, text string) Result {
	t.Helper()
	r, err := e.Analyze(context.Background(), text, nil)
	if err != nil {
		t.Fatalf("Analyze(%q): %v", text, err)
	}
	return r
}

func TestEvents(t *testing.T) {
	r := analyze(t, newEngine(),
		"Once upon a time a girl lived by the sea. Yesterday she found a shell. Then she went home. The tide turned.")
	if len(r.Events) != 3 {
		t.Fatalf("events = %+v", r.Events)
	}
	want := []struct {
		marker    string
		kind      MarkerKind
		seq       Sequence
		typ       EventType
		certainty float64
	}{
		{"Once", RelativePast, Beginning, General, MarkedCertainty},
		{"Yesterday", RelativePast, "", Discovery, MarkedCertainty},
		{"", "", Continuation, Action, CuedCertainty},
	}
	for i, w := range want {
		ev := r.Events[i]
		if ev.ID != "E"+string(rune('0'+i)) || ev.Order != i || ev.Unit != i {
			t.Errorf("event %d id/order/unit = %s/%d/%d", i, ev.ID, ev.Order, ev.Unit)
		}
		if ev.Marker != w.marker || ev.MarkerKind != w.kind || ev.Sequence != w.seq ||
			ev.Type != w.typ || ev.Certainty != w.certainty {
			t.Errorf("event %d = %+v, want %+v", i, ev, w)
		}
	}
	if len(r.Phases) != 1 || r.Phases[0].Name != "main" || len(r.Phases[0].Events) != 3 {
		t.Errorf("phases = %+v", r.Phases)
	}
	if r.TimeSpan != Days || r.Pacing != Brief || r.Structure != Linear {
		t.Errorf("span/pacing/structure = %s/%s/%s", r.TimeSpan, r.Pacing, r.Structure)
	}
	if math.Abs(r.AverageCertainty-0.7) > 1e-9 {
		t.Errorf("AverageCertainty = %v, want 0.7", r.AverageCertainty)
	}
	if r.EventCounts[Discovery] != 1 || r.MarkerCounts[RelativePast] != 2 {
		t.Errorf("counts = %v %v", r.EventCounts, r.MarkerCounts)
	}
	want0 := "Detected 3 events with 2 temporal markers. Narrative type: linear. Pacing: brief."
	if r.Summary != want0 {
		t.Errorf("Summary = %q, want %q", r.Summary, want0)
	}
}

func TestMarkers(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		kind MarkerKind
	}{
		{"month_day_year", "The ship sailed on March 3, 1912.", "March 3, 1912", Absolute},
		{"year_after_in", "The town was founded in 1850.", "in 1850", Absolute},
		{"slash_date", "The letter is dated 12/05/1890.", "12/05/1890", Absolute},
		{"weekday", "On Monday it rained.", "Monday", Absolute},
		{"clock", "They met at 7:30 pm.", "7:30 pm", TimeOfDay},
		{"days_ago", "She left 10 days ago.", "10 days ago", RelativePast},
		{"in_weeks", "He returns in 3 weeks.", "in 3 weeks", RelativeFuture},
		{"season", "The winter was long.", "winter", Season},
		{"modal_may", "May I come in?", "", ""},
	}
	e := newEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := analyze(t, e, tt.text)
			if tt.want == "" {
				if len(r.Markers) != 0 {
					t.Errorf("markers = %+v, want none", r.Markers)
				}
				return
			}
			if len(r.Markers) != 1 || r.Markers[0].Text != tt.want || r.Markers[0].Kind != tt.kind {
				t.Errorf("markers = %+v, want one %s %q", r.Markers, tt.kind, tt.want)
			}
		})
	}
}

func TestStructure(t *testing.T) {
	tests := []struct {
		text string
		want Structure
	}{
		{"Then it rained.", Linear},
		{"He had been a sailor.", WithFlashback},
		{"Soon we will see.", FlashForward},
		{"She remembered the old house. Tomorrow she will leave.", NonLinear},
	}
	e := newEngine()
	for _, tt := range tests {
		if got := analyze(t, e, tt.text).Structure; got != tt.want {
			t.Errorf("Structure(%q) = %s, want %s", tt.text, got, tt.want)
		}
	}
}

func TestPacingAndPhases(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		pacing Pacing
		phases [][]string
	}{
		{
			name:   "fast",
			text:   "Then he ran. Then he jumped. Then he fought. Then he slept.",
			pacing: Fast,
			phases: [][]string{{"E0"}, {"E1"}, {"E2", "E3"}},
		},
		{
			name:   "moderate",
			text:   "Then he slept. Then he sat. Then he read. Then he ran.",
			pacing: Moderate,
			phases: [][]string{{"E0"}, {"E1"}, {"E2", "E3"}},
		},
		{
			name:   "slow",
			text:   "Then he slept. Then he sat. Then he read. Then he ate. Then he rested. Then he dozed.",
			pacing: Slow,
			phases: [][]string{{"E0", "E1"}, {"E2", "E3"}, {"E4", "E5"}},
		},
	}
	e := newEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := analyze(t, e, tt.text)
			if r.Pacing != tt.pacing {
				t.Errorf("Pacing = %s, want %s", r.Pacing, tt.pacing)
			}
			if len(r.Phases) != len(tt.phases) {
				t.Fatalf("phases = %+v", r.Phases)
			}
			for i, p := range r.Phases {
				if !slices.Equal(p.Events, tt.phases[i]) {
					t.Errorf("phase %s = %v, want %v", p.Name, p.Events, tt.phases[i])
				}
			}
		})
	}
}

func TestTimeSpan(t *testing.T) {
	tests := []struct {
		text string
		want TimeSpan
	}{
		{"Last year he left.", Years},
		{"He returns in 3 months.", Months},
		{"Last week it snowed.", Weeks},
		{"That morning he left.", Days},
		{"Then it rained.", Unspecified},
		{"The sea was grey.", Unknown},
	}
	e := newEngine()
	for _, tt := range tests {
		if got := analyze(t, e, tt.text).TimeSpan; got != tt.want {
			t.Errorf("TimeSpan(%q) = %s, want %s", tt.text, got, tt.want)
		}
	}
}

func TestCharactersAndDescription(t *testing.T) {
	e := newEngine()
	r := analyze(t, e, "Yesterday John met Mary at the market.")
	if len(r.Events) != 1 {
		t.Fatalf("events = %+v", r.Events)
	}
	if ev := r.Events[0]; !slices.Equal(ev.Characters, []string{"John", "Mary"}) || ev.Type != Meeting {
		t.Errorf("event = %+v", ev)
	}

	long := "Then " + strings.Repeat("the road wound on ", 10) + "forever."
	r = analyze(t, e, long)
	if d := r.Events[0].Description; !strings.HasSuffix(d, "...") || len([]rune(d)) != maxDescription+3 {
		t.Errorf("description = %q", d)
	}
}

func TestEmpty(t *testing.T) {
	e := newEngine()
	for _, text := range []string{"", "  \n", "The sea was grey."} {
		r := analyze(t, e, text)
		if len(r.Events) != 0 || r.Summary != NoEvents || r.TimeSpan != Unknown || len(r.Phases) != 0 {
			t.Errorf("Analyze(%q) = %+v", text, r)
		}
	}
}

func TestMerge(t *testing.T) {
	e := newEngine()
	a := analyze(t, e, "Yesterday it rained. Then it stopped.")
	b := analyze(t, e, "He had been a sailor.")

	m := Merge([]Result{a, b})
	if len(m.Events) != 3 {
		t.Fatalf("events = %+v", m.Events)
	}
	for i, want := range []int{0, 0, 1} {
		ev := m.Events[i]
		if ev.Passage != want || ev.Order != i || ev.ID != "E"+string(rune('0'+i)) {
			t.Errorf("event %d = %+v", i, ev)
		}
	}
	if !m.HasFlashback || m.Structure != WithFlashback {
		t.Errorf("structure = %s", m.Structure)
	}
	if len(m.Markers) != len(a.Markers)+len(b.Markers) {
		t.Errorf("markers = %+v", m.Markers)
	}
	if Merge(nil).Summary != NoEvents {
		t.Error("empty merge has events")
	}
}

func TestOverrides(t *testing.T) {
	l, err := DefaultLexicons().With(lexicon.Overrides{
		lexicon.SectionTimeline: {"relative_past": {"erstwhile"}, "flash_forward": {"foretold"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	r := analyze(t, newEngine(WithLexicons(l)), "Erstwhile the seer foretold it.")
	if len(r.Markers) != 1 || r.Markers[0].Kind != RelativePast || r.Structure != FlashForward {
		t.Errorf("result = %+v", r)
	}

	if _, err := DefaultLexicons().With(lexicon.Overrides{
		lexicon.SectionTimeline: {"eras": {"bronze age"}},
	}); err == nil {
		t.Error("unknown key accepted")
	}
}

func TestCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, err := newEngine().Analyze(ctx, "Yesterday it rained.", nil)
	if !errors.Is(err, context.Canceled) || len(r.Events) != 0 {
		t.Errorf("got %+v, %v", r, err)
	}
}
