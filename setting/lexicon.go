package setting

import (
	"fmt"
	"slices"

	"github.com/brunobiangulo/gonarrate/lexicon"
)

// Lexicons holds the term lists of the context engine.
type Lexicons struct {
	Periods map[Period][]string `json:"periods"`
	Places  map[Place][]string  `json:"places"`
	Themes  map[Theme][]string  `json:"themes"`
	Markers map[Marker][]string `json:"markers"`
}

// DefaultLexicons returns the built-in lists. A term may appear under more
// than one key ("street" is both outdoor and urban).
func DefaultLexicons() Lexicons {
	return Lexicons{
		Periods: map[Period][]string{
			Past: {
				"ago", "yesterday", "previously", "before", "earlier", "once",
				"in those days", "ancient", "medieval", "olden", "centuries", "had been",
				"used to",
			},
			Present: {
				"now", "today", "currently", "presently", "at this moment", "these days",
				"nowadays", "modern",
			},
			Future: {
				"tomorrow", "soon", "will", "going to", "next", "someday", "eventually",
				"future",
			},
		},
		Places: map[Place][]string{
			Indoor: {
				"room", "house", "building", "inside", "indoor", "indoors", "hall",
				"castle", "chamber", "kitchen", "cellar", "corridor", "library", "tavern",
				"inn", "church", "cathedral", "palace", "dungeon", "bedroom",
			},
			Outdoor: {
				"outside", "outdoors", "garden", "street", "park", "outdoor", "field",
				"meadow", "sky", "river", "sea", "beach", "hill", "road", "path", "rain",
				"wind", "sun",
			},
			Urban: {
				"city", "town", "street", "building", "urban", "downtown", "alley",
				"market", "square", "traffic", "skyscraper", "subway",
			},
			Rural: {
				"village", "countryside", "farm", "rural", "forest", "mountain", "woods",
				"barn", "cottage", "valley", "fields",
			},
		},
		Themes: map[Theme][]string{
			Adventure: {
				"journey", "quest", "adventure", "explore", "explored", "discovery",
				"voyage", "expedition", "treasure", "travel", "travelled", "traveled",
			},
			Mystery: {
				"mystery", "secret", "secrets", "hidden", "unknown", "puzzle", "clue",
				"clues", "strange", "riddle", "vanished",
			},
			Romance: {
				"love", "loves", "loved", "romance", "heart", "passion", "affection",
				"kiss", "kissed", "beloved",
			},
			Conflict: {
				"war", "battle", "fight", "fought", "conflict", "struggle", "enemy",
				"sword", "attack", "siege",
			},
			Growth: {
				"learn", "learned", "grow", "grew", "develop", "change", "changed",
				"transform", "became", "lesson", "wisdom",
			},
		},
		Markers: map[Marker][]string{
			Historical: {
				"century", "centuries", "ancient", "medieval", "historical", "era",
				"dynasty", "knight", "knights", "castle", "kingdom", "empire", "feudal",
				"middle ages", "pharaoh", "sword", "throne",
			},
			Futuristic: {
				"future", "technology", "robot", "robots", "space", "spaceship", "starship",
				"cyber", "virtual", "android", "laser", "galaxy", "planet", "hologram",
				"artificial intelligence",
			},
		},
	}
}

// With returns a copy of l with the lists named in the periods, places,
// themes and markers sections of o replaced.
func (l Lexicons) With(o lexicon.Overrides) (Lexicons, error) {
	out := Lexicons{
		Periods: clone(l.Periods),
		Places:  clone(l.Places),
		Themes:  clone(l.Themes),
		Markers: clone(l.Markers),
	}
	if err := replace(out.Periods, Periods, o.Section(lexicon.SectionPeriods)); err != nil {
		return Lexicons{}, err
	}
	if err := replace(out.Places, Places, o.Section(lexicon.SectionPlaces)); err != nil {
		return Lexicons{}, err
	}
	if err := replace(out.Themes, Themes, o.Section(lexicon.SectionThemes)); err != nil {
		return Lexicons{}, err
	}
	if err := replace(out.Markers, Markers, o.Section(lexicon.SectionMarkers)); err != nil {
		return Lexicons{}, err
	}
	return out, nil
}

func clone[K ~string](m map[K][]string) map[K][]string {
	out := make(map[K][]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func replace[K ~string](dst map[K][]string, order []K, section map[string][]string) error {
	for key, list := range section {
		k := K(key)
		if !slices.Contains(order, k) {
			return fmt.Errorf("unknown context key %q", key)
		}
		dst[k] = list
	}
	return nil
}

type compiled struct {
	source  Lexicons
	periods *lexicon.Table[Period]
	places  *lexicon.Table[Place]
	themes  *lexicon.Table[Theme]
	markers *lexicon.Table[Marker]
}

func compile(l Lexicons) *compiled {
	return &compiled{
		source:  l,
		periods: lexicon.NewTable(Periods, l.Periods),
		places:  lexicon.NewTable(Places, l.Places),
		themes:  lexicon.NewTable(Themes, l.Themes),
		markers: lexicon.NewTable(Markers, l.Markers),
	}
}
