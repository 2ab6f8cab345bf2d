package lexicon

import (
	"encoding/json"
	"fmt"
	"os"
)

// Section names used in override files.
const (
	SectionPolarity  = "polarity"
	SectionEmotions  = "emotions"
	SectionTones     = "tones"
	SectionCues      = "cues"
	SectionRelations = "relations"
	SectionNames     = "names"
	SectionPeriods   = "periods"
	SectionPlaces    = "places"
	SectionThemes    = "themes"
	SectionMarkers   = "markers"
	SectionDialogue  = "dialogue"
	SectionTimeline  = "timeline"
)

var knownSections = map[string]bool{
	SectionPolarity:  true,
	SectionEmotions:  true,
	SectionTones:     true,
	SectionCues:      true,
	SectionRelations: true,
	SectionNames:     true,
	SectionPeriods:   true,
	SectionPlaces:    true,
	SectionThemes:    true,
	SectionMarkers:   true,
	SectionDialogue:  true,
	SectionTimeline:  true,
}

// Overrides replaces term lists of the built-in lexicons. It is keyed by
// section, then by taxonomy key:
//
//	{"tones": {"dramatic": ["suddenly", "all at once"]}}
//
// Only the listed keys are replaced; everything else keeps its defaults.
type Overrides map[string]map[string][]string

// Load reads overrides from a JSON file.
func Load(path string) (Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lexicon file: %w", err)
	}
	return Parse(data)
}

// Parse decodes overrides from JSON and rejects unknown sections.
func Parse(data []byte) (Overrides, error) {
	var o Overrides
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("decoding lexicon overrides: %w", err)
	}
	for name := range o {
		if !knownSections[name] {
			return nil, fmt.Errorf("unknown lexicon section %q", name)
		}
	}
	return o, nil
}

// Section returns the replacement lists for one section (nil if absent).
func (o Overrides) Section(name string) map[string][]string {
	if o == nil {
		return nil
	}
	return o[name]
}
