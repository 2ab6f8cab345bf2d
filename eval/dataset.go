package eval

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/brunobiangulo/gonarrate/relation"
	"github.com/brunobiangulo/gonarrate/sentiment"
	"github.com/brunobiangulo/gonarrate/setting"
	"github.com/brunobiangulo/gonarrate/tone"
)

// Dataset is a collection of labelled passages.
type Dataset struct {
	Name  string `json:"name"`
	Cases []Case `json:"cases"`
}

// Case is one labelled passage. Empty expectations are not scored.
type Case struct {
	Text      string          `json:"text"`
	Category  string          `json:"category,omitempty"` // e.g. dialogue, description, action
	Sentiment sentiment.Label `json:"sentiment,omitempty"`
	Tone      tone.Tone       `json:"tone,omitempty"`
	Mood      tone.Mood       `json:"mood,omitempty"`
	Period    setting.Period  `json:"period,omitempty"`
	Setting   setting.Place   `json:"setting,omitempty"`

	// Relationships are compared as unordered typed pairs; Indicator is
	// ignored. A nil slice is not scored; an empty one expects no edges.
	Relationships []relation.Edge `json:"relationships,omitempty"`
	NoRelations   bool            `json:"no_relationships,omitempty"`
}

// LoadDataset reads a dataset from a JSON file.
func LoadDataset(path string) (Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("reading dataset: %w", err)
	}
	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return Dataset{}, fmt.Errorf("parsing dataset %s: %w", path, err)
	}
	if len(ds.Cases) == 0 {
		return Dataset{}, fmt.Errorf("dataset %s has no cases", path)
	}
	if ds.Name == "" {
		ds.Name = path
	}
	return ds, nil
}

// NarrativeDataset returns a small built-in regression set covering every
// facet with the compiled-in lexicons.
func NarrativeDataset() Dataset {
	return Dataset{
		Name: "narrative-smoke",
		Cases: []Case{
			{
				Text:      "I am so happy and overjoyed today!",
				Category:  "dialogue",
				Sentiment: sentiment.Positive,
			},
			{
				Text:      "It was a terrible, awful night.",
				Category:  "description",
				Sentiment: sentiment.Negative,
			},
			{
				Text:        "The door opened.",
				Category:    "action",
				Sentiment:   sentiment.Neutral,
				Tone:        tone.Formal,
				Mood:        tone.MoodNeutral,
				NoRelations: true,
			},
			{
				Text:     "The bleak, hopeless winter left them miserable and afraid.",
				Category: "description",
				Tone:     tone.Pessimistic,
				Mood:     tone.MoodDark,
			},
			{
				Text:     "Suddenly, the tower exploded!",
				Category: "action",
				Tone:     tone.Dramatic,
				Mood:     tone.MoodIntense,
			},
			{
				Text:     "The knight rode to the castle in ancient times.",
				Category: "description",
				Period:   setting.Past,
				Setting:  setting.Indoor,
			},
			{
				Text:     "The robot explored the space station. Tomorrow the starship will launch.",
				Category: "description",
				Period:   setting.Future,
			},
			{
				Text:     "John loves Mary.",
				Category: "relationship",
				Relationships: []relation.Edge{
					{Character1: "John", Character2: "Mary", Type: relation.Romantic},
				},
			},
		},
	}
}
